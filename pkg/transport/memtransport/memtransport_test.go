package memtransport

import (
	"context"
	"errors"
	"testing"

	"github.com/newtron-network/sds-runtime/pkg/sdserr"
	"github.com/newtron-network/sds-runtime/pkg/transport"
)

func TestPublishSubscribeDelivery(t *testing.T) {
	broker := NewBroker()
	owner := NewClient(broker)
	device := NewClient(broker)
	ctx := context.Background()

	if err := owner.Connect(ctx, transport.ConnectOptions{}); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := device.Connect(ctx, transport.ConnectOptions{}); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	received := make(chan transport.Message, 1)
	if err := device.Subscribe(ctx, "sds/SensorData/config", transport.QoSAtLeastOnce, func(m transport.Message) {
		received <- m
	}); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	if err := owner.Publish(ctx, "sds/SensorData/config", []byte(`{"threshold":25}`), transport.QoSAtLeastOnce, true); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case m := <-received:
		if string(m.Payload) != `{"threshold":25}` {
			t.Errorf("payload = %s", m.Payload)
		}
	default:
		t.Fatal("expected message delivered synchronously")
	}
}

func TestRetainedDeliveredOnLateSubscribe(t *testing.T) {
	broker := NewBroker()
	owner := NewClient(broker)
	ctx := context.Background()
	owner.Connect(ctx, transport.ConnectOptions{})
	owner.Publish(ctx, "sds/SensorData/config", []byte(`{"threshold":25}`), transport.QoSAtLeastOnce, true)

	device := NewClient(broker)
	device.Connect(ctx, transport.ConnectOptions{})
	received := make(chan transport.Message, 1)
	device.Subscribe(ctx, "sds/SensorData/config", transport.QoSAtLeastOnce, func(m transport.Message) {
		received <- m
	})

	select {
	case m := <-received:
		if string(m.Payload) != `{"threshold":25}` {
			t.Errorf("late-joining subscriber should get the retained config")
		}
	default:
		t.Fatal("expected retained message delivered on subscribe")
	}
}

func TestPublishWhenDisconnectedFails(t *testing.T) {
	broker := NewBroker()
	owner := NewClient(broker)
	err := owner.Publish(context.Background(), "sds/X/config", nil, transport.QoSAtLeastOnce, true)
	if !errors.Is(err, sdserr.ErrMqttDisconnected) {
		t.Errorf("expected ErrMqttDisconnected, got %v", err)
	}
}

func TestWildcardSubscribeMatchesDeviceID(t *testing.T) {
	broker := NewBroker()
	owner := NewClient(broker)
	device := NewClient(broker)
	ctx := context.Background()
	owner.Connect(ctx, transport.ConnectOptions{})
	device.Connect(ctx, transport.ConnectOptions{})

	received := make(chan transport.Message, 1)
	owner.Subscribe(ctx, "sds/+/status/+", transport.QoSAtLeastOnce, func(m transport.Message) {
		received <- m
	})
	device.Publish(ctx, "sds/SensorData/status/dev_01", []byte(`{"battery":90}`), transport.QoSAtLeastOnce, true)

	select {
	case m := <-received:
		if m.Topic != "sds/SensorData/status/dev_01" {
			t.Errorf("topic = %s", m.Topic)
		}
	default:
		t.Fatal("expected wildcard match to deliver")
	}
}

func TestSimulateDropFiresLWT(t *testing.T) {
	broker := NewBroker()
	owner := NewClient(broker)
	device := NewClient(broker)
	ctx := context.Background()
	owner.Connect(ctx, transport.ConnectOptions{})

	will := &transport.LWT{Topic: "sds/SensorData/status/dev_01", Payload: nil, Retained: true, QoS: transport.QoSAtLeastOnce}
	device.Connect(ctx, transport.ConnectOptions{Will: will})

	received := make(chan transport.Message, 1)
	owner.Subscribe(ctx, "sds/SensorData/status/dev_01", transport.QoSAtLeastOnce, func(m transport.Message) {
		received <- m
	})

	device.SimulateDrop()

	select {
	case m := <-received:
		if len(m.Payload) != 0 {
			t.Errorf("LWT payload should be empty, got %q", m.Payload)
		}
	default:
		t.Fatal("expected LWT delivery on simulated drop")
	}
	if device.IsConnected() {
		t.Error("device should be disconnected after SimulateDrop")
	}
}
