//go:build integration

package redistransport

import (
	"context"
	"testing"
	"time"

	"github.com/newtron-network/sds-runtime/internal/testutil"
	"github.com/newtron-network/sds-runtime/pkg/transport"
)

const testDB = 9

func newTestTransport(t *testing.T) *Transport {
	t.Helper()
	testutil.RequireRedis(t)
	testutil.FlushDB(t, testDB)
	tr := New(testutil.RedisAddr(), testDB)
	t.Cleanup(func() { tr.Disconnect(context.Background()) })
	return tr
}

func TestPublishSubscribeRoundTrip(t *testing.T) {
	owner := newTestTransport(t)
	device := newTestTransport(t)
	ctx := testutil.Context(t)

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
	time.Sleep(200 * time.Millisecond) // allow PSUBSCRIBE to register with Redis

	if err := owner.Publish(ctx, "sds/SensorData/config", []byte(`{"threshold":25}`), transport.QoSAtLeastOnce, true); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case m := <-received:
		if string(m.Payload) != `{"threshold":25}` {
			t.Errorf("payload = %s", m.Payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestRetainedDeliveredOnLateSubscribe(t *testing.T) {
	owner := newTestTransport(t)
	ctx := testutil.Context(t)
	owner.Connect(ctx, transport.ConnectOptions{})
	owner.Publish(ctx, "sds/SensorData/config", []byte(`{"threshold":25}`), transport.QoSAtLeastOnce, true)

	device := newTestTransport(t)
	device.Connect(ctx, transport.ConnectOptions{})
	received := make(chan transport.Message, 1)
	device.Subscribe(ctx, "sds/SensorData/config", transport.QoSAtLeastOnce, func(m transport.Message) {
		received <- m
	})

	select {
	case m := <-received:
		if string(m.Payload) != `{"threshold":25}` {
			t.Errorf("late subscriber should get retained config, got %s", m.Payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for retained delivery")
	}
}

func TestHeartbeatExpiryFiresLWT(t *testing.T) {
	device := newTestTransport(t)
	ctx := testutil.Context(t)

	will := &transport.LWT{Topic: "sds/SensorData/status/dev_01", Retained: true, QoS: transport.QoSAtLeastOnce}
	if err := device.Connect(ctx, transport.ConnectOptions{Will: will}); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if !testutil.HeartbeatExists(t, testDB, will.Topic) {
		t.Fatal("expected heartbeat key to exist after connect")
	}

	// Simulate an ungraceful drop: stop the heartbeat goroutine directly
	// instead of Disconnect (which deletes the key cleanly).
	device.mu.Lock()
	close(device.stopHeartbeat)
	device.stopHeartbeat = nil
	device.mu.Unlock()

	if val, ok := testutil.RetainedValue(t, testDB, will.Topic); !ok || len(val) != 0 {
		t.Errorf("expected empty retained LWT payload eventually, got %q, %v", val, ok)
	}
}
