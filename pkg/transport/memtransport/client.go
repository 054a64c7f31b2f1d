package memtransport

import (
	"context"
	"sync"

	"github.com/newtron-network/sds-runtime/pkg/sdserr"
	"github.com/newtron-network/sds-runtime/pkg/transport"
)

// Client is one node's connection to a Broker.
type Client struct {
	broker *Broker

	mu        sync.Mutex
	connected bool
	will      *transport.LWT
	handlers  map[string]transport.Handler
}

// NewClient attaches a new Client to broker. Distinct Clients on the same
// Broker can see each other's publishes.
func NewClient(broker *Broker) *Client {
	return &Client{broker: broker, handlers: map[string]transport.Handler{}}
}

var _ transport.Transport = (*Client)(nil)

func (c *Client) Connect(ctx context.Context, opts transport.ConnectOptions) error {
	c.mu.Lock()
	c.connected = true
	c.will = opts.Will
	c.mu.Unlock()
	c.broker.markConnected(c, true)
	return nil
}

func (c *Client) Publish(ctx context.Context, topic string, payload []byte, qos transport.QoS, retained bool) error {
	c.mu.Lock()
	connected := c.connected
	c.mu.Unlock()
	if !connected {
		return sdserr.New(sdserr.CodeMqttDisconnected, "Publish", topic)
	}
	c.broker.publish(topic, payload, retained)
	return nil
}

func (c *Client) Subscribe(ctx context.Context, topicPattern string, qos transport.QoS, handler transport.Handler) error {
	c.mu.Lock()
	c.handlers[topicPattern] = handler
	c.mu.Unlock()
	c.broker.subscribe(c, topicPattern, func(topic string, payload []byte) {
		handler(transport.Message{Topic: topic, Payload: payload})
	})
	return nil
}

func (c *Client) Unsubscribe(ctx context.Context, topicPattern string) error {
	c.mu.Lock()
	delete(c.handlers, topicPattern)
	c.mu.Unlock()
	c.broker.unsubscribe(c, topicPattern)
	return nil
}

func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Disconnect performs a clean shutdown: it does NOT fire the LWT (a
// clean disconnect isn't a will trigger on a real broker either).
func (c *Client) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
	c.broker.markConnected(c, false)
	c.broker.dropAllSubs(c)
	return nil
}

// SimulateDrop emulates an ungraceful disconnect: the broker publishes
// the client's registered LWT, exactly as a real MQTT broker would on
// keepalive timeout (§4.6). Tests use this to exercise the owner-side
// liveness/eviction path without a real network.
func (c *Client) SimulateDrop() {
	c.mu.Lock()
	will := c.will
	c.connected = false
	c.mu.Unlock()
	c.broker.markConnected(c, false)
	c.broker.dropAllSubs(c)
	if will != nil {
		c.broker.publish(will.Topic, will.Payload, will.Retained)
	}
}
