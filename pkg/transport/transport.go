// Package transport defines the transport adapter contract (C6): the
// capability surface the core consumes to connect, publish, subscribe,
// and receive messages, independent of the underlying broker (§4.6).
// This is the one external boundary of the runtime — concrete adapters
// live in subpackages (memtransport for tests, redistransport as a
// Redis-backed stand-in for a real MQTT broker).
package transport

import "context"

// QoS mirrors MQTT's three quality-of-service levels.
type QoS byte

const (
	QoSAtMostOnce  QoS = 0
	QoSAtLeastOnce QoS = 1
	QoSExactlyOnce QoS = 2
)

// Credentials carries optional broker auth.
type Credentials struct {
	Username string
	Password string
}

// LWT is the last-will-and-testament message the adapter registers at
// connect time (§4.6): an empty Payload on a device's status topic is
// the runtime's own departure signal (§4.6, §4.8 step 6).
type LWT struct {
	Topic    string
	Payload  []byte
	QoS      QoS
	Retained bool
}

// ConnectOptions bundles the arguments Connect needs.
type ConnectOptions struct {
	Broker       string
	Port         int
	ClientID     string
	Credentials  *Credentials
	Will         *LWT
	ConnectDelay int // connect_timeout_ms, honored by the adapter (§5)
}

// Message is one inbound publish, handed to a Handler.
type Message struct {
	Topic   string
	Payload []byte
}

// Handler receives inbound messages. It runs on whatever goroutine the
// adapter delivers on: memtransport calls it synchronously from within
// Publish/Subscribe on the caller's goroutine, and redistransport calls it
// from its own receive goroutines, so it is not tied to the goroutine
// that calls Poll.
type Handler func(Message)

// Transport is the capability surface the core requires of a broker
// adapter (§4.6).
type Transport interface {
	// Connect blocks until connected or ctx/options' connect timeout
	// elapses, registering opts.Will if set.
	Connect(ctx context.Context, opts ConnectOptions) error
	// Publish fails with sdserr.ErrMqttDisconnected when not connected.
	Publish(ctx context.Context, topic string, payload []byte, qos QoS, retained bool) error
	// Subscribe registers handler for topic (which may be a wildcard).
	Subscribe(ctx context.Context, topic string, qos QoS, handler Handler) error
	// Unsubscribe removes a previously-registered subscription.
	Unsubscribe(ctx context.Context, topic string) error
	IsConnected() bool
	Disconnect(ctx context.Context) error
}
