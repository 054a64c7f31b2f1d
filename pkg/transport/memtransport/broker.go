// Package memtransport is an in-process fake broker implementing
// transport.Transport, used by unit tests and the demo CLI in place of a
// real MQTT connection. It models retained messages, "+"-wildcard
// subscriptions, and LWT delivery on an ungraceful drop (Client.SimulateDrop;
// a clean Disconnect does not fire it, §4.6) without any network I/O.
package memtransport

import (
	"strings"
	"sync"
)

type subscription struct {
	client  *Client
	pattern string
	handler func(topic string, payload []byte)
}

// Broker is a shared in-process message bus. Multiple Clients attached
// to the same Broker can see each other's publishes, mirroring a real
// MQTT broker shared by an Owner and its Devices.
type Broker struct {
	mu        sync.Mutex
	retained  map[string][]byte
	subs      []subscription
	connected map[*Client]bool
}

// NewBroker returns an empty broker.
func NewBroker() *Broker {
	return &Broker{
		retained:  map[string][]byte{},
		connected: map[*Client]bool{},
	}
}

// matchTopic compares two "/"-segmented topic strings, treating a "+"
// segment on EITHER side as matching any concrete segment on the other
// (a published topic can itself carry a literal "+", e.g. a Device's LWT
// registered once for "any table" — sds/+/status/<node-id>).
func matchTopic(pattern, topic string) bool {
	pp := strings.Split(pattern, "/")
	tp := strings.Split(topic, "/")
	if len(pp) != len(tp) {
		return false
	}
	for i, seg := range pp {
		if seg != "+" && tp[i] != "+" && seg != tp[i] {
			return false
		}
	}
	return true
}

func (b *Broker) publish(topic string, payload []byte, retained bool) {
	b.mu.Lock()
	if retained {
		cp := append([]byte(nil), payload...)
		b.retained[topic] = cp
	}
	matched := make([]subscription, 0, len(b.subs))
	for _, s := range b.subs {
		if matchTopic(s.pattern, topic) {
			matched = append(matched, s)
		}
	}
	b.mu.Unlock()

	for _, s := range matched {
		s.handler(topic, payload)
	}
}

func (b *Broker) subscribe(c *Client, pattern string, handler func(topic string, payload []byte)) {
	b.mu.Lock()
	b.subs = append(b.subs, subscription{client: c, pattern: pattern, handler: handler})
	var retainedMatches []struct {
		topic   string
		payload []byte
	}
	for topic, payload := range b.retained {
		if matchTopic(pattern, topic) {
			retainedMatches = append(retainedMatches, struct {
				topic   string
				payload []byte
			}{topic, payload})
		}
	}
	b.mu.Unlock()

	for _, m := range retainedMatches {
		handler(m.topic, m.payload)
	}
}

func (b *Broker) unsubscribe(c *Client, pattern string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	filtered := b.subs[:0]
	for _, s := range b.subs {
		if s.client == c && s.pattern == pattern {
			continue
		}
		filtered = append(filtered, s)
	}
	b.subs = filtered
}

func (b *Broker) markConnected(c *Client, connected bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if connected {
		b.connected[c] = true
	} else {
		delete(b.connected, c)
	}
}

func (b *Broker) dropAllSubs(c *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	filtered := b.subs[:0]
	for _, s := range b.subs {
		if s.client != c {
			filtered = append(filtered, s)
		}
	}
	b.subs = filtered
}
