package sds

import (
	"context"

	"github.com/newtron-network/sds-runtime/pkg/sdserr"
	"github.com/newtron-network/sds-runtime/pkg/topic"
	"github.com/newtron-network/sds-runtime/pkg/transport"
)

// PublishRaw publishes bytes to topic outside the SDS table protocol.
// Rejects the reserved sds/ prefix (§4.5, §6). n.mu is released before
// the transport call: the in-process transport can synchronously deliver
// to a matching local subscriber, and a raw handler is free to call back
// into the node from within its callback (§5, see table.go's
// RegisterTable comment for the same hazard on the table path).
func (n *Node) PublishRaw(ctx context.Context, t string, payload []byte, qos transport.QoS, retained bool) error {
	if topic.IsReserved(t) {
		return sdserr.New(sdserr.CodeReservedTopic, "PublishRaw", t)
	}
	n.mu.Lock()
	initialized := n.initialized
	n.mu.Unlock()
	if !initialized {
		return sdserr.New(sdserr.CodeNotInitialized, "PublishRaw", "")
	}
	if err := n.tr.Publish(ctx, t, payload, qos, retained); err != nil {
		return err
	}
	n.stats.addSent()
	return nil
}

// SubscribeRaw subscribes to a non-SDS topic or wildcard. Rejects the
// reserved sds/ prefix. n.mu is not held across the subscribe call or
// while invoking cb, for the same reason as PublishRaw.
func (n *Node) SubscribeRaw(ctx context.Context, t string, qos transport.QoS, cb func(topic string, payload []byte)) error {
	if topic.IsReserved(t) {
		return sdserr.New(sdserr.CodeReservedTopic, "SubscribeRaw", t)
	}
	n.mu.Lock()
	initialized := n.initialized
	n.mu.Unlock()
	if !initialized {
		return sdserr.New(sdserr.CodeNotInitialized, "SubscribeRaw", "")
	}
	return n.tr.Subscribe(ctx, t, qos, func(msg transport.Message) {
		n.stats.addReceived()
		cb(msg.Topic, msg.Payload)
	})
}

// UnsubscribeRaw removes a previously-registered raw subscription.
func (n *Node) UnsubscribeRaw(ctx context.Context, t string) error {
	n.mu.Lock()
	initialized := n.initialized
	n.mu.Unlock()
	if !initialized {
		return sdserr.New(sdserr.CodeNotInitialized, "UnsubscribeRaw", "")
	}
	return n.tr.Unsubscribe(ctx, t)
}
