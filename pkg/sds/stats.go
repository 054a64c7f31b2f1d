package sds

import "sync/atomic"

// Stats holds the node's monotonically-increasing counters (§4.10,
// §8 "messages_sent and messages_received are monotonic non-decreasing").
type Stats struct {
	messagesSent     int64
	messagesReceived int64
	reconnectCount   int64
	errors           int64
}

func (s *Stats) addSent()      { atomic.AddInt64(&s.messagesSent, 1) }
func (s *Stats) addReceived()  { atomic.AddInt64(&s.messagesReceived, 1) }
func (s *Stats) addReconnect() { atomic.AddInt64(&s.reconnectCount, 1) }
func (s *Stats) addError()     { atomic.AddInt64(&s.errors, 1) }

// StatsSnapshot is a point-in-time copy of Stats safe to read without
// racing the counters.
type StatsSnapshot struct {
	MessagesSent     int64
	MessagesReceived int64
	ReconnectCount   int64
	Errors           int64
}

// GetStats returns a snapshot of the node's counters.
func (n *Node) GetStats() StatsSnapshot {
	return StatsSnapshot{
		MessagesSent:     atomic.LoadInt64(&n.stats.messagesSent),
		MessagesReceived: atomic.LoadInt64(&n.stats.messagesReceived),
		ReconnectCount:   atomic.LoadInt64(&n.stats.reconnectCount),
		Errors:           atomic.LoadInt64(&n.stats.errors),
	}
}
