package sds

import (
	"github.com/newtron-network/sds-runtime/pkg/liveness"
	"github.com/newtron-network/sds-runtime/pkg/schema"
)

// livenessTick walks every Owner-role table's status slots, delegating the
// state-machine decision to pkg/liveness, and fires onDeviceEvicted for
// each slot vacated this round (§4.9, C9 integration). Called once per
// Poll, after every table's sync section has been serviced.
func (n *Node) livenessTick(now int64) {
	n.mu.Lock()
	names := make([]string, 0, len(n.tables))
	handles := make([]*TableHandle, 0, len(n.tables))
	for name, h := range n.tables {
		if h.role != schema.RoleOwner {
			continue
		}
		names = append(names, name)
		handles = append(handles, h)
	}
	onEvicted := n.onDeviceEvicted
	n.mu.Unlock()

	for i, name := range names {
		h := handles[i]
		h.mu.Lock()
		evicted := liveness.Tick(h.meta.Slots, h.buf, h.meta.LivenessIntervalMs, n.cfg.EvictionGraceMs, now)
		h.mu.Unlock()

		for _, ev := range evicted {
			if onEvicted != nil {
				onEvicted(name, ev.NodeID)
			}
		}
	}
}
