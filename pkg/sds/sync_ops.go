package sds

import (
	"context"
	"sort"

	"github.com/newtron-network/sds-runtime/pkg/codec"
	"github.com/newtron-network/sds-runtime/pkg/dispatch"
	"github.com/newtron-network/sds-runtime/pkg/schema"
	"github.com/newtron-network/sds-runtime/pkg/sdserr"
	"github.com/newtron-network/sds-runtime/pkg/topic"
	"github.com/newtron-network/sds-runtime/pkg/transport"
	"github.com/newtron-network/sds-runtime/pkg/util"
)

// publishableSections lists the sections role is allowed to originate
// (§4.5 topic table): Owner publishes Config and its own (merged) State;
// Device publishes its State and Status.
func publishableSections(role schema.Role) []schema.SectionKind {
	if role == schema.RoleOwner {
		return []schema.SectionKind{schema.SectionConfig, schema.SectionState}
	}
	return []schema.SectionKind{schema.SectionState, schema.SectionStatus}
}

func publishTopic(table string, sec schema.SectionKind, role schema.Role, nodeID string) string {
	switch sec {
	case schema.SectionConfig:
		return topic.Config(table)
	case schema.SectionState:
		if role == schema.RoleOwner {
			return topic.OwnerState(table)
		}
		return topic.DeviceState(table, nodeID)
	case schema.SectionStatus:
		return topic.Status(table, nodeID)
	default:
		return ""
	}
}

func isRetained(sec schema.SectionKind, role schema.Role) bool {
	switch sec {
	case schema.SectionConfig:
		return true
	case schema.SectionState:
		return role == schema.RoleOwner
	case schema.SectionStatus:
		return true
	default:
		return false
	}
}

// Poll drives every registered table's sync engine (C7) and the
// liveness/eviction sweep (C9). Inbound messages reach the receive
// pipeline through the transport's message callback, not through a step
// of Poll (§5).
//
// n.mu is held only long enough to snapshot the table set — never across
// a transport call, since the in-process transport can deliver a message
// synchronously from within Publish (a table subscribed to its own
// published topic) and that delivery re-enters handleMessage on this
// goroutine (§5).
func (n *Node) Poll(ctx context.Context) error {
	n.mu.Lock()
	if !n.initialized {
		n.mu.Unlock()
		return sdserr.New(sdserr.CodeNotInitialized, "Poll", "")
	}
	names := make([]string, 0, len(n.tables))
	handles := make([]*TableHandle, 0, len(n.tables))
	for name, h := range n.tables {
		names = append(names, name)
		handles = append(handles, h)
	}
	n.mu.Unlock()

	// Deterministic iteration order keeps publish ordering reproducible
	// across runs for the same table set, useful for tests and logs.
	sort.Strings(names)
	byName := make(map[string]*TableHandle, len(names))
	for _, h := range handles {
		byName[h.meta.Name] = h
	}

	now := n.nowMs()
	for _, name := range names {
		h := byName[name]
		for _, sec := range publishableSections(h.role) {
			n.syncSection(ctx, name, h, sec, now)
		}
	}

	n.livenessTick(now)
	return nil
}

// syncSection implements §4.7 steps 1-4 for one (table, section): cadence
// gate, delta/full change detection, publish, baseline update.
func (n *Node) syncSection(ctx context.Context, name string, h *TableHandle, sec schema.SectionKind, now int64) {
	section, ok := h.meta.SectionFor(h.role, sec)
	if !ok {
		return
	}

	h.mu.Lock()
	if last, seen := h.lastPublish[sec]; seen && now-last < int64(h.syncIntervalMs) {
		h.mu.Unlock()
		return
	}

	w := codec.NewWriter(0)
	w.SetVersion(schema.Version())

	var changed bool
	var err error
	if n.cfg.DeltaSyncEnabled {
		changed, err = dispatch.SerializeDelta(section.Fields, h.buf, section.Offset, h.baseline, section.Offset, n.cfg.FloatTolerance, w)
	} else {
		err = dispatch.SerializeFull(section.Fields, h.buf, section.Offset, w)
		changed = true
	}
	if err != nil {
		h.mu.Unlock()
		n.reportError(sdserr.CodeBufferFull, "syncSection:"+name)
		return
	}
	if !changed {
		h.mu.Unlock()
		return // §8: no publish when the delta against baseline is empty
	}

	payload, err := w.Bytes()
	h.mu.Unlock()
	if err != nil {
		n.reportError(sdserr.CodeDecodeFailed, "syncSection:"+name)
		return
	}

	t := publishTopic(name, sec, h.role, n.cfg.NodeID)
	if err := n.tr.Publish(ctx, t, payload, transport.QoSAtLeastOnce, isRetained(sec, h.role)); err != nil {
		n.reportError(sdserr.CodeMqttDisconnected, "syncSection:"+t)
		return
	}

	n.stats.addSent()
	h.mu.Lock()
	h.baseline.CopyRange(section.Offset, h.buf, section.Offset, section.Size)
	h.lastPublish[sec] = now
	h.mu.Unlock()
	util.WithTable(name).WithField("section", sec.String()).Debug("sds: published")
}
