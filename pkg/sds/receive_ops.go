package sds

import (
	"github.com/newtron-network/sds-runtime/pkg/codec"
	"github.com/newtron-network/sds-runtime/pkg/dispatch"
	"github.com/newtron-network/sds-runtime/pkg/liveness"
	"github.com/newtron-network/sds-runtime/pkg/schema"
	"github.com/newtron-network/sds-runtime/pkg/sdserr"
	"github.com/newtron-network/sds-runtime/pkg/topic"
	"github.com/newtron-network/sds-runtime/pkg/util"
)

// handleMessage is the receive pipeline (C8): topic classification,
// version guard, dispatch by (section, role), liveness update, callback.
// It is invoked from the transport's subscribe handler, never directly by
// a public method — see table.go's subscribeForTable. Raw (non-sds/)
// subscriptions are routed through their own callback by SubscribeRaw and
// never reach this function (§4.8 step 1 is therefore a no-op here by
// construction: only sds/ patterns are ever subscribed through
// subscribeForTable).
func (n *Node) handleMessage(t string, payload []byte) {
	n.stats.addReceived()

	cl, ok := topic.Classify(t)
	if !ok {
		n.reportError(sdserr.CodeInvalidTable, "handleMessage:"+t)
		return
	}

	n.mu.Lock()
	h, exists := n.tables[cl.Table]
	onVersionMismatch := n.onVersionMismatch
	onConfig := n.onConfig[cl.Table]
	onState := n.onState[cl.Table]
	onStatus := n.onStatus[cl.Table]
	onEvicted := n.onDeviceEvicted
	n.mu.Unlock()

	if !exists {
		n.reportError(sdserr.CodeTableNotFound, "handleMessage:"+cl.Table)
		return
	}

	// LWT / empty status payload: mark offline, do not deserialize (§4.8
	// step 3, step 6).
	if cl.Section == schema.SectionStatus && len(payload) == 0 {
		if evicted := n.handleStatusLWT(h, cl.SourceNode); evicted && onEvicted != nil {
			onEvicted(cl.Table, cl.SourceNode)
		}
		return
	}

	r, err := codec.NewReader(payload)
	if err != nil {
		n.reportError(sdserr.CodeDecodeFailed, "handleMessage:"+t)
		return
	}

	if remote, present := r.Version(); present && remote != schema.Version() {
		accept := onVersionMismatch == nil
		if onVersionMismatch != nil {
			accept = onVersionMismatch(cl.Table, cl.SourceNode, schema.Version(), remote)
		}
		if !accept {
			n.reportError(sdserr.CodeVersionMismatchRejected, "handleMessage:"+t)
			return
		}
	}

	switch cl.Section {
	case schema.SectionConfig:
		n.receiveConfig(h, r)
		if onConfig != nil {
			onConfig(cl.Table)
		}

	case schema.SectionState:
		// Devices filter out their own published state reflected back to
		// them over a peer-state (wildcard) subscription (SPEC_FULL open
		// question 4).
		if cl.HasSource && cl.SourceNode == n.cfg.NodeID {
			return
		}
		n.receiveState(h, r)
		if onState != nil {
			onState(cl.Table, cl.SourceNode)
		}

	case schema.SectionStatus:
		n.receiveStatus(h, r, cl.SourceNode)
		if onStatus != nil {
			onStatus(cl.Table, cl.SourceNode)
		}
	}
}

func (n *Node) receiveConfig(h *TableHandle, r *codec.Reader) {
	h.mu.Lock()
	_, err := dispatch.Deserialize(h.meta.Config.Fields, r, h.buf, h.meta.Config.Offset)
	h.mu.Unlock()
	if err != nil {
		n.reportError(sdserr.CodeDecodeFailed, "receiveConfig:"+h.meta.Name)
	}
}

// receiveState merges an inbound State payload into h's shadow: at an
// Owner this is "owner's merged view" fed by every device; at a Device
// that opted into peer-state visibility it is simply kept in sync (§4.8
// step 5).
func (n *Node) receiveState(h *TableHandle, r *codec.Reader) {
	section, ok := h.meta.SectionFor(h.role, schema.SectionState)
	if !ok {
		return
	}
	h.mu.Lock()
	_, err := dispatch.Deserialize(section.Fields, r, h.buf, section.Offset)
	h.mu.Unlock()
	if err != nil {
		n.reportError(sdserr.CodeDecodeFailed, "receiveState:"+h.meta.Name)
	}
}

// receiveStatus applies an inbound status payload to deviceID's slot,
// allocating one if none exists yet, and marks it online (§4.8 step 5).
func (n *Node) receiveStatus(h *TableHandle, r *codec.Reader, deviceID string) {
	if h.role != schema.RoleOwner {
		return
	}

	h.mu.Lock()
	i, ok := liveness.AllocateSlot(h.meta.Slots, h.buf, deviceID)
	if !ok {
		h.mu.Unlock()
		n.reportError(sdserr.CodeMaxDevicesReached, "receiveStatus:"+h.meta.Name)
		return
	}

	base := h.meta.Slots.SlotOffset(i) + h.meta.Slots.StatusOffset
	if _, err := dispatch.Deserialize(h.meta.Slots.StatusFields, r, h.buf, base); err != nil {
		h.mu.Unlock()
		n.reportError(sdserr.CodeDecodeFailed, "receiveStatus:"+h.meta.Name)
		return
	}
	liveness.MarkOnline(h.meta.Slots, h.buf, i, deviceID, n.nowMs())
	h.mu.Unlock()
}

// handleStatusLWT processes an empty-payload retained status message: the
// broker-emulated last will (§4.8 step 6). It mirrors liveness.Tick's
// grace=0 handling: a zero eviction grace vacates the slot immediately
// instead of arming a deadline for a later Tick to act on (§8 "if grace =
// 0, the slot is vacated within the same poll"). evicted reports whether
// the slot was vacated so the caller can fire onDeviceEvicted outside
// h.mu.
func (n *Node) handleStatusLWT(h *TableHandle, deviceID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.role != schema.RoleOwner {
		return false
	}
	i, ok := liveness.FindSlot(h.meta.Slots, h.buf, deviceID)
	if !ok {
		return false
	}
	liveness.MarkOffline(h.meta.Slots, h.buf, i, n.cfg.EvictionGraceMs, n.nowMs())
	util.WithTable(h.meta.Name).WithField("node_id", deviceID).Debug("sds: LWT received")

	if n.cfg.EvictionGraceMs <= 0 {
		liveness.Evict(h.meta.Slots, h.buf, i)
		return true
	}
	return false
}
