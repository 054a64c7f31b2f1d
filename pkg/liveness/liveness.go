// Package liveness implements the liveness and eviction state machine
// (C9): pure functions over a schema.TableMeta slot layout and a
// shadow.Buffer, kept independently testable against raw buffers the same
// way the teacher keeps pkg/health as a standalone leaf package beside its
// big node aggregate (§4.9).
//
//	        first status
//	empty ─────────────▶ populated(online=true)
//	populated(online=true) ──missed liveness / LWT──▶ offline(eviction_pending=true)
//	offline ──fresh status──▶ populated(online=true)   [eviction_pending cleared]
//	offline ──deadline reached──▶ empty
package liveness

import (
	"github.com/newtron-network/sds-runtime/pkg/schema"
	"github.com/newtron-network/sds-runtime/pkg/shadow"
)

// NowMs is a package-level clock hook. The functions in this package do
// not read it: each takes the current time as an explicit nowMs argument,
// so tests can drive deterministic slot transitions without sleeping.
var NowMs = func() int64 { return 0 }

// livenessFactor scales a liveness interval to the "missed" threshold
// (§4.9: "now − last_seen_ms > 1.5 × liveness_interval_ms").
const livenessFactor = 1.5

// FindSlot returns the index of the slot for nodeID, if a valid slot with
// that node-id exists.
func FindSlot(slots schema.SlotMeta, buf *shadow.Buffer, nodeID string) (int, bool) {
	for i := 0; i < slots.Capacity; i++ {
		base := slots.SlotOffset(i)
		if !buf.GetBool(base + slots.ValidOffset) {
			continue
		}
		if buf.GetString(base+slots.NodeIDOffset, slots.NodeIDCap) == nodeID {
			return i, true
		}
	}
	return -1, false
}

// AllocateSlot finds an existing valid slot for nodeID, or the first free
// (invalid) slot to populate. ok is false if nodeID has no slot and the
// table is at capacity (§8: "registering a 17th device... triggers
// MaxDevicesReached; incumbent slots are unchanged").
func AllocateSlot(slots schema.SlotMeta, buf *shadow.Buffer, nodeID string) (int, bool) {
	if i, ok := FindSlot(slots, buf, nodeID); ok {
		return i, true
	}
	for i := 0; i < slots.Capacity; i++ {
		base := slots.SlotOffset(i)
		if !buf.GetBool(base + slots.ValidOffset) {
			return i, true
		}
	}
	return -1, false
}

// MarkOnline populates/refreshes slot i with a fresh status receipt:
// valid=true, online=true, eviction_pending cleared, last_seen_ms=now
// (§4.8 step 5, §4.9 "offline → populated" transition).
func MarkOnline(slots schema.SlotMeta, buf *shadow.Buffer, i int, nodeID string, nowMs int64) {
	base := slots.SlotOffset(i)
	buf.SetString(base+slots.NodeIDOffset, slots.NodeIDCap, nodeID)
	buf.SetBool(base+slots.ValidOffset, true)
	buf.SetBool(base+slots.OnlineOffset, true)
	buf.SetBool(base+slots.EvictionPendingOffset, false)
	buf.SetInt64(base+slots.LastSeenOffset, nowMs)
}

// MarkOffline flips slot i to offline (LWT receipt or missed-liveness
// detection), arming the eviction deadline if graceMs > 0 (§4.8 step 6,
// §4.9 first bullet). graceMs == 0 leaves eviction_pending unset — the
// callers (Tick, and the sds package's LWT handler) evict such slots
// immediately instead.
func MarkOffline(slots schema.SlotMeta, buf *shadow.Buffer, i int, graceMs int, nowMs int64) {
	base := slots.SlotOffset(i)
	buf.SetBool(base+slots.OnlineOffset, false)
	if graceMs > 0 {
		buf.SetBool(base+slots.EvictionPendingOffset, true)
		buf.SetInt64(base+slots.EvictionDeadlineOffset, nowMs+int64(graceMs))
	}
}

// Evict vacates slot i: valid=false, node-id and status payload zeroed,
// flags cleared (§4.9 second bullet, §3 slot lifecycle "offline →
// empty").
func Evict(slots schema.SlotMeta, buf *shadow.Buffer, i int) {
	base := slots.SlotOffset(i)
	buf.Clear(base, slots.Stride)
}

// Count returns the number of slots with valid=true.
func Count(slots schema.SlotMeta, buf *shadow.Buffer) int {
	n := 0
	for i := 0; i < slots.Capacity; i++ {
		if buf.GetBool(slots.SlotOffset(i) + slots.ValidOffset) {
			n++
		}
	}
	return n
}

// IsOnline reports whether nodeID's slot is valid, online, and has been
// seen within timeoutMs (0 ⇒ the default 1.5×liveness_interval_ms, per
// §4.9's public query).
func IsOnline(slots schema.SlotMeta, buf *shadow.Buffer, nodeID string, livenessIntervalMs, timeoutMs int, nowMs int64) bool {
	i, ok := FindSlot(slots, buf, nodeID)
	if !ok {
		return false
	}
	base := slots.SlotOffset(i)
	if !buf.GetBool(base + slots.OnlineOffset) {
		return false
	}
	if timeoutMs <= 0 {
		timeoutMs = int(float64(livenessIntervalMs) * livenessFactor)
	}
	lastSeen := buf.GetInt64(base + slots.LastSeenOffset)
	return nowMs-lastSeen <= int64(timeoutMs)
}

// Evicted is one slot vacated by a Tick call.
type Evicted struct {
	NodeID string
}

// Tick walks every slot once (one Poll's worth of liveness work, §4.9):
//   - valid ∧ online ∧ missed the 1.5× liveness window → offline (+ arm
//     eviction if graceMs > 0)
//   - valid ∧ eviction_pending ∧ deadline reached → vacate, reporting the
//     evicted node-id so the caller can fire on_device_evicted
//
// graceMs == 0 evicts on the same tick a slot goes offline, matching the
// invariant in §8: "if grace = 0, the slot is vacated within the same
// poll".
func Tick(slots schema.SlotMeta, buf *shadow.Buffer, livenessIntervalMs, graceMs int, nowMs int64) []Evicted {
	var evicted []Evicted
	missedThreshold := int64(float64(livenessIntervalMs) * livenessFactor)

	for i := 0; i < slots.Capacity; i++ {
		base := slots.SlotOffset(i)
		if !buf.GetBool(base + slots.ValidOffset) {
			continue
		}

		online := buf.GetBool(base + slots.OnlineOffset)
		if online {
			lastSeen := buf.GetInt64(base + slots.LastSeenOffset)
			if nowMs-lastSeen > missedThreshold {
				nodeID := buf.GetString(base+slots.NodeIDOffset, slots.NodeIDCap)
				MarkOffline(slots, buf, i, graceMs, nowMs)
				if graceMs <= 0 {
					Evict(slots, buf, i)
					evicted = append(evicted, Evicted{NodeID: nodeID})
					continue
				}
			}
		}

		pending := buf.GetBool(base + slots.EvictionPendingOffset)
		if pending {
			deadline := buf.GetInt64(base + slots.EvictionDeadlineOffset)
			if nowMs >= deadline {
				nodeID := buf.GetString(base+slots.NodeIDOffset, slots.NodeIDCap)
				Evict(slots, buf, i)
				evicted = append(evicted, Evicted{NodeID: nodeID})
			}
		}
	}
	return evicted
}
