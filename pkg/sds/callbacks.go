package sds

import "github.com/newtron-network/sds-runtime/pkg/sdserr"

// OnConfig registers fn to fire when table's Config section is updated
// from an inbound message (Device role, §4.8 step 5). Replaces any
// previous registration for table — the Go equivalent of the Python
// decorator's dict-assignment semantics (SPEC_FULL "Supplemented
// features").
func (n *Node) OnConfig(table string, fn func(table string)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.onConfig[table] = fn
}

// OnState registers fn to fire when table's State section is updated
// from fromDevice (Owner role, §4.8 step 5).
func (n *Node) OnState(table string, fn func(table, fromDevice string)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.onState[table] = fn
}

// OnStatus registers fn to fire when a device's Status slot is updated
// (Owner role, §4.8 step 5).
func (n *Node) OnStatus(table string, fn func(table, fromDevice string)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.onStatus[table] = fn
}

// OnDeviceEvicted registers fn to fire when a device's slot is vacated
// after its eviction grace elapses (§4.9). fn always receives the table
// name as its first argument (SPEC_FULL open question 2).
func (n *Node) OnDeviceEvicted(fn func(table, nodeID string)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.onDeviceEvicted = fn
}

// OnError registers fn to receive errors arising from background work
// (receive pipeline, eviction) that have no synchronous caller to return
// to (§7 "Propagation").
func (n *Node) OnError(fn func(code sdserr.Code, context string)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.onError = fn
}

// OnVersionMismatch registers fn to decide whether an inbound message
// whose __version differs from this node's schema version should still
// be applied. fn receives the table, the sending device, this node's own
// schema version, and the remote version carried on the message, in that
// order (node.py's VersionMismatchCallback). Returning false drops the
// message (§4.8 step 4).
func (n *Node) OnVersionMismatch(fn func(table, fromDevice, localVersion, remoteVersion string) bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.onVersionMismatch = fn
}

// reportError increments the error counter and, if registered, invokes
// onError. Callbacks that panic are not recovered here — per §7 the
// *runtime's* error handling is "logged, counted, continue"; a panicking
// user callback is a programming error in the callback itself.
func (n *Node) reportError(code sdserr.Code, context string) {
	n.stats.addError()
	n.mu.Lock()
	fn := n.onError
	n.mu.Unlock()
	if fn != nil {
		fn(code, context)
	}
}
