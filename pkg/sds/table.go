package sds

import (
	"context"
	"sync"

	"github.com/newtron-network/sds-runtime/pkg/liveness"
	"github.com/newtron-network/sds-runtime/pkg/schema"
	"github.com/newtron-network/sds-runtime/pkg/sdserr"
	"github.com/newtron-network/sds-runtime/pkg/shadow"
	"github.com/newtron-network/sds-runtime/pkg/topic"
	"github.com/newtron-network/sds-runtime/pkg/transport"
)

// RegisterOptions overrides a table instance's cadence at registration
// time (§4.7 "Sync intervals default from the TableMeta and may be
// overridden per registration").
type RegisterOptions struct {
	SyncIntervalMs int
	// SubscribeDeviceState additionally subscribes a Device to every
	// other device's published state (state/+) instead of just the
	// owner-published aggregate (state). Peer-state echoes matching this
	// node's own id are filtered (SPEC_FULL open question 4).
	SubscribeDeviceState bool
}

// TableHandle is a registered table instance: the TableMeta it
// references, its role, its shadow buffer, the delta-sync baseline, and
// per-section publish bookkeeping (§3 "Registered table instance").
type TableHandle struct {
	// mu guards buf, baseline, and lastPublish. It is never held across a
	// transport call — the in-process transport delivers retained and live
	// messages synchronously from within Publish/Subscribe, and a lock
	// held there would deadlock against the receive pipeline running on
	// the same goroutine (§5).
	mu             sync.Mutex
	meta           *schema.TableMeta
	role           schema.Role
	buf            *shadow.Buffer
	baseline       *shadow.Buffer
	syncIntervalMs int
	lastPublish    map[schema.SectionKind]int64

	subscriptions []string
}

// Meta returns the underlying schema.TableMeta.
func (h *TableHandle) Meta() *schema.TableMeta { return h.meta }

// Role returns the role this node plays for the table.
func (h *TableHandle) Role() schema.Role { return h.role }

func findField(fields []schema.FieldDescriptor, name string) (schema.FieldDescriptor, bool) {
	for _, f := range fields {
		if f.Name == name {
			return f, true
		}
	}
	return schema.FieldDescriptor{}, false
}

// GetConfig reads a Config field by name. Valid for both roles (§3
// invariants: only Owner writes Config, either role may read it).
func (h *TableHandle) GetConfig(name string) (interface{}, bool) {
	f, ok := findField(h.meta.Config.Fields, name)
	if !ok {
		return nil, false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.buf.GetField(f, h.meta.Config.Offset), true
}

// SetConfig writes a Config field by name. Owner-only — an Owner
// publishes configuration; a Device never mutates Config locally (§3).
func (h *TableHandle) SetConfig(name string, value interface{}) error {
	if h.role != schema.RoleOwner {
		return sdserr.New(sdserr.CodeInvalidRole, "SetConfig", "only the Owner may write Config")
	}
	f, ok := findField(h.meta.Config.Fields, name)
	if !ok {
		return sdserr.New(sdserr.CodeInvalidTable, "SetConfig", "unknown config field "+name)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.buf.SetField(f, h.meta.Config.Offset, value)
}

// GetState reads a State field by name. Valid for both roles.
func (h *TableHandle) GetState(name string) (interface{}, bool) {
	f, ok := findField(h.meta.State.Fields, name)
	if !ok {
		return nil, false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.buf.GetField(f, h.meta.State.Offset), true
}

// SetState writes a State field by name. Device-only — an Owner never
// mutates State locally (§3); it receives State from devices instead.
func (h *TableHandle) SetState(name string, value interface{}) error {
	if h.role != schema.RoleDevice {
		return sdserr.New(sdserr.CodeInvalidRole, "SetState", "only a Device may write State")
	}
	f, ok := findField(h.meta.State.Fields, name)
	if !ok {
		return sdserr.New(sdserr.CodeInvalidTable, "SetState", "unknown state field "+name)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.buf.SetField(f, h.meta.State.Offset, value)
}

// GetStatus reads a Status field by name. Device-only — an Owner has no
// standalone Status section of its own; device statuses live in slots
// (§4.1 SectionFor).
func (h *TableHandle) GetStatus(name string) (interface{}, bool) {
	if h.role != schema.RoleDevice {
		return nil, false
	}
	f, ok := findField(h.meta.Status.Fields, name)
	if !ok {
		return nil, false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.buf.GetField(f, h.meta.Status.Offset), true
}

// SetStatus writes a Status field by name. Device-only — an Owner never
// mutates Status locally (§3).
func (h *TableHandle) SetStatus(name string, value interface{}) error {
	if h.role != schema.RoleDevice {
		return sdserr.New(sdserr.CodeInvalidRole, "SetStatus", "only a Device may write Status")
	}
	f, ok := findField(h.meta.Status.Fields, name)
	if !ok {
		return sdserr.New(sdserr.CodeInvalidTable, "SetStatus", "unknown status field "+name)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.buf.SetField(f, h.meta.Status.Offset, value)
}

// DeviceView is a read-only snapshot of one Owner-side status slot (§3
// "Status slot").
type DeviceView struct {
	NodeID             string
	Valid              bool
	Online             bool
	EvictionPending    bool
	LastSeenMs         int64
	EvictionDeadlineMs int64

	table *TableHandle
	slot  int
}

// GetStatus reads a status field from this device's slot payload.
func (v *DeviceView) GetStatus(name string) (interface{}, bool) {
	f, ok := findField(v.table.meta.Slots.StatusFields, name)
	if !ok {
		return nil, false
	}
	base := v.table.meta.Slots.SlotOffset(v.slot) + v.table.meta.Slots.StatusOffset
	v.table.mu.Lock()
	defer v.table.mu.Unlock()
	return v.table.buf.GetField(f, base), true
}

// deviceViewAt reads slot i's snapshot. Caller must hold h.mu.
func deviceViewAt(h *TableHandle, i int) *DeviceView {
	slots := h.meta.Slots
	base := slots.SlotOffset(i)
	buf := h.buf
	return &DeviceView{
		NodeID:             buf.GetString(base+slots.NodeIDOffset, slots.NodeIDCap),
		Valid:              buf.GetBool(base + slots.ValidOffset),
		Online:             buf.GetBool(base + slots.OnlineOffset),
		EvictionPending:    buf.GetBool(base + slots.EvictionPendingOffset),
		LastSeenMs:         buf.GetInt64(base + slots.LastSeenOffset),
		EvictionDeadlineMs: buf.GetInt64(base + slots.EvictionDeadlineOffset),
		table:              h,
		slot:               i,
	}
}

// GetDevice returns the Owner-side view of deviceID's status slot.
// Owner-only.
func (h *TableHandle) GetDevice(deviceID string) (*DeviceView, bool) {
	if h.role != schema.RoleOwner {
		return nil, false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	i, ok := liveness.FindSlot(h.meta.Slots, h.buf, deviceID)
	if !ok {
		return nil, false
	}
	return deviceViewAt(h, i), true
}

// IterDevices returns a view of every currently-valid device slot.
// Owner-only.
func (h *TableHandle) IterDevices() []*DeviceView {
	if h.role != schema.RoleOwner {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []*DeviceView
	for i := 0; i < h.meta.Slots.Capacity; i++ {
		if h.buf.GetBool(h.meta.Slots.SlotOffset(i) + h.meta.Slots.ValidOffset) {
			out = append(out, deviceViewAt(h, i))
		}
	}
	return out
}

// DeviceCount returns the number of valid device slots. Owner-only (0
// for a Device-role handle).
func (h *TableHandle) DeviceCount() int {
	if h.role != schema.RoleOwner {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return liveness.Count(h.meta.Slots, h.buf)
}

// RegisterTable registers name for role, allocating its shadow/baseline
// buffers, applying field defaults, and subscribing the topics the role
// needs to receive (§3 "Table instance" lifecycle, §4.5/§4.6).
func (n *Node) RegisterTable(ctx context.Context, name string, role schema.Role, opts RegisterOptions) (*TableHandle, error) {
	n.mu.Lock()
	if !n.initialized {
		n.mu.Unlock()
		return nil, sdserr.New(sdserr.CodeNotInitialized, "RegisterTable", "")
	}
	if _, exists := n.tables[name]; exists {
		n.mu.Unlock()
		return nil, sdserr.New(sdserr.CodeTableAlreadyRegistered, "RegisterTable", name)
	}
	meta, ok := schema.Find(name)
	if !ok {
		n.mu.Unlock()
		return nil, sdserr.New(sdserr.CodeTableNotFound, "RegisterTable", name)
	}

	size := meta.BufferSize(role)
	h := &TableHandle{
		meta:           meta,
		role:           role,
		buf:            shadow.NewBuffer(size),
		baseline:       shadow.NewBuffer(size), // zeroed: first publish is always full (§4.3)
		syncIntervalMs: meta.SyncIntervalMs,
		lastPublish:    map[schema.SectionKind]int64{},
	}
	if opts.SyncIntervalMs > 0 {
		h.syncIntervalMs = opts.SyncIntervalMs
	}

	for _, f := range meta.Config.Fields {
		_ = h.buf.ApplyDefault(f, meta.Config.Offset)
	}
	for _, f := range meta.State.Fields {
		_ = h.buf.ApplyDefault(f, meta.State.Offset)
	}
	if role == schema.RoleDevice {
		for _, f := range meta.Status.Fields {
			_ = h.buf.ApplyDefault(f, meta.Status.Offset)
		}
	}

	// Published into the registry before subscribing: the in-process
	// transport replays retained messages synchronously from within
	// Subscribe, and that replay reaches handleMessage, which looks the
	// table up by name. n.mu must NOT be held across subscribeForTable —
	// handleMessage takes it too, on the same goroutine (§5).
	n.tables[name] = h
	n.mu.Unlock()

	if err := n.subscribeForTable(ctx, name, h, opts); err != nil {
		n.mu.Lock()
		delete(n.tables, name)
		n.mu.Unlock()
		return nil, err
	}

	return h, nil
}

func (n *Node) subscribeForTable(ctx context.Context, name string, h *TableHandle, opts RegisterOptions) error {
	sub := func(pattern string) error {
		err := n.tr.Subscribe(ctx, pattern, transport.QoSAtLeastOnce, func(msg transport.Message) {
			t := msg.Topic
			// A device's will is published once on sds/+/status/<id> for
			// every table; resolve the "+" to the table this subscription
			// belongs to so the receive pipeline can find it.
			if cl, ok := topic.Classify(t); ok && cl.Table == "+" && cl.Section == schema.SectionStatus {
				t = topic.Status(name, cl.SourceNode)
			}
			n.handleMessage(t, msg.Payload)
		})
		if err != nil {
			return err
		}
		h.subscriptions = append(h.subscriptions, pattern)
		return nil
	}

	// topic.DeviceState/topic.Status both build "sds/<table>/<section>/<id>"
	// by plain concatenation, so passing the MQTT wildcard segment "+" as
	// the device-id argument produces the correct subscribe pattern
	// without a separate wildcard-building path.
	switch h.role {
	case schema.RoleOwner:
		if err := sub(topic.DeviceState(name, "+")); err != nil {
			return err
		}
		if err := sub(topic.Status(name, "+")); err != nil {
			return err
		}
	case schema.RoleDevice:
		if err := sub(topic.Config(name)); err != nil {
			return err
		}
		if err := sub(topic.OwnerState(name)); err != nil {
			return err
		}
		if opts.SubscribeDeviceState {
			if err := sub(topic.DeviceState(name, "+")); err != nil {
				return err
			}
		}
	}
	return nil
}

// UnregisterTable removes a table instance: its buffer is freed and its
// subscriptions are dropped (§3 "unregistered" lifecycle state).
func (n *Node) UnregisterTable(ctx context.Context, name string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	h, ok := n.tables[name]
	if !ok {
		return sdserr.New(sdserr.CodeTableNotFound, "UnregisterTable", name)
	}
	for _, pattern := range h.subscriptions {
		_ = n.tr.Unsubscribe(ctx, pattern)
	}
	delete(n.tables, name)
	return nil
}

// GetTable returns the registered handle for name.
func (n *Node) GetTable(name string) (*TableHandle, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	h, ok := n.tables[name]
	return h, ok
}
