package schema

import "fmt"

const (
	// DefaultSlotCapacity is the owner-side device slot count used when a
	// TableOptions.SlotCapacity is left at zero.
	DefaultSlotCapacity = 16
	// DefaultNodeIDCap is the byte capacity reserved for a node id inside a
	// status slot: 31 characters (§4.10 node-id length limit) plus the
	// trailing null terminator.
	DefaultNodeIDCap = 32
)

// TableOptions carries the per-table cadence and capacity knobs a codegen
// artifact (or a hand-written registration, §4.1) supplies alongside field
// lists.
type TableOptions struct {
	SyncIntervalMs     int
	LivenessIntervalMs int
	SlotCapacity       int
	NodeIDCap          int
}

func (o TableOptions) normalized() TableOptions {
	if o.SlotCapacity <= 0 {
		o.SlotCapacity = DefaultSlotCapacity
	}
	if o.NodeIDCap <= 0 {
		o.NodeIDCap = DefaultNodeIDCap
	}
	return o
}

// layoutSection assigns sequential offsets to fields (in declaration order)
// starting at base, and returns the resulting SectionMeta.
func layoutSection(base int, fields []FieldDescriptor) (SectionMeta, error) {
	laidOut := make([]FieldDescriptor, len(fields))
	offset := base
	seen := make(map[string]bool, len(fields))
	for i, f := range fields {
		if err := f.validate(); err != nil {
			return SectionMeta{}, err
		}
		if seen[f.Name] {
			return SectionMeta{}, fmt.Errorf("duplicate field name %q", f.Name)
		}
		seen[f.Name] = true
		f.Offset = offset
		offset += f.size()
		laidOut[i] = f
	}
	return SectionMeta{Offset: base, Size: offset - base, Fields: laidOut}, nil
}

// NewTableMeta lays out a table's Config/State/Status sections and,
// for the Owner role, its device status-slot array, in one deterministic
// pass over the supplied field lists (§3, §4.1). Offsets are computed here
// once, at registration time, and never recomputed — this is the Go
// stand-in for the ".sds compile step fixes sizes and offsets" rule the
// real codegen artifact would otherwise perform ahead of time.
func NewTableMeta(name string, cfgFields, stateFields, statusFields []FieldDescriptor, opts TableOptions) (*TableMeta, error) {
	if name == "" {
		return nil, fmt.Errorf("table name must not be empty")
	}
	opts = opts.normalized()

	cfg, err := layoutSection(0, cfgFields)
	if err != nil {
		return nil, fmt.Errorf("table %q: config section: %w", name, err)
	}
	state, err := layoutSection(cfg.Offset+cfg.Size, stateFields)
	if err != nil {
		return nil, fmt.Errorf("table %q: state section: %w", name, err)
	}
	// Device buffer: config, state, status — contiguous.
	status, err := layoutSection(state.Offset+state.Size, statusFields)
	if err != nil {
		return nil, fmt.Errorf("table %q: status section: %w", name, err)
	}
	deviceBufferSize := status.Offset + status.Size

	// Owner buffer: config, state, device count, N status slots.
	countOffset := state.Offset + state.Size
	slotBase := countOffset + 4 // uint32 device count

	slotLocalStatus, err := layoutSection(0, statusFields)
	if err != nil {
		return nil, fmt.Errorf("table %q: slot status section: %w", name, err)
	}

	nodeIDOffset := 0
	validOffset := nodeIDOffset + opts.NodeIDCap
	onlineOffset := validOffset + 1
	evictionPendingOffset := onlineOffset + 1
	lastSeenOffset := evictionPendingOffset + 1
	// align int64 fields to an 8-byte boundary within the slot
	if rem := lastSeenOffset % 8; rem != 0 {
		lastSeenOffset += 8 - rem
	}
	evictionDeadlineOffset := lastSeenOffset + 8
	statusOffset := evictionDeadlineOffset + 8
	stride := statusOffset + slotLocalStatus.Size

	slots := SlotMeta{
		BaseOffset:             slotBase,
		Stride:                 stride,
		NodeIDOffset:           nodeIDOffset,
		NodeIDCap:              opts.NodeIDCap,
		ValidOffset:            validOffset,
		OnlineOffset:           onlineOffset,
		EvictionPendingOffset:  evictionPendingOffset,
		LastSeenOffset:         lastSeenOffset,
		EvictionDeadlineOffset: evictionDeadlineOffset,
		StatusOffset:           statusOffset,
		StatusSize:             slotLocalStatus.Size,
		StatusFields:           slotLocalStatus.Fields,
		Capacity:               opts.SlotCapacity,
	}
	ownerBufferSize := slotBase + stride*opts.SlotCapacity

	return &TableMeta{
		Name:               name,
		SyncIntervalMs:     opts.SyncIntervalMs,
		LivenessIntervalMs: opts.LivenessIntervalMs,
		DeviceBufferSize:   deviceBufferSize,
		OwnerBufferSize:    ownerBufferSize,
		Config:             cfg,
		State:              state,
		Status:             status,
		CountOffset:        countOffset,
		Slots:              slots,
	}, nil
}
