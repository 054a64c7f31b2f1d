// Package schema holds the process-global, write-once table registry (C1):
// immutable TableMeta records describing each table's section layout,
// sync/liveness cadence, and owner-side status-slot geometry. The registry
// is populated once at process init — either by a generated codegen
// artifact (the real `.sds` compiler is out of scope, §1) or by direct
// runtime registration, per §4.1.
package schema

import "fmt"

// Role is the per-table role a node plays: Owner publishes Config and
// receives State/Status from Devices; Device is the reverse (§1, §3).
type Role int

const (
	RoleOwner Role = iota
	RoleDevice
)

func (r Role) String() string {
	switch r {
	case RoleOwner:
		return "owner"
	case RoleDevice:
		return "device"
	default:
		return "unknown"
	}
}

// SectionKind identifies one of the three section kinds a table carries.
type SectionKind int

const (
	SectionConfig SectionKind = iota
	SectionState
	SectionStatus
)

func (s SectionKind) String() string {
	switch s {
	case SectionConfig:
		return "config"
	case SectionState:
		return "state"
	case SectionStatus:
		return "status"
	default:
		return "unknown"
	}
}

// FieldType is the closed set of primitive field types a section may
// contain (§3): bool, signed/unsigned 8/16/32-bit integers, 32-bit float,
// and a fixed-capacity, null-terminated string.
type FieldType int

const (
	FieldBool FieldType = iota
	FieldInt8
	FieldUint8
	FieldInt16
	FieldUint16
	FieldInt32
	FieldUint32
	FieldFloat32
	FieldString
)

func (t FieldType) String() string {
	switch t {
	case FieldBool:
		return "bool"
	case FieldInt8:
		return "int8"
	case FieldUint8:
		return "uint8"
	case FieldInt16:
		return "int16"
	case FieldUint16:
		return "uint16"
	case FieldInt32:
		return "int32"
	case FieldUint32:
		return "uint32"
	case FieldFloat32:
		return "float32"
	case FieldString:
		return "string"
	default:
		return "unknown"
	}
}

// FixedSize returns the storage size in bytes of t, or 0 for FieldString
// (whose size is the descriptor's StringCap instead).
func (t FieldType) FixedSize() int {
	switch t {
	case FieldBool, FieldInt8, FieldUint8:
		return 1
	case FieldInt16, FieldUint16:
		return 2
	case FieldInt32, FieldUint32, FieldFloat32:
		return 4
	default:
		return 0
	}
}

// FieldDescriptor names one field of a section: its JSON name (identical
// to its schema identifier, §3), type, byte offset within the section
// buffer, string capacity (FieldString only), and default value.
//
// Offset is filled in by NewTableMeta in declaration order — callers supply
// Name/Type/StringCap/Default only; this is the "tagged field-list
// descriptor" the Design Notes (§9) call for in place of open-coded
// per-table function pointers.
type FieldDescriptor struct {
	Name      string
	Type      FieldType
	Offset    int
	StringCap int // total byte capacity, FieldString only
	Default   interface{}
}

func (f FieldDescriptor) size() int {
	if f.Type == FieldString {
		return f.StringCap
	}
	return f.Type.FixedSize()
}

func (f FieldDescriptor) validate() error {
	if f.Name == "" {
		return fmt.Errorf("field has empty name")
	}
	if f.Type == FieldString && f.StringCap <= 0 {
		return fmt.Errorf("field %q: string fields require StringCap > 0", f.Name)
	}
	return nil
}

// SectionMeta describes one section's (Config/State/Status) placement and
// field layout within a role's buffer (§3, §4.3).
type SectionMeta struct {
	Offset int
	Size   int
	Fields []FieldDescriptor
}

// SlotMeta describes the owner-side fixed-size status-slot record layout
// (§3 "Status slot"): node-id, liveness flags/timestamps, and the device's
// status payload, repeated SlotCapacity times starting at the owner
// buffer's slot base offset.
type SlotMeta struct {
	BaseOffset             int
	Stride                 int
	NodeIDOffset           int
	NodeIDCap              int
	ValidOffset            int
	OnlineOffset           int
	EvictionPendingOffset  int
	LastSeenOffset         int // int64 ms, relative to slot start
	EvictionDeadlineOffset int // int64 ms, relative to slot start
	StatusOffset           int
	StatusSize             int
	StatusFields           []FieldDescriptor // offsets relative to StatusOffset
	Capacity               int
}

// SlotOffset returns the absolute byte offset of slot index i within the
// owner buffer.
func (s SlotMeta) SlotOffset(i int) int {
	return s.BaseOffset + i*s.Stride
}

// TableMeta is the immutable, per-table descriptor installed into the
// registry: section layouts for both roles, sync/liveness cadence, and
// slot geometry (§3 "Table descriptor").
type TableMeta struct {
	Name               string
	SyncIntervalMs     int
	LivenessIntervalMs int
	DeviceBufferSize   int
	OwnerBufferSize    int
	Config             SectionMeta // same offset/fields for both roles
	State              SectionMeta // same offset/fields for both roles
	Status             SectionMeta // device-local status section layout
	CountOffset        int         // owner only: uint32 device count
	Slots              SlotMeta    // owner only
}

// SectionFor returns the SectionMeta for kind, as laid out for role.
// Role only affects Status: a Device's Status section is a standalone
// section in its buffer; an Owner has no standalone Status section of its
// own (its device statuses live in slots) — SectionFor(RoleOwner,
// SectionStatus) returns the zero value and ok=false.
func (m *TableMeta) SectionFor(role Role, kind SectionKind) (SectionMeta, bool) {
	switch kind {
	case SectionConfig:
		return m.Config, true
	case SectionState:
		return m.State, true
	case SectionStatus:
		if role == RoleOwner {
			return SectionMeta{}, false
		}
		return m.Status, true
	default:
		return SectionMeta{}, false
	}
}

// BufferSize returns the shadow buffer size for role.
func (m *TableMeta) BufferSize(role Role) int {
	if role == RoleOwner {
		return m.OwnerBufferSize
	}
	return m.DeviceBufferSize
}
