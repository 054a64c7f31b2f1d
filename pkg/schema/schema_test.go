package schema

import "testing"

func sampleFields() (cfg, state, status []FieldDescriptor) {
	cfg = []FieldDescriptor{
		{Name: "threshold", Type: FieldFloat32},
	}
	state = []FieldDescriptor{
		{Name: "temperature", Type: FieldFloat32},
		{Name: "humidity", Type: FieldFloat32},
	}
	status = []FieldDescriptor{
		{Name: "battery", Type: FieldUint8},
		{Name: "firmware", Type: FieldString, StringCap: 16},
	}
	return
}

func TestNewTableMetaLayout(t *testing.T) {
	cfg, state, status := sampleFields()
	m, err := NewTableMeta("SensorData", cfg, state, status, TableOptions{
		SyncIntervalMs:     1000,
		LivenessIntervalMs: 5000,
	})
	if err != nil {
		t.Fatalf("NewTableMeta: %v", err)
	}

	if m.Config.Offset != 0 || m.Config.Size != 4 {
		t.Errorf("config section = %+v, want offset 0 size 4", m.Config)
	}
	if m.State.Offset != 4 || m.State.Size != 8 {
		t.Errorf("state section = %+v, want offset 4 size 8", m.State)
	}
	if m.Status.Offset != 12 {
		t.Errorf("status offset = %d, want 12", m.Status.Offset)
	}
	wantStatusSize := 1 + 16 // battery + firmware
	if m.Status.Size != wantStatusSize {
		t.Errorf("status size = %d, want %d", m.Status.Size, wantStatusSize)
	}
	if m.DeviceBufferSize != m.Status.Offset+m.Status.Size {
		t.Errorf("device buffer size = %d, want %d", m.DeviceBufferSize, m.Status.Offset+m.Status.Size)
	}

	if m.Slots.Capacity != DefaultSlotCapacity {
		t.Errorf("slot capacity = %d, want default %d", m.Slots.Capacity, DefaultSlotCapacity)
	}
	if m.Slots.NodeIDCap != DefaultNodeIDCap {
		t.Errorf("node id cap = %d, want default %d", m.Slots.NodeIDCap, DefaultNodeIDCap)
	}
	wantOwnerSize := m.Slots.BaseOffset + m.Slots.Stride*m.Slots.Capacity
	if m.OwnerBufferSize != wantOwnerSize {
		t.Errorf("owner buffer size = %d, want %d", m.OwnerBufferSize, wantOwnerSize)
	}
	if m.Slots.StatusSize != wantStatusSize {
		t.Errorf("slot status size = %d, want %d", m.Slots.StatusSize, wantStatusSize)
	}
}

func TestNewTableMetaFieldOffsetsSequential(t *testing.T) {
	cfg, state, status := sampleFields()
	m, err := NewTableMeta("SensorData", cfg, state, status, TableOptions{})
	if err != nil {
		t.Fatalf("NewTableMeta: %v", err)
	}
	if m.State.Fields[0].Offset != m.State.Offset {
		t.Errorf("first state field offset = %d, want %d", m.State.Fields[0].Offset, m.State.Offset)
	}
	if m.State.Fields[1].Offset != m.State.Fields[0].Offset+4 {
		t.Errorf("second state field offset = %d, want %d", m.State.Fields[1].Offset, m.State.Fields[0].Offset+4)
	}
}

func TestNewTableMetaRejectsInvalid(t *testing.T) {
	t.Run("empty name", func(t *testing.T) {
		if _, err := NewTableMeta("", nil, nil, nil, TableOptions{}); err == nil {
			t.Error("expected error for empty table name")
		}
	})
	t.Run("string field without cap", func(t *testing.T) {
		bad := []FieldDescriptor{{Name: "firmware", Type: FieldString}}
		if _, err := NewTableMeta("Bad", nil, nil, bad, TableOptions{}); err == nil {
			t.Error("expected error for string field with zero StringCap")
		}
	})
	t.Run("duplicate field name", func(t *testing.T) {
		dup := []FieldDescriptor{{Name: "x", Type: FieldBool}, {Name: "x", Type: FieldBool}}
		if _, err := NewTableMeta("Dup", dup, nil, nil, TableOptions{}); err == nil {
			t.Error("expected error for duplicate field name")
		}
	})
}

func TestRegistryInstallFindReplace(t *testing.T) {
	Reset()
	defer Reset()

	cfg, state, status := sampleFields()
	m1, _ := NewTableMeta("SensorData", cfg, state, status, TableOptions{SyncIntervalMs: 1000})
	if err := Install(m1); err != nil {
		t.Fatalf("Install: %v", err)
	}
	got, ok := Find("SensorData")
	if !ok || got.SyncIntervalMs != 1000 {
		t.Fatalf("Find after first Install = %+v, %v", got, ok)
	}

	m2, _ := NewTableMeta("SensorData", cfg, state, status, TableOptions{SyncIntervalMs: 2000})
	if err := Install(m2); err != nil {
		t.Fatalf("Install (replace): %v", err)
	}
	got, ok = Find("SensorData")
	if !ok || got.SyncIntervalMs != 2000 {
		t.Fatalf("Find after replace = %+v, %v, want SyncIntervalMs=2000", got, ok)
	}
}

func TestRegistryFindMissing(t *testing.T) {
	Reset()
	defer Reset()
	if _, ok := Find("DoesNotExist"); ok {
		t.Error("Find should report false for unregistered table")
	}
}

func TestRegistryVersion(t *testing.T) {
	Reset()
	defer Reset()
	if v := Version(); v != "" {
		t.Errorf("Version() before install = %q, want empty", v)
	}
	InstallVersion("2026.1")
	if v := Version(); v != "2026.1" {
		t.Errorf("Version() = %q, want 2026.1", v)
	}
	InstallVersion("2026.2")
	if v := Version(); v != "2026.2" {
		t.Errorf("Version() after replace = %q, want 2026.2", v)
	}
}

func TestSectionForStatusByRole(t *testing.T) {
	cfg, state, status := sampleFields()
	m, _ := NewTableMeta("SensorData", cfg, state, status, TableOptions{})

	if _, ok := m.SectionFor(RoleOwner, SectionStatus); ok {
		t.Error("owner role should have no standalone status section")
	}
	sec, ok := m.SectionFor(RoleDevice, SectionStatus)
	if !ok || sec.Size == 0 {
		t.Errorf("device role should expose status section, got %+v, %v", sec, ok)
	}
}

func TestBufferSizeByRole(t *testing.T) {
	cfg, state, status := sampleFields()
	m, _ := NewTableMeta("SensorData", cfg, state, status, TableOptions{})
	if m.BufferSize(RoleDevice) != m.DeviceBufferSize {
		t.Error("BufferSize(RoleDevice) should equal DeviceBufferSize")
	}
	if m.BufferSize(RoleOwner) != m.OwnerBufferSize {
		t.Error("BufferSize(RoleOwner) should equal OwnerBufferSize")
	}
}
