package shadow

import (
	"testing"

	"github.com/newtron-network/sds-runtime/pkg/schema"
)

func TestBufferPrimitiveRoundTrip(t *testing.T) {
	b := NewBuffer(32)

	b.SetBool(0, true)
	if !b.GetBool(0) {
		t.Error("bool round trip failed")
	}
	b.SetInt8(1, -12)
	if b.GetInt8(1) != -12 {
		t.Error("int8 round trip failed")
	}
	b.SetUint8(2, 250)
	if b.GetUint8(2) != 250 {
		t.Error("uint8 round trip failed")
	}
	b.SetInt16(4, -1000)
	if b.GetInt16(4) != -1000 {
		t.Error("int16 round trip failed")
	}
	b.SetUint16(6, 60000)
	if b.GetUint16(6) != 60000 {
		t.Error("uint16 round trip failed")
	}
	b.SetInt32(8, -70000)
	if b.GetInt32(8) != -70000 {
		t.Error("int32 round trip failed")
	}
	b.SetUint32(12, 4000000000)
	if b.GetUint32(12) != 4000000000 {
		t.Error("uint32 round trip failed")
	}
	b.SetFloat32(16, 23.5)
	if b.GetFloat32(16) != 23.5 {
		t.Error("float32 round trip failed")
	}
}

func TestStringTruncateAndStop(t *testing.T) {
	b := NewBuffer(16)
	b.SetString(0, 8, "hello world") // truncates to "hello wo"
	if got := b.GetString(0, 8); got != "hello wo" {
		t.Errorf("GetString = %q, want truncated %q", got, "hello wo")
	}

	b.SetString(0, 8, "hi")
	if got := b.GetString(0, 8); got != "hi" {
		t.Errorf("GetString = %q, want %q (stop at zero byte)", got, "hi")
	}
}

func TestCopyFromSnapshotsBaseline(t *testing.T) {
	live := NewBuffer(8)
	baseline := NewBuffer(8)
	live.SetFloat32(0, 42.0)

	if baseline.GetFloat32(0) == 42.0 {
		t.Fatal("precondition: baseline should differ before copy")
	}
	baseline.CopyFrom(live)
	if baseline.GetFloat32(0) != 42.0 {
		t.Error("baseline should equal live bytes after CopyFrom")
	}
}

func TestClear(t *testing.T) {
	b := NewBuffer(8)
	b.SetUint32(0, 123456)
	b.Clear(0, 4)
	if b.GetUint32(0) != 0 {
		t.Error("Clear should zero the region")
	}
}

func testStatusFields() []schema.FieldDescriptor {
	return []schema.FieldDescriptor{
		{Name: "battery", Type: schema.FieldUint8},
		{Name: "firmware", Type: schema.FieldString, StringCap: 8},
	}
}

func TestFieldGetSet(t *testing.T) {
	status, err := schema.NewTableMeta("T", nil, nil, testStatusFields(), schema.TableOptions{})
	if err != nil {
		t.Fatalf("NewTableMeta: %v", err)
	}
	b := NewBuffer(status.DeviceBufferSize)

	battery := status.Status.Fields[0]
	firmware := status.Status.Fields[1]

	if err := b.SetField(battery, 0, uint8(88)); err != nil {
		t.Fatalf("SetField battery: %v", err)
	}
	if err := b.SetField(firmware, 0, "1.2.0"); err != nil {
		t.Fatalf("SetField firmware: %v", err)
	}

	if got := b.GetField(battery, 0); got != uint8(88) {
		t.Errorf("GetField battery = %v, want 88", got)
	}
	if got := b.GetField(firmware, 0); got != "1.2.0" {
		t.Errorf("GetField firmware = %v, want 1.2.0", got)
	}
}

func TestFieldSetTypeMismatch(t *testing.T) {
	status, _ := schema.NewTableMeta("T", nil, nil, testStatusFields(), schema.TableOptions{})
	b := NewBuffer(status.DeviceBufferSize)
	battery := status.Status.Fields[0]

	if err := b.SetField(battery, 0, "not a uint8"); err == nil {
		t.Error("expected type mismatch error")
	}
}

func TestFieldChangedFloatTolerance(t *testing.T) {
	field := schema.FieldDescriptor{Name: "temperature", Type: schema.FieldFloat32}
	a := NewBuffer(4)
	b := NewBuffer(4)
	a.SetFloat32(0, 23.5)
	b.SetFloat32(0, 23.5003)

	if FieldChanged(field, a, 0, b, 0, 0.001) {
		t.Error("difference within tolerance should not count as changed")
	}

	b.SetFloat32(0, 23.51)
	if !FieldChanged(field, a, 0, b, 0, 0.001) {
		t.Error("difference beyond tolerance should count as changed")
	}
}

func TestFieldChangedBytewiseForNonFloat(t *testing.T) {
	field := schema.FieldDescriptor{Name: "battery", Type: schema.FieldUint8}
	a := NewBuffer(1)
	b := NewBuffer(1)
	a.SetUint8(0, 10)
	b.SetUint8(0, 10)
	if FieldChanged(field, a, 0, b, 0, 0) {
		t.Error("equal bytes should not be changed")
	}
	b.SetUint8(0, 11)
	if !FieldChanged(field, a, 0, b, 0, 0) {
		t.Error("differing bytes should be changed")
	}
}

func TestApplyDefault(t *testing.T) {
	field := schema.FieldDescriptor{Name: "threshold", Type: schema.FieldFloat32, Default: float32(25.0)}
	b := NewBuffer(4)
	if err := b.ApplyDefault(field, 0); err != nil {
		t.Fatalf("ApplyDefault: %v", err)
	}
	if b.GetFloat32(0) != 25.0 {
		t.Error("ApplyDefault should write the default value")
	}

	noDefault := schema.FieldDescriptor{Name: "other", Type: schema.FieldFloat32}
	b2 := NewBuffer(4)
	if err := b2.ApplyDefault(noDefault, 0); err != nil {
		t.Fatalf("ApplyDefault (nil default): %v", err)
	}
	if b2.GetFloat32(0) != 0 {
		t.Error("ApplyDefault with nil Default should be a no-op")
	}
}
