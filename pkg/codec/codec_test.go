package codec

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/newtron-network/sds-runtime/pkg/sdserr"
)

func TestWriterRoundTrip(t *testing.T) {
	w := NewWriter(0)
	if err := w.AddFloat32("threshold", 25.0); err != nil {
		t.Fatalf("AddFloat32: %v", err)
	}
	if err := w.AddUint8("battery", 93); err != nil {
		t.Fatalf("AddUint8: %v", err)
	}
	if err := w.AddString("firmware", "1.0.3"); err != nil {
		t.Fatalf("AddString: %v", err)
	}
	if err := w.AddBool("armed", true); err != nil {
		t.Fatalf("AddBool: %v", err)
	}

	b, err := w.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}

	r, err := NewReader(b)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if v, ok := r.GetFloat32Field("threshold"); !ok || v != 25.0 {
		t.Errorf("threshold = %v, %v, want 25.0, true", v, ok)
	}
	if v, ok := r.GetUint8Field("battery"); !ok || v != 93 {
		t.Errorf("battery = %v, %v, want 93, true", v, ok)
	}
	if v, ok := r.GetStringField("firmware"); !ok || v != "1.0.3" {
		t.Errorf("firmware = %v, %v, want 1.0.3, true", v, ok)
	}
	if v, ok := r.GetBoolField("armed"); !ok || !v {
		t.Errorf("armed = %v, %v, want true, true", v, ok)
	}
}

func TestFloat32RoundTripsExactly(t *testing.T) {
	vals := []float32{23.5003, 23.51, 0.1, -17.25, 1e30}
	for _, v := range vals {
		w := NewWriter(0)
		if err := w.AddFloat32("x", v); err != nil {
			t.Fatalf("AddFloat32(%v): %v", v, err)
		}
		b, _ := w.Bytes()
		r, err := NewReader(b)
		if err != nil {
			t.Fatalf("NewReader: %v", err)
		}
		got, ok := r.GetFloat32Field("x")
		if !ok || got != v {
			t.Errorf("round trip %v -> %v (ok=%v)", v, got, ok)
		}
	}
}

func TestReaderToleratesUnknownAndMissingKeys(t *testing.T) {
	r, err := NewReader([]byte(`{"unexpected_field": 42, "threshold": 25.0}`))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if _, ok := r.GetFloat32Field("threshold"); !ok {
		t.Error("expected threshold to be found")
	}
	if _, ok := r.GetFloat32Field("missing_field"); ok {
		t.Error("missing field should report found=false")
	}
}

func TestReaderVersionKey(t *testing.T) {
	w := NewWriter(0)
	w.SetVersion("1.3.0")
	_ = w.AddFloat32("threshold", 30.0)
	b, _ := w.Bytes()

	r, err := NewReader(b)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	v, ok := r.Version()
	if !ok || v != "1.3.0" {
		t.Errorf("Version() = %v, %v, want 1.3.0, true", v, ok)
	}
}

func TestWriterBufferFull(t *testing.T) {
	w := NewWriter(20)
	if err := w.AddString("firmware", "short"); err != nil {
		t.Fatalf("first add should fit: %v", err)
	}
	err := w.AddString("padding", "this value is far too long to fit")
	if err == nil {
		t.Fatal("expected BufferFull error")
	}
	if !errors.Is(err, sdserr.ErrBufferFull) {
		t.Errorf("expected ErrBufferFull, got %v", err)
	}
	// rejected add must not have mutated state.
	b, _ := w.Bytes()
	var m map[string]interface{}
	_ = json.Unmarshal(b, &m)
	if _, ok := m["padding"]; ok {
		t.Error("rejected field should not appear in output")
	}
}

func TestEmptyPayloadIsValidReader(t *testing.T) {
	r, err := NewReader(nil)
	if err != nil {
		t.Fatalf("NewReader(nil): %v", err)
	}
	if _, ok := r.GetBoolField("anything"); ok {
		t.Error("empty reader should find nothing")
	}
}
