// Package codec implements the JSON codec (C2): a bounded incremental
// writer that emits flat {name: value} objects, and a reader that
// extracts typed fields by name, tolerant of unknown and missing keys
// (§4.2).
package codec

import (
	"encoding/json"
	"fmt"

	"github.com/newtron-network/sds-runtime/pkg/sdserr"
)

// VersionKey is the optional key carrying the sender's schema version
// (§4.2, §4.8 step 4).
const VersionKey = "__version"

// Writer incrementally builds a flat JSON object, rejecting further adds
// once the serialized object would exceed capacity bytes (0 = unbounded).
// Floats are kept as float64(float32(v)) internally so the JSON encoder's
// shortest round-trip representation recovers the exact 32-bit value.
type Writer struct {
	capacity int
	order    []string
	fields   map[string]interface{}
	version  string
}

// NewWriter returns a Writer bounded to capacity serialized bytes.
func NewWriter(capacity int) *Writer {
	return &Writer{capacity: capacity, fields: map[string]interface{}{}}
}

// SetVersion attaches a __version key to the object emitted by Bytes.
func (w *Writer) SetVersion(v string) {
	w.version = v
}

func (w *Writer) add(name string, value interface{}) error {
	prev, had := w.fields[name]
	w.fields[name] = value
	if !had {
		w.order = append(w.order, name)
	}
	if w.capacity > 0 {
		b, err := w.Bytes()
		if err != nil {
			return err
		}
		if len(b) > w.capacity {
			if had {
				w.fields[name] = prev
			} else {
				delete(w.fields, name)
				w.order = w.order[:len(w.order)-1]
			}
			return fmt.Errorf("codec: add %q: %w", name, sdserr.ErrBufferFull)
		}
	}
	return nil
}

func (w *Writer) AddBool(name string, v bool) error     { return w.add(name, v) }
func (w *Writer) AddInt8(name string, v int8) error     { return w.add(name, int64(v)) }
func (w *Writer) AddUint8(name string, v uint8) error   { return w.add(name, int64(v)) }
func (w *Writer) AddInt16(name string, v int16) error   { return w.add(name, int64(v)) }
func (w *Writer) AddUint16(name string, v uint16) error { return w.add(name, int64(v)) }
func (w *Writer) AddInt32(name string, v int32) error   { return w.add(name, int64(v)) }
func (w *Writer) AddUint32(name string, v uint32) error { return w.add(name, int64(v)) }
func (w *Writer) AddFloat32(name string, v float32) error {
	return w.add(name, float64(v))
}
func (w *Writer) AddString(name string, v string) error { return w.add(name, v) }

// Len reports the number of fields currently staged.
func (w *Writer) Len() int { return len(w.order) }

// Bytes serializes the staged fields (plus __version, if set) to JSON.
func (w *Writer) Bytes() ([]byte, error) {
	out := make(map[string]interface{}, len(w.fields)+1)
	for k, v := range w.fields {
		out[k] = v
	}
	if w.version != "" {
		out[VersionKey] = w.version
	}
	return json.Marshal(out)
}
