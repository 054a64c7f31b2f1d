// Package dispatch implements the codec dispatcher (C4): a single
// field-list interpreter that serializes a section's live bytes into a
// codec.Writer and deserializes a codec.Reader's fields back into a
// section's bytes, in place of per-table function pointers (§4.4, and
// the literal redesign Design Notes §9 calls for).
package dispatch

import (
	"fmt"

	"github.com/newtron-network/sds-runtime/pkg/codec"
	"github.com/newtron-network/sds-runtime/pkg/schema"
	"github.com/newtron-network/sds-runtime/pkg/shadow"
)

func writeField(w *codec.Writer, field schema.FieldDescriptor, value interface{}) error {
	switch field.Type {
	case schema.FieldBool:
		return w.AddBool(field.Name, value.(bool))
	case schema.FieldInt8:
		return w.AddInt8(field.Name, value.(int8))
	case schema.FieldUint8:
		return w.AddUint8(field.Name, value.(uint8))
	case schema.FieldInt16:
		return w.AddInt16(field.Name, value.(int16))
	case schema.FieldUint16:
		return w.AddUint16(field.Name, value.(uint16))
	case schema.FieldInt32:
		return w.AddInt32(field.Name, value.(int32))
	case schema.FieldUint32:
		return w.AddUint32(field.Name, value.(uint32))
	case schema.FieldFloat32:
		return w.AddFloat32(field.Name, value.(float32))
	case schema.FieldString:
		return w.AddString(field.Name, value.(string))
	default:
		return fmt.Errorf("dispatch: field %q has unknown type %v", field.Name, field.Type)
	}
}

func readField(r *codec.Reader, field schema.FieldDescriptor) (interface{}, bool) {
	switch field.Type {
	case schema.FieldBool:
		return r.GetBoolField(field.Name)
	case schema.FieldInt8:
		return r.GetInt8Field(field.Name)
	case schema.FieldUint8:
		return r.GetUint8Field(field.Name)
	case schema.FieldInt16:
		return r.GetInt16Field(field.Name)
	case schema.FieldUint16:
		return r.GetUint16Field(field.Name)
	case schema.FieldInt32:
		return r.GetInt32Field(field.Name)
	case schema.FieldUint32:
		return r.GetUint32Field(field.Name)
	case schema.FieldFloat32:
		return r.GetFloat32Field(field.Name)
	case schema.FieldString:
		return r.GetStringField(field.Name)
	default:
		return nil, false
	}
}

// SerializeFull writes every field in fields (read from buf at base) into
// w — the "delta-sync disabled" path of §4.7 step 2.
func SerializeFull(fields []schema.FieldDescriptor, buf *shadow.Buffer, base int, w *codec.Writer) error {
	for _, f := range fields {
		if err := writeField(w, f, buf.GetField(f, base)); err != nil {
			return err
		}
	}
	return nil
}

// SerializeDelta writes only the fields that differ between live (at
// base) and baseline (at baselineBase) beyond floatTolerance, into w. It
// reports whether any field changed (§4.7 step 2, §8 delta-suppression
// invariant).
func SerializeDelta(fields []schema.FieldDescriptor, live *shadow.Buffer, base int, baseline *shadow.Buffer, baselineBase int, floatTolerance float32, w *codec.Writer) (bool, error) {
	changed := false
	for _, f := range fields {
		if !shadow.FieldChanged(f, baseline, baselineBase, live, base, floatTolerance) {
			continue
		}
		changed = true
		if err := writeField(w, f, live.GetField(f, base)); err != nil {
			return changed, err
		}
	}
	return changed, nil
}

// Deserialize applies every field present in r onto buf at base,
// leaving fields absent from r untouched (§4.2: "receivers leave other
// fields untouched"). It returns the names actually applied.
func Deserialize(fields []schema.FieldDescriptor, r *codec.Reader, buf *shadow.Buffer, base int) ([]string, error) {
	var applied []string
	for _, f := range fields {
		v, ok := readField(r, f)
		if !ok {
			continue
		}
		if err := buf.SetField(f, base, v); err != nil {
			return applied, err
		}
		applied = append(applied, f.Name)
	}
	return applied, nil
}
