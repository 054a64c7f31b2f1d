package shadow

import (
	"fmt"
	"math"

	"github.com/newtron-network/sds-runtime/pkg/schema"
)

// GetField reads the value at field (whose Offset is relative to base)
// out of b as a Go value matching field.Type.
func (b *Buffer) GetField(field schema.FieldDescriptor, base int) interface{} {
	off := base + field.Offset
	switch field.Type {
	case schema.FieldBool:
		return b.GetBool(off)
	case schema.FieldInt8:
		return b.GetInt8(off)
	case schema.FieldUint8:
		return b.GetUint8(off)
	case schema.FieldInt16:
		return b.GetInt16(off)
	case schema.FieldUint16:
		return b.GetUint16(off)
	case schema.FieldInt32:
		return b.GetInt32(off)
	case schema.FieldUint32:
		return b.GetUint32(off)
	case schema.FieldFloat32:
		return b.GetFloat32(off)
	case schema.FieldString:
		return b.GetString(off, field.StringCap)
	default:
		return nil
	}
}

// SetField writes v into the region described by field (relative to
// base) into b. v's concrete type must match field.Type's Go mapping.
func (b *Buffer) SetField(field schema.FieldDescriptor, base int, v interface{}) error {
	off := base + field.Offset
	switch field.Type {
	case schema.FieldBool:
		bv, ok := v.(bool)
		if !ok {
			return typeMismatch(field, v)
		}
		b.SetBool(off, bv)
	case schema.FieldInt8:
		iv, ok := v.(int8)
		if !ok {
			return typeMismatch(field, v)
		}
		b.SetInt8(off, iv)
	case schema.FieldUint8:
		uv, ok := v.(uint8)
		if !ok {
			return typeMismatch(field, v)
		}
		b.SetUint8(off, uv)
	case schema.FieldInt16:
		iv, ok := v.(int16)
		if !ok {
			return typeMismatch(field, v)
		}
		b.SetInt16(off, iv)
	case schema.FieldUint16:
		uv, ok := v.(uint16)
		if !ok {
			return typeMismatch(field, v)
		}
		b.SetUint16(off, uv)
	case schema.FieldInt32:
		iv, ok := v.(int32)
		if !ok {
			return typeMismatch(field, v)
		}
		b.SetInt32(off, iv)
	case schema.FieldUint32:
		uv, ok := v.(uint32)
		if !ok {
			return typeMismatch(field, v)
		}
		b.SetUint32(off, uv)
	case schema.FieldFloat32:
		fv, ok := v.(float32)
		if !ok {
			return typeMismatch(field, v)
		}
		b.SetFloat32(off, fv)
	case schema.FieldString:
		sv, ok := v.(string)
		if !ok {
			return typeMismatch(field, v)
		}
		b.SetString(off, field.StringCap, sv)
	default:
		return fmt.Errorf("shadow: field %q has unknown type %v", field.Name, field.Type)
	}
	return nil
}

func typeMismatch(field schema.FieldDescriptor, v interface{}) error {
	return fmt.Errorf("shadow: field %q expects %v, got %T", field.Name, field.Type, v)
}

// ApplyDefault writes field.Default (if set) at base into b, for table
// registration (§4.1 initial shadow state).
func (b *Buffer) ApplyDefault(field schema.FieldDescriptor, base int) error {
	if field.Default == nil {
		return nil
	}
	return b.SetField(field, base, field.Default)
}

// FieldChanged reports whether field differs between a (at baseA) and b
// (at baseB): bytewise for bool/int/uint/string, and
// |a-b| > floatTolerance for float32 (§4.7 step 2).
func FieldChanged(field schema.FieldDescriptor, a *Buffer, baseA int, b *Buffer, baseB int, floatTolerance float32) bool {
	va := a.GetField(field, baseA)
	vb := b.GetField(field, baseB)
	if field.Type == schema.FieldFloat32 {
		fa, fb := va.(float32), vb.(float32)
		return float32(math.Abs(float64(fa-fb))) > floatTolerance
	}
	return va != vb
}
