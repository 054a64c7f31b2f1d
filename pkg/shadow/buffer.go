// Package shadow implements the shadow buffer store (C3): one contiguous
// byte buffer per registered table/role, plus the parallel baseline
// buffer used for delta-sync comparison (§4.3). Field access is plain
// offset arithmetic against the schema-computed layout in pkg/schema;
// multi-byte primitives are stored little-endian — the wire format is
// JSON text, so only local-storage consistency matters (§4.3).
package shadow

import (
	"encoding/binary"
	"math"
)

// Buffer is a raw byte-addressable section/slot store sized by
// schema.TableMeta.BufferSize(role).
type Buffer struct {
	data []byte
}

// NewBuffer allocates a zeroed buffer of size bytes.
func NewBuffer(size int) *Buffer {
	return &Buffer{data: make([]byte, size)}
}

// Bytes exposes the underlying storage. Callers must not retain it past
// the buffer's lifetime without copying.
func (b *Buffer) Bytes() []byte { return b.data }

// Len returns the buffer's total size in bytes.
func (b *Buffer) Len() int { return len(b.data) }

// Slice returns the byte range [offset, offset+size) as a fresh copy.
func (b *Buffer) Slice(offset, size int) []byte {
	out := make([]byte, size)
	copy(out, b.data[offset:offset+size])
	return out
}

// CopyFrom overwrites b's contents with src's.
func (b *Buffer) CopyFrom(src *Buffer) {
	copy(b.data, src.data)
}

// CopyRange copies size bytes from src at srcOffset into b at dstOffset.
// Used by the sync engine to snapshot a section into the baseline after a
// successful publish (§4.7 step 4).
func (b *Buffer) CopyRange(dstOffset int, src *Buffer, srcOffset, size int) {
	copy(b.data[dstOffset:dstOffset+size], src.data[srcOffset:srcOffset+size])
}

// Clear zeroes size bytes starting at offset. Used when a device slot is
// vacated on eviction (§4.9).
func (b *Buffer) Clear(offset, size int) {
	for i := offset; i < offset+size; i++ {
		b.data[i] = 0
	}
}

func (b *Buffer) GetBool(offset int) bool { return b.data[offset] != 0 }

func (b *Buffer) SetBool(offset int, v bool) {
	if v {
		b.data[offset] = 1
	} else {
		b.data[offset] = 0
	}
}

func (b *Buffer) GetInt8(offset int) int8 { return int8(b.data[offset]) }

func (b *Buffer) SetInt8(offset int, v int8) { b.data[offset] = byte(v) }

func (b *Buffer) GetUint8(offset int) uint8 { return b.data[offset] }

func (b *Buffer) SetUint8(offset int, v uint8) { b.data[offset] = v }

func (b *Buffer) GetInt16(offset int) int16 {
	return int16(binary.LittleEndian.Uint16(b.data[offset:]))
}

func (b *Buffer) SetInt16(offset int, v int16) {
	binary.LittleEndian.PutUint16(b.data[offset:], uint16(v))
}

func (b *Buffer) GetUint16(offset int) uint16 {
	return binary.LittleEndian.Uint16(b.data[offset:])
}

func (b *Buffer) SetUint16(offset int, v uint16) {
	binary.LittleEndian.PutUint16(b.data[offset:], v)
}

func (b *Buffer) GetInt32(offset int) int32 {
	return int32(binary.LittleEndian.Uint32(b.data[offset:]))
}

func (b *Buffer) SetInt32(offset int, v int32) {
	binary.LittleEndian.PutUint32(b.data[offset:], uint32(v))
}

func (b *Buffer) GetUint32(offset int) uint32 {
	return binary.LittleEndian.Uint32(b.data[offset:])
}

func (b *Buffer) SetUint32(offset int, v uint32) {
	binary.LittleEndian.PutUint32(b.data[offset:], v)
}

func (b *Buffer) GetInt64(offset int) int64 {
	return int64(binary.LittleEndian.Uint64(b.data[offset:]))
}

func (b *Buffer) SetInt64(offset int, v int64) {
	binary.LittleEndian.PutUint64(b.data[offset:], uint64(v))
}

func (b *Buffer) GetFloat32(offset int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b.data[offset:]))
}

func (b *Buffer) SetFloat32(offset int, v float32) {
	binary.LittleEndian.PutUint32(b.data[offset:], math.Float32bits(v))
}

// GetString reads a null-terminated string of at most cap bytes, stopping
// at the first zero byte or at capacity (§8 boundary behaviors).
func (b *Buffer) GetString(offset, cap int) string {
	region := b.data[offset : offset+cap]
	for i, c := range region {
		if c == 0 {
			return string(region[:i])
		}
	}
	return string(region)
}

// SetString writes v into a cap-byte region, truncating on write and
// zero-padding the remainder so a later GetString stops correctly (§8).
func (b *Buffer) SetString(offset, cap int, v string) {
	region := b.data[offset : offset+cap]
	n := copy(region, v)
	for i := n; i < cap; i++ {
		region[i] = 0
	}
}
