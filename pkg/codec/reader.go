package codec

import (
	"bytes"
	"encoding/json"
)

// Reader extracts typed fields by name from a decoded flat JSON object.
// Unknown keys are ignored; a missing key leaves the destination
// untouched and returns found=false (§4.2).
type Reader struct {
	data map[string]interface{}
}

// NewReader decodes raw as a flat JSON object. Numbers are kept as
// json.Number so integer fields can be extracted without float64
// round-off.
func NewReader(raw []byte) (*Reader, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	m := map[string]interface{}{}
	if len(raw) > 0 {
		if err := dec.Decode(&m); err != nil {
			return nil, err
		}
	}
	return &Reader{data: m}, nil
}

// Version returns the __version key, if present.
func (r *Reader) Version() (string, bool) {
	return r.GetStringField(VersionKey)
}

// Has reports whether name is present in the decoded object.
func (r *Reader) Has(name string) bool {
	_, ok := r.data[name]
	return ok
}

// Names returns the set of field names present (including __version).
func (r *Reader) Names() []string {
	names := make([]string, 0, len(r.data))
	for k := range r.data {
		names = append(names, k)
	}
	return names
}

func (r *Reader) number(name string) (json.Number, bool) {
	v, ok := r.data[name]
	if !ok {
		return "", false
	}
	n, ok := v.(json.Number)
	return n, ok
}

func (r *Reader) GetBoolField(name string) (bool, bool) {
	v, ok := r.data[name]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

func (r *Reader) GetInt8Field(name string) (int8, bool) {
	n, ok := r.number(name)
	if !ok {
		return 0, false
	}
	i, err := n.Int64()
	if err != nil {
		return 0, false
	}
	return int8(i), true
}

func (r *Reader) GetUint8Field(name string) (uint8, bool) {
	n, ok := r.number(name)
	if !ok {
		return 0, false
	}
	i, err := n.Int64()
	if err != nil {
		return 0, false
	}
	return uint8(i), true
}

func (r *Reader) GetInt16Field(name string) (int16, bool) {
	n, ok := r.number(name)
	if !ok {
		return 0, false
	}
	i, err := n.Int64()
	if err != nil {
		return 0, false
	}
	return int16(i), true
}

func (r *Reader) GetUint16Field(name string) (uint16, bool) {
	n, ok := r.number(name)
	if !ok {
		return 0, false
	}
	i, err := n.Int64()
	if err != nil {
		return 0, false
	}
	return uint16(i), true
}

func (r *Reader) GetInt32Field(name string) (int32, bool) {
	n, ok := r.number(name)
	if !ok {
		return 0, false
	}
	i, err := n.Int64()
	if err != nil {
		return 0, false
	}
	return int32(i), true
}

func (r *Reader) GetUint32Field(name string) (uint32, bool) {
	n, ok := r.number(name)
	if !ok {
		return 0, false
	}
	i, err := n.Int64()
	if err != nil {
		return 0, false
	}
	return uint32(i), true
}

func (r *Reader) GetFloat32Field(name string) (float32, bool) {
	n, ok := r.number(name)
	if !ok {
		return 0, false
	}
	f, err := n.Float64()
	if err != nil {
		return 0, false
	}
	return float32(f), true
}

func (r *Reader) GetStringField(name string) (string, bool) {
	v, ok := r.data[name]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
