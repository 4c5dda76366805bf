package domain

import (
	"bytes"
	"encoding/json"
)

// DecodeMetadata parses stored flat metadata. Integral numbers come back
// as int64 and the rest as float64, matching what the index writes.
func DecodeMetadata(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	if m == nil {
		m = make(map[string]any)
	}
	for k, v := range m {
		num, ok := v.(json.Number)
		if !ok {
			continue
		}
		if i, err := num.Int64(); err == nil {
			m[k] = i
			continue
		}
		f, err := num.Float64()
		if err != nil {
			return nil, err
		}
		m[k] = f
	}
	return m, nil
}
