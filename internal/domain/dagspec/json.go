package dagspec

import "encoding/json"

// MarshalJSON implements json.Marshaler. Priority's only field is
// unexported (so that CustomPriority and the named presets share one
// comparable int space without exposing construction by raw int elsewhere),
// which would otherwise serialize as "{}" and fail to round-trip through a
// suspension snapshot (spec.md §4.10).
func (p Priority) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.value)
}

// UnmarshalJSON implements json.Unmarshaler, the inverse of MarshalJSON.
func (p *Priority) UnmarshalJSON(data []byte) error {
	var v int
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	p.value = v
	return nil
}
