package types

import (
	"encoding/json"
	"fmt"
)

// Patch is a partial update keyed by JSON field name, merged over a stored
// record by Update.
type Patch map[string]any

// Clone returns a shallow copy of p.
func (p Patch) Clone() Patch {
	out := make(Patch, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// MergePatch overlays p onto rec and returns the merged record. Unknown
// fields are dropped. A value that does not fit its field's type returns
// ErrInvalidPatch.
func MergePatch[T any](rec T, p Patch) (T, error) {
	var zero T
	raw, err := json.Marshal(rec)
	if err != nil {
		return zero, fmt.Errorf("%w: marshal record: %v", ErrSerialization, err)
	}
	fields := make(map[string]any)
	if err := json.Unmarshal(raw, &fields); err != nil {
		return zero, fmt.Errorf("%w: decode record: %v", ErrSerialization, err)
	}
	for k, v := range p {
		fields[k] = v
	}
	merged, err := json.Marshal(fields)
	if err != nil {
		return zero, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}
	var out T
	if err := json.Unmarshal(merged, &out); err != nil {
		return zero, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}
	return out, nil
}
