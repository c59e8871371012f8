package types

import (
	"fmt"
	"time"
)

// Family describes one entity family: where its records live locally and
// remotely, how they are keyed, and how a draft becomes a record. Every
// store in coinwatch is generic over a Family, so adding a third family is a
// matter of declaring another descriptor.
//
// T is the stored record, D the draft carrying the fields a caller supplies
// on create.
type Family[T, D any] struct {
	// Name identifies the family in logs and is the root of its cache keys.
	Name string
	// StorageKey is the local storage key holding the JSON array of records.
	StorageKey string
	// Endpoint is the API path of the remote collection.
	Endpoint string
	// RemoveParam is the query parameter carrying the remove key.
	RemoveParam string
	// Immutable lists JSON fields a Patch may not touch, besides "id".
	Immutable []string

	ID        func(T) string
	RemoveKey func(T) string
	// DedupKey returns the uniqueness key of a record. Nil means records
	// are unique only by id.
	DedupKey func(T) string
	DraftKey func(D) string

	NormalizeDraft func(D) (D, error)
	NormalizeKey   func(string) string
	NormalizePatch func(Patch) (Patch, error)

	// NewRecord builds a record from a normalized draft.
	NewRecord func(d D, id string, now time.Time) T
	// DraftOf strips a record back to its create fields.
	DraftOf func(T) D
	// Touch stamps a record after an update. Nil for families without an
	// update timestamp.
	Touch func(T, time.Time) T
}

// Deduplicated reports whether the family enforces a uniqueness key.
func (f Family[T, D]) Deduplicated() bool {
	return f.DedupKey != nil
}

// Key canonicalizes a remove or dedup key.
func (f Family[T, D]) Key(key string) string {
	if f.NormalizeKey == nil {
		return key
	}
	return f.NormalizeKey(key)
}

// Draft validates and canonicalizes d.
func (f Family[T, D]) Draft(d D) (D, error) {
	if f.NormalizeDraft == nil {
		return d, nil
	}
	return f.NormalizeDraft(d)
}

// Patch rejects immutable fields and canonicalizes the rest. The returned
// patch is a copy; p is not modified.
func (f Family[T, D]) Patch(p Patch) (Patch, error) {
	if len(p) == 0 {
		return nil, fmt.Errorf("%w: empty patch", ErrInvalidPatch)
	}
	if _, ok := p["id"]; ok {
		return nil, fmt.Errorf("%w: id", ErrInvalidPatch)
	}
	for _, field := range f.Immutable {
		if _, ok := p[field]; ok {
			return nil, fmt.Errorf("%w: %s", ErrInvalidPatch, field)
		}
	}
	out := p.Clone()
	if f.NormalizePatch == nil {
		return out, nil
	}
	return f.NormalizePatch(out)
}
