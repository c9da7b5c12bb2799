package typemap

import (
	"reflect"
)

// ValueComparer is the equals/hash/snapshot triple a change-tracking engine
// uses to decide whether a tracked value has been mutated since it was last
// snapshotted. Implementations are immutable and safe for concurrent use.
type ValueComparer interface {
	// Equals reports whether a and b are structurally equal.
	Equals(a, b any) bool
	// Hash returns a hash consistent with Equals: equal values hash identically.
	Hash(v any) uint64
	// Snapshot returns an independent copy of v. Mutating v afterwards must
	// never affect the returned copy. A nil input yields a nil output.
	Snapshot(v any) any
}

// ElementMapping describes the scalar type of one array cell: the store type
// name the database knows it by, a SQL literal renderer, and an optional
// custom comparer.
type ElementMapping interface {
	// StoreType returns the database type name, e.g. "integer" or "text".
	StoreType() string
	// GoType returns the Go type this mapping represents.
	GoType() reflect.Type
	// RenderLiteral renders value as a SQL literal for this store type.
	RenderLiteral(value any) (string, error)
	// Comparer returns the element's custom value comparer, or nil when the
	// element relies on its natural equality.
	Comparer() ValueComparer
}

// MappingParameters carries the column facets a type mapping can vary by
// without changing its element type or comparer.
type MappingParameters struct {
	Nullable  bool `json:"nullable"`
	Size      int  `json:"size,omitempty"`
	Precision int  `json:"precision,omitempty"`
	Scale     int  `json:"scale,omitempty"`
}

// sequenceRank reports how many slice/array levels sit between seqType and
// elemType: 1 for []E, 2 for [][]E, 0 when the types coincide, and -1 when
// seqType does not reduce to elemType at all.
func sequenceRank(seqType, elemType reflect.Type) int {
	if seqType == nil || elemType == nil {
		return -1
	}
	rank := 0
	t := seqType
	for t != elemType {
		if t.Kind() != reflect.Slice && t.Kind() != reflect.Array {
			return -1
		}
		rank++
		t = t.Elem()
	}
	return rank
}
