package typemap

import (
	"fmt"
	"reflect"
	"strings"
)

// ArrayTypeMapping maps a database single-dimensional array column type to a
// Go sequence type. It owns its element mapping, derives the array store type
// from it, renders array-constructor literals through it, and binds one
// comparer strategy at construction which is never re-evaluated (see
// selectArrayComparer).
//
// Values are immutable after construction and safe for concurrent use.
type ArrayTypeMapping struct {
	storeType string
	elem      ElementMapping
	seqType   reflect.Type
	rank      int
	params    MappingParameters
	comparer  ValueComparer
}

// NewArrayTypeMapping builds the mapping for seqType, a sequence of E,
// backed by elem. The store type is derived as elem.StoreType()+"[]" unless
// storeTypeOverride is non-empty.
//
// The element type E must match elem.GoType(), and seqType must reduce to E
// by slice/array nesting; anything else fails with an UNSUPPORTED_SHAPE
// error. A rank above 1 is not a failure: the mapping is built without a
// comparer, and equality, hashing and snapshots are unavailable on it.
func NewArrayTypeMapping[E any](elem ElementMapping, seqType reflect.Type, storeTypeOverride string) (*ArrayTypeMapping, error) {
	if elem == nil {
		return nil, NewUnsupportedShapeError("element mapping is required")
	}
	elemType := reflect.TypeOf((*E)(nil)).Elem()
	if elem.GoType() != elemType {
		return nil, NewUnsupportedShapeError(
			fmt.Sprintf("element mapping is for %s, not %s", elem.GoType(), elemType)).
			WithStoreType(elem.StoreType())
	}
	rank := sequenceRank(seqType, elemType)
	if rank < 1 {
		return nil, NewUnsupportedShapeError(
			fmt.Sprintf("%s is not a sequence of %s", seqType, elemType)).
			WithStoreType(elem.StoreType())
	}

	storeType := storeTypeOverride
	if storeType == "" {
		storeType = elem.StoreType() + "[]"
	} else {
		// exactly one "[]" suffix, whatever the override carried
		for strings.HasSuffix(storeType, "[]") {
			storeType = strings.TrimSuffix(storeType, "[]")
		}
		storeType += "[]"
	}

	return &ArrayTypeMapping{
		storeType: storeType,
		elem:      elem,
		seqType:   seqType,
		rank:      rank,
		comparer:  selectArrayComparer[E](elem, seqType),
	}, nil
}

// NewSliceMapping builds the mapping for []E backed by elem.
func NewSliceMapping[E any](elem ElementMapping) (*ArrayTypeMapping, error) {
	return NewArrayTypeMapping[E](elem, reflect.TypeOf((*[]E)(nil)).Elem(), "")
}

// StoreType returns the database type name, always with a single "[]" suffix.
func (m *ArrayTypeMapping) StoreType() string {
	return m.storeType
}

// ElementMapping returns the mapping for one array cell.
func (m *ArrayTypeMapping) ElementMapping() ElementMapping {
	return m.elem
}

// GoType returns the Go sequence type this mapping represents.
func (m *ArrayTypeMapping) GoType() reflect.Type {
	return m.seqType
}

// Parameters returns the column facets bound to this mapping.
func (m *ArrayTypeMapping) Parameters() MappingParameters {
	return m.params
}

// Comparer returns the comparer strategy bound at construction, or nil when
// the sequence rank is not 1. Callers must handle the nil explicitly rather
// than compare multi-dimensional values incorrectly.
func (m *ArrayTypeMapping) Comparer() ValueComparer {
	return m.comparer
}

// WithParameters clones the mapping with different column facets. The clone
// shares the element mapping and the already-bound comparer instance: the
// comparer is a function of the element type, not of facets.
func (m *ArrayTypeMapping) WithParameters(params MappingParameters) *ArrayTypeMapping {
	clone := *m
	clone.params = params
	return &clone
}

// RenderLiteral renders value as a Postgres array-constructor literal of the
// form ARRAY[e0,e1,...]::elem[], delegating each element to the element
// mapping's renderer. An empty sequence renders as ARRAY[]::elem[].
func (m *ArrayTypeMapping) RenderLiteral(value any) (string, error) {
	if m.rank != 1 {
		return "", NewUnsupportedRankError().WithStoreType(m.storeType)
	}
	if value == nil {
		return "", NewTypeMismatchError(m.storeType, m.seqType, value)
	}
	rv := reflect.ValueOf(value)
	if rv.Type() != m.seqType {
		return "", NewTypeMismatchError(m.storeType, m.seqType, value)
	}

	var sb strings.Builder
	sb.WriteString("ARRAY[")
	for i := 0; i < rv.Len(); i++ {
		if i > 0 {
			sb.WriteByte(',')
		}
		lit, err := m.elem.RenderLiteral(rv.Index(i).Interface())
		if err != nil {
			return "", err
		}
		sb.WriteString(lit)
	}
	sb.WriteString("]::")
	sb.WriteString(m.elem.StoreType())
	sb.WriteString("[]")
	return sb.String(), nil
}
