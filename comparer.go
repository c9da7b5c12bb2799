package typemap

import (
	"fmt"
	"hash"
	"hash/fnv"
	"math"
	"reflect"
	"sort"
	"time"
)

// selectArrayComparer picks the comparer strategy for sequences of E, once,
// at mapping construction time. Strict precedence:
//
//  1. rank other than 1 -> no comparer at all (multi-dimensional arrays are
//     unsupported for change tracking)
//  2. the element mapping carries its own comparer -> delegate per element
//  3. E satisfies Equal(E) bool -> use the typed equality contract
//  4. otherwise -> fall back to deep structural equality
//
// The capability checks run exactly once; the returned strategy performs no
// type inspection on the comparison path.
func selectArrayComparer[E any](elem ElementMapping, seqType reflect.Type) ValueComparer {
	if sequenceRank(seqType, reflect.TypeOf((*E)(nil)).Elem()) != 1 {
		return nil
	}
	if ec := elem.Comparer(); ec != nil {
		return &delegatingArrayComparer[E]{elem: ec}
	}
	var zero E
	if _, ok := any(zero).(interface{ Equal(E) bool }); ok {
		return &equatableArrayComparer[E]{
			eq: func(a, b E) bool {
				return any(a).(interface{ Equal(E) bool }).Equal(b)
			},
		}
	}
	return &fallbackArrayComparer[E]{}
}

// ============================================================================
// Delegating strategy: the element mapping supplies its own comparer and
// owns element-level nil handling.
// ============================================================================

type delegatingArrayComparer[E any] struct {
	elem ValueComparer
}

func (c *delegatingArrayComparer[E]) Equals(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	as := a.([]E)
	bs := b.([]E)
	if len(as) != len(bs) {
		return false
	}
	for i := range as {
		if !c.elem.Equals(as[i], bs[i]) {
			return false
		}
	}
	return true
}

func (c *delegatingArrayComparer[E]) Hash(v any) uint64 {
	if v == nil {
		return 0
	}
	h := uint64(hashOffset64)
	for _, e := range v.([]E) {
		h = (h ^ c.elem.Hash(e)) * hashPrime64
	}
	return h
}

func (c *delegatingArrayComparer[E]) Snapshot(v any) any {
	if v == nil {
		return nil
	}
	s := v.([]E)
	if s == nil {
		return s
	}
	out := make([]E, len(s))
	for i := range s {
		if snap := c.elem.Snapshot(s[i]); snap != nil {
			out[i] = snap.(E)
		}
	}
	return out
}

// ============================================================================
// Self-equatable strategy: E carries a typed Equal(E) bool contract. The
// contract is bound into eq once at selection, so the comparison path never
// re-inspects the element type.
// ============================================================================

type equatableArrayComparer[E any] struct {
	eq func(a, b E) bool
}

func (c *equatableArrayComparer[E]) Equals(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	as := a.([]E)
	bs := b.([]E)
	if len(as) != len(bs) {
		return false
	}
	for i := range as {
		an, bn := isNilElement(as[i]), isNilElement(bs[i])
		if an || bn {
			if an != bn {
				return false
			}
			continue
		}
		if !c.eq(as[i], bs[i]) {
			return false
		}
	}
	return true
}

func (c *equatableArrayComparer[E]) Hash(v any) uint64 {
	return foldElementHashes[E](v)
}

func (c *equatableArrayComparer[E]) Snapshot(v any) any {
	return shallowSnapshot[E](v)
}

// ============================================================================
// Fallback strategy: no custom comparer, no typed equality contract. Deep
// structural equality is the universal equality here; it already treats a
// nil pair as equal and a nil/non-nil pair as unequal.
// ============================================================================

type fallbackArrayComparer[E any] struct{}

func (c *fallbackArrayComparer[E]) Equals(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	as := a.([]E)
	bs := b.([]E)
	if len(as) != len(bs) {
		return false
	}
	for i := range as {
		if !reflect.DeepEqual(as[i], bs[i]) {
			return false
		}
	}
	return true
}

func (c *fallbackArrayComparer[E]) Hash(v any) uint64 {
	return foldElementHashes[E](v)
}

func (c *fallbackArrayComparer[E]) Snapshot(v any) any {
	return shallowSnapshot[E](v)
}

// ============================================================================
// Shared helpers
// ============================================================================

// FNV-1a parameters, used to fold per-element hashes in index order so equal
// sequences hash identically.
const (
	hashOffset64 uint64 = 14695981039346656037
	hashPrime64  uint64 = 1099511628211
)

func foldElementHashes[E any](v any) uint64 {
	if v == nil {
		return 0
	}
	h := hashOffset64
	for _, e := range v.([]E) {
		h = (h ^ elementHash(e)) * hashPrime64
	}
	return h
}

// elementHash hashes a single element consistently with its natural equality.
func elementHash(v any) uint64 {
	if isNilElement(v) {
		return hashOffset64
	}
	// time.Time's Equal ignores the monotonic reading and the location;
	// hash the wall clock instead of the struct fields.
	if t, ok := v.(time.Time); ok {
		return uint64(t.UnixNano())
	}
	h := fnv.New64a()
	writeValueHash(h, reflect.ValueOf(v), nil)
	return h.Sum64()
}

// writeValueHash folds v into h structurally: pointers and interfaces are
// dereferenced, struct fields and sequence elements are visited in order, and
// map entries are folded order-independently, so deeply equal values always
// produce the same bytes regardless of pointer identity. seen holds the
// pointers on the current descent path, breaking cycles; entries are removed
// on the way back out so aliased (but acyclic) pointers still hash by
// content.
func writeValueHash(h hash.Hash64, rv reflect.Value, seen map[uintptr]bool) {
	if !rv.IsValid() {
		h.Write([]byte{'z'})
		return
	}

	switch rv.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Map:
		if rv.IsNil() {
			h.Write([]byte{'n'})
			return
		}
		ptr := rv.Pointer()
		if seen[ptr] {
			h.Write([]byte{'c'})
			return
		}
		if seen == nil {
			seen = make(map[uintptr]bool)
		}
		seen[ptr] = true
		defer delete(seen, ptr)
	}

	switch rv.Kind() {
	case reflect.Pointer:
		writeValueHash(h, rv.Elem(), seen)
	case reflect.Interface:
		if rv.IsNil() {
			h.Write([]byte{'n'})
			return
		}
		writeValueHash(h, rv.Elem(), seen)
	case reflect.Bool:
		if rv.Bool() {
			h.Write([]byte{'t'})
		} else {
			h.Write([]byte{'f'})
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		fmt.Fprintf(h, "i%d", rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		fmt.Fprintf(h, "u%d", rv.Uint())
	case reflect.Float32, reflect.Float64:
		fmt.Fprintf(h, "g%d", math.Float64bits(rv.Float()))
	case reflect.Complex64, reflect.Complex128:
		c := rv.Complex()
		fmt.Fprintf(h, "x%d,%d", math.Float64bits(real(c)), math.Float64bits(imag(c)))
	case reflect.String:
		fmt.Fprintf(h, "s%d:%s", rv.Len(), rv.String())
	case reflect.Slice, reflect.Array:
		fmt.Fprintf(h, "l%d:", rv.Len())
		for i := 0; i < rv.Len(); i++ {
			writeValueHash(h, rv.Index(i), seen)
		}
	case reflect.Map:
		entries := make([]uint64, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			eh := fnv.New64a()
			writeValueHash(eh, iter.Key(), seen)
			writeValueHash(eh, iter.Value(), seen)
			entries = append(entries, eh.Sum64())
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i] < entries[j] })
		fmt.Fprintf(h, "m%d:", rv.Len())
		for _, e := range entries {
			fmt.Fprintf(h, "%d,", e)
		}
	case reflect.Struct:
		fmt.Fprintf(h, "r%d:", rv.NumField())
		for i := 0; i < rv.NumField(); i++ {
			writeValueHash(h, rv.Field(i), seen)
		}
	default:
		// Chan, Func, UnsafePointer: identity types. A constant keeps equal
		// values from ever hashing apart.
		h.Write([]byte{'o'})
	}
}

func isNilElement(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func:
		return rv.IsNil()
	}
	return false
}

// shallowSnapshot copies the sequence itself; elements are treated as atomic
// at this layer.
func shallowSnapshot[E any](v any) any {
	if v == nil {
		return nil
	}
	s := v.([]E)
	if s == nil {
		return s
	}
	out := make([]E, len(s))
	copy(out, s)
	return out
}
