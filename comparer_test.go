package typemap

import (
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// widget is a plain reference type: no Equal contract, no custom comparer.
type widget struct {
	Name string
}

func newWidgetMapping() ElementMapping {
	return &scalarMapping[*widget]{
		storeType: "widget",
		render: func(w *widget) (string, error) {
			return "'" + w.Name + "'", nil
		},
	}
}

// version carries a typed Equal contract on its pointer receiver.
type version struct {
	N int
}

func (v *version) Equal(o *version) bool {
	return o != nil && v.N == o.N
}

func newVersionMapping() ElementMapping {
	return &scalarMapping[*version]{
		storeType: "version",
		render: func(v *version) (string, error) {
			return "'v'", nil
		},
	}
}

// =============================================================================
// Strategy selection
// =============================================================================

func TestSelectArrayComparer_Precedence(t *testing.T) {
	tests := []struct {
		name     string
		comparer ValueComparer
		want     any
	}{
		{
			name:     "element comparer wins",
			comparer: selectArrayComparer[decimal.Decimal](NewNumericMapping(), reflect.TypeOf((*[]decimal.Decimal)(nil)).Elem()),
			want:     &delegatingArrayComparer[decimal.Decimal]{},
		},
		{
			name:     "typed equality contract",
			comparer: selectArrayComparer[time.Time](NewTimestampMapping(), reflect.TypeOf((*[]time.Time)(nil)).Elem()),
			want:     &equatableArrayComparer[time.Time]{},
		},
		{
			name:     "pointer receiver equality contract",
			comparer: selectArrayComparer[*version](newVersionMapping(), reflect.TypeOf((*[]*version)(nil)).Elem()),
			want:     &equatableArrayComparer[*version]{},
		},
		{
			name:     "neither capability",
			comparer: selectArrayComparer[*widget](newWidgetMapping(), reflect.TypeOf((*[]*widget)(nil)).Elem()),
			want:     &fallbackArrayComparer[*widget]{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NotNil(t, tt.comparer)
			assert.IsType(t, tt.want, tt.comparer)
		})
	}
}

func TestSelectArrayComparer_RankGate(t *testing.T) {
	assert.Nil(t, selectArrayComparer[int32](NewIntegerMapping(), reflect.TypeOf((*[][]int32)(nil)).Elem()))
	assert.Nil(t, selectArrayComparer[int32](NewIntegerMapping(), reflect.TypeOf((*int32)(nil)).Elem()))
}

func TestSelectArrayComparer_SelectedOnce(t *testing.T) {
	m, err := NewSliceMapping[int32](NewIntegerMapping())
	require.NoError(t, err)
	assert.Same(t, m.Comparer(), m.Comparer())
}

// =============================================================================
// Self-equatable strategy
// =============================================================================

func TestEquatableComparer_Equals(t *testing.T) {
	c := selectArrayComparer[time.Time](NewTimestampMapping(), reflect.TypeOf((*[]time.Time)(nil)).Elem())
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		a    []time.Time
		b    []time.Time
		want bool
	}{
		{
			name: "equal contents",
			a:    []time.Time{base, base.Add(time.Hour)},
			b:    []time.Time{base, base.Add(time.Hour)},
			want: true,
		},
		{
			name: "length mismatch short-circuits",
			a:    []time.Time{base},
			b:    []time.Time{base, base},
			want: false,
		},
		{
			name: "content mismatch",
			a:    []time.Time{base},
			b:    []time.Time{base.Add(time.Minute)},
			want: false,
		},
		{
			name: "Equal contract ignores location",
			a:    []time.Time{base},
			b:    []time.Time{base.In(time.FixedZone("X", 3600))},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Equals(tt.a, tt.b))
		})
	}
}

func TestEquatableComparer_BindsContractAtSelection(t *testing.T) {
	c := selectArrayComparer[*version](newVersionMapping(), reflect.TypeOf((*[]*version)(nil)).Elem())

	eq, ok := c.(*equatableArrayComparer[*version])
	require.True(t, ok)
	require.NotNil(t, eq.eq)
	assert.True(t, eq.eq(&version{N: 2}, &version{N: 2}))
	assert.False(t, eq.eq(&version{N: 2}, &version{N: 3}))
}

func TestEquatableComparer_NilElements(t *testing.T) {
	c := selectArrayComparer[*version](newVersionMapping(), reflect.TypeOf((*[]*version)(nil)).Elem())
	one := &version{N: 1}

	assert.True(t, c.Equals([]*version{nil, one}, []*version{nil, one}))
	assert.False(t, c.Equals([]*version{one, nil}, []*version{nil, one}))
	assert.True(t, c.Equals([]*version{one}, []*version{{N: 1}}))
}

func TestEquatableComparer_HashConsistentWithEquals(t *testing.T) {
	c := selectArrayComparer[time.Time](NewTimestampMapping(), reflect.TypeOf((*[]time.Time)(nil)).Elem())
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	a := []time.Time{base, base.Add(time.Hour)}
	b := []time.Time{base, base.In(time.FixedZone("X", 3600)).Add(time.Hour)}
	require.True(t, c.Equals(a, b))
	assert.Equal(t, c.Hash(a), c.Hash(b))

	assert.NotEqual(t, c.Hash(a), c.Hash([]time.Time{base.Add(time.Hour), base}))
}

// =============================================================================
// Fallback strategy
// =============================================================================

func TestFallbackComparer_Equals(t *testing.T) {
	c := selectArrayComparer[*widget](newWidgetMapping(), reflect.TypeOf((*[]*widget)(nil)).Elem())
	x := &widget{Name: "x"}

	tests := []struct {
		name string
		a    []*widget
		b    []*widget
		want bool
	}{
		{
			name: "nil pair is equal",
			a:    []*widget{nil, x},
			b:    []*widget{nil, x},
			want: true,
		},
		{
			name: "nil against value is unequal",
			a:    []*widget{x, nil},
			b:    []*widget{nil, x},
			want: false,
		},
		{
			name: "structural equality across instances",
			a:    []*widget{{Name: "x"}},
			b:    []*widget{{Name: "x"}},
			want: true,
		},
		{
			name: "length mismatch short-circuits",
			a:    []*widget{x},
			b:    []*widget{x, x},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Equals(tt.a, tt.b))
		})
	}
}

func TestFallbackComparer_HashConsistentWithEquals(t *testing.T) {
	c := selectArrayComparer[*widget](newWidgetMapping(), reflect.TypeOf((*[]*widget)(nil)).Elem())

	a := []*widget{{Name: "x"}, nil}
	b := []*widget{{Name: "x"}, nil}
	require.True(t, c.Equals(a, b))
	assert.Equal(t, c.Hash(a), c.Hash(b))
}

// node is a reference type with pointer and map fields, so deep equality has
// to look through indirection rather than compare addresses.
type node struct {
	Label string
	Count *int
	Attrs map[string]any
}

func newNodeMapping() ElementMapping {
	return &scalarMapping[*node]{
		storeType: "node",
		render: func(n *node) (string, error) {
			return "'" + n.Label + "'", nil
		},
	}
}

func TestFallbackComparer_HashDereferencesPointerFields(t *testing.T) {
	c := selectArrayComparer[*node](newNodeMapping(), reflect.TypeOf((*[]*node)(nil)).Elem())

	x, y := 1, 1
	a := []*node{{Label: "n", Count: &x, Attrs: map[string]any{"p": &x}}}
	b := []*node{{Label: "n", Count: &y, Attrs: map[string]any{"p": &y}}}
	require.True(t, c.Equals(a, b))
	assert.Equal(t, c.Hash(a), c.Hash(b))

	z := 2
	assert.False(t, c.Equals(a, []*node{{Label: "n", Count: &z, Attrs: map[string]any{"p": &z}}}))
	assert.NotEqual(t, c.Hash(a), c.Hash([]*node{{Label: "n", Count: &z, Attrs: map[string]any{"p": &z}}}))
}

func TestFallbackComparer_HashDistinguishesNilAndEmptyFields(t *testing.T) {
	c := selectArrayComparer[*node](newNodeMapping(), reflect.TypeOf((*[]*node)(nil)).Elem())

	withNilAttrs := []*node{{Label: "n"}}
	withEmptyAttrs := []*node{{Label: "n", Attrs: map[string]any{}}}
	require.False(t, c.Equals(withNilAttrs, withEmptyAttrs))
	assert.NotEqual(t, c.Hash(withNilAttrs), c.Hash(withEmptyAttrs))
}

// =============================================================================
// Delegating strategy
// =============================================================================

func TestDelegatingComparer_TrailingZeroInsensitive(t *testing.T) {
	c := selectArrayComparer[decimal.Decimal](NewNumericMapping(), reflect.TypeOf((*[]decimal.Decimal)(nil)).Elem())

	a := []decimal.Decimal{decimal.RequireFromString("1.00")}
	b := []decimal.Decimal{decimal.RequireFromString("1.0")}
	assert.True(t, c.Equals(a, b))
	assert.Equal(t, c.Hash(a), c.Hash(b))

	assert.False(t, c.Equals(a, []decimal.Decimal{decimal.RequireFromString("1.01")}))
}

func TestDelegatingComparer_SnapshotIsolation(t *testing.T) {
	c := selectArrayComparer[[]byte](NewByteaMapping(), reflect.TypeOf((*[][]byte)(nil)).Elem())

	source := [][]byte{{0x01, 0x02}, {0x03}}
	snap := c.Snapshot(source).([][]byte)
	require.True(t, c.Equals(source, snap))

	// Mutating the source in place must not leak into the snapshot.
	source[0][0] = 0xff
	assert.Equal(t, []byte{0x01, 0x02}, snap[0])
	assert.False(t, c.Equals(source, snap))
}

// =============================================================================
// Shared snapshot semantics
// =============================================================================

func TestSnapshot_NilInNilOut(t *testing.T) {
	comparers := map[string]ValueComparer{
		"delegating": selectArrayComparer[decimal.Decimal](NewNumericMapping(), reflect.TypeOf((*[]decimal.Decimal)(nil)).Elem()),
		"equatable":  selectArrayComparer[time.Time](NewTimestampMapping(), reflect.TypeOf((*[]time.Time)(nil)).Elem()),
		"fallback":   selectArrayComparer[*widget](newWidgetMapping(), reflect.TypeOf((*[]*widget)(nil)).Elem()),
	}
	for name, c := range comparers {
		t.Run(name, func(t *testing.T) {
			assert.Nil(t, c.Snapshot(nil))
		})
	}
}

func TestSnapshot_Reflexivity(t *testing.T) {
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	t.Run("equatable", func(t *testing.T) {
		c := selectArrayComparer[time.Time](NewTimestampMapping(), reflect.TypeOf((*[]time.Time)(nil)).Elem())
		s := []time.Time{base, base.Add(time.Hour)}
		assert.True(t, c.Equals(c.Snapshot(s), s))
	})

	t.Run("fallback", func(t *testing.T) {
		c := selectArrayComparer[*widget](newWidgetMapping(), reflect.TypeOf((*[]*widget)(nil)).Elem())
		s := []*widget{{Name: "x"}, nil}
		assert.True(t, c.Equals(c.Snapshot(s), s))
	})

	t.Run("delegating", func(t *testing.T) {
		c := selectArrayComparer[decimal.Decimal](NewNumericMapping(), reflect.TypeOf((*[]decimal.Decimal)(nil)).Elem())
		s := []decimal.Decimal{decimal.RequireFromString("19.90")}
		assert.True(t, c.Equals(c.Snapshot(s), s))
	})
}

func TestSnapshot_ShallowCopyIsIndependent(t *testing.T) {
	c := selectArrayComparer[int32](NewIntegerMapping(), reflect.TypeOf((*[]int32)(nil)).Elem())

	source := []int32{1, 2, 3}
	snap := c.Snapshot(source).([]int32)
	source[0] = 99

	assert.Equal(t, []int32{1, 2, 3}, snap)
}

// =============================================================================
// End-to-end scenarios
// =============================================================================

func TestIntegerArrayComparer_EndToEnd(t *testing.T) {
	m, err := NewSliceMapping[int32](NewIntegerMapping())
	require.NoError(t, err)
	c := m.Comparer()
	require.NotNil(t, c)

	assert.True(t, c.Equals([]int32{1, 2, 3}, []int32{1, 2, 3}))
	assert.False(t, c.Equals([]int32{1, 2}, []int32{1, 2, 3}))
	assert.Equal(t, c.Hash([]int32{1, 2, 3}), c.Hash([]int32{1, 2, 3}))
	assert.NotEqual(t, c.Hash([]int32{1, 2, 3}), c.Hash([]int32{3, 2, 1}))
}

func TestEmptyAndNilSequences(t *testing.T) {
	c := selectArrayComparer[int32](NewIntegerMapping(), reflect.TypeOf((*[]int32)(nil)).Elem())

	// A nil slice and an empty slice hold the same (zero) elements; they are
	// equal here, and whole-sequence absence stays a caller concern.
	assert.True(t, c.Equals([]int32(nil), []int32{}))
	assert.Equal(t, c.Hash([]int32(nil)), c.Hash([]int32{}))

	snap := c.Snapshot([]int32(nil))
	assert.Nil(t, snap.([]int32))
}
