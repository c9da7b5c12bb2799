package typemap

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math"
	"reflect"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// scalarMapping is the generic carrier for the built-in element mappings.
type scalarMapping[E any] struct {
	storeType string
	render    func(E) (string, error)
	comparer  ValueComparer
}

func (m *scalarMapping[E]) StoreType() string {
	return m.storeType
}

func (m *scalarMapping[E]) GoType() reflect.Type {
	return reflect.TypeOf((*E)(nil)).Elem()
}

func (m *scalarMapping[E]) Comparer() ValueComparer {
	return m.comparer
}

func (m *scalarMapping[E]) RenderLiteral(value any) (string, error) {
	e, ok := value.(E)
	if !ok {
		return "", NewTypeMismatchError(m.storeType, reflect.TypeOf((*E)(nil)).Elem(), value)
	}
	return m.render(e)
}

// NewTextMapping maps Postgres text to string.
func NewTextMapping() ElementMapping {
	return &scalarMapping[string]{
		storeType: "text",
		render: func(s string) (string, error) {
			return pq.QuoteLiteral(s), nil
		},
	}
}

// NewSmallIntMapping maps Postgres smallint to int16.
func NewSmallIntMapping() ElementMapping {
	return &scalarMapping[int16]{
		storeType: "smallint",
		render: func(n int16) (string, error) {
			return strconv.FormatInt(int64(n), 10), nil
		},
	}
}

// NewIntegerMapping maps Postgres integer to int32.
func NewIntegerMapping() ElementMapping {
	return &scalarMapping[int32]{
		storeType: "integer",
		render: func(n int32) (string, error) {
			return strconv.FormatInt(int64(n), 10), nil
		},
	}
}

// NewBigIntMapping maps Postgres bigint to int64.
func NewBigIntMapping() ElementMapping {
	return &scalarMapping[int64]{
		storeType: "bigint",
		render: func(n int64) (string, error) {
			return strconv.FormatInt(n, 10), nil
		},
	}
}

// NewDoublePrecisionMapping maps Postgres double precision to float64.
func NewDoublePrecisionMapping() ElementMapping {
	return &scalarMapping[float64]{
		storeType: "double precision",
		render: func(f float64) (string, error) {
			// Postgres only accepts the non-finite values as quoted strings.
			switch {
			case math.IsNaN(f):
				return "'NaN'", nil
			case math.IsInf(f, 1):
				return "'Infinity'", nil
			case math.IsInf(f, -1):
				return "'-Infinity'", nil
			}
			return strconv.FormatFloat(f, 'g', -1, 64), nil
		},
	}
}

// NewBooleanMapping maps Postgres boolean to bool.
func NewBooleanMapping() ElementMapping {
	return &scalarMapping[bool]{
		storeType: "boolean",
		render: func(b bool) (string, error) {
			if b {
				return "TRUE", nil
			}
			return "FALSE", nil
		},
	}
}

// NewTimestampMapping maps Postgres timestamptz to time.Time. time.Time
// carries its own Equal contract, so arrays of it compare via the
// self-equatable strategy.
func NewTimestampMapping() ElementMapping {
	return &scalarMapping[time.Time]{
		storeType: "timestamptz",
		render: func(t time.Time) (string, error) {
			return pq.QuoteLiteral(t.UTC().Format(time.RFC3339Nano)), nil
		},
	}
}

// NewUUIDMapping maps Postgres uuid to uuid.UUID.
func NewUUIDMapping() ElementMapping {
	return &scalarMapping[uuid.UUID]{
		storeType: "uuid",
		render: func(u uuid.UUID) (string, error) {
			return pq.QuoteLiteral(u.String()), nil
		},
	}
}

// NewNumericMapping maps Postgres numeric to decimal.Decimal with a custom
// comparer under which 1.0 and 1.00 are equal (and hash identically), so
// arrays of it compare via the delegating strategy.
func NewNumericMapping() ElementMapping {
	return &scalarMapping[decimal.Decimal]{
		storeType: "numeric",
		render: func(d decimal.Decimal) (string, error) {
			return d.String(), nil
		},
		comparer: decimalComparer{},
	}
}

// NewByteaMapping maps Postgres bytea to []byte with a custom comparer that
// deep-copies on snapshot, since byte slices are mutable.
func NewByteaMapping() ElementMapping {
	return &scalarMapping[[]byte]{
		storeType: "bytea",
		render: func(b []byte) (string, error) {
			return "'\\x" + hex.EncodeToString(b) + "'", nil
		},
		comparer: byteaComparer{},
	}
}

// NewJSONBMapping maps Postgres jsonb to map[string]any. No custom comparer
// and no typed equality contract, so arrays of it compare via the fallback
// strategy.
func NewJSONBMapping() ElementMapping {
	return &scalarMapping[map[string]any]{
		storeType: "jsonb",
		render: func(doc map[string]any) (string, error) {
			raw, err := json.Marshal(doc)
			if err != nil {
				return "", NewMappingError(ErrorTypeInternal, ErrCodeRenderFailed,
					"failed to encode jsonb document").WithStoreType("jsonb").WithCause(err)
			}
			return pq.QuoteLiteral(string(raw)), nil
		},
	}
}

// ============================================================================
// Custom element comparers
// ============================================================================

// decimalComparer treats decimals with differing trailing zeros as equal.
type decimalComparer struct{}

func (decimalComparer) Equals(a, b any) bool {
	ad, aok := a.(decimal.Decimal)
	bd, bok := b.(decimal.Decimal)
	if !aok || !bok {
		return !aok && !bok
	}
	return ad.Equal(bd)
}

func (decimalComparer) Hash(v any) uint64 {
	d, ok := v.(decimal.Decimal)
	if !ok {
		return 0
	}
	// canonical fraction form, so 1.0 and 1.00 fold identically
	h := fnv.New64a()
	fmt.Fprint(h, d.Rat().RatString())
	return h.Sum64()
}

func (decimalComparer) Snapshot(v any) any {
	// decimals are immutable values
	return v
}

// byteaComparer compares byte slices by content and snapshots by copy.
type byteaComparer struct{}

func (byteaComparer) Equals(a, b any) bool {
	ab, aok := a.([]byte)
	bb, bok := b.([]byte)
	if !aok || !bok {
		return !aok && !bok
	}
	return bytes.Equal(ab, bb)
}

func (byteaComparer) Hash(v any) uint64 {
	b, ok := v.([]byte)
	if !ok {
		return 0
	}
	h := fnv.New64a()
	h.Write(b)
	return h.Sum64()
}

func (byteaComparer) Snapshot(v any) any {
	b, ok := v.([]byte)
	if !ok || b == nil {
		return []byte(nil)
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
