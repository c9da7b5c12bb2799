package typemap

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MappingRegistry caches array type mappings by store type so construction
// (comparer selection, reflection) happens once per distinct type rather
// than per lookup. Safe for concurrent use.
//
// Caching here is a convenience, not a correctness requirement: mappings are
// immutable and duplicate construction from racing goroutines is harmless.
type MappingRegistry struct {
	mu       sync.RWMutex
	mappings map[string]*ArrayTypeMapping
}

// NewMappingRegistry creates an empty registry.
func NewMappingRegistry() *MappingRegistry {
	return &MappingRegistry{
		mappings: make(map[string]*ArrayTypeMapping),
	}
}

// Register adds a pre-built mapping. Duplicate store types are rejected.
func (r *MappingRegistry) Register(m *ArrayTypeMapping) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.mappings[m.StoreType()]; exists {
		return NewMappingConflictError(m.StoreType())
	}
	r.mappings[m.StoreType()] = m
	zap.S().Debugw("registered array type mapping",
		"storeType", m.StoreType(), "goType", m.GoType().String(), "hasComparer", m.Comparer() != nil)
	return nil
}

// Lookup returns the mapping registered for storeType.
func (r *MappingRegistry) Lookup(storeType string) (*ArrayTypeMapping, error) {
	r.mu.RLock()
	m, ok := r.mappings[storeType]
	r.mu.RUnlock()
	if !ok {
		return nil, NewMappingNotFoundError(storeType)
	}
	return m, nil
}

// StoreTypes returns the registered store type names, sorted.
func (r *MappingRegistry) StoreTypes() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.mappings))
	for name := range r.mappings {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// EnsureArrayMapping returns the []E mapping for elem, constructing and
// registering it on first use. Racing callers may both construct; the first
// registration wins and both observe the same instance afterwards.
func EnsureArrayMapping[E any](r *MappingRegistry, elem ElementMapping) (*ArrayTypeMapping, error) {
	storeType := elem.StoreType() + "[]"

	r.mu.RLock()
	existing, ok := r.mappings[storeType]
	r.mu.RUnlock()
	if ok {
		return existing, nil
	}

	m, err := NewSliceMapping[E](elem)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if winner, ok := r.mappings[storeType]; ok {
		r.mu.Unlock()
		return winner, nil
	}
	r.mappings[storeType] = m
	r.mu.Unlock()

	zap.S().Debugw("registered array type mapping",
		"storeType", storeType, "goType", m.GoType().String(), "hasComparer", m.Comparer() != nil)
	return m, nil
}

// NewDefaultRegistry builds a registry pre-populated with the standard
// Postgres scalar array mappings.
func NewDefaultRegistry() (*MappingRegistry, error) {
	r := NewMappingRegistry()
	if _, err := EnsureArrayMapping[string](r, NewTextMapping()); err != nil {
		return nil, err
	}
	if _, err := EnsureArrayMapping[int16](r, NewSmallIntMapping()); err != nil {
		return nil, err
	}
	if _, err := EnsureArrayMapping[int32](r, NewIntegerMapping()); err != nil {
		return nil, err
	}
	if _, err := EnsureArrayMapping[int64](r, NewBigIntMapping()); err != nil {
		return nil, err
	}
	if _, err := EnsureArrayMapping[float64](r, NewDoublePrecisionMapping()); err != nil {
		return nil, err
	}
	if _, err := EnsureArrayMapping[bool](r, NewBooleanMapping()); err != nil {
		return nil, err
	}
	if _, err := EnsureArrayMapping[time.Time](r, NewTimestampMapping()); err != nil {
		return nil, err
	}
	if _, err := EnsureArrayMapping[uuid.UUID](r, NewUUIDMapping()); err != nil {
		return nil, err
	}
	if _, err := EnsureArrayMapping[decimal.Decimal](r, NewNumericMapping()); err != nil {
		return nil, err
	}
	if _, err := EnsureArrayMapping[[]byte](r, NewByteaMapping()); err != nil {
		return nil, err
	}
	if _, err := EnsureArrayMapping[map[string]any](r, NewJSONBMapping()); err != nil {
		return nil, err
	}
	return r, nil
}
