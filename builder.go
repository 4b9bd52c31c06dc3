package dynamodel

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type projection struct {
	typ    types.ProjectionType
	nonKey []string
}

// Builder accumulates field models for T and produces an immutable
// TableModel. A Builder must not be shared between goroutines.
type Builder[T any] struct {
	factory     func() *T
	fields      []FieldModel[T]
	detached    bool
	projections map[string]projection
}

// NewBuilder returns a builder whose models create values with factory. A
// nil factory uses new(T).
func NewBuilder[T any](factory func() *T) *Builder[T] {
	if factory == nil {
		factory = func() *T { return new(T) }
	}
	return &Builder[T]{factory: factory, projections: make(map[string]projection)}
}

// With adds fields to the model.
func (b *Builder[T]) With(fields ...FieldModel[T]) *Builder[T] {
	b.fields = append(b.fields, fields...)
	return b
}

// Detached allows building a model without a hash key, for values that are
// embedded in other items rather than stored in a table.
func (b *Builder[T]) Detached() *Builder[T] {
	b.detached = true
	return b
}

// Projection sets the projection of a secondary index. Indexes without one
// project KEYS_ONLY.
func (b *Builder[T]) Projection(index string, typ types.ProjectionType, nonKeyAttributes ...string) *Builder[T] {
	b.projections[index] = projection{typ: typ, nonKey: nonKeyAttributes}
	return b
}

// Build validates the accumulated fields and derives the key schema and
// secondary indexes.
func (b *Builder[T]) Build() (*TableModel[T], error) {
	m := &TableModel[T]{
		typ:      reflect.TypeFor[T](),
		factory:  b.factory,
		detached: b.detached,
		fields:   append([]FieldModel[T](nil), b.fields...),
		byName:   make(map[string]int, len(b.fields)),
		hash:     -1,
		rng:      -1,
	}

	for i, f := range m.fields {
		if f.err != nil {
			return nil, f.err
		}
		if _, dup := m.byName[f.name]; dup {
			return nil, &DuplicateAttributeError{Name: f.name}
		}
		m.byName[f.name] = i

		switch f.keyType {
		case types.KeyTypeHash:
			if m.hash >= 0 {
				return nil, &DuplicateKeyError{Role: f.keyType, Attributes: [2]string{m.fields[m.hash].name, f.name}}
			}
			m.hash = i
		case types.KeyTypeRange:
			if m.rng >= 0 {
				return nil, &DuplicateKeyError{Role: f.keyType, Attributes: [2]string{m.fields[m.rng].name, f.name}}
			}
			m.rng = i
		}
		if f.keyType != "" {
			if err := checkKeyAttribute(f); err != nil {
				return nil, err
			}
		}

		if f.version {
			if !isVersionType(f.typ) {
				return nil, &InvalidVersionError{Attribute: f.name, Type: f.typ}
			}
			m.versions = append(m.versions, i)
		}
	}

	if m.hash < 0 && !b.detached {
		return nil, &MissingKeyError{Role: types.KeyTypeHash}
	}

	var err error
	if m.gsis, err = globalIndexes(m.fields); err != nil {
		return nil, err
	}
	if m.lsis, err = m.localIndexes(); err != nil {
		return nil, err
	}
	if err := b.applyProjections(m); err != nil {
		return nil, err
	}
	return m, nil
}

// globalIndexes derives index definitions in two passes: hash components
// create definitions and range components attach to them.
func globalIndexes[T any](fields []FieldModel[T]) ([]indexDef, error) {
	var defs []indexDef
	seen := make(map[string]int)

	for _, f := range fields {
		for _, k := range f.gsis {
			switch k.Role {
			case types.KeyTypeHash:
			case types.KeyTypeRange:
				continue
			default:
				return nil, fmt.Errorf("index %q: invalid key role %q on attribute %q", k.Name, k.Role, f.name)
			}
			if _, dup := seen[k.Name]; dup {
				return nil, &DuplicateIndexError{Name: k.Name}
			}
			if err := checkKeyAttribute(f); err != nil {
				return nil, err
			}
			seen[k.Name] = len(defs)
			defs = append(defs, indexDef{name: k.Name, hash: f.name, projection: types.ProjectionTypeKeysOnly})
		}
	}

	for _, f := range fields {
		for _, k := range f.gsis {
			if k.Role != types.KeyTypeRange {
				continue
			}
			i, ok := seen[k.Name]
			if !ok {
				return nil, &IndexMissingHashError{Name: k.Name}
			}
			if defs[i].rng != "" {
				return nil, &DuplicateIndexError{Name: k.Name}
			}
			if err := checkKeyAttribute(f); err != nil {
				return nil, err
			}
			defs[i].rng = f.name
		}
	}
	return defs, nil
}

func (m *TableModel[T]) localIndexes() ([]indexDef, error) {
	var defs []indexDef
	seen := make(map[string]bool)
	for _, d := range m.gsis {
		seen[d.name] = true
	}

	for _, f := range m.fields {
		for _, name := range f.lsis {
			if seen[name] {
				return nil, &DuplicateIndexError{Name: name}
			}
			if m.hash < 0 {
				return nil, &MissingKeyError{Role: types.KeyTypeHash}
			}
			if m.rng < 0 {
				return nil, &MissingKeyError{Role: types.KeyTypeRange}
			}
			if err := checkKeyAttribute(f); err != nil {
				return nil, err
			}
			seen[name] = true
			defs = append(defs, indexDef{
				name:       name,
				hash:       m.fields[m.hash].name,
				rng:        f.name,
				projection: types.ProjectionTypeKeysOnly,
			})
		}
	}
	return defs, nil
}

func (b *Builder[T]) applyProjections(m *TableModel[T]) error {
	for name, p := range b.projections {
		found := false
		for _, defs := range [][]indexDef{m.gsis, m.lsis} {
			for i := range defs {
				if defs[i].name == name {
					defs[i].projection = p.typ
					defs[i].nonKey = append([]string(nil), p.nonKey...)
					found = true
				}
			}
		}
		if !found {
			return fmt.Errorf("projection set for undeclared index %q", name)
		}
	}
	return nil
}

func checkKeyAttribute[T any](f FieldModel[T]) error {
	switch f.Category() {
	case types.ScalarAttributeTypeS, types.ScalarAttributeTypeN, types.ScalarAttributeTypeB:
		return nil
	}
	return &InvalidKeyError{Attribute: f.name, Type: f.typ}
}

func isVersionType(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	s := ScalarOf(t)
	return s == ScalarInt || s == ScalarUint
}

// MustBuild is like Build but panics on error. It is meant for package-level
// model variables.
func (b *Builder[T]) MustBuild() *TableModel[T] {
	m, err := b.Build()
	if err != nil {
		panic(errors.Join(errors.New("dynamodel: invalid table model"), err))
	}
	return m
}
