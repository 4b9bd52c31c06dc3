package dynamodel

import (
	"reflect"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Item is a DynamoDB item.
type Item = map[string]types.AttributeValue

type indexDef struct {
	name       string
	hash       string
	rng        string
	projection types.ProjectionType
	nonKey     []string
}

func (d indexDef) keySchema() []types.KeySchemaElement {
	ks := []types.KeySchemaElement{{AttributeName: aws.String(d.hash), KeyType: types.KeyTypeHash}}
	if d.rng != "" {
		ks = append(ks, types.KeySchemaElement{AttributeName: aws.String(d.rng), KeyType: types.KeyTypeRange})
	}
	return ks
}

func (d indexDef) projectionDef() *types.Projection {
	p := &types.Projection{ProjectionType: d.projection}
	if len(d.nonKey) > 0 {
		p.NonKeyAttributes = append([]string(nil), d.nonKey...)
	}
	return p
}

// TableModel maps values of T to DynamoDB items. A TableModel is immutable
// once built and safe for concurrent use.
type TableModel[T any] struct {
	typ      reflect.Type
	factory  func() *T
	detached bool
	fields   []FieldModel[T]
	byName   map[string]int
	hash     int
	rng      int
	versions []int
	gsis     []indexDef
	lsis     []indexDef
}

// Type returns the modeled Go type.
func (m *TableModel[T]) Type() reflect.Type { return m.typ }

// Detached reports whether the model was built without requiring a hash key.
func (m *TableModel[T]) Detached() bool { return m.detached }

// Fields returns the field models in the order they were added.
func (m *TableModel[T]) Fields() []FieldModel[T] {
	return append([]FieldModel[T](nil), m.fields...)
}

// Field returns the field model mapped to the named attribute.
func (m *TableModel[T]) Field(name string) (FieldModel[T], bool) {
	i, ok := m.byName[name]
	if !ok {
		return FieldModel[T]{}, false
	}
	return m.fields[i], true
}

// HashKey returns the hash key field.
func (m *TableModel[T]) HashKey() (FieldModel[T], error) {
	if m.hash < 0 {
		return FieldModel[T]{}, &MissingKeyError{Role: types.KeyTypeHash}
	}
	return m.fields[m.hash], nil
}

// RangeKey returns the range key field.
func (m *TableModel[T]) RangeKey() (FieldModel[T], error) {
	if m.rng < 0 {
		return FieldModel[T]{}, &MissingKeyError{Role: types.KeyTypeRange}
	}
	return m.fields[m.rng], nil
}

// RangeKeyIfExists returns the range key field, if the model has one.
func (m *TableModel[T]) RangeKeyIfExists() (FieldModel[T], bool) {
	if m.rng < 0 {
		return FieldModel[T]{}, false
	}
	return m.fields[m.rng], true
}

// Versions returns the version fields.
func (m *TableModel[T]) Versions() []FieldModel[T] {
	out := make([]FieldModel[T], 0, len(m.versions))
	for _, i := range m.versions {
		out = append(out, m.fields[i])
	}
	return out
}

// GlobalSecondaryIndexes returns the derived global secondary index
// definitions, in the order their hash components were added.
func (m *TableModel[T]) GlobalSecondaryIndexes() []types.GlobalSecondaryIndex {
	out := make([]types.GlobalSecondaryIndex, 0, len(m.gsis))
	for _, d := range m.gsis {
		out = append(out, types.GlobalSecondaryIndex{
			IndexName:  aws.String(d.name),
			KeySchema:  d.keySchema(),
			Projection: d.projectionDef(),
		})
	}
	return out
}

// LocalSecondaryIndexes returns the derived local secondary index
// definitions. Every local index uses the table hash key as its hash
// component.
func (m *TableModel[T]) LocalSecondaryIndexes() []types.LocalSecondaryIndex {
	out := make([]types.LocalSecondaryIndex, 0, len(m.lsis))
	for _, d := range m.lsis {
		out = append(out, types.LocalSecondaryIndex{
			IndexName:  aws.String(d.name),
			KeySchema:  d.keySchema(),
			Projection: d.projectionDef(),
		})
	}
	return out
}

// KeySchema returns the primary key schema, hash first.
func (m *TableModel[T]) KeySchema() []types.KeySchemaElement {
	var ks []types.KeySchemaElement
	if m.hash >= 0 {
		ks = append(ks, types.KeySchemaElement{AttributeName: aws.String(m.fields[m.hash].name), KeyType: types.KeyTypeHash})
	}
	if m.rng >= 0 {
		ks = append(ks, types.KeySchemaElement{AttributeName: aws.String(m.fields[m.rng].name), KeyType: types.KeyTypeRange})
	}
	return ks
}

// AttributeDefinitions returns one definition for every attribute used by
// the primary key or a secondary index, in field order.
func (m *TableModel[T]) AttributeDefinitions() []types.AttributeDefinition {
	used := make(map[string]bool)
	for _, k := range m.KeySchema() {
		used[*k.AttributeName] = true
	}
	for _, defs := range [][]indexDef{m.gsis, m.lsis} {
		for _, d := range defs {
			used[d.hash] = true
			if d.rng != "" {
				used[d.rng] = true
			}
		}
	}

	var out []types.AttributeDefinition
	for _, f := range m.fields {
		if used[f.name] {
			out = append(out, types.AttributeDefinition{
				AttributeName: aws.String(f.name),
				AttributeType: f.Category(),
			})
		}
	}
	return out
}

// New returns a fresh value from the model's factory.
func (m *TableModel[T]) New() *T { return m.factory() }

// Convert converts obj to an item. Fields whose value is absent are left out
// of the item.
func (m *TableModel[T]) Convert(obj *T) (Item, error) {
	item := make(Item, len(m.fields))
	for _, f := range m.fields {
		av, err := f.Convert(obj)
		if err != nil {
			return nil, m.fieldError(f.name, err)
		}
		if av == nil {
			continue
		}
		item[f.name] = av
	}
	return item, nil
}

// Unconvert builds a new value from item. Attributes no field maps are
// ignored, and fields missing from item keep their zero value.
func (m *TableModel[T]) Unconvert(item Item) (*T, error) {
	obj := m.factory()
	for _, f := range m.fields {
		av, ok := item[f.name]
		if !ok {
			continue
		}
		if err := f.Unconvert(obj, av); err != nil {
			return nil, m.fieldError(f.name, err)
		}
	}
	return obj, nil
}

// ConvertKeyOf converts only the key attributes of obj.
func (m *TableModel[T]) ConvertKeyOf(obj *T) (Item, error) {
	hash, err := m.HashKey()
	if err != nil {
		return nil, err
	}
	key := make(Item, 2)
	if err := m.putKey(key, hash, hash.Get(obj)); err != nil {
		return nil, err
	}
	if rng, ok := m.RangeKeyIfExists(); ok {
		if err := m.putKey(key, rng, rng.Get(obj)); err != nil {
			return nil, err
		}
	}
	return key, nil
}

// CreateKey returns a new value with only its key fields set. The range key
// is set only when rangeValue is not nil.
func (m *TableModel[T]) CreateKey(hashValue, rangeValue any) (*T, error) {
	hash, err := m.HashKey()
	if err != nil {
		return nil, err
	}
	obj := m.factory()
	if err := hash.SetValue(obj, hashValue); err != nil {
		return nil, m.fieldError(hash.name, err)
	}
	if rangeValue == nil {
		return obj, nil
	}
	rng, err := m.RangeKey()
	if err != nil {
		return nil, err
	}
	if err := rng.SetValue(obj, rangeValue); err != nil {
		return nil, m.fieldError(rng.name, err)
	}
	return obj, nil
}

// ConvertKey converts key values to a key item. The hash value is required,
// and the range value is required when the model has a range key.
func (m *TableModel[T]) ConvertKey(hashValue, rangeValue any) (Item, error) {
	hash, err := m.HashKey()
	if err != nil {
		return nil, err
	}
	key := make(Item, 2)
	if err := m.putKey(key, hash, hashValue); err != nil {
		return nil, err
	}
	if rng, ok := m.RangeKeyIfExists(); ok {
		if err := m.putKey(key, rng, rangeValue); err != nil {
			return nil, err
		}
	}
	return key, nil
}

func (m *TableModel[T]) putKey(key Item, f FieldModel[T], v any) error {
	if isNil(v) {
		return m.fieldError(f.name, ErrNullKeyValue)
	}
	av, err := f.ConvertValue(v)
	if err != nil {
		return m.fieldError(f.name, err)
	}
	if av == nil {
		return m.fieldError(f.name, ErrNullKeyValue)
	}
	key[f.name] = av
	return nil
}

func (m *TableModel[T]) fieldError(attr string, err error) error {
	return &FieldConversionError{Type: m.typ, Attribute: attr, Cause: err}
}
