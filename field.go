package dynamodel

import (
	"fmt"
	"reflect"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// IndexKey tags a field as the hash or range component of a named global
// secondary index.
type IndexKey struct {
	Name string
	Role types.KeyType
}

// FieldOption configures a FieldModel.
type FieldOption func(*fieldOptions)

type fieldOptions struct {
	keyType types.KeyType
	version bool
	gsis    []IndexKey
	lsis    []string
	set     bool
	omit    bool
	codec   *Codec
}

// HashKey marks the field as the table's hash (partition) key.
func HashKey() FieldOption {
	return func(o *fieldOptions) { o.keyType = types.KeyTypeHash }
}

// RangeKey marks the field as the table's range (sort) key.
func RangeKey() FieldOption {
	return func(o *fieldOptions) { o.keyType = types.KeyTypeRange }
}

// Version marks the field as a version attribute used for optimistic locking.
func Version() FieldOption {
	return func(o *fieldOptions) { o.version = true }
}

// GlobalIndex adds the field to a global secondary index as its hash or range
// component.
func GlobalIndex(name string, role types.KeyType) FieldOption {
	return func(o *fieldOptions) { o.gsis = append(o.gsis, IndexKey{Name: name, Role: role}) }
}

// LocalIndex adds the field to a local secondary index as its range component.
// The index hash component is always the table hash key.
func LocalIndex(name string) FieldOption {
	return func(o *fieldOptions) { o.lsis = append(o.lsis, name) }
}

// AsSet encodes a slice or array field as a string, number or binary set.
func AsSet() FieldOption {
	return func(o *fieldOptions) { o.set = true }
}

// OmitEmpty leaves the attribute out of items when the field holds its zero
// value.
func OmitEmpty() FieldOption {
	return func(o *fieldOptions) { o.omit = true }
}

// WithCodec overrides the resolved codec.
func WithCodec(c Codec) FieldOption {
	return func(o *fieldOptions) { o.codec = &c }
}

// FieldModel maps one field of T to one item attribute.
type FieldModel[T any] struct {
	name    string
	typ     reflect.Type
	keyType types.KeyType
	version bool
	omit    bool
	gsis    []IndexKey
	lsis    []string
	codec   Codec
	get     func(*T) any
	set     func(*T, any) error
	err     error
}

// Field creates a FieldModel for an attribute read with get and written with
// set. Codec resolution errors are kept on the model and reported by
// Builder.Build.
func Field[T, V any](name string, get func(*T) V, set func(*T, V), opts ...FieldOption) FieldModel[T] {
	typ := reflect.TypeFor[V]()
	return newFieldModel(name, typ,
		func(obj *T) any { return get(obj) },
		func(obj *T, v any) error {
			if v == nil {
				var zero V
				set(obj, zero)
				return nil
			}
			typed, ok := v.(V)
			if !ok {
				return fmt.Errorf("cannot assign %T to %v", v, typ)
			}
			set(obj, typed)
			return nil
		},
		opts...,
	)
}

func newFieldModel[T any](name string, typ reflect.Type, get func(*T) any, set func(*T, any) error, opts ...FieldOption) FieldModel[T] {
	var o fieldOptions
	for _, opt := range opts {
		opt(&o)
	}

	f := FieldModel[T]{
		name:    name,
		typ:     typ,
		keyType: o.keyType,
		version: o.version,
		omit:    o.omit,
		gsis:    o.gsis,
		lsis:    o.lsis,
		get:     get,
		set:     set,
	}

	switch {
	case o.codec != nil:
		f.codec = *o.codec
	case o.set:
		f.codec, f.err = NewSetCodec(typ)
	default:
		f.codec, f.err = NewCodec(typ)
	}
	if f.err != nil {
		f.err = fmt.Errorf("failed to map attribute %q: %w", name, f.err)
	}
	return f
}

// Name returns the attribute name.
func (f FieldModel[T]) Name() string { return f.name }

// Type returns the Go type of the field.
func (f FieldModel[T]) Type() reflect.Type { return f.typ }

// KeyType returns the field's primary key role, or "" if it is not a key.
func (f FieldModel[T]) KeyType() types.KeyType { return f.keyType }

// IsVersion reports whether the field is a version attribute.
func (f FieldModel[T]) IsVersion() bool { return f.version }

// GlobalIndexes returns the global secondary index memberships.
func (f FieldModel[T]) GlobalIndexes() []IndexKey {
	return append([]IndexKey(nil), f.gsis...)
}

// LocalIndexes returns the names of the local secondary indexes the field
// is the range key of.
func (f FieldModel[T]) LocalIndexes() []string {
	return append([]string(nil), f.lsis...)
}

// Category returns the attribute type the field uses in key schemas.
func (f FieldModel[T]) Category() types.ScalarAttributeType { return f.codec.Category }

// Codec returns the field codec.
func (f FieldModel[T]) Codec() Codec { return f.codec }

// Get reads the field from obj.
func (f FieldModel[T]) Get(obj *T) any { return f.get(obj) }

// Set writes v to the field of obj.
func (f FieldModel[T]) Set(obj *T, v any) error { return f.set(obj, v) }

// Convert reads the field from obj and converts it to an attribute value.
// A nil attribute means the value is absent.
func (f FieldModel[T]) Convert(obj *T) (types.AttributeValue, error) {
	v := f.get(obj)
	if f.omit && (v == nil || reflect.ValueOf(v).IsZero()) {
		return nil, nil
	}
	return f.codec.Marshal(v)
}

// ConvertValue converts a value of the field's type, or of any type the
// registry can convert to it, into an attribute value.
func (f FieldModel[T]) ConvertValue(v any) (types.AttributeValue, error) {
	v, err := f.coerce(v)
	if err != nil {
		return nil, err
	}
	return f.codec.Marshal(v)
}

// Unconvert converts av and writes it to the field of obj.
func (f FieldModel[T]) Unconvert(obj *T, av types.AttributeValue) error {
	v, err := f.codec.Unmarshal(av)
	if err != nil {
		return err
	}
	return f.set(obj, v)
}

// SetValue writes a value of the field's type, or of any type the registry
// can convert to it, to the field of obj.
func (f FieldModel[T]) SetValue(obj *T, v any) error {
	v, err := f.coerce(v)
	if err != nil {
		return err
	}
	return f.set(obj, v)
}

func (f FieldModel[T]) coerce(v any) (any, error) {
	if v == nil || reflect.TypeOf(v) == f.typ {
		return v, nil
	}
	c, err := GetConverter(reflect.TypeOf(v), f.typ)
	if err != nil {
		return nil, err
	}
	return c.Convert(v)
}
