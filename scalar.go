package dynamodel

import (
	"fmt"
	"reflect"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ConverterTable holds the ordered conversions from compatible source types
// into a scalar's reference type.
type ConverterTable struct {
	ref     reflect.Type
	entries []Converter
}

func newConverterTable(ref reflect.Type, entries ...Converter) ConverterTable {
	for _, c := range entries {
		if c.to != ref {
			panic(fmt.Sprintf("dynamodel: converter %v->%v registered for %v", c.from, c.to, ref))
		}
	}
	return ConverterTable{ref: ref, entries: entries}
}

// Type returns the reference type every converter in the table produces.
func (t ConverterTable) Type() reflect.Type { return t.ref }

// Lookup returns the converter for the first entry whose source type is
// assignable from source. When no entry matches and source is itself
// assignable to the reference type, the identity conversion is returned.
// Values of an assignable named type, such as json.RawMessage for []byte,
// are retyped before they reach the entry.
func (t ConverterTable) Lookup(source reflect.Type) (Converter, bool) {
	for _, c := range t.entries {
		if assignableFrom(c.from, source) {
			return retype(source, c.from).Join(c), true
		}
	}
	if source.AssignableTo(t.ref) {
		return retype(source, t.ref), true
	}
	return Converter{}, false
}

func assignableFrom(registered, source reflect.Type) bool {
	if registered.Kind() == reflect.Interface {
		return source.Implements(registered)
	}
	return source.AssignableTo(registered)
}

func identity(v any) (any, error) { return v, nil }

// retype converts values of from into the assignable type to. Interface
// targets and identical types pass values through unchanged.
func retype(from, to reflect.Type) Converter {
	if from == to || to.Kind() == reflect.Interface {
		return Converter{from: from, to: to, fn: identity}
	}
	return kindConverter(from, to)
}

// Scalar is one wire-representable type family. Each scalar owns a reference
// Go type, the ConverterTable producing it, and the DynamoDB attribute type
// used when the scalar appears in a key.
type Scalar struct {
	name     string
	category types.ScalarAttributeType
	owns     func(reflect.Type) bool
	table    ConverterTable
}

func (s *Scalar) String() string { return s.name }

// Type returns the reference type of the scalar.
func (s *Scalar) Type() reflect.Type { return s.table.ref }

// Category returns the wire attribute type, or "" if the scalar has no direct
// wire representation.
func (s *Scalar) Category() types.ScalarAttributeType { return s.category }

// Owns reports whether t belongs to the scalar's type family.
func (s *Scalar) Owns(t reflect.Type) bool { return s.owns(t) }

// Table returns the scalar's converter table.
func (s *Scalar) Table() ConverterTable { return s.table }

// toRef converts an owned type into the reference type.
func (s *Scalar) toRef(t reflect.Type) (Converter, bool) {
	if c, ok := s.table.Lookup(t); ok {
		return c, true
	}
	if s.owns(t) && t.ConvertibleTo(s.table.ref) {
		return kindConverter(t, s.table.ref), true
	}
	return Converter{}, false
}

// fromRef converts the reference type into an owned type.
func (s *Scalar) fromRef(t reflect.Type) (Converter, bool) {
	ref := s.table.ref
	switch {
	case ref.AssignableTo(t):
		return retype(ref, t), true
	case ref.Kind() == reflect.Interface:
		return assertConverter(ref, t), true
	case s.owns(t) && ref.ConvertibleTo(t):
		return kindConverter(ref, t), true
	}
	return Converter{}, false
}

func assertConverter(from, to reflect.Type) Converter {
	return Converter{
		from: from,
		to:   to,
		fn: func(v any) (any, error) {
			if v == nil {
				return reflect.Zero(to).Interface(), nil
			}
			if !reflect.TypeOf(v).AssignableTo(to) {
				return nil, fmt.Errorf("cannot use %T as %v", v, to)
			}
			return v, nil
		},
	}
}

// ScalarOf returns the first scalar, in declaration order, that owns t. The
// default scalar is always checked last and owns every type.
func ScalarOf(t reflect.Type) *Scalar {
	for _, s := range scalars {
		if s.owns(t) {
			return s
		}
	}
	return ScalarDefault
}

// Scalars returns all scalars in declaration order.
func Scalars() []*Scalar {
	out := make([]*Scalar, 0, len(scalars)+1)
	out = append(out, scalars...)
	return append(out, ScalarDefault)
}

// Enum is implemented by named constant types that expose their declared
// values. Enums convert to strings by name and parse back by exact name
// match.
//
//	type Color int
//
//	func (c Color) String() string { return [...]string{"RED", "GREEN"}[c] }
//	func (Color) EnumValues() []fmt.Stringer { return []fmt.Stringer{Red, Green} }
type Enum interface {
	fmt.Stringer
	EnumValues() []fmt.Stringer
}

var enumType = reflect.TypeFor[Enum]()

func isEnum(t reflect.Type) bool {
	return t.Kind() != reflect.Pointer && t.Kind() != reflect.Interface && t.Implements(enumType)
}

// enumConverter resolves enum <-> string conversions structurally, without
// consulting the scalar tables.
func enumConverter(source, target reflect.Type) (Converter, bool) {
	switch {
	case isEnum(source) && ScalarOf(target) == ScalarString:
		out, ok := ScalarString.fromRef(target)
		if !ok {
			return Converter{}, false
		}
		return enumName(source).Join(out), true
	case isEnum(target) && ScalarOf(source) == ScalarString:
		in, ok := ScalarString.toRef(source)
		if !ok {
			return Converter{}, false
		}
		return in.Join(enumParse(target)), true
	}
	return Converter{}, false
}

func enumName(t reflect.Type) Converter {
	return Converter{
		from: t,
		to:   stringType,
		fn: func(v any) (any, error) {
			e, ok := v.(Enum)
			if !ok {
				return nil, fmt.Errorf("expected %v, got %T", t, v)
			}
			return e.String(), nil
		},
	}
}

func enumParse(t reflect.Type) Converter {
	return Converter{
		from: stringType,
		to:   t,
		fn: func(v any) (any, error) {
			name, _ := v.(string)
			values := reflect.Zero(t).Interface().(Enum).EnumValues()
			for _, value := range values {
				if value.String() != name {
					continue
				}
				rv := reflect.ValueOf(value)
				if rv.Type() != t {
					rv = rv.Convert(t)
				}
				return rv.Interface(), nil
			}
			return nil, &UnknownEnumError{Type: t, Value: name}
		},
	}
}

// GetConverter resolves a converter from source to target. Identical or
// assignable types convert by identity and enums convert to and from strings
// by name. Otherwise the scalars owning each type are located and the source
// is converted to its scalar's reference type, then through the target
// scalar's table, then into target.
func GetConverter(source, target reflect.Type) (Converter, error) {
	if source == nil || target == nil {
		return Converter{}, &NoConverterError{From: source, To: target}
	}
	if source.AssignableTo(target) {
		return retype(source, target), nil
	}
	if c, ok := enumConverter(source, target); ok {
		return c, nil
	}

	src, dst := ScalarOf(source), ScalarOf(target)

	in, ok := src.toRef(source)
	if !ok {
		return Converter{}, &NoConverterError{From: source, To: target}
	}
	mid, ok := dst.table.Lookup(src.table.ref)
	if !ok {
		return Converter{}, &NoConverterError{From: source, To: target}
	}
	out, ok := dst.fromRef(target)
	if !ok {
		return Converter{}, &NoConverterError{From: source, To: target}
	}

	return in.Join(mid).Join(out), nil
}
