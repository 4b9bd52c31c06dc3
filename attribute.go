package dynamodel

import (
	"bytes"
	"fmt"
	"reflect"
	"sort"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

var (
	attributeValueType = reflect.TypeFor[types.AttributeValue]()
	marshalerType      = reflect.TypeFor[attributevalue.Marshaler]()
	unmarshalerType    = reflect.TypeFor[attributevalue.Unmarshaler]()
	emptyStructType    = reflect.TypeFor[struct{}]()
)

// Codec converts values of one Go type to and from DynamoDB attribute
// values. Convert yields a nil attribute for values that should not be
// written, such as nil pointers, nil slices and empty sets.
type Codec struct {
	Convert   Converter
	Unconvert Converter

	// Category is the scalar attribute type of the encoded value, or "" when
	// the value cannot be used as a key.
	Category types.ScalarAttributeType
}

// NewCodec resolves the codec for t.
//
// Pointers encode their element and are absent when nil. Types implementing
// attributevalue.Marshaler and Unmarshaler encode themselves. Enums are
// strings, booleans are BOOL, and other scalars use their category. Slices
// and arrays are lists, maps with string keys are maps, and map[K]struct{}
// values are sets. Anything else is encoded with attributevalue.Marshal.
func NewCodec(t reflect.Type) (Codec, error) {
	return codecFor(t, false)
}

// NewSetCodec resolves a codec that encodes the slice or array type t as a
// string, number or binary set.
func NewSetCodec(t reflect.Type) (Codec, error) {
	return codecFor(t, true)
}

// Marshal converts v to an attribute value. A nil result means the value is
// absent.
func (c Codec) Marshal(v any) (types.AttributeValue, error) {
	return ConvertTo[types.AttributeValue](c.Convert, v)
}

// Unmarshal converts av back to the codec's Go type.
func (c Codec) Unmarshal(av types.AttributeValue) (any, error) {
	return c.Unconvert.Convert(av)
}

// Type returns the Go type the codec converts.
func (c Codec) Type() reflect.Type { return c.Convert.from }

func codecFor(t reflect.Type, asSet bool) (Codec, error) {
	c, err := resolveCodec(t, asSet)
	if err != nil {
		return Codec{}, err
	}
	c.Unconvert = nullable(c.Unconvert)
	return c, nil
}

func resolveCodec(t reflect.Type, asSet bool) (Codec, error) {
	if t == nil {
		return Codec{}, &NoConverterError{From: t, To: attributeValueType}
	}
	// Scalar reference types such as attributevalue.UnixTime keep their
	// scalar encoding even though they implement the SDK marshalers.
	if ScalarOf(t).Type() != t && t.Implements(marshalerType) &&
		(t.Implements(unmarshalerType) || reflect.PointerTo(t).Implements(unmarshalerType)) {
		return marshalerCodec(t), nil
	}
	if t.Kind() == reflect.Pointer && ScalarOf(t) == ScalarDefault {
		elem, err := codecFor(t.Elem(), asSet)
		if err != nil {
			return Codec{}, err
		}
		return pointerCodec(t, elem), nil
	}
	if isEnum(t) {
		return scalarCodec(t, types.ScalarAttributeTypeS)
	}
	if t.Kind() == reflect.Bool {
		return boolCodec(t)
	}
	if s := ScalarOf(t); s != ScalarDefault && s.category != "" {
		return scalarCodec(t, s.category)
	}

	switch t.Kind() {
	case reflect.Slice, reflect.Array:
		if asSet {
			return setCodec(t, t.Elem())
		}
		return listCodec(t)
	case reflect.Map:
		if t.Elem() == emptyStructType {
			return setCodec(t, t.Key())
		}
		if t.Key().Kind() == reflect.String {
			return mapCodec(t)
		}
	}
	return documentCodec(t), nil
}

// nullable returns the zero value for NULL attributes instead of invoking c.
func nullable(c Converter) Converter {
	zero := reflect.Zero(c.to).Interface()
	return Converter{
		from: c.from,
		to:   c.to,
		fn: func(v any) (any, error) {
			switch v.(type) {
			case nil, *types.AttributeValueMemberNULL:
				return zero, nil
			}
			return c.fn(v)
		},
	}
}

func scalarCodec(t reflect.Type, category types.ScalarAttributeType) (Codec, error) {
	wire, toAV, fromAV := stringType, toS, fromS
	switch category {
	case types.ScalarAttributeTypeN:
		toAV, fromAV = toN, fromN
	case types.ScalarAttributeTypeB:
		wire, toAV, fromAV = bytesType, toB, fromB
	}

	out, err := GetConverter(t, wire)
	if err != nil {
		return Codec{}, err
	}
	in, err := GetConverter(wire, t)
	if err != nil {
		return Codec{}, err
	}
	return Codec{
		Convert:   absentIfNil(t, out.Join(toAV)),
		Unconvert: fromAV.Join(in),
		Category:  category,
	}, nil
}

func boolCodec(t reflect.Type) (Codec, error) {
	out, err := GetConverter(t, boolType)
	if err != nil {
		return Codec{}, err
	}
	in, err := GetConverter(boolType, t)
	if err != nil {
		return Codec{}, err
	}
	legacy, err := GetConverter(stringType, t)
	if err != nil {
		return Codec{}, err
	}
	return Codec{
		Convert: out.Join(Func(func(b bool) (types.AttributeValue, error) {
			return &types.AttributeValueMemberBOOL{Value: b}, nil
		})),
		Unconvert: NewConverter(attributeValueType, t, func(v any) (any, error) {
			switch av := v.(type) {
			case *types.AttributeValueMemberBOOL:
				return in.Convert(av.Value)
			case *types.AttributeValueMemberN:
				return legacy.Convert(av.Value)
			}
			return nil, fmt.Errorf("expected BOOL, got %T", v)
		}),
	}, nil
}

func pointerCodec(t reflect.Type, elem Codec) Codec {
	return Codec{
		Convert: NewConverter(t, attributeValueType, func(v any) (any, error) {
			rv := reflect.ValueOf(v)
			if v == nil || rv.IsNil() {
				return nil, nil
			}
			return elem.Convert.Convert(rv.Elem().Interface())
		}),
		Unconvert: NewConverter(attributeValueType, t, func(v any) (any, error) {
			e, err := elem.Unconvert.Convert(v)
			if err != nil {
				return nil, err
			}
			p := reflect.New(t.Elem())
			if e != nil {
				p.Elem().Set(reflect.ValueOf(e))
			}
			return p.Interface(), nil
		}),
		Category: elem.Category,
	}
}

func marshalerCodec(t reflect.Type) Codec {
	return Codec{
		Convert: NewConverter(t, attributeValueType, func(v any) (any, error) {
			if isNil(v) {
				return nil, nil
			}
			return v.(attributevalue.Marshaler).MarshalDynamoDBAttributeValue()
		}),
		Unconvert: NewConverter(attributeValueType, t, func(v any) (any, error) {
			av, _ := v.(types.AttributeValue)
			if t.Kind() == reflect.Pointer {
				p := reflect.New(t.Elem())
				if err := p.Interface().(attributevalue.Unmarshaler).UnmarshalDynamoDBAttributeValue(av); err != nil {
					return nil, err
				}
				return p.Interface(), nil
			}
			p := reflect.New(t)
			u, ok := p.Interface().(attributevalue.Unmarshaler)
			if !ok {
				u = p.Elem().Interface().(attributevalue.Unmarshaler)
			}
			if err := u.UnmarshalDynamoDBAttributeValue(av); err != nil {
				return nil, err
			}
			return p.Elem().Interface(), nil
		}),
	}
}

func setCodec(t, elem reflect.Type) (Codec, error) {
	var category types.ScalarAttributeType
	if isEnum(elem) {
		category = types.ScalarAttributeTypeS
	} else {
		category = ScalarOf(elem).category
	}
	wire := stringType
	switch category {
	case types.ScalarAttributeTypeS, types.ScalarAttributeTypeN:
	case types.ScalarAttributeTypeB:
		wire = bytesType
	default:
		return Codec{}, &NoConverterError{From: t, To: attributeValueType}
	}

	out, err := GetConverter(elem, wire)
	if err != nil {
		return Codec{}, err
	}
	in, err := GetConverter(wire, elem)
	if err != nil {
		return Codec{}, err
	}
	encode, decode := SetOf(out), SetOf(in)

	convert := NewConverter(t, attributeValueType, func(v any) (any, error) {
		members, err := encode.Convert(setMembers(v))
		if err != nil {
			return nil, err
		}
		return wireSet(category, members), nil
	})
	unconvert := NewConverter(attributeValueType, t, func(v any) (any, error) {
		members, err := readSet(category, v)
		if err != nil {
			return nil, err
		}
		decoded, err := decode.Convert(members)
		if err != nil {
			return nil, err
		}
		return rebuild(t, reflect.ValueOf(decoded))
	})
	return Codec{Convert: convert, Unconvert: unconvert}, nil
}

// setMembers flattens a map-backed set into a slice of its keys.
func setMembers(v any) any {
	rv := reflect.ValueOf(v)
	if v == nil || rv.Kind() != reflect.Map {
		return v
	}
	keys := reflect.MakeSlice(reflect.SliceOf(rv.Type().Key()), 0, rv.Len())
	for _, k := range rv.MapKeys() {
		keys = reflect.Append(keys, k)
	}
	return keys.Interface()
}

func wireSet(category types.ScalarAttributeType, members any) types.AttributeValue {
	switch category {
	case types.ScalarAttributeTypeB:
		bs, _ := members.([][]byte)
		if len(bs) == 0 {
			return nil
		}
		sort.Slice(bs, func(i, j int) bool { return bytes.Compare(bs[i], bs[j]) < 0 })
		return &types.AttributeValueMemberBS{Value: bs}
	case types.ScalarAttributeTypeN:
		ns, _ := members.([]string)
		if len(ns) == 0 {
			return nil
		}
		sort.Strings(ns)
		return &types.AttributeValueMemberNS{Value: ns}
	default:
		ss, _ := members.([]string)
		if len(ss) == 0 {
			return nil
		}
		sort.Strings(ss)
		return &types.AttributeValueMemberSS{Value: ss}
	}
}

func readSet(category types.ScalarAttributeType, v any) (any, error) {
	switch av := v.(type) {
	case *types.AttributeValueMemberSS:
		if category == types.ScalarAttributeTypeS {
			return av.Value, nil
		}
	case *types.AttributeValueMemberNS:
		if category == types.ScalarAttributeTypeN {
			return av.Value, nil
		}
	case *types.AttributeValueMemberBS:
		if category == types.ScalarAttributeTypeB {
			return av.Value, nil
		}
	case *types.AttributeValueMemberL:
		// Lists written by other mappers are accepted as sets.
		out := make([]any, 0, len(av.Value))
		for _, e := range av.Value {
			switch m := e.(type) {
			case *types.AttributeValueMemberS:
				out = append(out, m.Value)
			case *types.AttributeValueMemberN:
				out = append(out, m.Value)
			case *types.AttributeValueMemberB:
				out = append(out, m.Value)
			default:
				return nil, fmt.Errorf("unexpected %T in set", e)
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("expected %sS, got %T", category, v)
}

func listCodec(t reflect.Type) (Codec, error) {
	elem, err := codecFor(t.Elem(), false)
	if err != nil {
		return Codec{}, err
	}
	encode := ListOf(elem.Convert.Join(nullIfAbsent))
	decode := ListOf(elem.Unconvert)

	return Codec{
		Convert: NewConverter(t, attributeValueType, func(v any) (any, error) {
			l, err := ConvertTo[[]types.AttributeValue](encode, v)
			if err != nil || l == nil {
				return nil, err
			}
			return &types.AttributeValueMemberL{Value: l}, nil
		}),
		Unconvert: NewConverter(attributeValueType, t, func(v any) (any, error) {
			l, ok := v.(*types.AttributeValueMemberL)
			if !ok {
				return nil, fmt.Errorf("expected L, got %T", v)
			}
			decoded, err := decode.Convert(l.Value)
			if err != nil {
				return nil, err
			}
			return rebuild(t, reflect.ValueOf(decoded))
		}),
	}, nil
}

func mapCodec(t reflect.Type) (Codec, error) {
	elem, err := codecFor(t.Elem(), false)
	if err != nil {
		return Codec{}, err
	}
	encode := MapOf(elem.Convert)
	decode := MapOf(elem.Unconvert)

	return Codec{
		Convert: NewConverter(t, attributeValueType, func(v any) (any, error) {
			m, err := ConvertTo[map[string]types.AttributeValue](encode, v)
			if err != nil || m == nil {
				return nil, err
			}
			return &types.AttributeValueMemberM{Value: m}, nil
		}),
		Unconvert: NewConverter(attributeValueType, t, func(v any) (any, error) {
			m, ok := v.(*types.AttributeValueMemberM)
			if !ok {
				return nil, fmt.Errorf("expected M, got %T", v)
			}
			decoded, err := decode.Convert(m.Value)
			if err != nil {
				return nil, err
			}
			src := reflect.ValueOf(decoded)
			out := reflect.MakeMapWithSize(t, src.Len())
			iter := src.MapRange()
			for iter.Next() {
				out.SetMapIndex(iter.Key().Convert(t.Key()), iter.Value())
			}
			return out.Interface(), nil
		}),
	}, nil
}

// documentCodec encodes loosely typed values, such as nested structs and
// interfaces, with the SDK's reflection-based marshaler.
func documentCodec(t reflect.Type) Codec {
	return Codec{
		Convert: NewConverter(t, attributeValueType, func(v any) (any, error) {
			if isNil(v) {
				return nil, nil
			}
			return attributevalue.Marshal(v)
		}),
		Unconvert: NewConverter(attributeValueType, t, func(v any) (any, error) {
			av, _ := v.(types.AttributeValue)
			p := reflect.New(t)
			if err := attributevalue.Unmarshal(av, p.Interface()); err != nil {
				return nil, err
			}
			return p.Elem().Interface(), nil
		}),
	}
}

// rebuild copies the elements of src, a slice of t's element type, into a
// new value of t. Map-backed sets get one key per element.
func rebuild(t reflect.Type, src reflect.Value) (any, error) {
	switch t.Kind() {
	case reflect.Slice:
		if src.Type() == t {
			return src.Interface(), nil
		}
		return src.Convert(t).Interface(), nil
	case reflect.Array:
		if src.Len() > t.Len() {
			return nil, fmt.Errorf("%d elements do not fit in %v", src.Len(), t)
		}
		out := reflect.New(t).Elem()
		reflect.Copy(out, src)
		return out.Interface(), nil
	case reflect.Map:
		out := reflect.MakeMapWithSize(t, src.Len())
		for i := 0; i < src.Len(); i++ {
			out.SetMapIndex(src.Index(i), reflect.Zero(t.Elem()))
		}
		return out.Interface(), nil
	}
	return nil, fmt.Errorf("cannot build %v from %v", t, src.Type())
}

// absentIfNil skips nil pointers owned by a scalar, such as *big.Int.
func absentIfNil(t reflect.Type, c Converter) Converter {
	if t.Kind() != reflect.Pointer {
		return c
	}
	return Converter{
		from: c.from,
		to:   c.to,
		fn: func(v any) (any, error) {
			if isNil(v) {
				return nil, nil
			}
			return c.fn(v)
		},
	}
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return rv.IsNil()
	}
	return false
}

var (
	toS = Func(func(s string) (types.AttributeValue, error) {
		return &types.AttributeValueMemberS{Value: s}, nil
	})
	toN = Func(func(s string) (types.AttributeValue, error) {
		return &types.AttributeValueMemberN{Value: s}, nil
	})
	toB = Func(func(b []byte) (types.AttributeValue, error) {
		return &types.AttributeValueMemberB{Value: b}, nil
	})
	fromS = Func(func(av types.AttributeValue) (string, error) {
		if s, ok := av.(*types.AttributeValueMemberS); ok {
			return s.Value, nil
		}
		return "", fmt.Errorf("expected S, got %T", av)
	})
	fromN = Func(func(av types.AttributeValue) (string, error) {
		if n, ok := av.(*types.AttributeValueMemberN); ok {
			return n.Value, nil
		}
		return "", fmt.Errorf("expected N, got %T", av)
	})
	fromB = Func(func(av types.AttributeValue) ([]byte, error) {
		if b, ok := av.(*types.AttributeValueMemberB); ok {
			return b.Value, nil
		}
		return nil, fmt.Errorf("expected B, got %T", av)
	})
	nullIfAbsent = Func(func(av types.AttributeValue) (types.AttributeValue, error) {
		if av == nil {
			return &types.AttributeValueMemberNULL{Value: true}, nil
		}
		return av, nil
	})
)
