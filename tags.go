package dynamodel

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// FromStruct builds a TableModel for the struct type T from its field tags.
//
//	type Order struct {
//		Customer string    `ddb:"customer,hash"`
//		Placed   time.Time `ddb:"placed,range"`
//		Status   string    `ddb:"status" gsi:"by-status:hash"`
//		Total    int64     `ddb:"total,omitempty" lsi:"by-total"`
//		Tags     []string  `ddb:"tags,set"`
//		Rev      int64     `ddb:"rev,version"`
//		Scratch  string    `ddb:"-"`
//	}
//
// The ddb tag holds the attribute name followed by any of hash, range,
// version, set and omitempty. The gsi tag lists index:role pairs and the
// lsi tag lists local index names. Untagged exported fields are mapped by
// their Go name, and embedded structs are flattened.
func FromStruct[T any](opts ...func(*Builder[T])) (*TableModel[T], error) {
	t := reflect.TypeFor[T]()
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("cannot derive table model from %v: not a struct", t)
	}

	b := NewBuilder[T](nil)
	if err := addStructFields(b, t, nil); err != nil {
		return nil, fmt.Errorf("failed to derive table model for %v: %w", t, err)
	}
	for _, opt := range opts {
		opt(b)
	}
	return b.Build()
}

func addStructFields[T any](b *Builder[T], t reflect.Type, parent []int) error {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		index := append(append([]int(nil), parent...), i)

		tag, hasTag := sf.Tag.Lookup("ddb")
		if tag == "-" {
			continue
		}
		if sf.Anonymous && sf.Type.Kind() == reflect.Struct && !hasTag {
			if err := addStructFields(b, sf.Type, index); err != nil {
				return err
			}
			continue
		}
		if !sf.IsExported() {
			continue
		}

		name, fieldOpts, err := parseFieldTags(sf, tag)
		if err != nil {
			return err
		}
		b.With(newFieldModel(name, sf.Type, fieldGetter[T](index), fieldSetter[T](index, sf.Type), fieldOpts...))
	}
	return nil
}

func parseFieldTags(sf reflect.StructField, tag string) (string, []FieldOption, error) {
	parts := strings.Split(tag, ",")
	name := strings.TrimSpace(parts[0])
	if name == "" {
		name = sf.Name
	}

	var opts []FieldOption
	for _, p := range parts[1:] {
		switch strings.TrimSpace(p) {
		case "hash":
			opts = append(opts, HashKey())
		case "range":
			opts = append(opts, RangeKey())
		case "version":
			opts = append(opts, Version())
		case "set":
			opts = append(opts, AsSet())
		case "omitempty":
			opts = append(opts, OmitEmpty())
		case "":
		default:
			return "", nil, fmt.Errorf("field %s: unknown ddb option %q", sf.Name, p)
		}
	}

	if gsi := sf.Tag.Get("gsi"); gsi != "" {
		for _, entry := range strings.Split(gsi, ",") {
			index, role, ok := strings.Cut(strings.TrimSpace(entry), ":")
			if !ok || index == "" {
				return "", nil, fmt.Errorf("field %s: gsi entry %q must be index:hash or index:range", sf.Name, entry)
			}
			switch strings.ToLower(role) {
			case "hash":
				opts = append(opts, GlobalIndex(index, types.KeyTypeHash))
			case "range":
				opts = append(opts, GlobalIndex(index, types.KeyTypeRange))
			default:
				return "", nil, fmt.Errorf("field %s: unknown gsi role %q", sf.Name, role)
			}
		}
	}

	if lsi := sf.Tag.Get("lsi"); lsi != "" {
		for _, index := range strings.Split(lsi, ",") {
			if index = strings.TrimSpace(index); index != "" {
				opts = append(opts, LocalIndex(index))
			}
		}
	}
	return name, opts, nil
}

func fieldGetter[T any](index []int) func(*T) any {
	return func(obj *T) any {
		return reflect.ValueOf(obj).Elem().FieldByIndex(index).Interface()
	}
}

func fieldSetter[T any](index []int, typ reflect.Type) func(*T, any) error {
	return func(obj *T, v any) error {
		field := reflect.ValueOf(obj).Elem().FieldByIndex(index)
		if v == nil {
			field.Set(reflect.Zero(typ))
			return nil
		}
		rv := reflect.ValueOf(v)
		if !rv.Type().AssignableTo(typ) {
			return fmt.Errorf("cannot assign %T to %v", v, typ)
		}
		field.Set(rv)
		return nil
	}
}
