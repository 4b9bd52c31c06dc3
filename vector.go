package dynamodel

import (
	"fmt"
	"math/big"
	"reflect"
)

// ListOf lifts elem to slices, preserving order and multiplicity.
func ListOf(elem Converter) Converter {
	to := reflect.SliceOf(elem.to)
	return Converter{
		from: reflect.SliceOf(elem.from),
		to:   to,
		fn: func(v any) (any, error) {
			src, ok, err := sequence(v)
			if err != nil {
				return nil, err
			}
			if !ok {
				return reflect.Zero(to).Interface(), nil
			}
			out := reflect.MakeSlice(to, src.Len(), src.Len())
			for i := 0; i < src.Len(); i++ {
				e, err := elem.fn(src.Index(i).Interface())
				if err != nil {
					return nil, fmt.Errorf("index %d: %w", i, err)
				}
				if e != nil {
					out.Index(i).Set(reflect.ValueOf(e))
				}
			}
			return out.Interface(), nil
		},
	}
}

// SetOf lifts elem to slices holding set members. It fails with a
// DuplicateValueError when two elements convert to equal values.
func SetOf(elem Converter) Converter {
	to := reflect.SliceOf(elem.to)
	return Converter{
		from: reflect.SliceOf(elem.from),
		to:   to,
		fn: func(v any) (any, error) {
			src, ok, err := sequence(v)
			if err != nil {
				return nil, err
			}
			if !ok {
				return reflect.Zero(to).Interface(), nil
			}
			out := reflect.MakeSlice(to, 0, src.Len())
			seen := make(map[any]struct{}, src.Len())
			for i := 0; i < src.Len(); i++ {
				e, err := elem.fn(src.Index(i).Interface())
				if err != nil {
					return nil, fmt.Errorf("index %d: %w", i, err)
				}
				if e == nil {
					continue
				}
				key := setKey(e)
				if _, dup := seen[key]; dup {
					return nil, &DuplicateValueError{Value: e}
				}
				seen[key] = struct{}{}
				out = reflect.Append(out, reflect.ValueOf(e))
			}
			return out.Interface(), nil
		},
	}
}

// MapOf lifts elem to string-keyed maps. Keys are copied unchanged.
func MapOf(elem Converter) Converter {
	to := reflect.MapOf(stringType, elem.to)
	return Converter{
		from: reflect.MapOf(stringType, elem.from),
		to:   to,
		fn: func(v any) (any, error) {
			if v == nil {
				return reflect.Zero(to).Interface(), nil
			}
			src := reflect.ValueOf(v)
			if src.Kind() != reflect.Map || src.Type().Key().Kind() != reflect.String {
				return nil, fmt.Errorf("expected string-keyed map, got %T", v)
			}
			if src.IsNil() {
				return reflect.Zero(to).Interface(), nil
			}
			out := reflect.MakeMapWithSize(to, src.Len())
			iter := src.MapRange()
			for iter.Next() {
				key := iter.Key().String()
				e, err := elem.fn(iter.Value().Interface())
				if err != nil {
					return nil, fmt.Errorf("key %q: %w", key, err)
				}
				if e == nil {
					continue
				}
				out.SetMapIndex(reflect.ValueOf(key), reflect.ValueOf(e))
			}
			return out.Interface(), nil
		},
	}
}

func sequence(v any) (reflect.Value, bool, error) {
	if v == nil {
		return reflect.Value{}, false, nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice:
		return rv, !rv.IsNil(), nil
	case reflect.Array:
		return rv, true, nil
	}
	return reflect.Value{}, false, fmt.Errorf("expected slice, got %T", v)
}

func setKey(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case *big.Int:
		return t.String()
	}
	if reflect.TypeOf(v).Comparable() {
		return v
	}
	return fmt.Sprintf("%#v", v)
}
