package dynamodel

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
)

// Converter is a one-way conversion from values of one type to values of
// another. Converters are stateless and safe for concurrent use.
type Converter struct {
	from, to reflect.Type
	fn       func(any) (any, error)
}

// NewConverter creates a Converter from an untyped function. The function
// receives values whose dynamic type is assignable to from and must return
// values assignable to to.
func NewConverter(from, to reflect.Type, fn func(any) (any, error)) Converter {
	return Converter{from: from, to: to, fn: fn}
}

// Func creates a Converter from a typed function.
func Func[S, T any](fn func(S) (T, error)) Converter {
	return Converter{
		from: reflect.TypeFor[S](),
		to:   reflect.TypeFor[T](),
		fn: func(v any) (any, error) {
			s, ok := v.(S)
			if !ok && v != nil {
				return nil, fmt.Errorf("expected %v, got %T", reflect.TypeFor[S](), v)
			}
			return fn(s)
		},
	}
}

// Identity returns a Converter that passes values of t through unchanged.
func Identity(t reflect.Type) Converter {
	return Converter{from: t, to: t, fn: func(v any) (any, error) { return v, nil }}
}

// From returns the source type.
func (c Converter) From() reflect.Type { return c.from }

// To returns the target type.
func (c Converter) To() reflect.Type { return c.to }

// Convert applies the conversion.
func (c Converter) Convert(v any) (any, error) {
	return c.fn(v)
}

// Join composes c with next, producing a Converter from c's source type to
// next's target type. It panics if c's target is not assignable to next's
// source, which is always a wiring mistake.
func (c Converter) Join(next Converter) Converter {
	if !c.to.AssignableTo(next.from) {
		panic(fmt.Sprintf("dynamodel: cannot join %v->%v with %v->%v", c.from, c.to, next.from, next.to))
	}
	return Converter{
		from: c.from,
		to:   next.to,
		fn: func(v any) (any, error) {
			mid, err := c.fn(v)
			if err != nil {
				return nil, err
			}
			return next.fn(mid)
		},
	}
}

// ConvertTo applies c and asserts the result to T.
func ConvertTo[T any](c Converter, v any) (T, error) {
	var zero T
	out, err := c.Convert(v)
	if err != nil {
		return zero, err
	}
	if out == nil {
		return zero, nil
	}
	t, ok := out.(T)
	if !ok {
		return zero, fmt.Errorf("converter produced %T, not %v", out, reflect.TypeFor[T]())
	}
	return t, nil
}

// kindConverter converts between two types sharing an underlying
// representation, such as a named string type and string. Numeric targets are
// checked for overflow. A float32 widens to the float64 nearest its shortest
// decimal form, so 0.1 stays 0.1 on the wire.
func kindConverter(from, to reflect.Type) Converter {
	return Converter{
		from: from,
		to:   to,
		fn: func(v any) (any, error) {
			if v == nil {
				return reflect.Zero(to).Interface(), nil
			}
			rv := reflect.ValueOf(v)
			if rv.Kind() == reflect.Float32 && to.Kind() == reflect.Float64 {
				f, err := strconv.ParseFloat(strconv.FormatFloat(rv.Float(), 'g', -1, 32), 64)
				if err != nil {
					return nil, err
				}
				return reflect.ValueOf(f).Convert(to).Interface(), nil
			}
			if err := checkOverflow(rv, to); err != nil {
				return nil, err
			}
			return rv.Convert(to).Interface(), nil
		},
	}
}

func checkOverflow(v reflect.Value, to reflect.Type) error {
	zero := reflect.Zero(to)
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		switch v.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			if zero.OverflowInt(v.Int()) {
				return fmt.Errorf("value %d overflows %v", v.Int(), to)
			}
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			if v.Uint() > 1<<63-1 || zero.OverflowInt(int64(v.Uint())) {
				return fmt.Errorf("value %d overflows %v", v.Uint(), to)
			}
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		switch v.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			if v.Int() < 0 || zero.OverflowUint(uint64(v.Int())) {
				return fmt.Errorf("value %d overflows %v", v.Int(), to)
			}
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			if zero.OverflowUint(v.Uint()) {
				return fmt.Errorf("value %d overflows %v", v.Uint(), to)
			}
		}
	case reflect.Float32:
		if v.Kind() != reflect.Float64 {
			break
		}
		// Values that round to the largest float32 are in range.
		if f := v.Float(); !math.IsInf(f, 0) && math.IsInf(float64(float32(f)), 0) {
			return fmt.Errorf("value %g overflows %v", f, to)
		}
	}
	return nil
}
