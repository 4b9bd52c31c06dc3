package dynamodel

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
)

var (
	bigIntType   = reflect.TypeFor[*big.Int]()
	boolType     = reflect.TypeFor[bool]()
	durationType = reflect.TypeFor[time.Duration]()
	int64Type    = reflect.TypeFor[int64]()
	uint64Type   = reflect.TypeFor[uint64]()
	float64Type  = reflect.TypeFor[float64]()
	bytesType    = reflect.TypeFor[[]byte]()
	stringType   = reflect.TypeFor[string]()
	dateTimeType = reflect.TypeFor[strfmt.DateTime]()
	unixTimeType = reflect.TypeFor[attributevalue.UnixTime]()
	timeType     = reflect.TypeFor[time.Time]()
	uuidType     = reflect.TypeFor[uuid.UUID]()
	anyType      = reflect.TypeFor[any]()
)

// The declaration order of scalars decides which scalar owns a type that
// several could claim: time.Duration before the int64 family, strfmt.DateTime
// and attributevalue.UnixTime before time.Time. ScalarDefault is not part of
// the list and is always checked last.
var scalars = []*Scalar{
	ScalarBigInt,
	ScalarBool,
	ScalarDuration,
	ScalarInt,
	ScalarUint,
	ScalarFloat,
	ScalarBytes,
	ScalarString,
	ScalarDateTime,
	ScalarUnixTime,
	ScalarTime,
	ScalarUUID,
}

var ScalarBigInt = &Scalar{
	name:     "BigInt",
	category: types.ScalarAttributeTypeN,
	owns:     exactly(bigIntType),
	table: newConverterTable(bigIntType,
		Func(func(v int64) (*big.Int, error) { return big.NewInt(v), nil }),
		Func(func(v uint64) (*big.Int, error) { return new(big.Int).SetUint64(v), nil }),
		Func(func(s string) (*big.Int, error) {
			n, ok := new(big.Int).SetString(s, 10)
			if !ok {
				return nil, fmt.Errorf("invalid integer %q", s)
			}
			return n, nil
		}),
	),
}

var ScalarBool = &Scalar{
	name:     "Bool",
	category: types.ScalarAttributeTypeN,
	owns:     kinds(reflect.Bool),
	table: newConverterTable(boolType,
		Func(strconv.ParseBool),
		Func(func(v int64) (bool, error) { return v != 0, nil }),
		Func(func(v uint64) (bool, error) { return v != 0, nil }),
	),
}

var ScalarDuration = &Scalar{
	name:     "Duration",
	category: types.ScalarAttributeTypeN,
	owns:     exactly(durationType),
	table: newConverterTable(durationType,
		Func(func(v int64) (time.Duration, error) { return time.Duration(v), nil }),
		Func(func(s string) (time.Duration, error) {
			if n, err := strconv.ParseInt(s, 10, 64); err == nil {
				return time.Duration(n), nil
			}
			return time.ParseDuration(s)
		}),
	),
}

var ScalarInt = &Scalar{
	name:     "Int",
	category: types.ScalarAttributeTypeN,
	owns:     kinds(reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64),
	table: newConverterTable(int64Type,
		Func(func(v bool) (int64, error) {
			if v {
				return 1, nil
			}
			return 0, nil
		}),
		Func(func(v uint64) (int64, error) {
			if v > math.MaxInt64 {
				return 0, fmt.Errorf("value %d overflows int64", v)
			}
			return int64(v), nil
		}),
		Func(func(v float64) (int64, error) {
			if v != math.Trunc(v) || v < math.MinInt64 || v >= math.MaxInt64 {
				return 0, fmt.Errorf("value %g is not an int64", v)
			}
			return int64(v), nil
		}),
		Func(func(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) }),
		Func(func(v *big.Int) (int64, error) {
			if v == nil || !v.IsInt64() {
				return 0, fmt.Errorf("value %v is not an int64", v)
			}
			return v.Int64(), nil
		}),
		Func(func(v time.Duration) (int64, error) { return int64(v), nil }),
	),
}

var ScalarUint = &Scalar{
	name:     "Uint",
	category: types.ScalarAttributeTypeN,
	owns:     kinds(reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64),
	table: newConverterTable(uint64Type,
		Func(func(v bool) (uint64, error) {
			if v {
				return 1, nil
			}
			return 0, nil
		}),
		Func(func(v int64) (uint64, error) {
			if v < 0 {
				return 0, fmt.Errorf("value %d overflows uint64", v)
			}
			return uint64(v), nil
		}),
		Func(func(v float64) (uint64, error) {
			if v != math.Trunc(v) || v < 0 || v >= math.MaxUint64 {
				return 0, fmt.Errorf("value %g is not a uint64", v)
			}
			return uint64(v), nil
		}),
		Func(func(s string) (uint64, error) { return strconv.ParseUint(s, 10, 64) }),
		Func(func(v *big.Int) (uint64, error) {
			if v == nil || !v.IsUint64() {
				return 0, fmt.Errorf("value %v is not a uint64", v)
			}
			return v.Uint64(), nil
		}),
	),
}

var ScalarFloat = &Scalar{
	name:     "Float",
	category: types.ScalarAttributeTypeN,
	owns:     kinds(reflect.Float32, reflect.Float64),
	table: newConverterTable(float64Type,
		Func(func(v int64) (float64, error) { return float64(v), nil }),
		Func(func(v uint64) (float64, error) { return float64(v), nil }),
		Func(func(s string) (float64, error) { return strconv.ParseFloat(s, 64) }),
	),
}

var ScalarBytes = &Scalar{
	name:     "Bytes",
	category: types.ScalarAttributeTypeB,
	owns: func(t reflect.Type) bool {
		return t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8
	},
	table: newConverterTable(bytesType,
		Func(func(s string) ([]byte, error) { return []byte(s), nil }),
		Func(func(u uuid.UUID) ([]byte, error) {
			b := make([]byte, len(u))
			copy(b, u[:])
			return b, nil
		}),
	),
}

var ScalarString = &Scalar{
	name:     "String",
	category: types.ScalarAttributeTypeS,
	owns:     kinds(reflect.String),
	table: newConverterTable(stringType,
		// Booleans use their number category text.
		Func(func(v bool) (string, error) {
			if v {
				return "1", nil
			}
			return "0", nil
		}),
		Func(func(v int64) (string, error) { return strconv.FormatInt(v, 10), nil }),
		Func(func(v uint64) (string, error) { return strconv.FormatUint(v, 10), nil }),
		Func(formatFloat),
		Func(func(v *big.Int) (string, error) {
			if v == nil {
				return "", errors.New("nil big.Int")
			}
			return v.String(), nil
		}),
		Func(func(b []byte) (string, error) { return string(b), nil }),
		Func(func(d time.Duration) (string, error) { return strconv.FormatInt(int64(d), 10), nil }),
		Func(func(d strfmt.DateTime) (string, error) { return formatTime(time.Time(d)), nil }),
		Func(func(u attributevalue.UnixTime) (string, error) {
			return strconv.FormatInt(time.Time(u).Unix(), 10), nil
		}),
		Func(func(t time.Time) (string, error) { return formatTime(t), nil }),
		Func(func(u uuid.UUID) (string, error) { return u.String(), nil }),
	),
}

var ScalarDateTime = &Scalar{
	name:     "DateTime",
	category: types.ScalarAttributeTypeS,
	owns:     exactly(dateTimeType),
	table: newConverterTable(dateTimeType,
		Func(func(s string) (strfmt.DateTime, error) {
			t, err := time.Parse(time.RFC3339Nano, s)
			if err != nil {
				return strfmt.ParseDateTime(s)
			}
			return strfmt.DateTime(t.UTC()), nil
		}),
		Func(func(t time.Time) (strfmt.DateTime, error) { return strfmt.DateTime(t.UTC()), nil }),
		Func(func(u attributevalue.UnixTime) (strfmt.DateTime, error) {
			return strfmt.DateTime(time.Time(u).UTC()), nil
		}),
	),
}

var ScalarUnixTime = &Scalar{
	name:     "UnixTime",
	category: types.ScalarAttributeTypeN,
	owns:     exactly(unixTimeType),
	table: newConverterTable(unixTimeType,
		Func(func(s string) (attributevalue.UnixTime, error) {
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return attributevalue.UnixTime{}, err
			}
			return attributevalue.UnixTime(time.Unix(n, 0).UTC()), nil
		}),
		Func(func(n int64) (attributevalue.UnixTime, error) {
			return attributevalue.UnixTime(time.Unix(n, 0).UTC()), nil
		}),
		Func(func(d strfmt.DateTime) (attributevalue.UnixTime, error) {
			return attributevalue.UnixTime(time.Time(d)), nil
		}),
		Func(func(t time.Time) (attributevalue.UnixTime, error) { return attributevalue.UnixTime(t), nil }),
	),
}

var ScalarTime = &Scalar{
	name:     "Time",
	category: types.ScalarAttributeTypeS,
	owns: func(t reflect.Type) bool {
		return t.Kind() == reflect.Struct && t.ConvertibleTo(timeType)
	},
	table: newConverterTable(timeType,
		Func(func(s string) (time.Time, error) { return time.Parse(time.RFC3339Nano, s) }),
		Func(func(d strfmt.DateTime) (time.Time, error) { return time.Time(d), nil }),
		Func(func(u attributevalue.UnixTime) (time.Time, error) { return time.Time(u), nil }),
	),
}

var ScalarUUID = &Scalar{
	name:     "UUID",
	category: types.ScalarAttributeTypeS,
	owns:     exactly(uuidType),
	table: newConverterTable(uuidType,
		Func(uuid.Parse),
		Func(uuid.FromBytes),
	),
}

// ScalarDefault owns every type no other scalar claims. It has no wire
// category and converts only by assignability.
var ScalarDefault = &Scalar{
	name:  "Default",
	owns:  func(reflect.Type) bool { return true },
	table: newConverterTable(anyType),
}

func exactly(ref reflect.Type) func(reflect.Type) bool {
	return func(t reflect.Type) bool { return t == ref }
}

func kinds(ks ...reflect.Kind) func(reflect.Type) bool {
	return func(t reflect.Type) bool {
		for _, k := range ks {
			if t.Kind() == k {
				return true
			}
		}
		return false
	}
}

func formatFloat(v float64) (string, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "", fmt.Errorf("value %g has no number representation", v)
	}
	return strconv.FormatFloat(v, 'f', -1, 64), nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
