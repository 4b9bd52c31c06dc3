package dynamodel

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type status int

const (
	pending status = iota
	shipped
	cancelled
)

func (s status) String() string {
	switch s {
	case pending:
		return "PENDING"
	case shipped:
		return "SHIPPED"
	case cancelled:
		return "CANCELLED"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

func (status) EnumValues() []fmt.Stringer {
	return []fmt.Stringer{pending, shipped, cancelled}
}

type userID string

type blob []byte

// labelled has a display form that differs from its stored value.
type labelled string

func (l labelled) String() string { return "label:" + string(l) }

func TestScalarOf(t *testing.T) {
	type stamp time.Time

	tests := []struct {
		typ  reflect.Type
		want *Scalar
	}{
		{reflect.TypeFor[*big.Int](), ScalarBigInt},
		{reflect.TypeFor[bool](), ScalarBool},
		{reflect.TypeFor[time.Duration](), ScalarDuration},
		{reflect.TypeFor[int8](), ScalarInt},
		{reflect.TypeFor[status](), ScalarInt},
		{reflect.TypeFor[uint32](), ScalarUint},
		{reflect.TypeFor[float32](), ScalarFloat},
		{reflect.TypeFor[[]byte](), ScalarBytes},
		{reflect.TypeFor[userID](), ScalarString},
		{reflect.TypeFor[strfmt.DateTime](), ScalarDateTime},
		{reflect.TypeFor[attributevalue.UnixTime](), ScalarUnixTime},
		{reflect.TypeFor[time.Time](), ScalarTime},
		{reflect.TypeFor[stamp](), ScalarTime},
		{reflect.TypeFor[uuid.UUID](), ScalarUUID},
		{reflect.TypeFor[struct{ A int }](), ScalarDefault},
		{reflect.TypeFor[*string](), ScalarDefault},
	}

	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			assert.Same(t, tt.want, ScalarOf(tt.typ))
		})
	}
}

func TestScalars(t *testing.T) {
	all := Scalars()
	require.NotEmpty(t, all)
	assert.Same(t, ScalarDefault, all[len(all)-1])

	defaults := 0
	for _, s := range all {
		if s.Owns(reflect.TypeFor[struct{ X chan int }]()) {
			defaults++
		}
	}
	assert.Equal(t, 1, defaults, "only the default scalar owns arbitrary types")

	assert.Equal(t, types.ScalarAttributeTypeN, ScalarInt.Category())
	assert.Equal(t, types.ScalarAttributeTypeB, ScalarBytes.Category())
	assert.Equal(t, types.ScalarAttributeTypeS, ScalarTime.Category())
	assert.Empty(t, ScalarDefault.Category())
}

func TestConverterTableLookup(t *testing.T) {
	t.Run("first assignable entry wins", func(t *testing.T) {
		c, ok := ScalarString.Table().Lookup(reflect.TypeFor[time.Time]())
		require.True(t, ok)
		out, err := c.Convert(time.Date(2024, 1, 2, 3, 4, 5, 0, time.FixedZone("x", 3600)))
		require.NoError(t, err)
		assert.Equal(t, "2024-01-02T02:04:05Z", out)
	})

	t.Run("assignable named types are retyped", func(t *testing.T) {
		c, ok := ScalarString.Table().Lookup(reflect.TypeFor[blob]())
		require.True(t, ok)
		out, err := c.Convert(blob("hi"))
		require.NoError(t, err)
		assert.Equal(t, "hi", out)

		c, ok = ScalarBytes.Table().Lookup(reflect.TypeFor[json.RawMessage]())
		require.True(t, ok)
		out, err = c.Convert(json.RawMessage(`{}`))
		require.NoError(t, err)
		assert.Equal(t, []byte(`{}`), out)
	})

	t.Run("String methods are not table entries", func(t *testing.T) {
		_, ok := ScalarString.Table().Lookup(reflect.TypeFor[labelled]())
		assert.False(t, ok)
	})

	t.Run("reference type is identity", func(t *testing.T) {
		c, ok := ScalarInt.Table().Lookup(reflect.TypeFor[int64]())
		require.True(t, ok)
		out, err := c.Convert(int64(7))
		require.NoError(t, err)
		assert.Equal(t, int64(7), out)
	})

	t.Run("unrelated type is not found", func(t *testing.T) {
		_, ok := ScalarUUID.Table().Lookup(reflect.TypeFor[float64]())
		assert.False(t, ok)
	})
}

func convert[T any](t *testing.T, v any) T {
	t.Helper()
	c, err := GetConverter(reflect.TypeOf(v), reflect.TypeFor[T]())
	require.NoError(t, err)
	out, err := ConvertTo[T](c, v)
	require.NoError(t, err)
	return out
}

func TestGetConverter(t *testing.T) {
	t.Run("identity", func(t *testing.T) {
		assert.Equal(t, "x", convert[string](t, "x"))
		assert.Equal(t, userID("x"), convert[userID](t, userID("x")))
	})

	t.Run("integers", func(t *testing.T) {
		assert.Equal(t, "0", convert[string](t, 0))
		assert.Equal(t, "-42", convert[string](t, int8(-42)))
		assert.Equal(t, "18446744073709551615", convert[string](t, uint64(math.MaxUint64)))
		assert.Equal(t, int16(-7), convert[int16](t, "-7"))
		assert.Equal(t, int64(math.MinInt64), convert[int64](t, "-9223372036854775808"))
		assert.Equal(t, uint8(200), convert[uint8](t, 200))
	})

	t.Run("floats keep exact text", func(t *testing.T) {
		assert.Equal(t, "0.1", convert[string](t, 0.1))
		assert.Equal(t, "-1500000", convert[string](t, -1.5e6))
		assert.Equal(t, 2.5, convert[float64](t, "2.5"))
		assert.Equal(t, float32(0.1), convert[float32](t, convert[string](t, float32(0.1))))
		assert.Equal(t, "0.1", convert[string](t, float32(0.1)))
		assert.Equal(t, "-340282350000000000000000000000000000000", convert[string](t, float32(-math.MaxFloat32)))
		assert.Equal(t, float32(-math.MaxFloat32), convert[float32](t, "-340282350000000000000000000000000000000"))
	})

	t.Run("big integers", func(t *testing.T) {
		n, ok := new(big.Int).SetString("123456789012345678901234567890", 10)
		require.True(t, ok)
		assert.Equal(t, "123456789012345678901234567890", convert[string](t, n))
		assert.Equal(t, 0, n.Cmp(convert[*big.Int](t, "123456789012345678901234567890")))
		assert.Equal(t, int64(12), convert[int64](t, big.NewInt(12)))
	})

	t.Run("bools", func(t *testing.T) {
		assert.Equal(t, "1", convert[string](t, true))
		assert.True(t, convert[bool](t, "1"))
		assert.False(t, convert[bool](t, int64(0)))
		assert.Equal(t, int64(1), convert[int64](t, true))
	})

	t.Run("durations", func(t *testing.T) {
		assert.Equal(t, "1500000000", convert[string](t, 1500*time.Millisecond))
		assert.Equal(t, 90*time.Second, convert[time.Duration](t, "90000000000"))
		assert.Equal(t, 90*time.Second, convert[time.Duration](t, "1m30s"))
		assert.Equal(t, int64(time.Second), convert[int64](t, time.Second))
	})

	t.Run("times", func(t *testing.T) {
		ts := time.Date(2024, 3, 4, 5, 6, 7, 8, time.UTC)
		assert.Equal(t, "2024-03-04T05:06:07.000000008Z", convert[string](t, ts))
		assert.True(t, ts.Equal(convert[time.Time](t, "2024-03-04T05:06:07.000000008Z")))

		dt := convert[strfmt.DateTime](t, "2024-03-04T05:06:07.000000008Z")
		assert.True(t, ts.Equal(time.Time(dt)))
		assert.Equal(t, "2024-03-04T05:06:07.000000008Z", convert[string](t, dt))

		unix := convert[attributevalue.UnixTime](t, "1709528767")
		assert.Equal(t, int64(1709528767), time.Time(unix).Unix())
		assert.Equal(t, "1709528767", convert[string](t, unix))
		assert.True(t, ts.Equal(convert[time.Time](t, strfmt.DateTime(ts))))
	})

	t.Run("uuids", func(t *testing.T) {
		id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
		assert.Equal(t, id.String(), convert[string](t, id))
		assert.Equal(t, id, convert[uuid.UUID](t, id.String()))
		assert.Equal(t, id[:], convert[[]byte](t, id))
	})

	t.Run("named byte slices", func(t *testing.T) {
		assert.Equal(t, "hi", convert[string](t, blob("hi")))
		assert.Equal(t, []byte("hi"), convert[[]byte](t, blob("hi")))
		assert.Equal(t, blob("hi"), convert[blob](t, []byte("hi")))
		assert.Equal(t, json.RawMessage(`[1]`), convert[json.RawMessage](t, "[1]"))
	})

	t.Run("named strings keep their value", func(t *testing.T) {
		assert.Equal(t, "a", convert[string](t, labelled("a")))
		assert.Equal(t, labelled("a"), convert[labelled](t, "a"))
	})

	t.Run("enums by name", func(t *testing.T) {
		assert.Equal(t, "SHIPPED", convert[string](t, shipped))
		assert.Equal(t, userID("CANCELLED"), convert[userID](t, cancelled))
		assert.Equal(t, shipped, convert[status](t, "SHIPPED"))
		assert.Equal(t, pending, convert[status](t, userID("PENDING")))
	})

	t.Run("unknown enum name", func(t *testing.T) {
		c, err := GetConverter(stringType, reflect.TypeFor[status]())
		require.NoError(t, err)
		_, err = c.Convert("shipped")
		assert.ErrorIs(t, err, ErrUnknownEnum)
	})

	t.Run("overflow is an error", func(t *testing.T) {
		c, err := GetConverter(stringType, reflect.TypeFor[int8]())
		require.NoError(t, err)
		_, err = c.Convert("128")
		assert.Error(t, err)

		c, err = GetConverter(reflect.TypeFor[int](), reflect.TypeFor[uint]())
		require.NoError(t, err)
		_, err = c.Convert(-1)
		assert.Error(t, err)
	})

	t.Run("invalid text", func(t *testing.T) {
		c, err := GetConverter(stringType, reflect.TypeFor[int]())
		require.NoError(t, err)
		_, err = c.Convert("1.5")
		assert.Error(t, err)
	})

	t.Run("non finite floats", func(t *testing.T) {
		c, err := GetConverter(reflect.TypeFor[float64](), stringType)
		require.NoError(t, err)
		_, err = c.Convert(math.Inf(1))
		assert.Error(t, err)
	})

	t.Run("no converter", func(t *testing.T) {
		_, err := GetConverter(reflect.TypeFor[uuid.UUID](), reflect.TypeFor[float64]())
		var nc *NoConverterError
		require.ErrorAs(t, err, &nc)
		assert.ErrorIs(t, err, ErrNoConverter)
		assert.Equal(t, reflect.TypeFor[uuid.UUID](), nc.From)
		assert.Equal(t, reflect.TypeFor[float64](), nc.To)

		_, err = GetConverter(reflect.TypeFor[struct{ A int }](), stringType)
		assert.ErrorIs(t, err, ErrNoConverter)
	})
}
