package dynamodel

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Sentinel errors. Every typed error below matches exactly one of these
// through errors.Is.
var (
	// ErrItemNotFound is returned when an item is not found in DynamoDB operations.
	ErrItemNotFound = errors.New("item not found")

	// ErrVersionConflict is returned when a conditional write on a versioned
	// attribute is rejected by the table.
	ErrVersionConflict = errors.New("version conflict")

	ErrNoConverter        = errors.New("no converter")
	ErrFieldConversion    = errors.New("field conversion failed")
	ErrDuplicateValue     = errors.New("duplicate set value")
	ErrMissingKey         = errors.New("missing key")
	ErrDuplicateIndex     = errors.New("duplicate index")
	ErrIndexMissingHash   = errors.New("index missing hash key")
	ErrDuplicateAttribute = errors.New("duplicate attribute")
	ErrDuplicateKey       = errors.New("duplicate key")
	ErrInvalidVersion     = errors.New("invalid version attribute")
	ErrUnknownEnum        = errors.New("unknown enum value")
	ErrNullKeyValue       = errors.New("null key value")
	ErrInvalidKey         = errors.New("invalid key attribute")
)

// NoConverterError reports that no registered or derivable conversion exists
// between two types.
type NoConverterError struct {
	From reflect.Type
	To   reflect.Type
}

func (e *NoConverterError) Error() string {
	return fmt.Sprintf("no converter from %v to %v", e.From, e.To)
}

func (e *NoConverterError) Is(target error) bool {
	return target == ErrNoConverter
}

// FieldConversionError wraps a converter failure with the model type and
// attribute it occurred on.
type FieldConversionError struct {
	Type      reflect.Type
	Attribute string
	Cause     error
}

func (e *FieldConversionError) Error() string {
	return fmt.Sprintf("failed to convert %v[%s]: %v", e.Type, e.Attribute, e.Cause)
}

func (e *FieldConversionError) Is(target error) bool {
	return target == ErrFieldConversion
}

func (e *FieldConversionError) Unwrap() error {
	return e.Cause
}

// DuplicateValueError is returned when two elements of a set collapse into
// the same converted value.
type DuplicateValueError struct {
	Value any
}

func (e *DuplicateValueError) Error() string {
	return fmt.Sprintf("duplicate value %v in set", e.Value)
}

func (e *DuplicateValueError) Is(target error) bool {
	return target == ErrDuplicateValue
}

// MissingKeyError is returned when a hash or range key is requested but the
// model does not declare one.
type MissingKeyError struct {
	Role types.KeyType
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("no %s key modeled", e.Role)
}

func (e *MissingKeyError) Is(target error) bool {
	return target == ErrMissingKey
}

// DuplicateIndexError is returned by Build when two fields claim the same
// component of a secondary index.
type DuplicateIndexError struct {
	Name string
}

func (e *DuplicateIndexError) Error() string {
	return fmt.Sprintf("duplicate index %q", e.Name)
}

func (e *DuplicateIndexError) Is(target error) bool {
	return target == ErrDuplicateIndex
}

// IndexMissingHashError is returned by Build when a field declares the range
// component of a global secondary index that has no hash component.
type IndexMissingHashError struct {
	Name string
}

func (e *IndexMissingHashError) Error() string {
	return fmt.Sprintf("index %q has a range key but no hash key", e.Name)
}

func (e *IndexMissingHashError) Is(target error) bool {
	return target == ErrIndexMissingHash
}

type DuplicateAttributeError struct {
	Name string
}

func (e *DuplicateAttributeError) Error() string {
	return fmt.Sprintf("attribute %q is mapped more than once", e.Name)
}

func (e *DuplicateAttributeError) Is(target error) bool {
	return target == ErrDuplicateAttribute
}

type DuplicateKeyError struct {
	Role       types.KeyType
	Attributes [2]string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("%s key declared on both %q and %q", e.Role, e.Attributes[0], e.Attributes[1])
}

func (e *DuplicateKeyError) Is(target error) bool {
	return target == ErrDuplicateKey
}

// InvalidVersionError is returned when a version attribute is not numeric.
type InvalidVersionError struct {
	Attribute string
	Type      reflect.Type
}

func (e *InvalidVersionError) Error() string {
	return fmt.Sprintf("version attribute %q has non-integer type %v", e.Attribute, e.Type)
}

func (e *InvalidVersionError) Is(target error) bool {
	return target == ErrInvalidVersion
}

// UnknownEnumError is returned when a string does not name any declared value
// of an enum type.
type UnknownEnumError struct {
	Type  reflect.Type
	Value string
}

func (e *UnknownEnumError) Error() string {
	return fmt.Sprintf("%q is not a value of %v", e.Value, e.Type)
}

func (e *UnknownEnumError) Is(target error) bool {
	return target == ErrUnknownEnum
}

// InvalidKeyError is returned by Build when a key or index attribute does not
// encode to a string, number or binary value.
type InvalidKeyError struct {
	Attribute string
	Type      reflect.Type
}

func (e *InvalidKeyError) Error() string {
	return fmt.Sprintf("key attribute %q has type %v with no scalar attribute type", e.Attribute, e.Type)
}

func (e *InvalidKeyError) Is(target error) bool {
	return target == ErrInvalidKey
}
