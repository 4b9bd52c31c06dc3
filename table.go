package dynamodel

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/sirupsen/logrus"
)

// Clock is a function type that returns the current time for dependency injection.
type Clock func() time.Time

// DefaultClock returns the current UTC time.
func DefaultClock() time.Time {
	return time.Now().UTC()
}

// DynamoDBClient interface for easier testing and connection management.
type DynamoDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

// Table binds a TableModel to a named DynamoDB table.
type Table[T any] struct {
	Name   string             // DynamoDB table name
	Model  *TableModel[T]     // item mapping
	Clock  Clock              // time source for expiring items
	Logger logrus.FieldLogger // request logging; discarded when nil
}

// NewTable creates a Table with the default clock.
func NewTable[T any](name string, model *TableModel[T]) *Table[T] {
	return &Table[T]{
		Name:  name,
		Model: model,
		Clock: DefaultClock,
	}
}

func (t *Table[T]) log() logrus.FieldLogger {
	if t.Logger != nil {
		return t.Logger.WithField("table", t.Name)
	}
	return discardLogger
}

func (t *Table[T]) now() time.Time {
	if t.Clock != nil {
		return t.Clock()
	}
	return DefaultClock()
}

// MarshalPut marshals obj into a put item request. Version attributes are
// written one past their current value, and the request only succeeds if the
// stored item still holds the current value, or does not exist when the
// current value is zero. obj itself is not modified.
func (t *Table[T]) MarshalPut(obj *T) (*dynamodb.PutItemInput, error) {
	input, _, err := t.marshalPut(obj)
	return input, err
}

func (t *Table[T]) marshalPut(obj *T) (*dynamodb.PutItemInput, *T, error) {
	next := *obj
	var cond *expression.ConditionBuilder

	for _, f := range t.Model.Versions() {
		current := f.Get(obj)
		bumped, initial, err := nextVersion(current, f.Type())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to increment version %q: %w", f.Name(), err)
		}
		if err := f.Set(&next, bumped); err != nil {
			return nil, nil, fmt.Errorf("failed to increment version %q: %w", f.Name(), err)
		}
		if initial {
			cond = andCondition(cond, expression.Name(f.Name()).AttributeNotExists())
		} else {
			cond = andCondition(cond, expression.Name(f.Name()).Equal(expression.Value(current)))
		}
	}

	item, err := t.Model.Convert(&next)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal item: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(t.Name),
		Item:      item,
	}
	if cond != nil {
		expr, err := expression.NewBuilder().WithCondition(*cond).Build()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to build condition: %w", err)
		}
		input.ConditionExpression = expr.Condition()
		input.ExpressionAttributeNames = expr.Names()
		input.ExpressionAttributeValues = expr.Values()
	}
	return input, &next, nil
}

// MarshalGet marshals a get item request for the item with the given key
// values. rangeValue is ignored when the model has no range key.
func (t *Table[T]) MarshalGet(hashValue, rangeValue any) (*dynamodb.GetItemInput, error) {
	key, err := t.Model.ConvertKey(hashValue, rangeValue)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal key: %w", err)
	}
	return &dynamodb.GetItemInput{
		TableName: aws.String(t.Name),
		Key:       key,
	}, nil
}

// MarshalDelete marshals a delete item request for obj's key. When obj has
// non-zero version attributes the delete only succeeds if the stored item
// holds the same versions.
func (t *Table[T]) MarshalDelete(obj *T) (*dynamodb.DeleteItemInput, error) {
	key, err := t.Model.ConvertKeyOf(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal key: %w", err)
	}

	input := &dynamodb.DeleteItemInput{
		TableName: aws.String(t.Name),
		Key:       key,
	}

	var cond *expression.ConditionBuilder
	for _, f := range t.Model.Versions() {
		current := f.Get(obj)
		if isNil(current) || reflect.ValueOf(current).IsZero() {
			continue
		}
		cond = andCondition(cond, expression.Name(f.Name()).Equal(expression.Value(current)))
	}
	if cond != nil {
		expr, err := expression.NewBuilder().WithCondition(*cond).Build()
		if err != nil {
			return nil, fmt.Errorf("failed to build condition: %w", err)
		}
		input.ConditionExpression = expr.Condition()
		input.ExpressionAttributeNames = expr.Names()
		input.ExpressionAttributeValues = expr.Values()
	}
	return input, nil
}

// MarshalCreateTable marshals a create table request from the model's key
// schema and secondary indexes. The table uses on-demand billing.
func (t *Table[T]) MarshalCreateTable() (*dynamodb.CreateTableInput, error) {
	if _, err := t.Model.HashKey(); err != nil {
		return nil, fmt.Errorf("failed to marshal key schema: %w", err)
	}
	input := &dynamodb.CreateTableInput{
		TableName:            aws.String(t.Name),
		AttributeDefinitions: t.Model.AttributeDefinitions(),
		KeySchema:            t.Model.KeySchema(),
		BillingMode:          types.BillingModePayPerRequest,
	}
	if gsis := t.Model.GlobalSecondaryIndexes(); len(gsis) > 0 {
		input.GlobalSecondaryIndexes = gsis
	}
	if lsis := t.Model.LocalSecondaryIndexes(); len(lsis) > 0 {
		input.LocalSecondaryIndexes = lsis
	}
	return input, nil
}

// Save writes obj to the table. On success the version attributes of obj
// are updated to the values written. A rejected version check returns
// ErrVersionConflict.
func (t *Table[T]) Save(ctx context.Context, client DynamoDBClient, obj *T) error {
	input, next, err := t.marshalPut(obj)
	if err != nil {
		return err
	}
	if _, err := client.PutItem(ctx, input); err != nil {
		if isConditionFailure(err) {
			t.log().WithError(err).Debug("put rejected by version check")
			return fmt.Errorf("failed to put item: %w: %w", ErrVersionConflict, err)
		}
		return fmt.Errorf("failed to put item: %w", err)
	}
	for _, f := range t.Model.Versions() {
		if err := f.Set(obj, f.Get(next)); err != nil {
			return fmt.Errorf("failed to update version %q: %w", f.Name(), err)
		}
	}
	t.log().WithField("attributes", len(input.Item)).Debug("put item")
	return nil
}

// Load reads the item with the given key values. It returns ErrItemNotFound
// when no item exists.
func (t *Table[T]) Load(ctx context.Context, client DynamoDBClient, hashValue, rangeValue any) (*T, error) {
	input, err := t.MarshalGet(hashValue, rangeValue)
	if err != nil {
		return nil, err
	}
	result, err := client.GetItem(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	if result.Item == nil {
		return nil, ErrItemNotFound
	}
	obj, err := t.Model.Unconvert(result.Item)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal item: %w", err)
	}
	return obj, nil
}

// Delete removes obj's item from the table. A rejected version check returns
// ErrVersionConflict.
func (t *Table[T]) Delete(ctx context.Context, client DynamoDBClient, obj *T) error {
	input, err := t.MarshalDelete(obj)
	if err != nil {
		return err
	}
	if _, err := client.DeleteItem(ctx, input); err != nil {
		if isConditionFailure(err) {
			return fmt.Errorf("failed to delete item: %w: %w", ErrVersionConflict, err)
		}
		return fmt.Errorf("failed to delete item: %w", err)
	}
	t.log().Debug("deleted item")
	return nil
}

// Create creates the table.
func (t *Table[T]) Create(ctx context.Context, client DynamoDBClient) error {
	input, err := t.MarshalCreateTable()
	if err != nil {
		return err
	}
	if _, err := client.CreateTable(ctx, input); err != nil {
		return fmt.Errorf("failed to create table %s: %w", t.Name, err)
	}
	t.log().Info("created table")
	return nil
}

func andCondition(cond *expression.ConditionBuilder, next expression.ConditionBuilder) *expression.ConditionBuilder {
	if cond == nil {
		return &next
	}
	joined := cond.And(next)
	return &joined
}

// nextVersion returns the version following current, which must be an
// integer or a pointer to one. A zero or nil current value is the initial
// version.
func nextVersion(current any, t reflect.Type) (next any, initial bool, err error) {
	elem := t
	if t.Kind() == reflect.Pointer {
		elem = t.Elem()
	}
	rv := reflect.ValueOf(current)
	if t.Kind() == reflect.Pointer {
		if current == nil || rv.IsNil() {
			rv = reflect.Zero(elem)
		} else {
			rv = rv.Elem()
		}
	}

	out := reflect.New(elem).Elem()
	switch elem.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n := rv.Int()
		if n+1 < n || out.OverflowInt(n+1) {
			return nil, false, fmt.Errorf("version %d overflows %v", n, elem)
		}
		out.SetInt(n + 1)
		initial = n == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n := rv.Uint()
		if n+1 == 0 || out.OverflowUint(n+1) {
			return nil, false, fmt.Errorf("version %d overflows %v", n, elem)
		}
		out.SetUint(n + 1)
		initial = n == 0
	default:
		return nil, false, &InvalidVersionError{Type: t}
	}

	if t.Kind() == reflect.Pointer {
		return out.Addr().Interface(), initial, nil
	}
	return out.Interface(), initial, nil
}

func isConditionFailure(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "ConditionalCheckFailedException"
}
