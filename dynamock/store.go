package dynamock

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
)

// Store is an in-memory DynamoDBAPI. Tables are created with CreateTable and
// items are addressed by the table's key schema. Condition expressions are
// evaluated when they only use attribute_exists, attribute_not_exists, "="
// and AND; anything else is rejected as a validation error.
type Store struct {
	mu     sync.Mutex
	tables map[string]*memTable
}

type memTable struct {
	keys  []string
	items map[string]map[string]types.AttributeValue
}

var _ DynamoDBAPI = (*Store)(nil)

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{tables: make(map[string]*memTable)}
}

// CreateTable registers a table using the input's key schema.
func (s *Store) CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := aws.ToString(params.TableName)
	if _, ok := s.tables[name]; ok {
		return nil, &types.ResourceInUseException{Message: aws.String("table already exists: " + name)}
	}
	t := &memTable{items: make(map[string]map[string]types.AttributeValue)}
	for _, k := range params.KeySchema {
		t.keys = append(t.keys, aws.ToString(k.AttributeName))
	}
	s.tables[name] = t
	return &dynamodb.CreateTableOutput{
		TableDescription: &types.TableDescription{
			TableName:   params.TableName,
			KeySchema:   params.KeySchema,
			TableStatus: types.TableStatusActive,
		},
	}, nil
}

// PutItem stores an item, replacing any item with the same key.
func (s *Store) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.table(params.TableName)
	if err != nil {
		return nil, err
	}
	id, err := t.id(params.Item)
	if err != nil {
		return nil, err
	}
	if err := check(params.ConditionExpression, params.ExpressionAttributeNames, params.ExpressionAttributeValues, t.items[id]); err != nil {
		return nil, err
	}
	t.items[id] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

// GetItem returns the item with the given key, or an output with a nil item.
func (s *Store) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.table(params.TableName)
	if err != nil {
		return nil, err
	}
	id, err := t.id(params.Key)
	if err != nil {
		return nil, err
	}
	return &dynamodb.GetItemOutput{Item: t.items[id]}, nil
}

// DeleteItem removes the item with the given key.
func (s *Store) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.table(params.TableName)
	if err != nil {
		return nil, err
	}
	id, err := t.id(params.Key)
	if err != nil {
		return nil, err
	}
	if err := check(params.ConditionExpression, params.ExpressionAttributeNames, params.ExpressionAttributeValues, t.items[id]); err != nil {
		return nil, err
	}
	delete(t.items, id)
	return &dynamodb.DeleteItemOutput{}, nil
}

// Items returns the items of a table in key order.
func (s *Store) Items(table string) []map[string]types.AttributeValue {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tables[table]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(t.items))
	for id := range t.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]map[string]types.AttributeValue, 0, len(ids))
	for _, id := range ids {
		out = append(out, t.items[id])
	}
	return out
}

func (s *Store) table(name *string) (*memTable, error) {
	t, ok := s.tables[aws.ToString(name)]
	if !ok {
		return nil, &types.ResourceNotFoundException{Message: aws.String("table not found: " + aws.ToString(name))}
	}
	return t, nil
}

func (t *memTable) id(item map[string]types.AttributeValue) (string, error) {
	parts := make([]string, 0, len(t.keys))
	for _, k := range t.keys {
		av, ok := item[k]
		if !ok {
			return "", validationError("missing key attribute " + k)
		}
		switch v := av.(type) {
		case *types.AttributeValueMemberS:
			parts = append(parts, "S:"+v.Value)
		case *types.AttributeValueMemberN:
			parts = append(parts, "N:"+v.Value)
		case *types.AttributeValueMemberB:
			parts = append(parts, fmt.Sprintf("B:%x", v.Value))
		default:
			return "", validationError(fmt.Sprintf("key attribute %s has type %T", k, av))
		}
	}
	return strings.Join(parts, "|"), nil
}

// check evaluates a condition expression against the stored item, which is
// nil when no item exists.
func check(expr *string, names map[string]string, values map[string]types.AttributeValue, item map[string]types.AttributeValue) error {
	if expr == nil || *expr == "" {
		return nil
	}
	for _, clause := range strings.Split(*expr, " AND ") {
		clause = strings.Trim(strings.TrimSpace(clause), "()")
		clause = strings.TrimSpace(clause)

		ok, err := evalClause(clause, names, values, item)
		if err != nil {
			return err
		}
		if !ok {
			return ConditionalCheckFailed()
		}
	}
	return nil
}

func evalClause(clause string, names map[string]string, values map[string]types.AttributeValue, item map[string]types.AttributeValue) (bool, error) {
	name := func(token string) (string, error) {
		token = strings.Trim(strings.TrimSpace(token), "()")
		token = strings.TrimSpace(token)
		if n, ok := names[token]; ok {
			return n, nil
		}
		if strings.HasPrefix(token, "#") {
			return "", validationError("undefined name " + token)
		}
		return token, nil
	}

	switch {
	case strings.HasPrefix(clause, "attribute_not_exists"):
		n, err := name(strings.TrimPrefix(clause, "attribute_not_exists"))
		if err != nil {
			return false, err
		}
		_, exists := item[n]
		return !exists, nil
	case strings.HasPrefix(clause, "attribute_exists"):
		n, err := name(strings.TrimPrefix(clause, "attribute_exists"))
		if err != nil {
			return false, err
		}
		_, exists := item[n]
		return exists, nil
	}

	lhs, rhs, ok := strings.Cut(clause, "=")
	if !ok {
		return false, validationError("unsupported condition " + clause)
	}
	n, err := name(lhs)
	if err != nil {
		return false, err
	}
	want, ok := values[strings.TrimSpace(rhs)]
	if !ok {
		return false, validationError("undefined value " + strings.TrimSpace(rhs))
	}
	got, exists := item[n]
	return exists && reflect.DeepEqual(got, want), nil
}

func validationError(msg string) error {
	return &smithy.GenericAPIError{Code: "ValidationException", Message: msg, Fault: smithy.FaultClient}
}
