package dynamock

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOrdersStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore()
	_, err := s.CreateTable(context.Background(), &dynamodb.CreateTableInput{
		TableName: aws.String("orders"),
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("customer"), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String("seq"), KeyType: types.KeyTypeRange},
		},
	})
	require.NoError(t, err)
	return s
}

func order(customer, seq, rev string) map[string]types.AttributeValue {
	item := map[string]types.AttributeValue{
		"customer": &types.AttributeValueMemberS{Value: customer},
		"seq":      &types.AttributeValueMemberN{Value: seq},
	}
	if rev != "" {
		item["rev"] = &types.AttributeValueMemberN{Value: rev}
	}
	return item
}

func errorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

func TestStore(t *testing.T) {
	ctx := context.Background()

	t.Run("put get delete", func(t *testing.T) {
		s := newOrdersStore(t)

		_, err := s.PutItem(ctx, &dynamodb.PutItemInput{TableName: aws.String("orders"), Item: order("C1", "1", "")})
		require.NoError(t, err)

		out, err := s.GetItem(ctx, &dynamodb.GetItemInput{TableName: aws.String("orders"), Key: order("C1", "1", "")})
		require.NoError(t, err)
		assert.Equal(t, order("C1", "1", ""), out.Item)

		_, err = s.DeleteItem(ctx, &dynamodb.DeleteItemInput{TableName: aws.String("orders"), Key: order("C1", "1", "")})
		require.NoError(t, err)
		assert.Empty(t, s.Items("orders"))
	})

	t.Run("unknown table", func(t *testing.T) {
		s := NewStore()
		_, err := s.GetItem(ctx, &dynamodb.GetItemInput{TableName: aws.String("missing")})
		var notFound *types.ResourceNotFoundException
		assert.ErrorAs(t, err, &notFound)
	})

	t.Run("missing key attribute", func(t *testing.T) {
		s := newOrdersStore(t)
		_, err := s.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: aws.String("orders"),
			Item:      map[string]types.AttributeValue{"customer": &types.AttributeValueMemberS{Value: "C1"}},
		})
		assert.Equal(t, "ValidationException", errorCode(err))
	})

	t.Run("attribute_not_exists condition", func(t *testing.T) {
		s := newOrdersStore(t)
		put := &dynamodb.PutItemInput{
			TableName:                aws.String("orders"),
			Item:                     order("C1", "1", "1"),
			ConditionExpression:      aws.String("attribute_not_exists (#0)"),
			ExpressionAttributeNames: map[string]string{"#0": "rev"},
		}
		_, err := s.PutItem(ctx, put)
		require.NoError(t, err)

		_, err = s.PutItem(ctx, put)
		assert.Equal(t, "ConditionalCheckFailedException", errorCode(err))
	})

	t.Run("equality condition joined with AND", func(t *testing.T) {
		s := newOrdersStore(t)
		_, err := s.PutItem(ctx, &dynamodb.PutItemInput{TableName: aws.String("orders"), Item: order("C1", "1", "3")})
		require.NoError(t, err)

		put := func(expected string) error {
			_, err := s.PutItem(ctx, &dynamodb.PutItemInput{
				TableName:                aws.String("orders"),
				Item:                     order("C1", "1", "4"),
				ConditionExpression:      aws.String("(#0 = :0) AND (attribute_exists (#1))"),
				ExpressionAttributeNames: map[string]string{"#0": "rev", "#1": "customer"},
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":0": &types.AttributeValueMemberN{Value: expected},
				},
			})
			return err
		}

		assert.Equal(t, "ConditionalCheckFailedException", errorCode(put("2")))
		assert.NoError(t, put("3"))
	})

	t.Run("unsupported condition", func(t *testing.T) {
		s := newOrdersStore(t)
		_, err := s.PutItem(ctx, &dynamodb.PutItemInput{
			TableName:           aws.String("orders"),
			Item:                order("C1", "1", ""),
			ConditionExpression: aws.String("begins_with (#0, :0)"),
		})
		assert.Equal(t, "ValidationException", errorCode(err))
	})
}

func TestSeedFromJSON(t *testing.T) {
	s := newOrdersStore(t)

	n, err := SeedFromJSON(context.Background(), s, "orders", strings.NewReader(`[
		{"customer": "C1", "seq": 1, "note": "first"},
		{"customer": "C1", "seq": 2, "paid": true}
	]`))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	items := s.Items("orders")
	require.Len(t, items, 2)
	assert.Equal(t, &types.AttributeValueMemberN{Value: "1"}, items[0]["seq"])
	assert.Equal(t, &types.AttributeValueMemberS{Value: "first"}, items[0]["note"])
	assert.Equal(t, &types.AttributeValueMemberBOOL{Value: true}, items[1]["paid"])

	_, err = SeedFromJSON(context.Background(), s, "orders", strings.NewReader(`{"not": "an array"}`))
	assert.Error(t, err)
}
