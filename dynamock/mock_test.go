package dynamock

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
)

func TestNewMockClient(t *testing.T) {
	mock := NewMockClient(t)

	if mock.PutFunc == nil || mock.GetFunc == nil || mock.DeleteFunc == nil || mock.CreateTableFunc == nil {
		t.Fatal("NewMockClient left a function unset")
	}
}

func TestMockClient_WithExpectations(t *testing.T) {
	mock := NewMockClient(t)
	ctx := context.Background()

	mock.PutFunc = func(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
		if aws.ToString(params.TableName) != "test-table" {
			t.Errorf("expected table name test-table, got %s", aws.ToString(params.TableName))
		}
		return &dynamodb.PutItemOutput{}, nil
	}
	mock.GetFunc = func(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
		return &dynamodb.GetItemOutput{Item: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: "1"},
		}}, nil
	}
	mock.DeleteFunc = func(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
		return nil, ConditionalCheckFailed()
	}

	if _, err := mock.PutItem(ctx, &dynamodb.PutItemInput{TableName: aws.String("test-table")}); err != nil {
		t.Fatalf("PutItem failed: %v", err)
	}

	out, err := mock.GetItem(ctx, &dynamodb.GetItemInput{TableName: aws.String("test-table")})
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if len(out.Item) != 1 {
		t.Errorf("expected 1 attribute, got %d", len(out.Item))
	}

	_, err = mock.DeleteItem(ctx, &dynamodb.DeleteItemInput{TableName: aws.String("test-table")})
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) || apiErr.ErrorCode() != "ConditionalCheckFailedException" {
		t.Errorf("expected conditional check failure, got %v", err)
	}
}
