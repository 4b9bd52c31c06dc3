package dynamock

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// SeedFromJSON puts every object of a JSON array read from r into table.
// Objects are converted with attributevalue.MarshalMap, so JSON numbers
// become N, strings S, booleans BOOL, arrays L and objects M. Returns the
// number of items written.
func SeedFromJSON(ctx context.Context, client DynamoDBAPI, table string, r io.Reader) (int, error) {
	var document []map[string]any
	if err := json.NewDecoder(r).Decode(&document); err != nil {
		return 0, fmt.Errorf("failed to parse JSON document: %w", err)
	}

	count := 0
	for i, obj := range document {
		item, err := attributevalue.MarshalMap(obj)
		if err != nil {
			return count, fmt.Errorf("failed to convert object at index %d: %w", i, err)
		}
		if _, err := client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: aws.String(table),
			Item:      item,
		}); err != nil {
			return count, fmt.Errorf("failed to seed object at index %d: %w", i, err)
		}
		count++
	}
	return count, nil
}
