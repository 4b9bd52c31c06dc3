package dynamock

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// NewTestTable generates a unique table name for testing.
func NewTestTable(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

// WithLocalDynamoDB runs fn against DynamoDB Local on port. The test is
// skipped in short mode or when DynamoDB Local is not running.
func WithLocalDynamoDB(t *testing.T, port int, fn func(local *LocalDynamoDB)) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	local := NewLocalDynamoDB(port)
	if !local.IsAvailable(context.Background()) {
		t.Skipf("DynamoDB Local not available on port %d", port)
	}
	fn(local)
}

// WithIsolatedTable creates a uniquely named copy of the table described by
// input, runs fn with its name and deletes it afterwards. input is not
// modified.
func WithIsolatedTable(t *testing.T, local *LocalDynamoDB, input *dynamodb.CreateTableInput, fn func(tableName string)) {
	t.Helper()
	ctx := context.Background()

	name := strings.NewReplacer("/", "-", " ", "-").Replace(NewTestTable("test-" + t.Name()))
	create := *input
	create.TableName = aws.String(name)

	if err := local.CreateTable(ctx, &create); err != nil {
		t.Fatalf("Failed to create test table %s: %v", name, err)
	}
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := local.DeleteTable(cleanupCtx, name); err != nil {
			t.Errorf("Failed to cleanup table %s: %v", name, err)
		}
	}()

	fn(name)
}
