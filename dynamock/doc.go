// Package dynamock provides testing utilities for the dynamodel library.
//
// This package includes:
//   - Expectation-based mock DynamoDB client for unit testing
//   - An in-memory Store that honors version conditions
//   - Local DynamoDB integration utilities
//   - JSON seeding for test tables
//
// # Mock Client
//
// The MockClient fails the test on any call without an expectation:
//
//	mock := dynamock.NewMockClient(t)
//	mock.PutFunc = func(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
//		return nil, dynamock.ConditionalCheckFailed()
//	}
//
//	err := table.Save(ctx, mock, order) // wraps dynamodel.ErrVersionConflict
//
// # Store
//
// Store keeps items in memory, keyed by the key schema passed to
// CreateTable:
//
//	store := dynamock.NewStore()
//	_ = table.Create(ctx, store)
//	_ = table.Save(ctx, store, order)
//	assert.Items(t, store.Items("orders")).HasCount(1)
//
// # Local DynamoDB
//
//	dynamock.WithLocalDynamoDB(t, dynamock.DefaultLocalPort, func(local *dynamock.LocalDynamoDB) {
//		input, _ := table.MarshalCreateTable()
//		dynamock.WithIsolatedTable(t, local, input, func(name string) {
//			// ...
//		})
//	})
package dynamock
