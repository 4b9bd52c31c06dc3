package dynamodel

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/gob"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

func init() {
	gob.Register(&types.AttributeValueMemberS{})
	gob.Register(&types.AttributeValueMemberN{})
	gob.Register(&types.AttributeValueMemberB{})
	gob.Register(&types.AttributeValueMemberSS{})
	gob.Register(&types.AttributeValueMemberNS{})
	gob.Register(&types.AttributeValueMemberBS{})
	gob.Register(&types.AttributeValueMemberM{})
	gob.Register(&types.AttributeValueMemberL{})
	gob.Register(&types.AttributeValueMemberNULL{})
	gob.Register(&types.AttributeValueMemberBOOL{})
}

// DefaultPaginationTTL is how long page cursors stay readable.
const DefaultPaginationTTL = 24 * time.Hour

// Paginator handles pagination by converting last evaluated keys into string
// cursors for clients, and in turn converting client cursors into start keys
// to continue paging of query results.
type Paginator interface {
	// PageCursor generates a string token from the provided start key. Implementors
	// should return an empty token if the start key is nil or empty.
	PageCursor(ctx context.Context, lastkey Item) (string, error)
	// StartKey generates a dynamodb start key from the provided cursor. Implementors
	// should return a nil item if the cursor is an empty string.
	StartKey(ctx context.Context, cursor string) (Item, error)
}

// PageCursor is the item a TablePaginator stores for each issued cursor. Key
// holds the gob encoded last evaluated key.
type PageCursor struct {
	Cursor  string
	Key     []byte
	Expires attributevalue.UnixTime
}

// Attribute names used by page cursor items besides the table key.
const (
	PageKeyAttribute     = "page_key"
	PageExpiresAttribute = "page_expires"
)

// TablePaginator implements Paginator by storing start keys in the table the
// query ran against. Cursor items write the cursor to every string key
// attribute of the table and should be expired with a TTL on
// PageExpiresAttribute.
type TablePaginator struct {
	table  *Table[PageCursor]
	client DynamoDBClient
	ttl    time.Duration
}

// PageCursorModel maps PageCursor onto a table keyed by hashName and, when
// not empty, rangeName.
func PageCursorModel(hashName, rangeName string) (*TableModel[PageCursor], error) {
	b := NewBuilder[PageCursor](nil).With(
		Field(hashName,
			func(p *PageCursor) string { return p.Cursor },
			func(p *PageCursor, v string) { p.Cursor = v },
			HashKey()),
		Field(PageKeyAttribute,
			func(p *PageCursor) []byte { return p.Key },
			func(p *PageCursor, v []byte) { p.Key = v }),
		Field(PageExpiresAttribute,
			func(p *PageCursor) attributevalue.UnixTime { return p.Expires },
			func(p *PageCursor, v attributevalue.UnixTime) { p.Expires = v }),
	)
	if rangeName != "" {
		b.With(Field(rangeName,
			func(p *PageCursor) string { return p.Cursor },
			func(p *PageCursor, v string) {},
			RangeKey()))
	}
	return b.Build()
}

// Paginator returns a Paginator storing cursors in this table. The table's
// key attributes must be strings.
func (t *Table[T]) Paginator(client DynamoDBClient, ttl time.Duration) (*TablePaginator, error) {
	hash, err := t.Model.HashKey()
	if err != nil {
		return nil, fmt.Errorf("failed to build page cursor model: %w", err)
	}
	if hash.Category() != types.ScalarAttributeTypeS {
		return nil, fmt.Errorf("failed to build page cursor model: hash key %q is not a string", hash.Name())
	}
	var rangeName string
	if rng, ok := t.Model.RangeKeyIfExists(); ok {
		if rng.Category() != types.ScalarAttributeTypeS {
			return nil, fmt.Errorf("failed to build page cursor model: range key %q is not a string", rng.Name())
		}
		rangeName = rng.Name()
	}

	model, err := PageCursorModel(hash.Name(), rangeName)
	if err != nil {
		return nil, fmt.Errorf("failed to build page cursor model: %w", err)
	}
	if ttl <= 0 {
		ttl = DefaultPaginationTTL
	}
	return &TablePaginator{
		table: &Table[PageCursor]{
			Name:   t.Name,
			Model:  model,
			Clock:  t.Clock,
			Logger: t.Logger,
		},
		client: client,
		ttl:    ttl,
	}, nil
}

// PageCursor implements Paginator by storing the last evaluated key in the
// table. If lastkey is empty, an empty string is returned.
func (p *TablePaginator) PageCursor(ctx context.Context, lastkey Item) (string, error) {
	if len(lastkey) == 0 {
		return "", nil
	}

	cursor, err := generateCursor()
	if err != nil {
		return "", fmt.Errorf("failed to generate cursor: %w", err)
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(lastkey); err != nil {
		return "", fmt.Errorf("failed to encode last key: %w", err)
	}

	page := &PageCursor{
		Cursor:  cursor,
		Key:     buf.Bytes(),
		Expires: attributevalue.UnixTime(p.table.now().Add(p.ttl)),
	}
	if err := p.table.Save(ctx, p.client, page); err != nil {
		return "", fmt.Errorf("failed to store page cursor: %w", err)
	}
	return cursor, nil
}

// StartKey implements Paginator by loading the item stored for cursor. A
// missing or expired cursor yields a nil key.
func (p *TablePaginator) StartKey(ctx context.Context, cursor string) (Item, error) {
	if cursor == "" {
		return nil, nil
	}

	page, err := p.table.Load(ctx, p.client, cursor, cursor)
	if errors.Is(err, ErrItemNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get page cursor: %w", err)
	}
	if !time.Time(page.Expires).IsZero() && p.table.now().After(time.Time(page.Expires)) {
		return nil, nil
	}
	if len(page.Key) == 0 {
		return nil, nil
	}

	var key Item
	if err := gob.NewDecoder(bytes.NewReader(page.Key)).Decode(&key); err != nil {
		return nil, fmt.Errorf("failed to decode last key: %w", err)
	}
	return key, nil
}

// generateCursor creates a unique cursor string using current time and random bytes
func generateCursor() (string, error) {
	randomBytes := make([]byte, 8)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", err
	}
	combined := fmt.Sprintf("%d_%s", time.Now().UnixNano(), base64.URLEncoding.EncodeToString(randomBytes))
	return base64.URLEncoding.EncodeToString([]byte(combined)), nil
}
