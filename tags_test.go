package dynamodel

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type audit struct {
	Created time.Time `ddb:"created"`
}

type account struct {
	audit
	ID      string   `ddb:"id,hash"`
	Email   string   `ddb:"email" gsi:"by-email:hash"`
	Joined  int64    `ddb:"joined,range" gsi:"by-email:range"`
	Plan    string   `lsi:"by-plan"`
	Roles   []string `ddb:"roles,set"`
	Rev     int64    `ddb:"rev,version"`
	Nick    string   `ddb:"nick,omitempty"`
	Scratch string   `ddb:"-"`
	secret  string
}

func TestFromStruct(t *testing.T) {
	m, err := FromStruct[account]()
	require.NoError(t, err)

	names := make([]string, 0)
	for _, f := range m.Fields() {
		names = append(names, f.Name())
	}
	assert.Equal(t, []string{"created", "id", "email", "joined", "Plan", "roles", "rev", "nick"}, names)

	assert.Equal(t, []types.KeySchemaElement{
		{AttributeName: aws.String("id"), KeyType: types.KeyTypeHash},
		{AttributeName: aws.String("joined"), KeyType: types.KeyTypeRange},
	}, m.KeySchema())

	gsis := m.GlobalSecondaryIndexes()
	require.Len(t, gsis, 1)
	assert.Equal(t, "by-email", *gsis[0].IndexName)
	assert.Equal(t, []types.KeySchemaElement{
		{AttributeName: aws.String("email"), KeyType: types.KeyTypeHash},
		{AttributeName: aws.String("joined"), KeyType: types.KeyTypeRange},
	}, gsis[0].KeySchema)

	lsis := m.LocalSecondaryIndexes()
	require.Len(t, lsis, 1)
	assert.Equal(t, "Plan", *lsis[0].KeySchema[1].AttributeName)

	require.Len(t, m.Versions(), 1)
	assert.Equal(t, "rev", m.Versions()[0].Name())

	t.Run("round trip", func(t *testing.T) {
		created := time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC)
		in := &account{
			audit:   audit{Created: created},
			ID:      "a1",
			Email:   "a@example.com",
			Joined:  1688169600,
			Plan:    "pro",
			Roles:   []string{"admin", "billing"},
			Rev:     2,
			Scratch: "dropped",
			secret:  "dropped",
		}

		item, err := m.Convert(in)
		require.NoError(t, err)
		assert.Equal(t, &types.AttributeValueMemberS{Value: "2023-07-01T00:00:00Z"}, item["created"])
		assert.Equal(t, &types.AttributeValueMemberSS{Value: []string{"admin", "billing"}}, item["roles"])
		assert.NotContains(t, item, "nick")
		assert.NotContains(t, item, "Scratch")
		assert.Len(t, item, 7)

		out, err := m.Unconvert(item)
		require.NoError(t, err)
		assert.True(t, created.Equal(out.Created))
		assert.Equal(t, "a1", out.ID)
		assert.Equal(t, "pro", out.Plan)
		assert.Equal(t, []string{"admin", "billing"}, out.Roles)
		assert.Empty(t, out.Scratch)
		assert.Empty(t, out.secret)
	})

	t.Run("builder options", func(t *testing.T) {
		m, err := FromStruct(func(b *Builder[account]) {
			b.Projection("by-email", types.ProjectionTypeAll)
		})
		require.NoError(t, err)
		assert.Equal(t, types.ProjectionTypeAll, m.GlobalSecondaryIndexes()[0].Projection.ProjectionType)
	})
}

func TestFromStructErrors(t *testing.T) {
	t.Run("not a struct", func(t *testing.T) {
		_, err := FromStruct[int]()
		assert.Error(t, err)
	})

	t.Run("unknown option", func(t *testing.T) {
		type bad struct {
			ID string `ddb:"id,hash,sorted"`
		}
		_, err := FromStruct[bad]()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sorted")
	})

	t.Run("malformed gsi", func(t *testing.T) {
		type bad struct {
			ID   string `ddb:"id,hash"`
			Kind string `gsi:"by-kind"`
		}
		_, err := FromStruct[bad]()
		assert.Error(t, err)
	})

	t.Run("unknown gsi role", func(t *testing.T) {
		type bad struct {
			ID   string `ddb:"id,hash"`
			Kind string `gsi:"by-kind:primary"`
		}
		_, err := FromStruct[bad]()
		assert.Error(t, err)
	})

	t.Run("model validation applies", func(t *testing.T) {
		type keyless struct {
			Name string `ddb:"name"`
		}
		_, err := FromStruct[keyless]()
		assert.ErrorIs(t, err, ErrMissingKey)
	})
}

func TestFromStructNamedScalars(t *testing.T) {
	type doc struct {
		ID    string          `ddb:"id,hash"`
		Raw   json.RawMessage `ddb:"raw"`
		Body  blob            `ddb:"body"`
		Label labelled        `ddb:"label"`
	}
	m, err := FromStruct[doc]()
	require.NoError(t, err)

	in := &doc{ID: "d1", Raw: json.RawMessage(`{"ok":true}`), Body: blob("hi"), Label: "draft"}
	item, err := m.Convert(in)
	require.NoError(t, err)
	assert.Equal(t, Item{
		"id":    &types.AttributeValueMemberS{Value: "d1"},
		"raw":   &types.AttributeValueMemberB{Value: []byte(`{"ok":true}`)},
		"body":  &types.AttributeValueMemberB{Value: []byte("hi")},
		"label": &types.AttributeValueMemberS{Value: "draft"},
	}, item)

	out, err := m.Unconvert(item)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}
