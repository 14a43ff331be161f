package postgres

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptkit/promptsync/pkg/promptsync"
)

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		name     string
		query    promptsync.Query
		wantSQL  string
		wantArgs int
	}{
		{
			"bare collection",
			promptsync.Query{},
			`SELECT doc FROM documents WHERE collection = $1`,
			1,
		},
		{
			"equality uses containment",
			promptsync.Query{Filters: []promptsync.Filter{{Field: "category_id", Op: promptsync.OpEqual, Value: "cat-1"}}},
			`SELECT doc FROM documents WHERE collection = $1 AND doc @> $2::jsonb`,
			2,
		},
		{
			"range pair",
			promptsync.Query{Filters: promptsync.PrefixRange("title", "Code")},
			`SELECT doc FROM documents WHERE collection = $1 AND doc ->> $2::text >= $3::text AND doc ->> $4::text < $5::text`,
			5,
		},
		{
			"array contains",
			promptsync.Query{Filters: []promptsync.Filter{{Field: "tags", Op: promptsync.OpArrayContains, Value: "go"}}},
			`SELECT doc FROM documents WHERE collection = $1 AND doc -> $2::text @> $3::jsonb`,
			3,
		},
		{
			"order and limit",
			promptsync.Query{
				OrderBy: promptsync.Ordering{Field: "like_count", Descending: true},
				Limit:   25,
			},
			`SELECT doc FROM documents WHERE collection = $1 ORDER BY doc -> $2::text DESC LIMIT $3`,
			3,
		},
		{
			"ascending order",
			promptsync.Query{OrderBy: promptsync.Ordering{Field: "title"}},
			`SELECT doc FROM documents WHERE collection = $1 ORDER BY doc -> $2::text ASC`,
			2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := buildQuery("templates", tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Len(t, args, tt.wantArgs)
			assert.Equal(t, "templates", args[0])
		})
	}
}

func TestBuildQueryUnsupportedOperator(t *testing.T) {
	_, _, err := buildQuery("templates", promptsync.Query{
		Filters: []promptsync.Filter{{Field: "x", Op: promptsync.FilterOp("!="), Value: 1}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported filter operator")
}

func TestWrapError(t *testing.T) {
	s := New(nil)

	err := s.wrapError("get", &pgconn.PgError{Code: "42P01", Message: "relation does not exist"})
	assert.Contains(t, err.Error(), "EnsureSchema")

	err = s.wrapError("set", &pgconn.PgError{Code: "23505", Message: "duplicate key"})
	assert.Contains(t, err.Error(), "23505")

	plain := errors.New("connection refused")
	err = s.wrapError("query", plain)
	assert.ErrorIs(t, err, plain)
}

func TestUnmarshalDocument(t *testing.T) {
	doc, err := unmarshalDocument([]byte(`{"id":"t1","like_count":3}`))
	require.NoError(t, err)
	assert.Equal(t, "t1", doc["id"])
	assert.Equal(t, float64(3), doc["like_count"])

	_, err = unmarshalDocument([]byte(`{broken`))
	assert.Error(t, err)
}
