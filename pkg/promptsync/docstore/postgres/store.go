package postgres

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/promptkit/promptsync/pkg/promptsync"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Schema creates the single documents table the store runs on. Collections
// are a column, not separate tables, so new catalog kinds need no migration.
const Schema = `
CREATE TABLE IF NOT EXISTS documents (
    collection TEXT NOT NULL,
    key        TEXT NOT NULL,
    doc        JSONB NOT NULL,
    PRIMARY KEY (collection, key)
);
CREATE INDEX IF NOT EXISTS documents_collection_idx ON documents (collection);
`

const defaultPollInterval = 2 * time.Second

// Store implements promptsync.DocumentStore using PostgreSQL with one JSONB
// document per row. Subscriptions are implemented by polling: the remote
// backend's push channel has no Postgres equivalent here, but the
// full-snapshot delivery contract is the same.
type Store struct {
	db           DBTX
	pollInterval time.Duration
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithPollInterval sets how often subscriptions re-run their query.
func WithPollInterval(d time.Duration) StoreOption {
	return func(s *Store) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// New creates a new PostgreSQL document store
func New(db DBTX, opts ...StoreOption) *Store {
	s := &Store{db: db, pollInterval: defaultPollInterval}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewWithPool creates a new PostgreSQL document store with a connection pool
func NewWithPool(pool *pgxpool.Pool, opts ...StoreOption) *Store {
	return New(pool, opts...)
}

// EnsureSchema creates the documents table if it does not exist.
func EnsureSchema(ctx context.Context, db DBTX) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create documents schema: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, collection, key string) (promptsync.Document, error) {
	var raw []byte
	err := s.db.QueryRow(ctx,
		`SELECT doc FROM documents WHERE collection = $1 AND key = $2`,
		collection, key).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, s.wrapError("get", err)
	}
	return unmarshalDocument(raw)
}

func (s *Store) Set(ctx context.Context, collection, key string, doc promptsync.Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO documents (collection, key, doc) VALUES ($1, $2, $3)
		ON CONFLICT (collection, key) DO UPDATE SET doc = EXCLUDED.doc`,
		collection, key, raw)
	if err != nil {
		return s.wrapError("set", err)
	}
	return nil
}

func (s *Store) SetField(ctx context.Context, collection, key, field string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode field value: %w", err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO documents (collection, key, doc)
		VALUES ($1, $2, jsonb_build_object($3::text, $4::jsonb))
		ON CONFLICT (collection, key)
		DO UPDATE SET doc = jsonb_set(documents.doc, ARRAY[$3], $4::jsonb, true)`,
		collection, key, field, raw)
	if err != nil {
		return s.wrapError("set_field", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, key string) error {
	// Deleting an absent key is not an error.
	_, err := s.db.Exec(ctx,
		`DELETE FROM documents WHERE collection = $1 AND key = $2`,
		collection, key)
	if err != nil {
		return s.wrapError("delete", err)
	}
	return nil
}

// Increment relies on the row lock taken by the upsert, so concurrent
// increments on the same document serialize server-side and never lose
// updates.
func (s *Store) Increment(ctx context.Context, collection, key, field string, delta int64) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO documents (collection, key, doc)
		VALUES ($1, $2, jsonb_build_object($3::text, $4::bigint))
		ON CONFLICT (collection, key)
		DO UPDATE SET doc = jsonb_set(
			documents.doc, ARRAY[$3],
			to_jsonb(COALESCE((documents.doc ->> $3)::bigint, 0) + $4), true)`,
		collection, key, field, delta)
	if err != nil {
		return s.wrapError("increment", err)
	}
	return nil
}

func (s *Store) Query(ctx context.Context, collection string, q promptsync.Query) ([]promptsync.Document, error) {
	sql, args, err := buildQuery(collection, q)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, s.wrapError("query", err)
	}
	defer rows.Close()

	var result []promptsync.Document
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, s.wrapError("query", err)
		}
		doc, err := unmarshalDocument(raw)
		if err != nil {
			return nil, err
		}
		result = append(result, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrapError("query", err)
	}
	return result, nil
}

func (s *Store) Subscribe(ctx context.Context, collection string, q promptsync.Query) (promptsync.Subscription, error) {
	sub := &subscription{
		ch:   make(chan []promptsync.Document, 1),
		stop: make(chan struct{}),
	}
	go sub.poll(ctx, s, collection, q)
	return sub, nil
}

func buildQuery(collection string, q promptsync.Query) (string, []any, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT doc FROM documents WHERE collection = $1`)
	args := []any{collection}

	for _, f := range q.Filters {
		switch f.Op {
		case promptsync.OpEqual:
			probe, err := json.Marshal(map[string]any{f.Field: f.Value})
			if err != nil {
				return "", nil, fmt.Errorf("failed to encode filter value: %w", err)
			}
			args = append(args, probe)
			fmt.Fprintf(&sb, ` AND doc @> $%d::jsonb`, len(args))
		case promptsync.OpGreaterOrEqual:
			args = append(args, f.Field, f.Value)
			fmt.Fprintf(&sb, ` AND doc ->> $%d::text >= $%d::text`, len(args)-1, len(args))
		case promptsync.OpLess:
			args = append(args, f.Field, f.Value)
			fmt.Fprintf(&sb, ` AND doc ->> $%d::text < $%d::text`, len(args)-1, len(args))
		case promptsync.OpArrayContains:
			probe, err := json.Marshal(f.Value)
			if err != nil {
				return "", nil, fmt.Errorf("failed to encode filter value: %w", err)
			}
			args = append(args, f.Field, probe)
			fmt.Fprintf(&sb, ` AND doc -> $%d::text @> $%d::jsonb`, len(args)-1, len(args))
		default:
			return "", nil, fmt.Errorf("unsupported filter operator %q", f.Op)
		}
	}

	if q.OrderBy.Field != "" {
		// JSONB ordering compares numbers numerically and strings
		// lexicographically, which covers every sort field we use.
		args = append(args, q.OrderBy.Field)
		direction := "ASC"
		if q.OrderBy.Descending {
			direction = "DESC"
		}
		fmt.Fprintf(&sb, ` ORDER BY doc -> $%d::text %s`, len(args), direction)
	}

	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&sb, ` LIMIT $%d`, len(args))
	}

	return sb.String(), args, nil
}

func (s *Store) wrapError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "42P01" { // undefined_table
			return fmt.Errorf("documents table does not exist - run EnsureSchema first")
		}
		return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
	}
	return fmt.Errorf("database error in %s: %w", operation, err)
}

func unmarshalDocument(raw []byte) (promptsync.Document, error) {
	var doc promptsync.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return doc, nil
}

type subscription struct {
	ch        chan []promptsync.Document
	stop      chan struct{}
	closeOnce sync.Once
}

func (sub *subscription) Updates() <-chan []promptsync.Document {
	return sub.ch
}

func (sub *subscription) Close() error {
	sub.closeOnce.Do(func() { close(sub.stop) })
	return nil
}

// poll re-runs the query on the configured interval and delivers a fresh
// snapshot whenever the result set changed. Delivery is latest-wins.
func (sub *subscription) poll(ctx context.Context, s *Store, collection string, q promptsync.Query) {
	defer close(sub.ch)

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	var last []byte
	for {
		docs, err := s.Query(ctx, collection, q)
		if err == nil {
			fingerprint, merr := json.Marshal(docs)
			if merr == nil && !bytes.Equal(fingerprint, last) {
				last = fingerprint
				select {
				case <-sub.ch:
				default:
				}
				select {
				case sub.ch <- docs:
				case <-sub.stop:
					return
				case <-ctx.Done():
					return
				}
			}
		}

		select {
		case <-sub.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
