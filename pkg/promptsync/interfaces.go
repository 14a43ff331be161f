package promptsync

import (
	"context"
	"io"
	"time"
)

// Document is the flat representation an entity takes inside the document
// store. Values are limited to JSON-compatible types.
type Document map[string]any

// FilterOp enumerates the comparison operators the document store supports.
type FilterOp string

// Filter operators.
const (
	OpEqual          FilterOp = "=="
	OpGreaterOrEqual FilterOp = ">="
	OpLess           FilterOp = "<"
	OpArrayContains  FilterOp = "array-contains"
)

// Filter is a single field comparison applied by Query and Subscribe.
type Filter struct {
	Field string
	Op    FilterOp
	Value any
}

// Ordering describes the sort applied to a query result set.
type Ordering struct {
	Field      string
	Descending bool
}

// Query bundles filters, ordering and an optional limit (0 means no limit).
type Query struct {
	Filters []Filter
	OrderBy Ordering
	Limit   int
}

// HighSentinel is the highest code point used to close a lexicographic
// prefix range: title >= prefix AND title < prefix+HighSentinel.
const HighSentinel = ""

// PrefixRange returns the two filters implementing a case-sensitive prefix
// match on field.
func PrefixRange(field, prefix string) []Filter {
	return []Filter{
		{Field: field, Op: OpGreaterOrEqual, Value: prefix},
		{Field: field, Op: OpLess, Value: prefix + HighSentinel},
	}
}

// Subscription is a live query against one collection. Every backend-observed
// change re-delivers the entire current result set; there is no per-item
// change granularity. Close must be called by the owner to release the
// server-side listener.
type Subscription interface {
	// Updates yields full result sets, newest snapshot last. The channel is
	// closed after Close.
	Updates() <-chan []Document

	// Close tears down the subscription. Safe to call more than once.
	Close() error
}

// DocumentStore defines the persistence primitives the repository layer is
// built on: a schemaless per-collection key to document store. Cross-document
// atomicity is not provided; each call is last-writer-wins on one document.
type DocumentStore interface {
	// Get returns the document at key, or (nil, nil) when absent.
	Get(ctx context.Context, collection, key string) (Document, error)

	// Set fully overwrites the document at key, creating it if absent.
	Set(ctx context.Context, collection, key string, doc Document) error

	// SetField overwrites a single field, leaving sibling fields untouched.
	// Creates the document when absent.
	SetField(ctx context.Context, collection, key, field string, value any) error

	// Delete removes the document at key. Deleting an absent key is not an
	// error.
	Delete(ctx context.Context, collection, key string) error

	// Query returns all documents matching q.
	Query(ctx context.Context, collection string, q Query) ([]Document, error)

	// Increment atomically adds delta to a numeric field, treating an absent
	// document or field as zero. Safe under concurrent callers.
	Increment(ctx context.Context, collection, key, field string, delta int64) error

	// Subscribe establishes a live query delivering full result sets.
	Subscribe(ctx context.Context, collection string, q Query) (Subscription, error)
}

// BlobStore defines the interface for binary payload storage backends.
type BlobStore interface {
	// Upload stores the payload under objectKey.
	Upload(ctx context.Context, objectKey, contentType string, reader io.Reader) error

	// GetDownloadURL returns a durable retrieval URL for objectKey.
	GetDownloadURL(ctx context.Context, objectKey string) (string, error)

	// Download reads the payload back directly.
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)

	// Delete removes the payload.
	Delete(ctx context.Context, objectKey string) error

	// GetObjectMeta retrieves metadata for a stored payload.
	GetObjectMeta(ctx context.Context, objectKey string) (*ObjectMeta, error)
}

// ObjectMeta contains metadata about a payload in blob storage.
type ObjectMeta struct {
	Key         string
	Size        int64
	ContentType string
	UpdatedAt   time.Time
	ETag        string
}

// EventSink receives notifications after repository operations complete.
// Sink failures are logged by callers and never fail the operation.
type EventSink interface {
	// TemplateSaved is fired after a private copy (and mirror, when public)
	// is written.
	TemplateSaved(ctx context.Context, template *Template) error

	// TemplateDeleted is fired after a template and its mirror are removed.
	TemplateDeleted(ctx context.Context, templateID string) error

	// TemplateForked is fired after a fork completes.
	TemplateForked(ctx context.Context, forked *Template) error

	// ItemLiked is fired after a like toggle; liked reports the new state.
	ItemLiked(ctx context.Context, kind CatalogKind, itemID, userID string, liked bool) error

	// ItemPublished is fired after a catalog item is written.
	ItemPublished(ctx context.Context, item *CatalogItem) error
}
