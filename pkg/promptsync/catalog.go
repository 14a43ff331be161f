package promptsync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Social counters.
//
// The Like record is the source of truth for the liked boolean. The
// denormalized like_count on catalog entities is maintained by the same
// ToggleLike call through the store's atomic increment, so listings ordered
// by popularity never have to count like records.

// ToggleLike flips the like state of (userID, itemID) and returns the new
// state. This is a read-then-act sequence, not compare-and-swap: two
// concurrent toggles from the same user can race, with the second delete
// landing as a no-op.
func (s *service) ToggleLike(ctx context.Context, kind CatalogKind, itemID, userID string) (bool, error) {
	likes, entities, err := kindCollections(kind)
	if err != nil {
		return false, err
	}
	key := LikeKey(userID, itemID)

	doc, err := s.store.Get(ctx, likes, key)
	if err != nil {
		return false, &PersistenceError{Collection: likes, Key: key, Op: "toggle_like", Err: err}
	}

	if doc != nil {
		if err := s.store.Delete(ctx, likes, key); err != nil {
			return false, &PersistenceError{Collection: likes, Key: key, Op: "unlike", Err: err}
		}
		s.adjustLikeCount(ctx, entities, itemID, -1)
		s.fireItemLiked(ctx, kind, itemID, userID, false)
		return false, nil
	}

	like := &Like{UserID: userID, ItemID: itemID, CreatedAt: time.Now().UTC()}
	if err := s.store.Set(ctx, likes, key, encodeLike(like)); err != nil {
		return false, &PersistenceError{Collection: likes, Key: key, Op: "like", Err: err}
	}
	s.adjustLikeCount(ctx, entities, itemID, 1)
	s.fireItemLiked(ctx, kind, itemID, userID, true)
	return true, nil
}

// IsLiked is a pure existence check of the like record.
func (s *service) IsLiked(ctx context.Context, kind CatalogKind, itemID, userID string) (bool, error) {
	likes, _, err := kindCollections(kind)
	if err != nil {
		return false, err
	}
	key := LikeKey(userID, itemID)
	doc, err := s.store.Get(ctx, likes, key)
	if err != nil {
		return false, &PersistenceError{Collection: likes, Key: key, Op: "is_liked", Err: err}
	}
	return doc != nil, nil
}

// LikeCount counts like records for itemID. Counting the records rather than
// reading the denormalized field keeps the read path working for private
// templates, which have no entity document in a community collection.
func (s *service) LikeCount(ctx context.Context, kind CatalogKind, itemID string) (int64, error) {
	likes, _, err := kindCollections(kind)
	if err != nil {
		return 0, err
	}
	docs, err := s.store.Query(ctx, likes, Query{
		Filters: []Filter{{Field: "item_id", Op: OpEqual, Value: itemID}},
	})
	if err != nil {
		return 0, &PersistenceError{Collection: likes, Key: itemID, Op: "like_count", Err: err}
	}
	var count int64
	for _, doc := range docs {
		if _, ok := decodeLike(doc); ok {
			count++
		}
	}
	return count, nil
}

// IncrementUsage bumps the usage counter for itemID. The count update is the
// store's atomic increment and is exact under concurrency; the last-used
// timestamp is a separate field overwrite and is not.
func (s *service) IncrementUsage(ctx context.Context, itemID string) error {
	if err := s.store.Increment(ctx, CollectionUsage, itemID, "count", 1); err != nil {
		return &PersistenceError{Collection: CollectionUsage, Key: itemID, Op: "increment_usage", Err: err}
	}
	ts := time.Now().UTC().Format(time.RFC3339Nano)
	if err := s.store.SetField(ctx, CollectionUsage, itemID, "last_used_at", ts); err != nil {
		return &PersistenceError{Collection: CollectionUsage, Key: itemID, Op: "touch_usage", Err: err}
	}
	return nil
}

func (s *service) UsageCount(ctx context.Context, itemID string) (*UsageRecord, error) {
	doc, err := s.store.Get(ctx, CollectionUsage, itemID)
	if err != nil {
		return nil, &PersistenceError{Collection: CollectionUsage, Key: itemID, Op: "usage_count", Err: err}
	}
	if doc == nil {
		return &UsageRecord{ItemID: itemID}, nil
	}
	return decodeUsageRecord(itemID, doc), nil
}

// adjustLikeCount maintains the denormalized counter on the entity document.
// For templates the entity is the public mirror, which may legitimately be
// absent (liking a private template); incrementing must not materialize a
// stray document in the public collection, so absence skips the counter.
func (s *service) adjustLikeCount(ctx context.Context, entities, itemID string, delta int64) {
	doc, err := s.store.Get(ctx, entities, itemID)
	if err != nil || doc == nil {
		return
	}
	// A failed increment only drifts the denormalized counter; the like
	// record itself has already been written.
	_ = s.store.Increment(ctx, entities, itemID, "like_count", delta)
}

// Community catalog operations

func (s *service) PublishCatalogItem(ctx context.Context, req PublishCatalogItemRequest) (*CatalogItem, error) {
	collection := catalogCollection(req.Kind)
	if collection == "" {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, req.Kind)
	}

	now := time.Now().UTC()
	item := &CatalogItem{
		ID:          uuid.NewString(),
		Kind:        req.Kind,
		AuthorID:    req.AuthorID,
		Title:       req.Title,
		Body:        req.Body,
		Description: req.Description,
		CategoryID:  req.CategoryID,
		TaskID:      req.TaskID,
		ModelType:   req.ModelType,
		Tags:        req.Tags,
		Variables:   req.Variables,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.Set(ctx, collection, item.ID, encodeCatalogItem(item)); err != nil {
		return nil, &PersistenceError{Collection: collection, Key: item.ID, Op: "publish", Err: err}
	}

	if s.eventSink != nil {
		// Sink failures never fail the operation.
		_ = s.eventSink.ItemPublished(ctx, item)
	}
	return item, nil
}

func (s *service) GetCatalogItem(ctx context.Context, kind CatalogKind, id string) (*CatalogItem, error) {
	collection := catalogCollection(kind)
	if collection == "" {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	doc, err := s.store.Get(ctx, collection, id)
	if err != nil {
		return nil, &PersistenceError{Collection: collection, Key: id, Op: "get", Err: err}
	}
	if doc == nil {
		return nil, ErrItemNotFound
	}
	item, ok := decodeCatalogItem(kind, doc)
	if !ok {
		return nil, ErrItemNotFound
	}
	return item, nil
}

func (s *service) ListCatalog(ctx context.Context, req ListCatalogRequest) ([]*CatalogItem, error) {
	collection := catalogCollection(req.Kind)
	if collection == "" {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, req.Kind)
	}

	q := Query{Limit: req.Limit}
	switch req.Order {
	case OrderMostLiked:
		q.OrderBy = Ordering{Field: "like_count", Descending: true}
	default:
		q.OrderBy = Ordering{Field: "created_at", Descending: true}
	}
	if req.Tag != "" {
		q.Filters = append(q.Filters, Filter{Field: "tags", Op: OpArrayContains, Value: req.Tag})
	}
	if req.CategoryID != "" {
		q.Filters = append(q.Filters, Filter{Field: "category_id", Op: OpEqual, Value: req.CategoryID})
	}

	docs, err := s.store.Query(ctx, collection, q)
	if err != nil {
		return nil, &PersistenceError{Collection: collection, Op: "list", Err: err}
	}
	return decodeCatalogItems(req.Kind, docs), nil
}

// DeleteCatalogItem removes a community item after verifying the caller is
// its author.
func (s *service) DeleteCatalogItem(ctx context.Context, kind CatalogKind, id, userID string) error {
	item, err := s.GetCatalogItem(ctx, kind, id)
	if err != nil {
		return err
	}
	if item.AuthorID != userID {
		return &AuthorizationError{UserID: userID, ItemID: id, Op: "delete"}
	}

	collection := catalogCollection(kind)
	if err := s.store.Delete(ctx, collection, id); err != nil {
		return &PersistenceError{Collection: collection, Key: id, Op: "delete", Err: err}
	}
	return nil
}

func (s *service) SubscribeCatalog(ctx context.Context, kind CatalogKind) (*CatalogFeed, error) {
	collection := catalogCollection(kind)
	if collection == "" {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	sub, err := s.store.Subscribe(ctx, collection, Query{
		OrderBy: Ordering{Field: "created_at", Descending: true},
	})
	if err != nil {
		return nil, &PersistenceError{Collection: collection, Op: "subscribe", Err: err}
	}
	return newCatalogFeed(kind, sub), nil
}

func (s *service) fireItemLiked(ctx context.Context, kind CatalogKind, itemID, userID string, liked bool) {
	if s.eventSink == nil {
		return
	}
	_ = s.eventSink.ItemLiked(ctx, kind, itemID, userID, liked)
}

func kindCollections(kind CatalogKind) (likes, entities string, err error) {
	likes = likeCollection(kind)
	entities = catalogCollection(kind)
	if kind == KindTemplate {
		// Template likes live in the shared likes collection; the entity
		// document carrying the denormalized counter is the public mirror.
		entities = CollectionPublicTemplates
	}
	if likes == "" || entities == "" {
		return "", "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return likes, entities, nil
}

func decodeCatalogItems(kind CatalogKind, docs []Document) []*CatalogItem {
	result := make([]*CatalogItem, 0, len(docs))
	for _, doc := range docs {
		if item, ok := decodeCatalogItem(kind, doc); ok {
			result = append(result, item)
		}
	}
	return result
}
