package promptsync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// service implements the Service interface
type service struct {
	store          DocumentStore
	blobStores     map[string]BlobStore
	defaultBackend string
	eventSink      EventSink
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithDocumentStore sets the document store for the service
func WithDocumentStore(store DocumentStore) Option {
	return func(s *service) {
		s.store = store
	}
}

// WithBlobStore adds a blob storage backend. The first registered backend
// becomes the default.
func WithBlobStore(name string, store BlobStore) Option {
	return func(s *service) {
		if s.blobStores == nil {
			s.blobStores = make(map[string]BlobStore)
		}
		if len(s.blobStores) == 0 {
			s.defaultBackend = name
		}
		s.blobStores[name] = store
	}
}

// WithDefaultBackend selects which registered blob store UploadImage uses
// when the request does not name one.
func WithDefaultBackend(name string) Option {
	return func(s *service) {
		s.defaultBackend = name
	}
}

// WithEventSink sets the event sink for the service
func WithEventSink(sink EventSink) Option {
	return func(s *service) {
		s.eventSink = sink
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		blobStores: make(map[string]BlobStore),
	}

	for _, option := range options {
		option(s)
	}

	if s.store == nil {
		return nil, fmt.Errorf("document store is required")
	}

	return s, nil
}

// Template operations

func (s *service) CreateTemplate(ctx context.Context, req CreateTemplateRequest) (*Template, error) {
	now := time.Now().UTC()
	template := &Template{
		ID:             uuid.NewString(),
		OwnerID:        req.OwnerID,
		Title:          req.Title,
		Body:           req.Body,
		Description:    req.Description,
		CategoryID:     req.CategoryID,
		TaskID:         req.TaskID,
		Tags:           req.Tags,
		Variables:      req.Variables,
		IsPublic:       req.IsPublic,
		FolderID:       req.FolderID,
		SampleImageURL: req.SampleImageURL,
		FullImageURL:   req.FullImageURL,
		SourceType:     SourceTypeManual,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.writeTemplate(ctx, template); err != nil {
		return nil, err
	}

	s.fireTemplateSaved(ctx, template)
	return template, nil
}

// SaveTemplate writes the private copy and, when the template is public, an
// equal-content mirror. The two writes are sequential: a failure on the
// second leaves the private copy without its mirror until the next
// successful update re-establishes the invariant.
func (s *service) SaveTemplate(ctx context.Context, template *Template) error {
	now := time.Now().UTC()
	if template.CreatedAt.IsZero() {
		template.CreatedAt = now
	}
	template.UpdatedAt = now

	if err := s.writeTemplate(ctx, template); err != nil {
		return err
	}

	s.fireTemplateSaved(ctx, template)
	return nil
}

// UpdateTemplate refreshes UpdatedAt and re-applies the full mirror
// invariant: upsert the mirror when public, delete it when private.
func (s *service) UpdateTemplate(ctx context.Context, template *Template) error {
	template.UpdatedAt = time.Now().UTC()

	private := userTemplatesCollection(template.OwnerID)
	doc := encodeTemplate(template)
	if err := s.store.Set(ctx, private, template.ID, doc); err != nil {
		return &PersistenceError{Collection: private, Key: template.ID, Op: "update", Err: err}
	}

	if template.IsPublic {
		if err := s.store.Set(ctx, CollectionPublicTemplates, template.ID, doc); err != nil {
			return &PersistenceError{Collection: CollectionPublicTemplates, Key: template.ID, Op: "update_mirror", Err: err}
		}
	} else {
		// Delete-if-exists: an absent mirror is not an error.
		if err := s.store.Delete(ctx, CollectionPublicTemplates, template.ID); err != nil {
			return &PersistenceError{Collection: CollectionPublicTemplates, Key: template.ID, Op: "delete_mirror", Err: err}
		}
	}

	s.fireTemplateSaved(ctx, template)
	return nil
}

func (s *service) DeleteTemplate(ctx context.Context, template *Template) error {
	private := userTemplatesCollection(template.OwnerID)
	if err := s.store.Delete(ctx, private, template.ID); err != nil {
		return &PersistenceError{Collection: private, Key: template.ID, Op: "delete", Err: err}
	}

	if template.IsPublic {
		if err := s.store.Delete(ctx, CollectionPublicTemplates, template.ID); err != nil {
			return &PersistenceError{Collection: CollectionPublicTemplates, Key: template.ID, Op: "delete_mirror", Err: err}
		}
	}

	if s.eventSink != nil {
		// Sink failures never fail the operation.
		_ = s.eventSink.TemplateDeleted(ctx, template.ID)
	}
	return nil
}

func (s *service) GetTemplate(ctx context.Context, ownerID, id string) (*Template, error) {
	private := userTemplatesCollection(ownerID)
	doc, err := s.store.Get(ctx, private, id)
	if err != nil {
		return nil, &PersistenceError{Collection: private, Key: id, Op: "get", Err: err}
	}
	if doc == nil {
		return nil, ErrTemplateNotFound
	}
	template, ok := decodeTemplate(doc)
	if !ok {
		return nil, ErrTemplateNotFound
	}
	return template, nil
}

func (s *service) ListTemplates(ctx context.Context, ownerID string) ([]*Template, error) {
	private := userTemplatesCollection(ownerID)
	docs, err := s.store.Query(ctx, private, Query{
		OrderBy: Ordering{Field: "created_at", Descending: true},
	})
	if err != nil {
		return nil, &PersistenceError{Collection: private, Op: "list", Err: err}
	}
	return decodeTemplates(docs), nil
}

// Public catalog reads

func (s *service) GetPublicTemplate(ctx context.Context, id string) (*Template, error) {
	doc, err := s.store.Get(ctx, CollectionPublicTemplates, id)
	if err != nil {
		return nil, &PersistenceError{Collection: CollectionPublicTemplates, Key: id, Op: "get", Err: err}
	}
	if doc == nil {
		return nil, ErrTemplateNotFound
	}
	template, ok := decodeTemplate(doc)
	if !ok {
		return nil, ErrTemplateNotFound
	}
	return template, nil
}

func (s *service) SearchPublicTemplates(ctx context.Context, titlePrefix string) ([]*Template, error) {
	docs, err := s.store.Query(ctx, CollectionPublicTemplates, Query{
		Filters: PrefixRange("title", titlePrefix),
		OrderBy: Ordering{Field: "title"},
	})
	if err != nil {
		return nil, &PersistenceError{Collection: CollectionPublicTemplates, Op: "search", Err: err}
	}
	return decodeTemplates(docs), nil
}

func (s *service) ListPublicTemplatesByTag(ctx context.Context, tag string) ([]*Template, error) {
	docs, err := s.store.Query(ctx, CollectionPublicTemplates, Query{
		Filters: []Filter{{Field: "tags", Op: OpArrayContains, Value: tag}},
		OrderBy: Ordering{Field: "created_at", Descending: true},
	})
	if err != nil {
		return nil, &PersistenceError{Collection: CollectionPublicTemplates, Op: "list_by_tag", Err: err}
	}
	return decodeTemplates(docs), nil
}

func (s *service) ListPublicTemplatesByCategory(ctx context.Context, categoryID string) ([]*Template, error) {
	docs, err := s.store.Query(ctx, CollectionPublicTemplates, Query{
		Filters: []Filter{{Field: "category_id", Op: OpEqual, Value: categoryID}},
		OrderBy: Ordering{Field: "created_at", Descending: true},
	})
	if err != nil {
		return nil, &PersistenceError{Collection: CollectionPublicTemplates, Op: "list_by_category", Err: err}
	}
	return decodeTemplates(docs), nil
}

// Fork

// ForkTemplate clones src into newOwnerID's private space. The copy gets a
// fresh identity, is forced private, and records provenance in
// OriginalTemplateID. FolderID is copied verbatim; if that folder does not
// exist in the new owner's namespace the reference is simply orphaned. The
// source is not mutated beyond its usage counter.
func (s *service) ForkTemplate(ctx context.Context, src *Template, newOwnerID string) (*Template, error) {
	now := time.Now().UTC()
	forked := &Template{
		ID:                 uuid.NewString(),
		OwnerID:            newOwnerID,
		Title:              src.Title,
		Body:               src.Body,
		Description:        src.Description,
		CategoryID:         src.CategoryID,
		TaskID:             src.TaskID,
		Tags:               append([]string(nil), src.Tags...),
		Variables:          append([]TemplateVariable(nil), src.Variables...),
		IsPublic:           false,
		FolderID:           src.FolderID,
		OriginalTemplateID: src.ID,
		SampleImageURL:     src.SampleImageURL,
		FullImageURL:       src.FullImageURL,
		SourceType:         SourceTypeForked,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.writeTemplate(ctx, forked); err != nil {
		return nil, err
	}

	if err := s.IncrementUsage(ctx, src.ID); err != nil {
		return nil, err
	}

	if s.eventSink != nil {
		_ = s.eventSink.TemplateForked(ctx, forked)
	}
	return forked, nil
}

// Blob storage operations

func (s *service) UploadImage(ctx context.Context, req UploadImageRequest) (string, error) {
	name := req.BackendName
	if name == "" {
		name = s.defaultBackend
	}
	backend, err := s.GetBackend(name)
	if err != nil {
		return "", err
	}

	objectKey := uuid.NewString()
	if err := backend.Upload(ctx, objectKey, req.ContentType, req.Reader); err != nil {
		return "", &StorageError{Backend: name, Key: objectKey, Op: "upload", Err: err}
	}

	url, err := backend.GetDownloadURL(ctx, objectKey)
	if err != nil {
		return "", &StorageError{Backend: name, Key: objectKey, Op: "download_url", Err: err}
	}
	return url, nil
}

func (s *service) RegisterBackend(name string, backend BlobStore) {
	if len(s.blobStores) == 0 {
		s.defaultBackend = name
	}
	s.blobStores[name] = backend
}

func (s *service) GetBackend(name string) (BlobStore, error) {
	backend, ok := s.blobStores[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBackendNotFound, name)
	}
	return backend, nil
}

// writeTemplate writes the private copy first and the public mirror second.
func (s *service) writeTemplate(ctx context.Context, template *Template) error {
	private := userTemplatesCollection(template.OwnerID)
	doc := encodeTemplate(template)

	if err := s.store.Set(ctx, private, template.ID, doc); err != nil {
		return &PersistenceError{Collection: private, Key: template.ID, Op: "save", Err: err}
	}
	if template.IsPublic {
		if err := s.store.Set(ctx, CollectionPublicTemplates, template.ID, doc); err != nil {
			return &PersistenceError{Collection: CollectionPublicTemplates, Key: template.ID, Op: "save_mirror", Err: err}
		}
	}
	return nil
}

func (s *service) fireTemplateSaved(ctx context.Context, template *Template) {
	if s.eventSink == nil {
		return
	}
	// Sink failures never fail the operation.
	_ = s.eventSink.TemplateSaved(ctx, template)
}

func decodeTemplates(docs []Document) []*Template {
	result := make([]*Template, 0, len(docs))
	for _, doc := range docs {
		if template, ok := decodeTemplate(doc); ok {
			result = append(result, template)
		}
	}
	return result
}
