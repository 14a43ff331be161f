package promptsync

import (
	"context"
)

// Service defines the main interface for the promptsync library: the
// repository and synchronization layer between a user's private template
// copies and the shared community catalog.
type Service interface {
	// Template operations. Save and Update maintain the mirror invariant: a
	// public-collection copy exists exactly while IsPublic is true, with
	// field values equal to the private copy as of the last successful write.
	CreateTemplate(ctx context.Context, req CreateTemplateRequest) (*Template, error)
	SaveTemplate(ctx context.Context, template *Template) error
	UpdateTemplate(ctx context.Context, template *Template) error
	DeleteTemplate(ctx context.Context, template *Template) error
	GetTemplate(ctx context.Context, ownerID, id string) (*Template, error)
	ListTemplates(ctx context.Context, ownerID string) ([]*Template, error)

	// Public catalog reads over the mirror collection.
	GetPublicTemplate(ctx context.Context, id string) (*Template, error)
	SearchPublicTemplates(ctx context.Context, titlePrefix string) ([]*Template, error)
	ListPublicTemplatesByTag(ctx context.Context, tag string) ([]*Template, error)
	ListPublicTemplatesByCategory(ctx context.Context, categoryID string) ([]*Template, error)

	// ForkTemplate clones src into newOwnerID's private space with fresh
	// identity and provenance, then increments the source's usage counter.
	ForkTemplate(ctx context.Context, src *Template, newOwnerID string) (*Template, error)

	// Social counters.
	ToggleLike(ctx context.Context, kind CatalogKind, itemID, userID string) (bool, error)
	IsLiked(ctx context.Context, kind CatalogKind, itemID, userID string) (bool, error)
	LikeCount(ctx context.Context, kind CatalogKind, itemID string) (int64, error)
	IncrementUsage(ctx context.Context, itemID string) error
	UsageCount(ctx context.Context, itemID string) (*UsageRecord, error)

	// Community catalog operations.
	PublishCatalogItem(ctx context.Context, req PublishCatalogItemRequest) (*CatalogItem, error)
	GetCatalogItem(ctx context.Context, kind CatalogKind, id string) (*CatalogItem, error)
	ListCatalog(ctx context.Context, req ListCatalogRequest) ([]*CatalogItem, error)
	DeleteCatalogItem(ctx context.Context, kind CatalogKind, id, userID string) error

	// SubscribeCatalog establishes a live read model over one community
	// catalog. The returned feed must be closed by its owner.
	SubscribeCatalog(ctx context.Context, kind CatalogKind) (*CatalogFeed, error)

	// Blob storage operations.
	UploadImage(ctx context.Context, req UploadImageRequest) (string, error)
	RegisterBackend(name string, backend BlobStore)
	GetBackend(name string) (BlobStore, error)
}
