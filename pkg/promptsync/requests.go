package promptsync

import "io"

// Request DTOs

// CreateTemplateRequest contains parameters for authoring a new template.
type CreateTemplateRequest struct {
	OwnerID        string
	Title          string
	Body           string
	Description    string
	CategoryID     string
	TaskID         string
	Tags           []string
	Variables      []TemplateVariable
	IsPublic       bool
	FolderID       string
	SampleImageURL string
	FullImageURL   string
}

// PublishCatalogItemRequest contains parameters for publishing a community
// catalog item.
type PublishCatalogItemRequest struct {
	Kind        CatalogKind
	AuthorID    string
	Title       string
	Body        string
	Description string
	CategoryID  string
	TaskID      string
	ModelType   string
	Tags        []string
	Variables   []TemplateVariable
}

// ListCatalogRequest contains parameters for listing a community catalog.
// Tag and CategoryID are optional filters; Limit of 0 means no limit.
type ListCatalogRequest struct {
	Kind       CatalogKind
	Order      CatalogOrder
	Tag        string
	CategoryID string
	Limit      int
}

// UploadImageRequest contains parameters for storing a template image in
// blob storage.
type UploadImageRequest struct {
	Reader      io.Reader
	ContentType string
	BackendName string // empty means the default backend
}
