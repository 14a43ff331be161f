package promptsync

import "context"

// NoopEventSink is an event sink that does nothing
type NoopEventSink struct{}

// NewNoopEventSink creates a new no-op event sink
func NewNoopEventSink() *NoopEventSink {
	return &NoopEventSink{}
}

func (s *NoopEventSink) TemplateSaved(ctx context.Context, template *Template) error {
	return nil
}

func (s *NoopEventSink) TemplateDeleted(ctx context.Context, templateID string) error {
	return nil
}

func (s *NoopEventSink) TemplateForked(ctx context.Context, forked *Template) error {
	return nil
}

func (s *NoopEventSink) ItemLiked(ctx context.Context, kind CatalogKind, itemID, userID string, liked bool) error {
	return nil
}

func (s *NoopEventSink) ItemPublished(ctx context.Context, item *CatalogItem) error {
	return nil
}
