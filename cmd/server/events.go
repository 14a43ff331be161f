package main

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/promptkit/promptsync/pkg/promptsync"
)

// logEventSink writes repository events to the server log.
type logEventSink struct {
	logger zerolog.Logger
}

func newLogEventSink(logger zerolog.Logger) *logEventSink {
	return &logEventSink{logger: logger.With().Str("component", "events").Logger()}
}

func (s *logEventSink) TemplateSaved(ctx context.Context, template *promptsync.Template) error {
	s.logger.Info().
		Str("template_id", template.ID).
		Str("owner_id", template.OwnerID).
		Bool("is_public", template.IsPublic).
		Msg("template saved")
	return nil
}

func (s *logEventSink) TemplateDeleted(ctx context.Context, templateID string) error {
	s.logger.Info().Str("template_id", templateID).Msg("template deleted")
	return nil
}

func (s *logEventSink) TemplateForked(ctx context.Context, forked *promptsync.Template) error {
	s.logger.Info().
		Str("template_id", forked.ID).
		Str("original_template_id", forked.OriginalTemplateID).
		Str("owner_id", forked.OwnerID).
		Msg("template forked")
	return nil
}

func (s *logEventSink) ItemLiked(ctx context.Context, kind promptsync.CatalogKind, itemID, userID string, liked bool) error {
	s.logger.Info().
		Str("kind", string(kind)).
		Str("item_id", itemID).
		Str("user_id", userID).
		Bool("liked", liked).
		Msg("like toggled")
	return nil
}

func (s *logEventSink) ItemPublished(ctx context.Context, item *promptsync.CatalogItem) error {
	s.logger.Info().
		Str("kind", string(item.Kind)).
		Str("item_id", item.ID).
		Str("author_id", item.AuthorID).
		Msg("item published")
	return nil
}
