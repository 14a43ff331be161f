package promptsync

import "fmt"

// Logical collection names. The public template collection and the per-user
// private collections are distinct so the community catalog never scans
// private data.
const (
	CollectionPublicTemplates = "templates"
	CollectionLikes           = "likes"
	CollectionUsage           = "usage"

	CollectionCommunityTemplates   = "communityTemplates"
	CollectionCommunityQuickPrompt = "communityQuickPrompts"
	CollectionCommunityWorkflows   = "communityWorkflows"
	CollectionCommunityImagePrompt = "communityImagePrompts"

	CollectionTemplateLikes    = "likes"
	CollectionQuickPromptLikes = "quickPromptLikes"
	CollectionWorkflowLikes    = "workflowLikes"
	CollectionImagePromptLikes = "imagePromptLikes"
)

// userTemplatesCollection returns the private template collection for a user.
func userTemplatesCollection(userID string) string {
	return fmt.Sprintf("userTemplates/%s/templates", userID)
}

// catalogCollection maps a catalog kind to its community collection.
func catalogCollection(kind CatalogKind) string {
	switch kind {
	case KindTemplate:
		return CollectionCommunityTemplates
	case KindQuickPrompt:
		return CollectionCommunityQuickPrompt
	case KindWorkflow:
		return CollectionCommunityWorkflows
	case KindImagePrompt:
		return CollectionCommunityImagePrompt
	}
	return ""
}

// likeCollection maps a catalog kind to its like-record collection.
func likeCollection(kind CatalogKind) string {
	switch kind {
	case KindTemplate:
		return CollectionTemplateLikes
	case KindQuickPrompt:
		return CollectionQuickPromptLikes
	case KindWorkflow:
		return CollectionWorkflowLikes
	case KindImagePrompt:
		return CollectionImagePromptLikes
	}
	return ""
}
