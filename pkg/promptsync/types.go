package promptsync

import (
	"time"
)

// SourceType records how a template came into existence.
type SourceType string

// Source type constants (typed).
const (
	SourceTypeManual SourceType = "manual"
	SourceTypeForked SourceType = "forked"
)

// CatalogKind identifies one of the community catalog collections.
type CatalogKind string

// Catalog kind constants (typed).
const (
	KindTemplate    CatalogKind = "template"
	KindQuickPrompt CatalogKind = "quickPrompt"
	KindWorkflow    CatalogKind = "workflow"
	KindImagePrompt CatalogKind = "imagePrompt"
)

// Valid reports whether k names a known catalog kind.
func (k CatalogKind) Valid() bool {
	switch k {
	case KindTemplate, KindQuickPrompt, KindWorkflow, KindImagePrompt:
		return true
	}
	return false
}

// TemplateVariable is a single placeholder definition inside a template body.
// Order determines display position and must survive a round trip through the
// document store.
type TemplateVariable struct {
	Name    string `json:"name"`
	Label   string `json:"label"`
	Example string `json:"example,omitempty"`
	Order   int    `json:"order"`
}

// Template is a user-authored prompt template. The private copy lives in the
// owner's collection; while IsPublic is true an equal-content mirror document
// exists in the shared public collection under the same ID.
type Template struct {
	ID                 string             `json:"id"`
	OwnerID            string             `json:"owner_id"`
	Title              string             `json:"title"`
	Body               string             `json:"body"`
	Description        string             `json:"description,omitempty"`
	CategoryID         string             `json:"category_id,omitempty"`
	TaskID             string             `json:"task_id,omitempty"`
	Tags               []string           `json:"tags,omitempty"`
	Variables          []TemplateVariable `json:"variables,omitempty"`
	IsPublic           bool               `json:"is_public"`
	FolderID           string             `json:"folder_id,omitempty"`
	OriginalTemplateID string             `json:"original_template_id,omitempty"`
	SampleImageURL     string             `json:"sample_image_url,omitempty"`
	FullImageURL       string             `json:"full_image_url,omitempty"`
	SourceType         SourceType         `json:"source_type"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// CatalogItem is the generic shape shared by the four community catalog
// kinds. Kind-specific fields (ModelType for image prompts, Variables for
// templates) are simply empty for kinds that do not carry them. LikeCount and
// UseCount are denormalized counters maintained by the like/usage operations,
// not recomputed on read.
type CatalogItem struct {
	ID          string             `json:"id"`
	Kind        CatalogKind        `json:"kind"`
	AuthorID    string             `json:"author_id"`
	Title       string             `json:"title"`
	Body        string             `json:"body"`
	Description string             `json:"description,omitempty"`
	CategoryID  string             `json:"category_id,omitempty"`
	TaskID      string             `json:"task_id,omitempty"`
	ModelType   string             `json:"model_type,omitempty"`
	Tags        []string           `json:"tags,omitempty"`
	Variables   []TemplateVariable `json:"variables,omitempty"`
	LikeCount   int64              `json:"like_count"`
	UseCount    int64              `json:"use_count"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// Like marks that a user liked an item. Its existence is the liked boolean;
// there is no separate state field.
type Like struct {
	UserID    string    `json:"user_id"`
	ItemID    string    `json:"item_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Key returns the like document key, the literal concatenation
// "{userId}_{itemId}".
func (l Like) Key() string {
	return LikeKey(l.UserID, l.ItemID)
}

// LikeKey builds the composite like-record key for a user/item pair.
func LikeKey(userID, itemID string) string {
	return userID + "_" + itemID
}

// UsageRecord tracks how often an item has been used. Count is updated with
// the store's atomic increment; LastUsedAt is overwritten separately and is
// not precise under concurrent use.
type UsageRecord struct {
	ItemID     string    `json:"item_id"`
	Count      int64     `json:"count"`
	LastUsedAt time.Time `json:"last_used_at"`
}

// CatalogOrder selects the sort key for catalog listings.
type CatalogOrder string

// Catalog ordering constants.
const (
	OrderNewest    CatalogOrder = "newest"     // created_at descending
	OrderMostLiked CatalogOrder = "most_liked" // like_count descending
)
