package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/promptkit/promptsync/pkg/promptsync"
)

// CatalogHandler handles HTTP requests for the community catalogs and their
// social counters
type CatalogHandler struct {
	service promptsync.Service

	mu    sync.Mutex
	feeds map[promptsync.CatalogKind]*promptsync.CatalogFeed
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(service promptsync.Service) *CatalogHandler {
	return &CatalogHandler{
		service: service,
		feeds:   make(map[promptsync.CatalogKind]*promptsync.CatalogFeed),
	}
}

// Routes returns the routes for community catalogs
func (h *CatalogHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/{kind}", func(r chi.Router) {
		r.Get("/", h.ListCatalog)
		r.Post("/", h.PublishItem)
		r.Get("/feed", h.Feed)
		r.Get("/{id}", h.GetItem)
		r.Delete("/{id}", h.DeleteItem)
		r.Post("/{id}/like", h.ToggleLike)
		r.Get("/{id}/liked", h.IsLiked)
		r.Get("/{id}/likes", h.LikeCount)
		r.Post("/{id}/use", h.IncrementUsage)
		r.Get("/{id}/usage", h.UsageCount)
	})

	return r
}

// Close tears down the live feeds the handler lazily established.
func (h *CatalogHandler) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for kind, feed := range h.feeds {
		feed.Close()
		delete(h.feeds, kind)
	}
}

// PublishItemRequest is the request body for publishing a catalog item
type PublishItemRequest struct {
	Title       string                        `json:"title"`
	Body        string                        `json:"body"`
	Description string                        `json:"description,omitempty"`
	CategoryID  string                        `json:"category_id,omitempty"`
	TaskID      string                        `json:"task_id,omitempty"`
	ModelType   string                        `json:"model_type,omitempty"`
	Tags        []string                      `json:"tags,omitempty"`
	Variables   []promptsync.TemplateVariable `json:"variables,omitempty"`
}

// ListCatalog lists a community catalog, newest-first by default
func (h *CatalogHandler) ListCatalog(w http.ResponseWriter, r *http.Request) {
	kind, ok := catalogKind(w, r)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	order := promptsync.OrderNewest
	if r.URL.Query().Get("order") == "most_liked" {
		order = promptsync.OrderMostLiked
	}

	items, err := h.service.ListCatalog(r.Context(), promptsync.ListCatalogRequest{
		Kind:       kind,
		Order:      order,
		Tag:        r.URL.Query().Get("tag"),
		CategoryID: r.URL.Query().Get("category"),
		Limit:      limit,
	})
	if err != nil {
		renderError(w, err)
		return
	}
	render.JSON(w, r, items)
}

// PublishItem publishes a new catalog item authored by the caller
func (h *CatalogHandler) PublishItem(w http.ResponseWriter, r *http.Request) {
	kind, ok := catalogKind(w, r)
	if !ok {
		return
	}
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req PublishItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	item, err := h.service.PublishCatalogItem(r.Context(), promptsync.PublishCatalogItemRequest{
		Kind:        kind,
		AuthorID:    userID,
		Title:       req.Title,
		Body:        req.Body,
		Description: req.Description,
		CategoryID:  req.CategoryID,
		TaskID:      req.TaskID,
		ModelType:   req.ModelType,
		Tags:        req.Tags,
		Variables:   req.Variables,
	})
	if err != nil {
		renderError(w, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, item)
}

// GetItem retrieves one catalog item
func (h *CatalogHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	kind, ok := catalogKind(w, r)
	if !ok {
		return
	}

	item, err := h.service.GetCatalogItem(r.Context(), kind, chi.URLParam(r, "id"))
	if err != nil {
		renderError(w, err)
		return
	}
	render.JSON(w, r, item)
}

// DeleteItem deletes a catalog item owned by the caller
func (h *CatalogHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	kind, ok := catalogKind(w, r)
	if !ok {
		return
	}
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteCatalogItem(r.Context(), kind, chi.URLParam(r, "id"), userID); err != nil {
		renderError(w, err)
		return
	}
	render.NoContent(w, r)
}

// LikeResponse reports the like state after a toggle
type LikeResponse struct {
	Liked bool `json:"liked"`
}

// ToggleLike flips the caller's like on an item
func (h *CatalogHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	kind, ok := catalogKind(w, r)
	if !ok {
		return
	}
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	liked, err := h.service.ToggleLike(r.Context(), kind, chi.URLParam(r, "id"), userID)
	if err != nil {
		renderError(w, err)
		return
	}
	render.JSON(w, r, LikeResponse{Liked: liked})
}

// IsLiked reports whether the caller likes an item
func (h *CatalogHandler) IsLiked(w http.ResponseWriter, r *http.Request) {
	kind, ok := catalogKind(w, r)
	if !ok {
		return
	}
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	liked, err := h.service.IsLiked(r.Context(), kind, chi.URLParam(r, "id"), userID)
	if err != nil {
		renderError(w, err)
		return
	}
	render.JSON(w, r, LikeResponse{Liked: liked})
}

// LikeCount returns the number of likes on an item
func (h *CatalogHandler) LikeCount(w http.ResponseWriter, r *http.Request) {
	kind, ok := catalogKind(w, r)
	if !ok {
		return
	}

	count, err := h.service.LikeCount(r.Context(), kind, chi.URLParam(r, "id"))
	if err != nil {
		renderError(w, err)
		return
	}
	render.JSON(w, r, map[string]int64{"count": count})
}

// IncrementUsage bumps the usage counter of an item
func (h *CatalogHandler) IncrementUsage(w http.ResponseWriter, r *http.Request) {
	if err := h.service.IncrementUsage(r.Context(), chi.URLParam(r, "id")); err != nil {
		renderError(w, err)
		return
	}
	render.NoContent(w, r)
}

// UsageCount returns the usage record of an item
func (h *CatalogHandler) UsageCount(w http.ResponseWriter, r *http.Request) {
	record, err := h.service.UsageCount(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		renderError(w, err)
		return
	}
	render.JSON(w, r, record)
}

// Feed serves the latest live snapshot of a catalog. The underlying feed is
// established on first request per kind and torn down on server shutdown.
func (h *CatalogHandler) Feed(w http.ResponseWriter, r *http.Request) {
	kind, ok := catalogKind(w, r)
	if !ok {
		return
	}

	feed, err := h.feedFor(kind)
	if err != nil {
		renderError(w, err)
		return
	}
	render.JSON(w, r, feed.Snapshot())
}

func (h *CatalogHandler) feedFor(kind promptsync.CatalogKind) (*promptsync.CatalogFeed, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if feed, ok := h.feeds[kind]; ok {
		return feed, nil
	}
	// The feed outlives the request; the background context keeps it alive
	// until Close.
	feed, err := h.service.SubscribeCatalog(context.Background(), kind)
	if err != nil {
		return nil, err
	}
	h.feeds[kind] = feed
	return feed, nil
}

func catalogKind(w http.ResponseWriter, r *http.Request) (promptsync.CatalogKind, bool) {
	kind := promptsync.CatalogKind(chi.URLParam(r, "kind"))
	if !kind.Valid() {
		http.Error(w, "unknown catalog kind", http.StatusBadRequest)
		return "", false
	}
	return kind, true
}
