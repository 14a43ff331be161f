package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth"
	"github.com/go-chi/render"

	"github.com/promptkit/promptsync/pkg/promptsync"
)

// TemplateHandler handles HTTP requests for private templates and the public
// template catalog
type TemplateHandler struct {
	service promptsync.Service
}

// NewTemplateHandler creates a new template handler
func NewTemplateHandler(service promptsync.Service) *TemplateHandler {
	return &TemplateHandler{service: service}
}

// Routes returns the routes for templates
func (h *TemplateHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.CreateTemplate)
	r.Get("/", h.ListTemplates)
	r.Get("/{id}", h.GetTemplate)
	r.Put("/{id}", h.UpdateTemplate)
	r.Delete("/{id}", h.DeleteTemplate)

	return r
}

// PublicRoutes returns the routes for the public template catalog
func (h *TemplateHandler) PublicRoutes() chi.Router {
	r := chi.NewRouter()

	r.Get("/search", h.SearchPublic)
	r.Get("/", h.ListPublic)
	r.Get("/{id}", h.GetPublic)
	r.Post("/{id}/fork", h.ForkTemplate)

	return r
}

// TemplateRequest is the request body for creating or updating a template
type TemplateRequest struct {
	Title          string                        `json:"title"`
	Body           string                        `json:"body"`
	Description    string                        `json:"description,omitempty"`
	CategoryID     string                        `json:"category_id,omitempty"`
	TaskID         string                        `json:"task_id,omitempty"`
	Tags           []string                      `json:"tags,omitempty"`
	Variables      []promptsync.TemplateVariable `json:"variables,omitempty"`
	IsPublic       bool                          `json:"is_public"`
	FolderID       string                        `json:"folder_id,omitempty"`
	SampleImageURL string                        `json:"sample_image_url,omitempty"`
	FullImageURL   string                        `json:"full_image_url,omitempty"`
}

// CreateTemplate creates a new template owned by the caller
func (h *TemplateHandler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req TemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	template, err := h.service.CreateTemplate(r.Context(), promptsync.CreateTemplateRequest{
		OwnerID:        userID,
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
	})
	if err != nil {
		renderError(w, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, template)
}

// ListTemplates lists the caller's templates, newest first
func (h *TemplateHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	templates, err := h.service.ListTemplates(r.Context(), userID)
	if err != nil {
		renderError(w, err)
		return
	}
	render.JSON(w, r, templates)
}

// GetTemplate retrieves one of the caller's templates by ID
func (h *TemplateHandler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	template, err := h.service.GetTemplate(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		renderError(w, err)
		return
	}
	render.JSON(w, r, template)
}

// UpdateTemplate overwrites one of the caller's templates and re-applies the
// mirror invariant
func (h *TemplateHandler) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	existing, err := h.service.GetTemplate(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		renderError(w, err)
		return
	}

	var req TemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	existing.Title = req.Title
	existing.Body = req.Body
	existing.Description = req.Description
	existing.CategoryID = req.CategoryID
	existing.TaskID = req.TaskID
	existing.Tags = req.Tags
	existing.Variables = req.Variables
	existing.IsPublic = req.IsPublic
	existing.FolderID = req.FolderID
	existing.SampleImageURL = req.SampleImageURL
	existing.FullImageURL = req.FullImageURL

	if err := h.service.UpdateTemplate(r.Context(), existing); err != nil {
		renderError(w, err)
		return
	}
	render.JSON(w, r, existing)
}

// DeleteTemplate deletes one of the caller's templates and its mirror
func (h *TemplateHandler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	template, err := h.service.GetTemplate(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		renderError(w, err)
		return
	}

	if err := h.service.DeleteTemplate(r.Context(), template); err != nil {
		renderError(w, err)
		return
	}
	render.NoContent(w, r)
}

// SearchPublic searches public templates by title prefix
func (h *TemplateHandler) SearchPublic(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("prefix")
	templates, err := h.service.SearchPublicTemplates(r.Context(), prefix)
	if err != nil {
		renderError(w, err)
		return
	}
	render.JSON(w, r, templates)
}

// ListPublic lists public templates filtered by tag or category
func (h *TemplateHandler) ListPublic(w http.ResponseWriter, r *http.Request) {
	var (
		templates []*promptsync.Template
		err       error
	)
	switch {
	case r.URL.Query().Get("tag") != "":
		templates, err = h.service.ListPublicTemplatesByTag(r.Context(), r.URL.Query().Get("tag"))
	case r.URL.Query().Get("category") != "":
		templates, err = h.service.ListPublicTemplatesByCategory(r.Context(), r.URL.Query().Get("category"))
	default:
		http.Error(w, "tag or category query parameter is required", http.StatusBadRequest)
		return
	}
	if err != nil {
		renderError(w, err)
		return
	}
	render.JSON(w, r, templates)
}

// GetPublic retrieves a public template mirror by ID
func (h *TemplateHandler) GetPublic(w http.ResponseWriter, r *http.Request) {
	template, err := h.service.GetPublicTemplate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		renderError(w, err)
		return
	}
	render.JSON(w, r, template)
}

// ForkTemplate clones a public template into the caller's private space
func (h *TemplateHandler) ForkTemplate(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	src, err := h.service.GetPublicTemplate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		renderError(w, err)
		return
	}

	forked, err := h.service.ForkTemplate(r.Context(), src, userID)
	if err != nil {
		renderError(w, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, forked)
}

// callerID extracts the authenticated user identifier from the JWT sub
// claim. The identity provider itself is opaque to this layer.
func callerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return "", false
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return "", false
	}
	return sub, true
}

// renderError maps service errors onto HTTP status codes.
func renderError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, promptsync.ErrTemplateNotFound),
		errors.Is(err, promptsync.ErrItemNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, promptsync.ErrNotOwner):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, promptsync.ErrUnknownKind):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
