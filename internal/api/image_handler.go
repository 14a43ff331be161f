package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/promptkit/promptsync/pkg/promptsync"
)

// ImageHandler handles template image uploads into blob storage
type ImageHandler struct {
	service promptsync.Service
}

// NewImageHandler creates a new image handler
func NewImageHandler(service promptsync.Service) *ImageHandler {
	return &ImageHandler{service: service}
}

// Routes returns the routes for image uploads
func (h *ImageHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.UploadImage)
	return r
}

// UploadResponse carries the durable retrieval URL of an uploaded image
type UploadResponse struct {
	URL string `json:"url"`
}

// UploadImage stores the raw request body in blob storage and returns its
// retrieval URL. Content type comes from the request header.
func (h *ImageHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	if _, ok := callerID(w, r); !ok {
		return
	}

	url, err := h.service.UploadImage(r.Context(), promptsync.UploadImageRequest{
		Reader:      r.Body,
		ContentType: r.Header.Get("Content-Type"),
		BackendName: r.URL.Query().Get("backend"),
	})
	if err != nil {
		renderError(w, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, UploadResponse{URL: url})
}
