package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptkit/promptsync/pkg/promptsync"
	memorystore "github.com/promptkit/promptsync/pkg/promptsync/docstore/memory"
	memorystorage "github.com/promptkit/promptsync/pkg/promptsync/storage/memory"
)

type testServer struct {
	router    chi.Router
	tokenAuth *jwtauth.JWTAuth
	catalog   *CatalogHandler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	svc, err := promptsync.New(
		promptsync.WithDocumentStore(memorystore.New()),
		promptsync.WithBlobStore("memory", memorystorage.New()),
	)
	require.NoError(t, err)

	tokenAuth := jwtauth.New("HS256", []byte("test-secret"), nil)

	templateHandler := NewTemplateHandler(svc)
	catalogHandler := NewCatalogHandler(svc)
	imageHandler := NewImageHandler(svc)
	t.Cleanup(catalogHandler.Close)

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(jwtauth.Verifier(tokenAuth))
		r.Use(jwtauth.Authenticator)

		r.Mount("/templates", templateHandler.Routes())
		r.Mount("/public/templates", templateHandler.PublicRoutes())
		r.Mount("/catalog", catalogHandler.Routes())
		r.Mount("/images", imageHandler.Routes())
	})

	return &testServer{router: r, tokenAuth: tokenAuth, catalog: catalogHandler}
}

func (s *testServer) request(t *testing.T, user, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	}

	req := httptest.NewRequest(method, path, reader)
	if user != "" {
		_, token, err := s.tokenAuth.Encode(map[string]interface{}{"sub": user})
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func TestRequestWithoutTokenIsRejected(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.request(t, "", http.MethodGet, "/templates/", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTemplateLifecycle(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.request(t, "alice", http.MethodPost, "/templates/", TemplateRequest{
		Title: "Draft", Body: "body text",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody[promptsync.Template](t, rec)
	assert.Equal(t, "alice", created.OwnerID)
	assert.False(t, created.IsPublic)

	// Private templates are invisible on the public surface.
	rec = srv.request(t, "bob", http.MethodGet, "/public/templates/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Publishing via update creates the mirror.
	rec = srv.request(t, "alice", http.MethodPut, "/templates/"+created.ID, TemplateRequest{
		Title: "Published", Body: "body text", IsPublic: true,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.request(t, "bob", http.MethodGet, "/public/templates/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	mirror := decodeBody[promptsync.Template](t, rec)
	assert.Equal(t, "Published", mirror.Title)

	// Owner listing.
	rec = srv.request(t, "alice", http.MethodGet, "/templates/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	listed := decodeBody[[]promptsync.Template](t, rec)
	require.Len(t, listed, 1)

	// Another user cannot see it under their own private space.
	rec = srv.request(t, "bob", http.MethodGet, "/templates/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Delete removes both copies.
	rec = srv.request(t, "alice", http.MethodDelete, "/templates/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = srv.request(t, "alice", http.MethodGet, "/templates/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = srv.request(t, "bob", http.MethodGet, "/public/templates/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestForkPublicTemplate(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.request(t, "alice", http.MethodPost, "/templates/", TemplateRequest{
		Title: "Shared", Body: "body", IsPublic: true,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	src := decodeBody[promptsync.Template](t, rec)

	rec = srv.request(t, "bob", http.MethodPost, "/public/templates/"+src.ID+"/fork", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	forked := decodeBody[promptsync.Template](t, rec)

	assert.Equal(t, "bob", forked.OwnerID)
	assert.NotEqual(t, src.ID, forked.ID)
	assert.Equal(t, src.ID, forked.OriginalTemplateID)
	assert.Equal(t, promptsync.SourceTypeForked, forked.SourceType)
	assert.False(t, forked.IsPublic)

	// Forking counted as one use of the source.
	rec = srv.request(t, "bob", http.MethodGet, "/catalog/quickPrompt/"+src.ID+"/usage", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	usage := decodeBody[promptsync.UsageRecord](t, rec)
	assert.Equal(t, int64(1), usage.Count)
}

func TestPublicSearchAndFilters(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.request(t, "alice", http.MethodPost, "/templates/", TemplateRequest{
		Title: "Code Review", Body: "b", IsPublic: true, Tags: []string{"go"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = srv.request(t, "bob", http.MethodGet, "/public/templates/search?prefix=Code", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	found := decodeBody[[]promptsync.Template](t, rec)
	assert.Len(t, found, 1)

	rec = srv.request(t, "bob", http.MethodGet, "/public/templates/?tag=go", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	byTag := decodeBody[[]promptsync.Template](t, rec)
	assert.Len(t, byTag, 1)

	rec = srv.request(t, "bob", http.MethodGet, "/public/templates/", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCatalogEndpoints(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.request(t, "alice", http.MethodPost, "/catalog/quickPrompt/", PublishItemRequest{
		Title: "Summarize", Body: "Summarize this.",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	item := decodeBody[promptsync.CatalogItem](t, rec)

	// Like toggling.
	rec = srv.request(t, "bob", http.MethodPost, "/catalog/quickPrompt/"+item.ID+"/like", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeBody[LikeResponse](t, rec).Liked)

	rec = srv.request(t, "bob", http.MethodGet, "/catalog/quickPrompt/"+item.ID+"/liked", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeBody[LikeResponse](t, rec).Liked)

	rec = srv.request(t, "carol", http.MethodGet, "/catalog/quickPrompt/"+item.ID+"/likes", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), decodeBody[map[string]int64](t, rec)["count"])

	// Usage.
	rec = srv.request(t, "bob", http.MethodPost, "/catalog/quickPrompt/"+item.ID+"/use", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = srv.request(t, "bob", http.MethodGet, "/catalog/quickPrompt/"+item.ID+"/usage", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), decodeBody[promptsync.UsageRecord](t, rec).Count)

	// Listing.
	rec = srv.request(t, "bob", http.MethodGet, "/catalog/quickPrompt/?order=most_liked", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	items := decodeBody[[]promptsync.CatalogItem](t, rec)
	require.Len(t, items, 1)
	assert.Equal(t, int64(1), items[0].LikeCount)

	// Only the author may delete.
	rec = srv.request(t, "bob", http.MethodDelete, "/catalog/quickPrompt/"+item.ID, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = srv.request(t, "alice", http.MethodDelete, "/catalog/quickPrompt/"+item.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = srv.request(t, "bob", http.MethodGet, "/catalog/quickPrompt/"+item.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCatalogFeedEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.request(t, "alice", http.MethodPost, "/catalog/workflow/", PublishItemRequest{
		Title: "Deploy", Body: "steps",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// The snapshot catches up shortly after the feed is established.
	require.Eventually(t, func() bool {
		rec := srv.request(t, "bob", http.MethodGet, "/catalog/workflow/feed", nil)
		if rec.Code != http.StatusOK {
			return false
		}
		var items []promptsync.CatalogItem
		if err := json.NewDecoder(rec.Body).Decode(&items); err != nil {
			return false
		}
		return len(items) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCatalogUnknownKind(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.request(t, "alice", http.MethodGet, "/catalog/bogus/", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImageUpload(t *testing.T) {
	srv := newTestServer(t)

	_, token, err := srv.tokenAuth.Encode(map[string]interface{}{"sub": "alice"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/images/", strings.NewReader("fake image bytes"))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "image/png")

	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeBody[UploadResponse](t, rec)
	assert.True(t, strings.HasPrefix(resp.URL, "memory://"))
}
