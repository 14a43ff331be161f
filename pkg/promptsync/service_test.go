package promptsync_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptkit/promptsync/pkg/promptsync"
	memorystore "github.com/promptkit/promptsync/pkg/promptsync/docstore/memory"
	memorystorage "github.com/promptkit/promptsync/pkg/promptsync/storage/memory"
)

func setupTestService(t *testing.T) (promptsync.Service, *memorystore.Store) {
	t.Helper()

	store := memorystore.New()
	svc, err := promptsync.New(
		promptsync.WithDocumentStore(store),
		promptsync.WithBlobStore("memory", memorystorage.New()),
	)
	require.NoError(t, err)
	return svc, store
}

func TestNewRequiresDocumentStore(t *testing.T) {
	_, err := promptsync.New()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "document store")
}

func TestCreateTemplatePrivateHasNoMirror(t *testing.T) {
	svc, store := setupTestService(t)
	ctx := context.Background()

	template, err := svc.CreateTemplate(ctx, promptsync.CreateTemplateRequest{
		OwnerID: "alice",
		Title:   "Draft",
		Body:    "private body",
	})
	require.NoError(t, err)
	assert.False(t, template.IsPublic)
	assert.Equal(t, promptsync.SourceTypeManual, template.SourceType)

	got, err := svc.GetTemplate(ctx, "alice", template.ID)
	require.NoError(t, err)
	assert.Equal(t, "Draft", got.Title)

	doc, err := store.Get(ctx, promptsync.CollectionPublicTemplates, template.ID)
	require.NoError(t, err)
	assert.Nil(t, doc, "private template must not have a public mirror")
}

func TestCreateTemplatePublicMirrorsContent(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	template, err := svc.CreateTemplate(ctx, promptsync.CreateTemplateRequest{
		OwnerID:  "alice",
		Title:    "Shared",
		Body:     "public body",
		Tags:     []string{"go", "testing"},
		IsPublic: true,
		Variables: []promptsync.TemplateVariable{
			{Name: "topic", Label: "Topic", Order: 0},
		},
	})
	require.NoError(t, err)

	mirror, err := svc.GetPublicTemplate(ctx, template.ID)
	require.NoError(t, err)
	assert.Equal(t, template.ID, mirror.ID)
	assert.Equal(t, template.OwnerID, mirror.OwnerID)
	assert.Equal(t, template.Title, mirror.Title)
	assert.Equal(t, template.Body, mirror.Body)
	assert.Equal(t, template.Tags, mirror.Tags)
	assert.Equal(t, template.Variables, mirror.Variables)
	assert.True(t, mirror.IsPublic)
}

func TestUpdateTemplateVisibilityToggle(t *testing.T) {
	svc, store := setupTestService(t)
	ctx := context.Background()

	template, err := svc.CreateTemplate(ctx, promptsync.CreateTemplateRequest{
		OwnerID: "alice",
		Title:   "Toggle",
		Body:    "body",
	})
	require.NoError(t, err)

	// Flip public: mirror appears.
	template.IsPublic = true
	require.NoError(t, svc.UpdateTemplate(ctx, template))

	mirror, err := svc.GetPublicTemplate(ctx, template.ID)
	require.NoError(t, err)
	assert.Equal(t, "Toggle", mirror.Title)

	// Edit while public: mirror tracks the private copy.
	template.Title = "Toggle v2"
	require.NoError(t, svc.UpdateTemplate(ctx, template))
	mirror, err = svc.GetPublicTemplate(ctx, template.ID)
	require.NoError(t, err)
	assert.Equal(t, "Toggle v2", mirror.Title)

	// Flip private: mirror disappears, private copy survives.
	template.IsPublic = false
	require.NoError(t, svc.UpdateTemplate(ctx, template))

	_, err = svc.GetPublicTemplate(ctx, template.ID)
	assert.ErrorIs(t, err, promptsync.ErrTemplateNotFound)

	got, err := svc.GetTemplate(ctx, "alice", template.ID)
	require.NoError(t, err)
	assert.Equal(t, "Toggle v2", got.Title)

	doc, err := store.Get(ctx, promptsync.CollectionPublicTemplates, template.ID)
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestDeleteTemplateRemovesMirror(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	template, err := svc.CreateTemplate(ctx, promptsync.CreateTemplateRequest{
		OwnerID:  "alice",
		Title:    "Gone",
		Body:     "body",
		IsPublic: true,
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteTemplate(ctx, template))

	_, err = svc.GetTemplate(ctx, "alice", template.ID)
	assert.ErrorIs(t, err, promptsync.ErrTemplateNotFound)
	_, err = svc.GetPublicTemplate(ctx, template.ID)
	assert.ErrorIs(t, err, promptsync.ErrTemplateNotFound)
}

func TestListTemplatesOnlyOwner(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	for _, title := range []string{"one", "two", "three"} {
		_, err := svc.CreateTemplate(ctx, promptsync.CreateTemplateRequest{
			OwnerID: "alice", Title: title, Body: "b",
		})
		require.NoError(t, err)
	}
	_, err := svc.CreateTemplate(ctx, promptsync.CreateTemplateRequest{
		OwnerID: "bob", Title: "other", Body: "b",
	})
	require.NoError(t, err)

	templates, err := svc.ListTemplates(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, templates, 3)
	for _, template := range templates {
		assert.Equal(t, "alice", template.OwnerID)
	}
}

func TestSearchPublicTemplatesByTitlePrefix(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	titles := []string{"Code Review", "Code Golf", "Recipe Helper"}
	for _, title := range titles {
		_, err := svc.CreateTemplate(ctx, promptsync.CreateTemplateRequest{
			OwnerID: "alice", Title: title, Body: "b", IsPublic: true,
		})
		require.NoError(t, err)
	}

	found, err := svc.SearchPublicTemplates(ctx, "Code")
	require.NoError(t, err)
	require.Len(t, found, 2)
	for _, template := range found {
		assert.True(t, strings.HasPrefix(template.Title, "Code"))
	}

	none, err := svc.SearchPublicTemplates(ctx, "Zoology")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestListPublicTemplatesByTagAndCategory(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	_, err := svc.CreateTemplate(ctx, promptsync.CreateTemplateRequest{
		OwnerID: "alice", Title: "tagged", Body: "b", IsPublic: true,
		Tags: []string{"go", "review"}, CategoryID: "cat-1",
	})
	require.NoError(t, err)
	_, err = svc.CreateTemplate(ctx, promptsync.CreateTemplateRequest{
		OwnerID: "alice", Title: "untagged", Body: "b", IsPublic: true,
		CategoryID: "cat-2",
	})
	require.NoError(t, err)

	byTag, err := svc.ListPublicTemplatesByTag(ctx, "go")
	require.NoError(t, err)
	require.Len(t, byTag, 1)
	assert.Equal(t, "tagged", byTag[0].Title)

	byCategory, err := svc.ListPublicTemplatesByCategory(ctx, "cat-2")
	require.NoError(t, err)
	require.Len(t, byCategory, 1)
	assert.Equal(t, "untagged", byCategory[0].Title)
}

func TestForkTemplate(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	src, err := svc.CreateTemplate(ctx, promptsync.CreateTemplateRequest{
		OwnerID:  "alice",
		Title:    "Original",
		Body:     "body",
		Tags:     []string{"go"},
		FolderID: "alice-folder",
		IsPublic: true,
		Variables: []promptsync.TemplateVariable{
			{Name: "x", Label: "X", Order: 0},
		},
	})
	require.NoError(t, err)

	forked, err := svc.ForkTemplate(ctx, src, "bob")
	require.NoError(t, err)

	assert.NotEqual(t, src.ID, forked.ID)
	assert.Equal(t, "bob", forked.OwnerID)
	assert.False(t, forked.IsPublic, "forks start private")
	assert.Equal(t, src.ID, forked.OriginalTemplateID)
	assert.Equal(t, promptsync.SourceTypeForked, forked.SourceType)
	assert.Equal(t, src.Title, forked.Title)
	assert.Equal(t, src.Body, forked.Body)
	assert.Equal(t, src.Tags, forked.Tags)
	assert.Equal(t, src.Variables, forked.Variables)
	assert.Equal(t, src.FolderID, forked.FolderID)

	// The fork lands in the new owner's private space only.
	got, err := svc.GetTemplate(ctx, "bob", forked.ID)
	require.NoError(t, err)
	assert.Equal(t, "Original", got.Title)
	_, err = svc.GetPublicTemplate(ctx, forked.ID)
	assert.ErrorIs(t, err, promptsync.ErrTemplateNotFound)

	// Forking counts as a use of the source.
	usage, err := svc.UsageCount(ctx, src.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), usage.Count)
	assert.False(t, usage.LastUsedAt.IsZero())
}

func TestForkSurvivesSourceDeletion(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	src, err := svc.CreateTemplate(ctx, promptsync.CreateTemplateRequest{
		OwnerID: "alice", Title: "Ephemeral", Body: "b", IsPublic: true,
	})
	require.NoError(t, err)

	forked, err := svc.ForkTemplate(ctx, src, "bob")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteTemplate(ctx, src))

	// The fork is a full copy; provenance dangles but the copy stays intact.
	got, err := svc.GetTemplate(ctx, "bob", forked.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ephemeral", got.Title)
	assert.Equal(t, src.ID, got.OriginalTemplateID)

	_, err = svc.GetPublicTemplate(ctx, got.OriginalTemplateID)
	assert.ErrorIs(t, err, promptsync.ErrTemplateNotFound)
}

func TestGetTemplateNotFound(t *testing.T) {
	svc, _ := setupTestService(t)

	_, err := svc.GetTemplate(context.Background(), "alice", "missing")
	assert.ErrorIs(t, err, promptsync.ErrTemplateNotFound)
}

func TestUploadImage(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	url, err := svc.UploadImage(ctx, promptsync.UploadImageRequest{
		Reader:      strings.NewReader("fake png bytes"),
		ContentType: "image/png",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "memory://"))
}

func TestUploadImageUnknownBackend(t *testing.T) {
	svc, _ := setupTestService(t)

	_, err := svc.UploadImage(context.Background(), promptsync.UploadImageRequest{
		Reader:      strings.NewReader("data"),
		BackendName: "nope",
	})
	assert.ErrorIs(t, err, promptsync.ErrBackendNotFound)
}

func TestRegisterBackend(t *testing.T) {
	svc, _ := setupTestService(t)

	svc.RegisterBackend("extra", memorystorage.New())
	backend, err := svc.GetBackend("extra")
	require.NoError(t, err)
	assert.NotNil(t, backend)

	_, err = svc.GetBackend("missing")
	assert.ErrorIs(t, err, promptsync.ErrBackendNotFound)
}
