package fs

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	backend, err := New(Config{
		BaseDir:   t.TempDir(),
		URLPrefix: "http://localhost:8080",
	})
	require.NoError(t, err)
	return backend
}

func TestNewRequiresBaseDir(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base directory")
}

func TestUploadDownload(t *testing.T) {
	backend := newTestBackend(t)
	ctx := context.Background()

	err := backend.Upload(ctx, "images/pic.png", "image/png", strings.NewReader("payload"))
	require.NoError(t, err)

	reader, err := backend.Download(ctx, "images/pic.png")
	require.NoError(t, err)
	defer reader.Close()

	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestGetDownloadURL(t *testing.T) {
	backend := newTestBackend(t)

	url, err := backend.GetDownloadURL(context.Background(), "images/pic.png")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/download/images/pic.png", url)
}

func TestGetDownloadURLWithoutPrefix(t *testing.T) {
	backend, err := New(Config{BaseDir: t.TempDir()})
	require.NoError(t, err)

	_, err = backend.GetDownloadURL(context.Background(), "key")
	assert.Error(t, err)
}

func TestDownloadMissing(t *testing.T) {
	backend := newTestBackend(t)

	_, err := backend.Download(context.Background(), "nope")
	assert.EqualError(t, err, "object not found")
}

func TestGetObjectMeta(t *testing.T) {
	backend := newTestBackend(t)
	ctx := context.Background()

	require.NoError(t, backend.Upload(ctx, "doc.txt", "", strings.NewReader("hello meta")))

	meta, err := backend.GetObjectMeta(ctx, "doc.txt")
	require.NoError(t, err)
	assert.Equal(t, "doc.txt", meta.Key)
	assert.Equal(t, int64(len("hello meta")), meta.Size)
	assert.NotEmpty(t, meta.ContentType)
}

func TestDeleteCleansEmptyDirectories(t *testing.T) {
	baseDir := t.TempDir()
	backend, err := New(Config{BaseDir: baseDir})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, backend.Upload(ctx, "a/b/file.txt", "", strings.NewReader("x")))
	require.NoError(t, backend.Delete(ctx, "a/b/file.txt"))

	_, err = os.Stat(filepath.Join(baseDir, "a"))
	assert.True(t, os.IsNotExist(err), "empty parent directories should be removed")

	err = backend.Delete(ctx, "a/b/file.txt")
	assert.EqualError(t, err, "object not found")
}
