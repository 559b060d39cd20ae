package upload

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// formFile builds a multipart request carrying one file and returns its header.
func formFile(t *testing.T, field, filename string, content []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/create_card", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	_, fh, err := req.FormFile(field)
	require.NoError(t, err)
	return fh
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestStore_NoFile(t *testing.T) {
	dir := t.TempDir()
	h, err := NewHandler(dir)
	require.NoError(t, err)

	name, err := h.Store(nil, SlotLogo, "")
	require.NoError(t, err)
	assert.Empty(t, name)

	name, err = h.Store(&multipart.FileHeader{}, SlotPhoto, "")
	require.NoError(t, err)
	assert.Empty(t, name)

	assert.Empty(t, listDir(t, dir), "no file must be written")
}

func TestStore_WritesSanitizedName(t *testing.T) {
	dir := t.TempDir()
	h, err := NewHandler(dir)
	require.NoError(t, err)

	fh := formFile(t, "logo", "../My Logo.png", []byte("PNGDATA"))
	name, err := h.Store(fh, SlotLogo, "")
	require.NoError(t, err)
	// multipart already strips the directory part of the client filename.
	assert.Equal(t, "logo_My_Logo.png", name)

	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	assert.Equal(t, "PNGDATA", string(data))
	assert.Equal(t, []string{name}, listDir(t, dir), "temp files must not be left behind")
}

func TestSave_OverwritesSameName(t *testing.T) {
	dir := t.TempDir()
	h, err := NewHandler(dir)
	require.NoError(t, err)

	first, err := h.Save(strings.NewReader("one"), "me.jpg", SlotPhoto, "")
	require.NoError(t, err)
	second, err := h.Save(strings.NewReader("two"), "me.jpg", SlotPhoto, "")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	data, err := os.ReadFile(filepath.Join(dir, "photo_me.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))
}

func TestSave_Partitioned(t *testing.T) {
	dir := t.TempDir()
	h, err := NewHandler(dir)
	require.NoError(t, err)

	name, err := h.Save(strings.NewReader("x"), "bg.png", SlotCover, "3f2a")
	require.NoError(t, err)
	assert.Equal(t, "cover_bg.png", name)
	assert.FileExists(t, filepath.Join(dir, "3f2a", "cover_bg.png"))
	assert.Equal(t, filepath.Join(dir, "3f2a"), h.Dir("3f2a"))
	assert.Equal(t, dir, h.Dir(""))
}

func TestSave_RejectsUnsafeAssetKey(t *testing.T) {
	h, err := NewHandler(t.TempDir())
	require.NoError(t, err)

	_, err = h.Save(strings.NewReader("x"), "a.png", SlotLogo, "../escape")
	assert.ErrorContains(t, err, "invalid asset key")
}

func TestSave_UnwritableDirectory(t *testing.T) {
	root := t.TempDir()
	h, err := NewHandler(filepath.Join(root, "uploads"))
	require.NoError(t, err)

	// Replace the directory with a regular file so writes fail for any user.
	require.NoError(t, os.Remove(filepath.Join(root, "uploads")))
	require.NoError(t, os.WriteFile(filepath.Join(root, "uploads"), nil, 0o644))

	_, err = h.Save(strings.NewReader("x"), "a.png", SlotLogo, "")
	assert.Error(t, err)
}

func TestSave_EmptySanitizedName(t *testing.T) {
	dir := t.TempDir()
	h, err := NewHandler(dir)
	require.NoError(t, err)

	name, err := h.Save(strings.NewReader("x"), "日本", Slot(""), "")
	require.NoError(t, err)
	assert.Empty(t, name)
	assert.Empty(t, listDir(t, dir))
}

func TestDiscard_Shared(t *testing.T) {
	dir := t.TempDir()
	h, err := NewHandler(dir)
	require.NoError(t, err)

	logo, err := h.Save(strings.NewReader("x"), "a.png", SlotLogo, "")
	require.NoError(t, err)
	keep, err := h.Save(strings.NewReader("y"), "b.png", SlotCover, "")
	require.NoError(t, err)

	require.NoError(t, h.Discard([]string{logo, "", "photo_gone.png", "../" + keep}, ""))
	assert.Equal(t, []string{keep}, listDir(t, dir))
}

func TestDiscard_Partitioned(t *testing.T) {
	dir := t.TempDir()
	h, err := NewHandler(dir)
	require.NoError(t, err)

	_, err = h.Save(strings.NewReader("x"), "a.png", SlotLogo, "k1")
	require.NoError(t, err)
	_, err = h.Save(strings.NewReader("y"), "b.png", SlotLogo, "k2")
	require.NoError(t, err)

	require.NoError(t, h.Discard(nil, "k1"))
	assert.NoDirExists(t, filepath.Join(dir, "k1"))
	assert.FileExists(t, filepath.Join(dir, "k2", "logo_b.png"))

	assert.ErrorContains(t, h.Discard(nil, "../k2"), "invalid asset key")
}
