package service

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maheshrc27/pageflow/internal/models"
)

func TestScanMediaFolder(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.mp4", "b.MOV", "c.txt", "d.png"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "Uploaded"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Uploaded", "old.mp4"), []byte("x"), 0o644))

	files, err := ScanMediaFolder(dir, models.VideoExtensions)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "a.mp4"),
		filepath.Join(dir, "b.MOV"),
	}, files)
}

func TestScanMediaFolderMissing(t *testing.T) {
	_, err := ScanMediaFolder("/no/such/folder", models.VideoExtensions)
	assert.Error(t, err)
}

func TestSortMediaFilesByName(t *testing.T) {
	files := []string{"c.mp4", "a.mp4", "b.mp4"}
	sorted := SortMediaFiles(files, models.SortByName, nil)
	assert.Equal(t, []string{"a.mp4", "b.mp4", "c.mp4"}, sorted)

	// Unknown modes sort by name too, and the input stays untouched.
	assert.Equal(t, []string{"a.mp4", "b.mp4", "c.mp4"}, SortMediaFiles(files, "bogus", nil))
	assert.Equal(t, []string{"c.mp4", "a.mp4", "b.mp4"}, files)
}

func TestSortMediaFilesRandomDeterministic(t *testing.T) {
	files := []string{"a", "b", "c", "d"}
	intn := func(n int) int { return 0 }
	first := SortMediaFiles(files, models.SortByRandom, intn)
	second := SortMediaFiles(files, models.SortByRandom, intn)
	assert.Equal(t, first, second)
	assert.ElementsMatch(t, files, first)
}

func TestSortMediaFilesByDate(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "old.mp4")
	recent := filepath.Join(dir, "recent.mp4")
	require.NoError(t, os.WriteFile(old, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(recent, []byte("x"), 0o644))
	require.NoError(t, os.Chtimes(old, time.Now().Add(-time.Hour), time.Now().Add(-time.Hour)))

	sorted := SortMediaFiles([]string{recent, old}, models.SortByDateModified, nil)
	assert.Equal(t, []string{old, recent}, sorted)
}

func TestRenderTitle(t *testing.T) {
	assert.Equal(t, "clip", RenderTitle("", "/media/clip.mp4"))
	assert.Equal(t, "clip", RenderTitle("{filename}", "/media/clip.mp4"))
	assert.Equal(t, "my clip video", RenderTitle("my {filename} video", "/media/clip.mp4"))

	today := time.Now().Format("2006-01-02")
	assert.Equal(t, "clip "+today, RenderTitle("{filename} {date}", "/media/clip.mp4"))
	assert.Equal(t, "static title", RenderTitle("static title", "/media/clip.mp4"))
}

func TestMoveToUploaded(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "clip.mp4")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))

	dest, err := MoveToUploaded(src, models.UploadedFolderName)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, models.UploadedFolderName, "clip.mp4"), dest)
	assert.NoFileExists(t, src)
	assert.FileExists(t, dest)
}

func TestMoveToUploadedCollision(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "clip.mp4")
	require.NoError(t, os.WriteFile(src, []byte("one"), 0o644))

	first, err := MoveToUploaded(src, models.UploadedFolderName)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(src, []byte("two"), 0o644))
	second, err := MoveToUploaded(src, models.UploadedFolderName)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.FileExists(t, first)
	assert.FileExists(t, second)
}
