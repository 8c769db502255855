package torrent

import (
	"path/filepath"
	"testing"

	"github.com/fortytw2/leaktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryNames(t *testing.T) {
	assert.True(t, validCategoryName("movies"))
	assert.True(t, validCategoryName("movies/hd"))
	assert.False(t, validCategoryName(""))
	assert.False(t, validCategoryName("/movies"))
	assert.False(t, validCategoryName("movies/"))
	assert.False(t, validCategoryName("a//b"))
	assert.False(t, validCategoryName(`a\b`))
}

func TestTagNames(t *testing.T) {
	assert.True(t, validTagName("work"))
	assert.True(t, validTagName("two words"))
	assert.False(t, validTagName(""))
	assert.False(t, validTagName(" padded "))
	assert.False(t, validTagName("a,b"))
}

func TestCategories(t *testing.T) {
	defer leaktest.Check(t)()
	s := newTestSession(t)
	defer s.Close()

	require.NoError(t, s.AddCategory("movies", ""))
	var ie *InputError
	assert.ErrorAs(t, s.AddCategory("movies", ""), &ie)
	assert.ErrorAs(t, s.AddCategory("bad//name", ""), &ie)
	assert.ErrorAs(t, s.EditCategory("unknown", ""), &ie)
	assert.ErrorAs(t, s.RemoveCategory("unknown"), &ie)

	override := filepath.Join(t.TempDir(), "override")
	require.NoError(t, s.AddCategory("books", override))
	assert.Equal(t, map[string]string{"movies": "", "books": override}, s.Categories())
}

func TestCategorySavePath(t *testing.T) {
	defer leaktest.Check(t)()
	s := newTestSession(t)
	defer s.Close()

	tor, err := s.AddTorrent(testTorrentReader(t, "filmfile"), &AddTorrentOptions{
		AutoManaged: true,
		Category:    "movies",
	})
	require.NoError(t, err)
	waitNotification(t, s, NotifyTorrentAdded)

	// Without an override the path derives from the category name.
	defaultPath := s.Config().DefaultSavePath
	assert.Equal(t, filepath.Join(defaultPath, "movies"), tor.Stats().SavePath)

	// Auto managed torrents follow the category's path override.
	override := filepath.Join(t.TempDir(), "override")
	require.NoError(t, s.EditCategory("movies", override))
	assert.Equal(t, override, tor.Stats().SavePath)

	// Relative overrides resolve under the default save path.
	require.NoError(t, s.EditCategory("movies", "films"))
	assert.Equal(t, filepath.Join(defaultPath, "films"), tor.Stats().SavePath)
}

func TestSetTorrentCategory(t *testing.T) {
	defer leaktest.Check(t)()
	s := newTestSession(t)
	defer s.Close()

	tor := addTestTorrent(t, s, "recat")
	require.NoError(t, tor.SetCategory("fresh"))
	assert.Equal(t, "fresh", tor.Stats().Category)
	// Setting an unknown category creates it.
	assert.Contains(t, s.Categories(), "fresh")

	require.NoError(t, tor.SetCategory(""))
	assert.Empty(t, tor.Stats().Category)

	var ie *InputError
	assert.ErrorAs(t, tor.SetCategory("bad//name"), &ie)
}

func TestRemoveCategoryClearsTorrents(t *testing.T) {
	defer leaktest.Check(t)()
	s := newTestSession(t)
	defer s.Close()

	tor := addTestTorrent(t, s, "orphaned")
	require.NoError(t, tor.SetCategory("temp"))
	require.NoError(t, s.RemoveCategory("temp"))
	assert.Empty(t, tor.Stats().Category)
	assert.NotContains(t, s.Categories(), "temp")
}

func TestTags(t *testing.T) {
	defer leaktest.Check(t)()
	s := newTestSession(t)
	defer s.Close()

	require.NoError(t, s.AddTag("seen"))
	var ie *InputError
	assert.ErrorAs(t, s.AddTag("seen"), &ie)
	assert.ErrorAs(t, s.AddTag("a,b"), &ie)
	assert.ErrorAs(t, s.RemoveTag("unknown"), &ie)

	tor := addTestTorrent(t, s, "tagme")
	// Attaching unknown tags registers them.
	require.NoError(t, tor.AddTags([]string{"new", "seen"}))
	assert.Equal(t, []string{"new", "seen"}, tor.Stats().Tags)
	assert.Equal(t, []string{"new", "seen"}, s.Tags())

	// Detaching keeps the tag registered.
	require.NoError(t, tor.RemoveTags([]string{"seen"}))
	assert.Equal(t, []string{"new"}, tor.Stats().Tags)
	assert.Equal(t, []string{"new", "seen"}, s.Tags())

	// Deleting a tag detaches it everywhere.
	require.NoError(t, s.RemoveTag("new"))
	assert.Empty(t, tor.Stats().Tags)
	assert.Equal(t, []string{"seen"}, s.Tags())
}
