package fsstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/squallbt/squall/torrent/blobstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestPutGet(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Put("a.fastresume", []byte("one")))

	b, err := s.Get("a.fastresume")
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), b)

	// last write wins
	require.NoError(t, s.Put("a.fastresume", []byte("two")))
	b, err = s.Get("a.fastresume")
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), b)
}

func TestGetNotExist(t *testing.T) {
	s := newStore(t)
	_, err := s.Get("missing")
	assert.ErrorIs(t, err, blobstore.ErrNotExist)
}

func TestDelete(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Put("a", []byte("x")))
	require.NoError(t, s.Delete("a"))
	_, err := s.Get("a")
	assert.ErrorIs(t, err, blobstore.ErrNotExist)

	// deleting a missing blob is fine
	assert.NoError(t, s.Delete("a"))
}

func TestList(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Put("b", []byte("2")))
	require.NoError(t, s.Put("a", []byte("1")))

	// leftover temp files are not blobs
	require.NoError(t, os.WriteFile(filepath.Join(s.dir, tmpPrefix+"junk"), []byte("x"), 0o600))

	names, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)
}

func TestInvalidNames(t *testing.T) {
	s := newStore(t)
	for _, name := range []string{"", ".", "..", "a/b", `a\b`} {
		assert.Error(t, s.Put(name, []byte("x")), name)
	}
}
