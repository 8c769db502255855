package boltstore

import (
	"path/filepath"
	"testing"

	"github.com/squallbt/squall/torrent/blobstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGet(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Put("a.fastresume", []byte("one")))

	b, err := s.Get("a.fastresume")
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), b)

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
	assert.NoError(t, s.Delete("a"))
}

func TestList(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Put("b", []byte("2")))
	require.NoError(t, s.Put("a", []byte("1")))
	names, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)
}

func TestReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	s, err := New(path)
	require.NoError(t, err)
	require.NoError(t, s.Put("a", []byte("x")))
	require.NoError(t, s.Close())

	s, err = New(path)
	require.NoError(t, err)
	defer s.Close()
	b, err := s.Get("a")
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), b)
}
