package torrent

import (
	"errors"
	"testing"

	"github.com/fortytw2/leaktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoveTorrent(t *testing.T) {
	defer leaktest.Check(t)()
	s := newTestSession(t)
	defer s.Close()

	tor := addTestTorrent(t, s, "doomed")
	require.NoError(t, s.RemoveTorrent(tor.InfoHash(), DeleteNothing))

	// The torrent disappears from queries before the engine teardown
	// finishes.
	assert.Nil(t, s.GetTorrent(tor.InfoHash()))

	n := waitNotification(t, s, NotifyTorrentRemoved)
	assert.Equal(t, tor.InfoHash(), n.InfoHash)
	assert.Equal(t, "doomed", n.Name)
	assert.Empty(t, n.Path)
	assert.Empty(t, n.Error)
	assert.Equal(t, 0, s.Stats().Torrents)
}

func TestRemoveTorrentDeleteData(t *testing.T) {
	defer leaktest.Check(t)()
	s := newTestSession(t)
	defer s.Close()

	tor := addTestTorrent(t, s, "payload")
	savePath := tor.Stats().SavePath
	require.NoError(t, s.RemoveTorrent(tor.InfoHash(), DeleteData))

	n := waitNotification(t, s, NotifyTorrentRemoved)
	assert.Equal(t, savePath, n.Path)
	assert.Empty(t, n.Error)
}

func TestRemoveTorrentUnknown(t *testing.T) {
	defer leaktest.Check(t)()
	s := newTestSession(t)
	defer s.Close()

	ih, err := InfoHashFromHex("ffffffffffffffffffffffffffffffffffffffff")
	require.NoError(t, err)
	err = s.RemoveTorrent(ih, DeleteNothing)
	assert.True(t, errors.Is(err, ErrTorrentNotFound))
	var ie *InputError
	assert.ErrorAs(t, err, &ie)
}

func TestRemoveTorrentTwice(t *testing.T) {
	defer leaktest.Check(t)()
	s := newTestSession(t)
	defer s.Close()

	tor := addTestTorrent(t, s, "once")
	require.NoError(t, s.RemoveTorrent(tor.InfoHash(), DeleteNothing))
	err := s.RemoveTorrent(tor.InfoHash(), DeleteNothing)
	assert.True(t, errors.Is(err, ErrTorrentNotFound))
}
