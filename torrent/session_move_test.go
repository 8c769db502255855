package torrent

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/squallbt/squall/engine/enginesim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoveStorage(t *testing.T) {
	defer leaktest.Check(t)()
	s := newTestSession(t)
	defer s.Close()

	tor := addTestTorrent(t, s, "mover")
	dest := filepath.Join(t.TempDir(), "moved")
	require.NoError(t, s.MoveStorage(tor.InfoHash(), dest, MoveOverwrite))

	n := waitNotification(t, s, NotifyStorageMoved)
	assert.Equal(t, dest, n.Path)
	assert.Equal(t, dest, tor.Stats().SavePath)
}

func TestMoveStorageRelativeDest(t *testing.T) {
	defer leaktest.Check(t)()
	s := newTestSession(t)
	defer s.Close()

	tor := addTestTorrent(t, s, "relmover")
	require.NoError(t, s.MoveStorage(tor.InfoHash(), "archive", MoveOverwrite))

	n := waitNotification(t, s, NotifyStorageMoved)
	assert.Equal(t, filepath.Join(s.Config().DefaultSavePath, "archive"), n.Path)
}

func TestMoveStorageRejections(t *testing.T) {
	defer leaktest.Check(t)()
	s := newTestSession(t)
	defer s.Close()

	tor := addTestTorrent(t, s, "stay")
	var ie *InputError

	err := s.MoveStorage(tor.InfoHash(), "", MoveOverwrite)
	assert.ErrorAs(t, err, &ie)

	// Already at the destination.
	err = s.MoveStorage(tor.InfoHash(), s.Config().DefaultSavePath, MoveOverwrite)
	assert.ErrorAs(t, err, &ie)

	ih, err := InfoHashFromHex("eeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee")
	require.NoError(t, err)
	err = s.MoveStorage(ih, t.TempDir(), MoveOverwrite)
	assert.ErrorAs(t, err, &ie)
}

// A second move request for a torrent whose move is still waiting its
// turn replaces the queued one; only the last destination is carried
// out.
func TestMoveStorageReplaceQueued(t *testing.T) {
	defer leaktest.Check(t)()
	s := newTestSessionEngine(t, enginesim.New(enginesim.Config{
		MetadataDelay: 10 * time.Millisecond,
		MoveDelay:     200 * time.Millisecond,
		ProgressStep:  0.5,
	}))
	defer s.Close()

	first := addTestTorrent(t, s, "first")
	second := addTestTorrent(t, s, "second")

	destA := filepath.Join(t.TempDir(), "a")
	destB := filepath.Join(t.TempDir(), "b")
	destC := filepath.Join(t.TempDir(), "c")

	require.NoError(t, s.MoveStorage(first.InfoHash(), destA, MoveOverwrite))
	require.NoError(t, s.MoveStorage(second.InfoHash(), destB, MoveOverwrite))
	require.NoError(t, s.MoveStorage(second.InfoHash(), destC, MoveOverwrite))

	// The same destination again is refused while queued.
	err := s.MoveStorage(second.InfoHash(), destC, MoveOverwrite)
	var ie *InputError
	assert.ErrorAs(t, err, &ie)

	n := waitNotification(t, s, NotifyStorageMoved)
	assert.Equal(t, first.InfoHash(), n.InfoHash)
	assert.Equal(t, destA, n.Path)

	n = waitNotification(t, s, NotifyStorageMoved)
	assert.Equal(t, second.InfoHash(), n.InfoHash)
	assert.Equal(t, destC, n.Path)
}

// Removing a torrent while its storage move runs defers the engine
// teardown until the move settles, ending in exactly one removal
// notification.
func TestRemoveTorrentDuringMove(t *testing.T) {
	defer leaktest.Check(t)()
	s := newTestSessionEngine(t, enginesim.New(enginesim.Config{
		MetadataDelay: 10 * time.Millisecond,
		MoveDelay:     200 * time.Millisecond,
		ProgressStep:  0.5,
	}))
	defer s.Close()

	tor := addTestTorrent(t, s, "gone-mid-move")
	require.NoError(t, s.MoveStorage(tor.InfoHash(), filepath.Join(t.TempDir(), "dest"), MoveOverwrite))
	require.NoError(t, s.RemoveTorrent(tor.InfoHash(), DeleteNothing))
	assert.Nil(t, s.GetTorrent(tor.InfoHash()))

	waitNotification(t, s, NotifyTorrentRemoved)

	// No move result and no second removal may surface afterwards.
	quiet := time.After(300 * time.Millisecond)
	for {
		select {
		case n := <-s.Notifications():
			assert.NotEqual(t, NotifyStorageMoved, n.Type)
			assert.NotEqual(t, NotifyTorrentRemoved, n.Type)
		case <-quiet:
			return
		}
	}
}
