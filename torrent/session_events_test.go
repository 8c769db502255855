package torrent

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/squallbt/squall/engine"
	"github.com/squallbt/squall/engine/enginesim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newRunningSession builds a started session with a fast refresh so
// simulated downloads complete within a few ticks.
func newRunningSession(t *testing.T, mutate func(cfg *Config)) *Session {
	t.Helper()
	s := newTestSessionFull(t, t.TempDir(), enginesim.New(testEngineConfig), func(cfg *Config) {
		cfg.RefreshInterval = 20 * time.Millisecond
		if mutate != nil {
			mutate(cfg)
		}
	})
	require.NoError(t, s.Start())
	return s
}

func TestTorrentFinished(t *testing.T) {
	defer leaktest.Check(t)()
	s := newRunningSession(t, nil)
	defer s.Close()

	tor := addTestTorrent(t, s, "completes")
	n := waitNotification(t, s, NotifyTorrentFinished)
	assert.Equal(t, tor.InfoHash(), n.InfoHash)
	assert.Equal(t, s.Config().DefaultSavePath, n.Path)

	waitRecord(t, s, tor.InfoHash(), "torrent seeding", func(rec *record) bool {
		return rec.state == engine.StateSeeding
	})
	stats := tor.Stats()
	assert.True(t, stats.Finished)
	assert.Equal(t, 1.0, stats.Progress)
	assert.Equal(t, -1, stats.QueuePos)
}

// Torrents whose files are already in the incomplete directory keep
// downloading there and are moved home once they finish.
func TestIncompleteDirStaging(t *testing.T) {
	defer leaktest.Check(t)()
	incomplete := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(incomplete, "staged"), []byte("partial"), 0o600))

	s := newTestSessionFull(t, t.TempDir(), enginesim.New(testEngineConfig), func(cfg *Config) {
		cfg.RefreshInterval = 20 * time.Millisecond
		cfg.IncompleteDir = incomplete
	})
	defer s.Close()

	// Nothing downloads before Start, so the staging is observable.
	tor := addTestTorrent(t, s, "staged")
	waitRecord(t, s, tor.InfoHash(), "torrent staged", func(rec *record) bool {
		return rec.handle != nil && rec.handle.SavePath() == incomplete
	})
	// The session keeps reporting the final save path.
	home := s.Config().DefaultSavePath
	assert.Equal(t, home, tor.Stats().SavePath)

	require.NoError(t, s.Start())
	waitNotification(t, s, NotifyTorrentFinished)
	n := waitNotification(t, s, NotifyStorageMoved)
	assert.Equal(t, tor.InfoHash(), n.InfoHash)
	assert.Equal(t, home, n.Path)
}

func TestOnCompleteCmd(t *testing.T) {
	defer leaktest.Check(t)()
	marker := filepath.Join(t.TempDir(), "ran")
	s := newRunningSession(t, func(cfg *Config) {
		cfg.OnCompleteCmd = []string{"touch", marker}
	})
	defer s.Close()

	addTestTorrent(t, s, "hooked")
	waitNotification(t, s, NotifyTorrentFinished)

	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := os.Stat(marker); err == nil {
			break
		}
		if !time.Now().Before(deadline) {
			t.Fatal("timeout waiting for complete command to run")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// A finished torrent that contains a .torrent file gets that file
// added to the session with the parent's save path.
func TestRecursiveDownload(t *testing.T) {
	defer leaktest.Check(t)()
	s := newRunningSession(t, func(cfg *Config) {
		cfg.RecursiveDownload = true
	})
	defer s.Close()

	savePath := s.Config().DefaultSavePath
	require.NoError(t, os.MkdirAll(savePath, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(savePath, "inner.torrent"), testTorrent(t, "inner", false), 0o644))

	addTestTorrent(t, s, "inner.torrent")
	waitNotification(t, s, NotifyTorrentFinished)

	n := waitNotification(t, s, NotifyTorrentAdded)
	assert.Equal(t, "inner", n.Name)
	assert.Equal(t, 2, s.Stats().Torrents)
	assert.Equal(t, savePath, s.GetTorrent(n.InfoHash).Stats().SavePath)
}

func TestSessionStatsRates(t *testing.T) {
	defer leaktest.Check(t)()
	s := newRunningSession(t, nil)
	defer s.Close()

	addTestTorrent(t, s, "measured")
	deadline := time.Now().Add(5 * time.Second)
	for {
		stats := s.Stats()
		if stats.TotalDownload > 0 {
			break
		}
		if !time.Now().Before(deadline) {
			t.Fatal("timeout waiting for transfer totals")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
