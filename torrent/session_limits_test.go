package torrent

import (
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// markSeeding puts the record into a seeding state with the given
// transfer totals and runs one share limit check.
func markSeeding(t *testing.T, s *Session, ih InfoHash, downloaded, uploaded int64, seeding time.Duration) {
	t.Helper()
	require.NoError(t, s.call(func() {
		s.started = true
		rec := s.torrents[ih]
		require.NotNil(t, rec)
		rec.hasSeedStatus = true
		rec.downloaded = downloaded
		rec.uploaded = uploaded
		rec.seedingTime = seeding
		s.handleLimitsTick()
	}))
}

func TestShareLimitRatioPause(t *testing.T) {
	defer leaktest.Check(t)()
	s := newTestSession(t)
	defer s.Close()

	tor := addTestTorrent(t, s, "ratio-bound")
	require.NoError(t, s.SetTorrentShareLimits(tor.InfoHash(), 1.5, -1))

	// Below the limit nothing happens.
	markSeeding(t, s, tor.InfoHash(), 100, 100, 0)
	time.Sleep(50 * time.Millisecond)
	var paused bool
	require.NoError(t, s.call(func() { paused = s.torrents[tor.InfoHash()].paused }))
	assert.False(t, paused)

	markSeeding(t, s, tor.InfoHash(), 100, 300, 0)
	waitRecord(t, s, tor.InfoHash(), "torrent paused over ratio", func(rec *record) bool {
		return rec.paused
	})
}

func TestShareLimitSeedingTimePause(t *testing.T) {
	defer leaktest.Check(t)()
	s := newTestSession(t)
	defer s.Close()

	tor := addTestTorrent(t, s, "time-bound")
	require.NoError(t, s.SetTorrentShareLimits(tor.InfoHash(), -1, 5))

	markSeeding(t, s, tor.InfoHash(), 100, 0, 10*time.Minute)
	waitRecord(t, s, tor.InfoHash(), "torrent paused over seeding time", func(rec *record) bool {
		return rec.paused
	})
}

func TestShareLimitGlobalRatio(t *testing.T) {
	defer leaktest.Check(t)()
	s := newTestSession(t)
	defer s.Close()

	ratio := 2.0
	require.NoError(t, s.ApplyConfig(ConfigPatch{ShareRatioLimit: &ratio}))

	tor := addTestTorrent(t, s, "global-bound")
	markSeeding(t, s, tor.InfoHash(), 100, 200, 0)
	waitRecord(t, s, tor.InfoHash(), "torrent paused over global ratio", func(rec *record) bool {
		return rec.paused
	})
}

func TestShareLimitRemoveAction(t *testing.T) {
	defer leaktest.Check(t)()
	s := newTestSession(t)
	defer s.Close()

	action := shareLimitRemove
	require.NoError(t, s.ApplyConfig(ConfigPatch{ShareLimitAction: &action}))

	tor := addTestTorrent(t, s, "evicted")
	require.NoError(t, s.SetTorrentShareLimits(tor.InfoHash(), 1, -1))
	markSeeding(t, s, tor.InfoHash(), 100, 100, 0)

	n := waitNotification(t, s, NotifyTorrentRemoved)
	assert.Equal(t, tor.InfoHash(), n.InfoHash)
	assert.Nil(t, s.GetTorrent(tor.InfoHash()))
}

func TestShareLimitFiresOnce(t *testing.T) {
	defer leaktest.Check(t)()
	s := newTestSession(t)
	defer s.Close()

	tor := addTestTorrent(t, s, "once-only")
	require.NoError(t, s.SetTorrentShareLimits(tor.InfoHash(), 1, -1))
	markSeeding(t, s, tor.InfoHash(), 100, 200, 0)
	waitRecord(t, s, tor.InfoHash(), "torrent paused", func(rec *record) bool {
		return rec.paused && rec.limitActionFired
	})

	// Resuming clears the latch so the limit can fire again later.
	require.NoError(t, tor.Resume())
	waitRecord(t, s, tor.InfoHash(), "latch cleared", func(rec *record) bool {
		return !rec.paused && !rec.limitActionFired
	})
}
