package enginesim

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/squallbt/squall/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testConfig = Config{
	MetadataDelay: 10 * time.Millisecond,
	MoveDelay:     10 * time.Millisecond,
	ProgressStep:  0.5,
}

func newHash(t *testing.T, b byte) engine.InfoHash {
	t.Helper()
	h, err := engine.InfoHashFromBytes(bytes.Repeat([]byte{b}, 20))
	require.NoError(t, err)
	return h
}

func waitFor(t *testing.T, e *Engine, what string, match func(engine.Event) bool) engine.Event {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		for _, ev := range e.WaitEvents(100 * time.Millisecond) {
			if match(ev) {
				return ev
			}
		}
	}
	t.Fatalf("timeout waiting for %s", what)
	return nil
}

func addTorrent(t *testing.T, e *Engine, req engine.AddRequest) engine.Handle {
	t.Helper()
	e.AsyncAddTorrent(req)
	ev := waitFor(t, e, "torrent added", func(ev engine.Event) bool {
		added, ok := ev.(engine.TorrentAddedEvent)
		return ok && added.InfoHash == req.InfoHash
	})
	return ev.(engine.TorrentAddedEvent).Handle
}

func TestAddAndFinish(t *testing.T) {
	defer leaktest.Check(t)()
	e := New(testConfig)
	defer e.Close()

	ih := newHash(t, 1)
	h := addTorrent(t, e, engine.AddRequest{
		InfoHash: ih,
		Name:     "a",
		Metadata: []byte("meta"),
		SavePath: t.TempDir(),
		QueuePos: -1,
	})
	assert.Equal(t, ih, h.InfoHash())

	// two status requests at 0.5 step complete the download
	e.RequestStatusUpdates()
	e.RequestStatusUpdates()
	waitFor(t, e, "torrent finished", func(ev engine.Event) bool {
		fin, ok := ev.(engine.TorrentFinishedEvent)
		return ok && fin.InfoHash == ih
	})

	e.RequestStatusUpdates()
	ev := waitFor(t, e, "status update", func(ev engine.Event) bool {
		_, ok := ev.(engine.StatusUpdateEvent)
		return ok
	})
	for _, st := range ev.(engine.StatusUpdateEvent).Statuses {
		if st.InfoHash == ih {
			assert.Equal(t, engine.StateSeeding, st.State)
			assert.Equal(t, -1, st.QueuePos)
		}
	}
}

func TestAddDuplicate(t *testing.T) {
	defer leaktest.Check(t)()
	e := New(testConfig)
	defer e.Close()

	ih := newHash(t, 1)
	addTorrent(t, e, engine.AddRequest{InfoHash: ih, Metadata: []byte("meta"), QueuePos: -1})
	e.AsyncAddTorrent(engine.AddRequest{InfoHash: ih, Metadata: []byte("meta"), QueuePos: -1})
	waitFor(t, e, "add failed", func(ev engine.Event) bool {
		failed, ok := ev.(engine.TorrentAddFailedEvent)
		return ok && failed.InfoHash == ih
	})
}

func TestMagnetMetadata(t *testing.T) {
	defer leaktest.Check(t)()
	e := New(testConfig)
	defer e.Close()

	ih := newHash(t, 2)
	addTorrent(t, e, engine.AddRequest{InfoHash: ih, Name: "magnet-name", QueuePos: -1})
	ev := waitFor(t, e, "metadata", func(ev engine.Event) bool {
		md, ok := ev.(engine.MetadataReceivedEvent)
		return ok && md.InfoHash == ih
	})
	assert.NotEmpty(t, ev.(engine.MetadataReceivedEvent).Info)
}

func TestMoveStorage(t *testing.T) {
	defer leaktest.Check(t)()
	e := New(testConfig)
	defer e.Close()

	ih := newHash(t, 3)
	h := addTorrent(t, e, engine.AddRequest{
		InfoHash: ih,
		Name:     "a",
		Metadata: []byte("meta"),
		SavePath: t.TempDir(),
		QueuePos: -1,
	})
	dest := filepath.Join(t.TempDir(), "moved")
	require.NoError(t, e.MoveStorage(h, dest, engine.MoveOverwrite))
	ev := waitFor(t, e, "storage moved", func(ev engine.Event) bool {
		moved, ok := ev.(engine.StorageMovedEvent)
		return ok && moved.InfoHash == ih
	})
	assert.Equal(t, dest, ev.(engine.StorageMovedEvent).Path)
	assert.Equal(t, dest, h.SavePath())
}

func TestRemoveWithFiles(t *testing.T) {
	defer leaktest.Check(t)()
	e := New(testConfig)
	defer e.Close()

	save := t.TempDir()
	payload := filepath.Join(save, "payload")
	require.NoError(t, os.WriteFile(payload, []byte("data"), 0o600))

	ih := newHash(t, 4)
	h := addTorrent(t, e, engine.AddRequest{
		InfoHash: ih,
		Name:     "payload",
		Metadata: []byte("meta"),
		SavePath: save,
		QueuePos: -1,
	})
	require.NoError(t, e.RemoveTorrent(h, engine.RemoveDeleteFiles))
	waitFor(t, e, "torrent removed", func(ev engine.Event) bool {
		removed, ok := ev.(engine.TorrentRemovedEvent)
		return ok && removed.InfoHash == ih
	})
	waitFor(t, e, "files deleted", func(ev engine.Event) bool {
		deleted, ok := ev.(engine.FilesDeletedEvent)
		return ok && deleted.InfoHash == ih
	})
	_, err := os.Stat(payload)
	assert.True(t, os.IsNotExist(err))

	assert.Error(t, e.RemoveTorrent(h, engine.RemoveKeepFiles))
}

func TestQueuePositions(t *testing.T) {
	defer leaktest.Check(t)()
	e := New(testConfig)
	defer e.Close()
	e.ApplySettings(engine.Settings{QueueingEnabled: true, MaxActiveDownloads: 1})

	var handles []engine.Handle
	for i := byte(1); i <= 3; i++ {
		handles = append(handles, addTorrent(t, e, engine.AddRequest{
			InfoHash: newHash(t, i),
			Metadata: []byte("meta"),
			QueuePos: -1,
		}))
	}
	require.NoError(t, e.AdjustQueuePosition(handles[2], engine.QueueTop))

	e.RequestStatusUpdates()
	ev := waitFor(t, e, "status update", func(ev engine.Event) bool {
		up, ok := ev.(engine.StatusUpdateEvent)
		return ok && len(up.Statuses) > 0
	})
	positions := make(map[engine.InfoHash]int)
	states := make(map[engine.InfoHash]engine.TorrentState)
	for _, st := range ev.(engine.StatusUpdateEvent).Statuses {
		positions[st.InfoHash] = st.QueuePos
		states[st.InfoHash] = st.State
	}
	assert.Equal(t, 0, positions[handles[2].InfoHash()])
	assert.Equal(t, 1, positions[handles[0].InfoHash()])
	assert.Equal(t, 2, positions[handles[1].InfoHash()])
	assert.Equal(t, engine.StateQueued, states[handles[1].InfoHash()])
}

func TestResumeDataRoundTrip(t *testing.T) {
	defer leaktest.Check(t)()
	e := New(testConfig)
	defer e.Close()

	ih := newHash(t, 5)
	h := addTorrent(t, e, engine.AddRequest{InfoHash: ih, Metadata: []byte("meta"), QueuePos: -1})
	e.RequestStatusUpdates() // progress 0.5
	e.RequestResumeData(h)
	ev := waitFor(t, e, "resume data", func(ev engine.Event) bool {
		rd, ok := ev.(engine.ResumeDataEvent)
		return ok && rd.InfoHash == ih
	})
	data := ev.(engine.ResumeDataEvent).Data
	require.NoError(t, e.RemoveTorrent(h, engine.RemoveKeepFiles))
	waitFor(t, e, "torrent removed", func(ev engine.Event) bool {
		_, ok := ev.(engine.TorrentRemovedEvent)
		return ok
	})

	addTorrent(t, e, engine.AddRequest{InfoHash: ih, Metadata: []byte("meta"), ResumeData: data, QueuePos: -1})
	e.RequestStatusUpdates()
	ev = waitFor(t, e, "status update", func(ev engine.Event) bool {
		up, ok := ev.(engine.StatusUpdateEvent)
		return ok && len(up.Statuses) > 0
	})
	var st engine.TorrentStatus
	for _, s := range ev.(engine.StatusUpdateEvent).Statuses {
		if s.InfoHash == ih {
			st = s
		}
	}
	assert.GreaterOrEqual(t, st.Progress, 0.5)
}

func TestWaitEventsTimeout(t *testing.T) {
	defer leaktest.Check(t)()
	e := New(testConfig)
	defer e.Close()

	start := time.Now()
	evs := e.WaitEvents(20 * time.Millisecond)
	assert.Nil(t, evs)
	assert.Less(t, time.Since(start), time.Second)
}

func TestPauseResume(t *testing.T) {
	defer leaktest.Check(t)()
	e := New(testConfig)
	defer e.Close()

	ih := newHash(t, 6)
	h := addTorrent(t, e, engine.AddRequest{InfoHash: ih, Metadata: []byte("meta"), QueuePos: -1})
	require.NoError(t, e.PauseTorrent(h))
	waitFor(t, e, "paused", func(ev engine.Event) bool {
		p, ok := ev.(engine.TorrentPausedEvent)
		return ok && p.InfoHash == ih
	})
	require.NoError(t, e.ResumeTorrent(h))
	waitFor(t, e, "resumed", func(ev engine.Event) bool {
		r, ok := ev.(engine.TorrentResumedEvent)
		return ok && r.InfoHash == ih
	})
}
