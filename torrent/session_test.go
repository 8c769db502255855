package torrent

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/rcrowley/go-metrics"
	"github.com/squallbt/squall/engine"
	"github.com/squallbt/squall/engine/enginesim"
	"github.com/squallbt/squall/torrent/blobstore/fsstore"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/bencode"
)

func init() {
	// go-metrics starts a global ticker goroutine on the first meter
	// creation that never exits. Start it here and wait for it to park
	// in its receive loop so leaktest's baseline includes it: leaktest
	// skips goroutines that have not been scheduled yet because their
	// stacks still end in runtime.goexit.
	metrics.NewMeter().Stop()
	buf := make([]byte, 1<<20)
	for i := 0; i < 1000; i++ {
		n := runtime.Stack(buf, true)
		if strings.Contains(string(buf[:n]), "meterArbiter") {
			break
		}
		time.Sleep(time.Millisecond)
	}
}

var testEngineConfig = enginesim.Config{
	MetadataDelay: 10 * time.Millisecond,
	MoveDelay:     10 * time.Millisecond,
	ProgressStep:  0.5,
}

func newTestSession(t *testing.T) *Session {
	t.Helper()
	return newTestSessionAt(t, t.TempDir(), enginesim.New(testEngineConfig))
}

func newTestSessionEngine(t *testing.T, eng engine.Engine) *Session {
	t.Helper()
	return newTestSessionAt(t, t.TempDir(), eng)
}

// newTestSessionAt opens a session rooted at dir. Reopening the same
// dir simulates a restart.
func newTestSessionAt(t *testing.T, dir string, eng engine.Engine) *Session {
	t.Helper()
	return newTestSessionFull(t, dir, eng, nil)
}

func newTestSessionFull(t *testing.T, dir string, eng engine.Engine, mutate func(cfg *Config)) *Session {
	t.Helper()
	store, err := fsstore.New(filepath.Join(dir, "store"))
	require.NoError(t, err)
	cfg := DefaultConfig
	cfg.DataDir = filepath.Join(dir, "data")
	cfg.DefaultSavePath = filepath.Join(dir, "downloads")
	cfg.RPCEnabled = false
	if mutate != nil {
		mutate(&cfg)
	}
	s, err := New(cfg, eng, store, nil)
	require.NoError(t, err)
	return s
}

type testInfoDict struct {
	PieceLength int64  `bencode:"piece length"`
	Pieces      []byte `bencode:"pieces"`
	Name        string `bencode:"name"`
	Length      int64  `bencode:"length"`
	Private     int64  `bencode:"private,omitempty"`
}

type testMetaDict struct {
	Info         testInfoDict `bencode:"info"`
	AnnounceList [][]string   `bencode:"announce-list,omitempty"`
}

// testTorrent builds a single-file torrent. The name determines the
// identity, trackers only change the outer dictionary.
func testTorrent(t *testing.T, name string, private bool, trackers ...string) []byte {
	t.Helper()
	meta := testMetaDict{
		Info: testInfoDict{
			PieceLength: 16384,
			Pieces:      make([]byte, 20),
			Name:        name,
			Length:      4,
		},
	}
	if private {
		meta.Info.Private = 1
	}
	if len(trackers) > 0 {
		meta.AnnounceList = [][]string{trackers}
	}
	b, err := bencode.EncodeBytes(meta)
	require.NoError(t, err)
	return b
}

func testTorrentReader(t *testing.T, name string) io.Reader {
	t.Helper()
	return bytes.NewReader(testTorrent(t, name, false))
}

func testMagnet(b byte, name string) string {
	return "magnet:?xt=urn:btih:" + strings.Repeat(fmt.Sprintf("%02x", b), 20) + "&dn=" + name
}

// waitNotification consumes notifications until one of the wanted type
// arrives.
func waitNotification(t *testing.T, s *Session, typ NotificationType) Notification {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case n, ok := <-s.Notifications():
			require.True(t, ok, "notification channel closed while waiting for %s", typ)
			if n.Type == typ {
				return n
			}
		case <-deadline:
			t.Fatalf("timeout waiting for %s notification", typ)
		}
	}
}

// addTestTorrent adds a torrent and waits for the engine to confirm it.
func addTestTorrent(t *testing.T, s *Session, name string) *Torrent {
	t.Helper()
	tor, err := s.AddTorrent(bytes.NewReader(testTorrent(t, name, false)), nil)
	require.NoError(t, err)
	waitNotification(t, s, NotifyTorrentAdded)
	return tor
}

// waitRecord polls the record for ih on the loop until pred holds.
func waitRecord(t *testing.T, s *Session, ih InfoHash, what string, pred func(rec *record) bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		var ok bool
		err := s.call(func() {
			rec, found := s.torrents[ih]
			ok = found && pred(rec)
		})
		require.NoError(t, err)
		if ok {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %s", what)
}
