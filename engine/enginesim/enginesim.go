// Package enginesim implements engine.Engine in memory.
//
// It transfers no real data. Downloads advance a fixed step on every
// status request and magnet metadata appears after a short delay, so a
// session driving the simulator sees the same event traffic a real
// engine would produce.
package enginesim

import (
	"errors"
	"net"
	"net/netip"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/squallbt/squall/engine"
	"github.com/zeebo/bencode"
)

var errUnknownTorrent = errors.New("unknown torrent")

const (
	defaultTorrentSize = 1 << 20
	eventBufferSize    = 1024
)

// Config adjusts the simulation. Zero values select defaults.
type Config struct {
	// MetadataDelay is how long a magnet add waits before metadata appears.
	MetadataDelay time.Duration

	// MoveDelay is how long a storage move takes.
	MoveDelay time.Duration

	// ProgressStep is the download fraction completed per status request.
	ProgressStep float64
}

// DefaultConfig for Engine.
var DefaultConfig = Config{
	MetadataDelay: 50 * time.Millisecond,
	MoveDelay:     20 * time.Millisecond,
	ProgressStep:  0.25,
}

type simTorrent struct {
	hash     engine.InfoHash
	name     string
	savePath string
	metadata []byte
	paused   bool
	forced   bool

	metadataOnly  bool
	stopWhenReady bool

	state    engine.TorrentState
	queuePos int
	progress float64
	size     int64

	downloaded int64
	uploaded   int64

	seedingTime time.Duration
	seedStart   time.Time

	finishedSent   bool
	dirty          bool
	needSaveResume bool
}

// Engine is an in-memory torrent engine.
type Engine struct {
	cfg Config

	mu       sync.Mutex
	torrents map[engine.InfoHash]*simTorrent
	queue    []engine.InfoHash
	settings engine.Settings
	blocked  int
	paused   bool
	dropped  int

	totalDown int64
	totalUp   int64

	eventC    chan engine.Event
	closeC    chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

var _ engine.Engine = (*Engine)(nil)

// New returns a started engine.
func New(cfg Config) *Engine {
	if cfg.MetadataDelay == 0 {
		cfg.MetadataDelay = DefaultConfig.MetadataDelay
	}
	if cfg.MoveDelay == 0 {
		cfg.MoveDelay = DefaultConfig.MoveDelay
	}
	if cfg.ProgressStep == 0 {
		cfg.ProgressStep = DefaultConfig.ProgressStep
	}
	return &Engine{
		cfg:      cfg,
		torrents: make(map[engine.InfoHash]*simTorrent),
		eventC:   make(chan engine.Event, eventBufferSize),
		closeC:   make(chan struct{}),
	}
}

type simHandle struct {
	e  *Engine
	ih engine.InfoHash
}

func (h simHandle) InfoHash() engine.InfoHash { return h.ih }

func (h simHandle) SavePath() string {
	h.e.mu.Lock()
	defer h.e.mu.Unlock()
	if t, ok := h.e.torrents[h.ih]; ok {
		return t.savePath
	}
	return ""
}

// AsyncAddTorrent implements engine.Engine.
func (e *Engine) AsyncAddTorrent(req engine.AddRequest) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if req.InfoHash.IsZero() {
		e.emit(engine.TorrentAddFailedEvent{InfoHash: req.InfoHash, Err: errors.New("add request has no info hash")})
		return
	}
	if _, ok := e.torrents[req.InfoHash]; ok {
		e.emit(engine.TorrentAddFailedEvent{InfoHash: req.InfoHash, Err: errors.New("torrent already in engine")})
		return
	}
	t := &simTorrent{
		hash:          req.InfoHash,
		name:          req.Name,
		savePath:      req.SavePath,
		metadata:      req.Metadata,
		paused:        req.Paused,
		forced:        req.Forced,
		metadataOnly:  req.MetadataOnly,
		stopWhenReady: req.StopWhenReady,
		queuePos:      -1,
		size:          defaultTorrentSize,
		dirty:         true,
	}
	if len(req.ResumeData) > 0 {
		restore(t, req.ResumeData)
	}
	if t.stopWhenReady && t.metadata != nil {
		t.paused = true
		t.stopWhenReady = false
	}
	e.torrents[req.InfoHash] = t
	if t.progress < 1 {
		e.enqueue(t.hash, req.QueuePos)
	}
	e.recomputeStates()
	e.emit(engine.TorrentAddedEvent{Handle: simHandle{e, req.InfoHash}, InfoHash: req.InfoHash})
	if t.metadata == nil && !t.paused {
		e.scheduleMetadata(req.InfoHash)
	}
}

// RemoveTorrent implements engine.Engine.
func (e *Engine) RemoveTorrent(h engine.Handle, mode engine.RemoveMode) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	ih := h.InfoHash()
	t, ok := e.torrents[ih]
	if !ok {
		return errUnknownTorrent
	}
	delete(e.torrents, ih)
	e.dequeue(ih)
	e.recomputeStates()
	e.emit(engine.TorrentRemovedEvent{InfoHash: ih})
	if mode != engine.RemoveDeleteFiles {
		return nil
	}
	var path string
	if t.name != "" && t.savePath != "" {
		path = filepath.Join(t.savePath, t.name)
	}
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		var err error
		if path != "" {
			err = os.RemoveAll(path)
		}
		e.mu.Lock()
		defer e.mu.Unlock()
		if err != nil {
			e.emit(engine.FileDeleteFailedEvent{InfoHash: ih, Err: err})
		} else {
			e.emit(engine.FilesDeletedEvent{InfoHash: ih})
		}
	}()
	return nil
}

// MoveStorage implements engine.Engine.
// The move completes after the configured delay. It completes even if
// the torrent is removed in the meantime.
func (e *Engine) MoveStorage(h engine.Handle, dest string, mode engine.MoveMode) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	ih := h.InfoHash()
	t, ok := e.torrents[ih]
	if !ok {
		return errUnknownTorrent
	}
	t.needSaveResume = true
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		select {
		case <-time.After(e.cfg.MoveDelay):
		case <-e.closeC:
			return
		}
		err := os.MkdirAll(dest, 0o750)
		e.mu.Lock()
		defer e.mu.Unlock()
		if err != nil {
			e.emit(engine.StorageMoveFailedEvent{InfoHash: ih, Path: dest, Err: err})
			return
		}
		if t, ok := e.torrents[ih]; ok {
			t.savePath = dest
			t.dirty = true
			t.needSaveResume = true
		}
		e.emit(engine.StorageMovedEvent{InfoHash: ih, Path: dest})
	}()
	return nil
}

// AdjustQueuePosition implements engine.Engine.
func (e *Engine) AdjustQueuePosition(h engine.Handle, op engine.QueueOp) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	ih := h.InfoHash()
	i := e.queueIndex(ih)
	if i < 0 {
		return errors.New("torrent is not queued")
	}
	switch op {
	case engine.QueueTop:
		e.queue = append(e.queue[:i], e.queue[i+1:]...)
		e.queue = append([]engine.InfoHash{ih}, e.queue...)
	case engine.QueueBottom:
		e.queue = append(e.queue[:i], e.queue[i+1:]...)
		e.queue = append(e.queue, ih)
	case engine.QueueUp:
		if i > 0 {
			e.queue[i], e.queue[i-1] = e.queue[i-1], e.queue[i]
		}
	case engine.QueueDown:
		if i < len(e.queue)-1 {
			e.queue[i], e.queue[i+1] = e.queue[i+1], e.queue[i]
		}
	}
	e.recomputeStates()
	return nil
}

// PauseTorrent implements engine.Engine.
func (e *Engine) PauseTorrent(h engine.Handle) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.torrents[h.InfoHash()]
	if !ok {
		return errUnknownTorrent
	}
	if t.paused {
		return nil
	}
	t.paused = true
	t.needSaveResume = true
	e.recomputeStates()
	e.emit(engine.TorrentPausedEvent{InfoHash: t.hash})
	return nil
}

// ResumeTorrent implements engine.Engine.
func (e *Engine) ResumeTorrent(h engine.Handle) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.torrents[h.InfoHash()]
	if !ok {
		return errUnknownTorrent
	}
	if !t.paused {
		return nil
	}
	t.paused = false
	t.stopWhenReady = false
	t.needSaveResume = true
	e.recomputeStates()
	e.emit(engine.TorrentResumedEvent{InfoHash: t.hash})
	if t.metadata == nil {
		e.scheduleMetadata(t.hash)
	}
	return nil
}

// ApplySettings implements engine.Engine.
func (e *Engine) ApplySettings(s engine.Settings) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, addr := range s.ListenAddrs {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			e.emit(engine.ListenFailedEvent{Addr: addr, Err: err})
		}
	}
	e.settings = s
	e.recomputeStates()
}

// SetIPFilter implements engine.Engine.
func (e *Engine) SetIPFilter(blocked []netip.Addr) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.blocked = len(blocked)
}

// RequestStatusUpdates implements engine.Engine.
func (e *Engine) RequestStatusUpdates() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.paused {
		e.advance()
	}
	var statuses []engine.TorrentStatus
	for _, t := range e.torrents {
		if !t.dirty {
			continue
		}
		t.dirty = false
		statuses = append(statuses, e.status(t))
	}
	e.emit(engine.StatusUpdateEvent{Statuses: statuses})
}

// RequestSessionStats implements engine.Engine.
func (e *Engine) RequestSessionStats() {
	e.mu.Lock()
	defer e.mu.Unlock()
	peers := 0
	for _, t := range e.torrents {
		if t.state == engine.StateDownloading || t.state == engine.StateSeeding {
			peers += 3
		}
	}
	e.emit(engine.SessionStatsEvent{Stats: engine.StatsSnapshot{
		TotalDownload:  e.totalDown,
		TotalUpload:    e.totalUp,
		PeersConnected: peers,
	}})
}

// RequestResumeData implements engine.Engine.
func (e *Engine) RequestResumeData(h engine.Handle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ih := h.InfoHash()
	t, ok := e.torrents[ih]
	if !ok {
		e.emit(engine.ResumeDataFailedEvent{InfoHash: ih, Err: errUnknownTorrent})
		return
	}
	data, err := bencode.EncodeBytes(simResume{
		Progress:    int64(t.progress * 1000),
		Downloaded:  t.downloaded,
		Uploaded:    t.uploaded,
		SeedingTime: int64(t.currentSeedingTime() / time.Second),
	})
	if err != nil {
		e.emit(engine.ResumeDataFailedEvent{InfoHash: ih, Err: err})
		return
	}
	t.needSaveResume = false
	e.emit(engine.ResumeDataEvent{InfoHash: ih, Data: data})
}

// Pause implements engine.Engine.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = true
}

// WaitEvents implements engine.Engine.
func (e *Engine) WaitEvents(timeout time.Duration) []engine.Event {
	var events []engine.Event
	select {
	case ev := <-e.eventC:
		events = append(events, ev)
	case <-time.After(timeout):
		return nil
	case <-e.closeC:
		return nil
	}
	for {
		select {
		case ev := <-e.eventC:
			events = append(events, ev)
		default:
			return events
		}
	}
}

// Close implements engine.Engine.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() { close(e.closeC) })
	e.wg.Wait()
	return nil
}

// emit must be called with the mutex held.
func (e *Engine) emit(ev engine.Event) {
	if e.dropped > 0 {
		select {
		case e.eventC <- engine.EventsDroppedEvent{Count: e.dropped}:
			e.dropped = 0
		default:
		}
	}
	select {
	case e.eventC <- ev:
	default:
		e.dropped++
	}
}

func (e *Engine) scheduleMetadata(ih engine.InfoHash) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		select {
		case <-time.After(e.cfg.MetadataDelay):
		case <-e.closeC:
			return
		}
		e.mu.Lock()
		defer e.mu.Unlock()
		t, ok := e.torrents[ih]
		if !ok || t.metadata != nil || t.paused {
			return
		}
		if t.name == "" {
			t.name = ih.String()[:16]
		}
		info, err := bencode.EncodeBytes(map[string]interface{}{
			"name":         t.name,
			"piece length": 16384,
			"pieces":       string(make([]byte, 20*(defaultTorrentSize/16384))),
			"length":       defaultTorrentSize,
		})
		if err != nil {
			return
		}
		t.metadata = info
		t.dirty = true
		t.needSaveResume = true
		if t.stopWhenReady {
			t.paused = true
			t.stopWhenReady = false
		}
		e.recomputeStates()
		e.emit(engine.MetadataReceivedEvent{Handle: simHandle{e, ih}, InfoHash: ih, Info: info})
	}()
}

// advance simulates transfer progress. Mutex must be held.
func (e *Engine) advance() {
	for _, ih := range append([]engine.InfoHash(nil), e.queue...) {
		t := e.torrents[ih]
		if t.state != engine.StateDownloading {
			continue
		}
		t.progress += e.cfg.ProgressStep
		if t.progress > 1 {
			t.progress = 1
		}
		before := t.downloaded
		t.downloaded = int64(t.progress * float64(t.size))
		e.totalDown += t.downloaded - before
		t.dirty = true
		t.needSaveResume = true
		if t.progress >= 1 && !t.finishedSent {
			t.finishedSent = true
			e.dequeue(ih)
			e.emit(engine.TorrentFinishedEvent{InfoHash: ih})
		}
	}
	for _, t := range e.torrents {
		if t.state == engine.StateSeeding {
			const chunk = 64 << 10
			t.uploaded += chunk
			e.totalUp += chunk
			t.dirty = true
		}
	}
	e.recomputeStates()
}

// recomputeStates assigns queue positions and transfer states.
// Mutex must be held.
func (e *Engine) recomputeStates() {
	active := 0
	maxActive := e.settings.MaxActiveDownloads
	for i, ih := range e.queue {
		t := e.torrents[ih]
		t.setQueuePos(i)
		switch {
		case t.paused:
			t.setState(engine.StatePaused)
		case t.forced || !e.settings.QueueingEnabled || maxActive <= 0 || active < maxActive:
			if t.metadata == nil {
				t.setState(engine.StateDownloadingMetadata)
			} else {
				t.setState(engine.StateDownloading)
			}
			if !t.forced {
				active++
			}
		default:
			t.setState(engine.StateQueued)
		}
	}
	for _, t := range e.torrents {
		if t.progress < 1 {
			continue
		}
		t.setQueuePos(-1)
		if t.paused {
			t.setState(engine.StatePaused)
		} else {
			t.setState(engine.StateSeeding)
		}
	}
}

func (e *Engine) enqueue(ih engine.InfoHash, pos int) {
	if pos >= 0 && pos < len(e.queue) {
		e.queue = append(e.queue[:pos], append([]engine.InfoHash{ih}, e.queue[pos:]...)...)
		return
	}
	e.queue = append(e.queue, ih)
}

func (e *Engine) dequeue(ih engine.InfoHash) {
	if i := e.queueIndex(ih); i >= 0 {
		e.queue = append(e.queue[:i], e.queue[i+1:]...)
	}
}

func (e *Engine) queueIndex(ih engine.InfoHash) int {
	for i, h := range e.queue {
		if h == ih {
			return i
		}
	}
	return -1
}

// status builds a snapshot. Mutex must be held.
func (e *Engine) status(t *simTorrent) engine.TorrentStatus {
	st := engine.TorrentStatus{
		InfoHash:        t.hash,
		State:           t.state,
		Progress:        t.progress,
		QueuePos:        t.queuePos,
		BytesDownloaded: t.downloaded,
		BytesUploaded:   t.uploaded,
		SeedingTime:     t.currentSeedingTime(),
		NeedSaveResume:  t.needSaveResume,
	}
	switch t.state {
	case engine.StateDownloading:
		st.DownloadRate = 1 << 20
	case engine.StateSeeding:
		st.UploadRate = 256 << 10
	}
	return st
}

func (t *simTorrent) setState(s engine.TorrentState) {
	if t.state == s {
		return
	}
	if t.state == engine.StateSeeding {
		t.seedingTime += time.Since(t.seedStart)
		t.seedStart = time.Time{}
	}
	if s == engine.StateSeeding {
		t.seedStart = time.Now()
	}
	t.state = s
	t.dirty = true
}

func (t *simTorrent) setQueuePos(pos int) {
	if t.queuePos != pos {
		t.queuePos = pos
		t.dirty = true
	}
}

func (t *simTorrent) currentSeedingTime() time.Duration {
	d := t.seedingTime
	if !t.seedStart.IsZero() {
		d += time.Since(t.seedStart)
	}
	return d
}

type simResume struct {
	Progress    int64 `bencode:"progress"`
	Downloaded  int64 `bencode:"downloaded"`
	Uploaded    int64 `bencode:"uploaded"`
	SeedingTime int64 `bencode:"seeding_time"`
}

func restore(t *simTorrent, data []byte) {
	var r simResume
	if err := bencode.DecodeBytes(data, &r); err != nil {
		return
	}
	t.progress = float64(r.Progress) / 1000
	t.downloaded = r.Downloaded
	t.uploaded = r.Uploaded
	t.seedingTime = time.Duration(r.SeedingTime) * time.Second
	if t.progress >= 1 {
		t.finishedSent = true
	}
}
