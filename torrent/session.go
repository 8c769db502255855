// Package torrent provides a BitTorrent session controller that manages
// torrents on top of a download engine.
package torrent

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/squallbt/squall/engine"
	"github.com/squallbt/squall/internal/banlist"
	"github.com/squallbt/squall/internal/logger"
	"github.com/squallbt/squall/torrent/blobstore"
	"github.com/squallbt/squall/torrent/filesearch"
	"github.com/zeebo/bencode"
)

// Well-known blob names in the session store. Per-torrent state lives in
// "<infohash>.fastresume" and "<infohash>.torrent" blobs next to these.
const (
	categoriesBlob = "categories"
	tagsBlob       = "tags"
	bannedIPsBlob  = "bannedips"
	queueBlob      = "queue"
)

// Session manages the lifecycle of torrents on a download engine.
// All torrent state is owned by a single run loop; public methods send
// closures to the loop and wait for them to execute.
type Session struct {
	config   Config
	log      logger.Logger
	engine   engine.Engine
	store    blobstore.Store
	searcher filesearch.Searcher

	createdAt time.Time

	// State below is owned by the run loop. No mutex; access funnels
	// through commandC.
	torrents   map[engine.InfoHash]*record
	pending    map[engine.InfoHash]*pendingAdd
	probes     map[engine.InfoHash]*metadataProbe
	removing   map[engine.InfoHash]*removal
	moveQueue  []*moveJob
	categories map[string]string
	tags       map[string]struct{}
	banned     *banlist.List

	started        bool
	closing        bool
	applyPending   bool
	filterPending  bool
	refreshPending bool

	lastStats    engine.StatsSnapshot
	lastStatsAt  time.Time
	downloadRate int
	uploadRate   int

	refreshTimer *time.Timer
	resumeTicker *time.Ticker
	limitsTicker *time.Ticker

	commandC chan func()
	eventC   chan []engine.Event
	applyC   chan struct{}
	writeC   chan writerJob
	searchC  chan searchJob
	notifC   chan Notification

	closeC        chan struct{}
	loopDoneC     chan struct{}
	pollerStopC   chan struct{}
	pollerDoneC   chan struct{}
	writerDoneC   chan struct{}
	searcherDoneC chan struct{}

	closeOnce sync.Once
	closeErr  error

	rpc *rpcServer

	counters counters
	metrics  *sessionMetrics

	// wg tracks short-lived helper goroutines such as completion hooks.
	wg sync.WaitGroup
}

// New returns a session driving the given engine and persisting state to
// the given store. A nil searcher falls back to searching the local
// filesystem. On success the session owns the engine and the store and
// closes both on Close; on error the caller keeps ownership.
func New(cfg Config, eng engine.Engine, store blobstore.Store, searcher filesearch.Searcher) (*Session, error) {
	cfg.fillDefaults()
	var err error
	cfg.DataDir, err = homedir.Expand(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	cfg.DefaultSavePath, err = homedir.Expand(cfg.DefaultSavePath)
	if err != nil {
		return nil, err
	}
	cfg.DefaultSavePath, err = filepath.Abs(cfg.DefaultSavePath)
	if err != nil {
		return nil, err
	}
	if cfg.IncompleteDir != "" {
		cfg.IncompleteDir, err = homedir.Expand(cfg.IncompleteDir)
		if err != nil {
			return nil, err
		}
		cfg.IncompleteDir, err = filepath.Abs(cfg.IncompleteDir)
		if err != nil {
			return nil, err
		}
	}
	for _, dir := range []string{cfg.DataDir, cfg.DefaultSavePath, cfg.IncompleteDir} {
		if dir == "" {
			continue
		}
		err = os.MkdirAll(dir, 0750)
		if err != nil {
			return nil, err
		}
	}
	if searcher == nil {
		searcher = &filesearch.Local{}
	}
	s := &Session{
		config:        cfg,
		log:           logger.New("session"),
		engine:        eng,
		store:         store,
		searcher:      searcher,
		createdAt:     time.Now(),
		torrents:      make(map[engine.InfoHash]*record),
		pending:       make(map[engine.InfoHash]*pendingAdd),
		probes:        make(map[engine.InfoHash]*metadataProbe),
		removing:      make(map[engine.InfoHash]*removal),
		categories:    make(map[string]string),
		tags:          make(map[string]struct{}),
		banned:        banlist.New(),
		refreshTimer:  newStoppedTimer(),
		resumeTicker:  time.NewTicker(cfg.ResumeWriteInterval),
		limitsTicker:  time.NewTicker(cfg.ShareLimitsInterval),
		commandC:      make(chan func()),
		eventC:        make(chan []engine.Event, 8),
		applyC:        make(chan struct{}, 1),
		writeC:        make(chan writerJob, 1024),
		searchC:       make(chan searchJob, 64),
		notifC:        make(chan Notification, cfg.MaxPendingNotifications),
		closeC:        make(chan struct{}),
		loopDoneC:     make(chan struct{}),
		pollerStopC:   make(chan struct{}),
		pollerDoneC:   make(chan struct{}),
		writerDoneC:   make(chan struct{}),
		searcherDoneC: make(chan struct{}),
	}
	s.loadSidecars()
	s.metrics = newSessionMetrics(s)
	if cfg.RPCEnabled {
		s.rpc = newRPCServer(s)
		err = s.rpc.Start(cfg.RPCHost, cfg.RPCPort)
		if err != nil {
			s.metrics.Close()
			return nil, err
		}
	}
	// The loop pushes the initial settings and the loaded IP filter to
	// the engine on its first iteration.
	s.applyPending = true
	s.filterPending = s.banned.Len() > 0
	s.applyC <- struct{}{}
	go s.run()
	go s.pollEvents()
	go s.runWriter()
	go s.runSearcher()
	return s, nil
}

// loadSidecars reads categories, tags and banned IPs from the store.
// Errors are logged and the session starts with whatever loaded.
func (s *Session) loadSidecars() {
	b, err := s.store.Get(categoriesBlob)
	switch {
	case err == nil:
		if err = bencode.DecodeBytes(b, &s.categories); err != nil {
			s.log.Errorln("cannot decode categories:", err.Error())
		}
	case !errors.Is(err, blobstore.ErrNotExist):
		s.log.Errorln("cannot load categories:", err.Error())
	}
	b, err = s.store.Get(tagsBlob)
	switch {
	case err == nil:
		var tags []string
		if err = bencode.DecodeBytes(b, &tags); err != nil {
			s.log.Errorln("cannot decode tags:", err.Error())
			break
		}
		for _, tag := range tags {
			s.tags[tag] = struct{}{}
		}
	case !errors.Is(err, blobstore.ErrNotExist):
		s.log.Errorln("cannot load tags:", err.Error())
	}
	b, err = s.store.Get(bannedIPsBlob)
	switch {
	case err == nil:
		var ips []string
		if err = bencode.DecodeBytes(b, &ips); err != nil {
			s.log.Errorln("cannot decode banned ips:", err.Error())
			break
		}
		for _, ip := range ips {
			if err = s.banned.AddString(ip); err != nil {
				s.log.Warningf("invalid banned ip in store: %q", ip)
			}
		}
	case !errors.Is(err, blobstore.ErrNotExist):
		s.log.Errorln("cannot load banned ips:", err.Error())
	}
}

// Notifications returns the channel the session publishes events on.
// The channel is closed when the session closes. Slow consumers do not
// block the session; notifications over the buffer size are dropped.
func (s *Session) Notifications() <-chan Notification {
	return s.notifC
}

// Close saves resume data for all torrents, stops the engine and
// releases the store. Blocks until shutdown completes. Safe to call
// multiple times.
func (s *Session) Close() error {
	s.closeOnce.Do(s.doClose)
	return s.closeErr
}

func (s *Session) doClose() {
	s.log.Info("closing session")
	if s.rpc != nil {
		err := s.rpc.Stop(s.config.RPCShutdownTimeout)
		if err != nil {
			s.log.Errorln("cannot stop RPC server:", err.Error())
		}
	}
	close(s.pollerStopC)
	<-s.pollerDoneC
	_ = s.call(s.drainShutdown)
	close(s.closeC)
	<-s.loopDoneC
	close(s.writeC)
	<-s.writerDoneC
	close(s.searchC)
	<-s.searcherDoneC
	s.wg.Wait()
	if err := s.engine.Close(); err != nil {
		s.log.Errorln("cannot close engine:", err.Error())
		s.closeErr = err
	}
	if err := s.store.Close(); err != nil {
		s.log.Errorln("cannot close store:", err.Error())
		if s.closeErr == nil {
			s.closeErr = err
		}
	}
	s.metrics.Close()
	close(s.notifC)
}

// drainShutdown runs on the loop. It pauses the engine, requests resume
// data for every live torrent and consumes engine events until all
// answers arrived or a wait times out.
func (s *Session) drainShutdown() {
	s.closing = true
	s.refreshTimer.Stop()
	s.resumeTicker.Stop()
	s.limitsTicker.Stop()
	s.engine.Pause()
	s.persistQueue()
	// Batches that arrived after the poller stopped.
	for {
		select {
		case events := <-s.eventC:
			s.handleEvents(events)
			continue
		default:
		}
		break
	}
	for ih, p := range s.probes {
		if p.handle != nil {
			if err := s.engine.RemoveTorrent(p.handle, engine.RemoveDeleteFiles); err != nil {
				s.log.Errorln("cannot remove metadata download:", err.Error())
			}
		}
		delete(s.probes, ih)
	}
	outstanding := 0
	for _, rec := range s.torrents {
		if rec.handle == nil {
			continue
		}
		s.engine.RequestResumeData(rec.handle)
		outstanding++
	}
	for outstanding > 0 {
		events := s.engine.WaitEvents(s.config.ShutdownDrainTimeout)
		if len(events) == 0 {
			s.log.Criticalf("aborted saving resume data, %d torrents outstanding", outstanding)
			break
		}
		for _, ev := range events {
			switch ev.(type) {
			case engine.ResumeDataEvent, engine.ResumeDataFailedEvent:
				outstanding--
			}
			s.handleEvent(ev)
		}
	}
}

func newStoppedTimer() *time.Timer {
	t := time.NewTimer(time.Hour)
	if !t.Stop() {
		<-t.C
	}
	return t
}
