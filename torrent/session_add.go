package torrent

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/squallbt/squall/engine"
	"github.com/squallbt/squall/internal/magnet"
	"github.com/squallbt/squall/internal/metainfo"
	"github.com/squallbt/squall/torrent/filesearch"
	"github.com/squallbt/squall/torrent/resumedata"
)

// addSource is everything admission needs to know about a torrent,
// parsed outside the run loop.
type addSource struct {
	infoHash  engine.InfoHash
	name      string
	infoBytes []byte
	filePaths []string
	private   bool
	trackers  [][]string
	urlSeeds  []string
}

// AddTorrent adds a new torrent to the session by reading a .torrent
// file from r. The add completes asynchronously; the returned Torrent
// is usable immediately.
func (s *Session) AddTorrent(r io.Reader, opt *AddTorrentOptions) (*Torrent, error) {
	src, err := parseTorrentSource(r, s.config.MaxTorrentSize)
	if err != nil {
		return nil, err
	}
	return s.admit(src, opt)
}

// AddMagnet adds a new torrent to the session from a magnet link.
func (s *Session) AddMagnet(link string, opt *AddTorrentOptions) (*Torrent, error) {
	src, err := parseMagnetSource(link)
	if err != nil {
		return nil, err
	}
	return s.admit(src, opt)
}

// AddURI adds a torrent from an http/https URL or a magnet link.
func (s *Session) AddURI(uri string, opt *AddTorrentOptions) (*Torrent, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, newInputError(err)
	}
	switch u.Scheme {
	case "http", "https":
		return s.addURL(uri, opt)
	case "magnet":
		return s.AddMagnet(uri, opt)
	default:
		return nil, inputErrorf("unsupported uri scheme: %s", u.Scheme)
	}
}

func (s *Session) addURL(u string, opt *AddTorrentOptions) (*Torrent, error) {
	client := http.Client{
		Timeout: s.config.TorrentAddHTTPTimeout,
	}
	resp, err := client.Get(u)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("torrent url returned status %d", resp.StatusCode)
	}
	if resp.ContentLength > s.config.MaxTorrentSize {
		return nil, inputErrorf("torrent at url is too large: %d bytes", resp.ContentLength)
	}
	return s.AddTorrent(resp.Body, opt)
}

func parseTorrentSource(r io.Reader, sizeLimit int64) (*addSource, error) {
	mi, err := metainfo.New(io.LimitReader(r, sizeLimit))
	if err != nil {
		return nil, newInputError(err)
	}
	ih, err := engine.InfoHashFromBytes(mi.Info.ID())
	if err != nil {
		return nil, newInputError(err)
	}
	return &addSource{
		infoHash:  ih,
		name:      mi.Info.Name,
		infoBytes: mi.RawInfo,
		filePaths: mi.Info.FilePaths(),
		private:   mi.Info.IsPrivate(),
		trackers:  mi.AnnounceList,
		urlSeeds:  mi.URLList,
	}, nil
}

func parseMagnetSource(link string) (*addSource, error) {
	ma, err := magnet.New(link)
	if err != nil {
		return nil, newInputError(err)
	}
	ih, err := engine.InfoHashFromBytes(ma.InfoHash)
	if err != nil {
		return nil, newInputError(err)
	}
	name := ma.Name
	if name == "" {
		name = ih.String()
	}
	return &addSource{
		infoHash: ih,
		name:     name,
		trackers: ma.Trackers,
	}, nil
}

func (s *Session) admit(src *addSource, opt *AddTorrentOptions) (*Torrent, error) {
	if opt == nil {
		opt = &AddTorrentOptions{}
	}
	var (
		t    *Torrent
		aerr error
	)
	err := s.call(func() { t, aerr = s.admitTorrent(src, opt) })
	if err != nil {
		return nil, err
	}
	return t, aerr
}

// admitTorrent decides what to do with an incoming torrent. Runs on
// the loop.
func (s *Session) admitTorrent(src *addSource, opt *AddTorrentOptions) (*Torrent, error) {
	if s.closing {
		return nil, ErrClosed
	}
	ih := src.infoHash
	// A full add always supersedes a metadata download of the same
	// torrent.
	if p, ok := s.probes[ih]; ok {
		s.cancelProbe(p)
	}
	if _, ok := s.pending[ih]; ok {
		return nil, newInputError(errors.New("torrent is being added"))
	}
	if rec, ok := s.torrents[ih]; ok {
		return s.mergeDuplicate(rec, src)
	}
	rec := s.buildRecord(src, opt)
	p := &pendingAdd{rec: rec, req: s.buildAddRequest(rec, src, opt)}
	s.pending[ih] = p
	if len(src.filePaths) > 0 && !opt.SkipChecking && s.config.IncompleteDir != "" {
		s.stageSearch(p, src.filePaths)
	} else {
		s.submitAdd(p)
	}
	return &Torrent{session: s, infoHash: ih}, nil
}

// mergeDuplicate handles adding a torrent that is already in the
// session: tracker and web seed lists are merged, nothing else changes.
func (s *Session) mergeDuplicate(rec *record, src *addSource) (*Torrent, error) {
	if rec.private || src.private {
		return nil, newInputError(errors.New("torrent is private"))
	}
	if rec.mergeTrackers(src.trackers, src.urlSeeds) {
		s.log.Infof("torrent %s is already in the session, merged trackers", rec.name)
		s.persistRecord(rec, nil)
	}
	s.notify(Notification{
		Type:      NotifyTorrentAdded,
		InfoHash:  rec.infoHash,
		Name:      rec.name,
		Duplicate: true,
	})
	return &Torrent{session: s, infoHash: rec.infoHash}, nil
}

func (s *Session) buildRecord(src *addSource, opt *AddTorrentOptions) *record {
	rec := &record{
		infoHash:         src.infoHash,
		name:             src.name,
		category:         s.resolveCategory(opt.Category),
		contentLayout:    resolveLayout(opt.ContentLayout, s.config.ContentLayout),
		ratioLimit:       resolveRatioLimit(opt.RatioLimit),
		seedingTimeLimit: resolveSeedingTimeLimit(opt.SeedingTimeLimit),
		paused:           opt.Stopped,
		forced:           opt.Forced,
		stopWhenReady:    opt.StopWhenReady,
		private:          src.private,
		trackers:         src.trackers,
		urlSeeds:         src.urlSeeds,
		addedAt:          time.Now().UTC(),
		filePaths:        src.filePaths,
		queuePos:         -1,
	}
	for _, tag := range opt.Tags {
		tag = strings.TrimSpace(tag)
		if !validTagName(tag) {
			s.log.Warningf("dropping invalid tag %q", tag)
			continue
		}
		if rec.tags == nil {
			rec.tags = make(map[string]struct{})
		}
		rec.tags[tag] = struct{}{}
		if _, ok := s.tags[tag]; !ok {
			s.tags[tag] = struct{}{}
			s.persistTags()
		}
	}
	if !opt.AutoManaged {
		rec.savePath = s.resolveManualSavePath(opt.SavePath)
	}
	return rec
}

func (s *Session) buildAddRequest(rec *record, src *addSource, opt *AddTorrentOptions) engine.AddRequest {
	return engine.AddRequest{
		InfoHash:      rec.infoHash,
		Name:          rec.name,
		Metadata:      src.infoBytes,
		SavePath:      s.torrentSavePath(rec),
		ContentLayout: rec.contentLayout,
		Trackers:      rec.trackers,
		URLSeeds:      rec.urlSeeds,
		Paused:        rec.paused,
		Forced:        rec.forced,
		StopWhenReady: rec.stopWhenReady,
		SkipChecking:  opt.SkipChecking,
		Sequential:    opt.Sequential,
		QueuePos:      -1,
	}
}

// resolveManualSavePath normalizes a user-supplied save path. Relative
// paths land under the default save path.
func (s *Session) resolveManualSavePath(p string) string {
	if p == "" {
		return s.config.DefaultSavePath
	}
	if expanded, err := homedir.Expand(p); err == nil {
		p = expanded
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(s.config.DefaultSavePath, p)
	}
	return filepath.Clean(p)
}

func resolveLayout(layout, fallback string) string {
	switch layout {
	case resumedata.LayoutOriginal, resumedata.LayoutSubfolder, resumedata.LayoutNoSubfolder:
		return layout
	}
	return fallback
}

func resolveRatioLimit(v float64) float64 {
	switch {
	case v == 0:
		return resumedata.RatioUseGlobal
	case v < 0:
		return resumedata.RatioUnlimited
	}
	return v
}

func resolveSeedingTimeLimit(v int64) int64 {
	switch {
	case v == 0:
		return resumedata.SeedingTimeUseGlobal
	case v < 0:
		return resumedata.SeedingTimeUnlimited
	}
	return v
}

// stageSearch hands a pending add to the searcher worker. Admission
// resumes in finishPendingSearch.
func (s *Session) stageSearch(p *pendingAdd, filePaths []string) {
	job := searchJob{
		infoHash: p.rec.infoHash,
		req: filesearch.Request{
			SavePath:       p.req.SavePath,
			IncompletePath: s.config.IncompleteDir,
			FilePaths:      filePaths,
		},
	}
	select {
	case s.searchC <- job:
	default:
		// Searcher is saturated. Skip the search instead of blocking
		// the loop.
		s.log.Warningf("file search queue is full, adding %s without searching", p.rec.name)
		s.submitAdd(p)
	}
}

func (s *Session) finishPendingSearch(ih engine.InfoHash, res filesearch.Result, err error) {
	p, ok := s.pending[ih]
	if !ok || p.submitted {
		return
	}
	if err != nil {
		s.log.Errorln("file search failed:", err.Error())
	} else if res.SavePath != "" {
		if len(res.Found) > 0 {
			s.log.Debugf("found %d existing files for %s in %s", len(res.Found), p.rec.name, res.SavePath)
		}
		p.req.SavePath = res.SavePath
	}
	s.submitAdd(p)
}

func (s *Session) submitAdd(p *pendingAdd) {
	p.submitted = true
	s.engine.AsyncAddTorrent(p.req)
}

func (s *Session) handleTorrentAdded(ev engine.TorrentAddedEvent) {
	if p, ok := s.probes[ev.InfoHash]; ok {
		p.handle = ev.Handle
		// Metadata downloads must not take queue slots from real
		// torrents.
		if err := s.engine.AdjustQueuePosition(ev.Handle, engine.QueueBottom); err != nil {
			s.log.Debugln("cannot move metadata download to queue bottom:", err.Error())
		}
		return
	}
	p, ok := s.pending[ev.InfoHash]
	if !ok {
		// The engine confirmed a torrent nobody waits for, usually an
		// add cancelled before the engine answered.
		s.log.Warningf("removing orphan torrent %s", ev.InfoHash)
		if err := s.engine.RemoveTorrent(ev.Handle, engine.RemoveKeepFilesDeletePartfile); err != nil {
			s.log.Errorln("cannot remove orphan torrent:", err.Error())
		}
		return
	}
	delete(s.pending, ev.InfoHash)
	if p.cancelled {
		s.finishCancelledAdd(p, ev.Handle)
		return
	}
	rec := p.rec
	rec.handle = ev.Handle
	s.torrents[ev.InfoHash] = rec
	if rec.queuePos < 0 && !rec.hasSeedStatus {
		rec.queuePos = s.nextQueuePos()
	}
	s.persistRecord(rec, nil)
	if len(p.req.Metadata) > 0 {
		s.persistTorrentFile(rec, p.req.Metadata)
	}
	s.persistQueue()
	if p.restored {
		s.log.Debugf("restored torrent %s", rec.name)
	} else {
		s.log.Infof("added new torrent %s", rec.name)
		s.engine.RequestResumeData(rec.handle)
	}
	s.notify(Notification{
		Type:     NotifyTorrentAdded,
		InfoHash: rec.infoHash,
		Name:     rec.name,
		Restored: p.restored,
	})
}

// finishCancelledAdd removes a torrent whose add was cancelled before
// the engine confirmed it.
func (s *Session) finishCancelledAdd(p *pendingAdd, h engine.Handle) {
	rem := &removal{
		name:       p.rec.name,
		savePath:   s.torrentSavePath(p.rec),
		deleteData: p.removeOption == engine.RemoveDeleteFiles,
		handle:     h,
		mode:       p.removeOption,
	}
	s.removing[p.rec.infoHash] = rem
	s.startEngineRemoval(p.rec.infoHash, rem)
}

func (s *Session) handleTorrentAddFailed(ev engine.TorrentAddFailedEvent) {
	if _, ok := s.probes[ev.InfoHash]; ok {
		delete(s.probes, ev.InfoHash)
		s.log.Errorf("cannot download metadata for %s: %s", ev.InfoHash, ev.Err)
		s.requestApplySettings()
		s.notify(Notification{
			Type:     NotifyTorrentAddFailed,
			InfoHash: ev.InfoHash,
			Error:    ev.Err.Error(),
		})
		return
	}
	p, ok := s.pending[ev.InfoHash]
	if !ok {
		return
	}
	delete(s.pending, ev.InfoHash)
	s.log.Errorf("cannot load torrent %s: %s", p.rec.name, ev.Err)
	s.notify(Notification{
		Type:     NotifyTorrentAddFailed,
		InfoHash: ev.InfoHash,
		Name:     p.rec.name,
		Error:    ev.Err.Error(),
	})
}

func (s *Session) handleMetadataReceived(ev engine.MetadataReceivedEvent) {
	if p, ok := s.probes[ev.InfoHash]; ok {
		s.log.Infof("downloaded metadata for %s", p.infoHash)
		s.notify(Notification{
			Type:     NotifyMetadataDownloaded,
			InfoHash: p.infoHash,
			Name:     p.name,
			Metadata: ev.Info,
		})
		if err := s.engine.RemoveTorrent(ev.Handle, engine.RemoveDeleteFiles); err != nil {
			s.log.Errorln("cannot remove metadata download:", err.Error())
		}
		delete(s.probes, ev.InfoHash)
		s.requestApplySettings()
		return
	}
	rec, ok := s.torrents[ev.InfoHash]
	if !ok {
		return
	}
	info, err := metainfo.NewInfo(ev.Info)
	if err != nil {
		s.log.Warningf("engine sent unusable metadata for %s: %s", rec.name, err)
		return
	}
	if info.Name != "" {
		rec.name = info.Name
	}
	rec.filePaths = info.FilePaths()
	rec.private = info.IsPrivate()
	rec.needSaveResume = true
	s.persistTorrentFile(rec, ev.Info)
	s.persistRecord(rec, nil)
	s.notify(Notification{
		Type:     NotifyMetadataDownloaded,
		InfoHash: rec.infoHash,
		Name:     rec.name,
		Metadata: ev.Info,
	})
}

// DownloadMetadata fetches only the info dictionary of a magnet link.
// The result arrives as a NotifyMetadataDownloaded notification
// carrying the bencoded dictionary; no torrent is added.
func (s *Session) DownloadMetadata(link string) error {
	src, err := parseMagnetSource(link)
	if err != nil {
		return err
	}
	var derr error
	err = s.call(func() { derr = s.startMetadataDownload(src) })
	if err != nil {
		return err
	}
	return derr
}

func (s *Session) startMetadataDownload(src *addSource) error {
	if s.closing {
		return ErrClosed
	}
	if s.isKnownTorrent(src.infoHash) {
		return newInputError(errors.New("torrent is already in the session"))
	}
	s.probes[src.infoHash] = &metadataProbe{infoHash: src.infoHash, name: src.name}
	s.engine.AsyncAddTorrent(engine.AddRequest{
		InfoHash:     src.infoHash,
		Name:         src.name,
		SavePath:     s.scratchPath(src.infoHash),
		Trackers:     src.trackers,
		Forced:       true,
		MetadataOnly: true,
		QueuePos:     -1,
	})
	// Grow the active torrent limits so the probe gets a slot without
	// displacing a download.
	s.requestApplySettings()
	s.log.Infof("downloading metadata for %s", src.infoHash)
	return nil
}

// CancelMetadataDownload stops a metadata download started with
// DownloadMetadata.
func (s *Session) CancelMetadataDownload(ih InfoHash) error {
	var cerr error
	err := s.call(func() {
		p, ok := s.probes[ih]
		if !ok {
			cerr = newInputError(errors.New("no metadata download for torrent"))
			return
		}
		s.cancelProbe(p)
	})
	if err != nil {
		return err
	}
	return cerr
}

func (s *Session) cancelProbe(p *metadataProbe) {
	s.log.Debugf("cancelling metadata download for %s", p.infoHash)
	if p.handle != nil {
		if err := s.engine.RemoveTorrent(p.handle, engine.RemoveDeleteFiles); err != nil {
			s.log.Errorln("cannot remove metadata download:", err.Error())
		}
	}
	// Without a handle the engine's answer is still on its way; the
	// orphan check in handleTorrentAdded cleans it up.
	delete(s.probes, p.infoHash)
	s.requestApplySettings()
}

func (s *Session) scratchPath(ih engine.InfoHash) string {
	return filepath.Join(s.config.DataDir, ih.String())
}

func (s *Session) nextQueuePos() int {
	pos := 0
	for _, rec := range s.torrents {
		if rec.queuePos >= pos {
			pos = rec.queuePos + 1
		}
	}
	return pos
}
