package torrent

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/squallbt/squall/engine"
	"github.com/squallbt/squall/torrent/blobstore"
	"github.com/squallbt/squall/torrent/resumedata"
)

var resumeBlobRe = regexp.MustCompile(`^([0-9A-Fa-f]{40}|[0-9A-Fa-f]{64})\.fastresume$`)

// Start loads all persisted torrents into the engine and arms the
// periodic timers. Torrents load in the order of the persisted queue;
// ones missing from it load last. A torrent that fails to load is
// skipped, startup always completes.
func (s *Session) Start() error {
	var startErr error
	err := s.call(func() {
		if s.started {
			startErr = errors.New("session is already started")
		}
	})
	if err != nil {
		return err
	}
	if startErr != nil {
		return startErr
	}
	ids, err := s.listResumeIDs()
	if err != nil {
		return fmt.Errorf("cannot list store: %w", err)
	}
	var loaded int
	for i, id := range ids {
		if err := s.loadExistingTorrent(id, i); err != nil {
			s.log.Criticalf("cannot load torrent %s: %s", id, err)
			continue
		}
		loaded++
	}
	s.log.Infof("loaded %d existing torrents", loaded)
	return s.call(func() {
		s.started = true
		s.armRefresh()
	})
}

// listResumeIDs returns the hex identities with a resume blob in the
// store, ordered by the persisted queue blob. Identities not in the
// queue blob follow in store order.
func (s *Session) listResumeIDs() ([]string, error) {
	names, err := s.store.List()
	if err != nil {
		return nil, err
	}
	known := make(map[string]struct{})
	var rest []string
	for _, name := range names {
		m := resumeBlobRe.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		id := strings.ToLower(m[1])
		known[id] = struct{}{}
		rest = append(rest, id)
	}
	queued, err := s.store.Get(queueBlob)
	if errors.Is(err, blobstore.ErrNotExist) {
		return rest, nil
	}
	if err != nil {
		return nil, err
	}
	var ids []string
	taken := make(map[string]struct{})
	for _, line := range strings.Split(string(queued), "\n") {
		id := strings.ToLower(strings.TrimSpace(line))
		if _, ok := known[id]; !ok {
			continue
		}
		if _, ok := taken[id]; ok {
			continue
		}
		taken[id] = struct{}{}
		ids = append(ids, id)
	}
	for _, id := range rest {
		if _, ok := taken[id]; !ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// loadExistingTorrent reads one resume blob and re-submits the torrent
// to the engine as a restored add.
func (s *Session) loadExistingTorrent(id string, queuePos int) error {
	blob, err := s.store.Get(resumeBlobName(id))
	if err != nil {
		return err
	}
	rd, err := resumedata.Decode(blob)
	if err != nil {
		return err
	}
	if rd.InfoHash.String() != id {
		return fmt.Errorf("resume data identity %s does not match blob name", rd.InfoHash)
	}
	metadata, err := s.store.Get(torrentBlobName(rd.InfoHash.String()))
	if errors.Is(err, blobstore.ErrNotExist) {
		metadata = nil
	} else if err != nil {
		return err
	}
	return s.call(func() { s.restoreTorrent(rd, metadata, queuePos) })
}

// restoreTorrent registers a loaded record as a pending add and hands
// it to the engine. Runs on the loop.
func (s *Session) restoreTorrent(rd *resumedata.Record, metadata []byte, queuePos int) {
	if s.isKnownTorrent(rd.InfoHash) {
		s.log.Warningf("duplicate resume data for %s, skipping", rd.InfoHash)
		return
	}
	rec := recordFromResumeData(rd)
	if rec.name == "" {
		rec.name = rec.infoHash.String()
	}
	if !rec.hasSeedStatus {
		rec.queuePos = queuePos
	}
	if rec.category != "" {
		rec.category = s.resolveCategory(rec.category)
	}
	tagsChanged := false
	for tag := range rec.tags {
		if _, ok := s.tags[tag]; !ok {
			s.tags[tag] = struct{}{}
			tagsChanged = true
		}
	}
	if tagsChanged {
		s.persistTags()
	}
	req := engine.AddRequest{
		InfoHash:      rec.infoHash,
		Name:          rec.name,
		Metadata:      metadata,
		ResumeData:    rec.engineData,
		SavePath:      s.torrentSavePath(rec),
		ContentLayout: rec.contentLayout,
		Trackers:      rec.trackers,
		URLSeeds:      rec.urlSeeds,
		Paused:        rec.paused,
		Forced:        rec.forced,
		QueuePos:      rec.queuePos,
	}
	if rec.stopWhenReady {
		// Let startup checking run before the torrent settles into its
		// stopped state.
		req.Paused = false
		req.Forced = false
		req.StopWhenReady = true
	}
	p := &pendingAdd{rec: rec, req: req, restored: true}
	s.pending[rec.infoHash] = p
	s.submitAdd(p)
}
