package torrent

import (
	"errors"

	"github.com/squallbt/squall/engine"
)

// DeleteOption selects what happens to downloaded data when a torrent
// is removed from the session.
type DeleteOption int

const (
	// DeleteNothing keeps all files on disk.
	DeleteNothing DeleteOption = iota
	// DeletePartfile keeps the payload but removes engine scratch files.
	DeletePartfile
	// DeleteData removes the torrent's files from disk.
	DeleteData
)

func (o DeleteOption) engineMode() engine.RemoveMode {
	switch o {
	case DeletePartfile:
		return engine.RemoveKeepFilesDeletePartfile
	case DeleteData:
		return engine.RemoveDeleteFiles
	default:
		return engine.RemoveKeepFiles
	}
}

// RemoveTorrent removes the torrent from the session. The torrent
// disappears from queries immediately; the engine teardown and any
// disk deletion complete asynchronously and end with a
// NotifyTorrentRemoved notification.
func (s *Session) RemoveTorrent(ih InfoHash, opt DeleteOption) error {
	var rerr error
	err := s.call(func() { rerr = s.removeTorrent(ih, opt) })
	if err != nil {
		return err
	}
	return rerr
}

func (s *Session) removeTorrent(ih engine.InfoHash, opt DeleteOption) error {
	if s.closing {
		return ErrClosed
	}
	if p, ok := s.probes[ih]; ok {
		s.cancelProbe(p)
		return nil
	}
	if p, ok := s.pending[ih]; ok {
		return s.removePendingAdd(p, opt)
	}
	rec, ok := s.torrents[ih]
	if !ok {
		return newInputError(ErrTorrentNotFound)
	}
	delete(s.torrents, ih)
	s.deleteRecordBlobs(ih)
	s.persistQueue()
	rem := &removal{
		name:       rec.name,
		savePath:   s.torrentSavePath(rec),
		deleteData: opt == DeleteData,
		handle:     rec.handle,
		mode:       opt.engineMode(),
	}
	s.removing[ih] = rem
	// Queued moves for the torrent are pointless now. A move already
	// running in the engine cannot be taken back; the removal waits for
	// it so that relocation and deletion never overlap.
	s.dropQueuedMoves(ih)
	if len(s.moveQueue) > 0 && s.moveQueue[0].infoHash == ih {
		s.log.Infof("removal of %s waits for its storage move to finish", rec.name)
		rem.deferredDelete = true
		if err := s.engine.PauseTorrent(rec.handle); err != nil {
			s.log.Debugln("cannot pause torrent pending removal:", err.Error())
		}
		return nil
	}
	s.startEngineRemoval(ih, rem)
	return nil
}

// removePendingAdd removes a torrent the engine has not confirmed yet.
// The pending entry is marked cancelled; the engine's eventual answer
// finishes the teardown.
func (s *Session) removePendingAdd(p *pendingAdd, opt DeleteOption) error {
	if p.cancelled {
		return newInputError(errors.New("torrent is already being removed"))
	}
	if !p.submitted {
		// Never reached the engine, nothing to tear down.
		delete(s.pending, p.rec.infoHash)
		s.log.Infof("removed torrent %s", p.rec.name)
		s.notify(Notification{
			Type:     NotifyTorrentRemoved,
			InfoHash: p.rec.infoHash,
			Name:     p.rec.name,
		})
		return nil
	}
	p.cancelled = true
	p.removeOption = opt.engineMode()
	return nil
}

// startEngineRemoval asks the engine to forget the torrent. Runs when
// no storage move references the handle.
func (s *Session) startEngineRemoval(ih engine.InfoHash, rem *removal) {
	if err := s.engine.RemoveTorrent(rem.handle, rem.mode); err != nil {
		s.log.Errorf("cannot remove torrent %s: %s", rem.name, err)
		delete(s.removing, ih)
		s.notify(Notification{
			Type:     NotifyTorrentRemoved,
			InfoHash: ih,
			Name:     rem.name,
			Error:    err.Error(),
		})
	}
}

// finalizeDeferredRemoval runs the engine removal that was parked
// behind a storage move.
func (s *Session) finalizeDeferredRemoval(ih engine.InfoHash) {
	rem, ok := s.removing[ih]
	if !ok || !rem.deferredDelete {
		return
	}
	rem.deferredDelete = false
	s.startEngineRemoval(ih, rem)
}

func (s *Session) handleTorrentRemoved(ev engine.TorrentRemovedEvent) {
	rem, ok := s.removing[ev.InfoHash]
	if !ok {
		return
	}
	if rem.deleteData {
		// Confirmation is logged once the disk deletion settles.
		return
	}
	delete(s.removing, ev.InfoHash)
	s.log.Infof("removed torrent %s", rem.name)
	s.notify(Notification{
		Type:     NotifyTorrentRemoved,
		InfoHash: ev.InfoHash,
		Name:     rem.name,
	})
}

func (s *Session) handleFilesDeleted(ev engine.FilesDeletedEvent) {
	rem, ok := s.removing[ev.InfoHash]
	if !ok {
		return
	}
	delete(s.removing, ev.InfoHash)
	s.log.Infof("removed torrent %s and deleted its files", rem.name)
	s.notify(Notification{
		Type:     NotifyTorrentRemoved,
		InfoHash: ev.InfoHash,
		Name:     rem.name,
		Path:     rem.savePath,
	})
}

func (s *Session) handleFileDeleteFailed(ev engine.FileDeleteFailedEvent) {
	rem, ok := s.removing[ev.InfoHash]
	if !ok {
		return
	}
	delete(s.removing, ev.InfoHash)
	s.log.Errorf("removed torrent %s but could not delete its files: %s", rem.name, ev.Err)
	s.notify(Notification{
		Type:     NotifyTorrentRemoved,
		InfoHash: ev.InfoHash,
		Name:     rem.name,
		Path:     rem.savePath,
		Error:    ev.Err.Error(),
	})
}
