package torrent

import (
	"time"

	"github.com/squallbt/squall/engine"
)

func (s *Session) handleEvents(events []engine.Event) {
	for _, ev := range events {
		s.handleEvent(ev)
	}
}

// handleEvent dispatches one engine event. A panic in a handler is
// logged and the rest of the batch is still processed.
func (s *Session) handleEvent(ev engine.Event) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Criticalf("panic while handling %T: %v", ev, r)
		}
	}()
	switch ev := ev.(type) {
	case engine.TorrentAddedEvent:
		s.handleTorrentAdded(ev)
	case engine.TorrentAddFailedEvent:
		s.handleTorrentAddFailed(ev)
	case engine.MetadataReceivedEvent:
		s.handleMetadataReceived(ev)
	case engine.TorrentFinishedEvent:
		s.handleTorrentFinished(ev)
	case engine.TorrentPausedEvent:
		s.handleTorrentPaused(ev)
	case engine.TorrentResumedEvent:
		s.handleTorrentResumed(ev)
	case engine.StorageMovedEvent:
		s.handleStorageMoved(ev)
	case engine.StorageMoveFailedEvent:
		s.handleStorageMoveFailed(ev)
	case engine.TorrentRemovedEvent:
		s.handleTorrentRemoved(ev)
	case engine.FilesDeletedEvent:
		s.handleFilesDeleted(ev)
	case engine.FileDeleteFailedEvent:
		s.handleFileDeleteFailed(ev)
	case engine.ResumeDataEvent:
		s.handleResumeData(ev)
	case engine.ResumeDataFailedEvent:
		s.handleResumeDataFailed(ev)
	case engine.StatusUpdateEvent:
		s.handleStatusUpdate(ev)
	case engine.SessionStatsEvent:
		s.handleSessionStats(ev)
	case engine.EventsDroppedEvent:
		s.handleEventsDropped(ev)
	case engine.ListenFailedEvent:
		s.handleListenFailed(ev)
	}
	// Events not listed above are ignored on purpose.
}

func (s *Session) handleTorrentFinished(ev engine.TorrentFinishedEvent) {
	rec, ok := s.torrents[ev.InfoHash]
	if !ok || rec.hasSeedStatus {
		return
	}
	rec.hasSeedStatus = true
	rec.progress = 1
	rec.needSaveResume = true
	s.log.Infof("torrent %s finished downloading", rec.name)
	if rec.handle != nil {
		// Staged torrents download somewhere else, usually the
		// incomplete dir. Bring the data home.
		if cur, want := rec.handle.SavePath(), s.torrentSavePath(rec); cur != want {
			if err := s.enqueueMove(rec, want, engine.MoveOverwrite, true); err != nil {
				s.log.Errorf("cannot relocate finished torrent %s to %s: %s", rec.name, want, err)
			}
		}
		s.engine.RequestResumeData(rec.handle)
	}
	s.persistRecord(rec, nil)
	s.notify(Notification{
		Type:     NotifyTorrentFinished,
		InfoHash: rec.infoHash,
		Name:     rec.name,
		Path:     s.torrentSavePath(rec),
	})
	if len(s.config.OnCompleteCmd) > 0 {
		s.startCompleteCmd(rec)
	}
	if s.config.RecursiveDownload {
		s.startRecursiveDownload(rec)
	}
}

func (s *Session) handleTorrentPaused(ev engine.TorrentPausedEvent) {
	rec, ok := s.torrents[ev.InfoHash]
	if !ok {
		return
	}
	rec.paused = true
	rec.state = engine.StatePaused
	rec.needSaveResume = true
}

func (s *Session) handleTorrentResumed(ev engine.TorrentResumedEvent) {
	rec, ok := s.torrents[ev.InfoHash]
	if !ok {
		return
	}
	rec.paused = false
	rec.limitActionFired = false
	rec.needSaveResume = true
}

func (s *Session) handleResumeData(ev engine.ResumeDataEvent) {
	rec, ok := s.torrents[ev.InfoHash]
	if !ok {
		return
	}
	rec.engineData = ev.Data
	s.persistRecord(rec, nil)
}

func (s *Session) handleResumeDataFailed(ev engine.ResumeDataFailedEvent) {
	rec, ok := s.torrents[ev.InfoHash]
	if !ok {
		return
	}
	s.log.Errorf("cannot save resume data for %s: %s", rec.name, ev.Err)
	s.notify(Notification{
		Type:     NotifyResumeDataSaveFailed,
		InfoHash: rec.infoHash,
		Name:     rec.name,
		Error:    ev.Err.Error(),
	})
}

func (s *Session) handleStatusUpdate(ev engine.StatusUpdateEvent) {
	for _, st := range ev.Statuses {
		rec, ok := s.torrents[st.InfoHash]
		if !ok {
			continue
		}
		rec.state = st.State
		rec.progress = st.Progress
		rec.queuePos = st.QueuePos
		rec.downloaded = st.BytesDownloaded
		rec.uploaded = st.BytesUploaded
		rec.downloadRate = st.DownloadRate
		rec.uploadRate = st.UploadRate
		rec.seedingTime = st.SeedingTime
		if st.NeedSaveResume {
			rec.needSaveResume = true
		}
	}
}

func (s *Session) handleSessionStats(ev engine.SessionStatsEvent) {
	now := time.Now()
	cur := ev.Stats
	if !s.lastStatsAt.IsZero() {
		if interval := now.Sub(s.lastStatsAt).Seconds(); interval > 0 {
			s.downloadRate = int(float64(cur.TotalDownload-s.lastStats.TotalDownload) / interval)
			s.uploadRate = int(float64(cur.TotalUpload-s.lastStats.TotalUpload) / interval)
		}
	}
	if d := cur.TotalDownload - s.lastStats.TotalDownload; d > 0 {
		s.metrics.SpeedDownload.Mark(d)
	}
	if d := cur.TotalUpload - s.lastStats.TotalUpload; d > 0 {
		s.metrics.SpeedUpload.Mark(d)
	}
	s.lastStats = cur
	s.lastStatsAt = now
	s.armRefresh()
}

func (s *Session) handleEventsDropped(ev engine.EventsDroppedEvent) {
	s.log.Warningf("engine dropped %d events, requesting a full status update", ev.Count)
	if !s.closing {
		s.engine.RequestStatusUpdates()
	}
}

func (s *Session) handleListenFailed(ev engine.ListenFailedEvent) {
	s.log.Errorf("cannot listen for peers on %s: %s", ev.Addr, ev.Err)
	s.notify(Notification{
		Type:  NotifySessionError,
		Name:  ev.Addr,
		Error: ev.Err.Error(),
	})
}
