package torrent

import "github.com/squallbt/squall/engine"

func (s *Session) run() {
	defer close(s.loopDoneC)
	for {
		// Commands drain ahead of everything else so that bursts of
		// config changes coalesce into a single engine apply.
		select {
		case fn := <-s.commandC:
			fn()
			s.syncCounters()
			continue
		default:
		}
		select {
		case fn := <-s.commandC:
			fn()
		case events := <-s.eventC:
			s.handleEvents(events)
		case <-s.applyC:
			s.applyDeferred()
		case <-s.refreshTimer.C:
			s.handleRefreshTick()
		case <-s.resumeTicker.C:
			s.handleResumeTick()
		case <-s.limitsTicker.C:
			s.handleLimitsTick()
		case <-s.closeC:
			return
		}
		s.syncCounters()
	}
}

// call runs fn on the loop and waits for it to return.
func (s *Session) call(fn func()) error {
	done := make(chan struct{})
	wrapped := func() {
		defer close(done)
		fn()
	}
	select {
	case s.commandC <- wrapped:
	case <-s.closeC:
		return ErrClosed
	}
	select {
	case <-done:
		return nil
	case <-s.closeC:
		return ErrClosed
	}
}

// exec hands fn to the loop without waiting for it. Used by worker
// goroutines to report results. Returns false if the session is closing
// and fn will not run.
func (s *Session) exec(fn func()) bool {
	select {
	case s.commandC <- fn:
		return true
	case <-s.closeC:
		return false
	}
}

// pollEvents blocks on the engine and forwards event batches to the
// loop. Runs in its own goroutine so a busy loop never starves the
// engine's event queue.
func (s *Session) pollEvents() {
	defer close(s.pollerDoneC)
	for {
		select {
		case <-s.pollerStopC:
			return
		default:
		}
		events := s.engine.WaitEvents(s.config.EngineWaitTimeout)
		if len(events) == 0 {
			continue
		}
		select {
		case s.eventC <- events:
		case <-s.pollerStopC:
			return
		}
	}
}

// requestApplySettings marks engine settings dirty. The actual apply
// runs once the loop drains queued commands, so consecutive changes
// reach the engine as one call.
func (s *Session) requestApplySettings() {
	s.applyPending = true
	s.pokeApply()
}

func (s *Session) requestFilterApply() {
	s.filterPending = true
	s.pokeApply()
}

func (s *Session) pokeApply() {
	select {
	case s.applyC <- struct{}{}:
	default:
	}
}

func (s *Session) applyDeferred() {
	if s.closing {
		return
	}
	if s.applyPending {
		s.applyPending = false
		s.engine.ApplySettings(s.engineSettings())
	}
	if s.filterPending {
		s.filterPending = false
		s.engine.SetIPFilter(s.banned.Addrs())
	}
}

// engineSettings converts session config into engine settings. Active
// slots grow by the number of running metadata probes so that probes
// never crowd out real torrents.
func (s *Session) engineSettings() engine.Settings {
	extra := len(s.probes)
	set := engine.Settings{
		ListenAddrs:        s.config.ListenAddrs,
		MaxActiveDownloads: s.config.MaxActiveDownloads,
		MaxActiveUploads:   s.config.MaxActiveUploads,
		MaxActiveTorrents:  s.config.MaxActiveTorrents,
		QueueingEnabled:    s.config.QueueingEnabled,
		DownloadRateLimit:  s.config.DownloadRateLimit,
		UploadRateLimit:    s.config.UploadRateLimit,
	}
	if extra > 0 && set.QueueingEnabled {
		if set.MaxActiveDownloads >= 0 {
			set.MaxActiveDownloads += extra
		}
		if set.MaxActiveTorrents >= 0 {
			set.MaxActiveTorrents += extra
		}
	}
	return set
}

// handleRefreshTick asks the engine for fresh torrent statuses and
// session counters. The timer is re-armed when the stats answer
// arrives, so a stalled engine cannot pile up refresh requests.
func (s *Session) handleRefreshTick() {
	if s.closing {
		return
	}
	s.refreshPending = false
	s.engine.RequestStatusUpdates()
	s.engine.RequestSessionStats()
}

func (s *Session) armRefresh() {
	if !s.started || s.closing || s.refreshPending {
		return
	}
	s.refreshPending = true
	s.refreshTimer.Reset(s.config.RefreshInterval)
}

// handleResumeTick persists resume data for torrents the engine marked
// dirty since the last write.
func (s *Session) handleResumeTick() {
	if !s.started || s.closing {
		return
	}
	for _, rec := range s.torrents {
		if rec.handle == nil || !rec.needSaveResume {
			continue
		}
		s.engine.RequestResumeData(rec.handle)
		rec.needSaveResume = false
	}
}

func (s *Session) syncCounters() {
	s.counters.Set(counterTorrents, int64(len(s.torrents)))
	s.counters.Set(counterPendingAdds, int64(len(s.pending)))
	s.counters.Set(counterMetadataProbes, int64(len(s.probes)))
	s.counters.Set(counterQueuedMoves, int64(len(s.moveQueue)))
	s.counters.Set(counterBannedIPs, int64(s.banned.Len()))
}
