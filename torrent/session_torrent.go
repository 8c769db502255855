package torrent

import (
	"errors"
	"sort"

	"github.com/squallbt/squall/engine"
)

// isKnownTorrent reports whether the identity is anywhere in the
// session: added, waiting for the engine's add confirmation, or being
// probed for metadata. Runs on the loop. Every add request passes this
// gate once, so an identity lives in exactly one of the three sets.
func (s *Session) isKnownTorrent(ih engine.InfoHash) bool {
	if _, ok := s.torrents[ih]; ok {
		return true
	}
	if _, ok := s.pending[ih]; ok {
		return true
	}
	_, ok := s.probes[ih]
	return ok
}

// GetTorrent returns the torrent with the given identity, nil if the
// session does not know it.
func (s *Session) GetTorrent(ih InfoHash) *Torrent {
	var t *Torrent
	_ = s.call(func() {
		if s.isKnownTorrent(ih) {
			t = &Torrent{session: s, infoHash: ih}
		}
	})
	return t
}

// ListTorrents returns all torrents in the session, including adds the
// engine has not confirmed yet, sorted by queue position with finished
// torrents last.
func (s *Session) ListTorrents() []*Torrent {
	var torrents []*Torrent
	_ = s.call(func() {
		order := s.queueOrder()
		seen := make(map[engine.InfoHash]struct{}, len(s.torrents))
		for _, rec := range order {
			torrents = append(torrents, &Torrent{session: s, infoHash: rec.infoHash})
			seen[rec.infoHash] = struct{}{}
		}
		var rest []engine.InfoHash
		for ih := range s.torrents {
			if _, ok := seen[ih]; !ok {
				rest = append(rest, ih)
			}
		}
		for ih := range s.pending {
			rest = append(rest, ih)
		}
		sort.Slice(rest, func(i, j int) bool { return rest[i].String() < rest[j].String() })
		for _, ih := range rest {
			torrents = append(torrents, &Torrent{session: s, infoHash: ih})
		}
	})
	return torrents
}

// PauseTorrent stops the torrent's transfer.
func (s *Session) PauseTorrent(ih InfoHash) error {
	return s.withRecord(ih, func(rec *record) error {
		if rec.handle == nil {
			return newInputError(errors.New("torrent has no engine handle yet"))
		}
		return s.engine.PauseTorrent(rec.handle)
	})
}

// ResumeTorrent restarts a paused torrent.
func (s *Session) ResumeTorrent(ih InfoHash) error {
	return s.withRecord(ih, func(rec *record) error {
		if rec.handle == nil {
			return newInputError(errors.New("torrent has no engine handle yet"))
		}
		return s.engine.ResumeTorrent(rec.handle)
	})
}

// SetTorrentShareLimits overrides the session-wide share limits for one
// torrent. Zero selects the session limit, negative disables the limit.
func (s *Session) SetTorrentShareLimits(ih InfoHash, ratio float64, seedingTimeMinutes int64) error {
	return s.withRecord(ih, func(rec *record) error {
		rec.ratioLimit = resolveRatioLimit(ratio)
		rec.seedingTimeLimit = resolveSeedingTimeLimit(seedingTimeMinutes)
		rec.limitActionFired = false
		rec.needSaveResume = true
		s.persistRecord(rec, nil)
		return nil
	})
}

// withRecord runs fn on the loop with the record for ih.
func (s *Session) withRecord(ih engine.InfoHash, fn func(rec *record) error) error {
	var rerr error
	err := s.call(func() {
		rec, ok := s.torrents[ih]
		if !ok {
			rerr = newInputError(ErrTorrentNotFound)
			return
		}
		rerr = fn(rec)
	})
	if err != nil {
		return err
	}
	return rerr
}
