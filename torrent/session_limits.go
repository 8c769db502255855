package torrent

import (
	"time"

	"github.com/squallbt/squall/torrent/resumedata"
)

// Share limit actions.
const (
	shareLimitPause      = "pause"
	shareLimitRemove     = "remove"
	shareLimitRemoveData = "remove_data"
)

// handleLimitsTick checks seeding torrents against their share limits.
// Per-torrent overrides win over the session-wide limits; negative
// limits disable the check.
func (s *Session) handleLimitsTick() {
	if !s.started || s.closing {
		return
	}
	for _, rec := range s.torrents {
		if !rec.hasSeedStatus || rec.paused || rec.limitActionFired || rec.handle == nil {
			continue
		}
		reason := s.shareLimitReached(rec)
		if reason == "" {
			continue
		}
		rec.limitActionFired = true
		s.log.Infof("torrent %s reached the maximum %s", rec.name, reason)
		switch s.config.ShareLimitAction {
		case shareLimitRemove:
			if err := s.removeTorrent(rec.infoHash, DeleteNothing); err != nil {
				s.log.Errorln("cannot remove torrent over share limit:", err.Error())
			}
		case shareLimitRemoveData:
			if err := s.removeTorrent(rec.infoHash, DeleteData); err != nil {
				s.log.Errorln("cannot remove torrent over share limit:", err.Error())
			}
		default:
			if err := s.engine.PauseTorrent(rec.handle); err != nil {
				s.log.Errorln("cannot pause torrent over share limit:", err.Error())
			}
		}
	}
}

// shareLimitReached names the limit the torrent exceeded, empty string
// if it is within limits.
func (s *Session) shareLimitReached(rec *record) string {
	ratioLimit := rec.ratioLimit
	if ratioLimit == resumedata.RatioUseGlobal {
		ratioLimit = s.config.ShareRatioLimit
	}
	if ratioLimit >= 0 && rec.downloaded > 0 {
		if float64(rec.uploaded)/float64(rec.downloaded) >= ratioLimit {
			return "share ratio"
		}
	}
	timeLimit := rec.seedingTimeLimit
	if timeLimit == resumedata.SeedingTimeUseGlobal {
		timeLimit = s.config.ShareSeedingTimeLimit
	}
	if timeLimit >= 0 && rec.seedingTime >= time.Duration(timeLimit)*time.Minute {
		return "seeding time"
	}
	return ""
}
