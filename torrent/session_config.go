package torrent

import (
	"errors"
	"net/netip"
)

// ConfigPatch is a partial settings change. Nil fields keep their
// current value.
type ConfigPatch struct {
	ListenAddrs        []string
	MaxActiveDownloads *int
	MaxActiveUploads   *int
	MaxActiveTorrents  *int
	QueueingEnabled    *bool
	DownloadRateLimit  *int
	UploadRateLimit    *int

	ShareRatioLimit       *float64
	ShareSeedingTimeLimit *int64
	ShareLimitAction      *string

	RecursiveDownload *bool
}

// ApplyConfig changes session settings at runtime. Changes arriving in
// quick succession reach the engine as a single settings apply that
// reflects the final values.
func (s *Session) ApplyConfig(p ConfigPatch) error {
	if p.ShareLimitAction != nil {
		switch *p.ShareLimitAction {
		case shareLimitPause, shareLimitRemove, shareLimitRemoveData:
		default:
			return newInputError(errors.New("invalid share limit action"))
		}
	}
	return s.call(func() {
		engineDirty := false
		if p.ListenAddrs != nil {
			s.config.ListenAddrs = p.ListenAddrs
			engineDirty = true
		}
		if p.MaxActiveDownloads != nil {
			s.config.MaxActiveDownloads = *p.MaxActiveDownloads
			engineDirty = true
		}
		if p.MaxActiveUploads != nil {
			s.config.MaxActiveUploads = *p.MaxActiveUploads
			engineDirty = true
		}
		if p.MaxActiveTorrents != nil {
			s.config.MaxActiveTorrents = *p.MaxActiveTorrents
			engineDirty = true
		}
		if p.QueueingEnabled != nil {
			s.config.QueueingEnabled = *p.QueueingEnabled
			engineDirty = true
		}
		if p.DownloadRateLimit != nil {
			s.config.DownloadRateLimit = *p.DownloadRateLimit
			engineDirty = true
		}
		if p.UploadRateLimit != nil {
			s.config.UploadRateLimit = *p.UploadRateLimit
			engineDirty = true
		}
		if p.ShareRatioLimit != nil {
			s.config.ShareRatioLimit = *p.ShareRatioLimit
		}
		if p.ShareSeedingTimeLimit != nil {
			s.config.ShareSeedingTimeLimit = *p.ShareSeedingTimeLimit
		}
		if p.ShareLimitAction != nil {
			s.config.ShareLimitAction = *p.ShareLimitAction
		}
		if p.RecursiveDownload != nil {
			s.config.RecursiveDownload = *p.RecursiveDownload
		}
		if engineDirty {
			s.requestApplySettings()
		}
	})
}

// Config returns a copy of the session's current configuration.
func (s *Session) Config() Config {
	var cfg Config
	_ = s.call(func() { cfg = s.config })
	return cfg
}

// BanIP blocks the address from connecting as a peer. The ban is
// persisted and survives restarts.
func (s *Session) BanIP(ip string) error {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return newInputError(err)
	}
	return s.call(func() {
		if !s.banned.Add(addr) {
			return
		}
		s.log.Infof("banned IP %s", addr)
		s.persistBannedIPs()
		s.requestFilterApply()
	})
}

// BannedIPs returns all banned addresses in sorted order.
func (s *Session) BannedIPs() []string {
	var ips []string
	_ = s.call(func() { ips = s.banned.Strings() })
	return ips
}
