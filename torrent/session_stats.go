package torrent

import "time"

// SessionStats is a point-in-time snapshot of the whole session.
type SessionStats struct {
	// Torrents counts confirmed torrents. PendingAdds and
	// MetadataDownloads count identities the engine is still working on.
	Torrents          int
	PendingAdds       int
	MetadataDownloads int
	QueuedMoves       int
	BannedIPs         int

	Categories int
	Tags       int

	// Rates are in bytes per second, computed between the last two
	// engine stats snapshots.
	DownloadRate int
	UploadRate   int

	// Totals are cumulative since engine start.
	TotalDownload int64
	TotalUpload   int64

	PeersConnected int

	// Uptime of the session in seconds.
	Uptime int
}

// Stats returns a snapshot of session counters.
func (s *Session) Stats() SessionStats {
	var stats SessionStats
	_ = s.call(func() {
		stats = SessionStats{
			Torrents:          len(s.torrents),
			PendingAdds:       len(s.pending),
			MetadataDownloads: len(s.probes),
			QueuedMoves:       len(s.moveQueue),
			BannedIPs:         s.banned.Len(),
			Categories:        len(s.categories),
			Tags:              len(s.tags),
			DownloadRate:      s.downloadRate,
			UploadRate:        s.uploadRate,
			TotalDownload:     s.lastStats.TotalDownload,
			TotalUpload:       s.lastStats.TotalUpload,
			PeersConnected:    s.lastStats.PeersConnected,
			Uptime:            int(time.Since(s.createdAt) / time.Second),
		}
	})
	return stats
}
