package torrent

import (
	"time"

	"github.com/squallbt/squall/engine"
)

// Torrent is a torrent in the session. It is a lightweight reference;
// the state lives inside the session and is read on demand.
type Torrent struct {
	session  *Session
	infoHash engine.InfoHash
}

// InfoHash identifies the torrent.
func (t *Torrent) InfoHash() InfoHash {
	return t.infoHash
}

// Name returns the display name of the torrent. Magnet torrents
// without a name yet show their info hash.
func (t *Torrent) Name() string {
	return t.Stats().Name
}

// Stats returns a point-in-time snapshot of the torrent. The zero
// snapshot is returned after the torrent is removed.
func (t *Torrent) Stats() TorrentStats {
	var stats TorrentStats
	_ = t.session.call(func() { stats = t.session.torrentStats(t.infoHash) })
	return stats
}

// Pause stops the transfer.
func (t *Torrent) Pause() error {
	return t.session.PauseTorrent(t.infoHash)
}

// Resume restarts a paused transfer.
func (t *Torrent) Resume() error {
	return t.session.ResumeTorrent(t.infoHash)
}

// SetCategory moves the torrent into the category.
func (t *Torrent) SetCategory(name string) error {
	return t.session.SetTorrentCategory(t.infoHash, name)
}

// AddTags attaches tags to the torrent.
func (t *Torrent) AddTags(tags []string) error {
	return t.session.AddTorrentTags(t.infoHash, tags)
}

// RemoveTags detaches tags from the torrent.
func (t *Torrent) RemoveTags(tags []string) error {
	return t.session.RemoveTorrentTags(t.infoHash, tags)
}

// Move relocates the torrent's data to dest.
func (t *Torrent) Move(dest string, mode MoveMode) error {
	return t.session.MoveStorage(t.infoHash, dest, mode)
}

// TorrentStats is a snapshot of one torrent.
type TorrentStats struct {
	InfoHash InfoHash
	Name     string
	// State is a human readable transfer state.
	State    string
	SavePath string
	Category string
	Tags     []string
	// Progress of the download between 0 and 1.
	Progress float64
	// QueuePos is the download queue position, -1 if not queued.
	QueuePos        int
	BytesDownloaded int64
	BytesUploaded   int64
	// Rates are in bytes per second.
	DownloadRate int
	UploadRate   int
	// Ratio is uploaded over downloaded, 0 before anything downloaded.
	Ratio       float64
	SeedingTime time.Duration
	AddedAt     time.Time
	Private     bool
	Finished    bool
	// Pending is true while the engine has not confirmed the add.
	Pending bool
}

// torrentStats builds a snapshot. Runs on the loop.
func (s *Session) torrentStats(ih engine.InfoHash) TorrentStats {
	rec, ok := s.torrents[ih]
	if !ok {
		if p, ok := s.pending[ih]; ok {
			return TorrentStats{
				InfoHash: ih,
				Name:     p.rec.name,
				State:    "Adding",
				SavePath: s.torrentSavePath(p.rec),
				Category: p.rec.category,
				Tags:     p.rec.tagList(),
				QueuePos: -1,
				AddedAt:  p.rec.addedAt,
				Private:  p.rec.private,
				Pending:  true,
			}
		}
		if p, ok := s.probes[ih]; ok {
			return TorrentStats{
				InfoHash: ih,
				Name:     p.name,
				State:    engine.StateDownloadingMetadata.String(),
				QueuePos: -1,
				Pending:  true,
			}
		}
		return TorrentStats{}
	}
	stats := TorrentStats{
		InfoHash:        rec.infoHash,
		Name:            rec.name,
		State:           rec.state.String(),
		SavePath:        s.torrentSavePath(rec),
		Category:        rec.category,
		Tags:            rec.tagList(),
		Progress:        rec.progress,
		QueuePos:        rec.queuePos,
		BytesDownloaded: rec.downloaded,
		BytesUploaded:   rec.uploaded,
		DownloadRate:    rec.downloadRate,
		UploadRate:      rec.uploadRate,
		SeedingTime:     rec.seedingTime,
		AddedAt:         rec.addedAt,
		Private:         rec.private,
		Finished:        rec.hasSeedStatus,
	}
	if rec.downloaded > 0 {
		stats.Ratio = float64(rec.uploaded) / float64(rec.downloaded)
	}
	return stats
}
