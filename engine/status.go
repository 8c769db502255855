package engine

import "time"

// TorrentState is the transfer state of a torrent.
type TorrentState int

const (
	StateQueued TorrentState = iota
	StateChecking
	StateDownloadingMetadata
	StateDownloading
	StateSeeding
	StatePaused
)

func (s TorrentState) String() string {
	switch s {
	case StateQueued:
		return "Queued"
	case StateChecking:
		return "Checking"
	case StateDownloadingMetadata:
		return "Downloading Metadata"
	case StateDownloading:
		return "Downloading"
	case StateSeeding:
		return "Seeding"
	case StatePaused:
		return "Paused"
	default:
		return "Unknown"
	}
}

// TorrentStatus is a point-in-time snapshot of a single torrent,
// delivered in StatusUpdateEvent.
type TorrentStatus struct {
	InfoHash InfoHash
	State    TorrentState

	// Progress of the download between 0 and 1.
	Progress float64

	// QueuePos is the download queue position, -1 if not queued.
	QueuePos int

	BytesDownloaded int64
	BytesUploaded   int64
	DownloadRate    int
	UploadRate      int

	// SeedingTime is the total time spent in seeding state.
	SeedingTime time.Duration

	// NeedSaveResume is true when the engine state changed since the
	// last resume data request.
	NeedSaveResume bool
}
