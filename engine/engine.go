// Package engine defines the contract between the torrent session
// and the transfer engine that moves the actual bytes.
//
// The session talks to the engine with asynchronous requests and learns
// the results by polling WaitEvents. Methods on Engine must be safe for
// concurrent use.
package engine

import (
	"net/netip"
	"time"
)

// Engine runs torrent transfers on behalf of a session.
type Engine interface {
	// AsyncAddTorrent starts adding a torrent. The engine answers with
	// TorrentAddedEvent or TorrentAddFailedEvent.
	AsyncAddTorrent(req AddRequest)

	// RemoveTorrent stops the torrent and forgets it.
	// The engine answers with TorrentRemovedEvent, then FilesDeletedEvent
	// or FileDeleteFailedEvent if mode requires deleting files.
	RemoveTorrent(h Handle, mode RemoveMode) error

	// MoveStorage starts moving the torrent data to dest. The engine
	// answers with StorageMovedEvent or StorageMoveFailedEvent. The
	// answer arrives even if the torrent is removed while the move is
	// in progress.
	MoveStorage(h Handle, dest string, mode MoveMode) error

	// AdjustQueuePosition moves the torrent inside the engine queue.
	AdjustQueuePosition(h Handle, op QueueOp) error

	// PauseTorrent stops the transfer. The engine answers with TorrentPausedEvent.
	PauseTorrent(h Handle) error

	// ResumeTorrent restarts a paused transfer.
	ResumeTorrent(h Handle) error

	// ApplySettings reconfigures the engine.
	ApplySettings(s Settings)

	// SetIPFilter replaces the set of blocked peer addresses.
	SetIPFilter(blocked []netip.Addr)

	// RequestStatusUpdates asks for a StatusUpdateEvent covering
	// torrents whose state changed since the last request.
	RequestStatusUpdates()

	// RequestSessionStats asks for a SessionStatsEvent.
	RequestSessionStats()

	// RequestResumeData asks for a ResumeDataEvent carrying the
	// engine's opaque payload for the torrent.
	RequestResumeData(h Handle)

	// Pause stops all transfers. Used before shutdown.
	Pause()

	// WaitEvents blocks until at least one event is available or the
	// timeout passes, then returns all available events in order.
	WaitEvents(timeout time.Duration) []Event

	// Close shuts the engine down. No events are delivered after Close.
	Close() error
}

// Handle is the engine's reference to a single managed torrent.
type Handle interface {
	InfoHash() InfoHash

	// SavePath returns the directory the torrent currently writes to.
	SavePath() string
}

// AddRequest describes a torrent to add.
type AddRequest struct {
	InfoHash InfoHash
	Name     string

	// Metadata is the bencoded info dictionary.
	// Nil for magnet adds, the engine fetches it from peers.
	Metadata []byte

	// ResumeData is the engine payload saved from a previous run.
	ResumeData []byte

	SavePath string

	// ContentLayout controls whether a root folder is created for
	// multi-file torrents: "Original", "Subfolder" or "NoSubfolder".
	ContentLayout string

	Trackers [][]string
	URLSeeds []string

	Paused bool

	// Forced torrents bypass the active torrent limits.
	Forced bool

	// StopWhenReady pauses the torrent as soon as checking completes.
	StopWhenReady bool

	// SkipChecking accepts existing files without hashing them.
	SkipChecking bool

	// Sequential downloads pieces in order.
	Sequential bool

	// MetadataOnly torrents fetch the info dictionary and nothing else.
	MetadataOnly bool

	// QueuePos is the download queue position, -1 if not queued.
	QueuePos int
}

// RemoveMode selects what happens to downloaded data on remove.
type RemoveMode int

const (
	// RemoveKeepFiles leaves all files in place.
	RemoveKeepFiles RemoveMode = iota

	// RemoveKeepFilesDeletePartfile leaves the payload but deletes
	// engine-private scratch files.
	RemoveKeepFilesDeletePartfile

	// RemoveDeleteFiles deletes all files of the torrent.
	RemoveDeleteFiles
)

// MoveMode selects how existing files at the destination are handled.
type MoveMode int

const (
	MoveOverwrite MoveMode = iota
	MoveSkipExisting
)

// QueueOp is a queue position adjustment.
type QueueOp int

const (
	QueueUp QueueOp = iota
	QueueDown
	QueueTop
	QueueBottom
)

// Settings is the engine configuration. The session applies the full
// struct on every change.
type Settings struct {
	// ListenAddrs are "host:port" pairs to accept peers on.
	ListenAddrs []string

	MaxActiveDownloads int
	MaxActiveUploads   int
	MaxActiveTorrents  int

	// QueueingEnabled false means all torrents are active at once.
	QueueingEnabled bool

	// Rate limits are bytes per second, zero means unlimited.
	DownloadRateLimit int
	UploadRateLimit   int
}
