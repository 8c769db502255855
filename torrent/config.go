package torrent

import "time"

// Config for Session.
type Config struct {
	// Directory for session scratch data such as metadata downloads.
	DataDir string
	// Torrents are saved under this directory unless a save path is given.
	DefaultSavePath string
	// When set, torrents download into this directory and are expected
	// to be moved out when complete. Empty disables the feature.
	IncompleteDir string
	// Layout for multi-file torrents: "Original", "Subfolder" or "NoSubfolder".
	ContentLayout string
	// Torrent files larger than this size are rejected.
	MaxTorrentSize int64
	// Timeout for fetching torrents from HTTP sources.
	TorrentAddHTTPTimeout time.Duration
	// Notifications channel capacity. Notifications are dropped when the
	// receiver cannot keep up.
	MaxPendingNotifications int

	// Time between status refresh rounds.
	RefreshInterval time.Duration
	// Time between periodic resume data saves.
	ResumeWriteInterval time.Duration
	// Time between share limit checks.
	ShareLimitsInterval time.Duration
	// How long a poll for engine events blocks.
	EngineWaitTimeout time.Duration
	// How long to wait for outstanding resume data during shutdown
	// before giving up.
	ShutdownDrainTimeout time.Duration

	// Addresses the engine accepts peers on, "host:port" pairs.
	ListenAddrs []string
	// Maximum number of torrents downloading at once. Zero or negative
	// means unlimited.
	MaxActiveDownloads int
	// Maximum number of torrents uploading at once.
	MaxActiveUploads int
	// Maximum number of active torrents overall.
	MaxActiveTorrents int
	// When false every torrent is active regardless of the limits above.
	QueueingEnabled bool
	// Rate limits in bytes per second. Zero means unlimited.
	DownloadRateLimit int
	UploadRateLimit   int

	// Session-wide share ratio to stop seeding at. Negative disables.
	ShareRatioLimit float64
	// Session-wide seeding time limit in minutes. Negative disables.
	ShareSeedingTimeLimit int64
	// What to do when a share limit is reached: "pause", "remove" or
	// "remove_data".
	ShareLimitAction string

	// Skip files that already exist at the destination of a move
	// instead of overwriting them.
	MoveSkipExisting bool
	// Add torrent files found inside completed downloads.
	RecursiveDownload bool
	// Command to run when a torrent finishes downloading.
	// First element is the binary, the rest are arguments.
	OnCompleteCmd []string

	// Enable RPC server.
	RPCEnabled bool
	// Host to listen for RPC server.
	RPCHost string
	// Listen port for RPC server.
	RPCPort int
	// Time to wait for ongoing requests before shutting down RPC HTTP server.
	RPCShutdownTimeout time.Duration
}

// DefaultConfig for Session.
var DefaultConfig = Config{
	DataDir:                 "~/squall/data",
	DefaultSavePath:         "~/squall/downloads",
	ContentLayout:           "Original",
	MaxTorrentSize:          10 << 20,
	TorrentAddHTTPTimeout:   30 * time.Second,
	MaxPendingNotifications: 256,

	RefreshInterval:      1500 * time.Millisecond,
	ResumeWriteInterval:  60 * time.Minute,
	ShareLimitsInterval:  10 * time.Second,
	EngineWaitTimeout:    time.Second,
	ShutdownDrainTimeout: 30 * time.Second,

	ListenAddrs:        []string{"0.0.0.0:20402"},
	MaxActiveDownloads: 3,
	MaxActiveUploads:   3,
	MaxActiveTorrents:  5,
	QueueingEnabled:    true,

	ShareRatioLimit:       -1,
	ShareSeedingTimeLimit: -1,
	ShareLimitAction:      "pause",

	RPCEnabled:         true,
	RPCHost:            "127.0.0.1",
	RPCPort:            20409,
	RPCShutdownTimeout: 5 * time.Second,
}

// fillDefaults replaces zero intervals that would break the timers.
func (c *Config) fillDefaults() {
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = DefaultConfig.RefreshInterval
	}
	if c.ResumeWriteInterval <= 0 {
		c.ResumeWriteInterval = DefaultConfig.ResumeWriteInterval
	}
	if c.ShareLimitsInterval <= 0 {
		c.ShareLimitsInterval = DefaultConfig.ShareLimitsInterval
	}
	if c.EngineWaitTimeout <= 0 {
		c.EngineWaitTimeout = DefaultConfig.EngineWaitTimeout
	}
	if c.ShutdownDrainTimeout <= 0 {
		c.ShutdownDrainTimeout = DefaultConfig.ShutdownDrainTimeout
	}
	if c.MaxTorrentSize <= 0 {
		c.MaxTorrentSize = DefaultConfig.MaxTorrentSize
	}
	if c.TorrentAddHTTPTimeout <= 0 {
		c.TorrentAddHTTPTimeout = DefaultConfig.TorrentAddHTTPTimeout
	}
	if c.MaxPendingNotifications <= 0 {
		c.MaxPendingNotifications = DefaultConfig.MaxPendingNotifications
	}
	if c.ContentLayout == "" {
		c.ContentLayout = DefaultConfig.ContentLayout
	}
	if c.ShareLimitAction == "" {
		c.ShareLimitAction = DefaultConfig.ShareLimitAction
	}
}
