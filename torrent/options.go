package torrent

// AddTorrentOptions contains options for adding a new torrent.
type AddTorrentOptions struct {
	// Do not start the torrent automatically after adding.
	Stopped bool
	// Stop the torrent as soon as file checking completes.
	StopWhenReady bool
	// Start the torrent regardless of the active torrent limits.
	Forced bool
	// Directory to save the torrent data into. Relative paths are
	// resolved against the session's default save path. Empty selects
	// the category save path.
	SavePath string
	// Let the category decide the save path, now and when the
	// category's path changes later. SavePath must be empty.
	AutoManaged bool
	// Do not verify existing data against piece hashes.
	SkipChecking bool
	// Download pieces in order.
	Sequential bool
	// Category to add the torrent into. Unknown but valid names are
	// created on the fly.
	Category string
	// Tags to attach to the torrent.
	Tags []string
	// Layout for multi-file torrents. Empty selects the session default.
	ContentLayout string
	// Share ratio to stop seeding at. Zero selects the session-wide
	// limit, negative values mean unlimited.
	RatioLimit float64
	// Minutes to seed for. Zero selects the session-wide limit,
	// negative values mean unlimited.
	SeedingTimeLimit int64
}
