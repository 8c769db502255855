package torrent

// Version of the session. Set with ldflags on release builds.
var Version = "0.0.0"
