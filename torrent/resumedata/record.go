// Package resumedata reads and writes the session's per-torrent state blobs.
//
// A blob is a bencoded dictionary wrapping the torrent identity, the
// session-level settings of the torrent and an opaque engine payload.
// Decode understands blobs written by older versions of the program.
package resumedata

import (
	"time"

	"github.com/squallbt/squall/engine"
)

// Share limit sentinels. Real limits are zero or positive.
const (
	RatioUseGlobal = -2
	RatioUnlimited = -1

	SeedingTimeUseGlobal = -2
	SeedingTimeUnlimited = -1
)

// Content layout values. Empty string means use the session default.
const (
	LayoutOriginal    = "Original"
	LayoutSubfolder   = "Subfolder"
	LayoutNoSubfolder = "NoSubfolder"
)

// Record is the persisted state of a single torrent.
type Record struct {
	InfoHash engine.InfoHash
	Name     string
	SavePath string

	Category string
	Tags     []string

	// ContentLayout is one of the Layout constants or empty.
	ContentLayout string

	// RatioLimit is the share ratio to stop seeding at.
	// RatioUseGlobal and RatioUnlimited are special values.
	RatioLimit float64

	// SeedingTimeLimit is the number of minutes to seed for.
	// SeedingTimeUseGlobal and SeedingTimeUnlimited are special values.
	SeedingTimeLimit int64

	Paused        bool
	Forced        bool
	StopWhenReady bool

	// HasSeedStatus is true once the torrent has finished downloading,
	// even if data was added later and it is downloading again.
	HasSeedStatus bool

	Trackers [][]string
	URLSeeds []string

	AddedAt time.Time

	// EngineData is the engine's own resume payload. Opaque.
	EngineData []byte
}
