package torrent

import (
	"sort"
	"time"

	"github.com/squallbt/squall/engine"
	"github.com/squallbt/squall/torrent/resumedata"
)

// record is the session's in-memory state of one managed torrent.
// Only the run loop touches records.
type record struct {
	infoHash engine.InfoHash
	name     string
	savePath string
	handle   engine.Handle

	category string
	tags     map[string]struct{}

	contentLayout    string
	ratioLimit       float64
	seedingTimeLimit int64

	paused        bool
	forced        bool
	stopWhenReady bool
	hasSeedStatus bool

	// private mirrors the info dictionary's private flag. Private
	// torrents never accept tracker merges from duplicate adds.
	private bool

	trackers [][]string
	urlSeeds []string

	addedAt    time.Time
	engineData []byte

	// filePaths are relative to savePath, known once metadata is known.
	filePaths []string

	// last status snapshot from the engine
	state          engine.TorrentState
	progress       float64
	queuePos       int
	downloaded     int64
	uploaded       int64
	downloadRate   int
	uploadRate     int
	seedingTime    time.Duration
	needSaveResume bool

	// set after a share limit action fired, cleared on resume
	limitActionFired bool
}

// pendingAdd is a torrent between admission and the engine's answer.
type pendingAdd struct {
	rec      *record
	req      engine.AddRequest
	restored bool

	// submitted is set once the request went to the engine.
	submitted bool

	// cancelled marks a pending add that was removed before the
	// engine confirmed it.
	cancelled    bool
	removeOption engine.RemoveMode
}

// metadataProbe is a metadata-only download.
type metadataProbe struct {
	infoHash engine.InfoHash
	name     string
	handle   engine.Handle
}

// removal is a torrent whose engine-side teardown is in flight.
type removal struct {
	name     string
	savePath string

	deleteData bool

	// handle and mode drive the engine removal once it can run.
	handle engine.Handle
	mode   engine.RemoveMode

	// deferredDelete means a storage move was running at removal time.
	// The engine removal waits until the move settles.
	deferredDelete bool
}

func (r *record) tagList() []string {
	if len(r.tags) == 0 {
		return nil
	}
	tags := make([]string, 0, len(r.tags))
	for tag := range r.tags {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

func (r *record) toResumeData() *resumedata.Record {
	return &resumedata.Record{
		InfoHash:         r.infoHash,
		Name:             r.name,
		SavePath:         r.savePath,
		Category:         r.category,
		Tags:             r.tagList(),
		ContentLayout:    r.contentLayout,
		RatioLimit:       r.ratioLimit,
		SeedingTimeLimit: r.seedingTimeLimit,
		Paused:           r.paused,
		Forced:           r.forced,
		StopWhenReady:    r.stopWhenReady,
		HasSeedStatus:    r.hasSeedStatus,
		Trackers:         r.trackers,
		URLSeeds:         r.urlSeeds,
		AddedAt:          r.addedAt,
		EngineData:       r.engineData,
	}
}

func recordFromResumeData(rd *resumedata.Record) *record {
	rec := &record{
		infoHash:         rd.InfoHash,
		name:             rd.Name,
		savePath:         rd.SavePath,
		category:         rd.Category,
		contentLayout:    rd.ContentLayout,
		ratioLimit:       rd.RatioLimit,
		seedingTimeLimit: rd.SeedingTimeLimit,
		paused:           rd.Paused,
		forced:           rd.Forced,
		stopWhenReady:    rd.StopWhenReady,
		hasSeedStatus:    rd.HasSeedStatus,
		trackers:         rd.Trackers,
		urlSeeds:         rd.URLSeeds,
		addedAt:          rd.AddedAt,
		engineData:       rd.EngineData,
		queuePos:         -1,
	}
	if len(rd.Tags) > 0 {
		rec.tags = make(map[string]struct{}, len(rd.Tags))
		for _, tag := range rd.Tags {
			rec.tags[tag] = struct{}{}
		}
	}
	if rec.paused {
		rec.state = engine.StatePaused
	}
	if rec.hasSeedStatus {
		rec.progress = 1
	}
	return rec
}

// mergeTrackers adds tracker tiers and web seeds that the record does
// not already have. Returns true if anything changed.
func (r *record) mergeTrackers(trackers [][]string, urlSeeds []string) bool {
	known := make(map[string]struct{})
	for _, tier := range r.trackers {
		for _, u := range tier {
			known[u] = struct{}{}
		}
	}
	changed := false
	for _, tier := range trackers {
		var missing []string
		for _, u := range tier {
			if _, ok := known[u]; !ok {
				missing = append(missing, u)
				known[u] = struct{}{}
			}
		}
		if len(missing) > 0 {
			r.trackers = append(r.trackers, missing)
			changed = true
		}
	}
	knownSeeds := make(map[string]struct{}, len(r.urlSeeds))
	for _, u := range r.urlSeeds {
		knownSeeds[u] = struct{}{}
	}
	for _, u := range urlSeeds {
		if _, ok := knownSeeds[u]; !ok {
			r.urlSeeds = append(r.urlSeeds, u)
			changed = true
		}
	}
	return changed
}
