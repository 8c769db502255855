package resumedata

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/squallbt/squall/engine"
	"github.com/squallbt/squall/internal/magnet"
	"github.com/zeebo/bencode"
)

// ErrNoIdentity is returned when a blob carries no torrent identity at all.
var ErrNoIdentity = errors.New("resume data has no torrent identity")

type wire struct {
	InfoHash         []byte             `bencode:"info_hash"`
	Name             string             `bencode:"name"`
	SavePath         string             `bencode:"save_path"`
	Category         string             `bencode:"category"`
	Tags             []string           `bencode:"tags"`
	ContentLayout    string             `bencode:"content_layout"`
	RatioLimit       bencode.RawMessage `bencode:"ratio_limit"`
	SeedingTimeLimit *int64             `bencode:"seeding_time_limit"`
	Paused           int64              `bencode:"paused"`
	Forced           int64              `bencode:"forced"`
	StopWhenReady    int64              `bencode:"stop_when_ready"`
	SeedStatus       int64              `bencode:"seed_status"`
	Trackers         [][]string         `bencode:"trackers"`
	URLSeeds         []string           `bencode:"url_seeds"`
	AddedAt          int64              `bencode:"added_at"`
	EngineData       []byte             `bencode:"engine_data"`

	// Legacy keys, read only.
	HasRootFolder bencode.RawMessage `bencode:"has_root_folder"`
	MagnetURI     string             `bencode:"magnet_uri"`
}

type encodeWire struct {
	InfoHash         []byte     `bencode:"info_hash"`
	Name             string     `bencode:"name"`
	SavePath         string     `bencode:"save_path"`
	Category         string     `bencode:"category,omitempty"`
	Tags             []string   `bencode:"tags,omitempty"`
	ContentLayout    string     `bencode:"content_layout,omitempty"`
	RatioLimit       string     `bencode:"ratio_limit"`
	SeedingTimeLimit int64      `bencode:"seeding_time_limit"`
	Paused           int64      `bencode:"paused"`
	Forced           int64      `bencode:"forced"`
	StopWhenReady    int64      `bencode:"stop_when_ready,omitempty"`
	SeedStatus       int64      `bencode:"seed_status,omitempty"`
	Trackers         [][]string `bencode:"trackers,omitempty"`
	URLSeeds         []string   `bencode:"url_seeds,omitempty"`
	AddedAt          int64      `bencode:"added_at,omitempty"`
	EngineData       []byte     `bencode:"engine_data,omitempty"`
}

// identitySources are tried in order until one yields an identity.
// The magnet URI entry only exists for blobs written by old versions.
var identitySources = []func(*wire, *Record) (bool, error){
	identityFromInfoHash,
	identityFromMagnetURI,
}

// Decode parses a state blob.
func Decode(b []byte) (*Record, error) {
	var w wire
	if err := bencode.DecodeBytes(b, &w); err != nil {
		return nil, fmt.Errorf("cannot decode resume data: %w", err)
	}
	var r Record
	found := false
	for _, src := range identitySources {
		ok, err := src(&w, &r)
		if err != nil {
			return nil, err
		}
		if ok {
			found = true
			break
		}
	}
	if !found {
		return nil, ErrNoIdentity
	}
	if w.Name != "" {
		r.Name = w.Name
	}
	r.SavePath = w.SavePath
	r.Category = w.Category
	r.Tags = w.Tags
	r.ContentLayout = parseLayout(&w)
	ratio, err := parseRatio(w.RatioLimit)
	if err != nil {
		return nil, err
	}
	r.RatioLimit = ratio
	if w.SeedingTimeLimit != nil {
		r.SeedingTimeLimit = *w.SeedingTimeLimit
	} else {
		r.SeedingTimeLimit = SeedingTimeUseGlobal
	}
	r.Paused = w.Paused != 0
	r.Forced = w.Forced != 0
	r.StopWhenReady = w.StopWhenReady != 0
	if r.StopWhenReady {
		// A torrent waiting for its stop condition is not running yet.
		r.Paused = true
		r.Forced = false
	}
	r.HasSeedStatus = w.SeedStatus != 0
	if len(w.Trackers) > 0 {
		r.Trackers = w.Trackers
	}
	if len(w.URLSeeds) > 0 {
		r.URLSeeds = w.URLSeeds
	}
	if w.AddedAt > 0 {
		r.AddedAt = time.Unix(w.AddedAt, 0)
	}
	r.EngineData = w.EngineData
	return &r, nil
}

// Encode serializes a record. Legacy keys are never written.
func Encode(r *Record) ([]byte, error) {
	if r.InfoHash.IsZero() {
		return nil, ErrNoIdentity
	}
	w := encodeWire{
		InfoHash:         r.InfoHash.Bytes(),
		Name:             r.Name,
		SavePath:         r.SavePath,
		Category:         r.Category,
		Tags:             r.Tags,
		ContentLayout:    r.ContentLayout,
		RatioLimit:       strconv.FormatFloat(r.RatioLimit, 'f', -1, 64),
		SeedingTimeLimit: r.SeedingTimeLimit,
		Trackers:         r.Trackers,
		URLSeeds:         r.URLSeeds,
		EngineData:       r.EngineData,
	}
	if r.Paused {
		w.Paused = 1
	}
	if r.Forced {
		w.Forced = 1
	}
	if r.StopWhenReady {
		w.StopWhenReady = 1
	}
	if r.HasSeedStatus {
		w.SeedStatus = 1
	}
	if !r.AddedAt.IsZero() {
		w.AddedAt = r.AddedAt.Unix()
	}
	return bencode.EncodeBytes(w)
}

func identityFromInfoHash(w *wire, r *Record) (bool, error) {
	if len(w.InfoHash) == 0 {
		return false, nil
	}
	ih, err := engine.InfoHashFromBytes(w.InfoHash)
	if err != nil {
		return false, err
	}
	r.InfoHash = ih
	return true, nil
}

func identityFromMagnetURI(w *wire, r *Record) (bool, error) {
	if w.MagnetURI == "" {
		return false, nil
	}
	m, err := magnet.New(w.MagnetURI)
	if err != nil {
		return false, fmt.Errorf("cannot parse magnet URI in resume data: %w", err)
	}
	ih, err := engine.InfoHashFromBytes(m.InfoHash)
	if err != nil {
		return false, err
	}
	r.InfoHash = ih
	r.Name = m.Name
	r.Trackers = m.Trackers
	return true, nil
}

func parseLayout(w *wire) string {
	switch w.ContentLayout {
	case LayoutOriginal, LayoutSubfolder, LayoutNoSubfolder:
		return w.ContentLayout
	}
	if len(w.HasRootFolder) > 0 {
		var n int64
		if err := bencode.DecodeBytes(w.HasRootFolder, &n); err == nil {
			if n == 0 {
				return LayoutNoSubfolder
			}
			return LayoutOriginal
		}
	}
	return ""
}

// parseRatio reads the ratio limit key. New blobs store a decimal
// string, old blobs store an integer in permille. When the value
// decodes both ways the string form wins.
func parseRatio(raw bencode.RawMessage) (float64, error) {
	if len(raw) == 0 {
		return RatioUseGlobal, nil
	}
	var s string
	if err := bencode.DecodeBytes(raw, &s); err == nil {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid ratio limit: %q", s)
		}
		return f, nil
	}
	var n int64
	if err := bencode.DecodeBytes(raw, &n); err == nil {
		return float64(n) / 1000, nil
	}
	return 0, errors.New("invalid ratio limit")
}
