// Package filesearch locates existing files of a torrent on disk.
//
// The session uses it while adding a torrent to decide whether the
// torrent should write to the incomplete directory or straight to its
// final save path.
package filesearch

import (
	"os"
	"path/filepath"
)

// PartSuffix is appended to file names while they are incomplete.
const PartSuffix = ".part"

// Request describes one search.
type Request struct {
	// SavePath is the final save path of the torrent.
	SavePath string

	// IncompletePath is the directory for in-progress downloads.
	// Empty when the session does not use a separate incomplete directory.
	IncompletePath string

	// FilePaths are the torrent's file paths relative to its save path.
	FilePaths []string
}

// Result is the answer to a Request.
type Result struct {
	// SavePath is the directory the torrent should write to.
	SavePath string

	// Found holds the file paths from the request that already exist
	// under SavePath, complete or partial.
	Found []string
}

// Searcher runs file searches. Search may block on disk access, the
// session calls it from a worker goroutine.
type Searcher interface {
	Search(req Request) (Result, error)
}

// Local is a Searcher for the local filesystem.
type Local struct{}

var _ Searcher = Local{}

// Search checks the incomplete directory first. If any of the
// torrent's files exists there the torrent keeps downloading there,
// otherwise it uses the final save path.
func (Local) Search(req Request) (Result, error) {
	if req.IncompletePath != "" {
		found := existing(req.IncompletePath, req.FilePaths)
		if len(found) > 0 {
			return Result{SavePath: req.IncompletePath, Found: found}, nil
		}
	}
	return Result{
		SavePath: req.SavePath,
		Found:    existing(req.SavePath, req.FilePaths),
	}, nil
}

func existing(dir string, paths []string) []string {
	var found []string
	for _, p := range paths {
		full := filepath.Join(dir, p)
		if fileExists(full) || fileExists(full+PartSuffix) {
			found = append(found, p)
		}
	}
	return found
}

func fileExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}
