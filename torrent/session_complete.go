package torrent

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// startCompleteCmd runs the configured command for a finished torrent.
// Occurrences of %N and %D in arguments are replaced with the torrent
// name and its save path.
func (s *Session) startCompleteCmd(rec *record) {
	args := make([]string, 0, len(s.config.OnCompleteCmd)-1)
	for _, arg := range s.config.OnCompleteCmd[1:] {
		arg = strings.ReplaceAll(arg, "%N", rec.name)
		arg = strings.ReplaceAll(arg, "%D", s.torrentSavePath(rec))
		args = append(args, arg)
	}
	cmd := exec.Command(s.config.OnCompleteCmd[0], args...)
	name := rec.name
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if out, err := cmd.CombinedOutput(); err != nil {
			s.log.Errorf("complete command for %s failed: %s: %q", name, err, out)
		}
	}()
}

// startRecursiveDownload scans a finished torrent's files for .torrent
// files and adds each one with the parent's save path.
func (s *Session) startRecursiveDownload(rec *record) {
	savePath := s.torrentSavePath(rec)
	var found []string
	for _, rel := range rec.filePaths {
		if strings.EqualFold(filepath.Ext(rel), ".torrent") {
			found = append(found, filepath.Join(savePath, rel))
		}
	}
	if len(found) == 0 {
		return
	}
	parent := rec.name
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for _, path := range found {
			f, err := os.Open(path)
			if err != nil {
				s.log.Errorf("cannot open torrent found inside %s: %s", parent, err)
				continue
			}
			_, err = s.AddTorrent(f, &AddTorrentOptions{SavePath: savePath})
			f.Close()
			if err != nil {
				s.log.Errorf("cannot add torrent found inside %s: %s", parent, err)
				continue
			}
			s.log.Infof("added torrent %s found inside %s", filepath.Base(path), parent)
		}
	}()
}
