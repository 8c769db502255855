package torrent

import (
	"encoding/base64"
	"errors"
	"path/filepath"

	"github.com/gofrs/uuid"
	"github.com/squallbt/squall/engine"
)

// moveJob is one storage relocation. The head of Session.moveQueue is
// the job currently running inside the engine; the rest wait their
// turn. The engine runs one relocation at a time.
type moveJob struct {
	id       string
	infoHash engine.InfoHash
	handle   engine.Handle
	dest     string
	mode     engine.MoveMode

	// userRequested moves update the record's save path on success.
	// Session-triggered moves only carry data to where the record
	// already points.
	userRequested bool
}

func newMoveJobID() string {
	u, err := uuid.NewV1()
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(u[:])
}

// MoveStorage relocates the torrent's data to dest. The move runs
// asynchronously; the result arrives as a NotifyStorageMoved or
// NotifyStorageMoveFailed notification. Requests queue up behind any
// move already running; a second request for the same torrent replaces
// its queued one.
func (s *Session) MoveStorage(ih InfoHash, dest string, mode MoveMode) error {
	if dest == "" {
		return newInputError(errors.New("empty destination"))
	}
	var merr error
	err := s.call(func() {
		if s.closing {
			merr = ErrClosed
			return
		}
		rec, ok := s.torrents[ih]
		if !ok {
			merr = newInputError(ErrTorrentNotFound)
			return
		}
		merr = s.enqueueMove(rec, s.resolveManualSavePath(dest), mode.engineMode(), false)
	})
	if err != nil {
		return err
	}
	return merr
}

// MoveMode selects what happens to files already present at the
// destination of a storage move.
type MoveMode int

const (
	// MoveOverwrite replaces files at the destination.
	MoveOverwrite MoveMode = iota
	// MoveSkipExisting keeps files at the destination and drops the
	// source copy.
	MoveSkipExisting
)

func (m MoveMode) engineMode() engine.MoveMode {
	if m == MoveSkipExisting {
		return engine.MoveSkipExisting
	}
	return engine.MoveOverwrite
}

// enqueueMove queues a relocation of rec's data to dest. Runs on the
// loop. internal marks moves the session decided on its own, such as
// carrying a finished download out of the incomplete directory.
func (s *Session) enqueueMove(rec *record, dest string, mode engine.MoveMode, internal bool) error {
	if rec.handle == nil {
		return newInputError(errors.New("torrent has no metadata yet"))
	}
	dest = filepath.Clean(dest)
	queued := s.queuedMoveIndex(rec.infoHash)
	if queued < 0 && !s.hasMoveJob(rec.infoHash) && rec.handle.SavePath() == dest {
		return newInputError(errors.New("torrent is already in the destination"))
	}
	if queued >= 0 && s.moveQueue[queued].dest == dest {
		return newInputError(errors.New("move to the destination is already queued"))
	}
	job := &moveJob{
		id:            newMoveJobID(),
		infoHash:      rec.infoHash,
		handle:        rec.handle,
		dest:          dest,
		mode:          mode,
		userRequested: !internal,
	}
	if queued >= 0 {
		// Only the latest pending destination matters.
		s.log.Debugf("move %s replaces queued move %s", job.id, s.moveQueue[queued].id)
		s.moveQueue[queued] = job
		return nil
	}
	s.moveQueue = append(s.moveQueue, job)
	s.log.Debugf("queued move %s of %s to %s", job.id, rec.name, dest)
	if len(s.moveQueue) == 1 {
		s.submitMoves()
	}
	return nil
}

// queuedMoveIndex returns the index of the torrent's not-yet-submitted
// job, -1 if there is none. Index 0 is the job running in the engine
// and is never returned.
func (s *Session) queuedMoveIndex(ih engine.InfoHash) int {
	for i := 1; i < len(s.moveQueue); i++ {
		if s.moveQueue[i].infoHash == ih {
			return i
		}
	}
	return -1
}

// hasMoveJob reports whether any job, running or queued, references
// the torrent.
func (s *Session) hasMoveJob(ih engine.InfoHash) bool {
	for _, job := range s.moveQueue {
		if job.infoHash == ih {
			return true
		}
	}
	return false
}

// dropQueuedMoves erases not-yet-submitted jobs for the torrent.
// The running job, if any, stays; the engine cannot take it back.
func (s *Session) dropQueuedMoves(ih engine.InfoHash) {
	kept := s.moveQueue[:0]
	for i, job := range s.moveQueue {
		if i > 0 && job.infoHash == ih {
			s.log.Debugf("dropping queued move %s", job.id)
			continue
		}
		kept = append(kept, job)
	}
	s.moveQueue = kept
}

// submitMoves hands the head job to the engine. A synchronous engine
// error fails the job on the spot and the next one is tried.
func (s *Session) submitMoves() {
	for len(s.moveQueue) > 0 {
		job := s.moveQueue[0]
		err := s.engine.MoveStorage(job.handle, job.dest, job.mode)
		if err == nil {
			s.log.Debugf("move %s submitted to engine", job.id)
			return
		}
		s.moveQueue = s.moveQueue[1:]
		s.finishMove(job, "", err)
	}
}

func (s *Session) handleStorageMoved(ev engine.StorageMovedEvent) {
	job := s.popActiveMove(ev.InfoHash)
	if job == nil {
		return
	}
	s.finishMove(job, ev.Path, nil)
	s.submitMoves()
}

func (s *Session) handleStorageMoveFailed(ev engine.StorageMoveFailedEvent) {
	job := s.popActiveMove(ev.InfoHash)
	if job == nil {
		return
	}
	s.finishMove(job, ev.Path, ev.Err)
	s.submitMoves()
}

func (s *Session) popActiveMove(ih engine.InfoHash) *moveJob {
	if len(s.moveQueue) == 0 || s.moveQueue[0].infoHash != ih {
		s.log.Warningf("engine reported a storage move for %s but no such move is running", ih)
		return nil
	}
	job := s.moveQueue[0]
	s.moveQueue = s.moveQueue[1:]
	return job
}

// finishMove settles one completed or failed job. When the torrent was
// removed while its move was running, a deferred removal may now
// proceed; relocation and deletion never overlap on one handle.
func (s *Session) finishMove(job *moveJob, newPath string, moveErr error) {
	rec, ok := s.torrents[job.infoHash]
	if !ok {
		if !s.hasMoveJob(job.infoHash) {
			s.finalizeDeferredRemoval(job.infoHash)
		}
		return
	}
	if moveErr != nil {
		s.log.Errorf("cannot move %s to %s: %s", rec.name, job.dest, moveErr)
		s.notify(Notification{
			Type:     NotifyStorageMoveFailed,
			InfoHash: rec.infoHash,
			Name:     rec.name,
			Path:     job.dest,
			Error:    moveErr.Error(),
		})
		return
	}
	s.log.Infof("moved %s to %s", rec.name, newPath)
	if job.userRequested {
		// The move pins the torrent to an explicit path, even if a
		// category was choosing the path before.
		rec.savePath = newPath
	}
	rec.needSaveResume = true
	s.persistRecord(rec, nil)
	if rec.handle != nil {
		s.engine.RequestResumeData(rec.handle)
	}
	s.notify(Notification{
		Type:     NotifyStorageMoved,
		InfoHash: rec.infoHash,
		Name:     rec.name,
		Path:     newPath,
	})
}
