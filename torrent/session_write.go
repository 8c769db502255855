package torrent

import (
	"os"
	"sort"
	"strings"

	"github.com/squallbt/squall/engine"
	"github.com/squallbt/squall/torrent/filesearch"
	"github.com/squallbt/squall/torrent/resumedata"
	"github.com/zeebo/bencode"
)

// writerJob is one unit of work for the writer goroutine. Exactly one
// of put, del and removeTree is meaningful: a blob write, a blob
// delete or a recursive filesystem delete.
type writerJob struct {
	name string
	data []byte
	del  bool

	// removeTree is a directory to delete instead of touching the store.
	removeTree string

	// done, when set, runs on the run loop after the job finished.
	done func(err error)
}

func (s *Session) runWriter() {
	defer close(s.writerDoneC)
	for job := range s.writeC {
		var err error
		switch {
		case job.removeTree != "":
			err = os.RemoveAll(job.removeTree)
		case job.del:
			err = s.store.Delete(job.name)
		default:
			err = s.store.Put(job.name, job.data)
		}
		if job.done != nil {
			done := job.done
			jobErr := err
			s.exec(func() { done(jobErr) })
			continue
		}
		if err != nil {
			// Write failures are logged, not retried.
			s.log.Errorf("cannot persist %q: %s", job.name, err)
		}
	}
}

// enqueueWrite hands a job to the writer without blocking the loop.
func (s *Session) enqueueWrite(job writerJob) {
	select {
	case s.writeC <- job:
	default:
		s.log.Errorf("write queue is full, dropping write for %q", job.name)
		if job.done != nil {
			job.done(errWriterSaturated)
		}
	}
}

func (s *Session) runSearcher() {
	defer close(s.searcherDoneC)
	for job := range s.searchC {
		res, err := s.searcher.Search(job.req)
		ih := job.infoHash
		s.exec(func() { s.finishPendingSearch(ih, res, err) })
	}
}

type searchJob struct {
	infoHash engine.InfoHash
	req      filesearch.Request
}

func resumeBlobName(id string) string  { return id + ".fastresume" }
func torrentBlobName(id string) string { return id + ".torrent" }

// persistRecord saves the torrent's resume blob. done is optional.
func (s *Session) persistRecord(rec *record, done func(err error)) {
	data, err := resumedata.Encode(rec.toResumeData())
	if err != nil {
		s.log.Errorf("cannot encode resume data for %s: %s", rec.name, err)
		if done != nil {
			done(err)
		}
		return
	}
	s.enqueueWrite(writerJob{name: resumeBlobName(rec.infoHash.String()), data: data, done: done})
}

func (s *Session) persistTorrentFile(rec *record, metadata []byte) {
	s.enqueueWrite(writerJob{name: torrentBlobName(rec.infoHash.String()), data: metadata})
}

// deleteRecordBlobs removes the torrent's blobs from the store.
func (s *Session) deleteRecordBlobs(ih engine.InfoHash) {
	s.enqueueWrite(writerJob{name: resumeBlobName(ih.String()), del: true})
	s.enqueueWrite(writerJob{name: torrentBlobName(ih.String()), del: true})
}

// persistQueue saves the queue order blob: one hex identity per line,
// queue position order.
func (s *Session) persistQueue() {
	order := s.queueOrder()
	lines := make([]string, 0, len(order))
	for _, rec := range order {
		lines = append(lines, rec.infoHash.String())
	}
	s.enqueueWrite(writerJob{name: queueBlob, data: []byte(strings.Join(lines, "\n"))})
}

func (s *Session) persistCategories() {
	data, err := bencode.EncodeBytes(s.categories)
	if err != nil {
		s.log.Errorln("cannot encode categories:", err.Error())
		return
	}
	s.enqueueWrite(writerJob{name: categoriesBlob, data: data})
}

func (s *Session) persistTags() {
	tags := make([]string, 0, len(s.tags))
	for tag := range s.tags {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	data, err := bencode.EncodeBytes(tags)
	if err != nil {
		s.log.Errorln("cannot encode tags:", err.Error())
		return
	}
	s.enqueueWrite(writerJob{name: tagsBlob, data: data})
}

func (s *Session) persistBannedIPs() {
	data, err := bencode.EncodeBytes(s.banned.Strings())
	if err != nil {
		s.log.Errorln("cannot encode banned ips:", err.Error())
		return
	}
	s.enqueueWrite(writerJob{name: bannedIPsBlob, data: data})
}

// notify publishes n without blocking the loop. Slow consumers lose
// notifications.
func (s *Session) notify(n Notification) {
	select {
	case s.notifC <- n:
	default:
		s.log.Warningf("notification receiver is slow, dropping %s", n.Type)
	}
}
