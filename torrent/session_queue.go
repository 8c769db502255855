package torrent

import (
	"sort"

	"github.com/squallbt/squall/engine"
)

// QueueReorderOp is a download queue reordering operation.
type QueueReorderOp int

const (
	QueueMoveUp QueueReorderOp = iota
	QueueMoveDown
	QueueMoveTop
	QueueMoveBottom
)

func (op QueueReorderOp) String() string {
	switch op {
	case QueueMoveUp:
		return "up"
	case QueueMoveDown:
		return "down"
	case QueueMoveTop:
		return "top"
	case QueueMoveBottom:
		return "bottom"
	default:
		return "unknown"
	}
}

func (op QueueReorderOp) engineOp() engine.QueueOp {
	switch op {
	case QueueMoveUp:
		return engine.QueueUp
	case QueueMoveDown:
		return engine.QueueDown
	case QueueMoveTop:
		return engine.QueueTop
	default:
		return engine.QueueBottom
	}
}

// ascending reports the direction the selected torrents are walked in.
// The direction is what keeps the relative order of torrents moving
// together: walking the wrong way reinserts them reversed.
func (op QueueReorderOp) ascending() bool {
	switch op {
	case QueueMoveUp, QueueMoveBottom:
		return true
	default:
		return false
	}
}

// ReorderQueue changes the download queue position of the given
// torrents, keeping their relative order. Finished torrents are
// skipped, they hold no queue position. The new order is persisted
// before the call returns.
func (s *Session) ReorderQueue(op QueueReorderOp, ids []InfoHash) error {
	var rerr error
	err := s.call(func() { rerr = s.reorderQueue(op, ids) })
	if err != nil {
		return err
	}
	return rerr
}

func (s *Session) reorderQueue(op QueueReorderOp, ids []InfoHash) error {
	if s.closing {
		return ErrClosed
	}
	var selected []*record
	for _, ih := range ids {
		rec, ok := s.torrents[ih]
		if !ok || rec.hasSeedStatus || rec.queuePos < 0 || rec.handle == nil {
			continue
		}
		selected = append(selected, rec)
	}
	sort.SliceStable(selected, func(i, j int) bool {
		if op.ascending() {
			return selected[i].queuePos < selected[j].queuePos
		}
		return selected[i].queuePos > selected[j].queuePos
	})
	order := s.queueOrder()
	for _, rec := range selected {
		order = applyQueueOp(order, rec, op)
		if err := s.engine.AdjustQueuePosition(rec.handle, op.engineOp()); err != nil {
			// The engine may refuse without side effects, the local
			// order is still what we persist.
			s.log.Debugf("cannot adjust queue position of %s: %s", rec.name, err)
		}
	}
	for i, rec := range order {
		rec.queuePos = i
	}
	// Metadata downloads never hold a queue slot ahead of real torrents.
	for _, p := range s.probes {
		if p.handle == nil {
			continue
		}
		if err := s.engine.AdjustQueuePosition(p.handle, engine.QueueBottom); err != nil {
			s.log.Debugf("cannot move metadata download %s to queue bottom: %s", p.infoHash, err)
		}
	}
	s.persistQueue()
	s.log.Debugf("moved %d torrents %s in queue", len(selected), op)
	return nil
}

// queueOrder returns the queued records sorted by queue position.
func (s *Session) queueOrder() []*record {
	var order []*record
	for _, rec := range s.torrents {
		if rec.queuePos >= 0 {
			order = append(order, rec)
		}
	}
	sort.SliceStable(order, func(i, j int) bool { return order[i].queuePos < order[j].queuePos })
	return order
}

// applyQueueOp moves rec inside order the same way the engine moves it.
func applyQueueOp(order []*record, rec *record, op QueueReorderOp) []*record {
	i := -1
	for j, r := range order {
		if r == rec {
			i = j
			break
		}
	}
	if i < 0 {
		return order
	}
	switch op {
	case QueueMoveUp:
		if i > 0 {
			order[i], order[i-1] = order[i-1], order[i]
		}
	case QueueMoveDown:
		if i < len(order)-1 {
			order[i], order[i+1] = order[i+1], order[i]
		}
	case QueueMoveTop:
		copy(order[1:i+1], order[:i])
		order[0] = rec
	case QueueMoveBottom:
		copy(order[i:], order[i+1:])
		order[len(order)-1] = rec
	}
	return order
}
