package torrent

import "sync/atomic"

type counterName int

// gauges mirrored out of the run loop for metrics readers
const (
	counterTorrents counterName = iota
	counterPendingAdds
	counterMetadataProbes
	counterQueuedMoves
	counterBannedIPs
	numCounters
)

// counters provides concurrent-safe access over a set of integers.
// The run loop writes them, metric gauges read them.
type counters [numCounters]int64

func (c *counters) Set(name counterName, value int64) {
	atomic.StoreInt64(&c[name], value)
}

func (c *counters) Read(name counterName) int64 {
	return atomic.LoadInt64(&c[name])
}
