package torrent

import (
	"testing"

	"github.com/fortytw2/leaktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func queuePositions(t *testing.T, s *Session, torrents ...*Torrent) []int {
	t.Helper()
	positions := make([]int, len(torrents))
	for i, tor := range torrents {
		positions[i] = tor.Stats().QueuePos
	}
	return positions
}

func TestReorderQueueTop(t *testing.T) {
	defer leaktest.Check(t)()
	s := newTestSession(t)
	defer s.Close()

	a := addTestTorrent(t, s, "qa")
	b := addTestTorrent(t, s, "qb")
	c := addTestTorrent(t, s, "qc")
	assert.Equal(t, []int{0, 1, 2}, queuePositions(t, s, a, b, c))

	// Moving a group keeps its relative order.
	require.NoError(t, s.ReorderQueue(QueueMoveTop, []InfoHash{b.InfoHash(), c.InfoHash()}))
	assert.Equal(t, []int{2, 0, 1}, queuePositions(t, s, a, b, c))
}

func TestReorderQueueBottom(t *testing.T) {
	defer leaktest.Check(t)()
	s := newTestSession(t)
	defer s.Close()

	a := addTestTorrent(t, s, "qa")
	b := addTestTorrent(t, s, "qb")
	c := addTestTorrent(t, s, "qc")

	require.NoError(t, s.ReorderQueue(QueueMoveBottom, []InfoHash{a.InfoHash(), b.InfoHash()}))
	assert.Equal(t, []int{1, 2, 0}, queuePositions(t, s, a, b, c))
}

func TestReorderQueueUpDown(t *testing.T) {
	defer leaktest.Check(t)()
	s := newTestSession(t)
	defer s.Close()

	a := addTestTorrent(t, s, "qa")
	b := addTestTorrent(t, s, "qb")
	c := addTestTorrent(t, s, "qc")

	require.NoError(t, s.ReorderQueue(QueueMoveUp, []InfoHash{c.InfoHash()}))
	assert.Equal(t, []int{0, 2, 1}, queuePositions(t, s, a, b, c))

	require.NoError(t, s.ReorderQueue(QueueMoveDown, []InfoHash{a.InfoHash()}))
	assert.Equal(t, []int{1, 2, 0}, queuePositions(t, s, a, b, c))

	// Up at the top and down at the bottom are no-ops.
	require.NoError(t, s.ReorderQueue(QueueMoveUp, []InfoHash{c.InfoHash()}))
	require.NoError(t, s.ReorderQueue(QueueMoveDown, []InfoHash{b.InfoHash()}))
	assert.Equal(t, []int{1, 2, 0}, queuePositions(t, s, a, b, c))
}

func TestReorderQueueUnknownSkipped(t *testing.T) {
	defer leaktest.Check(t)()
	s := newTestSession(t)
	defer s.Close()

	a := addTestTorrent(t, s, "qa")
	ih, err := InfoHashFromHex("dddddddddddddddddddddddddddddddddddddddd")
	require.NoError(t, err)

	// Unknown identities are skipped, not an error.
	require.NoError(t, s.ReorderQueue(QueueMoveTop, []InfoHash{ih, a.InfoHash()}))
	assert.Equal(t, 0, a.Stats().QueuePos)
}

func TestListTorrentsQueueOrder(t *testing.T) {
	defer leaktest.Check(t)()
	s := newTestSession(t)
	defer s.Close()

	a := addTestTorrent(t, s, "qa")
	b := addTestTorrent(t, s, "qb")
	c := addTestTorrent(t, s, "qc")
	require.NoError(t, s.ReorderQueue(QueueMoveTop, []InfoHash{c.InfoHash()}))

	var got []InfoHash
	for _, tor := range s.ListTorrents() {
		got = append(got, tor.InfoHash())
	}
	assert.Equal(t, []InfoHash{c.InfoHash(), a.InfoHash(), b.InfoHash()}, got)
}
