package engine

import (
	"encoding/hex"
	"fmt"
)

// InfoHash is the identity of a torrent.
// It holds a 20-byte SHA1 hash for version 1 torrents
// or a 32-byte SHA256 hash for version 2 torrents.
// The zero value identifies no torrent.
type InfoHash struct {
	b [32]byte
	n uint8
}

// InfoHashFromBytes returns an InfoHash from a 20 or 32 byte slice.
func InfoHashFromBytes(b []byte) (InfoHash, error) {
	var h InfoHash
	switch len(b) {
	case 20, 32:
		copy(h.b[:], b)
		h.n = uint8(len(b))
		return h, nil
	default:
		return h, fmt.Errorf("invalid info hash length: %d", len(b))
	}
}

// InfoHashFromHex returns an InfoHash from a 40 or 64 digit hex string.
func InfoHashFromHex(s string) (InfoHash, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return InfoHash{}, fmt.Errorf("invalid info hash: %w", err)
	}
	return InfoHashFromBytes(b)
}

// String returns the hash as a lowercase hex string.
func (h InfoHash) String() string {
	return hex.EncodeToString(h.b[:h.n])
}

// Bytes returns a copy of the raw hash.
func (h InfoHash) Bytes() []byte {
	b := make([]byte, h.n)
	copy(b, h.b[:h.n])
	return b
}

// Len returns the hash length in bytes, 20 or 32. Zero value returns 0.
func (h InfoHash) Len() int {
	return int(h.n)
}

// IsZero returns true for the zero value.
func (h InfoHash) IsZero() bool {
	return h.n == 0
}

// V2 returns true if the hash belongs to a version 2 torrent.
func (h InfoHash) V2() bool {
	return h.n == 32
}
