package torrent

import "github.com/squallbt/squall/engine"

// InfoHash identifies a torrent in the session.
type InfoHash = engine.InfoHash

// InfoHashFromHex parses a 40 or 64 digit hex string.
func InfoHashFromHex(s string) (InfoHash, error) {
	return engine.InfoHashFromHex(s)
}
