package metainfo

import (
	"bytes"
	"crypto/sha1" // nolint: gosec
	"crypto/sha256"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/bencode"
)

func encodeDict(t *testing.T, d map[string]interface{}) []byte {
	t.Helper()
	b, err := bencode.EncodeBytes(d)
	require.NoError(t, err)
	return b
}

func singleFileInfo() map[string]interface{} {
	return map[string]interface{}{
		"name":         "file.bin",
		"piece length": 16384,
		"pieces":       strings.Repeat("\x01", 20),
		"length":       100,
	}
}

func TestSingleFile(t *testing.T) {
	b := encodeDict(t, map[string]interface{}{
		"announce": "http://tracker.example.com/announce",
		"info":     singleFileInfo(),
	})
	mi, err := New(bytes.NewReader(b))
	require.NoError(t, err)
	assert.Equal(t, "file.bin", mi.Info.Name)
	assert.Equal(t, int64(100), mi.Info.TotalLength)
	assert.Equal(t, uint32(1), mi.Info.NumPieces)
	assert.False(t, mi.Info.IsPrivate())
	assert.Equal(t, []string{"file.bin"}, mi.Info.FilePaths())
	assert.Equal(t, [][]string{{"http://tracker.example.com/announce"}}, mi.AnnounceList)

	infoBytes := encodeDict(t, singleFileInfo())
	hash := sha1.Sum(infoBytes) // nolint: gosec
	assert.Equal(t, hash[:], mi.Info.ID())
}

func TestMultiFile(t *testing.T) {
	b := encodeDict(t, map[string]interface{}{
		"announce-list": [][]string{{"udp://a", "udp://b"}, {"udp://c"}},
		"info": map[string]interface{}{
			"name":         "stuff",
			"piece length": 16384,
			"pieces":       strings.Repeat("\x01", 20),
			"files": []map[string]interface{}{
				{"length": 5, "path": []string{"a.txt"}},
				{"length": 7, "path": []string{"sub", "b.torrent"}},
			},
		},
	})
	mi, err := New(bytes.NewReader(b))
	require.NoError(t, err)
	assert.Equal(t, int64(12), mi.Info.TotalLength)
	assert.Equal(t, []string{"stuff/a.txt", "stuff/sub/b.torrent"}, mi.Info.FilePaths())
	assert.Equal(t, []string{"udp://a", "udp://b", "udp://c"}, mi.TrackerURLs())
}

func TestV2FileTree(t *testing.T) {
	info := map[string]interface{}{
		"name":         "stuff",
		"piece length": 16384,
		"meta version": 2,
		"file tree": map[string]interface{}{
			"a.bin": map[string]interface{}{
				"": map[string]interface{}{"length": 5},
			},
			"docs": map[string]interface{}{
				"readme.md": map[string]interface{}{
					"": map[string]interface{}{"length": 3},
				},
			},
		},
	}
	b := encodeDict(t, map[string]interface{}{"info": info})
	mi, err := New(bytes.NewReader(b))
	require.NoError(t, err)
	assert.Equal(t, int64(8), mi.Info.TotalLength)
	assert.Equal(t, []string{"stuff/a.bin", "stuff/docs/readme.md"}, mi.Info.FilePaths())

	infoBytes := encodeDict(t, info)
	hash := sha256.Sum256(infoBytes)
	assert.Equal(t, hash[:], mi.Info.ID())
	assert.Equal(t, 32, len(mi.Info.ID()))
}

func TestV2SingleFile(t *testing.T) {
	b := encodeDict(t, map[string]interface{}{
		"info": map[string]interface{}{
			"name":         "file.bin",
			"piece length": 16384,
			"meta version": 2,
			"file tree": map[string]interface{}{
				"file.bin": map[string]interface{}{
					"": map[string]interface{}{"length": 9},
				},
			},
		},
	})
	mi, err := New(bytes.NewReader(b))
	require.NoError(t, err)
	assert.Empty(t, mi.Info.Files)
	assert.Equal(t, int64(9), mi.Info.TotalLength)
	assert.Equal(t, []string{"file.bin"}, mi.Info.FilePaths())
}

func TestPrivate(t *testing.T) {
	for _, private := range []interface{}{1, "1"} {
		info := singleFileInfo()
		info["private"] = private
		b := encodeDict(t, map[string]interface{}{"info": info})
		mi, err := New(bytes.NewReader(b))
		require.NoError(t, err)
		assert.True(t, mi.Info.IsPrivate())
	}
	info := singleFileInfo()
	info["private"] = 0
	b := encodeDict(t, map[string]interface{}{"info": info})
	mi, err := New(bytes.NewReader(b))
	require.NoError(t, err)
	assert.False(t, mi.Info.IsPrivate())
}

func TestInvalid(t *testing.T) {
	noPieceLength := singleFileInfo()
	delete(noPieceLength, "piece length")

	dotDot := map[string]interface{}{
		"name":         "stuff",
		"piece length": 16384,
		"pieces":       strings.Repeat("\x01", 20),
		"files": []map[string]interface{}{
			{"length": 5, "path": []string{"..", "escape.txt"}},
		},
	}

	badPieces := singleFileInfo()
	badPieces["pieces"] = strings.Repeat("\x01", 19)

	for name, info := range map[string]map[string]interface{}{
		"no piece length": noPieceLength,
		"dot dot path":    dotDot,
		"bad pieces":      badPieces,
	} {
		b := encodeDict(t, map[string]interface{}{"info": info})
		_, err := New(bytes.NewReader(b))
		assert.Error(t, err, name)
	}

	_, err := New(bytes.NewReader(encodeDict(t, map[string]interface{}{"announce": "http://x"})))
	assert.Error(t, err)
}

func TestURLList(t *testing.T) {
	b := encodeDict(t, map[string]interface{}{
		"info":     singleFileInfo(),
		"url-list": "http://seed.example.com/",
	})
	mi, err := New(bytes.NewReader(b))
	require.NoError(t, err)
	assert.Equal(t, []string{"http://seed.example.com/"}, mi.URLList)

	b = encodeDict(t, map[string]interface{}{
		"info":     singleFileInfo(),
		"url-list": []string{"http://a/", "http://b/"},
	})
	mi, err = New(bytes.NewReader(b))
	require.NoError(t, err)
	assert.Equal(t, []string{"http://a/", "http://b/"}, mi.URLList)
}
