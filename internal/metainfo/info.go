package metainfo

import (
	"crypto/sha1" // nolint: gosec
	"crypto/sha256"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/zeebo/bencode"
)

// Info contains information about torrent.
type Info struct {
	PieceLength uint32             `bencode:"piece length" json:"piece_length"`
	Pieces      []byte             `bencode:"pieces" json:"pieces"`
	Name        string             `bencode:"name" json:"name"`
	Private     bencode.RawMessage `bencode:"private" json:"private"`
	Length      int64              `bencode:"length" json:"length"`
	Files       []FileDict         `bencode:"files" json:"files"`
	MetaVersion int64              `bencode:"meta version" json:"meta_version"`
	FileTree    bencode.RawMessage `bencode:"file tree" json:"-"`

	// Calculated fields
	Hash        [20]byte `bencode:"-" json:"-"`
	HashV2      [32]byte `bencode:"-" json:"-"`
	TotalLength int64    `bencode:"-" json:"-"`
	NumPieces   uint32   `bencode:"-" json:"-"`
	Bytes       []byte   `bencode:"-" json:"-"`

	private bool
}

// FileDict is a single file inside a torrent.
type FileDict struct {
	Length int64    `bencode:"length" json:"length"`
	Path   []string `bencode:"path" json:"path"`
}

// NewInfo returns info from bencoded bytes in b.
func NewInfo(b []byte) (*Info, error) {
	var i Info
	if err := bencode.DecodeBytes(b, &i); err != nil {
		return nil, err
	}
	if i.PieceLength == 0 {
		return nil, errors.New("torrent has zero piece length")
	}
	if i.MetaVersion != 0 && i.MetaVersion != 1 && i.MetaVersion != 2 {
		return nil, fmt.Errorf("unsupported meta version: %d", i.MetaVersion)
	}
	hasV1 := len(i.Pieces) > 0 || i.MetaVersion <= 1
	if hasV1 {
		if len(i.Pieces)%sha1.Size != 0 {
			return nil, errors.New("invalid piece data")
		}
		i.NumPieces = uint32(len(i.Pieces) / sha1.Size)
		if i.NumPieces == 0 {
			return nil, errors.New("torrent has zero pieces")
		}
	}
	if len(i.Files) == 0 && i.FileTree != nil {
		files, err := flattenFileTree(i.FileTree)
		if err != nil {
			return nil, err
		}
		// A tree with a single root-level file is a single-file torrent.
		if len(files) == 1 && len(files[0].Path) == 1 {
			i.Length = files[0].Length
		} else {
			i.Files = files
		}
	}
	// ".." is not allowed in file names
	for _, file := range i.Files {
		for _, path := range file.Path {
			if strings.TrimSpace(path) == ".." {
				return nil, fmt.Errorf("invalid file name: %q", filepath.Join(file.Path...))
			}
		}
	}
	multiFile := len(i.Files) > 0
	if multiFile {
		for _, f := range i.Files {
			i.TotalLength += f.Length
		}
	} else {
		i.TotalLength = i.Length
	}
	if !hasV1 {
		pl := int64(i.PieceLength)
		i.NumPieces = uint32((i.TotalLength + pl - 1) / pl)
	}
	totalPieceDataLength := int64(i.PieceLength) * int64(i.NumPieces)
	delta := totalPieceDataLength - i.TotalLength
	if hasV1 && (delta >= int64(i.PieceLength) || delta < 0) {
		return nil, errors.New("invalid piece data")
	}
	private, err := decodePrivate(i.Private)
	if err != nil {
		return nil, err
	}
	i.private = private
	i.Bytes = b
	i.Hash = sha1.Sum(b) // nolint: gosec
	if i.MetaVersion == 2 {
		i.HashV2 = sha256.Sum256(b)
	}
	return &i, nil
}

// ID returns the identity of the torrent.
// It is the SHA256 of the info dictionary for version 2 torrents,
// the SHA1 otherwise.
func (i *Info) ID() []byte {
	if i.MetaVersion == 2 {
		return i.HashV2[:]
	}
	return i.Hash[:]
}

// IsPrivate returns true if the torrent is for private trackers.
func (i *Info) IsPrivate() bool {
	return i.private
}

// FilePaths returns the relative paths of all files in the torrent.
// A single-file torrent has one path that is equal to its name.
func (i *Info) FilePaths() []string {
	if len(i.Files) == 0 {
		return []string{i.Name}
	}
	paths := make([]string, len(i.Files))
	for j, f := range i.Files {
		parts := append([]string{i.Name}, f.Path...)
		paths[j] = filepath.Join(parts...)
	}
	return paths
}

func decodePrivate(raw bencode.RawMessage) (bool, error) {
	if len(raw) == 0 {
		return false, nil
	}
	var intVal int64
	if err := bencode.DecodeBytes(raw, &intVal); err == nil {
		return intVal != 0, nil
	}
	var stringVal string
	if err := bencode.DecodeBytes(raw, &stringVal); err != nil {
		return false, errors.New("invalid private field")
	}
	return stringVal == "1" || stringVal == "true", nil
}

// flattenFileTree converts a BEP 52 file tree into a flat file list.
// Keys are visited in sorted order so the result is stable.
func flattenFileTree(raw bencode.RawMessage) ([]FileDict, error) {
	var root map[string]bencode.RawMessage
	if err := bencode.DecodeBytes(raw, &root); err != nil {
		return nil, err
	}
	var files []FileDict
	var walk func(node map[string]bencode.RawMessage, path []string) error
	walk = func(node map[string]bencode.RawMessage, path []string) error {
		if leaf, ok := node[""]; ok {
			var f struct {
				Length int64 `bencode:"length"`
			}
			if err := bencode.DecodeBytes(leaf, &f); err != nil {
				return err
			}
			files = append(files, FileDict{Length: f.Length, Path: path})
			return nil
		}
		names := make([]string, 0, len(node))
		for name := range node {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			var child map[string]bencode.RawMessage
			if err := bencode.DecodeBytes(node[name], &child); err != nil {
				return err
			}
			if err := walk(child, append(path[:len(path):len(path)], name)); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(root, nil); err != nil {
		return nil, err
	}
	return files, nil
}
