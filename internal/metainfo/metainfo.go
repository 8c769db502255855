// Package metainfo provides support for reading torrent files.
package metainfo

import (
	"errors"
	"io"

	"github.com/zeebo/bencode"
)

// MetaInfo file dictionary
type MetaInfo struct {
	Info         Info
	RawInfo      []byte     `bencode:"-" json:"-"`
	AnnounceList [][]string `bencode:"-" json:"-"`
	URLList      []string   `bencode:"-" json:"-"`
}

// New returns a torrent from bencoded stream.
func New(r io.Reader) (*MetaInfo, error) {
	var t struct {
		Info         bencode.RawMessage `bencode:"info"`
		Announce     string             `bencode:"announce"`
		AnnounceList [][]string         `bencode:"announce-list"`
		URLList      URLList            `bencode:"url-list"`
	}
	err := bencode.NewDecoder(r).Decode(&t)
	if err != nil {
		return nil, err
	}
	if len(t.Info) == 0 {
		return nil, errors.New("no info dict in torrent file")
	}
	info, err := NewInfo(t.Info)
	if err != nil {
		return nil, err
	}
	mi := MetaInfo{
		Info:    *info,
		RawInfo: t.Info,
	}
	if len(t.AnnounceList) > 0 {
		for _, tier := range t.AnnounceList {
			var trackers []string
			for _, t := range tier {
				if t != "" {
					trackers = append(trackers, t)
				}
			}
			if len(trackers) > 0 {
				mi.AnnounceList = append(mi.AnnounceList, trackers)
			}
		}
	} else if t.Announce != "" {
		mi.AnnounceList = append(mi.AnnounceList, []string{t.Announce})
	}
	mi.URLList = t.URLList
	return &mi, nil
}

// TrackerURLs returns all tracker URLs in the order they appear in the announce list.
func (m *MetaInfo) TrackerURLs() []string {
	var urls []string
	for _, tier := range m.AnnounceList {
		urls = append(urls, tier...)
	}
	return urls
}
