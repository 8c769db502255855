package metainfo

import "github.com/zeebo/bencode"

// URLList is the "url-list" key in a torrent file. Also known as web seeds.
// It may be encoded as a single string or as a list of strings.
type URLList []string

var _ bencode.Unmarshaler = (*URLList)(nil)

// UnmarshalBencode implements bencode.Unmarshaler interface.
func (l *URLList) UnmarshalBencode(b []byte) error {
	var ss []string
	errList := bencode.DecodeBytes(b, &ss)
	if errList == nil {
		*l = URLList(ss)
		return nil
	}
	var s string
	errString := bencode.DecodeBytes(b, &s)
	if errString == nil {
		if s != "" {
			*l = URLList{s}
		}
		return nil
	}
	return errList
}
