// Package fsstore implements a blob store backed by a directory of files.
package fsstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/squallbt/squall/torrent/blobstore"
)

const tmpPrefix = ".tmp-"

// Store keeps each blob in its own file. Writes go to a temporary file
// first and are renamed into place so readers never see partial blobs.
type Store struct {
	dir string
}

var _ blobstore.Store = (*Store)(nil)

// New returns a store rooted at dir. The directory is created if missing.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, err
	}
	return &Store{dir: dir}, nil
}

// Put implements blobstore.Store.
func (s *Store) Put(name string, value []byte) error {
	if err := checkName(name); err != nil {
		return err
	}
	f, err := os.CreateTemp(s.dir, tmpPrefix+"*")
	if err != nil {
		return err
	}
	defer func() {
		if f != nil {
			f.Close()
			os.Remove(f.Name())
		}
	}()
	if _, err = f.Write(value); err != nil {
		return err
	}
	if err = f.Sync(); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	tmp := f.Name()
	f = nil
	if err = os.Rename(tmp, filepath.Join(s.dir, name)); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// Get implements blobstore.Store.
func (s *Store) Get(name string) ([]byte, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(filepath.Join(s.dir, name))
	if os.IsNotExist(err) {
		return nil, blobstore.ErrNotExist
	}
	return b, err
}

// Delete implements blobstore.Store.
func (s *Store) Delete(name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// List implements blobstore.Store.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), tmpPrefix) {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// Close implements blobstore.Store.
func (s *Store) Close() error {
	return nil
}

func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid blob name: %q", name)
	}
	return nil
}
