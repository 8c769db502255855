// Package boltstore implements a blob store backed by a bolt database file.
package boltstore

import (
	"errors"
	"time"

	"github.com/squallbt/squall/torrent/blobstore"
	bolt "go.etcd.io/bbolt"
)

var bucketBlobs = []byte("blobs")

// Store keeps all blobs in a single bucket of a bolt database.
type Store struct {
	db *bolt.DB
}

var _ blobstore.Store = (*Store)(nil)

// New opens the database file at path, creating it if missing.
func New(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o640, &bolt.Options{Timeout: time.Second})
	if err == bolt.ErrTimeout {
		return nil, errors.New("state database is locked by another process")
	}
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketBlobs)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Put implements blobstore.Store.
func (s *Store) Put(name string, value []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketBlobs).Put([]byte(name), value)
	})
}

// Get implements blobstore.Store.
func (s *Store) Get(name string) ([]byte, error) {
	var value []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketBlobs).Get([]byte(name))
		if v == nil {
			return blobstore.ErrNotExist
		}
		value = make([]byte, len(v))
		copy(value, v)
		return nil
	})
	return value, err
}

// Delete implements blobstore.Store.
func (s *Store) Delete(name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketBlobs).Delete([]byte(name))
	})
}

// List implements blobstore.Store.
func (s *Store) List() ([]string, error) {
	var names []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketBlobs).ForEach(func(k, _ []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	return names, err
}

// Close implements blobstore.Store.
func (s *Store) Close() error {
	return s.db.Close()
}
