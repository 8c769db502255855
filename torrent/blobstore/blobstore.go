// Package blobstore defines persistent storage for session state blobs.
package blobstore

import "errors"

// ErrNotExist is returned by Get when the named blob is not in the store.
var ErrNotExist = errors.New("blob does not exist")

// Store persists named binary blobs.
// Implementations must be safe for concurrent use.
type Store interface {
	// Put writes the blob under the given name, replacing any previous value.
	Put(name string, value []byte) error

	// Get returns the blob stored under the given name.
	// Returns ErrNotExist if the name is not in the store.
	Get(name string) ([]byte, error)

	// Delete removes the named blob. Deleting a missing blob is not an error.
	Delete(name string) error

	// List returns all blob names in the store in sorted order.
	List() ([]string, error)

	// Close releases resources held by the store.
	Close() error
}
