package torrent

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by operations on a closed session.
var ErrClosed = errors.New("session is closed")

// ErrTorrentNotFound is returned by operations naming an identity the
// session does not know. It is wrapped in an InputError.
var ErrTorrentNotFound = errors.New("torrent not found")

// errWriterSaturated reports a persistence job dropped because the
// writer queue is full.
var errWriterSaturated = errors.New("write queue is full")

// InputError is returned when the problem is caused by the request,
// not by the session.
type InputError struct {
	err error
}

func newInputError(err error) *InputError {
	return &InputError{
		err: err,
	}
}

func inputErrorf(format string, args ...interface{}) *InputError {
	return &InputError{
		err: fmt.Errorf(format, args...),
	}
}

// Error implements error interface.
func (e *InputError) Error() string {
	return "input error: " + e.err.Error()
}

// Unwrap returns the underlying error.
func (e *InputError) Unwrap() error {
	return e.err
}
