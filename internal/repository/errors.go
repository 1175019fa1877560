package repository

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrConflict indicates a uniqueness constraint rejected the write.
	ErrConflict = errors.New("repository: conflict")
	// ErrUnavailable indicates a transient backend failure that persisted
	// after the internal retry.
	ErrUnavailable = errors.New("repository: unavailable")
)
