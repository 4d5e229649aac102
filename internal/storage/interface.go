package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned when a stored file does not exist.
var ErrNotFound = errors.New("file not found")

// ErrTooLarge is returned when a single upload exceeds the per-file ceiling.
// Any partial write has already been removed when this is returned.
var ErrTooLarge = errors.New("file exceeds size limit")

// BlobInfo describes one file in the upload directory, as seen by a
// directory scan. It carries enough for the reaper to enforce expiry without
// consulting the session registry.
type BlobInfo struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// BlobStore defines the interface for uploaded file storage
type BlobStore interface {
	// Put writes content under the given stored name and returns the number
	// of bytes written
	Put(ctx context.Context, storedName string, content io.Reader) (int64, error)

	// Get opens the stored file for reading and reports its size
	Get(ctx context.Context, storedName string) (io.ReadCloser, int64, error)

	// Delete removes the stored file; deleting an absent file is not an error
	Delete(ctx context.Context, storedName string) error

	// Exists checks whether the stored file is present
	Exists(ctx context.Context, storedName string) (bool, error)

	// ListAll enumerates every file in the store
	ListAll(ctx context.Context) ([]BlobInfo, error)
}
