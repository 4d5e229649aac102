package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// LocalStore implements BlobStore on a flat local directory
type LocalStore struct {
	basePath     string
	maxFileBytes int64
	mutex        sync.RWMutex // For concurrent access safety
}

// NewLocalStore creates a local blob store rooted at basePath, creating the
// directory if needed. maxFileBytes caps the size of a single stored file.
func NewLocalStore(basePath string, maxFileBytes int64) (*LocalStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		log.Error().Err(err).Str("path", basePath).Msg("failed to create upload directory")
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	log.Info().Str("path", basePath).Int64("max_file_bytes", maxFileBytes).Msg("local blob store initialized")
	return &LocalStore{
		basePath:     basePath,
		maxFileBytes: maxFileBytes,
	}, nil
}

// Put saves content under storedName with an atomic write and enforces the
// per-file size ceiling. On ErrTooLarge the partial write has been removed.
func (ls *LocalStore) Put(ctx context.Context, storedName string, content io.Reader) (int64, error) {
	startTime := time.Now()

	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	default:
	}

	if !validStoredName(storedName) {
		return 0, fmt.Errorf("invalid stored name %q", storedName)
	}

	ls.mutex.Lock()
	defer ls.mutex.Unlock()

	fullPath := filepath.Join(ls.basePath, storedName)

	// Temporary file for atomic write
	tempPath := fullPath + ".tmp." + fmt.Sprintf("%d", time.Now().UnixNano())
	tempFile, err := os.Create(tempPath)
	if err != nil {
		log.Error().Err(err).Str("name", storedName).Msg("failed to create temporary file")
		return 0, fmt.Errorf("failed to create temporary file: %w", err)
	}

	// Cleanup of the temp file on any failure path
	defer func() {
		tempFile.Close()
		if _, err := os.Stat(tempPath); err == nil {
			os.Remove(tempPath)
		}
	}()

	// Copy at most one byte past the ceiling so an oversized stream is
	// detected without draining it.
	written, err := io.Copy(tempFile, io.LimitReader(content, ls.maxFileBytes+1))
	if err != nil {
		log.Error().Err(err).Str("name", storedName).Msg("failed to write content to temporary file")
		return 0, fmt.Errorf("failed to write content: %w", err)
	}

	if written > ls.maxFileBytes {
		log.Warn().Str("name", storedName).Int64("limit", ls.maxFileBytes).Msg("upload exceeds single file size limit")
		return 0, ErrTooLarge
	}

	if err := tempFile.Sync(); err != nil {
		log.Error().Err(err).Str("name", storedName).Msg("failed to sync temporary file")
		return 0, fmt.Errorf("failed to sync temporary file: %w", err)
	}

	tempFile.Close()

	// Atomic move from temp to final location
	if err := os.Rename(tempPath, fullPath); err != nil {
		log.Error().Err(err).Str("name", storedName).Msg("failed to move temporary file to final location")
		return 0, fmt.Errorf("failed to move file to final location: %w", err)
	}

	log.Info().
		Str("name", storedName).
		Int64("bytes_written", written).
		Dur("duration", time.Since(startTime)).
		Msg("file stored")

	return written, nil
}

// Get opens a stored file for reading
func (ls *LocalStore) Get(ctx context.Context, storedName string) (io.ReadCloser, int64, error) {
	ls.mutex.RLock()
	defer ls.mutex.RUnlock()

	select {
	case <-ctx.Done():
		return nil, 0, ctx.Err()
	default:
	}

	if !validStoredName(storedName) {
		return nil, 0, ErrNotFound
	}

	fullPath := filepath.Join(ls.basePath, storedName)

	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Debug().Str("name", storedName).Msg("file not found")
			return nil, 0, ErrNotFound
		}
		log.Error().Err(err).Str("name", storedName).Msg("failed to open file")
		return nil, 0, fmt.Errorf("failed to open file: %w", err)
	}

	var size int64
	if info, err := file.Stat(); err == nil {
		size = info.Size()
	}

	return file, size, nil
}

// Delete removes a stored file; deleting an absent file is not an error
func (ls *LocalStore) Delete(ctx context.Context, storedName string) error {
	ls.mutex.Lock()
	defer ls.mutex.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if !validStoredName(storedName) {
		return nil
	}

	fullPath := filepath.Join(ls.basePath, storedName)

	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			log.Debug().Str("name", storedName).Msg("file already deleted or does not exist")
			return nil
		}
		log.Error().Err(err).Str("name", storedName).Msg("failed to delete file")
		return fmt.Errorf("failed to delete file: %w", err)
	}

	log.Info().Str("name", storedName).Msg("file deleted")
	return nil
}

// Exists checks whether a stored file is present
func (ls *LocalStore) Exists(ctx context.Context, storedName string) (bool, error) {
	ls.mutex.RLock()
	defer ls.mutex.RUnlock()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}

	if !validStoredName(storedName) {
		return false, nil
	}

	_, err := os.Stat(filepath.Join(ls.basePath, storedName))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		log.Error().Err(err).Str("name", storedName).Msg("failed to check file existence")
		return false, fmt.Errorf("failed to check file existence: %w", err)
	}

	return true, nil
}

// ListAll enumerates the upload directory. Entries that disappear or fail to
// stat mid-scan are skipped; the reaper treats the listing as best effort.
func (ls *LocalStore) ListAll(ctx context.Context) ([]BlobInfo, error) {
	ls.mutex.RLock()
	defer ls.mutex.RUnlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	entries, err := os.ReadDir(ls.basePath)
	if err != nil {
		log.Error().Err(err).Str("path", ls.basePath).Msg("failed to list upload directory")
		return nil, fmt.Errorf("failed to list upload directory: %w", err)
	}

	blobs := make([]BlobInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			log.Debug().Err(err).Str("name", entry.Name()).Msg("skipping unreadable entry")
			continue
		}
		blobs = append(blobs, BlobInfo{
			Name:    entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	return blobs, nil
}
