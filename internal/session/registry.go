package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/quickshare/quickshare/pkg/types"
)

// maxCodeAttempts bounds the collision-retry loop. With a six digit space
// and short-lived sessions, hitting this means the service is effectively
// full.
const maxCodeAttempts = 100

// ExpiredSession is what the reaper gets back for each session it has to
// clean up: the code plus the file records whose blobs still need deleting.
type ExpiredSession struct {
	Code  string
	Files []types.FileRecord
}

// Registry is the in-memory mapping from access code to session. All
// read-modify-write sequences (code allocation, size accounting, expiry
// guards) run under a single mutex; expiration is additionally evaluated
// lazily on every read so a technically-expired session is never servable,
// whatever the reaper's cadence.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*types.Session

	ttl           time.Duration
	maxTotalBytes int64

	// now is swappable for tests
	now func() time.Time
}

// NewRegistry creates an empty registry with the given TTL and aggregate
// per-session size ceiling.
func NewRegistry(ttl time.Duration, maxTotalBytes int64) *Registry {
	return &Registry{
		sessions:      make(map[string]*types.Session),
		ttl:           ttl,
		maxTotalBytes: maxTotalBytes,
		now:           time.Now,
	}
}

// Create allocates a new session and returns its access code. A non-empty
// host marks the session as a room. Code generation retries under the lock
// until the code does not collide with any live session.
func (r *Registry) Create(host string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := generateCode()
		if err != nil {
			return "", err
		}
		if existing, ok := r.sessions[code]; ok && !r.expired(existing, now) {
			continue
		}
		r.sessions[code] = &types.Session{
			Code:      code,
			CreatedAt: now,
			Host:      host,
		}
		log.Info().Str("code", code).Bool("room", host != "").Msg("session created")
		return code, nil
	}

	return "", fmt.Errorf("failed to allocate a unique code after %d attempts", maxCodeAttempts)
}

// Get returns a copy of the session for the given code. An unknown code
// yields ErrNotFound and an expired one ErrSessionExpired; callers treat
// both as absent. An expired entry is dropped inline rather than waiting
// for the reaper; its blobs are left for the disk sweep.
func (r *Registry) Get(code string) (*types.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.live(code)
	if err != nil {
		return nil, err
	}
	return copySession(s), nil
}

// AppendFile records an uploaded file on the session, maintaining the
// running size total. It fails with ErrSessionExpired when the session's
// TTL has elapsed and with ErrTooLarge when the file would push the total
// past the aggregate ceiling; in the latter case the record is not added and
// the caller owns rolling back the blob.
func (r *Registry) AppendFile(code string, rec types.FileRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.live(code)
	if err != nil {
		return err
	}
	if s.TotalBytes+rec.SizeBytes > r.maxTotalBytes {
		return ErrTooLarge
	}
	s.Files = append(s.Files, rec)
	s.TotalBytes += rec.SizeBytes
	return nil
}

// AppendHistory prepends an activity event to a room's history so the
// newest event is always first.
func (r *Registry) AppendHistory(code string, event types.ActivityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.live(code)
	if err != nil {
		return err
	}
	s.History = append([]types.ActivityEvent{event}, s.History...)
	return nil
}

// TotalUploadedSize returns the session's running byte total.
func (r *Registry) TotalUploadedSize(code string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.live(code)
	if err != nil {
		return 0, err
	}
	return s.TotalBytes, nil
}

// Remove deletes the session entry and returns its file records. The caller
// is responsible for deleting the associated blobs.
func (r *Registry) Remove(code string) []types.FileRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[code]
	if !ok {
		return nil
	}
	delete(r.sessions, code)
	return s.Files
}

// CollectExpired removes every session whose age exceeds the TTL and
// returns their codes and file records. Only the map bookkeeping happens
// under the lock; blob deletion is the caller's job, done unlocked, so the
// reaper never holds up request handlers while touching the disk.
func (r *Registry) CollectExpired(now time.Time) []ExpiredSession {
	r.mu.Lock()
	defer r.mu.Unlock()

	var expired []ExpiredSession
	for code, s := range r.sessions {
		if r.expired(s, now) {
			expired = append(expired, ExpiredSession{Code: code, Files: s.Files})
			delete(r.sessions, code)
		}
	}
	return expired
}

// Len reports the number of entries currently in the map, including any
// expired ones the reaper has not collected yet.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// live looks up a session and applies the lazy expiry check. Callers must
// hold the lock.
func (r *Registry) live(code string) (*types.Session, error) {
	s, ok := r.sessions[code]
	if !ok {
		return nil, ErrNotFound
	}
	if r.expired(s, r.now()) {
		delete(r.sessions, code)
		log.Debug().Str("code", code).Msg("expired session dropped on read")
		return nil, ErrSessionExpired
	}
	return s, nil
}

func (r *Registry) expired(s *types.Session, now time.Time) bool {
	return now.Sub(s.CreatedAt) >= r.ttl
}

// copySession returns a snapshot the caller can use without holding the
// registry lock.
func copySession(s *types.Session) *types.Session {
	out := *s
	out.Files = append([]types.FileRecord(nil), s.Files...)
	out.History = append([]types.ActivityEvent(nil), s.History...)
	return &out
}
