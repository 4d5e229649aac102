package types

import "time"

// Session is the logical record of an upload batch (or room), keyed by its
// access code. Host and History are only populated for rooms.
type Session struct {
	Code       string          `json:"code"`
	CreatedAt  time.Time       `json:"created_at"`
	Files      []FileRecord    `json:"files"`
	TotalBytes int64           `json:"total_bytes"`
	Host       string          `json:"host,omitempty"`
	History    []ActivityEvent `json:"history,omitempty"`
}

// IsRoom reports whether the session was created through the room flow.
func (s *Session) IsRoom() bool {
	return s.Host != ""
}

// FileRecord describes one uploaded file within a session. OriginalName is
// untrusted user input kept only for display and as the suggested download
// name; StoredName is the sanitized on-disk name.
type FileRecord struct {
	OriginalName string `json:"original_name"`
	StoredName   string `json:"-"`
	SizeBytes    int64  `json:"size_bytes"`
	HumanSize    string `json:"size"`
	ContentType  string `json:"type"`
	Sender       string `json:"sender,omitempty"`
}

// ActivityEvent is one entry in a room's history. Events are prepended so the
// newest one is always first; entries are never mutated or removed
// individually.
type ActivityEvent struct {
	Identity string    `json:"identity"`
	Action   string    `json:"action"`
	At       time.Time `json:"at"`
}

// CheckStatus is the payload of the code status endpoints.
type CheckStatus struct {
	Valid            bool  `json:"valid"`
	Expired          bool  `json:"expired"`
	RemainingSeconds int64 `json:"remaining_seconds"`
	Minutes          int64 `json:"minutes"`
	Seconds          int64 `json:"seconds"`
}

// NewCheckStatus computes the countdown payload for a session created at the
// given time. A zero remainder (or a missing session) maps to the expired
// shape with all counters at zero.
func NewCheckStatus(createdAt time.Time, ttl time.Duration, now time.Time) CheckStatus {
	remaining := ttl - now.Sub(createdAt)
	if remaining <= 0 {
		return CheckStatus{Expired: true}
	}
	secs := int64(remaining.Seconds())
	return CheckStatus{
		Valid:            true,
		RemainingSeconds: secs,
		Minutes:          secs / 60,
		Seconds:          secs % 60,
	}
}
