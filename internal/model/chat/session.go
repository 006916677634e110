package chat

import "time"

// SessionTTL 会话最长空闲时间，超过后视为过期。
const SessionTTL = 30 * time.Minute

// SessionRecord is the persisted handle for one logical conversation.
type SessionRecord struct {
	SessionID    string
	CreatedAt    time.Time
	LastActivity time.Time
}

// NewSessionRecord returns a record created and last active at now.
func NewSessionRecord(id string, now time.Time) SessionRecord {
	return SessionRecord{
		SessionID:    id,
		CreatedAt:    now,
		LastActivity: now,
	}
}

// Expired reports whether the record has been idle for longer than SessionTTL.
func (r SessionRecord) Expired(now time.Time) bool {
	return now.Sub(r.LastActivity) > SessionTTL
}

// Touch bumps LastActivity, never moving it before CreatedAt or backwards.
func (r *SessionRecord) Touch(now time.Time) {
	if now.Before(r.LastActivity) {
		return
	}
	r.LastActivity = now
}

// Valid reports whether the record satisfies lastActivity >= createdAt and carries an id.
func (r SessionRecord) Valid() bool {
	return r.SessionID != "" && !r.LastActivity.Before(r.CreatedAt)
}
