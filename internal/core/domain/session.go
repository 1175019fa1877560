package domain

import "time"

// Session represents a persisted login session. Rows are never deleted;
// logout and expiry only flip or outdate the activity columns.
type Session struct {
	ID        int64
	UserID    int64
	TokenHash string
	IsActive  bool
	CreatedAt time.Time
	ExpiresAt time.Time
}

// IsLive reports whether the session still authorizes requests at the
// supplied moment. A row can be is_active=true and still be dead: expiry
// is passive, nothing rewrites the flag when the deadline passes.
func (s Session) IsLive(at time.Time) bool {
	if !s.IsActive {
		return false
	}
	return s.ExpiresAt.After(at)
}
