package domain

import "time"

// User mirrors the persisted representation in the users table.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	IsVerified   bool
	IsActive     bool
	IsAdmin      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CanLogin reports whether the account may open a session at all.
// Verification is checked separately so callers can distinguish the failure.
func (u User) CanLogin() bool {
	return u.IsActive
}

// AuthenticatedIdentity is the resolved caller of an authenticated operation.
// Handlers build it from verified token claims and pass it down explicitly;
// nothing in the service reads identity from ambient state.
type AuthenticatedIdentity struct {
	UserID    int64
	SessionID int64
	Email     string
	IsAdmin   bool
}
