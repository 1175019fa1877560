package domain

import "time"

// UserRegisteredEvent represents the payload for auth.user.registered messages.
type UserRegisteredEvent struct {
	EventID      string
	UserID       int64
	Username     string
	Email        string
	RegisteredAt time.Time
}

// EmailVerifiedEvent represents the payload for auth.user.email_verified messages.
type EmailVerifiedEvent struct {
	EventID    string
	UserID     int64
	Email      string
	VerifiedAt time.Time
}

// PasswordResetRequestedEvent represents the payload for auth.user.password.reset_requested messages.
type PasswordResetRequestedEvent struct {
	EventID     string
	UserID      int64
	RequestedAt time.Time
	ExpiresAt   time.Time
}

// PasswordChangedEvent represents the payload for auth.user.password.changed messages.
type PasswordChangedEvent struct {
	EventID   string
	UserID    int64
	ChangedAt time.Time
}

// SessionOpenedEvent represents the payload for auth.session.opened messages.
type SessionOpenedEvent struct {
	EventID   string
	SessionID int64
	UserID    int64
	OpenedAt  time.Time
	ExpiresAt time.Time
}

// SessionRevokedEvent represents the payload for auth.session.revoked messages.
type SessionRevokedEvent struct {
	EventID   string
	SessionID int64
	UserID    int64
	RevokedAt time.Time
	RevokedBy string
	Reason    string
}
