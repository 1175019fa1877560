package domain

import "time"

// EmailVerification is a single-use email confirmation record. Rows are
// append-only: reissuing a code inserts a fresh row, it never rewrites an
// old one.
type EmailVerification struct {
	ID        int64
	UserID    int64
	Email     string
	CodeHash  string
	IsUsed    bool
	ExpiresAt *time.Time
	CreatedAt time.Time
}

// IsExpired reports whether the verification window has elapsed.
// A nil ExpiresAt means the record never expires.
func (v EmailVerification) IsExpired(at time.Time) bool {
	if v.ExpiresAt == nil {
		return false
	}
	return !v.ExpiresAt.After(at)
}

// PasswordReset is a single-use password reset token (stored as a hash).
type PasswordReset struct {
	ID        int64
	UserID    int64
	TokenHash string
	IsUsed    bool
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired reports whether the reset token has elapsed its validity window.
func (t PasswordReset) IsExpired(at time.Time) bool {
	return !t.ExpiresAt.After(at)
}
