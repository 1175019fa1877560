package port

import (
	"context"
	"time"

	"github.com/arklim/social-platform-auth/internal/core/domain"
)

// SessionRepository persists login sessions.
type SessionRepository interface {
	// Create inserts a session row and returns the generated identifier.
	// The partial unique index on (user_id) WHERE is_active makes a second
	// concurrent insert fail; that failure surfaces as repository.ErrConflict.
	Create(ctx context.Context, session domain.Session) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Session, error)
	GetByTokenHash(ctx context.Context, hash string) (*domain.Session, error)
	// SetTokenHash records the issued access token on a freshly created row.
	SetTokenHash(ctx context.Context, id int64, hash string) error
	// Deactivate closes the caller's own session: the update is scoped to
	// both session id and user id so a token subject can never close someone
	// else's session. Zero affected rows surface as repository.ErrNotFound.
	Deactivate(ctx context.Context, id int64, userID int64) error
	// DeactivateForUser closes whatever active session the user has and
	// returns the number of rows flipped.
	DeactivateForUser(ctx context.Context, userID int64) (int, error)
	// DeactivateExpired closes sessions of the user whose expires_at has
	// passed but whose owner never logged out. Expiry is passive; this reap
	// runs inside the login transaction so a dead row cannot block the insert.
	DeactivateExpired(ctx context.Context, userID int64, at time.Time) (int, error)
}
