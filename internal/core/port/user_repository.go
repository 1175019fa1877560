package port

import (
	"context"
	"time"

	"github.com/arklim/social-platform-auth/internal/core/domain"
)

// UserRepository persists account records.
type UserRepository interface {
	// Create inserts a new user row and returns the generated identifier.
	// A duplicate email surfaces as repository.ErrConflict.
	Create(ctx context.Context, user domain.User) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	// GetByEmail matches the stored email exactly; no case folding is applied.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	MarkVerified(ctx context.Context, id int64, verifiedAt time.Time) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string, changedAt time.Time) error
}
