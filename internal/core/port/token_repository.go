package port

import (
	"context"

	"github.com/arklim/social-platform-auth/internal/core/domain"
)

// TokenRepository persists single-use verification and password reset records.
type TokenRepository interface {
	CreateVerification(ctx context.Context, verification domain.EmailVerification) (int64, error)
	GetVerificationByHash(ctx context.Context, hash string) (*domain.EmailVerification, error)
	// ConsumeVerification flips is_used with a conditional update. When the
	// row was already consumed (or does not exist) it returns
	// repository.ErrNotFound; losing a concurrent consume race therefore
	// looks identical to a replay.
	ConsumeVerification(ctx context.Context, id int64) error

	CreatePasswordReset(ctx context.Context, reset domain.PasswordReset) (int64, error)
	GetPasswordResetByHash(ctx context.Context, hash string) (*domain.PasswordReset, error)
	// ConsumePasswordReset has the same conditional-update contract as
	// ConsumeVerification.
	ConsumePasswordReset(ctx context.Context, id int64) error
}
