package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/arklim/social-platform-auth/internal/core/domain"
	"github.com/arklim/social-platform-auth/internal/core/port"
	"github.com/arklim/social-platform-auth/internal/repository"
)

// TokenRepository implements port.TokenRepository using PostgreSQL tables.
type TokenRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewTokenRepository constructs a new token repository.
func NewTokenRepository(db pgExecutor) *TokenRepository {
	return &TokenRepository{
		exec:    db,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository instance executing within the provided transaction.
func (r *TokenRepository) WithTx(tx pgx.Tx) *TokenRepository {
	if tx == nil {
		return r
	}
	return &TokenRepository{
		exec:    tx,
		builder: r.builder,
	}
}

// CreateVerification inserts a new verification record.
func (r *TokenRepository) CreateVerification(ctx context.Context, verification domain.EmailVerification) (int64, error) {
	stmt, args, err := r.builder.Insert("auth.email_verifications").
		Columns(
			"user_id",
			"email",
			"code_hash",
			"is_used",
			"expires_at",
			"created_at",
		).
		Values(
			verification.UserID,
			verification.Email,
			verification.CodeHash,
			verification.IsUsed,
			verification.ExpiresAt,
			verification.CreatedAt,
		).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert verification sql: %w", err)
	}

	var id int64
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&id); err != nil {
		if isUniqueViolation(err) {
			return 0, repository.ErrConflict
		}
		return 0, fmt.Errorf("insert verification: %w", err)
	}

	return id, nil
}

// GetVerificationByHash retrieves a verification record by its hashed code.
func (r *TokenRepository) GetVerificationByHash(ctx context.Context, hash string) (*domain.EmailVerification, error) {
	stmt, args, err := r.builder.Select(
		"id",
		"user_id",
		"email",
		"code_hash",
		"is_used",
		"expires_at",
		"created_at",
	).
		From("auth.email_verifications").
		Where(squirrel.Eq{"code_hash": hash}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select verification sql: %w", err)
	}

	var (
		verification domain.EmailVerification
		expiresAt    sql.NullTime
	)

	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(
		&verification.ID,
		&verification.UserID,
		&verification.Email,
		&verification.CodeHash,
		&verification.IsUsed,
		&expiresAt,
		&verification.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan verification: %w", err)
	}

	if expiresAt.Valid {
		t := expiresAt.Time
		verification.ExpiresAt = &t
	}

	return &verification, nil
}

// ConsumeVerification marks a verification record as used. The conditional
// predicate makes the consume atomic: of two concurrent callers only one
// sees an affected row, the other gets ErrNotFound.
func (r *TokenRepository) ConsumeVerification(ctx context.Context, id int64) error {
	stmt, args, err := r.builder.Update("auth.email_verifications").
		Set("is_used", true).
		Where(squirrel.Eq{"id": id}).
		Where(squirrel.Eq{"is_used": false}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build consume verification sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("consume verification: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// CreatePasswordReset inserts a password reset row.
func (r *TokenRepository) CreatePasswordReset(ctx context.Context, reset domain.PasswordReset) (int64, error) {
	stmt, args, err := r.builder.Insert("auth.password_resets").
		Columns(
			"user_id",
			"token_hash",
			"is_used",
			"expires_at",
			"created_at",
		).
		Values(
			reset.UserID,
			reset.TokenHash,
			reset.IsUsed,
			reset.ExpiresAt,
			reset.CreatedAt,
		).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert password reset sql: %w", err)
	}

	var id int64
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&id); err != nil {
		if isUniqueViolation(err) {
			return 0, repository.ErrConflict
		}
		return 0, fmt.Errorf("insert password reset: %w", err)
	}

	return id, nil
}

// GetPasswordResetByHash fetches a password reset row by its token hash.
func (r *TokenRepository) GetPasswordResetByHash(ctx context.Context, hash string) (*domain.PasswordReset, error) {
	stmt, args, err := r.builder.Select(
		"id",
		"user_id",
		"token_hash",
		"is_used",
		"expires_at",
		"created_at",
	).
		From("auth.password_resets").
		Where(squirrel.Eq{"token_hash": hash}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select password reset sql: %w", err)
	}

	var reset domain.PasswordReset
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(
		&reset.ID,
		&reset.UserID,
		&reset.TokenHash,
		&reset.IsUsed,
		&reset.ExpiresAt,
		&reset.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan password reset: %w", err)
	}

	return &reset, nil
}

// ConsumePasswordReset marks a reset row as used with the same conditional
// predicate as ConsumeVerification.
func (r *TokenRepository) ConsumePasswordReset(ctx context.Context, id int64) error {
	stmt, args, err := r.builder.Update("auth.password_resets").
		Set("is_used", true).
		Where(squirrel.Eq{"id": id}).
		Where(squirrel.Eq{"is_used": false}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build consume password reset sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("consume password reset: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

var _ port.TokenRepository = (*TokenRepository)(nil)
