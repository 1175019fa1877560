package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/arklim/social-platform-auth/internal/core/domain"
	"github.com/arklim/social-platform-auth/internal/core/port"
	"github.com/arklim/social-platform-auth/internal/repository"
)

// SessionRepository implements port.SessionRepository backed by PostgreSQL.
type SessionRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewSessionRepository constructs a PostgreSQL-backed session repository.
func NewSessionRepository(db pgExecutor) *SessionRepository {
	return &SessionRepository{
		exec:    db,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository instance that executes statements within the supplied transaction.
func (r *SessionRepository) WithTx(tx pgx.Tx) *SessionRepository {
	if tx == nil {
		return r
	}
	return &SessionRepository{
		exec:    tx,
		builder: r.builder,
	}
}

// Create persists a new session row. The partial unique index on
// (user_id) WHERE is_active rejects a second active session at the
// database, so two racing logins cannot both succeed; the loser gets
// repository.ErrConflict.
func (r *SessionRepository) Create(ctx context.Context, session domain.Session) (int64, error) {
	stmt, args, err := r.builder.Insert("auth.sessions").
		Columns(
			"user_id",
			"token_hash",
			"is_active",
			"created_at",
			"expires_at",
		).
		Values(
			session.UserID,
			nullableString(session.TokenHash),
			session.IsActive,
			session.CreatedAt,
			session.ExpiresAt,
		).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert session sql: %w", err)
	}

	var id int64
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&id); err != nil {
		if isUniqueViolation(err) {
			return 0, repository.ErrConflict
		}
		return 0, fmt.Errorf("insert session: %w", err)
	}

	return id, nil
}

var sessionColumns = []string{
	"id",
	"user_id",
	"token_hash",
	"is_active",
	"created_at",
	"expires_at",
}

// GetByID fetches a session by its identifier.
func (r *SessionRepository) GetByID(ctx context.Context, id int64) (*domain.Session, error) {
	stmt, args, err := r.builder.
		Select(sessionColumns...).
		From("auth.sessions").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select session sql: %w", err)
	}

	return r.scanSession(r.exec.QueryRow(ctx, stmt, args...))
}

// GetByTokenHash fetches a session by the hash of its access token.
func (r *SessionRepository) GetByTokenHash(ctx context.Context, hash string) (*domain.Session, error) {
	stmt, args, err := r.builder.
		Select(sessionColumns...).
		From("auth.sessions").
		Where(squirrel.Eq{"token_hash": hash}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select session by token sql: %w", err)
	}

	return r.scanSession(r.exec.QueryRow(ctx, stmt, args...))
}

func (r *SessionRepository) scanSession(row pgx.Row) (*domain.Session, error) {
	var (
		session   domain.Session
		tokenHash sql.NullString
	)

	if err := row.Scan(
		&session.ID,
		&session.UserID,
		&tokenHash,
		&session.IsActive,
		&session.CreatedAt,
		&session.ExpiresAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}

	if tokenHash.Valid {
		session.TokenHash = tokenHash.String
	}

	return &session, nil
}

// SetTokenHash records the issued access token hash on a session row.
func (r *SessionRepository) SetTokenHash(ctx context.Context, id int64, hash string) error {
	stmt, args, err := r.builder.Update("auth.sessions").
		Set("token_hash", hash).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build set session token sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("set session token: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Deactivate closes a specific session owned by the given user.
func (r *SessionRepository) Deactivate(ctx context.Context, id int64, userID int64) error {
	stmt, args, err := r.builder.Update("auth.sessions").
		Set("is_active", false).
		Where(squirrel.Eq{"id": id}).
		Where(squirrel.Eq{"user_id": userID}).
		Where(squirrel.Eq{"is_active": true}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build deactivate session sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("deactivate session: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// DeactivateForUser closes whatever active session the user has.
func (r *SessionRepository) DeactivateForUser(ctx context.Context, userID int64) (int, error) {
	stmt, args, err := r.builder.Update("auth.sessions").
		Set("is_active", false).
		Where(squirrel.Eq{"user_id": userID}).
		Where(squirrel.Eq{"is_active": true}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build deactivate user sessions sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("deactivate user sessions: %w", err)
	}

	return int(ct.RowsAffected()), nil
}

// DeactivateExpired closes sessions of the user that ran past their
// deadline without a logout. Called inside the login transaction so the
// partial unique index only ever sees genuinely live rows.
func (r *SessionRepository) DeactivateExpired(ctx context.Context, userID int64, at time.Time) (int, error) {
	stmt, args, err := r.builder.Update("auth.sessions").
		Set("is_active", false).
		Where(squirrel.Eq{"user_id": userID}).
		Where(squirrel.Eq{"is_active": true}).
		Where(squirrel.LtOrEq{"expires_at": at}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build deactivate expired sessions sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("deactivate expired sessions: %w", err)
	}

	return int(ct.RowsAffected()), nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

var _ port.SessionRepository = (*SessionRepository)(nil)
