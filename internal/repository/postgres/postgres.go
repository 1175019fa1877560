package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sethvargo/go-retry"

	"github.com/arklim/social-platform-auth/internal/core/port"
	"github.com/arklim/social-platform-auth/internal/repository"
)

type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store wraps the pgx pool and acts as the unit-of-work boundary for
// repositories.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a Store over an existing pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Pool exposes the underlying pool for repositories and health checks.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// Close releases resources associated with the store.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

const txRetryDelay = 50 * time.Millisecond

// Execute runs fn inside a single transaction. Serialization aborts,
// deadlocks, and pool acquisition timeouts get one retry with a fresh
// transaction; a second failure surfaces as repository.ErrUnavailable.
func (s *Store) Execute(ctx context.Context, fn func(ctx context.Context, repos port.TxRepositories) error) error {
	backoff := retry.WithMaxRetries(1, retry.NewConstant(txRetryDelay))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := s.runTx(ctx, fn); err != nil {
			if isTransient(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		return nil
	})
	if err != nil && isTransient(err) {
		return fmt.Errorf("%w: %v", repository.ErrUnavailable, err)
	}
	return err
}

func (s *Store) runTx(ctx context.Context, fn func(ctx context.Context, repos port.TxRepositories) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	repos := port.TxRepositories{
		Users:    NewUserRepository(s.pool).WithTx(tx),
		Tokens:   NewTokenRepository(s.pool).WithTx(tx),
		Sessions: NewSessionRepository(s.pool).WithTx(tx),
		Audit:    NewAuditRepository(s.pool).WithTx(tx),
	}

	if err := fn(ctx, repos); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// isTransient classifies failures worth one more attempt: serialization
// aborts, deadlocks, and pool exhaustion.
func isTransient(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.SerializationFailure,
			pgerrcode.DeadlockDetected,
			pgerrcode.TooManyConnections:
			return true
		}
		return false
	}

	return errors.Is(err, context.DeadlineExceeded)
}

// isUniqueViolation reports whether the error is a unique constraint
// rejection.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

var _ port.UnitOfWork = (*Store)(nil)
