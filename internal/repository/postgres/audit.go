package postgres

import (
	"context"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/arklim/social-platform-auth/internal/core/domain"
	"github.com/arklim/social-platform-auth/internal/core/port"
)

// AuditRepository appends rows to the audit_log table.
type AuditRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewAuditRepository constructs a PostgreSQL-backed audit repository.
func NewAuditRepository(db pgExecutor) *AuditRepository {
	return &AuditRepository{
		exec:    db,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository instance executing within the provided transaction.
func (r *AuditRepository) WithTx(tx pgx.Tx) *AuditRepository {
	if tx == nil {
		return r
	}
	return &AuditRepository{
		exec:    tx,
		builder: r.builder,
	}
}

// Append inserts an audit trail entry.
func (r *AuditRepository) Append(ctx context.Context, entry domain.AuditEntry) error {
	stmt, args, err := r.builder.Insert("auth.audit_log").
		Columns("user_id", "action", "ip", "created_at").
		Values(entry.UserID, entry.Action, entry.IP, entry.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert audit entry sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}

	return nil
}

var _ port.AuditRepository = (*AuditRepository)(nil)
