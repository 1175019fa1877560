package port

import (
	"context"

	"github.com/arklim/social-platform-auth/internal/core/domain"
)

// AuditRepository appends to the account lifecycle audit trail.
type AuditRepository interface {
	Append(ctx context.Context, entry domain.AuditEntry) error
}
