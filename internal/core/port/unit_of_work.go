package port

import "context"

// TxRepositories groups repositories bound to a single open transaction.
type TxRepositories struct {
	Users    UserRepository
	Tokens   TokenRepository
	Sessions SessionRepository
	Audit    AuditRepository
}

// UnitOfWork runs fn inside one database transaction. The transaction is
// the atomicity boundary for every multi-step state change: fn either
// commits as a whole or leaves no trace. Implementations retry transient
// failures (serialization aborts, pool exhaustion) once before giving up
// with repository.ErrUnavailable.
type UnitOfWork interface {
	Execute(ctx context.Context, fn func(ctx context.Context, repos TxRepositories) error) error
}
