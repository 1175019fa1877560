package domain

import "time"

// AuditEntry records an account lifecycle action for the audit trail.
type AuditEntry struct {
	ID        int64
	UserID    *int64
	Action    string
	IP        *string
	CreatedAt time.Time
}

// Audit trail action names.
const (
	AuditActionSignup         = "signup"
	AuditActionResendCode     = "verification_resent"
	AuditActionLogin          = "login"
	AuditActionLogout         = "logout"
	AuditActionForceLogout    = "force_logout"
	AuditActionEmailVerified  = "email_verified"
	AuditActionResetRequested = "password_reset_requested"
	AuditActionPasswordReset  = "password_reset"
)
