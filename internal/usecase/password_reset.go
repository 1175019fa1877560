package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arklim/social-platform-auth/internal/core/domain"
	"github.com/arklim/social-platform-auth/internal/core/port"
	"github.com/arklim/social-platform-auth/internal/infra/security"
	"github.com/arklim/social-platform-auth/internal/repository"
)

const (
	defaultResetTTL      = 10 * time.Minute
	resetTokenByteLength = 32
)

// PasswordResetService coordinates password reset initiation and completion.
type PasswordResetService struct {
	uow      port.UnitOfWork
	users    port.UserRepository
	tokens   port.TokenRepository
	hasher   port.PasswordHasher
	policy   port.PasswordPolicyValidator
	mailer   port.MailSender
	events   port.EventPublisher
	logger   *zap.Logger
	now      func() time.Time
	resetTTL time.Duration
}

// PasswordResetConfig carries the wiring for NewPasswordResetService.
type PasswordResetConfig struct {
	UnitOfWork port.UnitOfWork
	Users      port.UserRepository
	Tokens     port.TokenRepository
	Hasher     port.PasswordHasher
	Policy     port.PasswordPolicyValidator
	Mailer     port.MailSender
	Events     port.EventPublisher
	Logger     *zap.Logger
	ResetTTL   time.Duration
}

// NewPasswordResetService constructs a password reset service.
func NewPasswordResetService(cfg PasswordResetConfig) (*PasswordResetService, error) {
	if cfg.UnitOfWork == nil {
		return nil, fmt.Errorf("unit of work is required")
	}
	if cfg.Users == nil || cfg.Tokens == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if cfg.Hasher == nil {
		return nil, fmt.Errorf("password hasher is required")
	}

	ttl := cfg.ResetTTL
	if ttl <= 0 {
		ttl = defaultResetTTL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &PasswordResetService{
		uow:      cfg.UnitOfWork,
		users:    cfg.Users,
		tokens:   cfg.Tokens,
		hasher:   cfg.Hasher,
		policy:   cfg.Policy,
		mailer:   cfg.Mailer,
		events:   cfg.Events,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		resetTTL: ttl,
	}, nil
}

// RequestResetResult reports a created reset request. EmailDelivered=false
// means the token row exists but the mail bounced; callers surface that as
// a degraded success, never a failure.
type RequestResetResult struct {
	EmailDelivered bool
	ExpiresAt      time.Time
}

// RequestReset creates a single-use reset token for the account and mails
// it out. The raw token leaves the process only inside the email; the
// database sees its hash.
func (s *PasswordResetService) RequestReset(ctx context.Context, email string, ip *string) (*RequestResetResult, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrValidation)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	token, err := security.GenerateSecureToken(resetTokenByteLength)
	if err != nil {
		return nil, fmt.Errorf("generate reset token: %w", err)
	}

	now := s.now()
	expiresAt := now.Add(s.resetTTL)

	err = s.uow.Execute(ctx, func(ctx context.Context, repos port.TxRepositories) error {
		reset := domain.PasswordReset{
			UserID:    user.ID,
			TokenHash: security.HashToken(token),
			ExpiresAt: expiresAt,
			CreatedAt: now,
		}
		if _, err := repos.Tokens.CreatePasswordReset(ctx, reset); err != nil {
			return fmt.Errorf("create password reset: %w", err)
		}

		return repos.Audit.Append(ctx, domain.AuditEntry{
			UserID:    &user.ID,
			Action:    domain.AuditActionResetRequested,
			IP:        ip,
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	if s.events != nil {
		event := domain.PasswordResetRequestedEvent{
			EventID:     uuid.NewString(),
			UserID:      user.ID,
			RequestedAt: now,
			ExpiresAt:   expiresAt,
		}
		if err := s.events.PublishPasswordResetRequested(ctx, event); err != nil {
			s.logger.Warn("publish password reset requested event failed", zap.Error(err))
		}
	}

	delivered := s.deliverResetMail(ctx, *user, token, expiresAt)
	return &RequestResetResult{EmailDelivered: delivered, ExpiresAt: expiresAt}, nil
}

// ConfirmReset consumes the reset token and rewrites the password inside
// one transaction: either both happen or neither does. Expiry is checked
// before the used flag, so an expired replay reports expired.
func (s *PasswordResetService) ConfirmReset(ctx context.Context, token, newPassword string, ip *string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("%w: token is required", ErrValidation)
	}
	if newPassword == "" {
		return fmt.Errorf("%w: new password is required", ErrValidation)
	}

	reset, err := s.tokens.GetPasswordResetByHash(ctx, security.HashToken(token))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTokenInvalid
		}
		return fmt.Errorf("load password reset: %w", err)
	}

	now := s.now()
	if reset.IsExpired(now) {
		return ErrTokenExpired
	}
	if reset.IsUsed {
		return ErrTokenUsed
	}

	user, err := s.users.GetByID(ctx, reset.UserID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}

	if s.policy != nil {
		if err := s.policy.Validate(newPassword, user.Email, user.Username); err != nil {
			return fmt.Errorf("%w: %v", ErrPasswordPolicyViolation, err)
		}
	}

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	err = s.uow.Execute(ctx, func(ctx context.Context, repos port.TxRepositories) error {
		if err := repos.Tokens.ConsumePasswordReset(ctx, reset.ID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				// A concurrent confirm consumed it first.
				return ErrTokenUsed
			}
			return fmt.Errorf("consume password reset: %w", err)
		}

		if err := repos.Users.UpdatePassword(ctx, reset.UserID, passwordHash, now); err != nil {
			return fmt.Errorf("update password: %w", err)
		}

		return repos.Audit.Append(ctx, domain.AuditEntry{
			UserID:    &reset.UserID,
			Action:    domain.AuditActionPasswordReset,
			IP:        ip,
			CreatedAt: now,
		})
	})
	if err != nil {
		return err
	}

	if s.events != nil {
		event := domain.PasswordChangedEvent{
			EventID:   uuid.NewString(),
			UserID:    reset.UserID,
			ChangedAt: now,
		}
		if err := s.events.PublishPasswordChanged(ctx, event); err != nil {
			s.logger.Warn("publish password changed event failed", zap.Error(err))
		}
	}

	return nil
}

func (s *PasswordResetService) deliverResetMail(ctx context.Context, user domain.User, token string, expiresAt time.Time) bool {
	if s.mailer == nil {
		return false
	}

	msg := port.MailMessage{
		To:      user.Email,
		Subject: "Password reset requested",
		TextBody: fmt.Sprintf(
			"Hi %s,\n\nUse the following token to reset your password:\n\n%s\n\nThe token expires at %s. If you did not request this, ignore this message.\n",
			user.Username, token, expiresAt.Format(time.RFC1123),
		),
		HTMLBody: fmt.Sprintf(
			`<p>Hi %s,</p><p>Use the following token to reset your password:</p><pre>%s</pre><p>The token expires at %s. If you did not request this, ignore this message.</p>`,
			user.Username, token, expiresAt.Format(time.RFC1123),
		),
	}

	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.Warn("password reset email delivery failed",
			zap.Int64("user_id", user.ID),
			zap.Error(err),
		)
		return false
	}
	return true
}
