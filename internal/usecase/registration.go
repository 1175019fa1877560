package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arklim/social-platform-auth/internal/core/domain"
	"github.com/arklim/social-platform-auth/internal/core/port"
	"github.com/arklim/social-platform-auth/internal/infra/security"
	"github.com/arklim/social-platform-auth/internal/repository"
)

const defaultVerificationTTL = 10 * time.Minute

// RegistrationService handles account creation and email verification.
type RegistrationService struct {
	uow             port.UnitOfWork
	users           port.UserRepository
	tokens          port.TokenRepository
	hasher          port.PasswordHasher
	policy          port.PasswordPolicyValidator
	issuer          *security.TokenIssuer
	mailer          port.MailSender
	events          port.EventPublisher
	logger          *zap.Logger
	now             func() time.Time
	verificationTTL time.Duration
	verifyBaseURL   string
}

// RegistrationConfig carries the wiring for NewRegistrationService.
type RegistrationConfig struct {
	UnitOfWork      port.UnitOfWork
	Users           port.UserRepository
	Tokens          port.TokenRepository
	Hasher          port.PasswordHasher
	Policy          port.PasswordPolicyValidator
	Issuer          *security.TokenIssuer
	Mailer          port.MailSender
	Events          port.EventPublisher
	Logger          *zap.Logger
	VerificationTTL time.Duration
	VerifyBaseURL   string
}

// NewRegistrationService constructs a registration service.
func NewRegistrationService(cfg RegistrationConfig) (*RegistrationService, error) {
	if cfg.UnitOfWork == nil {
		return nil, fmt.Errorf("unit of work is required")
	}
	if cfg.Users == nil || cfg.Tokens == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if cfg.Hasher == nil {
		return nil, fmt.Errorf("password hasher is required")
	}
	if cfg.Issuer == nil {
		return nil, fmt.Errorf("token issuer is required")
	}

	ttl := cfg.VerificationTTL
	if ttl <= 0 {
		ttl = defaultVerificationTTL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RegistrationService{
		uow:             cfg.UnitOfWork,
		users:           cfg.Users,
		tokens:          cfg.Tokens,
		hasher:          cfg.Hasher,
		policy:          cfg.Policy,
		issuer:          cfg.Issuer,
		mailer:          cfg.Mailer,
		events:          cfg.Events,
		logger:          logger,
		now:             func() time.Time { return time.Now().UTC() },
		verificationTTL: ttl,
		verifyBaseURL:   strings.TrimRight(cfg.VerifyBaseURL, "/"),
	}, nil
}

// RegisterInput captures a signup request.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	IP       *string
}

// RegisterResult reports the created account and whether the verification
// email actually went out. EmailDelivered=false is advisory: the account
// exists either way.
type RegisterResult struct {
	User           domain.User
	EmailDelivered bool
	ExpiresAt      time.Time
}

// Register creates the account and its first verification record in one
// transaction, then delivers the verification email after commit.
func (s *RegistrationService) Register(ctx context.Context, input RegisterInput) (*RegisterResult, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.TrimSpace(input.Email)

	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrValidation)
	}
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrValidation)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: malformed email address", ErrValidation)
	}
	if input.Password == "" {
		return nil, fmt.Errorf("%w: password is required", ErrValidation)
	}
	if s.policy != nil {
		if err := s.policy.Validate(input.Password, email, username); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPasswordPolicyViolation, err)
		}
	}

	passwordHash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	expiresAt := now.Add(s.verificationTTL)

	token, err := s.issuer.Issue(security.TokenOptions{
		Subject:  email,
		Purpose:  security.TokenPurposeVerification,
		TTL:      s.verificationTTL,
		IssuedAt: now,
	})
	if err != nil {
		return nil, fmt.Errorf("issue verification token: %w", err)
	}

	user := domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.uow.Execute(ctx, func(ctx context.Context, repos port.TxRepositories) error {
		userID, err := repos.Users.Create(ctx, user)
		if err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrEmailTaken
			}
			return fmt.Errorf("create user: %w", err)
		}
		user.ID = userID

		rowExpiry := expiresAt
		verification := domain.EmailVerification{
			UserID:    userID,
			Email:     email,
			CodeHash:  security.HashToken(token),
			ExpiresAt: &rowExpiry,
			CreatedAt: now,
		}
		if _, err := repos.Tokens.CreateVerification(ctx, verification); err != nil {
			return fmt.Errorf("create verification: %w", err)
		}

		return repos.Audit.Append(ctx, domain.AuditEntry{
			UserID:    &user.ID,
			Action:    domain.AuditActionSignup,
			IP:        input.IP,
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.publishRegistered(ctx, user, now)
	delivered := s.deliverVerificationMail(ctx, user, token, expiresAt)

	return &RegisterResult{User: user, EmailDelivered: delivered, ExpiresAt: expiresAt}, nil
}

// ResendResult reports the outcome of reissuing a verification code.
type ResendResult struct {
	EmailDelivered bool
	ExpiresAt      time.Time
}

// ResendVerification issues a fresh verification record for an unverified
// account inside one transaction, like every other state change. Previous
// records stay untouched; the table is append-only.
func (s *RegistrationService) ResendVerification(ctx context.Context, email string, ip *string) (*ResendResult, error) {
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
	if user.IsVerified {
		return nil, ErrAlreadyVerified
	}

	now := s.now()
	expiresAt := now.Add(s.verificationTTL)

	token, err := s.issuer.Issue(security.TokenOptions{
		Subject:  email,
		Purpose:  security.TokenPurposeVerification,
		TTL:      s.verificationTTL,
		IssuedAt: now,
	})
	if err != nil {
		return nil, fmt.Errorf("issue verification token: %w", err)
	}

	rowExpiry := expiresAt
	verification := domain.EmailVerification{
		UserID:    user.ID,
		Email:     email,
		CodeHash:  security.HashToken(token),
		ExpiresAt: &rowExpiry,
		CreatedAt: now,
	}

	err = s.uow.Execute(ctx, func(ctx context.Context, repos port.TxRepositories) error {
		if _, err := repos.Tokens.CreateVerification(ctx, verification); err != nil {
			return fmt.Errorf("create verification: %w", err)
		}

		return repos.Audit.Append(ctx, domain.AuditEntry{
			UserID:    &user.ID,
			Action:    domain.AuditActionResendCode,
			IP:        ip,
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	delivered := s.deliverVerificationMail(ctx, *user, token, expiresAt)
	return &ResendResult{EmailDelivered: delivered, ExpiresAt: expiresAt}, nil
}

// VerifyEmail consumes a verification token and marks the account verified.
// Expiry is checked before the used flag, so a token that is both expired
// and consumed always reports expired.
func (s *RegistrationService) VerifyEmail(ctx context.Context, token string, ip *string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("%w: token is required", ErrValidation)
	}

	if _, err := s.issuer.Parse(token, security.TokenPurposeVerification); err != nil {
		if errors.Is(err, security.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	verification, err := s.tokens.GetVerificationByHash(ctx, security.HashToken(token))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTokenInvalid
		}
		return fmt.Errorf("load verification: %w", err)
	}

	now := s.now()
	if verification.IsExpired(now) {
		return ErrTokenExpired
	}
	if verification.IsUsed {
		return ErrTokenUsed
	}

	var user *domain.User
	err = s.uow.Execute(ctx, func(ctx context.Context, repos port.TxRepositories) error {
		if err := repos.Tokens.ConsumeVerification(ctx, verification.ID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				// A concurrent verify got here first.
				return ErrTokenUsed
			}
			return fmt.Errorf("consume verification: %w", err)
		}

		if err := repos.Users.MarkVerified(ctx, verification.UserID, now); err != nil {
			return fmt.Errorf("mark verified: %w", err)
		}

		loaded, err := repos.Users.GetByID(ctx, verification.UserID)
		if err != nil {
			return fmt.Errorf("load user: %w", err)
		}
		user = loaded

		return repos.Audit.Append(ctx, domain.AuditEntry{
			UserID:    &verification.UserID,
			Action:    domain.AuditActionEmailVerified,
			IP:        ip,
			CreatedAt: now,
		})
	})
	if err != nil {
		return err
	}

	if s.events != nil && user != nil {
		event := domain.EmailVerifiedEvent{
			EventID:    uuid.NewString(),
			UserID:     user.ID,
			Email:      user.Email,
			VerifiedAt: now,
		}
		if err := s.events.PublishEmailVerified(ctx, event); err != nil {
			s.logger.Warn("publish email verified event failed", zap.Error(err))
		}
	}

	return nil
}

func (s *RegistrationService) publishRegistered(ctx context.Context, user domain.User, at time.Time) {
	if s.events == nil {
		return
	}
	event := domain.UserRegisteredEvent{
		EventID:      uuid.NewString(),
		UserID:       user.ID,
		Username:     user.Username,
		Email:        user.Email,
		RegisteredAt: at,
	}
	if err := s.events.PublishUserRegistered(ctx, event); err != nil {
		s.logger.Warn("publish user registered event failed", zap.Error(err))
	}
}

func (s *RegistrationService) deliverVerificationMail(ctx context.Context, user domain.User, token string, expiresAt time.Time) bool {
	if s.mailer == nil {
		return false
	}

	link := fmt.Sprintf("%s/verify/email?token=%s", s.verifyBaseURL, token)
	msg := port.MailMessage{
		To:      user.Email,
		Subject: "Verify your email address",
		TextBody: fmt.Sprintf(
			"Hi %s,\n\nConfirm your email address by opening the link below:\n\n%s\n\nThe link expires at %s.\n",
			user.Username, link, expiresAt.Format(time.RFC1123),
		),
		HTMLBody: fmt.Sprintf(
			`<p>Hi %s,</p><p>Confirm your email address by clicking <a href=%q>this link</a>.</p><p>The link expires at %s.</p>`,
			user.Username, link, expiresAt.Format(time.RFC1123),
		),
	}

	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.Warn("verification email delivery failed",
			zap.Int64("user_id", user.ID),
			zap.Error(err),
		)
		return false
	}
	return true
}
