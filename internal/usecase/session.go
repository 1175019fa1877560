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

const defaultSessionTTL = 30 * time.Minute

// SessionService is the single entry point for opening, validating, and
// closing login sessions.
type SessionService struct {
	uow        port.UnitOfWork
	users      port.UserRepository
	sessions   port.SessionRepository
	hasher     port.PasswordHasher
	issuer     *security.TokenIssuer
	events     port.EventPublisher
	logger     *zap.Logger
	now        func() time.Time
	sessionTTL time.Duration
}

// SessionConfig carries the wiring for NewSessionService.
type SessionConfig struct {
	UnitOfWork port.UnitOfWork
	Users      port.UserRepository
	Sessions   port.SessionRepository
	Hasher     port.PasswordHasher
	Issuer     *security.TokenIssuer
	Events     port.EventPublisher
	Logger     *zap.Logger
	SessionTTL time.Duration
}

// NewSessionService constructs a session service.
func NewSessionService(cfg SessionConfig) (*SessionService, error) {
	if cfg.UnitOfWork == nil {
		return nil, fmt.Errorf("unit of work is required")
	}
	if cfg.Users == nil || cfg.Sessions == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if cfg.Hasher == nil {
		return nil, fmt.Errorf("password hasher is required")
	}
	if cfg.Issuer == nil {
		return nil, fmt.Errorf("token issuer is required")
	}

	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SessionService{
		uow:        cfg.UnitOfWork,
		users:      cfg.Users,
		sessions:   cfg.Sessions,
		hasher:     cfg.Hasher,
		issuer:     cfg.Issuer,
		events:     cfg.Events,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
		sessionTTL: ttl,
	}, nil
}

// LoginInput captures a login request.
type LoginInput struct {
	Email    string
	Password string
	IP       *string
}

// LoginResult carries the opened session and its bearer token.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Session   domain.Session
}

// Login verifies credentials and opens the user's single session. The
// session insert relies on the partial unique index: two racing logins
// both reach the insert and exactly one commits, so there is no
// check-then-act window.
func (s *SessionService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	email := strings.TrimSpace(input.Email)
	if email == "" || input.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrValidation)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	if !user.CanLogin() {
		return nil, ErrInvalidCredentials
	}

	ok, err := s.hasher.Verify(input.Password, user.PasswordHash)
	if err != nil {
		s.logger.Warn("stored password hash unreadable", zap.Int64("user_id", user.ID), zap.Error(err))
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	if !user.IsVerified {
		return nil, ErrNotVerified
	}

	now := s.now()
	expiresAt := now.Add(s.sessionTTL)

	var (
		session domain.Session
		token   string
	)

	err = s.uow.Execute(ctx, func(ctx context.Context, repos port.TxRepositories) error {
		// Expiry is passive: a session past its deadline still holds
		// is_active=true if the owner never logged out. Reap it first or
		// the partial unique index rejects this login forever.
		if _, err := repos.Sessions.DeactivateExpired(ctx, user.ID, now); err != nil {
			return fmt.Errorf("deactivate expired sessions: %w", err)
		}

		session = domain.Session{
			UserID:    user.ID,
			IsActive:  true,
			CreatedAt: now,
			ExpiresAt: expiresAt,
		}

		sessionID, err := repos.Sessions.Create(ctx, session)
		if err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrSessionActive
			}
			return fmt.Errorf("create session: %w", err)
		}
		session.ID = sessionID

		token, err = s.issuer.Issue(security.TokenOptions{
			UserID:    user.ID,
			SessionID: sessionID,
			Purpose:   security.TokenPurposeAccess,
			TTL:       s.sessionTTL,
			IssuedAt:  now,
		})
		if err != nil {
			return fmt.Errorf("issue access token: %w", err)
		}

		hash := security.HashToken(token)
		if err := repos.Sessions.SetTokenHash(ctx, sessionID, hash); err != nil {
			return fmt.Errorf("bind token to session: %w", err)
		}
		session.TokenHash = hash

		return repos.Audit.Append(ctx, domain.AuditEntry{
			UserID:    &user.ID,
			Action:    domain.AuditActionLogin,
			IP:        input.IP,
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	if s.events != nil {
		event := domain.SessionOpenedEvent{
			EventID:   uuid.NewString(),
			SessionID: session.ID,
			UserID:    user.ID,
			OpenedAt:  now,
			ExpiresAt: expiresAt,
		}
		if err := s.events.PublishSessionOpened(ctx, event); err != nil {
			s.logger.Warn("publish session opened event failed", zap.Error(err))
		}
	}

	return &LoginResult{Token: token, ExpiresAt: expiresAt, Session: session}, nil
}

// Logout closes the caller's own session, identified by the verified token
// claims. It never touches other sessions of the same user.
func (s *SessionService) Logout(ctx context.Context, identity domain.AuthenticatedIdentity, ip *string) error {
	if identity.UserID == 0 || identity.SessionID == 0 {
		return fmt.Errorf("%w: identity is incomplete", ErrValidation)
	}

	now := s.now()
	err := s.uow.Execute(ctx, func(ctx context.Context, repos port.TxRepositories) error {
		if err := repos.Sessions.Deactivate(ctx, identity.SessionID, identity.UserID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrNoActiveSession
			}
			return fmt.Errorf("deactivate session: %w", err)
		}

		return repos.Audit.Append(ctx, domain.AuditEntry{
			UserID:    &identity.UserID,
			Action:    domain.AuditActionLogout,
			IP:        ip,
			CreatedAt: now,
		})
	})
	if err != nil {
		return err
	}

	s.publishRevoked(ctx, identity.SessionID, identity.UserID, now, "self", "logout")
	return nil
}

// ForceLogout closes the active session of an arbitrary user. The admin
// check lives here, in the operation itself, so every caller goes through
// it no matter which transport invoked the service.
func (s *SessionService) ForceLogout(ctx context.Context, identity domain.AuthenticatedIdentity, targetUserID int64, ip *string) error {
	if !identity.IsAdmin {
		return ErrPermissionDenied
	}
	if targetUserID <= 0 {
		return fmt.Errorf("%w: target user id is required", ErrValidation)
	}

	if _, err := s.users.GetByID(ctx, targetUserID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("load user: %w", err)
	}

	now := s.now()
	var closed int

	err := s.uow.Execute(ctx, func(ctx context.Context, repos port.TxRepositories) error {
		n, err := repos.Sessions.DeactivateForUser(ctx, targetUserID)
		if err != nil {
			return fmt.Errorf("deactivate user sessions: %w", err)
		}
		if n == 0 {
			return ErrNoActiveSession
		}
		closed = n

		return repos.Audit.Append(ctx, domain.AuditEntry{
			UserID:    &targetUserID,
			Action:    domain.AuditActionForceLogout,
			IP:        ip,
			CreatedAt: now,
		})
	})
	if err != nil {
		return err
	}

	s.logger.Info("force logout",
		zap.Int64("admin_user_id", identity.UserID),
		zap.Int64("target_user_id", targetUserID),
		zap.Int("sessions_closed", closed),
	)
	s.publishRevoked(ctx, 0, targetUserID, now, "admin", "force_logout")
	return nil
}

// Authenticate resolves a bearer token into an AuthenticatedIdentity. The
// session row must still be live: expiry is passive, so the check happens
// here on every authorized request rather than in a background sweeper.
func (s *SessionService) Authenticate(ctx context.Context, token string) (*domain.AuthenticatedIdentity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrTokenInvalid
	}

	claims, err := s.issuer.Parse(token, security.TokenPurposeAccess)
	if err != nil {
		if errors.Is(err, security.ErrTokenExpired) {
			return nil, ErrSessionExpired
		}
		return nil, ErrTokenInvalid
	}

	session, err := s.sessions.GetByTokenHash(ctx, security.HashToken(token))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, fmt.Errorf("load session: %w", err)
	}

	if session.UserID != claims.UserID || session.ID != claims.SessionID {
		return nil, ErrTokenInvalid
	}
	if !session.IsLive(s.now()) {
		return nil, ErrSessionExpired
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !user.IsActive {
		return nil, ErrSessionExpired
	}

	return &domain.AuthenticatedIdentity{
		UserID:    user.ID,
		SessionID: session.ID,
		Email:     user.Email,
		IsAdmin:   user.IsAdmin,
	}, nil
}

// GetProfile returns the account behind an authenticated identity.
func (s *SessionService) GetProfile(ctx context.Context, identity domain.AuthenticatedIdentity) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

func (s *SessionService) publishRevoked(ctx context.Context, sessionID, userID int64, at time.Time, revokedBy, reason string) {
	if s.events == nil {
		return
	}
	event := domain.SessionRevokedEvent{
		EventID:   uuid.NewString(),
		SessionID: sessionID,
		UserID:    userID,
		RevokedAt: at,
		RevokedBy: revokedBy,
		Reason:    reason,
	}
	if err := s.events.PublishSessionRevoked(ctx, event); err != nil {
		s.logger.Warn("publish session revoked event failed", zap.Error(err))
	}
}
