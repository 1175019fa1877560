package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/arklim/social-platform-auth/internal/core/domain"
	"github.com/arklim/social-platform-auth/internal/core/port"
	"github.com/arklim/social-platform-auth/internal/infra/security"
	"github.com/arklim/social-platform-auth/internal/repository"
)

type sessionFixture struct {
	service  *SessionService
	users    *mockUserRepository
	sessions *mockSessionRepository
	audit    *mockAuditRepository
	events   *mockEventPublisher
	issuer   *security.TokenIssuer
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()

	issuer, err := security.NewTokenIssuer("0123456789abcdef0123456789abcdef", "social-platform-auth")
	if err != nil {
		t.Fatalf("NewTokenIssuer returned error: %v", err)
	}

	users := &mockUserRepository{}
	sessions := &mockSessionRepository{createResult: 11}
	audit := &mockAuditRepository{}
	events := &mockEventPublisher{}

	uow := &mockUnitOfWork{repos: port.TxRepositories{
		Users:    users,
		Tokens:   &mockTokenRepository{},
		Sessions: sessions,
		Audit:    audit,
	}}

	service, err := NewSessionService(SessionConfig{
		UnitOfWork: uow,
		Users:      users,
		Sessions:   sessions,
		Hasher:     &stubHasher{},
		Issuer:     issuer,
		Events:     events,
		Logger:     zaptest.NewLogger(t),
		SessionTTL: 30 * time.Minute,
	})
	if err != nil {
		t.Fatalf("NewSessionService returned error: %v", err)
	}

	return &sessionFixture{
		service:  service,
		users:    users,
		sessions: sessions,
		audit:    audit,
		events:   events,
		issuer:   issuer,
	}
}

func verifiedUser() *domain.User {
	return &domain.User{
		ID:           1,
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "hashed:correct-password",
		IsVerified:   true,
		IsActive:     true,
	}
}

func TestLoginSuccess(t *testing.T) {
	f := newSessionFixture(t)
	f.users.getByEmailResult = verifiedUser()

	result, err := f.service.Login(context.Background(), LoginInput{
		Email:    "alice@example.com",
		Password: "correct-password",
	})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	claims, err := f.issuer.Parse(result.Token, security.TokenPurposeAccess)
	if err != nil {
		t.Fatalf("issued token failed to parse: %v", err)
	}
	if claims.UserID != 1 || claims.SessionID != 11 {
		t.Fatalf("unexpected claims uid=%d sid=%d", claims.UserID, claims.SessionID)
	}

	if f.sessions.setTokenHashID != 11 {
		t.Fatalf("token hash bound to wrong session: %d", f.sessions.setTokenHashID)
	}
	if f.sessions.setTokenHashValue != security.HashToken(result.Token) {
		t.Fatal("stored hash must match the issued token")
	}
	if f.audit.appendCalls != 1 || f.audit.entries[0].Action != domain.AuditActionLogin {
		t.Fatal("expected a login audit entry")
	}
	if len(f.events.opened) != 1 {
		t.Fatalf("expected one session opened event, got %d", len(f.events.opened))
	}
}

func TestLoginUnknownEmail(t *testing.T) {
	f := newSessionFixture(t)
	f.users.getByEmailErr = repository.ErrNotFound

	_, err := f.service.Login(context.Background(), LoginInput{
		Email:    "nobody@example.com",
		Password: "whatever",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	f := newSessionFixture(t)
	f.users.getByEmailResult = verifiedUser()

	_, err := f.service.Login(context.Background(), LoginInput{
		Email:    "alice@example.com",
		Password: "wrong-password",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if f.sessions.createCalls != 0 {
		t.Fatal("no session must be created for bad credentials")
	}
}

func TestLoginErrorsAreUniform(t *testing.T) {
	// Unknown email and wrong password must be indistinguishable.
	f := newSessionFixture(t)

	f.users.getByEmailErr = repository.ErrNotFound
	_, unknownErr := f.service.Login(context.Background(), LoginInput{
		Email: "nobody@example.com", Password: "x",
	})

	f.users.getByEmailErr = nil
	f.users.getByEmailResult = verifiedUser()
	_, wrongErr := f.service.Login(context.Background(), LoginInput{
		Email: "alice@example.com", Password: "wrong",
	})

	if !errors.Is(unknownErr, ErrInvalidCredentials) || !errors.Is(wrongErr, ErrInvalidCredentials) {
		t.Fatalf("both failures must map to ErrInvalidCredentials: %v / %v", unknownErr, wrongErr)
	}
}

func TestLoginUnverifiedAccount(t *testing.T) {
	f := newSessionFixture(t)
	user := verifiedUser()
	user.IsVerified = false
	f.users.getByEmailResult = user

	_, err := f.service.Login(context.Background(), LoginInput{
		Email:    "alice@example.com",
		Password: "correct-password",
	})
	if !errors.Is(err, ErrNotVerified) {
		t.Fatalf("expected ErrNotVerified, got %v", err)
	}
}

func TestLoginSecondSessionRejected(t *testing.T) {
	f := newSessionFixture(t)
	f.users.getByEmailResult = verifiedUser()
	f.sessions.createErr = repository.ErrConflict

	_, err := f.service.Login(context.Background(), LoginInput{
		Email:    "alice@example.com",
		Password: "correct-password",
	})
	if !errors.Is(err, ErrSessionActive) {
		t.Fatalf("expected ErrSessionActive, got %v", err)
	}
}

// indexedSessionRepo mimics the database's partial unique index: any
// insert fails with ErrConflict while an is_active row exists for the
// user, no matter how stale that row is.
type indexedSessionRepo struct {
	rows   map[int64]domain.Session
	nextID int64
}

func newIndexedSessionRepo() *indexedSessionRepo {
	return &indexedSessionRepo{rows: make(map[int64]domain.Session)}
}

func (r *indexedSessionRepo) Create(_ context.Context, session domain.Session) (int64, error) {
	for _, existing := range r.rows {
		if existing.UserID == session.UserID && existing.IsActive {
			return 0, repository.ErrConflict
		}
	}
	r.nextID++
	session.ID = r.nextID
	r.rows[session.ID] = session
	return session.ID, nil
}

func (r *indexedSessionRepo) GetByID(_ context.Context, id int64) (*domain.Session, error) {
	session, ok := r.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &session, nil
}

func (r *indexedSessionRepo) GetByTokenHash(_ context.Context, hash string) (*domain.Session, error) {
	for _, session := range r.rows {
		if session.TokenHash == hash {
			found := session
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *indexedSessionRepo) SetTokenHash(_ context.Context, id int64, hash string) error {
	session, ok := r.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	session.TokenHash = hash
	r.rows[id] = session
	return nil
}

func (r *indexedSessionRepo) Deactivate(_ context.Context, id int64, userID int64) error {
	session, ok := r.rows[id]
	if !ok || session.UserID != userID || !session.IsActive {
		return repository.ErrNotFound
	}
	session.IsActive = false
	r.rows[id] = session
	return nil
}

func (r *indexedSessionRepo) DeactivateForUser(_ context.Context, userID int64) (int, error) {
	count := 0
	for id, session := range r.rows {
		if session.UserID == userID && session.IsActive {
			session.IsActive = false
			r.rows[id] = session
			count++
		}
	}
	return count, nil
}

func (r *indexedSessionRepo) DeactivateExpired(_ context.Context, userID int64, at time.Time) (int, error) {
	count := 0
	for id, session := range r.rows {
		if session.UserID == userID && session.IsActive && !session.ExpiresAt.After(at) {
			session.IsActive = false
			r.rows[id] = session
			count++
		}
	}
	return count, nil
}

func TestLoginAfterPassiveExpiry(t *testing.T) {
	// An abandoned session keeps is_active=true past its deadline; the
	// login transaction must reap it or the user is locked out for good.
	issuer, err := security.NewTokenIssuer("0123456789abcdef0123456789abcdef", "social-platform-auth")
	if err != nil {
		t.Fatalf("NewTokenIssuer returned error: %v", err)
	}

	users := &mockUserRepository{getByEmailResult: verifiedUser()}
	sessions := newIndexedSessionRepo()
	uow := &mockUnitOfWork{repos: port.TxRepositories{
		Users:    users,
		Tokens:   &mockTokenRepository{},
		Sessions: sessions,
		Audit:    &mockAuditRepository{},
	}}

	service, err := NewSessionService(SessionConfig{
		UnitOfWork: uow,
		Users:      users,
		Sessions:   sessions,
		Hasher:     &stubHasher{},
		Issuer:     issuer,
		Events:     &mockEventPublisher{},
		Logger:     zaptest.NewLogger(t),
		SessionTTL: 30 * time.Minute,
	})
	if err != nil {
		t.Fatalf("NewSessionService returned error: %v", err)
	}

	current := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return current }

	input := LoginInput{Email: "alice@example.com", Password: "correct-password"}

	first, err := service.Login(context.Background(), input)
	if err != nil {
		t.Fatalf("first login returned error: %v", err)
	}

	// No logout; the session ages past its TTL.
	current = current.Add(31 * time.Minute)

	second, err := service.Login(context.Background(), input)
	if err != nil {
		t.Fatalf("login after passive expiry returned error: %v", err)
	}
	if second.Session.ID == first.Session.ID {
		t.Fatal("expected a fresh session row")
	}

	old, err := sessions.GetByID(context.Background(), first.Session.ID)
	if err != nil {
		t.Fatalf("load first session: %v", err)
	}
	if old.IsActive {
		t.Fatal("expired session must be deactivated by the next login")
	}

	// A genuinely live session still blocks a second login.
	if _, err := service.Login(context.Background(), input); !errors.Is(err, ErrSessionActive) {
		t.Fatalf("expected ErrSessionActive while a live session exists, got %v", err)
	}
}

func TestLoginReapsOnlyExpiredRows(t *testing.T) {
	f := newSessionFixture(t)
	f.users.getByEmailResult = verifiedUser()

	if _, err := f.service.Login(context.Background(), LoginInput{
		Email:    "alice@example.com",
		Password: "correct-password",
	}); err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	if f.sessions.deactivateExpiredCalls != 1 {
		t.Fatalf("expected one expired-session reap, got %d", f.sessions.deactivateExpiredCalls)
	}
	if f.sessions.deactivateExpiredUserID != 1 {
		t.Fatalf("reap scoped to wrong user: %d", f.sessions.deactivateExpiredUserID)
	}
	if f.sessions.deactivateForUserCalls != 0 {
		t.Fatal("login must not close live sessions")
	}
}

func TestLoginUnverifiedWrongPassword(t *testing.T) {
	// Credentials are checked before the verified flag, so a wrong
	// password on an unverified account stays indistinguishable from any
	// other bad login.
	f := newSessionFixture(t)
	user := verifiedUser()
	user.IsVerified = false
	f.users.getByEmailResult = user

	_, err := f.service.Login(context.Background(), LoginInput{
		Email:    "alice@example.com",
		Password: "wrong-password",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLogoutSuccess(t *testing.T) {
	f := newSessionFixture(t)

	identity := domain.AuthenticatedIdentity{UserID: 1, SessionID: 11}
	if err := f.service.Logout(context.Background(), identity, nil); err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}

	if f.sessions.deactivateSessionID != 11 || f.sessions.deactivateUserID != 1 {
		t.Fatal("deactivation must be scoped to the caller's own session")
	}
	if len(f.events.revoked) != 1 {
		t.Fatalf("expected one session revoked event, got %d", len(f.events.revoked))
	}
}

func TestLogoutNoActiveSession(t *testing.T) {
	f := newSessionFixture(t)
	f.sessions.deactivateErr = repository.ErrNotFound

	identity := domain.AuthenticatedIdentity{UserID: 1, SessionID: 11}
	if err := f.service.Logout(context.Background(), identity, nil); !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("expected ErrNoActiveSession, got %v", err)
	}
}

func TestForceLogoutRequiresAdmin(t *testing.T) {
	f := newSessionFixture(t)

	identity := domain.AuthenticatedIdentity{UserID: 1, SessionID: 11}
	err := f.service.ForceLogout(context.Background(), identity, 2, nil)
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	if f.sessions.deactivateForUserCalls != 0 {
		t.Fatal("no session must be touched without the admin flag")
	}
}

func TestForceLogoutSuccess(t *testing.T) {
	f := newSessionFixture(t)
	f.users.getByIDResult = &domain.User{ID: 2, Email: "bob@example.com", IsActive: true}
	f.sessions.deactivateForUserResult = 1

	identity := domain.AuthenticatedIdentity{UserID: 1, SessionID: 11, IsAdmin: true}
	if err := f.service.ForceLogout(context.Background(), identity, 2, nil); err != nil {
		t.Fatalf("ForceLogout returned error: %v", err)
	}

	if f.sessions.deactivateForUserLastID != 2 {
		t.Fatalf("unexpected target user: %d", f.sessions.deactivateForUserLastID)
	}
	if f.audit.appendCalls != 1 || f.audit.entries[0].Action != domain.AuditActionForceLogout {
		t.Fatal("expected a force-logout audit entry")
	}
}

func TestForceLogoutNoActiveSession(t *testing.T) {
	f := newSessionFixture(t)
	f.users.getByIDResult = &domain.User{ID: 2, IsActive: true}
	f.sessions.deactivateForUserResult = 0

	identity := domain.AuthenticatedIdentity{UserID: 1, SessionID: 11, IsAdmin: true}
	if err := f.service.ForceLogout(context.Background(), identity, 2, nil); !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("expected ErrNoActiveSession, got %v", err)
	}
}

func issueAccessToken(t *testing.T, f *sessionFixture, userID, sessionID int64) string {
	t.Helper()

	token, err := f.issuer.Issue(security.TokenOptions{
		UserID:    userID,
		SessionID: sessionID,
		Purpose:   security.TokenPurposeAccess,
		TTL:       30 * time.Minute,
	})
	if err != nil {
		t.Fatalf("issue access token: %v", err)
	}
	return token
}

func TestAuthenticateSuccess(t *testing.T) {
	f := newSessionFixture(t)
	token := issueAccessToken(t, f, 1, 11)

	f.sessions.getByHashResult = &domain.Session{
		ID: 11, UserID: 1,
		TokenHash: security.HashToken(token),
		IsActive:  true,
		ExpiresAt: time.Now().UTC().Add(10 * time.Minute),
	}
	f.users.getByIDResult = verifiedUser()

	identity, err := f.service.Authenticate(context.Background(), token)
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	if identity.UserID != 1 || identity.SessionID != 11 {
		t.Fatalf("unexpected identity: %+v", identity)
	}
	if f.sessions.getByHashLast != security.HashToken(token) {
		t.Fatal("session lookup must use the token hash")
	}
}

func TestAuthenticateExpiredToken(t *testing.T) {
	f := newSessionFixture(t)

	token, err := f.issuer.Issue(security.TokenOptions{
		UserID:    1,
		SessionID: 11,
		Purpose:   security.TokenPurposeAccess,
		TTL:       time.Minute,
		IssuedAt:  time.Now().Add(-time.Hour),
	})
	if err != nil {
		t.Fatalf("issue access token: %v", err)
	}

	if _, err := f.service.Authenticate(context.Background(), token); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
}

func TestAuthenticateClosedSession(t *testing.T) {
	f := newSessionFixture(t)
	token := issueAccessToken(t, f, 1, 11)

	f.sessions.getByHashResult = &domain.Session{
		ID: 11, UserID: 1,
		TokenHash: security.HashToken(token),
		IsActive:  false,
		ExpiresAt: time.Now().UTC().Add(10 * time.Minute),
	}

	if _, err := f.service.Authenticate(context.Background(), token); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired for a closed session, got %v", err)
	}
}

func TestAuthenticatePassiveExpiry(t *testing.T) {
	f := newSessionFixture(t)
	token := issueAccessToken(t, f, 1, 11)

	// Row still flagged active but past its deadline: nothing sweeps
	// expired rows, the liveness check must catch it.
	f.sessions.getByHashResult = &domain.Session{
		ID: 11, UserID: 1,
		TokenHash: security.HashToken(token),
		IsActive:  true,
		ExpiresAt: time.Now().UTC().Add(-time.Minute),
	}

	if _, err := f.service.Authenticate(context.Background(), token); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired for passive expiry, got %v", err)
	}
}

func TestAuthenticateUnknownSession(t *testing.T) {
	f := newSessionFixture(t)
	token := issueAccessToken(t, f, 1, 11)
	f.sessions.getByHashErr = repository.ErrNotFound

	if _, err := f.service.Authenticate(context.Background(), token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestAuthenticateClaimsMismatch(t *testing.T) {
	f := newSessionFixture(t)
	token := issueAccessToken(t, f, 1, 11)

	f.sessions.getByHashResult = &domain.Session{
		ID: 12, UserID: 2,
		TokenHash: security.HashToken(token),
		IsActive:  true,
		ExpiresAt: time.Now().UTC().Add(10 * time.Minute),
	}

	if _, err := f.service.Authenticate(context.Background(), token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for claims mismatch, got %v", err)
	}
}
