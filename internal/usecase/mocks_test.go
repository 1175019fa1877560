package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/arklim/social-platform-auth/internal/core/domain"
	"github.com/arklim/social-platform-auth/internal/core/port"
)

type mockUserRepository struct {
	createResult int64
	createErr    error
	createCalls  int
	createdUser  domain.User

	getByIDResult *domain.User
	getByIDErr    error
	getByIDCalls  int
	getByIDLastID int64

	getByEmailResult *domain.User
	getByEmailErr    error
	getByEmailCalls  int
	getByEmailLast   string

	markVerifiedErr    error
	markVerifiedCalls  int
	markVerifiedLastID int64

	updatePasswordErr   error
	updatePasswordCalls int
	updatePasswordID    int64
	updatePasswordHash  string
}

func (m *mockUserRepository) Create(_ context.Context, user domain.User) (int64, error) {
	m.createCalls++
	m.createdUser = user
	return m.createResult, m.createErr
}

func (m *mockUserRepository) GetByID(_ context.Context, id int64) (*domain.User, error) {
	m.getByIDCalls++
	m.getByIDLastID = id
	if m.getByIDResult != nil {
		copied := *m.getByIDResult
		return &copied, m.getByIDErr
	}
	return nil, m.getByIDErr
}

func (m *mockUserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	m.getByEmailCalls++
	m.getByEmailLast = email
	if m.getByEmailResult != nil {
		copied := *m.getByEmailResult
		return &copied, m.getByEmailErr
	}
	return nil, m.getByEmailErr
}

func (m *mockUserRepository) MarkVerified(_ context.Context, id int64, _ time.Time) error {
	m.markVerifiedCalls++
	m.markVerifiedLastID = id
	return m.markVerifiedErr
}

func (m *mockUserRepository) UpdatePassword(_ context.Context, id int64, hash string, _ time.Time) error {
	m.updatePasswordCalls++
	m.updatePasswordID = id
	m.updatePasswordHash = hash
	return m.updatePasswordErr
}

type mockTokenRepository struct {
	createVerificationResult int64
	createVerificationErr    error
	createVerificationCalls  int
	createdVerification      domain.EmailVerification

	getVerificationResult *domain.EmailVerification
	getVerificationErr    error
	getVerificationCalls  int
	getVerificationHash   string

	consumeVerificationErr    error
	consumeVerificationCalls  int
	consumeVerificationLastID int64

	createResetResult int64
	createResetErr    error
	createResetCalls  int
	createdReset      domain.PasswordReset

	getResetResult *domain.PasswordReset
	getResetErr    error
	getResetCalls  int
	getResetHash   string

	consumeResetErr    error
	consumeResetCalls  int
	consumeResetLastID int64
}

func (m *mockTokenRepository) CreateVerification(_ context.Context, verification domain.EmailVerification) (int64, error) {
	m.createVerificationCalls++
	m.createdVerification = verification
	return m.createVerificationResult, m.createVerificationErr
}

func (m *mockTokenRepository) GetVerificationByHash(_ context.Context, hash string) (*domain.EmailVerification, error) {
	m.getVerificationCalls++
	m.getVerificationHash = hash
	if m.getVerificationResult != nil {
		copied := *m.getVerificationResult
		return &copied, m.getVerificationErr
	}
	return nil, m.getVerificationErr
}

func (m *mockTokenRepository) ConsumeVerification(_ context.Context, id int64) error {
	m.consumeVerificationCalls++
	m.consumeVerificationLastID = id
	return m.consumeVerificationErr
}

func (m *mockTokenRepository) CreatePasswordReset(_ context.Context, reset domain.PasswordReset) (int64, error) {
	m.createResetCalls++
	m.createdReset = reset
	return m.createResetResult, m.createResetErr
}

func (m *mockTokenRepository) GetPasswordResetByHash(_ context.Context, hash string) (*domain.PasswordReset, error) {
	m.getResetCalls++
	m.getResetHash = hash
	if m.getResetResult != nil {
		copied := *m.getResetResult
		return &copied, m.getResetErr
	}
	return nil, m.getResetErr
}

func (m *mockTokenRepository) ConsumePasswordReset(_ context.Context, id int64) error {
	m.consumeResetCalls++
	m.consumeResetLastID = id
	return m.consumeResetErr
}

type mockSessionRepository struct {
	createResult   int64
	createErr      error
	createCalls    int
	createdSession domain.Session

	getByIDResult *domain.Session
	getByIDErr    error

	getByHashResult *domain.Session
	getByHashErr    error
	getByHashCalls  int
	getByHashLast   string

	setTokenHashErr   error
	setTokenHashCalls int
	setTokenHashID    int64
	setTokenHashValue string

	deactivateErr       error
	deactivateCalls     int
	deactivateSessionID int64
	deactivateUserID    int64

	deactivateForUserResult int
	deactivateForUserErr    error
	deactivateForUserCalls  int
	deactivateForUserLastID int64

	deactivateExpiredResult int
	deactivateExpiredErr    error
	deactivateExpiredCalls  int
	deactivateExpiredUserID int64
	deactivateExpiredAt     time.Time
}

func (m *mockSessionRepository) Create(_ context.Context, session domain.Session) (int64, error) {
	m.createCalls++
	m.createdSession = session
	return m.createResult, m.createErr
}

func (m *mockSessionRepository) GetByID(_ context.Context, _ int64) (*domain.Session, error) {
	if m.getByIDResult != nil {
		copied := *m.getByIDResult
		return &copied, m.getByIDErr
	}
	return nil, m.getByIDErr
}

func (m *mockSessionRepository) GetByTokenHash(_ context.Context, hash string) (*domain.Session, error) {
	m.getByHashCalls++
	m.getByHashLast = hash
	if m.getByHashResult != nil {
		copied := *m.getByHashResult
		return &copied, m.getByHashErr
	}
	return nil, m.getByHashErr
}

func (m *mockSessionRepository) SetTokenHash(_ context.Context, id int64, hash string) error {
	m.setTokenHashCalls++
	m.setTokenHashID = id
	m.setTokenHashValue = hash
	return m.setTokenHashErr
}

func (m *mockSessionRepository) Deactivate(_ context.Context, id int64, userID int64) error {
	m.deactivateCalls++
	m.deactivateSessionID = id
	m.deactivateUserID = userID
	return m.deactivateErr
}

func (m *mockSessionRepository) DeactivateForUser(_ context.Context, userID int64) (int, error) {
	m.deactivateForUserCalls++
	m.deactivateForUserLastID = userID
	return m.deactivateForUserResult, m.deactivateForUserErr
}

func (m *mockSessionRepository) DeactivateExpired(_ context.Context, userID int64, at time.Time) (int, error) {
	m.deactivateExpiredCalls++
	m.deactivateExpiredUserID = userID
	m.deactivateExpiredAt = at
	return m.deactivateExpiredResult, m.deactivateExpiredErr
}

type mockAuditRepository struct {
	appendErr   error
	appendCalls int
	entries     []domain.AuditEntry
}

func (m *mockAuditRepository) Append(_ context.Context, entry domain.AuditEntry) error {
	m.appendCalls++
	m.entries = append(m.entries, entry)
	return m.appendErr
}

// mockUnitOfWork runs the callback against the supplied mock repositories
// without any real transaction underneath.
type mockUnitOfWork struct {
	repos    port.TxRepositories
	beginErr error
	calls    int
}

func (m *mockUnitOfWork) Execute(ctx context.Context, fn func(ctx context.Context, repos port.TxRepositories) error) error {
	m.calls++
	if m.beginErr != nil {
		return m.beginErr
	}
	return fn(ctx, m.repos)
}

// stubHasher avoids Argon2 cost in service tests; hashing is covered in
// the security package.
type stubHasher struct {
	hashErr   error
	verifyErr error
}

func (s *stubHasher) Hash(password string) (string, error) {
	if s.hashErr != nil {
		return "", s.hashErr
	}
	return "hashed:" + password, nil
}

func (s *stubHasher) Verify(password, encoded string) (bool, error) {
	if s.verifyErr != nil {
		return false, s.verifyErr
	}
	return strings.TrimPrefix(encoded, "hashed:") == password, nil
}

type stubPolicy struct {
	err   error
	calls int
}

func (s *stubPolicy) Validate(_ string, _ ...string) error {
	s.calls++
	return s.err
}

type mockMailSender struct {
	sendErr   error
	sendCalls int
	lastMsg   port.MailMessage
}

func (m *mockMailSender) Send(_ context.Context, msg port.MailMessage) error {
	m.sendCalls++
	m.lastMsg = msg
	return m.sendErr
}

type mockEventPublisher struct {
	publishErr error

	registered     []domain.UserRegisteredEvent
	verified       []domain.EmailVerifiedEvent
	resetRequested []domain.PasswordResetRequestedEvent
	passwordChange []domain.PasswordChangedEvent
	opened         []domain.SessionOpenedEvent
	revoked        []domain.SessionRevokedEvent
}

func (m *mockEventPublisher) PublishUserRegistered(_ context.Context, event domain.UserRegisteredEvent) error {
	m.registered = append(m.registered, event)
	return m.publishErr
}

func (m *mockEventPublisher) PublishEmailVerified(_ context.Context, event domain.EmailVerifiedEvent) error {
	m.verified = append(m.verified, event)
	return m.publishErr
}

func (m *mockEventPublisher) PublishPasswordResetRequested(_ context.Context, event domain.PasswordResetRequestedEvent) error {
	m.resetRequested = append(m.resetRequested, event)
	return m.publishErr
}

func (m *mockEventPublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	m.passwordChange = append(m.passwordChange, event)
	return m.publishErr
}

func (m *mockEventPublisher) PublishSessionOpened(_ context.Context, event domain.SessionOpenedEvent) error {
	m.opened = append(m.opened, event)
	return m.publishErr
}

func (m *mockEventPublisher) PublishSessionRevoked(_ context.Context, event domain.SessionRevokedEvent) error {
	m.revoked = append(m.revoked, event)
	return m.publishErr
}

var errBoom = errors.New("boom")
