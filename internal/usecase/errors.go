package usecase

import "errors"

var (
	// ErrValidation indicates the request payload failed input validation.
	ErrValidation = errors.New("validation failed")
	// ErrPasswordPolicyViolation indicates the password does not satisfy complexity requirements.
	ErrPasswordPolicyViolation = errors.New("password does not meet complexity requirements")
	// ErrEmailTaken indicates the email is already bound to an account.
	ErrEmailTaken = errors.New("email already registered")
	// ErrUserNotFound indicates no account exists for the supplied identifier.
	ErrUserNotFound = errors.New("user not found")
	// ErrAlreadyVerified indicates the account has already confirmed its email.
	ErrAlreadyVerified = errors.New("email already verified")

	// ErrInvalidCredentials is the uniform login failure. Unknown email and
	// wrong password both map here so responses do not reveal which part
	// was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNotVerified indicates valid credentials on an unverified account.
	ErrNotVerified = errors.New("email not verified")
	// ErrSessionActive indicates the user already holds an active session.
	ErrSessionActive = errors.New("session already active")
	// ErrNoActiveSession indicates there is no active session to close.
	ErrNoActiveSession = errors.New("no active session")
	// ErrSessionExpired indicates the presented session no longer authorizes requests.
	ErrSessionExpired = errors.New("session expired")
	// ErrPermissionDenied indicates the caller lacks the privilege for the operation.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrTokenInvalid indicates a verification or reset token that does not exist
	// or fails validation.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenExpired indicates the token exists but its validity window elapsed.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenUsed indicates a replay of an already consumed token.
	ErrTokenUsed = errors.New("token already used")
)
