package port

// PasswordHasher hashes and verifies secrets using the configured algorithm.
type PasswordHasher interface {
	Hash(password string) (string, error)
	// Verify reports whether the password matches the stored hash. A
	// malformed or truncated hash yields false, never a panic; the error is
	// diagnostic only and must not change the rejection outcome.
	Verify(password string, encoded string) (bool, error)
}

// PasswordPolicyValidator enforces password strength requirements.
// userInputs carries account attributes (email, username) that must not
// appear in the password.
type PasswordPolicyValidator interface {
	Validate(password string, userInputs ...string) error
}
