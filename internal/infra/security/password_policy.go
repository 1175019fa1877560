package security

import "github.com/arklim/social-platform-auth/internal/core/port"

const (
	defaultMinPasswordLength   = 8
	defaultMinCharacterClasses = 2
	defaultMinZxcvbnScore      = 2
)

// PasswordPolicy adapts the rule-based validator to port.PasswordPolicyValidator,
// folding account attributes into the strength estimate.
type PasswordPolicy struct{}

// NewPasswordPolicy builds the service password policy.
func NewPasswordPolicy() *PasswordPolicy {
	return &PasswordPolicy{}
}

// Validate applies length, character class, and zxcvbn strength checks.
func (p *PasswordPolicy) Validate(password string, userInputs ...string) error {
	validator := NewPasswordValidator(
		MinLengthRule(defaultMinPasswordLength),
		RequireCharacterClassesRule(defaultMinCharacterClasses),
		RequirePasswordStrengthRule(defaultMinZxcvbnScore, userInputs...),
	)
	return validator.Validate(password)
}

var _ port.PasswordPolicyValidator = (*PasswordPolicy)(nil)
