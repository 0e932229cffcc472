package security

import (
	"fmt"
	"strings"
	"unicode"

	zxcvbn "github.com/nbutton23/zxcvbn-go"
)

// PasswordSymbols is the set of characters that satisfy the symbol rule.
const PasswordSymbols = "!@#$%^&*"

// PasswordValidationError represents a single password policy violation.
type PasswordValidationError struct {
	Code    string
	Message string
}

// Error implements error for PasswordValidationError.
func (e *PasswordValidationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// PasswordRule validates a password according to a specific policy rule.
type PasswordRule interface {
	Validate(password string) error
}

// PasswordRuleFunc adapts a function to be used as a PasswordRule.
type PasswordRuleFunc func(password string) error

// Validate executes the underlying rule function.
func (f PasswordRuleFunc) Validate(password string) error {
	return f(password)
}

// PasswordValidator applies a sequence of password rules.
type PasswordValidator struct {
	rules []PasswordRule
}

// NewPasswordValidator constructs a validator with the provided rules.
func NewPasswordValidator(rules ...PasswordRule) *PasswordValidator {
	copied := make([]PasswordRule, len(rules))
	copy(copied, rules)
	return &PasswordValidator{rules: copied}
}

// DefaultPasswordValidator returns the validator enforcing the service
// password policy: minimum length plus uppercase, lowercase, digit, and
// symbol requirements.
func DefaultPasswordValidator() *PasswordValidator {
	return NewPasswordValidator(
		MinLengthRule(8),
		RequireUppercaseRule(),
		RequireLowercaseRule(),
		RequireDigitRule(),
		RequireSymbolRule(),
	)
}

// Validate executes all rules and returns the first encountered violation.
func (v *PasswordValidator) Validate(password string) error {
	if v == nil {
		return fmt.Errorf("password validator not configured")
	}
	for _, rule := range v.rules {
		if err := rule.Validate(password); err != nil {
			return err
		}
	}
	return nil
}

// ValidateAll executes every rule and collects all violations so callers can
// report the complete set in a single response.
func (v *PasswordValidator) ValidateAll(password string) []*PasswordValidationError {
	if v == nil {
		return []*PasswordValidationError{{
			Code:    "not_configured",
			Message: "password validator not configured",
		}}
	}

	var violations []*PasswordValidationError
	for _, rule := range v.rules {
		err := rule.Validate(password)
		if err == nil {
			continue
		}
		if verr, ok := err.(*PasswordValidationError); ok {
			violations = append(violations, verr)
			continue
		}
		violations = append(violations, &PasswordValidationError{
			Code:    "invalid",
			Message: err.Error(),
		})
	}
	return violations
}

// MinLengthRule ensures the password has at least min characters.
func MinLengthRule(min int) PasswordRule {
	return PasswordRuleFunc(func(password string) error {
		if len([]rune(password)) < min {
			return &PasswordValidationError{
				Code:    "min_length",
				Message: fmt.Sprintf("password must be at least %d characters long", min),
			}
		}
		return nil
	})
}

// RequireUppercaseRule ensures the password contains at least one uppercase letter.
func RequireUppercaseRule() PasswordRule {
	return PasswordRuleFunc(func(password string) error {
		for _, r := range password {
			if unicode.IsUpper(r) {
				return nil
			}
		}
		return &PasswordValidationError{
			Code:    "uppercase",
			Message: "password must include at least one uppercase letter",
		}
	})
}

// RequireLowercaseRule ensures the password contains at least one lowercase letter.
func RequireLowercaseRule() PasswordRule {
	return PasswordRuleFunc(func(password string) error {
		for _, r := range password {
			if unicode.IsLower(r) {
				return nil
			}
		}
		return &PasswordValidationError{
			Code:    "lowercase",
			Message: "password must include at least one lowercase letter",
		}
	})
}

// RequireDigitRule ensures the password contains at least one digit.
func RequireDigitRule() PasswordRule {
	return PasswordRuleFunc(func(password string) error {
		for _, r := range password {
			if unicode.IsDigit(r) {
				return nil
			}
		}
		return &PasswordValidationError{
			Code:    "digit",
			Message: "password must include at least one digit",
		}
	})
}

// RequireSymbolRule ensures the password contains at least one character from
// PasswordSymbols.
func RequireSymbolRule() PasswordRule {
	return PasswordRuleFunc(func(password string) error {
		if strings.ContainsAny(password, PasswordSymbols) {
			return nil
		}
		return &PasswordValidationError{
			Code:    "symbol",
			Message: fmt.Sprintf("password must include at least one symbol (%s)", PasswordSymbols),
		}
	})
}

// PasswordStrengthScore returns the zxcvbn score (0-4) for the password.
// The score is advisory only and never gates the policy above.
func PasswordStrengthScore(password string, userInputs ...string) int {
	return zxcvbn.PasswordStrength(password, userInputs).Score
}
