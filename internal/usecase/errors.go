package usecase

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zflaviojr/patrimoniotools-sub000/internal/infra/security"
)

var (
	// ErrInvalidCredentials indicates the provided username or password are incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrPasswordExpired indicates authentication succeeded but the password is
	// past its rotation window and must be changed before a session is issued.
	ErrPasswordExpired = errors.New("password expired")
	// ErrPasswordReused indicates the candidate password matches a recent one.
	ErrPasswordReused = errors.New("password was used recently")
	// ErrUsernameTaken indicates the requested username already exists.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrAccountNotFound indicates the account no longer exists.
	ErrAccountNotFound = errors.New("account not found")
	// ErrInvalidToken indicates a malformed session token or a bad signature.
	ErrInvalidToken = errors.New("invalid session token")
	// ErrExpiredToken indicates a session token past its expiry.
	ErrExpiredToken = errors.New("session token expired")
)

// ValidationError reports a request field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements error for ValidationError.
func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// LockedError indicates the (username, source address) pair is blocked from
// authenticating until the embedded instant.
type LockedError struct {
	Until time.Time
}

// Error implements error for LockedError.
func (e *LockedError) Error() string {
	return "account temporarily locked"
}

// LoginError wraps a login failure with the number of attempts remaining
// before the pair locks.
type LoginError struct {
	Err               error
	RemainingAttempts *int
}

// Error implements error for LoginError.
func (e *LoginError) Error() string {
	if e == nil || e.Err == nil {
		return "login failed"
	}
	return e.Err.Error()
}

// Unwrap exposes the underlying sentinel for errors.Is.
func (e *LoginError) Unwrap() error {
	return e.Err
}

// PasswordPolicyError carries every policy violation for a candidate password.
type PasswordPolicyError struct {
	Violations []*security.PasswordValidationError
}

// Error implements error for PasswordPolicyError.
func (e *PasswordPolicyError) Error() string {
	if e == nil || len(e.Violations) == 0 {
		return "password does not meet the policy"
	}
	messages := make([]string, 0, len(e.Violations))
	for _, violation := range e.Violations {
		messages = append(messages, violation.Message)
	}
	return strings.Join(messages, "; ")
}

// Messages returns the violation messages in rule order.
func (e *PasswordPolicyError) Messages() []string {
	messages := make([]string, 0, len(e.Violations))
	for _, violation := range e.Violations {
		messages = append(messages, violation.Message)
	}
	return messages
}
