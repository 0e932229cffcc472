package domain

import "time"

// PasswordMaxAge is the window after which a password must be rotated.
const PasswordMaxAge = 90 * 24 * time.Hour

// PasswordHistoryDepth bounds how many previous hashes are retained per account.
const PasswordHistoryDepth = 5

// Account mirrors the persisted representation in the accounts table.
type Account struct {
	ID                  string
	Username            string
	PasswordHash        string
	Email               *string
	Phone               *string
	CreatedAt           time.Time
	UpdatedAt           time.Time
	PasswordLastChanged time.Time
	PasswordExpiresAt   time.Time
}

// Sanitized returns a copy safe to hand to transport layers.
func (a Account) Sanitized() Account {
	a.PasswordHash = ""
	return a
}

// PasswordExpired reports whether the password is past its rotation window at
// the supplied instant. A zero PasswordLastChanged counts as expired.
func (a Account) PasswordExpired(now time.Time) bool {
	if a.PasswordLastChanged.IsZero() {
		return true
	}
	return now.Sub(a.PasswordLastChanged) > PasswordMaxAge
}

// PasswordHistoryEntry tracks a historical password hash for reuse prevention.
type PasswordHistoryEntry struct {
	ID           string
	AccountID    string
	PasswordHash string
	CreatedAt    time.Time
}

// LoginAttempt records one authentication attempt for throttling and audit.
// Username is stored verbatim even when no matching account exists, so that
// probing of unknown usernames is throttled the same way.
type LoginAttempt struct {
	ID            string
	Username      string
	SourceAddress string
	Success       bool
	AttemptedAt   time.Time
	LockedUntil   *time.Time
}

// Blocked reports whether the attempt row carries a lock that is still active.
func (a LoginAttempt) Blocked(now time.Time) bool {
	return a.LockedUntil != nil && a.LockedUntil.After(now)
}
