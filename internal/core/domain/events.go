package domain

import "time"

// LoginSucceededEvent represents the payload for auth.login.succeeded messages.
type LoginSucceededEvent struct {
	EventID       string
	AccountID     string
	Username      string
	SourceAddress string
	OccurredAt    time.Time
	Metadata      map[string]any
}

// LoginFailedEvent represents the payload for auth.login.failed messages.
// AccountID is nil when the username did not resolve to an account.
type LoginFailedEvent struct {
	EventID           string
	AccountID         *string
	Username          string
	SourceAddress     string
	RemainingAttempts int
	OccurredAt        time.Time
	Metadata          map[string]any
}

// AccountLockedEvent represents the payload for auth.account.locked messages.
type AccountLockedEvent struct {
	EventID       string
	AccountID     *string
	Username      string
	SourceAddress string
	LockedUntil   time.Time
	OccurredAt    time.Time
	Metadata      map[string]any
}

// PasswordChangedEvent represents the payload for auth.password.changed messages.
type PasswordChangedEvent struct {
	EventID   string
	AccountID string
	ChangedAt time.Time
	ExpiresAt time.Time
	Metadata  map[string]any
}

// UserRegisteredEvent represents the payload for auth.user.registered messages.
type UserRegisteredEvent struct {
	EventID      string
	AccountID    string
	Username     string
	Email        *string
	Phone        *string
	RegisteredAt time.Time
	Metadata     map[string]any
}
