package domain

import "time"

// Audit actions recorded by the authentication flows.
const (
	AuditLoginSuccess         = "LOGIN_SUCCESS"
	AuditLoginFailed          = "LOGIN_FAILED"
	AuditLoginBlocked         = "LOGIN_BLOCKED"
	AuditAccountLocked        = "ACCOUNT_LOCKED"
	AuditLoginPasswordExpired = "LOGIN_PASSWORD_EXPIRED"
	AuditPasswordChanged      = "PASSWORD_CHANGED"
	AuditPasswordChangeFailed = "PASSWORD_CHANGE_FAILED"
	AuditUserRegistered       = "USER_REGISTERED"
	AuditProfileUpdated       = "PROFILE_UPDATED"
)

// AuditEntry is an immutable record of a security-relevant action.
// AccountID is nil for events against unknown usernames.
type AuditEntry struct {
	ID            string
	AccountID     *string
	Action        string
	Details       map[string]any
	SourceAddress *string
	CreatedAt     time.Time
}
