package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zflaviojr/patrimoniotools-sub000/internal/core/domain"
)

// ErrorResponse is the generic error payload returned by every endpoint.
// The optional fields carry login-specific context: how many attempts remain
// before a lockout, when an active lock expires, and the full list of password
// policy violations.
type ErrorResponse struct {
	Error             string     `json:"error"`
	Code              string     `json:"code,omitempty"`
	TraceID           string     `json:"trace_id,omitempty"`
	RemainingAttempts *int       `json:"remaining_attempts,omitempty"`
	LockedUntil       *time.Time `json:"locked_until,omitempty"`
	Violations        []string   `json:"violations,omitempty"`
}

// NewErrorResponse creates an error response carrying the trace ID from context.
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Error:   errorMsg,
		TraceID: traceIDStr,
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// AccountSummary describes the account view returned by the API. The password
// hash never appears here.
type AccountSummary struct {
	ID                string    `json:"id"`
	Username          string    `json:"username"`
	Email             *string   `json:"email,omitempty"`
	Phone             *string   `json:"phone,omitempty"`
	PasswordExpiresAt time.Time `json:"password_expires_at"`
	CreatedAt         time.Time `json:"created_at"`
}

func newAccountSummary(account domain.Account) AccountSummary {
	return AccountSummary{
		ID:                account.ID,
		Username:          account.Username,
		Email:             account.Email,
		Phone:             account.Phone,
		PasswordExpiresAt: account.PasswordExpiresAt,
		CreatedAt:         account.CreatedAt,
	}
}

// LoginRequest defines the payload for the login endpoint.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse describes a successful authentication.
type LoginResponse struct {
	Token     string         `json:"token"`
	TokenType string         `json:"token_type"`
	ExpiresAt time.Time      `json:"expires_at"`
	User      AccountSummary `json:"user"`
}

// RegisterRequest defines the payload for account registration.
type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

// ChangePasswordRequest carries the current and replacement passwords.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

// ProfileUpdateRequest carries optional contact detail changes. A nil field
// leaves the stored value untouched.
type ProfileUpdateRequest struct {
	Email *string `json:"email"`
	Phone *string `json:"phone"`
}

// ValidateResponse describes the result of a successful token validation.
type ValidateResponse struct {
	Valid     bool           `json:"valid"`
	User      AccountSummary `json:"user"`
	ExpiresAt time.Time      `json:"expires_at"`
}

// AuditEntrySummary is the API view of one audit trail entry.
type AuditEntrySummary struct {
	ID            string         `json:"id"`
	Action        string         `json:"action"`
	SourceAddress *string        `json:"source_address,omitempty"`
	Details       map[string]any `json:"details,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// AuditTrailResponse wraps the audit entries for one account.
type AuditTrailResponse struct {
	Entries []AuditEntrySummary `json:"entries"`
}

func newAuditEntrySummary(entry domain.AuditEntry) AuditEntrySummary {
	return AuditEntrySummary{
		ID:            entry.ID,
		Action:        entry.Action,
		SourceAddress: entry.SourceAddress,
		Details:       entry.Details,
		CreatedAt:     entry.CreatedAt,
	}
}

// HealthResponse describes the service health payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadyResponse describes readiness probe results with dependency checks.
type ReadyResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}
