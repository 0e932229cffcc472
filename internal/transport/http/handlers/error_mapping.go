package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zflaviojr/patrimoniotools-sub000/internal/usecase"
)

// ErrorCase maps a sentinel error to an HTTP status code and response message.
type ErrorCase struct {
	Err     error
	Status  int
	Message string
	Code    string
}

// RespondWithMappedError resolves the provided error against the typed
// authentication errors first, then the supplied sentinel cases, and finally
// falls back to a generic response.
func RespondWithMappedError(c *gin.Context, err error, cases []ErrorCase, fallbackStatus int, fallbackMessage string) {
	if err == nil {
		c.Status(http.StatusOK)
		return
	}

	if respondWithTypedError(c, err) {
		return
	}

	for _, cs := range cases {
		if cs.Err == nil {
			continue
		}
		if errors.Is(err, cs.Err) {
			resp := NewErrorResponse(c, cs.Message)
			resp.Code = cs.Code
			c.JSON(cs.Status, resp)
			return
		}
	}

	c.JSON(fallbackStatus, NewErrorResponse(c, fallbackMessage))
}

// respondWithTypedError handles the error types that carry extra payload:
// field validation, password policy violations, active lockouts, and failed
// logins with an attempt budget.
func respondWithTypedError(c *gin.Context, err error) bool {
	var vErr *usecase.ValidationError
	if errors.As(err, &vErr) {
		resp := NewErrorResponse(c, vErr.Message)
		resp.Code = "VALIDATION_FAILED"
		c.JSON(http.StatusBadRequest, resp)
		return true
	}

	var policyErr *usecase.PasswordPolicyError
	if errors.As(err, &policyErr) {
		resp := NewErrorResponse(c, "password does not meet the security policy")
		resp.Code = "PASSWORD_POLICY"
		resp.Violations = policyErr.Messages()
		c.JSON(http.StatusBadRequest, resp)
		return true
	}

	var lockedErr *usecase.LockedError
	if errors.As(err, &lockedErr) {
		resp := NewErrorResponse(c, "account temporarily locked due to repeated failures")
		resp.Code = "ACCOUNT_LOCKED"
		until := lockedErr.Until
		resp.LockedUntil = &until
		c.JSON(http.StatusLocked, resp)
		return true
	}

	var loginErr *usecase.LoginError
	if errors.As(err, &loginErr) {
		resp := NewErrorResponse(c, "invalid username or password")
		resp.Code = "INVALID_CREDENTIALS"
		resp.RemainingAttempts = loginErr.RemainingAttempts
		c.JSON(http.StatusUnauthorized, resp)
		return true
	}

	return false
}
