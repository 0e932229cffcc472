package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/zflaviojr/patrimoniotools-sub000/internal/core/domain"
	"github.com/zflaviojr/patrimoniotools-sub000/internal/infra/security"
	"github.com/zflaviojr/patrimoniotools-sub000/internal/usecase"
)

const (
	// AccountKey is the context key holding the authenticated account.
	AccountKey = "authenticated_account"
	// SessionClaimsKey is the context key holding the verified token claims.
	SessionClaimsKey = "session_claims"
)

type authErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// RequireAuth verifies the bearer token on the request and loads the owning
// account into the Gin context. Requests without a valid token are rejected
// with 401.
func RequireAuth(auth *usecase.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, authErrorBody{Error: "authorization header required"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, authErrorBody{Error: "authorization header must use the Bearer scheme"})
			return
		}

		token := strings.TrimSpace(parts[1])
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, authErrorBody{Error: "bearer token is empty"})
			return
		}

		account, claims, err := auth.Validate(c.Request.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, usecase.ErrExpiredToken):
				c.AbortWithStatusJSON(http.StatusUnauthorized, authErrorBody{Error: "session token expired", Code: "TOKEN_EXPIRED"})
			case errors.Is(err, usecase.ErrAccountNotFound):
				c.AbortWithStatusJSON(http.StatusUnauthorized, authErrorBody{Error: "account no longer exists", Code: "ACCOUNT_NOT_FOUND"})
			default:
				c.AbortWithStatusJSON(http.StatusUnauthorized, authErrorBody{Error: "invalid session token", Code: "TOKEN_INVALID"})
			}
			return
		}

		c.Set(UserIDKey, account.ID)
		c.Set(AccountKey, *account)
		c.Set(SessionClaimsKey, claims)

		c.Next()
	}
}

// GetAuthenticatedAccountID returns the account ID set by RequireAuth.
func GetAuthenticatedAccountID(c *gin.Context) (string, bool) {
	value, exists := c.Get(UserIDKey)
	if !exists {
		return "", false
	}
	id, ok := value.(string)
	return id, ok && id != ""
}

// GetAuthenticatedAccount returns the account loaded by RequireAuth.
func GetAuthenticatedAccount(c *gin.Context) (domain.Account, bool) {
	value, exists := c.Get(AccountKey)
	if !exists {
		return domain.Account{}, false
	}
	account, ok := value.(domain.Account)
	return account, ok
}

// GetSessionClaims returns the verified token claims set by RequireAuth.
func GetSessionClaims(c *gin.Context) (*security.SessionClaims, bool) {
	value, exists := c.Get(SessionClaimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*security.SessionClaims)
	return claims, ok && claims != nil
}
