package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zflaviojr/patrimoniotools-sub000/internal/transport/http/middleware"
	"github.com/zflaviojr/patrimoniotools-sub000/internal/usecase"
)

// AuthHandler exposes the login and token validation endpoints.
type AuthHandler struct {
	auth *usecase.AuthService
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(auth *usecase.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// RegisterRoutes binds authentication routes, applying optional middleware
// ahead of the login handler.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup, loginMiddlewares ...gin.HandlerFunc) {
	if len(loginMiddlewares) > 0 {
		chain := append([]gin.HandlerFunc{}, loginMiddlewares...)
		chain = append(chain, h.login)
		r.POST("/login", chain...)
	} else {
		r.POST("/login", h.login)
	}

	r.GET("/validate", middleware.RequireAuth(h.auth), h.validate)
}

var loginErrorCases = []ErrorCase{
	{Err: usecase.ErrPasswordExpired, Status: http.StatusUnauthorized, Message: "password expired, a password change is required", Code: "PASSWORD_EXPIRED"},
	{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "invalid username or password", Code: "INVALID_CREDENTIALS"},
}

// Login godoc
// @Summary Authenticate with username and password
// @Description Verifies the credentials, enforces the lockout policy, and issues a session token.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login request payload"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 423 {object} ErrorResponse
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "username and password are required"))
		return
	}

	result, err := h.auth.Login(c.Request.Context(), usecase.LoginInput{
		Username:      req.Username,
		Password:      req.Password,
		SourceAddress: c.ClientIP(),
	})
	if err != nil {
		RespondWithMappedError(c, err, loginErrorCases, http.StatusInternalServerError, "login failed")
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token:     result.Token,
		TokenType: "Bearer",
		ExpiresAt: result.ExpiresAt,
		User:      newAccountSummary(result.Account),
	})
}

// Validate godoc
// @Summary Validate the presented session token
// @Description Confirms the bearer token is well formed, unexpired, and bound to an existing account.
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} ValidateResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/auth/validate [get]
func (h *AuthHandler) validate(c *gin.Context) {
	account, ok := middleware.GetAuthenticatedAccount(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	resp := ValidateResponse{
		Valid: true,
		User:  newAccountSummary(account),
	}
	if claims, ok := middleware.GetSessionClaims(c); ok && claims.ExpiresAt != nil {
		resp.ExpiresAt = claims.ExpiresAt.Time
	}

	c.JSON(http.StatusOK, resp)
}
