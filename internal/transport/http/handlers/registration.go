package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/zflaviojr/patrimoniotools-sub000/internal/usecase"
)

// RegistrationHandler exposes the account registration endpoint.
type RegistrationHandler struct {
	registration *usecase.RegistrationService
}

// NewRegistrationHandler constructs RegistrationHandler.
func NewRegistrationHandler(registration *usecase.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{registration: registration}
}

// RegisterRoutes binds the registration route, applying optional middleware
// ahead of the handler.
func (h *RegistrationHandler) RegisterRoutes(r *gin.RouterGroup, middlewares ...gin.HandlerFunc) {
	chain := append([]gin.HandlerFunc{}, middlewares...)
	chain = append(chain, h.register)
	r.POST("/register", chain...)
}

var registerErrorCases = []ErrorCase{
	{Err: usecase.ErrUsernameTaken, Status: http.StatusConflict, Message: "username already registered", Code: "USERNAME_TAKEN"},
}

// Register godoc
// @Summary Register a new account
// @Description Creates an account with the supplied credentials and returns an initial session token.
// @Tags Registration
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration request payload"
// @Success 201 {object} LoginResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/auth/register [post]
func (h *RegistrationHandler) register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "username and password are required"))
		return
	}

	input := usecase.RegisterInput{
		Username:      strings.TrimSpace(req.Username),
		Password:      req.Password,
		SourceAddress: c.ClientIP(),
	}
	if email := strings.TrimSpace(req.Email); email != "" {
		input.Email = &email
	}
	if phone := strings.TrimSpace(req.Phone); phone != "" {
		input.Phone = &phone
	}

	result, err := h.registration.Register(c.Request.Context(), input)
	if err != nil {
		RespondWithMappedError(c, err, registerErrorCases, http.StatusInternalServerError, "registration failed")
		return
	}

	c.JSON(http.StatusCreated, LoginResponse{
		Token:     result.Token,
		TokenType: "Bearer",
		ExpiresAt: result.ExpiresAt,
		User:      newAccountSummary(result.Account),
	})
}
