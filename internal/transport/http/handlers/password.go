package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zflaviojr/patrimoniotools-sub000/internal/transport/http/middleware"
	"github.com/zflaviojr/patrimoniotools-sub000/internal/usecase"
)

// PasswordHandler exposes the password change endpoint.
type PasswordHandler struct {
	passwords *usecase.PasswordService
}

// NewPasswordHandler constructs PasswordHandler.
func NewPasswordHandler(passwords *usecase.PasswordService) *PasswordHandler {
	return &PasswordHandler{passwords: passwords}
}

var changePasswordErrorCases = []ErrorCase{
	{Err: usecase.ErrPasswordReused, Status: http.StatusBadRequest, Message: "password was used recently, choose a different one", Code: "PASSWORD_REUSED"},
	{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "current password is incorrect", Code: "INVALID_CREDENTIALS"},
	{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "account not found", Code: "ACCOUNT_NOT_FOUND"},
}

// ChangePassword godoc
// @Summary Change the authenticated account's password
// @Description Validates the candidate against the password policy and reuse history, then rotates the credential.
// @Tags Password
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ChangePasswordRequest true "Password change payload"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/auth/change-password [post]
func (h *PasswordHandler) ChangePassword(c *gin.Context) {
	accountID, ok := middleware.GetAuthenticatedAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "current and new passwords are required"))
		return
	}

	err := h.passwords.Change(c.Request.Context(), usecase.ChangePasswordInput{
		AccountID:       accountID,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
		SourceAddress:   c.ClientIP(),
	})
	if err != nil {
		RespondWithMappedError(c, err, changePasswordErrorCases, http.StatusInternalServerError, "password change failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "password changed"})
}
