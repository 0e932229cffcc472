package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/zflaviojr/patrimoniotools-sub000/internal/transport/http/middleware"
	"github.com/zflaviojr/patrimoniotools-sub000/internal/usecase"
)

// AccountHandler exposes profile and audit trail endpoints for the
// authenticated account.
type AccountHandler struct {
	accounts *usecase.AccountService
	audit    *usecase.AuditRecorder
}

// NewAccountHandler constructs AccountHandler.
func NewAccountHandler(accounts *usecase.AccountService, audit *usecase.AuditRecorder) *AccountHandler {
	return &AccountHandler{accounts: accounts, audit: audit}
}

// RegisterRoutes binds the account routes. The group is expected to carry the
// authentication middleware already.
func (h *AccountHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/me", h.me)
	r.GET("/audit", h.auditTrail)
}

var accountErrorCases = []ErrorCase{
	{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "account not found", Code: "ACCOUNT_NOT_FOUND"},
}

// Me godoc
// @Summary Fetch the authenticated account
// @Tags Account
// @Produce json
// @Security BearerAuth
// @Success 200 {object} AccountSummary
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/account/me [get]
func (h *AccountHandler) me(c *gin.Context) {
	accountID, ok := middleware.GetAuthenticatedAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	account, err := h.accounts.Get(c.Request.Context(), accountID)
	if err != nil {
		RespondWithMappedError(c, err, accountErrorCases, http.StatusInternalServerError, "failed to load account")
		return
	}

	c.JSON(http.StatusOK, newAccountSummary(*account))
}

// UpdateProfile godoc
// @Summary Update the authenticated account's contact details
// @Tags Account
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ProfileUpdateRequest true "Profile update payload"
// @Success 200 {object} AccountSummary
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/auth/profile [put]
func (h *AccountHandler) UpdateProfile(c *gin.Context) {
	accountID, ok := middleware.GetAuthenticatedAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req ProfileUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid profile payload"))
		return
	}

	account, err := h.accounts.UpdateProfile(c.Request.Context(), usecase.UpdateProfileInput{
		AccountID:     accountID,
		Email:         req.Email,
		Phone:         req.Phone,
		SourceAddress: c.ClientIP(),
	})
	if err != nil {
		RespondWithMappedError(c, err, accountErrorCases, http.StatusInternalServerError, "profile update failed")
		return
	}

	c.JSON(http.StatusOK, newAccountSummary(*account))
}

// AuditTrail godoc
// @Summary List recent security events for the authenticated account
// @Tags Account
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Maximum number of entries" default(50)
// @Success 200 {object} AuditTrailResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/account/audit [get]
func (h *AccountHandler) auditTrail(c *gin.Context) {
	accountID, ok := middleware.GetAuthenticatedAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	entries, err := h.audit.Trail(c.Request.Context(), accountID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to load audit trail"))
		return
	}

	resp := AuditTrailResponse{Entries: make([]AuditEntrySummary, 0, len(entries))}
	for _, entry := range entries {
		resp.Entries = append(resp.Entries, newAuditEntrySummary(entry))
	}

	c.JSON(http.StatusOK, resp)
}
