package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/visitka/visitka-backend/internal/dto"
	"github.com/visitka/visitka-backend/internal/service"
	"go.uber.org/zap"
)

// PasswordHandler handles password reset requests
type PasswordHandler struct {
	resetService service.PasswordResetService
	logger       *zap.Logger
}

// NewPasswordHandler creates a new password handler
func NewPasswordHandler(resetService service.PasswordResetService, logger *zap.Logger) *PasswordHandler {
	return &PasswordHandler{
		resetService: resetService,
		logger:       logger,
	}
}

// Forgot starts a password reset
// @Summary Request a password reset link
// @Tags password
// @Accept json
// @Produce json
// @Param request body dto.ForgotPasswordRequest true "Email"
// @Success 200 {object} dto.SuccessResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /password/forgot [post]
func (h *PasswordHandler) Forgot(c *gin.Context) {
	var req dto.ForgotPasswordRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	h.respond(c)(h.resetService.Request(c.Request.Context(), req.Email))
}

// Reset redeems a reset token
// @Summary Set a new password
// @Tags password
// @Accept json
// @Produce json
// @Param request body dto.ResetPasswordRequest true "Token and password"
// @Success 200 {object} dto.SuccessResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /password/reset [post]
func (h *PasswordHandler) Reset(c *gin.Context) {
	var req dto.ResetPasswordRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	h.respond(c)(h.resetService.Redeem(c.Request.Context(), req.Token, req.Password))
}

// Action dispatches the combined endpoint on the action field
// @Summary Request or complete a password reset
// @Tags password
// @Accept json
// @Produce json
// @Param request body dto.ResetActionRequest true "Action request"
// @Success 200 {object} dto.SuccessResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /password-reset [post]
func (h *PasswordHandler) Action(c *gin.Context) {
	var req dto.ResetActionRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	action, err := dto.ParseResetAction(req.Action)
	if err != nil {
		respondError(c, h.logger, service.ValidationError("Invalid action"))
		return
	}

	switch action {
	case dto.ResetActionStart:
		h.respond(c)(h.resetService.Request(c.Request.Context(), req.Email))
	case dto.ResetActionVerify:
		h.respond(c)(h.resetService.Redeem(c.Request.Context(), req.Token, req.NewPasswordValue()))
	}
}

func (h *PasswordHandler) respond(c *gin.Context) func(*dto.SuccessResponse, error) {
	return func(resp *dto.SuccessResponse, err error) {
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}
