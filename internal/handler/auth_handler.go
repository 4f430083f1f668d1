package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/visitka/visitka-backend/internal/dto"
	"github.com/visitka/visitka-backend/internal/service"
	"go.uber.org/zap"
)

// AuthHandler handles authentication requests
type AuthHandler struct {
	authService service.AuthService
	logger      *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// Register handles user registration
// @Summary Register a new user
// @Description Register a new user, optionally with a referral code
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.RegisterRequest true "Registration request"
// @Success 200 {object} dto.AuthResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Failure 429 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	response, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// Login handles user login
// @Summary Login user
// @Description Authenticate user with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Login request"
// @Success 200 {object} dto.AuthResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 429 {object} dto.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	response, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// Action dispatches the combined endpoint on the action field
// @Summary Register or login
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.AuthActionRequest true "Action request"
// @Success 200 {object} dto.AuthResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /auth [post]
func (h *AuthHandler) Action(c *gin.Context) {
	var req dto.AuthActionRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	action, err := dto.ParseAuthAction(req.Action)
	if err != nil {
		respondError(c, h.logger, service.ValidationError("Invalid action"))
		return
	}

	var response *dto.AuthResponse
	switch action {
	case dto.AuthActionRegister:
		response, err = h.authService.Register(c.Request.Context(), &dto.RegisterRequest{
			Email:        req.Email,
			Password:     req.Password,
			Name:         req.Name,
			ReferralCode: req.ReferralCode,
		})
	case dto.AuthActionLogin:
		response, err = h.authService.Login(c.Request.Context(), &dto.LoginRequest{
			Email:    req.Email,
			Password: req.Password,
		})
	}
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// Telegram handles Telegram Login Widget sign-in
// @Summary Login with Telegram
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.TelegramLoginRequest true "Widget data"
// @Success 200 {object} dto.AuthResponse
// @Failure 403 {object} dto.ErrorResponse
// @Router /auth/telegram [post]
func (h *AuthHandler) Telegram(c *gin.Context) {
	var req dto.TelegramLoginRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	response, err := h.authService.TelegramLogin(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// Logout handles user logout
// @Summary Logout user
// @Description Revoke the presented session token
// @Tags auth
// @Security AuthToken
// @Produce json
// @Success 200 {object} dto.SuccessResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.authService.Logout(c.Request.Context(), c.GetString(ctxToken)); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{
		Message: "Logged out successfully",
	})
}

// GetMe handles getting current user profile
// @Summary Get current user profile
// @Tags auth
// @Security AuthToken
// @Produce json
// @Success 200 {object} dto.UserResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /auth/me [get]
func (h *AuthHandler) GetMe(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondError(c, h.logger, errMissingToken)
		return
	}

	user, err := h.authService.GetUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, user)
}
