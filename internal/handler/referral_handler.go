package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/visitka/visitka-backend/internal/service"
	"go.uber.org/zap"
)

// ReferralHandler serves referral statistics
type ReferralHandler struct {
	referralService service.ReferralService
	logger          *zap.Logger
}

// NewReferralHandler creates a new referral handler
func NewReferralHandler(referralService service.ReferralService, logger *zap.Logger) *ReferralHandler {
	return &ReferralHandler{referralService: referralService, logger: logger}
}

// Stats returns the caller's referral code and referred users
// @Summary Referral statistics
// @Tags referrals
// @Security AuthToken
// @Produce json
// @Success 200 {object} dto.ReferralStatsResponse
// @Router /referrals [get]
func (h *ReferralHandler) Stats(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondError(c, h.logger, errMissingToken)
		return
	}

	stats, err := h.referralService.Stats(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
