package handler

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/visitka/visitka-backend/internal/dto"
	"github.com/visitka/visitka-backend/internal/service"
	"go.uber.org/zap"
)

const (
	// WebhookSignatureHeader carries the hex HMAC-SHA256 of the webhook body
	WebhookSignatureHeader = "X-Api-Signature"

	maxWebhookBody = 1 << 20
)

// PaymentHandler handles plans, payments and provider notifications
type PaymentHandler struct {
	paymentService      service.PaymentService
	subscriptionService service.SubscriptionService
	webhookSecret       string
	logger              *zap.Logger
}

// NewPaymentHandler creates a new payment handler. An empty webhookSecret disables signature checks.
func NewPaymentHandler(
	paymentService service.PaymentService,
	subscriptionService service.SubscriptionService,
	webhookSecret string,
	logger *zap.Logger,
) *PaymentHandler {
	return &PaymentHandler{
		paymentService:      paymentService,
		subscriptionService: subscriptionService,
		webhookSecret:       webhookSecret,
		logger:              logger,
	}
}

// ListPlans returns the plan catalog
// @Summary List subscription plans
// @Tags payments
// @Produce json
// @Success 200 {array} dto.PlanResponse
// @Router /plans [get]
func (h *PaymentHandler) ListPlans(c *gin.Context) {
	plans, err := h.paymentService.ListPlans(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, plans)
}

// Create starts a payment for a plan
// @Summary Create a payment
// @Tags payments
// @Security AuthToken
// @Accept json
// @Produce json
// @Param request body dto.CreatePaymentRequest true "Plan"
// @Success 200 {object} dto.PaymentResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Failure 504 {object} dto.ErrorResponse
// @Router /payments [post]
func (h *PaymentHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondError(c, h.logger, errMissingToken)
		return
	}

	var req dto.CreatePaymentRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}

	payment, err := h.paymentService.CreatePayment(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, payment)
}

// Get returns the status of the caller's payment
// @Summary Get payment status
// @Tags payments
// @Security AuthToken
// @Produce json
// @Param id path string true "Provider payment id"
// @Success 200 {object} dto.PaymentResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /payments/{id} [get]
func (h *PaymentHandler) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondError(c, h.logger, errMissingToken)
		return
	}

	payment, err := h.paymentService.GetPayment(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, payment)
}

// Webhook receives payment provider notifications
// @Summary Payment provider webhook
// @Tags payments
// @Accept json
// @Produce json
// @Success 200 {object} dto.SuccessResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /payments/webhook [post]
func (h *PaymentHandler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		respondError(c, h.logger, service.ValidationError("Invalid request body"))
		return
	}

	if h.webhookSecret != "" && !validSignature(h.webhookSecret, body, c.GetHeader(WebhookSignatureHeader)) {
		h.logger.Warn("webhook signature mismatch", zap.String("ip", c.ClientIP()))
		respondError(c, h.logger, &service.Error{Kind: service.KindAuth, Message: "Invalid signature"})
		return
	}

	var event dto.WebhookEvent
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	if err := decoder.Decode(&event); err != nil {
		respondError(c, h.logger, service.ValidationError("Invalid request body"))
		return
	}

	resp, err := h.subscriptionService.HandleWebhook(c.Request.Context(), &event)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func validSignature(secret string, body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature))))
}
