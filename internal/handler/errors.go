package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/visitka/visitka-backend/internal/dto"
	"github.com/visitka/visitka-backend/internal/service"
	"go.uber.org/zap"
)

const genericErrorMessage = "An unexpected error occurred"

// respondError writes err as a JSON error. Unclassified errors become a generic 500.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	var svcErr *service.Error
	if !errors.As(err, &svcErr) {
		svcErr = &service.Error{Kind: service.KindInternal, Message: genericErrorMessage, Err: err}
	}

	status, label := statusFor(svcErr.Kind)

	switch svcErr.Kind {
	case service.KindInternal, service.KindConfiguration, service.KindUpstream, service.KindUpstreamTimeout:
		logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.String("kind", svcErr.Kind.String()),
			zap.Error(err),
		)
	}

	message := svcErr.Message
	if svcErr.Kind == service.KindInternal {
		message = genericErrorMessage
	}

	resp := dto.ErrorResponse{Error: label, Message: message}
	if svcErr.Kind == service.KindRateLimited {
		c.Header("Retry-After", strconv.Itoa(svcErr.RetryAfter))
		resp.RetryAfter = svcErr.RetryAfter
	}

	c.AbortWithStatusJSON(status, resp)
}

func statusFor(kind service.ErrorKind) (int, string) {
	switch kind {
	case service.KindValidation:
		return http.StatusBadRequest, "Validation failed"
	case service.KindAuth:
		return http.StatusUnauthorized, "Unauthorized"
	case service.KindAuthorization:
		return http.StatusForbidden, "Forbidden"
	case service.KindNotFound:
		return http.StatusNotFound, "Not found"
	case service.KindConflict:
		return http.StatusConflict, "Conflict"
	case service.KindRateLimited:
		return http.StatusTooManyRequests, "Too Many Requests"
	case service.KindConfiguration:
		return http.StatusInternalServerError, "Server configuration error"
	case service.KindUpstream:
		return http.StatusBadGateway, "Bad gateway"
	case service.KindUpstreamTimeout:
		return http.StatusGatewayTimeout, "Gateway timeout"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// bindJSON decodes the body or responds with 400
func bindJSON(c *gin.Context, logger *zap.Logger, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		respondError(c, logger, service.ValidationError("Invalid request body"))
		return false
	}
	return true
}
