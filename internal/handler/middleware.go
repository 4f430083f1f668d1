package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/visitka/visitka-backend/internal/service"
	"go.uber.org/zap"
)

const (
	// AuthTokenHeader carries the session token
	AuthTokenHeader = "X-Auth-Token"

	ctxUserID = "user_id"
	ctxEmail  = "email"
	ctxToken  = "token"
)

var errMissingToken = &service.Error{Kind: service.KindAuth, Message: "Unauthorized"}

// AuthMiddleware validates the session token and adds user info to context
func AuthMiddleware(authService service.AuthService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(AuthTokenHeader)
		if token == "" {
			respondError(c, logger, errMissingToken)
			return
		}

		claims, err := authService.ValidateToken(c.Request.Context(), token)
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxEmail, claims.Email)
		c.Set(ctxToken, token)

		c.Next()
	}
}

// currentUserID returns the id set by AuthMiddleware
func currentUserID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(ctxUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}
