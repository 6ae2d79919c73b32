package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/lexisync/internal/common"
	"github.com/dmitrijs2005/lexisync/internal/logging"
	"github.com/dmitrijs2005/lexisync/internal/models"
	"github.com/dmitrijs2005/lexisync/internal/server/auth"
	"github.com/dmitrijs2005/lexisync/internal/shared"
	"github.com/dmitrijs2005/lexisync/internal/syncproto"
	"github.com/gin-gonic/gin"
)

const (
	accountIDKey    = "accountID"
	requestIDKey    = "requestID"
	RequestIDHeader = "X-Request-ID"
)

// AccountIDFromContext returns the account resolved by Auth.
func AccountIDFromContext(c *gin.Context) models.ID {
	if v, ok := c.Get(accountIDKey); ok {
		if id, ok := v.(models.ID); ok {
			return id
		}
	}
	return ""
}

// Auth resolves the account from the bearer token. Requests without a valid
// token never reach the handler.
func Auth(secretKey []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := strings.TrimSpace(c.GetHeader(common.AuthorizationHeaderName))
		if len(h) < len(common.BearerPrefix) || !strings.EqualFold(h[:len(common.BearerPrefix)], common.BearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, syncproto.ErrorResponse{Error: "missing bearer token"})
			return
		}

		accountID, err := auth.GetUserIDFromToken(strings.TrimSpace(h[len(common.BearerPrefix):]), secretKey)
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, common.ErrTokenExpired) {
				msg = "token expired"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, syncproto.ErrorResponse{Error: msg})
			return
		}

		c.Set(accountIDKey, accountID)
		c.Next()
	}
}

// RequestLogger tags each request with an id (reusing the caller's
// X-Request-ID when present) and logs one line when it completes.
func RequestLogger(l logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = shared.RequestID()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)

		c.Next()

		args := []any{
			"request_id", id,
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start).String(),
		}
		if account := AccountIDFromContext(c); account != "" {
			args = append(args, "account", account)
		}

		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			l.Error(c.Request.Context(), "request", args...)
		case status >= http.StatusBadRequest:
			l.Warn(c.Request.Context(), "request", args...)
		default:
			l.Info(c.Request.Context(), "request", args...)
		}
	}
}
