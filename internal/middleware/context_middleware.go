package middleware

import (
	"strings"

	"leave-expiry/internal/shared/contextutil"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// ActorIDHeader names the caller making a status change. The expiration
	// engine sends events.ActorAutoExpiry.
	ActorIDHeader = "X-Actor-ID"
	ActorIDKey    = "actor_id"
)

// ContextLogger attaches a request scoped logger plus request and actor ids
// to the request context. It expects RequestID to run first.
func ContextLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		rid := c.GetString(RequestIDKey)
		if rid == "" {
			rid = contextutil.RequestID(ctx)
		}
		ctx = contextutil.WithRequestID(ctx, rid)

		if actorID := strings.TrimSpace(c.GetHeader(ActorIDHeader)); actorID != "" {
			c.Set(ActorIDKey, actorID)
			ctx = contextutil.WithActorID(ctx, actorID)
		}

		ctx = contextutil.WithLogger(ctx, logger.With(contextutil.Fields(ctx)...))
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
