package middleware

import (
	"github.com/gin-gonic/gin"

	appctx "provender/internal/core/context"
)

const HeaderActorID = "X-Actor-ID"

// Actor middleware propagates the caller identity header into the
// request context. Transition stamps and logs pick it up from there.
// The header is optional; an empty actor is recorded as such.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID := c.GetHeader(HeaderActorID)
		if actorID != "" {
			ctx := appctx.WithActor(c.Request.Context(), appctx.Actor{ID: actorID})
			c.Request = c.Request.WithContext(ctx)
			c.Set("actor_id", actorID)
		}
		c.Next()
	}
}
