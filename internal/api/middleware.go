package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/learnhub/community/internal/models"
)

// Identity headers set by the authenticating proxy in front of this service
const (
	HeaderActorID   = "X-Actor-Id"
	HeaderActorRole = "X-Actor-Role"
)

const actorKey = "community.actor"

// ActorMiddleware attaches the calling actor to the request. Unknown roles
// are downgraded to user.
func ActorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := models.Actor{
			ID:   c.GetHeader(HeaderActorID),
			Role: models.Role(c.GetHeader(HeaderActorRole)),
		}
		if actor.ID == "" {
			actor.Role = ""
		} else if !actor.Role.Valid() {
			actor.Role = models.RoleUser
		}
		c.Set(actorKey, actor)
		c.Next()
	}
}

// actorFrom returns the actor set by ActorMiddleware
func actorFrom(c *gin.Context) models.Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(models.Actor); ok {
			return actor
		}
	}
	return models.Actor{}
}

// AccessLog writes one zap line per request
func AccessLog(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("actor_id", actorFrom(c).ID),
		)
	}
}
