package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/notaria/backoffice/internal/infrastructure/logger"
	"github.com/notaria/backoffice/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// ActorHeader carries the ID of the back-office user issuing the request.
// Authentication happens upstream; the header is recorded, not verified.
const ActorHeader = "X-Actor-ID"

// ActorIDKey is the gin context key holding the parsed actor ID
const ActorIDKey = "actor_id"

// Actor parses the actor header into the gin and request contexts. Requests
// without the header run as uuid.Nil; a malformed header is rejected.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(ActorHeader)
		if raw == "" {
			c.Next()
			return
		}

		actorID, err := uuid.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(dto.GetHTTPStatus(dto.ErrCodeInvalidActor),
				dto.NewErrorResponseWithRequestID(dto.ErrCodeInvalidActor, "X-Actor-ID must be a UUID", GetRequestID(c)))
			return
		}

		c.Set(ActorIDKey, actorID)
		c.Request = c.Request.WithContext(logger.WithActorID(c.Request.Context(), actorID.String()))
		if _, ok := c.Get("logger"); ok {
			c.Set("logger", logger.GetGinLogger(c).With(zap.String("actor_id", actorID.String())))
		}
		c.Next()
	}
}

// GetActorID returns the actor of the request, uuid.Nil when anonymous
func GetActorID(c *gin.Context) uuid.UUID {
	id, _ := actorFromContext(c)
	return id
}

func actorFromContext(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(ActorIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}
