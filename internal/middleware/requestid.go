package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/huangang/campy/pkg/logger"
)

const HeaderRequestID = "X-Request-ID"

// RequestID tags each request with an id, reusing a well-formed incoming one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(logger.RequestIDKey, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}
