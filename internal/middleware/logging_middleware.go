package middleware

import (
	"time"

	"livepoll/pkg/logger"

	"github.com/gin-gonic/gin"
)

// LoggingMiddleware logs one line per request with the request id minted by
// RequestIDMiddleware, so a websocket upgrade and the REST calls of the same
// client session can be correlated.
func LoggingMiddleware(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		log := l
		if log == nil {
			log = logger.GetGlobalLogger()
		}
		if log == nil {
			return
		}

		requestID, _ := c.Request.Context().Value(logger.RequestIdKey).(string)
		log.Infof("%s %s %d %s rid=%s",
			method, path, c.Writer.Status(), time.Since(start).String(), requestID)
	}
}
