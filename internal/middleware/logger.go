package middleware

import (
	"time"

	"antigravity2api-go/internal/logging"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// RequestLogger logs one line per HTTP request.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		modelVal, _ := c.Get("model")
		logging.WithReq(c, log.Fields{
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"method":     method,
			"path":       path,
			"model":      modelVal,
			"client_ip":  c.ClientIP(),
		}).Info("http_request")
	}
}
