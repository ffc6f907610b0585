package logging

import (
	log "github.com/sirupsen/logrus"

	"github.com/gin-gonic/gin"
)

// RequestIDKey is the gin context key carrying the request id.
const RequestIDKey = "request_id"

// WithReq returns a logrus entry annotated with the request id and any extra
// fields.
func WithReq(c *gin.Context, fields map[string]interface{}) *log.Entry {
	entry := log.NewEntry(log.StandardLogger())
	if c != nil {
		if rid, ok := c.Get(RequestIDKey); ok {
			entry = entry.WithField("request_id", rid)
		}
		entry = entry.WithField("path", c.Request.URL.Path)
	}
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	return entry
}
