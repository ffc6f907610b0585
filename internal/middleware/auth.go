package middleware

import (
	"net/http"
	"strings"

	apperrors "antigravity2api-go/internal/errors"
	"github.com/gin-gonic/gin"
)

// APIKeyAuth gates the chat surface. Keys may arrive as a Bearer token,
// x-api-key (Anthropic style), x-goog-api-key or ?key= (Gemini style).
// An empty configured key disables the gate.
func APIKeyAuth(requiredKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if requiredKey == "" {
			c.Next()
			return
		}

		var provided string
		if auth := c.GetHeader("Authorization"); auth != "" {
			if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
				provided = strings.TrimSpace(auth[7:])
			} else {
				provided = auth
			}
		}
		if provided == "" {
			provided = c.GetHeader("x-api-key")
		}
		if provided == "" {
			provided = c.GetHeader("x-goog-api-key")
		}
		if provided == "" {
			provided = c.Query("key")
		}

		if provided == "" {
			respondUnauthorized(c, "API key not provided")
			return
		}
		if provided != requiredKey {
			respondUnauthorized(c, "Invalid API key")
			return
		}
		c.Set("api_key", provided)
		c.Next()
	}
}

// respondUnauthorized writes the 401 in the dialect the path implies.
func respondUnauthorized(c *gin.Context, message string) {
	e := apperrors.New(apperrors.KindAuthRequired, http.StatusUnauthorized, message)

	path := c.Request.URL.Path
	switch {
	case strings.Contains(path, "/v1beta/"):
		c.JSON(http.StatusUnauthorized, apperrors.GeminiEnvelope(e))
	case strings.Contains(path, "/messages"):
		c.JSON(http.StatusUnauthorized, apperrors.ClaudeEnvelope(e))
	default:
		c.JSON(http.StatusUnauthorized, apperrors.OpenAIEnvelope(e))
	}
	c.Abort()
}
