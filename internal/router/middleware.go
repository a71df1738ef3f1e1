package router

import (
	"github.com/gin-gonic/gin"
)

// APIHeaders marks every response as uncacheable JSON-only content. The API
// serves no scripts or styles, so the content policy denies everything.
func APIHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Header("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		c.Next()
	}
}
