package middlewares

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	apiCSP = "default-src 'none'"
	// The dashboard page loads Chart.js from the CDN and runs an inline
	// bootstrap script.
	dashboardCSP = "default-src 'self'; base-uri 'none'; frame-ancestors 'none'; object-src 'none'; connect-src 'self'; img-src 'self' data:; style-src 'self' 'unsafe-inline'; script-src 'self' 'unsafe-inline' https://cdn.jsdelivr.net"
)

func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "no-referrer")
		c.Header("X-XSS-Protection", "0")
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.Header("Content-Security-Policy", apiCSP)
		} else {
			c.Header("Content-Security-Policy", dashboardCSP)
		}
		c.Next()
	}
}
