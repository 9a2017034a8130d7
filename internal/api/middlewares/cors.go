package middlewares

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/bible-game/common/pkg/config"
)

// CORS middleware handles Cross-Origin Resource Sharing. extraHeaders are
// added to the allowed request headers, e.g. an alternate auth header.
func CORS(cfg config.CORSConfig, extraHeaders ...string) gin.HandlerFunc {
	allowedHeaders := []string{
		"Content-Type", "Content-Length", "Accept-Encoding", "X-CSRF-Token", "Authorization",
		"accept", "origin", "Cache-Control", "X-Requested-With", "X-Request-ID",
	}
	for _, h := range extraHeaders {
		if h != "" {
			allowedHeaders = append(allowedHeaders, h)
		}
	}
	headerList := strings.Join(allowedHeaders, ", ")

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		allowed := false
		for _, allowedOrigin := range cfg.AllowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if origin != "" && (allowed || gin.Mode() != gin.ReleaseMode) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		}

		if cfg.AllowCredentials {
			c.Header("Access-Control-Allow-Credentials", "true")
		}
		c.Header("Access-Control-Allow-Headers", headerList)
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		if cfg.MaxAge > 0 {
			c.Header("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
