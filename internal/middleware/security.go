package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
)

// SecurityConfig holds the response headers set on every API response.
type SecurityConfig struct {
	// HSTSMaxAge is in seconds; zero leaves Strict-Transport-Security unset.
	HSTSMaxAge     int
	FrameOptions   string
	ReferrerPolicy string
	CSPDirectives  []string
	// CacheControl applies to every response. Wallet and medical data must
	// never land in a shared cache.
	CacheControl string
}

func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		HSTSMaxAge:     31536000,
		FrameOptions:   "DENY",
		ReferrerPolicy: "no-referrer",
		CSPDirectives: []string{
			"default-src 'none'",
			"frame-ancestors 'none'",
		},
		CacheControl: "no-store",
	}
}

func SecurityHeaders(config SecurityConfig) gin.HandlerFunc {
	csp := strings.Join(config.CSPDirectives, "; ")
	hsts := ""
	if config.HSTSMaxAge > 0 {
		hsts = fmt.Sprintf("max-age=%d; includeSubDomains", config.HSTSMaxAge)
	}

	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		if config.FrameOptions != "" {
			h.Set("X-Frame-Options", config.FrameOptions)
		}
		if config.ReferrerPolicy != "" {
			h.Set("Referrer-Policy", config.ReferrerPolicy)
		}
		if csp != "" {
			h.Set("Content-Security-Policy", csp)
		}
		if hsts != "" {
			h.Set("Strict-Transport-Security", hsts)
		}
		if config.CacheControl != "" {
			h.Set("Cache-Control", config.CacheControl)
		}
		c.Next()
	}
}
