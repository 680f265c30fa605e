package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger logs one line per request. Bodies are never logged since they
// carry card and UPI details.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		status := c.Writer.Status()
		var event *zerolog.Event
		switch {
		case status >= 500:
			event = log.Error()
		case status >= 400:
			event = log.Warn()
		default:
			event = log.Info()
		}

		event = event.
			Str("request_id", c.GetString(ContextRequestID)).
			Str("client_ip", c.ClientIP()).
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("user_agent", c.Request.UserAgent())
		if claims := Claims(c); claims != nil {
			event = event.Str("user_id", claims.UserID.String()).Str("role", string(claims.Role))
		}
		if len(c.Errors) > 0 {
			event = event.Str("error", c.Errors.Last().Error())
		}

		switch {
		case status >= 500:
			event.Msg("Server error")
		case status >= 400:
			event.Msg("Client error")
		default:
			event.Msg("Request processed")
		}
	}
}
