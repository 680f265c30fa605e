package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

// ErrorLogger logs the errors handlers attached with c.Error. Clients only
// see a masked message for internal errors, so the cause is recorded here.
// Server faults log at error level, client mistakes at debug.
func ErrorLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		for _, e := range c.Errors {
			level := zerolog.DebugLevel
			if e.IsType(gin.ErrorTypePrivate) && apperrors.HTTPStatus(e.Err) >= http.StatusInternalServerError {
				level = zerolog.ErrorLevel
			}

			log.WithLevel(level).
				Err(e.Err).
				Str("request_id", c.GetString(ContextRequestID)).
				Str("method", c.Request.Method).
				Str("path", c.FullPath()).
				Int("status", c.Writer.Status()).
				Msg("Request error")
		}
	}
}
