package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
)

// Metrics records request latency and counts by route template, so path
// parameters do not explode label cardinality.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method

		m.RequestDuration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())
		m.RequestTotal.WithLabelValues(method, path, status).Inc()
		if c.Writer.Status() >= 400 {
			m.ErrorTotal.WithLabelValues(method, path, errorType(c)).Inc()
		}
	}
}

func errorType(c *gin.Context) string {
	last := c.Errors.Last()
	if last == nil {
		return "http"
	}
	if last.IsType(gin.ErrorTypeBind) {
		return "validation"
	}
	switch {
	case apperrors.Is(last.Err, apperrors.ErrNotFound):
		return "not_found"
	case apperrors.Is(last.Err, apperrors.ErrUnauthorized), apperrors.Is(last.Err, apperrors.ErrForbidden):
		return "auth"
	case apperrors.Is(last.Err, apperrors.ErrConflict):
		return "conflict"
	case apperrors.Is(last.Err, apperrors.ErrInsufficientFunds):
		return "insufficient_funds"
	case apperrors.Is(last.Err, apperrors.ErrInvalidInput):
		return "invalid_input"
	default:
		return "internal"
	}
}
