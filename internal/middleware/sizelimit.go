package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-api/pkg/httputil"
)

// DefaultMaxBodySize covers the largest request, a prescription batch, with room to spare.
const DefaultMaxBodySize int64 = 1 << 20

// SizeLimit rejects bodies declared larger than maxBytes and caps the reader
// for bodies that do not declare a length.
func SizeLimit(maxBytes int64) gin.HandlerFunc {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodySize
	}
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, httputil.Response{
				Status:  "error",
				Message: fmt.Sprintf("request body exceeds %d bytes", maxBytes),
			})
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
