package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/clinic-api/internal/model"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

type stubTokens map[string]*model.TokenClaims

func (s stubTokens) ValidateToken(_ context.Context, token string) (*model.TokenClaims, error) {
	if claims, ok := s[token]; ok {
		return claims, nil
	}
	return nil, apperrors.Unauthorized(errors.New("bad token"))
}

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	return r
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthenticate(t *testing.T) {
	doctorID := uuid.New()
	claims := &model.TokenClaims{UserID: uuid.New(), DoctorID: &doctorID, Role: model.RoleDoctor}
	auth := NewAuthMiddleware(stubTokens{"good": claims})

	r := newEngine(auth.Authenticate())
	r.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": UserID(c).String(), "doctor": DoctorID(c).String()})
	})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"unknown token", "Bearer bad", http.StatusUnauthorized},
		{"valid", "Bearer good", http.StatusOK},
		{"lowercase scheme", "bearer good", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := serve(r, req)
			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusOK {
				assert.Contains(t, w.Body.String(), claims.UserID.String())
				assert.Contains(t, w.Body.String(), doctorID.String())
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	patient := &model.TokenClaims{UserID: uuid.New(), Role: model.RolePatient}
	auth := NewAuthMiddleware(stubTokens{"patient": patient})

	r := newEngine(auth.Authenticate())
	r.GET("/doctor-only", RequireRole(model.RoleDoctor), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/either", RequireRole(model.RoleDoctor, model.RolePatient), func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/doctor-only", nil)
	req.Header.Set("Authorization", "Bearer patient")
	w := serve(r, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "permission denied")

	req = httptest.NewRequest(http.MethodGet, "/either", nil)
	req.Header.Set("Authorization", "Bearer patient")
	assert.Equal(t, http.StatusOK, serve(r, req).Code)
}

func TestClaimsHelpersWithoutAuth(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Nil(t, Claims(c))
	assert.Equal(t, uuid.Nil, UserID(c))
	assert.Equal(t, uuid.Nil, DoctorID(c))
}

func TestRequestID(t *testing.T) {
	r := newEngine(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(ContextRequestID)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderXRequestID, "abc-123")
	w := serve(r, req)
	assert.Equal(t, "abc-123", w.Header().Get(HeaderXRequestID))
	assert.Equal(t, "abc-123", w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderXRequestID, strings.Repeat("x", maxRequestIDLen+1))
	w = serve(r, req)
	_, err := uuid.Parse(w.Header().Get(HeaderXRequestID))
	assert.NoError(t, err)
}

func TestCORS(t *testing.T) {
	r := newEngine(CORS(CORSConfig{
		AllowOrigins: []string{"https://app.example.com"},
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Authorization"},
		MaxAge:       600,
	}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := serve(r, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Origin", w.Header().Get("Vary"))
	assert.Equal(t, "600", w.Header().Get("Access-Control-Max-Age"))
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	assert.Equal(t, http.StatusForbidden, serve(r, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	w = serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimitPerClient(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: rate.Every(time.Hour), Burst: 2})
	r := newEngine(rl.RateLimit())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	from := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":1234"
		w := serve(r, req)
		if w.Code == http.StatusTooManyRequests {
			assert.Equal(t, "1", w.Header().Get("Retry-After"))
		}
		return w.Code
	}

	assert.Equal(t, http.StatusOK, from("10.0.0.1"))
	assert.Equal(t, http.StatusOK, from("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, from("10.0.0.1"))
	assert.Equal(t, http.StatusOK, from("10.0.0.2"))
}

func TestTimeoutSetsDeadline(t *testing.T) {
	r := newEngine(Timeout(TimeoutConfig{Duration: time.Second}))
	r.GET("/", func(c *gin.Context) {
		_, ok := c.Request.Context().Deadline()
		require.True(t, ok)
		c.Status(http.StatusOK)
	})
	assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
}

func TestRecoveryRespondsInternal(t *testing.T) {
	r := newEngine(Recovery())
	r.GET("/", func(c *gin.Context) { panic("boom") })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal server error")
	assert.NotContains(t, w.Body.String(), "boom")
}

func TestSecurityHeaders(t *testing.T) {
	r := newEngine(SecurityHeaders(DefaultSecurityConfig()))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Equal(t, "default-src 'none'; frame-ancestors 'none'", w.Header().Get("Content-Security-Policy"))
	assert.Contains(t, w.Header().Get("Strict-Transport-Security"), "max-age=31536000")
}

func TestSizeLimit(t *testing.T) {
	r := newEngine(SizeLimit(16))
	r.POST("/", func(c *gin.Context) {
		var body map[string]string
		if err := c.ShouldBindJSON(&body); err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		c.Status(http.StatusOK)
	})

	w := serve(r, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":"b"}`)))
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(r, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":"`+strings.Repeat("b", 32)+`"}`)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}
