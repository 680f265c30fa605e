package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/httputil"
)

const ContextClaims = "claims"

type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*model.TokenClaims, error)
}

type AuthMiddleware struct {
	tokens TokenValidator
}

func NewAuthMiddleware(tokens TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Authenticate verifies the bearer token and stores its claims in the context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			httputil.RespondWithError(c, apperrors.Unauthorized(errors.New("missing authorization header")))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			httputil.RespondWithError(c, apperrors.Unauthorized(errors.New("invalid authorization format")))
			return
		}

		claims, err := m.tokens.ValidateToken(c.Request.Context(), parts[1])
		if err != nil {
			httputil.RespondWithError(c, err)
			return
		}

		c.Set(ContextClaims, claims)
		c.Next()
	}
}

// RequireRole lets the request through only for the given roles.
func RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			httputil.RespondWithError(c, apperrors.Unauthorized(nil))
			return
		}
		for _, r := range roles {
			if claims.Role == r {
				c.Next()
				return
			}
		}
		httputil.RespondWithError(c, apperrors.Forbidden("permission denied"))
	}
}

// Claims returns the authenticated caller, or nil before Authenticate ran.
func Claims(c *gin.Context) *model.TokenClaims {
	v, ok := c.Get(ContextClaims)
	if !ok {
		return nil
	}
	claims, _ := v.(*model.TokenClaims)
	return claims
}

func UserID(c *gin.Context) uuid.UUID {
	if claims := Claims(c); claims != nil {
		return claims.UserID
	}
	return uuid.Nil
}

// DoctorID is uuid.Nil for patients.
func DoctorID(c *gin.Context) uuid.UUID {
	if claims := Claims(c); claims != nil && claims.DoctorID != nil {
		return *claims.DoctorID
	}
	return uuid.Nil
}
