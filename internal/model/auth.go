package model

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AuthRequest types
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Phone     string `json:"phone"`
	Role      string `json:"role" binding:"required"`
	// Specialty is required for doctors.
	Specialty string `json:"specialty"`
}

// AuthResponse types
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	Role        Role   `json:"role"`
}

// Auth errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// TokenClaims represents JWT claims. DoctorID is set only for doctors.
type TokenClaims struct {
	jwt.RegisteredClaims
	UserID   uuid.UUID  `json:"user_id"`
	DoctorID *uuid.UUID `json:"doctor_id,omitempty"`
	Email    string     `json:"email"`
	Role     Role       `json:"role"`
}
