package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/pkg/auth"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/security"
)

type Service struct {
	users   repository.UserRepository
	doctors repository.DoctorRepository
	hasher  security.PasswordHasher
	jwtSvc  auth.JWTService
	log     *logger.Logger
	now     func() time.Time
}

func NewService(users repository.UserRepository, doctors repository.DoctorRepository,
	hasher security.PasswordHasher, jwtSvc auth.JWTService, log *logger.Logger) *Service {
	return &Service{
		users:   users,
		doctors: doctors,
		hasher:  hasher,
		jwtSvc:  jwtSvc,
		log:     log,
		now:     time.Now,
	}
}

// Register creates the account with its patient or doctor profile. Doctors
// start with a scored profile and no fee of their own.
func (s *Service) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
	role, err := model.ParseRole(req.Role)
	if err != nil {
		return nil, apperrors.NewInvalidInput(err.Error(), nil)
	}
	specialty := strings.TrimSpace(req.Specialty)
	if role == model.RoleDoctor && specialty == "" {
		return nil, apperrors.NewInvalidInput("specialty is required for doctors", nil)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		if errors.Is(err, security.ErrPasswordTooShort) {
			return nil, apperrors.NewInvalidInput(
				fmt.Sprintf("password must be at least %d characters", security.MinPasswordLen), nil)
		}
		return nil, apperrors.NewInternal(err)
	}

	now := s.now().UTC()
	user := &model.User{
		Base:         model.NewBase(now),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		Role:         role,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Phone:        strings.TrimSpace(req.Phone),
	}

	var doctor *model.Doctor
	if role == model.RoleDoctor {
		doctor = &model.Doctor{
			Base:      model.NewBase(now),
			FirstName: user.FirstName,
			LastName:  user.LastName,
			Specialty: specialty,
		}
		doctor.RefreshProfile()
	}

	if err := s.users.Register(ctx, user, doctor); err != nil {
		return nil, err
	}

	s.log.Info("user registered", "user_id", user.ID.String(), "role", string(role))
	return user, nil
}

// Login checks the password and issues an access token. Unknown emails and
// wrong passwords fail the same way.
func (s *Service) Login(ctx context.Context, req *model.LoginRequest) (*model.TokenResponse, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, errInvalidCredentials()
		}
		return nil, err
	}
	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		return nil, errInvalidCredentials()
	}

	var doctorID *uuid.UUID
	if user.Role == model.RoleDoctor {
		d, err := s.doctors.GetByUserID(ctx, user.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load doctor profile: %w", err)
		}
		doctorID = &d.ID
	}

	token, err := s.jwtSvc.GenerateAccessToken(user, doctorID)
	if err != nil {
		return nil, apperrors.NewInternal(err)
	}

	return &model.TokenResponse{
		AccessToken: token,
		ExpiresIn:   int64(s.jwtSvc.Expiry().Seconds()),
		Role:        user.Role,
	}, nil
}

func (s *Service) ValidateToken(_ context.Context, token string) (*model.TokenClaims, error) {
	claims, err := s.jwtSvc.ValidateToken(token)
	if err != nil {
		return nil, apperrors.Unauthorized(err)
	}
	return claims, nil
}

func errInvalidCredentials() *apperrors.AppError {
	return &apperrors.AppError{
		Code:    apperrors.ErrUnauthorized,
		Message: model.ErrInvalidCredentials.Error(),
		Err:     model.ErrInvalidCredentials,
	}
}
