package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

type userRepository struct {
	BaseRepository
}

func NewUserRepository(base BaseRepository) repository.UserRepository {
	return &userRepository{base}
}

const userColumns = `id, email, password_hash, role, first_name, last_name, phone, created_at, updated_at`

func (r *userRepository) Register(ctx context.Context, user *model.User, doctor *model.Doctor) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO users (`+userColumns+`)
			VALUES (:id, :email, :password_hash, :role, :first_name, :last_name, :phone, :created_at, :updated_at)
		`, user)
		if err != nil {
			if isUniqueViolation(err) {
				return apperrors.NewConflict("email already registered", err)
			}
			return fmt.Errorf("failed to create user: %w", err)
		}

		switch user.Role {
		case model.RoleDoctor:
			if doctor == nil {
				return apperrors.NewInvalidInput("doctor profile is required", nil)
			}
			doctor.UserID = user.ID
			_, err = tx.ExecContext(ctx, `
				INSERT INTO doctors (id, user_id, specialty, fees, profile_percent, profile_complete, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			`, doctor.ID, doctor.UserID, doctor.Specialty, doctor.Fees,
				doctor.ProfilePercent, doctor.ProfileComplete, doctor.CreatedAt, doctor.UpdatedAt)
			if err != nil {
				return fmt.Errorf("failed to create doctor: %w", err)
			}
		default:
			_, err = tx.ExecContext(ctx, `
				INSERT INTO patients (id, profile_percent, created_at, updated_at)
				VALUES ($1, $2, $3, $4)
			`, user.ID, model.PatientBasePercent, user.CreatedAt, user.UpdatedAt)
			if err != nil {
				return fmt.Errorf("failed to create patient: %w", err)
			}
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO wallets (user_id, balance) VALUES ($1, 0) ON CONFLICT (user_id) DO NOTHING`,
			user.ID); err != nil {
			return fmt.Errorf("failed to create wallet: %w", err)
		}
		return nil
	})
}

func (r *userRepository) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id = $1`, id); err != nil {
		return nil, getErr("user", err)
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.db.GetContext(ctx, &user,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email); err != nil {
		return nil, getErr("user", err)
	}
	return &user, nil
}
