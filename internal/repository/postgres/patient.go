package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

type patientRepository struct {
	BaseRepository
}

func NewPatientRepository(base BaseRepository) repository.PatientRepository {
	return &patientRepository{base}
}

func (r *patientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	var p model.Patient
	err := r.db.GetContext(ctx, &p, `
		SELECT p.id, u.first_name, u.last_name, u.email,
			p.latitude, p.longitude, p.city, p.state, p.pincode, p.address_line,
			p.profile_percent, p.created_at, p.updated_at
		FROM patients p JOIN users u ON u.id = p.id
		WHERE p.id = $1
	`, id)
	if err != nil {
		return nil, getErr("patient", err)
	}
	return &p, nil
}

func (r *patientRepository) Update(ctx context.Context, p *model.Patient) error {
	res, err := r.db.NamedExecContext(ctx, `
		UPDATE patients SET
			latitude = :latitude, longitude = :longitude, city = :city, state = :state,
			pincode = :pincode, address_line = :address_line,
			profile_percent = :profile_percent, updated_at = :updated_at
		WHERE id = :id
	`, p)
	if err != nil {
		return fmt.Errorf("failed to update patient: %w", err)
	}
	return requireAffected(res, "patient")
}
