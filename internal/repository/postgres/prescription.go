package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

const prescriptionColumns = `id, appointment_id, medicine_name, tablets, timing, before_after_eat,
	price, duration, medicine_supplied, medicine_consumed, created_at`

type prescriptionRepository struct {
	BaseRepository
}

func NewPrescriptionRepository(base BaseRepository) repository.PrescriptionRepository {
	return &prescriptionRepository{base}
}

func (r *prescriptionRepository) CreateBatch(ctx context.Context, prescriptions []*model.Prescription) error {
	if len(prescriptions) == 0 {
		return nil
	}
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO prescriptions (`+prescriptionColumns+`)
			VALUES (:id, :appointment_id, :medicine_name, :tablets, :timing, :before_after_eat,
				:price, :duration, :medicine_supplied, :medicine_consumed, :created_at)
		`, prescriptions)
		if err != nil {
			return fmt.Errorf("failed to create prescriptions: %w", err)
		}
		return nil
	})
}

func (r *prescriptionRepository) Get(ctx context.Context, id uuid.UUID) (*model.Prescription, error) {
	var p model.Prescription
	if err := r.db.GetContext(ctx, &p, `SELECT `+prescriptionColumns+` FROM prescriptions WHERE id = $1`, id); err != nil {
		return nil, getErr("prescription", err)
	}
	return &p, nil
}

func (r *prescriptionRepository) UpdateConsumed(ctx context.Context, id uuid.UUID, consumed int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE prescriptions SET medicine_consumed = $1 WHERE id = $2`, consumed, id)
	if err != nil {
		return fmt.Errorf("failed to update prescription: %w", err)
	}
	return requireAffected(res, "prescription")
}

func (r *prescriptionRepository) ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]*model.Prescription, error) {
	var out []*model.Prescription
	err := r.db.SelectContext(ctx, &out, `
		SELECT `+prescriptionColumns+` FROM prescriptions
		WHERE appointment_id = $1
		ORDER BY created_at, id
	`, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list prescriptions: %w", err)
	}
	return out, nil
}

func (r *prescriptionRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.PatientPrescription, error) {
	var out []*model.PatientPrescription
	err := r.db.SelectContext(ctx, &out, `
		SELECT p.id, p.appointment_id, p.medicine_name, p.tablets, p.timing, p.before_after_eat,
			p.price, p.duration, p.medicine_supplied, p.medicine_consumed, p.created_at,
			a.date AS appointment_date,
			'Dr. ' || du.first_name || ' ' || du.last_name AS doctor_name
		FROM prescriptions p
		JOIN appointments a ON a.id = p.appointment_id
		JOIN doctors d ON d.id = a.doctor_id
		JOIN users du ON du.id = d.user_id
		WHERE a.patient_id = $1
		ORDER BY a.date DESC, p.created_at, p.id
	`, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list patient prescriptions: %w", err)
	}
	return out, nil
}
