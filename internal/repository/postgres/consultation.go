package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

type consultationRepository struct {
	BaseRepository
}

func NewConsultationRepository(base BaseRepository) repository.ConsultationRepository {
	return &consultationRepository{base}
}

func (r *consultationRepository) UpsertNotes(ctx context.Context, note *model.ConsultationNote) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO consultation_notes (appointment_id, notes, diagnosis, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (appointment_id) DO UPDATE
		SET notes = EXCLUDED.notes, diagnosis = EXCLUDED.diagnosis, updated_at = EXCLUDED.updated_at
	`, note.AppointmentID, note.Notes, note.Diagnosis, note.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save consultation notes: %w", err)
	}
	return nil
}

func (r *consultationRepository) GetNotes(ctx context.Context, appointmentID uuid.UUID) (*model.ConsultationNote, error) {
	var n model.ConsultationNote
	err := r.db.GetContext(ctx, &n, `
		SELECT appointment_id, notes, diagnosis, updated_at
		FROM consultation_notes WHERE appointment_id = $1
	`, appointmentID)
	if err != nil {
		return nil, getErr("consultation notes", err)
	}
	return &n, nil
}

func (r *consultationRepository) AddVitals(ctx context.Context, v *model.Vitals) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO vitals (id, patient_id, weight, height, bp_systolic, bp_diastolic, date, created_at)
		VALUES (:id, :patient_id, :weight, :height, :bp_systolic, :bp_diastolic, :date, :created_at)
	`, v)
	if err != nil {
		return fmt.Errorf("failed to save vitals: %w", err)
	}
	return nil
}

func (r *consultationRepository) ListVitals(ctx context.Context, patientID uuid.UUID) ([]*model.Vitals, error) {
	var out []*model.Vitals
	err := r.db.SelectContext(ctx, &out, `
		SELECT id, patient_id, weight, height, bp_systolic, bp_diastolic, date, created_at
		FROM vitals WHERE patient_id = $1
		ORDER BY created_at, id
	`, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list vitals: %w", err)
	}
	return out, nil
}
