package medical

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

// SaveNotes creates or replaces the notes of one of the doctor's appointments.
func (s *Service) SaveNotes(ctx context.Context, doctorID, appointmentID uuid.UUID, req *model.SaveNotesRequest) (*model.ConsultationNote, error) {
	appt, err := s.doctorAppointment(ctx, doctorID, appointmentID)
	if err != nil {
		return nil, err
	}
	note := &model.ConsultationNote{
		AppointmentID: appt.ID,
		Notes:         req.Notes,
		Diagnosis:     req.Diagnosis,
		UpdatedAt:     s.now().UTC(),
	}
	if err := s.consultations.UpsertNotes(ctx, note); err != nil {
		return nil, fmt.Errorf("failed to save notes: %w", err)
	}
	return note, nil
}

func (s *Service) Notes(ctx context.Context, doctorID, appointmentID uuid.UUID) (*model.ConsultationNote, error) {
	appt, err := s.doctorAppointment(ctx, doctorID, appointmentID)
	if err != nil {
		return nil, err
	}
	return s.consultations.GetNotes(ctx, appt.ID)
}

// RecordVitals stamps a reading with today's clinic date. The doctor must
// have seen the patient before.
func (s *Service) RecordVitals(ctx context.Context, doctorID, patientID uuid.UUID, req *model.SaveVitalsRequest) (*model.Vitals, error) {
	if req.Weight == nil || req.Height == nil || req.BPSystolic == nil || req.BPDiastolic == nil {
		return nil, apperrors.NewInvalidInput("weight, height and blood pressure are required", nil)
	}
	if *req.Weight <= 0 || *req.Height <= 0 || *req.BPSystolic <= 0 || *req.BPDiastolic <= 0 {
		return nil, apperrors.NewInvalidInput("vitals must be positive", nil)
	}

	seen, err := s.appointments.List(ctx, model.AppointmentFilters{PatientID: &patientID, DoctorID: &doctorID})
	if err != nil {
		return nil, fmt.Errorf("failed to check appointments: %w", err)
	}
	if len(seen) == 0 {
		return nil, apperrors.NewNotFound("patient", nil)
	}

	now := s.now()
	v := &model.Vitals{
		ID:          uuid.New(),
		PatientID:   patientID,
		Weight:      *req.Weight,
		Height:      *req.Height,
		BPSystolic:  *req.BPSystolic,
		BPDiastolic: *req.BPDiastolic,
		Date:        now.In(s.loc).Format(model.SlotDateLayout),
		CreatedAt:   now.UTC(),
	}
	if err := s.consultations.AddVitals(ctx, v); err != nil {
		return nil, fmt.Errorf("failed to save vitals: %w", err)
	}
	return v, nil
}

func (s *Service) Vitals(ctx context.Context, patientID uuid.UUID) ([]*model.Vitals, error) {
	list, err := s.consultations.ListVitals(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list vitals: %w", err)
	}
	if list == nil {
		list = []*model.Vitals{}
	}
	return list, nil
}
