// Package medical holds what a doctor records during a consultation:
// prescriptions with their bill, consultation notes and vitals.
package medical

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

type Service struct {
	prescriptions repository.PrescriptionRepository
	consultations repository.ConsultationRepository
	appointments  repository.AppointmentRepository
	patients      repository.PatientRepository
	doctors       repository.DoctorRepository
	loc           *time.Location
	now           func() time.Time
}

func NewService(
	prescriptions repository.PrescriptionRepository,
	consultations repository.ConsultationRepository,
	appointments repository.AppointmentRepository,
	patients repository.PatientRepository,
	doctors repository.DoctorRepository,
	loc *time.Location,
) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		prescriptions: prescriptions,
		consultations: consultations,
		appointments:  appointments,
		patients:      patients,
		doctors:       doctors,
		loc:           loc,
		now:           time.Now,
	}
}

// SetClock replaces the time source. Tests only.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// doctorAppointment loads an appointment the doctor owns. Anyone else's
// appointment reads as missing.
func (s *Service) doctorAppointment(ctx context.Context, doctorID, appointmentID uuid.UUID) (*model.Appointment, error) {
	appt, err := s.appointments.Get(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if appt.DoctorID != doctorID {
		return nil, apperrors.NewNotFound("appointment", nil)
	}
	return appt, nil
}

func (s *Service) patientAppointment(ctx context.Context, patientID, appointmentID uuid.UUID) (*model.Appointment, error) {
	appt, err := s.appointments.Get(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if appt.PatientID != patientID {
		return nil, apperrors.NewNotFound("appointment", nil)
	}
	return appt, nil
}
