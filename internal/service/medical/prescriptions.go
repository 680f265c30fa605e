package medical

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

// SavePrescriptions records medicines against an accepted appointment of
// the doctor. Zero tablets or duration count as one.
func (s *Service) SavePrescriptions(ctx context.Context, doctorID, appointmentID uuid.UUID, req *model.SavePrescriptionRequest) ([]*model.Prescription, error) {
	if len(req.Medicines) == 0 {
		return nil, apperrors.NewInvalidInput("at least one medicine is required", nil)
	}
	appt, err := s.doctorAppointment(ctx, doctorID, appointmentID)
	if err != nil {
		return nil, err
	}
	if appt.Status != model.AppointmentStatusAccepted {
		return nil, apperrors.NewConflict("prescriptions need an accepted appointment", nil)
	}

	now := s.now().UTC()
	out := make([]*model.Prescription, 0, len(req.Medicines))
	for i, m := range req.Medicines {
		name := strings.TrimSpace(m.MedicineName)
		if name == "" {
			return nil, apperrors.NewInvalidInput(fmt.Sprintf("medicine %d has no name", i+1), nil)
		}
		if m.Tablets < 0 || m.Duration < 0 || m.Price < 0 {
			return nil, apperrors.NewInvalidInput(fmt.Sprintf("medicine %q has a negative value", name), nil)
		}
		tablets, duration := atLeastOne(m.Tablets), atLeastOne(m.Duration)
		out = append(out, &model.Prescription{
			ID:               uuid.New(),
			AppointmentID:    appt.ID,
			MedicineName:     name,
			Tablets:          tablets,
			Timing:           m.Timing,
			BeforeAfterEat:   m.BeforeAfterEat,
			Price:            m.Price,
			Duration:         duration,
			MedicineSupplied: tablets * duration,
			CreatedAt:        now,
		})
	}

	if err := s.prescriptions.CreateBatch(ctx, out); err != nil {
		return nil, fmt.Errorf("failed to save prescriptions: %w", err)
	}
	return out, nil
}

func atLeastOne(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}

func (s *Service) PatientPrescriptions(ctx context.Context, patientID uuid.UUID) ([]*model.PatientPrescription, error) {
	list, err := s.prescriptions.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list prescriptions: %w", err)
	}
	if list == nil {
		list = []*model.PatientPrescription{}
	}
	return list, nil
}

// UpdateConsumed sets how many tablets of a prescription the patient has taken.
func (s *Service) UpdateConsumed(ctx context.Context, patientID, prescriptionID uuid.UUID, consumed int) (*model.Prescription, error) {
	p, err := s.prescriptions.Get(ctx, prescriptionID)
	if err != nil {
		return nil, err
	}
	if _, err := s.patientAppointment(ctx, patientID, p.AppointmentID); err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewNotFound("prescription", nil)
		}
		return nil, err
	}
	if consumed < 0 || consumed > p.MedicineSupplied {
		return nil, apperrors.NewInvalidInput(
			fmt.Sprintf("medicine consumed must be between 0 and %d", p.MedicineSupplied), nil)
	}

	if err := s.prescriptions.UpdateConsumed(ctx, p.ID, consumed); err != nil {
		return nil, fmt.Errorf("failed to update prescription: %w", err)
	}
	p.MedicineConsumed = consumed
	return p, nil
}

// Bill prices every medicine prescribed on the patient's appointment and adds GST.
func (s *Service) Bill(ctx context.Context, patientID, appointmentID uuid.UUID) (*model.Bill, error) {
	appt, err := s.patientAppointment(ctx, patientID, appointmentID)
	if err != nil {
		return nil, err
	}
	items, err := s.prescriptions.ListByAppointment(ctx, appt.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list prescriptions: %w", err)
	}
	if len(items) == 0 {
		return nil, apperrors.NewNotFound("prescriptions", nil)
	}

	patient, err := s.patients.Get(ctx, appt.PatientID)
	if err != nil {
		return nil, err
	}
	doctor, err := s.doctors.Get(ctx, appt.DoctorID)
	if err != nil {
		return nil, err
	}

	bill := &model.Bill{
		PatientName:     patient.FullName(),
		DoctorName:      doctor.DisplayName(),
		DoctorSpecialty: doctor.Specialty,
		AppointmentDate: appt.Date,
		Medicines:       make([]model.BillLine, 0, len(items)),
		GSTRate:         model.GSTRate,
	}
	for _, p := range items {
		line := model.BillLine{
			MedicineName: p.MedicineName,
			Tablets:      p.Tablets,
			Price:        p.Price,
			Duration:     p.Duration,
			Total:        round2(p.Price * float64(p.Duration) * float64(p.Tablets)),
		}
		bill.Subtotal += line.Total
		bill.Medicines = append(bill.Medicines, line)
	}
	bill.Subtotal = round2(bill.Subtotal)
	bill.GSTAmount = round2(bill.Subtotal * model.GSTRate / 100)
	bill.TotalAmount = round2(bill.Subtotal + bill.GSTAmount)
	return bill, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
