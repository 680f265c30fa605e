package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

type BookingRequest struct {
	PatientID uuid.UUID
	DoctorID  uuid.UUID
	Slots     []model.Slot
	Method    model.PaymentMethod
	// Details is the card number or UPI ID. It is stored sealed.
	Details string
}

type BookingResult struct {
	Appointments []*model.Appointment `json:"appointments"`
	Fee          float64              `json:"fee"`
	Total        float64              `json:"total"`
}

// CreateBooking books every requested slot with the doctor or none of them.
func (s *Service) CreateBooking(ctx context.Context, req BookingRequest) (result *BookingResult, err error) {
	defer func() { s.record(opCreateBooking, err) }()

	slots, err := s.validateSlots(req.Slots)
	if err != nil {
		return nil, err
	}
	details, err := s.sealDetails(req.Method, req.Details)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	result = &BookingResult{}
	err = s.store.InTx(ctx, func(tx repository.LedgerTx) error {
		doctor, err := tx.LockDoctor(ctx, req.DoctorID)
		if err != nil {
			return err
		}

		for _, slot := range slots {
			taken, err := tx.SlotTaken(ctx, doctor.ID, slot)
			if err != nil {
				return fmt.Errorf("failed to check slot: %w", err)
			}
			if taken {
				return apperrors.NewConflict(fmt.Sprintf("slot %s is already booked", slot), nil)
			}
		}

		fee := SpecialtyFee(doctor.Specialty)
		total := fee * float64(len(slots))
		result.Fee, result.Total = fee, total

		if req.Method == model.PaymentMethodWallet {
			wallets, err := tx.LockWallets(ctx, req.PatientID)
			if err != nil {
				return fmt.Errorf("failed to lock wallet: %w", err)
			}
			if balance := wallets[req.PatientID].Balance; balance < total {
				return apperrors.NewInsufficientFunds(total, balance)
			}
			if err := tx.AdjustWallet(ctx, req.PatientID, -total); err != nil {
				return fmt.Errorf("failed to debit wallet: %w", err)
			}
		}

		for _, slot := range slots {
			appt := &model.Appointment{
				Base:      model.NewBase(now),
				PatientID: req.PatientID,
				DoctorID:  doctor.ID,
				Date:      slot.Date,
				Time:      slot.Time,
				Status:    model.AppointmentStatusPending,
				Fee:       fee,
			}
			if err := tx.InsertAppointment(ctx, appt); err != nil {
				return err
			}
			payment := &model.Payment{
				Base:          model.NewBase(now),
				UserID:        req.PatientID,
				AppointmentID: &appt.ID,
				Amount:        fee,
				Method:        req.Method,
				Details:       details,
				Status:        model.PaymentStatusCompleted,
			}
			if err := tx.InsertPayment(ctx, payment); err != nil {
				return fmt.Errorf("failed to record payment: %w", err)
			}
			result.Appointments = append(result.Appointments, appt)
		}

		first := result.Appointments[0]
		msg := fmt.Sprintf("New appointment request for %s", joinSlots(slots))
		if err := s.notify(ctx, tx, doctor.UserID, model.NotificationAppointmentRequest, &first.ID, msg); err != nil {
			return err
		}
		return s.enqueue(ctx, tx, model.EventAppointmentRequested, model.LedgerEvent{
			AppointmentIDs: appointmentIDs(result.Appointments),
			PatientID:      req.PatientID,
			DoctorID:       doctor.ID,
			Amount:         total,
			Recipient:      doctor.UserID,
			Message:        msg,
		})
	})
	if err != nil {
		return nil, err
	}

	if s.pending != nil {
		s.pending.Delete(req.PatientID)
	}
	if req.Method == model.PaymentMethodWallet {
		s.observeVolume("debit", result.Total)
	}
	s.log.Info("booking created",
		"patient_id", req.PatientID.String(),
		"doctor_id", req.DoctorID.String(),
		"slots", len(result.Appointments),
		"total", result.Total,
	)
	return result, nil
}

// Quote prices slots against the doctor's specialty without booking them.
func (s *Service) Quote(doctor *model.Doctor, slots []model.Slot) float64 {
	return SpecialtyFee(doctor.Specialty) * float64(len(model.DedupeSlots(slots)))
}

func (s *Service) validateSlots(in []model.Slot) ([]model.Slot, error) {
	if len(in) == 0 {
		return nil, apperrors.NewInvalidInput("at least one slot is required", nil)
	}
	slots := model.DedupeSlots(in)
	now := s.now()
	for _, slot := range slots {
		start, err := slot.Start(s.loc)
		if err != nil {
			return nil, apperrors.NewInvalidInput(fmt.Sprintf("invalid slot %s", slot), err)
		}
		if !start.After(now) {
			return nil, apperrors.NewInvalidInput(fmt.Sprintf("slot %s is in the past", slot), nil)
		}
	}
	return slots, nil
}

func (s *Service) sealDetails(method model.PaymentMethod, details string) (string, error) {
	switch method {
	case model.PaymentMethodWallet:
		return "", nil
	case model.PaymentMethodCard, model.PaymentMethodUPI:
		details = strings.TrimSpace(details)
		if details == "" {
			return "", apperrors.NewInvalidInput(fmt.Sprintf("%s details are required", method), nil)
		}
		sealed, err := s.sealer.Seal(details)
		if err != nil {
			return "", apperrors.NewInternal(err)
		}
		return sealed, nil
	default:
		return "", apperrors.NewInvalidInput(fmt.Sprintf("unsupported payment method %q", method), nil)
	}
}

func joinSlots(slots []model.Slot) string {
	parts := make([]string, len(slots))
	for i, slot := range slots {
		parts[i] = slot.String()
	}
	return strings.Join(parts, ", ")
}

func appointmentIDs(appts []*model.Appointment) []uuid.UUID {
	ids := make([]uuid.UUID, len(appts))
	for i, a := range appts {
		ids[i] = a.ID
	}
	return ids
}
