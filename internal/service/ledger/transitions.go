package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

type CancelResult struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	Refunded      float64   `json:"refunded"`
	// Deleted is set when a doctor cancelled and the appointment row is gone.
	Deleted bool `json:"deleted"`
}

// lockOwned locks the appointment and hides it from callers who do not own it.
func lockOwned(ctx context.Context, tx repository.LedgerTx, id uuid.UUID, owns func(*model.Appointment) bool) (*model.Appointment, error) {
	appt, err := tx.LockAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if !owns(appt) {
		return nil, apperrors.NewNotFound("appointment", nil)
	}
	return appt, nil
}

func ownedByDoctor(doctorID uuid.UUID) func(*model.Appointment) bool {
	return func(a *model.Appointment) bool { return a.DoctorID == doctorID }
}

func ownedByPatient(patientID uuid.UUID) func(*model.Appointment) bool {
	return func(a *model.Appointment) bool { return a.PatientID == patientID }
}

// AcceptBooking confirms a pending appointment and pays the doctor.
func (s *Service) AcceptBooking(ctx context.Context, doctorID, appointmentID uuid.UUID) (appt *model.Appointment, err error) {
	defer func() { s.record(opAccept, err) }()

	var credit float64
	err = s.store.InTx(ctx, func(tx repository.LedgerTx) error {
		var err error
		appt, err = lockOwned(ctx, tx, appointmentID, ownedByDoctor(doctorID))
		if err != nil {
			return err
		}
		if appt.Status != model.AppointmentStatusPending {
			return apperrors.NewConflict(fmt.Sprintf("appointment is %s, only pending bookings can be accepted", appt.Status), nil)
		}

		doctor, err := tx.GetDoctor(ctx, doctorID)
		if err != nil {
			return err
		}
		credit = doctor.Fees
		if credit <= 0 {
			credit = SpecialtyFee(doctor.Specialty)
		}

		if err := tx.SetAppointmentStatus(ctx, appt.ID, model.AppointmentStatusAccepted); err != nil {
			return fmt.Errorf("failed to accept appointment: %w", err)
		}
		appt.Status = model.AppointmentStatusAccepted

		if credit > 0 {
			if _, err := tx.LockWallets(ctx, doctor.UserID); err != nil {
				return fmt.Errorf("failed to lock wallet: %w", err)
			}
			if err := tx.AdjustWallet(ctx, doctor.UserID, credit); err != nil {
				return fmt.Errorf("failed to credit doctor wallet: %w", err)
			}
			if err := tx.SetDoctorCredit(ctx, appt.ID, credit); err != nil {
				return err
			}
			appt.DoctorCredit = credit
		}

		msg := fmt.Sprintf("Your appointment with %s on %s at %s has been accepted.", doctor.DisplayName(), appt.Date, appt.Time)
		if err := s.notify(ctx, tx, appt.PatientID, model.NotificationAppointmentAccepted, &appt.ID, msg); err != nil {
			return err
		}
		if err := tx.DeleteNotifications(ctx, appt.ID, model.NotificationAppointmentRequest); err != nil {
			return fmt.Errorf("failed to clear request notification: %w", err)
		}
		return s.enqueue(ctx, tx, model.EventAppointmentAccepted, model.LedgerEvent{
			AppointmentIDs: []uuid.UUID{appt.ID},
			PatientID:      appt.PatientID,
			DoctorID:       doctorID,
			Amount:         credit,
			Recipient:      appt.PatientID,
			Message:        msg,
		})
	})
	if err != nil {
		return nil, err
	}
	s.observeVolume("credit", credit)
	return appt, nil
}

// RejectBooking declines a pending or accepted appointment and refunds the
// patient. The appointment row is kept.
func (s *Service) RejectBooking(ctx context.Context, doctorID, appointmentID uuid.UUID, deleteNotification bool) (appt *model.Appointment, refunded float64, err error) {
	defer func() { s.record(opReject, err) }()

	err = s.store.InTx(ctx, func(tx repository.LedgerTx) error {
		var err error
		appt, err = lockOwned(ctx, tx, appointmentID, ownedByDoctor(doctorID))
		if err != nil {
			return err
		}
		switch appt.Status {
		case model.AppointmentStatusRejected:
			return apperrors.NewConflict("appointment already rejected", nil)
		case model.AppointmentStatusPending, model.AppointmentStatusAccepted:
		default:
			return apperrors.NewConflict(fmt.Sprintf("appointment is %s, only pending or accepted bookings can be rejected", appt.Status), nil)
		}

		doctor, err := tx.GetDoctor(ctx, doctorID)
		if err != nil {
			return err
		}
		if refunded, err = s.refund(ctx, tx, appt, doctor, clawbackRefund); err != nil {
			return err
		}

		if err := tx.SetAppointmentStatus(ctx, appt.ID, model.AppointmentStatusRejected); err != nil {
			return fmt.Errorf("failed to reject appointment: %w", err)
		}
		appt.Status = model.AppointmentStatusRejected

		msg := fmt.Sprintf("Your appointment with %s on %s at %s has been rejected.", doctor.DisplayName(), appt.Date, appt.Time)
		if refunded > 0 {
			msg += fmt.Sprintf(" Rs %.2f has been refunded to your wallet.", refunded)
		}
		if err := s.notify(ctx, tx, appt.PatientID, model.NotificationAppointmentRejected, &appt.ID, msg); err != nil {
			return err
		}

		if deleteNotification {
			err = tx.DeleteNotifications(ctx, appt.ID, model.NotificationAppointmentRequest)
		} else {
			err = tx.MarkNotificationsRead(ctx, appt.ID, model.NotificationAppointmentRequest)
		}
		if err != nil {
			return fmt.Errorf("failed to update request notification: %w", err)
		}

		return s.enqueue(ctx, tx, model.EventAppointmentRejected, model.LedgerEvent{
			AppointmentIDs: []uuid.UUID{appt.ID},
			PatientID:      appt.PatientID,
			DoctorID:       doctorID,
			Amount:         refunded,
			Recipient:      appt.PatientID,
			Message:        msg,
		})
	})
	if err != nil {
		return nil, 0, err
	}
	s.observeVolume("refund", refunded)
	return appt, refunded, nil
}

// CancelBooking cancels on behalf of either party. A patient cancel keeps the
// row as cancelled; a doctor cancel deletes it. Both refund the patient.
func (s *Service) CancelBooking(ctx context.Context, actor model.Actor, appointmentID uuid.UUID) (result *CancelResult, err error) {
	defer func() { s.record(opCancel, err) }()

	switch actor.Role {
	case model.RolePatient, model.RoleDoctor:
	default:
		return nil, apperrors.Forbidden("only patients and doctors can cancel appointments")
	}

	err = s.store.InTx(ctx, func(tx repository.LedgerTx) error {
		var err error
		if actor.Role == model.RoleDoctor {
			var appt *model.Appointment
			appt, err = lockOwned(ctx, tx, appointmentID, ownedByDoctor(actor.ID))
			if err != nil {
				return err
			}
			doctor, err := tx.GetDoctor(ctx, actor.ID)
			if err != nil {
				return err
			}
			result, err = s.doctorCancel(ctx, tx, appt, doctor)
			return err
		}
		result, err = s.patientCancel(ctx, tx, actor.ID, appointmentID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.observeVolume("refund", result.Refunded)
	return result, nil
}

func (s *Service) patientCancel(ctx context.Context, tx repository.LedgerTx, patientID, appointmentID uuid.UUID) (*CancelResult, error) {
	appt, err := lockOwned(ctx, tx, appointmentID, ownedByPatient(patientID))
	if err != nil {
		return nil, err
	}
	if !appt.Status.CanTransition(model.AppointmentStatusCancelled) {
		return nil, apperrors.NewConflict(fmt.Sprintf("cannot cancel a %s appointment", appt.Status), nil)
	}

	doctor, err := tx.GetDoctor(ctx, appt.DoctorID)
	if err != nil {
		return nil, err
	}
	refunded, err := s.refund(ctx, tx, appt, doctor, clawbackCredit)
	if err != nil {
		return nil, err
	}
	if err := tx.SetAppointmentStatus(ctx, appt.ID, model.AppointmentStatusCancelled); err != nil {
		return nil, fmt.Errorf("failed to cancel appointment: %w", err)
	}

	msg := fmt.Sprintf("The appointment on %s at %s has been cancelled by the patient.", appt.Date, appt.Time)
	if err := s.notify(ctx, tx, doctor.UserID, model.NotificationAppointmentCancelled, &appt.ID, msg); err != nil {
		return nil, err
	}
	if err := s.enqueue(ctx, tx, model.EventAppointmentCancelled, model.LedgerEvent{
		AppointmentIDs: []uuid.UUID{appt.ID},
		PatientID:      appt.PatientID,
		DoctorID:       appt.DoctorID,
		Amount:         refunded,
		Recipient:      doctor.UserID,
		Message:        msg,
	}); err != nil {
		return nil, err
	}
	return &CancelResult{AppointmentID: appt.ID, Refunded: refunded}, nil
}

// doctorCancel refunds the patient and deletes the appointment. Payments
// survive with their appointment link cleared.
func (s *Service) doctorCancel(ctx context.Context, tx repository.LedgerTx, appt *model.Appointment, doctor *model.Doctor) (*CancelResult, error) {
	if !appt.Status.Holds() {
		return nil, apperrors.NewConflict(fmt.Sprintf("cannot cancel a %s appointment", appt.Status), nil)
	}

	refunded, err := s.refund(ctx, tx, appt, doctor, clawbackCredit)
	if err != nil {
		return nil, err
	}
	if err := tx.DeleteAppointment(ctx, appt.ID); err != nil {
		return nil, fmt.Errorf("failed to delete appointment: %w", err)
	}

	msg := fmt.Sprintf("Your appointment with %s on %s at %s has been cancelled.", doctor.DisplayName(), appt.Date, appt.Time)
	if refunded > 0 {
		msg += fmt.Sprintf(" Rs %.2f has been refunded to your wallet.", refunded)
	}
	if err := s.notify(ctx, tx, appt.PatientID, model.NotificationAppointmentCancelled, nil, msg); err != nil {
		return nil, err
	}
	if err := s.enqueue(ctx, tx, model.EventAppointmentCancelled, model.LedgerEvent{
		AppointmentIDs: []uuid.UUID{appt.ID},
		PatientID:      appt.PatientID,
		DoctorID:       doctor.ID,
		Amount:         refunded,
		Recipient:      appt.PatientID,
		Message:        msg,
	}); err != nil {
		return nil, err
	}
	return &CancelResult{AppointmentID: appt.ID, Refunded: refunded, Deleted: true}, nil
}

// CancelByDate doctor-cancels every accepted appointment on date and returns
// how many were cancelled.
func (s *Service) CancelByDate(ctx context.Context, doctorID uuid.UUID, date string) (results []*CancelResult, err error) {
	defer func() { s.record(opCancelByDate, err) }()

	if _, err := (model.Slot{Date: date, Time: "00:00"}).Start(s.loc); err != nil {
		return nil, apperrors.NewInvalidInput(fmt.Sprintf("invalid date %q", date), err)
	}

	err = s.store.InTx(ctx, func(tx repository.LedgerTx) error {
		doctor, err := tx.GetDoctor(ctx, doctorID)
		if err != nil {
			return err
		}
		appts, err := tx.LockAppointmentsOn(ctx, doctorID, date, model.AppointmentStatusAccepted)
		if err != nil {
			return fmt.Errorf("failed to lock appointments: %w", err)
		}
		if len(appts) == 0 {
			return apperrors.NewNotFound(fmt.Sprintf("accepted appointments on %s", date), nil)
		}
		for _, appt := range appts {
			res, err := s.doctorCancel(ctx, tx, appt, doctor)
			if err != nil {
				return err
			}
			results = append(results, res)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, res := range results {
		s.observeVolume("refund", res.Refunded)
	}
	return results, nil
}
