// Package ledger moves money between patient and doctor wallets as
// appointments are booked, accepted, rejected and cancelled. Every operation
// runs in a single store transaction and either applies completely or not at all.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
	"github.com/jwalitptl/clinic-api/pkg/security"
)

const (
	// MaxTopUp is the largest single AddFunds amount.
	MaxTopUp = 50000.0

	opCreateBooking = "create_booking"
	opAccept        = "accept"
	opReject        = "reject"
	opCancel        = "cancel"
	opCancelByDate  = "cancel_by_date"
	opAddFunds      = "add_funds"
)

// PendingBookings is the part of the pending booking store the ledger needs.
type PendingBookings interface {
	Delete(patientID uuid.UUID)
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the zone slot dates and times are read in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

func WithPendingBookings(p PendingBookings) Option {
	return func(s *Service) { s.pending = p }
}

type Service struct {
	store   repository.LedgerStore
	sealer  security.Sealer
	metrics *metrics.Metrics
	log     *logger.Logger
	pending PendingBookings
	loc     *time.Location
	now     func() time.Time
}

func NewService(store repository.LedgerStore, sealer security.Sealer, m *metrics.Metrics, log *logger.Logger, opts ...Option) *Service {
	s := &Service{
		store:   store,
		sealer:  sealer,
		metrics: m,
		log:     log,
		loc:     time.UTC,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// record counts the outcome of op. Client-side failures count as rejected,
// anything else as an error and is logged.
func (s *Service) record(op string, err error) {
	outcome := "success"
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && appErr.Code != apperrors.ErrInternal {
			outcome = "rejected"
		} else {
			outcome = "error"
			s.log.Error(err, "ledger operation failed", "operation", op)
		}
	}
	s.metrics.LedgerOperations.WithLabelValues(op, outcome).Inc()
}

func (s *Service) notify(ctx context.Context, tx repository.LedgerTx, userID uuid.UUID, typ model.NotificationType, appointmentID *uuid.UUID, msg string) error {
	n := &model.Notification{
		ID:            uuid.New(),
		UserID:        userID,
		Message:       msg,
		Type:          typ,
		AppointmentID: appointmentID,
		CreatedAt:     s.now().UTC(),
	}
	if err := tx.InsertNotification(ctx, n); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (s *Service) enqueue(ctx context.Context, tx repository.LedgerTx, eventType string, payload model.LedgerEvent) error {
	event, err := model.NewOutboxEvent(eventType, payload, s.now().UTC())
	if err != nil {
		return err
	}
	if err := tx.EnqueueEvent(ctx, event); err != nil {
		return fmt.Errorf("failed to enqueue %s: %w", eventType, err)
	}
	return nil
}

// clawback picks what is taken back from a doctor who was already paid.
type clawback int

const (
	// clawbackRefund debits the doctor whatever the patient gets back.
	clawbackRefund clawback = iota
	// clawbackCredit debits the doctor exactly what accepting credited.
	clawbackCredit
)

// refund returns the latest completed payment for appt to the patient and,
// when the appointment was accepted, takes the doctor's share back per claw.
// It must run before the appointment changes state.
func (s *Service) refund(ctx context.Context, tx repository.LedgerTx, appt *model.Appointment, doctor *model.Doctor, claw clawback) (float64, error) {
	payment, err := tx.LatestCompletedPayment(ctx, appt.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to find payment: %w", err)
	}
	var refunded float64
	if payment != nil && payment.Amount > 0 {
		refunded = payment.Amount
	}

	var debit float64
	if appt.Status == model.AppointmentStatusAccepted {
		debit = refunded
		if claw == clawbackCredit {
			debit = appt.DoctorCredit
		}
	}
	if refunded <= 0 && debit <= 0 {
		return 0, nil
	}

	if _, err := tx.LockWallets(ctx, appt.PatientID, doctor.UserID); err != nil {
		return 0, fmt.Errorf("failed to lock wallets: %w", err)
	}
	if refunded > 0 {
		ok, err := tx.RefundPayment(ctx, payment.ID)
		if err != nil {
			return 0, fmt.Errorf("failed to refund payment: %w", err)
		}
		if !ok {
			return 0, apperrors.NewConflict("payment was already refunded", nil)
		}
		if err := tx.AdjustWallet(ctx, appt.PatientID, refunded); err != nil {
			return 0, fmt.Errorf("failed to credit patient wallet: %w", err)
		}
	}
	if debit > 0 {
		if err := tx.AdjustWallet(ctx, doctor.UserID, -debit); err != nil {
			return 0, fmt.Errorf("failed to debit doctor wallet: %w", err)
		}
	}
	return refunded, nil
}

func (s *Service) observeVolume(direction string, amount float64) {
	if amount > 0 {
		s.metrics.WalletVolume.WithLabelValues(direction).Add(amount)
	}
}

// twoDecimals reports whether amount has at most two decimal places.
func twoDecimals(amount float64) bool {
	scaled := amount * 100
	return math.Abs(scaled-math.Round(scaled)) <= 1e-6
}
