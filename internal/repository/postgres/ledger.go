package postgres

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

type ledgerStore struct {
	BaseRepository
}

// NewLedgerStore returns the transactional store behind booking, payment and
// wallet transitions.
func NewLedgerStore(base BaseRepository) repository.LedgerStore {
	return &ledgerStore{base}
}

func (s *ledgerStore) InTx(ctx context.Context, fn func(repository.LedgerTx) error) error {
	return s.WithTx(ctx, func(tx *sqlx.Tx) error {
		return fn(&ledgerTx{tx: tx})
	})
}

type ledgerTx struct {
	tx *sqlx.Tx
}

func (t *ledgerTx) GetDoctor(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	var d model.Doctor
	if err := t.tx.GetContext(ctx, &d, doctorSelect+` WHERE d.id = $1`, id); err != nil {
		return nil, getErr("doctor", err)
	}
	return &d, nil
}

func (t *ledgerTx) LockDoctor(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	var d model.Doctor
	if err := t.tx.GetContext(ctx, &d, doctorSelect+` WHERE d.id = $1 FOR UPDATE OF d`, id); err != nil {
		return nil, getErr("doctor", err)
	}
	return &d, nil
}

func (t *ledgerTx) LockAppointment(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	var a model.Appointment
	err := t.tx.GetContext(ctx, &a,
		`SELECT `+appointmentColumns+` FROM appointments WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		return nil, getErr("appointment", err)
	}
	return &a, nil
}

func (t *ledgerTx) LockWallets(ctx context.Context, userIDs ...uuid.UUID) (map[uuid.UUID]*model.Wallet, error) {
	ids := sortedUnique(userIDs)
	wallets := make(map[uuid.UUID]*model.Wallet, len(ids))
	for _, id := range ids {
		if _, err := t.tx.ExecContext(ctx,
			`INSERT INTO wallets (user_id, balance) VALUES ($1, 0) ON CONFLICT (user_id) DO NOTHING`, id); err != nil {
			return nil, fmt.Errorf("failed to ensure wallet: %w", err)
		}
		var w model.Wallet
		if err := t.tx.GetContext(ctx, &w,
			`SELECT user_id, balance FROM wallets WHERE user_id = $1 FOR UPDATE`, id); err != nil {
			return nil, getErr("wallet", err)
		}
		wallets[id] = &w
	}
	return wallets, nil
}

// sortedUnique orders IDs by their byte value, which matches the canonical
// string order, so every transaction locks wallets in the same sequence.
func sortedUnique(ids []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i][:], out[j][:]) < 0
	})
	return out
}

func (t *ledgerTx) AdjustWallet(ctx context.Context, userID uuid.UUID, delta float64) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE wallets SET balance = balance + $1, updated_at = NOW() WHERE user_id = $2`, delta, userID)
	if err != nil {
		return fmt.Errorf("failed to adjust wallet: %w", err)
	}
	return requireAffected(res, "wallet")
}

func (t *ledgerTx) SlotTaken(ctx context.Context, doctorID uuid.UUID, slot model.Slot) (bool, error) {
	var taken bool
	err := t.tx.GetContext(ctx, &taken, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE doctor_id = $1 AND date = $2 AND time = $3
				AND status IN ('pending', 'accepted')
		)
	`, doctorID, slot.Date, slot.Time)
	if err != nil {
		return false, fmt.Errorf("failed to check slot: %w", err)
	}
	return taken, nil
}

func (t *ledgerTx) InsertAppointment(ctx context.Context, a *model.Appointment) error {
	_, err := t.tx.NamedExecContext(ctx, `
		INSERT INTO appointments (`+appointmentColumns+`)
		VALUES (:id, :patient_id, :doctor_id, :date, :time, :status, :fee, :doctor_credit, :created_at, :updated_at)
	`, a)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewConflict(fmt.Sprintf("slot %s is already booked", a.Slot()), err)
		}
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

func (t *ledgerTx) SetAppointmentStatus(ctx context.Context, id uuid.UUID, status model.AppointmentStatus) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE appointments SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
	}
	return requireAffected(res, "appointment")
}

func (t *ledgerTx) SetDoctorCredit(ctx context.Context, id uuid.UUID, amount float64) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE appointments SET doctor_credit = $1, updated_at = NOW() WHERE id = $2`, amount, id)
	if err != nil {
		return fmt.Errorf("failed to record doctor credit: %w", err)
	}
	return requireAffected(res, "appointment")
}

func (t *ledgerTx) DeleteAppointment(ctx context.Context, id uuid.UUID) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete appointment: %w", err)
	}
	return requireAffected(res, "appointment")
}

func (t *ledgerTx) LockAppointmentsOn(ctx context.Context, doctorID uuid.UUID, date string, status model.AppointmentStatus) ([]*model.Appointment, error) {
	var out []*model.Appointment
	err := t.tx.SelectContext(ctx, &out, `
		SELECT `+appointmentColumns+` FROM appointments
		WHERE doctor_id = $1 AND date = $2 AND status = $3
		ORDER BY time, id
		FOR UPDATE
	`, doctorID, date, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return out, nil
}

func (t *ledgerTx) InsertPayment(ctx context.Context, p *model.Payment) error {
	_, err := t.tx.NamedExecContext(ctx, `
		INSERT INTO payments (`+paymentColumns+`)
		VALUES (:id, :user_id, :appointment_id, :amount, :payment_method, :payment_details, :status, :created_at, :updated_at)
	`, p)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

func (t *ledgerTx) LatestCompletedPayment(ctx context.Context, appointmentID uuid.UUID) (*model.Payment, error) {
	var p model.Payment
	err := t.tx.GetContext(ctx, &p, `
		SELECT `+paymentColumns+` FROM payments
		WHERE appointment_id = $1 AND status = 'completed'
		ORDER BY created_at DESC, id DESC
		LIMIT 1
		FOR UPDATE
	`, appointmentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return &p, nil
}

func (t *ledgerTx) RefundPayment(ctx context.Context, paymentID uuid.UUID) (bool, error) {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE payments SET status = 'refunded', updated_at = NOW()
		WHERE id = $1 AND status = 'completed'
	`, paymentID)
	if err != nil {
		return false, fmt.Errorf("failed to refund payment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n == 1, nil
}

func (t *ledgerTx) InsertNotification(ctx context.Context, n *model.Notification) error {
	_, err := t.tx.NamedExecContext(ctx, `
		INSERT INTO notifications (`+notificationColumns+`)
		VALUES (:id, :user_id, :message, :type, :appointment_id, :read, :created_at)
	`, n)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (t *ledgerTx) DeleteNotifications(ctx context.Context, appointmentID uuid.UUID, typ model.NotificationType) error {
	if _, err := t.tx.ExecContext(ctx,
		`DELETE FROM notifications WHERE appointment_id = $1 AND type = $2`, appointmentID, typ); err != nil {
		return fmt.Errorf("failed to delete notifications: %w", err)
	}
	return nil
}

func (t *ledgerTx) MarkNotificationsRead(ctx context.Context, appointmentID uuid.UUID, typ model.NotificationType) error {
	if _, err := t.tx.ExecContext(ctx,
		`UPDATE notifications SET read = TRUE WHERE appointment_id = $1 AND type = $2`, appointmentID, typ); err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}

func (t *ledgerTx) EnqueueEvent(ctx context.Context, event *model.OutboxEvent) error {
	return insertOutboxEvent(ctx, t.tx, event)
}
