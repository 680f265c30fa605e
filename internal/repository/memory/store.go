// Package memory is an in-process implementation of the repository
// interfaces. A single mutex serializes every operation and InTx restores a
// snapshot when its function fails, so it honors the same transactional
// contract as the postgres store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

type state struct {
	users         map[uuid.UUID]model.User
	patients      map[uuid.UUID]model.Patient
	doctors       map[uuid.UUID]model.Doctor
	wallets       map[uuid.UUID]float64
	appointments  map[uuid.UUID]model.Appointment
	payments      []model.Payment
	notifications []model.Notification
	prescriptions []model.Prescription
	notes         map[uuid.UUID]model.ConsultationNote
	vitals        []model.Vitals
	outbox        []model.OutboxEvent
}

func newState() *state {
	return &state{
		users:        make(map[uuid.UUID]model.User),
		patients:     make(map[uuid.UUID]model.Patient),
		doctors:      make(map[uuid.UUID]model.Doctor),
		wallets:      make(map[uuid.UUID]float64),
		appointments: make(map[uuid.UUID]model.Appointment),
		notes:        make(map[uuid.UUID]model.ConsultationNote),
	}
}

func (s *state) clone() *state {
	c := &state{
		users:         make(map[uuid.UUID]model.User, len(s.users)),
		patients:      make(map[uuid.UUID]model.Patient, len(s.patients)),
		doctors:       make(map[uuid.UUID]model.Doctor, len(s.doctors)),
		wallets:       make(map[uuid.UUID]float64, len(s.wallets)),
		appointments:  make(map[uuid.UUID]model.Appointment, len(s.appointments)),
		payments:      append([]model.Payment(nil), s.payments...),
		notifications: append([]model.Notification(nil), s.notifications...),
		prescriptions: append([]model.Prescription(nil), s.prescriptions...),
		notes:         make(map[uuid.UUID]model.ConsultationNote, len(s.notes)),
		vitals:        append([]model.Vitals(nil), s.vitals...),
		outbox:        append([]model.OutboxEvent(nil), s.outbox...),
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.patients {
		c.patients[k] = v
	}
	for k, v := range s.doctors {
		c.doctors[k] = v
	}
	for k, v := range s.wallets {
		c.wallets[k] = v
	}
	for k, v := range s.appointments {
		c.appointments[k] = v
	}
	for k, v := range s.notes {
		c.notes[k] = v
	}
	return c
}

// Store holds all entities in memory.
type Store struct {
	mu sync.Mutex
	st *state

	// outboxMu serializes outbox batches; it is never held with mu.
	outboxMu sync.Mutex
}

func NewStore() *Store {
	return &Store{st: newState()}
}

func (s *Store) Users() repository.UserRepository { return userRepo{s} }
func (s *Store) Doctors() repository.DoctorRepository { return doctorRepo{s} }
func (s *Store) Patients() repository.PatientRepository { return patientRepo{s} }
func (s *Store) Appointments() repository.AppointmentRepository { return appointmentRepo{s} }
func (s *Store) Wallets() repository.WalletRepository { return walletRepo{s} }
func (s *Store) Notifications() repository.NotificationRepository { return notificationRepo{s} }
func (s *Store) Prescriptions() repository.PrescriptionRepository { return prescriptionRepo{s} }
func (s *Store) Consultations() repository.ConsultationRepository { return consultationRepo{s} }
func (s *Store) Outbox() repository.OutboxRepository { return outboxRepo{s} }

// InTx implements repository.LedgerStore.
func (s *Store) InTx(ctx context.Context, fn func(repository.LedgerTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	snapshot := s.st.clone()
	committed := false
	defer func() {
		if !committed {
			s.st = snapshot
		}
	}()

	if err := fn(&ledgerTx{st: s.st}); err != nil {
		return err
	}
	committed = true
	return nil
}

// view runs fn under the store lock.
func (s *Store) view(fn func(st *state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.st)
}

type ledgerTx struct {
	st *state
}

func (t *ledgerTx) GetDoctor(_ context.Context, id uuid.UUID) (*model.Doctor, error) {
	return t.st.doctor(id)
}

// LockDoctor is GetDoctor: the store lock already serializes the transaction.
func (t *ledgerTx) LockDoctor(_ context.Context, id uuid.UUID) (*model.Doctor, error) {
	return t.st.doctor(id)
}

func (t *ledgerTx) LockAppointment(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	a, ok := t.st.appointments[id]
	if !ok {
		return nil, apperrors.NewNotFound("appointment", nil)
	}
	return &a, nil
}

func (t *ledgerTx) LockWallets(_ context.Context, userIDs ...uuid.UUID) (map[uuid.UUID]*model.Wallet, error) {
	out := make(map[uuid.UUID]*model.Wallet, len(userIDs))
	for _, id := range userIDs {
		if _, ok := t.st.wallets[id]; !ok {
			t.st.wallets[id] = 0
		}
		out[id] = &model.Wallet{UserID: id, Balance: t.st.wallets[id]}
	}
	return out, nil
}

func (t *ledgerTx) AdjustWallet(_ context.Context, userID uuid.UUID, delta float64) error {
	bal, ok := t.st.wallets[userID]
	if !ok {
		return apperrors.NewNotFound("wallet", nil)
	}
	t.st.wallets[userID] = bal + delta
	return nil
}

func (t *ledgerTx) SlotTaken(_ context.Context, doctorID uuid.UUID, slot model.Slot) (bool, error) {
	return t.st.slotTaken(doctorID, slot), nil
}

func (t *ledgerTx) InsertAppointment(_ context.Context, a *model.Appointment) error {
	if a.Status.Holds() && t.st.slotTaken(a.DoctorID, a.Slot()) {
		return apperrors.NewConflict(fmt.Sprintf("slot %s is already booked", a.Slot()), nil)
	}
	t.st.appointments[a.ID] = *a
	return nil
}

func (t *ledgerTx) SetAppointmentStatus(_ context.Context, id uuid.UUID, status model.AppointmentStatus) error {
	a, ok := t.st.appointments[id]
	if !ok {
		return apperrors.NewNotFound("appointment", nil)
	}
	a.Status = status
	t.st.appointments[id] = a
	return nil
}

func (t *ledgerTx) SetDoctorCredit(_ context.Context, id uuid.UUID, amount float64) error {
	a, ok := t.st.appointments[id]
	if !ok {
		return apperrors.NewNotFound("appointment", nil)
	}
	a.DoctorCredit = amount
	t.st.appointments[id] = a
	return nil
}

func (t *ledgerTx) DeleteAppointment(_ context.Context, id uuid.UUID) error {
	if _, ok := t.st.appointments[id]; !ok {
		return apperrors.NewNotFound("appointment", nil)
	}
	delete(t.st.appointments, id)

	// Mirror the foreign keys: links are nulled, dependants cascade.
	for i := range t.st.payments {
		if p := t.st.payments[i].AppointmentID; p != nil && *p == id {
			t.st.payments[i].AppointmentID = nil
		}
	}
	for i := range t.st.notifications {
		if n := t.st.notifications[i].AppointmentID; n != nil && *n == id {
			t.st.notifications[i].AppointmentID = nil
		}
	}
	kept := t.st.prescriptions[:0]
	for _, p := range t.st.prescriptions {
		if p.AppointmentID != id {
			kept = append(kept, p)
		}
	}
	t.st.prescriptions = kept
	delete(t.st.notes, id)
	return nil
}

func (t *ledgerTx) LockAppointmentsOn(_ context.Context, doctorID uuid.UUID, date string, status model.AppointmentStatus) ([]*model.Appointment, error) {
	var out []*model.Appointment
	for _, a := range t.st.appointments {
		if a.DoctorID == doctorID && a.Date == date && a.Status == status {
			a := a
			out = append(out, &a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Time != out[j].Time {
			return out[i].Time < out[j].Time
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (t *ledgerTx) InsertPayment(_ context.Context, p *model.Payment) error {
	t.st.payments = append(t.st.payments, *p)
	return nil
}

func (t *ledgerTx) LatestCompletedPayment(_ context.Context, appointmentID uuid.UUID) (*model.Payment, error) {
	for i := len(t.st.payments) - 1; i >= 0; i-- {
		p := t.st.payments[i]
		if p.AppointmentID != nil && *p.AppointmentID == appointmentID && p.Status == model.PaymentStatusCompleted {
			return &p, nil
		}
	}
	return nil, nil
}

func (t *ledgerTx) RefundPayment(_ context.Context, paymentID uuid.UUID) (bool, error) {
	for i := range t.st.payments {
		if t.st.payments[i].ID == paymentID {
			if t.st.payments[i].Status != model.PaymentStatusCompleted {
				return false, nil
			}
			t.st.payments[i].Status = model.PaymentStatusRefunded
			return true, nil
		}
	}
	return false, nil
}

func (t *ledgerTx) InsertNotification(_ context.Context, n *model.Notification) error {
	t.st.notifications = append(t.st.notifications, *n)
	return nil
}

func (t *ledgerTx) DeleteNotifications(_ context.Context, appointmentID uuid.UUID, typ model.NotificationType) error {
	kept := t.st.notifications[:0]
	for _, n := range t.st.notifications {
		if n.Type == typ && n.AppointmentID != nil && *n.AppointmentID == appointmentID {
			continue
		}
		kept = append(kept, n)
	}
	t.st.notifications = kept
	return nil
}

func (t *ledgerTx) MarkNotificationsRead(_ context.Context, appointmentID uuid.UUID, typ model.NotificationType) error {
	for i, n := range t.st.notifications {
		if n.Type == typ && n.AppointmentID != nil && *n.AppointmentID == appointmentID {
			t.st.notifications[i].Read = true
		}
	}
	return nil
}

func (t *ledgerTx) EnqueueEvent(_ context.Context, event *model.OutboxEvent) error {
	if event == nil || event.Payload == nil {
		return fmt.Errorf("event payload cannot be nil")
	}
	t.st.outbox = append(t.st.outbox, *event)
	return nil
}

func (s *state) doctor(id uuid.UUID) (*model.Doctor, error) {
	d, ok := s.doctors[id]
	if !ok {
		return nil, apperrors.NewNotFound("doctor", nil)
	}
	s.withNames(&d)
	return &d, nil
}

func (s *state) withNames(d *model.Doctor) {
	if u, ok := s.users[d.UserID]; ok {
		d.FirstName, d.LastName = u.FirstName, u.LastName
	}
}

func (s *state) slotTaken(doctorID uuid.UUID, slot model.Slot) bool {
	for _, a := range s.appointments {
		if a.DoctorID == doctorID && a.Date == slot.Date && a.Time == slot.Time && a.Status.Holds() {
			return true
		}
	}
	return false
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
