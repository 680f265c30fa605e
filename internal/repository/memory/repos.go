package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

const maxOutboxRetries = 5

type userRepo struct{ s *Store }

func (r userRepo) Register(_ context.Context, user *model.User, doctor *model.Doctor) error {
	return r.s.view(func(st *state) error {
		for _, u := range st.users {
			if normalizeEmail(u.Email) == normalizeEmail(user.Email) {
				return apperrors.NewConflict("email already registered", nil)
			}
		}
		switch user.Role {
		case model.RoleDoctor:
			if doctor == nil {
				return apperrors.NewInvalidInput("doctor profile is required", nil)
			}
			doctor.UserID = user.ID
			st.doctors[doctor.ID] = *doctor
		default:
			st.patients[user.ID] = model.Patient{
				ID:             user.ID,
				ProfilePercent: model.PatientBasePercent,
				CreatedAt:      user.CreatedAt,
				UpdatedAt:      user.UpdatedAt,
			}
		}
		st.users[user.ID] = *user
		if _, ok := st.wallets[user.ID]; !ok {
			st.wallets[user.ID] = 0
		}
		return nil
	})
}

func (r userRepo) Get(_ context.Context, id uuid.UUID) (*model.User, error) {
	var out *model.User
	err := r.s.view(func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return apperrors.NewNotFound("user", nil)
		}
		out = &u
		return nil
	})
	return out, err
}

func (r userRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	var out *model.User
	err := r.s.view(func(st *state) error {
		for _, u := range st.users {
			if normalizeEmail(u.Email) == normalizeEmail(email) {
				u := u
				out = &u
				return nil
			}
		}
		return apperrors.NewNotFound("user", nil)
	})
	return out, err
}

type doctorRepo struct{ s *Store }

func (r doctorRepo) Get(_ context.Context, id uuid.UUID) (*model.Doctor, error) {
	var out *model.Doctor
	err := r.s.view(func(st *state) (err error) {
		out, err = st.doctor(id)
		return err
	})
	return out, err
}

func (r doctorRepo) GetByUserID(_ context.Context, userID uuid.UUID) (*model.Doctor, error) {
	var out *model.Doctor
	err := r.s.view(func(st *state) error {
		for _, d := range st.doctors {
			if d.UserID == userID {
				d := d
				st.withNames(&d)
				out = &d
				return nil
			}
		}
		return apperrors.NewNotFound("doctor", nil)
	})
	return out, err
}

func (r doctorRepo) Update(_ context.Context, d *model.Doctor) error {
	return r.s.view(func(st *state) error {
		if _, ok := st.doctors[d.ID]; !ok {
			return apperrors.NewNotFound("doctor", nil)
		}
		st.doctors[d.ID] = *d
		return nil
	})
}

func (r doctorRepo) List(_ context.Context, filter model.DoctorFilter) ([]*model.Doctor, error) {
	specialty := strings.ToLower(strings.TrimSpace(filter.Specialty))
	var out []*model.Doctor
	err := r.s.view(func(st *state) error {
		for _, d := range st.doctors {
			if specialty != "" && strings.ToLower(d.Specialty) != specialty {
				continue
			}
			if filter.CompleteOnly && !d.ProfileComplete {
				continue
			}
			d := d
			st.withNames(&d)
			out = append(out, &d)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, err
}

type patientRepo struct{ s *Store }

func (r patientRepo) Get(_ context.Context, id uuid.UUID) (*model.Patient, error) {
	var out *model.Patient
	err := r.s.view(func(st *state) error {
		p, ok := st.patients[id]
		if !ok {
			return apperrors.NewNotFound("patient", nil)
		}
		if u, ok := st.users[id]; ok {
			p.FirstName, p.LastName, p.Email = u.FirstName, u.LastName, u.Email
		}
		out = &p
		return nil
	})
	return out, err
}

func (r patientRepo) Update(_ context.Context, p *model.Patient) error {
	return r.s.view(func(st *state) error {
		if _, ok := st.patients[p.ID]; !ok {
			return apperrors.NewNotFound("patient", nil)
		}
		st.patients[p.ID] = *p
		return nil
	})
}

type appointmentRepo struct{ s *Store }

func (r appointmentRepo) Get(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	var out *model.Appointment
	err := r.s.view(func(st *state) error {
		a, ok := st.appointments[id]
		if !ok {
			return apperrors.NewNotFound("appointment", nil)
		}
		out = &a
		return nil
	})
	return out, err
}

func (r appointmentRepo) List(_ context.Context, f model.AppointmentFilters) ([]*model.AppointmentDetail, error) {
	var out []*model.AppointmentDetail
	err := r.s.view(func(st *state) error {
		for _, a := range st.appointments {
			if f.PatientID != nil && a.PatientID != *f.PatientID {
				continue
			}
			if f.DoctorID != nil && a.DoctorID != *f.DoctorID {
				continue
			}
			if f.Status != "" && a.Status != f.Status {
				continue
			}
			if f.Date != "" && a.Date != f.Date {
				continue
			}
			detail := &model.AppointmentDetail{Appointment: a}
			if u, ok := st.users[a.PatientID]; ok {
				detail.PatientName = u.FirstName + " " + u.LastName
			}
			if d, err := st.doctor(a.DoctorID); err == nil {
				detail.DoctorName = d.DisplayName()
				detail.Specialty = d.Specialty
			}
			out = append(out, detail)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.Time != b.Time {
			return a.Time < b.Time
		}
		return a.ID.String() < b.ID.String()
	})
	return out, err
}

func (r appointmentRepo) BookedSlots(_ context.Context, doctorID uuid.UUID, fromDate, toDate string) ([]model.Slot, error) {
	var out []model.Slot
	err := r.s.view(func(st *state) error {
		for _, a := range st.appointments {
			if a.DoctorID == doctorID && a.Status.Holds() && a.Date >= fromDate && a.Date <= toDate {
				out = append(out, a.Slot())
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, err
}

func (r appointmentRepo) Roster(_ context.Context, doctorID uuid.UUID) ([]*model.RosterPatient, error) {
	byPatient := make(map[uuid.UUID]*model.RosterPatient)
	err := r.s.view(func(st *state) error {
		for _, a := range st.appointments {
			if a.DoctorID != doctorID {
				continue
			}
			entry, ok := byPatient[a.PatientID]
			if !ok {
				p, ok := st.patients[a.PatientID]
				if !ok {
					continue
				}
				if u, ok := st.users[p.ID]; ok {
					p.FirstName, p.LastName, p.Email = u.FirstName, u.LastName, u.Email
				}
				entry = &model.RosterPatient{Patient: p}
				byPatient[a.PatientID] = entry
			}
			entry.AppointmentCount++
			if a.Date > entry.LastVisit {
				entry.LastVisit = a.Date
			}
		}
		return nil
	})

	out := make([]*model.RosterPatient, 0, len(byPatient))
	for _, entry := range byPatient {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.LastVisit != b.LastVisit {
			return a.LastVisit > b.LastVisit
		}
		if a.AppointmentCount != b.AppointmentCount {
			return a.AppointmentCount > b.AppointmentCount
		}
		return a.ID.String() < b.ID.String()
	})
	return out, err
}

type walletRepo struct{ s *Store }

func (r walletRepo) Get(_ context.Context, userID uuid.UUID) (*model.Wallet, error) {
	w := &model.Wallet{UserID: userID}
	err := r.s.view(func(st *state) error {
		w.Balance = st.wallets[userID]
		return nil
	})
	return w, err
}

func (r walletRepo) ListPayments(_ context.Context, userID uuid.UUID, page model.Pagination) ([]*model.Payment, error) {
	var all []*model.Payment
	err := r.s.view(func(st *state) error {
		for i := len(st.payments) - 1; i >= 0; i-- {
			if p := st.payments[i]; p.UserID == userID {
				all = append(all, &p)
			}
		}
		return nil
	})
	return paginate(all, page), err
}

func paginate[T any](items []T, page model.Pagination) []T {
	start := page.Offset()
	if start >= len(items) {
		return nil
	}
	end := start + page.Limit()
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

type notificationRepo struct{ s *Store }

func (r notificationRepo) ListByUser(_ context.Context, userID uuid.UUID, typ model.NotificationType) ([]*model.Notification, error) {
	var out []*model.Notification
	err := r.s.view(func(st *state) error {
		for i := len(st.notifications) - 1; i >= 0; i-- {
			n := st.notifications[i]
			if n.UserID == userID && (typ == "" || n.Type == typ) {
				out = append(out, &n)
			}
		}
		return nil
	})
	return out, err
}

func (r notificationRepo) MarkRead(_ context.Context, userID, id uuid.UUID) error {
	return r.s.view(func(st *state) error {
		for i, n := range st.notifications {
			if n.ID == id && n.UserID == userID {
				st.notifications[i].Read = true
				return nil
			}
		}
		return apperrors.NewNotFound("notification", nil)
	})
}

func (r notificationRepo) MarkAllRead(_ context.Context, userID uuid.UUID, typ model.NotificationType) error {
	return r.s.view(func(st *state) error {
		for i, n := range st.notifications {
			if n.UserID == userID && n.Type == typ {
				st.notifications[i].Read = true
			}
		}
		return nil
	})
}

func (r notificationRepo) UnreadCount(_ context.Context, userID uuid.UUID) (int, error) {
	count := 0
	err := r.s.view(func(st *state) error {
		for _, n := range st.notifications {
			if n.UserID == userID && !n.Read {
				count++
			}
		}
		return nil
	})
	return count, err
}

type prescriptionRepo struct{ s *Store }

func (r prescriptionRepo) CreateBatch(_ context.Context, prescriptions []*model.Prescription) error {
	return r.s.view(func(st *state) error {
		for _, p := range prescriptions {
			if _, ok := st.appointments[p.AppointmentID]; !ok {
				return apperrors.NewNotFound("appointment", nil)
			}
		}
		for _, p := range prescriptions {
			st.prescriptions = append(st.prescriptions, *p)
		}
		return nil
	})
}

func (r prescriptionRepo) Get(_ context.Context, id uuid.UUID) (*model.Prescription, error) {
	var out *model.Prescription
	err := r.s.view(func(st *state) error {
		for _, p := range st.prescriptions {
			if p.ID == id {
				p := p
				out = &p
				return nil
			}
		}
		return apperrors.NewNotFound("prescription", nil)
	})
	return out, err
}

func (r prescriptionRepo) UpdateConsumed(_ context.Context, id uuid.UUID, consumed int) error {
	return r.s.view(func(st *state) error {
		for i := range st.prescriptions {
			if st.prescriptions[i].ID == id {
				st.prescriptions[i].MedicineConsumed = consumed
				return nil
			}
		}
		return apperrors.NewNotFound("prescription", nil)
	})
}

func (r prescriptionRepo) ListByAppointment(_ context.Context, appointmentID uuid.UUID) ([]*model.Prescription, error) {
	var out []*model.Prescription
	err := r.s.view(func(st *state) error {
		for _, p := range st.prescriptions {
			if p.AppointmentID == appointmentID {
				p := p
				out = append(out, &p)
			}
		}
		return nil
	})
	return out, err
}

func (r prescriptionRepo) ListByPatient(_ context.Context, patientID uuid.UUID) ([]*model.PatientPrescription, error) {
	var out []*model.PatientPrescription
	err := r.s.view(func(st *state) error {
		for _, p := range st.prescriptions {
			a, ok := st.appointments[p.AppointmentID]
			if !ok || a.PatientID != patientID {
				continue
			}
			pp := &model.PatientPrescription{Prescription: p, AppointmentDate: a.Date}
			if d, err := st.doctor(a.DoctorID); err == nil {
				pp.DoctorName = d.DisplayName()
			}
			out = append(out, pp)
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].AppointmentDate > out[j].AppointmentDate })
	return out, err
}

type consultationRepo struct{ s *Store }

func (r consultationRepo) UpsertNotes(_ context.Context, note *model.ConsultationNote) error {
	return r.s.view(func(st *state) error {
		if _, ok := st.appointments[note.AppointmentID]; !ok {
			return apperrors.NewNotFound("appointment", nil)
		}
		st.notes[note.AppointmentID] = *note
		return nil
	})
}

func (r consultationRepo) GetNotes(_ context.Context, appointmentID uuid.UUID) (*model.ConsultationNote, error) {
	var out *model.ConsultationNote
	err := r.s.view(func(st *state) error {
		n, ok := st.notes[appointmentID]
		if !ok {
			return apperrors.NewNotFound("consultation notes", nil)
		}
		out = &n
		return nil
	})
	return out, err
}

func (r consultationRepo) AddVitals(_ context.Context, v *model.Vitals) error {
	return r.s.view(func(st *state) error {
		if _, ok := st.patients[v.PatientID]; !ok {
			return apperrors.NewNotFound("patient", nil)
		}
		st.vitals = append(st.vitals, *v)
		return nil
	})
}

func (r consultationRepo) ListVitals(_ context.Context, patientID uuid.UUID) ([]*model.Vitals, error) {
	var out []*model.Vitals
	err := r.s.view(func(st *state) error {
		for _, v := range st.vitals {
			if v.PatientID == patientID {
				v := v
				out = append(out, &v)
			}
		}
		return nil
	})
	return out, err
}

type outboxRepo struct{ s *Store }

func (r outboxRepo) Create(_ context.Context, event *model.OutboxEvent) error {
	if event == nil || event.Payload == nil {
		return fmt.Errorf("event payload cannot be nil")
	}
	return r.s.view(func(st *state) error {
		st.outbox = append(st.outbox, *event)
		return nil
	})
}

// ProcessPending claims a batch under the store lock, then calls fn unlocked
// so subscribers that read the store can keep up with the publisher.
func (r outboxRepo) ProcessPending(_ context.Context, limit int, fn func(*model.OutboxEvent) error) (int, error) {
	r.s.outboxMu.Lock()
	defer r.s.outboxMu.Unlock()

	var batch []model.OutboxEvent
	if err := r.s.view(func(st *state) error {
		for _, e := range st.outbox {
			if len(batch) >= limit {
				break
			}
			if e.Status == model.OutboxStatusPending {
				batch = append(batch, e)
			}
		}
		return nil
	}); err != nil {
		return 0, err
	}

	failures := make(map[uuid.UUID]error, len(batch))
	for i := range batch {
		ev := batch[i]
		if err := fn(&ev); err != nil {
			failures[ev.ID] = err
		}
	}

	processed := 0
	err := r.s.view(func(st *state) error {
		now := time.Now().UTC()
		for _, claimed := range batch {
			for i := range st.outbox {
				e := &st.outbox[i]
				if e.ID != claimed.ID {
					continue
				}
				e.UpdatedAt = now
				if err, failed := failures[e.ID]; failed {
					msg := err.Error()
					e.ErrorMessage = &msg
					e.RetryCount++
					if e.RetryCount >= maxOutboxRetries {
						e.Status = model.OutboxStatusFailed
					}
				} else {
					e.Status = model.OutboxStatusProcessed
					e.ErrorMessage = nil
					e.ProcessedAt = &now
					processed++
				}
				break
			}
		}
		return nil
	})
	return processed, err
}

func (r outboxRepo) PendingCount(_ context.Context) (int, error) {
	count := 0
	err := r.s.view(func(st *state) error {
		for _, e := range st.outbox {
			if e.Status == model.OutboxStatusPending {
				count++
			}
		}
		return nil
	})
	return count, err
}
