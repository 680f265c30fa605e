package doctor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/geo"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
)

// SlotWindowDays is how far ahead BookedSlots looks, today included.
const SlotWindowDays = 7

type Service struct {
	doctors       repository.DoctorRepository
	patients      repository.PatientRepository
	appointments  repository.AppointmentRepository
	wallets       repository.WalletRepository
	notifications repository.NotificationRepository
	metrics       *metrics.Metrics
	loc           *time.Location
	now           func() time.Time
}

func NewService(
	doctors repository.DoctorRepository,
	patients repository.PatientRepository,
	appointments repository.AppointmentRepository,
	wallets repository.WalletRepository,
	notifications repository.NotificationRepository,
	m *metrics.Metrics,
	loc *time.Location,
) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		doctors:       doctors,
		patients:      patients,
		appointments:  appointments,
		wallets:       wallets,
		notifications: notifications,
		metrics:       m,
		loc:           loc,
		now:           time.Now,
	}
}

// SetClock replaces the time source. Tests only.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Browse lists profile-complete doctors ranked by distance from the patient.
// The patient's own profile must be complete.
func (s *Service) Browse(ctx context.Context, patientID uuid.UUID, specialty string) ([]geo.RankedDoctor, error) {
	patient, err := s.patients.Get(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if !patient.ProfileComplete() {
		return nil, apperrors.Forbidden("complete your profile")
	}

	doctors, err := s.doctors.List(ctx, model.DoctorFilter{Specialty: specialty, CompleteOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to list doctors: %w", err)
	}

	var origin *model.Address
	if !patient.Address.IsEmpty() {
		origin = &patient.Address
	}

	start := time.Now()
	ranked := geo.Rank(origin, doctors)
	s.metrics.RankingLatency.Observe(time.Since(start).Seconds())
	return ranked, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	return s.doctors.Get(ctx, id)
}

// Profile is the public view of a profile-complete doctor, with the distance
// from the viewing patient. A patient without an address sees "N/A".
func (s *Service) Profile(ctx context.Context, patientID, doctorID uuid.UUID) (*geo.RankedDoctor, error) {
	d, err := s.doctors.Get(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	if !d.ProfileComplete {
		return nil, apperrors.NewNotFound("doctor", nil)
	}

	var origin *model.Address
	patient, err := s.patients.Get(ctx, patientID)
	switch {
	case err == nil:
		if !patient.Address.IsEmpty() {
			origin = &patient.Address
		}
	case !apperrors.Is(err, apperrors.ErrNotFound):
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}

	ranked := geo.Score(origin, d)
	return &ranked, nil
}

// Patients lists everyone who has booked with the doctor, latest visit first,
// with their distance from the doctor's practice.
func (s *Service) Patients(ctx context.Context, doctorID uuid.UUID) ([]*model.RosterPatient, error) {
	d, err := s.doctors.Get(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	roster, err := s.appointments.Roster(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	for _, p := range roster {
		p.Distance = geo.Estimate(p.Address, d.Address)
		p.DistanceDisplay = geo.FormatDistance(p.Distance)
	}
	if roster == nil {
		roster = []*model.RosterPatient{}
	}
	return roster, nil
}

func (s *Service) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Doctor, error) {
	return s.doctors.GetByUserID(ctx, userID)
}

// BookedSlots returns the held slots of a doctor from today through the
// next SlotWindowDays-1 days, in clinic time.
func (s *Service) BookedSlots(ctx context.Context, doctorID uuid.UUID) ([]model.Slot, error) {
	if _, err := s.doctors.Get(ctx, doctorID); err != nil {
		return nil, err
	}
	today := s.now().In(s.loc)
	from := today.Format(model.SlotDateLayout)
	to := today.AddDate(0, 0, SlotWindowDays-1).Format(model.SlotDateLayout)

	slots, err := s.appointments.BookedSlots(ctx, doctorID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get booked slots: %w", err)
	}
	if slots == nil {
		slots = []model.Slot{}
	}
	return slots, nil
}

// UpdateProfile applies a partial edit and recomputes completeness.
func (s *Service) UpdateProfile(ctx context.Context, doctorID uuid.UUID, req *model.UpdateDoctorProfileRequest) (*model.Doctor, error) {
	d, err := s.doctors.Get(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	req.Apply(d)
	d.RefreshProfile()
	d.UpdatedAt = s.now().UTC()

	if err := s.doctors.Update(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to update doctor profile: %w", err)
	}
	return d, nil
}

func (s *Service) Dashboard(ctx context.Context, doctorID uuid.UUID) (*model.DoctorDashboard, error) {
	d, err := s.doctors.Get(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	pending, err := s.appointments.List(ctx, model.AppointmentFilters{
		DoctorID: &doctorID,
		Status:   model.AppointmentStatusPending,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list pending requests: %w", err)
	}

	today, err := s.appointments.List(ctx, model.AppointmentFilters{
		DoctorID: &doctorID,
		Status:   model.AppointmentStatusAccepted,
		Date:     s.now().In(s.loc).Format(model.SlotDateLayout),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list today's appointments: %w", err)
	}

	wallet, err := s.wallets.Get(ctx, d.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	unread, err := s.notifications.UnreadCount(ctx, d.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to count notifications: %w", err)
	}

	return &model.DoctorDashboard{
		Doctor:              d,
		PendingRequests:     nonNil(pending),
		TodayAppointments:   nonNil(today),
		WalletBalance:       wallet.Balance,
		UnreadNotifications: unread,
	}, nil
}

func nonNil(list []*model.AppointmentDetail) []*model.AppointmentDetail {
	if list == nil {
		return []*model.AppointmentDetail{}
	}
	return list
}

// Appointments lists the doctor's appointments, optionally narrowed to one status.
func (s *Service) Appointments(ctx context.Context, doctorID uuid.UUID, status model.AppointmentStatus) ([]*model.AppointmentDetail, error) {
	list, err := s.appointments.List(ctx, model.AppointmentFilters{DoctorID: &doctorID, Status: status})
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return nonNil(list), nil
}
