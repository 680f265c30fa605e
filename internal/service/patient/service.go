package patient

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

type Service struct {
	patients      repository.PatientRepository
	appointments  repository.AppointmentRepository
	wallets       repository.WalletRepository
	notifications repository.NotificationRepository
	loc           *time.Location
	now           func() time.Time
}

func NewService(
	patients repository.PatientRepository,
	appointments repository.AppointmentRepository,
	wallets repository.WalletRepository,
	notifications repository.NotificationRepository,
	loc *time.Location,
) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		patients:      patients,
		appointments:  appointments,
		wallets:       wallets,
		notifications: notifications,
		loc:           loc,
		now:           time.Now,
	}
}

// SetClock replaces the time source. Tests only.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Service) Profile(ctx context.Context, patientID uuid.UUID) (*model.Patient, error) {
	return s.patients.Get(ctx, patientID)
}

// UpdateProfile applies a partial address edit and rescores the profile.
func (s *Service) UpdateProfile(ctx context.Context, patientID uuid.UUID, req *model.UpdatePatientProfileRequest) (*model.Patient, error) {
	p, err := s.patients.Get(ctx, patientID)
	if err != nil {
		return nil, err
	}
	req.Apply(p)
	p.ProfilePercent = model.PatientProfilePercent(p)
	p.UpdatedAt = s.now().UTC()

	if err := s.patients.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to update patient profile: %w", err)
	}
	return p, nil
}

// EnsureComplete fails with Forbidden until the patient profile is complete.
func (s *Service) EnsureComplete(ctx context.Context, patientID uuid.UUID) error {
	p, err := s.patients.Get(ctx, patientID)
	if err != nil {
		return err
	}
	if !p.ProfileComplete() {
		return apperrors.Forbidden("complete your profile")
	}
	return nil
}

func (s *Service) Appointments(ctx context.Context, patientID uuid.UUID, status model.AppointmentStatus) ([]*model.AppointmentDetail, error) {
	list, err := s.appointments.List(ctx, model.AppointmentFilters{PatientID: &patientID, Status: status})
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	if list == nil {
		list = []*model.AppointmentDetail{}
	}
	return list, nil
}

func (s *Service) Dashboard(ctx context.Context, patientID uuid.UUID) (*model.PatientDashboard, error) {
	p, err := s.patients.Get(ctx, patientID)
	if err != nil {
		return nil, err
	}

	all, err := s.appointments.List(ctx, model.AppointmentFilters{PatientID: &patientID})
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	today := s.now().In(s.loc).Format(model.SlotDateLayout)
	upcoming := make([]*model.AppointmentDetail, 0, len(all))
	for _, a := range all {
		if a.Status.Holds() && a.Date >= today {
			upcoming = append(upcoming, a)
		}
	}

	wallet, err := s.wallets.Get(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	unread, err := s.notifications.UnreadCount(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to count notifications: %w", err)
	}

	return &model.PatientDashboard{
		Patient:              p,
		ProfilePercent:       p.ProfilePercent,
		WalletBalance:        wallet.Balance,
		UpcomingAppointments: upcoming,
		UnreadNotifications:  unread,
	}, nil
}
