package notification

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

type Service struct {
	repo         repository.NotificationRepository
	appointments repository.AppointmentRepository
}

func NewService(repo repository.NotificationRepository, appointments repository.AppointmentRepository) *Service {
	return &Service{repo: repo, appointments: appointments}
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, typ model.NotificationType) ([]*model.Notification, error) {
	list, err := s.repo.ListByUser(ctx, userID, typ)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return list, nil
}

func (s *Service) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	return s.repo.MarkRead(ctx, userID, id)
}

func (s *Service) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	n, err := s.repo.UnreadCount(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return n, nil
}

// DoctorRequests returns the doctor's pending bookings and marks their
// request notifications read.
func (s *Service) DoctorRequests(ctx context.Context, doctor *model.Doctor) ([]*model.AppointmentDetail, error) {
	appts, err := s.appointments.List(ctx, model.AppointmentFilters{
		DoctorID: &doctor.ID,
		Status:   model.AppointmentStatusPending,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	if err := s.repo.MarkAllRead(ctx, doctor.UserID, model.NotificationAppointmentRequest); err != nil {
		return nil, fmt.Errorf("failed to mark requests read: %w", err)
	}
	return appts, nil
}
