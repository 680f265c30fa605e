package pending

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/service/ledger"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

// Service parks a patient's unfinished booking, one per patient, until it
// expires or the booking goes through.
type Service struct {
	cache   *cache.Cache
	doctors repository.DoctorRepository
	ttl     time.Duration
	now     func() time.Time
}

func NewService(doctors repository.DoctorRepository, ttl, cleanupInterval time.Duration) *Service {
	return &Service{
		cache:   cache.New(ttl, cleanupInterval),
		doctors: doctors,
		ttl:     ttl,
		now:     time.Now,
	}
}

func key(patientID uuid.UUID) string {
	return "pending:" + patientID.String()
}

// Stash prices the request and replaces any booking the patient already parked.
func (s *Service) Stash(ctx context.Context, patientID uuid.UUID, req model.StashBookingRequest) (*model.PendingBooking, error) {
	doctor, err := s.doctors.Get(ctx, req.DoctorID)
	if err != nil {
		return nil, err
	}

	method := model.PaymentMethodWallet
	if req.PaymentMethod != "" {
		if method, err = model.ParsePaymentMethod(req.PaymentMethod); err != nil {
			return nil, apperrors.NewInvalidInput(err.Error(), nil)
		}
	}

	slots := model.DedupeSlots(req.Slots)
	if len(slots) == 0 {
		return nil, apperrors.NewInvalidInput("at least one slot is required", nil)
	}

	pb := &model.PendingBooking{
		PatientID:     patientID,
		DoctorID:      doctor.ID,
		Slots:         slots,
		PaymentMethod: method,
		TotalFee:      ledger.SpecialtyFee(doctor.Specialty) * float64(len(slots)),
	}
	s.Put(pb)
	return pb, nil
}

// Put stores pb under its patient, restarting the expiry clock.
func (s *Service) Put(pb *model.PendingBooking) {
	pb.ExpiresAt = s.now().Add(s.ttl)
	s.cache.Set(key(pb.PatientID), *pb, s.ttl)
}

func (s *Service) Get(patientID uuid.UUID) (*model.PendingBooking, error) {
	v, found := s.cache.Get(key(patientID))
	if !found {
		return nil, apperrors.NewNotFound("pending booking", nil)
	}
	pb := v.(model.PendingBooking)
	if pb.Expired(s.now()) {
		s.cache.Delete(key(patientID))
		return nil, apperrors.NewNotFound("pending booking", nil)
	}
	return &pb, nil
}

func (s *Service) Delete(patientID uuid.UUID) {
	s.cache.Delete(key(patientID))
}
