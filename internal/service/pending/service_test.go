package pending

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository/memory"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

func setup(t *testing.T) (*Service, *model.Doctor) {
	t.Helper()
	store := memory.NewStore()
	now := time.Now().UTC()
	u := &model.User{Base: model.NewBase(now), Email: "doc@example.com", Role: model.RoleDoctor}
	d := &model.Doctor{Base: model.NewBase(now), Specialty: "General Physician"}
	require.NoError(t, store.Users().Register(context.Background(), u, d))
	return NewService(store.Doctors(), time.Hour, time.Hour), d
}

func TestStashAndGet(t *testing.T) {
	svc, doctor := setup(t)
	patient := uuid.New()

	pb, err := svc.Stash(context.Background(), patient, model.StashBookingRequest{
		DoctorID: doctor.ID,
		Slots: []model.Slot{
			{Date: "2030-01-02", Time: "10:00"},
			{Date: "2030-01-02", Time: "10:00"},
			{Date: "2030-01-02", Time: "11:00"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentMethodWallet, pb.PaymentMethod)
	assert.Equal(t, 400.0, pb.TotalFee)

	got, err := svc.Get(patient)
	require.NoError(t, err)
	assert.Equal(t, pb.Slots, got.Slots)

	svc.Delete(patient)
	_, err = svc.Get(patient)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestStashValidation(t *testing.T) {
	svc, doctor := setup(t)
	ctx := context.Background()

	_, err := svc.Stash(ctx, uuid.New(), model.StashBookingRequest{DoctorID: uuid.New(), Slots: []model.Slot{{Date: "2030-01-02", Time: "10:00"}}})
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

	_, err = svc.Stash(ctx, uuid.New(), model.StashBookingRequest{DoctorID: doctor.ID, PaymentMethod: "cash", Slots: []model.Slot{{Date: "2030-01-02", Time: "10:00"}}})
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))

	_, err = svc.Stash(ctx, uuid.New(), model.StashBookingRequest{DoctorID: doctor.ID})
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))
}

func TestGetDropsExpiredBooking(t *testing.T) {
	svc, _ := setup(t)
	patient := uuid.New()
	svc.Put(&model.PendingBooking{PatientID: patient})

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err := svc.Get(patient)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}
