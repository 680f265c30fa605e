package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository/memory"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
	"github.com/jwalitptl/clinic-api/pkg/security"
)

var testNow = time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC)

type fakePending struct {
	deleted []uuid.UUID
}

func (f *fakePending) Delete(patientID uuid.UUID) {
	f.deleted = append(f.deleted, patientID)
}

type fixture struct {
	ctx     context.Context
	store   *memory.Store
	svc     *Service
	metrics *metrics.Metrics
	sealer  security.Sealer
	pending *fakePending
	patient uuid.UUID
	doctor  *model.Doctor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	sealer, err := security.NewSealer([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)

	f := &fixture{
		ctx:     context.Background(),
		store:   memory.NewStore(),
		metrics: metrics.NewTestMetrics(),
		sealer:  sealer,
		pending: &fakePending{},
	}
	f.svc = NewService(f.store, sealer, f.metrics, logger.Nop(),
		WithClock(func() time.Time { return testNow }),
		WithLocation(time.UTC),
		WithPendingBookings(f.pending),
	)
	f.patient = f.addPatient(t)
	f.doctor = f.addDoctor(t, "Dermatology", 0)
	return f
}

func (f *fixture) addPatient(t *testing.T) uuid.UUID {
	t.Helper()
	u := &model.User{Base: model.NewBase(testNow), Email: uuid.NewString() + "@example.com", Role: model.RolePatient, FirstName: "Raj", LastName: "Kumar"}
	require.NoError(t, f.store.Users().Register(f.ctx, u, nil))
	return u.ID
}

func (f *fixture) addDoctor(t *testing.T, specialty string, fees float64) *model.Doctor {
	t.Helper()
	u := &model.User{Base: model.NewBase(testNow), Email: uuid.NewString() + "@example.com", Role: model.RoleDoctor, FirstName: "Meera", LastName: "Shah"}
	d := &model.Doctor{Base: model.NewBase(testNow), Specialty: specialty, Fees: fees}
	require.NoError(t, f.store.Users().Register(f.ctx, u, d))
	return d
}

func (f *fixture) fund(t *testing.T, userID uuid.UUID, amount float64) {
	t.Helper()
	_, err := f.svc.AddFunds(f.ctx, userID, amount, "UPI")
	require.NoError(t, err)
}

func (f *fixture) balance(t *testing.T, userID uuid.UUID) float64 {
	t.Helper()
	w, err := f.store.Wallets().Get(f.ctx, userID)
	require.NoError(t, err)
	return w.Balance
}

func (f *fixture) book(t *testing.T, slots ...model.Slot) []*model.Appointment {
	t.Helper()
	res, err := f.svc.CreateBooking(f.ctx, BookingRequest{
		PatientID: f.patient,
		DoctorID:  f.doctor.ID,
		Slots:     slots,
		Method:    model.PaymentMethodWallet,
	})
	require.NoError(t, err)
	return res.Appointments
}

func (f *fixture) status(t *testing.T, id uuid.UUID) model.AppointmentStatus {
	t.Helper()
	a, err := f.store.Appointments().Get(f.ctx, id)
	require.NoError(t, err)
	return a.Status
}

func (f *fixture) notifications(t *testing.T, userID uuid.UUID, typ model.NotificationType) []*model.Notification {
	t.Helper()
	list, err := f.store.Notifications().ListByUser(f.ctx, userID, typ)
	require.NoError(t, err)
	return list
}

func slot(date, hhmm string) model.Slot {
	return model.Slot{Date: date, Time: hhmm}
}

func TestSpecialtyFee(t *testing.T) {
	assert.Equal(t, 200.0, SpecialtyFee("General Physician"))
	assert.Equal(t, 500.0, SpecialtyFee("cold & fever"))
	assert.Equal(t, 500.0, SpecialtyFee(" Urology "))
	assert.Zero(t, SpecialtyFee("Cardiology"))
	for _, s := range Specialties() {
		assert.Positive(t, SpecialtyFee(s), s)
	}
}

func TestCreateBookingDebitsOnceAndNotifiesDoctor(t *testing.T) {
	f := newFixture(t)
	f.fund(t, f.patient, 1000)

	res, err := f.svc.CreateBooking(f.ctx, BookingRequest{
		PatientID: f.patient,
		DoctorID:  f.doctor.ID,
		Slots:     []model.Slot{slot("2030-01-02", "10:00"), slot("2030-01-02", "11:00"), slot("2030-01-02", "10:00")},
		Method:    model.PaymentMethodWallet,
	})
	require.NoError(t, err)
	require.Len(t, res.Appointments, 2)
	assert.Equal(t, 500.0, res.Fee)
	assert.Equal(t, 1000.0, res.Total)
	assert.Zero(t, f.balance(t, f.patient))

	for _, a := range res.Appointments {
		assert.Equal(t, model.AppointmentStatusPending, a.Status)
		assert.Equal(t, 500.0, a.Fee)
	}

	payments, err := f.store.Wallets().ListPayments(f.ctx, f.patient, model.Pagination{})
	require.NoError(t, err)
	require.Len(t, payments, 3)
	for _, p := range payments[:2] {
		assert.Equal(t, model.PaymentStatusCompleted, p.Status)
		assert.Equal(t, 500.0, p.Amount)
		require.NotNil(t, p.AppointmentID)
	}
	assert.Nil(t, payments[2].AppointmentID, "top-up has no appointment")

	requests := f.notifications(t, f.doctor.UserID, model.NotificationAppointmentRequest)
	require.Len(t, requests, 1)
	require.NotNil(t, requests[0].AppointmentID)
	assert.Equal(t, res.Appointments[0].ID, *requests[0].AppointmentID)

	assert.Equal(t, []uuid.UUID{f.patient}, f.pending.deleted)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.LedgerOperations.WithLabelValues(opCreateBooking, "success")))
}

func TestCreateBookingInsufficientFundsLeavesBalance(t *testing.T) {
	f := newFixture(t)
	f.fund(t, f.patient, 500)

	_, err := f.svc.CreateBooking(f.ctx, BookingRequest{
		PatientID: f.patient,
		DoctorID:  f.doctor.ID,
		Slots:     []model.Slot{slot("2030-01-02", "10:00"), slot("2030-01-02", "11:00")},
		Method:    model.PaymentMethodWallet,
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInsufficientFunds))
	assert.Equal(t, 500.0, f.balance(t, f.patient))

	booked, err := f.store.Appointments().BookedSlots(f.ctx, f.doctor.ID, "2030-01-01", "2030-01-31")
	require.NoError(t, err)
	assert.Empty(t, booked)
	assert.Empty(t, f.pending.deleted)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.LedgerOperations.WithLabelValues(opCreateBooking, "rejected")))
}

func TestCreateBookingIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	f.fund(t, f.patient, 2000)
	f.book(t, slot("2030-01-02", "10:00"))

	_, err := f.svc.CreateBooking(f.ctx, BookingRequest{
		PatientID: f.patient,
		DoctorID:  f.doctor.ID,
		Slots:     []model.Slot{slot("2030-01-02", "12:00"), slot("2030-01-02", "10:00")},
		Method:    model.PaymentMethodWallet,
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))
	assert.Equal(t, 1500.0, f.balance(t, f.patient))

	booked, err := f.store.Appointments().BookedSlots(f.ctx, f.doctor.ID, "2030-01-02", "2030-01-02")
	require.NoError(t, err)
	assert.Equal(t, []model.Slot{slot("2030-01-02", "10:00")}, booked)
}

func TestCreateBookingRejectsBadSlots(t *testing.T) {
	f := newFixture(t)
	f.fund(t, f.patient, 2000)

	tests := []struct {
		name  string
		slots []model.Slot
	}{
		{name: "no slots"},
		{name: "starts now", slots: []model.Slot{slot("2030-01-01", "09:00")}},
		{name: "in the past", slots: []model.Slot{slot("2030-01-02", "10:00"), slot("2029-12-31", "10:00")}},
		{name: "malformed", slots: []model.Slot{slot("02-01-2030", "10:00")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateBooking(f.ctx, BookingRequest{
				PatientID: f.patient,
				DoctorID:  f.doctor.ID,
				Slots:     tt.slots,
				Method:    model.PaymentMethodWallet,
			})
			assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput), "%v", err)
		})
	}
	assert.Equal(t, 2000.0, f.balance(t, f.patient))
}

func TestCreateBookingByCardSealsDetails(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateBooking(f.ctx, BookingRequest{
		PatientID: f.patient,
		DoctorID:  f.doctor.ID,
		Slots:     []model.Slot{slot("2030-01-02", "10:00")},
		Method:    model.PaymentMethodCard,
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))

	res, err := f.svc.CreateBooking(f.ctx, BookingRequest{
		PatientID: f.patient,
		DoctorID:  f.doctor.ID,
		Slots:     []model.Slot{slot("2030-01-02", "10:00")},
		Method:    model.PaymentMethodCard,
		Details:   "4111111111111111",
	})
	require.NoError(t, err)
	require.Len(t, res.Appointments, 1)
	assert.Zero(t, f.balance(t, f.patient), "card payments do not touch the wallet")

	payments, err := f.store.Wallets().ListPayments(f.ctx, f.patient, model.Pagination{})
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.NotContains(t, payments[0].Details, "4111")
	plain, err := f.sealer.Open(payments[0].Details)
	require.NoError(t, err)
	assert.Equal(t, "4111111111111111", plain)
}

func TestCreateBookingUnknownDoctor(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateBooking(f.ctx, BookingRequest{
		PatientID: f.patient,
		DoctorID:  uuid.New(),
		Slots:     []model.Slot{slot("2030-01-02", "10:00")},
		Method:    model.PaymentMethodWallet,
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestAcceptBookingCreditsDoctor(t *testing.T) {
	f := newFixture(t)
	f.fund(t, f.patient, 500)
	appt := f.book(t, slot("2030-01-02", "10:00"))[0]

	_, err := f.svc.AcceptBooking(f.ctx, uuid.New(), appt.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound), "other doctors cannot see it")

	got, err := f.svc.AcceptBooking(f.ctx, f.doctor.ID, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusAccepted, got.Status)
	assert.Equal(t, 500.0, f.balance(t, f.doctor.UserID))

	assert.Empty(t, f.notifications(t, f.doctor.UserID, model.NotificationAppointmentRequest))
	assert.Len(t, f.notifications(t, f.patient, model.NotificationAppointmentAccepted), 1)

	_, err = f.svc.AcceptBooking(f.ctx, f.doctor.ID, appt.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))
	assert.Equal(t, 500.0, f.balance(t, f.doctor.UserID))
}

func TestAcceptBookingPrefersDoctorFee(t *testing.T) {
	f := newFixture(t)
	f.doctor = f.addDoctor(t, "Urology", 300)
	f.fund(t, f.patient, 500)
	appt := f.book(t, slot("2030-01-02", "10:00"))[0]
	assert.Equal(t, 500.0, appt.Fee, "patients pay the specialty fee")

	_, err := f.svc.AcceptBooking(f.ctx, f.doctor.ID, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, 300.0, f.balance(t, f.doctor.UserID))
}

func TestRejectPendingRefundsOnce(t *testing.T) {
	f := newFixture(t)
	f.fund(t, f.patient, 500)
	appt := f.book(t, slot("2030-01-02", "10:00"))[0]

	got, refunded, err := f.svc.RejectBooking(f.ctx, f.doctor.ID, appt.ID, false)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusRejected, got.Status)
	assert.Equal(t, 500.0, refunded)
	assert.Equal(t, 500.0, f.balance(t, f.patient))
	assert.Zero(t, f.balance(t, f.doctor.UserID))

	requests := f.notifications(t, f.doctor.UserID, model.NotificationAppointmentRequest)
	require.Len(t, requests, 1)
	assert.True(t, requests[0].Read)

	rejected := f.notifications(t, f.patient, model.NotificationAppointmentRejected)
	require.Len(t, rejected, 1)
	assert.Contains(t, rejected[0].Message, "Rs 500.00")

	_, _, err = f.svc.RejectBooking(f.ctx, f.doctor.ID, appt.ID, false)
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))
	assert.Equal(t, 500.0, f.balance(t, f.patient))
	assert.Len(t, f.notifications(t, f.patient, model.NotificationAppointmentRejected), 1)
}

func TestRejectAcceptedReversesDoctorCredit(t *testing.T) {
	f := newFixture(t)
	f.fund(t, f.patient, 500)
	appt := f.book(t, slot("2030-01-02", "10:00"))[0]
	_, err := f.svc.AcceptBooking(f.ctx, f.doctor.ID, appt.ID)
	require.NoError(t, err)

	_, refunded, err := f.svc.RejectBooking(f.ctx, f.doctor.ID, appt.ID, true)
	require.NoError(t, err)
	assert.Equal(t, 500.0, refunded)
	assert.Equal(t, 500.0, f.balance(t, f.patient))
	assert.Zero(t, f.balance(t, f.doctor.UserID))
	assert.Equal(t, model.AppointmentStatusRejected, f.status(t, appt.ID))

	// The slot is free again.
	f.book(t, slot("2030-01-02", "10:00"))
}

func TestPatientCancelKeepsAppointment(t *testing.T) {
	f := newFixture(t)
	f.fund(t, f.patient, 500)
	appt := f.book(t, slot("2030-01-02", "10:00"))[0]
	_, err := f.svc.AcceptBooking(f.ctx, f.doctor.ID, appt.ID)
	require.NoError(t, err)

	_, err = f.svc.CancelBooking(f.ctx, model.PatientActor(f.addPatient(t)), appt.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

	res, err := f.svc.CancelBooking(f.ctx, model.PatientActor(f.patient), appt.ID)
	require.NoError(t, err)
	assert.False(t, res.Deleted)
	assert.Equal(t, 500.0, res.Refunded)
	assert.Equal(t, model.AppointmentStatusCancelled, f.status(t, appt.ID))
	assert.Equal(t, 500.0, f.balance(t, f.patient))
	assert.Zero(t, f.balance(t, f.doctor.UserID))
	assert.Len(t, f.notifications(t, f.doctor.UserID, model.NotificationAppointmentCancelled), 1)

	payments, err := f.store.Wallets().ListPayments(f.ctx, f.patient, model.Pagination{})
	require.NoError(t, err)
	require.Len(t, payments, 2)
	assert.Equal(t, model.PaymentStatusRefunded, payments[0].Status)

	_, err = f.svc.CancelBooking(f.ctx, model.PatientActor(f.patient), appt.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))
	assert.Equal(t, 500.0, f.balance(t, f.patient))
}

func TestDoctorCancelDeletesAppointment(t *testing.T) {
	f := newFixture(t)
	f.fund(t, f.patient, 500)
	appt := f.book(t, slot("2030-01-02", "10:00"))[0]

	res, err := f.svc.CancelBooking(f.ctx, model.DoctorActor(f.doctor.ID), appt.ID)
	require.NoError(t, err)
	assert.True(t, res.Deleted)
	assert.Equal(t, 500.0, f.balance(t, f.patient))

	_, err = f.store.Appointments().Get(f.ctx, appt.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

	payments, err := f.store.Wallets().ListPayments(f.ctx, f.patient, model.Pagination{})
	require.NoError(t, err)
	require.Len(t, payments, 2)
	assert.Equal(t, model.PaymentStatusRefunded, payments[0].Status)
	assert.Nil(t, payments[0].AppointmentID)

	cancelled := f.notifications(t, f.patient, model.NotificationAppointmentCancelled)
	require.Len(t, cancelled, 1)
	assert.Contains(t, cancelled[0].Message, "refunded")

	_, err = f.svc.CancelBooking(f.ctx, model.DoctorActor(f.doctor.ID), appt.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestCancelReversesWhatAcceptCredited(t *testing.T) {
	actors := map[string]func(f *fixture) model.Actor{
		"patient": func(f *fixture) model.Actor { return model.PatientActor(f.patient) },
		"doctor":  func(f *fixture) model.Actor { return model.DoctorActor(f.doctor.ID) },
	}
	for name, actor := range actors {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			f.doctor = f.addDoctor(t, "Urology", 300)
			f.fund(t, f.patient, 500)
			appt := f.book(t, slot("2030-01-02", "10:00"))[0]

			_, err := f.svc.AcceptBooking(f.ctx, f.doctor.ID, appt.ID)
			require.NoError(t, err)
			require.Equal(t, 300.0, f.balance(t, f.doctor.UserID))

			res, err := f.svc.CancelBooking(f.ctx, actor(f), appt.ID)
			require.NoError(t, err)
			assert.Equal(t, 500.0, res.Refunded)
			assert.Equal(t, 500.0, f.balance(t, f.patient))
			assert.Zero(t, f.balance(t, f.doctor.UserID))
		})
	}
}

func TestCancelPendingLeavesDoctorWallet(t *testing.T) {
	f := newFixture(t)
	f.doctor = f.addDoctor(t, "Urology", 300)
	f.fund(t, f.patient, 500)
	appt := f.book(t, slot("2030-01-02", "10:00"))[0]

	_, err := f.svc.CancelBooking(f.ctx, model.PatientActor(f.patient), appt.ID)
	require.NoError(t, err)
	assert.Zero(t, f.balance(t, f.doctor.UserID))
}

func TestCancelByDate(t *testing.T) {
	f := newFixture(t)
	f.fund(t, f.patient, 2000)
	appts := f.book(t, slot("2030-01-02", "10:00"), slot("2030-01-02", "11:00"), slot("2030-01-02", "12:00"))
	for _, a := range appts[:2] {
		_, err := f.svc.AcceptBooking(f.ctx, f.doctor.ID, a.ID)
		require.NoError(t, err)
	}
	require.Equal(t, 1000.0, f.balance(t, f.doctor.UserID))

	results, err := f.svc.CancelByDate(f.ctx, f.doctor.ID, "2030-01-02")
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, 1500.0, f.balance(t, f.patient))
	assert.Zero(t, f.balance(t, f.doctor.UserID))
	assert.Equal(t, model.AppointmentStatusPending, f.status(t, appts[2].ID))

	_, err = f.svc.CancelByDate(f.ctx, f.doctor.ID, "2030-01-03")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

	_, err = f.svc.CancelByDate(f.ctx, f.doctor.ID, "tomorrow")
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))
}

func TestAddFundsValidation(t *testing.T) {
	f := newFixture(t)

	for _, tt := range []struct {
		amount float64
		method string
	}{
		{0, "UPI"},
		{-10, "UPI"},
		{50000.01, "Card"},
		{49999.995, "Wallet"},
		{10.123, "Wallet"},
		{100, "cash"},
	} {
		_, err := f.svc.AddFunds(f.ctx, f.patient, tt.amount, tt.method)
		assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput), "%v %s", tt.amount, tt.method)
	}
	assert.Zero(t, f.balance(t, f.patient))

	w, err := f.svc.AddFunds(f.ctx, f.patient, 49999.99, "Card")
	require.NoError(t, err)
	assert.InDelta(t, 49999.99, w.Balance, 1e-9)

	w, err = f.svc.AddFunds(f.ctx, f.patient, 0.01, "wallet")
	require.NoError(t, err)
	assert.InDelta(t, 50000.0, w.Balance, 1e-6)

	pending, err := f.store.Outbox().PendingCount(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, pending)
}

func TestTwoDecimals(t *testing.T) {
	assert.True(t, twoDecimals(10))
	assert.True(t, twoDecimals(10.5))
	assert.True(t, twoDecimals(0.29))
	assert.False(t, twoDecimals(0.295))
	assert.False(t, twoDecimals(49999.995))
}
