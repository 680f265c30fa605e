package medical

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/repository/memory"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

var testNow = time.Date(2030, 1, 1, 20, 0, 0, 0, time.UTC)

type fixture struct {
	ctx     context.Context
	store   *memory.Store
	svc     *Service
	patient uuid.UUID
	doctor  *model.Doctor
	slots   int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{ctx: context.Background(), store: memory.NewStore()}
	ist := time.FixedZone("IST", 5*3600+30*60)
	f.svc = NewService(f.store.Prescriptions(), f.store.Consultations(), f.store.Appointments(),
		f.store.Patients(), f.store.Doctors(), ist)
	f.svc.SetClock(func() time.Time { return testNow })

	pu := &model.User{Base: model.NewBase(testNow), Email: "p@example.com", Role: model.RolePatient, FirstName: "Raj", LastName: "Kumar"}
	require.NoError(t, f.store.Users().Register(f.ctx, pu, nil))
	f.patient = pu.ID

	du := &model.User{Base: model.NewBase(testNow), Email: "d@example.com", Role: model.RoleDoctor, FirstName: "Meera", LastName: "Shah"}
	f.doctor = &model.Doctor{Base: model.NewBase(testNow), Specialty: "Dermatology"}
	require.NoError(t, f.store.Users().Register(f.ctx, du, f.doctor))
	return f
}

func (f *fixture) appointment(t *testing.T, status model.AppointmentStatus) *model.Appointment {
	t.Helper()
	f.slots++
	a := &model.Appointment{
		Base:      model.NewBase(testNow),
		PatientID: f.patient,
		DoctorID:  f.doctor.ID,
		Date:      "2030-01-02",
		Time:      fmt.Sprintf("%02d:00", 8+f.slots),
		Status:    status,
	}
	require.NoError(t, f.store.InTx(f.ctx, func(tx repository.LedgerTx) error {
		return tx.InsertAppointment(f.ctx, a)
	}))
	return a
}

func TestSavePrescriptionsDefaultsAndSupply(t *testing.T) {
	f := newFixture(t)
	appt := f.appointment(t, model.AppointmentStatusAccepted)

	saved, err := f.svc.SavePrescriptions(f.ctx, f.doctor.ID, appt.ID, &model.SavePrescriptionRequest{
		Medicines: []model.MedicineInput{
			{MedicineName: "Paracetamol", Tablets: 2, Duration: 5, Price: 3.5},
			{MedicineName: " Cetirizine ", Price: 10},
		},
	})
	require.NoError(t, err)
	require.Len(t, saved, 2)
	assert.Equal(t, 10, saved[0].MedicineSupplied)
	assert.Equal(t, "Cetirizine", saved[1].MedicineName)
	assert.Equal(t, 1, saved[1].Tablets)
	assert.Equal(t, 1, saved[1].Duration)
	assert.Equal(t, 1, saved[1].MedicineSupplied)
	assert.Zero(t, saved[1].MedicineConsumed)

	list, err := f.svc.PatientPrescriptions(f.ctx, f.patient)
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Equal(t, "Dr. Meera Shah", list[0].DoctorName)
}

func TestSavePrescriptionsRejections(t *testing.T) {
	f := newFixture(t)
	pending := f.appointment(t, model.AppointmentStatusPending)
	accepted := f.appointment(t, model.AppointmentStatusAccepted)
	one := &model.SavePrescriptionRequest{Medicines: []model.MedicineInput{{MedicineName: "ORS"}}}

	_, err := f.svc.SavePrescriptions(f.ctx, f.doctor.ID, accepted.ID, &model.SavePrescriptionRequest{})
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))

	_, err = f.svc.SavePrescriptions(f.ctx, f.doctor.ID, pending.ID, one)
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))

	_, err = f.svc.SavePrescriptions(f.ctx, uuid.New(), accepted.ID, one)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

	_, err = f.svc.SavePrescriptions(f.ctx, f.doctor.ID, accepted.ID, &model.SavePrescriptionRequest{
		Medicines: []model.MedicineInput{{MedicineName: "  "}},
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))
}

func TestUpdateConsumedBounds(t *testing.T) {
	f := newFixture(t)
	appt := f.appointment(t, model.AppointmentStatusAccepted)
	saved, err := f.svc.SavePrescriptions(f.ctx, f.doctor.ID, appt.ID, &model.SavePrescriptionRequest{
		Medicines: []model.MedicineInput{{MedicineName: "Amoxicillin", Tablets: 3, Duration: 2}},
	})
	require.NoError(t, err)
	id := saved[0].ID

	p, err := f.svc.UpdateConsumed(f.ctx, f.patient, id, 6)
	require.NoError(t, err)
	assert.Equal(t, 6, p.MedicineConsumed)

	_, err = f.svc.UpdateConsumed(f.ctx, f.patient, id, 7)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))
	_, err = f.svc.UpdateConsumed(f.ctx, f.patient, id, -1)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))

	_, err = f.svc.UpdateConsumed(f.ctx, uuid.New(), id, 1)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

	stored, err := f.store.Prescriptions().Get(f.ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 6, stored.MedicineConsumed)
}

func TestBillAddsGST(t *testing.T) {
	f := newFixture(t)
	appt := f.appointment(t, model.AppointmentStatusAccepted)

	_, err := f.svc.Bill(f.ctx, f.patient, appt.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

	_, err = f.svc.SavePrescriptions(f.ctx, f.doctor.ID, appt.ID, &model.SavePrescriptionRequest{
		Medicines: []model.MedicineInput{
			{MedicineName: "Paracetamol", Tablets: 2, Duration: 5, Price: 3.5},
			{MedicineName: "Syrup", Tablets: 1, Duration: 1, Price: 85},
		},
	})
	require.NoError(t, err)

	bill, err := f.svc.Bill(f.ctx, f.patient, appt.ID)
	require.NoError(t, err)
	require.Len(t, bill.Medicines, 2)
	assert.Equal(t, 35.0, bill.Medicines[0].Total)
	assert.Equal(t, 120.0, bill.Subtotal)
	assert.Equal(t, 18.0, bill.GSTRate)
	assert.Equal(t, 21.6, bill.GSTAmount)
	assert.Equal(t, 141.6, bill.TotalAmount)
	assert.Equal(t, "Raj Kumar", bill.PatientName)
	assert.Equal(t, "Dermatology", bill.DoctorSpecialty)

	_, err = f.svc.Bill(f.ctx, uuid.New(), appt.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestNotesUpsert(t *testing.T) {
	f := newFixture(t)
	appt := f.appointment(t, model.AppointmentStatusAccepted)

	_, err := f.svc.Notes(f.ctx, f.doctor.ID, appt.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

	_, err = f.svc.SaveNotes(f.ctx, f.doctor.ID, appt.ID, &model.SaveNotesRequest{Notes: "rash on arm"})
	require.NoError(t, err)
	_, err = f.svc.SaveNotes(f.ctx, f.doctor.ID, appt.ID, &model.SaveNotesRequest{Notes: "rash fading", Diagnosis: "eczema"})
	require.NoError(t, err)

	note, err := f.svc.Notes(f.ctx, f.doctor.ID, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, "rash fading", note.Notes)
	assert.Equal(t, "eczema", note.Diagnosis)

	_, err = f.svc.SaveNotes(f.ctx, uuid.New(), appt.ID, &model.SaveNotesRequest{Notes: "x"})
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestRecordVitalsUsesClinicDate(t *testing.T) {
	f := newFixture(t)
	weight, height := 70.5, 172.0
	sys, dia := 120, 80
	req := &model.SaveVitalsRequest{Weight: &weight, Height: &height, BPSystolic: &sys, BPDiastolic: &dia}

	_, err := f.svc.RecordVitals(f.ctx, f.doctor.ID, f.patient, req)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

	f.appointment(t, model.AppointmentStatusAccepted)
	v, err := f.svc.RecordVitals(f.ctx, f.doctor.ID, f.patient, req)
	require.NoError(t, err)
	// 20:00 UTC is already the next day in IST.
	assert.Equal(t, "2030-01-02", v.Date)

	_, err = f.svc.RecordVitals(f.ctx, f.doctor.ID, f.patient, &model.SaveVitalsRequest{Weight: &weight})
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))

	list, err := f.svc.Vitals(f.ctx, f.patient)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 120, list[0].BPSystolic)
}
