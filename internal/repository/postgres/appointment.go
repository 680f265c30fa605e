package postgres

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

const appointmentColumns = `id, patient_id, doctor_id, date, time, status, fee, doctor_credit, created_at, updated_at`

type appointmentRepository struct {
	BaseRepository
	dialect goqu.DialectWrapper
}

func NewAppointmentRepository(base BaseRepository) repository.AppointmentRepository {
	return &appointmentRepository{BaseRepository: base, dialect: goqu.Dialect("postgres")}
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	var a model.Appointment
	if err := r.db.GetContext(ctx, &a, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id); err != nil {
		return nil, getErr("appointment", err)
	}
	return &a, nil
}

func (r *appointmentRepository) List(ctx context.Context, filters model.AppointmentFilters) ([]*model.AppointmentDetail, error) {
	ds := r.dialect.From(goqu.T("appointments").As("a")).
		Join(goqu.T("users").As("pu"), goqu.On(goqu.I("pu.id").Eq(goqu.I("a.patient_id")))).
		Join(goqu.T("doctors").As("d"), goqu.On(goqu.I("d.id").Eq(goqu.I("a.doctor_id")))).
		Join(goqu.T("users").As("du"), goqu.On(goqu.I("du.id").Eq(goqu.I("d.user_id")))).
		Select(
			goqu.I("a.id"), goqu.I("a.patient_id"), goqu.I("a.doctor_id"),
			goqu.I("a.date"), goqu.I("a.time"), goqu.I("a.status"), goqu.I("a.fee"), goqu.I("a.doctor_credit"),
			goqu.I("a.created_at"), goqu.I("a.updated_at"),
			goqu.L(`pu.first_name || ' ' || pu.last_name`).As("patient_name"),
			goqu.L(`'Dr. ' || du.first_name || ' ' || du.last_name`).As("doctor_name"),
			goqu.I("d.specialty"),
		).
		Order(goqu.I("a.date").Asc(), goqu.I("a.time").Asc(), goqu.I("a.id").Asc())

	if filters.PatientID != nil {
		ds = ds.Where(goqu.I("a.patient_id").Eq(filters.PatientID.String()))
	}
	if filters.DoctorID != nil {
		ds = ds.Where(goqu.I("a.doctor_id").Eq(filters.DoctorID.String()))
	}
	if filters.Status != "" {
		ds = ds.Where(goqu.I("a.status").Eq(string(filters.Status)))
	}
	if filters.Date != "" {
		ds = ds.Where(goqu.I("a.date").Eq(filters.Date))
	}

	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build appointment query: %w", err)
	}

	var out []*model.AppointmentDetail
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return out, nil
}

func (r *appointmentRepository) BookedSlots(ctx context.Context, doctorID uuid.UUID, fromDate, toDate string) ([]model.Slot, error) {
	var slots []model.Slot
	err := r.db.SelectContext(ctx, &slots, `
		SELECT date, time FROM appointments
		WHERE doctor_id = $1 AND status IN ('pending', 'accepted')
			AND date >= $2 AND date <= $3
		ORDER BY date, time
	`, doctorID, fromDate, toDate)
	if err != nil {
		return nil, fmt.Errorf("failed to list booked slots: %w", err)
	}
	return slots, nil
}

func (r *appointmentRepository) Roster(ctx context.Context, doctorID uuid.UUID) ([]*model.RosterPatient, error) {
	var out []*model.RosterPatient
	err := r.db.SelectContext(ctx, &out, `
		SELECT p.id, u.first_name, u.last_name, u.email,
			p.latitude, p.longitude, p.city, p.state, p.pincode, p.address_line,
			p.profile_percent, p.created_at, p.updated_at,
			COUNT(a.id) AS appointment_count, MAX(a.date) AS last_visit
		FROM appointments a
		JOIN patients p ON p.id = a.patient_id
		JOIN users u ON u.id = p.id
		WHERE a.doctor_id = $1
		GROUP BY p.id, u.id
		ORDER BY last_visit DESC, appointment_count DESC, p.id
	`, doctorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return out, nil
}
