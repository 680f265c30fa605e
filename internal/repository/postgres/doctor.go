package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
)

var doctorFields = []string{
	"d.id", "d.user_id", "u.first_name", "u.last_name", "d.specialty", "d.fees",
	"d.age", "d.experience", "d.qualification", "d.license_number", "d.hospital",
	"d.landmark", "d.staff_count", "d.languages", "d.reviews", "d.awards",
	"d.emergency_contact", "d.latitude", "d.longitude", "d.city", "d.state",
	"d.pincode", "d.address_line", "d.profile_percent", "d.profile_complete",
	"d.created_at", "d.updated_at",
}

var doctorSelect = `SELECT ` + strings.Join(doctorFields, ", ") + `
	FROM doctors d JOIN users u ON u.id = d.user_id`

type doctorRepository struct {
	BaseRepository
	dialect goqu.DialectWrapper
}

func NewDoctorRepository(base BaseRepository) repository.DoctorRepository {
	return &doctorRepository{BaseRepository: base, dialect: goqu.Dialect("postgres")}
}

func (r *doctorRepository) Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	var d model.Doctor
	if err := r.db.GetContext(ctx, &d, doctorSelect+` WHERE d.id = $1`, id); err != nil {
		return nil, getErr("doctor", err)
	}
	return &d, nil
}

func (r *doctorRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Doctor, error) {
	var d model.Doctor
	if err := r.db.GetContext(ctx, &d, doctorSelect+` WHERE d.user_id = $1`, userID); err != nil {
		return nil, getErr("doctor", err)
	}
	return &d, nil
}

func (r *doctorRepository) Update(ctx context.Context, d *model.Doctor) error {
	res, err := r.db.NamedExecContext(ctx, `
		UPDATE doctors SET
			specialty = :specialty, fees = :fees, age = :age, experience = :experience,
			qualification = :qualification, license_number = :license_number,
			hospital = :hospital, landmark = :landmark, staff_count = :staff_count,
			languages = :languages, reviews = :reviews, awards = :awards,
			emergency_contact = :emergency_contact, latitude = :latitude,
			longitude = :longitude, city = :city, state = :state, pincode = :pincode,
			address_line = :address_line, profile_percent = :profile_percent,
			profile_complete = :profile_complete, updated_at = :updated_at
		WHERE id = :id
	`, d)
	if err != nil {
		return fmt.Errorf("failed to update doctor: %w", err)
	}
	return requireAffected(res, "doctor")
}

// List builds its filter with goqu; the ranker imposes the final order.
func (r *doctorRepository) List(ctx context.Context, filter model.DoctorFilter) ([]*model.Doctor, error) {
	cols := make([]interface{}, len(doctorFields))
	for i, f := range doctorFields {
		cols[i] = goqu.I(f)
	}

	ds := r.dialect.From(goqu.T("doctors").As("d")).
		Join(goqu.T("users").As("u"), goqu.On(goqu.I("u.id").Eq(goqu.I("d.user_id")))).
		Select(cols...).
		Order(goqu.I("d.id").Asc())

	if s := strings.TrimSpace(filter.Specialty); s != "" {
		ds = ds.Where(goqu.Func("lower", goqu.I("d.specialty")).Eq(strings.ToLower(s)))
	}
	if filter.CompleteOnly {
		ds = ds.Where(goqu.I("d.profile_complete").IsTrue())
	}

	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build doctor query: %w", err)
	}

	var doctors []*model.Doctor
	if err := r.db.SelectContext(ctx, &doctors, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list doctors: %w", err)
	}
	return doctors, nil
}
