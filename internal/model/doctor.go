package model

import (
	"github.com/google/uuid"
)

type Doctor struct {
	Base
	UserID           uuid.UUID `db:"user_id" json:"user_id"`
	FirstName        string    `db:"first_name" json:"first_name"`
	LastName         string    `db:"last_name" json:"last_name"`
	Specialty        string    `db:"specialty" json:"specialty"`
	Fees             float64   `db:"fees" json:"fees"`
	Age              *int      `db:"age" json:"age,omitempty"`
	Experience       *int      `db:"experience" json:"experience,omitempty"`
	Qualification    string    `db:"qualification" json:"qualification,omitempty"`
	LicenseNumber    string    `db:"license_number" json:"license_number,omitempty"`
	Hospital         string    `db:"hospital" json:"hospital,omitempty"`
	Landmark         string    `db:"landmark" json:"landmark,omitempty"`
	StaffCount       *int      `db:"staff_count" json:"staff_count,omitempty"`
	Languages        string    `db:"languages" json:"languages,omitempty"`
	Reviews          string    `db:"reviews" json:"reviews,omitempty"`
	Awards           string    `db:"awards" json:"awards,omitempty"`
	EmergencyContact string    `db:"emergency_contact" json:"emergency_contact,omitempty"`
	Address
	ProfilePercent  int  `db:"profile_percent" json:"profile_percent"`
	ProfileComplete bool `db:"profile_complete" json:"profile_complete"`
}

func (d *Doctor) DisplayName() string {
	return "Dr. " + d.FirstName + " " + d.LastName
}

// DoctorFilter narrows a doctor listing.
type DoctorFilter struct {
	Specialty    string
	CompleteOnly bool
}

// UpdateDoctorProfileRequest carries a partial doctor profile edit. Nil fields are unchanged.
type UpdateDoctorProfileRequest struct {
	Specialty        *string  `json:"specialty"`
	Fees             *float64 `json:"fees" binding:"omitempty,gte=0"`
	Age              *int     `json:"age" binding:"omitempty,gte=18,lte=120"`
	Experience       *int     `json:"experience" binding:"omitempty,gte=0"`
	Qualification    *string  `json:"qualification"`
	LicenseNumber    *string  `json:"license_number"`
	Hospital         *string  `json:"hospital"`
	City             *string  `json:"city"`
	State            *string  `json:"state"`
	Landmark         *string  `json:"landmark"`
	FullAddress      *string  `json:"full_address"`
	PostalCode       *string  `json:"pincode"`
	Latitude         *float64 `json:"latitude" binding:"omitempty,gte=-90,lte=90"`
	Longitude        *float64 `json:"longitude" binding:"omitempty,gte=-180,lte=180"`
	StaffCount       *int     `json:"staff_count" binding:"omitempty,gte=0"`
	Languages        *string  `json:"languages"`
	Reviews          *string  `json:"reviews"`
	Awards           *string  `json:"awards"`
	EmergencyContact *string  `json:"emergency_contact"`
}

// Apply copies the set fields of req onto d.
func (req *UpdateDoctorProfileRequest) Apply(d *Doctor) {
	setString(&d.Specialty, req.Specialty)
	if req.Fees != nil {
		d.Fees = *req.Fees
	}
	if req.Age != nil {
		d.Age = req.Age
	}
	if req.Experience != nil {
		d.Experience = req.Experience
	}
	setString(&d.Qualification, req.Qualification)
	setString(&d.LicenseNumber, req.LicenseNumber)
	setString(&d.Hospital, req.Hospital)
	setString(&d.City, req.City)
	setString(&d.State, req.State)
	setString(&d.Landmark, req.Landmark)
	setString(&d.Line, req.FullAddress)
	setString(&d.PostalCode, req.PostalCode)
	if req.Latitude != nil {
		d.Latitude = req.Latitude
	}
	if req.Longitude != nil {
		d.Longitude = req.Longitude
	}
	if req.StaffCount != nil {
		d.StaffCount = req.StaffCount
	}
	setString(&d.Languages, req.Languages)
	setString(&d.Reviews, req.Reviews)
	setString(&d.Awards, req.Awards)
	setString(&d.EmergencyContact, req.EmergencyContact)
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
