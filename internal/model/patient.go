package model

import (
	"time"

	"github.com/google/uuid"
)

// Patient is the patient-side profile of a user. ID equals the user ID.
type Patient struct {
	ID        uuid.UUID `db:"id" json:"id"`
	FirstName string    `db:"first_name" json:"first_name"`
	LastName  string    `db:"last_name" json:"last_name"`
	Email     string    `db:"email" json:"email"`
	Address
	ProfilePercent int       `db:"profile_percent" json:"profile_percent"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

func (p *Patient) FullName() string {
	return p.FirstName + " " + p.LastName
}

// RosterPatient is a patient who has booked with a doctor, with their
// appointment count and most recent appointment date.
type RosterPatient struct {
	Patient
	AppointmentCount int    `db:"appointment_count" json:"appointment_count"`
	LastVisit        string `db:"last_visit" json:"last_visit"`

	Distance        float64 `db:"-" json:"distance"`
	DistanceDisplay string  `db:"-" json:"distance_display"`
}

type UpdatePatientProfileRequest struct {
	City       *string  `json:"city"`
	State      *string  `json:"state"`
	PostalCode *string  `json:"pincode"`
	Address    *string  `json:"address"`
	Latitude   *float64 `json:"latitude" binding:"omitempty,gte=-90,lte=90"`
	Longitude  *float64 `json:"longitude" binding:"omitempty,gte=-180,lte=180"`
}

func (req *UpdatePatientProfileRequest) Apply(p *Patient) {
	setString(&p.City, req.City)
	setString(&p.State, req.State)
	setString(&p.PostalCode, req.PostalCode)
	setString(&p.Line, req.Address)
	if req.Latitude != nil {
		p.Latitude = req.Latitude
	}
	if req.Longitude != nil {
		p.Longitude = req.Longitude
	}
}
