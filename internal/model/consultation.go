package model

import (
	"time"

	"github.com/google/uuid"
)

type ConsultationNote struct {
	AppointmentID uuid.UUID `db:"appointment_id" json:"appointment_id"`
	Notes         string    `db:"notes" json:"notes"`
	Diagnosis     string    `db:"diagnosis" json:"diagnosis"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

type SaveNotesRequest struct {
	Notes     string `json:"notes" binding:"required"`
	Diagnosis string `json:"diagnosis"`
}

type Vitals struct {
	ID          uuid.UUID `db:"id" json:"id"`
	PatientID   uuid.UUID `db:"patient_id" json:"patient_id"`
	Weight      float64   `db:"weight" json:"weight"`
	Height      float64   `db:"height" json:"height"`
	BPSystolic  int       `db:"bp_systolic" json:"bp_systolic"`
	BPDiastolic int       `db:"bp_diastolic" json:"bp_diastolic"`
	Date        string    `db:"date" json:"date"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// SaveVitalsRequest uses pointers so a zero reading is distinguishable from a missing one.
type SaveVitalsRequest struct {
	Weight      *float64 `json:"weight" binding:"required,gt=0"`
	Height      *float64 `json:"height" binding:"required,gt=0"`
	BPSystolic  *int     `json:"bp_systolic" binding:"required,gt=0"`
	BPDiastolic *int     `json:"bp_diastolic" binding:"required,gt=0"`
}
