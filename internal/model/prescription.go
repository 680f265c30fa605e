package model

import (
	"time"

	"github.com/google/uuid"
)

// GSTRate is the tax applied to medicine bills, in percent.
const GSTRate = 18.0

type Prescription struct {
	ID               uuid.UUID `db:"id" json:"id"`
	AppointmentID    uuid.UUID `db:"appointment_id" json:"appointment_id"`
	MedicineName     string    `db:"medicine_name" json:"medicine_name"`
	Tablets          int       `db:"tablets" json:"tablets"`
	Timing           string    `db:"timing" json:"timing"`
	BeforeAfterEat   string    `db:"before_after_eat" json:"before_after_eat"`
	Price            float64   `db:"price" json:"price"`
	Duration         int       `db:"duration" json:"duration"`
	MedicineSupplied int       `db:"medicine_supplied" json:"medicine_supplied"`
	MedicineConsumed int       `db:"medicine_consumed" json:"medicine_consumed"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

type MedicineInput struct {
	MedicineName   string  `json:"medicine_name" binding:"required"`
	Tablets        int     `json:"tablets" binding:"gte=0"`
	Timing         string  `json:"timing"`
	BeforeAfterEat string  `json:"before_after_eat"`
	Price          float64 `json:"price" binding:"gte=0"`
	Duration       int     `json:"duration" binding:"gte=0"`
}

type SavePrescriptionRequest struct {
	Medicines []MedicineInput `json:"medicines" binding:"required,min=1,dive"`
}

type UpdateConsumedRequest struct {
	MedicineConsumed int `json:"medicine_consumed"`
}

// PatientPrescription is a prescription joined with its appointment for the patient view.
type PatientPrescription struct {
	Prescription
	AppointmentDate string `db:"appointment_date" json:"appointment_date"`
	DoctorName      string `db:"doctor_name" json:"doctor_name"`
}

type BillLine struct {
	MedicineName string  `json:"medicine_name"`
	Tablets      int     `json:"tablets"`
	Price        float64 `json:"price"`
	Duration     int     `json:"duration"`
	Total        float64 `json:"total"`
}

type Bill struct {
	PatientName     string     `json:"patient_name"`
	DoctorName      string     `json:"doctor_name"`
	DoctorSpecialty string     `json:"doctor_specialty"`
	AppointmentDate string     `json:"appointment_date"`
	Medicines       []BillLine `json:"medicines"`
	Subtotal        float64    `json:"subtotal"`
	GSTRate         float64    `json:"gst_rate"`
	GSTAmount       float64    `json:"gst_amount"`
	TotalAmount     float64    `json:"total_amount"`
}
