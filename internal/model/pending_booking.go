package model

import (
	"time"

	"github.com/google/uuid"
)

// PendingBooking is a booking the patient started but has not confirmed,
// typically parked while they top up the wallet.
type PendingBooking struct {
	PatientID     uuid.UUID     `json:"patient_id"`
	DoctorID      uuid.UUID     `json:"doctor_id"`
	Slots         []Slot        `json:"slots"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	TotalFee      float64       `json:"total_fee"`
	ExpiresAt     time.Time     `json:"expires_at"`
}

func (p *PendingBooking) Expired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}

type StashBookingRequest struct {
	DoctorID      uuid.UUID `json:"doctor_id" binding:"required"`
	Slots         []Slot    `json:"slots" binding:"required,min=1,dive"`
	PaymentMethod string    `json:"payment_method"`
}
