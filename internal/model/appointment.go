package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusAccepted  AppointmentStatus = "accepted"
	AppointmentStatusRejected  AppointmentStatus = "rejected"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

var appointmentTransitions = map[AppointmentStatus][]AppointmentStatus{
	AppointmentStatusPending:  {AppointmentStatusAccepted, AppointmentStatusRejected, AppointmentStatusCancelled},
	AppointmentStatusAccepted: {AppointmentStatusRejected, AppointmentStatusCancelled},
}

// CanTransition reports whether the lifecycle allows moving from s to next.
func (s AppointmentStatus) CanTransition(next AppointmentStatus) bool {
	for _, allowed := range appointmentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s AppointmentStatus) Terminal() bool {
	return len(appointmentTransitions[s]) == 0
}

// Holds reports whether an appointment in this status occupies its slot.
func (s AppointmentStatus) Holds() bool {
	return s == AppointmentStatusPending || s == AppointmentStatusAccepted
}

type Appointment struct {
	Base
	PatientID uuid.UUID         `db:"patient_id" json:"patient_id"`
	DoctorID  uuid.UUID         `db:"doctor_id" json:"doctor_id"`
	Date      string            `db:"date" json:"date"`
	Time      string            `db:"time" json:"time"`
	Status    AppointmentStatus `db:"status" json:"status"`
	Fee       float64           `db:"fee" json:"fee"`

	// DoctorCredit is what accepting paid into the doctor's wallet.
	DoctorCredit float64 `db:"doctor_credit" json:"-"`
}

func (a *Appointment) Slot() Slot {
	return Slot{Date: a.Date, Time: a.Time}
}

// AppointmentDetail is an appointment joined with the names shown in listings.
type AppointmentDetail struct {
	Appointment
	PatientName string `db:"patient_name" json:"patient_name"`
	DoctorName  string `db:"doctor_name" json:"doctor_name"`
	Specialty   string `db:"specialty" json:"specialty"`
}

const (
	SlotDateLayout = "2006-01-02"
	SlotTimeLayout = "15:04"
	slotLayout     = SlotDateLayout + " " + SlotTimeLayout
)

// Slot is a bookable (date, time) pair in the clinic's local time.
type Slot struct {
	Date string `json:"date" binding:"required,slotdate"`
	Time string `json:"time" binding:"required,slottime"`
}

// Start parses the slot in loc.
func (s Slot) Start(loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(slotLayout, s.Date+" "+s.Time, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid slot %q %q: %w", s.Date, s.Time, err)
	}
	return t, nil
}

func (s Slot) String() string {
	return s.Date + " " + s.Time
}

// DedupeSlots drops repeated slots, keeping first occurrences in order.
func DedupeSlots(slots []Slot) []Slot {
	seen := make(map[Slot]struct{}, len(slots))
	out := make([]Slot, 0, len(slots))
	for _, s := range slots {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

type CreateBookingRequest struct {
	DoctorID      uuid.UUID `json:"doctor_id" binding:"required"`
	Slots         []Slot    `json:"slots" binding:"required,min=1,dive"`
	PaymentMethod string    `json:"payment_method" binding:"required"`
	CardNumber    string    `json:"card_number"`
	UPIID         string    `json:"upi_id"`
}

type RejectBookingRequest struct {
	DeleteNotification bool `json:"delete_notification"`
}

type CancelByDateRequest struct {
	Date string `json:"date" binding:"required,slotdate"`
}

type AppointmentFilters struct {
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
	Status    AppointmentStatus
	Date      string
}
