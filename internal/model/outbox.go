package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusProcessed OutboxStatus = "processed"
	OutboxStatusFailed    OutboxStatus = "failed"
)

// Event types published by ledger transitions.
const (
	EventAppointmentRequested = "appointment.requested"
	EventAppointmentAccepted  = "appointment.accepted"
	EventAppointmentRejected  = "appointment.rejected"
	EventAppointmentCancelled = "appointment.cancelled"
	EventWalletCredited       = "wallet.credited"
)

type OutboxEvent struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	EventType    string          `db:"event_type" json:"event_type"`
	Payload      json.RawMessage `db:"payload" json:"payload"`
	Status       OutboxStatus    `db:"status" json:"status"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
	RetryCount   int             `db:"retry_count" json:"retry_count"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	ProcessedAt  *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// NewOutboxEvent marshals payload into a pending event.
func NewOutboxEvent(eventType string, payload interface{}, now time.Time) (*OutboxEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return &OutboxEvent{
		ID:        uuid.New(),
		EventType: eventType,
		Payload:   data,
		Status:    OutboxStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// LedgerEvent is the payload of every appointment.* and wallet.* event.
type LedgerEvent struct {
	AppointmentIDs []uuid.UUID `json:"appointment_ids,omitempty"`
	PatientID      uuid.UUID   `json:"patient_id"`
	DoctorID       uuid.UUID   `json:"doctor_id"`
	UserID         uuid.UUID   `json:"user_id"`
	Amount         float64     `json:"amount,omitempty"`
	Recipient      uuid.UUID   `json:"recipient"`
	Message        string      `json:"message"`
}
