package model

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationAppointmentRequest   NotificationType = "appointment_request"
	NotificationAppointmentAccepted  NotificationType = "appointment_accepted"
	NotificationAppointmentRejected  NotificationType = "appointment_rejected"
	NotificationAppointmentCancelled NotificationType = "appointment_cancelled"
	NotificationGeneral              NotificationType = "general"
)

type Notification struct {
	ID            uuid.UUID        `db:"id" json:"id"`
	UserID        uuid.UUID        `db:"user_id" json:"user_id"`
	Message       string           `db:"message" json:"message"`
	Type          NotificationType `db:"type" json:"type"`
	AppointmentID *uuid.UUID       `db:"appointment_id" json:"appointment_id,omitempty"`
	Read          bool             `db:"read" json:"read"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
}

// NotificationEvent is the payload published for out-of-band delivery.
type NotificationEvent struct {
	NotificationID uuid.UUID        `json:"notification_id"`
	UserID         uuid.UUID        `json:"user_id"`
	Type           NotificationType `json:"type"`
	Content        string           `json:"content"`
	CreatedAt      time.Time        `json:"created_at"`
}
