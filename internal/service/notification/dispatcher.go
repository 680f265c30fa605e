package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jwalitptl/clinic-api/internal/email"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/messaging"
)

var subjects = map[string]string{
	model.EventAppointmentRequested: "New appointment request",
	model.EventAppointmentAccepted:  "Appointment accepted",
	model.EventAppointmentRejected:  "Appointment rejected",
	model.EventAppointmentCancelled: "Appointment cancelled",
	model.EventWalletCredited:       "Wallet topped up",
}

// Dispatcher emails the recipient of every ledger event published on the broker.
type Dispatcher struct {
	broker messaging.MessageBroker
	users  repository.UserRepository
	email  email.Service
	log    *logger.Logger
}

func NewDispatcher(broker messaging.MessageBroker, users repository.UserRepository, emailSvc email.Service, log *logger.Logger) *Dispatcher {
	return &Dispatcher{broker: broker, users: users, email: emailSvc, log: log}
}

// Start subscribes to every ledger topic. Delivery stops when ctx ends.
func (d *Dispatcher) Start(ctx context.Context) error {
	for topic := range subjects {
		topic := topic
		if err := d.broker.Subscribe(ctx, topic, func(payload []byte) error {
			return d.Handle(ctx, topic, payload)
		}); err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
		}
	}
	d.log.Info("notification dispatcher started", "topics", len(subjects))
	return nil
}

func (d *Dispatcher) Handle(ctx context.Context, topic string, payload []byte) error {
	subject, ok := subjects[topic]
	if !ok {
		return fmt.Errorf("unknown topic %q", topic)
	}

	var event model.LedgerEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("failed to decode %s event: %w", topic, err)
	}

	user, err := d.users.Get(ctx, event.Recipient)
	if err != nil {
		return fmt.Errorf("failed to load recipient: %w", err)
	}
	return d.email.Send(ctx, user.Email, subject, event.Message)
}
