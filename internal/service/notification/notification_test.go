package notification

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/repository/memory"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/messaging"
)

type sentMail struct {
	to, subject, body string
}

type recordingEmail struct {
	mu   sync.Mutex
	sent []sentMail
}

func (r *recordingEmail) Send(_ context.Context, to, subject, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentMail{to, subject, body})
	return nil
}

func (r *recordingEmail) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

func register(t *testing.T, store *memory.Store, role model.Role, doctor *model.Doctor) *model.User {
	t.Helper()
	u := &model.User{Base: model.NewBase(time.Now()), Email: uuid.NewString() + "@example.com", Role: role}
	require.NoError(t, store.Users().Register(context.Background(), u, doctor))
	return u
}

func TestDoctorRequestsMarksRead(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	doctor := &model.Doctor{Base: model.NewBase(time.Now()), Specialty: "Urology"}
	register(t, store, model.RoleDoctor, doctor)
	patient := register(t, store, model.RolePatient, nil)

	appt := &model.Appointment{Base: model.NewBase(time.Now()), PatientID: patient.ID, DoctorID: doctor.ID, Date: "2030-01-02", Time: "10:00", Status: model.AppointmentStatusPending}
	require.NoError(t, store.InTx(ctx, func(tx repository.LedgerTx) error {
		if err := tx.InsertAppointment(ctx, appt); err != nil {
			return err
		}
		return tx.InsertNotification(ctx, &model.Notification{ID: uuid.New(), UserID: doctor.UserID, Type: model.NotificationAppointmentRequest, AppointmentID: &appt.ID})
	}))

	svc := NewService(store.Notifications(), store.Appointments())
	n, err := svc.UnreadCount(ctx, doctor.UserID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	requests, err := svc.DoctorRequests(ctx, doctor)
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, appt.ID, requests[0].ID)

	n, err = svc.UnreadCount(ctx, doctor.UserID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDispatcherEmailsRecipient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := memory.NewStore()
	patient := register(t, store, model.RolePatient, nil)

	adapter := messaging.NewBrokerAdapter(messaging.NewMemoryBroker(), logger.Nop())
	mail := &recordingEmail{}
	d := NewDispatcher(adapter, store.Users(), mail, logger.Nop())
	require.NoError(t, d.Start(ctx))

	event, err := model.NewOutboxEvent(model.EventWalletCredited, model.LedgerEvent{Recipient: patient.ID, Message: "Rs 100.00 added"}, time.Now())
	require.NoError(t, err)
	require.NoError(t, adapter.Publish(ctx, event.EventType, event.Payload))

	assert.Eventually(t, func() bool { return mail.count() == 1 }, time.Second, 5*time.Millisecond)
	mail.mu.Lock()
	assert.Equal(t, sentMail{patient.Email, "Wallet topped up", "Rs 100.00 added"}, mail.sent[0])
	mail.mu.Unlock()
}

func TestDispatcherHandleErrors(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	d := NewDispatcher(nil, store.Users(), &recordingEmail{}, logger.Nop())

	assert.Error(t, d.Handle(ctx, "unknown.topic", []byte(`{}`)))
	assert.Error(t, d.Handle(ctx, model.EventAppointmentAccepted, []byte(`{`)))
	assert.Error(t, d.Handle(ctx, model.EventAppointmentAccepted, []byte(`{"recipient":"`+uuid.NewString()+`"}`)))
}
