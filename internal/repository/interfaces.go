package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
)

// All repository interfaces in one file
type (
	// UserRepository handles accounts. Register creates the user together with
	// its patient or doctor profile and an empty wallet.
	UserRepository interface {
		Register(ctx context.Context, user *model.User, doctor *model.Doctor) error
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByEmail(ctx context.Context, email string) (*model.User, error)
	}

	DoctorRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error)
		GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Doctor, error)
		Update(ctx context.Context, doctor *model.Doctor) error
		List(ctx context.Context, filter model.DoctorFilter) ([]*model.Doctor, error)
	}

	PatientRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
		Update(ctx context.Context, patient *model.Patient) error
	}

	AppointmentRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		List(ctx context.Context, filters model.AppointmentFilters) ([]*model.AppointmentDetail, error)
		BookedSlots(ctx context.Context, doctorID uuid.UUID, fromDate, toDate string) ([]model.Slot, error)
		// Roster returns each patient with appointments at the doctor, latest
		// visit first, then most appointments, then patient ID.
		Roster(ctx context.Context, doctorID uuid.UUID) ([]*model.RosterPatient, error)
	}

	WalletRepository interface {
		// Get returns a zero-balance wallet when the user has none yet.
		Get(ctx context.Context, userID uuid.UUID) (*model.Wallet, error)
		ListPayments(ctx context.Context, userID uuid.UUID, page model.Pagination) ([]*model.Payment, error)
	}

	NotificationRepository interface {
		// ListByUser returns newest first. An empty typ means every type.
		ListByUser(ctx context.Context, userID uuid.UUID, typ model.NotificationType) ([]*model.Notification, error)
		MarkRead(ctx context.Context, userID, id uuid.UUID) error
		MarkAllRead(ctx context.Context, userID uuid.UUID, typ model.NotificationType) error
		UnreadCount(ctx context.Context, userID uuid.UUID) (int, error)
	}

	PrescriptionRepository interface {
		CreateBatch(ctx context.Context, prescriptions []*model.Prescription) error
		Get(ctx context.Context, id uuid.UUID) (*model.Prescription, error)
		UpdateConsumed(ctx context.Context, id uuid.UUID, consumed int) error
		ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]*model.Prescription, error)
		ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.PatientPrescription, error)
	}

	ConsultationRepository interface {
		UpsertNotes(ctx context.Context, note *model.ConsultationNote) error
		GetNotes(ctx context.Context, appointmentID uuid.UUID) (*model.ConsultationNote, error)
		AddVitals(ctx context.Context, vitals *model.Vitals) error
		ListVitals(ctx context.Context, patientID uuid.UUID) ([]*model.Vitals, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		// ProcessPending hands up to limit pending events to fn, one batch at
		// a time, and records each outcome. fn may read the store. It returns
		// how many events fn accepted.
		ProcessPending(ctx context.Context, limit int, fn func(*model.OutboxEvent) error) (int, error)
		PendingCount(ctx context.Context) (int, error)
	}

	// LedgerStore runs fn in one transaction. Any error from fn rolls back
	// every write made through the LedgerTx.
	LedgerStore interface {
		InTx(ctx context.Context, fn func(tx LedgerTx) error) error
	}

	// LedgerTx is the set of writes a ledger transition may make. Lock*
	// methods hold the row until the transaction ends.
	LedgerTx interface {
		GetDoctor(ctx context.Context, id uuid.UUID) (*model.Doctor, error)
		LockDoctor(ctx context.Context, id uuid.UUID) (*model.Doctor, error)
		LockAppointment(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		// LockWallets locks the wallets in ascending user ID order, creating
		// missing ones with a zero balance.
		LockWallets(ctx context.Context, userIDs ...uuid.UUID) (map[uuid.UUID]*model.Wallet, error)
		AdjustWallet(ctx context.Context, userID uuid.UUID, delta float64) error

		SlotTaken(ctx context.Context, doctorID uuid.UUID, slot model.Slot) (bool, error)
		InsertAppointment(ctx context.Context, appointment *model.Appointment) error
		SetAppointmentStatus(ctx context.Context, id uuid.UUID, status model.AppointmentStatus) error
		SetDoctorCredit(ctx context.Context, id uuid.UUID, amount float64) error
		DeleteAppointment(ctx context.Context, id uuid.UUID) error
		LockAppointmentsOn(ctx context.Context, doctorID uuid.UUID, date string, status model.AppointmentStatus) ([]*model.Appointment, error)

		InsertPayment(ctx context.Context, payment *model.Payment) error
		// LatestCompletedPayment returns nil, nil when the appointment has none.
		LatestCompletedPayment(ctx context.Context, appointmentID uuid.UUID) (*model.Payment, error)
		// RefundPayment flips a completed payment to refunded and reports
		// whether it did; a payment already refunded yields false.
		RefundPayment(ctx context.Context, paymentID uuid.UUID) (bool, error)

		InsertNotification(ctx context.Context, notification *model.Notification) error
		DeleteNotifications(ctx context.Context, appointmentID uuid.UUID, typ model.NotificationType) error
		MarkNotificationsRead(ctx context.Context, appointmentID uuid.UUID, typ model.NotificationType) error

		EnqueueEvent(ctx context.Context, event *model.OutboxEvent) error
	}
)
