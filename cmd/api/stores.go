package main

import (
	"context"
	"fmt"

	"github.com/jwalitptl/clinic-api/config"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/repository/memory"
	"github.com/jwalitptl/clinic-api/internal/repository/postgres"
)

// stores is every repository the API uses, backed by one driver.
type stores struct {
	users         repository.UserRepository
	doctors       repository.DoctorRepository
	patients      repository.PatientRepository
	appointments  repository.AppointmentRepository
	wallets       repository.WalletRepository
	notifications repository.NotificationRepository
	prescriptions repository.PrescriptionRepository
	consultations repository.ConsultationRepository
	outbox        repository.OutboxRepository
	ledger        repository.LedgerStore

	ping  func(ctx context.Context) error
	close func() error
}

func openStores(cfg config.DatabaseConfig) (*stores, error) {
	switch cfg.Driver {
	case "memory":
		s := memory.NewStore()
		return &stores{
			users:         s.Users(),
			doctors:       s.Doctors(),
			patients:      s.Patients(),
			appointments:  s.Appointments(),
			wallets:       s.Wallets(),
			notifications: s.Notifications(),
			prescriptions: s.Prescriptions(),
			consultations: s.Consultations(),
			outbox:        s.Outbox(),
			ledger:        s,
			ping:          func(context.Context) error { return nil },
			close:         func() error { return nil },
		}, nil

	case "postgres":
		db, err := postgres.NewDB(cfg)
		if err != nil {
			return nil, err
		}
		base := postgres.NewBaseRepository(db)
		return &stores{
			users:         postgres.NewUserRepository(base),
			doctors:       postgres.NewDoctorRepository(base),
			patients:      postgres.NewPatientRepository(base),
			appointments:  postgres.NewAppointmentRepository(base),
			wallets:       postgres.NewWalletRepository(base),
			notifications: postgres.NewNotificationRepository(base),
			prescriptions: postgres.NewPrescriptionRepository(base),
			consultations: postgres.NewConsultationRepository(base),
			outbox:        postgres.NewOutboxRepository(base),
			ledger:        postgres.NewLedgerStore(base),
			ping:          db.PingContext,
			close:         db.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}
