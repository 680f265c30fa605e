package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/clinic-api/config"
	"github.com/jwalitptl/clinic-api/internal/email"
	"github.com/jwalitptl/clinic-api/internal/handler/account"
	"github.com/jwalitptl/clinic-api/internal/handler/appointment"
	"github.com/jwalitptl/clinic-api/internal/handler/auth"
	"github.com/jwalitptl/clinic-api/internal/handler/doctor"
	"github.com/jwalitptl/clinic-api/internal/handler/health"
	"github.com/jwalitptl/clinic-api/internal/handler/notification"
	"github.com/jwalitptl/clinic-api/internal/handler/patient"
	"github.com/jwalitptl/clinic-api/internal/middleware"
	"github.com/jwalitptl/clinic-api/internal/router"
	accountService "github.com/jwalitptl/clinic-api/internal/service/account"
	authService "github.com/jwalitptl/clinic-api/internal/service/auth"
	doctorService "github.com/jwalitptl/clinic-api/internal/service/doctor"
	"github.com/jwalitptl/clinic-api/internal/service/ledger"
	"github.com/jwalitptl/clinic-api/internal/service/medical"
	notificationService "github.com/jwalitptl/clinic-api/internal/service/notification"
	patientService "github.com/jwalitptl/clinic-api/internal/service/patient"
	"github.com/jwalitptl/clinic-api/internal/service/pending"
	jwtauth "github.com/jwalitptl/clinic-api/pkg/auth"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/messaging"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
	"github.com/jwalitptl/clinic-api/pkg/security"
	"github.com/jwalitptl/clinic-api/pkg/worker"
)

func runServer(cfg *config.Config) error {
	log := newLogger(cfg)
	gin.SetMode(gin.ReleaseMode)
	loc := cfg.Location()
	m := metrics.NewMetrics("clinic", "api", nil)

	st, err := openStores(cfg.Database)
	if err != nil {
		return err
	}
	defer st.close()

	sealer, err := security.NewSealer([]byte(cfg.Security.EncryptionKey))
	if err != nil {
		return fmt.Errorf("failed to create sealer: %w", err)
	}
	hasher := security.NewBcryptHasher(cfg.Security.BcryptCost)
	tokens := jwtauth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, time.Duration(cfg.JWT.ExpiryHours)*time.Hour)

	// Services
	pendingSvc := pending.NewService(st.doctors, cfg.PendingBooking.TTL, cfg.PendingBooking.CleanupInterval)
	ledgerSvc := ledger.NewService(st.ledger, sealer, m, log,
		ledger.WithLocation(loc),
		ledger.WithPendingBookings(pendingSvc),
	)
	authSvc := authService.NewService(st.users, st.doctors, hasher, tokens, log)
	doctorSvc := doctorService.NewService(st.doctors, st.patients, st.appointments, st.wallets, st.notifications, m, loc)
	patientSvc := patientService.NewService(st.patients, st.appointments, st.wallets, st.notifications, loc)
	medicalSvc := medical.NewService(st.prescriptions, st.consultations, st.appointments, st.patients, st.doctors, loc)
	notificationSvc := notificationService.NewService(st.notifications, st.appointments)
	accountSvc := accountService.NewService(st.wallets, ledgerSvc)

	// Handlers
	checks := map[string]health.Checker{"database": health.CheckerFunc(st.ping)}
	r, err := router.NewRouter(middleware.NewAuthMiddleware(authSvc), router.Handlers{
		Public: []router.Handler{
			health.NewHandler(checks, nil),
			auth.NewHandler(authSvc),
		},
		Shared: []router.Handler{
			account.NewHandler(accountSvc, patientSvc, doctorSvc),
			notification.NewHandler(notificationSvc),
		},
		Patient: []router.Handler{
			patient.NewHandler(patientSvc, doctorSvc, medicalSvc),
			appointment.NewHandler(ledgerSvc, pendingSvc, patientSvc),
		},
		Doctor: []router.Handler{
			doctor.NewHandler(doctorSvc, ledgerSvc, medicalSvc, notificationSvc),
		},
	}, router.RouterConfig{
		RateLimitEnabled: cfg.RateLimit.Enabled,
		RateLimit:        rate.Limit(cfg.RateLimit.RequestsPerSecond),
		RateBurst:        cfg.RateLimit.Burst,
		CORSConfig:       middleware.NewCORSConfig(cfg.CORS),
		RequestTimeout:   cfg.Server.RequestTimeout,
		MaxBodySize:      middleware.DefaultMaxBodySize,
		Metrics:          m,
	})
	if err != nil {
		return err
	}
	r.Setup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The memory store lives in this process, so its outbox is drained here
	// too. With postgres that is cmd/worker's job.
	if cfg.Database.Driver == "memory" {
		if err := startInProcessFanOut(ctx, cfg, st, m, log); err != nil {
			return err
		}
	}

	srv := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        r.Engine(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", srv.Addr, "driver", cfg.Database.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}
	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info("server exited properly")
	return nil
}

func startInProcessFanOut(ctx context.Context, cfg *config.Config, st *stores, m *metrics.Metrics, log *logger.Logger) error {
	broker := messaging.NewMemoryBroker()

	dispatcher := notificationService.NewDispatcher(messaging.NewBrokerAdapter(broker, log), st.users, email.NewService(cfg.Email, log), log)
	if err := dispatcher.Start(ctx); err != nil {
		return err
	}

	processor, err := worker.NewOutboxProcessor(st.outbox, broker, cfg.Outbox.ToWorkerConfig(), log, m)
	if err != nil {
		return err
	}
	go processor.Start(ctx)
	return nil
}
