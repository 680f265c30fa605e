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
	"github.com/kelseyhightower/envconfig"

	"github.com/jwalitptl/clinic-api/config"
	"github.com/jwalitptl/clinic-api/internal/email"
	"github.com/jwalitptl/clinic-api/internal/handler/health"
	"github.com/jwalitptl/clinic-api/internal/repository/postgres"
	"github.com/jwalitptl/clinic-api/internal/service/notification"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/messaging"
	"github.com/jwalitptl/clinic-api/pkg/messaging/redis"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
	"github.com/jwalitptl/clinic-api/pkg/worker"
)

// Settings only the worker reads, from WORKER_* variables.
type workerConfig struct {
	HealthPort int `envconfig:"HEALTH_PORT" default:"8081"`
	// Dispatch runs the email dispatcher alongside the outbox processor.
	Dispatch bool   `envconfig:"DISPATCH" default:"true"`
	ID       string `envconfig:"ID"`
}

func main() {
	var wc workerConfig
	if err := envconfig.Process("worker", &wc); err != nil {
		fmt.Fprintf(os.Stderr, "invalid worker environment: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Logging.Level),
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		JSON:       cfg.Logging.JSON,
	})
	log.SetGlobal()
	if wc.ID == "" {
		wc.ID = workerID()
	}
	log = log.WithFields(map[string]interface{}{"worker_id": wc.ID})

	if err := run(cfg, wc, log); err != nil {
		log.Fatal(err, "worker stopped")
	}
}

func run(cfg *config.Config, wc workerConfig, log *logger.Logger) error {
	if cfg.Database.Driver != "postgres" {
		return fmt.Errorf("the worker needs the postgres driver, got %q", cfg.Database.Driver)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	broker, err := redis.NewRedisBroker(ctx, cfg.Redis.ToBrokerConfig(), log.Zerolog())
	if err != nil {
		return err
	}
	adapter := messaging.NewBrokerAdapter(broker, log)
	defer adapter.Close()

	base := postgres.NewBaseRepository(db)
	m := metrics.NewMetrics("clinic", "worker", nil)

	processor, err := worker.NewOutboxProcessor(
		postgres.NewOutboxRepository(base),
		broker,
		cfg.Outbox.ToWorkerConfig(),
		log,
		m,
	)
	if err != nil {
		return err
	}

	if wc.Dispatch {
		dispatcher := notification.NewDispatcher(adapter, postgres.NewUserRepository(base), email.NewService(cfg.Email, log), log)
		if err := dispatcher.Start(ctx); err != nil {
			return err
		}
	}

	srv := healthServer(wc.HealthPort, map[string]health.Checker{
		"database": health.CheckerFunc(db.PingContext),
		"redis":    broker,
	})
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(err, "health check server failed")
			stop()
		}
	}()

	processor.Start(ctx)

	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func healthServer(port int, checks map[string]health.Checker) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	health.NewHandler(checks, nil).RegisterRoutes(&engine.RouterGroup)

	return &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: engine,
	}
}

func workerID() string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return fmt.Sprintf("%s-%d", hostname, time.Now().UnixNano())
}
