package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jwalitptl/clinic-api/config"
	"github.com/jwalitptl/clinic-api/internal/repository/postgres"
	"github.com/jwalitptl/clinic-api/pkg/logger"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "clinic-api",
		Short: "Clinic booking and consultation API",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			return runServer(cfg)
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			timeout, _ := cmd.Flags().GetDuration("timeout")

			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			if cfg.Database.Driver != "postgres" {
				return fmt.Errorf("migrate needs the postgres driver, got %q", cfg.Database.Driver)
			}
			log := newLogger(cfg)

			db, err := postgres.NewDB(cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			count, err := postgres.NewMigrator(db, log).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().Duration("timeout", 2*time.Minute, "Give up after this long")
	cmd.AddCommand(upCmd)

	return cmd
}

func newLogger(cfg *config.Config) *logger.Logger {
	log := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Logging.Level),
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		JSON:       cfg.Logging.JSON,
	})
	log.SetGlobal()
	return log
}
