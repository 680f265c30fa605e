package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/clinic-api/pkg/logger"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migration is one versioned schema file, e.g. "001_core.sql" is version 1.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// Migrator applies the embedded schema files in version order and records
// each one in schema_migrations.
type Migrator struct {
	BaseRepository
	files  fs.FS
	logger *logger.Logger
}

func NewMigrator(db *sqlx.DB, log *logger.Logger) *Migrator {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		panic(err)
	}
	return &Migrator{BaseRepository: NewBaseRepository(db), files: sub, logger: log}
}

// Load returns the embedded migrations sorted by version. Files without a
// numeric prefix are skipped.
func (m *Migrator) Load() ([]Migration, error) {
	entries, err := fs.ReadDir(m.files, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}

	var migrations []Migration
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		prefix, _, ok := strings.Cut(name, "_")
		if !ok {
			continue
		}
		version, err := strconv.Atoi(prefix)
		if err != nil {
			continue
		}
		content, err := fs.ReadFile(m.files, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		migrations = append(migrations, Migration{Version: version, Name: name, SQL: string(content)})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// Up applies every migration not yet recorded and returns how many ran.
func (m *Migrator) Up(ctx context.Context) (int, error) {
	if _, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`); err != nil {
		return 0, fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	var versions []int
	if err := m.db.SelectContext(ctx, &versions, `SELECT version FROM schema_migrations`); err != nil {
		return 0, fmt.Errorf("failed to read applied migrations: %w", err)
	}
	applied := make(map[int]bool, len(versions))
	for _, v := range versions {
		applied[v] = true
	}

	migrations, err := m.Load()
	if err != nil {
		return 0, err
	}

	count := 0
	for _, mig := range migrations {
		if applied[mig.Version] {
			continue
		}
		err := m.WithTx(ctx, func(tx *sqlx.Tx) error {
			if _, err := tx.ExecContext(ctx, mig.SQL); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx,
				`INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`,
				mig.Version, mig.Name)
			return err
		})
		if err != nil {
			return count, fmt.Errorf("failed to apply migration %s: %w", mig.Name, err)
		}
		m.logger.Info("applied migration", "version", mig.Version, "name", mig.Name)
		count++
	}
	return count, nil
}
