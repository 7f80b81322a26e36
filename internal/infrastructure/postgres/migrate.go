package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/fastygo/taskhub/internal/config"
)

// Migration directions.
const (
	MigrateUp   = "up"
	MigrateDown = "down"
)

// RunMigrations applies all pending migrations when enabled in configuration.
func RunMigrations(cfg *config.Config, logger *zap.Logger) error {
	if cfg == nil || !cfg.Migrations.Enabled {
		return nil
	}
	_, err := Migrate(cfg, MigrateUp, 0, logger)
	return err
}

// Migrate moves the schema in direction. Steps limits how many migrations
// run; zero means all of them. It returns the resulting schema version.
func Migrate(cfg *config.Config, direction string, steps int, logger *zap.Logger) (uint, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if steps < 0 {
		return 0, fmt.Errorf("migrate: negative steps %d", steps)
	}

	sqlDB, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		return 0, err
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		return 0, err
	}

	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{})
	if err != nil {
		return 0, err
	}

	sourceURL := fmt.Sprintf("file://%s", filepath.ToSlash(cfg.Migrations.Path))
	m, err := migrate.NewWithDatabaseInstance(sourceURL, cfg.Database.Name, driver)
	if err != nil {
		return 0, err
	}
	defer m.Close()

	switch {
	case direction == MigrateUp && steps == 0:
		err = m.Up()
	case direction == MigrateUp:
		err = m.Steps(steps)
	case direction == MigrateDown && steps == 0:
		err = m.Down()
	case direction == MigrateDown:
		err = m.Steps(-steps)
	default:
		return 0, fmt.Errorf("migrate: unknown direction %q", direction)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, err
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, err
	}
	logger.Info("database migrations applied",
		zap.String("direction", direction),
		zap.Uint("version", version),
		zap.Bool("dirty", dirty))
	return version, nil
}
