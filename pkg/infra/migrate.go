package infra

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
	"gorm.io/gorm"

	postgres_wrapper "github.com/joripage/ergodic/pkg/infra/postgres"
)

// DefaultSource is where cmd/migrate finds the trade archive schema.
const DefaultSource = "file://migration/sql"

// IMigrateTool tool to migrate schema and data.
type IMigrateTool interface {
	// Connect to the archive database and bring its schema up to date.
	CreateDBAndMigrate(ctx context.Context, cfg *postgres_wrapper.PostgresConfig, source string) (*gorm.DB, error)

	// Migrate from current version to latest version.
	Migrate(source string, connStr string) error
}

type migrateTool struct {
	mu sync.Mutex
}

var once sync.Once         // nolint
var singleton IMigrateTool // nolint

// GetMigrateTool get singleton instance for migrate tool
func GetMigrateTool() IMigrateTool { // nolint
	once.Do(func() {
		singleton = &migrateTool{}
	})
	return singleton
}

// Migrate execute migration in serialize.
func (mt *migrateTool) Migrate(source string, connStr string) error {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	zap.S().Infof("migrating from %s", source)

	mg, err := migrate.New(source, connStr)
	if err != nil {
		return fmt.Errorf("create migration: %w", err)
	}
	defer mg.Close()

	version, dirty, err := mg.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("read migration version: %w", err)
	}

	if dirty {
		zap.S().Warnf("schema version %d is dirty, forcing back one step", version)
		if err := mg.Force(int(version) - 1); err != nil {
			return fmt.Errorf("force version %d: %w", version-1, err)
		}
	}

	if err := mg.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}

	zap.S().Info("migration done")
	return nil
}

// CreateDBAndMigrate connects with backoff, then migrates through cfg.MigrationConnURL.
func (mt *migrateTool) CreateDBAndMigrate(ctx context.Context, cfg *postgres_wrapper.PostgresConfig, source string) (*gorm.DB, error) {
	db, err := postgres_wrapper.InitPostgresWithBackoff(ctx, cfg)
	if err != nil {
		return nil, err
	}

	connStr := cfg.MigrationConnURL
	if connStr == "" {
		connStr = cfg.DataSource
	}
	if err := mt.Migrate(source, connStr); err != nil {
		return nil, err
	}
	return db, nil
}
