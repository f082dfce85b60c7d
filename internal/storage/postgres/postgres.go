// Package postgres implements the storage.Backend interface on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/OCAP2/stats/internal/config"
	"github.com/OCAP2/stats/internal/database"
	"github.com/OCAP2/stats/internal/logging"
	gormstorage "github.com/OCAP2/stats/internal/storage/gorm"

	"gorm.io/gorm"
)

// Dependencies holds all dependencies for the Postgres storage backend.
// Config is only used when DB is nil.
type Dependencies struct {
	DB         *gorm.DB
	Config     config.DatabaseConfig
	LogManager *logging.SlogManager
}

// Backend wraps the GORM backend with a Postgres connection.
type Backend struct {
	*gormstorage.Backend
	cfg   config.DatabaseConfig
	sqlDB *sql.DB
	owned bool
}

// New creates a new Postgres storage backend.
func New(deps Dependencies) *Backend {
	return &Backend{
		Backend: gormstorage.New(gormstorage.Dependencies{
			DB:         deps.DB,
			LogManager: deps.LogManager,
		}),
		cfg: deps.Config,
	}
}

// Init connects and runs schema migration. Without an injected DB it opens
// its own pool from the configured db settings.
func (b *Backend) Init(ctx context.Context) error {
	if b.DB() == nil {
		db, err := database.OpenPostgres(ctx, b.cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("failed to access sql interface: %w", err)
		}
		b.SetDB(db)
		b.sqlDB = sqlDB
		b.owned = true
	}

	return b.Backend.Init(ctx)
}

// Close releases the connection if the backend opened it.
func (b *Backend) Close() error {
	if b.owned && b.sqlDB != nil {
		return b.sqlDB.Close()
	}
	return nil
}
