// Package database opens the gorm connections used by the SQL storage
// backends and owns the schema migration.
package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/OCAP2/stats/internal/config"
	"github.com/OCAP2/stats/internal/model"
	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// MemoryDSN is the shared in-memory SQLite database.
const MemoryDSN = "file::memory:?cache=shared"

const createBatchSize = 1000

// Manager connects to Postgres and falls back to a local SQLite file when
// Postgres cannot be reached.
type Manager struct {
	DB *gorm.DB

	// Local is set when the manager fell back to SQLite.
	Local      bool
	SqlitePath string

	log zerolog.Logger
}

// NewManager creates a new database manager.
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{log: log}
}

// Connect opens Postgres with cfg. On failure it opens the SQLite file at
// fallbackPath instead; an empty fallbackPath makes the failure fatal since an
// in-memory fallback would lose every mission on exit.
func (m *Manager) Connect(ctx context.Context, cfg config.DatabaseConfig, fallbackPath string) error {
	db, err := OpenPostgres(ctx, cfg)
	if err == nil {
		m.DB = db
		m.log.Info().Str("host", cfg.Host).Str("database", cfg.Database).Msg("Connected to Postgres")
		return nil
	}
	if fallbackPath == "" {
		return fmt.Errorf("connecting to postgres: %w", err)
	}

	m.log.Error().Err(err).Str("path", fallbackPath).Msg("Failed to connect to Postgres DB, using SQLite")
	db, serr := OpenSqlite(fallbackPath)
	if serr != nil {
		return errors.Join(fmt.Errorf("connecting to postgres: %w", err), serr)
	}
	m.DB = db
	m.Local = true
	m.SqlitePath = fallbackPath
	return nil
}

// Close releases the connection pool.
func (m *Manager) Close() error {
	if m.DB == nil {
		return nil
	}
	sqlDB, err := m.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Migrate creates or updates every table in model.DatabaseModels.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// PostgresDSN builds the keyword/value connection string for cfg.
func PostgresDSN(cfg config.DatabaseConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Database, sslMode)
	if secs := int(cfg.ConnectTimeout / time.Second); secs > 0 {
		dsn += fmt.Sprintf(" connect_timeout=%d", secs)
	}
	return dsn
}

// OpenPostgres opens and pings a Postgres connection pool.
func OpenPostgres(ctx context.Context, cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  PostgresDSN(cfg),
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
		CreateBatchSize:        createBatchSize,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql interface: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to validate connection: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	return db, nil
}

var sqlitePragmas = []string{
	"PRAGMA user_version = 1;",
	"PRAGMA foreign_keys = ON;",
	"PRAGMA synchronous = NORMAL;",
	"PRAGMA cache_size = -32000;",
	"PRAGMA temp_store = MEMORY;",
	"PRAGMA busy_timeout = 5000;",
}

// OpenSqlite opens the SQLite database at path, in memory when path is empty.
// The pool is capped at one connection: pragmas are per connection and
// SQLite serializes writers anyway.
func OpenSqlite(path string) (*gorm.DB, error) {
	dsn, journal := path, "PRAGMA journal_mode = WAL;"
	if dsn == "" {
		dsn, journal = MemoryDSN, "PRAGMA journal_mode = MEMORY;"
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		TranslateError:         true,
		CreateBatchSize:        createBatchSize,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql interface: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	for _, pragma := range append([]string{journal}, sqlitePragmas...) {
		if err := db.Exec(pragma).Error; err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("error setting %q: %w", pragma, err)
		}
	}
	return db, nil
}

// DumpMemoryDB writes db to a fresh file at path with VACUUM INTO.
func DumpMemoryDB(ctx context.Context, db *gorm.DB, path string) (time.Duration, error) {
	if path == "" {
		return 0, errors.New("sqlite dump path not set")
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return 0, fmt.Errorf("error removing existing DB file: %w", err)
	}

	start := time.Now()
	if err := db.WithContext(ctx).Exec("VACUUM INTO ?", "file:"+path).Error; err != nil {
		return 0, fmt.Errorf("error dumping memory DB to disk: %w", err)
	}
	return time.Since(start), nil
}
