// Package sqlitestorage implements the storage.Backend interface on SQLite.
// It wraps the GORM backend via composition. With an empty Path the database
// lives in memory and is dumped to DumpPath periodically and on Close via
// VACUUM INTO.
package sqlitestorage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/OCAP2/stats/internal/database"
	"github.com/OCAP2/stats/internal/logging"
	gormstorage "github.com/OCAP2/stats/internal/storage/gorm"

	"gorm.io/gorm"
)

// Config holds configuration for the SQLite storage backend.
type Config struct {
	Path         string        // Database file; empty for in-memory
	DumpPath     string        // Path for VACUUM INTO dumps of the in-memory database
	DumpInterval time.Duration // Zero dumps on Close only
}

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	db       *gorm.DB
	sqlDB    *sql.DB
	cfg      Config
	log      *logging.SlogManager
	stopChan chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New creates a new SQLite storage backend.
func New(cfg Config, logManager *logging.SlogManager) (*Backend, error) {
	if logManager == nil {
		logManager = logging.NewSlogManager()
	}

	db, err := database.OpenSqlite(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite DB: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql interface: %w", err)
	}

	return &Backend{
		Backend: gormstorage.New(gormstorage.Dependencies{
			DB:         db,
			LogManager: logManager,
		}),
		db:       db,
		sqlDB:    sqlDB,
		cfg:      cfg,
		log:      logManager,
		stopChan: make(chan struct{}),
	}, nil
}

func (b *Backend) inMemoryDump() bool {
	return b.cfg.Path == "" && b.cfg.DumpPath != ""
}

// Init initializes the embedded GORM backend and starts the dump goroutine.
func (b *Backend) Init(ctx context.Context) error {
	if err := b.Backend.Init(ctx); err != nil {
		return err
	}

	if b.inMemoryDump() && b.cfg.DumpInterval > 0 {
		b.wg.Add(1)
		go b.dumpLoop()
	}

	return nil
}

// Close stops the dump goroutine, writes a final dump and closes the database.
func (b *Backend) Close() error {
	b.stopOnce.Do(func() { close(b.stopChan) })
	b.wg.Wait()

	var dumpErr error
	if b.inMemoryDump() {
		dumpErr = b.dump()
	}
	if err := b.sqlDB.Close(); err != nil {
		return fmt.Errorf("closing SQLite DB: %w", err)
	}
	return dumpErr
}

func (b *Backend) dump() error {
	took, err := database.DumpMemoryDB(context.Background(), b.db, b.cfg.DumpPath)
	if err != nil {
		b.log.Logger().Error("Error dumping to disk", "path", b.cfg.DumpPath, "error", err)
		return err
	}
	b.log.Logger().Debug("Dumped to disk", "path", b.cfg.DumpPath, "duration", took)
	return nil
}

// dumpLoop periodically dumps the in-memory SQLite database to disk via VACUUM INTO.
// VACUUM INTO creates a point-in-time snapshot, so no pause mechanism is needed.
func (b *Backend) dumpLoop() {
	defer b.wg.Done()
	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			_ = b.dump()
		}
	}
}
