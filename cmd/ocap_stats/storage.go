package main

import (
	"context"
	"fmt"

	"github.com/OCAP2/stats/internal/config"
	"github.com/OCAP2/stats/internal/database"
	"github.com/OCAP2/stats/internal/storage"
	"github.com/OCAP2/stats/internal/storage/memory"
	pgstorage "github.com/OCAP2/stats/internal/storage/postgres"
	sqlitestorage "github.com/OCAP2/stats/internal/storage/sqlite"
)

func createStorageBackend(ctx context.Context, a *app, storageCfg config.StorageConfig) (storage.Backend, error) {
	switch storageCfg.Type {
	case "postgres":
		// Fall back to the local sqlite file when postgres is unreachable.
		mgr := database.NewManager(a.ZLogger)
		if err := mgr.Connect(ctx, config.GetDatabaseConfig(), storageCfg.SQLite.Path); err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if mgr.Local {
			a.Logger.Warn("Postgres unavailable, saving to local SQLite", "path", mgr.SqlitePath)
		}
		a.Logger.Info("Postgres storage backend initialized")
		return &managedBackend{
			Backend: pgstorage.New(pgstorage.Dependencies{
				DB:         mgr.DB,
				LogManager: a.SlogManager,
			}),
			mgr: mgr,
		}, nil

	case "sqlite":
		backend, err := sqlitestorage.New(sqlitestorage.Config{
			Path:         storageCfg.SQLite.Path,
			DumpPath:     storageCfg.SQLite.DumpPath,
			DumpInterval: storageCfg.SQLite.DumpInterval,
		}, a.SlogManager)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		a.Logger.Info("SQLite storage backend initialized", "path", storageCfg.SQLite.Path)
		return backend, nil

	case "memory":
		a.Logger.Info("Memory storage backend initialized", "outputDir", storageCfg.Memory.OutputDir)
		return memory.New(storageCfg.Memory), nil

	default:
		return nil, fmt.Errorf("unknown storage type %q", storageCfg.Type)
	}
}

// managedBackend closes the database manager's pool along with the backend.
type managedBackend struct {
	*pgstorage.Backend
	mgr *database.Manager
}

func (b *managedBackend) Close() error {
	if err := b.Backend.Close(); err != nil {
		return err
	}
	return b.mgr.Close()
}
