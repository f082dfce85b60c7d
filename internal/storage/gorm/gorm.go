// Package gormstorage implements the storage.Backend interface on top of a
// GORM connection. The postgres and sqlite backends embed it and only differ
// in how the connection is opened.
package gormstorage

import (
	"context"
	"errors"
	"fmt"

	"github.com/OCAP2/stats/internal/database"
	"github.com/OCAP2/stats/internal/logging"
	"github.com/OCAP2/stats/internal/model"
	"github.com/OCAP2/stats/internal/model/convert"
	"github.com/OCAP2/stats/internal/squads"
	"github.com/OCAP2/stats/internal/storage"
	"github.com/OCAP2/stats/pkg/core"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// rowBatchSize bounds the rows of one INSERT statement.
const rowBatchSize = 500

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB         *gorm.DB
	LogManager *logging.SlogManager
}

// Backend implements storage.Backend using GORM. It does not own the
// connection; Close is a no-op.
type Backend struct {
	deps    Dependencies
	dbReady bool
}

var _ storage.Backend = (*Backend)(nil)

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	return &Backend{deps: deps}
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// SetDB replaces the connection before Init.
func (b *Backend) SetDB(db *gorm.DB) {
	b.deps.DB = db
}

// Init runs schema migration.
func (b *Backend) Init(ctx context.Context) error {
	if b.deps.DB == nil {
		return storage.ErrNotInitialized
	}
	if err := database.Migrate(b.deps.DB.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}
	b.dbReady = true
	b.deps.LogManager.Logger().Debug("Storage schema ready", "dialect", b.deps.DB.Dialector.Name())
	return nil
}

// Close is a no-op.
func (b *Backend) Close() error {
	return nil
}

func (b *Backend) db(ctx context.Context) (*gorm.DB, error) {
	if !b.dbReady {
		return nil, storage.ErrNotInitialized
	}
	return b.deps.DB.WithContext(ctx), nil
}

// MissionExists reports whether a mission with the same name and file date is stored.
func (b *Backend) MissionExists(ctx context.Context, missionName, fileDate string) (bool, error) {
	db, err := b.db(ctx)
	if err != nil {
		return false, err
	}

	var count int64
	err = db.Model(&model.Mission{}).
		Where("mission_name = ? AND file_date = ?", missionName, fileDate).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("checking mission %q: %w", missionName, err)
	}
	return count > 0, nil
}

// SaveMission stores rec with its player and squad rows in one transaction.
func (b *Backend) SaveMission(ctx context.Context, rec *core.MissionRecord) (uint, error) {
	db, err := b.db(ctx)
	if err != nil {
		return 0, err
	}

	m, err := convert.CoreToMission(rec)
	if err != nil {
		return 0, fmt.Errorf("converting mission: %w", err)
	}
	players, squadRows := m.Players, m.Squads
	m.Players, m.Squads = nil, nil

	err = db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Mission{}).
			Where("mission_name = ? AND file_date = ?", m.MissionName, m.FileDate).
			Count(&count).Error; err != nil {
			return fmt.Errorf("checking mission %q: %w", m.MissionName, err)
		}
		if count > 0 {
			return storage.ErrDuplicateMission
		}

		if err := tx.Omit(clause.Associations).Create(&m).Error; err != nil {
			// the unique index catches a concurrent save of the same mission
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return storage.ErrDuplicateMission
			}
			return fmt.Errorf("inserting mission: %w", err)
		}

		for i := range players {
			players[i].MissionID = m.ID
		}
		if len(players) > 0 {
			if err := tx.Omit("Mission").CreateInBatches(&players, rowBatchSize).Error; err != nil {
				return fmt.Errorf("inserting player stats: %w", err)
			}
		}

		for i := range squadRows {
			squadRows[i].MissionID = m.ID
		}
		if len(squadRows) > 0 {
			if err := tx.Omit("Mission").CreateInBatches(&squadRows, rowBatchSize).Error; err != nil {
				return fmt.Errorf("inserting squad stats: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	b.deps.LogManager.Logger().Debug("Mission saved",
		"missionId", m.ID,
		"missionName", m.MissionName,
		"players", len(players),
		"squads", len(squadRows))
	return m.ID, nil
}

// LoadSquadRegistry returns the stored squads in insertion order.
func (b *Backend) LoadSquadRegistry(ctx context.Context) (squads.Registry, error) {
	db, err := b.db(ctx)
	if err != nil {
		return nil, err
	}

	var rows []model.Squad
	if err := db.Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("loading squads: %w", err)
	}

	reg := make(squads.Registry, 0, len(rows))
	for _, r := range rows {
		e, err := convert.SquadToEntry(r)
		if err != nil {
			return nil, err
		}
		reg = append(reg, e)
	}
	return reg, nil
}

// SaveSquad inserts e or replaces the tags and main side of the squad with the same name.
func (b *Backend) SaveSquad(ctx context.Context, e squads.Entry) error {
	db, err := b.db(ctx)
	if err != nil {
		return err
	}

	row, err := convert.EntryToSquad(e)
	if err != nil {
		return fmt.Errorf("converting squad %q: %w", e.Name, err)
	}

	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"tags", "main_side", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("saving squad %q: %w", e.Name, err)
	}
	return nil
}
