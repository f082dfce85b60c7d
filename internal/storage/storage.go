// Package storage defines the boundary between the stats pipeline and the
// mission store.
package storage

import (
	"context"
	"errors"

	"github.com/OCAP2/stats/internal/squads"
	"github.com/OCAP2/stats/pkg/core"
)

// ErrNotInitialized is returned by backends used before Init.
var ErrNotInitialized = errors.New("storage backend not initialized")

// ErrDuplicateMission is returned by SaveMission when a mission with the same
// name and file date is already stored. Nothing is written in that case.
var ErrDuplicateMission = errors.New("mission already stored")

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close() error

	// MissionExists reports whether a mission with the same name and file
	// date has already been stored.
	MissionExists(ctx context.Context, missionName, fileDate string) (bool, error)

	// SaveMission stores rec and all of its player and squad rows, or
	// nothing at all. Returns the new mission id, or ErrDuplicateMission
	// when (missionName, fileDate) is taken, even by a concurrent save.
	SaveMission(ctx context.Context, rec *core.MissionRecord) (uint, error)

	// Squad registry
	LoadSquadRegistry(ctx context.Context) (squads.Registry, error)
	SaveSquad(ctx context.Context, e squads.Entry) error
}

// Exporter is an optional interface for storage backends that also write
// each saved mission to a file.
type Exporter interface {
	ExportedFiles() []string
}
