// Package memory implements storage.Backend in process memory. Saved missions
// are optionally exported as JSON files, which makes it the backend for dry
// runs and for feeding external tooling.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/OCAP2/stats/internal/config"
	"github.com/OCAP2/stats/internal/squads"
	"github.com/OCAP2/stats/internal/storage"
	"github.com/OCAP2/stats/pkg/core"
)

type missionKey struct {
	name, fileDate string
}

// Backend stores mission records in memory and exports them to JSON
type Backend struct {
	cfg config.MemoryConfig

	missions []*core.MissionRecord
	index    map[missionKey]uint
	squads   []squads.Entry
	exported []string

	mu sync.RWMutex
}

var (
	_ storage.Backend  = (*Backend)(nil)
	_ storage.Exporter = (*Backend)(nil)
)

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:   cfg,
		index: make(map[missionKey]uint),
	}
}

// Init initializes the backend
func (b *Backend) Init(_ context.Context) error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// MissionExists reports whether a mission with the same name and file date was saved.
func (b *Backend) MissionExists(_ context.Context, missionName, fileDate string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	_, ok := b.index[missionKey{missionName, fileDate}]
	return ok, nil
}

// SaveMission keeps rec and exports it when an output directory is configured.
// Ids start at 1 in save order. A second save of the same name and file date
// fails with storage.ErrDuplicateMission.
func (b *Backend) SaveMission(_ context.Context, rec *core.MissionRecord) (uint, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := missionKey{rec.MissionName, rec.FileDate}
	if _, ok := b.index[key]; ok {
		return 0, storage.ErrDuplicateMission
	}

	if b.cfg.OutputDir != "" {
		path, err := b.exportJSON(rec)
		if err != nil {
			return 0, fmt.Errorf("exporting mission: %w", err)
		}
		b.exported = append(b.exported, path)
	}

	b.missions = append(b.missions, rec)
	id := uint(len(b.missions))
	b.index[key] = id
	return id, nil
}

// Mission returns the record saved under id.
func (b *Backend) Mission(id uint) (*core.MissionRecord, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if id == 0 || int(id) > len(b.missions) {
		return nil, false
	}
	return b.missions[id-1], true
}

// Missions returns all saved records in save order.
func (b *Backend) Missions() []*core.MissionRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return append([]*core.MissionRecord(nil), b.missions...)
}

// LoadSquadRegistry returns the saved squads in insertion order.
func (b *Backend) LoadSquadRegistry(_ context.Context) (squads.Registry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return append(squads.Registry(nil), b.squads...), nil
}

// SaveSquad inserts e or replaces the entry with the same name.
func (b *Backend) SaveSquad(_ context.Context, e squads.Entry) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	e.Tags = e.AllTags()
	e.Tag = ""
	for i := range b.squads {
		if b.squads[i].Name == e.Name {
			b.squads[i] = e
			return nil
		}
	}
	b.squads = append(b.squads, e)
	return nil
}

// ExportedFiles returns the paths written so far.
func (b *Backend) ExportedFiles() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return append([]string(nil), b.exported...)
}
