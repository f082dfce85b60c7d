package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/OCAP2/stats/internal/aggregate"
	"github.com/OCAP2/stats/internal/geo"
	"github.com/OCAP2/stats/internal/logging"
	"github.com/OCAP2/stats/internal/parser"
	"github.com/OCAP2/stats/internal/replay"
	"github.com/OCAP2/stats/internal/squads"
	"github.com/OCAP2/stats/internal/storage"
	"github.com/OCAP2/stats/internal/util"
	"github.com/OCAP2/stats/pkg/core"
)

// ErrDuplicateMission is returned when a mission with the same name and file
// date is already stored, found either before decoding or by the save itself.
// Callers treat it as a skip.
var ErrDuplicateMission = storage.ErrDuplicateMission

// MissionWriter receives every saved mission record, e.g. the influx manager.
type MissionWriter interface {
	WriteMission(ctx context.Context, rec *core.MissionRecord) error
}

// Dependencies holds all dependencies for the worker manager
type Dependencies struct {
	Decoder      *parser.Decoder
	Aggregator   *aggregate.Aggregator
	Calibrations geo.CalibrationSource
	LogManager   *logging.SlogManager
	// Metrics is optional.
	Metrics MissionWriter
}

// Options tunes the per-file pipeline.
type Options struct {
	Replay replay.Options
}

// Result describes one processed file.
type Result struct {
	File      string
	MissionID uint
	Record    *core.MissionRecord
	Replay    replay.Diagnostics
	Aggregate aggregate.Diagnostics
	Duration  time.Duration
}

// Manager runs replay files through decode, aggregation and storage. It is safe
// for concurrent use across files.
type Manager struct {
	deps    Dependencies
	backend storage.Backend
	opts    Options

	normalizer atomic.Pointer[squads.Normalizer]
	metrics    *metrics
}

// NewManager creates a new worker manager
func NewManager(deps Dependencies, backend storage.Backend, opts Options) (*Manager, error) {
	if deps.Decoder == nil || deps.Aggregator == nil {
		return nil, errors.New("worker: decoder and aggregator are required")
	}
	if deps.Calibrations == nil {
		deps.Calibrations = geo.StaticCalibrations{}
	}
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}

	met, err := newMetrics()
	if err != nil {
		return nil, err
	}

	m := &Manager{deps: deps, backend: backend, opts: opts, metrics: met}
	m.normalizer.Store(squads.NewNormalizer(nil))
	return m, nil
}

// LoadRegistry replaces the squad registry used for later files. A non-empty
// file takes precedence over the registry stored in the backend.
func (m *Manager) LoadRegistry(ctx context.Context, file string) error {
	var (
		reg squads.Registry
		err error
	)
	if file != "" {
		reg, err = squads.LoadFile(file)
	} else {
		reg, err = m.backend.LoadSquadRegistry(ctx)
	}
	if err != nil {
		return fmt.Errorf("loading squad registry: %w", err)
	}

	m.normalizer.Store(squads.NewNormalizer(reg))
	m.deps.LogManager.Logger().Info("Squad registry loaded", "squads", len(reg), "source", registrySource(file))
	return nil
}

func registrySource(file string) string {
	if file == "" {
		return "storage"
	}
	return file
}

// ImportSquads stores every entry of a registry file and reloads the registry
// from the backend.
func (m *Manager) ImportSquads(ctx context.Context, file string) (int, error) {
	reg, err := squads.LoadFile(file)
	if err != nil {
		return 0, err
	}
	for _, e := range reg {
		if err := m.backend.SaveSquad(ctx, e); err != nil {
			return 0, fmt.Errorf("saving squad %q: %w", e.Name, err)
		}
	}
	return len(reg), m.LoadRegistry(ctx, "")
}

// ProcessFile reads the replay at path and stores its mission record.
func (m *Manager) ProcessFile(ctx context.Context, path string) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		m.metrics.failed(ctx)
		return Result{File: path}, fmt.Errorf("reading %s: %w", path, err)
	}
	return m.Process(ctx, filepath.Base(path), data)
}

// Process runs one replay through the pipeline. file is the replay's file name
// and drives the game type and file date.
func (m *Manager) Process(ctx context.Context, file string, data []byte) (Result, error) {
	start := time.Now()
	res := Result{File: file}
	ctx = logging.WithAttrs(ctx, slog.String("file", file))
	log := m.deps.LogManager.Logger()

	doc, err := m.deps.Decoder.ParseDocument(data)
	if err != nil {
		m.metrics.failed(ctx)
		return res, fmt.Errorf("decode %s: %w", file, err)
	}

	missionName := doc.MissionName
	if missionName == "" {
		missionName = aggregate.DefaultMissionName
	}
	fileDate := util.FileDate(file)

	exists, err := m.backend.MissionExists(ctx, missionName, fileDate)
	if err != nil {
		m.metrics.failed(ctx)
		return res, fmt.Errorf("checking %s: %w", file, err)
	}
	if exists {
		m.metrics.skipped(ctx)
		log.InfoContext(ctx, "Mission already stored", "mission", missionName, "date", fileDate)
		return res, ErrDuplicateMission
	}

	decoded, err := m.deps.Decoder.DecodeEntities(doc)
	if err != nil {
		m.metrics.failed(ctx)
		return res, fmt.Errorf("decode %s: %w", file, err)
	}

	r := replay.Assemble(doc, decoded, m.opts.Replay)
	res.Replay = r.Diagnostics

	worldName := r.WorldName
	if worldName == "" {
		worldName = aggregate.DefaultWorldName
	}
	rec, diag := m.deps.Aggregator.Aggregate(aggregate.Input{
		File:        file,
		Replay:      r,
		Calibration: m.deps.Calibrations.Calibration(worldName),
		Normalizer:  m.normalizer.Load(),
	})
	res.Record = rec
	res.Aggregate = diag

	id, err := m.backend.SaveMission(ctx, rec)
	if errors.Is(err, storage.ErrDuplicateMission) {
		m.metrics.skipped(ctx)
		log.InfoContext(ctx, "Mission stored concurrently", "mission", rec.MissionName, "date", rec.FileDate)
		return res, ErrDuplicateMission
	}
	if err != nil {
		m.metrics.failed(ctx)
		return res, fmt.Errorf("saving %s: %w", file, err)
	}
	res.MissionID = id

	if m.deps.Metrics != nil {
		if err := m.deps.Metrics.WriteMission(ctx, rec); err != nil {
			log.WarnContext(ctx, "Failed to write mission metrics", "error", err)
		}
	}

	res.Duration = time.Since(start)
	m.metrics.processed(ctx, res.Duration)
	log.InfoContext(ctx, "Mission processed",
		"mission", rec.MissionName,
		"id", id,
		"players", len(rec.Players),
		"squads", len(rec.Squads),
		"unresolvedEvents", r.Diagnostics.UnresolvedEvents,
		"malformedEvents", r.Diagnostics.MalformedEvents,
		"aiTakeovers", r.Diagnostics.AITakeovers,
		"vehicleKills", r.Diagnostics.VehicleKills,
		"crewedKills", r.Diagnostics.CrewedKills,
		"sameSideKills", diag.SameSideKills,
		"duration", res.Duration,
	)
	return res, nil
}

// IsMalformed reports whether err came from an undecodable replay.
func IsMalformed(err error) bool {
	return errors.Is(err, parser.ErrMalformedDocument) || errors.Is(err, parser.ErrMalformedEntity)
}
