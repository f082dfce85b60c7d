// Package aggregate folds a resolved replay into a MissionRecord.
package aggregate

import (
	"log/slog"
	"strings"

	"github.com/OCAP2/stats/internal/gametype"
	"github.com/OCAP2/stats/internal/geo"
	"github.com/OCAP2/stats/internal/names"
	"github.com/OCAP2/stats/internal/replay"
	"github.com/OCAP2/stats/internal/squads"
	"github.com/OCAP2/stats/internal/util"
	"github.com/OCAP2/stats/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

const (
	DefaultMissionName = "Unknown Mission"
	DefaultWorldName   = "Unknown World"

	// DefaultFrameDivisor converts frames to seconds.
	DefaultFrameDivisor = 49.0
)

// Options tunes aggregation.
type Options struct {
	FrameDivisor float64
	Distance     geo.DistanceOptions
}

// Dependencies holds the collaborators of an Aggregator.
type Dependencies struct {
	Projector *geo.Projector
	Logger    *slog.Logger
}

// Input is one aggregation run. Calibration and Normalizer are read-only for
// the duration of the run.
type Input struct {
	File        string
	Replay      *replay.Replay
	Calibration geo.Calibration
	Normalizer  *squads.Normalizer
}

// Diagnostics counts events the fold skipped.
type Diagnostics struct {
	SameSideKills   int
	UntrackedKiller int
	UnknownSides    int
}

// Aggregator builds mission records. It is safe for concurrent use when the
// projector is.
type Aggregator struct {
	deps Dependencies
	opts Options
}

// New creates an Aggregator.
func New(deps Dependencies, opts Options) *Aggregator {
	if opts.FrameDivisor <= 0 {
		opts.FrameDivisor = DefaultFrameDivisor
	}
	if opts.Distance.Stride <= 0 {
		opts.Distance = geo.DefaultDistanceOptions
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Aggregator{deps: deps, opts: opts}
}

type run struct {
	*Aggregator
	in      Input
	mapName string
	diag    Diagnostics

	byID   map[int]*core.UniquePlayerStat
	unique []*core.UniquePlayerStat
	index  map[string]*core.UniquePlayerStat
	known  map[*core.UniquePlayerStat]bool
}

// Aggregate folds in.Replay into a MissionRecord.
func (a *Aggregator) Aggregate(in Input) (*core.MissionRecord, Diagnostics) {
	if in.Normalizer == nil {
		in.Normalizer = squads.NewNormalizer(nil)
	}
	if in.Calibration.WorldSize <= 0 || in.Calibration.Multiplier <= 0 {
		in.Calibration = geo.DefaultCalibration
	}
	r := &run{
		Aggregator: a,
		in:         in,
		mapName:    in.Replay.WorldName,
		byID:       make(map[int]*core.UniquePlayerStat),
		index:      make(map[string]*core.UniquePlayerStat),
		known:      make(map[*core.UniquePlayerStat]bool),
	}
	if r.mapName == "" {
		r.mapName = DefaultWorldName
	}

	r.collectPlayers()
	r.foldEvents()
	for _, s := range r.unique {
		s.Frags = s.FragsInf + s.FragsVeh - s.TK
	}
	counts := r.normalizeSquads()

	missionName := in.Replay.MissionName
	if missionName == "" {
		missionName = DefaultMissionName
	}

	gameType, err := gametype.FromFile(in.File)
	if err != nil {
		a.deps.Logger.Warn("Failed to classify game type", "file", in.File, "error", err)
	}

	players := make([]core.UniquePlayerStat, len(r.unique))
	for i, s := range r.unique {
		players[i] = *s
	}

	rec := &core.MissionRecord{
		File:           in.File,
		FileDate:       util.FileDate(in.File),
		GameType:       gameType,
		DurationFrames: in.Replay.MaxFrame,
		DurationTime:   core.Round2(float64(in.Replay.MaxFrame) / a.opts.FrameDivisor),
		MissionName:    missionName,
		WorldName:      r.mapName,
		Map:            r.mapName,
		WinSide:        in.Replay.WinSide,
		Players:        players,
		Squads:         r.squadStats(),
		PlayersCount:   counts,
	}

	return rec, r.diag
}

func (r *run) project(c core.Coordinates) geom.XY {
	return r.deps.Projector.Project(c.X, c.Y, r.mapName, r.in.Calibration)
}

func (r *run) point(e core.Entity, frame int) *core.MapPoint {
	pos, ok := e.PositionAt(frame)
	if !ok {
		return nil
	}
	xy := r.project(pos.Coordinates)
	return &core.MapPoint{X: xy.X, Y: xy.Y}
}

// collectPlayers merges entities sharing a canonical name. Distance is summed
// across reconnects, the latest non-empty squad tag wins and the first side is kept.
// The AI takeover marker is not a tag.
func (r *run) collectPlayers() {
	for _, p := range r.in.Replay.Players {
		name := names.Name(p.Name)
		tag := names.Tag(strings.TrimSuffix(p.Name, replay.AISuffix))
		distance := geo.Distance(p.Positions, r.project, r.opts.Distance)

		if s, ok := r.index[name]; ok {
			s.Distance = core.Round2(s.Distance + distance)
			if tag != "" {
				s.Squad = tag
			}
			r.byID[p.ID] = s
			continue
		}

		s := &core.UniquePlayerStat{
			ID:                p.ID,
			Name:              name,
			Side:              p.Side,
			Squad:             tag,
			Distance:          distance,
			Victims:           []core.VictimEvent{},
			DestroyedVehicles: []core.DestroyedVehicle{},
		}
		r.index[name] = s
		r.unique = append(r.unique, s)
		r.byID[p.ID] = s
	}
}

func (r *run) foldEvents() {
	for _, e := range r.in.Replay.Events {
		killerStats, ok := r.byID[e.Killer.ID]
		if !ok {
			r.diag.UntrackedKiller++
			continue
		}

		weapon := e.Weapon
		if e.KillerVehicle != nil {
			weapon = e.KillerVehicle.Name
		}
		killer := core.UnitEntity(e.Killer)
		time := core.Round2(float64(e.Frame) / r.opts.FrameDivisor)

		if e.Killed.Kind == core.EntityVehicle {
			killerStats.DestroyedVeh++
			killerStats.DestroyedVehicles = append(killerStats.DestroyedVehicles, core.DestroyedVehicle{
				Name:           e.Killed.Name(),
				VehType:        string(e.Killed.Vehicle.Class),
				Weapon:         weapon,
				Distance:       e.Distance,
				KillType:       core.KillTypeVehicle,
				Frame:          e.Frame,
				Time:           time,
				KillerPosition: r.point(killer, e.Frame),
				OcapPos:        r.point(e.Killed, e.Frame),
			})
			continue
		}

		if e.Killer.Side == e.Killed.Side() {
			r.diag.SameSideKills++
			continue
		}

		killType := core.KillTypeInfantry
		if e.KillerVehicle != nil {
			killType = core.KillTypeVehicle
			killerStats.FragsVeh++
		} else {
			killerStats.FragsInf++
		}

		victimPos := r.point(e.Killed, e.Frame)
		killerStats.Victims = append(killerStats.Victims, core.VictimEvent{
			Name:           e.Killed.Name(),
			Weapon:         weapon,
			Distance:       e.Distance,
			KillerName:     killerStats.Name,
			KillType:       killType,
			Frame:          e.Frame,
			Time:           time,
			Position:       victimPos,
			KillerPosition: r.point(killer, e.Frame),
			OcapPos:        victimPos,
		})

		if victim, ok := r.byID[e.Killed.ID()]; ok {
			victim.Deaths++
		}
	}
}

// normalizeSquads maps every player's raw tag to its canonical squad and
// tallies side headcounts.
func (r *run) normalizeSquads() core.SideCounts {
	var counts core.SideCounts
	for _, s := range r.unique {
		s.Squad, r.known[s] = r.in.Normalizer.Normalize(s.Squad)

		counts.Total++
		switch strings.ToUpper(s.Side) {
		case "WEST":
			counts.West++
		case "EAST":
			counts.East++
		case "GUER", "GUERR", "INDEP", "INDEPENDENT":
			counts.Guer++
		default:
			r.diag.UnknownSides++
		}
	}
	return counts
}

// squadStats rolls players up into squads known to the registry, in order of
// first appearance.
func (r *run) squadStats() []core.SquadStat {
	out := []core.SquadStat{}
	at := make(map[string]int)

	for _, p := range r.unique {
		if !r.known[p] {
			continue
		}

		i, ok := at[p.Squad]
		if !ok {
			i = len(out)
			at[p.Squad] = i
			out = append(out, core.SquadStat{
				Tag:      p.Squad,
				Side:     p.Side,
				MainSide: r.in.Normalizer.MainSide(p.Squad),
				Victims:  []core.VictimEvent{},
				Players:  []core.SquadPlayer{},
			})
		}

		s := &out[i]
		s.Frags += p.Frags
		s.Deaths += p.Deaths
		s.TK += p.TK
		s.Victims = append(s.Victims, p.Victims...)
		s.Players = append(s.Players, core.SquadPlayer{
			Name:     p.Name,
			Frags:    p.Frags,
			Deaths:   p.Deaths,
			TK:       p.TK,
			Distance: p.Distance,
		})
	}
	return out
}
