// Package replay assembles decoded entities and events into a resolved replay:
// position index, AI takeover names, resolved kill events and crew attribution.
package replay

import (
	"github.com/OCAP2/stats/internal/parser"
	"github.com/OCAP2/stats/pkg/core"
)

// AISuffix marks units whose slot was taken over by a bot.
const AISuffix = " [AI]"

// Options configures assembly.
type Options struct {
	CrewSpread int
}

// Diagnostics counts what assembly dropped or patched.
type Diagnostics struct {
	MalformedEvents  int
	UnresolvedEvents int
	AITakeovers      int
	VehicleKills     int
	// CrewedKills counts destroyed vehicles with units in their cell.
	CrewedKills int
}

// Replay is a fully resolved replay. It holds no state beyond one file.
type Replay struct {
	MissionName string
	WorldName   string
	WinSide     *string

	Players  []*core.Player
	Vehicles []*core.Vehicle
	Events   []core.KillEvent

	Index    *PositionIndex
	Resolver *Resolver

	// MaxFrame is the last frame index with unit samples.
	MaxFrame int

	Diagnostics Diagnostics

	players  map[int]*core.Player
	vehicles map[int]*core.Vehicle
}

// Assemble builds a Replay from a decoded document.
func Assemble(doc *parser.Document, dec *parser.Decoded, opts Options) *Replay {
	r := &Replay{
		MissionName: doc.MissionName,
		WorldName:   doc.WorldName,
		WinSide:     parser.EndMissionSide(doc),
		Players:     dec.Players,
		Vehicles:    dec.Vehicles,
		players:     make(map[int]*core.Player, len(dec.Players)),
		vehicles:    make(map[int]*core.Vehicle, len(dec.Vehicles)),
	}
	r.Diagnostics.MalformedEvents = dec.DroppedEvents

	for _, p := range dec.Players {
		r.players[p.ID] = p
	}
	for _, v := range dec.Vehicles {
		r.vehicles[v.ID] = v
	}

	r.Index = BuildIndex(r.Players, r.Vehicles)
	r.Resolver = NewResolver(r.Index, opts.CrewSpread)
	if n := r.Index.FrameCount(core.EntityUnit); n > 0 {
		r.MaxFrame = n - 1
	}

	r.Diagnostics.AITakeovers = PatchAINames(r.Players)
	r.resolveKills(dec.Kills)

	return r
}

// Entity resolves id, preferring a vehicle when both kinds share it.
func (r *Replay) Entity(id int) (core.Entity, bool) {
	if v, ok := r.vehicles[id]; ok {
		return core.VehicleEntity(v), true
	}
	if p, ok := r.players[id]; ok {
		return core.UnitEntity(p), true
	}
	return core.Entity{}, false
}

func (r *Replay) resolveKills(raw []core.KillEventRaw) {
	r.Events = make([]core.KillEvent, 0, len(raw))
	for _, k := range raw {
		killed, ok := r.Entity(k.KilledID)
		if !ok || k.KillerID == nil {
			r.Diagnostics.UnresolvedEvents++
			continue
		}
		killer, ok := r.players[*k.KillerID]
		if !ok {
			r.Diagnostics.UnresolvedEvents++
			continue
		}

		e := core.KillEvent{
			Frame:    k.Frame,
			Killed:   killed,
			Killer:   killer,
			Weapon:   CanonicalWeapon(k.Weapon),
			Distance: k.Distance,
		}
		if id, ok := r.Resolver.VehicleAt(killer, k.Frame); ok {
			if v, ok := r.vehicles[id]; ok {
				e.KillerVehicle = v
				r.Diagnostics.VehicleKills++
			}
		}
		if killed.Kind == core.EntityVehicle {
			e.KilledCrew = r.Resolver.CrewAt(killed.Vehicle, k.Frame)
			if len(e.KilledCrew) > 0 {
				r.Diagnostics.CrewedKills++
			}
		}
		r.Events = append(r.Events, e)
	}
}

// PatchAINames renames bots whose position stream carries a different live
// name, which happens when a disconnected player's slot is taken over by AI.
// Only the first differing name is used. Returns the number of renamed units.
func PatchAINames(players []*core.Player) int {
	patched := 0
	for _, p := range players {
		if p.IsPlayer {
			continue
		}
		for _, pos := range p.Positions {
			if pos.Name != "" && pos.Name != p.Name {
				p.Name = pos.Name + AISuffix
				patched++
				break
			}
		}
	}
	return patched
}
