package parser

import (
	"encoding/json"
	"fmt"

	"github.com/OCAP2/stats/pkg/core"
)

const (
	entityTypeUnit    = "unit"
	entityTypeVehicle = "vehicle"
)

type entityHeader struct {
	Type  string `json:"type"`
	Class string `json:"class"`
}

type rawEntity struct {
	ID            *number            `json:"id"`
	Name          *string            `json:"name"`
	Group         string             `json:"group"`
	Side          *string            `json:"side"`
	IsPlayer      *flexBool          `json:"isPlayer"`
	Type          string             `json:"type"`
	Class         string             `json:"class"`
	StartFrameNum *number            `json:"startFrameNum"`
	Positions     *[]json.RawMessage `json:"positions"`
}

func (e *rawEntity) missing(unit bool) string {
	switch {
	case e.ID == nil:
		return "id"
	case e.Name == nil:
		return "name"
	case e.StartFrameNum == nil:
		return "startFrameNum"
	case e.Positions == nil:
		return "positions"
	case unit && e.Side == nil:
		return "side"
	case unit && e.IsPlayer == nil:
		return "isPlayer"
	}
	return ""
}

// forEachEntity decodes every entity of the wanted type in document order.
func forEachEntity(entities []json.RawMessage, want string, fn func(int, *rawEntity) error) error {
	for i, raw := range entities {
		var h entityHeader
		if err := json.Unmarshal(raw, &h); err != nil {
			return fmt.Errorf("%w: entity %d: %v", ErrMalformedEntity, i, err)
		}
		if h.Type != want {
			continue
		}
		if want == entityTypeVehicle && core.VehicleClass(h.Class) == core.VehicleParachute {
			continue
		}

		var e rawEntity
		if err := json.Unmarshal(raw, &e); err != nil {
			return fmt.Errorf("%w: entity %d: %v", ErrMalformedEntity, i, err)
		}
		if field := e.missing(want == entityTypeUnit); field != "" {
			return fmt.Errorf("%w: entity %d: missing %s", ErrMalformedEntity, i, field)
		}
		if err := fn(i, &e); err != nil {
			return err
		}
	}
	return nil
}

func decodePlayers(entities []json.RawMessage) ([]*core.Player, error) {
	var players []*core.Player
	seen := make(map[int]int)

	err := forEachEntity(entities, entityTypeUnit, func(i int, e *rawEntity) error {
		positions, err := decodePositions(*e.Positions, true)
		if err != nil {
			return fmt.Errorf("%w: entity %d: %v", ErrMalformedEntity, i, err)
		}
		p := &core.Player{
			ID:         e.ID.Int(),
			Name:       *e.Name,
			Group:      e.Group,
			Side:       *e.Side,
			IsPlayer:   bool(*e.IsPlayer),
			StartFrame: e.StartFrameNum.Int(),
			Positions:  positions,
		}
		if at, ok := seen[p.ID]; ok {
			players[at] = p
			return nil
		}
		seen[p.ID] = len(players)
		players = append(players, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return players, nil
}

func decodeVehicles(entities []json.RawMessage) ([]*core.Vehicle, error) {
	var vehicles []*core.Vehicle
	seen := make(map[int]int)

	err := forEachEntity(entities, entityTypeVehicle, func(i int, e *rawEntity) error {
		positions, err := decodePositions(*e.Positions, false)
		if err != nil {
			return fmt.Errorf("%w: entity %d: %v", ErrMalformedEntity, i, err)
		}
		v := &core.Vehicle{
			ID:         e.ID.Int(),
			Name:       *e.Name,
			Class:      vehicleClass(e.Class),
			StartFrame: e.StartFrameNum.Int(),
			Positions:  positions,
		}
		if at, ok := seen[v.ID]; ok {
			vehicles[at] = v
			return nil
		}
		seen[v.ID] = len(vehicles)
		vehicles = append(vehicles, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return vehicles, nil
}

var knownVehicleClasses = map[core.VehicleClass]struct{}{
	core.VehicleTruck:        {},
	core.VehicleCar:          {},
	core.VehicleHeli:         {},
	core.VehicleAPC:          {},
	core.VehicleSea:          {},
	core.VehicleParachute:    {},
	core.VehiclePlane:        {},
	core.VehicleTank:         {},
	core.VehicleStaticMortar: {},
	core.VehicleStaticWeapon: {},
	core.VehicleUnknown:      {},
}

func vehicleClass(s string) core.VehicleClass {
	c := core.VehicleClass(s)
	if _, ok := knownVehicleClasses[c]; ok {
		return c
	}
	return core.VehicleUnknown
}

// decodePositions decodes a position stream.
// Unit samples:    [[x, y(, z)], azimuth, lifestate, inVehicle, name, ...]
// Vehicle samples: [[x, y(, z)], azimuth, ...]
func decodePositions(raw []json.RawMessage, unit bool) ([]core.Position, error) {
	positions := make([]core.Position, len(raw))
	for i, r := range raw {
		var sample []json.RawMessage
		if err := json.Unmarshal(r, &sample); err != nil {
			return nil, fmt.Errorf("position %d: %v", i, err)
		}
		if len(sample) < 2 {
			return nil, fmt.Errorf("position %d: expected at least 2 values, got %d", i, len(sample))
		}

		var coords []number
		if err := json.Unmarshal(sample[0], &coords); err != nil || len(coords) < 2 {
			return nil, fmt.Errorf("position %d: invalid coordinates %s", i, sample[0])
		}
		var azimuth number
		if err := json.Unmarshal(sample[1], &azimuth); err != nil {
			return nil, fmt.Errorf("position %d: invalid azimuth %s", i, sample[1])
		}

		pos := core.Position{
			Coordinates: core.Coordinates{X: coords[0].Int(), Y: coords[1].Int()},
			Azimuth:     azimuth.Int(),
		}
		if unit && len(sample) > 4 {
			// a non-string name snapshot is treated as absent
			_ = json.Unmarshal(sample[4], &pos.Name)
		}
		positions[i] = pos
	}
	return positions, nil
}
