// pkg/core/entity.go
package core

// Coordinates is a simulation position quantized to whole units.
type Coordinates struct {
	X int
	Y int
}

// Position is one per-frame sample of an entity's position stream.
// Name is only populated for units and carries the live name snapshot.
type Position struct {
	Coordinates Coordinates
	Azimuth     int
	Name        string
}

// Player is a unit entity decoded from a replay.
type Player struct {
	ID         int
	Name       string
	Group      string
	Side       string
	IsPlayer   bool
	StartFrame int
	Positions  []Position
}

// PositionAt returns the sample recorded at the absolute replay frame.
func (p *Player) PositionAt(frame int) (Position, bool) {
	return positionAt(p.Positions, p.StartFrame, frame)
}

// VehicleClass is the category recorded in a vehicle entity's class field.
type VehicleClass string

const (
	VehicleTruck        VehicleClass = "truck"
	VehicleCar          VehicleClass = "car"
	VehicleHeli         VehicleClass = "heli"
	VehicleAPC          VehicleClass = "apc"
	VehicleSea          VehicleClass = "sea"
	VehicleParachute    VehicleClass = "parachute"
	VehiclePlane        VehicleClass = "plane"
	VehicleTank         VehicleClass = "tank"
	VehicleStaticMortar VehicleClass = "static-mortar"
	VehicleStaticWeapon VehicleClass = "static-weapon"
	VehicleUnknown      VehicleClass = "unknown"
)

// Vehicle is a vehicle entity decoded from a replay.
type Vehicle struct {
	ID         int
	Name       string
	Class      VehicleClass
	StartFrame int
	Positions  []Position
}

// PositionAt returns the sample recorded at the absolute replay frame.
func (v *Vehicle) PositionAt(frame int) (Position, bool) {
	return positionAt(v.Positions, v.StartFrame, frame)
}

func positionAt(positions []Position, start, frame int) (Position, bool) {
	i := frame - start
	if i < 0 || i >= len(positions) {
		return Position{}, false
	}
	return positions[i], true
}

// EntityKind discriminates the Entity union.
type EntityKind uint8

const (
	EntityUnit EntityKind = iota + 1
	EntityVehicle
)

func (k EntityKind) String() string {
	switch k {
	case EntityUnit:
		return "unit"
	case EntityVehicle:
		return "vehicle"
	default:
		return "unknown"
	}
}

// Entity is either a Player or a Vehicle. Exactly one of the pointers is set,
// matching Kind.
type Entity struct {
	Kind    EntityKind
	Player  *Player
	Vehicle *Vehicle
}

// UnitEntity wraps a player.
func UnitEntity(p *Player) Entity {
	return Entity{Kind: EntityUnit, Player: p}
}

// VehicleEntity wraps a vehicle.
func VehicleEntity(v *Vehicle) Entity {
	return Entity{Kind: EntityVehicle, Vehicle: v}
}

func (e Entity) ID() int {
	if e.Kind == EntityVehicle {
		return e.Vehicle.ID
	}
	return e.Player.ID
}

func (e Entity) Name() string {
	if e.Kind == EntityVehicle {
		return e.Vehicle.Name
	}
	return e.Player.Name
}

// Side is empty for vehicles.
func (e Entity) Side() string {
	if e.Kind == EntityVehicle {
		return ""
	}
	return e.Player.Side
}

func (e Entity) PositionAt(frame int) (Position, bool) {
	if e.Kind == EntityVehicle {
		return e.Vehicle.PositionAt(frame)
	}
	return e.Player.PositionAt(frame)
}
