// pkg/core/events.go
package core

// KillEventRaw is a "killed" event tuple as recorded in the replay, before
// entity ids are resolved.
type KillEventRaw struct {
	Frame    int
	KilledID int
	KillerID *int
	Weapon   *string
	Distance float64
}

// KillEvent is a kill or destruction with both sides resolved.
// KillerVehicle is set when the killer was attributed to a vehicle at Frame.
// KilledCrew holds the unit ids found in a destroyed vehicle's cell.
type KillEvent struct {
	Frame         int
	Killed        Entity
	Killer        *Player
	KillerVehicle *Vehicle
	KilledCrew    []int
	Weapon        string
	Distance      float64
}
