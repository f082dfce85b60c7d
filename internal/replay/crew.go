package replay

import "github.com/OCAP2/stats/pkg/core"

// DefaultCrewSpread is the neighbourhood radius, in cells, searched around a killer.
const DefaultCrewSpread = 10

// Resolver infers which vehicle a player occupied from spatial coincidence.
//
// Replays carry no occupancy relation, so this is an approximation: two vehicles in
// adjacent cells, or a killer who has just dismounted next to a vehicle, can be
// misattributed. The behaviour is kept as is until the recorder provides real data.
type Resolver struct {
	index  *PositionIndex
	spread int
}

// NewResolver creates a resolver over index. A non-positive spread uses DefaultCrewSpread.
func NewResolver(index *PositionIndex, spread int) *Resolver {
	if spread <= 0 {
		spread = DefaultCrewSpread
	}
	return &Resolver{index: index, spread: spread}
}

// VehicleAt returns the vehicle the player occupied at the absolute frame. The
// player's own cell is checked first, then the surrounding square in raster order
// with x as the outer axis. The first id found wins.
func (r *Resolver) VehicleAt(p *core.Player, frame int) (int, bool) {
	pos, ok := p.PositionAt(frame)
	if !ok {
		return 0, false
	}
	c := pos.Coordinates

	if ids := r.index.At(core.EntityVehicle, frame, c); len(ids) > 0 {
		return ids[0], true
	}

	for i := -r.spread; i <= r.spread; i++ {
		for j := -r.spread; j <= r.spread; j++ {
			if i == 0 && j == 0 {
				continue
			}
			cell := core.Coordinates{X: c.X + i, Y: c.Y + j}
			if ids := r.index.At(core.EntityVehicle, frame, cell); len(ids) > 0 {
				return ids[0], true
			}
		}
	}

	return 0, false
}

// CrewAt returns the units sharing the vehicle's cell at the absolute frame.
func (r *Resolver) CrewAt(v *core.Vehicle, frame int) []int {
	pos, ok := v.PositionAt(frame)
	if !ok {
		return nil
	}
	ids := r.index.At(core.EntityUnit, frame, pos.Coordinates)
	if len(ids) == 0 {
		return nil
	}
	return append([]int(nil), ids...)
}
