package replay

import "github.com/OCAP2/stats/pkg/core"

type cellKey struct {
	kind  core.EntityKind
	frame int
	x, y  int
}

// PositionIndex maps (kind, absolute frame, quantized cell) to the ids occupying
// that cell, in decode order. It is read-only once built.
type PositionIndex struct {
	cells  map[cellKey][]int
	frames map[core.EntityKind]map[int]struct{}
}

// BuildIndex indexes every sample of every player and vehicle. Players are
// indexed before vehicles, each in decode order.
func BuildIndex(players []*core.Player, vehicles []*core.Vehicle) *PositionIndex {
	ix := &PositionIndex{
		cells: make(map[cellKey][]int),
		frames: map[core.EntityKind]map[int]struct{}{
			core.EntityUnit:    {},
			core.EntityVehicle: {},
		},
	}
	for _, p := range players {
		ix.add(core.EntityUnit, p.ID, p.StartFrame, p.Positions)
	}
	for _, v := range vehicles {
		ix.add(core.EntityVehicle, v.ID, v.StartFrame, v.Positions)
	}
	return ix
}

func (ix *PositionIndex) add(kind core.EntityKind, id, start int, positions []core.Position) {
	for i, pos := range positions {
		frame := start + i
		key := cellKey{kind: kind, frame: frame, x: pos.Coordinates.X, y: pos.Coordinates.Y}
		ix.cells[key] = append(ix.cells[key], id)
		ix.frames[kind][frame] = struct{}{}
	}
}

// At returns the ids of kind occupying c at frame. The slice must not be modified.
func (ix *PositionIndex) At(kind core.EntityKind, frame int, c core.Coordinates) []int {
	return ix.cells[cellKey{kind: kind, frame: frame, x: c.X, y: c.Y}]
}

// FrameCount is the number of distinct frames with at least one sample of kind.
func (ix *PositionIndex) FrameCount(kind core.EntityKind) int {
	return len(ix.frames[kind])
}
