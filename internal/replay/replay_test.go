package replay

import (
	"testing"

	"github.com/OCAP2/stats/internal/parser"
	"github.com/OCAP2/stats/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stream(coords ...[2]int) []core.Position {
	out := make([]core.Position, len(coords))
	for i, c := range coords {
		out[i] = core.Position{Coordinates: core.Coordinates{X: c[0], Y: c[1]}}
	}
	return out
}

func intPtr(i int) *int       { return &i }
func strPtr(s string) *string { return &s }

func TestBuildIndex(t *testing.T) {
	players := []*core.Player{
		{ID: 1, StartFrame: 0, Positions: stream([2]int{5, 5}, [2]int{6, 6})},
		{ID: 2, StartFrame: 1, Positions: stream([2]int{6, 6})},
	}
	vehicles := []*core.Vehicle{
		{ID: 10, StartFrame: 0, Positions: stream([2]int{5, 5})},
	}
	ix := BuildIndex(players, vehicles)

	assert.Equal(t, []int{1}, ix.At(core.EntityUnit, 0, core.Coordinates{X: 5, Y: 5}))
	assert.Equal(t, []int{1, 2}, ix.At(core.EntityUnit, 1, core.Coordinates{X: 6, Y: 6}))
	assert.Equal(t, []int{10}, ix.At(core.EntityVehicle, 0, core.Coordinates{X: 5, Y: 5}))
	assert.Empty(t, ix.At(core.EntityVehicle, 1, core.Coordinates{X: 5, Y: 5}))
	assert.Equal(t, 2, ix.FrameCount(core.EntityUnit))
	assert.Equal(t, 1, ix.FrameCount(core.EntityVehicle))
}

func TestResolver_VehicleAt(t *testing.T) {
	killer := &core.Player{ID: 1, StartFrame: 2, Positions: stream([2]int{100, 100}, [2]int{500, 500}, [2]int{900, 900})}

	tests := []struct {
		name     string
		vehicles []*core.Vehicle
		frame    int
		wantID   int
		wantOK   bool
	}{
		{
			name:     "exact cell",
			vehicles: []*core.Vehicle{{ID: 7, StartFrame: 0, Positions: stream([2]int{0, 0}, [2]int{0, 0}, [2]int{100, 100})}},
			frame:    2,
			wantID:   7,
			wantOK:   true,
		},
		{
			name: "exact cell first in decode order",
			vehicles: []*core.Vehicle{
				{ID: 8, StartFrame: 3, Positions: stream([2]int{500, 500})},
				{ID: 9, StartFrame: 3, Positions: stream([2]int{500, 500})},
			},
			frame:  3,
			wantID: 8,
			wantOK: true,
		},
		{
			name:     "neighbourhood",
			vehicles: []*core.Vehicle{{ID: 11, StartFrame: 4, Positions: stream([2]int{910, 890})}},
			frame:    4,
			wantID:   11,
			wantOK:   true,
		},
		{
			name: "raster order prefers lower x offset",
			vehicles: []*core.Vehicle{
				{ID: 12, StartFrame: 4, Positions: stream([2]int{905, 890})},
				{ID: 13, StartFrame: 4, Positions: stream([2]int{895, 909})},
			},
			frame:  4,
			wantID: 13,
			wantOK: true,
		},
		{
			name:     "outside neighbourhood is on foot",
			vehicles: []*core.Vehicle{{ID: 14, StartFrame: 4, Positions: stream([2]int{911, 900})}},
			frame:    4,
		},
		{
			name:     "vehicle at another frame",
			vehicles: []*core.Vehicle{{ID: 15, StartFrame: 0, Positions: stream([2]int{900, 900})}},
			frame:    4,
		},
		{
			name:     "killer has no sample at frame",
			vehicles: []*core.Vehicle{{ID: 16, StartFrame: 0, Positions: stream([2]int{100, 100})}},
			frame:    0,
		},
		{
			name:     "vehicle id zero is a vehicle",
			vehicles: []*core.Vehicle{{ID: 0, StartFrame: 2, Positions: stream([2]int{100, 100})}},
			frame:    2,
			wantID:   0,
			wantOK:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(BuildIndex([]*core.Player{killer}, tt.vehicles), 0)
			id, ok := r.VehicleAt(killer, tt.frame)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantID, id)
			}
		})
	}
}

func TestResolver_CrewAt(t *testing.T) {
	players := []*core.Player{
		{ID: 1, Positions: stream([2]int{10, 10})},
		{ID: 2, Positions: stream([2]int{10, 10})},
		{ID: 3, Positions: stream([2]int{11, 10})},
	}
	v := &core.Vehicle{ID: 20, Positions: stream([2]int{10, 10})}
	r := NewResolver(BuildIndex(players, []*core.Vehicle{v}), 0)

	assert.Equal(t, []int{1, 2}, r.CrewAt(v, 0))
	assert.Nil(t, r.CrewAt(v, 1))
}

func TestPatchAINames(t *testing.T) {
	players := []*core.Player{
		{ID: 1, Name: "Rifleman", IsPlayer: false, Positions: []core.Position{{Name: ""}, {Name: "Rifleman"}, {Name: "[RHS] Ivanov"}, {Name: "Other"}}},
		{ID: 2, Name: "Human", IsPlayer: true, Positions: []core.Position{{Name: "Different"}}},
		{ID: 3, Name: "Bot", IsPlayer: false, Positions: []core.Position{{Name: "Bot"}}},
	}

	assert.Equal(t, 1, PatchAINames(players))
	assert.Equal(t, "[RHS] Ivanov [AI]", players[0].Name)
	assert.Equal(t, "Human", players[1].Name)
	assert.Equal(t, "Bot", players[2].Name)
}

func TestCanonicalWeapon(t *testing.T) {
	assert.Equal(t, "unknown", CanonicalWeapon(nil))
	assert.Equal(t, "unknown", CanonicalWeapon(strPtr("")))
	assert.Equal(t, "M136 (HEAT)", CanonicalWeapon(strPtr("M136 HEAT (used)")))
	assert.Equal(t, "АК-74М", CanonicalWeapon(strPtr("[Alpha AK] АК-105 (Zenitco) [Woodland]")))
	assert.Equal(t, "AKM", CanonicalWeapon(strPtr("  AKM ")))
}

func TestAssemble(t *testing.T) {
	doc := &parser.Document{MissionName: "Op", WorldName: "Altis"}
	dec := &parser.Decoded{
		Players: []*core.Player{
			{ID: 1, Name: "shooter", Side: "WEST", IsPlayer: true, Positions: stream([2]int{50, 50}, [2]int{50, 50}, [2]int{50, 50})},
			{ID: 2, Name: "victim", Side: "EAST", IsPlayer: true, Positions: stream([2]int{0, 0}, [2]int{0, 0})},
		},
		Vehicles: []*core.Vehicle{
			{ID: 3, Name: "Hunter", Class: core.VehicleCar, Positions: stream([2]int{1000, 1000}, [2]int{52, 48})},
		},
		Kills: []core.KillEventRaw{
			{Frame: 0, KilledID: 2, KillerID: intPtr(1), Weapon: strPtr("M72A7 (used)"), Distance: 12},
			{Frame: 1, KilledID: 2, KillerID: intPtr(1), Weapon: nil, Distance: 5},
			{Frame: 1, KilledID: 99, KillerID: intPtr(1)},
			{Frame: 1, KilledID: 2, KillerID: intPtr(3)},
			{Frame: 1, KilledID: 3, KillerID: nil},
		},
		DroppedEvents: 1,
	}

	r := Assemble(doc, dec, Options{})

	assert.Equal(t, "Op", r.MissionName)
	assert.Equal(t, 2, r.MaxFrame)
	assert.Nil(t, r.WinSide)
	assert.Equal(t, 1, r.Diagnostics.MalformedEvents)
	assert.Equal(t, 3, r.Diagnostics.UnresolvedEvents)
	require.Len(t, r.Events, 2)

	first := r.Events[0]
	assert.Equal(t, "M72A7", first.Weapon)
	assert.Nil(t, first.KillerVehicle, "vehicle is far away at frame 0")
	assert.Equal(t, core.EntityUnit, first.Killed.Kind)

	second := r.Events[1]
	assert.Equal(t, "unknown", second.Weapon)
	require.NotNil(t, second.KillerVehicle)
	assert.Equal(t, 3, second.KillerVehicle.ID)
	assert.Equal(t, 1, r.Diagnostics.VehicleKills)

	e, ok := r.Entity(3)
	require.True(t, ok)
	assert.Equal(t, core.EntityVehicle, e.Kind)
}

func TestAssemble_KilledCrew(t *testing.T) {
	doc := &parser.Document{MissionName: "Op", WorldName: "Altis"}
	dec := &parser.Decoded{
		Players: []*core.Player{
			{ID: 1, Name: "shooter", Side: "WEST", IsPlayer: true, Positions: stream([2]int{500, 500}, [2]int{500, 500})},
			{ID: 2, Name: "driver", Side: "EAST", IsPlayer: true, Positions: stream([2]int{10, 10}, [2]int{10, 10})},
			{ID: 3, Name: "gunner", Side: "EAST", IsPlayer: true, Positions: stream([2]int{10, 10}, [2]int{40, 40})},
		},
		Vehicles: []*core.Vehicle{
			{ID: 7, Name: "BTR-80", Class: core.VehicleAPC, Positions: stream([2]int{10, 10}, [2]int{10, 10})},
			{ID: 8, Name: "Ural", Class: core.VehicleTruck, Positions: stream([2]int{900, 900}, [2]int{900, 900})},
		},
		Kills: []core.KillEventRaw{
			{Frame: 0, KilledID: 7, KillerID: intPtr(1), Weapon: strPtr("NLAW (Used)"), Distance: 700},
			{Frame: 1, KilledID: 8, KillerID: intPtr(1), Weapon: strPtr("NLAW (Used)"), Distance: 560},
			{Frame: 1, KilledID: 2, KillerID: intPtr(1), Weapon: strPtr("M4A1"), Distance: 690},
		},
	}

	r := Assemble(doc, dec, Options{})

	require.Len(t, r.Events, 3)
	assert.Equal(t, []int{2, 3}, r.Events[0].KilledCrew)
	assert.Empty(t, r.Events[1].KilledCrew, "nobody near the truck")
	assert.Nil(t, r.Events[2].KilledCrew, "units have no crew")
	assert.Equal(t, 1, r.Diagnostics.CrewedKills)
}
