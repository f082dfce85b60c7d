package convert

import (
	"encoding/json"
	"testing"

	"github.com/OCAP2/stats/internal/model"
	"github.com/OCAP2/stats/internal/squads"
	"github.com/OCAP2/stats/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func sampleRecord() *core.MissionRecord {
	west := "WEST"
	return &core.MissionRecord{
		File:           "2024_01_05__21_30_red_dawn.json",
		FileDate:       "2024_01_05",
		GameType:       core.GameTypeTVT2,
		DurationFrames: 4900,
		DurationTime:   100,
		MissionName:    "Red Dawn",
		WorldName:      "Altis",
		Map:            "Altis",
		WinSide:        &west,
		Players: []core.UniquePlayerStat{
			{
				ID: 3, Name: "Alpha", Side: "WEST", Squad: "Red Hammers",
				Frags: 2, FragsInf: 2, Deaths: 1, Distance: 12.5,
				Victims:           []core.VictimEvent{{Name: "Bravo", Weapon: "AKM", KillType: core.KillTypeInfantry, Frame: 10}},
				DestroyedVehicles: []core.DestroyedVehicle{},
			},
		},
		Squads: []core.SquadStat{
			{Tag: "Red Hammers", Side: "WEST", Frags: 2, Deaths: 1,
				Victims: []core.VictimEvent{{Name: "Bravo"}},
				Players: []core.SquadPlayer{{Name: "Alpha", Frags: 2, Deaths: 1}}},
		},
		PlayersCount: core.SideCounts{Total: 2, West: 1, East: 1},
	}
}

func TestCoreToMission(t *testing.T) {
	m, err := CoreToMission(sampleRecord())
	require.NoError(t, err)

	assert.Equal(t, "Red Dawn", m.MissionName)
	assert.Equal(t, "2024_01_05", m.FileDate)
	assert.Equal(t, "tvt2", m.GameType)
	assert.Equal(t, 4900, m.DurationFrames)
	require.NotNil(t, m.WinSide)
	assert.Equal(t, "WEST", *m.WinSide)
	assert.Equal(t, model.PlayersCount{Total: 2, West: 1, East: 1}, m.PlayersCount)

	require.Len(t, m.Players, 1)
	p := m.Players[0]
	assert.Equal(t, 3, p.EntityID)
	assert.Equal(t, 2.0, p.KD)
	assert.JSONEq(t, "[]", string(p.DestroyedVehicles))

	var victims []core.VictimEvent
	require.NoError(t, json.Unmarshal(p.Victims, &victims))
	require.Len(t, victims, 1)
	assert.Equal(t, "Bravo", victims[0].Name)

	require.Len(t, m.Squads, 1)
	var roster []core.SquadPlayer
	require.NoError(t, json.Unmarshal(m.Squads[0].Players, &roster))
	assert.Equal(t, "Alpha", roster[0].Name)
}

func TestToJSON_Nil(t *testing.T) {
	j, err := toJSON([]core.VictimEvent(nil))
	require.NoError(t, err)
	assert.Equal(t, datatypes.JSON("[]"), j)
}

func TestSquadRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		entry squads.Entry
		want  squads.Entry
	}{
		{
			name:  "tags",
			entry: squads.Entry{Name: "Red Hammers", Tags: []string{"RH", "R.H."}, MainSide: "WEST"},
			want:  squads.Entry{Name: "Red Hammers", Tags: []string{"RH", "R.H."}, MainSide: "WEST"},
		},
		{
			name:  "legacy tag",
			entry: squads.Entry{Name: "Wolves", Tag: "WLF"},
			want:  squads.Entry{Name: "Wolves", Tags: []string{"WLF"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := EntryToSquad(tt.entry)
			require.NoError(t, err)
			got, err := SquadToEntry(m)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSquadToEntry_BadTags(t *testing.T) {
	_, err := SquadToEntry(model.Squad{Name: "X", Tags: datatypes.JSON("{")})
	require.Error(t, err)
}
