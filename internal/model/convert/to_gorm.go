// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"encoding/json"
	"fmt"

	"github.com/OCAP2/stats/internal/model"
	"github.com/OCAP2/stats/internal/squads"
	"github.com/OCAP2/stats/pkg/core"
	"gorm.io/datatypes"
)

// toJSON marshals v for a JSON column. Empty slices are stored as [].
func toJSON(v any) (datatypes.JSON, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(data) == "null" {
		return datatypes.JSON("[]"), nil
	}
	return datatypes.JSON(data), nil
}

// CoreToMission converts a MissionRecord to a GORM model.Mission with its
// player and squad rows attached.
func CoreToMission(rec *core.MissionRecord) (model.Mission, error) {
	m := model.Mission{
		File:           rec.File,
		FileDate:       rec.FileDate,
		MissionName:    rec.MissionName,
		WorldName:      rec.WorldName,
		GameType:       string(rec.GameType),
		DurationFrames: rec.DurationFrames,
		DurationTime:   rec.DurationTime,
		WinSide:        rec.WinSide,
		PlayersCount: model.PlayersCount{
			Total: rec.PlayersCount.Total,
			West:  rec.PlayersCount.West,
			East:  rec.PlayersCount.East,
			Guer:  rec.PlayersCount.Guer,
		},
		Players: make([]model.PlayerStat, 0, len(rec.Players)),
		Squads:  make([]model.SquadStat, 0, len(rec.Squads)),
	}

	for _, p := range rec.Players {
		ps, err := CoreToPlayerStat(p)
		if err != nil {
			return model.Mission{}, fmt.Errorf("player %q: %w", p.Name, err)
		}
		m.Players = append(m.Players, ps)
	}
	for _, s := range rec.Squads {
		ss, err := CoreToSquadStat(s)
		if err != nil {
			return model.Mission{}, fmt.Errorf("squad %q: %w", s.Tag, err)
		}
		m.Squads = append(m.Squads, ss)
	}
	return m, nil
}

// CoreToPlayerStat converts a core.UniquePlayerStat to a GORM model.PlayerStat.
// core.UniquePlayerStat.ID maps to PlayerStat.EntityID.
func CoreToPlayerStat(p core.UniquePlayerStat) (model.PlayerStat, error) {
	victims, err := toJSON(p.Victims)
	if err != nil {
		return model.PlayerStat{}, err
	}
	destroyed, err := toJSON(p.DestroyedVehicles)
	if err != nil {
		return model.PlayerStat{}, err
	}

	return model.PlayerStat{
		EntityID:          p.ID,
		Name:              p.Name,
		Side:              p.Side,
		Squad:             p.Squad,
		Frags:             p.Frags,
		FragsVeh:          p.FragsVeh,
		FragsInf:          p.FragsInf,
		TK:                p.TK,
		Deaths:            p.Deaths,
		DestroyedVeh:      p.DestroyedVeh,
		Distance:          p.Distance,
		KD:                p.KD(),
		Victims:           victims,
		DestroyedVehicles: destroyed,
	}, nil
}

// CoreToSquadStat converts a core.SquadStat to a GORM model.SquadStat.
func CoreToSquadStat(s core.SquadStat) (model.SquadStat, error) {
	victims, err := toJSON(s.Victims)
	if err != nil {
		return model.SquadStat{}, err
	}
	players, err := toJSON(s.Players)
	if err != nil {
		return model.SquadStat{}, err
	}

	return model.SquadStat{
		Tag:      s.Tag,
		Side:     s.Side,
		MainSide: s.MainSide,
		Frags:    s.Frags,
		Deaths:   s.Deaths,
		TK:       s.TK,
		Victims:  victims,
		Players:  players,
	}, nil
}

// EntryToSquad converts a registry entry to a GORM model.Squad. The legacy
// single tag is folded into Tags.
func EntryToSquad(e squads.Entry) (model.Squad, error) {
	tags, err := toJSON(e.AllTags())
	if err != nil {
		return model.Squad{}, err
	}
	return model.Squad{
		Name:     e.Name,
		Tags:     tags,
		MainSide: e.MainSide,
	}, nil
}

// SquadToEntry converts a GORM model.Squad back to a registry entry.
func SquadToEntry(s model.Squad) (squads.Entry, error) {
	var tags []string
	if len(s.Tags) > 0 {
		if err := json.Unmarshal(s.Tags, &tags); err != nil {
			return squads.Entry{}, fmt.Errorf("squad %q tags: %w", s.Name, err)
		}
	}
	return squads.Entry{
		Name:     s.Name,
		Tags:     tags,
		MainSide: s.MainSide,
	}, nil
}
