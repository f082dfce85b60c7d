// pkg/core/mission.go
package core

import "math"

// GameType is the mission category derived from the replay file name.
type GameType string

const (
	GameTypeLTVT    GameType = "ltvt"
	GameTypeTVT1    GameType = "tvt1"
	GameTypeTVT2    GameType = "tvt2"
	GameTypeIF      GameType = "if"
	GameTypeUnknown GameType = "unknown"
)

// Kill types recorded on sub-events.
const (
	KillTypeInfantry = "kill"
	KillTypeVehicle  = "veh"
)

// MapPoint is a projected map-relative position.
type MapPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// VictimEvent is a player kill credited to a killer.
type VictimEvent struct {
	Name           string    `json:"name"`
	Weapon         string    `json:"weapon"`
	Distance       float64   `json:"distance"`
	KillerName     string    `json:"killer_name"`
	KillType       string    `json:"kill_type"`
	Frame          int       `json:"frame"`
	Time           float64   `json:"time"`
	Position       *MapPoint `json:"position"`
	KillerPosition *MapPoint `json:"killer_position"`
	OcapPos        *MapPoint `json:"OcapPos"`
}

// DestroyedVehicle is a vehicle destruction credited to a killer.
type DestroyedVehicle struct {
	Name           string    `json:"name"`
	VehType        string    `json:"veh_type"`
	Weapon         string    `json:"weapon"`
	Distance       float64   `json:"distance"`
	KillType       string    `json:"kill_type"`
	Frame          int       `json:"frame"`
	Time           float64   `json:"time"`
	KillerPosition *MapPoint `json:"killer_position"`
	OcapPos        *MapPoint `json:"OcapPos"`
}

// UniquePlayerStat holds the totals for one canonical player name in a mission.
type UniquePlayerStat struct {
	ID                int                `json:"id"`
	Name              string             `json:"name"`
	Side              string             `json:"side"`
	Squad             string             `json:"squad"`
	Frags             int                `json:"frags"`
	FragsVeh          int                `json:"frags_veh"`
	FragsInf          int                `json:"frags_inf"`
	TK                int                `json:"tk"`
	Deaths            int                `json:"death"`
	DestroyedVeh      int                `json:"destroyed_veh"`
	Distance          float64            `json:"distance"`
	Victims           []VictimEvent      `json:"victims_players"`
	DestroyedVehicles []DestroyedVehicle `json:"destroyed_vehicles"`
}

// KD returns the player's kill/death ratio.
func (s UniquePlayerStat) KD() float64 {
	return KDRatio(s.Frags, s.Deaths)
}

// SquadPlayer is one roster line of a SquadStat.
type SquadPlayer struct {
	Name     string  `json:"name"`
	Frags    int     `json:"frags"`
	Deaths   int     `json:"death"`
	TK       int     `json:"tk"`
	Distance float64 `json:"distance"`
}

// SquadStat rolls up the members of one canonical squad.
type SquadStat struct {
	Tag      string        `json:"squad_tag"`
	Side     string        `json:"side"`
	MainSide string        `json:"main_side,omitempty"`
	Frags    int           `json:"frags"`
	Deaths   int           `json:"death"`
	TK       int           `json:"tk"`
	Victims  []VictimEvent `json:"victims_players"`
	Players  []SquadPlayer `json:"squad_players"`
}

// SideCounts is the per-side headcount of canonical players.
type SideCounts struct {
	Total int `json:"total"`
	West  int `json:"WEST"`
	East  int `json:"EAST"`
	Guer  int `json:"GUER"`
}

// MissionRecord is the aggregated result of one replay file.
type MissionRecord struct {
	File           string             `json:"file"`
	FileDate       string             `json:"file_date"`
	GameType       GameType           `json:"game_type"`
	DurationFrames int                `json:"duration_frames"`
	DurationTime   float64            `json:"duration_time"`
	MissionName    string             `json:"missionName"`
	WorldName      string             `json:"worldName"`
	Map            string             `json:"map"`
	WinSide        *string            `json:"win_side"`
	Players        []UniquePlayerStat `json:"players"`
	Squads         []SquadStat        `json:"squads"`
	PlayersCount   SideCounts         `json:"players_count"`
}

// KDRatio is kills/deaths rounded to two places, or kills when deaths is zero.
func KDRatio(kills, deaths int) float64 {
	if deaths <= 0 {
		return float64(kills)
	}
	return Round2(float64(kills) / float64(deaths))
}

// Round2 rounds v to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
