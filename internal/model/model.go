package model

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&Mission{},
	&PlayerStat{},
	&SquadStat{},
	&Squad{},
}

// Mission is one ingested replay
type Mission struct {
	gorm.Model
	File           string       `json:"file" gorm:"size:255;index:idx_mission_file"`
	FileDate       string       `json:"fileDate" gorm:"size:32;uniqueIndex:idx_mission_name_date,priority:2"`
	MissionName    string       `json:"missionName" gorm:"size:200;uniqueIndex:idx_mission_name_date,priority:1"`
	WorldName      string       `json:"worldName" gorm:"size:100"`
	GameType       string       `json:"gameType" gorm:"size:16;index:idx_mission_game_type"`
	DurationFrames int          `json:"durationFrames"`
	DurationTime   float64      `json:"durationTime"`
	WinSide        *string      `json:"winSide" gorm:"size:16"`
	PlayersCount   PlayersCount `json:"playersCount" gorm:"embedded;embeddedPrefix:players_"`
	Players        []PlayerStat `json:"-"`
	Squads         []SquadStat  `json:"-"`
}

func (*Mission) TableName() string {
	return "missions"
}

// PlayersCount shows unique player counts in the mission by side
type PlayersCount struct {
	Total int `json:"total"`
	West  int `json:"west"`
	East  int `json:"east"`
	Guer  int `json:"guer"`
}

// PlayerStat is the per-player result of one mission
type PlayerStat struct {
	ID                uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	MissionID         uint           `json:"missionId" gorm:"index:idx_playerstat_mission_id"`
	Mission           Mission        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MissionID;"`
	EntityID          int            `json:"entityId"`
	Name              string         `json:"name" gorm:"size:100;index:idx_playerstat_name"`
	Side              string         `json:"side" gorm:"size:16"`
	Squad             string         `json:"squad" gorm:"size:100;index:idx_playerstat_squad"`
	Frags             int            `json:"frags"`
	FragsVeh          int            `json:"fragsVeh"`
	FragsInf          int            `json:"fragsInf"`
	TK                int            `json:"tk"`
	Deaths            int            `json:"deaths"`
	DestroyedVeh      int            `json:"destroyedVeh"`
	Distance          float64        `json:"distance"`
	KD                float64        `json:"kd"`
	Victims           datatypes.JSON `json:"victims"`
	DestroyedVehicles datatypes.JSON `json:"destroyedVehicles"`
}

func (*PlayerStat) TableName() string {
	return "player_stats"
}

// SquadStat is the per-squad roll-up of one mission
type SquadStat struct {
	ID        uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	MissionID uint           `json:"missionId" gorm:"index:idx_squadstat_mission_id"`
	Mission   Mission        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MissionID;"`
	Tag       string         `json:"tag" gorm:"size:100;index:idx_squadstat_tag"`
	Side      string         `json:"side" gorm:"size:16"`
	MainSide  string         `json:"mainSide" gorm:"size:16"`
	Frags     int            `json:"frags"`
	Deaths    int            `json:"deaths"`
	TK        int            `json:"tk"`
	Victims   datatypes.JSON `json:"victims"`
	Players   datatypes.JSON `json:"players"`
}

func (*SquadStat) TableName() string {
	return "squad_stats"
}

// Squad is one entry of the squad alias registry
type Squad struct {
	gorm.Model
	Name     string         `json:"name" gorm:"size:100;uniqueIndex:idx_squad_name"`
	Tags     datatypes.JSON `json:"tags"`
	MainSide string         `json:"mainSide" gorm:"size:16"`
}

func (*Squad) TableName() string {
	return "squads"
}
