package influx

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/OCAP2/stats/internal/gametype"
	"github.com/OCAP2/stats/pkg/core"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
)

// MissionTime returns the timestamp of a mission's points: the time encoded in
// the replay file name, or fallback when the name carries none.
func MissionTime(rec *core.MissionRecord, fallback time.Time) time.Time {
	if t, err := gametype.FileTime(filepath.Base(rec.File)); err == nil {
		return t
	}
	return fallback
}

// MissionPoint summarizes rec as one point of the "mission" measurement.
func MissionPoint(rec *core.MissionRecord, ts time.Time) *influxdb2_write.Point {
	winSide := "none"
	if rec.WinSide != nil {
		winSide = *rec.WinSide
	}

	var frags, vehicles int
	for _, p := range rec.Players {
		frags += p.Frags
		vehicles += p.DestroyedVeh
	}

	return influxdb2_write.NewPointWithMeasurement("mission").
		AddTag("mission_name", rec.MissionName).
		AddTag("world", rec.WorldName).
		AddTag("game_type", string(rec.GameType)).
		AddTag("win_side", winSide).
		AddField("duration_s", rec.DurationTime).
		AddField("duration_frames", rec.DurationFrames).
		AddField("players_total", rec.PlayersCount.Total).
		AddField("players_west", rec.PlayersCount.West).
		AddField("players_east", rec.PlayersCount.East).
		AddField("players_guer", rec.PlayersCount.Guer).
		AddField("squads", len(rec.Squads)).
		AddField("frags", frags).
		AddField("destroyed_vehicles", vehicles).
		SetTime(ts)
}

// PlayerPoints returns one "player" point per unique player of rec.
func PlayerPoints(rec *core.MissionRecord, ts time.Time) []*influxdb2_write.Point {
	points := make([]*influxdb2_write.Point, 0, len(rec.Players))
	for _, p := range rec.Players {
		pt := influxdb2_write.NewPointWithMeasurement("player").
			AddTag("mission_name", rec.MissionName).
			AddTag("game_type", string(rec.GameType)).
			AddTag("player", p.Name).
			AddTag("side", p.Side)
		// line protocol has no empty tag values
		if p.Squad != "" {
			pt.AddTag("squad", p.Squad)
		}
		points = append(points, pt.
			AddField("frags", p.Frags).
			AddField("frags_inf", p.FragsInf).
			AddField("frags_veh", p.FragsVeh).
			AddField("deaths", p.Deaths).
			AddField("tk", p.TK).
			AddField("destroyed_veh", p.DestroyedVeh).
			AddField("distance", p.Distance).
			AddField("kd", p.KD()).
			SetTime(ts))
	}
	return points
}

// WriteMission writes the mission summary and per-player points of rec.
func (m *Manager) WriteMission(ctx context.Context, rec *core.MissionRecord) error {
	ts := MissionTime(rec, time.Now())

	if err := m.WritePoint(ctx, MissionBucket, MissionPoint(rec, ts)); err != nil {
		return fmt.Errorf("writing mission point: %w", err)
	}
	for _, p := range PlayerPoints(rec, ts) {
		if err := m.WritePoint(ctx, PlayerBucket, p); err != nil {
			return fmt.Errorf("writing player point: %w", err)
		}
	}
	return nil
}
