package influx

import (
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/OCAP2/stats/internal/config"
	"github.com/OCAP2/stats/pkg/core"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord() *core.MissionRecord {
	west := "WEST"
	return &core.MissionRecord{
		File:           "/replays/2024_01_05__21_30_red_dawn.json",
		MissionName:    "Red Dawn",
		WorldName:      "Altis",
		GameType:       core.GameTypeTVT2,
		DurationFrames: 4900,
		DurationTime:   100,
		WinSide:        &west,
		PlayersCount:   core.SideCounts{Total: 2, West: 1, East: 1},
		Players: []core.UniquePlayerStat{
			{Name: "Alpha", Side: "WEST", Squad: "Red Hammers", Frags: 3, FragsInf: 2, FragsVeh: 1, DestroyedVeh: 1, Distance: 7.5},
			{Name: "Bravo", Side: "EAST", Deaths: 1},
		},
	}
}

func offlineConfig(t *testing.T) config.InfluxConfig {
	return config.InfluxConfig{
		Enabled:    true,
		URL:        "http://127.0.0.1:1",
		Org:        "ocap-metrics",
		BackupPath: filepath.Join(t.TempDir(), "stats_influx.lp.gz"),
	}
}

func readBackup(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	data, err := io.ReadAll(gz)
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func TestNewManager(t *testing.T) {
	m := NewManager(zerolog.Nop(), config.InfluxConfig{})
	assert.False(t, m.Online())
	assert.Equal(t, DefaultBucketNames, m.BucketNames)
}

func TestConnect(t *testing.T) {
	tests := []struct {
		name    string
		cfg     func(t *testing.T) config.InfluxConfig
		wantErr string
	}{
		{
			name:    "disabled",
			cfg:     func(*testing.T) config.InfluxConfig { return config.InfluxConfig{} },
			wantErr: "influx.enabled is false",
		},
		{
			name: "unreachable without backup",
			cfg: func(t *testing.T) config.InfluxConfig {
				cfg := offlineConfig(t)
				cfg.BackupPath = ""
				return cfg
			},
			wantErr: "no backup path set",
		},
		{
			name: "unreachable with backup",
			cfg:  offlineConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager(zerolog.Nop(), tt.cfg(t))
			err := m.Connect(context.Background())
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.False(t, m.Online())
			assert.NoError(t, m.Close())
		})
	}
}

func TestBackupFileName(t *testing.T) {
	tests := []struct {
		path, want string
	}{
		{"logs/stats.lp.gz", "logs/stats.mission_stats.lp.gz"},
		{"logs/stats.gz", "logs/stats.mission_stats.gz"},
		{"logs/stats", "logs/stats.mission_stats"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BackupFileName(tt.path, MissionBucket), tt.path)
	}
}

func TestMissionTime(t *testing.T) {
	fallback := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2024, 1, 5, 21, 30, 0, 0, time.UTC), MissionTime(sampleRecord(), fallback))
	assert.Equal(t, fallback, MissionTime(&core.MissionRecord{File: "replay.json"}, fallback))
}

func TestMissionPoint(t *testing.T) {
	ts := time.Date(2024, 1, 5, 21, 30, 0, 0, time.UTC)
	lp := influxdb2_write.PointToLineProtocol(MissionPoint(sampleRecord(), ts), time.Second)

	assert.True(t, strings.HasPrefix(lp, "mission,"))
	assert.Contains(t, lp, `mission_name=Red\ Dawn`)
	assert.Contains(t, lp, "win_side=WEST")
	assert.Contains(t, lp, "frags=3i")
	assert.Contains(t, lp, "destroyed_vehicles=1i")
	assert.Contains(t, lp, "players_total=2i")
}

func TestPlayerPoints(t *testing.T) {
	points := PlayerPoints(sampleRecord(), time.Unix(0, 0))
	require.Len(t, points, 2)

	lp := influxdb2_write.PointToLineProtocol(points[0], time.Second)
	assert.Contains(t, lp, "player=Alpha")
	assert.Contains(t, lp, `squad=Red\ Hammers`)
	assert.Contains(t, lp, "distance=7.5")
	assert.Contains(t, lp, "kd=3")
}

func TestWriteMission_Backup(t *testing.T) {
	cfg := offlineConfig(t)
	m := NewManager(zerolog.Nop(), cfg)
	require.NoError(t, m.Connect(context.Background()))

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, m.WriteMission(context.Background(), sampleRecord()))
		}()
	}
	wg.Wait()
	require.NoError(t, m.Close())

	missions := readBackup(t, BackupFileName(cfg.BackupPath, MissionBucket))
	require.Len(t, missions, 4)
	for _, l := range missions {
		assert.True(t, strings.HasPrefix(l, "mission,"), l)
	}

	players := readBackup(t, BackupFileName(cfg.BackupPath, PlayerBucket))
	require.Len(t, players, 8)
	assert.True(t, strings.HasPrefix(players[0], "player,"))
}

func TestWritePoint_NotConnected(t *testing.T) {
	m := NewManager(zerolog.Nop(), config.InfluxConfig{})
	err := m.WritePoint(context.Background(), MissionBucket, MissionPoint(sampleRecord(), time.Now()))
	assert.ErrorIs(t, err, ErrNotConnected)
}
