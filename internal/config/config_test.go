package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(body), 0644))
	return dir
}

func TestLoad_WithValidConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := writeConfig(t, `{
		"logLevel": "debug",
		"db": { "host": "10.0.0.1", "port": "5433" },
		"maps": { "dir": "/srv/maps" }
	}`)

	err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "debug", viper.GetString("logLevel"))
	assert.Equal(t, "10.0.0.1", viper.GetString("db.host"))
	assert.Equal(t, "5433", viper.GetString("db.port"))
	assert.Equal(t, "/srv/maps", viper.GetString("maps.dir"))
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load(writeConfig(t, `{}`))
	require.NoError(t, err)

	assert.Equal(t, "info", viper.GetString("logLevel"))
	assert.Equal(t, "./ocaplogs", viper.GetString("logsDir"))
	assert.Equal(t, "localhost", viper.GetString("db.host"))
	assert.Equal(t, "5432", viper.GetString("db.port"))
	assert.Equal(t, "postgres", viper.GetString("db.username"))
	assert.Equal(t, "postgres", viper.GetString("db.password"))
	assert.Equal(t, "ocap", viper.GetString("db.database"))
	assert.Equal(t, false, viper.GetBool("influx.enabled"))
	assert.Equal(t, false, viper.GetBool("graylog.enabled"))
	assert.Equal(t, "localhost:12201", viper.GetString("graylog.address"))
	assert.Equal(t, "sqlite", viper.GetString("storage.type"))
	assert.Equal(t, "./ocap_stats.db", viper.GetString("storage.sqlite.path"))
	assert.Equal(t, false, viper.GetBool("otel.enabled"))
	assert.Equal(t, "ocap-stats", viper.GetString("otel.serviceName"))
	assert.Equal(t, "", viper.GetString("ingest.quarantineDir"))
}

func TestLoad_MissingFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load("/nonexistent/path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestGetString(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testKey", "testValue")
	assert.Equal(t, "testValue", GetString("testKey"))
}

func TestGetInt(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testInt", 42)
	assert.Equal(t, 42, GetInt("testInt"))
}

func TestGetBool(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testBool", true)
	assert.Equal(t, true, GetBool("testBool"))
}

func TestGetStorageConfig(t *testing.T) {
	tests := []struct {
		name string
		body string
		want StorageConfig
	}{
		{
			name: "defaults",
			body: `{}`,
			want: StorageConfig{
				Type:   "sqlite",
				Memory: MemoryConfig{OutputDir: "./stats"},
				SQLite: SQLiteConfig{Path: "./ocap_stats.db", DumpInterval: 3 * time.Minute},
			},
		},
		{
			name: "override",
			body: `{"storage": {
				"type": "memory",
				"memory": {"outputDir": "/tmp/out", "compressOutput": true},
				"sqlite": {"path": "", "dumpPath": "/tmp/x.db", "dumpInterval": "10m"}
			}}`,
			want: StorageConfig{
				Type:   "memory",
				Memory: MemoryConfig{OutputDir: "/tmp/out", CompressOutput: true},
				SQLite: SQLiteConfig{DumpPath: "/tmp/x.db", DumpInterval: 10 * time.Minute},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Cleanup(viper.Reset)
			require.NoError(t, Load(writeConfig(t, tt.body)))
			assert.Equal(t, tt.want, GetStorageConfig())
		})
	}
}

func TestGetOTelConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{}`)))

	cfg := GetOTelConfig()
	assert.Equal(t, false, cfg.Enabled)
	assert.Equal(t, "ocap-stats", cfg.ServiceName)
	assert.Equal(t, 5*time.Second, cfg.BatchTimeout)
	assert.Equal(t, "", cfg.Endpoint)
	assert.Equal(t, true, cfg.Insecure)
}

func TestGetOTelConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{
		"otel": {
			"enabled": true,
			"serviceName": "my-service",
			"batchTimeout": "30s",
			"endpoint": "localhost:4318",
			"insecure": false
		}
	}`)))

	oc := GetOTelConfig()
	assert.Equal(t, true, oc.Enabled)
	assert.Equal(t, "my-service", oc.ServiceName)
	assert.Equal(t, 30*time.Second, oc.BatchTimeout)
	assert.Equal(t, "localhost:4318", oc.Endpoint)
	assert.Equal(t, false, oc.Insecure)
}

func TestGetEngineConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{
		"squads": {"file": "/etc/ocap/squads.json"},
		"aggregate": {"frameDivisor": 50, "distanceStride": 5},
		"crew": {"spread": 4}
	}`)))

	ec := GetEngineConfig()
	assert.Equal(t, "./maps", ec.MapsDir)
	assert.Equal(t, "/etc/ocap/squads.json", ec.SquadsFile)
	assert.Equal(t, 50.0, ec.FrameDivisor)
	assert.Equal(t, 5, ec.DistanceStride)
	assert.Equal(t, 0.5, ec.DistanceTolerance)
	assert.Equal(t, 4, ec.CrewSpread)
	assert.Equal(t, 200000, ec.CacheSize)
}

func TestGetInfluxConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{"influx": {"enabled": true, "host": "metrics", "port": "9999", "retentionDays": 30}}`)))

	assert.Equal(t, InfluxConfig{
		Enabled:       true,
		URL:           "http://metrics:9999",
		Token:         "supersecrettoken",
		Org:           "ocap-metrics",
		RetentionDays: 30,
		BatchSize:     2500,
		FlushInterval: time.Second,
	}, GetInfluxConfig())
}

func TestGetDatabaseConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{"db": {"host": "pg", "sslMode": "require", "connectTimeout": "3s"}}`)))

	assert.Equal(t, DatabaseConfig{
		Host:           "pg",
		Port:           "5432",
		Username:       "postgres",
		Password:       "postgres",
		Database:       "ocap",
		SSLMode:        "require",
		MaxOpenConns:   10,
		ConnectTimeout: 3 * time.Second,
	}, GetDatabaseConfig())
}
