package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// FileName is the name of the config file looked up in the config directory.
const FileName = "ocap_stats.cfg.json"

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds local database settings
type SQLiteConfig struct {
	Path         string        `json:"path" mapstructure:"path"`
	DumpPath     string        `json:"dumpPath" mapstructure:"dumpPath"`
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
}

// StorageConfig selects the mission store
type StorageConfig struct {
	Type   string       `json:"type" mapstructure:"type"`
	Memory MemoryConfig `json:"memory" mapstructure:"memory"`
	SQLite SQLiteConfig `json:"sqlite" mapstructure:"sqlite"`
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`

	MetricInterval time.Duration `json:"metricInterval" mapstructure:"metricInterval"`
}

// DatabaseConfig holds Postgres connection settings
type DatabaseConfig struct {
	Host           string        `json:"host" mapstructure:"host"`
	Port           string        `json:"port" mapstructure:"port"`
	Username       string        `json:"username" mapstructure:"username"`
	Password       string        `json:"password" mapstructure:"password"`
	Database       string        `json:"database" mapstructure:"database"`
	SSLMode        string        `json:"sslMode" mapstructure:"sslMode"`
	MaxOpenConns   int           `json:"maxOpenConns" mapstructure:"maxOpenConns"`
	ConnectTimeout time.Duration `json:"connectTimeout" mapstructure:"connectTimeout"`
}

// InfluxConfig holds InfluxDB settings
type InfluxConfig struct {
	Enabled       bool          `json:"enabled" mapstructure:"enabled"`
	URL           string        `json:"-" mapstructure:"-"`
	Token         string        `json:"token" mapstructure:"token"`
	Org           string        `json:"org" mapstructure:"org"`
	RetentionDays int           `json:"retentionDays" mapstructure:"retentionDays"`
	BatchSize     uint          `json:"batchSize" mapstructure:"batchSize"`
	FlushInterval time.Duration `json:"flushInterval" mapstructure:"flushInterval"`
	BackupPath    string        `json:"backupPath" mapstructure:"backupPath"`
}

// EngineConfig holds the tunables of the decode and aggregation pipeline
type EngineConfig struct {
	MapsDir           string
	SquadsFile        string
	QuarantineDir     string
	FrameDivisor      float64
	DistanceStride    int
	DistanceTolerance float64
	CrewSpread        int
	CacheSize         int
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// SetDefaults registers the default value of every known key.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./ocaplogs")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "ocap")
	viper.SetDefault("db.sslMode", "disable")
	viper.SetDefault("db.maxOpenConns", 10)
	viper.SetDefault("db.connectTimeout", "10s")

	viper.SetDefault("storage.type", "sqlite")
	viper.SetDefault("storage.memory.outputDir", "./stats")
	viper.SetDefault("storage.memory.compressOutput", false)
	viper.SetDefault("storage.sqlite.path", "./ocap_stats.db")
	viper.SetDefault("storage.sqlite.dumpPath", "")
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "ocap-metrics")
	viper.SetDefault("influx.retentionDays", 90)
	viper.SetDefault("influx.batchSize", 2500)
	viper.SetDefault("influx.flushInterval", "1s")
	viper.SetDefault("influx.backupPath", "")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "ocap-stats")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
	viper.SetDefault("otel.metricInterval", "0s")

	viper.SetDefault("maps.dir", "./maps")
	viper.SetDefault("squads.file", "")
	viper.SetDefault("ingest.quarantineDir", "")

	viper.SetDefault("aggregate.frameDivisor", 49.0)
	viper.SetDefault("aggregate.distanceStride", 10)
	viper.SetDefault("aggregate.distanceTolerance", 0.5)
	viper.SetDefault("crew.spread", 10)
	viper.SetDefault("projector.cacheSize", 200000)
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetStorageConfig returns the storage backend settings.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			Path:         viper.GetString("storage.sqlite.path"),
			DumpPath:     viper.GetString("storage.sqlite.dumpPath"),
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
		},
	}
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),

		MetricInterval: viper.GetDuration("otel.metricInterval"),
	}
}

// GetDatabaseConfig returns the Postgres settings.
func GetDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Host:           viper.GetString("db.host"),
		Port:           viper.GetString("db.port"),
		Username:       viper.GetString("db.username"),
		Password:       viper.GetString("db.password"),
		Database:       viper.GetString("db.database"),
		SSLMode:        viper.GetString("db.sslMode"),
		MaxOpenConns:   viper.GetInt("db.maxOpenConns"),
		ConnectTimeout: viper.GetDuration("db.connectTimeout"),
	}
}

// GetInfluxConfig returns the InfluxDB settings. URL is assembled from
// influx.protocol, influx.host and influx.port.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled: viper.GetBool("influx.enabled"),
		URL: fmt.Sprintf("%s://%s:%s",
			viper.GetString("influx.protocol"),
			viper.GetString("influx.host"),
			viper.GetString("influx.port")),
		Token:         viper.GetString("influx.token"),
		Org:           viper.GetString("influx.org"),
		RetentionDays: viper.GetInt("influx.retentionDays"),
		BatchSize:     viper.GetUint("influx.batchSize"),
		FlushInterval: viper.GetDuration("influx.flushInterval"),
		BackupPath:    viper.GetString("influx.backupPath"),
	}
}

// GetEngineConfig returns the pipeline tunables.
func GetEngineConfig() EngineConfig {
	return EngineConfig{
		MapsDir:           viper.GetString("maps.dir"),
		SquadsFile:        viper.GetString("squads.file"),
		QuarantineDir:     viper.GetString("ingest.quarantineDir"),
		FrameDivisor:      viper.GetFloat64("aggregate.frameDivisor"),
		DistanceStride:    viper.GetInt("aggregate.distanceStride"),
		DistanceTolerance: viper.GetFloat64("aggregate.distanceTolerance"),
		CrewSpread:        viper.GetInt("crew.spread"),
		CacheSize:         viper.GetInt("projector.cacheSize"),
	}
}
