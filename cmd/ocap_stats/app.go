package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/OCAP2/stats/internal/aggregate"
	"github.com/OCAP2/stats/internal/config"
	"github.com/OCAP2/stats/internal/geo"
	"github.com/OCAP2/stats/internal/influx"
	"github.com/OCAP2/stats/internal/logging"
	intOtel "github.com/OCAP2/stats/internal/otel"
	"github.com/OCAP2/stats/internal/parser"
	"github.com/OCAP2/stats/internal/replay"
	"github.com/OCAP2/stats/internal/storage"
	"github.com/OCAP2/stats/internal/worker"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

func configFileName() string {
	return config.FileName
}

// app holds the process-wide services shared by all subcommands.
type app struct {
	configDir     string
	levelOverride string

	LogFilePath string
	logFile     *os.File
	SlogManager *logging.SlogManager
	Logger      *slog.Logger
	ZLogger     zerolog.Logger
	OTel        *intOtel.Provider
	gelfWriter  *gelf.Writer

	done   atomic.Int64
	failed atomic.Int64
}

func (a *app) level() string {
	if a.levelOverride != "" {
		return a.levelOverride
	}
	return viper.GetString("logLevel")
}

// setup loads config and wires logging and telemetry.
func (a *app) setup(cmd *cobra.Command) error {
	a.SlogManager = logging.NewSlogManager()
	a.SlogManager.Setup(os.Stderr, a.level(), nil)
	a.Logger = a.SlogManager.Logger()

	if err := config.Load(a.configDir); err != nil {
		a.Logger.Warn("Failed to load config, using defaults!", "error", err)
	}

	var logOut io.Writer = os.Stderr
	logsDir := viper.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		a.Logger.Error("Failed to create logs directory", "error", err, "path", logsDir)
	} else {
		a.LogFilePath = logging.LogFilePath(logsDir, AppName, SessionStartTime)
		a.logFile, err = os.OpenFile(a.LogFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			a.Logger.Error("Failed to create/open log file!", "error", err, "path", a.LogFilePath)
		} else {
			logOut = io.MultiWriter(os.Stderr, a.logFile)
		}
	}

	a.ZLogger = zerolog.New(zerolog.ConsoleWriter{
		Out:        logOut,
		TimeFormat: time.RFC3339,
		NoColor:    true,
	}).With().Timestamp().Str("app", AppName).Logger()

	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		provider, err := intOtel.New(intOtel.Config{
			Enabled:        otelCfg.Enabled,
			ServiceName:    otelCfg.ServiceName,
			ServiceVersion: CurrentVersion,
			BatchTimeout:   otelCfg.BatchTimeout,
			LogWriter:      a.otelWriter(),
			Endpoint:       otelCfg.Endpoint,
			Insecure:       otelCfg.Insecure,
			MetricInterval: otelCfg.MetricInterval,
		})
		if err != nil {
			a.Logger.Error("Failed to initialize OTel provider", "error", err)
		} else {
			a.OTel = provider
			intOtel.SetErrorHandler(func(err error) {
				a.Logger.Warn("OTel error", "error", err)
			})
		}
	}

	var extra []slog.Handler
	if viper.GetBool("graylog.enabled") {
		w, err := logging.DialGELF(viper.GetString("graylog.address"))
		if err != nil {
			a.Logger.Error("Failed to connect to Graylog", "error", err)
		} else {
			a.gelfWriter = w
			extra = append(extra, logging.NewGELFHandler(w, logging.ParseLevel(a.level()), AppName))
		}
	}

	a.SlogManager.Context = func() []slog.Attr {
		return []slog.Attr{
			slog.String("command", cmd.Name()),
			slog.Int64("filesDone", a.done.Load()),
			slog.Int64("filesFailed", a.failed.Load()),
		}
	}
	a.SlogManager.Setup(logOut, a.level(), a.otelLogProvider(), extra...)
	a.Logger = a.SlogManager.Logger()
	a.Logger.Info("Starting", "version", CurrentVersion, "build", BuildDate, "logFile", a.LogFilePath)
	return nil
}

func (a *app) close(ctx context.Context) error {
	if a.SlogManager == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	var errs []error
	if err := a.SlogManager.Flush(flushCtx); err != nil {
		errs = append(errs, err)
	}
	if a.OTel != nil {
		if err := a.OTel.Flush(flushCtx); err != nil {
			errs = append(errs, err)
		}
		if err := a.OTel.Shutdown(flushCtx); err != nil {
			errs = append(errs, err)
		}
	}
	if a.gelfWriter != nil {
		errs = append(errs, a.gelfWriter.Close())
	}
	if a.logFile != nil {
		errs = append(errs, a.logFile.Close())
	}
	return errors.Join(errs...)
}

// otelWriter keeps OTel records out of the console.
func (a *app) otelWriter() io.Writer {
	if a.logFile == nil {
		return nil
	}
	return a.logFile
}

func (a *app) otelLogProvider() *sdklog.LoggerProvider {
	if a.OTel == nil {
		return nil
	}
	return a.OTel.LoggerProvider()
}

// openBackend creates and initializes the configured storage backend.
func (a *app) openBackend(ctx context.Context, cfg config.StorageConfig) (storage.Backend, error) {
	backend, err := createStorageBackend(ctx, a, cfg)
	if err != nil {
		return nil, err
	}
	if err := backend.Init(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize storage backend: %w", err)
	}
	a.Logger.Info("Storage backend initialized", "type", cfg.Type)
	return backend, nil
}

// newManager builds the per-file pipeline over backend.
func (a *app) newManager(backend storage.Backend, metrics worker.MissionWriter) (*worker.Manager, error) {
	engine := config.GetEngineConfig()

	projector, err := geo.NewProjector(engine.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating projector: %w", err)
	}

	deps := worker.Dependencies{
		Decoder: parser.NewDecoder(a.Logger),
		Aggregator: aggregate.New(aggregate.Dependencies{
			Projector: projector,
			Logger:    a.Logger,
		}, aggregate.Options{
			FrameDivisor: engine.FrameDivisor,
			Distance: geo.DistanceOptions{
				Stride:    engine.DistanceStride,
				Tolerance: engine.DistanceTolerance,
			},
		}),
		Calibrations: geo.DirCalibrations{Root: engine.MapsDir, Logger: a.Logger},
		LogManager:   a.SlogManager,
	}
	deps.Metrics = metrics

	return worker.NewManager(deps, backend, worker.Options{
		Replay: replay.Options{CrewSpread: engine.CrewSpread},
	})
}

// connectInflux returns a connected influx manager, or nil when influx is
// disabled or cannot be reached without a backup path.
func (a *app) connectInflux(ctx context.Context) *influx.Manager {
	cfg := config.GetInfluxConfig()
	if !cfg.Enabled {
		return nil
	}
	if cfg.BackupPath == "" {
		cfg.BackupPath = filepath.Join(viper.GetString("logsDir"),
			fmt.Sprintf("%s_influx.%s.lp.gz", AppName, SessionStartTime.Format("20060102_150405")))
	}

	m := influx.NewManager(a.ZLogger, cfg)
	if err := m.Connect(ctx); err != nil {
		a.Logger.Error("Failed to connect to InfluxDB", "error", err)
		return nil
	}
	return m
}
