// Package influx writes mission and player statistics to InfluxDB. When the
// server is unreachable points are kept as gzipped line protocol, one file
// per bucket, so they can be replayed with `influx write` later.
package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/OCAP2/stats/internal/config"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"
)

// Bucket names written by the stats pipeline.
const (
	MissionBucket = "mission_stats"
	PlayerBucket  = "player_stats"
)

// DefaultBucketNames are the buckets created on connect.
var DefaultBucketNames = []string{
	MissionBucket,
	PlayerBucket,
}

// ErrNotConnected is returned by WritePoint before Connect succeeded.
var ErrNotConnected = errors.New("influxdb not connected and no backup open")

type backupFile struct {
	file *os.File
	gz   *gzip.Writer
}

// Manager handles InfluxDB connections and writes. It is safe for concurrent
// use once Connect has returned.
type Manager struct {
	cfg         config.InfluxConfig
	log         zerolog.Logger
	BucketNames []string

	client  influxdb2.Client
	writers map[string]influxdb2_api.WriteAPI
	online  bool

	mu      sync.Mutex
	backups map[string]*backupFile
}

// NewManager creates a manager for cfg. Nothing is dialed until Connect.
func NewManager(log zerolog.Logger, cfg config.InfluxConfig) *Manager {
	return &Manager{
		cfg:         cfg,
		log:         log,
		BucketNames: DefaultBucketNames,
		writers:     make(map[string]influxdb2_api.WriteAPI),
		backups:     make(map[string]*backupFile),
	}
}

// Online reports whether points go to the server rather than backup files.
func (m *Manager) Online() bool {
	return m.online
}

// Connect pings the server and prepares the org, buckets and write APIs. An
// unreachable server switches the manager to backup files, which requires
// cfg.BackupPath.
func (m *Manager) Connect(ctx context.Context) error {
	if !m.cfg.Enabled {
		return errors.New("influx.enabled is false")
	}

	opts := influxdb2.DefaultOptions()
	if m.cfg.BatchSize > 0 {
		opts.SetBatchSize(m.cfg.BatchSize)
	}
	if m.cfg.FlushInterval > 0 {
		opts.SetFlushInterval(uint(m.cfg.FlushInterval.Milliseconds()))
	}
	m.client = influxdb2.NewClientWithOptions(m.cfg.URL, m.cfg.Token, opts)

	running, err := m.client.Ping(ctx)
	if err != nil || !running {
		if m.cfg.BackupPath == "" {
			return fmt.Errorf("influxdb at %s unreachable and no backup path set: %v", m.cfg.URL, err)
		}
		m.log.Warn().Str("url", m.cfg.URL).Str("backupPath", m.cfg.BackupPath).
			Msg("InfluxDB unreachable, writing points to backup files")
		return nil
	}

	if err := m.ensureBuckets(ctx); err != nil {
		return err
	}
	for _, bucket := range m.BucketNames {
		m.writers[bucket] = m.newWriter(bucket)
	}
	m.online = true
	m.log.Info().Str("url", m.cfg.URL).Msg("InfluxDB client initialized")
	return nil
}

func (m *Manager) ensureBuckets(ctx context.Context) error {
	orgs := m.client.OrganizationsAPI()
	org, err := orgs.FindOrganizationByName(ctx, m.cfg.Org)
	if err != nil {
		m.log.Info().Str("org", m.cfg.Org).Msg("Organization not found, creating")
		if org, err = orgs.CreateOrganizationWithName(ctx, m.cfg.Org); err != nil {
			return fmt.Errorf("creating influx org %s: %w", m.cfg.Org, err)
		}
	}

	rule := domain.RetentionRuleTypeExpire
	retention := domain.RetentionRule{Type: &rule}
	if m.cfg.RetentionDays > 0 {
		retention.EverySeconds = int64(m.cfg.RetentionDays) * int64(24*time.Hour/time.Second)
	}

	buckets := m.client.BucketsAPI()
	for _, bucket := range m.BucketNames {
		if _, err := buckets.FindBucketByName(ctx, bucket); err == nil {
			continue
		}
		m.log.Info().Str("bucket", bucket).Int("retentionDays", m.cfg.RetentionDays).Msg("Bucket not found, creating")
		if _, err := buckets.CreateBucketWithName(ctx, org, bucket, retention); err != nil {
			return fmt.Errorf("creating influx bucket %s: %w", bucket, err)
		}
	}
	return nil
}

func (m *Manager) newWriter(bucket string) influxdb2_api.WriteAPI {
	w := m.client.WriteAPI(m.cfg.Org, bucket)
	go func(errs <-chan error) {
		for err := range errs {
			m.log.Error().Err(err).Str("bucket", bucket).Msg("Error sending data to InfluxDB")
		}
	}(w.Errors())
	return w
}

// BackupFileName derives the backup file of bucket from the configured path:
// "stats.lp.gz" becomes "stats.mission_stats.lp.gz".
func BackupFileName(path, bucket string) string {
	for _, ext := range []string{".lp.gz", ".gz"} {
		if stem, ok := strings.CutSuffix(path, ext); ok {
			return stem + "." + bucket + ext
		}
	}
	return path + "." + bucket
}

// WritePoint queues point for bucket.
func (m *Manager) WritePoint(_ context.Context, bucket string, point *influxdb2_write.Point) error {
	if m.online {
		w, ok := m.writers[bucket]
		if !ok {
			return fmt.Errorf("influx bucket %q not registered", bucket)
		}
		w.WritePoint(point)
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	b, err := m.backup(bucket)
	if err != nil {
		return err
	}
	line := influxdb2_write.PointToLineProtocol(point, time.Nanosecond)
	if _, err := b.gz.Write([]byte(line + "\n")); err != nil {
		return fmt.Errorf("writing influx backup for %s: %w", bucket, err)
	}
	return nil
}

// backup returns the open backup of bucket, opening it on first use.
// m.mu must be held.
func (m *Manager) backup(bucket string) (*backupFile, error) {
	if b, ok := m.backups[bucket]; ok {
		return b, nil
	}
	if m.cfg.BackupPath == "" {
		return nil, ErrNotConnected
	}
	path := BackupFileName(m.cfg.BackupPath, bucket)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening influx backup %s: %w", path, err)
	}
	b := &backupFile{file: f, gz: gzip.NewWriter(f)}
	m.backups[bucket] = b
	return b, nil
}

// Close flushes pending writes and releases the client and backup files.
func (m *Manager) Close() error {
	for _, w := range m.writers {
		w.Flush()
	}
	if m.client != nil {
		m.client.Close()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	var errs []error
	for bucket, b := range m.backups {
		if err := b.gz.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing influx backup for %s: %w", bucket, err))
		}
		errs = append(errs, b.file.Close())
		delete(m.backups, bucket)
	}
	return errors.Join(errs...)
}
