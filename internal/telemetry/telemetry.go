// Package telemetry writes applied soldier positions to InfluxDB, falling
// back to a gzip line-protocol file when the server is unreachable.
package telemetry

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"

	"github.com/OCAP2/fieldmap/internal/config"
	"github.com/OCAP2/fieldmap/internal/geo"
)

// Measurement is the measurement name for position points.
const Measurement = "soldier_position"

// Sources tag how a position reached the map.
const (
	SourceReplay     = "replay"
	SourceCorrection = "correction"
)

// ErrDisabled is returned by Connect when influx is switched off.
var ErrDisabled = errors.New("influx is disabled")

// Manager handles InfluxDB connections and writes.
type Manager struct {
	cfg    config.InfluxConfig
	logger zerolog.Logger

	mu         sync.Mutex
	client     influxdb2.Client
	writer     influxdb2_api.WriteAPI
	backup     *gzip.Writer
	backupFile *os.File
	valid      bool
}

// NewManager creates a new InfluxDB manager.
func NewManager(cfg config.InfluxConfig, log zerolog.Logger) *Manager {
	return &Manager{
		cfg:    cfg,
		logger: log.With().Str("component", "telemetry").Logger(),
	}
}

// Connect establishes a connection to InfluxDB. When the server does not
// answer a ping, points go to the backup file instead.
func (m *Manager) Connect(ctx context.Context) error {
	if !m.cfg.Enabled {
		return ErrDisabled
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.client = influxdb2.NewClientWithOptions(
		m.cfg.URL,
		m.cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(500).
			SetFlushInterval(1000),
	)

	running, err := m.client.Ping(ctx)
	if err != nil || !running {
		m.valid = false
		if m.backup == nil {
			m.logger.Info().Str("backupPath", m.cfg.BackupPath).
				Msg("Failed to reach InfluxDB, writing to backup file")
			file, err := os.OpenFile(m.cfg.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
			if err != nil {
				return fmt.Errorf("error creating backup file: %w", err)
			}
			m.backupFile = file
			m.backup = gzip.NewWriter(file)
		}
		m.logger.Warn().Msg("InfluxDB client failed to initialize, using backup writer")
		return nil
	}

	if err := m.setupBucket(ctx); err != nil {
		return err
	}
	m.createWriter()
	m.valid = true
	m.logger.Info().Str("bucket", m.cfg.Bucket).Msg("InfluxDB client initialized")
	return nil
}

func (m *Manager) setupBucket(ctx context.Context) error {
	orgs := m.client.OrganizationsAPI()
	org, err := orgs.FindOrganizationByName(ctx, m.cfg.Org)
	if err != nil {
		m.logger.Info().Str("org", m.cfg.Org).Msg("Organization not found, creating")
		org, err = orgs.CreateOrganizationWithName(ctx, m.cfg.Org)
		if err != nil {
			m.logger.Error().Err(err).Str("org", m.cfg.Org).Msg("Error creating organization")
			return err
		}
	}

	if _, err := m.client.BucketsAPI().FindBucketByName(ctx, m.cfg.Bucket); err == nil {
		return nil
	}

	m.logger.Info().Str("bucket", m.cfg.Bucket).Msg("Bucket not found, creating")
	rule := domain.RetentionRuleTypeExpire
	_, err = m.client.BucketsAPI().CreateBucketWithName(ctx, org, m.cfg.Bucket, domain.RetentionRule{
		Type:         &rule,
		EverySeconds: 60 * 60 * 24 * 90, // 90 days
	})
	if err != nil {
		m.logger.Error().Err(err).Str("bucket", m.cfg.Bucket).Msg("Error creating bucket")
		return err
	}
	return nil
}

func (m *Manager) createWriter() {
	m.writer = m.client.WriteAPI(m.cfg.Org, m.cfg.Bucket)
	go func(errorsCh <-chan error) {
		for writeErr := range errorsCh {
			m.logger.Error().Err(writeErr).Str("bucket", m.cfg.Bucket).
				Msg("Error sending data to InfluxDB")
		}
	}(m.writer.Errors())
}

// PositionPoint builds the point for one applied position.
func PositionPoint(soldierID int, pos geo.LatLng, at time.Time, source string) *influxdb2_write.Point {
	return influxdb2.NewPoint(
		Measurement,
		map[string]string{
			"soldier": strconv.Itoa(soldierID),
			"source":  source,
		},
		map[string]any{
			"lat": pos.Lat,
			"lng": pos.Lng,
		},
		at,
	)
}

// RecordPosition writes a position point to InfluxDB or the backup file.
func (m *Manager) RecordPosition(ctx context.Context, soldierID int, pos geo.LatLng, at time.Time, source string) error {
	return m.WritePoint(ctx, PositionPoint(soldierID, pos, at, source))
}

// WritePoint writes a point to InfluxDB or the backup file.
func (m *Manager) WritePoint(_ context.Context, point *influxdb2_write.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.valid {
		m.writer.WritePoint(point)
		return nil
	}
	if m.backup == nil {
		return fmt.Errorf("influxDB client not initialized and backup writer not available")
	}

	line := influxdb2_write.PointToLineProtocol(point, time.Nanosecond)
	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}
	if _, err := m.backup.Write([]byte(line)); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

// Close flushes pending points and releases the client and backup file.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.writer != nil {
		m.writer.Flush()
	}
	if m.client != nil {
		m.client.Close()
	}
	var errs []error
	if m.backup != nil {
		errs = append(errs, m.backup.Close())
		m.backup = nil
	}
	if m.backupFile != nil {
		errs = append(errs, m.backupFile.Close())
		m.backupFile = nil
	}
	return errors.Join(errs...)
}
