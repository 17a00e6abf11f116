// Package influx streams frames to InfluxDB, falling back to a gzipped
// line-protocol file when the server cannot be reached.
package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"

	"github.com/driftworks/vehiclectl/internal/config"
	"github.com/driftworks/vehiclectl/internal/logging"
	"github.com/driftworks/vehiclectl/pkg/core"
)

const (
	// FrameMeasurement holds one point per fixed step.
	FrameMeasurement = "vehicle_frame"
	// SessionMeasurement marks session start and end.
	SessionMeasurement = "vehicle_session"

	retentionSeconds = 60 * 60 * 24 * 90 // 90 days
	pingTimeout      = 5 * time.Second
)

// ErrNoSession is returned when frames arrive before StartSession.
var ErrNoSession = errors.New("no active session")

// Backend writes frames to InfluxDB or to the backup file.
type Backend struct {
	cfg config.InfluxConfig
	log logging.Logger

	client influxdb2.Client
	writer influxdb2_api.WriteAPI

	backupFile   *os.File
	backupWriter *gzip.Writer
	backupPath   string

	mu      sync.Mutex
	session *core.Session
	valid   bool
	errs    sync.WaitGroup
}

// New creates a new InfluxDB backend.
func New(cfg config.InfluxConfig, log logging.Logger) *Backend {
	return &Backend{cfg: cfg, log: log}
}

// ServerURL is the base URL built from protocol, host and port.
func ServerURL(cfg config.InfluxConfig) string {
	return fmt.Sprintf("%s://%s:%s", cfg.Protocol, cfg.Host, cfg.Port)
}

// Init connects, ensures the org and bucket exist and creates the writer.
// When the server is unreachable it opens the backup file instead.
func (b *Backend) Init() error {
	b.client = influxdb2.NewClientWithOptions(
		ServerURL(b.cfg),
		b.cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(2500).
			SetFlushInterval(1000),
	)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	// validate client connection health
	running, err := b.client.Ping(ctx)
	if err != nil || !running {
		b.log.Warn("InfluxDB unreachable, writing to backup file", "url", ServerURL(b.cfg), "error", err)
		b.client.Close()
		b.client = nil
		return b.openBackup()
	}

	if err := b.setupOrganizationAndBucket(ctx); err != nil {
		b.client.Close()
		b.client = nil
		return err
	}

	b.writer = b.client.WriteAPI(b.cfg.Org, b.cfg.Bucket)
	errorsCh := b.writer.Errors()
	b.errs.Add(1)
	go func() {
		defer b.errs.Done()
		for writeErr := range errorsCh {
			b.log.Error("Error sending data to InfluxDB", "bucket", b.cfg.Bucket, "error", writeErr)
		}
	}()

	b.valid = true
	b.log.Info("InfluxDB client initialized", "bucket", b.cfg.Bucket)
	return nil
}

func (b *Backend) setupOrganizationAndBucket(ctx context.Context) error {
	orgs := b.client.OrganizationsAPI()
	org, err := orgs.FindOrganizationByName(ctx, b.cfg.Org)
	if err != nil {
		b.log.Info("Organization not found, creating", "org", b.cfg.Org)
		org, err = orgs.CreateOrganizationWithName(ctx, b.cfg.Org)
		if err != nil {
			return fmt.Errorf("error creating organization %s: %w", b.cfg.Org, err)
		}
	}

	buckets := b.client.BucketsAPI()
	if _, err := buckets.FindBucketByName(ctx, b.cfg.Bucket); err != nil {
		b.log.Info("Bucket not found, creating", "bucket", b.cfg.Bucket)
		rule := domain.RetentionRuleTypeExpire
		_, err = buckets.CreateBucketWithName(ctx, org, b.cfg.Bucket, domain.RetentionRule{
			Type:         &rule,
			EverySeconds: retentionSeconds,
		})
		if err != nil {
			return fmt.Errorf("error creating bucket %s: %w", b.cfg.Bucket, err)
		}
	}
	return nil
}

func (b *Backend) openBackup() error {
	dir := b.cfg.BackupDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating backup directory: %w", err)
	}

	b.backupPath = filepath.Join(dir, fmt.Sprintf("influx_%s.lp.gz", time.Now().UTC().Format("20060102_150405")))
	file, err := os.OpenFile(b.backupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %w", err)
	}
	b.backupFile = file
	b.backupWriter = gzip.NewWriter(file)
	return nil
}

// Valid reports whether points go to the server rather than the backup file.
func (b *Backend) Valid() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.valid
}

// ExportedFilePath returns the backup file, if one was opened.
func (b *Backend) ExportedFilePath() string {
	return b.backupPath
}

// Close flushes pending points and releases the client or backup file.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.client != nil {
		b.writer.Flush()
		// Close also closes the writer's error channel
		b.client.Close()
		b.errs.Wait()
		b.client = nil
	}
	if b.backupWriter != nil {
		err := errors.Join(b.backupWriter.Close(), b.backupFile.Close())
		b.backupWriter = nil
		if err != nil {
			return fmt.Errorf("error closing InfluxDB backup file: %w", err)
		}
	}
	b.valid = false
	return nil
}

// StartSession writes a start marker.
func (b *Backend) StartSession(s *core.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.session = s
	return b.writePoint(sessionPoint(s, "start", s.StartTime))
}

// EndSession writes an end marker and flushes.
func (b *Backend) EndSession() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return ErrNoSession
	}
	err := b.writePoint(sessionPoint(b.session, "end", time.Now().UTC()))
	b.session = nil
	if err != nil {
		return err
	}

	if b.writer != nil {
		b.writer.Flush()
	} else if b.backupWriter != nil {
		if err := b.backupWriter.Flush(); err != nil {
			return fmt.Errorf("error flushing InfluxDB backup file: %w", err)
		}
	}
	return nil
}

// RecordFrame writes one point for the frame.
func (b *Backend) RecordFrame(f *core.Frame) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return ErrNoSession
	}
	return b.writePoint(FramePoint(b.session, f))
}

// writePoint writes a point to InfluxDB or backup file.
func (b *Backend) writePoint(point *influxdb2_write.Point) error {
	if b.valid {
		b.writer.WritePoint(point)
		return nil
	}
	if b.backupWriter == nil {
		return fmt.Errorf("influxDB client not initialized and backup writer not available")
	}

	lineProtocol := strings.TrimRight(influxdb2_write.PointToLineProtocol(point, time.Nanosecond), "\n")
	if _, err := b.backupWriter.Write([]byte(lineProtocol + "\n")); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

// FramePoint maps a frame to a point timestamped at session start plus sim time.
func FramePoint(s *core.Session, f *core.Frame) *influxdb2_write.Point {
	tags := map[string]string{
		"session": s.ID,
		"vehicle": s.Vehicle,
		"gear":    f.Gear.String(),
	}
	fields := map[string]interface{}{
		"step":        int64(f.Step),
		"speed":       f.Speed,
		"speed_kmh":   f.SpeedKmh,
		"steer_angle": f.SteerAngle,
		"gas":         f.Inputs.Gas,
		"brake":       f.Inputs.Brake,
		"steer":       f.Inputs.Steer,
		"drift_input": f.Inputs.Drift,
		"drifting":    f.Drifting,
	}
	for _, w := range f.Wheels {
		id := w.Wheel.String()
		fields["brake_"+id] = w.BrakeTorque
		if w.Wheel.Front() {
			fields["steer_"+id] = w.SteerAngle
		} else {
			fields["motor_"+id] = w.MotorTorque
			fields["stiffness_"+id] = w.Stiffness
		}
	}
	return influxdb2.NewPoint(FrameMeasurement, tags, fields, s.StartTime.Add(f.SimTime))
}

func sessionPoint(s *core.Session, event string, ts time.Time) *influxdb2_write.Point {
	return influxdb2.NewPoint(SessionMeasurement,
		map[string]string{"session": s.ID, "vehicle": s.Vehicle},
		map[string]interface{}{
			"event":         event,
			"name":          s.Name,
			"fixed_step_ms": float64(s.FixedStep) / float64(time.Millisecond),
		},
		ts,
	)
}
