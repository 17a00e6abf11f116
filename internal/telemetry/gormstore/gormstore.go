// Package gormstore records frames into a SQL database through GORM, with an
// internal queue and a background writer goroutine.
package gormstore

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"gorm.io/gorm"

	"github.com/driftworks/vehiclectl/internal/queue"
	"github.com/driftworks/vehiclectl/pkg/core"
)

const (
	defaultFlushInterval = 2 * time.Second
	defaultBatchSize     = 5000
)

// ErrNoSession is returned when frames arrive before StartSession.
var ErrNoSession = errors.New("no active session")

// Options tunes the writer.
type Options struct {
	FlushInterval time.Duration
	BatchSize     int
	Logger        *slog.Logger
}

// Backend implements telemetry.Backend on top of a *gorm.DB.
type Backend struct {
	db   *gorm.DB
	opts Options
	log  *slog.Logger

	frames     *queue.Queue[FrameRow]
	sessionID  atomic.Uint64
	frameCount atomic.Uint64

	flushMu  sync.Mutex
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// New wraps an open database. Init migrates the schema and starts the writer.
func New(db *gorm.DB, opts Options) *Backend {
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = defaultFlushInterval
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Backend{
		db:     db,
		opts:   opts,
		log:    log.With("component", "gormstore"),
		frames: queue.New[FrameRow](),
	}
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.db
}

// Init migrates the schema and starts the DB writer goroutine.
func (b *Backend) Init() error {
	if b.db == nil {
		return fmt.Errorf("gormstore: no database")
	}

	b.log.Info("Migrating schema", "dialect", b.db.Dialector.Name())
	if err := b.db.AutoMigrate(Models...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	b.stopChan = make(chan struct{})
	b.wg.Add(1)
	go b.writer()
	return nil
}

// Close stops the writer, flushes what is left and closes the connection.
func (b *Backend) Close() error {
	if b.stopChan != nil {
		close(b.stopChan)
		b.wg.Wait()
		b.stopChan = nil
	}

	if b.db == nil {
		return nil
	}
	var errs []error
	if err := b.flush(); err != nil {
		errs = append(errs, err)
	}
	if sqlDB, err := b.db.DB(); err == nil {
		errs = append(errs, sqlDB.Close())
	}
	return errors.Join(errs...)
}

// StartSession inserts the session row. Frames recorded afterwards belong to it.
func (b *Backend) StartSession(s *core.Session) error {
	row := sessionFromCore(s)
	if err := b.db.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	b.frameCount.Store(0)
	b.sessionID.Store(uint64(row.ID))
	b.log.Info("Session started", "session", s.ID, "id", row.ID)
	return nil
}

// EndSession writes every queued frame and closes the session row.
func (b *Backend) EndSession() error {
	id := uint(b.sessionID.Swap(0))
	if id == 0 {
		return ErrNoSession
	}

	if err := b.flush(); err != nil {
		return err
	}

	count := b.frameCount.Load()
	err := b.db.Model(&Session{}).Where("id = ?", id).Updates(map[string]any{
		"end_time":    sql.NullTime{Time: time.Now().UTC(), Valid: true},
		"frame_count": count,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to close session: %w", err)
	}
	b.log.Info("Session ended", "id", id, "frames", count)
	return nil
}

// RecordFrame queues a frame for the writer.
func (b *Backend) RecordFrame(f *core.Frame) error {
	id := uint(b.sessionID.Load())
	if id == 0 {
		return ErrNoSession
	}
	row, err := frameFromCore(id, f)
	if err != nil {
		return err
	}
	b.frames.Push(row)
	b.frameCount.Add(1)
	return nil
}

// Pending returns the number of frames not yet written.
func (b *Backend) Pending() int {
	return b.frames.Len()
}

// writeQueue writes one batch from a queue to the database in a transaction.
// On failure the batch goes back to the head of the queue.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, batch int, log *slog.Logger) (int, error) {
	items := q.Drain(batch)
	if len(items) == 0 {
		return 0, nil
	}

	tx := db.Begin()
	if err := tx.Create(&items).Error; err != nil {
		log.Error("Error creating rows", "table", name, "count", len(items), "error", err)
		tx.Rollback()
		q.Requeue(items)
		return 0, err
	}
	if err := tx.Commit().Error; err != nil {
		q.Requeue(items)
		return 0, err
	}
	return len(items), nil
}

// flush drains the frame queue completely.
func (b *Backend) flush() error {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()
	return b.flushLocked()
}

func (b *Backend) flushLocked() error {
	for !b.frames.Empty() {
		if _, err := writeQueue(b.db, b.frames, "frames", b.opts.BatchSize, b.log); err != nil {
			return fmt.Errorf("failed to write frames: %w", err)
		}
	}
	return nil
}

// writer periodically drains the queue into the DB.
func (b *Backend) writer() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.opts.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			start := time.Now()
			pending := b.frames.Len()
			if err := b.flush(); err != nil {
				// already logged by writeQueue; retried next tick
				continue
			}
			if pending > 0 {
				b.log.Debug("Flushed frames", "count", pending, "duration", time.Since(start))
			}
		}
	}
}

// Sessions lists recorded sessions, newest first.
func Sessions(db *gorm.DB) ([]Session, error) {
	var out []Session
	if err := db.Order("start_time desc, id desc").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return out, nil
}

// LoadFrames returns the frames of the session with the given uuid, in step order.
func LoadFrames(db *gorm.DB, sessionUUID string) (*core.Session, []core.Frame, error) {
	var s Session
	if err := db.Where("uuid = ?", sessionUUID).First(&s).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to find session %s: %w", sessionUUID, err)
	}

	var rows []FrameRow
	if err := db.Where("session_id = ?", s.ID).Order("step asc").Find(&rows).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to load frames: %w", err)
	}

	frames := make([]core.Frame, 0, len(rows))
	for i := range rows {
		f, err := rows[i].Core()
		if err != nil {
			return nil, nil, err
		}
		frames = append(frames, f)
	}
	cs := s.Core()
	return &cs, frames, nil
}
