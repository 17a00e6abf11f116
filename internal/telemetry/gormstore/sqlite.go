package gormstore

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/driftworks/vehiclectl/internal/config"
	"github.com/driftworks/vehiclectl/pkg/core"
)

// SQLite wraps the GORM backend around an in-memory SQLite database with
// periodic disk dumps via VACUUM INTO. Each session is dumped to its own file
// under OutputDir.
type SQLite struct {
	*Backend
	cfg config.SQLiteConfig

	mu       sync.Mutex
	dumpPath string
	stopChan chan struct{}
	done     chan struct{}
}

// NewSQLite opens the in-memory database.
func NewSQLite(cfg config.SQLiteConfig, logger *slog.Logger) (*SQLite, error) {
	db, err := OpenSQLite("")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite DB: %w", err)
	}
	return &SQLite{
		Backend: New(db, Options{Logger: logger}),
		cfg:     cfg,
	}, nil
}

// Init initializes the embedded GORM backend and starts the dump goroutine.
func (b *SQLite) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}
	if b.cfg.OutputDir != "" {
		if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if b.cfg.DumpInterval > 0 {
		b.stopChan = make(chan struct{})
		b.done = make(chan struct{})
		go b.dumpLoop()
	}
	return nil
}

// StartSession chooses the dump file for the session.
func (b *SQLite) StartSession(s *core.Session) error {
	if err := b.Backend.StartSession(s); err != nil {
		return err
	}
	if b.cfg.OutputDir == "" {
		return nil
	}

	name := strings.NewReplacer(" ", "_", ":", "_", "/", "_").Replace(s.Name)
	if name == "" {
		name = "session"
	}
	b.mu.Lock()
	b.dumpPath = filepath.Join(b.cfg.OutputDir, fmt.Sprintf("%s_%s.db", name, s.StartTime.Format("20060102_150405")))
	b.mu.Unlock()
	return nil
}

// EndSession flushes the session and writes a final dump.
func (b *SQLite) EndSession() error {
	if err := b.Backend.EndSession(); err != nil {
		return err
	}
	return b.dump()
}

// Close stops the dump goroutine and closes the embedded GORM backend.
func (b *SQLite) Close() error {
	if b.stopChan != nil {
		close(b.stopChan)
		<-b.done
		b.stopChan = nil
	}
	return b.Backend.Close()
}

// ExportedFilePath returns the current dump file.
func (b *SQLite) ExportedFilePath() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dumpPath
}

func (b *SQLite) dump() error {
	path := b.ExportedFilePath()
	if path == "" {
		return nil
	}

	b.flushMu.Lock()
	defer b.flushMu.Unlock()
	if err := b.flushLocked(); err != nil {
		return err
	}
	return DumpToDisk(b.db, path)
}

// dumpLoop periodically dumps the in-memory SQLite database to disk.
// VACUUM INTO creates a point-in-time snapshot, so no pause mechanism is needed.
func (b *SQLite) dumpLoop() {
	defer close(b.done)

	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			start := time.Now()
			if err := b.dump(); err != nil {
				b.log.Error("Error dumping to disk", "error", err)
			} else {
				b.log.Debug("Dumped to disk", "duration", time.Since(start))
			}
		}
	}
}
