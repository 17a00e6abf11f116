// Package memory keeps a session's frames in memory and exports them as JSON
// when the session ends.
package memory

import (
	"errors"
	"sync"

	"github.com/driftworks/vehiclectl/internal/config"
	"github.com/driftworks/vehiclectl/pkg/core"
)

// ErrNoSession is returned when frames arrive before StartSession.
var ErrNoSession = errors.New("no active session")

// Backend stores session data in memory and exports to JSON
type Backend struct {
	cfg    config.MemoryConfig
	origin config.OriginConfig

	session *core.Session
	frames  []core.Frame

	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend. origin geo-references the exported track.
func New(cfg config.MemoryConfig, origin config.OriginConfig) *Backend {
	return &Backend{
		cfg:    cfg,
		origin: origin,
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartSession begins recording a new session, discarding any previous frames.
func (b *Backend) StartSession(s *core.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.session = s
	b.frames = nil
	b.lastExportPath = ""
	return nil
}

// EndSession exports the session. With no OutputDir configured nothing is
// written and the frames stay available through Frames.
func (b *Backend) EndSession() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return ErrNoSession
	}
	if b.cfg.OutputDir == "" {
		return nil
	}
	return b.exportJSON()
}

// RecordFrame appends a frame to the active session.
func (b *Backend) RecordFrame(f *core.Frame) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return ErrNoSession
	}
	b.frames = append(b.frames, *f)
	return nil
}

// Frames returns a copy of the recorded frames.
func (b *Backend) Frames() []core.Frame {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]core.Frame, len(b.frames))
	copy(out, b.frames)
	return out
}

// Export builds the export document for the current session without writing it.
func (b *Backend) Export() (RunExport, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.session == nil {
		return RunExport{}, ErrNoSession
	}
	return b.buildExport(), nil
}

// ExportedFilePath returns the file written by the last EndSession.
func (b *Backend) ExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}
