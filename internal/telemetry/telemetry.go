// Package telemetry records controller frames to a pluggable backend.
package telemetry

import (
	"time"

	"github.com/google/uuid"

	"github.com/driftworks/vehiclectl/pkg/core"
)

// Backend is the interface all frame sinks must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Session management
	StartSession(s *core.Session) error
	EndSession() error

	// State recording
	RecordFrame(f *core.Frame) error
}

// Exporter is an optional interface for backends that write a file when a
// session ends.
type Exporter interface {
	ExportedFilePath() string
}

// NewSession returns a session with a fresh id, started now.
func NewSession(name, vehicle string, fixedStep time.Duration) *core.Session {
	return &core.Session{
		ID:        uuid.NewString(),
		Name:      name,
		Vehicle:   vehicle,
		FixedStep: fixedStep,
		StartTime: time.Now().UTC(),
	}
}

// Discard is a Backend that drops everything. It backs telemetry.type "none".
type Discard struct{}

func (Discard) Init() error                      { return nil }
func (Discard) Close() error                     { return nil }
func (Discard) StartSession(*core.Session) error { return nil }
func (Discard) EndSession() error                { return nil }
func (Discard) RecordFrame(*core.Frame) error    { return nil }
