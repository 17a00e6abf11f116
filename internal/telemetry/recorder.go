package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/driftworks/vehiclectl/pkg/core"
)

const instrumentationName = "github.com/driftworks/vehiclectl/internal/telemetry"

// DefaultBufferSize is used when NewRecorder gets a non-positive size.
const DefaultBufferSize = 1024

// Recorder hands frames from the control loop to a Backend on its own goroutine.
// Record never blocks: when the buffer is full the frame is dropped and counted.
type Recorder struct {
	backend Backend
	logger  *slog.Logger

	frames chan core.Frame
	done   chan struct{}

	mu     sync.RWMutex
	closed bool

	processed atomic.Uint64
	dropped   atomic.Uint64
	failed    atomic.Uint64

	processedCounter metric.Int64Counter
	droppedCounter   metric.Int64Counter
	failedCounter    metric.Int64Counter
}

// NewRecorder starts the writer goroutine. Close must be called to flush it.
func NewRecorder(backend Backend, size int, logger *slog.Logger) (*Recorder, error) {
	if backend == nil {
		return nil, fmt.Errorf("recorder requires a backend")
	}
	if size <= 0 {
		size = DefaultBufferSize
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := &Recorder{
		backend: backend,
		logger:  logger,
		frames:  make(chan core.Frame, size),
		done:    make(chan struct{}),
	}

	m := otel.Meter(instrumentationName)
	var err error
	r.processedCounter, err = m.Int64Counter("telemetry.frames.processed",
		metric.WithDescription("Frames written to the backend"))
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}
	r.droppedCounter, err = m.Int64Counter("telemetry.frames.dropped",
		metric.WithDescription("Frames dropped because the buffer was full"))
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}
	r.failedCounter, err = m.Int64Counter("telemetry.frames.failed",
		metric.WithDescription("Frames the backend rejected"))
	if err != nil {
		return nil, fmt.Errorf("creating failed counter: %w", err)
	}

	go r.run()
	return r, nil
}

// Record queues f for the backend.
func (r *Recorder) Record(f core.Frame) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.drop()
		return
	}
	select {
	case r.frames <- f:
	default:
		r.drop()
	}
}

func (r *Recorder) drop() {
	if r.dropped.Add(1) == 1 {
		r.logger.Warn("telemetry buffer full, dropping frames")
	}
	r.droppedCounter.Add(context.Background(), 1)
}

func (r *Recorder) run() {
	defer close(r.done)
	for f := range r.frames {
		if err := r.backend.RecordFrame(&f); err != nil {
			n := r.failed.Add(1)
			// first failure, then every 1000th
			if n%1000 == 1 {
				r.logger.Error("Failed to record frame", "error", err, "step", f.Step, "failures", n)
			}
			r.failedCounter.Add(context.Background(), 1)
			continue
		}
		r.processed.Add(1)
		r.processedCounter.Add(context.Background(), 1)
	}
}

// Close stops accepting frames and waits until the buffer is written out.
// It is safe to call more than once.
func (r *Recorder) Close() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.frames)
	}
	r.mu.Unlock()
	<-r.done
}

// Processed returns the number of frames the backend accepted.
func (r *Recorder) Processed() uint64 { return r.processed.Load() }

// Dropped returns the number of frames lost to a full buffer or a closed recorder.
func (r *Recorder) Dropped() uint64 { return r.dropped.Load() }

// Failed returns the number of frames the backend returned an error for.
func (r *Recorder) Failed() uint64 { return r.failed.Load() }
