package telemetry

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftworks/vehiclectl/pkg/core"
)

var _ Backend = Discard{}

type sliceBackend struct {
	mu     sync.Mutex
	frames []core.Frame
	fail   func(f *core.Frame) error
	gate   chan struct{}
}

func (b *sliceBackend) Init() error                      { return nil }
func (b *sliceBackend) Close() error                     { return nil }
func (b *sliceBackend) StartSession(*core.Session) error { return nil }
func (b *sliceBackend) EndSession() error                { return nil }

func (b *sliceBackend) RecordFrame(f *core.Frame) error {
	if b.gate != nil {
		<-b.gate
	}
	if b.fail != nil {
		if err := b.fail(f); err != nil {
			return err
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frames = append(b.frames, *f)
	return nil
}

func (b *sliceBackend) steps() []uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]uint64, len(b.frames))
	for i, f := range b.frames {
		out[i] = f.Step
	}
	return out
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewSession(t *testing.T) {
	s := NewSession("lap", "coupe", 20*time.Millisecond)
	_, err := uuid.Parse(s.ID)
	require.NoError(t, err)
	assert.Equal(t, "lap", s.Name)
	assert.Equal(t, "coupe", s.Vehicle)
	assert.Equal(t, 20*time.Millisecond, s.FixedStep)
	assert.False(t, s.StartTime.IsZero())

	assert.NotEqual(t, s.ID, NewSession("lap", "coupe", 0).ID)
}

func TestNewRecorder_RequiresBackend(t *testing.T) {
	_, err := NewRecorder(nil, 1, quiet())
	assert.Error(t, err)
}

func TestRecorder_WritesInOrder(t *testing.T) {
	b := &sliceBackend{}
	r, err := NewRecorder(b, 16, quiet())
	require.NoError(t, err)

	for i := uint64(1); i <= 10; i++ {
		r.Record(core.Frame{Step: i})
	}
	r.Close()

	assert.Equal(t, []uint64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, b.steps())
	assert.Equal(t, uint64(10), r.Processed())
	assert.Zero(t, r.Dropped())
}

func TestRecorder_DropsWhenFull(t *testing.T) {
	b := &sliceBackend{gate: make(chan struct{})}
	r, err := NewRecorder(b, 2, quiet())
	require.NoError(t, err)

	// The writer takes the first frame and blocks on the gate; two more fill
	// the buffer and everything after that is dropped.
	r.Record(core.Frame{Step: 1})
	require.Eventually(t, func() bool { return len(r.frames) == 0 }, time.Second, time.Millisecond)
	for i := uint64(2); i <= 6; i++ {
		r.Record(core.Frame{Step: i})
	}
	assert.Equal(t, uint64(3), r.Dropped())

	close(b.gate)
	r.Close()
	assert.Equal(t, []uint64{1, 2, 3}, b.steps())
}

func TestRecorder_CountsBackendFailures(t *testing.T) {
	b := &sliceBackend{fail: func(f *core.Frame) error {
		if f.Step%2 == 0 {
			return errors.New("disk full")
		}
		return nil
	}}
	r, err := NewRecorder(b, 8, quiet())
	require.NoError(t, err)

	for i := uint64(1); i <= 4; i++ {
		r.Record(core.Frame{Step: i})
	}
	r.Close()

	assert.Equal(t, []uint64{1, 3}, b.steps())
	assert.Equal(t, uint64(2), r.Failed())
	assert.Equal(t, uint64(2), r.Processed())
}

func TestRecorder_RecordAfterCloseIsDropped(t *testing.T) {
	r, err := NewRecorder(&sliceBackend{}, 0, quiet())
	require.NoError(t, err)
	assert.Equal(t, DefaultBufferSize, cap(r.frames))

	r.Close()
	r.Close()
	assert.NotPanics(t, func() { r.Record(core.Frame{Step: 1}) })
	assert.Equal(t, uint64(1), r.Dropped())
}
