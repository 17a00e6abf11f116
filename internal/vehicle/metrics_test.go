package vehicle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/driftworks/vehiclectl/internal/physics/fake"
	"github.com/driftworks/vehiclectl/pkg/core"
)

// callbackMeter counts callbacks that are registered and not yet unregistered.
type callbackMeter struct {
	noop.Meter
	live *int
}

func (m callbackMeter) RegisterCallback(metric.Callback, ...metric.Observable) (metric.Registration, error) {
	*m.live++
	return &countedRegistration{live: m.live}, nil
}

type countedRegistration struct {
	noop.Registration
	live *int
	done bool
}

func (r *countedRegistration) Unregister() error {
	if !r.done {
		r.done = true
		*r.live--
	}
	return nil
}

func TestController_CloseUnregistersCallback(t *testing.T) {
	live := 0
	c, _ := newTestController(t, WithMeter(callbackMeter{live: &live}))
	require.Equal(t, 1, live)

	c.Step(step)
	require.NoError(t, c.Close())
	assert.Zero(t, live)

	require.NoError(t, c.Close(), "second close is a no-op")
	assert.Zero(t, live)
}

func TestNewController_FailureRegistersNothing(t *testing.T) {
	live := 0
	rig := fake.NewRig(1)
	node := TransformFunc(func(core.Pose) {})

	_, err := NewController(DefaultConfig(), wheelsOf(rig), rig.Body,
		WithLogger(quietLogger()),
		WithMeter(callbackMeter{live: &live}),
		WithTransforms(Transforms{FR: node, FL: node, RR: node}),
	)
	require.ErrorIs(t, err, ErrMissingTransform)
	assert.Zero(t, live)
}
