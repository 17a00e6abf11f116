package drive

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftworks/vehiclectl/internal/config"
	"github.com/driftworks/vehiclectl/internal/input"
	"github.com/driftworks/vehiclectl/internal/physics/sim"
	"github.com/driftworks/vehiclectl/internal/vehicle"
	"github.com/driftworks/vehiclectl/pkg/core"
)

type frameSink struct{ frames []core.Frame }

func (s *frameSink) Record(f core.Frame) { s.frames = append(s.frames, f) }

func testOptions() Options {
	return Options{
		Vehicle: vehicle.DefaultConfig(),
		Chassis: sim.DefaultParams(),
		Sim:     config.SimConfig{FixedStep: 20 * time.Millisecond, FrameInterval: 20 * time.Millisecond, MaxCatchUp: 5},
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func script(t *testing.T, body string) *input.Script {
	t.Helper()
	s, err := input.DecodeScript(strings.NewReader(body))
	require.NoError(t, err)
	return s
}

func TestNew_RequiresDevice(t *testing.T) {
	_, err := New(testOptions())
	assert.Error(t, err)
}

func TestNew_RejectsBadStep(t *testing.T) {
	opts := testOptions()
	opts.Device = input.NewEdgeTracker(input.NewScriptDevice(&input.Script{}))
	opts.Sim.FixedStep = 0
	_, err := New(opts)
	assert.Error(t, err)
}

func TestRig_Close(t *testing.T) {
	opts := testOptions()
	opts.Device = input.NewEdgeTracker(input.NewScriptDevice(&input.Script{}))
	r, err := New(opts)
	require.NoError(t, err)

	r.Advance(40 * time.Millisecond)
	assert.NoError(t, r.Close())
	assert.NoError(t, r.Close())
}

func TestNew_InvalidVehicleConfig(t *testing.T) {
	opts := testOptions()
	opts.Device = input.NewEdgeTracker(input.NewScriptDevice(&input.Script{}))
	opts.Vehicle.MaxSpeed = -1
	_, err := New(opts)

	var cfgErr *vehicle.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestNew_BaselineFollowsConfig(t *testing.T) {
	opts := testOptions()
	opts.Device = input.NewEdgeTracker(input.NewScriptDevice(&input.Script{}))
	opts.Vehicle.BaselineStiffness = 1.4
	r, err := New(opts)
	require.NoError(t, err)

	for _, id := range core.AllWheels {
		assert.InDelta(t, 1.4, r.Vehicle().Wheel(id).SidewaysStiffness(), 1e-12)
	}
	assert.Equal(t, opts.Vehicle.CenterOfMass, r.Vehicle().CenterOfMass())
}

func TestNewScripted_RequiresScript(t *testing.T) {
	_, err := NewScripted(testOptions(), nil)
	assert.Error(t, err)
}

func TestPlay_LaunchForward(t *testing.T) {
	sink := &frameSink{}
	opts := testOptions()
	opts.Recorder = sink

	r, err := NewScripted(opts, script(t, `{
		"name": "launch",
		"duration": "2s",
		"events": [
			{"at": "0s", "press": ["shiftForward"], "hold": ["gas"]}
		]
	}`))
	require.NoError(t, err)

	steps, err := r.Play(context.Background(), 2*time.Second, 20*time.Millisecond)
	require.NoError(t, err)

	assert.Equal(t, 100, steps)
	assert.Equal(t, uint64(100), r.Controller().Steps())
	assert.Equal(t, 2*time.Second, r.Clock())
	require.Len(t, sink.frames, 100)

	assert.Equal(t, core.GearDrive, r.Controller().Gear())
	assert.Equal(t, core.GearDrive, sink.frames[0].Gear)
	assert.Greater(t, r.Vehicle().Speed(), 1.0)
	assert.Greater(t, r.Vehicle().Position().Z(), 0.0)
	assert.Equal(t, sink.frames[99], r.Last())
}

func TestPlay_SteeringTurnsBody(t *testing.T) {
	r, err := NewScripted(testOptions(), script(t, `{
		"name": "turn",
		"duration": "3s",
		"events": [
			{"at": "0s", "press": ["shiftForward"], "hold": ["gas"]},
			{"at": "1s", "steer": 1}
		]
	}`))
	require.NoError(t, err)

	_, err = r.Play(context.Background(), 3*time.Second, 16*time.Millisecond)
	require.NoError(t, err)

	assert.Greater(t, r.Controller().SteerAngle(), 0.0)
	assert.Greater(t, r.Vehicle().Yaw(), 0.0)
}

func TestPlay_SameInputsSameFrames(t *testing.T) {
	body := `{
		"name": "repeat",
		"duration": "1500ms",
		"events": [
			{"at": "0s", "press": ["shiftForward"], "hold": ["gas"], "steer": -0.4},
			{"at": "1s", "hold": ["drift"]}
		]
	}`
	run := func() []core.Frame {
		sink := &frameSink{}
		opts := testOptions()
		opts.Recorder = sink
		r, err := NewScripted(opts, script(t, body))
		require.NoError(t, err)
		_, err = r.Play(context.Background(), 1500*time.Millisecond, 17*time.Millisecond)
		require.NoError(t, err)
		return sink.frames
	}

	assert.Equal(t, run(), run())
}

func TestPlay_Cancelled(t *testing.T) {
	r, err := NewScripted(testOptions(), script(t, `{"name":"idle","duration":"1s"}`))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	steps, err := r.Play(ctx, time.Second, 20*time.Millisecond)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, steps)
}

func TestPlay_RejectsZeroFrame(t *testing.T) {
	r, err := NewScripted(testOptions(), script(t, `{"name":"idle","duration":"1s"}`))
	require.NoError(t, err)

	_, err = r.Play(context.Background(), time.Second, 0)
	assert.Error(t, err)
}

func TestTransformsFollowWheels(t *testing.T) {
	var got [core.WheelCount]core.Pose
	set := func(id core.WheelID) vehicle.Transform {
		return vehicle.TransformFunc(func(p core.Pose) { got[id] = p })
	}
	opts := testOptions()
	opts.Transforms = &vehicle.Transforms{
		FR: set(core.FrontRight), FL: set(core.FrontLeft),
		RR: set(core.RearRight), RL: set(core.RearLeft),
	}

	r, err := NewScripted(opts, script(t, `{
		"name": "roll",
		"duration": "500ms",
		"events": [{"at": "0s", "press": ["shiftForward"], "hold": ["gas"]}]
	}`))
	require.NoError(t, err)
	_, err = r.Play(context.Background(), 500*time.Millisecond, 20*time.Millisecond)
	require.NoError(t, err)

	for _, id := range core.AllWheels {
		assert.Equal(t, r.Vehicle().Wheel(id).WorldPose(), got[id], id.String())
	}
}
