package vehicle

import (
	"bytes"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftworks/vehiclectl/internal/input"
	"github.com/driftworks/vehiclectl/internal/physics/fake"
	"github.com/driftworks/vehiclectl/pkg/core"
)

const step = 20 * time.Millisecond

type frameSink struct {
	frames []core.Frame
}

func (s *frameSink) Record(f core.Frame) { s.frames = append(s.frames, f) }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestController(t *testing.T, opts ...Option) (*Controller, *fake.Rig) {
	t.Helper()
	rig := fake.NewRig(1)
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	c, err := NewController(DefaultConfig(), wheelsOf(rig), rig.Body, opts...)
	require.NoError(t, err)
	return c, rig
}

func shiftTo(t *testing.T, c *Controller, g core.GearState) {
	t.Helper()
	for c.Gear() != g {
		if g > c.Gear() {
			c.Sample(input.Sample{ShiftForward: true})
		} else {
			c.Sample(input.Sample{ShiftBackward: true})
		}
		c.Step(step)
	}
	c.Sample(input.Sample{})
}

func TestNewController_Initial(t *testing.T) {
	var buf bytes.Buffer
	rig := fake.NewRig(1)
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	c, err := NewController(DefaultConfig(), wheelsOf(rig), rig.Body, WithLogger(logger))
	require.NoError(t, err)

	assert.Equal(t, core.GearNeutral, c.Gear())
	assert.Zero(t, c.SteerAngle())
	assert.False(t, c.Drifting())
	assert.Zero(t, c.Steps())
	assert.Equal(t, mgl64.Vec3{0, -0.5, 0}, rig.Body.CenterOfMass)
	assert.Equal(t, 1, rig.Body.ComSet)
	assert.Contains(t, buf.String(), "Vehicle controller initialized")
	assert.Equal(t, DefaultConfig(), c.Config())
}

func TestNewController_MissingWheel(t *testing.T) {
	rig := fake.NewRig(1)

	tests := []struct {
		name   string
		wheels Wheels
		field  string
	}{
		{"nil interface", Wheels{FR: rig.FR, FL: rig.FL, RL: rig.RL}, "wheel.RR"},
		{"typed nil", Wheels{FR: (*fake.Wheel)(nil), FL: rig.FL, RR: rig.RR, RL: rig.RL}, "wheel.FR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewController(DefaultConfig(), tt.wheels, rig.Body, WithLogger(quietLogger()))

			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
			assert.ErrorIs(t, err, ErrMissingWheel)
		})
	}
}

func TestNewController_MissingBody(t *testing.T) {
	rig := fake.NewRig(1)

	_, err := NewController(DefaultConfig(), wheelsOf(rig), nil)
	assert.ErrorIs(t, err, ErrMissingBody)

	_, err = NewController(DefaultConfig(), wheelsOf(rig), (*fake.Body)(nil))
	assert.ErrorIs(t, err, ErrMissingBody)
}

func TestNewController_InvalidConfig(t *testing.T) {
	rig := fake.NewRig(1)
	cfg := DefaultConfig()
	cfg.MaxSpeed = -5

	_, err := NewController(cfg, wheelsOf(rig), rig.Body)

	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Zero(t, rig.Body.ComSet)
}

func TestNewController_BaselineMismatch(t *testing.T) {
	rig := fake.NewRig(1)
	rig.RL.Stiffness = 0.9

	_, err := NewController(DefaultConfig(), wheelsOf(rig), rig.Body)

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "wheel.RL", cfgErr.Field)
	assert.ErrorIs(t, err, ErrBaselineMismatch)
	assert.Contains(t, err.Error(), "reports 0.9, configured 1")
}

func TestNewController_BaselineWithinTolerance(t *testing.T) {
	rig := fake.NewRig(1)
	rig.FR.Stiffness = 1 + 1e-9

	_, err := NewController(DefaultConfig(), wheelsOf(rig), rig.Body, WithLogger(quietLogger()))
	assert.NoError(t, err)
}

func TestNewController_MissingTransform(t *testing.T) {
	rig := fake.NewRig(1)
	noop := TransformFunc(func(core.Pose) {})

	_, err := NewController(DefaultConfig(), wheelsOf(rig), rig.Body,
		WithLogger(quietLogger()),
		WithTransforms(Transforms{FR: noop, RR: noop, RL: noop}),
	)
	assert.ErrorIs(t, err, ErrMissingTransform)
}

func TestStep_DriveFullThrottle(t *testing.T) {
	c, rig := newTestController(t)
	shiftTo(t, c, core.GearDrive)
	rig.SetSpeedKmh(20)

	c.Sample(input.Sample{Inputs: core.DriveInputs{Gas: 1}})
	f := c.Step(step)

	assert.Equal(t, 1500.0, rig.RR.Motor)
	assert.Equal(t, 1500.0, rig.RL.Motor)
	assert.Zero(t, rig.FR.Motor)
	assert.Zero(t, rig.FL.Motor)
	for _, id := range core.AllWheels {
		assert.Zero(t, rig.Wheel(id).Brake, id.String())
	}
	assert.Equal(t, core.GearDrive, f.Gear)
	assert.InDelta(t, 20, f.SpeedKmh, 1e-9)
	assert.Equal(t, 1500.0, f.Wheel(core.RearLeft).MotorTorque)
}

func TestStep_ReverseFullThrottle(t *testing.T) {
	c, rig := newTestController(t)
	shiftTo(t, c, core.GearReverse)
	rig.SetSpeedKmh(20)

	c.Sample(input.Sample{Inputs: core.DriveInputs{Gas: 1}})
	c.Step(step)

	assert.Equal(t, -1500.0, rig.RR.Motor)
	assert.Equal(t, -1500.0, rig.RL.Motor)
}

func TestStep_NeutralNoTorque(t *testing.T) {
	c, rig := newTestController(t)

	c.Sample(input.Sample{Inputs: core.DriveInputs{Gas: 1}})
	c.Step(step)

	assert.Zero(t, rig.RR.Motor)
	assert.Zero(t, rig.RL.Motor)
}

func TestStep_GovernorCutsTorque(t *testing.T) {
	c, rig := newTestController(t)
	shiftTo(t, c, core.GearDrive)
	rig.SetSpeedKmh(100)

	c.Sample(input.Sample{Inputs: core.DriveInputs{Gas: 1}})
	c.Step(step)

	assert.Zero(t, rig.RR.Motor)
	assert.Zero(t, rig.RL.Motor)
}

func TestStep_HalfBrake(t *testing.T) {
	c, rig := newTestController(t)

	c.Sample(input.Sample{Inputs: core.DriveInputs{Brake: 0.5}})
	c.Step(step)

	for _, id := range core.AllWheels {
		assert.Equal(t, 1500.0, rig.Wheel(id).Brake, id.String())
	}
}

func TestStep_CreepBrakeWhenIdle(t *testing.T) {
	c, rig := newTestController(t)

	c.Sample(input.Sample{})
	c.Step(step)

	assert.Zero(t, rig.FR.Brake)
	assert.Zero(t, rig.FL.Brake)
	assert.Equal(t, 300.0, rig.RR.Brake)
	assert.Equal(t, 300.0, rig.RL.Brake)
}

func TestStep_DriftAboveThreshold(t *testing.T) {
	c, rig := newTestController(t)
	rig.SetSpeed(10)

	c.Sample(input.Sample{Inputs: core.DriveInputs{Drift: true}})
	f := c.Step(step)

	assert.True(t, f.Drifting)
	assert.True(t, c.Drifting())
	assert.Equal(t, 0.5, rig.RR.Stiffness)
	assert.Equal(t, 0.5, rig.RL.Stiffness)
	assert.Equal(t, 4000.0, rig.RR.Brake)
	assert.Equal(t, 4000.0, rig.RL.Brake)
	assert.Equal(t, 1.0, rig.FR.Stiffness)
	assert.Equal(t, 1.0, rig.FL.Stiffness)
	assert.Zero(t, rig.FR.Brake)
}

func TestStep_DriftBelowThresholdIgnored(t *testing.T) {
	c, rig := newTestController(t)
	rig.SetSpeed(3)

	c.Sample(input.Sample{Inputs: core.DriveInputs{Drift: true}})
	f := c.Step(step)

	assert.False(t, f.Drifting)
	assert.Equal(t, 1.0, rig.RR.Stiffness)
	assert.Equal(t, 300.0, rig.RR.Brake)
}

func TestStep_DriftReleaseRestoresBaseline(t *testing.T) {
	c, rig := newTestController(t)
	rig.SetSpeed(10)

	c.Sample(input.Sample{Inputs: core.DriveInputs{Drift: true}})
	c.Step(step)
	c.Sample(input.Sample{Inputs: core.DriveInputs{Brake: 0.5}})
	c.Step(step)

	assert.Equal(t, 1.0, rig.RR.Stiffness)
	assert.Equal(t, 1.0, rig.RL.Stiffness)
	assert.Equal(t, 1500.0, rig.RR.Brake)
}

func TestStep_RearStiffnessAlwaysOneOfTwo(t *testing.T) {
	c, rig := newTestController(t)
	speeds := []float64{0, 4, 5, 5.01, 30, 2}

	for i := 0; i < 60; i++ {
		rig.SetSpeed(speeds[i%len(speeds)])
		c.Sample(input.Sample{Inputs: core.DriveInputs{Drift: i%3 != 0, Steer: 1}})
		c.Step(step)

		for _, w := range []*fake.Wheel{rig.RR, rig.RL} {
			assert.Contains(t, []float64{0.5, 1.0}, w.Stiffness)
		}
		assert.LessOrEqual(t, c.SteerAngle(), c.Config().MaxSteerAngle)
	}
}

func TestSample_ShiftAppliedAtNextStep(t *testing.T) {
	c, _ := newTestController(t)

	c.Sample(input.Sample{ShiftForward: true})
	assert.Equal(t, core.GearNeutral, c.Gear(), "shift must wait for the step")

	c.Step(step)
	assert.Equal(t, core.GearDrive, c.Gear())
}

func TestSample_BothEdgesForwardFirst(t *testing.T) {
	c, _ := newTestController(t)

	c.Sample(input.Sample{ShiftForward: true, ShiftBackward: true})
	c.Step(step)

	// neutral -> drive -> neutral
	assert.Equal(t, core.GearNeutral, c.Gear())
}

func TestSample_EdgesKeptAcrossZeroStepFrames(t *testing.T) {
	c, _ := newTestController(t)
	shiftTo(t, c, core.GearReverse)

	c.Sample(input.Sample{ShiftForward: true})
	c.Sample(input.Sample{ShiftForward: true})
	c.Step(step)

	assert.Equal(t, core.GearDrive, c.Gear())
}

func TestSample_EdgeNotRepeatedAcrossSteps(t *testing.T) {
	c, _ := newTestController(t)
	shiftTo(t, c, core.GearReverse)

	c.Sample(input.Sample{ShiftForward: true})
	c.Step(step)
	c.Step(step)
	c.Step(step)

	assert.Equal(t, core.GearNeutral, c.Gear())
}

func TestStep_FramesRecorded(t *testing.T) {
	sink := &frameSink{}
	c, rig := newTestController(t, WithRecorder(sink))
	rig.SetSpeed(2)

	c.Sample(input.Sample{Inputs: core.DriveInputs{Steer: 1}})
	for i := 0; i < 3; i++ {
		c.Step(step)
	}

	require.Len(t, sink.frames, 3)
	assert.Equal(t, uint64(3), c.Steps())
	last := sink.frames[2]
	assert.Equal(t, uint64(3), last.Step)
	assert.Equal(t, 3*step, last.SimTime)
	assert.Equal(t, 2.0, last.Speed)
	assert.Equal(t, c.SteerAngle(), last.SteerAngle)
	assert.Equal(t, last.SteerAngle, last.Wheel(core.FrontRight).SteerAngle)
	assert.Equal(t, 1.0, last.Inputs.Steer)
}

func TestSyncPoses(t *testing.T) {
	got := map[core.WheelID]core.Pose{}
	sink := func(id core.WheelID) Transform {
		return TransformFunc(func(p core.Pose) { got[id] = p })
	}
	c, rig := newTestController(t, WithTransforms(Transforms{
		FR: sink(core.FrontRight),
		FL: sink(core.FrontLeft),
		RR: sink(core.RearRight),
		RL: sink(core.RearLeft),
	}))
	rig.RR.Pose.Position = mgl64.Vec3{1, 2, 3}

	c.SyncPoses()

	require.Len(t, got, 4)
	assert.Equal(t, mgl64.Vec3{1, 2, 3}, got[core.RearRight].Position)
}

func TestSyncPoses_NoTransforms(t *testing.T) {
	c, _ := newTestController(t)
	assert.NotPanics(t, c.SyncPoses)
}

func TestStep_NaNSteerKeepsAngleBounded(t *testing.T) {
	c, rig := newTestController(t)

	c.Sample(input.Sample{Inputs: core.DriveInputs{Steer: 1}})
	c.Step(step)
	c.Sample(input.Sample{Inputs: core.DriveInputs{Steer: math.NaN()}})
	for i := 0; i < 100; i++ {
		c.Step(step)
		require.False(t, math.IsNaN(c.SteerAngle()))
		require.LessOrEqual(t, math.Abs(c.SteerAngle()), c.Config().MaxSteerAngle)
	}
	assert.InDelta(t, 0, rig.FR.Steer, 1e-3, "NaN steer input centres the wheels")
}
