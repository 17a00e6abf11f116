package vehicle

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftworks/vehiclectl/internal/physics/fake"
	"github.com/driftworks/vehiclectl/pkg/core"
)

func wheelsOf(r *fake.Rig) Wheels {
	return Wheels{FR: r.FR, FL: r.FL, RR: r.RR, RL: r.RL}
}

func TestSteering_ConvergesToTarget(t *testing.T) {
	cfg := DefaultConfig()
	rig := fake.NewRig(1)
	s := NewSteering(cfg, rig.FR, rig.FL)

	for i := 0; i < 200; i++ {
		s.Update(1, 0.02)
	}

	assert.InDelta(t, cfg.MaxSteerAngle, s.Angle(), 1e-6)
	assert.Equal(t, s.Angle(), rig.FR.Steer)
	assert.Equal(t, s.Angle(), rig.FL.Steer)
}

func TestSteering_FirstStepIsLerp(t *testing.T) {
	cfg := DefaultConfig()
	rig := fake.NewRig(1)
	s := NewSteering(cfg, rig.FR, rig.FL)

	// 5/s * 0.02s = 0.1 of the way to 30 degrees
	assert.InDelta(t, 3.0, s.Update(1, 0.02), 1e-9)
	assert.InDelta(t, 5.7, s.Update(1, 0.02), 1e-9)
}

func TestSteering_NeverExceedsMax(t *testing.T) {
	cfg := DefaultConfig()
	rig := fake.NewRig(1)
	s := NewSteering(cfg, rig.FR, rig.FL)

	inputs := []float64{1, -1, 5, -7, 0.3, math.Inf(1), -0.2, 1}
	dts := []float64{0.02, 0.5, 1, 10, 0.001}
	for _, in := range inputs {
		for _, dt := range dts {
			angle := s.Update(in, dt)
			assert.LessOrEqual(t, math.Abs(angle), cfg.MaxSteerAngle)
		}
	}
}

func TestSteering_LargeDtSnaps(t *testing.T) {
	cfg := DefaultConfig()
	rig := fake.NewRig(1)
	s := NewSteering(cfg, rig.FR, rig.FL)

	assert.Equal(t, -cfg.MaxSteerAngle, s.Update(-1, 1))
}

func TestSteering_WritesEveryStep(t *testing.T) {
	rig := fake.NewRig(1)
	s := NewSteering(DefaultConfig(), rig.FR, rig.FL)

	s.Update(0, 0.02)
	s.Update(0, 0.02)

	assert.Equal(t, 2, rig.FR.Writes)
	assert.Equal(t, 2, rig.FL.Writes)
	assert.Zero(t, rig.RR.Writes)
}

func TestSteering_NaNInputReleases(t *testing.T) {
	cfg := DefaultConfig()
	rig := fake.NewRig(1)
	s := NewSteering(cfg, rig.FR, rig.FL)

	s.Update(1, 0.02)
	before := s.Angle()
	s.Update(math.NaN(), 0.02)

	assert.False(t, math.IsNaN(s.Angle()))
	assert.Less(t, math.Abs(s.Angle()), math.Abs(before), "NaN steers toward centre")
	assert.Equal(t, s.Angle(), rig.FR.Steer)

	s.Update(1, math.NaN())
	assert.False(t, math.IsNaN(s.Angle()))
	assert.LessOrEqual(t, math.Abs(s.Angle()), cfg.MaxSteerAngle)
}

func TestClamp_NaN(t *testing.T) {
	assert.Equal(t, 0.0, clamp(math.NaN(), -1, 1))
	assert.Equal(t, 1.0, clamp(math.Inf(1), -1, 1))
	assert.Equal(t, -1.0, clamp(math.Inf(-1), -1, 1))
}

func TestDrivetrain_Torque(t *testing.T) {
	cfg := DefaultConfig()
	d := NewDrivetrain(cfg, nil, nil)

	tests := []struct {
		name string
		gas  float64
		gear core.GearState
		kmh  float64
		want float64
	}{
		{"drive full throttle", 1, core.GearDrive, 20, 1500},
		{"drive half throttle", 0.5, core.GearDrive, 20, 750},
		{"reverse", 1, core.GearReverse, 20, -1500},
		{"neutral", 1, core.GearNeutral, 20, 0},
		{"no gas", 0, core.GearDrive, 20, 0},
		{"at governor", 1, core.GearDrive, 100, 0},
		{"above governor", 1, core.GearDrive, 150, 0},
		{"just under governor", 1, core.GearDrive, 99.9, 1500},
		{"reverse above governor", 1, core.GearReverse, 120, 0},
		{"over-range gas", 3, core.GearDrive, 0, 1500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, d.Torque(tt.gas, tt.gear, tt.kmh/KmhPerUnit), 1e-9)
		})
	}
}

func TestDrivetrain_WritesRearOnly(t *testing.T) {
	rig := fake.NewRig(1)
	d := NewDrivetrain(DefaultConfig(), rig.RR, rig.RL)

	d.Apply(1, core.GearDrive, 0)

	assert.Equal(t, 1500.0, rig.RR.Motor)
	assert.Equal(t, 1500.0, rig.RL.Motor)
	assert.Zero(t, rig.FR.Motor)
	assert.Zero(t, rig.FL.Motor)
}

func TestBrakes_PedalOnAllFour(t *testing.T) {
	rig := fake.NewRig(1)
	b := NewBrakes(DefaultConfig(), wheelsOf(rig))

	b.Apply(core.DriveInputs{Brake: 0.5})

	for _, id := range core.AllWheels {
		assert.Equal(t, 1500.0, rig.Wheel(id).Brake, id.String())
	}
}

func TestBrakes_CreepWhileCoasting(t *testing.T) {
	rig := fake.NewRig(1)
	b := NewBrakes(DefaultConfig(), wheelsOf(rig))

	b.Apply(core.DriveInputs{})

	assert.Equal(t, 300.0, rig.RR.Brake)
	assert.Equal(t, 300.0, rig.RL.Brake)
	assert.Zero(t, rig.FR.Brake)
	assert.Zero(t, rig.FL.Brake)
}

func TestBrakes_NoCreepUnderThrottle(t *testing.T) {
	rig := fake.NewRig(1)
	b := NewBrakes(DefaultConfig(), wheelsOf(rig))

	b.Apply(core.DriveInputs{Gas: 0.2})

	for _, id := range core.AllWheels {
		assert.Zero(t, rig.Wheel(id).Brake, id.String())
	}
}

func TestDriftModulator_Gate(t *testing.T) {
	assert.False(t, Engaged(true, DriftSpeedThreshold))
	assert.True(t, Engaged(true, DriftSpeedThreshold+0.001))
	assert.False(t, Engaged(false, 50))
}

func TestDriftModulator_EngagedOverridesRear(t *testing.T) {
	cfg := DefaultConfig()
	rig := fake.NewRig(1)
	rig.RR.Brake, rig.RL.Brake = 10, 10
	rig.FR.Brake = 10
	d := NewDriftModulator(cfg, rig.RR, rig.RL)

	require.True(t, d.Apply(true, 10))

	assert.Equal(t, cfg.DriftStiffness, rig.RR.Stiffness)
	assert.Equal(t, cfg.DriftStiffness, rig.RL.Stiffness)
	assert.Equal(t, cfg.HandbrakeTorque, rig.RR.Brake)
	assert.Equal(t, cfg.HandbrakeTorque, rig.RL.Brake)
	assert.Equal(t, 1.0, rig.FR.Stiffness)
	assert.Equal(t, 10.0, rig.FR.Brake)
}

func TestDriftModulator_ReleasedRestoresBaselineOnly(t *testing.T) {
	cfg := DefaultConfig()
	rig := fake.NewRig(1)
	d := NewDriftModulator(cfg, rig.RR, rig.RL)

	d.Apply(true, 10)
	rig.RR.Brake, rig.RL.Brake = 42, 42

	require.False(t, d.Apply(true, 3))
	assert.False(t, d.Active())
	assert.Equal(t, cfg.BaselineStiffness, rig.RR.Stiffness)
	assert.Equal(t, cfg.BaselineStiffness, rig.RL.Stiffness)
	// brake is left as the brake controller wrote it
	assert.Equal(t, 42.0, rig.RR.Brake)
	assert.Equal(t, 42.0, rig.RL.Brake)
}

func TestPoseSync_CopiesEveryWheel(t *testing.T) {
	rig := fake.NewRig(1)
	got := map[core.WheelID]core.Pose{}
	sink := func(id core.WheelID) Transform {
		return TransformFunc(func(p core.Pose) { got[id] = p })
	}
	for i, id := range core.AllWheels {
		rig.Wheel(id).Pose.Position[0] = float64(i + 1)
	}

	ps, err := NewPoseSync(wheelsOf(rig), Transforms{
		FR: sink(core.FrontRight),
		FL: sink(core.FrontLeft),
		RR: sink(core.RearRight),
		RL: sink(core.RearLeft),
	})
	require.NoError(t, err)
	ps.Sync()

	require.Len(t, got, core.WheelCount)
	for _, id := range core.AllWheels {
		assert.Equal(t, rig.Wheel(id).Pose, got[id], id.String())
	}
}

func TestPoseSync_MissingTransform(t *testing.T) {
	rig := fake.NewRig(1)
	noop := TransformFunc(func(core.Pose) {})

	_, err := NewPoseSync(wheelsOf(rig), Transforms{FR: noop, FL: noop, RR: noop})

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "transform.RL", cfgErr.Field)
	assert.ErrorIs(t, err, ErrMissingTransform)

	var nilFunc TransformFunc
	var nilNode *recordingTransform
	for name, node := range map[string]Transform{"nil func": nilFunc, "nil pointer": nilNode} {
		t.Run(name, func(t *testing.T) {
			_, err := NewPoseSync(wheelsOf(rig), Transforms{FR: noop, FL: noop, RR: noop, RL: node})

			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, "transform.RL", cfgErr.Field)
			assert.ErrorIs(t, err, ErrMissingTransform)
		})
	}
}

type recordingTransform struct{ poses []core.Pose }

func (r *recordingTransform) SetPose(p core.Pose) { r.poses = append(r.poses, p) }
