// Package vehicle implements the fixed-step driving controller: gear selection,
// steering, drivetrain, brakes and the drift modulator, writing to four wheel
// actuators owned by an external physics engine.
//
// Each fixed step runs, in order:
//
//  1. pending gear shifts sampled since the previous step
//  2. steering
//  3. drivetrain
//  4. brakes
//  5. drift modulator (after brakes so its rear brake override wins)
//
// Wheel poses are copied to visual transforms separately, once per render frame.
package vehicle

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/driftworks/vehiclectl/internal/input"
	"github.com/driftworks/vehiclectl/internal/physics"
	"github.com/driftworks/vehiclectl/pkg/core"
)

// FrameRecorder receives a snapshot after every step. Implementations must not block.
type FrameRecorder interface {
	Record(f core.Frame)
}

// Option configures a Controller.
type Option func(*options)

type options struct {
	transforms *Transforms
	recorder   FrameRecorder
	logger     *slog.Logger
	meter      metric.Meter
}

// WithTransforms enables pose synchronisation onto the given visual nodes.
func WithTransforms(t Transforms) Option {
	return func(o *options) {
		o.transforms = &t
	}
}

// WithRecorder sends every step's frame to r.
func WithRecorder(r FrameRecorder) Option {
	return func(o *options) {
		o.recorder = r
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMeter overrides the global OTel meter.
func WithMeter(m metric.Meter) Option {
	return func(o *options) {
		o.meter = m
	}
}

// Controller owns the vehicle's control state. It is not safe for concurrent use:
// Sample, Step and SyncPoses must be called from the simulation loop only. Steps
// and Gear may be read from any goroutine.
type Controller struct {
	cfg    Config
	wheels Wheels
	body   physics.Body

	gear       *GearBox
	steering   *Steering
	drivetrain *Drivetrain
	brakes     *Brakes
	drift      *DriftModulator
	poses      *PoseSync

	inputs  core.DriveInputs
	pending []Shift
	simTime time.Duration

	steps    atomic.Uint64
	gearSnap atomic.Uint32

	recorder FrameRecorder
	logger   *slog.Logger
	ins      *instruments
}

// NewController validates the config and wiring, applies the centre-of-mass offset
// and returns a controller in neutral with the wheels straight. Every wiring or
// tuning problem is reported here as a *ConfigError rather than at the first step.
func NewController(cfg Config, wheels Wheels, body physics.Body, opts ...Option) (*Controller, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.meter == nil {
		o.meter = meter()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := wheels.validate(); err != nil {
		return nil, err
	}
	if isNil(body) {
		return nil, &ConfigError{Field: "body", Err: ErrMissingBody}
	}
	for _, id := range core.AllWheels {
		got := wheels.Get(id).SidewaysStiffness()
		if diff := got - cfg.BaselineStiffness; diff > stiffnessTolerance || diff < -stiffnessTolerance {
			return nil, &ConfigError{
				Field: "wheel." + id.String(),
				Err:   fmt.Errorf("%w: reports %g, configured %g", ErrBaselineMismatch, got, cfg.BaselineStiffness),
			}
		}
	}

	var poses *PoseSync
	if o.transforms != nil {
		var err error
		poses, err = NewPoseSync(wheels, *o.transforms)
		if err != nil {
			return nil, err
		}
	}

	ins, err := newInstruments(o.meter)
	if err != nil {
		return nil, err
	}

	c := &Controller{
		cfg:        cfg,
		wheels:     wheels,
		body:       body,
		gear:       NewGearBox(),
		steering:   NewSteering(cfg, wheels.FR, wheels.FL),
		drivetrain: NewDrivetrain(cfg, wheels.RR, wheels.RL),
		brakes:     NewBrakes(cfg, wheels),
		drift:      NewDriftModulator(cfg, wheels.RR, wheels.RL),
		poses:      poses,
		recorder:   o.recorder,
		logger:     o.logger,
		ins:        ins,
	}
	c.gearSnap.Store(uint32(c.gear.State()))

	body.SetCenterOfMass(cfg.CenterOfMass)

	c.logger.Info("Vehicle controller initialized",
		"acceleration", cfg.Acceleration,
		"brakePower", cfg.BrakePower,
		"maxSpeed", cfg.MaxSpeed,
		"gear", c.gear.State().String(),
	)
	return c, nil
}

// Config returns the tuning the controller was built with.
func (c *Controller) Config() Config {
	return c.cfg
}

// Sample stores the driver intent read in the current render frame. Shift edges are
// queued, not applied, so the gear changes at the start of the next fixed step no
// matter how many steps the frame runs. When both edges arrive in one frame the
// forward shift is applied first.
func (c *Controller) Sample(s input.Sample) {
	c.inputs = s.Inputs
	if s.ShiftForward {
		c.pending = append(c.pending, ShiftForward)
	}
	if s.ShiftBackward {
		c.pending = append(c.pending, ShiftBackward)
	}
}

// Step advances the control logic by one fixed step of length dt and returns the
// resulting frame.
func (c *Controller) Step(dt time.Duration) core.Frame {
	c.applyShifts()

	speed := c.body.Speed()
	gear := c.gear.State()

	c.steering.Update(c.inputs.Steer, dt.Seconds())
	c.drivetrain.Apply(c.inputs.Gas, gear, speed)
	c.brakes.Apply(c.inputs)

	wasDrifting := c.drift.Active()
	drifting := c.drift.Apply(c.inputs.Drift, speed)
	switch {
	case drifting && !wasDrifting:
		c.ins.recordDriftEngaged()
		c.logger.Debug("Drift engaged", "speed", speed)
	case !drifting && wasDrifting:
		c.logger.Debug("Drift released", "speed", speed, "requested", c.inputs.Drift)
	}

	c.simTime += dt
	step := c.steps.Add(1)

	frame := c.snapshot(step, speed, gear, drifting)
	c.ins.recordStep(frame.SpeedKmh)
	if c.recorder != nil {
		c.recorder.Record(frame)
	}
	return frame
}

// SyncPoses copies wheel poses to their transforms. It is a no-op when the
// controller was built without WithTransforms.
func (c *Controller) SyncPoses() {
	if c.poses != nil {
		c.poses.Sync()
	}
}

// Close releases the controller's metric callback. The controller must not be
// stepped afterwards.
func (c *Controller) Close() error {
	return c.ins.close()
}

// Gear returns the active gear. Safe from any goroutine.
func (c *Controller) Gear() core.GearState {
	return core.GearState(c.gearSnap.Load())
}

// Steps returns the number of completed fixed steps. Safe from any goroutine.
func (c *Controller) Steps() uint64 {
	return c.steps.Load()
}

// SteerAngle is the current filtered steer angle in degrees.
func (c *Controller) SteerAngle() float64 {
	return c.steering.Angle()
}

// Drifting reports whether the drift modulator engaged on the last step.
func (c *Controller) Drifting() bool {
	return c.drift.Active()
}

// Inputs returns the driver intent the next step will use.
func (c *Controller) Inputs() core.DriveInputs {
	return c.inputs
}

func (c *Controller) applyShifts() {
	if len(c.pending) == 0 {
		return
	}
	before := c.gear.State()
	for _, s := range c.pending {
		from := c.gear.State()
		to := c.gear.Apply(s)
		if to != from {
			c.ins.recordShift(to.String())
		}
	}
	c.pending = c.pending[:0]

	after := c.gear.State()
	c.gearSnap.Store(uint32(after))
	if after != before {
		c.logger.Info("Gear changed", "from", before.String(), "to", after.String())
	}
}

func (c *Controller) snapshot(step uint64, speed float64, gear core.GearState, drifting bool) core.Frame {
	f := core.Frame{
		Step:       step,
		SimTime:    c.simTime,
		Gear:       gear,
		Inputs:     c.inputs,
		Speed:      speed,
		SpeedKmh:   speed * KmhPerUnit,
		SteerAngle: c.steering.Angle(),
		Drifting:   drifting,
	}
	for i, id := range core.AllWheels {
		w := c.wheels.Get(id)
		f.Wheels[i] = core.WheelCommand{
			Wheel:       id,
			MotorTorque: w.MotorTorque(),
			BrakeTorque: w.BrakeTorque(),
			SteerAngle:  w.SteerAngle(),
			Stiffness:   w.SidewaysStiffness(),
			Pose:        w.WorldPose(),
		}
	}
	return f
}
