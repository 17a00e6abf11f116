// Package drive assembles a drivable vehicle: the reference physics body, the
// controller, an input sampler and the two-rate loop that ties them together.
package drive

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/driftworks/vehiclectl/internal/config"
	"github.com/driftworks/vehiclectl/internal/input"
	"github.com/driftworks/vehiclectl/internal/physics/sim"
	"github.com/driftworks/vehiclectl/internal/scheduler"
	"github.com/driftworks/vehiclectl/internal/vehicle"
	"github.com/driftworks/vehiclectl/pkg/core"
)

// Options configure a Rig. Device is required.
type Options struct {
	Vehicle vehicle.Config
	Chassis sim.Params
	Sim     config.SimConfig

	Device     input.Device
	Recorder   vehicle.FrameRecorder
	Transforms *vehicle.Transforms
	Logger     *slog.Logger

	// OnFrame runs before input is sampled, with the total frame time so far.
	// Scripted devices use it to advance their timeline.
	OnFrame func(clock time.Duration)
}

// Rig owns one simulated vehicle and its control loop. Like the controller it
// is driven from a single goroutine.
type Rig struct {
	vehicle    *sim.Vehicle
	controller *vehicle.Controller
	sampler    *input.Sampler
	loop       *scheduler.Loop

	onFrame func(time.Duration)
	clock   time.Duration
	last    core.Frame
}

// New wires the rig. The chassis reports the configured baseline stiffness so
// the controller's startup check passes by construction.
func New(opts Options) (*Rig, error) {
	if opts.Device == nil {
		return nil, errors.New("drive: input device is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	chassis := opts.Chassis
	chassis.Stiffness = opts.Vehicle.BaselineStiffness
	body := sim.New(chassis)

	vopts := []vehicle.Option{vehicle.WithLogger(opts.Logger)}
	if opts.Recorder != nil {
		vopts = append(vopts, vehicle.WithRecorder(opts.Recorder))
	}
	if opts.Transforms != nil {
		vopts = append(vopts, vehicle.WithTransforms(*opts.Transforms))
	}

	ctrl, err := vehicle.NewController(opts.Vehicle, WheelsOf(body), body, vopts...)
	if err != nil {
		return nil, err
	}

	r := &Rig{
		vehicle:    body,
		controller: ctrl,
		sampler:    input.NewSampler(opts.Device),
		onFrame:    opts.OnFrame,
	}

	r.loop, err = scheduler.New(opts.Sim.FixedStep, opts.Sim.MaxCatchUp, scheduler.Tasks{
		Frame:  r.frame,
		Step:   r.step,
		Render: ctrl.SyncPoses,
	})
	if err != nil {
		return nil, errors.Join(fmt.Errorf("drive: %w", err), ctrl.Close())
	}
	return r, nil
}

// Close releases the controller. The rig must not be advanced afterwards.
func (r *Rig) Close() error {
	return r.controller.Close()
}

// WheelsOf wires the sim wheels in their fixed positions.
func WheelsOf(v *sim.Vehicle) vehicle.Wheels {
	return vehicle.Wheels{
		FR: v.Wheel(core.FrontRight),
		FL: v.Wheel(core.FrontLeft),
		RR: v.Wheel(core.RearRight),
		RL: v.Wheel(core.RearLeft),
	}
}

func (r *Rig) frame(dt time.Duration) {
	r.clock += dt
	if r.onFrame != nil {
		r.onFrame(r.clock)
	}
	r.controller.Sample(r.sampler.Sample())
}

// The controller writes actuators; the body integrates them in the same step.
func (r *Rig) step(dt time.Duration) {
	r.last = r.controller.Step(dt)
	r.vehicle.Integrate(dt.Seconds())
}

// Advance runs one render frame of length dt and returns the fixed steps taken.
func (r *Rig) Advance(dt time.Duration) int {
	return r.loop.Advance(dt)
}

// Clock is the total frame time fed to Advance.
func (r *Rig) Clock() time.Duration { return r.clock }

// Last is the frame produced by the most recent step.
func (r *Rig) Last() core.Frame { return r.last }

func (r *Rig) Vehicle() *sim.Vehicle            { return r.vehicle }
func (r *Rig) Controller() *vehicle.Controller { return r.controller }
func (r *Rig) Loop() *scheduler.Loop           { return r.loop }
