// Package fake provides a deterministic in-memory physics backend for tests.
// Nothing moves unless the test says so.
package fake

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/driftworks/vehiclectl/internal/physics"
	"github.com/driftworks/vehiclectl/pkg/core"
)

var (
	_ physics.WheelActuator = (*Wheel)(nil)
	_ physics.Body          = (*Body)(nil)
)

// Wheel records the last value written for every actuator channel.
type Wheel struct {
	Motor     float64
	Brake     float64
	Steer     float64
	Stiffness float64
	Pose      core.Pose

	// Writes counts setter calls, used to check that a component wrote every step.
	Writes int
}

// NewWheel returns a wheel reporting the given lateral stiffness.
func NewWheel(stiffness float64) *Wheel {
	return &Wheel{Stiffness: stiffness, Pose: core.IdentityPose()}
}

func (w *Wheel) MotorTorque() float64 { return w.Motor }

func (w *Wheel) SetMotorTorque(torque float64) {
	w.Motor = torque
	w.Writes++
}

func (w *Wheel) BrakeTorque() float64 { return w.Brake }

func (w *Wheel) SetBrakeTorque(torque float64) {
	w.Brake = torque
	w.Writes++
}

func (w *Wheel) SteerAngle() float64 { return w.Steer }

func (w *Wheel) SetSteerAngle(deg float64) {
	w.Steer = deg
	w.Writes++
}

func (w *Wheel) SidewaysStiffness() float64 { return w.Stiffness }

func (w *Wheel) SetSidewaysStiffness(stiffness float64) {
	w.Stiffness = stiffness
	w.Writes++
}

func (w *Wheel) WorldPose() core.Pose { return w.Pose }

// Body reports a fixed speed set by the test.
type Body struct {
	Velocity     float64
	CenterOfMass mgl64.Vec3
	ComSet       int
}

func (b *Body) Speed() float64 { return b.Velocity }

func (b *Body) SetCenterOfMass(offset mgl64.Vec3) {
	b.CenterOfMass = offset
	b.ComSet++
}

// Rig is a complete set of four wheels and a body.
type Rig struct {
	FR, FL, RR, RL *Wheel
	Body           *Body
}

// NewRig builds a stationary rig with every wheel at the given baseline stiffness.
func NewRig(baseline float64) *Rig {
	return &Rig{
		FR:   NewWheel(baseline),
		FL:   NewWheel(baseline),
		RR:   NewWheel(baseline),
		RL:   NewWheel(baseline),
		Body: &Body{},
	}
}

// Wheel returns the fake wheel for id.
func (r *Rig) Wheel(id core.WheelID) *Wheel {
	switch id {
	case core.FrontRight:
		return r.FR
	case core.FrontLeft:
		return r.FL
	case core.RearRight:
		return r.RR
	default:
		return r.RL
	}
}

// SetSpeed sets the reported body speed in units per second.
func (r *Rig) SetSpeed(v float64) {
	r.Body.Velocity = v
}

// SetSpeedKmh sets the reported body speed from a km/h value.
func (r *Rig) SetSpeedKmh(kmh float64) {
	r.Body.Velocity = kmh / 3.6
}
