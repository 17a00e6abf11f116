// Package sim is a small deterministic planar vehicle integrator. It is enough to
// drive the controller headless or in the demo window; it is not a tyre model.
//
// The body moves on the XZ plane with +Z forward and +Y up. Rear motor torque pushes
// along the heading, brake torque opposes longitudinal motion, the front steer angle
// turns the body with a bicycle approximation and lateral velocity bleeds off at a
// rate proportional to rear sideways stiffness.
package sim

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/driftworks/vehiclectl/internal/physics"
	"github.com/driftworks/vehiclectl/pkg/core"
)

var (
	_ physics.WheelActuator = (*Wheel)(nil)
	_ physics.Body          = (*Vehicle)(nil)
)

// Params describes the simulated chassis.
type Params struct {
	Mass          float64 `json:"mass" mapstructure:"mass"`
	WheelRadius   float64 `json:"wheelRadius" mapstructure:"wheelRadius"`
	Wheelbase     float64 `json:"wheelbase" mapstructure:"wheelbase"`
	TrackWidth    float64 `json:"trackWidth" mapstructure:"trackWidth"`
	LateralGrip   float64 `json:"lateralGrip" mapstructure:"lateralGrip"`
	RollingResist float64 `json:"rollingResist" mapstructure:"rollingResist"`
	Stiffness     float64 `json:"stiffness" mapstructure:"stiffness"`
}

// DefaultParams is a mid-size car.
func DefaultParams() Params {
	return Params{
		Mass:          1500,
		WheelRadius:   0.35,
		Wheelbase:     2.6,
		TrackWidth:    1.6,
		LateralGrip:   8,
		RollingResist: 0.4,
		Stiffness:     1,
	}
}

// Wheel holds the actuator values written by the controller and the pose computed on
// the last Integrate.
type Wheel struct {
	id     core.WheelID
	offset mgl64.Vec3

	motor, brake, steer, stiffness float64
	spin                           float64
	pose                           core.Pose
}

func (w *Wheel) MotorTorque() float64                   { return w.motor }
func (w *Wheel) SetMotorTorque(torque float64)          { w.motor = torque }
func (w *Wheel) BrakeTorque() float64                   { return w.brake }
func (w *Wheel) SetBrakeTorque(torque float64)          { w.brake = torque }
func (w *Wheel) SteerAngle() float64                    { return w.steer }
func (w *Wheel) SetSteerAngle(deg float64)              { w.steer = deg }
func (w *Wheel) SidewaysStiffness() float64             { return w.stiffness }
func (w *Wheel) SetSidewaysStiffness(stiffness float64) { w.stiffness = stiffness }
func (w *Wheel) WorldPose() core.Pose                   { return w.pose }

// ID returns the wheel position.
func (w *Wheel) ID() core.WheelID { return w.id }

// Vehicle is the simulated body and its four wheels.
type Vehicle struct {
	p Params

	position mgl64.Vec3
	velocity mgl64.Vec3
	yaw      float64
	com      mgl64.Vec3

	wheels [core.WheelCount]*Wheel
}

// New places a stationary vehicle at the origin facing +Z.
func New(p Params) *Vehicle {
	halfTrack := p.TrackWidth / 2
	halfBase := p.Wheelbase / 2
	offsets := map[core.WheelID]mgl64.Vec3{
		core.FrontRight: {halfTrack, 0, halfBase},
		core.FrontLeft:  {-halfTrack, 0, halfBase},
		core.RearRight:  {halfTrack, 0, -halfBase},
		core.RearLeft:   {-halfTrack, 0, -halfBase},
	}

	v := &Vehicle{p: p}
	for _, id := range core.AllWheels {
		v.wheels[id] = &Wheel{id: id, offset: offsets[id], stiffness: p.Stiffness}
	}
	v.updatePoses()
	return v
}

// Wheel returns the wheel at id.
func (v *Vehicle) Wheel(id core.WheelID) *Wheel { return v.wheels[id] }

func (v *Vehicle) Speed() float64 { return v.velocity.Len() }

func (v *Vehicle) SetCenterOfMass(offset mgl64.Vec3) { v.com = offset }

// CenterOfMass returns the offset last set by the controller.
func (v *Vehicle) CenterOfMass() mgl64.Vec3 { return v.com }

// Position is the body origin in world space.
func (v *Vehicle) Position() mgl64.Vec3 { return v.position }

// Velocity is the body linear velocity in world space.
func (v *Vehicle) Velocity() mgl64.Vec3 { return v.velocity }

// SetVelocity overrides the body velocity, for tests and scenario setup.
func (v *Vehicle) SetVelocity(vel mgl64.Vec3) { v.velocity = vel }

// Yaw is the heading in radians, 0 facing +Z, positive turning toward +X.
func (v *Vehicle) Yaw() float64 { return v.yaw }

// Rotation is the body orientation.
func (v *Vehicle) Rotation() mgl64.Quat { return mgl64.QuatRotate(v.yaw, mgl64.Vec3{0, 1, 0}) }

func (v *Vehicle) forward() mgl64.Vec3 { return mgl64.Vec3{math.Sin(v.yaw), 0, math.Cos(v.yaw)} }
func (v *Vehicle) right() mgl64.Vec3   { return mgl64.Vec3{math.Cos(v.yaw), 0, -math.Sin(v.yaw)} }

// Integrate advances the body by dt seconds using the current actuator values.
func (v *Vehicle) Integrate(dt float64) {
	if dt <= 0 {
		return
	}
	fwd, right := v.forward(), v.right()
	vLong := v.velocity.Dot(fwd)
	vLat := v.velocity.Dot(right)

	rr, rl := v.wheels[core.RearRight], v.wheels[core.RearLeft]
	drive := (rr.motor + rl.motor) / v.p.WheelRadius
	vLong += drive / v.p.Mass * dt

	var brake float64
	for _, w := range v.wheels {
		brake += w.brake
	}
	resist := brake/v.p.WheelRadius/v.p.Mass + v.p.RollingResist
	vLong = towardZero(vLong, resist*dt)

	rearStiffness := (rr.stiffness + rl.stiffness) / 2
	vLat *= 1 - clamp01(v.p.LateralGrip*rearStiffness*dt)

	steer := (v.wheels[core.FrontRight].steer + v.wheels[core.FrontLeft].steer) / 2
	yawRate := vLong * math.Tan(mgl64.DegToRad(steer)) / v.p.Wheelbase
	v.yaw += yawRate * dt

	// re-express in the new heading so grip turns the velocity with the body
	v.velocity = v.forward().Mul(vLong).Add(v.right().Mul(vLat))
	v.position = v.position.Add(v.velocity.Mul(dt))

	for _, w := range v.wheels {
		w.spin += vLong / v.p.WheelRadius * dt
	}
	v.updatePoses()
}

func (v *Vehicle) updatePoses() {
	body := v.Rotation()
	for _, w := range v.wheels {
		rot := body
		if w.id.Front() {
			rot = rot.Mul(mgl64.QuatRotate(mgl64.DegToRad(w.steer), mgl64.Vec3{0, 1, 0}))
		}
		rot = rot.Mul(mgl64.QuatRotate(w.spin, mgl64.Vec3{1, 0, 0}))
		w.pose = core.Pose{
			Position: v.position.Add(body.Rotate(w.offset)),
			Rotation: rot.Normalize(),
		}
	}
}

func towardZero(x, by float64) float64 {
	switch {
	case x > by:
		return x - by
	case x < -by:
		return x + by
	default:
		return 0
	}
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
