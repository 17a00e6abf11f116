// Package physics defines the contract between the vehicle controller and the
// rigid-body engine that owns the wheels.
//
// The controller never integrates anything itself. It writes actuator values once
// per fixed step and reads back poses and speed; the engine is expected to apply
// those values on its next solve.
package physics

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/driftworks/vehiclectl/pkg/core"
)

// WheelActuator is one wheel as seen by the controller.
type WheelActuator interface {
	// MotorTorque is signed; positive drives forward.
	MotorTorque() float64
	SetMotorTorque(torque float64)

	// BrakeTorque is non-negative.
	BrakeTorque() float64
	SetBrakeTorque(torque float64)

	// SteerAngle is in degrees.
	SteerAngle() float64
	SetSteerAngle(deg float64)

	// SidewaysStiffness is the dimensionless lateral friction multiplier.
	SidewaysStiffness() float64
	SetSidewaysStiffness(stiffness float64)

	// WorldPose reflects the most recent physics solve.
	WorldPose() core.Pose
}

// Body is the vehicle rigid body carrying the four wheels.
type Body interface {
	// Speed is the magnitude of the linear velocity in engine units per second.
	Speed() float64

	// SetCenterOfMass offsets the centre of mass in body space. Called once at startup.
	SetCenterOfMass(offset mgl64.Vec3)
}
