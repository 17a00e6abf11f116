package vehicle

import (
	"github.com/driftworks/vehiclectl/internal/physics"
	"github.com/driftworks/vehiclectl/pkg/core"
)

// Drivetrain converts throttle into rear-wheel motor torque with a hard speed
// governor: at or above MaxSpeed the torque is cut to zero with no taper.
type Drivetrain struct {
	acceleration float64
	maxSpeedKmh  float64
	rear         [2]physics.WheelActuator
}

func NewDrivetrain(cfg Config, rr, rl physics.WheelActuator) *Drivetrain {
	return &Drivetrain{
		acceleration: cfg.Acceleration,
		maxSpeedKmh:  cfg.MaxSpeed,
		rear:         [2]physics.WheelActuator{rr, rl},
	}
}

// Torque computes the rear motor torque for the given state. speed is in engine
// units per second.
func (d *Drivetrain) Torque(gas float64, gear core.GearState, speed float64) float64 {
	if gas <= 0 || speed*KmhPerUnit >= d.maxSpeedKmh {
		return 0
	}
	return clamp(gas, 0, 1) * d.acceleration * gear.Direction()
}

// Apply writes Torque to both rear wheels and returns it.
func (d *Drivetrain) Apply(gas float64, gear core.GearState, speed float64) float64 {
	torque := d.Torque(gas, gear, speed)
	for _, w := range d.rear {
		w.SetMotorTorque(torque)
	}
	return torque
}
