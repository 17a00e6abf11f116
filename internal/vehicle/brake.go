package vehicle

import (
	"github.com/driftworks/vehiclectl/internal/physics"
	"github.com/driftworks/vehiclectl/pkg/core"
)

// Brakes applies pedal brake torque to all four wheels, plus a small rear creep
// brake while coasting.
type Brakes struct {
	power float64
	creep float64
	front [2]physics.WheelActuator
	rear  [2]physics.WheelActuator
}

func NewBrakes(cfg Config, w Wheels) *Brakes {
	return &Brakes{
		power: cfg.BrakePower,
		creep: cfg.CreepBrakeTorque(),
		front: [2]physics.WheelActuator{w.FR, w.FL},
		rear:  [2]physics.WheelActuator{w.RR, w.RL},
	}
}

// Apply writes brake torque for this step. The creep write comes after the general
// write so it replaces the zero already set on the rear wheels.
func (b *Brakes) Apply(in core.DriveInputs) {
	torque := clamp(in.Brake, 0, 1) * b.power
	for _, w := range b.front {
		w.SetBrakeTorque(torque)
	}
	for _, w := range b.rear {
		w.SetBrakeTorque(torque)
	}

	if in.Coasting() {
		for _, w := range b.rear {
			w.SetBrakeTorque(b.creep)
		}
	}
}
