package vehicle

import (
	"github.com/driftworks/vehiclectl/internal/physics"
)

// DriftModulator lowers rear lateral grip and locks the rear brakes when a drift is
// requested above DriftSpeedThreshold. It must run after Brakes so its brake
// override stands. Front wheels are never touched.
type DriftModulator struct {
	baseline  float64
	drift     float64
	handbrake float64
	rear      [2]physics.WheelActuator
	active    bool
}

func NewDriftModulator(cfg Config, rr, rl physics.WheelActuator) *DriftModulator {
	return &DriftModulator{
		baseline:  cfg.BaselineStiffness,
		drift:     cfg.DriftStiffness,
		handbrake: cfg.HandbrakeTorque,
		rear:      [2]physics.WheelActuator{rr, rl},
	}
}

// Engaged is a binary gate on (requested, speed); there is no partial engagement.
func Engaged(requested bool, speed float64) bool {
	return requested && speed > DriftSpeedThreshold
}

// Active reports the outcome of the last Apply.
func (d *DriftModulator) Active() bool {
	return d.active
}

// Apply sets rear stiffness to either the drift or the baseline value. While
// drifting it also forces the handbrake torque; otherwise brake torque is left as
// the brake controller wrote it.
func (d *DriftModulator) Apply(requested bool, speed float64) bool {
	d.active = Engaged(requested, speed)
	if d.active {
		for _, w := range d.rear {
			w.SetSidewaysStiffness(d.drift)
			w.SetBrakeTorque(d.handbrake)
		}
		return true
	}
	for _, w := range d.rear {
		w.SetSidewaysStiffness(d.baseline)
	}
	return false
}
