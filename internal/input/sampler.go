package input

import (
	"github.com/driftworks/vehiclectl/pkg/core"
)

// Sample is everything the controller needs from one render frame.
type Sample struct {
	Inputs        core.DriveInputs
	ShiftForward  bool
	ShiftBackward bool
}

// Sampler reads a Device once per frame.
type Sampler struct {
	dev Device
}

func NewSampler(dev Device) *Sampler {
	return &Sampler{dev: dev}
}

// Sample polls the device (if it latches) and returns normalized, bounded inputs.
// Shift fields are edges: true only in the frame the key went down.
func (s *Sampler) Sample() Sample {
	if p, ok := s.dev.(Poller); ok {
		p.Poll()
	}
	return Sample{
		Inputs: core.DriveInputs{
			Gas:   s.pedal(ActionGas),
			Brake: s.pedal(ActionBrake),
			Steer: clamp(s.dev.Axis(AxisSteer), -1, 1),
			Drift: s.dev.Held(ActionDrift),
		},
		ShiftForward:  s.dev.JustPressed(ActionShiftForward),
		ShiftBackward: s.dev.JustPressed(ActionShiftBackward),
	}
}

func (s *Sampler) pedal(a Action) float64 {
	if pd, ok := s.dev.(PedalDevice); ok {
		if v, ok := pd.Pedal(a); ok {
			return clamp(v, 0, 1)
		}
	}
	if s.dev.Held(a) {
		return 1
	}
	return 0
}

func clamp(v, lo, hi float64) float64 {
	// NaN compares false both ways; treat it as released.
	if v != v {
		return 0
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
