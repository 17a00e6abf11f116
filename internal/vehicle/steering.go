package vehicle

import (
	"github.com/driftworks/vehiclectl/internal/physics"
)

// Steering low-pass filters the steer target toward the current front-wheel angle.
// It has no angular rate cap: a large SteerSpeed*dt snaps straight to the target.
type Steering struct {
	maxAngle float64
	rate     float64
	current  float64
	front    [2]physics.WheelActuator
}

// NewSteering drives the two front wheels.
func NewSteering(cfg Config, fr, fl physics.WheelActuator) *Steering {
	return &Steering{
		maxAngle: cfg.MaxSteerAngle,
		rate:     cfg.SteerSpeed,
		front:    [2]physics.WheelActuator{fr, fl},
	}
}

// Angle is the current filtered steer angle in degrees.
func (s *Steering) Angle() float64 {
	return s.current
}

// Update moves the angle toward steerInput*maxAngle over dt seconds and writes it
// to both front wheels, whether or not it changed.
func (s *Steering) Update(steerInput, dt float64) float64 {
	target := clamp(steerInput, -1, 1) * s.maxAngle
	s.current = lerp(s.current, target, clamp(s.rate*dt, 0, 1))
	for _, w := range s.front {
		w.SetSteerAngle(s.current)
	}
	return s.current
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
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
