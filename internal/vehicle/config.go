package vehicle

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	// DriftSpeedThreshold is the body speed, in engine units per second, above which a
	// drift request engages. At or below it the request is ignored entirely.
	DriftSpeedThreshold = 5.0

	// CreepBrakeFraction of BrakePower is applied to the rear wheels while coasting.
	CreepBrakeFraction = 0.1

	// KmhPerUnit converts engine speed (m/s) to km/h for the speed governor.
	KmhPerUnit = 3.6

	// stiffnessTolerance bounds the disagreement allowed between the configured
	// baseline stiffness and what each actuator reports at startup.
	stiffnessTolerance = 1e-6
)

// Config holds the tuning of one vehicle. It is read once at startup and never
// mutated by the controller.
type Config struct {
	Acceleration      float64    `json:"acceleration" mapstructure:"acceleration"`           // motor torque at full throttle
	BrakePower        float64    `json:"brakePower" mapstructure:"brakePower"`               // brake torque at full pedal
	MaxSteerAngle     float64    `json:"maxSteerAngle" mapstructure:"maxSteerAngle"`         // degrees
	SteerSpeed        float64    `json:"steerSpeed" mapstructure:"steerSpeed"`               // smoothing rate, 1/s
	MaxSpeed          float64    `json:"maxSpeed" mapstructure:"maxSpeed"`                   // km/h
	HandbrakeTorque   float64    `json:"handbrakeTorque" mapstructure:"handbrakeTorque"`     // rear brake while drifting
	DriftStiffness    float64    `json:"driftStiffness" mapstructure:"driftStiffness"`       // rear lateral stiffness while drifting
	BaselineStiffness float64    `json:"baselineStiffness" mapstructure:"baselineStiffness"` // lateral stiffness otherwise
	CenterOfMass      mgl64.Vec3 `json:"centerOfMass" mapstructure:"centerOfMass"`
}

// DefaultConfig returns the stock tuning.
func DefaultConfig() Config {
	return Config{
		Acceleration:      1500,
		BrakePower:        3000,
		MaxSteerAngle:     30,
		SteerSpeed:        5,
		MaxSpeed:          100,
		HandbrakeTorque:   4000,
		DriftStiffness:    0.5,
		BaselineStiffness: 1,
		CenterOfMass:      mgl64.Vec3{0, -0.5, 0},
	}
}

// CreepBrakeTorque is the rear brake torque applied while coasting.
func (c Config) CreepBrakeTorque() float64 {
	return c.BrakePower * CreepBrakeFraction
}

// Validate reports the first field that would make the controller misbehave.
func (c Config) Validate() error {
	nonNegative := []struct {
		name  string
		value float64
	}{
		{"acceleration", c.Acceleration},
		{"brakePower", c.BrakePower},
		{"handbrakeTorque", c.HandbrakeTorque},
	}
	for _, f := range nonNegative {
		if err := finite(f.name, f.value); err != nil {
			return err
		}
		if f.value < 0 {
			return invalid(f.name, fmt.Errorf("must not be negative, got %g", f.value))
		}
	}

	positive := []struct {
		name  string
		value float64
	}{
		{"maxSteerAngle", c.MaxSteerAngle},
		{"steerSpeed", c.SteerSpeed},
		{"maxSpeed", c.MaxSpeed},
		{"baselineStiffness", c.BaselineStiffness},
	}
	for _, f := range positive {
		if err := finite(f.name, f.value); err != nil {
			return err
		}
		if f.value <= 0 {
			return invalid(f.name, fmt.Errorf("must be positive, got %g", f.value))
		}
	}

	if err := finite("driftStiffness", c.DriftStiffness); err != nil {
		return err
	}
	if c.DriftStiffness <= 0 || c.DriftStiffness >= c.BaselineStiffness {
		return invalid("driftStiffness", fmt.Errorf("must be in (0, %g), got %g", c.BaselineStiffness, c.DriftStiffness))
	}

	for i, v := range c.CenterOfMass {
		if err := finite(fmt.Sprintf("centerOfMass[%d]", i), v); err != nil {
			return err
		}
	}
	return nil
}

func finite(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return invalid(name, fmt.Errorf("must be finite, got %g", v))
	}
	return nil
}
