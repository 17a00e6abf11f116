package vehicle

import (
	"reflect"

	"github.com/driftworks/vehiclectl/internal/physics"
	"github.com/driftworks/vehiclectl/pkg/core"
)

// Wheels is the fixed four-wheel wiring: FR and FL steer, RR and RL drive and
// take the drift overrides.
type Wheels struct {
	FR, FL, RR, RL physics.WheelActuator
}

// Get returns the actuator for id.
func (w Wheels) Get(id core.WheelID) physics.WheelActuator {
	switch id {
	case core.FrontRight:
		return w.FR
	case core.FrontLeft:
		return w.FL
	case core.RearRight:
		return w.RR
	case core.RearLeft:
		return w.RL
	}
	return nil
}

func (w Wheels) validate() error {
	for _, id := range core.AllWheels {
		if isNil(w.Get(id)) {
			return &ConfigError{Field: "wheel." + id.String(), Err: ErrMissingWheel}
		}
	}
	return nil
}

// isNil also catches typed nil pointers stored in an interface.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
