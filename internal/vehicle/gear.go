package vehicle

import "github.com/driftworks/vehiclectl/pkg/core"

// Shift is a single gear-lever edge.
type Shift uint8

const (
	ShiftForward Shift = iota + 1
	ShiftBackward
)

func (s Shift) String() string {
	switch s {
	case ShiftForward:
		return "forward"
	case ShiftBackward:
		return "backward"
	default:
		return "none"
	}
}

// GearBox is the Reverse/Neutral/Drive state machine. The zero value is not
// usable; call NewGearBox.
type GearBox struct {
	state core.GearState
}

// NewGearBox starts in neutral.
func NewGearBox() *GearBox {
	return &GearBox{state: core.GearNeutral}
}

// State returns the active gear.
func (g *GearBox) State() core.GearState {
	return g.state
}

// Apply performs one transition and returns the resulting gear. Shifting past
// either end of the range is a no-op.
func (g *GearBox) Apply(s Shift) core.GearState {
	g.state = nextGear(g.state, s)
	return g.state
}

// Fold applies shifts in order and returns the final gear.
func (g *GearBox) Fold(shifts []Shift) core.GearState {
	for _, s := range shifts {
		g.Apply(s)
	}
	return g.state
}

func nextGear(from core.GearState, s Shift) core.GearState {
	switch s {
	case ShiftForward:
		switch from {
		case core.GearReverse:
			return core.GearNeutral
		case core.GearNeutral, core.GearDrive:
			return core.GearDrive
		}
	case ShiftBackward:
		switch from {
		case core.GearDrive:
			return core.GearNeutral
		case core.GearNeutral, core.GearReverse:
			return core.GearReverse
		}
	}
	return from
}
