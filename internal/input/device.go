// Package input turns raw driver devices into per-frame drive commands.
package input

import (
	"fmt"
	"strings"
)

// Action is a digital driver control.
type Action uint8

const (
	ActionGas Action = iota
	ActionBrake
	ActionDrift
	ActionShiftForward
	ActionShiftBackward

	actionCount
)

var actionNames = [actionCount]string{
	ActionGas:           "gas",
	ActionBrake:         "brake",
	ActionDrift:         "drift",
	ActionShiftForward:  "shiftForward",
	ActionShiftBackward: "shiftBackward",
}

func (a Action) String() string {
	if a < actionCount {
		return actionNames[a]
	}
	return fmt.Sprintf("action(%d)", uint8(a))
}

// ParseAction is case-insensitive.
func ParseAction(s string) (Action, error) {
	for i, name := range actionNames {
		if strings.EqualFold(name, s) {
			return Action(i), nil
		}
	}
	return 0, fmt.Errorf("unknown action %q", s)
}

// Axis is an analog driver control.
type Axis uint8

const (
	AxisSteer Axis = iota
)

// Device is a polled input source.
type Device interface {
	// Held reports whether the control is currently down.
	Held(a Action) bool
	// JustPressed reports a key-down transition in the current frame only.
	JustPressed(a Action) bool
	// Axis returns the raw axis value; the sampler clamps it to [-1,1].
	Axis(ax Axis) float64
}

// PedalDevice is implemented by devices with analog pedals. ok=false falls back to
// the digital Held state.
type PedalDevice interface {
	Pedal(a Action) (value float64, ok bool)
}

// Poller is implemented by devices that latch their state once per frame.
type Poller interface {
	Poll()
}
