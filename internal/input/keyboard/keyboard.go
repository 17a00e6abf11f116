// Package keyboard reads driver input from the ebiten keyboard state.
package keyboard

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/driftworks/vehiclectl/internal/input"
)

var _ input.Device = (*Device)(nil)

// Bindings maps each action to the keys that trigger it. Any bound key counts.
type Bindings map[input.Action][]ebiten.Key

// DefaultBindings: W/S pedals, A/D or arrows steer, Space drift, Shift up, Ctrl down.
func DefaultBindings() Bindings {
	return Bindings{
		input.ActionGas:           {ebiten.KeyW, ebiten.KeyArrowUp},
		input.ActionBrake:         {ebiten.KeyS, ebiten.KeyArrowDown},
		input.ActionDrift:         {ebiten.KeySpace},
		input.ActionShiftForward:  {ebiten.KeyShiftLeft, ebiten.KeyShiftRight},
		input.ActionShiftBackward: {ebiten.KeyControlLeft, ebiten.KeyControlRight},
	}
}

// Device is a digital keyboard. Steering is a keyboard axis: left keys give -1,
// right keys +1, both or neither 0.
type Device struct {
	bindings Bindings
	left     []ebiten.Key
	right    []ebiten.Key
}

func New(b Bindings) *Device {
	return &Device{
		bindings: b,
		left:     []ebiten.Key{ebiten.KeyA, ebiten.KeyArrowLeft},
		right:    []ebiten.Key{ebiten.KeyD, ebiten.KeyArrowRight},
	}
}

func (d *Device) Held(a input.Action) bool {
	return anyPressed(d.bindings[a])
}

// JustPressed relies on inpututil, which tracks key-down transitions per ebiten tick.
func (d *Device) JustPressed(a input.Action) bool {
	for _, k := range d.bindings[a] {
		if inpututil.IsKeyJustPressed(k) {
			return true
		}
	}
	return false
}

func (d *Device) Axis(ax input.Axis) float64 {
	if ax != input.AxisSteer {
		return 0
	}
	var v float64
	if anyPressed(d.left) {
		v--
	}
	if anyPressed(d.right) {
		v++
	}
	return v
}

func anyPressed(keys []ebiten.Key) bool {
	for _, k := range keys {
		if ebiten.IsKeyPressed(k) {
			return true
		}
	}
	return false
}
