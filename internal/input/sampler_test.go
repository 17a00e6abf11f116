package input

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/driftworks/vehiclectl/pkg/core"
)

type stubDevice struct {
	held    map[Action]bool
	pressed map[Action]bool
	steer   float64
	polls   int
}

func (d *stubDevice) Held(a Action) bool        { return d.held[a] }
func (d *stubDevice) JustPressed(a Action) bool { return d.pressed[a] }
func (d *stubDevice) Axis(Axis) float64         { return d.steer }
func (d *stubDevice) Poll()                     { d.polls++ }

type pedalDevice struct {
	stubDevice
	pedals map[Action]float64
}

func (d *pedalDevice) Pedal(a Action) (float64, bool) {
	v, ok := d.pedals[a]
	return v, ok
}

func TestSampler_DigitalPedals(t *testing.T) {
	dev := &stubDevice{held: map[Action]bool{ActionGas: true, ActionDrift: true}}

	s := NewSampler(dev).Sample()

	assert.Equal(t, core.DriveInputs{Gas: 1, Brake: 0, Drift: true}, s.Inputs)
	assert.Equal(t, 1, dev.polls)
}

func TestSampler_AnalogPedalsClamped(t *testing.T) {
	dev := &pedalDevice{
		stubDevice: stubDevice{held: map[Action]bool{ActionBrake: true}},
		pedals:     map[Action]float64{ActionGas: 1.7},
	}

	s := NewSampler(dev).Sample()

	assert.Equal(t, 1.0, s.Inputs.Gas)
	// no analog brake reading, falls back to the key
	assert.Equal(t, 1.0, s.Inputs.Brake)
}

func TestSampler_SteerClamped(t *testing.T) {
	tests := []struct {
		raw  float64
		want float64
	}{
		{0.25, 0.25},
		{-3, -1},
		{3, 1},
		{math.NaN(), 0},
	}
	for _, tt := range tests {
		dev := &stubDevice{steer: tt.raw}
		assert.Equal(t, tt.want, NewSampler(dev).Sample().Inputs.Steer)
	}
}

func TestSampler_ShiftEdges(t *testing.T) {
	dev := &stubDevice{
		held:    map[Action]bool{ActionShiftForward: true, ActionShiftBackward: true},
		pressed: map[Action]bool{ActionShiftBackward: true},
	}

	s := NewSampler(dev).Sample()

	assert.False(t, s.ShiftForward, "held without edge must not shift")
	assert.True(t, s.ShiftBackward)
}

func TestEdgeTracker_OneEdgePerPress(t *testing.T) {
	dev := &stubDevice{held: map[Action]bool{}}
	e := NewEdgeTracker(dev)

	var edges int
	pattern := []bool{false, true, true, true, false, true, false}
	for _, down := range pattern {
		dev.held[ActionShiftForward] = down
		e.Poll()
		if e.JustPressed(ActionShiftForward) {
			edges++
		}
		assert.Equal(t, down, e.Held(ActionShiftForward))
	}

	assert.Equal(t, 2, edges)
}

func TestEdgeTracker_AxisAndBounds(t *testing.T) {
	dev := &stubDevice{steer: -0.4}
	e := NewEdgeTracker(dev)
	e.Poll()

	assert.Equal(t, -0.4, e.Axis(AxisSteer))
	assert.Zero(t, e.Axis(Axis(7)))
	assert.False(t, e.Held(Action(99)))
	assert.False(t, e.JustPressed(Action(99)))
}

func TestSampler_PollsEdgeTracker(t *testing.T) {
	dev := &stubDevice{held: map[Action]bool{ActionShiftForward: true}}
	s := NewSampler(NewEdgeTracker(dev))

	assert.True(t, s.Sample().ShiftForward)
	assert.False(t, s.Sample().ShiftForward)
}

func TestParseAction(t *testing.T) {
	a, err := ParseAction("SHIFTFORWARD")
	assert.NoError(t, err)
	assert.Equal(t, ActionShiftForward, a)
	assert.Equal(t, "shiftForward", a.String())

	_, err = ParseAction("horn")
	assert.Error(t, err)
	assert.Equal(t, "action(42)", Action(42).String())
}
