package input

// HeldDevice only knows which controls are down right now.
type HeldDevice interface {
	Held(a Action) bool
	Axis(ax Axis) float64
}

// EdgeTracker derives JustPressed from consecutive polls of a HeldDevice, so a key
// held across many frames yields exactly one edge.
type EdgeTracker struct {
	dev  HeldDevice
	prev [actionCount]bool
	cur  [actionCount]bool
	axis float64
}

func NewEdgeTracker(dev HeldDevice) *EdgeTracker {
	return &EdgeTracker{dev: dev}
}

// Poll latches the device state for this frame.
func (e *EdgeTracker) Poll() {
	e.prev = e.cur
	for a := Action(0); a < actionCount; a++ {
		e.cur[a] = e.dev.Held(a)
	}
	e.axis = e.dev.Axis(AxisSteer)
}

func (e *EdgeTracker) Held(a Action) bool {
	return a < actionCount && e.cur[a]
}

func (e *EdgeTracker) JustPressed(a Action) bool {
	return a < actionCount && e.cur[a] && !e.prev[a]
}

func (e *EdgeTracker) Axis(ax Axis) float64 {
	if ax != AxisSteer {
		return 0
	}
	return e.axis
}
