package input

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"
)

// Duration is a time.Duration that reads "1.5s" style strings from JSON.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// ScriptEvent changes the scripted controls at a point in time. Hold keeps a control
// down until a later Release; Press holds it for a single frame, so two presses of the
// same control need at least one frame between them to count as separate edges.
type ScriptEvent struct {
	At      Duration `json:"at"`
	Hold    []string `json:"hold,omitempty"`
	Release []string `json:"release,omitempty"`
	Press   []string `json:"press,omitempty"`
	Steer   *float64 `json:"steer,omitempty"`
}

// Script is a timed driver input sequence used for headless runs and replay tests.
type Script struct {
	Name     string        `json:"name"`
	Duration Duration      `json:"duration"`
	Events   []ScriptEvent `json:"events"`
}

// DecodeScript reads and validates a JSON script.
func DecodeScript(r io.Reader) (*Script, error) {
	var s Script
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("decoding script: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks action names and timing.
func (s *Script) Validate() error {
	if s.Duration <= 0 {
		return fmt.Errorf("script %q: duration must be positive", s.Name)
	}
	for i, ev := range s.Events {
		if ev.At < 0 {
			return fmt.Errorf("script %q event %d: negative time", s.Name, i)
		}
		for _, group := range [][]string{ev.Hold, ev.Release, ev.Press} {
			for _, name := range group {
				if _, err := ParseAction(name); err != nil {
					return fmt.Errorf("script %q event %d: %w", s.Name, i, err)
				}
			}
		}
	}
	return nil
}

// ScriptDevice plays a Script as a HeldDevice. Wrap it in an EdgeTracker to get
// shift edges.
type ScriptDevice struct {
	events []ScriptEvent
	next   int
	held   [actionCount]bool
	taps   [actionCount]bool
	steer  float64
}

// NewScriptDevice copies and time-orders the script's events.
func NewScriptDevice(s *Script) *ScriptDevice {
	events := make([]ScriptEvent, len(s.Events))
	copy(events, s.Events)
	sort.SliceStable(events, func(i, j int) bool { return events[i].At < events[j].At })
	return &ScriptDevice{events: events}
}

// Advance releases last frame's taps and applies every event due at or before now.
func (d *ScriptDevice) Advance(now time.Duration) {
	for a := range d.taps {
		if d.taps[a] {
			d.held[a] = false
			d.taps[a] = false
		}
	}
	for d.next < len(d.events) && time.Duration(d.events[d.next].At) <= now {
		d.apply(d.events[d.next])
		d.next++
	}
}

// Done reports whether every event has been applied.
func (d *ScriptDevice) Done() bool {
	return d.next >= len(d.events)
}

func (d *ScriptDevice) apply(ev ScriptEvent) {
	for _, name := range ev.Release {
		if a, err := ParseAction(name); err == nil {
			d.held[a] = false
		}
	}
	for _, name := range ev.Hold {
		if a, err := ParseAction(name); err == nil {
			d.held[a] = true
		}
	}
	for _, name := range ev.Press {
		if a, err := ParseAction(name); err == nil {
			d.held[a] = true
			d.taps[a] = true
		}
	}
	if ev.Steer != nil {
		d.steer = *ev.Steer
	}
}

func (d *ScriptDevice) Held(a Action) bool {
	return a < actionCount && d.held[a]
}

func (d *ScriptDevice) Axis(ax Axis) float64 {
	if ax != AxisSteer {
		return 0
	}
	return d.steer
}
