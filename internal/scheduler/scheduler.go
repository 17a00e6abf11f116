// Package scheduler runs the two-rate simulation loop: a variable-rate frame task
// that samples input and renders, and a fixed-rate step task that advances the
// controller and physics.
//
// Each frame:
//
//  1. Frame(dt) runs once with the real elapsed time
//  2. Step(fixed) runs zero or more times, consuming accumulated time
//  3. Render() runs once
//
// Accumulated time beyond MaxCatchUp steps is discarded so a stalled host cannot
// trigger an ever-growing burst of steps.
package scheduler

import (
	"context"
	"errors"
	"time"
)

// Tasks are the loop callbacks. Nil tasks are skipped.
type Tasks struct {
	Frame  func(dt time.Duration)
	Step   func(dt time.Duration)
	Render func()
}

// Loop is a fixed-step accumulator. It is not safe for concurrent use.
type Loop struct {
	fixed      time.Duration
	maxCatchUp int
	tasks      Tasks

	acc     time.Duration
	elapsed time.Duration
	steps   uint64
	dropped time.Duration
}

// New returns a loop stepping every fixed. maxCatchUp <= 0 means unbounded.
func New(fixed time.Duration, maxCatchUp int, tasks Tasks) (*Loop, error) {
	if fixed <= 0 {
		return nil, errors.New("fixed step must be positive")
	}
	return &Loop{fixed: fixed, maxCatchUp: maxCatchUp, tasks: tasks}, nil
}

// Fixed returns the step length.
func (l *Loop) Fixed() time.Duration { return l.fixed }

// Elapsed is the simulated time consumed by fixed steps.
func (l *Loop) Elapsed() time.Duration { return l.elapsed }

// Steps is the number of fixed steps run so far.
func (l *Loop) Steps() uint64 { return l.steps }

// Dropped is the total frame time discarded by the catch-up cap.
func (l *Loop) Dropped() time.Duration { return l.dropped }

// Advance runs one frame of length frameDt and returns how many fixed steps ran.
// It is deterministic: the same sequence of frame lengths always produces the same
// sequence of steps.
func (l *Loop) Advance(frameDt time.Duration) int {
	if frameDt < 0 {
		frameDt = 0
	}
	if l.tasks.Frame != nil {
		l.tasks.Frame(frameDt)
	}

	l.acc += frameDt
	n := 0
	for l.acc >= l.fixed {
		if l.maxCatchUp > 0 && n >= l.maxCatchUp {
			excess := l.acc - l.acc%l.fixed
			l.dropped += excess
			l.acc -= excess
			break
		}
		if l.tasks.Step != nil {
			l.tasks.Step(l.fixed)
		}
		l.acc -= l.fixed
		l.elapsed += l.fixed
		l.steps++
		n++
	}

	if l.tasks.Render != nil {
		l.tasks.Render()
	}
	return n
}

// Run drives Advance from a wall-clock ticker until ctx is done.
func (l *Loop) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return errors.New("frame interval must be positive")
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			l.Advance(now.Sub(last))
			last = now
		}
	}
}
