package drive

import (
	"context"
	"errors"
	"time"

	"github.com/driftworks/vehiclectl/internal/input"
)

// NewScripted builds a rig whose driver is s. Any Device or OnFrame in opts is
// replaced.
func NewScripted(opts Options, s *input.Script) (*Rig, error) {
	if s == nil {
		return nil, errors.New("drive: script is required")
	}
	dev := input.NewScriptDevice(s)
	opts.Device = input.NewEdgeTracker(dev)
	opts.OnFrame = dev.Advance
	return New(opts)
}

// Play feeds frames of length frameDt until the frame clock reaches duration or
// ctx is done. It returns the number of fixed steps run.
func (r *Rig) Play(ctx context.Context, duration, frameDt time.Duration) (int, error) {
	if frameDt <= 0 {
		return 0, errors.New("drive: frame interval must be positive")
	}
	steps := 0
	for r.clock < duration {
		if err := ctx.Err(); err != nil {
			return steps, err
		}
		steps += r.Advance(frameDt)
	}
	return steps, nil
}
