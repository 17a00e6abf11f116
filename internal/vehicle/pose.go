package vehicle

import (
	"github.com/driftworks/vehiclectl/internal/physics"
	"github.com/driftworks/vehiclectl/pkg/core"
)

// Transform is a visual node whose placement follows a wheel.
type Transform interface {
	SetPose(p core.Pose)
}

// TransformFunc adapts a plain function to Transform.
type TransformFunc func(p core.Pose)

func (f TransformFunc) SetPose(p core.Pose) { f(p) }

// Transforms pairs one visual node with each wheel.
type Transforms struct {
	FR, FL, RR, RL Transform
}

func (t Transforms) get(id core.WheelID) Transform {
	switch id {
	case core.FrontRight:
		return t.FR
	case core.FrontLeft:
		return t.FL
	case core.RearRight:
		return t.RR
	case core.RearLeft:
		return t.RL
	}
	return nil
}

// PoseSync copies each wheel's world pose onto its transform. It keeps no state and
// does no smoothing, so visuals trail the physics by up to one frame.
type PoseSync struct {
	pairs [core.WheelCount]struct {
		wheel physics.WheelActuator
		node  Transform
	}
}

// NewPoseSync fails if any wheel or transform is missing.
func NewPoseSync(w Wheels, t Transforms) (*PoseSync, error) {
	if err := w.validate(); err != nil {
		return nil, err
	}
	ps := &PoseSync{}
	for i, id := range core.AllWheels {
		node := t.get(id)
		if isNil(node) {
			return nil, &ConfigError{Field: "transform." + id.String(), Err: ErrMissingTransform}
		}
		ps.pairs[i].wheel = w.Get(id)
		ps.pairs[i].node = node
	}
	return ps, nil
}

// Sync projects all four wheel poses.
func (ps *PoseSync) Sync() {
	for _, p := range ps.pairs {
		p.node.SetPose(p.wheel.WorldPose())
	}
}
