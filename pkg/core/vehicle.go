// pkg/core/vehicle.go
package core

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

// GearState is the selected transmission range.
type GearState uint8

const (
	GearReverse GearState = iota
	GearNeutral
	GearDrive
)

func (g GearState) String() string {
	switch g {
	case GearReverse:
		return "reverse"
	case GearNeutral:
		return "neutral"
	case GearDrive:
		return "drive"
	default:
		return fmt.Sprintf("gear(%d)", uint8(g))
	}
}

// Direction returns the torque sign for the gear: +1 drive, -1 reverse, 0 neutral.
func (g GearState) Direction() float64 {
	switch g {
	case GearDrive:
		return 1
	case GearReverse:
		return -1
	default:
		return 0
	}
}

// ParseGearState accepts the names produced by String, plus the single-letter forms R, N and D.
func ParseGearState(s string) (GearState, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "reverse", "r":
		return GearReverse, nil
	case "neutral", "n":
		return GearNeutral, nil
	case "drive", "d":
		return GearDrive, nil
	}
	return GearNeutral, fmt.Errorf("unknown gear %q", s)
}

func (g GearState) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

func (g *GearState) UnmarshalText(b []byte) error {
	v, err := ParseGearState(string(b))
	if err != nil {
		return err
	}
	*g = v
	return nil
}

// DriveInputs is the driver intent for one frame. Gas and Brake are in [0,1], Steer in [-1,1].
type DriveInputs struct {
	Gas   float64 `json:"gas"`
	Brake float64 `json:"brake"`
	Steer float64 `json:"steer"`
	Drift bool    `json:"drift"`
}

// Coasting reports whether neither pedal is pressed.
func (in DriveInputs) Coasting() bool {
	return in.Gas == 0 && in.Brake == 0
}

// Pose is a world-space position and orientation.
type Pose struct {
	Position mgl64.Vec3 `json:"position"`
	Rotation mgl64.Quat `json:"rotation"`
}

// IdentityPose is the origin with no rotation.
func IdentityPose() Pose {
	return Pose{Rotation: mgl64.QuatIdent()}
}

// WheelID indexes the four wheels. The order matches the fixed wiring: front wheels
// steer, rear wheels drive.
type WheelID uint8

const (
	FrontRight WheelID = iota
	FrontLeft
	RearRight
	RearLeft

	WheelCount = 4
)

// AllWheels lists every wheel in wiring order.
var AllWheels = [WheelCount]WheelID{FrontRight, FrontLeft, RearRight, RearLeft}

func (w WheelID) String() string {
	switch w {
	case FrontRight:
		return "FR"
	case FrontLeft:
		return "FL"
	case RearRight:
		return "RR"
	case RearLeft:
		return "RL"
	default:
		return fmt.Sprintf("wheel(%d)", uint8(w))
	}
}

// Front reports whether the wheel is on the steered axle.
func (w WheelID) Front() bool {
	return w == FrontRight || w == FrontLeft
}

// ParseWheelID accepts FR, FL, RR and RL in any case.
func ParseWheelID(s string) (WheelID, error) {
	for _, id := range AllWheels {
		if strings.EqualFold(id.String(), s) {
			return id, nil
		}
	}
	return 0, fmt.Errorf("unknown wheel %q", s)
}

func (w WheelID) MarshalText() ([]byte, error) {
	return []byte(w.String()), nil
}

func (w *WheelID) UnmarshalText(b []byte) error {
	v, err := ParseWheelID(string(b))
	if err != nil {
		return err
	}
	*w = v
	return nil
}
