package drive

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/driftworks/vehiclectl/pkg/core"
)

// Camera is a top-down view of the XZ plane: +X is screen right, +Z is screen
// up, and Center lands in the middle of the screen.
type Camera struct {
	Center        mgl64.Vec3
	Scale         float64 // pixels per world unit
	Width, Height float64
}

// Project maps a world position to screen coordinates.
func (c Camera) Project(p mgl64.Vec3) (x, y float64) {
	x = c.Width/2 + (p.X()-c.Center.X())*c.Scale
	y = c.Height/2 - (p.Z()-c.Center.Z())*c.Scale
	return x, y
}

// RollingDirection is the unit XZ direction a wheel rolls in. It is taken from
// the axle, which wheel spin leaves unchanged.
func RollingDirection(p core.Pose) mgl64.Vec2 {
	axle := p.Rotation.Rotate(mgl64.Vec3{1, 0, 0})
	dir := mgl64.Vec2{-axle.Z(), axle.X()}
	if l := dir.Len(); l > 1e-9 {
		return dir.Mul(1 / l)
	}
	return mgl64.Vec2{0, 1}
}

// WheelSegment returns the screen endpoints of a wheel drawn as a line of the
// given world length along its rolling direction.
func (c Camera) WheelSegment(p core.Pose, length float64) (x0, y0, x1, y1 float64) {
	half := RollingDirection(p).Mul(length / 2)
	back := p.Position.Sub(mgl64.Vec3{half.X(), 0, half.Y()})
	front := p.Position.Add(mgl64.Vec3{half.X(), 0, half.Y()})
	x0, y0 = c.Project(back)
	x1, y1 = c.Project(front)
	return x0, y0, x1, y1
}
