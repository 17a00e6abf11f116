package main

import (
	"errors"
	"fmt"
	"image/color"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/driftworks/vehiclectl/internal/drive"
	"github.com/driftworks/vehiclectl/internal/monitor"
	"github.com/driftworks/vehiclectl/internal/vehicle"
	"github.com/driftworks/vehiclectl/pkg/core"
)

const (
	screenWidth  = 1280
	screenHeight = 720
	pixelsPerM   = 12.0
	gridSpacing  = 5.0 // world units
	trailLength  = 600
	wheelLength  = 0.7
)

var (
	background = color.RGBA{R: 12, G: 14, B: 18, A: 255}
	gridColor  = color.RGBA{R: 34, G: 38, B: 46, A: 255}
	bodyColor  = color.RGBA{R: 200, G: 200, B: 210, A: 255}
	wheelColor = color.RGBA{R: 240, G: 240, B: 240, A: 255}
	driftColor = color.RGBA{R: 255, G: 120, B: 40, A: 255}
	trailColor = color.RGBA{R: 70, G: 140, B: 220, A: 160}
)

// game renders the rig top-down. Wheel poses arrive through the controller's
// transforms, once per frame after the fixed steps.
type game struct {
	rig    *drive.Rig
	status *monitor.Service
	wheels [core.WheelCount]core.Pose
	trail  []mgl64.Vec3
	paused bool
}

func newGame() *game {
	return &game{}
}

// transforms returns the visual nodes the controller writes wheel poses to.
func (g *game) transforms() vehicle.Transforms {
	node := func(id core.WheelID) vehicle.Transform {
		return vehicle.TransformFunc(func(p core.Pose) { g.wheels[id] = p })
	}
	return vehicle.Transforms{
		FR: node(core.FrontRight),
		FL: node(core.FrontLeft),
		RR: node(core.RearRight),
		RL: node(core.RearLeft),
	}
}

func (g *game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		g.paused = !g.paused
	}
	if g.paused {
		return nil
	}

	// one ebiten tick is one render frame
	if g.rig.Advance(time.Second/time.Duration(ebiten.TPS())) > 0 && g.status != nil {
		g.status.Publish(g.rig.Last())
	}

	g.trail = append(g.trail, g.rig.Vehicle().Position())
	if len(g.trail) > trailLength {
		g.trail = g.trail[len(g.trail)-trailLength:]
	}
	return nil
}

func (g *game) camera() drive.Camera {
	return drive.Camera{
		Center: g.rig.Vehicle().Position(),
		Scale:  pixelsPerM,
		Width:  screenWidth,
		Height: screenHeight,
	}
}

func (g *game) Draw(screen *ebiten.Image) {
	screen.Fill(background)
	cam := g.camera()

	drawGrid(screen, cam)

	for i := 1; i < len(g.trail); i++ {
		x0, y0 := cam.Project(g.trail[i-1])
		x1, y1 := cam.Project(g.trail[i])
		vector.StrokeLine(screen, float32(x0), float32(y0), float32(x1), float32(y1), 2, trailColor, true)
	}

	// chassis outline through the wheel centres
	outline := []core.WheelID{core.FrontRight, core.FrontLeft, core.RearLeft, core.RearRight, core.FrontRight}
	for i := 1; i < len(outline); i++ {
		x0, y0 := cam.Project(g.wheels[outline[i-1]].Position)
		x1, y1 := cam.Project(g.wheels[outline[i]].Position)
		vector.StrokeLine(screen, float32(x0), float32(y0), float32(x1), float32(y1), 2, bodyColor, true)
	}

	ctrl := g.rig.Controller()
	for _, id := range core.AllWheels {
		clr := wheelColor
		if !id.Front() && ctrl.Drifting() {
			clr = driftColor
		}
		x0, y0, x1, y1 := cam.WheelSegment(g.wheels[id], wheelLength)
		vector.StrokeLine(screen, float32(x0), float32(y0), float32(x1), float32(y1), 5, clr, true)
	}

	ebitenutil.DebugPrint(screen, g.hud())
}

func (g *game) hud() string {
	ctrl := g.rig.Controller()
	last := g.rig.Last()
	s := fmt.Sprintf(
		"gear %-8s speed %6.1f km/h  steer %+5.1f deg  drift %-5t\nstep %d  TPS %.0f  FPS %.0f\n"+
			"W/S gas/brake  A/D steer  Space drift  Shift/Ctrl gear  P pause  Esc quit",
		ctrl.Gear(), last.SpeedKmh, ctrl.SteerAngle(), ctrl.Drifting(),
		ctrl.Steps(), ebiten.ActualTPS(), ebiten.ActualFPS(),
	)
	if g.paused {
		s += "\nPAUSED"
	}
	return s
}

func drawGrid(screen *ebiten.Image, cam drive.Camera) {
	halfW := cam.Width / 2 / cam.Scale
	halfH := cam.Height / 2 / cam.Scale
	c := cam.Center

	startX := float64(int((c.X()-halfW)/gridSpacing)-1) * gridSpacing
	for x := startX; x <= c.X()+halfW; x += gridSpacing {
		sx, _ := cam.Project(mgl64.Vec3{x, 0, c.Z()})
		vector.StrokeLine(screen, float32(sx), 0, float32(sx), float32(cam.Height), 1, gridColor, false)
	}
	startZ := float64(int((c.Z()-halfH)/gridSpacing)-1) * gridSpacing
	for z := startZ; z <= c.Z()+halfH; z += gridSpacing {
		_, sy := cam.Project(mgl64.Vec3{c.X(), 0, z})
		vector.StrokeLine(screen, 0, float32(sy), float32(cam.Width), float32(sy), 1, gridColor, false)
	}
}

func (g *game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return screenWidth, screenHeight
}

// run opens the window and blocks until it is closed.
func (g *game) run() error {
	ebiten.SetWindowSize(screenWidth, screenHeight)
	ebiten.SetWindowTitle("drivesim")
	if err := ebiten.RunGame(g); err != nil && !errors.Is(err, ebiten.Termination) {
		return err
	}
	return nil
}
