// Package plot renders recorded frames as PNG line charts.
package plot

import (
	"bufio"
	"errors"
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/driftworks/vehiclectl/pkg/core"
)

// Chart file names written by Render.
const (
	SpeedFile  = "speed.png"
	SteerFile  = "steer_angle.png"
	TorqueFile = "rear_torque.png"
)

// ErrNoFrames is returned when there is nothing to draw.
var ErrNoFrames = errors.New("no frames to plot")

// Options control the output size.
type Options struct {
	Width  vg.Length
	Height vg.Length
	DPI    int
}

// DefaultOptions is an 8x5 inch chart at 96 DPI.
var DefaultOptions = Options{Width: 8 * vg.Inch, Height: 5 * vg.Inch, DPI: 96}

var (
	red  = color.RGBA{R: 200, G: 40, B: 40, A: 255}
	blue = color.RGBA{R: 30, G: 90, B: 200, A: 255}
)

type series struct {
	label string
	color color.Color
	value func(*core.Frame) float64
}

// Render writes the speed, steer angle and rear torque charts into outDir and
// returns the paths written.
func Render(frames []core.Frame, outDir string, opts Options) ([]string, error) {
	if len(frames) == 0 {
		return nil, ErrNoFrames
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = DefaultOptions.Width, DefaultOptions.Height
	}
	if opts.DPI <= 0 {
		opts.DPI = DefaultOptions.DPI
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create plot dir: %w", err)
	}

	charts := []struct {
		file, title, ylabel string
		lines               []series
	}{
		{SpeedFile, "Speed", "km/h", []series{
			{"speed", blue, func(f *core.Frame) float64 { return f.SpeedKmh }},
		}},
		{SteerFile, "Steer angle", "deg", []series{
			{"steer", blue, func(f *core.Frame) float64 { return f.SteerAngle }},
		}},
		{TorqueFile, "Rear motor torque", "Nm", []series{
			{"rear right", red, func(f *core.Frame) float64 { return f.Wheel(core.RearRight).MotorTorque }},
			{"rear left", blue, func(f *core.Frame) float64 { return f.Wheel(core.RearLeft).MotorTorque }},
		}},
	}

	var written []string
	for _, c := range charts {
		p, err := lineChart(frames, c.title, c.ylabel, c.lines)
		if err != nil {
			return written, fmt.Errorf("%s: %w", c.file, err)
		}
		path := filepath.Join(outDir, c.file)
		if err := savePNG(p, opts, path); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

func lineChart(frames []core.Frame, title, ylabel string, lines []series) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "time (s)"
	p.Y.Label.Text = ylabel
	p.Add(plotter.NewGrid())

	for _, s := range lines {
		pts := make(plotter.XYs, len(frames))
		for i := range frames {
			pts[i].X = frames[i].SimTime.Seconds()
			pts[i].Y = finite(s.value(&frames[i]))
		}
		l, err := plotter.NewLine(pts)
		if err != nil {
			return nil, err
		}
		l.LineStyle.Width = vg.Points(1.5)
		l.LineStyle.Color = s.color
		p.Add(l)
		if len(lines) > 1 {
			p.Legend.Add(s.label, l)
		}
	}
	p.Legend.Top = true
	return p, nil
}

// NewLine rejects NaN and Inf.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func savePNG(p *plot.Plot, opts Options, path string) error {
	c := vgimg.NewWith(vgimg.UseWH(opts.Width, opts.Height), vgimg.UseDPI(opts.DPI))
	p.Draw(draw.New(c))

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create png: %w", err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(bw); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return bw.Flush()
}
