package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/driftworks/vehiclectl/pkg/core"
)

// RunExport is the root JSON structure of an exported session
type RunExport struct {
	Session core.Session `json:"session"`
	Summary Summary      `json:"summary"`
	Track   Track        `json:"track"`
	Frames  []core.Frame `json:"frames"`
}

// Summary aggregates a session's frames.
type Summary struct {
	Steps        int     `json:"steps"`
	DurationSec  float64 `json:"durationSec"`
	MaxSpeedKmh  float64 `json:"maxSpeedKmh"`
	MeanSpeedKmh float64 `json:"meanSpeedKmh"`
	DriftSteps   int     `json:"driftSteps"`
	GearChanges  int     `json:"gearChanges"`
}

func summarize(frames []core.Frame) Summary {
	s := Summary{Steps: len(frames)}
	if len(frames) == 0 {
		return s
	}

	var total float64
	for i, f := range frames {
		total += f.SpeedKmh
		if f.SpeedKmh > s.MaxSpeedKmh {
			s.MaxSpeedKmh = f.SpeedKmh
		}
		if f.Drifting {
			s.DriftSteps++
		}
		if i > 0 && f.Gear != frames[i-1].Gear {
			s.GearChanges++
		}
	}
	s.MeanSpeedKmh = total / float64(len(frames))
	s.DurationSec = frames[len(frames)-1].SimTime.Seconds()
	return s
}

func (b *Backend) buildExport() RunExport {
	frames := make([]core.Frame, len(b.frames))
	copy(frames, b.frames)

	return RunExport{
		Session: *b.session,
		Summary: summarize(frames),
		Track:   buildTrack(frames, b.origin),
		Frames:  frames,
	}
}

// exportJSON writes the session to a (optionally gzipped) JSON file
func (b *Backend) exportJSON() error {
	export := b.buildExport()

	name := strings.NewReplacer(" ", "_", ":", "_", "/", "_").Replace(b.session.Name)
	if name == "" {
		name = "session"
	}
	timestamp := b.session.StartTime.Format("20060102_150405")

	filename := fmt.Sprintf("%s_%s.json", name, timestamp)
	if b.cfg.CompressOutput {
		filename += ".gz"
	}
	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if b.cfg.CompressOutput {
		if err := writeGzipJSON(outputPath, export); err != nil {
			return err
		}
	} else {
		if err := writeJSON(outputPath, export); err != nil {
			return err
		}
	}

	b.lastExportPath = outputPath
	return nil
}

func writeJSON(path string, data RunExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(data)
}

func writeGzipJSON(path string, data RunExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	if err := json.NewEncoder(gzWriter).Encode(data); err != nil {
		gzWriter.Close()
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return gzWriter.Close()
}

// ReadExport loads a file written by EndSession. Files ending in .gz are
// decompressed.
func ReadExport(path string) (*RunExport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open export: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	var export RunExport
	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return nil, fmt.Errorf("failed to decode export: %w", err)
	}
	return &export, nil
}
