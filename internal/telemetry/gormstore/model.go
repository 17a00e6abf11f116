package gormstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/driftworks/vehiclectl/pkg/core"
)

// Models lists every table the store migrates.
var Models = []interface{}{
	&Session{},
	&FrameRow{},
}

// Session is one recorded drive.
type Session struct {
	ID          uint         `json:"id" gorm:"primarykey;autoIncrement;"`
	UUID        string       `json:"uuid" gorm:"size:36;uniqueIndex:idx_session_uuid"`
	Name        string       `json:"name" gorm:"size:200"`
	Vehicle     string       `json:"vehicle" gorm:"size:200"`
	FixedStepMs float64      `json:"fixedStepMs"`
	StartTime   time.Time    `json:"startTime" gorm:"index:idx_session_start"`
	EndTime     sql.NullTime `json:"endTime"`
	FrameCount  uint64       `json:"frameCount" gorm:"default:0"`
	Frames      []FrameRow   `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

func (*Session) TableName() string {
	return "sessions"
}

// FrameRow is one fixed step. Per-wheel commands are kept as a JSON column.
type FrameRow struct {
	ID         uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	SessionID  uint           `json:"sessionId" gorm:"index:idx_frame_session_step,priority:1"`
	Step       uint64         `json:"step" gorm:"index:idx_frame_session_step,priority:2"`
	SimTimeMs  float64        `json:"simTimeMs"`
	Gear       string         `json:"gear" gorm:"size:16"`
	Gas        float64        `json:"gas"`
	Brake      float64        `json:"brake"`
	Steer      float64        `json:"steer"`
	Drift      bool           `json:"drift" gorm:"default:false"`
	Speed      float64        `json:"speed"`
	SpeedKmh   float64        `json:"speedKmh"`
	SteerAngle float64        `json:"steerAngle"`
	Drifting   bool           `json:"drifting" gorm:"default:false"`
	Wheels     datatypes.JSON `json:"wheels"`
}

func (*FrameRow) TableName() string {
	return "frames"
}

func durationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func msDuration(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

func sessionFromCore(s *core.Session) Session {
	return Session{
		UUID:        s.ID,
		Name:        s.Name,
		Vehicle:     s.Vehicle,
		FixedStepMs: durationMs(s.FixedStep),
		StartTime:   s.StartTime,
	}
}

// Core converts the row back to the session type.
func (s *Session) Core() core.Session {
	return core.Session{
		ID:        s.UUID,
		Name:      s.Name,
		Vehicle:   s.Vehicle,
		FixedStep: msDuration(s.FixedStepMs),
		StartTime: s.StartTime,
	}
}

func frameFromCore(sessionID uint, f *core.Frame) (FrameRow, error) {
	wheels, err := json.Marshal(f.Wheels)
	if err != nil {
		return FrameRow{}, fmt.Errorf("failed to encode wheels: %w", err)
	}
	return FrameRow{
		SessionID:  sessionID,
		Step:       f.Step,
		SimTimeMs:  durationMs(f.SimTime),
		Gear:       f.Gear.String(),
		Gas:        f.Inputs.Gas,
		Brake:      f.Inputs.Brake,
		Steer:      f.Inputs.Steer,
		Drift:      f.Inputs.Drift,
		Speed:      f.Speed,
		SpeedKmh:   f.SpeedKmh,
		SteerAngle: f.SteerAngle,
		Drifting:   f.Drifting,
		Wheels:     datatypes.JSON(wheels),
	}, nil
}

// Core converts the row back to a frame.
func (r *FrameRow) Core() (core.Frame, error) {
	gear, err := core.ParseGearState(r.Gear)
	if err != nil {
		return core.Frame{}, err
	}
	f := core.Frame{
		Step:       r.Step,
		SimTime:    msDuration(r.SimTimeMs),
		Gear:       gear,
		Inputs:     core.DriveInputs{Gas: r.Gas, Brake: r.Brake, Steer: r.Steer, Drift: r.Drift},
		Speed:      r.Speed,
		SpeedKmh:   r.SpeedKmh,
		SteerAngle: r.SteerAngle,
		Drifting:   r.Drifting,
	}
	if len(r.Wheels) > 0 {
		if err := json.Unmarshal(r.Wheels, &f.Wheels); err != nil {
			return core.Frame{}, fmt.Errorf("failed to decode wheels for step %d: %w", r.Step, err)
		}
	}
	return f, nil
}
