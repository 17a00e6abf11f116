// pkg/core/session.go
package core

import "time"

// Session identifies one recorded drive.
type Session struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Vehicle   string        `json:"vehicle"`
	FixedStep time.Duration `json:"fixedStep"`
	StartTime time.Time     `json:"startTime"`
}

// WheelCommand is the actuator state of a single wheel read back after a step.
type WheelCommand struct {
	Wheel       WheelID `json:"wheel"`
	MotorTorque float64 `json:"motorTorque"`
	BrakeTorque float64 `json:"brakeTorque"`
	SteerAngle  float64 `json:"steerAngle"`
	Stiffness   float64 `json:"stiffness"`
	Pose        Pose    `json:"pose"`
}

// Frame is the controller output of one fixed step.
type Frame struct {
	Step       uint64                   `json:"step"`
	SimTime    time.Duration            `json:"simTime"`
	Gear       GearState                `json:"gear"`
	Inputs     DriveInputs              `json:"inputs"`
	Speed      float64                  `json:"speed"`    // units/s
	SpeedKmh   float64                  `json:"speedKmh"` // speed * 3.6
	SteerAngle float64                  `json:"steerAngle"`
	Drifting   bool                     `json:"drifting"`
	Wheels     [WheelCount]WheelCommand `json:"wheels"`
}

// Wheel returns the command recorded for id.
func (f *Frame) Wheel(id WheelID) WheelCommand {
	return f.Wheels[id]
}
