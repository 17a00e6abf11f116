package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/driftworks/vehiclectl/internal/config"
	"github.com/driftworks/vehiclectl/internal/drive"
	"github.com/driftworks/vehiclectl/internal/input"
	"github.com/driftworks/vehiclectl/internal/physics/sim"
	"github.com/driftworks/vehiclectl/internal/telemetry"
	"github.com/driftworks/vehiclectl/internal/telemetry/factory"
	"github.com/driftworks/vehiclectl/internal/vehicle"
	"github.com/driftworks/vehiclectl/pkg/core"
)

// runResult is what a headless run prints when it finishes.
type runResult struct {
	Session   *core.Session
	Steps     int
	SimTime   time.Duration
	SpeedKmh  float64
	Gear      core.GearState
	Processed uint64
	Dropped   uint64
	Failed    uint64
	Export    string
}

func loadScript(path string) (*input.Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return input.DecodeScript(f)
}

// runScript drives the scripted session at a fixed frame interval, as fast as
// the host allows, and records every step to the configured backend.
func runScript(a *app, path string, out io.Writer) (*runResult, error) {
	script, err := loadScript(path)
	if err != nil {
		return nil, err
	}

	vcfg, err := config.GetVehicleConfig()
	if err != nil {
		return nil, err
	}
	simCfg := config.GetSimConfig()
	telCfg := config.GetTelemetryConfig()

	backend, err := factory.New(telCfg, a.logger, a.zerolog(telCfg.Type))
	if err != nil {
		return nil, err
	}
	if err := backend.Init(); err != nil {
		return nil, errors.Join(fmt.Errorf("failed to initialize telemetry backend: %w", err), backend.Close())
	}

	session := telemetry.NewSession(script.Name, "sim", simCfg.FixedStep)
	if err := backend.StartSession(session); err != nil {
		return nil, errors.Join(fmt.Errorf("start session: %w", err), backend.Close())
	}

	recorder, err := telemetry.NewRecorder(backend, telCfg.BufferSize, a.logger.With("component", "recorder"))
	if err != nil {
		return nil, errors.Join(err, backend.Close())
	}

	rig, err := drive.NewScripted(drive.Options{
		Vehicle:  vcfg,
		Chassis:  sim.DefaultParams(),
		Sim:      simCfg,
		Recorder: recorder,
		Logger:   a.logger,
	}, script)
	if err != nil {
		recorder.Close()
		return nil, errors.Join(err, backend.EndSession(), backend.Close())
	}
	a.controller = rig.Controller()
	defer func() { a.controller = nil }()
	defer rig.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a.logger.Info("Starting scripted run",
		"script", script.Name,
		"session", session.ID,
		"duration", time.Duration(script.Duration),
		"fixedStep", simCfg.FixedStep,
		"frameInterval", simCfg.FrameInterval,
	)
	started := time.Now()
	steps, playErr := rig.Play(ctx, time.Duration(script.Duration), simCfg.FrameInterval)

	// drain before the session ends so every frame lands in it
	recorder.Close()
	endErr := backend.EndSession()
	closeErr := backend.Close()

	last := rig.Last()
	res := &runResult{
		Session:   session,
		Steps:     steps,
		SimTime:   rig.Loop().Elapsed(),
		SpeedKmh:  last.SpeedKmh,
		Gear:      rig.Controller().Gear(),
		Processed: recorder.Processed(),
		Dropped:   recorder.Dropped(),
		Failed:    recorder.Failed(),
	}
	if exp, ok := backend.(telemetry.Exporter); ok {
		res.Export = exp.ExportedFilePath()
	}

	a.logger.Info("Scripted run finished",
		"steps", res.Steps,
		"simTime", res.SimTime,
		"wall", time.Since(started),
		"processed", res.Processed,
		"dropped", res.Dropped,
		"failed", res.Failed,
		"export", res.Export,
	)
	printResult(out, res)

	if err := errors.Join(playErr, endErr, closeErr); err != nil {
		return res, err
	}
	return res, nil
}

func printResult(out io.Writer, r *runResult) {
	fmt.Fprintf(out, "session   %s (%s)\n", r.Session.ID, r.Session.Name)
	fmt.Fprintf(out, "steps     %d (%s simulated)\n", r.Steps, r.SimTime)
	fmt.Fprintf(out, "final     %.1f km/h in %s\n", r.SpeedKmh, r.Gear)
	fmt.Fprintf(out, "frames    %d written, %d dropped, %d failed\n", r.Processed, r.Dropped, r.Failed)
	if r.Export != "" {
		fmt.Fprintf(out, "export    %s\n", r.Export)
	}
}

// validate loads the configuration and checks everything a run would reject.
func validate(configDir string, out io.Writer) error {
	loadErr := config.Load(configDir)
	if loadErr != nil {
		fmt.Fprintf(out, "config: %v (using defaults)\n", loadErr)
	}

	var errs []error
	vcfg, err := config.GetVehicleConfig()
	if err != nil {
		errs = append(errs, err)
	} else if err := vcfg.Validate(); err != nil {
		errs = append(errs, err)
	}
	simCfg := config.GetSimConfig()
	if simCfg.FixedStep <= 0 {
		errs = append(errs, fmt.Errorf("sim.fixedStep must be positive, got %s", simCfg.FixedStep))
	}
	if simCfg.FrameInterval <= 0 {
		errs = append(errs, fmt.Errorf("sim.frameInterval must be positive, got %s", simCfg.FrameInterval))
	}
	if simCfg.MaxCatchUp < 0 {
		errs = append(errs, fmt.Errorf("sim.maxCatchUp must not be negative, got %d", simCfg.MaxCatchUp))
	}
	if t := config.GetTelemetryConfig().Type; !factory.Supported(t) {
		errs = append(errs, fmt.Errorf("telemetry.type %q is not supported", t))
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	fmt.Fprintf(out, "config ok: drift threshold %.0f, creep brake %.0f Nm\n",
		vehicle.DriftSpeedThreshold, vcfg.CreepBrakeTorque())
	return nil
}
