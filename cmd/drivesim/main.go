// Command drivesim opens a window and drives the reference vehicle from the
// keyboard, recording the session to the configured telemetry backend.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/driftworks/vehiclectl/internal/config"
	"github.com/driftworks/vehiclectl/internal/drive"
	"github.com/driftworks/vehiclectl/internal/input/keyboard"
	"github.com/driftworks/vehiclectl/internal/logging"
	"github.com/driftworks/vehiclectl/internal/monitor"
	"github.com/driftworks/vehiclectl/internal/physics/sim"
	"github.com/driftworks/vehiclectl/internal/telemetry"
	"github.com/driftworks/vehiclectl/internal/telemetry/factory"
)

const AppName = "drivesim"

func main() {
	configDir := "."
	if len(os.Args) == 3 && (os.Args[1] == "-config" || os.Args[1] == "--config") {
		configDir = os.Args[2]
	} else if len(os.Args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: drivesim [-config <dir>]")
		os.Exit(2)
	}

	if err := run(configDir); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(configDir string) (err error) {
	start := time.Now()
	lm := logging.NewSlogManager()
	lm.Setup(nil, "info", nil)
	logger := lm.Logger()

	if err := config.Load(configDir); err != nil {
		logger.Warn("Failed to load config, using defaults!", "error", err)
	}

	logsDir := config.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return fmt.Errorf("create logs dir: %w", err)
	}
	logFile, err := os.OpenFile(logging.LogFilePath(logsDir, AppName, start), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()

	g := newGame()
	lm.SetContextProvider(func() []slog.Attr {
		if g.rig == nil {
			return nil
		}
		return []slog.Attr{slog.Uint64("step", g.rig.Controller().Steps())}
	})
	lm.Setup(logFile, config.GetString("logLevel"), nil)
	logger = lm.Logger()

	vcfg, err := config.GetVehicleConfig()
	if err != nil {
		return err
	}

	telCfg := config.GetTelemetryConfig()
	zl := zerolog.New(zerolog.ConsoleWriter{Out: logFile, TimeFormat: time.RFC3339, NoColor: true}).
		With().Timestamp().Str("component", telCfg.Type).Logger()
	backend, err := factory.New(telCfg, logger, zl)
	if err != nil {
		return err
	}
	if err := backend.Init(); err != nil {
		return errors.Join(fmt.Errorf("failed to initialize telemetry backend: %w", err), backend.Close())
	}
	defer func() { err = errors.Join(err, backend.Close()) }()

	simCfg := config.GetSimConfig()
	session := telemetry.NewSession(AppName, "sim", simCfg.FixedStep)
	if err := backend.StartSession(session); err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	recorder, err := telemetry.NewRecorder(backend, telCfg.BufferSize, logger.With("component", "recorder"))
	if err != nil {
		return err
	}

	transforms := g.transforms()
	g.rig, err = drive.New(drive.Options{
		Vehicle:    vcfg,
		Chassis:    sim.DefaultParams(),
		Sim:        simCfg,
		Device:     keyboard.New(keyboard.DefaultBindings()),
		Recorder:   recorder,
		Transforms: &transforms,
		Logger:     logger,
	})
	if err != nil {
		recorder.Close()
		return errors.Join(err, backend.EndSession())
	}

	defer g.rig.Close()

	g.status = monitor.NewService(monitor.Dependencies{
		StatusFile: filepath.Join(logsDir, AppName+".status.json"),
		Session:    session,
		Recorder:   recorder,
		Logger:     logger,
	})
	if err := g.status.Start(); err != nil {
		logger.Warn("Status monitor disabled", "error", err)
	}

	logger.Info("Opening window", "session", session.ID, "fixedStep", simCfg.FixedStep)
	runErr := g.run()

	g.status.Stop()
	recorder.Close()
	endErr := backend.EndSession()
	logger.Info("Session ended",
		"steps", g.rig.Controller().Steps(),
		"processed", recorder.Processed(),
		"dropped", recorder.Dropped(),
	)
	if exp, ok := backend.(telemetry.Exporter); ok && exp.ExportedFilePath() != "" {
		fmt.Println("telemetry written to", exp.ExportedFilePath())
	}
	return errors.Join(runErr, endErr)
}
