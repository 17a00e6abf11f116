package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/rs/zerolog"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/driftworks/vehiclectl/internal/config"
	"github.com/driftworks/vehiclectl/internal/logging"
	intOtel "github.com/driftworks/vehiclectl/internal/otel"
	"github.com/driftworks/vehiclectl/internal/vehicle"
)

// app holds the process-wide services a command needs: config, logging and
// the OTel provider.
type app struct {
	start time.Time

	slogManager *logging.SlogManager
	logger      *slog.Logger
	otel        *intOtel.Provider

	logFile     *os.File
	logFilePath string
	closers     []io.Closer

	// read by the log context provider; nil until a run starts
	controller *vehicle.Controller
}

func newApp(configDir string) (*app, error) {
	a := &app{
		start:       time.Now(),
		slogManager: logging.NewSlogManager(),
	}

	// stdout until the log file exists
	a.slogManager.Setup(nil, "info", nil)
	a.logger = a.slogManager.Logger()

	if err := config.Load(configDir); err != nil {
		a.logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		a.logger.Info("Loaded config", "dir", configDir)
	}

	logsDir := config.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create logs dir: %w", err)
	}
	a.logFilePath = logging.LogFilePath(logsDir, AppName, a.start)
	f, err := os.OpenFile(a.logFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	a.logFile = f

	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		a.otel, err = intOtel.New(intOtel.Config{
			Enabled:        otelCfg.Enabled,
			ServiceName:    otelCfg.ServiceName,
			ServiceVersion: CurrentVersion,
			BatchTimeout:   otelCfg.BatchTimeout,
			LogWriter:      a.logFile,
			Endpoint:       otelCfg.Endpoint,
			Insecure:       otelCfg.Insecure,
			Attributes:     map[string]string{"app.name": AppName},
		})
		if err != nil {
			a.logger.Error("Failed to initialize OTel provider", "error", err)
		}
	}

	var extra []slog.Handler
	if gl := config.GetGraylogConfig(); gl.Enabled {
		h, closer, err := logging.NewGELFHandler(gl.Address, config.GetString("logLevel"))
		if err != nil {
			a.logger.Error("Failed to set up Graylog handler", "error", err)
		} else {
			extra = append(extra, h)
			a.closers = append(a.closers, closer)
		}
	}

	var provider *sdklog.LoggerProvider
	if a.otel != nil {
		provider = a.otel.LoggerProvider()
	}
	a.slogManager.SetContextProvider(a.logContext)
	a.slogManager.Setup(a.logFile, config.GetString("logLevel"), provider, extra...)
	a.logger = a.slogManager.Logger()
	a.logger.Info("Logging to file", "path", a.logFilePath, "version", CurrentVersion)
	return a, nil
}

func (a *app) logContext() []slog.Attr {
	if a.controller == nil {
		return nil
	}
	return []slog.Attr{
		slog.Uint64("step", a.controller.Steps()),
		slog.String("gear", a.controller.Gear().String()),
	}
}

// zerolog returns a logger writing to the app log file, for sinks that take
// the zerolog-backed logging.Logger.
func (a *app) zerolog(component string) zerolog.Logger {
	var w io.Writer = io.Discard
	if a.logFile != nil {
		w = zerolog.ConsoleWriter{Out: a.logFile, TimeFormat: time.RFC3339, NoColor: true}
	}
	return zerolog.New(w).With().Timestamp().Str("component", component).Logger()
}

// Close flushes logs and releases files.
func (a *app) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var errs []error
	if a.otel != nil {
		errs = append(errs, a.otel.Flush(ctx), a.otel.Shutdown(ctx))
	}
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	if a.logFile != nil {
		errs = append(errs, a.logFile.Close())
	}
	return errors.Join(errs...)
}
