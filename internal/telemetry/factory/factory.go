// Package factory builds the telemetry backend selected by configuration.
package factory

import (
	"fmt"
	"log/slog"

	"github.com/rs/zerolog"

	"github.com/driftworks/vehiclectl/internal/config"
	"github.com/driftworks/vehiclectl/internal/logging"
	"github.com/driftworks/vehiclectl/internal/telemetry"
	"github.com/driftworks/vehiclectl/internal/telemetry/gormstore"
	"github.com/driftworks/vehiclectl/internal/telemetry/influx"
	"github.com/driftworks/vehiclectl/internal/telemetry/memory"
	"github.com/driftworks/vehiclectl/internal/telemetry/websocket"
)

// Types lists the accepted values of telemetry.type.
var Types = []string{"memory", "sqlite", "postgres", "influx", "websocket", "none"}

// New builds the frame sink named by cfg.Type. An empty type means memory.
// Init is left to the caller. The influx sink logs through zl.
func New(cfg config.TelemetryConfig, logger *slog.Logger, zl zerolog.Logger) (telemetry.Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Type {
	case "sqlite":
		backend, err := gormstore.NewSQLite(cfg.SQLite, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		logger.Info("SQLite telemetry backend initialized", "dir", cfg.SQLite.OutputDir)
		return backend, nil

	case "postgres":
		backend, err := gormstore.NewPostgres(cfg.Postgres, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create Postgres backend: %w", err)
		}
		logger.Info("Postgres telemetry backend initialized", "host", cfg.Postgres.Host)
		return backend, nil

	case "influx":
		logger.Info("InfluxDB telemetry backend initialized", "url", influx.ServerURL(cfg.Influx))
		return influx.New(cfg.Influx, logging.NewZerologAdapter(zl)), nil

	case "websocket":
		logger.Info("WebSocket telemetry backend initialized", "url", cfg.WebSocket.URL)
		return websocket.New(cfg.WebSocket, logger), nil

	case "none":
		logger.Info("Telemetry disabled")
		return telemetry.Discard{}, nil

	case "memory", "":
		logger.Info("Memory telemetry backend initialized", "dir", cfg.Memory.OutputDir)
		return memory.New(cfg.Memory, cfg.Origin), nil
	}
	return nil, fmt.Errorf("unknown telemetry type %q", cfg.Type)
}

// Supported reports whether t is a known telemetry type.
func Supported(t string) bool {
	for _, known := range Types {
		if t == known {
			return true
		}
	}
	return false
}
