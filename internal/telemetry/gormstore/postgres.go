package gormstore

import (
	"fmt"
	"log/slog"

	"github.com/driftworks/vehiclectl/internal/config"
)

// NewPostgres connects to Postgres and returns a backend that flushes every
// cfg.FlushInterval.
func NewPostgres(cfg config.PostgresConfig, logger *slog.Logger) (*Backend, error) {
	db, err := OpenPostgres(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return New(db, Options{
		FlushInterval: cfg.FlushInterval,
		Logger:        logger,
	}), nil
}
