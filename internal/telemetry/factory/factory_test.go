package factory

import (
	"io"
	"log/slog"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftworks/vehiclectl/internal/config"
	"github.com/driftworks/vehiclectl/internal/telemetry"
	"github.com/driftworks/vehiclectl/internal/telemetry/gormstore"
	"github.com/driftworks/vehiclectl/internal/telemetry/influx"
	"github.com/driftworks/vehiclectl/internal/telemetry/memory"
	"github.com/driftworks/vehiclectl/internal/telemetry/websocket"
)

// Compile-time interface checks.
var (
	_ telemetry.Backend  = (*memory.Backend)(nil)
	_ telemetry.Backend  = (*gormstore.Backend)(nil)
	_ telemetry.Backend  = (*gormstore.SQLite)(nil)
	_ telemetry.Backend  = (*influx.Backend)(nil)
	_ telemetry.Backend  = (*websocket.Backend)(nil)
	_ telemetry.Exporter = (*memory.Backend)(nil)
	_ telemetry.Exporter = (*gormstore.SQLite)(nil)
	_ telemetry.Exporter = (*influx.Backend)(nil)
)

func TestNew(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tests := []struct {
		typ  string
		want any
	}{
		{"", &memory.Backend{}},
		{"memory", &memory.Backend{}},
		{"none", telemetry.Discard{}},
		{"influx", &influx.Backend{}},
		{"websocket", &websocket.Backend{}},
		{"sqlite", &gormstore.SQLite{}},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			b, err := New(config.TelemetryConfig{Type: tt.typ}, logger, zerolog.Nop())
			require.NoError(t, err)
			assert.IsType(t, tt.want, b)
			if s, ok := b.(*gormstore.SQLite); ok {
				assert.NoError(t, s.Close())
			}
		})
	}
}

func TestNew_Unknown(t *testing.T) {
	_, err := New(config.TelemetryConfig{Type: "kafka"}, nil, zerolog.Nop())
	assert.ErrorContains(t, err, `unknown telemetry type "kafka"`)
}

func TestSupported(t *testing.T) {
	for _, typ := range Types {
		assert.True(t, Supported(typ), typ)
	}
	assert.False(t, Supported("kafka"))
	assert.False(t, Supported(""))
}
