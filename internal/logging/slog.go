package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// instrumentation scope reported through the OTel bridge
const scopeName = "vehiclectl"

// overridden in tests
var stdout io.Writer = os.Stdout

// SlogManager builds the process logger: a text sink (log file or stdout), the
// OTel bridge when a provider is given, and any extra sinks such as GELF.
type SlogManager struct {
	logger   *slog.Logger
	provider ContextProvider
	otelLogs *sdklog.LoggerProvider
}

func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// ParseLevel accepts slog level names in any case, including offsets such as
// "warn+2". Anything else is info.
func ParseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return slog.LevelInfo
	}
	return l
}

// HandlerOptions returns the options every text sink shares: the given level and
// RFC3339 UTC timestamps.
func HandlerOptions(level string) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level: ParseLevel(level),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key != slog.TimeKey || len(groups) > 0 {
				return a
			}
			if t, ok := a.Value.Any().(time.Time); ok {
				a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
			}
			return a
		},
	}
}

// SetContextProvider registers attrs appended to every record, such as the current
// step and gear. Takes effect on the next Setup.
func (m *SlogManager) SetContextProvider(p ContextProvider) {
	m.provider = p
}

// Setup replaces the logger. Records go to file when given, otherwise to stdout.
// A nil provider disables the OTel bridge.
func (m *SlogManager) Setup(file io.Writer, level string, provider *sdklog.LoggerProvider, extra ...slog.Handler) {
	m.otelLogs = provider

	w := file
	if w == nil {
		w = stdout
	}
	sinks := []slog.Handler{slog.NewTextHandler(w, HandlerOptions(level))}
	if provider != nil {
		sinks = append(sinks, otelslog.NewHandler(scopeName, otelslog.WithLoggerProvider(provider)))
	}
	sinks = append(sinks, extra...)

	var h slog.Handler = NewTee(sinks...)
	if m.provider != nil {
		h = NewSimContext(h, m.provider)
	}
	m.logger = slog.New(h)
	m.logger.Debug("Logging initialized", "level", ParseLevel(level).String())
}

// Logger is slog.Default until Setup runs.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// Flush pushes buffered OTel records, if the bridge is on.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.otelLogs == nil {
		return nil
	}
	return m.otelLogs.ForceFlush(ctx)
}
