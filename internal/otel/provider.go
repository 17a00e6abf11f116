// Package otel wires the OpenTelemetry log pipeline used by the slog bridge and
// hands out meters for the controller and telemetry instruments.
package otel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/metric"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// ErrNoExporter is returned when OTel is enabled with neither a writer nor an endpoint.
var ErrNoExporter = errors.New("otel enabled but no log writer or endpoint configured")

type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	BatchTimeout   time.Duration
	LogWriter      io.Writer // exported records as JSON, usually the run's log file
	Endpoint       string    // OTLP/HTTP host:port
	Insecure       bool
	Attributes     map[string]string
}

// Provider owns the process log provider. The zero value from a disabled config
// is usable and does nothing.
type Provider struct {
	logs *sdklog.LoggerProvider
}

func New(cfg Config) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{}, nil
	}

	ctx := context.Background()
	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, err
	}
	processors, err := newProcessors(ctx, cfg)
	if err != nil {
		return nil, err
	}

	opts := make([]sdklog.LoggerProviderOption, 0, len(processors)+1)
	opts = append(opts, sdklog.WithResource(res))
	for _, p := range processors {
		opts = append(opts, sdklog.WithProcessor(p))
	}
	return &Provider{logs: sdklog.NewLoggerProvider(opts...)}, nil
}

func newResource(ctx context.Context, cfg Config) (*resource.Resource, error) {
	kvs := attributes(cfg.Attributes)
	kvs = append(kvs, semconv.ServiceName(cfg.ServiceName))
	if cfg.ServiceVersion != "" {
		kvs = append(kvs, semconv.ServiceVersion(cfg.ServiceVersion))
	}
	res, err := resource.New(ctx, resource.WithAttributes(kvs...))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

// newProcessors builds one batch processor per configured sink.
func newProcessors(ctx context.Context, cfg Config) ([]sdklog.Processor, error) {
	batch := []sdklog.BatchProcessorOption{sdklog.WithExportTimeout(cfg.BatchTimeout)}
	var out []sdklog.Processor

	if cfg.LogWriter != nil {
		exp, err := stdoutlog.New(stdoutlog.WithWriter(cfg.LogWriter), stdoutlog.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("failed to create file log exporter: %w", err)
		}
		out = append(out, sdklog.NewBatchProcessor(exp, batch...))
	}

	if cfg.Endpoint != "" {
		opts := []otlploghttp.Option{otlploghttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlploghttp.WithInsecure())
		}
		exp, err := otlploghttp.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP log exporter: %w", err)
		}
		out = append(out, sdklog.NewBatchProcessor(exp, batch...))
	}

	if len(out) == 0 {
		return nil, ErrNoExporter
	}
	return out, nil
}

// LoggerProvider is nil when OTel is disabled.
func (p *Provider) LoggerProvider() *sdklog.LoggerProvider {
	return p.logs
}

// Meter returns a meter from the global meter provider, which is a no-op until an
// SDK meter provider is installed.
func (p *Provider) Meter(name string) metric.Meter {
	return otel.GetMeterProvider().Meter(name)
}

// Flush pushes buffered records, e.g. after a run ends.
func (p *Provider) Flush(ctx context.Context) error {
	if p.logs == nil {
		return nil
	}
	if err := p.logs.ForceFlush(ctx); err != nil {
		return fmt.Errorf("log flush failed: %w", err)
	}
	return nil
}

// Shutdown flushes and stops the exporters. The provider is unusable afterwards.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.logs == nil {
		return nil
	}
	err := p.logs.Shutdown(ctx)
	p.logs = nil
	if err != nil {
		return fmt.Errorf("log shutdown failed: %w", err)
	}
	return nil
}
