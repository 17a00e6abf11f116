package vehicle

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/driftworks/vehiclectl/internal/vehicle"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// instruments holds the controller's OTel metrics. The speed gauge is read by the
// SDK's collection goroutine, so the value is kept in an atomic.
type instruments struct {
	steps  metric.Int64Counter
	shifts metric.Int64Counter
	drifts metric.Int64Counter
	speed  metric.Float64ObservableGauge
	reg    metric.Registration

	speedBits atomic.Uint64
}

func newInstruments(m metric.Meter) (*instruments, error) {
	ins := &instruments{}
	var err error

	ins.steps, err = m.Int64Counter(
		"vehicle.steps",
		metric.WithDescription("Fixed control steps executed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating steps counter: %w", err)
	}

	ins.shifts, err = m.Int64Counter(
		"vehicle.gear.shifts",
		metric.WithDescription("Gear changes, by resulting gear"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating shifts counter: %w", err)
	}

	ins.drifts, err = m.Int64Counter(
		"vehicle.drift.engaged",
		metric.WithDescription("Transitions into drift mode"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating drift counter: %w", err)
	}

	ins.speed, err = m.Float64ObservableGauge(
		"vehicle.speed",
		metric.WithDescription("Body speed at the last step"),
		metric.WithUnit("km/h"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating speed gauge: %w", err)
	}

	ins.reg, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveFloat64(ins.speed, math.Float64frombits(ins.speedBits.Load()))
			return nil
		},
		ins.speed,
	)
	if err != nil {
		return nil, fmt.Errorf("registering speed callback: %w", err)
	}

	return ins, nil
}

// close unregisters the speed callback. Safe to call more than once.
func (ins *instruments) close() error {
	if ins.reg == nil {
		return nil
	}
	err := ins.reg.Unregister()
	ins.reg = nil
	if err != nil {
		return fmt.Errorf("unregistering speed callback: %w", err)
	}
	return nil
}

func (ins *instruments) recordStep(speedKmh float64) {
	ins.steps.Add(context.Background(), 1)
	ins.speedBits.Store(math.Float64bits(speedKmh))
}

func (ins *instruments) recordShift(gear string) {
	ins.shifts.Add(context.Background(), 1, metric.WithAttributes(attribute.String("gear", gear)))
}

func (ins *instruments) recordDriftEngaged() {
	ins.drifts.Add(context.Background(), 1)
}
