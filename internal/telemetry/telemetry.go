// Package telemetry wires OpenTelemetry for batch runs. It is off by default;
// when off, no-op providers are installed.
//
//	CASEFLOW_OTEL_ENABLED=true   enable traces and metrics
//	CASEFLOW_OTEL_STDOUT=true    pretty-print spans and metrics to stderr
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/sdk/resource"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const instrumentationScope = "github.com/joseph-ayodele/caseflow"

type Config struct {
	Enabled     bool
	Stdout      bool
	ServiceName string
	Version     string
	// Writer receives stdout exporter output; nil means stderr.
	Writer io.Writer
}

// Providers holds what Init installed so it can be flushed at exit.
type Providers struct {
	shutdownFns []func(context.Context) error
}

// Init installs global tracer and meter providers.
func Init(ctx context.Context, cfg Config) (*Providers, error) {
	p := &Providers{}
	if !cfg.Enabled {
		otel.SetTracerProvider(tracenoop.NewTracerProvider())
		otel.SetMeterProvider(metricnoop.NewMeterProvider())
		return p, nil
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "caseflow"
	}
	w := cfg.Writer
	if w == nil {
		w = os.Stderr
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(cfg.Version),
		),
		resource.WithHost(),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: resource: %w", err)
	}

	tpOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	}
	mpOpts := []sdkmetric.Option{sdkmetric.WithResource(res)}

	if cfg.Stdout {
		texp, err := stdouttrace.New(stdouttrace.WithPrettyPrint(), stdouttrace.WithWriter(w))
		if err != nil {
			return nil, fmt.Errorf("telemetry: stdout trace exporter: %w", err)
		}
		tpOpts = append(tpOpts, sdktrace.WithBatcher(texp))

		mexp, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
		if err != nil {
			return nil, fmt.Errorf("telemetry: stdout metric exporter: %w", err)
		}
		mpOpts = append(mpOpts, sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(mexp, sdkmetric.WithInterval(15*time.Second)),
		))
	}

	tp := sdktrace.NewTracerProvider(tpOpts...)
	otel.SetTracerProvider(tp)
	p.shutdownFns = append(p.shutdownFns, tp.Shutdown)

	mp := sdkmetric.NewMeterProvider(mpOpts...)
	otel.SetMeterProvider(mp)
	p.shutdownFns = append(p.shutdownFns, mp.Shutdown)

	return p, nil
}

// Shutdown flushes spans and metrics.
func (p *Providers) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	var errs []error
	for _, fn := range p.shutdownFns {
		errs = append(errs, fn(ctx))
	}
	p.shutdownFns = nil
	return errors.Join(errs...)
}

func Tracer(name string) trace.Tracer {
	if name == "" {
		name = instrumentationScope
	}
	return otel.Tracer(name)
}

func Meter(name string) metric.Meter {
	if name == "" {
		name = instrumentationScope
	}
	return otel.Meter(name)
}

// RunMetrics are the instruments recorded by the batch driver.
type RunMetrics struct {
	rows     metric.Int64Counter
	duration metric.Float64Histogram
}

// NewRunMetrics creates the batch instruments on the global meter provider.
func NewRunMetrics() (*RunMetrics, error) {
	m := Meter("")
	rows, err := m.Int64Counter("caseflow.rows",
		metric.WithDescription("Ledger rows processed, by final status"))
	if err != nil {
		return nil, err
	}
	duration, err := m.Float64Histogram("caseflow.row.duration",
		metric.WithDescription("Time spent processing one row"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	return &RunMetrics{rows: rows, duration: duration}, nil
}

// RecordRow counts one processed row. Nil receivers are ignored.
func (m *RunMetrics) RecordRow(ctx context.Context, status, failedStage string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("status", status),
		attribute.String("failed_stage", failedStage),
	)
	m.rows.Add(ctx, 1, attrs)
	m.duration.Record(ctx, elapsed.Seconds(), attrs)
}
