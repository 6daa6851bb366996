// Package exporters builds the OpenTelemetry span exporters and metric
// readers that observe.Config names.
package exporters

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const (
	Stdout     = "stdout"
	OTLP       = "otlp"
	Jaeger     = "jaeger"
	Prometheus = "prometheus"
	None       = "none"
)

type (
	spanFactory   func(context.Context) (sdktrace.SpanExporter, error)
	readerFactory func(context.Context) (sdkmetric.Reader, error)
)

// Jaeger ingests OTLP, so it shares the gRPC exporter and differs only in
// which variable must point at the collector.
var spanFactories = map[string]spanFactory{
	Stdout: func(context.Context) (sdktrace.SpanExporter, error) {
		return stdouttrace.New(stdouttrace.WithWriter(os.Stdout))
	},
	OTLP: func(ctx context.Context) (sdktrace.SpanExporter, error) {
		if err := requireEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"); err != nil {
			return nil, err
		}
		return otlptracegrpc.New(ctx)
	},
	Jaeger: func(ctx context.Context) (sdktrace.SpanExporter, error) {
		if err := requireEnv("OTEL_EXPORTER_JAEGER_ENDPOINT"); err != nil {
			return nil, err
		}
		return otlptracegrpc.New(ctx)
	},
	None: func(context.Context) (sdktrace.SpanExporter, error) {
		return stdouttrace.New(stdouttrace.WithWriter(io.Discard))
	},
}

var readerFactories = map[string]readerFactory{
	Stdout: func(context.Context) (sdkmetric.Reader, error) {
		return periodic(stdoutmetric.New(stdoutmetric.WithWriter(os.Stdout)))
	},
	OTLP: func(ctx context.Context) (sdkmetric.Reader, error) {
		if err := requireEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_METRICS_ENDPOINT"); err != nil {
			return nil, err
		}
		return periodic(otlpmetricgrpc.New(ctx))
	},
	Prometheus: func(context.Context) (sdkmetric.Reader, error) {
		return prometheus.New()
	},
	None: func(context.Context) (sdkmetric.Reader, error) {
		return periodic(stdoutmetric.New(stdoutmetric.WithWriter(io.Discard)))
	},
}

func periodic(exp sdkmetric.Exporter, err error) (sdkmetric.Reader, error) {
	if err != nil {
		return nil, err
	}
	return sdkmetric.NewPeriodicReader(exp), nil
}

// requireEnv fails unless at least one of keys is set.
func requireEnv(keys ...string) error {
	for _, k := range keys {
		if os.Getenv(k) != "" {
			return nil
		}
	}
	return fmt.Errorf("exporter endpoint not configured: set %s", strings.Join(keys, " or "))
}

func canonical(name string) string {
	if name == "" {
		return None
	}
	return name
}

// ValidTracingExporter reports whether name is a known tracing exporter.
// The empty string means none.
func ValidTracingExporter(name string) bool {
	_, ok := spanFactories[canonical(name)]
	return ok
}

// ValidMetricsExporter reports whether name is a known metrics exporter.
func ValidMetricsExporter(name string) bool {
	_, ok := readerFactories[canonical(name)]
	return ok
}

// NewTracingExporter creates the span exporter called name.
func NewTracingExporter(ctx context.Context, name string) (sdktrace.SpanExporter, error) {
	f, ok := spanFactories[canonical(name)]
	if !ok {
		return nil, fmt.Errorf("unknown exporter: %q", name)
	}
	exp, err := f(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s trace exporter: %w", name, err)
	}
	return exp, nil
}

// NewMetricsReader creates the metric reader called name.
func NewMetricsReader(ctx context.Context, name string) (sdkmetric.Reader, error) {
	f, ok := readerFactories[canonical(name)]
	if !ok {
		return nil, fmt.Errorf("unknown metrics exporter: %q", name)
	}
	r, err := f(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s metrics reader: %w", name, err)
	}
	return r, nil
}
