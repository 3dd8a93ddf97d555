// Package telemetry configures the global OpenTelemetry tracer and meter
// providers.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"

	"github.com/fd1az/reserve-relayer/internal/logger"
)

// Exporter names a trace exporter.
type Exporter string

const (
	ZipkinExporter   Exporter = "zipkin"
	OTLPGRPCExporter Exporter = "otlp-grpc"
	OTLPHTTPExporter Exporter = "otlp-http"
	StdoutExporter   Exporter = "stdout"
	NoExporter       Exporter = "none"
)

// Config selects exporters.
type Config struct {
	ServiceName string
	Environment string
	// TracingEnabled turns on span export through Exporter.
	TracingEnabled bool
	Exporter       Exporter
	Endpoint       string
	Headers        map[string]string
	SampleRatio    float64
	// OTLPMetrics pushes metrics to Endpoint in addition to the Prometheus reader.
	OTLPMetrics bool
}

// Provider owns the SDK providers so they can be flushed on shutdown.
type Provider struct {
	tp *sdktrace.TracerProvider
	mp *sdkmetric.MeterProvider
}

// Setup installs the global tracer provider, meter provider and propagator.
// Metrics always get a Prometheus reader, served by promhttp on /metrics.
func Setup(ctx context.Context, cfg Config, log logger.LoggerInterface) (*Provider, error) {
	rsrc, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(cfg.ServiceName),
			attribute.String("deployment.environment", cfg.Environment),
		))
	if err != nil {
		// Schema conflicts only drop attributes; fall back to ours.
		rsrc = resource.NewSchemaless(semconv.ServiceNameKey.String(cfg.ServiceName))
	}

	p := &Provider{}

	if cfg.TracingEnabled && cfg.Exporter != NoExporter {
		exp, err := newTraceExporter(ctx, cfg)
		if err != nil {
			return nil, err
		}

		p.tp = sdktrace.NewTracerProvider(
			sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(sampleRatio(cfg.SampleRatio)))),
			sdktrace.WithBatcher(exp),
			sdktrace.WithResource(rsrc),
		)
		otel.SetTracerProvider(p.tp)
		log.Info(ctx, "tracing enabled", "exporter", string(cfg.Exporter), "endpoint", cfg.Endpoint)
	}

	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))

	readers, err := metricReaders(ctx, cfg)
	if err != nil {
		return nil, err
	}

	opts := []sdkmetric.Option{sdkmetric.WithResource(rsrc)}
	for _, r := range readers {
		opts = append(opts, sdkmetric.WithReader(r))
	}
	p.mp = sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(p.mp)

	return p, nil
}

// Shutdown flushes and stops both providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var errs []error
	if p.tp != nil {
		errs = append(errs, p.tp.Shutdown(ctx))
	}
	if p.mp != nil {
		errs = append(errs, p.mp.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

func newTraceExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	switch cfg.Exporter {
	case ZipkinExporter:
		return zipkin.New(cfg.Endpoint)
	case OTLPGRPCExporter:
		return otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpointURL(cfg.Endpoint),
			otlptracegrpc.WithHeaders(cfg.Headers),
		)
	case OTLPHTTPExporter:
		return otlptracehttp.New(ctx,
			otlptracehttp.WithEndpointURL(cfg.Endpoint),
			otlptracehttp.WithHeaders(cfg.Headers),
		)
	case StdoutExporter:
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	default:
		return nil, fmt.Errorf("telemetry: unknown trace exporter %q", cfg.Exporter)
	}
}

func metricReaders(ctx context.Context, cfg Config) ([]sdkmetric.Reader, error) {
	promExporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("telemetry: prometheus exporter: %w", err)
	}
	readers := []sdkmetric.Reader{promExporter}

	if cfg.OTLPMetrics {
		exp, err := otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpointURL(cfg.Endpoint),
			otlpmetricgrpc.WithHeaders(cfg.Headers),
		)
		if err != nil {
			return nil, fmt.Errorf("telemetry: otlp metric exporter: %w", err)
		}
		readers = append(readers, sdkmetric.NewPeriodicReader(exp))
	}

	return readers, nil
}

func sampleRatio(r float64) float64 {
	if r <= 0 || r > 1 {
		return 1
	}
	return r
}
