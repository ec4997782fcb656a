// AngelaMos | 2026
// telemetry.go

package core

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/carterperez-dev/insighta/internal/config"
)

const (
	defaultSampleRate = 0.1
	exportTimeout     = 5 * time.Second
	flushTimeout      = 10 * time.Second
)

type Telemetry struct {
	provider *sdktrace.TracerProvider
	Tracer   trace.Tracer
}

// NewTelemetry always yields a working tracer. With export disabled the
// spans stay in process, which is enough for trace ids in request logs.
func NewTelemetry(
	ctx context.Context,
	otelCfg config.OtelConfig,
	appCfg config.AppConfig,
) (*Telemetry, error) {
	name := otelCfg.ServiceName
	if name == "" {
		name = appCfg.Name
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	opts := []sdktrace.TracerProviderOption{}

	if otelCfg.Enabled && otelCfg.Endpoint != "" {
		exporter, err := newExporter(ctx, otelCfg)
		if err != nil {
			return nil, err
		}

		res, err := newResource(ctx, name, appCfg)
		if err != nil {
			return nil, err
		}

		opts = append(opts,
			sdktrace.WithBatcher(exporter,
				sdktrace.WithBatchTimeout(exportTimeout),
				sdktrace.WithMaxExportBatchSize(512),
			),
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sdktrace.ParentBased(
				sdktrace.TraceIDRatioBased(sampleRate(otelCfg.SampleRate)),
			)),
		)
	}

	provider := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(provider)

	return &Telemetry{provider: provider, Tracer: provider.Tracer(name)}, nil
}

func newExporter(ctx context.Context, cfg config.OtelConfig) (sdktrace.SpanExporter, error) {
	creds := credentials.NewClientTLSFromCert(nil, "")
	if cfg.Insecure {
		creds = insecure.NewCredentials()
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
		otlptracegrpc.WithTimeout(exportTimeout),
		otlptracegrpc.WithTLSCredentials(creds),
	)
	if err != nil {
		return nil, fmt.Errorf("create otlp exporter: %w", err)
	}
	return exporter, nil
}

func newResource(ctx context.Context, name string, app config.AppConfig) (*resource.Resource, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(name),
			semconv.ServiceVersion(app.Version),
			attribute.String("environment", app.Environment),
		),
		resource.WithHost(),
		resource.WithProcess(),
	)
	if err != nil {
		return nil, fmt.Errorf("create otel resource: %w", err)
	}
	return res, nil
}

func sampleRate(rate float64) float64 {
	if rate <= 0 || rate > 1 {
		return defaultSampleRate
	}
	return rate
}

// Shutdown flushes pending spans.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil || t.provider == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, flushTimeout)
	defer cancel()

	if err := t.provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("flush spans: %w", err)
	}
	return nil
}

func TraceIDFromContext(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}

func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(attrs...))
}

// SetSpanError records err on the active span and marks it failed.
func SetSpanError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
