package tracing

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/extra/redisotel/v8"
	"github.com/go-redis/redis/v8"
	"github.com/honeycombio/otel-config-go/otelconfig"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var GlobalTracer = otel.Tracer("workout-companion")

// EndSpanWithErrCheck ends the span, recording the error on it first
// when there is one.
func EndSpanWithErrCheck(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	}
	span.End()
}

// HoneycombSetup configures the OpenTelemetry pipeline (exporting to
// Honeycomb via the standard env vars) and instruments the redis
// client. The returned shutdown func flushes and stops the exporter.
func HoneycombSetup(
	ctx context.Context,
	serviceName string,
	rdb *redis.Client,
) (shutdown func(), err error) {
	_, span := GlobalTracer.Start(ctx, "tracing.honeycombSetup")
	defer func() {
		EndSpanWithErrCheck(span, err)
	}()

	otelShutdown, err := otelconfig.ConfigureOpenTelemetry(
		otelconfig.WithServiceName(serviceName),
	)
	if err != nil {
		return nil, fmt.Errorf("configure opentelemetry: %w", err)
	}

	rdb.AddHook(redisotel.NewTracingHook())

	return otelShutdown, nil
}
