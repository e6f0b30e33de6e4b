package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// Metrics holds the pipeline's application metrics.
type Metrics struct {
	RequestCount         metric.Int64Counter
	RequestDuration      metric.Float64Histogram
	FallbackDepth        metric.Int64Histogram
	InterpreterFallbacks metric.Int64Counter
	CacheHitCount        metric.Int64Counter
	CacheMissCount       metric.Int64Counter
	SessionsSwept        metric.Int64Counter
}

// Setup initializes OpenTelemetry tracing against an OTLP gRPC endpoint.
func Setup(ctx context.Context, serviceName, serviceVersion, endpoint string) (func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	traceExporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tracerProvider.Shutdown, nil
}

// InitMetrics registers the application metric instruments.
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("github.com/pakkapols/techfinder")

	requestCount, err := meter.Int64Counter(
		"chat.request.count",
		metric.WithDescription("Number of chat pipeline invocations"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"chat.request.duration",
		metric.WithDescription("Chat pipeline duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	fallbackDepth, err := meter.Int64Histogram(
		"retrieval.fallback.depth",
		metric.WithDescription("How many fallback queries ran before results were found (0 = primary hit)"),
	)
	if err != nil {
		return nil, err
	}

	interpreterFallbacks, err := meter.Int64Counter(
		"interpreter.fallback.count",
		metric.WithDescription("Times a stage degraded to its deterministic local fallback"),
	)
	if err != nil {
		return nil, err
	}

	cacheHitCount, err := meter.Int64Counter(
		"cache.hit.count",
		metric.WithDescription("Number of cache hits"),
	)
	if err != nil {
		return nil, err
	}

	cacheMissCount, err := meter.Int64Counter(
		"cache.miss.count",
		metric.WithDescription("Number of cache misses"),
	)
	if err != nil {
		return nil, err
	}

	sessionsSwept, err := meter.Int64Counter(
		"session.swept.count",
		metric.WithDescription("Sessions removed by the expiry sweep"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		RequestCount:         requestCount,
		RequestDuration:      requestDuration,
		FallbackDepth:        fallbackDepth,
		InterpreterFallbacks: interpreterFallbacks,
		CacheHitCount:        cacheHitCount,
		CacheMissCount:       cacheMissCount,
		SessionsSwept:        sessionsSwept,
	}, nil
}

// StartSpan starts a new trace span
func StartSpan(ctx context.Context, spanName string) (context.Context, trace.Span) {
	tracer := otel.Tracer("github.com/pakkapols/techfinder")
	return tracer.Start(ctx, spanName)
}

// RecordRequestMetric records one pipeline invocation.
func RecordRequestMetric(ctx context.Context, metrics *Metrics, outcome string, duration time.Duration) {
	if metrics == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("chat.outcome", outcome),
	}
	metrics.RequestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	metrics.RequestDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordFallbackDepth records how deep retrieval had to fall back.
func RecordFallbackDepth(ctx context.Context, metrics *Metrics, depth int) {
	if metrics == nil {
		return
	}
	metrics.FallbackDepth.Record(ctx, int64(depth))
}

// RecordInterpreterFallback counts a stage degrading to its local fallback.
func RecordInterpreterFallback(ctx context.Context, metrics *Metrics, stage string) {
	if metrics == nil {
		return
	}
	metrics.InterpreterFallbacks.Add(ctx, 1, metric.WithAttributes(
		attribute.String("pipeline.stage", stage),
	))
}

// RecordCacheHit records a cache hit
func RecordCacheHit(ctx context.Context, metrics *Metrics, key string) {
	if metrics == nil {
		return
	}
	metrics.CacheHitCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("cache.key", key),
	))
}

// RecordCacheMiss records a cache miss
func RecordCacheMiss(ctx context.Context, metrics *Metrics, key string) {
	if metrics == nil {
		return
	}
	metrics.CacheMissCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("cache.key", key),
	))
}

// RecordSessionsSwept records the size of one expiry sweep.
func RecordSessionsSwept(ctx context.Context, metrics *Metrics, removed int) {
	if metrics == nil || removed == 0 {
		return
	}
	metrics.SessionsSwept.Add(ctx, int64(removed))
}
