// Package observability wires the compile pipeline into OpenTelemetry.
// Instruments are created from the globally registered providers, so an
// application that never installs an SDK pays only for no-op calls.
package observability

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	// TracerName identifies spans emitted by this library.
	TracerName = "github.com/nlstn/go-filter"
	// MeterName identifies metric instruments emitted by this library.
	MeterName = "github.com/nlstn/go-filter"
)

// Attribute keys used on compile spans and metrics.
const (
	AttrInputLength = "filter.input.length"
	AttrTargetType  = "filter.target.type"
	AttrStage       = "filter.stage"
)

// Compile pipeline stages, recorded on error counters.
const (
	StageTokenize = "tokenize"
	StageParse    = "parse"
	StageBind     = "bind"
)

// Instruments bundles the tracer and metric instruments for the
// compile pipeline.
type Instruments struct {
	tracer          trace.Tracer
	compileDuration metric.Float64Histogram
	compileCount    metric.Int64Counter
	errorCount      metric.Int64Counter
	cacheHits       metric.Int64Counter
	cacheMisses     metric.Int64Counter
}

var (
	defaultOnce sync.Once
	defaultInst *Instruments
)

// Default returns the process-wide instruments, built lazily from the
// global otel providers.
func Default() *Instruments {
	defaultOnce.Do(func() {
		defaultInst = New(otel.GetTracerProvider(), otel.GetMeterProvider())
	})
	return defaultInst
}

// New creates instruments from explicit providers.
func New(tp trace.TracerProvider, mp metric.MeterProvider) *Instruments {
	meter := mp.Meter(MeterName)
	inst := &Instruments{tracer: tp.Tracer(TracerName)}

	inst.compileDuration, _ = meter.Float64Histogram(
		"filter.compile.duration",
		metric.WithDescription("Duration of filter expression compilations in milliseconds"),
		metric.WithUnit("ms"),
	)
	inst.compileCount, _ = meter.Int64Counter(
		"filter.compile.count",
		metric.WithDescription("Total number of filter expression compilations"),
		metric.WithUnit("{compilation}"),
	)
	inst.errorCount, _ = meter.Int64Counter(
		"filter.compile.errors",
		metric.WithDescription("Total number of failed filter expression compilations"),
		metric.WithUnit("{error}"),
	)
	inst.cacheHits, _ = meter.Int64Counter(
		"filter.cache.hits",
		metric.WithDescription("Compiled predicate cache hits"),
		metric.WithUnit("{hit}"),
	)
	inst.cacheMisses, _ = meter.Int64Counter(
		"filter.cache.misses",
		metric.WithDescription("Compiled predicate cache misses"),
		metric.WithUnit("{miss}"),
	)

	return inst
}

// StartCompile starts a span for one Deserialize call.
func (i *Instruments) StartCompile(ctx context.Context, targetType string, inputLen int) (context.Context, trace.Span) {
	return i.tracer.Start(ctx, "filter.deserialize", trace.WithAttributes(
		attribute.String(AttrTargetType, targetType),
		attribute.Int(AttrInputLength, inputLen),
	))
}

// EndCompile records the outcome of one Deserialize call on the span
// and the metric instruments. stage names the pipeline stage that
// failed and is empty on success.
func (i *Instruments) EndCompile(ctx context.Context, span trace.Span, targetType string, start time.Time, stage string, err error) {
	attrs := metric.WithAttributes(attribute.String(AttrTargetType, targetType))

	i.compileCount.Add(ctx, 1, attrs)
	i.compileDuration.Record(ctx, float64(time.Since(start).Microseconds())/1000.0, attrs)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		i.errorCount.Add(ctx, 1, metric.WithAttributes(
			attribute.String(AttrTargetType, targetType),
			attribute.String(AttrStage, stage),
		))
	}
	span.End()
}

// RecordCacheHit counts a predicate cache hit or miss.
func (i *Instruments) RecordCacheHit(ctx context.Context, hit bool) {
	if hit {
		i.cacheHits.Add(ctx, 1)
		return
	}
	i.cacheMisses.Add(ctx, 1)
}
