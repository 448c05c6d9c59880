package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"go.aimuz.me/filipimo/internal/types"
)

const instrumentationName = "go.aimuz.me/filipimo/pipeline"

// instruments records pipeline metrics and spans on the global otel
// providers. The host decides whether anything is exported.
type instruments struct {
	tracer      trace.Tracer
	issuedC     metric.Int64Counter
	adoptedC    metric.Int64Counter
	staleC      metric.Int64Counter
	failedC     metric.Int64Counter
	scanFailedC metric.Int64Counter
	latency     metric.Float64Histogram
}

func newInstruments(logger *slog.Logger) *instruments {
	inst, err := buildInstruments(otel.Meter(instrumentationName))
	if err != nil {
		logger.Warn("failed to initialize metrics", "error", err)
		inst, _ = buildInstruments(noop.NewMeterProvider().Meter(instrumentationName))
	}
	inst.tracer = otel.Tracer(instrumentationName)
	return inst
}

func buildInstruments(meter metric.Meter) (*instruments, error) {
	var (
		inst instruments
		errs [6]error
	)
	inst.issuedC, errs[0] = meter.Int64Counter("filipimo.translations.issued",
		metric.WithDescription("Translation requests issued after settle"))
	inst.adoptedC, errs[1] = meter.Int64Counter("filipimo.translations.adopted",
		metric.WithDescription("Translation results adopted as the displayed translation"))
	inst.staleC, errs[2] = meter.Int64Counter("filipimo.translations.stale",
		metric.WithDescription("Translation results discarded as superseded"))
	inst.failedC, errs[3] = meter.Int64Counter("filipimo.translations.failed",
		metric.WithDescription("Latest translation results carrying an error"))
	inst.scanFailedC, errs[4] = meter.Int64Counter("filipimo.scans.failed",
		metric.WithDescription("Image scans that produced no usable text"))
	inst.latency, errs[5] = meter.Float64Histogram("filipimo.translation.latency",
		metric.WithDescription("Translation call latency"),
		metric.WithUnit("ms"))
	return &inst, errors.Join(errs[:]...)
}

func pairAttrs(req types.TranslateRequest, extra ...attribute.KeyValue) metric.MeasurementOption {
	attrs := append([]attribute.KeyValue{
		attribute.String("source", string(req.SourceLang)),
		attribute.String("target", string(req.TargetLang)),
	}, extra...)
	return metric.WithAttributes(attrs...)
}

func (i *instruments) issued(ctx context.Context, req types.TranslateRequest) {
	i.issuedC.Add(ctx, 1, pairAttrs(req))
}

func (i *instruments) stale(ctx context.Context, req types.TranslateRequest) {
	i.staleC.Add(ctx, 1, pairAttrs(req))
}

func (i *instruments) completed(ctx context.Context, req types.TranslateRequest, res types.TranslateResult, elapsed time.Duration) {
	if res.Failed() {
		i.failedC.Add(ctx, 1, pairAttrs(req))
	} else {
		i.adoptedC.Add(ctx, 1, pairAttrs(req))
	}
	ms := float64(elapsed) / float64(time.Millisecond)
	i.latency.Record(ctx, ms, pairAttrs(req, attribute.Bool("cache.hit", res.CacheHit)))
}

func (i *instruments) scanFailed(ctx context.Context) {
	i.scanFailedC.Add(ctx, 1)
}
