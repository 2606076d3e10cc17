package s3copy

import (
	"context"
	"time"

	"github.com/gostratum/metricsx"
	"github.com/gostratum/tracingx"
)

// ObservabilityParams holds optional observability dependencies for fx wiring.
type ObservabilityParams struct {
	Metrics metricsx.Metrics `optional:"true"`
	Tracer  tracingx.Tracer  `optional:"true"`
}

// Instrumenter wraps gateway and executor operations with metrics and tracing.
type Instrumenter struct {
	metrics metricsx.Metrics
	tracer  tracingx.Tracer
}

// NewInstrumenter creates a new instrumenter with optional metrics and tracing.
func NewInstrumenter(metrics metricsx.Metrics, tracer tracingx.Tracer) *Instrumenter {
	return &Instrumenter{metrics: metrics, tracer: tracer}
}

// TraceOperation wraps a gateway call (head, copy_part, create, complete,
// abort, ...) with tracing and duration/outcome metrics.
func (i *Instrumenter) TraceOperation(ctx context.Context, operation, key string, fn func(ctx context.Context) error) error {
	var span tracingx.Span
	if i.tracer != nil {
		ctx, span = i.tracer.Start(ctx, "s3copy."+operation,
			tracingx.WithSpanKind(tracingx.SpanKindClient),
			tracingx.WithAttributes(map[string]any{
				"s3copy.operation": operation,
				"s3copy.key":       key,
			}),
		)
		defer span.End()
	}

	start := time.Now()
	err := fn(ctx)
	duration := time.Since(start).Seconds()

	if i.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		i.metrics.Counter("s3copy_operations_total",
			metricsx.WithHelp("Total number of gateway operations"),
			metricsx.WithLabels("operation", "status"),
		).Inc(operation, status)

		i.metrics.Histogram("s3copy_operation_duration_seconds",
			metricsx.WithHelp("Gateway operation duration in seconds"),
			metricsx.WithLabels("operation"),
			metricsx.WithBuckets(.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60),
		).Observe(duration, operation)
	}

	if span != nil && err != nil {
		span.SetError(err)
	}

	return err
}

// RecordPartBytes records the size of a single completed copy_part call.
func (i *Instrumenter) RecordPartBytes(size int64) {
	if i.metrics != nil {
		i.metrics.Histogram("s3copy_part_bytes",
			metricsx.WithHelp("Size in bytes of a single copy_part"),
			metricsx.WithBuckets(5<<20, 16<<20, 64<<20, 128<<20, 256<<20, 512<<20, 1<<30, 5<<30),
		).Observe(float64(size))
	}
}

// RecordWindow records a single executor window's throughput and adaptation.
func (i *Instrumenter) RecordWindow(throughputBytesPerSec float64, errorRate float64, concurrency int) {
	if i.metrics != nil {
		i.metrics.Histogram("s3copy_window_throughput_bytes_per_sec",
			metricsx.WithHelp("Measured throughput of one executor window"),
		).Observe(throughputBytesPerSec)
		i.metrics.Histogram("s3copy_window_error_rate",
			metricsx.WithHelp("Fraction of parts retried within one executor window"),
		).Observe(errorRate)
		i.metrics.Counter("s3copy_window_concurrency_gauge_total",
			metricsx.WithHelp("Sum of concurrency values observed across windows (a cheap gauge substitute)"),
		).Add(float64(concurrency))
	}
}

// RecordTransferOutcome records the terminal strategy and part count of a
// single invocation.
func (i *Instrumenter) RecordTransferOutcome(strategy Strategy, partCount int) {
	if i.metrics != nil {
		i.metrics.Counter("s3copy_transfers_total",
			metricsx.WithHelp("Total number of copy invocations by strategy"),
			metricsx.WithLabels("strategy"),
		).Inc(strategy.String())

		if partCount > 0 {
			i.metrics.Counter("s3copy_parts_total",
				metricsx.WithHelp("Total number of copy_part requests issued"),
			).Add(float64(partCount))
		}
	}
}

// RecordAbort records that a multipart upload was aborted, and why.
func (i *Instrumenter) RecordAbort(category Category) {
	if i.metrics != nil {
		i.metrics.Counter("s3copy_aborts_total",
			metricsx.WithHelp("Total number of aborted multipart uploads"),
			metricsx.WithLabels("category"),
		).Inc(category.String())
	}
}
