package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricOpsTotal       = "xdsref.operations.total"
	metricOpDuration     = "xdsref.operation.duration.seconds"
	metricErrorsTotal    = "xdsref.errors.total"
	metricInflightOps    = "xdsref.inflight.operations"
	metricDatasetsTotal  = "xdsref.datasets.scanned.total"
	metricRankedTotal    = "xdsref.files.ranked.total"
	metricReferenceTotal = "xdsref.references.written.total"

	attrOp      = "op"
	attrStatus  = "status"
	attrOutcome = "outcome"

	// StatusOK marks a successful operation.
	StatusOK = "ok"
	// StatusError marks a failed operation.
	StatusError = "error"
)

// durationBucketBoundaries covers quick summary reads through long
// directory walks on network storage.
var durationBucketBoundaries = []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 300}

// REDMetrics holds the Rate, Error, Duration instruments per operation.
type REDMetrics struct {
	opsTotal    metric.Int64Counter
	opDuration  metric.Float64Histogram
	errorsTotal metric.Int64Counter
	inflight    metric.Int64UpDownCounter
}

// NewREDMetrics creates RED instruments from the given meter.
func NewREDMetrics(mt metric.Meter) (*REDMetrics, error) {
	opsTotal, err := mt.Int64Counter(metricOpsTotal,
		metric.WithDescription("Total number of operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricOpsTotal, err)
	}

	opDuration, err := mt.Float64Histogram(metricOpDuration,
		metric.WithDescription("Operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricOpDuration, err)
	}

	errorsTotal, err := mt.Int64Counter(metricErrorsTotal,
		metric.WithDescription("Total number of failed operations"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricErrorsTotal, err)
	}

	inflight, err := mt.Int64UpDownCounter(metricInflightOps,
		metric.WithDescription("Number of in-flight operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricInflightOps, err)
	}

	return &REDMetrics{
		opsTotal:    opsTotal,
		opDuration:  opDuration,
		errorsTotal: errorsTotal,
		inflight:    inflight,
	}, nil
}

// RecordRequest records a completed operation. Nil receivers are no-ops.
func (rm *REDMetrics) RecordRequest(ctx context.Context, op, status string, duration time.Duration) {
	if rm == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrOp, op),
		attribute.String(attrStatus, status),
	)

	rm.opsTotal.Add(ctx, 1, attrs)
	rm.opDuration.Record(ctx, duration.Seconds(), attrs)

	if status == StatusError {
		rm.errorsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrOp, op)))
	}
}

// TrackInflight increments the in-flight gauge and returns its decrement.
func (rm *REDMetrics) TrackInflight(ctx context.Context, op string) func() {
	if rm == nil {
		return func() {}
	}

	attrs := metric.WithAttributes(attribute.String(attrOp, op))
	rm.inflight.Add(ctx, 1, attrs)

	return func() {
		rm.inflight.Add(ctx, -1, attrs)
	}
}

// Observe runs fn as op, recording RED metrics around it.
func (rm *REDMetrics) Observe(ctx context.Context, op string, fn func(context.Context) error) error {
	done := rm.TrackInflight(ctx, op)
	defer done()

	start := time.Now()
	err := fn(ctx)

	status := StatusOK
	if err != nil {
		status = StatusError
	}

	rm.RecordRequest(ctx, op, status, time.Since(start))

	return err
}

// PipelineMetrics counts domain work: datasets scanned, statistics files
// ranked, and reference files written.
type PipelineMetrics struct {
	datasets   metric.Int64Counter
	ranked     metric.Int64Counter
	references metric.Int64Counter
}

// PipelineStats is one run's worth of domain counts.
type PipelineStats struct {
	Datasets      int
	ScanFailures  int
	Ranked        int
	Unranked      int
	ReferencesOut int
}

// NewPipelineMetrics creates domain counters from the given meter.
func NewPipelineMetrics(mt metric.Meter) (*PipelineMetrics, error) {
	datasets, err := mt.Int64Counter(metricDatasetsTotal,
		metric.WithDescription("Processing logs scanned for unit cells"),
		metric.WithUnit("{file}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricDatasetsTotal, err)
	}

	ranked, err := mt.Int64Counter(metricRankedTotal,
		metric.WithDescription("Statistics files considered for ranking"),
		metric.WithUnit("{file}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRankedTotal, err)
	}

	references, err := mt.Int64Counter(metricReferenceTotal,
		metric.WithDescription("Reference reflection files written"),
		metric.WithUnit("{file}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricReferenceTotal, err)
	}

	return &PipelineMetrics{datasets: datasets, ranked: ranked, references: references}, nil
}

// Record adds stats to the counters. Nil receivers are no-ops.
func (pm *PipelineMetrics) Record(ctx context.Context, stats PipelineStats) {
	if pm == nil {
		return
	}

	pm.add(ctx, pm.datasets, stats.Datasets, StatusOK)
	pm.add(ctx, pm.datasets, stats.ScanFailures, StatusError)
	pm.add(ctx, pm.ranked, stats.Ranked, "ranked")
	pm.add(ctx, pm.ranked, stats.Unranked, "unranked")
	pm.add(ctx, pm.references, stats.ReferencesOut, StatusOK)
}

func (pm *PipelineMetrics) add(ctx context.Context, counter metric.Int64Counter, n int, outcome string) {
	if n <= 0 {
		return
	}

	counter.Add(ctx, int64(n), metric.WithAttributes(attribute.String(attrOutcome, outcome)))
}
