package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// BusinessMetrics tracks reconciliation activity: match outcomes, approval
// decisions and the backlog of open mismatches.
type BusinessMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	matchEvaluatedTotal *Counter
	decisionTotal       *Counter
	recomputeDuration   *Histogram

	openByStatus *Gauge

	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	backlogProvider BacklogMetricsProvider
}

// BacklogMetricsProvider reports how many invoices currently sit in each
// match status. It lets the telemetry layer observe reconciliation state
// without depending on the procurement domain directly.
type BacklogMetricsProvider interface {
	CountByStatus(ctx context.Context) (map[string]int64, error)
}

// BusinessMetricsConfig holds configuration for business metrics.
type BusinessMetricsConfig struct {
	Meter           metric.Meter
	Logger          *zap.Logger
	CollectInterval time.Duration // Default: 1 minute
	BacklogProvider BacklogMetricsProvider
}

// NewBusinessMetrics creates a new BusinessMetrics instance.
func NewBusinessMetrics(cfg BusinessMetricsConfig) (*BusinessMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BusinessMetrics{
		meter:           cfg.Meter,
		logger:          logger,
		stopChan:        make(chan struct{}),
		backlogProvider: cfg.BacklogProvider,
	}

	var err error
	bm.matchEvaluatedTotal, err = NewCounter(
		cfg.Meter,
		"recon_match_evaluated_total",
		"Total number of invoice match evaluations by outcome",
		"{evaluations}",
	)
	if err != nil {
		return nil, err
	}

	bm.decisionTotal, err = NewCounter(
		cfg.Meter,
		"recon_decision_total",
		"Total number of reviewer decisions on matched invoices",
		"{decisions}",
	)
	if err != nil {
		return nil, err
	}

	bm.recomputeDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "recon_recompute_duration_seconds",
		Description: "Latency of a single invoice recomputation",
		Unit:        "s",
		Boundaries:  RecomputeDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	bm.openByStatus, err = NewGauge(
		cfg.Meter,
		"recon_invoices_open",
		"Number of invoices currently in each match status",
		"{invoices}",
	)
	if err != nil {
		return nil, err
	}

	return bm, nil
}

// RecordMatchOutcome records one completed match evaluation with its verdict.
func (bm *BusinessMetrics) RecordMatchOutcome(ctx context.Context, status string) {
	bm.matchEvaluatedTotal.Inc(ctx, AttrMatchStatus.String(status))
}

// RecordDecision records a reviewer decision (approve, reject, override, post).
func (bm *BusinessMetrics) RecordDecision(ctx context.Context, decision string) {
	bm.decisionTotal.Inc(ctx, AttrDecision.String(decision))
}

// ObserveRecompute records how long a single invoice recomputation took.
func (bm *BusinessMetrics) ObserveRecompute(ctx context.Context, d time.Duration) {
	bm.recomputeDuration.RecordDuration(ctx, d)
}

// StartPeriodicCollection starts the backlog gauge collection loop. It is
// non-blocking; call Stop to terminate.
func (bm *BusinessMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	bm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = time.Minute
		}
		go bm.runPeriodicCollection(ctx, interval)
	})
}

func (bm *BusinessMetrics) runPeriodicCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	bm.collectBacklog(ctx)

	for {
		select {
		case <-bm.stopChan:
			bm.logger.Info("stopping business metrics collection")
			return
		case <-ctx.Done():
			bm.logger.Info("context cancelled, stopping business metrics collection")
			return
		case <-ticker.C:
			bm.collectBacklog(ctx)
		}
	}
}

func (bm *BusinessMetrics) collectBacklog(ctx context.Context) {
	if bm.backlogProvider == nil {
		bm.logger.Debug("no backlog provider configured, skipping collection")
		return
	}

	counts, err := bm.backlogProvider.CountByStatus(ctx)
	if err != nil {
		bm.logger.Warn("failed to collect invoice backlog", zap.Error(err))
		return
	}
	for status, count := range counts {
		bm.openByStatus.Record(ctx, count, AttrMatchStatus.String(status))
	}
}

// Stop stops the periodic collection.
func (bm *BusinessMetrics) Stop() {
	bm.stopOnce.Do(func() {
		close(bm.stopChan)
	})
}

// ErrMeterNil is returned when the meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewBusinessMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
