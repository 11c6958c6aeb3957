// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// LedgerMetrics provides business metrics for the treasury ledger.
// It tracks record creation, voucher activity, and document backlog health.
type LedgerMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	recordCreatedTotal   *Counter
	recordAmountTotal    *Counter
	recordVoidedTotal    *Counter
	voucherRenderedTotal *Counter
	uploadRejectedTotal  *Counter

	// Gauge metrics (point-in-time values)
	activeRecords    *Gauge
	missingDocuments *Gauge

	// Periodic collector
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	// Data provider for periodic collection
	statsProvider LedgerStatsProvider
}

// LedgerStatsProvider provides ledger state for periodic metrics collection.
// This interface allows the telemetry layer to query record counts without
// depending on the ledger domain directly. Kind is "expense" or "income".
type LedgerStatsProvider interface {
	// CountActiveRecords returns the number of non-voided records of a kind.
	CountActiveRecords(ctx context.Context, kind string) (int64, error)

	// CountMissingDocuments returns the number of non-voided records of a
	// kind that have no stored document reference yet.
	CountMissingDocuments(ctx context.Context, kind string) (int64, error)
}

// LedgerMetricsConfig holds configuration for ledger metrics.
type LedgerMetricsConfig struct {
	Meter           metric.Meter
	Logger          *zap.Logger
	CollectInterval time.Duration // Default: 5 minutes
	StatsProvider   LedgerStatsProvider
}

// NewLedgerMetrics creates a new LedgerMetrics instance.
func NewLedgerMetrics(cfg LedgerMetricsConfig) (*LedgerMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	lm := &LedgerMetrics{
		meter:         cfg.Meter,
		logger:        logger,
		stopChan:      make(chan struct{}),
		statsProvider: cfg.StatsProvider,
	}

	var err error

	// Record metrics
	lm.recordCreatedTotal, err = NewCounter(
		cfg.Meter,
		"ledger_record_created_total",
		"Total number of ledger records created",
		"{records}",
	)
	if err != nil {
		return nil, err
	}

	lm.recordAmountTotal, err = NewCounter(
		cfg.Meter,
		"ledger_record_amount_total",
		"Total recorded amount in cents",
		"{cents}",
	)
	if err != nil {
		return nil, err
	}

	lm.recordVoidedTotal, err = NewCounter(
		cfg.Meter,
		"ledger_record_voided_total",
		"Total number of records voided",
		"{records}",
	)
	if err != nil {
		return nil, err
	}

	// Voucher metrics
	lm.voucherRenderedTotal, err = NewCounter(
		cfg.Meter,
		"voucher_rendered_total",
		"Total number of voucher render attempts",
		"{vouchers}",
	)
	if err != nil {
		return nil, err
	}

	lm.uploadRejectedTotal, err = NewCounter(
		cfg.Meter,
		"voucher_upload_rejected_total",
		"Total number of rejected document uploads",
		"{uploads}",
	)
	if err != nil {
		return nil, err
	}

	// Backlog gauge metrics
	lm.activeRecords, err = NewGauge(
		cfg.Meter,
		"ledger_active_records",
		"Current number of non-voided records",
		"{records}",
	)
	if err != nil {
		return nil, err
	}

	lm.missingDocuments, err = NewGauge(
		cfg.Meter,
		"ledger_missing_documents",
		"Number of non-voided records without a stored document",
		"{records}",
	)
	if err != nil {
		return nil, err
	}

	return lm, nil
}

// =============================================================================
// Record Metrics
// =============================================================================

// VoidOutcome labels how a void operation completed for metrics.
type VoidOutcome string

const (
	VoidOutcomeClean   VoidOutcome = "clean"
	VoidOutcomePartial VoidOutcome = "partial"
)

// RecordCreated records a ledger record creation event.
// This should be called from the application layer when a record is created.
func (lm *LedgerMetrics) RecordCreated(ctx context.Context, kind, agreementCode string) {
	lm.recordCreatedTotal.Inc(ctx,
		AttrRecordKind.String(kind),
		AttrAgreementCode.String(agreementCode),
	)
}

// RecordAmount records the record amount.
// Amount should be in the smallest currency unit (cents).
func (lm *LedgerMetrics) RecordAmount(ctx context.Context, kind string, amountCents int64) {
	lm.recordAmountTotal.Add(ctx, amountCents,
		AttrRecordKind.String(kind),
	)
}

// RecordCreatedWithAmount is a convenience method that records both count and amount.
func (lm *LedgerMetrics) RecordCreatedWithAmount(ctx context.Context, kind, agreementCode string, amount decimal.Decimal) {
	lm.RecordCreated(ctx, kind, agreementCode)

	// Convert to cents (multiply by 100)
	amountCents := amount.Mul(decimal.NewFromInt(100)).IntPart()
	lm.RecordAmount(ctx, kind, amountCents)
}

// RecordVoided records a void operation and whether storage cleanup completed.
func (lm *LedgerMetrics) RecordVoided(ctx context.Context, kind string, outcome VoidOutcome) {
	lm.recordVoidedTotal.Inc(ctx,
		AttrRecordKind.String(kind),
		AttrOutcome.String(string(outcome)),
	)
}

// =============================================================================
// Voucher Metrics
// =============================================================================

// RenderOutcome labels the result of a voucher render for metrics.
type RenderOutcome string

const (
	RenderOutcomeSuccess RenderOutcome = "success"
	RenderOutcomeFailed  RenderOutcome = "failed"
)

// VoucherRendered records a voucher render attempt.
func (lm *LedgerMetrics) VoucherRendered(ctx context.Context, kind string, outcome RenderOutcome) {
	lm.voucherRenderedTotal.Inc(ctx,
		AttrRecordKind.String(kind),
		AttrOutcome.String(string(outcome)),
	)
}

// UploadRejected records a rejected document upload. Reason is a short
// stable label such as "busy" or "unsupported_type".
func (lm *LedgerMetrics) UploadRejected(ctx context.Context, kind, reason string) {
	lm.uploadRejectedTotal.Inc(ctx,
		AttrRecordKind.String(kind),
		AttrRejectReason.String(reason),
	)
}

// =============================================================================
// Backlog Metrics
// =============================================================================

// RecordActiveCount records the current number of non-voided records of a kind.
// This is a gauge metric that should be updated periodically.
func (lm *LedgerMetrics) RecordActiveCount(ctx context.Context, kind string, count int64) {
	lm.activeRecords.Record(ctx, count,
		AttrRecordKind.String(kind),
	)
}

// RecordMissingDocuments records how many records of a kind lack a document.
// This is a gauge metric that should be updated periodically.
func (lm *LedgerMetrics) RecordMissingDocuments(ctx context.Context, kind string, count int64) {
	lm.missingDocuments.Record(ctx, count,
		AttrRecordKind.String(kind),
	)
}

// =============================================================================
// Periodic Collection
// =============================================================================

// recordKinds are the kinds the collector iterates over.
var recordKinds = []string{"expense", "income"}

// StartPeriodicCollection starts periodic collection of gauge metrics.
// It collects backlog metrics every interval (default: 5 minutes).
// This is non-blocking - use Stop() to stop collection.
func (lm *LedgerMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	lm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}

		go lm.runPeriodicCollection(ctx, interval)
	})
}

// runPeriodicCollection runs the periodic collection loop.
func (lm *LedgerMetrics) runPeriodicCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Collect immediately on start
	lm.collectBacklogMetrics(ctx)

	for {
		select {
		case <-lm.stopChan:
			lm.logger.Info("Stopping periodic ledger metrics collection")
			return
		case <-ctx.Done():
			lm.logger.Info("Context cancelled, stopping periodic ledger metrics collection")
			return
		case <-ticker.C:
			lm.collectBacklogMetrics(ctx)
		}
	}
}

// collectBacklogMetrics collects backlog gauge metrics for all record kinds.
func (lm *LedgerMetrics) collectBacklogMetrics(ctx context.Context) {
	if lm.statsProvider == nil {
		lm.logger.Debug("No stats provider configured, skipping backlog metrics collection")
		return
	}

	for _, kind := range recordKinds {
		lm.collectKindBacklogMetrics(ctx, kind)
	}
}

// collectKindBacklogMetrics collects backlog metrics for a single record kind.
func (lm *LedgerMetrics) collectKindBacklogMetrics(ctx context.Context, kind string) {
	active, err := lm.statsProvider.CountActiveRecords(ctx, kind)
	if err != nil {
		lm.logger.Warn("Failed to count active records",
			zap.String("kind", kind),
			zap.Error(err),
		)
	} else {
		lm.RecordActiveCount(ctx, kind, active)
	}

	missing, err := lm.statsProvider.CountMissingDocuments(ctx, kind)
	if err != nil {
		lm.logger.Warn("Failed to count records missing documents",
			zap.String("kind", kind),
			zap.Error(err),
		)
	} else {
		lm.RecordMissingDocuments(ctx, kind, missing)
	}
}

// Stop stops the periodic collection.
func (lm *LedgerMetrics) Stop() {
	lm.stopOnce.Do(func() {
		close(lm.stopChan)
	})
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewLedgerMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
