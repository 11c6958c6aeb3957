package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"

	"github.com/tesoreria/backend/internal/infrastructure/telemetry"
)

func TestNewLedgerMetrics(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")

	lm, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
		Meter:  meter,
		Logger: zap.NewNop(),
	})

	require.NoError(t, err)
	require.NotNil(t, lm)
}

func TestNewLedgerMetrics_NilMeter(t *testing.T) {
	lm, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
		Meter:  nil,
		Logger: zap.NewNop(),
	})

	require.Error(t, err)
	assert.Nil(t, lm)
	assert.Equal(t, "NewLedgerMetrics: meter cannot be nil", err.Error())
}

func TestLedgerMetrics_RecordCreated(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	lm, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
		Meter: meter,
	})
	require.NoError(t, err)

	ctx := context.Background()

	// Should not panic
	lm.RecordCreated(ctx, "expense", "2975-2024")
	lm.RecordCreated(ctx, "income", "2975-2024")
}

func TestLedgerMetrics_RecordAmount(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	lm, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
		Meter: meter,
	})
	require.NoError(t, err)

	ctx := context.Background()

	// Should not panic
	lm.RecordAmount(ctx, "expense", 10000) // 100.00 EUR
	lm.RecordAmount(ctx, "income", 50000)
}

func TestLedgerMetrics_RecordCreatedWithAmount(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	lm, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
		Meter: meter,
	})
	require.NoError(t, err)

	ctx := context.Background()
	amount := decimal.NewFromFloat(199.99)

	// Should not panic and record both count and amount
	lm.RecordCreatedWithAmount(ctx, "expense", "2975-2024", amount)
}

func TestLedgerMetrics_RecordVoided(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	lm, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
		Meter: meter,
	})
	require.NoError(t, err)

	ctx := context.Background()

	// Should not panic
	lm.RecordVoided(ctx, "expense", telemetry.VoidOutcomeClean)
	lm.RecordVoided(ctx, "income", telemetry.VoidOutcomePartial)
}

func TestLedgerMetrics_VoucherRendered(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	lm, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
		Meter: meter,
	})
	require.NoError(t, err)

	ctx := context.Background()

	// Should not panic
	lm.VoucherRendered(ctx, "expense", telemetry.RenderOutcomeSuccess)
	lm.VoucherRendered(ctx, "income", telemetry.RenderOutcomeFailed)
}

func TestLedgerMetrics_UploadRejected(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	lm, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
		Meter: meter,
	})
	require.NoError(t, err)

	ctx := context.Background()

	// Should not panic
	lm.UploadRejected(ctx, "expense", "busy")
	lm.UploadRejected(ctx, "income", "unsupported_type")
}

func TestLedgerMetrics_RecordActiveCount(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	lm, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
		Meter: meter,
	})
	require.NoError(t, err)

	ctx := context.Background()

	// Should not panic
	lm.RecordActiveCount(ctx, "expense", 100)
	lm.RecordMissingDocuments(ctx, "income", 5)
}

// Mock implementation for testing periodic collection

type mockStatsProvider struct {
	active  map[string]int64
	missing map[string]int64
	err     error
}

func (m *mockStatsProvider) CountActiveRecords(ctx context.Context, kind string) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	return m.active[kind], nil
}

func (m *mockStatsProvider) CountMissingDocuments(ctx context.Context, kind string) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	return m.missing[kind], nil
}

func TestLedgerMetrics_PeriodicCollection(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")

	statsProvider := &mockStatsProvider{
		active:  map[string]int64{"expense": 100, "income": 40},
		missing: map[string]int64{"expense": 3, "income": 12},
	}

	lm, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
		Meter:         meter,
		Logger:        zap.NewNop(),
		StatsProvider: statsProvider,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start periodic collection with short interval for testing
	lm.StartPeriodicCollection(ctx, 100*time.Millisecond)

	// Wait for at least one collection cycle
	time.Sleep(150 * time.Millisecond)

	// Stop collection
	lm.Stop()

	// Should complete without error
}

func TestLedgerMetrics_PeriodicCollection_NoProvider(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")

	lm, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
		Meter:  meter,
		Logger: zap.NewNop(),
		// No stats provider
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Should not panic with no stats provider
	lm.StartPeriodicCollection(ctx, 50*time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	lm.Stop()
}

func TestLedgerMetrics_Stop_Idempotent(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	lm, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
		Meter: meter,
	})
	require.NoError(t, err)

	// Calling Stop multiple times should not panic
	lm.Stop()
	lm.Stop()
	lm.Stop()
}

func TestLedgerMetrics_StartPeriodicCollection_OnlyOnce(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	lm, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
		Meter:  meter,
		Logger: zap.NewNop(),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Calling StartPeriodicCollection multiple times should only start once
	lm.StartPeriodicCollection(ctx, time.Hour)
	lm.StartPeriodicCollection(ctx, time.Minute)
	lm.StartPeriodicCollection(ctx, time.Second)

	lm.Stop()
}

func TestVoidOutcome_Values(t *testing.T) {
	assert.Equal(t, telemetry.VoidOutcome("clean"), telemetry.VoidOutcomeClean)
	assert.Equal(t, telemetry.VoidOutcome("partial"), telemetry.VoidOutcomePartial)
}

func TestRenderOutcome_Values(t *testing.T) {
	assert.Equal(t, telemetry.RenderOutcome("success"), telemetry.RenderOutcomeSuccess)
	assert.Equal(t, telemetry.RenderOutcome("failed"), telemetry.RenderOutcomeFailed)
}

func TestMetricsError_Error(t *testing.T) {
	err := &telemetry.MetricsError{
		Op:  "TestOperation",
		Err: "test error message",
	}

	assert.Equal(t, "TestOperation: test error message", err.Error())
}
