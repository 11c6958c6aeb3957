package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tesoreria/backend/internal/infrastructure/telemetry"
)

func TestNewZapOTELCore_DisabledProviderIsNop(t *testing.T) {
	lp, err := telemetry.NewLoggerProvider(context.Background(), telemetry.LogsConfig{
		Enabled: false,
	}, zap.NewNop())
	require.NoError(t, err)

	core := telemetry.NewZapOTELCore(telemetry.ZapBridgeConfig{
		ServiceName:    "tesoreria-test",
		LoggerProvider: lp,
	})
	assert.False(t, core.Enabled(zapcore.ErrorLevel))
}

func TestNewZapOTELCore_NilProviderIsNop(t *testing.T) {
	core := telemetry.NewZapOTELCore(telemetry.ZapBridgeConfig{ServiceName: "tesoreria-test"})
	assert.False(t, core.Enabled(zapcore.ErrorLevel))
}

func TestNewZapOTELCore_LevelFilter(t *testing.T) {
	lp, err := telemetry.NewLoggerProvider(context.Background(), telemetry.LogsConfig{
		Enabled:           true,
		CollectorEndpoint: "localhost:4317",
		ServiceName:       "tesoreria-test",
		Insecure:          true,
	}, zap.NewNop())
	require.NoError(t, err)
	defer lp.Shutdown(context.Background())

	core := telemetry.NewZapOTELCore(telemetry.ZapBridgeConfig{
		ServiceName:    "tesoreria-test",
		LoggerProvider: lp,
		Level:          zapcore.InfoLevel,
	})

	assert.False(t, core.Enabled(zapcore.DebugLevel))
	assert.True(t, core.Enabled(zapcore.InfoLevel))
	assert.True(t, core.Enabled(zapcore.ErrorLevel))
}

func TestNewBridgedLogger_TeesToBaseCore(t *testing.T) {
	base, logs := observer.New(zapcore.DebugLevel)

	log := telemetry.NewBridgedLogger(base, zapcore.NewNopCore())
	log.Info("record created", zap.String("agreement_code", "2975-2024"))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "record created", entry.Message)
	assert.Equal(t, "2975-2024", entry.ContextMap()["agreement_code"])
}
