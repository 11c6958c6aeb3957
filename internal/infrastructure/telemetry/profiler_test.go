package telemetry_test

import (
	"context"
	"runtime/pprof"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tesoreria/backend/internal/infrastructure/telemetry"
)

func TestNewProfiler_Disabled(t *testing.T) {
	p, err := telemetry.NewProfiler(telemetry.ProfilerConfig{Enabled: false}, zap.NewNop())

	require.NoError(t, err)
	require.NotNil(t, p)
	assert.False(t, p.IsEnabled())
	assert.NoError(t, p.Stop())
	assert.NoError(t, p.Stop())
}

func TestNewProfiler_RequiresServerAddress(t *testing.T) {
	_, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         true,
		ApplicationName: "tesoreria-backend",
	}, zap.NewNop())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "server address")
}

func TestNewProfiler_RequiresApplicationName(t *testing.T) {
	_, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:       true,
		ServerAddress: "http://localhost:4040",
	}, zap.NewNop())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "application name")
}

func TestWithProfilingLabels_AttachesLabels(t *testing.T) {
	var route, method string
	var routeOK, methodOK bool

	telemetry.WithProfilingLabels(context.Background(), map[string]string{
		telemetry.ProfilingLabelRoute:  "/api/v1/records",
		telemetry.ProfilingLabelMethod: "GET",
	}, func(ctx context.Context) {
		route, routeOK = pprof.Label(ctx, "route")
		method, methodOK = pprof.Label(ctx, "method")
	})

	require.True(t, routeOK)
	require.True(t, methodOK)
	assert.Equal(t, "/api/v1/records", route)
	assert.Equal(t, "GET", method)
}

func TestWithProfilingLabels_DropsHighCardinalityKeys(t *testing.T) {
	var userID string
	var userOK, roleOK bool

	telemetry.WithProfilingLabels(context.Background(), map[string]string{
		"user_id":                    "8f14e45f",
		telemetry.ProfilingLabelRole: "treasurer",
	}, func(ctx context.Context) {
		userID, userOK = pprof.Label(ctx, "user_id")
		_, roleOK = pprof.Label(ctx, "role")
	})

	assert.False(t, userOK, "user_id should not be attached, got %q", userID)
	assert.True(t, roleOK)
}

func TestWithProfilingLabels_NormalizesKeysAndTruncatesValues(t *testing.T) {
	long := strings.Repeat("x", 300)
	var value string
	var ok bool

	telemetry.WithProfilingLabels(context.Background(), map[string]string{
		"HTTP-Method": long,
	}, func(ctx context.Context) {
		value, ok = pprof.Label(ctx, "http_method")
	})

	require.True(t, ok)
	assert.Len(t, value, 128)
}

func TestWithProfilingLabels_EmptyMapStillRunsFn(t *testing.T) {
	called := false
	telemetry.WithProfilingLabels(context.Background(), nil, func(ctx context.Context) {
		called = true
	})
	assert.True(t, called)
}
