package logger_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tesoreria/backend/internal/infrastructure/logger"
)

const testTimeFormat = "2006-01-02T15:04:05.000Z07:00"

func fileLogger(t *testing.T, level, format string) (*zap.Logger, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "backend.log")
	log, err := logger.New(&logger.Config{
		Level:      level,
		Format:     format,
		Output:     path,
		TimeFormat: testTimeFormat,
	})
	require.NoError(t, err)
	return log, path
}

func TestNew_WritesJSONEntries(t *testing.T) {
	log, path := fileLogger(t, "info", "json")

	log.Info("servidor iniciado", zap.String("component", "server"))
	require.NoError(t, logger.Sync(log))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"msg":"servidor iniciado"`)
	assert.Contains(t, string(content), `"component":"server"`)
	assert.Contains(t, string(content), `"level":"info"`)
}

func TestNew_LevelFiltersLowerEntries(t *testing.T) {
	log, path := fileLogger(t, "error", "json")

	log.Info("descartado")
	log.Error("conservado")
	require.NoError(t, logger.Sync(log))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "descartado")
	assert.Contains(t, string(content), "conservado")
}

func TestNew_ConsoleFormat(t *testing.T) {
	log, path := fileLogger(t, "info", "console")

	log.Info("formato consola")
	require.NoError(t, logger.Sync(log))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "formato consola")
}

func TestNew_UnknownLevelDefaultsToInfo(t *testing.T) {
	log, path := fileLogger(t, "verbose", "json")

	log.Debug("filtrado")
	log.Info("visible")
	require.NoError(t, logger.Sync(log))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "filtrado")
	assert.Contains(t, string(content), "visible")
}

func TestNew_UnwritableOutputFails(t *testing.T) {
	_, err := logger.New(&logger.Config{
		Level:      "info",
		Format:     "json",
		Output:     filepath.Join(t.TempDir(), "missing-dir", "backend.log"),
		TimeFormat: testTimeFormat,
	})
	assert.Error(t, err)
}
