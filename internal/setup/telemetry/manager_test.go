package telemetry_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tagscout/tagscout/internal/setup/config"
	"github.com/tagscout/tagscout/internal/setup/telemetry"
)

func TestManagerRotatesSessions(t *testing.T) {
	t.Parallel()

	logDir := t.TempDir()
	for _, name := range []string{
		"2020-01-01_00-00-01",
		"2020-01-01_00-00-02",
		"2020-01-01_00-00-03",
		"2020-01-01_00-00-04",
	} {
		require.NoError(t, os.MkdirAll(filepath.Join(logDir, name), 0o755))
	}

	manager := telemetry.NewManager(logDir, &config.Debug{
		LogLevel:      "info",
		MaxLogsToKeep: 3,
		MaxLogLines:   100,
	})

	l, err := manager.GetLogger()
	require.NoError(t, err)

	l.Named("scan_orchestrator").Info("Scan complete")
	require.NoError(t, l.Sync())
	require.NoError(t, manager.Close())

	entries, err := os.ReadDir(logDir)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "2020-01-01_00-00-03", entries[0].Name())
	assert.Equal(t, "2020-01-01_00-00-04", entries[1].Name())

	content, err := os.ReadFile(filepath.Join(manager.GetCurrentSessionDir(), "main.log"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "Scan complete")
	assert.Contains(t, string(content), manager.GetInstanceID())
}

func TestManagerRejectsInvalidLevel(t *testing.T) {
	t.Parallel()

	manager := telemetry.NewManager(t.TempDir(), &config.Debug{LogLevel: "loud", MaxLogLines: 10})

	_, err := manager.GetLogger()
	require.Error(t, err)
}
