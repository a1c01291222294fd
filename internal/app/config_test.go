package app

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	_ "github.com/cropledger/cropledger/internal/testing/guard"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("PG_DSN", "postgres://localhost/test")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.AppAddr)
	require.Equal(t, "A", cfg.InventoryDefaultGrade)
	require.False(t, cfg.InventoryAllowNegativeStock)
	require.Equal(t, 50, cfg.DashboardLowStockThreshold)
	require.Equal(t, 5*time.Minute, cfg.DashboardCacheTTL)
	require.False(t, cfg.IsProduction())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("INVENTORY_ALLOW_NEGATIVE_STOCK", "true")
	t.Setenv("INVENTORY_DEFAULT_GRADE", "B")
	t.Setenv("DASHBOARD_LOW_STOCK_THRESHOLD", "25")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.True(t, cfg.IsProduction())
	require.True(t, cfg.InventoryAllowNegativeStock)
	require.Equal(t, "B", cfg.InventoryDefaultGrade)
	require.Equal(t, 25, cfg.DashboardLowStockThreshold)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	t.Setenv("DASHBOARD_LOW_STOCK_THRESHOLD", "0")
	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoggerHonoursLevelAndFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&Config{LogFormat: "json", LogLevel: "warn"}, &buf)
	logger.Info("hidden")
	logger.Warn("shown", slog.String("k", "v"))
	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.True(t, strings.HasPrefix(out, "{"))
	require.Contains(t, out, `"k":"v"`)

	require.Equal(t, slog.LevelInfo, parseLevel(&Config{LogLevel: "loud"}))
	require.Equal(t, slog.LevelDebug, parseLevel(&Config{LogLevel: "debug"}))
}

func TestGuardEnablesTestMode(t *testing.T) {
	RefreshTestMode()
	require.True(t, InTestMode())
}
