package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.Server.Addr)
	require.Equal(t, "development", cfg.Server.Env)
	require.True(t, cfg.IsDevelopment())
	require.Equal(t, "postgres", cfg.Warehouse.Driver)
	require.Equal(t, "direct", cfg.Executor.Prefer)
	require.True(t, cfg.Executor.Fallback)
	require.Equal(t, 15*time.Second, cfg.Executor.QueryTimeout)
	require.Equal(t, 10000, cfg.TableAPI.MaxFetchRows)
	require.False(t, cfg.Auth.Enabled)
	require.Equal(t, []string{"/health", "/metrics"}, cfg.Auth.SkipPaths)
	require.Equal(t, 100.0, cfg.RateLimit.RPS)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("CLICKLENS_HTTP_ADDR", ":9000")
	t.Setenv("CLICKLENS_WAREHOUSE_DRIVER", "clickhouse")
	t.Setenv("CLICKLENS_WAREHOUSE_PORT", "9440")
	t.Setenv("CLICKLENS_EXECUTOR_PREFER", "emulated")
	t.Setenv("CLICKLENS_TABLE_API_URL", "https://tables.internal")
	t.Setenv("CLICKLENS_QUERY_TIMEOUT", "3s")
	t.Setenv("CLICKLENS_AUTH_SKIP_PATHS", "/health,/metrics,/api/v1/overview/kpis")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, ":9000", cfg.Server.Addr)
	require.Equal(t, "clickhouse", cfg.Warehouse.Driver)
	require.Equal(t, "localhost:9440", cfg.Warehouse.Addr())
	require.Equal(t, "emulated", cfg.Executor.Prefer)
	require.Equal(t, 3*time.Second, cfg.Executor.QueryTimeout)
	require.Len(t, cfg.Auth.SkipPaths, 3)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{
			name: "unknown driver",
			env:  map[string]string{"CLICKLENS_WAREHOUSE_DRIVER": "sqlite"},
		},
		{
			name: "unknown executor preference",
			env:  map[string]string{"CLICKLENS_EXECUTOR_PREFER": "both"},
		},
		{
			name: "emulated without table api url",
			env:  map[string]string{"CLICKLENS_EXECUTOR_PREFER": "emulated"},
		},
		{
			name: "auth without master key",
			env:  map[string]string{"CLICKLENS_AUTH_ENABLED": "true"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestWarehouseDSN(t *testing.T) {
	w := WarehouseConfig{
		Host: "db.internal", Port: 5432,
		User: "clicklens", Password: "pw",
		DBName: "warehouse", SSLMode: "require",
	}
	require.Equal(t, "postgres://clicklens:pw@db.internal:5432/warehouse?sslmode=require", w.DSN())
}

func TestBadNumericEnvFallsBackToDefault(t *testing.T) {
	t.Setenv("CLICKLENS_WAREHOUSE_PORT", "not-a-port")
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 5432, cfg.Warehouse.Port)
}
