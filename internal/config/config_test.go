package config_test

import (
	"testing"

	"github.com/bruadam/hvx-sub006/internal/config"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	require.Equal(t, "localhost", cfg.Database.Host)
	require.Equal(t, 5432, cfg.Database.Port)
	require.Equal(t, "hvx", cfg.Database.Database)
	require.Equal(t, "localhost:6379", cfg.Redis.Addr)
	require.Equal(t, ":8086", cfg.HTTP.Addr)

	require.Equal(t, 4, cfg.Engine.Workers)
	require.Equal(t, "skip", cfg.Engine.FailedChildPolicy)
	require.Equal(t, "product", cfg.Engine.WeightCombine)
	require.Equal(t, "configs/standards", cfg.Engine.RuleDir)
	require.Equal(t, "worst", cfg.Engine.AggregatorType)
	require.Equal(t, "area_m2", cfg.Engine.WeightProperty)

	require.Equal(t, "ieq:analysis:", cfg.Cache.SummaryKeyPrefix)
	require.Equal(t, 3600, cfg.Cache.SummaryTTL)
	require.Equal(t, "ieq:analysis:runs", cfg.Cache.RunStream)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("ENGINE_WORKERS", "16")
	t.Setenv("ENGINE_FAILED_CHILD_POLICY", "propagate")
	t.Setenv("REMOTE_SERIES_URL", "https://ingest.example.com")

	cfg, err := config.Load()
	require.NoError(t, err)

	require.Equal(t, "db.internal", cfg.Database.Host)
	require.Equal(t, 6543, cfg.Database.Port)
	require.Equal(t, 16, cfg.Engine.Workers)
	require.Equal(t, "propagate", cfg.Engine.FailedChildPolicy)
	require.Equal(t, "https://ingest.example.com", cfg.Remote.BaseURL)
}

func TestLoad_InvalidIntFallsBack(t *testing.T) {
	t.Setenv("ENGINE_WORKERS", "many")

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, 4, cfg.Engine.Workers)
}

func TestDatabaseConfig_GetDSN(t *testing.T) {
	db := config.DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "secret",
		Database: "hvx",
		SSLMode:  "disable",
	}
	require.Equal(t,
		"host=localhost port=5432 user=postgres password=secret dbname=hvx sslmode=disable",
		db.GetDSN())
}
