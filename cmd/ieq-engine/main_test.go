package main

import (
	"testing"

	"github.com/bruadam/hvx-sub006/internal/config"

	"github.com/stretchr/testify/require"

	"go.uber.org/zap/zapcore"
)

func TestInitLogger_HonorsLevel(t *testing.T) {
	cfg := &config.Config{}
	cfg.Log.Format = "json"
	cfg.Log.Level = "warn"

	logger, err := initLogger(cfg)
	require.NoError(t, err)
	require.True(t, logger.Core().Enabled(zapcore.WarnLevel))
	require.False(t, logger.Core().Enabled(zapcore.InfoLevel))
}

func TestInitLogger_UnknownLevelFallsBackToInfo(t *testing.T) {
	cfg := &config.Config{}
	cfg.Log.Format = "json"
	cfg.Log.Level = "verbose"

	logger, err := initLogger(cfg)
	require.NoError(t, err)
	require.True(t, logger.Core().Enabled(zapcore.InfoLevel))
	require.False(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestInitLogger_ConsoleFormat(t *testing.T) {
	cfg := &config.Config{}
	cfg.Log.Format = "console"
	cfg.Log.Level = "debug"

	logger, err := initLogger(cfg)
	require.NoError(t, err)
	require.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}
