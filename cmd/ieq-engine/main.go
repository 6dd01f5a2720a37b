package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bruadam/hvx-sub006/internal/config"
	"github.com/bruadam/hvx-sub006/internal/httpapi"
	"github.com/bruadam/hvx-sub006/internal/service"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// 2. 初始化日志
	logger, err := initLogger(cfg)
	if err != nil {
		panic(fmt.Sprintf("Failed to init logger: %v", err))
	}
	defer logger.Sync()

	// 3. 创建服务
	analysisService, err := service.NewAnalysisService(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create analysis service",
			zap.Error(err),
		)
	}
	defer analysisService.Stop()

	// 4. 注册 HTTP 路由
	router := httpapi.NewRouter(logger)
	handler := httpapi.NewAnalysisHandler(analysisService, logger)
	router.RegisterAnalysisRoutes(handler)

	// 5. 创建上下文（支持优雅关闭）
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 6. 启动 HTTP API（在 goroutine 中）
	serviceErrChan := make(chan error, 1)
	go func() {
		if err := analysisService.Serve(ctx, router); err != nil {
			serviceErrChan <- err
		}
	}()

	// 7. 等待信号（优雅关闭）
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Received signal, shutting down",
			zap.String("signal", sig.String()),
		)
		cancel()
	case err := <-serviceErrChan:
		logger.Fatal("Service error",
			zap.Error(err),
		)
	}

	logger.Info("Analysis service stopped")
}

// initLogger 初始化日志（级别和格式跟随配置）
func initLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Log.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
