package service

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/bruadam/hvx-sub006/internal/aggregator"
	"github.com/bruadam/hvx-sub006/internal/analysis"
	"github.com/bruadam/hvx-sub006/internal/cache"
	"github.com/bruadam/hvx-sub006/internal/config"
	"github.com/bruadam/hvx-sub006/internal/domain"
	"github.com/bruadam/hvx-sub006/internal/repository"
	"github.com/bruadam/hvx-sub006/internal/resolution"
	"github.com/bruadam/hvx-sub006/internal/rulestore"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// AnalysisService 分析服务（整合各层）
type AnalysisService struct {
	config      *config.Config
	db          *sql.DB
	redisClient *redis.Client
	logger      *zap.Logger

	entityRepo   *repository.SpatialEntityRepository
	ruleSets     []domain.RuleSet
	resultsCache *cache.ResultsCache
	aggEngine    *aggregator.Engine
	registry     *resolution.Registry
	httpServer   *http.Server

	// 运行结果按 RunID 留存在内存中供查询（持久化由调用方负责）
	mu   sync.RWMutex
	runs map[string]*RunRecord
}

// RunRecord 一次运行的留存记录
type RunRecord struct {
	PortfolioID string              `json:"portfolio_id"`
	Hierarchy   *domain.Hierarchy   `json:"-"`
	Result      *analysis.RunResult `json:"result"`
}

// NewAnalysisService 创建分析服务
func NewAnalysisService(cfg *config.Config, logger *zap.Logger) (*AnalysisService, error) {
	// 1. 连接数据库
	db, err := sql.Open("postgres", cfg.Database.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// 2. 连接 Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	// 3. 加载标准规则集（坏配置在启动期快速失败）
	loader := rulestore.NewLoader(logger)
	ruleSets, err := loader.LoadDir(cfg.Engine.RuleDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load rule sets: %w", err)
	}

	// 4. 创建 Repository 和缓存层
	entityRepo := repository.NewSpatialEntityRepository(db, logger)
	resultsCache := cache.NewResultsCache(
		cache.NewRedisKVStore(redisClient),
		cache.NewRedisStreamPublisher(redisClient),
		cfg.Cache.SummaryKeyPrefix,
		cfg.Cache.RunStream,
		time.Duration(cfg.Cache.SummaryTTL)*time.Second,
		logger,
	)

	aggEngine := aggregator.NewEngine(aggregator.WeightCombine(cfg.Engine.WeightCombine), logger)

	return &AnalysisService{
		config:       cfg,
		db:           db,
		redisClient:  redisClient,
		logger:       logger,
		entityRepo:   entityRepo,
		ruleSets:     ruleSets,
		resultsCache: resultsCache,
		aggEngine:    aggEngine,
		registry:     resolution.NewDefaultRegistry(),
		runs:         make(map[string]*RunRecord),
	}, nil
}

// RunPortfolio 对一个组合执行完整分析运行
func (s *AnalysisService) RunPortfolio(ctx context.Context, portfolioID string, from, to time.Time) (*RunRecord, error) {
	hierarchy, err := s.entityRepo.LoadHierarchy(portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to load hierarchy: %w", err)
	}

	orchestrator := analysis.NewOrchestrator(
		hierarchy,
		s.ruleSets,
		s.aggregatorSpec(),
		s.registry,
		s.aggEngine,
		s.seriesProvider(from, to),
		analysis.Config{
			Workers:           s.config.Engine.Workers,
			FailedChildPolicy: analysis.FailedChildPolicy(s.config.Engine.FailedChildPolicy),
			Season:            s.config.Engine.Season,
		},
		s.logger,
	)

	result, err := orchestrator.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("portfolio run failed: %w", err)
	}

	record := &RunRecord{
		PortfolioID: portfolioID,
		Hierarchy:   hierarchy,
		Result:      result,
	}
	s.mu.Lock()
	s.runs[result.RunID] = record
	s.mu.Unlock()

	s.cacheRun(ctx, record)
	return record, nil
}

// Run 按 RunID 查询留存的运行记录
func (s *AnalysisService) Run(runID string) (*RunRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.runs[runID]
	return record, ok
}

// EntitySummary 查询实体最近一次的汇总载荷（优先读缓存）
func (s *AnalysisService) EntitySummary(ctx context.Context, entityID string) (*domain.SummaryResults, error) {
	return s.resultsCache.GetSummary(ctx, entityID)
}

// cacheRun 把运行结果写入缓存并发布完成事件（缓存失败不影响运行结果）
func (s *AnalysisService) cacheRun(ctx context.Context, record *RunRecord) {
	failed := 0
	cached := 0
	for entityID, a := range record.Result.Analyses {
		if a.Status == domain.StatusFailed {
			failed++
			continue
		}
		if a.SummaryResults == nil {
			continue
		}
		if err := s.resultsCache.StoreSummary(ctx, entityID, a.SummaryResults); err != nil {
			s.logger.Warn("Failed to cache entity summary",
				zap.String("entity_id", entityID),
				zap.Error(err),
			)
			continue
		}
		cached++
	}
	for entityID, agg := range record.Result.Aggregated {
		if agg.Status == domain.StatusFailed {
			failed++
			continue
		}
		if agg.AggregationResults == nil {
			continue
		}
		if err := s.resultsCache.StoreSummary(ctx, entityID, agg.AggregationResults); err != nil {
			s.logger.Warn("Failed to cache entity summary",
				zap.String("entity_id", entityID),
				zap.Error(err),
			)
			continue
		}
		cached++
	}

	entityCount := len(record.Result.Analyses) + len(record.Result.Aggregated)
	if err := s.resultsCache.PublishRunCompleted(ctx, record.Result.RunID, entityCount, failed); err != nil {
		s.logger.Warn("Failed to publish run event",
			zap.String("run_id", record.Result.RunID),
			zap.Error(err),
		)
	}

	s.logger.Info("Run results cached",
		zap.String("run_id", record.Result.RunID),
		zap.Int("cached", cached),
		zap.Int("failed", failed),
	)
}

// Serve 启动 HTTP API（阻塞直到 ctx 取消或监听错误）
func (s *AnalysisService) Serve(ctx context.Context, handler http.Handler) error {
	s.httpServer = &http.Server{
		Addr:    s.config.HTTP.Addr,
		Handler: handler,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP API listening",
			zap.String("addr", s.config.HTTP.Addr),
		)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}

// Stop 停止服务并释放连接
func (s *AnalysisService) Stop() error {
	s.logger.Info("Stopping analysis service")

	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close database",
			zap.Error(err),
		)
	}
	if err := s.redisClient.Close(); err != nil {
		s.logger.Error("Failed to close redis",
			zap.Error(err),
		)
	}
	return nil
}

// seriesProvider 选择时序提供者：配置了远程 API 则用远程客户端，否则读本地 Postgres
func (s *AnalysisService) seriesProvider(from, to time.Time) analysis.SeriesProvider {
	if s.config.Remote.BaseURL != "" {
		return repository.NewRemoteSeriesClient(s.config.Remote.BaseURL, s.config.Remote.APIKey, from, to, s.logger)
	}
	return repository.NewTimeSeriesRepository(s.db, from, to, s.logger)
}

func (s *AnalysisService) aggregatorSpec() domain.AggregatorSpec {
	return domain.AggregatorSpec{
		ID:               "default",
		Name:             "default hierarchy aggregator",
		Type:             domain.AggregatorType(s.config.Engine.AggregatorType),
		WeightProperties: []string{s.config.Engine.WeightProperty},
	}
}
