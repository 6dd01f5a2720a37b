package analysis

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/bruadam/hvx-sub006/internal/aggregator"
	"github.com/bruadam/hvx-sub006/internal/domain"
	"github.com/bruadam/hvx-sub006/internal/evaluator"
	"github.com/bruadam/hvx-sub006/internal/resolution"
	"github.com/bruadam/hvx-sub006/internal/selector"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SeriesProvider 时序数据提供者（由数据接入层实现，引擎只读）
type SeriesProvider interface {
	SeriesForEntity(ctx context.Context, entityID string) ([]domain.TimeSeries, error)
}

// FailedChildPolicy FAILED 子分析在父聚合中的处理策略（调用方选择）
type FailedChildPolicy string

const (
	// PolicySkip 跳过 FAILED 子分析（默认）
	PolicySkip FailedChildPolicy = "skip"
	// PolicyWorst FAILED 子分析按最差分级（4）参与聚合
	PolicyWorst FailedChildPolicy = "worst"
	// PolicyPropagate 任一子分析 FAILED 即父聚合失败
	PolicyPropagate FailedChildPolicy = "propagate"
)

// Config 编排器配置
type Config struct {
	Workers           int               // 叶子实体并行评估的 worker 数，默认 4
	FailedChildPolicy FailedChildPolicy // 默认 skip
	Season            string            // 运行季节上下文（适用性条件的 seasons 过滤器用）
}

// RunResult 一次组合运行的全部产出
type RunResult struct {
	RunID       string                                `json:"run_id"`
	StartedAt   time.Time                             `json:"started_at"`
	CompletedAt time.Time                             `json:"completed_at"`
	TestResults map[string][]*domain.TestResult       `json:"test_results"` // 按实体 ID
	Analyses    map[string]*domain.ComplianceAnalysis `json:"analyses"`
	Aggregated  map[string]*domain.AggregatedAnalysis `json:"aggregated"`
}

// Orchestrator 分析编排器
// 驱动叶子实体的评估生命周期和自底向上的层级汇总：
// 叶子评估在实体粒度上数据并行；父聚合必须等全部子实体到达终态（硬同步屏障）
type Orchestrator struct {
	hierarchy *domain.Hierarchy
	ruleSets  []domain.RuleSet
	aggSpec   domain.AggregatorSpec
	selector  *selector.Selector
	registry  *resolution.Registry
	aggEngine *aggregator.Engine
	series    SeriesProvider
	cfg       Config
	logger    *zap.Logger
}

// NewOrchestrator 创建分析编排器
func NewOrchestrator(
	hierarchy *domain.Hierarchy,
	ruleSets []domain.RuleSet,
	aggSpec domain.AggregatorSpec,
	registry *resolution.Registry,
	aggEngine *aggregator.Engine,
	series SeriesProvider,
	cfg Config,
	logger *zap.Logger,
) *Orchestrator {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.FailedChildPolicy == "" {
		cfg.FailedChildPolicy = PolicySkip
	}
	return &Orchestrator{
		hierarchy: hierarchy,
		ruleSets:  ruleSets,
		aggSpec:   aggSpec,
		selector:  selector.NewSelector(logger),
		registry:  registry,
		aggEngine: aggEngine,
		series:    series,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run 执行一次组合运行
// 单个实体评估失败不会中止兄弟实体或整体运行：该节点记 FAILED 并带原因，
// 运行产出一棵部分成功的分析森林
func (o *Orchestrator) Run(ctx context.Context) (*RunResult, error) {
	run := &RunResult{
		RunID:       uuid.NewString(),
		StartedAt:   time.Now().UTC(),
		TestResults: make(map[string][]*domain.TestResult),
		Analyses:    make(map[string]*domain.ComplianceAnalysis),
		Aggregated:  make(map[string]*domain.AggregatedAnalysis),
	}

	// 1. 叶子实体并行评估（无共享可变状态，结果经互斥锁收集）
	leaves := o.hierarchy.Leaves()
	jobs := make(chan string)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < o.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for entityID := range jobs {
				analysis, results := o.evaluateLeaf(ctx, entityID)
				mu.Lock()
				run.Analyses[entityID] = analysis
				run.TestResults[entityID] = results
				mu.Unlock()
			}
		}()
	}
	for _, leafID := range leaves {
		jobs <- leafID
	}
	close(jobs)
	wg.Wait()

	// 2. 自底向上聚合（拓扑序保证子先于父，父聚合前所有子已到终态）
	for _, entityID := range o.hierarchy.TopologicalOrder() {
		entity, err := o.hierarchy.Entity(entityID)
		if err != nil {
			return nil, err
		}
		if entity.IsLeaf() {
			continue
		}
		run.Aggregated[entityID] = o.aggregateEntity(entity, run)
	}

	run.CompletedAt = time.Now().UTC()
	o.logger.Info("Portfolio run completed",
		zap.String("run_id", run.RunID),
		zap.Int("leaf_count", len(leaves)),
		zap.Int("aggregated_count", len(run.Aggregated)),
	)
	return run, nil
}

// evaluateLeaf 单叶子实体评估：PENDING → RUNNING → {COMPLETED, FAILED}
// 实体边界内的任何失败都被捕获进该实体的分析记录，不向外抛
func (o *Orchestrator) evaluateLeaf(ctx context.Context, entityID string) (*domain.ComplianceAnalysis, []*domain.TestResult) {
	analysis := &domain.ComplianceAnalysis{
		ID:              uuid.NewString(),
		SpatialEntityID: entityID,
		Status:          domain.StatusPending,
	}
	analysis.Status = domain.StatusRunning

	entity, err := o.hierarchy.Entity(entityID)
	if err != nil {
		return o.failAnalysis(analysis, err), nil
	}

	seriesList, err := o.series.SeriesForEntity(ctx, entityID)
	if err != nil {
		return o.failAnalysis(analysis, fmt.Errorf("failed to load series: %w", err)), nil
	}

	selected := o.selector.SelectApplicableRules(entity, o.ruleSets, o.cfg.Season)
	if len(selected) == 0 {
		return o.failAnalysis(analysis, fmt.Errorf("no applicable rules for entity %s", entityID)), nil
	}

	seriesByMetric := make(map[string]*domain.TimeSeries)
	for i := range seriesList {
		s := &seriesList[i]
		if _, exists := seriesByMetric[s.Metric]; !exists {
			seriesByMetric[s.Metric] = s
		}
	}

	var results []*domain.TestResult
	var rated []RatedResult
	completed := 0
	overallPass := true

	for _, sel := range selected {
		result := o.evaluateRule(entity, sel, seriesByMetric)
		results = append(results, result)
		rated = append(rated, RatedResult{Rule: sel.Rule, Result: result})
		analysis.TestResultIDs = append(analysis.TestResultIDs, result.ID)
		if result.Status == domain.StatusCompleted {
			completed++
		}
		if !result.Pass {
			overallPass = false
		}
	}

	// 所有规则都评估失败时实体记 FAILED
	if completed == 0 {
		return o.failAnalysis(analysis, fmt.Errorf("all %d rule evaluations failed for entity %s", len(selected), entityID)), results
	}

	analysis.OverallPass = overallPass
	analysis.SummaryResults = BuildSummary(rated)
	analysis.Status = domain.StatusCompleted
	now := time.Now().UTC()
	analysis.CompletedAt = &now

	o.logger.Debug("Leaf entity evaluated",
		zap.String("entity_id", entityID),
		zap.Bool("overall_pass", overallPass),
		zap.Int("rule_count", len(selected)),
	)
	return analysis, results
}

// evaluateRule 单规则评估：归一化分辨率 → 计算合规掩码 → 超标统计 → 容差判定
// 规则级失败记入该 TestResult，不中断同实体的其他规则
func (o *Orchestrator) evaluateRule(entity *domain.SpatialEntity, sel selector.SelectedRule, seriesByMetric map[string]*domain.TimeSeries) *domain.TestResult {
	result := &domain.TestResult{
		ID:              uuid.NewString(),
		SpatialEntityID: entity.ID,
		RuleID:          sel.Rule.ID,
		Status:          domain.StatusRunning,
	}

	series, ok := seriesByMetric[sel.Rule.Metric]
	if !ok {
		return o.failResult(result, fmt.Errorf("no series for metric %s", sel.Rule.Metric))
	}

	spec, err := o.registry.SpecForMetric(sel.Rule.Metric)
	if err != nil {
		return o.failResult(result, err)
	}

	normalized, err := resolution.EnsureMinimumResolution(*series, spec)
	if err != nil {
		return o.failResult(result, err)
	}
	// 归一化只会加粗细数据；粗于类别最低分辨率的序列在这里拒绝
	if err := resolution.ValidateResolution(normalized.Timestamps(), spec); err != nil {
		return o.failResult(result, err)
	}

	mask, err := evaluator.Evaluate(sel.Rule, normalized.Samples)
	if err != nil {
		return o.failResult(result, err)
	}

	interval, err := resolution.DetectResolution(normalized.Timestamps())
	if err != nil {
		return o.failResult(result, err)
	}

	total := len(mask)
	outOfRange := 0
	for _, compliant := range mask {
		if !compliant {
			outOfRange++
		}
	}

	result.OutOfRangePercentage = 100 * float64(outOfRange) / float64(total)
	result.OutOfRangeHours = float64(outOfRange) * interval.Hours()

	// 小时容差优先于百分比容差；两者都未给时要求零超标
	switch {
	case sel.Rule.ToleranceHours != nil:
		result.Pass = result.OutOfRangeHours <= *sel.Rule.ToleranceHours
	case sel.Rule.TolerancePercent != nil:
		result.Pass = result.OutOfRangePercentage <= *sel.Rule.TolerancePercent
	default:
		result.Pass = outOfRange == 0
	}

	result.Status = domain.StatusCompleted
	result.Details = map[string]any{
		"sample_count":       total,
		"out_of_range_count": outOfRange,
		"interval_seconds":   interval.Seconds(),
		"standard":           sel.RuleSet.Standard,
	}
	return result
}

// aggregateEntity 父实体聚合：子分析全部到达终态后才执行
func (o *Orchestrator) aggregateEntity(entity *domain.SpatialEntity, run *RunResult) *domain.AggregatedAnalysis {
	agg := &domain.AggregatedAnalysis{
		ID:              uuid.NewString(),
		SpatialEntityID: entity.ID,
		AggregatorID:    o.aggSpec.ID,
		Status:          domain.StatusRunning,
	}

	var inputs []aggregator.ChildInput
	var childSummaries []*domain.SummaryResults

	for _, child := range o.hierarchy.Children(entity.ID) {
		summary, status, analysisID := o.childOutcome(child.ID, run)
		agg.ChildAnalysisIDs = append(agg.ChildAnalysisIDs, analysisID)

		if status == domain.StatusFailed {
			switch o.cfg.FailedChildPolicy {
			case PolicyPropagate:
				return o.failAggregation(agg, fmt.Errorf("child %s failed and policy is propagate", child.ID))
			case PolicyWorst:
				inputs = append(inputs, aggregator.ChildInput{
					Value:      domain.RatingWorst,
					Properties: childProperties(child, o.aggSpec.WeightProperties),
				})
			default: // skip
			}
			continue
		}
		if summary == nil {
			continue
		}
		inputs = append(inputs, aggregator.ChildInput{
			Value:      float64(summary.OverallRating),
			Properties: childProperties(child, o.aggSpec.WeightProperties),
		})
		childSummaries = append(childSummaries, summary)
	}

	overall, err := o.aggEngine.Aggregate(o.aggSpec, inputs)
	if err != nil {
		return o.failAggregation(agg, err)
	}

	agg.AggregationResults = o.aggregateSummaries(overall, childSummaries)
	agg.Status = domain.StatusCompleted
	now := time.Now().UTC()
	agg.CompletedAt = &now
	return agg
}

// childOutcome 子实体的汇总载荷与终态（叶子取合规分析，非叶子取聚合分析）
func (o *Orchestrator) childOutcome(childID string, run *RunResult) (*domain.SummaryResults, domain.AnalysisStatus, string) {
	if agg, ok := run.Aggregated[childID]; ok {
		return agg.AggregationResults, agg.Status, agg.ID
	}
	if analysis, ok := run.Analyses[childID]; ok {
		return analysis.SummaryResults, analysis.Status, analysis.ID
	}
	return nil, domain.StatusFailed, ""
}

// aggregateSummaries 合成父汇总：总体分级来自聚合引擎，
// 领域/参数分级按子汇总逐键取最差（保守汇总）
func (o *Orchestrator) aggregateSummaries(overall float64, children []*domain.SummaryResults) *domain.SummaryResults {
	summary := &domain.SummaryResults{
		OverallRating: clampRating(overall),
		Domains:       make(map[string]domain.DomainRating),
		Parameters:    make(map[string]domain.ParameterRating),
	}
	for _, child := range children {
		for name, d := range child.Domains {
			if current, ok := summary.Domains[name]; !ok || d.Rating > current.Rating {
				summary.Domains[name] = d
			}
		}
		for name, p := range child.Parameters {
			if current, ok := summary.Parameters[name]; !ok || p.RatingValue > current.RatingValue {
				summary.Parameters[name] = p
			}
		}
	}
	return summary
}

func (o *Orchestrator) failAnalysis(analysis *domain.ComplianceAnalysis, err error) *domain.ComplianceAnalysis {
	analysis.Status = domain.StatusFailed
	analysis.ErrorMessage = err.Error()
	o.logger.Warn("Entity analysis failed",
		zap.String("entity_id", analysis.SpatialEntityID),
		zap.Error(err),
	)
	return analysis
}

func (o *Orchestrator) failResult(result *domain.TestResult, err error) *domain.TestResult {
	result.Status = domain.StatusFailed
	result.ErrorMessage = err.Error()
	result.Pass = false
	return result
}

func (o *Orchestrator) failAggregation(agg *domain.AggregatedAnalysis, err error) *domain.AggregatedAnalysis {
	agg.Status = domain.StatusFailed
	agg.ErrorMessage = err.Error()
	o.logger.Warn("Entity aggregation failed",
		zap.String("entity_id", agg.SpatialEntityID),
		zap.Error(err),
	)
	return agg
}

// childProperties 读取子实体的权重属性（缺失属性不放入，聚合引擎按 1.0 处理）
func childProperties(entity *domain.SpatialEntity, names []string) map[string]float64 {
	props := make(map[string]float64, len(names))
	for _, name := range names {
		if v, ok := entity.Property(name); ok {
			props[name] = v
		}
	}
	return props
}

// clampRating 聚合结果取整并夹到 1..4 分级尺度
func clampRating(v float64) int {
	r := int(math.Round(v))
	if r < domain.RatingBest {
		r = domain.RatingBest
	}
	if r > domain.RatingWorst {
		r = domain.RatingWorst
	}
	return r
}
