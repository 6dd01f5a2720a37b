package analysis_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bruadam/hvx-sub006/internal/aggregator"
	"github.com/bruadam/hvx-sub006/internal/analysis"
	"github.com/bruadam/hvx-sub006/internal/domain"
	"github.com/bruadam/hvx-sub006/internal/resolution"

	"github.com/stretchr/testify/require"

	"go.uber.org/zap"
)

// fakeSeriesProvider 按实体 ID 返回预置序列或预置错误
type fakeSeriesProvider struct {
	series map[string][]domain.TimeSeries
	errors map[string]error
}

func (f *fakeSeriesProvider) SeriesForEntity(_ context.Context, entityID string) ([]domain.TimeSeries, error) {
	if err, ok := f.errors[entityID]; ok {
		return nil, err
	}
	return f.series[entityID], nil
}

func hourlySeries(metric string, values ...float64) domain.TimeSeries {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	samples := make([]domain.Sample, len(values))
	for i, v := range values {
		samples[i] = domain.Sample{Timestamp: base.Add(time.Duration(i) * time.Hour), Value: domain.Float(v)}
	}
	return domain.TimeSeries{Metric: metric, Samples: samples}
}

func testHierarchy(t *testing.T) *domain.Hierarchy {
	t.Helper()
	h, err := domain.NewHierarchy([]*domain.SpatialEntity{
		{ID: "portfolio-1", Type: domain.EntityPortfolio, ChildIDs: []string{"building-1"}},
		{ID: "building-1", Type: domain.EntityBuilding, ParentIDs: []string{"portfolio-1"}, ChildIDs: []string{"room-1", "room-2"}},
		{ID: "room-1", Type: domain.EntityRoom, ParentIDs: []string{"building-1"},
			Attributes: domain.EntityAttributes{AreaM2: domain.Float(40)}},
		{ID: "room-2", Type: domain.EntityRoom, ParentIDs: []string{"building-1"},
			Attributes: domain.EntityAttributes{AreaM2: domain.Float(60)}},
	})
	require.NoError(t, err)
	return h
}

func tempRuleSets() []domain.RuleSet {
	return []domain.RuleSet{
		{
			ID:       "comfort-set",
			Standard: "EN16798-1",
			Rules: []domain.TestRule{
				{
					ID:               "temp-cat2",
					Metric:           "air_temperature",
					Operator:         domain.ModeBidirectional,
					Params:           map[string]any{"limits": map[string]any{"lower": 20.0, "upper": 26.0}},
					TolerancePercent: domain.Float(5),
					CategoryRating:   2,
				},
			},
		},
	}
}

func newOrchestrator(t *testing.T, provider analysis.SeriesProvider, cfg analysis.Config) *analysis.Orchestrator {
	t.Helper()
	return analysis.NewOrchestrator(
		testHierarchy(t),
		tempRuleSets(),
		domain.AggregatorSpec{ID: "worst", Type: domain.AggregateWorst},
		resolution.NewDefaultRegistry(),
		aggregator.NewEngine(aggregator.CombineProduct, zap.NewNop()),
		provider,
		cfg,
		zap.NewNop(),
	)
}

func TestRun_HappyPath(t *testing.T) {
	provider := &fakeSeriesProvider{
		series: map[string][]domain.TimeSeries{
			"room-1": {hourlySeries("air_temperature", 21, 22, 23, 24)},
			"room-2": {hourlySeries("air_temperature", 22, 23, 24, 25)},
		},
	}
	orch := newOrchestrator(t, provider, analysis.Config{})

	run, err := orch.Run(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, run.RunID)
	require.False(t, run.CompletedAt.Before(run.StartedAt))

	// 叶子分析到达 COMPLETED 终态
	for _, roomID := range []string{"room-1", "room-2"} {
		a := run.Analyses[roomID]
		require.NotNil(t, a, roomID)
		require.Equal(t, domain.StatusCompleted, a.Status)
		require.True(t, a.Status.IsTerminal())
		require.True(t, a.OverallPass)
		require.Equal(t, 2, a.SummaryResults.OverallRating)
		require.Len(t, run.TestResults[roomID], 1)
		require.True(t, run.TestResults[roomID][0].Pass)
	}

	// 非叶子自底向上聚合
	building := run.Aggregated["building-1"]
	require.NotNil(t, building)
	require.Equal(t, domain.StatusCompleted, building.Status)
	require.Equal(t, 2, building.AggregationResults.OverallRating)
	require.Len(t, building.ChildAnalysisIDs, 2)

	portfolio := run.Aggregated["portfolio-1"]
	require.NotNil(t, portfolio)
	require.Equal(t, domain.StatusCompleted, portfolio.Status)
	require.Equal(t, 2, portfolio.AggregationResults.OverallRating)

	// 叶子实体不出现在聚合结果中
	require.NotContains(t, run.Aggregated, "room-1")
}

func TestRun_FailureIsolation(t *testing.T) {
	// room-2 数据加载失败：room-1 照常评估，运行整体成功
	provider := &fakeSeriesProvider{
		series: map[string][]domain.TimeSeries{
			"room-1": {hourlySeries("air_temperature", 21, 22, 23, 24)},
		},
		errors: map[string]error{
			"room-2": fmt.Errorf("upstream timeout"),
		},
	}
	orch := newOrchestrator(t, provider, analysis.Config{})

	run, err := orch.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, domain.StatusCompleted, run.Analyses["room-1"].Status)
	require.Equal(t, domain.StatusFailed, run.Analyses["room-2"].Status)
	require.Contains(t, run.Analyses["room-2"].ErrorMessage, "upstream timeout")

	// 默认 skip 策略：父聚合只用健康子结果
	building := run.Aggregated["building-1"]
	require.Equal(t, domain.StatusCompleted, building.Status)
	require.Equal(t, 2, building.AggregationResults.OverallRating)
}

func TestRun_FailedChildPolicyWorst(t *testing.T) {
	provider := &fakeSeriesProvider{
		series: map[string][]domain.TimeSeries{
			"room-1": {hourlySeries("air_temperature", 21, 22, 23, 24)},
		},
		errors: map[string]error{
			"room-2": fmt.Errorf("upstream timeout"),
		},
	}
	orch := newOrchestrator(t, provider, analysis.Config{FailedChildPolicy: analysis.PolicyWorst})

	run, err := orch.Run(context.Background())
	require.NoError(t, err)

	// FAILED 子按最差分级参与：worst(2, 4) = 4
	building := run.Aggregated["building-1"]
	require.Equal(t, domain.StatusCompleted, building.Status)
	require.Equal(t, 4, building.AggregationResults.OverallRating)
}

func TestRun_FailedChildPolicyPropagate(t *testing.T) {
	provider := &fakeSeriesProvider{
		series: map[string][]domain.TimeSeries{
			"room-1": {hourlySeries("air_temperature", 21, 22, 23, 24)},
		},
		errors: map[string]error{
			"room-2": fmt.Errorf("upstream timeout"),
		},
	}
	orch := newOrchestrator(t, provider, analysis.Config{FailedChildPolicy: analysis.PolicyPropagate})

	run, err := orch.Run(context.Background())
	require.NoError(t, err)

	building := run.Aggregated["building-1"]
	require.Equal(t, domain.StatusFailed, building.Status)
	require.NotEmpty(t, building.ErrorMessage)

	// 失败沿聚合链向上传递（portfolio 的唯一子已 FAILED）
	portfolio := run.Aggregated["portfolio-1"]
	require.Equal(t, domain.StatusFailed, portfolio.Status)
}

func TestRun_NoApplicableRulesFailsEntity(t *testing.T) {
	provider := &fakeSeriesProvider{
		series: map[string][]domain.TimeSeries{
			"room-1": {hourlySeries("air_temperature", 21, 22, 23)},
			"room-2": {hourlySeries("air_temperature", 21, 22, 23)},
		},
	}
	// 规则集只适用于 hotel：两个房间都无适用规则
	ruleSets := []domain.RuleSet{
		{
			ID:         "hotel-set",
			Conditions: []domain.ApplicabilityCondition{{BuildingTypes: []string{"hotel"}}},
			Rules:      tempRuleSets()[0].Rules,
		},
	}
	orch := analysis.NewOrchestrator(
		testHierarchy(t),
		ruleSets,
		domain.AggregatorSpec{ID: "worst", Type: domain.AggregateWorst},
		resolution.NewDefaultRegistry(),
		aggregator.NewEngine(aggregator.CombineProduct, zap.NewNop()),
		provider,
		analysis.Config{},
		zap.NewNop(),
	)

	run, err := orch.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, domain.StatusFailed, run.Analyses["room-1"].Status)
	require.Contains(t, run.Analyses["room-1"].ErrorMessage, "no applicable rules")

	// 全部子失败 + skip 策略 → 空子集聚合失败
	require.Equal(t, domain.StatusFailed, run.Aggregated["building-1"].Status)
}

func TestRun_MissingMetricRecordsRuleFailure(t *testing.T) {
	// 实体只有 co2 序列但规则要求 air_temperature：规则级失败
	provider := &fakeSeriesProvider{
		series: map[string][]domain.TimeSeries{
			"room-1": {hourlySeries("air_temperature", 21, 22, 23)},
			"room-2": {hourlySeries("co2", 600, 700, 800)},
		},
	}
	orch := newOrchestrator(t, provider, analysis.Config{})

	run, err := orch.Run(context.Background())
	require.NoError(t, err)

	// room-2 唯一规则失败 → 实体 FAILED
	require.Equal(t, domain.StatusFailed, run.Analyses["room-2"].Status)
	results := run.TestResults["room-2"]
	require.Len(t, results, 1)
	require.Equal(t, domain.StatusFailed, results[0].Status)
	require.Contains(t, results[0].ErrorMessage, "no series for metric")
}

func TestRun_TooCoarseSeriesFailsRule(t *testing.T) {
	// 日分辨率粗于室内气候类别的 1 小时最低要求：规则失败而不是静默通过
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	daily := domain.TimeSeries{Metric: "air_temperature"}
	for i := 0; i < 4; i++ {
		daily.Samples = append(daily.Samples, domain.Sample{
			Timestamp: base.Add(time.Duration(i) * 24 * time.Hour),
			Value:     domain.Float(22),
		})
	}
	provider := &fakeSeriesProvider{
		series: map[string][]domain.TimeSeries{
			"room-1": {daily},
			"room-2": {hourlySeries("air_temperature", 21, 22, 23, 24)},
		},
	}
	orch := newOrchestrator(t, provider, analysis.Config{})

	run, err := orch.Run(context.Background())
	require.NoError(t, err)

	// room-1 唯一规则因数据过粗失败 → 实体 FAILED
	require.Equal(t, domain.StatusFailed, run.Analyses["room-1"].Status)
	results := run.TestResults["room-1"]
	require.Len(t, results, 1)
	require.Equal(t, domain.StatusFailed, results[0].Status)
	require.Contains(t, results[0].ErrorMessage, "coarser")
	require.False(t, results[0].Pass)

	// 小时分辨率的兄弟实体不受影响
	require.Equal(t, domain.StatusCompleted, run.Analyses["room-2"].Status)
}

func TestRun_ToleranceDecidesPass(t *testing.T) {
	// 6 个样本 2 个越界 = 33.3%：容差 40% 通过，容差 10% 不通过
	values := []float64{18, 20, 22, 24, 26, 28}
	for _, tc := range []struct {
		tolerance float64
		pass      bool
	}{
		{40, true},
		{10, false},
	} {
		provider := &fakeSeriesProvider{
			series: map[string][]domain.TimeSeries{
				"room-1": {hourlySeries("air_temperature", values...)},
				"room-2": {hourlySeries("air_temperature", values...)},
			},
		}
		ruleSets := tempRuleSets()
		ruleSets[0].Rules[0].TolerancePercent = domain.Float(tc.tolerance)
		orch := analysis.NewOrchestrator(
			testHierarchy(t),
			ruleSets,
			domain.AggregatorSpec{ID: "worst", Type: domain.AggregateWorst},
			resolution.NewDefaultRegistry(),
			aggregator.NewEngine(aggregator.CombineProduct, zap.NewNop()),
			provider,
			analysis.Config{},
			zap.NewNop(),
		)

		run, err := orch.Run(context.Background())
		require.NoError(t, err)

		result := run.TestResults["room-1"][0]
		require.Equal(t, tc.pass, result.Pass, "tolerance %v", tc.tolerance)
		require.InDelta(t, 33.33, result.OutOfRangePercentage, 0.01)
		require.InDelta(t, 2.0, result.OutOfRangeHours, 1e-9)
	}
}

func TestRun_WeightedAggregation(t *testing.T) {
	// room-1 通过（分级 2）、room-2 全越界（分级 4）；
	// 面积加权 (2*40 + 4*60) / 100 = 3.2 → 夹取整为 3
	provider := &fakeSeriesProvider{
		series: map[string][]domain.TimeSeries{
			"room-1": {hourlySeries("air_temperature", 21, 22, 23, 24)},
			"room-2": {hourlySeries("air_temperature", 30, 31, 32, 33)},
		},
	}
	orch := analysis.NewOrchestrator(
		testHierarchy(t),
		tempRuleSets(),
		domain.AggregatorSpec{
			ID:               "area-weighted",
			Type:             domain.AggregateWeightedAverage,
			WeightProperties: []string{"area_m2"},
		},
		resolution.NewDefaultRegistry(),
		aggregator.NewEngine(aggregator.CombineProduct, zap.NewNop()),
		provider,
		analysis.Config{},
		zap.NewNop(),
	)

	run, err := orch.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, domain.StatusCompleted, run.Analyses["room-2"].Status)
	require.False(t, run.Analyses["room-2"].OverallPass)
	require.Equal(t, 4, run.Analyses["room-2"].SummaryResults.OverallRating)

	building := run.Aggregated["building-1"]
	require.Equal(t, domain.StatusCompleted, building.Status)
	require.Equal(t, 3, building.AggregationResults.OverallRating)
	// 领域/参数分级逐键取最差
	require.Equal(t, 4, building.AggregationResults.Domains["thermal"].Rating)
	require.Equal(t, 4, building.AggregationResults.Parameters["air_temperature"].RatingValue)
}
