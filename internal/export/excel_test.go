package export_test

import (
	"bytes"
	"testing"

	"github.com/bruadam/hvx-sub006/internal/analysis"
	"github.com/bruadam/hvx-sub006/internal/domain"
	"github.com/bruadam/hvx-sub006/internal/export"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func testRun(t *testing.T) (*analysis.RunResult, *domain.Hierarchy) {
	t.Helper()
	h, err := domain.NewHierarchy([]*domain.SpatialEntity{
		{ID: "building-1", Name: "Main Office", Type: domain.EntityBuilding, ChildIDs: []string{"room-1", "room-2"}},
		{ID: "room-1", Name: "Meeting Room", Type: domain.EntityRoom, ParentIDs: []string{"building-1"}},
		{ID: "room-2", Name: "Open Office", Type: domain.EntityRoom, ParentIDs: []string{"building-1"}},
	})
	require.NoError(t, err)

	run := &analysis.RunResult{
		RunID: "run-123",
		TestResults: map[string][]*domain.TestResult{
			"room-1": {
				{
					SpatialEntityID:      "room-1",
					RuleID:               "temp-cat2",
					Pass:                 true,
					OutOfRangePercentage: 2.5,
					OutOfRangeHours:      18,
					Status:               domain.StatusCompleted,
				},
			},
		},
		Analyses: map[string]*domain.ComplianceAnalysis{
			"room-1": {
				SpatialEntityID: "room-1",
				Status:          domain.StatusCompleted,
				OverallPass:     true,
				SummaryResults: &domain.SummaryResults{
					OverallRating: 2,
					Domains:       map[string]domain.DomainRating{"thermal": {Rating: 2}},
				},
			},
			"room-2": {
				SpatialEntityID: "room-2",
				Status:          domain.StatusFailed,
				ErrorMessage:    "no applicable rules for entity room-2",
			},
		},
		Aggregated: map[string]*domain.AggregatedAnalysis{
			"building-1": {
				SpatialEntityID:    "building-1",
				Status:             domain.StatusCompleted,
				AggregationResults: &domain.SummaryResults{OverallRating: 2},
			},
		},
	}
	return run, h
}

func TestBuildRunWorkbook(t *testing.T) {
	run, hierarchy := testRun(t)

	data, err := export.BuildRunWorkbook(run, hierarchy)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	require.Contains(t, f.GetSheetList(), "Summary")
	require.Contains(t, f.GetSheetList(), "Test Results")

	rows, err := f.GetRows("Summary")
	require.NoError(t, err)
	// 表头 + 3 个实体
	require.Len(t, rows, 4)
	require.Equal(t, export.SummaryHeader, rows[0])

	// 拓扑序：叶子先于父级
	require.Equal(t, "room-1", rows[1][0])
	require.Equal(t, string(domain.StatusCompleted), rows[1][3])
	// 分级展示为罗马数字
	require.Equal(t, "II", rows[1][4])

	require.Equal(t, "room-2", rows[2][0])
	require.Equal(t, string(domain.StatusFailed), rows[2][3])
	require.Contains(t, rows[2][len(rows[2])-1], "no applicable rules")

	require.Equal(t, "building-1", rows[3][0])

	results, err := f.GetRows("Test Results")
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "temp-cat2", results[1][1])
}

func TestBuildRunWorkbook_EmptyRun(t *testing.T) {
	h, err := domain.NewHierarchy([]*domain.SpatialEntity{{ID: "room-1", Type: domain.EntityRoom}})
	require.NoError(t, err)

	run := &analysis.RunResult{RunID: "run-empty"}
	data, err := export.BuildRunWorkbook(run, h)
	require.NoError(t, err)
	require.NotEmpty(t, data)
}
