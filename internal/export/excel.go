package export

import (
	"bytes"
	"fmt"

	"github.com/bruadam/hvx-sub006/internal/analysis"
	"github.com/bruadam/hvx-sub006/internal/domain"

	"github.com/xuri/excelize/v2"
)

// SummaryHeader 汇总表表头
var SummaryHeader = []string{
	"Entity ID",
	"Entity Name",
	"Entity Type",
	"Status",
	"Overall Rating",
	"Thermal",
	"Acoustic",
	"IAQ",
	"Luminous",
	"Error",
}

// ResultsHeader 明细表表头
var ResultsHeader = []string{
	"Entity ID",
	"Rule ID",
	"Pass",
	"Out Of Range %",
	"Out Of Range Hours",
	"Status",
	"Error",
}

// BuildRunWorkbook 生成一次组合运行的 Excel 工作簿
// Sheet 1 "Summary"：每实体一行（叶子合规分析 + 父级聚合分析）
// Sheet 2 "Test Results"：每条规则评估结果一行
func BuildRunWorkbook(run *analysis.RunResult, hierarchy *domain.Hierarchy) ([]byte, error) {
	f := excelize.NewFile()
	// 注意：不要在这里 defer Close()，WriteTo 需要文件保持打开

	summarySheet := "Summary"
	index, err := f.NewSheet(summarySheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := newHeaderStyle(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	if err := writeHeader(f, summarySheet, SummaryHeader, headerStyle); err != nil {
		f.Close()
		return nil, err
	}

	row := 2
	for _, entityID := range hierarchy.TopologicalOrder() {
		entity, err := hierarchy.Entity(entityID)
		if err != nil {
			continue
		}
		values := summaryRow(entity, run)
		if values == nil {
			continue
		}
		if err := writeRow(f, summarySheet, row, values); err != nil {
			f.Close()
			return nil, err
		}
		row++
	}

	resultsSheet := "Test Results"
	if _, err := f.NewSheet(resultsSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := writeHeader(f, resultsSheet, ResultsHeader, headerStyle); err != nil {
		f.Close()
		return nil, err
	}

	row = 2
	for _, entityID := range hierarchy.TopologicalOrder() {
		for _, result := range run.TestResults[entityID] {
			values := []any{
				result.SpatialEntityID,
				result.RuleID,
				result.Pass,
				result.OutOfRangePercentage,
				result.OutOfRangeHours,
				string(result.Status),
				result.ErrorMessage,
			}
			if err := writeRow(f, resultsSheet, row, values); err != nil {
				f.Close()
				return nil, err
			}
			row++
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// summaryRow 单实体汇总行；该实体无分析记录时返回 nil
func summaryRow(entity *domain.SpatialEntity, run *analysis.RunResult) []any {
	var status domain.AnalysisStatus
	var summary *domain.SummaryResults
	var errMsg string

	if agg, ok := run.Aggregated[entity.ID]; ok {
		status = agg.Status
		summary = agg.AggregationResults
		errMsg = agg.ErrorMessage
	} else if a, ok := run.Analyses[entity.ID]; ok {
		status = a.Status
		summary = a.SummaryResults
		errMsg = a.ErrorMessage
	} else {
		return nil
	}

	values := []any{
		entity.ID,
		entity.Name,
		string(entity.Type),
		string(status),
	}
	if summary != nil {
		values = append(values, ratingLabel(summary.OverallRating))
		for _, d := range []string{"thermal", "acoustic", "iaq", "luminous"} {
			if rating, ok := summary.Domains[d]; ok {
				values = append(values, ratingLabel(rating.Rating))
			} else {
				values = append(values, "")
			}
		}
	} else {
		values = append(values, "", "", "", "", "")
	}
	values = append(values, errMsg)
	return values
}

// ratingLabel 分级展示为罗马数字（EN16798/TAIL 的类别写法）
func ratingLabel(rating int) string {
	if roman, err := domain.RatingToRoman(rating); err == nil {
		return roman
	}
	return ""
}

func newHeaderStyle(f *excelize.File) (int, error) {
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
		},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create header style: %w", err)
	}
	return style, nil
}

func writeHeader(f *excelize.File, sheet string, headers []string, style int) error {
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
			return err
		}
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return err
		}
	}
	return nil
}
