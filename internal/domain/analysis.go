package domain

import (
	"encoding/json"
	"time"
)

// AnalysisStatus 分析状态机：PENDING → RUNNING → {COMPLETED, FAILED}（终态）
type AnalysisStatus string

const (
	StatusPending   AnalysisStatus = "PENDING"
	StatusRunning   AnalysisStatus = "RUNNING"
	StatusCompleted AnalysisStatus = "COMPLETED"
	StatusFailed    AnalysisStatus = "FAILED"
)

// IsTerminal 是否终态
func (s AnalysisStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// TestResult 单条规则评估结果（每个 (实体, 规则) 组合创建一条）
type TestResult struct {
	ID                   string         `json:"result_id"`
	SpatialEntityID      string         `json:"spatial_entity_id"`
	RuleID               string         `json:"rule_id"`
	Pass                 bool           `json:"pass"`
	OutOfRangeHours      float64        `json:"out_of_range_hours"`
	OutOfRangePercentage float64        `json:"out_of_range_percentage"`
	Status               AnalysisStatus `json:"status"`
	ErrorMessage         string         `json:"error_message,omitempty"`
	Details              map[string]any `json:"details,omitempty"`
}

// ComplianceAnalysis 单实体合规分析（汇总该实体的全部 TestResult）
type ComplianceAnalysis struct {
	ID              string          `json:"analysis_id"`
	SpatialEntityID string          `json:"spatial_entity_id"`
	TestResultIDs   []string        `json:"test_result_ids"`
	OverallPass     bool            `json:"overall_pass"`
	Status          AnalysisStatus  `json:"status"`
	ErrorMessage    string          `json:"error_message,omitempty"`
	SummaryResults  *SummaryResults `json:"summary_results,omitempty"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
}

// AggregatedAnalysis 跨实体聚合分析（父实体由子分析经命名聚合器合成）
type AggregatedAnalysis struct {
	ID                 string          `json:"aggregated_analysis_id"`
	SpatialEntityID    string          `json:"spatial_entity_id"`
	AggregatorID       string          `json:"aggregator_id"`
	ChildAnalysisIDs   []string        `json:"child_analysis_ids"`
	Status             AnalysisStatus  `json:"status"`
	ErrorMessage       string          `json:"error_message,omitempty"`
	AggregationResults *SummaryResults `json:"aggregation_results,omitempty"`
	CompletedAt        *time.Time      `json:"completed_at,omitempty"`
}

// DomainRating 单领域（thermal/acoustic/iaq/luminous）分级
type DomainRating struct {
	Rating int `json:"rating"`
}

// ParameterRating 单参数分级
type ParameterRating struct {
	RatingValue int `json:"rating_value"`
}

// SummaryResults 标准化汇总载荷（下游图表渲染的硬接口契约）
// 写出时 overall_rating 用数字、domains.rating 用数字、parameters.rating_value 用数字；
// 读入时数字和罗马数字两种写法、rating_value/rating 两种键名都接受
type SummaryResults struct {
	OverallRating int                        `json:"overall_rating"`
	Domains       map[string]DomainRating    `json:"domains"`
	Parameters    map[string]ParameterRating `json:"parameters"`
}

// UnmarshalJSON 宽容读取：接受数字或罗马数字分级、rating_value 或 rating 键
func (s *SummaryResults) UnmarshalJSON(data []byte) error {
	var raw struct {
		OverallRating any                       `json:"overall_rating"`
		Domains       map[string]map[string]any `json:"domains"`
		Parameters    map[string]map[string]any `json:"parameters"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if raw.OverallRating != nil {
		rating, err := ParseRating(raw.OverallRating)
		if err != nil {
			return err
		}
		s.OverallRating = rating
	}

	s.Domains = make(map[string]DomainRating, len(raw.Domains))
	for name, entry := range raw.Domains {
		v, ok := entry["rating"]
		if !ok {
			v = entry["rating_value"]
		}
		rating, err := ParseRating(v)
		if err != nil {
			return err
		}
		s.Domains[name] = DomainRating{Rating: rating}
	}

	s.Parameters = make(map[string]ParameterRating, len(raw.Parameters))
	for name, entry := range raw.Parameters {
		v, ok := entry["rating_value"]
		if !ok {
			v = entry["rating"]
		}
		rating, err := ParseRating(v)
		if err != nil {
			return err
		}
		s.Parameters[name] = ParameterRating{RatingValue: rating}
	}

	return nil
}
