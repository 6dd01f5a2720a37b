package domain

import "math"

// ThresholdType 阈值类型
type ThresholdType string

const (
	ThresholdBidirectional     ThresholdType = "bidirectional"
	ThresholdUnidirectionalMin ThresholdType = "unidirectional_min"
	ThresholdUnidirectionalMax ThresholdType = "unidirectional_max"
)

// limitMagnitudeMax 限值绝对值上限
const limitMagnitudeMax = 1e10

// ComplianceThreshold 合规阈值（不可变值对象）
// 构造时完成全部校验，非法组合直接拒绝
type ComplianceThreshold struct {
	lowerLimit    *float64
	upperLimit    *float64
	thresholdType ThresholdType
	unit          string
	tolerance     float64
}

// NewComplianceThreshold 创建合规阈值
// 校验规则：
// - 至少设置一个限值，限值绝对值不超过 1e10
// - bidirectional 必须同时给出上下限且 lower < upper
// - unidirectional_min 必须给出下限；unidirectional_max 必须给出上限
// - tolerance >= 0
func NewComplianceThreshold(lower, upper *float64, thresholdType ThresholdType, unit string, tolerance float64) (*ComplianceThreshold, error) {
	if lower == nil && upper == nil {
		return nil, NewValidationError("threshold requires at least one limit")
	}
	if tolerance < 0 {
		return nil, NewValidationError("threshold tolerance must be >= 0, got %v", tolerance)
	}
	for _, limit := range []*float64{lower, upper} {
		if limit != nil && (math.IsNaN(*limit) || math.Abs(*limit) > limitMagnitudeMax) {
			return nil, NewValidationError("threshold limit out of range: %v", *limit)
		}
	}

	switch thresholdType {
	case ThresholdBidirectional:
		if lower == nil || upper == nil {
			return nil, NewValidationError("bidirectional threshold requires both limits")
		}
		if *lower >= *upper {
			return nil, NewValidationError("bidirectional threshold requires lower < upper, got [%v, %v]", *lower, *upper)
		}
	case ThresholdUnidirectionalMin:
		if lower == nil {
			return nil, NewValidationError("unidirectional_min threshold requires lower limit")
		}
	case ThresholdUnidirectionalMax:
		if upper == nil {
			return nil, NewValidationError("unidirectional_max threshold requires upper limit")
		}
	default:
		return nil, NewValidationError("unknown threshold type: %s", thresholdType)
	}

	return &ComplianceThreshold{
		lowerLimit:    lower,
		upperLimit:    upper,
		thresholdType: thresholdType,
		unit:          unit,
		tolerance:     tolerance,
	}, nil
}

// Type 阈值类型
func (t *ComplianceThreshold) Type() ThresholdType { return t.thresholdType }

// Unit 单位
func (t *ComplianceThreshold) Unit() string { return t.unit }

// LowerLimit 下限（可能为 nil）
func (t *ComplianceThreshold) LowerLimit() *float64 { return t.lowerLimit }

// UpperLimit 上限（可能为 nil）
func (t *ComplianceThreshold) UpperLimit() *float64 { return t.upperLimit }

// IsCompliant 判断值是否合规（边界含容差，两端均为闭区间）
func (t *ComplianceThreshold) IsCompliant(value float64) bool {
	switch t.thresholdType {
	case ThresholdBidirectional:
		return value >= *t.lowerLimit-t.tolerance && value <= *t.upperLimit+t.tolerance
	case ThresholdUnidirectionalMin:
		return value >= *t.lowerLimit-t.tolerance
	case ThresholdUnidirectionalMax:
		return value <= *t.upperLimit+t.tolerance
	}
	return false
}

// DistanceFromCompliance 距合规区间的距离
// 合规时为 0；否则为距最近被违反边界的非负距离
func (t *ComplianceThreshold) DistanceFromCompliance(value float64) float64 {
	if t.IsCompliant(value) {
		return 0
	}
	switch t.thresholdType {
	case ThresholdBidirectional:
		if value < *t.lowerLimit-t.tolerance {
			return (*t.lowerLimit - t.tolerance) - value
		}
		return value - (*t.upperLimit + t.tolerance)
	case ThresholdUnidirectionalMin:
		return (*t.lowerLimit - t.tolerance) - value
	case ThresholdUnidirectionalMax:
		return value - (*t.upperLimit + t.tolerance)
	}
	return 0
}
