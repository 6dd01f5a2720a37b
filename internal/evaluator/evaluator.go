package evaluator

import (
	"github.com/bruadam/hvx-sub006/internal/domain"
)

// MaskFunc 合规掩码评估函数：纯函数，输入有序样本和规范化限值，
// 输出同长度同顺序的布尔序列（true = 合规）
// 缺失样本（Value 为 nil）一律判为不合规——缺数据视为违规，不从分母中剔除
type MaskFunc func(samples []domain.Sample, limits Limits) []bool

// registry 规则模式 → 评估器映射
// 新增模式只需加一个函数和一条注册，不改调用点
var registry = map[string]MaskFunc{
	domain.ModeBidirectional:     evaluateBidirectional,
	domain.ModeUnidirectionalMin: evaluateUnidirectionalMin,
	domain.ModeUnidirectionalMax: evaluateUnidirectionalMax,
	domain.ModeOutsideRange:      evaluateOutsideRange,
	domain.ModeEquality:          evaluateEquality,
}

// Resolve 按规则模式解析评估器
func Resolve(mode string) (MaskFunc, error) {
	fn, ok := registry[mode]
	if !ok {
		return nil, domain.NewConfigurationError("operator", "no evaluator registered for mode: "+mode)
	}
	return fn, nil
}

// Evaluate 解析规则参数并计算合规掩码
func Evaluate(rule domain.TestRule, samples []domain.Sample) ([]bool, error) {
	fn, err := Resolve(rule.Operator)
	if err != nil {
		return nil, err
	}
	limits, err := ParseLimits(rule.Params, rule.Operator)
	if err != nil {
		return nil, err
	}
	return fn(samples, limits), nil
}

// evaluateBidirectional 双边限值：min <= value <= max（两端闭区间）
func evaluateBidirectional(samples []domain.Sample, limits Limits) []bool {
	mask := make([]bool, len(samples))
	for i, s := range samples {
		mask[i] = s.Value != nil && *s.Value >= *limits.Min && *s.Value <= *limits.Max
	}
	return mask
}

// evaluateUnidirectionalMin 下限限值：value >= min
func evaluateUnidirectionalMin(samples []domain.Sample, limits Limits) []bool {
	mask := make([]bool, len(samples))
	for i, s := range samples {
		mask[i] = s.Value != nil && *s.Value >= *limits.Min
	}
	return mask
}

// evaluateUnidirectionalMax 上限限值：value <= max
func evaluateUnidirectionalMax(samples []domain.Sample, limits Limits) []bool {
	mask := make([]bool, len(samples))
	for i, s := range samples {
		mask[i] = s.Value != nil && *s.Value <= *limits.Max
	}
	return mask
}

// evaluateOutsideRange 区间外限值：value < min 或 value > max 才合规
// 用于"禁止带"类规则（如避开共振频段、避开结露区间）
func evaluateOutsideRange(samples []domain.Sample, limits Limits) []bool {
	mask := make([]bool, len(samples))
	for i, s := range samples {
		mask[i] = s.Value != nil && (*s.Value < *limits.Min || *s.Value > *limits.Max)
	}
	return mask
}

// evaluateEquality 等值限值：value == target（target 规范化为 min==max；
// 若给出区间则落在区间内即算相等）
func evaluateEquality(samples []domain.Sample, limits Limits) []bool {
	lo, hi := limits.Min, limits.Max
	if lo == nil {
		lo = hi
	}
	if hi == nil {
		hi = lo
	}
	mask := make([]bool, len(samples))
	for i, s := range samples {
		mask[i] = s.Value != nil && *s.Value >= *lo && *s.Value <= *hi
	}
	return mask
}
