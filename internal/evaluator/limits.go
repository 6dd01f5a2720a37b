package evaluator

import (
	"encoding/json"

	"github.com/bruadam/hvx-sub006/internal/domain"
)

// Limits 规范化后的限值（{min, max} 或单边限值）
type Limits struct {
	Min *float64
	Max *float64
}

// ParseLimits 将异构规则配置解析为规范限值
// 按优先级依次识别：
// 1. "limits" 对象（键为 lower/upper 或 min/max）
// 2. 顶层 "min"/"max"
// 3. "limit" 对象（键为 min/max）
// 无法识别任何形状时返回配置错误；bidirectional 只给单边也返回配置错误
func ParseLimits(params map[string]any, mode string) (Limits, error) {
	limits, found := extractLimits(params)
	if !found {
		return Limits{}, domain.NewConfigurationError("params", "no recognizable limits shape (expected limits{lower,upper|min,max}, min/max, or limit{min,max})")
	}

	switch mode {
	case domain.ModeBidirectional, domain.ModeOutsideRange:
		if limits.Min == nil || limits.Max == nil {
			return Limits{}, domain.NewConfigurationError("params", mode+" rule requires both min and max")
		}
	case domain.ModeUnidirectionalMin:
		if limits.Min == nil {
			return Limits{}, domain.NewConfigurationError("params", "unidirectional_min rule requires min")
		}
	case domain.ModeUnidirectionalMax:
		if limits.Max == nil {
			return Limits{}, domain.NewConfigurationError("params", "unidirectional_max rule requires max")
		}
	case domain.ModeEquality:
		if limits.Min == nil && limits.Max == nil {
			return Limits{}, domain.NewConfigurationError("params", "equality rule requires a target value")
		}
	default:
		return Limits{}, domain.NewConfigurationError("operator", "unknown rule mode: "+mode)
	}

	return limits, nil
}

// extractLimits 按优先级提取限值；返回是否识别到形状
func extractLimits(params map[string]any) (Limits, bool) {
	// 1. limits 对象
	if obj, ok := asMap(params["limits"]); ok {
		lower := numberAt(obj, "lower", "min")
		upper := numberAt(obj, "upper", "max")
		if lower != nil || upper != nil {
			return Limits{Min: lower, Max: upper}, true
		}
	}

	// 2. 顶层 min/max
	lower := numberAt(params, "min")
	upper := numberAt(params, "max")
	if lower != nil || upper != nil {
		return Limits{Min: lower, Max: upper}, true
	}

	// 3. limit 对象
	if obj, ok := asMap(params["limit"]); ok {
		lower := numberAt(obj, "min")
		upper := numberAt(obj, "max")
		if lower != nil || upper != nil {
			return Limits{Min: lower, Max: upper}, true
		}
	}

	// equality 规则的目标值（value/target）规范化为 min==max
	if target := numberAt(params, "value", "target"); target != nil {
		return Limits{Min: target, Max: target}, true
	}

	return Limits{}, false
}

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

// numberAt 按键名顺序取第一个可解析的数值
func numberAt(m map[string]any, keys ...string) *float64 {
	for _, key := range keys {
		v, ok := m[key]
		if !ok || v == nil {
			continue
		}
		switch n := v.(type) {
		case float64:
			f := n
			return &f
		case float32:
			f := float64(n)
			return &f
		case int:
			f := float64(n)
			return &f
		case int64:
			f := float64(n)
			return &f
		case json.Number:
			if f, err := n.Float64(); err == nil {
				return &f
			}
		}
	}
	return nil
}
