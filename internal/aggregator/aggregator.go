package aggregator

import (
	"github.com/bruadam/hvx-sub006/internal/domain"

	"go.uber.org/zap"
)

// WeightCombine 多属性权重合成方式
type WeightCombine string

const (
	CombineProduct WeightCombine = "product"
	CombineSum     WeightCombine = "sum"
)

// ChildInput 单个子结果：数值（或分级）加上该子实体的权重属性
type ChildInput struct {
	Value      float64
	Properties map[string]float64
}

// Engine 聚合引擎：按命名策略把子结果合成父结果
type Engine struct {
	combine WeightCombine
	logger  *zap.Logger
}

// NewEngine 创建聚合引擎
// combine 控制 multi_property_weighted 的权重合成方式，默认 product
func NewEngine(combine WeightCombine, logger *zap.Logger) *Engine {
	if combine == "" {
		combine = CombineProduct
	}
	return &Engine{combine: combine, logger: logger}
}

// Aggregate 按聚合器定义合成子结果
// 子结果集为空时返回聚合错误——绝不静默合成默认结果
func (e *Engine) Aggregate(spec domain.AggregatorSpec, children []ChildInput) (float64, error) {
	if len(children) == 0 {
		return 0, domain.NewAggregationError("empty child set for aggregator %s", spec.ID)
	}

	switch spec.Type {
	case domain.AggregateWorst:
		// 分级尺度 1..4，数值越大越差
		return e.maxValue(children), nil
	case domain.AggregateBest:
		return e.minValue(children), nil
	case domain.AggregateAverage:
		return e.average(children), nil
	case domain.AggregateWeightedAverage:
		return e.weightedAverage(spec, children, e.singleWeight)
	case domain.AggregateMultiWeighted:
		return e.weightedAverage(spec, children, e.combinedWeight)
	default:
		return 0, domain.NewConfigurationError("aggregator_type", "unknown aggregator type: "+string(spec.Type))
	}
}

// AggregateBools 布尔结果聚合：worst = 任一 false 即 false，best = 任一 true 即 true
func (e *Engine) AggregateBools(aggType domain.AggregatorType, values []bool) (bool, error) {
	if len(values) == 0 {
		return false, domain.NewAggregationError("empty child set")
	}
	switch aggType {
	case domain.AggregateWorst:
		for _, v := range values {
			if !v {
				return false, nil
			}
		}
		return true, nil
	case domain.AggregateBest:
		for _, v := range values {
			if v {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, domain.NewConfigurationError("aggregator_type", "boolean aggregation supports worst/best only, got "+string(aggType))
	}
}

func (e *Engine) maxValue(children []ChildInput) float64 {
	max := children[0].Value
	for _, c := range children[1:] {
		if c.Value > max {
			max = c.Value
		}
	}
	return max
}

func (e *Engine) minValue(children []ChildInput) float64 {
	min := children[0].Value
	for _, c := range children[1:] {
		if c.Value < min {
			min = c.Value
		}
	}
	return min
}

func (e *Engine) average(children []ChildInput) float64 {
	var total float64
	for _, c := range children {
		total += c.Value
	}
	return total / float64(len(children))
}

// weightedAverage Σ(value·weight) / Σ(weight)
// Σweight = 0 时回退到无权平均（缺权重不等于无结果）
func (e *Engine) weightedAverage(spec domain.AggregatorSpec, children []ChildInput, weightOf func(domain.AggregatorSpec, ChildInput) float64) (float64, error) {
	var weightedSum, weightTotal float64
	for _, c := range children {
		w := weightOf(spec, c)
		weightedSum += c.Value * w
		weightTotal += w
	}
	if weightTotal == 0 {
		e.logger.Warn("All aggregation weights are zero, falling back to unweighted average",
			zap.String("aggregator_id", spec.ID),
		)
		return e.average(children), nil
	}
	return weightedSum / weightTotal, nil
}

// singleWeight 取第一个权重属性；子实体缺该属性时权重默认 1.0
func (e *Engine) singleWeight(spec domain.AggregatorSpec, child ChildInput) float64 {
	if len(spec.WeightProperties) == 0 {
		return 1.0
	}
	if w, ok := child.Properties[spec.WeightProperties[0]]; ok {
		return w
	}
	return 1.0
}

// combinedWeight 多属性权重合成（如 面积 × 设计人数），缺失属性按 1.0 计
func (e *Engine) combinedWeight(spec domain.AggregatorSpec, child ChildInput) float64 {
	if len(spec.WeightProperties) == 0 {
		return 1.0
	}
	var combined float64
	switch e.combine {
	case CombineSum:
		combined = 0
		for _, prop := range spec.WeightProperties {
			if w, ok := child.Properties[prop]; ok {
				combined += w
			} else {
				combined += 1.0
			}
		}
	default: // product
		combined = 1.0
		for _, prop := range spec.WeightProperties {
			if w, ok := child.Properties[prop]; ok {
				combined *= w
			}
		}
	}
	return combined
}
