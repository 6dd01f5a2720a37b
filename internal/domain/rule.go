package domain

// 规则模式（决定使用哪个评估器）
const (
	ModeBidirectional     = "bidirectional"
	ModeUnidirectionalMin = "unidirectional_min"
	ModeUnidirectionalMax = "unidirectional_max"
	ModeOutsideRange      = "outside_range"
	ModeEquality          = "equality"
)

// TestRule 合规测试规则
// Params 保存模式相关的原始配置（限值形状由评估器的解析器规范化）
type TestRule struct {
	ID       string         `json:"rule_id" yaml:"id"`
	Name     string         `json:"rule_name" yaml:"name"`
	Metric   string         `json:"metric" yaml:"metric"`
	Operator string         `json:"operator" yaml:"operator"` // 规则模式
	Params   map[string]any `json:"params" yaml:"params"`

	// 容差：超标小时数或超标百分比（二选一，percentage 优先级低于 hours）
	ToleranceHours   *float64 `json:"tolerance_hours,omitempty" yaml:"tolerance_hours"`
	TolerancePercent *float64 `json:"tolerance_percentage,omitempty" yaml:"tolerance_percentage"`

	// 标准分级（1=最优 … 4=最差；0 表示该规则不参与分级）
	CategoryRating int `json:"category_rating,omitempty" yaml:"category_rating"`
}

// ApplicabilityCondition 规则集适用性条件
// 所有字段均可缺省，缺省即通配；非空过滤器必须全部满足才算匹配
type ApplicabilityCondition struct {
	Countries        []string `json:"countries,omitempty" yaml:"countries"`
	Regions          []string `json:"regions,omitempty" yaml:"regions"`
	Continents       []string `json:"continents,omitempty" yaml:"continents"`
	BuildingTypes    []string `json:"building_types,omitempty" yaml:"building_types"`
	RoomTypes        []string `json:"room_types,omitempty" yaml:"room_types"`
	VentilationTypes []string `json:"ventilation_types,omitempty" yaml:"ventilation_types"`
	Seasons          []string `json:"seasons,omitempty" yaml:"seasons"`
	MinAreaM2        *float64 `json:"min_area_m2,omitempty" yaml:"min_area_m2"`
	MaxAreaM2        *float64 `json:"max_area_m2,omitempty" yaml:"max_area_m2"`
}

// RuleSet 规则集（同一标准下的一组有序规则）
type RuleSet struct {
	ID         string                   `json:"rule_set_id" yaml:"id"`
	Name       string                   `json:"rule_set_name" yaml:"name"`
	Standard   string                   `json:"standard" yaml:"standard"` // 如 "EN16798-1", "TAIL", "ASHRAE55"
	Category   string                   `json:"category,omitempty" yaml:"category"`
	Rules      []TestRule               `json:"rules" yaml:"rules"`
	Conditions []ApplicabilityCondition `json:"conditions,omitempty" yaml:"conditions"`
}

// AggregatorType 聚合策略类型
type AggregatorType string

const (
	AggregateWorst           AggregatorType = "worst"
	AggregateBest            AggregatorType = "best"
	AggregateAverage         AggregatorType = "average"
	AggregateWeightedAverage AggregatorType = "weighted_average"
	AggregateMultiWeighted   AggregatorType = "multi_property_weighted"
)

// AggregatorSpec 聚合器定义
type AggregatorSpec struct {
	ID               string         `json:"aggregator_id" yaml:"id"`
	Name             string         `json:"aggregator_name" yaml:"name"`
	Type             AggregatorType `json:"aggregator_type" yaml:"type"`
	WeightProperties []string       `json:"weight_properties,omitempty" yaml:"weight_properties"`
	Config           map[string]any `json:"config,omitempty" yaml:"config"`
}
