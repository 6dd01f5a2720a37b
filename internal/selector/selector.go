package selector

import (
	"github.com/bruadam/hvx-sub006/internal/domain"

	"go.uber.org/zap"
)

// SelectedRule 选中的规则及其来源规则集（汇总分级时需要标准信息）
type SelectedRule struct {
	Rule    domain.TestRule
	RuleSet *domain.RuleSet
}

// Selector 规则选择器：按空间实体上下文匹配适用性条件
type Selector struct {
	logger *zap.Logger
}

// NewSelector 创建规则选择器
func NewSelector(logger *zap.Logger) *Selector {
	return &Selector{logger: logger}
}

// SelectApplicableRules 选出适用于该实体的有效规则列表
// 规则集资格：任一条件匹配即适用（条件间为 OR）；条件列表为空 = 普遍适用
// 输出保持规则集输入顺序及集内规则顺序；同指标重叠规则全部保留，不做静默去重
func (s *Selector) SelectApplicableRules(entity *domain.SpatialEntity, ruleSets []domain.RuleSet, season string) []SelectedRule {
	var selected []SelectedRule
	for i := range ruleSets {
		rs := &ruleSets[i]
		if !s.ruleSetApplies(entity, rs, season) {
			continue
		}
		for _, rule := range rs.Rules {
			selected = append(selected, SelectedRule{Rule: rule, RuleSet: rs})
		}
	}

	s.logger.Debug("Selected applicable rules",
		zap.String("entity_id", entity.ID),
		zap.Int("rule_count", len(selected)),
	)
	return selected
}

func (s *Selector) ruleSetApplies(entity *domain.SpatialEntity, rs *domain.RuleSet, season string) bool {
	if len(rs.Conditions) == 0 {
		return true
	}
	for _, cond := range rs.Conditions {
		if matches(&cond, entity, season) {
			return true
		}
	}
	return false
}

// matches 单个条件匹配：所有非空过滤器必须同时满足
// 集合过滤器用成员判断，面积过滤器用闭区间包含
func matches(cond *domain.ApplicabilityCondition, entity *domain.SpatialEntity, season string) bool {
	attrs := entity.Attributes

	if !memberOf(cond.Countries, attrs.Country) {
		return false
	}
	if !memberOf(cond.Regions, attrs.Region) {
		return false
	}
	if !memberOf(cond.Continents, attrs.Continent) {
		return false
	}
	if !memberOf(cond.BuildingTypes, attrs.BuildingType) {
		return false
	}
	if !memberOf(cond.RoomTypes, attrs.RoomType) {
		return false
	}
	if !memberOf(cond.VentilationTypes, attrs.VentilationType) {
		return false
	}
	if !memberOf(cond.Seasons, season) {
		return false
	}

	if cond.MinAreaM2 != nil || cond.MaxAreaM2 != nil {
		if attrs.AreaM2 == nil {
			return false
		}
		if cond.MinAreaM2 != nil && *attrs.AreaM2 < *cond.MinAreaM2 {
			return false
		}
		if cond.MaxAreaM2 != nil && *attrs.AreaM2 > *cond.MaxAreaM2 {
			return false
		}
	}

	return true
}

// memberOf 空过滤器即通配；非空时要求值在列表中
func memberOf(filter []string, value string) bool {
	if len(filter) == 0 {
		return true
	}
	for _, v := range filter {
		if v == value {
			return true
		}
	}
	return false
}
