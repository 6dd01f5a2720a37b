package rulestore

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bruadam/hvx-sub006/internal/domain"
	"github.com/bruadam/hvx-sub006/internal/evaluator"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// standardFile 标准定义 YAML 文件结构
type standardFile struct {
	Standard string           `yaml:"standard"`
	RuleSets []domain.RuleSet `yaml:"rule_sets"`
}

// Loader 标准规则集加载器
type Loader struct {
	logger *zap.Logger
}

// NewLoader 创建加载器
func NewLoader(logger *zap.Logger) *Loader {
	return &Loader{logger: logger}
}

// LoadFile 加载单个标准定义文件
// 每条规则的限值配置在加载时即通过解析器校验——坏配置快速失败，绝不静默产出结果
func (l *Loader) LoadFile(path string) ([]domain.RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule file %s: %w", path, err)
	}

	var file standardFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, domain.NewConfigurationError(path, "invalid YAML: "+err.Error())
	}

	for i := range file.RuleSets {
		rs := &file.RuleSets[i]
		if rs.Standard == "" {
			rs.Standard = file.Standard
		}
		if err := validateRuleSet(rs); err != nil {
			return nil, fmt.Errorf("rule set %s in %s: %w", rs.ID, path, err)
		}
	}

	l.logger.Info("Loaded standard definition",
		zap.String("path", path),
		zap.Int("rule_set_count", len(file.RuleSets)),
	)
	return file.RuleSets, nil
}

// LoadDir 加载目录下全部标准定义（按文件名排序，保证规则集顺序确定）
func (l *Loader) LoadDir(dir string) ([]domain.RuleSet, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule dir %s: %w", dir, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
			paths = append(paths, filepath.Join(dir, name))
		}
	}
	sort.Strings(paths)

	var ruleSets []domain.RuleSet
	for _, path := range paths {
		loaded, err := l.LoadFile(path)
		if err != nil {
			return nil, err
		}
		ruleSets = append(ruleSets, loaded...)
	}
	if len(ruleSets) == 0 {
		return nil, domain.NewConfigurationError(dir, "no rule sets found")
	}
	return ruleSets, nil
}

// validateRuleSet 规则集加载期校验
func validateRuleSet(rs *domain.RuleSet) error {
	if rs.ID == "" {
		return domain.NewConfigurationError("id", "rule set requires an id")
	}
	if rs.Standard == "" {
		return domain.NewConfigurationError("standard", "rule set requires a standard identifier")
	}
	if len(rs.Rules) == 0 {
		return domain.NewConfigurationError("rules", "rule set has no rules")
	}
	for i := range rs.Rules {
		rule := &rs.Rules[i]
		if rule.ID == "" {
			return domain.NewConfigurationError("rules", "rule requires an id")
		}
		if rule.Metric == "" {
			return domain.NewConfigurationError(rule.ID, "rule requires a metric")
		}
		normalizeParams(rule)
		// 没有可解析评估器的规则没有意义：构造期直接拒绝
		if _, err := evaluator.Resolve(rule.Operator); err != nil {
			return err
		}
		limits, err := evaluator.ParseLimits(rule.Params, rule.Operator)
		if err != nil {
			return fmt.Errorf("rule %s: %w", rule.ID, err)
		}
		if err := validateLimitBounds(rule, limits); err != nil {
			return err
		}
		if rule.TolerancePercent != nil && (*rule.TolerancePercent < 0 || *rule.TolerancePercent > 100) {
			return domain.NewConfigurationError(rule.ID, "tolerance_percentage must be in [0, 100]")
		}
		if rule.ToleranceHours != nil && *rule.ToleranceHours < 0 {
			return domain.NewConfigurationError(rule.ID, "tolerance_hours must be >= 0")
		}
		if rule.CategoryRating < 0 || rule.CategoryRating > domain.RatingWorst {
			return domain.NewConfigurationError(rule.ID, "category_rating must be in [0, 4]")
		}
	}
	return nil
}

// validateLimitBounds 用阈值构造器复核限值边界
// 倒置区间（lower >= upper）和超量程限值在加载期拒绝，绝不带病评估
func validateLimitBounds(rule *domain.TestRule, limits evaluator.Limits) error {
	var thresholdType domain.ThresholdType
	switch rule.Operator {
	case domain.ModeBidirectional, domain.ModeOutsideRange:
		thresholdType = domain.ThresholdBidirectional
	case domain.ModeUnidirectionalMin:
		thresholdType = domain.ThresholdUnidirectionalMin
	case domain.ModeUnidirectionalMax:
		thresholdType = domain.ThresholdUnidirectionalMax
	default:
		// equality 规范化为 min==max，不适用区间序校验
		return nil
	}
	if _, err := domain.NewComplianceThreshold(limits.Min, limits.Max, thresholdType, "", 0); err != nil {
		return fmt.Errorf("rule %s: %w", rule.ID, err)
	}
	return nil
}

// normalizeParams YAML 解码出的嵌套 map 键类型规范化为 string
func normalizeParams(rule *domain.TestRule) {
	if rule.Params == nil {
		return
	}
	rule.Params = normalizeMap(rule.Params)
}

func normalizeMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return normalizeMap(val)
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[fmt.Sprintf("%v", k)] = normalizeValue(inner)
		}
		return out
	default:
		return v
	}
}
