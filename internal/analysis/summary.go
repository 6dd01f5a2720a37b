package analysis

import (
	"github.com/bruadam/hvx-sub006/internal/domain"
)

// ieqDomainByMetric 指标 → IEQ 领域映射（TAIL 的 T/A/I/L 四域）
// 能耗/水耗类指标不参与 IEQ 分级，不在此表中
var ieqDomainByMetric = map[string]string{
	"air_temperature":       "thermal",
	"operative_temperature": "thermal",
	"noise_level":           "acoustic",
	"co2":                   "iaq",
	"relative_humidity":     "iaq",
	"voc":                   "iaq",
	"pm25":                  "iaq",
	"illuminance":           "luminous",
	"daylight_factor":       "luminous",
}

// RatedResult 测试结果及其规则（汇总分级需要规则的标准分级信息）
type RatedResult struct {
	Rule   domain.TestRule
	Result *domain.TestResult
}

// BuildSummary 构建标准化汇总载荷
// 参数分级：同一指标下取通过的分级规则中最优（数值最小）的分级；
// 有分级规则但全部未通过时记为最差（4）；只有未分级规则时按通过与否记 1 或 4
// 领域分级 = 该领域各参数的最差分级；总体分级 = 各领域的最差分级
func BuildSummary(results []RatedResult) *domain.SummaryResults {
	summary := &domain.SummaryResults{
		Domains:    make(map[string]domain.DomainRating),
		Parameters: make(map[string]domain.ParameterRating),
	}

	// 按指标归组
	byMetric := make(map[string][]RatedResult)
	var metricOrder []string
	for _, r := range results {
		if _, seen := byMetric[r.Rule.Metric]; !seen {
			metricOrder = append(metricOrder, r.Rule.Metric)
		}
		byMetric[r.Rule.Metric] = append(byMetric[r.Rule.Metric], r)
	}

	for _, metric := range metricOrder {
		rating := rateMetric(byMetric[metric])
		summary.Parameters[metric] = domain.ParameterRating{RatingValue: rating}

		ieqDomain, ok := ieqDomainByMetric[metric]
		if !ok {
			continue
		}
		current, exists := summary.Domains[ieqDomain]
		if !exists || rating > current.Rating {
			summary.Domains[ieqDomain] = domain.DomainRating{Rating: rating}
		}
	}

	summary.OverallRating = overallRating(summary)
	return summary
}

// rateMetric 单指标分级
func rateMetric(results []RatedResult) int {
	best := 0
	graded := false
	allPassed := true
	for _, r := range results {
		if !r.Result.Pass {
			allPassed = false
		}
		if r.Rule.CategoryRating <= 0 {
			continue
		}
		graded = true
		if r.Result.Pass && (best == 0 || r.Rule.CategoryRating < best) {
			best = r.Rule.CategoryRating
		}
	}
	if graded {
		if best == 0 {
			return domain.RatingWorst
		}
		return best
	}
	if allPassed {
		return domain.RatingBest
	}
	return domain.RatingWorst
}

// overallRating 总体分级：领域分级的最差值；无领域时退回参数分级的最差值
func overallRating(summary *domain.SummaryResults) int {
	worst := 0
	for _, d := range summary.Domains {
		if d.Rating > worst {
			worst = d.Rating
		}
	}
	if worst == 0 {
		for _, p := range summary.Parameters {
			if p.RatingValue > worst {
				worst = p.RatingValue
			}
		}
	}
	if worst == 0 {
		worst = domain.RatingWorst
	}
	return worst
}
