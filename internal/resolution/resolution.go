package resolution

import (
	"math"
	"sort"
	"time"

	"github.com/bruadam/hvx-sub006/internal/domain"
)

// Method 重采样聚合方法
type Method string

const (
	MethodMean   Method = "mean"
	MethodMedian Method = "median"
	MethodSum    Method = "sum"
	MethodMin    Method = "min"
	MethodMax    Method = "max"
	MethodFirst  Method = "first"
	MethodLast   Method = "last"
	MethodCount  Method = "count"
	MethodStd    Method = "std"
)

// DetectResolution 检测采样间隔：取相邻时间戳间隔的众数
// 少于两个时间戳（无法求差）时返回数据不足错误（"undetermined"）
func DetectResolution(timestamps []time.Time) (time.Duration, error) {
	if len(timestamps) < 2 {
		return 0, domain.NewInsufficientDataError("need at least 2 timestamps to detect resolution, got %d", len(timestamps))
	}

	counts := make(map[time.Duration]int)
	for i := 1; i < len(timestamps); i++ {
		gap := timestamps[i].Sub(timestamps[i-1])
		if gap > 0 {
			counts[gap]++
		}
	}
	if len(counts) == 0 {
		return 0, domain.NewInsufficientDataError("no positive timestamp gaps found")
	}

	var modal time.Duration
	best := -1
	for gap, n := range counts {
		// 同频次时取较小间隔，保证结果确定
		if n > best || (n == best && gap < modal) {
			modal = gap
			best = n
		}
	}
	return modal, nil
}

// ValidateResolution 校验序列分辨率不粗于类别最低要求
func ValidateResolution(timestamps []time.Time, spec CategorySpec) error {
	detected, err := DetectResolution(timestamps)
	if err != nil {
		return err
	}
	if detected > spec.MinResolution {
		return domain.NewValidationError("detected resolution %s is coarser than category minimum %s", detected, spec.MinResolution)
	}
	return nil
}

// AggregateToResolution 将序列重采样到目标间隔
// 桶内缺失值不参与统计；整桶无有效值时保留一个缺失样本（缺数据不被吞掉）
func AggregateToResolution(series domain.TimeSeries, target time.Duration, method Method) (domain.TimeSeries, error) {
	if target <= 0 {
		return domain.TimeSeries{}, domain.NewValidationError("target resolution must be positive, got %s", target)
	}

	buckets := make(map[time.Time][]*float64)
	for _, s := range series.Samples {
		key := s.Timestamp.Truncate(target)
		buckets[key] = append(buckets[key], s.Value)
	}

	keys := make([]time.Time, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })

	out := series
	out.Samples = make([]domain.Sample, 0, len(keys))
	for _, k := range keys {
		var values []float64
		for _, v := range buckets[k] {
			if v != nil {
				values = append(values, *v)
			}
		}
		value, err := apply(method, values)
		if err != nil {
			return domain.TimeSeries{}, err
		}
		out.Samples = append(out.Samples, domain.Sample{Timestamp: k, Value: value})
	}
	return out, nil
}

// EnsureMinimumResolution 保证序列不细于类别最低分辨率
// 检测间隔细于最低分辨率时按默认方法聚合到最低分辨率；
// 已达到或粗于最低分辨率时原样返回——引擎绝不通过上采样伪造更细的数据
func EnsureMinimumResolution(series domain.TimeSeries, spec CategorySpec) (domain.TimeSeries, error) {
	detected, err := DetectResolution(series.Timestamps())
	if err != nil {
		return domain.TimeSeries{}, err
	}
	if detected >= spec.MinResolution {
		return series, nil
	}
	return AggregateToResolution(series, spec.MinResolution, spec.DefaultMethod)
}

// apply 对桶内有效值计算统计量；values 为空时返回 nil（缺失样本）
func apply(method Method, values []float64) (*float64, error) {
	if method == MethodCount {
		return domain.Float(float64(len(values))), nil
	}
	if len(values) == 0 {
		return nil, nil
	}

	switch method {
	case MethodMean:
		return domain.Float(sum(values) / float64(len(values))), nil
	case MethodMedian:
		sorted := append([]float64(nil), values...)
		sort.Float64s(sorted)
		mid := len(sorted) / 2
		if len(sorted)%2 == 0 {
			return domain.Float((sorted[mid-1] + sorted[mid]) / 2), nil
		}
		return domain.Float(sorted[mid]), nil
	case MethodSum:
		return domain.Float(sum(values)), nil
	case MethodMin:
		min := values[0]
		for _, v := range values[1:] {
			if v < min {
				min = v
			}
		}
		return domain.Float(min), nil
	case MethodMax:
		max := values[0]
		for _, v := range values[1:] {
			if v > max {
				max = v
			}
		}
		return domain.Float(max), nil
	case MethodFirst:
		return domain.Float(values[0]), nil
	case MethodLast:
		return domain.Float(values[len(values)-1]), nil
	case MethodStd:
		mean := sum(values) / float64(len(values))
		var sq float64
		for _, v := range values {
			sq += (v - mean) * (v - mean)
		}
		return domain.Float(math.Sqrt(sq / float64(len(values)))), nil
	default:
		return nil, domain.NewConfigurationError("method", "unknown aggregation method: "+string(method))
	}
}

func sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}
