package domain

import "time"

// Sample 时序采样点（Value 为 nil 表示缺失）
type Sample struct {
	Timestamp time.Time `json:"timestamp"`
	Value     *float64  `json:"value"`
}

// TimeSeries 时间序列（由数据接入层物化，引擎只读）
type TimeSeries struct {
	MeteringPointID string   `json:"metering_point_id,omitempty"`
	EntityID        string   `json:"entity_id"`
	Metric          string   `json:"metric"`
	Unit            string   `json:"unit,omitempty"`
	Samples         []Sample `json:"samples"`
}

// Timestamps 返回全部采样时间戳（顺序与样本一致）
func (s *TimeSeries) Timestamps() []time.Time {
	ts := make([]time.Time, len(s.Samples))
	for i, sample := range s.Samples {
		ts[i] = sample.Timestamp
	}
	return ts
}

// MeteringPoint 计量点（对应 metering_points 表）
type MeteringPoint struct {
	ID       string `json:"metering_point_id" db:"metering_point_id"`
	EntityID string `json:"entity_id" db:"entity_id"`
	Metric   string `json:"metric" db:"metric"`
	Unit     string `json:"unit" db:"unit"`
}

// Float 返回 float64 指针（构造样本和限值的便捷函数）
func Float(v float64) *float64 { return &v }
