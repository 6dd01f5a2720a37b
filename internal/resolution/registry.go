package resolution

import (
	"time"

	"github.com/bruadam/hvx-sub006/internal/domain"
)

// Category 数据类别（决定最低分辨率和默认聚合方法）
type Category string

const (
	CategoryIndoorClimate Category = "indoor_climate"
	CategoryEnergy        Category = "energy"
	CategoryWater         Category = "water"
	CategoryWeather       Category = "weather"
)

// CategorySpec 类别规格
type CategorySpec struct {
	// MinResolution 该类别可接受的最粗采样间隔
	MinResolution time.Duration
	// DefaultMethod 重采样时的默认聚合方法（气候/气象取均值，能耗/水耗取总和）
	DefaultMethod Method
}

// Registry 指标 → 类别注册表（显式、可测试，替代散落的枚举查表）
type Registry struct {
	categories map[Category]CategorySpec
	metrics    map[string]Category
}

// NewDefaultRegistry 创建默认注册表
func NewDefaultRegistry() *Registry {
	return &Registry{
		categories: map[Category]CategorySpec{
			CategoryIndoorClimate: {MinResolution: time.Hour, DefaultMethod: MethodMean},
			CategoryEnergy:        {MinResolution: time.Hour, DefaultMethod: MethodSum},
			CategoryWater:         {MinResolution: time.Hour, DefaultMethod: MethodSum},
			CategoryWeather:       {MinResolution: time.Hour, DefaultMethod: MethodMean},
		},
		metrics: map[string]Category{
			"air_temperature":       CategoryIndoorClimate,
			"operative_temperature": CategoryIndoorClimate,
			"co2":                   CategoryIndoorClimate,
			"relative_humidity":     CategoryIndoorClimate,
			"voc":                   CategoryIndoorClimate,
			"pm25":                  CategoryIndoorClimate,
			"noise_level":           CategoryIndoorClimate,
			"illuminance":           CategoryIndoorClimate,
			"daylight_factor":       CategoryIndoorClimate,
			"electricity":           CategoryEnergy,
			"heating_energy":        CategoryEnergy,
			"cooling_energy":        CategoryEnergy,
			"water_consumption":     CategoryWater,
			"outdoor_temperature":   CategoryWeather,
			"solar_radiation":       CategoryWeather,
			"wind_speed":            CategoryWeather,
		},
	}
}

// RegisterMetric 注册指标到类别的映射（覆盖已有映射）
func (r *Registry) RegisterMetric(metric string, category Category) {
	r.metrics[metric] = category
}

// CategoryFor 按指标名查类别
func (r *Registry) CategoryFor(metric string) (Category, error) {
	c, ok := r.metrics[metric]
	if !ok {
		return "", domain.NewConfigurationError("metric", "no category registered for metric: "+metric)
	}
	return c, nil
}

// Spec 按类别查规格
func (r *Registry) Spec(category Category) (CategorySpec, error) {
	spec, ok := r.categories[category]
	if !ok {
		return CategorySpec{}, domain.NewConfigurationError("category", "unknown data category: "+string(category))
	}
	return spec, nil
}

// SpecForMetric 按指标名直接查规格
func (r *Registry) SpecForMetric(metric string) (CategorySpec, error) {
	c, err := r.CategoryFor(metric)
	if err != nil {
		return CategorySpec{}, err
	}
	return r.Spec(c)
}
