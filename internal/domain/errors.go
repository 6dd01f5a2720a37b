package domain

import "fmt"

// ConfigurationError 配置错误（规则/阈值参数无法识别或不完整）
// 构造阶段立即抛出，绝不静默降级为默认值
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("configuration error: %s", e.Reason)
}

// NewConfigurationError 创建配置错误
func NewConfigurationError(field, reason string) error {
	return &ConfigurationError{Field: field, Reason: reason}
}

// ValidationError 校验错误（阈值边界不一致、分辨率粗于类别最低要求）
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s", e.Reason)
}

// NewValidationError 创建校验错误
func NewValidationError(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// InsufficientDataError 数据不足错误（样本数低于检测分辨率或计算统计量的最低要求）
type InsufficientDataError struct {
	Reason string
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: %s", e.Reason)
}

// NewInsufficientDataError 创建数据不足错误
func NewInsufficientDataError(format string, args ...any) error {
	return &InsufficientDataError{Reason: fmt.Sprintf(format, args...)}
}

// AggregationError 聚合错误（子结果集为空，或所有权重为零且无回退路径）
type AggregationError struct {
	Reason string
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("aggregation error: %s", e.Reason)
}

// NewAggregationError 创建聚合错误
func NewAggregationError(format string, args ...any) error {
	return &AggregationError{Reason: fmt.Sprintf(format, args...)}
}
