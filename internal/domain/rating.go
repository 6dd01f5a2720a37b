package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// 分级常量：1=最优（Category I）… 4=最差（Category IV）
const (
	RatingBest  = 1
	RatingWorst = 4
)

var romanByRating = map[int]string{1: "I", 2: "II", 3: "III", 4: "IV"}
var ratingByRoman = map[string]int{"I": 1, "II": 2, "III": 3, "IV": 4}

// RatingToRoman 数字分级转罗马数字标签
func RatingToRoman(rating int) (string, error) {
	r, ok := romanByRating[rating]
	if !ok {
		return "", fmt.Errorf("rating out of range: %d", rating)
	}
	return r, nil
}

// ParseRating 解析分级值，同时接受数字（1..4）和罗马数字（"I".."IV"）两种写法
func ParseRating(v any) (int, error) {
	switch val := v.(type) {
	case int:
		if val >= RatingBest && val <= RatingWorst {
			return val, nil
		}
	case int64:
		return ParseRating(int(val))
	case float64:
		n := int(val)
		if float64(n) == val {
			return ParseRating(n)
		}
	case json.Number:
		f, err := val.Float64()
		if err == nil {
			return ParseRating(f)
		}
	case string:
		if r, ok := ratingByRoman[strings.ToUpper(strings.TrimSpace(val))]; ok {
			return r, nil
		}
		var n int
		if _, err := fmt.Sscanf(strings.TrimSpace(val), "%d", &n); err == nil {
			return ParseRating(n)
		}
	}
	return 0, fmt.Errorf("unrecognized rating value: %v", v)
}
