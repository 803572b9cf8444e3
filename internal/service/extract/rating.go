package extract

import (
	"regexp"
	"strconv"
)

var (
	ratingOfFive = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:of|out of)\s*5\s*bubbles`)
	ratingBare   = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*bubbles`)
)

// ParseRating 把 "4.0 of 5 bubbles" 这类无障碍标签解析为 0-5 的分数，无法解析时返回 nil
func ParseRating(label string) *float64 {
	if label == "" {
		return nil
	}
	m := ratingOfFive.FindStringSubmatch(label)
	if m == nil {
		m = ratingBare.FindStringSubmatch(label)
	}
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil || v < 0 || v > 5 {
		return nil
	}
	return &v
}
