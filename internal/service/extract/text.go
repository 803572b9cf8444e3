package extract

import (
	"regexp"
	"strings"

	"github.com/LouYuanbo1/reviewcrawler/internal/infra/crawler/types"
)

// TextPolicy 正文挑选规则
// Strip 中的模式从候选文本中删除，删除后为空的候选被丢弃；
// Skip 匹配的候选整体丢弃
type TextPolicy struct {
	Strip []*regexp.Regexp
	Skip  []*regexp.Regexp
	// Limit 每组候选节点最多读取的数量
	Limit int
}

var spaces = regexp.MustCompile(`\s+`)

// DefaultTextPolicy 针对目前观察到的页面结构
func DefaultTextPolicy() TextPolicy {
	return TextPolicy{
		Strip: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(Read more|Show less)\b.*$`),
			regexp.MustCompile(`(?i)^Written\s+\w+\s+\d{1,2},\s+\d{4}.*$`),
			regexp.MustCompile(`(?i)This review is the subjective opinion.*$`),
		},
		Skip: []*regexp.Regexp{
			regexp.MustCompile(`(?i)^written\s`),
			regexp.MustCompile(`(?i)^(Response from|Management response|Owner response)\b`),
			regexp.MustCompile(`(?i)^©|all rights reserved\.?$`),
		},
		Limit: 30,
	}
}

// Clean 去掉样板文字并压缩空白，结果为空时返回 ""
func (tp TextPolicy) Clean(s string) string {
	s = spaces.ReplaceAllString(strings.TrimSpace(s), " ")
	for _, re := range tp.Strip {
		s = re.ReplaceAllString(s, "")
	}
	s = spaces.ReplaceAllString(strings.TrimSpace(s), " ")
	if s == "" {
		return ""
	}
	for _, re := range tp.Skip {
		if re.MatchString(s) {
			return ""
		}
	}
	return s
}

// PickLongest 清洗后取最长的一段，长度相同时取先出现的
func (tp TextPolicy) PickLongest(candidates []string) *string {
	best := ""
	for _, c := range candidates {
		c = tp.Clean(c)
		if len([]rune(c)) > len([]rune(best)) {
			best = c
		}
	}
	if best == "" {
		return nil
	}
	return &best
}

// PickLongestText 读取前 limit 个节点的可见文本后交给 PickLongest
func (tp TextPolicy) PickLongestText(nodes []types.Element, limit int) *string {
	if limit <= 0 {
		limit = tp.Limit
	}
	if limit > 0 && len(nodes) > limit {
		nodes = nodes[:limit]
	}
	texts := make([]string, 0, len(nodes))
	for _, n := range nodes {
		texts = append(texts, safeText(n))
	}
	return tp.PickLongest(texts)
}
