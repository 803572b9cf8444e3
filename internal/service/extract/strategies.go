package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/LouYuanbo1/reviewcrawler/internal/infra/crawler/types"
)

// scope 一次字段抽取可见的上下文
type scope struct {
	card   types.Element
	page   types.Page
	policy TextPolicy
}

// strategy 从卡片中取一个字段，ok 为 false 表示未命中，交给下一个策略
type strategy func(s scope) (string, bool)

// run 单个策略内部的 panic 视为未命中
func run(st strategy, s scope) (v string, ok bool) {
	defer func() {
		if recover() != nil {
			v, ok = "", false
		}
	}()
	return st(s)
}

func firstOf(s scope, strategies []strategy) *string {
	for _, st := range strategies {
		if v, ok := run(st, s); ok && v != "" {
			return &v
		}
	}
	return nil
}

func nonEmpty(v string) (string, bool) {
	v = strings.TrimSpace(v)
	return v, v != ""
}

// bySelector 第一个匹配节点的文本
func bySelector(selector string) strategy {
	return func(s scope) (string, bool) {
		return nonEmpty(firstText(s.card, selector))
	}
}

// byText 最内层包含 substr 的节点的文本
func byText(selector, substr string) strategy {
	return func(s scope) (string, bool) {
		return nonEmpty(safeText(withText(s.card, selector, substr)))
	}
}

// byLeadingText 第一个文本以 re 开头的叶子节点
func byLeadingText(selector string, re *regexp.Regexp) strategy {
	return func(s scope) (string, bool) {
		for _, n := range leaves(safeElements(s.card, selector), selector) {
			if t := safeText(n); re.MatchString(t) {
				return t, true
			}
		}
		return "", false
	}
}

func byAttr(selector, attr string) strategy {
	return func(s scope) (string, bool) {
		return nonEmpty(safeAttr(safeFirst(s.card, selector), attr))
	}
}

var titleStrategies = []strategy{
	bySelector("a[href*='ShowUserReviews'] span, span.yCeTE"),
	bySelector("a[href*='ShowUserReviews']"),
	bySelector("[data-automation='reviewTitle']"),
	bySelector("a[data-test-target='review-title']"),
	bySelector("span[data-test-target='review-title']"),
	bySelector("h3, h4"),
}

const (
	textCandidates = "div[class*='bgMZj'], div[class*='bgMZj'] span, span.jguWG, span.yCeTE, " +
		"[data-automation='reviewText'], [data-test-target='review-text']"
	responseBlocks = "[data-automation*='Response'], [data-test-target*='response']"
	genericBlocks  = "p, q, div"
)

// replyOpening 商家回复块开头的固定文字
var replyOpening = regexp.MustCompile(`(?i)^(Response from|Management response|Owner response)\b`)

// inResponse 节点位于商家回复块内，或者本身就是以回复标记开头的块。
// 包住回复块的容器也排除，避免正文和回复被拼在一起
func inResponse(el types.Element) bool {
	if el.Closest(responseBlocks) {
		return true
	}
	if replyOpening.MatchString(safeText(el)) {
		return true
	}
	return len(safeElements(el, responseBlocks)) > 0
}

func withoutResponses(nodes []types.Element) []types.Element {
	out := nodes[:0:0]
	for _, n := range nodes {
		if !inResponse(n) {
			out = append(out, n)
		}
	}
	return out
}

// leaves 去掉包含其他同类块的节点，避免外层容器把整张卡片当成正文
func leaves(nodes []types.Element, selector string) []types.Element {
	out := nodes[:0:0]
	for _, n := range nodes {
		if len(safeElements(n, selector)) == 0 {
			out = append(out, n)
		}
	}
	return out
}

func textFrom(selector string, limit int, filter func([]types.Element) []types.Element) strategy {
	return func(s scope) (string, bool) {
		nodes := safeElements(s.card, selector)
		if filter != nil {
			nodes = filter(nodes)
		}
		if v := s.policy.PickLongestText(nodes, limit); v != nil {
			return *v, true
		}
		return "", false
	}
}

var textStrategies = []strategy{
	textFrom(textCandidates, 30, withoutResponses),
	textFrom("span[lang]", 30, withoutResponses),
	textFrom(genericBlocks, 40, func(n []types.Element) []types.Element {
		return withoutResponses(leaves(n, genericBlocks))
	}),
}

// ratingLabels 按顺序给出可能的评分标签
var ratingLabels = []strategy{
	byAttr("[aria-label*='bubbles']", "aria-label"),
	func(s scope) (string, bool) {
		svg := safeFirst(s.card, "svg[data-automation='bubbleRatingImage']")
		if svg == nil {
			return "", false
		}
		if v := firstText(svg, "title"); v != "" {
			return v, true
		}
		for _, id := range strings.Fields(safeAttr(svg, "aria-labelledby")) {
			sel := `[id="` + strings.ReplaceAll(id, `"`, ``) + `"]`
			if v := firstText(s.card, sel); v != "" {
				return v, true
			}
			if s.page != nil {
				if els := s.page.Elements(sel); len(els) > 0 {
					if v := safeText(els[0]); v != "" {
						return v, true
					}
				}
			}
		}
		return nonEmpty(safeAttr(svg, "aria-label"))
	},
	byAttr("svg[aria-label*='bubbles'], span[aria-label*='bubbles']", "aria-label"),
}

var monthYear = regexp.MustCompile(`(?i)(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\s+\d{4}`)

var travelDateStrategies = []strategy{
	byText("span, div, p", "Date of experience"),
	func(s scope) (string, bool) {
		return nonEmpty(monthYear.FindString(safeText(s.card)))
	},
}

var writtenPrefix = regexp.MustCompile(`(?i)^Written\s`)

var writtenDateStrategies = []strategy{
	byLeadingText("span", writtenPrefix),
}

var languageStrategies = []strategy{
	byAttr("span[lang]", "lang"),
}

const memberName = "[data-automation='memberName'], a[data-automation='reviewer-name']"

var authorStrategies = []strategy{
	bySelector(memberName),
	bySelector("a"),
}

var (
	contributionWord = regexp.MustCompile(`(?i)\b(contribution|review)s?\b`)
	firstNumber      = regexp.MustCompile(`\d+`)
)

var locationStrategies = []strategy{
	bySelector("[data-automation='reviewerLocation'], span[data-test-target='reviewer-location']"),
	func(s scope) (string, bool) {
		nav := safeFirst(s.card, "div[class*='navcl']")
		if nav == nil {
			return "", false
		}
		sp := safeFirst(nav, "span:not(.IugUm):not([class*='IugUm'])")
		if sp == nil {
			sp = safeFirst(nav, "span")
		}
		t := safeText(sp)
		if t == "" || contributionWord.MatchString(t) {
			return "", false
		}
		return t, true
	},
	func(s scope) (string, bool) {
		for _, sp := range safeElements(s.card, "span") {
			if len(safeElements(sp, "span")) > 0 {
				continue
			}
			t := safeText(sp)
			// 日期、计数里也会有逗号
			if firstNumber.MatchString(t) {
				continue
			}
			if strings.Contains(t, ",") && len(strings.Fields(t)) <= 5 {
				return t, true
			}
		}
		return "", false
	},
}

var (
	contributionStrategies = []strategy{byText("span", "contribution")}
	helpfulStrategies      = []strategy{byText("span", "helpful")}
)

// count 取文本中第一段数字
func count(s scope, strategies []strategy) *int {
	for _, st := range strategies {
		v, ok := run(st, s)
		if !ok {
			continue
		}
		m := firstNumber.FindString(v)
		if m == "" {
			continue
		}
		if n, err := strconv.Atoi(m); err == nil {
			return &n
		}
	}
	return nil
}

func rating(s scope) *float64 {
	for _, st := range ratingLabels {
		if label, ok := run(st, s); ok {
			if r := ParseRating(label); r != nil {
				return r
			}
		}
	}
	return nil
}
