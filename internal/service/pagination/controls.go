package pagination

import (
	"strings"

	"github.com/LouYuanbo1/reviewcrawler/internal/infra/crawler/types"
)

type control struct {
	el       types.Element
	selector string
	href     string
}

// usableControls 每个选择器取第一个可用的匹配
func (c *Controller) usableControls() []control {
	var out []control
	for _, sel := range c.policy.NextSelectors {
		for _, el := range c.page.Elements(sel) {
			if textOnly[sel] && !strings.Contains(strings.ToLower(el.Text()), "next") {
				continue
			}
			if !Usable(el) {
				continue
			}
			href, _ := el.Attr("href")
			out = append(out, control{el: el, selector: sel, href: href})
			break
		}
	}
	return out
}

// HasNext 页面上是否还有可点击的下一页控件
func (c *Controller) HasNext() bool {
	return len(c.usableControls()) > 0
}

// Usable 可见，且没有被 aria-hidden / aria-disabled / disabled / tabindex=-1 禁用，
// 也不在禁用的 li 或 button 里
func Usable(el types.Element) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	if !el.Visible() || !el.Enabled() {
		return false
	}
	if v, _ := el.Attr("aria-hidden"); strings.EqualFold(v, "true") {
		return false
	}
	if v, _ := el.Attr("aria-disabled"); strings.EqualFold(v, "true") {
		return false
	}
	if _, disabled := el.Attr("disabled"); disabled {
		return false
	}
	if v, _ := el.Attr("tabindex"); strings.TrimSpace(v) == "-1" {
		return false
	}
	return !el.Closest("li[disabled], button[disabled]")
}
