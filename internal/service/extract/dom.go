package extract

import (
	"strings"

	"github.com/LouYuanbo1/reviewcrawler/internal/infra/crawler/types"
)

// 以下辅助函数吞掉适配器内部的 panic，查找失败一律视为“不存在”

func safeText(el types.Element) (s string) {
	defer func() {
		if recover() != nil {
			s = ""
		}
	}()
	if el == nil {
		return ""
	}
	return strings.TrimSpace(el.Text())
}

func safeAttr(el types.Element, name string) (s string) {
	defer func() {
		if recover() != nil {
			s = ""
		}
	}()
	if el == nil {
		return ""
	}
	v, _ := el.Attr(name)
	return strings.TrimSpace(v)
}

func safeElements(el types.Element, selector string) (els []types.Element) {
	defer func() {
		if recover() != nil {
			els = nil
		}
	}()
	if el == nil {
		return nil
	}
	return el.Elements(selector)
}

func safeFirst(el types.Element, selector string) types.Element {
	els := safeElements(el, selector)
	if len(els) == 0 {
		return nil
	}
	return els[0]
}

// firstText 第一个匹配节点的文本
func firstText(el types.Element, selector string) string {
	return safeText(safeFirst(el, selector))
}

// withText 返回第一个文本包含 substr（不区分大小写）且没有同类子节点也包含它的节点，
// 即最内层的匹配
func withText(el types.Element, selector, substr string) types.Element {
	needle := strings.ToLower(substr)
	for _, c := range safeElements(el, selector) {
		if !strings.Contains(strings.ToLower(safeText(c)), needle) {
			continue
		}
		if inner := innermost(c, selector, needle); inner != nil {
			return inner
		}
		return c
	}
	return nil
}

func innermost(el types.Element, selector, needle string) types.Element {
	for _, c := range safeElements(el, selector) {
		if strings.Contains(strings.ToLower(safeText(c)), needle) {
			if deeper := innermost(c, selector, needle); deeper != nil {
				return deeper
			}
			return c
		}
	}
	return nil
}
