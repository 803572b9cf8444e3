package static

import (
	"context"
	"strings"
	"time"

	"github.com/LouYuanbo1/reviewcrawler/internal/infra/crawler/types"
	"github.com/PuerkitoBio/goquery"
)

type element struct {
	page *Page
	sel  *goquery.Selection
}

var _ types.Element = (*element)(nil)

func wrap(p *Page, s *goquery.Selection) []types.Element {
	out := make([]types.Element, 0, s.Length())
	s.Each(func(_ int, node *goquery.Selection) {
		out = append(out, &element{page: p, sel: node})
	})
	return out
}

func (e *element) Elements(selector string) []types.Element {
	return wrap(e.page, e.sel.Find(selector))
}

func (e *element) Element(selector string) (types.Element, bool) {
	found := e.sel.Find(selector)
	if found.Length() == 0 {
		return nil, false
	}
	return &element{page: e.page, sel: found.First()}, true
}

func (e *element) Text() string {
	return normalize(e.sel.Text())
}

func (e *element) Attr(name string) (string, bool) {
	return e.sel.Attr(name)
}

func (e *element) Closest(selector string) bool {
	return e.sel.Closest(selector).Length() > 0
}

// Visible 没有 hidden 属性，自身和祖先都没有 display:none / visibility:hidden
func (e *element) Visible() bool {
	for n := e.sel; n.Length() > 0; n = n.Parent() {
		if _, ok := n.Attr("hidden"); ok {
			return false
		}
		style, _ := n.Attr("style")
		style = strings.ReplaceAll(strings.ToLower(style), " ", "")
		if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
			return false
		}
	}
	return true
}

func (e *element) Enabled() bool {
	_, disabled := e.sel.Attr("disabled")
	return !disabled
}

// Click 元素或其最近的 <a> 带可跳转的 href 时加载目标页，否则什么都不做
func (e *element) Click(ctx context.Context, _ time.Duration) error {
	link := e.sel
	if goquery.NodeName(link) != "a" {
		link = e.sel.Closest("a")
	}
	href, ok := link.Attr("href")
	href = strings.TrimSpace(href)
	if !ok || href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return ctx.Err()
	}
	return e.page.Navigate(ctx, e.page.resolve(href))
}

func (e *element) JSClick(ctx context.Context) error {
	return e.Click(ctx, 0)
}

func (e *element) ScrollIntoView(ctx context.Context) error {
	return ctx.Err()
}
