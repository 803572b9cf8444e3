package static

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/LouYuanbo1/reviewcrawler/internal/infra/crawler/types"
	"github.com/PuerkitoBio/goquery"
)

// ErrNoScreenshot 静态文档无法截图
var ErrNoScreenshot = errors.New("static page cannot take screenshots")

// Fetcher 按 URL 获取 HTML
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// MapFetcher 以 URL 为键的内存页面集合，测试用
type MapFetcher map[string]string

func (m MapFetcher) Fetch(_ context.Context, u string) (string, error) {
	html, ok := m[u]
	if !ok {
		return "", fmt.Errorf("页面不存在: %s", u)
	}
	return html, nil
}

// Page 基于 goquery 的 types.Page 实现，没有脚本执行能力
// 点击带 href 的元素时通过 Fetcher 加载目标页面
type Page struct {
	mu      sync.RWMutex
	url     string
	doc     *goquery.Document
	fetcher Fetcher
}

var _ types.Page = (*Page)(nil)

func NewPage(fetcher Fetcher) *Page {
	return &Page{fetcher: fetcher}
}

// FromHTML 直接从 HTML 构造页面
func FromHTML(pageURL, html string) (*Page, error) {
	p := &Page{}
	if err := p.Load(pageURL, html); err != nil {
		return nil, err
	}
	return p, nil
}

// Load 替换当前文档
func (p *Page) Load(pageURL, html string) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return fmt.Errorf("解析HTML失败: %w", err)
	}
	p.mu.Lock()
	p.url = pageURL
	p.doc = doc
	p.mu.Unlock()
	return nil
}

func (p *Page) document() *goquery.Document {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.doc
}

func (p *Page) URL() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.url
}

func (p *Page) Navigate(ctx context.Context, target string) error {
	if p.fetcher == nil {
		return errors.New("static page has no fetcher")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	// 只改变 hash 时不重新加载
	if cur := p.URL(); cur != "" && stripFragment(cur) == stripFragment(target) && p.document() != nil {
		p.mu.Lock()
		p.url = target
		p.mu.Unlock()
		return nil
	}
	html, err := p.fetcher.Fetch(ctx, stripFragment(target))
	if err != nil {
		return err
	}
	return p.Load(target, html)
}

func (p *Page) WaitLoad(ctx context.Context) error {
	return ctx.Err()
}

func (p *Page) Elements(selector string) []types.Element {
	doc := p.document()
	if doc == nil {
		return nil
	}
	return wrap(p, doc.Find(selector))
}

func (p *Page) Element(selector string) (types.Element, bool) {
	els := p.Elements(selector)
	if len(els) == 0 {
		return nil, false
	}
	return els[0], true
}

// WaitElement 静态文档不会变化，只检查一次
func (p *Page) WaitElement(_ context.Context, selector string, _ time.Duration) bool {
	_, ok := p.Element(selector)
	return ok
}

func (p *Page) BodyText(_ context.Context) (string, error) {
	doc := p.document()
	if doc == nil {
		return "", errors.New("no document loaded")
	}
	return normalize(doc.Find("body").Text()), nil
}

func (p *Page) HTML(_ context.Context) (string, error) {
	doc := p.document()
	if doc == nil {
		return "", errors.New("no document loaded")
	}
	return goquery.OuterHtml(doc.Selection)
}

func (p *Page) Screenshot(_ context.Context) ([]byte, error) {
	return nil, ErrNoScreenshot
}

func (p *Page) Scroll(ctx context.Context, _ float64) error { return ctx.Err() }
func (p *Page) PressEscape(ctx context.Context) error       { return ctx.Err() }
func (p *Page) Eval(ctx context.Context, _ string) error    { return ctx.Err() }

func (p *Page) resolve(href string) string {
	base, err := url.Parse(p.URL())
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

func stripFragment(u string) string {
	if i := strings.IndexByte(u, '#'); i >= 0 {
		return u[:i]
	}
	return u
}

func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
