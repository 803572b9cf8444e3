package links

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/LouYuanbo1/reviewcrawler/internal/infra/crawler/types"
	"github.com/LouYuanbo1/reviewcrawler/internal/service/pacing"
	"github.com/LouYuanbo1/reviewcrawler/internal/service/pagination"
	"github.com/LouYuanbo1/reviewcrawler/internal/service/scrape"
	"github.com/rs/zerolog"
)

// LinkSelector 景点列表页中指向景点评论页的链接
const LinkSelector = "a[href^='/Attraction_Review-']"

const readySelector = "nav[aria-label='Pagination'], " + LinkSelector

// Result 写出到 links 文件的结构
type Result struct {
	Source      string    `json:"source"`
	CollectedAt time.Time `json:"collected_at"`
	Count       int       `json:"count"`
	Links       []string  `json:"links"`
	Pages       int       `json:"pages"`
	Reason      string    `json:"reason"`
}

type Collector struct {
	detector pagination.Detector
	resolver scrape.Resolver
	policy   pagination.Policy
	base     string
	timeout  time.Duration
	pace     pacing.Pacing
	now      func() time.Time
	log      zerolog.Logger
}

type Option func(*Collector)

func WithResolver(r scrape.Resolver) Option {
	return func(c *Collector) { c.resolver = r }
}

func WithPolicy(p pagination.Policy) Option {
	return func(c *Collector) { c.policy = p }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Collector) { c.timeout = d }
}

func WithPacing(p pacing.Pacing) Option {
	return func(c *Collector) { c.pace = p }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Collector) { c.log = l }
}

// NewCollector base 用于补全站内相对链接
func NewCollector(detector pagination.Detector, base string, opts ...Option) *Collector {
	c := &Collector{
		detector: detector,
		resolver: scrape.AbortResolver{},
		policy:   pagination.DefaultPolicy(),
		base:     strings.TrimRight(base, "/"),
		timeout:  scrape.DefaultTimeout,
		now:      time.Now,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect 从 start 开始逐页收集链接。遇到未通过的验证页时返回已收集的部分和 ErrChallenge
func (c *Collector) Collect(ctx context.Context, page types.Page, start string) (*Result, error) {
	log := c.log.With().Str("source", start).Logger()
	res := &Result{Source: start, Links: []string{}}
	seen := make(map[string]struct{})

	nctx, cancel := context.WithTimeout(ctx, c.timeout)
	err := page.Navigate(nctx, start)
	cancel()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("打开 %s: %w", start, scrape.ErrNavigationTimeout)
		}
		return nil, fmt.Errorf("打开 %s: %w", start, err)
	}
	if c.detector.Detect(ctx, page) {
		if err := c.resolver.Resolve(ctx, page); err != nil {
			return nil, &scrape.ChallengeError{URL: page.URL()}
		}
	}
	page.WaitElement(ctx, readySelector, c.timeout)

	ctrl := pagination.New(page, c.policy, c.detector, linkFingerprint{},
		pagination.WithResolver(c.resolver.Resolve),
		pagination.WithPacing(c.pace),
		pagination.WithLogger(log),
	)
	ctrl.Start()
	for {
		c.lazyLoad(ctx, page)
		found := 0
		for _, href := range hrefs(page) {
			full := c.absolute(href)
			if _, ok := seen[full]; ok {
				continue
			}
			seen[full] = struct{}{}
			found++
		}
		res.Pages = ctrl.PageIndex()
		log.Info().Int("page", res.Pages).Int("new", found).Int("total", len(seen)).Msg("collected links")

		done, err := ctrl.Advance(ctx)
		if err != nil {
			c.finish(res, seen)
			return res, err
		}
		if done {
			break
		}
	}

	c.finish(res, seen)
	res.Reason = string(ctrl.Reason())
	if ctrl.Reason() == pagination.Challenge {
		return res, &scrape.ChallengeError{URL: page.URL()}
	}
	return res, nil
}

func (c *Collector) finish(res *Result, seen map[string]struct{}) {
	for l := range seen {
		res.Links = append(res.Links, l)
	}
	slices.Sort(res.Links)
	res.Count = len(res.Links)
	res.CollectedAt = c.now().UTC()
}

// lazyLoad 列表卡片滚动到视口内才渲染
func (c *Collector) lazyLoad(ctx context.Context, page types.Page) {
	for range 4 {
		if page.Scroll(ctx, 1200) != nil {
			return
		}
		c.pace.Short(ctx)
	}
}

func (c *Collector) absolute(href string) string {
	if strings.HasPrefix(href, "/") {
		return c.base + href
	}
	return href
}

func hrefs(page types.Page) []string {
	var out []string
	for _, el := range page.Elements(LinkSelector) {
		if href, ok := el.Attr("href"); ok && strings.TrimSpace(href) != "" {
			out = append(out, strings.TrimSpace(href))
		}
	}
	return out
}

// linkFingerprint 以第一个景点链接判断翻页后内容是否变化
type linkFingerprint struct{}

func (linkFingerprint) PageFingerprint(page types.Page) string {
	if l := hrefs(page); len(l) > 0 {
		return l[0]
	}
	return ""
}
