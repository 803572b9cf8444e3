package pagination

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/LouYuanbo1/reviewcrawler/internal/infra/crawler/types"
	"github.com/LouYuanbo1/reviewcrawler/internal/service/pacing"
	"github.com/rs/zerolog"
)

// Reason 翻页结束的原因
type Reason string

const (
	NoNextControl   Reason = "no_next_control"
	LoopDetected    Reason = "loop_detected"
	NoProgress      Reason = "no_progress"
	MaxPagesReached Reason = "max_pages_reached"
	Challenge       Reason = "challenge"
)

type State int

const (
	Parsing State = iota
	Advancing
	Done
)

func (s State) String() string {
	switch s {
	case Parsing:
		return "parsing"
	case Advancing:
		return "advancing"
	default:
		return "done"
	}
}

// NextSelectors 按优先级排列的“下一页”控件
var NextSelectors = []string{
	"[data-smoke-attr='pagination-next-arrow']",
	"a[aria-label='Next page']",
	"a[aria-label*='Next page']",
	"a[aria-label='Next']",
	"a[aria-label*='Next']",
	"button[aria-label*='Next']",
	"li[title*='Next Page'] a",
	"nav[aria-label='Pagination'] a",
	"a[rel='next']",
	"a[data-page-number][aria-label*='Next']",
}

// textOnly 这些选择器还要求控件文本包含 Next
var textOnly = map[string]bool{
	"nav[aria-label='Pagination'] a": true,
}

// Detector 判断当前页面是否为验证页
type Detector interface {
	Detect(ctx context.Context, page types.Page) bool
}

// Fingerprinter 当前页第一张卡片的指纹，没有卡片时为 ""
type Fingerprinter interface {
	PageFingerprint(page types.Page) string
}

// ResolveFunc 遇到验证页时调用，返回 nil 表示已经人工通过
type ResolveFunc func(ctx context.Context, page types.Page) error

type Policy struct {
	MaxPages int
	// StallThreshold 指纹连续未变化多少次后判定为卡住
	StallThreshold int
	ClickTimeout   time.Duration
	// SettleTimeout 点击后等待加载的上限
	SettleTimeout time.Duration
	NextSelectors []string
}

func DefaultPolicy() Policy {
	return Policy{
		MaxPages:       50,
		StallThreshold: 2,
		ClickTimeout:   2500 * time.Millisecond,
		SettleTimeout:  6 * time.Second,
		NextSelectors:  NextSelectors,
	}
}

// Controller 一个目标 URL 的翻页状态机，生命周期与一次抓取相同
type Controller struct {
	page    types.Page
	policy  Policy
	detect  Detector
	fp      Fingerprinter
	resolve ResolveFunc
	pace    pacing.Pacing
	log     zerolog.Logger

	state     State
	reason    Reason
	pageIndex int
	visited   map[string]struct{}
	stall     int
}

type Option func(*Controller)

func WithResolver(fn ResolveFunc) Option {
	return func(c *Controller) { c.resolve = fn }
}

func WithPacing(p pacing.Pacing) Option {
	return func(c *Controller) { c.pace = p }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

func New(page types.Page, policy Policy, detect Detector, fp Fingerprinter, opts ...Option) *Controller {
	def := DefaultPolicy()
	if policy.MaxPages <= 0 {
		policy.MaxPages = def.MaxPages
	}
	if policy.StallThreshold <= 0 {
		policy.StallThreshold = def.StallThreshold
	}
	if policy.ClickTimeout <= 0 {
		policy.ClickTimeout = def.ClickTimeout
	}
	if policy.SettleTimeout <= 0 {
		policy.SettleTimeout = def.SettleTimeout
	}
	if len(policy.NextSelectors) == 0 {
		policy.NextSelectors = def.NextSelectors
	}
	c := &Controller{
		page:    page,
		policy:  policy,
		detect:  detect,
		fp:      fp,
		log:     zerolog.Nop(),
		visited: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start 进入 Parsing(1)
func (c *Controller) Start() {
	c.state = Parsing
	c.reason = ""
	c.pageIndex = 1
	c.stall = 0
	c.visited = map[string]struct{}{c.page.URL(): {}}
}

func (c *Controller) State() State   { return c.state }
func (c *Controller) Reason() Reason { return c.reason }
func (c *Controller) PageIndex() int { return c.pageIndex }
func (c *Controller) Policy() Policy { return c.policy }

func (c *Controller) Visited(u string) bool {
	_, ok := c.visited[u]
	return ok
}

func (c *Controller) finish(r Reason) (bool, error) {
	c.state = Done
	c.reason = r
	c.log.Info().Str("reason", string(r)).Int("page", c.pageIndex).Msg("pagination finished")
	return true, nil
}

// Advance 当前页解析完成后调用。返回 done=true 时 Reason 给出原因；
// err 只用于超时和 ctx 取消，此时状态同样为 Done
func (c *Controller) Advance(ctx context.Context) (done bool, err error) {
	if c.state != Parsing {
		return true, fmt.Errorf("advance called in state %s", c.state)
	}
	c.state = Advancing

	controls := c.usableControls()
	if len(controls) == 0 {
		return c.finish(NoNextControl)
	}
	if c.pageIndex >= c.policy.MaxPages {
		return c.finish(MaxPagesReached)
	}

	beforeURL := c.page.URL()
	beforeKey := c.fp.PageFingerprint(c.page)
	moved := false

	for _, ctl := range controls {
		if err := ctx.Err(); err != nil {
			c.state, c.reason = Done, ""
			return true, err
		}
		ok, err := c.activate(ctx, ctl, beforeURL)
		if err != nil {
			c.state = Done
			if errors.Is(err, errChallenge) {
				c.reason = Challenge
				c.log.Warn().Int("page", c.pageIndex).Msg("challenge after pagination")
				return true, nil
			}
			return true, err
		}
		if !ok {
			continue
		}
		afterKey := c.fp.PageFingerprint(c.page)
		if c.page.URL() != beforeURL || (afterKey != "" && afterKey != beforeKey) {
			moved = true
			break
		}
	}
	if !moved {
		return c.finish(NoNextControl)
	}

	afterURL := c.page.URL()
	afterKey := c.fp.PageFingerprint(c.page)
	if beforeKey != "" && afterKey == beforeKey {
		c.stall++
	} else {
		c.stall = 0
	}
	if c.stall >= c.policy.StallThreshold {
		return c.finish(NoProgress)
	}
	// 局部刷新的分页 URL 不变，只有 URL 真正变化时才做循环检查
	if afterURL != beforeURL {
		if _, seen := c.visited[afterURL]; seen {
			return c.finish(LoopDetected)
		}
		c.visited[afterURL] = struct{}{}
	}

	c.pageIndex++
	c.state = Parsing
	c.log.Debug().Int("page", c.pageIndex).Str("url", afterURL).Msg("advanced")
	return false, nil
}

var errChallenge = errors.New("challenge")

// activate 点击一个控件；URL 没变时按 href 直接跳转
func (c *Controller) activate(ctx context.Context, ctl control, beforeURL string) (bool, error) {
	_ = ctl.el.ScrollIntoView(ctx)
	c.pace.Short(ctx)

	if err := ctl.el.Click(ctx, c.policy.ClickTimeout); err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		c.log.Debug().Err(err).Str("selector", ctl.selector).Msg("next click failed")
		if err := ctl.el.JSClick(ctx); err != nil {
			return false, nil
		}
	}
	if err := c.settle(ctx); err != nil {
		return false, err
	}
	c.pace.Page(ctx)

	if err := c.checkChallenge(ctx); err != nil {
		return false, err
	}

	if c.page.URL() == beforeURL && ctl.href != "" {
		target := resolveHref(beforeURL, ctl.href)
		if target != "" && target != beforeURL {
			nctx, cancel := context.WithTimeout(ctx, c.policy.SettleTimeout)
			err := c.page.Navigate(nctx, target)
			cancel()
			if err != nil {
				if isTimeout(err) {
					return false, err
				}
				c.log.Debug().Err(err).Str("href", target).Msg("href fallback failed")
				return false, nil
			}
			c.pace.Short(ctx)
			if err := c.checkChallenge(ctx); err != nil {
				return false, err
			}
		}
	}
	return true, nil
}

// checkChallenge 检测到验证页时交给 resolve，没有 resolve 或未通过时返回 errChallenge
func (c *Controller) checkChallenge(ctx context.Context) error {
	if c.detect == nil || !c.detect.Detect(ctx, c.page) {
		return nil
	}
	if c.resolve == nil {
		return errChallenge
	}
	if err := c.resolve(ctx, c.page); err != nil {
		c.log.Warn().Err(err).Msg("challenge not resolved")
		return errChallenge
	}
	return nil
}

func (c *Controller) settle(ctx context.Context) error {
	sctx, cancel := context.WithTimeout(ctx, c.policy.SettleTimeout)
	defer cancel()
	err := c.page.WaitLoad(sctx)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	// 局部刷新时 WaitLoad 可能超时，不视为失败
	return nil
}

func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}

func resolveHref(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return ""
	}
	r, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return b.ResolveReference(r).String()
}
