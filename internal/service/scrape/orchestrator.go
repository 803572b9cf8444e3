package scrape

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/LouYuanbo1/reviewcrawler/internal/domain/model"
	"github.com/LouYuanbo1/reviewcrawler/internal/infra/crawler/types"
	"github.com/LouYuanbo1/reviewcrawler/internal/infra/observability"
	"github.com/LouYuanbo1/reviewcrawler/internal/service/extract"
	"github.com/LouYuanbo1/reviewcrawler/internal/service/pacing"
	"github.com/LouYuanbo1/reviewcrawler/internal/service/pagination"
	"github.com/rs/zerolog"
)

// NoReviews 页面上始终没有出现评论卡片
const NoReviews pagination.Reason = "no_reviews"

// UnknownAttraction 找不到景点名称时使用
const UnknownAttraction = "(unknown)"

const (
	DefaultMaxPages = 50
	DefaultTimeout  = 15 * time.Second
)

// ReviewEntrySelectors 进入评论列表的入口
var ReviewEntrySelectors = []string{
	"a[data-automation='seeAllReviews']",
	"[data-test-target='reviews-tab']",
	"a[href*='#REVIEWS']",
	"a[href*='-Reviews-']",
	"a[aria-controls*='REVIEWS']",
	"a[href*='Reviews-'][role='tab']",
}

var (
	consentText      = regexp.MustCompile(`(?i)\b(accept|agree|i agree|ok)\b`)
	showOriginalText = regexp.MustCompile(`(?i)show original( reviews)?`)
)

const removeOverlaysJS = `() => {
	document.querySelectorAll('.ab-iam-root, .ab-iam-root-v3, div[id*="braze"], div[id*="appboy"]')
		.forEach(el => el.remove());
	document.querySelectorAll('iframe[src*="braze"], iframe[src*="appboy"], iframe[class*="ab-iam-root"]')
		.forEach(el => el.remove());
}`

const jumpToReviewsJS = `() => { location.hash = 'REVIEWS'; }`

const (
	lazyRounds     = 12
	lazySteps      = 2
	scrollStep     = 800
	cardWaitBudget = 8 * time.Second
)

// Detector 判断当前页面是否为验证页
type Detector interface {
	Detect(ctx context.Context, page types.Page) bool
}

// Target 一次抓取的目标
type Target struct {
	URL      string
	MaxPages int
	// Timeout 每一次导航、等待的上限
	Timeout time.Duration
	// StorageState 抓取结束后 cookie 写回的位置，为空时不保存
	StorageState string
	// WithAttraction 为每条评论填上景点名称
	WithAttraction bool
}

// Result 即使出错也会带回已经抓到的评论
type Result struct {
	Source     string
	Attraction string
	Reviews    []model.Review
	Reason     pagination.Reason
	Pages      int
}

// Orchestrator 驱动一个目标的完整抓取流程，本身不持有浏览器，可以并发使用
type Orchestrator struct {
	detector  Detector
	extractor *extract.Extractor
	policy    pagination.Policy
	resolver  Resolver
	debug     *Debugger
	pace      pacing.Pacing
	mode      string
	log       zerolog.Logger
}

type Option func(*Orchestrator)

// WithResolver 为 nil 时保持默认的 AbortResolver
func WithResolver(r Resolver) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.resolver = r
		}
	}
}

func WithDebugger(d *Debugger) Option {
	return func(o *Orchestrator) { o.debug = d }
}

func WithPacing(p pacing.Pacing) Option {
	return func(o *Orchestrator) { o.pace = p }
}

// WithPolicy MaxPages 会被 Target.MaxPages 覆盖
func WithPolicy(p pagination.Policy) Option {
	return func(o *Orchestrator) { o.policy = p }
}

// WithMode 指标里的 mode 标签
func WithMode(mode string) Option {
	return func(o *Orchestrator) { o.mode = mode }
}

func WithLogger(l zerolog.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

func NewOrchestrator(detector Detector, extractor *extract.Extractor, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		detector:  detector,
		extractor: extractor,
		policy:    pagination.DefaultPolicy(),
		resolver:  AbortResolver{},
		mode:      "service",
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Scrape 抓取一个目标。验证页返回 *ChallengeError，超时返回 ErrNavigationTimeout，
// 两种情况下 Result 中都保留已经抓到的评论
func (o *Orchestrator) Scrape(ctx context.Context, sess types.Session, t Target) (*Result, error) {
	if t.MaxPages <= 0 {
		t.MaxPages = DefaultMaxPages
	}
	if t.Timeout <= 0 {
		t.Timeout = DefaultTimeout
	}
	log := o.log.With().Str("target", t.URL).Logger()
	res := &Result{Source: t.URL}

	err := o.scrape(ctx, sess.Page(), t, res, log)
	if errors.Is(err, ErrChallenge) {
		res.Reason = pagination.Challenge
	}
	o.observe(res, err)
	if err != nil && !errors.Is(err, ErrChallenge) && len(res.Reviews) == 0 {
		return res, err
	}
	// 成功或部分成功时写回 cookie
	if t.StorageState != "" && !errors.Is(err, ErrChallenge) {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.Timeout)
		if serr := sess.SaveState(sctx, t.StorageState); serr != nil {
			log.Warn().Err(serr).Str("path", t.StorageState).Msg("保存会话状态失败")
		}
		cancel()
	}
	return res, err
}

func (o *Orchestrator) scrape(ctx context.Context, page types.Page, t Target, res *Result, log zerolog.Logger) error {
	log.Info().Int("max_pages", t.MaxPages).Msg("开始抓取")
	if err := o.navigate(ctx, page, t.URL, t.Timeout); err != nil {
		return err
	}
	o.pace.Step(ctx)

	if err := o.gate(ctx, page, log); err != nil {
		return err
	}
	o.acceptConsent(ctx, page, log)
	o.dismissOverlays(ctx, page)
	o.enterReviews(ctx, page, t.Timeout, log)
	if err := o.gate(ctx, page, log); err != nil {
		return err
	}
	o.clickFirst(ctx, page, "button, [role='button']", showOriginalText, log)

	if !o.waitForCards(ctx, page) {
		if err := ctx.Err(); err != nil {
			return timeoutError("等待评论卡片", err)
		}
		o.debug.DumpHTML(ctx, page, noReviewsDump)
		res.Reason = NoReviews
		log.Warn().Msg("没有找到评论卡片")
		return nil
	}

	if t.WithAttraction {
		res.Attraction = AttractionName(page)
	}

	policy := o.policy
	policy.MaxPages = t.MaxPages
	ctrl := pagination.New(page, policy, o.detector, o.extractor,
		pagination.WithResolver(o.resolver.Resolve),
		pagination.WithPacing(o.pace),
		pagination.WithLogger(log),
	)
	ctrl.Start()

	for {
		page.WaitElement(ctx, extract.CardSelector, min(t.Timeout, cardWaitBudget))
		o.debug.Snapshot(ctx, page, ctrl.PageIndex())
		o.extractor.Expand(ctx, page)

		reviews := o.extractor.ExtractAll(page, page.URL())
		if res.Attraction != "" {
			for i := range reviews {
				reviews[i] = reviews[i].WithAttraction(res.Attraction)
			}
		}
		res.Reviews = append(res.Reviews, reviews...)
		res.Pages = ctrl.PageIndex()
		log.Info().Int("page", res.Pages).Int("cards", len(reviews)).Str("url", page.URL()).Msg("已解析页面")

		done, err := ctrl.Advance(ctx)
		if err != nil {
			return timeoutError("翻页", err)
		}
		if done {
			break
		}
	}

	res.Reason = ctrl.Reason()
	if res.Reason == pagination.Challenge {
		return o.challenge(ctx, page)
	}
	log.Info().Str("reason", string(res.Reason)).Int("pages", res.Pages).Int("reviews", len(res.Reviews)).Msg("抓取完成")
	return nil
}

func (o *Orchestrator) navigate(ctx context.Context, page types.Page, target string, timeout time.Duration) error {
	nctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return timeoutError("打开页面 "+target, page.Navigate(nctx, target))
}

// gate 出现验证页时交给 resolver，未通过则返回 *ChallengeError
func (o *Orchestrator) gate(ctx context.Context, page types.Page, log zerolog.Logger) error {
	if !o.detector.Detect(ctx, page) {
		return nil
	}
	if err := o.resolver.Resolve(ctx, page); err != nil {
		log.Warn().Err(err).Msg("验证页未通过")
		return o.challenge(ctx, page)
	}
	return nil
}

func (o *Orchestrator) challenge(ctx context.Context, page types.Page) error {
	observability.ObserveChallenge(o.mode)
	artifact := o.debug.DumpHTML(ctx, page, captchaDump)
	o.debug.Screenshot(ctx, page, "ta_captcha.png")
	return &ChallengeError{URL: page.URL(), Artifact: artifact}
}

func (o *Orchestrator) acceptConsent(ctx context.Context, page types.Page, log zerolog.Logger) {
	if o.clickFirst(ctx, page, "button", consentText, log) {
		log.Info().Msg("已接受 cookie")
	}
}

// clickFirst 点击第一个文本匹配且可见的控件，失败不影响流程
func (o *Orchestrator) clickFirst(ctx context.Context, page types.Page, selector string, text *regexp.Regexp, log zerolog.Logger) bool {
	for _, el := range page.Elements(selector) {
		if !text.MatchString(el.Text()) || !el.Visible() {
			continue
		}
		if err := el.Click(ctx, 2*time.Second); err != nil {
			log.Debug().Err(err).Str("selector", selector).Msg("点击失败")
			return false
		}
		o.pace.Step(ctx)
		return true
	}
	return false
}

// dismissOverlays 关闭 Braze/Appboy 弹层
func (o *Orchestrator) dismissOverlays(ctx context.Context, page types.Page) {
	_ = page.PressEscape(ctx)
	_ = page.Eval(ctx, removeOverlaysJS)
}

// enterReviews 定位到评论列表。卡片已经出现时认为已在列表中
func (o *Orchestrator) enterReviews(ctx context.Context, page types.Page, timeout time.Duration, log zerolog.Logger) {
	if _, ok := page.Element("#REVIEWS"); ok {
		_ = page.Eval(ctx, jumpToReviewsJS)
		o.pace.Short(ctx)
	}
	if _, ok := page.Element(extract.CardSelector); ok {
		return
	}
	for _, sel := range ReviewEntrySelectors {
		el, ok := page.Element(sel)
		if !ok || !el.Visible() || el.Closest("nav[aria-label='Pagination']") {
			continue
		}
		log.Info().Str("selector", sel).Msg("进入评论列表")
		_ = el.ScrollIntoView(ctx)
		o.dismissOverlays(ctx, page)
		if err := el.Click(ctx, 2*time.Second); err != nil {
			if err := el.JSClick(ctx); err != nil {
				o.followHref(ctx, page, el, timeout, log)
			}
		}
		wctx, cancel := context.WithTimeout(ctx, timeout)
		_ = page.WaitLoad(wctx)
		cancel()
		o.pace.Step(ctx)
		return
	}
}

func (o *Orchestrator) followHref(ctx context.Context, page types.Page, el types.Element, timeout time.Duration, log zerolog.Logger) {
	href, ok := el.Attr("href")
	href = strings.TrimSpace(href)
	if !ok || href == "" {
		return
	}
	if strings.HasPrefix(href, "#") {
		_ = page.Eval(ctx, jumpToReviewsJS)
		return
	}
	target := absURL(page.URL(), href)
	if err := o.navigate(ctx, page, target, timeout); err != nil {
		log.Debug().Err(err).Str("href", target).Msg("入口链接跳转失败")
	}
}

// waitForCards 先滚动触发懒加载，再做一次显式等待
func (o *Orchestrator) waitForCards(ctx context.Context, page types.Page) bool {
	for range lazyRounds {
		if _, ok := page.Element(extract.CardSelector); ok {
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		for range lazySteps {
			_ = page.Scroll(ctx, scrollStep)
			o.pace.Short(ctx)
		}
	}
	return page.WaitElement(ctx, extract.CardSelector, cardWaitBudget)
}

func (o *Orchestrator) observe(res *Result, err error) {
	outcome := "ok"
	switch {
	case errors.Is(err, ErrChallenge):
		outcome = "captcha"
	case IsTimeout(err):
		outcome = "timeout"
	case err != nil:
		outcome = "error"
	}
	observability.ObserveScrape(o.mode, outcome, string(res.Reason), res.Pages, len(res.Reviews))
}

// AttractionName 页面主标题，不含 Unclaimed 等标签
func AttractionName(page types.Page) string {
	if h1, ok := page.Element("h1[data-test-target='mainH1']"); ok {
		if span, ok := h1.Element("span"); ok {
			if name := strings.TrimSpace(span.Text()); name != "" {
				return name
			}
		}
		if name := beforeUnclaimed(h1.Text()); name != "" {
			return name
		}
	}
	if h1, ok := page.Element("h1"); ok {
		if name := beforeUnclaimed(h1.Text()); name != "" {
			return name
		}
	}
	return UnknownAttraction
}

func beforeUnclaimed(s string) string {
	name, _, _ := strings.Cut(s, "Unclaimed")
	return strings.TrimSpace(name)
}

func absURL(base, href string) string {
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	r, err := url.Parse(href)
	if err != nil {
		return href
	}
	return b.ResolveReference(r).String()
}
