package chrome

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/LouYuanbo1/reviewcrawler/internal/config"
	"github.com/LouYuanbo1/reviewcrawler/internal/infra/crawler/types"
	"github.com/LouYuanbo1/reviewcrawler/internal/infra/session"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/rs/zerolog"
)

// rodLauncher 每次 Launch 启动一个独立的浏览器进程
type rodLauncher struct {
	cfg *config.Config
	log zerolog.Logger
}

func InitRodLauncher(cfg *config.Config, log zerolog.Logger) types.Launcher {
	return &rodLauncher{cfg: cfg, log: log}
}

func (rl *rodLauncher) Launch(ctx context.Context, opts types.LaunchOptions) (types.Session, error) {
	var lnch *launcher.Launcher
	controlURL := rl.cfg.Rod.ControlURL
	if controlURL == "" {
		lnch = CreateLauncher(
			WithBin(rl.cfg.Rod.Bin),
			WithUserDataDir(rl.cfg.Rod.UserDataDir),
			WithHeadless(opts.Headless),
			WithDisableBlinkFeatures(rl.cfg.Rod.DisableBlinkFeatures),
			WithIncognito(rl.cfg.Rod.Incognito),
			WithDisableDevShmUsage(rl.cfg.Rod.DisableDevShmUsage),
			WithNoSandbox(rl.cfg.Rod.NoSandbox),
			WithUserAgent(rl.cfg.Rod.UserAgent),
			WithLeakless(rl.cfg.Rod.Leakless),
			WithWindowSize(rl.cfg.Rod.WindowWidth, rl.cfg.Rod.WindowHeight),
			WithLang("en-US"),
		).Context(ctx)
		u, err := lnch.Launch()
		if err != nil {
			return nil, fmt.Errorf("启动浏览器失败: %w", err)
		}
		controlURL = u
	}

	browser := rod.New().ControlURL(controlURL).Trace(rl.cfg.Rod.Trace)
	if err := browser.Connect(); err != nil {
		if lnch != nil {
			lnch.Kill()
		}
		return nil, fmt.Errorf("连接浏览器失败: %w", err)
	}

	// 没有配置 user_data_dir 时使用的是临时目录，关闭时一并删除
	rs := &rodSession{browser: browser, launcher: lnch, cleanup: rl.cfg.Rod.UserDataDir == "", log: rl.log}
	if err := rs.restore(opts.StorageState); err != nil {
		rs.Close()
		return nil, err
	}
	if rl.cfg.Rod.BlockAds {
		rs.blockAds()
	}

	page, err := stealth.Page(browser)
	if err != nil {
		rs.Close()
		return nil, fmt.Errorf("创建页面失败: %w", err)
	}
	rs.page = newRodPage(ctx, page, lookupTimeout)
	return rs, nil
}

type rodSession struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	router   *rod.HijackRouter
	page     *rodPage
	cleanup  bool
	log      zerolog.Logger
}

func (rs *rodSession) Page() types.Page { return rs.page }

// restore 把保存的 cookie 写回浏览器
func (rs *rodSession) restore(path string) error {
	st, err := session.Load(path)
	if err != nil {
		return err
	}
	if st == nil || len(st.Cookies) == 0 {
		return nil
	}
	params := make([]*proto.NetworkCookieParam, 0, len(st.Cookies))
	for _, c := range st.Cookies {
		params = append(params, toRodCookieParam(c))
	}
	if err := rs.browser.SetCookies(params); err != nil {
		return fmt.Errorf("恢复 cookie 失败: %w", err)
	}
	rs.log.Debug().Int("cookies", len(params)).Str("path", path).Msg("已恢复会话")
	return nil
}

func (rs *rodSession) SaveState(ctx context.Context, path string) error {
	cookies, err := rs.browser.Context(ctx).GetCookies()
	if err != nil {
		return fmt.Errorf("读取 cookie 失败: %w", err)
	}
	st := &session.State{Cookies: make([]session.Cookie, 0, len(cookies))}
	for _, c := range cookies {
		st.Cookies = append(st.Cookies, fromRodCookie(c))
	}
	return session.Save(path, st)
}

func (rs *rodSession) blockAds() {
	rs.router = rs.browser.HijackRequests()
	_ = rs.router.Add("*", "", func(h *rod.Hijack) {
		if Blocked(h.Request.URL().String()) {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})
	go rs.router.Run()
}

func (rs *rodSession) Close() error {
	var errs []error
	if rs.router != nil {
		errs = append(errs, rs.router.Stop())
	}
	errs = append(errs, rs.browser.Close())
	if rs.launcher != nil {
		rs.launcher.Kill()
		if rs.cleanup {
			rs.launcher.Cleanup()
		}
	}
	return errors.Join(errs...)
}

func toRodCookieParam(c session.Cookie) *proto.NetworkCookieParam {
	p := &proto.NetworkCookieParam{
		Name:     c.Name,
		Value:    c.Value,
		Domain:   c.Domain,
		Path:     c.Path,
		Secure:   c.Secure,
		HTTPOnly: c.HTTPOnly,
		SameSite: proto.NetworkCookieSameSite(c.SameSite),
	}
	if c.Expires > 0 {
		p.Expires = proto.TimeSinceEpoch(c.Expires)
	}
	return p
}

func fromRodCookie(c *proto.NetworkCookie) session.Cookie {
	return session.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Domain:   c.Domain,
		Path:     c.Path,
		Expires:  float64(c.Expires),
		HTTPOnly: c.HTTPOnly,
		Secure:   c.Secure,
		SameSite: string(c.SameSite),
	}
}

const (
	pollInterval = 250 * time.Millisecond
	// lookupTimeout 单次 DOM 查询的上限，渲染进程卡死时查询按“不存在”处理
	lookupTimeout = 5 * time.Second
)

// rodPage 所有查找都不等待，找不到时返回空结果。
// 查找绑定在会话的 ctx 上，并且每次调用受 lookup 限制
type rodPage struct {
	page   *rod.Page
	ctx    context.Context
	lookup time.Duration
}

var _ types.Page = (*rodPage)(nil)

func newRodPage(ctx context.Context, page *rod.Page, lookup time.Duration) *rodPage {
	return &rodPage{page: page.Context(ctx), ctx: ctx, lookup: lookup}
}

func (rp *rodPage) URL() string {
	p := rp.page.Timeout(rp.lookup)
	defer p.CancelTimeout()
	info, err := p.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func (rp *rodPage) Navigate(ctx context.Context, url string) error {
	p := rp.page.Context(ctx)
	wait := p.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	if err := p.Navigate(url); err != nil {
		return err
	}
	wait()
	return ctx.Err()
}

func (rp *rodPage) WaitLoad(ctx context.Context) error {
	return rp.page.Context(ctx).WaitLoad()
}

func (rp *rodPage) Elements(selector string) []types.Element {
	p := rp.page.Timeout(rp.lookup)
	defer p.CancelTimeout()
	els, err := p.Elements(selector)
	if err != nil {
		return nil
	}
	return rp.wrap(els)
}

func (rp *rodPage) Element(selector string) (types.Element, bool) {
	p := rp.page.Timeout(rp.lookup)
	defer p.CancelTimeout()
	has, el, err := p.Has(selector)
	if err != nil || !has {
		return nil, false
	}
	return rp.wrap(rod.Elements{el})[0], true
}

// wrap 查询结果继承的是带超时的 ctx，重新绑定到会话 ctx
func (rp *rodPage) wrap(els rod.Elements) []types.Element {
	out := make([]types.Element, 0, len(els))
	for _, el := range els {
		out = append(out, &rodElement{el: el.Context(rp.ctx), ctx: rp.ctx, lookup: rp.lookup})
	}
	return out
}

func (rp *rodPage) WaitElement(ctx context.Context, selector string, timeout time.Duration) bool {
	wctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		if _, ok := rp.Element(selector); ok {
			return true
		}
		select {
		case <-wctx.Done():
			return false
		case <-ticker.C:
		}
	}
}

func (rp *rodPage) BodyText(ctx context.Context) (string, error) {
	res, err := rp.page.Context(ctx).Eval(`() => ` + bodyTextJS)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

func (rp *rodPage) HTML(ctx context.Context) (string, error) {
	return rp.page.Context(ctx).HTML()
}

func (rp *rodPage) Screenshot(ctx context.Context) ([]byte, error) {
	return rp.page.Context(ctx).Screenshot(true, nil)
}

func (rp *rodPage) Scroll(ctx context.Context, dy float64) error {
	return rp.page.Context(ctx).Mouse.Scroll(0, dy, 1)
}

func (rp *rodPage) PressEscape(ctx context.Context) error {
	return rp.page.Context(ctx).Keyboard.Press(input.Escape)
}

func (rp *rodPage) Eval(ctx context.Context, js string) error {
	_, err := rp.page.Context(ctx).Eval(js)
	return err
}

type rodElement struct {
	el     *rod.Element
	ctx    context.Context
	lookup time.Duration
}

// timed 单次读取使用的元素，调用方负责 CancelTimeout
func (re *rodElement) timed() *rod.Element {
	return re.el.Timeout(re.lookup)
}

func (re *rodElement) Elements(selector string) []types.Element {
	el := re.timed()
	defer el.CancelTimeout()
	els, err := el.Elements(selector)
	if err != nil {
		return nil
	}
	out := make([]types.Element, 0, len(els))
	for _, e := range els {
		out = append(out, &rodElement{el: e.Context(re.ctx), ctx: re.ctx, lookup: re.lookup})
	}
	return out
}

func (re *rodElement) Element(selector string) (types.Element, bool) {
	els := re.Elements(selector)
	if len(els) == 0 {
		return nil, false
	}
	return els[0], true
}

// Text SVG 节点没有 innerText，退回 textContent
func (re *rodElement) Text() string {
	el := re.timed()
	defer el.CancelTimeout()
	res, err := el.Eval(`() => (this.innerText ?? this.textContent ?? "").trim()`)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

func (re *rodElement) Attr(name string) (string, bool) {
	el := re.timed()
	defer el.CancelTimeout()
	v, err := el.Attribute(name)
	if err != nil || v == nil {
		return "", false
	}
	return *v, true
}

func (re *rodElement) Closest(selector string) bool {
	el := re.timed()
	defer el.CancelTimeout()
	res, err := el.Eval(`(s) => this.closest(s) !== null`, selector)
	if err != nil {
		return false
	}
	return res.Value.Bool()
}

func (re *rodElement) Visible() bool {
	el := re.timed()
	defer el.CancelTimeout()
	ok, err := el.Visible()
	return err == nil && ok
}

func (re *rodElement) Enabled() bool {
	el := re.timed()
	defer el.CancelTimeout()
	res, err := el.Eval(`() => !this.disabled`)
	if err != nil {
		return false
	}
	return res.Value.Bool()
}

func (re *rodElement) Click(ctx context.Context, timeout time.Duration) error {
	el := re.el.Context(ctx)
	if timeout > 0 {
		el = el.Timeout(timeout)
		defer el.CancelTimeout()
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func (re *rodElement) JSClick(ctx context.Context) error {
	_, err := re.el.Context(ctx).Eval(`() => this.click()`)
	return err
}

func (re *rodElement) ScrollIntoView(ctx context.Context) error {
	return re.el.Context(ctx).ScrollIntoView()
}
