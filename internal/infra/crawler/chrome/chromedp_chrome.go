package chrome

import (
	"context"
	"fmt"
	"time"

	"github.com/LouYuanbo1/reviewcrawler/internal/config"
	"github.com/LouYuanbo1/reviewcrawler/internal/infra/session"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// chromedpBrowser 人工预热用的有界面浏览器
type chromedpBrowser struct {
	allocCtxFuc   context.CancelFunc
	pageCtx       context.Context
	pageCtxFuc    context.CancelFunc
	timeoutCtxFuc context.CancelFunc
}

func InitChromedpBrowser(ctx context.Context, cfg *config.Config, headed bool) InteractiveBrowser {
	ua := cfg.Chromedp.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", !headed),
		chromedp.Flag("disable-blink-features", cfg.Chromedp.DisableBlinkFeatures),
		chromedp.Flag("incognito", cfg.Chromedp.Incognito),
		chromedp.Flag("disable-dev-shm-usage", cfg.Chromedp.DisableDevShmUsage),
		chromedp.Flag("no-sandbox", cfg.Chromedp.NoSandbox),
		chromedp.Flag("lang", "en-US"),
		chromedp.WindowSize(1366, 900),
		chromedp.UserAgent(ua),
	)
	if cfg.Chromedp.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(cfg.Chromedp.UserDataDir))
	}
	lifeTime := time.Duration(cfg.Chromedp.LifeTime) * time.Second
	if lifeTime <= 0 {
		lifeTime = 30 * time.Minute
	}
	timeoutCtx, cancelTimeout := context.WithTimeout(ctx, lifeTime)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(timeoutCtx, opts...)
	pageCtx, cancelPage := chromedp.NewContext(allocCtx)

	return &chromedpBrowser{
		allocCtxFuc:   cancelAlloc,
		pageCtx:       pageCtx,
		pageCtxFuc:    cancelPage,
		timeoutCtxFuc: cancelTimeout,
	}
}

func (cb *chromedpBrowser) Close() {
	cb.pageCtxFuc()
	cb.allocCtxFuc()
	cb.timeoutCtxFuc()
}

// run 在浏览器上下文中执行，ctx 取消时中止本次操作但不关闭标签页
func (cb *chromedpBrowser) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(cb.pageCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

func (cb *chromedpBrowser) Open(ctx context.Context, url string) error {
	if err := cb.run(ctx, network.Enable(), chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("导航失败: %w", err)
	}
	return nil
}

func (cb *chromedpBrowser) ClickConsent(ctx context.Context) bool {
	var clicked bool
	if err := cb.run(ctx, chromedp.Evaluate(clickConsentJS, &clicked)); err != nil {
		return false
	}
	return clicked
}

func (cb *chromedpBrowser) BodyText(ctx context.Context) (string, error) {
	var text string
	if err := cb.run(ctx, chromedp.Evaluate(bodyTextJS, &text)); err != nil {
		return "", err
	}
	return text, nil
}

func (cb *chromedpBrowser) Cookies(ctx context.Context) ([]session.Cookie, error) {
	var cookies []*network.Cookie
	err := cb.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		cookies, err = network.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("读取 cookie 失败: %w", err)
	}
	out := make([]session.Cookie, 0, len(cookies))
	for _, c := range cookies {
		out = append(out, session.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: c.SameSite.String(),
		})
	}
	return out, nil
}

func (cb *chromedpBrowser) SetCookies(ctx context.Context, cookies []session.Cookie) error {
	if len(cookies) == 0 {
		return nil
	}
	params := make([]*network.CookieParam, 0, len(cookies))
	for _, c := range cookies {
		p := &network.CookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
			SameSite: network.CookieSameSite(c.SameSite),
		}
		if c.Expires > 0 {
			exp := cdp.TimeSinceEpoch(time.Unix(int64(c.Expires), 0))
			p.Expires = &exp
		}
		params = append(params, p)
	}
	return cb.run(ctx, network.SetCookies(params))
}
