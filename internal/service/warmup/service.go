package warmup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/LouYuanbo1/reviewcrawler/internal/infra/crawler/chrome"
	"github.com/LouYuanbo1/reviewcrawler/internal/infra/session"
	"github.com/rs/zerolog"
)

const (
	DefaultTargetURL = "https://www.tripadvisor.com/"
	DefaultTimeout   = 30 * time.Second
	DefaultMaxWait   = 120 * time.Second
)

const verificationMarker = "verification required"

// Request 一次预热。Done 不为 nil 时等待操作者确认，否则轮询页面直到验证消失
type Request struct {
	StorageState string
	TargetURL    string
	Headed       bool
	Timeout      time.Duration
	MaxWait      time.Duration
	Done         <-chan struct{}
}

type Result struct {
	OK           bool   `json:"ok"`
	StorageState string `json:"storage_state"`
	TargetURL    string `json:"target_url"`
	// Verified 保存时页面上已没有验证提示
	Verified bool `json:"verified"`
	Cookies  int  `json:"cookies"`
}

// BrowserFactory 每次预热打开一个新的浏览器
type BrowserFactory func(ctx context.Context, headed bool) chrome.InteractiveBrowser

type Service interface {
	Warmup(ctx context.Context, req Request) (*Result, error)
}

type service struct {
	open         BrowserFactory
	defaultState string
	maxWait      time.Duration
	poll         time.Duration
	settle       time.Duration
	log          zerolog.Logger
}

// InitService maxWait 为请求未指定时等待人工验证的上限
func InitService(open BrowserFactory, defaultState string, maxWait time.Duration, log zerolog.Logger) Service {
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	return &service{open: open, defaultState: defaultState, maxWait: maxWait, poll: time.Second, settle: time.Second, log: log}
}

func (s *service) Warmup(ctx context.Context, req Request) (*Result, error) {
	if req.StorageState == "" {
		req.StorageState = s.defaultState
	}
	if req.StorageState == "" {
		return nil, errors.New("storage_state 不能为空")
	}
	if req.TargetURL == "" {
		req.TargetURL = DefaultTargetURL
	}
	if req.Timeout <= 0 {
		req.Timeout = DefaultTimeout
	}
	if req.MaxWait <= 0 {
		req.MaxWait = s.maxWait
	}
	log := s.log.With().Str("target", req.TargetURL).Str("state", req.StorageState).Logger()

	browser := s.open(ctx, req.Headed)
	defer browser.Close()

	// 已有会话时先带上旧 cookie，减少再次触发验证
	if prev, err := session.Load(req.StorageState); err != nil {
		log.Warn().Err(err).Msg("ignore unreadable storage state")
	} else if prev != nil && len(prev.Cookies) > 0 {
		if err := browser.SetCookies(ctx, prev.Cookies); err != nil {
			log.Warn().Err(err).Msg("restore cookies failed")
		}
	}

	nctx, cancel := context.WithTimeout(ctx, req.Timeout)
	err := browser.Open(nctx, req.TargetURL)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("打开 %s 失败: %w", req.TargetURL, err)
	}
	sleep(ctx, s.settle)

	if browser.ClickConsent(ctx) {
		log.Info().Msg("clicked cookie consent")
		sleep(ctx, s.settle*4/5)
	}

	verified := true
	if req.Headed {
		log.Info().Msg("if a verification page appears, solve it in the browser window")
		verified = s.await(ctx, browser, req)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cookies, err := browser.Cookies(ctx)
	if err != nil {
		return nil, fmt.Errorf("读取 cookie 失败: %w", err)
	}
	if err := session.Save(req.StorageState, &session.State{Cookies: cookies}); err != nil {
		return nil, err
	}
	log.Info().Int("cookies", len(cookies)).Bool("verified", verified).Msg("storage state saved")
	return &Result{
		OK:           true,
		StorageState: req.StorageState,
		TargetURL:    req.TargetURL,
		Verified:     verified,
		Cookies:      len(cookies),
	}, nil
}

// await 等到验证提示消失、操作者确认或超过 MaxWait
func (s *service) await(ctx context.Context, browser chrome.InteractiveBrowser, req Request) bool {
	deadline := time.NewTimer(req.MaxWait)
	defer deadline.Stop()
	tick := time.NewTicker(s.poll)
	defer tick.Stop()

	for {
		if req.Done == nil && !verificationPresent(ctx, browser) {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-req.Done:
			return !verificationPresent(ctx, browser)
		case <-deadline.C:
			s.log.Warn().Dur("max_wait", req.MaxWait).Msg("verification still present, saving anyway")
			return !verificationPresent(ctx, browser)
		case <-tick.C:
		}
	}
}

func verificationPresent(ctx context.Context, browser chrome.InteractiveBrowser) bool {
	body, err := browser.BodyText(ctx)
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(body), verificationMarker)
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
