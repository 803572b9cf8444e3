package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/LouYuanbo1/reviewcrawler/internal/config"
	"github.com/LouYuanbo1/reviewcrawler/internal/infra/crawler/static"
	"github.com/LouYuanbo1/reviewcrawler/internal/infra/crawler/types"
	"github.com/LouYuanbo1/reviewcrawler/internal/infra/session"
	"github.com/gocolly/colly/v2"
	"github.com/rs/zerolog"
)

// ErrEmptyResponse 服务器返回了空页面
var ErrEmptyResponse = errors.New("empty response body")

type collyCrawler struct {
	colly *colly.Collector
	jar   *cookiejar.Jar
	seed  bool
	mu    sync.Mutex
	log   zerolog.Logger
}

func InitCollyCrawler(cfg *config.Config, log zerolog.Logger) (CollyCrawler, error) {
	ua := cfg.Colly.UserAgent
	if ua == "" {
		ua = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	}
	opts := []colly.CollectorOption{
		colly.UserAgent(ua),
		colly.AllowURLRevisit(),
		colly.AllowedDomains(cfg.Colly.AllowedDomains...),
	}
	if cfg.Colly.IgnoreRobotsTxt {
		opts = append(opts, colly.IgnoreRobotsTxt())
	}
	c := colly.NewCollector(opts...)
	// 验证页通常是 403，需要拿到 HTML 交给验证页检测
	c.ParseHTTPErrorResponse = true
	if err := c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: max(cfg.Colly.Parallelism, 1),
		Delay:       time.Duration(cfg.Colly.Delay) * time.Second,
		RandomDelay: time.Duration(cfg.Colly.RandomDelay) * time.Second,
	}); err != nil {
		return nil, fmt.Errorf("设置限速失败: %w", err)
	}
	if cfg.Colly.Cloudflare {
		c.WithTransport(cloudflarebp.AddCloudFlareByPass(http.DefaultTransport.(*http.Transport).Clone()))
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	c.SetCookieJar(jar)
	log.Info().Int("delay", cfg.Colly.Delay).Int("random_delay", cfg.Colly.RandomDelay).
		Bool("cloudflare", cfg.Colly.Cloudflare).Msg("InitCollyCrawler")
	return &collyCrawler{colly: c, jar: jar, seed: cfg.Colly.EnableCookieJar, log: log}, nil
}

// Fetch 同步下载一个页面
func (cc *collyCrawler) Fetch(ctx context.Context, u string) (string, error) {
	c := cc.colly.Clone()
	colly.StdlibContext(ctx)(c)

	var (
		body   string
		status int
		ferr   error
	)
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9")
	})
	c.OnResponse(func(r *colly.Response) {
		body = string(r.Body)
		status = r.StatusCode
	})
	c.OnError(func(r *colly.Response, err error) {
		ferr = err
	})
	if err := c.Visit(u); err != nil {
		return "", fmt.Errorf("访问URL失败: %w", err)
	}
	if ferr != nil {
		return "", fmt.Errorf("访问URL失败: %w", ferr)
	}
	if strings.TrimSpace(body) == "" {
		return "", fmt.Errorf("%s (status %d): %w", u, status, ErrEmptyResponse)
	}
	cc.log.Debug().Str("url", u).Int("status", status).Int("bytes", len(body)).Msg("fetched")
	return body, nil
}

// Launch 返回一个静态会话；Headless 与 Timeout 对静态引擎没有意义
func (cc *collyCrawler) Launch(_ context.Context, opts types.LaunchOptions) (types.Session, error) {
	st, err := session.Load(opts.StorageState)
	if err != nil {
		return nil, err
	}
	if cc.seed {
		if err := cc.SeedCookies(st); err != nil {
			return nil, err
		}
	}
	return &staticSession{page: static.NewPage(cc), crawler: cc, domains: st.Domains()}, nil
}

func (cc *collyCrawler) SeedCookies(st *session.State) error {
	if st == nil {
		return nil
	}
	cc.mu.Lock()
	defer cc.mu.Unlock()
	byDomain := map[string][]*http.Cookie{}
	for _, c := range st.HTTPCookies() {
		byDomain[c.Domain] = append(byDomain[c.Domain], c)
	}
	for domain, cookies := range byDomain {
		u, err := domainURL(domain)
		if err != nil {
			return err
		}
		cc.jar.SetCookies(u, cookies)
	}
	return nil
}

func (cc *collyCrawler) ExportCookies(domains []string) []session.Cookie {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	var out []session.Cookie
	seen := map[string]bool{}
	for _, domain := range domains {
		u, err := domainURL(domain)
		if err != nil {
			continue
		}
		for _, c := range cc.jar.Cookies(u) {
			key := domain + "|" + c.Name
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, session.Cookie{Name: c.Name, Value: c.Value, Domain: domain, Path: "/", Expires: -1})
		}
	}
	return out
}

func domainURL(domain string) (*url.URL, error) {
	host := strings.TrimPrefix(domain, ".")
	if host == "" {
		return nil, errors.New("cookie domain is empty")
	}
	return url.Parse("https://" + host + "/")
}
