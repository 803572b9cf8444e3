package collector

import (
	"context"

	"github.com/LouYuanbo1/reviewcrawler/internal/infra/crawler/static"
	"github.com/LouYuanbo1/reviewcrawler/internal/infra/crawler/types"
	"github.com/LouYuanbo1/reviewcrawler/internal/infra/session"
)

// CollyCrawler 不执行脚本的抓取引擎：页面由 colly 下载，再交给 static.Page 解析
type CollyCrawler interface {
	static.Fetcher
	types.Launcher
	// SeedCookies 把保存的会话写入 cookie jar
	SeedCookies(st *session.State) error
	// ExportCookies 导出 jar 中与 domains 相关的 cookie
	ExportCookies(domains []string) []session.Cookie
}

// staticSession 基于 colly 的会话，页面之间共享 cookie jar
type staticSession struct {
	page    *static.Page
	crawler CollyCrawler
	domains []string
}

func (s *staticSession) Page() types.Page { return s.page }

func (s *staticSession) SaveState(_ context.Context, path string) error {
	return session.Save(path, &session.State{Cookies: s.crawler.ExportCookies(s.domains)})
}

func (s *staticSession) Close() error { return nil }
