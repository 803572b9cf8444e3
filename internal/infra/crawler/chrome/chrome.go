package chrome

import (
	"context"
	"strings"

	"github.com/LouYuanbo1/reviewcrawler/internal/infra/session"
)

// DefaultUserAgent 与常见桌面 Chrome 一致
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// AdDomains 开启广告拦截时丢弃的请求。验证服务（captcha-delivery、datadome）不能拦截
var AdDomains = []string{
	"doubleclick.net",
	"googlesyndication.com",
	"googletagservices.com",
	"google-analytics.com",
	"googletagmanager.com",
	"ads.as.criteo.com",
	"adnxs.com",
	"taboola.com",
	"rubiconproject.com",
	"facebook.com/tr",
}

// Blocked 请求 URL 是否属于广告域名
func Blocked(url string) bool {
	u := strings.ToLower(url)
	for _, d := range AdDomains {
		if strings.Contains(u, d) {
			return true
		}
	}
	return false
}

// InteractiveBrowser 有界面的浏览器，用于人工完成验证后导出会话
type InteractiveBrowser interface {
	Open(ctx context.Context, url string) error
	// ClickConsent 尝试点击 cookie 同意按钮，返回是否点击成功
	ClickConsent(ctx context.Context) bool
	BodyText(ctx context.Context) (string, error)
	Cookies(ctx context.Context) ([]session.Cookie, error)
	SetCookies(ctx context.Context, cookies []session.Cookie) error
	Close()
}

// clickConsentJS 与 scrape 中的同意按钮文本规则一致
const clickConsentJS = `(() => {
	const re = /\b(accept|agree|i agree|ok)\b/i;
	for (const b of document.querySelectorAll('button')) {
		const r = b.getBoundingClientRect();
		if (re.test(b.innerText || '') && r.width > 0 && r.height > 0) { b.click(); return true; }
	}
	return false;
})()`

const bodyTextJS = `document.body ? document.body.innerText : ""`
