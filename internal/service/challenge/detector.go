package challenge

import (
	"context"
	"strings"

	"github.com/LouYuanbo1/reviewcrawler/internal/infra/crawler/types"
	"github.com/rs/zerolog"
)

// Signals 判断所需的页面信息
type Signals struct {
	URL          string
	BodyText     string
	FrameSources []string
	// MarkerPresent 页面上存在验证组件节点
	MarkerPresent bool
}

type Detector struct {
	// Phrases 小写，正文包含任一即判定为验证页
	Phrases []string
	// HostHints 验证服务商域名片段，URL 或 iframe src 包含任一即判定为验证页
	HostHints []string
	// URLHints 只对页面 URL 生效，iframe 中常见的 recaptcha 之类不算
	URLHints []string
	// Markers 验证组件的选择器
	Markers []string
	log     zerolog.Logger
}

func NewDetector(log zerolog.Logger) *Detector {
	return &Detector{
		Phrases: []string{
			"verification required",
			"slide right to complete the puzzle",
			"access blocked",
		},
		HostHints: []string{
			"captcha-delivery.com", "geo.captcha-delivery.com", "ct.captcha-delivery.com",
			"arkoselabs", "hcaptcha", "datadome", "geetest",
		},
		URLHints: []string{"captcha", "verify", "verification"},
		Markers: []string{
			"iframe[src*='captcha-delivery.com']",
			"iframe[title*='captcha']",
			"iframe[src*='arkoselabs']",
			"div[aria-label*='captcha']",
			"[role='dialog'][aria-label*='erification']",
		},
		log: log,
	}
}

// Signals 纯函数判断
func (d *Detector) Signals(s Signals) bool {
	body := strings.ToLower(s.BodyText)
	for _, p := range d.Phrases {
		if strings.Contains(body, p) {
			return true
		}
	}
	if contains(s.URL, d.HostHints) || contains(s.URL, d.URLHints) {
		return true
	}
	for _, src := range s.FrameSources {
		if contains(src, d.HostHints) {
			return true
		}
	}
	return s.MarkerPresent
}

func contains(u string, hints []string) bool {
	if u == "" {
		return false
	}
	u = strings.ToLower(u)
	for _, h := range hints {
		if strings.Contains(u, h) {
			return true
		}
	}
	return false
}

// Detect 读取页面后判断，任何读取失败都按“未检测到”处理
func (d *Detector) Detect(ctx context.Context, page types.Page) (hit bool) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Warn().Interface("panic", r).Msg("challenge detection failed")
			hit = false
		}
	}()
	hit = d.Signals(d.collect(ctx, page))
	if hit {
		d.log.Info().Str("url", page.URL()).Msg("challenge detected")
	}
	return hit
}

func (d *Detector) collect(ctx context.Context, page types.Page) Signals {
	s := Signals{URL: page.URL()}
	body, err := page.BodyText(ctx)
	if err != nil {
		d.log.Debug().Err(err).Msg("read body text")
	} else {
		s.BodyText = body
	}
	for _, f := range page.Elements("iframe[src]") {
		if src, ok := f.Attr("src"); ok {
			s.FrameSources = append(s.FrameSources, src)
		}
	}
	for _, sel := range d.Markers {
		if len(page.Elements(sel)) > 0 {
			s.MarkerPresent = true
			break
		}
	}
	return s
}
