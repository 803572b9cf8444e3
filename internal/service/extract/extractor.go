package extract

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/LouYuanbo1/reviewcrawler/internal/domain/model"
	"github.com/LouYuanbo1/reviewcrawler/internal/infra/crawler/types"
	"github.com/LouYuanbo1/reviewcrawler/internal/service/pacing"
	"github.com/rs/zerolog"
)

// CardSelectors 各种版本页面中的评论卡片
var CardSelectors = []string{
	"[data-automation='reviewCard']",
	"div[data-test-target='review-card']",
	"div[data-test-target='HR_CC_CARD']",
}

// CardSelector CardSelectors 合并后的选择器
var CardSelector = strings.Join(CardSelectors, ", ")

var expanderText = regexp.MustCompile(`(?i)^(Read more|More|Show more|更多|もっと読む)$`)

const maxExpanders = 20

type Extractor struct {
	policy TextPolicy
	pace   pacing.Pacing
	log    zerolog.Logger
}

type Option func(*Extractor)

func WithTextPolicy(tp TextPolicy) Option {
	return func(x *Extractor) { x.policy = tp }
}

func WithPacing(p pacing.Pacing) Option {
	return func(x *Extractor) { x.pace = p }
}

func WithLogger(l zerolog.Logger) Option {
	return func(x *Extractor) { x.log = l }
}

func New(opts ...Option) *Extractor {
	x := &Extractor{
		policy: DefaultTextPolicy(),
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Cards 当前页面已渲染的全部卡片
func (x *Extractor) Cards(page types.Page) []types.Element {
	return page.Elements(CardSelector)
}

// Extract 抽取一张卡片，任何字段失败只会让该字段为空
func (x *Extractor) Extract(card types.Element, page types.Page, url string) model.Review {
	s := scope{card: card, page: page, policy: x.policy}
	return model.Review{
		Title:             firstOf(s, titleStrategies),
		Text:              firstOf(s, textStrategies),
		Rating:            rating(s),
		TravelDate:        firstOf(s, travelDateStrategies),
		WrittenDate:       firstOf(s, writtenDateStrategies),
		Language:          firstOf(s, languageStrategies),
		Author:            firstOf(s, authorStrategies),
		Location:          firstOf(s, locationStrategies),
		ContributionCount: count(s, contributionStrategies),
		HelpfulVotes:      count(s, helpfulStrategies),
		URL:               url,
	}
}

// ExtractAll 抽取页面上所有卡片
func (x *Extractor) ExtractAll(page types.Page, url string) []model.Review {
	cards := x.Cards(page)
	out := make([]model.Review, 0, len(cards))
	for _, card := range cards {
		out = append(out, x.Extract(card, page, url))
	}
	x.log.Debug().Int("cards", len(cards)).Str("url", url).Msg("extracted cards")
	return out
}

// Fingerprint title|author|written，三者都为空时返回 ""
func (x *Extractor) Fingerprint(card types.Element) string {
	s := scope{card: card, policy: x.policy}
	r := model.Review{
		Title:       firstOf(s, titleStrategies),
		Author:      firstOf(s, authorStrategies),
		WrittenDate: firstOf(s, writtenDateStrategies),
	}
	if r.Title == nil && r.Author == nil && r.WrittenDate == nil {
		return ""
	}
	return r.Fingerprint()
}

// PageFingerprint 第一张卡片的指纹，没有卡片时返回 ""
func (x *Extractor) PageFingerprint(page types.Page) string {
	cards := x.Cards(page)
	if len(cards) == 0 {
		return ""
	}
	return x.Fingerprint(cards[0])
}

// Expand 点击前 20 个“Read more”一类的展开按钮，单个点击失败直接忽略
func (x *Extractor) Expand(ctx context.Context, page types.Page) int {
	clicked := 0
	for i, el := range x.expanders(page) {
		if i >= maxExpanders || ctx.Err() != nil {
			break
		}
		if err := el.Click(ctx, time.Second); err != nil {
			x.log.Debug().Err(err).Msg("expander click failed")
			continue
		}
		clicked++
		x.pace.Short(ctx)
	}
	return clicked
}

func (x *Extractor) expanders(page types.Page) []types.Element {
	var out []types.Element
	for _, el := range page.Elements("button, [role='button'], a") {
		if expanderText.MatchString(safeText(el)) && !navigates(el) {
			out = append(out, el)
		}
	}
	// 按钮内部的 span 已经随按钮点击过
	for _, el := range page.Elements("span") {
		if expanderText.MatchString(safeText(el)) && !el.Closest("button, a, [role='button']") {
			out = append(out, el)
		}
	}
	return out
}

// navigates 链接会离开当前页面
func navigates(el types.Element) bool {
	href, ok := el.Attr("href")
	href = strings.TrimSpace(href)
	if !ok || href == "" || strings.HasPrefix(href, "#") {
		return false
	}
	return !strings.HasPrefix(strings.ToLower(href), "javascript:")
}
