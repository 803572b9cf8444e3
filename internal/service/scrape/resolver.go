package scrape

import (
	"context"
	"fmt"
	"time"

	"github.com/LouYuanbo1/reviewcrawler/internal/infra/crawler/types"
	"github.com/rs/zerolog"
)

// Resolver 在出现验证页时决定如何继续，返回 nil 表示验证已通过
type Resolver interface {
	Resolve(ctx context.Context, page types.Page) error
}

// AbortResolver 服务模式：不等待人工，直接失败
type AbortResolver struct{}

func (AbortResolver) Resolve(context.Context, types.Page) error { return ErrChallenge }

// ManualResolver 批处理模式：等待操作者在浏览器里完成验证
// 收到 Signal 或轮询发现验证页消失时恢复，最多等待 Ceiling
type ManualResolver struct {
	Detector Detector
	// Signal 操作者确认已完成验证，例如终端里按下回车
	Signal  <-chan struct{}
	Poll    time.Duration
	Ceiling time.Duration
	Log     zerolog.Logger
}

const (
	defaultPoll    = 2 * time.Second
	defaultCeiling = 10 * time.Minute
)

func (m *ManualResolver) Resolve(ctx context.Context, page types.Page) error {
	poll, ceiling := m.Poll, m.Ceiling
	if poll <= 0 {
		poll = defaultPoll
	}
	if ceiling <= 0 {
		ceiling = defaultCeiling
	}
	m.Log.Warn().Str("url", page.URL()).Dur("ceiling", ceiling).
		Msg("验证页出现，请在浏览器窗口中手动完成验证，完成后按回车继续")

	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	deadline := time.NewTimer(ceiling)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return fmt.Errorf("等待人工验证超过 %s: %w", ceiling, ErrChallenge)
		case <-m.Signal:
			if !m.challenged(ctx, page) {
				m.Log.Info().Msg("验证已完成，继续")
				return nil
			}
			m.Log.Warn().Msg("页面仍是验证页，继续等待")
		case <-ticker.C:
			if !m.challenged(ctx, page) {
				m.Log.Info().Msg("验证页已消失，继续")
				return nil
			}
		}
	}
}

func (m *ManualResolver) challenged(ctx context.Context, page types.Page) bool {
	if m.Detector == nil {
		return false
	}
	return m.Detector.Detect(ctx, page)
}
