package batch

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/LouYuanbo1/reviewcrawler/internal/domain/model"
	"github.com/LouYuanbo1/reviewcrawler/internal/infra/crawler/types"
	"github.com/LouYuanbo1/reviewcrawler/internal/infra/persistence/processed"
	"github.com/LouYuanbo1/reviewcrawler/internal/service/index"
	"github.com/LouYuanbo1/reviewcrawler/internal/service/scrape"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const DefaultMaxPages = 300

// Sink 每个目标完成后追加写入
type Sink interface {
	Append(reviews []model.Review) error
}

// Summary 一次批量运行的统计
type Summary struct {
	Targets int `json:"targets"`
	Skipped int `json:"skipped"`
	Done    int `json:"done"`
	Failed  int `json:"failed"`
	Reviews int `json:"reviews"`
}

// Runner 在同一个浏览器会话里依次抓取目标列表
type Runner struct {
	orchestrator *scrape.Orchestrator
	store        processed.Store
	sinks        []Sink
	indexer      index.Service
	limiter      *rate.Limiter
	maxPages     int
	timeout      time.Duration
	state        string
	log          zerolog.Logger
}

type Option func(*Runner)

func WithSinks(sinks ...Sink) Option {
	return func(r *Runner) { r.sinks = append(r.sinks, sinks...) }
}

// WithIndexer 抓完的评论同时写入 es
func WithIndexer(ix index.Service) Option {
	return func(r *Runner) { r.indexer = ix }
}

// WithInterval 两个目标之间至少间隔 d
func WithInterval(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.limiter = rate.NewLimiter(rate.Every(d), 1)
		}
	}
}

func WithMaxPages(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.maxPages = n
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(r *Runner) { r.timeout = d }
}

// WithStorageState 每个目标结束后把 cookie 写回 path
func WithStorageState(path string) Option {
	return func(r *Runner) { r.state = path }
}

func WithLogger(l zerolog.Logger) Option {
	return func(r *Runner) { r.log = l }
}

func NewRunner(orchestrator *scrape.Orchestrator, store processed.Store, opts ...Option) *Runner {
	r := &Runner{
		orchestrator: orchestrator,
		store:        store,
		limiter:      rate.NewLimiter(rate.Inf, 1),
		maxPages:     DefaultMaxPages,
		timeout:      scrape.DefaultTimeout,
		log:          zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Skip 已处理过或带 #REVIEWS 锚点的目标不再抓取
func (r *Runner) Skip(ctx context.Context, url string) (bool, error) {
	if strings.Contains(url, "#REVIEWS") {
		return true, nil
	}
	return r.store.Contains(ctx, url)
}

// Run 验证页等待超时、导航超时等单个目标的失败只记录日志，不标记为已处理，下次运行会重试
func (r *Runner) Run(ctx context.Context, sess types.Session, targets []string) (Summary, error) {
	sum := Summary{Targets: len(targets)}
	for _, url := range targets {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		log := r.log.With().Str("target", url).Logger()

		skip, err := r.Skip(ctx, url)
		if err != nil {
			return sum, err
		}
		if skip {
			log.Info().Msg("skip processed target")
			sum.Skipped++
			continue
		}
		if err := r.limiter.Wait(ctx); err != nil {
			return sum, err
		}

		res, err := r.orchestrator.Scrape(ctx, sess, scrape.Target{
			URL:            url,
			MaxPages:       r.maxPages,
			Timeout:        r.timeout,
			StorageState:   r.state,
			WithAttraction: true,
		})
		if err != nil {
			if ctx.Err() != nil {
				return sum, ctx.Err()
			}
			sum.Failed++
			var ce *scrape.ChallengeError
			switch {
			case errors.As(err, &ce):
				log.Warn().Str("artifact", ce.Artifact).Msg("challenge not resolved, target left for next run")
			case scrape.IsTimeout(err):
				log.Warn().Err(err).Msg("timeout, target left for next run")
			default:
				log.Error().Err(err).Msg("scrape failed")
			}
			continue
		}

		if err := r.write(ctx, res.Reviews); err != nil {
			return sum, err
		}
		if err := r.store.Add(ctx, url); err != nil {
			return sum, err
		}
		sum.Done++
		sum.Reviews += len(res.Reviews)
		log.Info().Str("attraction", res.Attraction).Int("reviews", len(res.Reviews)).
			Int("pages", res.Pages).Str("reason", string(res.Reason)).Msg("target done")
	}
	return sum, nil
}

func (r *Runner) write(ctx context.Context, reviews []model.Review) error {
	if len(reviews) == 0 {
		return nil
	}
	for _, s := range r.sinks {
		if err := s.Append(reviews); err != nil {
			return err
		}
	}
	if r.indexer != nil {
		if _, err := r.indexer.Index(ctx, reviews); err != nil {
			r.log.Warn().Err(err).Msg("index reviews failed")
		}
	}
	return nil
}
