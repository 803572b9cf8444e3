// Package app 根据配置组装各个组件，供 cmd 下的程序共用
package app

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/LouYuanbo1/reviewcrawler/internal/config"
	"github.com/LouYuanbo1/reviewcrawler/internal/domain/model"
	"github.com/LouYuanbo1/reviewcrawler/internal/infra/crawler/chrome"
	"github.com/LouYuanbo1/reviewcrawler/internal/infra/crawler/collector"
	"github.com/LouYuanbo1/reviewcrawler/internal/infra/crawler/types"
	"github.com/LouYuanbo1/reviewcrawler/internal/infra/embedding"
	"github.com/LouYuanbo1/reviewcrawler/internal/infra/persistence/es"
	"github.com/LouYuanbo1/reviewcrawler/internal/service/challenge"
	"github.com/LouYuanbo1/reviewcrawler/internal/service/extract"
	"github.com/LouYuanbo1/reviewcrawler/internal/service/index"
	"github.com/LouYuanbo1/reviewcrawler/internal/service/pacing"
	"github.com/LouYuanbo1/reviewcrawler/internal/service/pagination"
	"github.com/LouYuanbo1/reviewcrawler/internal/service/scrape"
	"github.com/LouYuanbo1/reviewcrawler/internal/service/warmup"
	"github.com/rs/zerolog"
)

const (
	EngineRod   = "rod"
	EngineColly = "colly"
)

// Launcher rod 使用真实浏览器，colly 只抓静态 HTML
func Launcher(cfg *config.Config, engine string, log zerolog.Logger) (types.Launcher, error) {
	switch engine {
	case "", EngineRod:
		return chrome.InitRodLauncher(cfg, log.With().Str("engine", EngineRod).Logger()), nil
	case EngineColly:
		return collector.InitCollyCrawler(cfg, log.With().Str("engine", EngineColly).Logger())
	default:
		return nil, fmt.Errorf("未知的抓取引擎: %s", engine)
	}
}

func Pacing(cfg *config.Config) pacing.Pacing {
	return pacing.Pacing{Disabled: cfg.Scrape.DisablePacing, Scale: cfg.Scrape.PacingScale}
}

func Detector(log zerolog.Logger) *challenge.Detector {
	return challenge.NewDetector(log.With().Str("component", "challenge").Logger())
}

// TextPolicy 默认规则加上配置中的样板正则，无法编译的正则跳过
func TextPolicy(cfg *config.Config, log zerolog.Logger) extract.TextPolicy {
	tp := extract.DefaultTextPolicy()
	for _, expr := range cfg.Scrape.Boilerplate {
		re, err := regexp.Compile(expr)
		if err != nil {
			log.Warn().Err(err).Str("pattern", expr).Msg("skip invalid boilerplate pattern")
			continue
		}
		tp.Strip = append(tp.Strip, re)
	}
	return tp
}

// Orchestrator mode 为 service 或 batch，只影响指标标签
func Orchestrator(cfg *config.Config, mode string, resolver scrape.Resolver, log zerolog.Logger) *scrape.Orchestrator {
	pace := Pacing(cfg)
	policy := pagination.DefaultPolicy()
	policy.StallThreshold = cfg.Scrape.StallThreshold
	return scrape.NewOrchestrator(
		Detector(log),
		extract.New(extract.WithPacing(pace), extract.WithTextPolicy(TextPolicy(cfg, log)), extract.WithLogger(log)),
		scrape.WithResolver(resolver),
		scrape.WithPacing(pace),
		scrape.WithPolicy(policy),
		scrape.WithMode(mode),
		scrape.WithDebugger(&scrape.Debugger{Dir: cfg.Scrape.DebugDir, Snapshots: cfg.Scrape.Snapshots, Log: log}),
		scrape.WithLogger(log),
	)
}

// Indexer es 未启用时返回 nil
func Indexer(ctx context.Context, cfg *config.Config, log zerolog.Logger) (index.Service, error) {
	if !cfg.Elasticsearch.Enabled {
		return nil, nil
	}
	client, err := es.InitTypedEsClient[*model.ReviewDoc](cfg, log)
	if err != nil {
		return nil, err
	}
	var embedder embedding.Embedder
	if cfg.Embedder.Enabled {
		if embedder, err = embedding.InitEmbedder(ctx, cfg); err != nil {
			return nil, err
		}
	}
	return index.InitService(client, embedder, 1, log), nil
}

// Warmup 每次预热打开一个 chromedp 浏览器
func Warmup(cfg *config.Config, log zerolog.Logger) warmup.Service {
	open := func(ctx context.Context, headed bool) chrome.InteractiveBrowser {
		return chrome.InitChromedpBrowser(ctx, cfg, headed)
	}
	maxWait := time.Duration(cfg.Warmup.MaxWaitSecs) * time.Second
	return warmup.InitService(open, cfg.Scrape.StorageState, maxWait, log)
}

// WarmupRequest 配置中的预热默认值
func WarmupRequest(cfg *config.Config, headed bool) warmup.Request {
	return warmup.Request{
		StorageState: cfg.Scrape.StorageState,
		TargetURL:    cfg.Warmup.TargetURL,
		Headed:       headed,
		Timeout:      time.Duration(cfg.Warmup.TimeoutMS) * time.Millisecond,
	}
}
