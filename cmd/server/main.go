package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LouYuanbo1/reviewcrawler/appconfig"
	"github.com/LouYuanbo1/reviewcrawler/internal/app"
	"github.com/LouYuanbo1/reviewcrawler/internal/config"
	"github.com/LouYuanbo1/reviewcrawler/internal/infra/httpserver"
	"github.com/LouYuanbo1/reviewcrawler/internal/infra/observability"
	"github.com/LouYuanbo1/reviewcrawler/internal/service/scrape"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	configPath string
	engine     string
)

var rootCmd = &cobra.Command{
	Use:          "server",
	Short:        "Tripadvisor 评论抓取 HTTP 服务",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd.Context())
	},
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "", "配置文件路径，默认使用内置的 appconfig.json")
	rootCmd.Flags().StringVar(&engine, "engine", app.EngineRod, "rod 或 colly")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(configPath, appconfig.Default)
	if err != nil {
		return err
	}

	// dev 环境输出彩色控制台日志，其它环境输出 JSON
	log.Logger = observability.NewLogger(cfg.AppEnv)

	launcher, err := app.Launcher(cfg, engine, log.Logger)
	if err != nil {
		return err
	}
	orchestrator := app.Orchestrator(cfg, "service", scrape.AbortResolver{}, log.Logger)
	scrapeService := scrape.InitService(launcher, orchestrator, cfg.Server.MaxSessions, cfg.Rod.Headless, cfg.Scrape.StorageState, log.Logger)

	srv := httpserver.New(log.Logger, time.Duration(cfg.Server.RequestTimeout)*time.Second)
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&httpserver.Handlers{
		Scrape: scrapeService,
		Warmup: app.Warmup(cfg, log.Logger),
		Log:    log.Logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	httpSrv := &http.Server{Addr: cfg.Server.Addr, Handler: srv.Mux(), ReadHeaderTimeout: 10 * time.Second}
	g.Go(func() error {
		log.Info().Str("addr", cfg.Server.Addr).Str("engine", engine).Int("max_sessions", cfg.Server.MaxSessions).Msg("API listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), 30*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	if cfg.Server.MetricsAddr != "" {
		g.Go(func() error { return observability.Serve(gctx, cfg.Server.MetricsAddr, reg) })
	}
	return g.Wait()
}
