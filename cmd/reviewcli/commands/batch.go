package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/LouYuanbo1/reviewcrawler/internal/app"
	"github.com/LouYuanbo1/reviewcrawler/internal/infra/crawler/types"
	"github.com/LouYuanbo1/reviewcrawler/internal/infra/persistence/output"
	"github.com/LouYuanbo1/reviewcrawler/internal/infra/persistence/processed"
	"github.com/LouYuanbo1/reviewcrawler/internal/service/batch"
	"github.com/LouYuanbo1/reviewcrawler/internal/service/scrape"
	"github.com/spf13/cobra"
)

var batchFlags struct {
	targets  string
	engine   string
	csv      string
	jsonl    string
	maxPages int
	headless bool
}

func init() {
	f := batchCmd.Flags()
	f.StringVar(&batchFlags.targets, "targets", "", "目标列表（JSON 字符串数组），默认 batch.targets_file")
	f.StringVar(&batchFlags.engine, "engine", "", "rod 或 colly，默认 batch.engine")
	f.StringVar(&batchFlags.csv, "csv", "", "CSV 输出路径，默认 batch.csv_path")
	f.StringVar(&batchFlags.jsonl, "jsonl", "", "JSONL 输出路径，默认 batch.json_path")
	f.IntVar(&batchFlags.maxPages, "max-pages", 0, "每个目标最多翻多少页，默认 batch.max_pages")
	f.BoolVar(&batchFlags.headless, "headless", false, "无界面运行，出现验证页时无法人工处理")
	rootCmd.AddCommand(batchCmd)
}

var batchCmd = &cobra.Command{
	Use:   "batch [--targets list.json] [--csv out.csv]",
	Short: "依次抓取目标列表中的所有景点，结果追加到 CSV",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		targetsFile := pick(batchFlags.targets, cfg.Batch.TargetsFile)
		if targetsFile == "" {
			return fmt.Errorf("没有指定目标列表")
		}
		targets, err := batch.LoadTargets(targetsFile, cfg.Batch.BaseURL)
		if err != nil {
			return err
		}

		store, err := processed.InitStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		var sinks []batch.Sink
		if p := pick(batchFlags.csv, cfg.Batch.CSVPath); p != "" {
			sinks = append(sinks, output.NewCSVAppender(p))
		}
		if p := pick(batchFlags.jsonl, cfg.Batch.JSONPath); p != "" {
			sinks = append(sinks, output.NewJSONLAppender(p))
		}
		if len(sinks) == 0 {
			return fmt.Errorf("至少需要一个输出文件")
		}

		indexer, err := app.Indexer(ctx, cfg, log)
		if err != nil {
			return err
		}

		resolver := &scrape.ManualResolver{
			Detector: app.Detector(log),
			Signal:   batch.EnterSignal(os.Stdin),
			Ceiling:  time.Duration(cfg.Batch.ManualCeilingMin) * time.Minute,
			Log:      log,
		}
		launcher, err := app.Launcher(cfg, pick(batchFlags.engine, cfg.Batch.Engine), log)
		if err != nil {
			return err
		}
		sess, err := launcher.Launch(ctx, types.LaunchOptions{
			StorageState: cfg.Scrape.StorageState,
			Headless:     batchFlags.headless,
			Timeout:      time.Duration(cfg.Scrape.TimeoutMS) * time.Millisecond,
		})
		if err != nil {
			return err
		}
		defer func() {
			if err := sess.Close(); err != nil {
				log.Warn().Err(err).Msg("关闭浏览器失败")
			}
		}()

		maxPages := batchFlags.maxPages
		if maxPages <= 0 {
			maxPages = cfg.Batch.MaxPages
		}
		runner := batch.NewRunner(app.Orchestrator(cfg, "batch", resolver, log), store,
			batch.WithSinks(sinks...),
			batch.WithIndexer(indexer),
			batch.WithInterval(time.Duration(cfg.Batch.IntervalMS)*time.Millisecond),
			batch.WithMaxPages(maxPages),
			batch.WithTimeout(time.Duration(cfg.Scrape.TimeoutMS)*time.Millisecond),
			batch.WithStorageState(cfg.Scrape.StorageState),
			batch.WithLogger(log),
		)
		log.Info().Int("targets", len(targets)).Str("file", targetsFile).Msg("batch started")
		sum, err := runner.Run(ctx, sess, targets)
		log.Info().Int("done", sum.Done).Int("skipped", sum.Skipped).Int("failed", sum.Failed).
			Int("reviews", sum.Reviews).Msg("batch finished")
		return err
	},
}

func pick(flag, def string) string {
	if flag != "" {
		return flag
	}
	return def
}
