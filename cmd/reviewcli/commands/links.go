package commands

import (
	"errors"
	"os"
	"time"

	"github.com/LouYuanbo1/reviewcrawler/internal/app"
	"github.com/LouYuanbo1/reviewcrawler/internal/infra/crawler/types"
	"github.com/LouYuanbo1/reviewcrawler/internal/infra/persistence/output"
	"github.com/LouYuanbo1/reviewcrawler/internal/service/batch"
	"github.com/LouYuanbo1/reviewcrawler/internal/service/links"
	"github.com/LouYuanbo1/reviewcrawler/internal/service/pagination"
	"github.com/LouYuanbo1/reviewcrawler/internal/service/scrape"
	"github.com/spf13/cobra"
)

var linksFlags struct {
	out      string
	engine   string
	maxPages int
	headless bool
}

func init() {
	f := linksCmd.Flags()
	f.StringVar(&linksFlags.out, "out", "attraction_links.json", "输出文件")
	f.StringVar(&linksFlags.engine, "engine", "", "rod 或 colly，默认 batch.engine")
	f.IntVar(&linksFlags.maxPages, "max-pages", 0, "最多翻多少页，默认 batch.max_pages")
	f.BoolVar(&linksFlags.headless, "headless", false, "无界面运行")
	rootCmd.AddCommand(linksCmd)
}

var linksCmd = &cobra.Command{
	Use:   "links <listing-url>",
	Short: "翻遍景点列表页，收集所有景点评论页链接",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		launcher, err := app.Launcher(cfg, pick(linksFlags.engine, cfg.Batch.Engine), log)
		if err != nil {
			return err
		}
		timeout := time.Duration(cfg.Scrape.TimeoutMS) * time.Millisecond
		sess, err := launcher.Launch(ctx, types.LaunchOptions{
			StorageState: cfg.Scrape.StorageState,
			Headless:     linksFlags.headless,
			Timeout:      timeout,
		})
		if err != nil {
			return err
		}
		defer sess.Close()

		policy := pagination.DefaultPolicy()
		if linksFlags.maxPages > 0 {
			policy.MaxPages = linksFlags.maxPages
		} else {
			policy.MaxPages = cfg.Batch.MaxPages
		}
		detector := app.Detector(log)
		c := links.NewCollector(detector, cfg.Batch.BaseURL,
			links.WithResolver(&scrape.ManualResolver{
				Detector: detector,
				Signal:   batch.EnterSignal(os.Stdin),
				Ceiling:  time.Duration(cfg.Batch.ManualCeilingMin) * time.Minute,
				Log:      log,
			}),
			links.WithPolicy(policy),
			links.WithTimeout(timeout),
			links.WithPacing(app.Pacing(cfg)),
			links.WithLogger(log),
		)

		res, err := c.Collect(ctx, sess.Page(), args[0])
		if res != nil {
			if werr := output.WriteJSON(linksFlags.out, res); werr != nil {
				return errors.Join(err, werr)
			}
			log.Info().Int("count", res.Count).Str("out", linksFlags.out).Str("reason", res.Reason).Msg("links saved")
			if serr := sess.SaveState(ctx, cfg.Scrape.StorageState); serr != nil {
				log.Warn().Err(serr).Msg("保存会话状态失败")
			}
		}
		return err
	},
}
