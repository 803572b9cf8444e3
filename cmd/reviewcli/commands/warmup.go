package commands

import (
	"fmt"
	"os"

	"github.com/LouYuanbo1/reviewcrawler/internal/app"
	"github.com/LouYuanbo1/reviewcrawler/internal/service/batch"
	"github.com/spf13/cobra"
)

var warmupFlags struct {
	url      string
	state    string
	headless bool
}

func init() {
	f := warmupCmd.Flags()
	f.StringVar(&warmupFlags.url, "url", "", "先打开的页面，默认 warmup.target_url")
	f.StringVar(&warmupFlags.state, "state", "", "会话保存路径，默认 scrape.storage_state")
	f.BoolVar(&warmupFlags.headless, "headless", false, "无界面运行，只刷新已有会话")
	rootCmd.AddCommand(warmupCmd)
}

var warmupCmd = &cobra.Command{
	Use:   "warmup [--url https://www.tripadvisor.com/] [--state ta_state.json]",
	Short: "打开浏览器让操作者完成验证，然后保存会话",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		req := app.WarmupRequest(cfg, !warmupFlags.headless)
		req.TargetURL = pick(warmupFlags.url, req.TargetURL)
		req.StorageState = pick(warmupFlags.state, req.StorageState)
		if req.Headed {
			fmt.Fprintln(os.Stderr, "在浏览器窗口中完成验证和 cookie 同意，然后回到终端按回车保存会话")
			req.Done = batch.EnterSignal(os.Stdin)
		}

		res, err := app.Warmup(cfg, log).Warmup(cmd.Context(), req)
		if err != nil {
			return err
		}
		log.Info().Str("state", res.StorageState).Int("cookies", res.Cookies).Bool("verified", res.Verified).Msg("warmup done")
		return nil
	},
}
