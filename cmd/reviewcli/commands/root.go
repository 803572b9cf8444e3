package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/LouYuanbo1/reviewcrawler/appconfig"
	"github.com/LouYuanbo1/reviewcrawler/internal/config"
	"github.com/LouYuanbo1/reviewcrawler/internal/infra/observability"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:          "reviewcli",
	Short:        "reviewcli 批量抓取 Tripadvisor 评论、预热会话、收集景点链接",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "配置文件路径，默认使用内置的 appconfig.json")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig 读取配置、叠加环境变量并设置全局 logger
func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(configPath, appconfig.Default)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	log.Logger = observability.NewLogger(cfg.AppEnv)
	return cfg, log.Logger, nil
}
