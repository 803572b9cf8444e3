package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Load path 为空时解析内置配置 fallback，然后叠加环境变量
func Load(path string, fallback []byte) (*Config, error) {
	raw := fallback
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		raw = b
	}
	cfg, err := ParseConfig(raw)
	if err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	if err := ApplyEnv(cfg, os.Getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func ParseConfig(byteConfig []byte) (*Config, error) {
	var cfg Config
	err := json.Unmarshal(byteConfig, &cfg)
	if err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := absPaths(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.AppEnv == "" {
		cfg.AppEnv = "prod"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8000"
	}
	if cfg.Server.MaxSessions <= 0 {
		cfg.Server.MaxSessions = 2
	}
	if cfg.Server.RequestTimeout <= 0 {
		cfg.Server.RequestTimeout = 600
	}
	if cfg.Scrape.StorageState == "" {
		cfg.Scrape.StorageState = "ta_state.json"
	}
	if cfg.Scrape.MaxPages <= 0 {
		cfg.Scrape.MaxPages = 50
	}
	if cfg.Scrape.TimeoutMS <= 0 {
		cfg.Scrape.TimeoutMS = 15000
	}
	if cfg.Scrape.StallThreshold <= 0 {
		cfg.Scrape.StallThreshold = 2
	}
	if cfg.Warmup.TargetURL == "" {
		cfg.Warmup.TargetURL = "https://www.tripadvisor.com/"
	}
	if cfg.Warmup.TimeoutMS <= 0 {
		cfg.Warmup.TimeoutMS = 30000
	}
	if cfg.Warmup.MaxWaitSecs <= 0 {
		cfg.Warmup.MaxWaitSecs = 120
	}
	if cfg.Batch.Engine == "" {
		cfg.Batch.Engine = "rod"
	}
	if cfg.Batch.BaseURL == "" {
		cfg.Batch.BaseURL = "https://www.tripadvisor.com"
	}
	if cfg.Batch.ProcessedFile == "" {
		cfg.Batch.ProcessedFile = "processed_urls.txt"
	}
	if cfg.Batch.ProcessedStore == "" {
		cfg.Batch.ProcessedStore = "file"
	}
	if cfg.Batch.MaxPages <= 0 {
		cfg.Batch.MaxPages = 300
	}
	if cfg.Batch.ManualCeilingMin <= 0 {
		cfg.Batch.ManualCeilingMin = 10
	}
	if cfg.Redis.ProcessedKey == "" {
		cfg.Redis.ProcessedKey = "reviewcrawler:processed"
	}
	if cfg.Embedder.BatchSize <= 0 {
		cfg.Embedder.BatchSize = 16
	}
}

// absPaths 把配置中的相对路径转换为绝对路径
func absPaths(cfg *Config) error {
	for _, p := range []*string{
		&cfg.Rod.UserDataDir,
		&cfg.Chromedp.UserDataDir,
		&cfg.Scrape.StorageState,
		&cfg.Scrape.DebugDir,
		&cfg.Batch.TargetsFile,
		&cfg.Batch.ProcessedFile,
		&cfg.Batch.CSVPath,
		&cfg.Batch.JSONPath,
	} {
		if *p == "" {
			continue
		}
		absPath, err := filepath.Abs(*p)
		if err != nil {
			return fmt.Errorf("解析路径 %s 失败: %w", *p, err)
		}
		*p = absPath
	}
	return nil
}

// ApplyEnv 用环境变量覆盖配置，getenv 通常为 os.Getenv
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	str := map[string]*string{
		"APP_ENV":       &cfg.AppEnv,
		"HTTP_ADDR":     &cfg.Server.Addr,
		"METRICS_ADDR":  &cfg.Server.MetricsAddr,
		"REDIS_ADDR":    &cfg.Redis.Addr,
		"ES_ADDRESS":    &cfg.Elasticsearch.Address,
		"ROD_BIN":       &cfg.Rod.Bin,
		"STORAGE_STATE": &cfg.Scrape.StorageState,
		"DEBUG_DIR":     &cfg.Scrape.DebugDir,
	}
	for key, field := range str {
		if v := getenv(key); v != "" {
			*field = v
		}
	}
	if v := getenv("ROD_HEADLESS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("ROD_HEADLESS 不是合法的布尔值: %w", err)
		}
		cfg.Rod.Headless = b
	}
	return absPaths(cfg)
}
