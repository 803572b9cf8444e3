package config

type Config struct {
	AppEnv string `json:"app_env"`

	Elasticsearch struct {
		// Enabled 批量模式把评论写入 es
		Enabled  bool   `json:"enabled"`
		Username string `json:"username"`
		Password string `json:"password"`
		Address  string `json:"address"`
	} `json:"elasticsearch"`

	Rod struct {
		UserDataDir          string `json:"user_data_dir"`
		Headless             bool   `json:"headless"`
		DisableBlinkFeatures string `json:"disable_blink_features"`
		Incognito            bool   `json:"incognito"`
		DisableDevShmUsage   bool   `json:"disable_dev_shm_usage"`
		NoSandbox            bool   `json:"no_sandbox"`
		UserAgent            string `json:"user_agent"`
		Leakless             bool   `json:"leakless"`
		Bin                  string `json:"bin"`
		Trace                bool   `json:"trace"`
		// ControlURL 非空时连接已有的浏览器，不再启动新进程
		ControlURL   string `json:"control_url"`
		BlockAds     bool   `json:"block_ads"`
		WindowWidth  int    `json:"window_width"`
		WindowHeight int    `json:"window_height"`
	} `json:"rod"`

	Chromedp struct {
		LifeTime             int    `json:"life_time"`
		UserDataDir          string `json:"user_data_dir"`
		Headless             bool   `json:"headless"`
		DisableBlinkFeatures string `json:"disable_blink_features"`
		Incognito            bool   `json:"incognito"`
		DisableDevShmUsage   bool   `json:"disable_dev_shm_usage"`
		NoSandbox            bool   `json:"no_sandbox"`
		UserAgent            string `json:"user_agent"`
	} `json:"chromedp"`

	Colly struct {
		AllowedDomains  []string `json:"allowed_domains"`
		UserAgent       string   `json:"user_agent"`
		IgnoreRobotsTxt bool     `json:"ignore_robots_txt"`
		Parallelism     int      `json:"parallelism"`
		Delay           int      `json:"delay"`
		RandomDelay     int      `json:"random_delay"`
		EnableCookieJar bool     `json:"enable_cookie_jar"`
		// Cloudflare 使用 cloudflare-bp 包装传输层
		Cloudflare bool `json:"cloudflare"`
	} `json:"colly"`

	Embedder struct {
		Enabled   bool   `json:"enabled"`
		Host      string `json:"host"`
		Port      int    `json:"port"`
		Model     string `json:"model"`
		BatchSize int    `json:"batch_size"`
	} `json:"embedder"`

	Redis struct {
		Addr         string `json:"addr"`
		Password     string `json:"password"`
		DB           int    `json:"db"`
		ProcessedKey string `json:"processed_key"`
	} `json:"redis"`

	Server struct {
		Addr        string `json:"addr"`
		MetricsAddr string `json:"metrics_addr"`
		MaxSessions int    `json:"max_sessions"`
		// RequestTimeout 单个 HTTP 请求的上限（秒）
		RequestTimeout int `json:"request_timeout"`
	} `json:"server"`

	Scrape struct {
		StorageState   string  `json:"storage_state"`
		DebugDir       string  `json:"debug_dir"`
		MaxPages       int     `json:"max_pages"`
		TimeoutMS      int     `json:"timeout_ms"`
		StallThreshold int     `json:"stall_threshold"`
		DisablePacing  bool    `json:"disable_pacing"`
		PacingScale    float64 `json:"pacing_scale"`
		Snapshots      bool    `json:"snapshots"`
		// Boilerplate 追加的正文样板正则，命中部分从候选文本中删除
		Boilerplate []string `json:"boilerplate"`
	} `json:"scrape"`

	Warmup struct {
		TargetURL   string `json:"target_url"`
		TimeoutMS   int    `json:"timeout_ms"`
		MaxWaitSecs int    `json:"max_wait_secs"`
	} `json:"warmup"`

	Batch struct {
		// Engine rod 或 colly
		Engine        string `json:"engine"`
		BaseURL       string `json:"base_url"`
		TargetsFile   string `json:"targets_file"`
		ProcessedFile string `json:"processed_file"`
		// ProcessedStore file 或 redis
		ProcessedStore   string `json:"processed_store"`
		CSVPath          string `json:"csv_path"`
		JSONPath         string `json:"json_path"`
		MaxPages         int    `json:"max_pages"`
		IntervalMS       int    `json:"interval_ms"`
		ManualCeilingMin int    `json:"manual_ceiling_min"`
	} `json:"batch"`
}
