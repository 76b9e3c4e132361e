package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"MarketScout/internal/symbols"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	CacheDir    string `yaml:"cache_dir"`
	ResearchDir string `yaml:"research_dir"`
	// Symbols is a path to a symbol file or a comma-separated list.
	Symbols  string `yaml:"symbols"`
	Provider struct {
		BaseURL   string        `yaml:"base_url"`
		Proxy     string        `yaml:"proxy"`
		Timeout   time.Duration `yaml:"timeout"`
		// RateLimit is requests per second; 0 uses the default and a
		// negative value disables the limit.
		RateLimit float64       `yaml:"rate_limit"`
		UserAgent string        `yaml:"user_agent"`
		// InfoTTL is how long quote summaries are reused; 0 uses the
		// default and a negative value disables reuse.
		InfoTTL   time.Duration `yaml:"info_ttl"`
	} `yaml:"provider"`
	Pacing struct {
		Delay       time.Duration `yaml:"delay"`
		ResearchMin time.Duration `yaml:"research_min"`
		ResearchMax time.Duration `yaml:"research_max"`
	} `yaml:"pacing"`
	Schedule struct {
		ResearchCron string `yaml:"research_cron"`
	} `yaml:"schedule"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Load reads config from a YAML file, then applies .env and environment
// variable overrides and fills defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// .env is optional; variables already set in the environment win.
	_ = godotenv.Load()

	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}
	if v := os.Getenv("RESEARCH_DIR"); v != "" {
		cfg.ResearchDir = v
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		cfg.Symbols = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Provider.Proxy = v
	}
	if v := os.Getenv("RATE_LIMIT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Provider.RateLimit = f
		}
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("CRON_RESEARCH"); v != "" {
		cfg.Schedule.ResearchCron = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.CacheDir == "" {
		cfg.CacheDir = "cache"
	}
	if cfg.ResearchDir == "" {
		cfg.ResearchDir = "research"
	}
	if cfg.Provider.BaseURL == "" {
		cfg.Provider.BaseURL = "https://query2.finance.yahoo.com"
	}
	if cfg.Provider.Timeout == 0 {
		cfg.Provider.Timeout = 30 * time.Second
	}
	if cfg.Provider.RateLimit == 0 {
		cfg.Provider.RateLimit = 2
	}
	if cfg.Provider.InfoTTL == 0 {
		cfg.Provider.InfoTTL = time.Minute
	}
	if cfg.Pacing.Delay == 0 {
		cfg.Pacing.Delay = 350 * time.Millisecond
	}
	if cfg.Pacing.ResearchMin == 0 {
		cfg.Pacing.ResearchMin = time.Second
	}
	if cfg.Pacing.ResearchMax == 0 {
		cfg.Pacing.ResearchMax = 3 * time.Second
	}
	if cfg.Schedule.ResearchCron == "" {
		cfg.Schedule.ResearchCron = "0 30 22 * * 1-5"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
}

// Validate checks that the loaded values are usable.
func (c *Config) Validate() error {
	if c.Provider.Timeout < 0 {
		return fmt.Errorf("provider.timeout must not be negative")
	}
	if c.Pacing.Delay < 0 || c.Pacing.ResearchMin < 0 {
		return fmt.Errorf("pacing delays must not be negative")
	}
	if c.Pacing.ResearchMin > c.Pacing.ResearchMax {
		return fmt.Errorf("pacing.research_min (%s) exceeds pacing.research_max (%s)",
			c.Pacing.ResearchMin, c.Pacing.ResearchMax)
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console, got %q", c.Log.Format)
	}
	return nil
}

// TelegramEnabled reports whether research reports should be sent.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// SymbolSource resolves the configured symbols. A comma-separated value is
// split into a list; anything else goes through the research resolver, so a
// file path keeps its name.
func (c *Config) SymbolSource() symbols.Source {
	s := strings.TrimSpace(c.Symbols)
	if s == "" {
		return symbols.Source{Symbols: symbols.Set{}}
	}
	if strings.Contains(s, ",") {
		var list []string
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				list = append(list, part)
			}
		}
		return symbols.ResolveSource(list)
	}
	return symbols.ResolveSource(s)
}
