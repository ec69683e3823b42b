package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from file and environment.
// Priority (highest to lowest): env vars > config file > defaults.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix("CLIPHAWK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("cliphawk")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".cliphawk"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is okay if not explicitly specified
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers default values in viper so env overrides bind.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("server.port", cfg.Server.Port)

	v.SetDefault("browser.headless", cfg.Browser.Headless)
	v.SetDefault("browser.keep_open", cfg.Browser.KeepOpen)
	v.SetDefault("browser.user_data_dir", cfg.Browser.UserDataDir)
	v.SetDefault("browser.window_size", cfg.Browser.WindowSize)

	v.SetDefault("scrape.base_url", cfg.Scrape.BaseURL)
	v.SetDefault("scrape.max_videos", cfg.Scrape.MaxVideos)
	v.SetDefault("scrape.search_load_wait", cfg.Scrape.SearchLoadWait)
	v.SetDefault("scrape.arrival_wait", cfg.Scrape.ArrivalWait)
	v.SetDefault("scrape.nav_deadline", cfg.Scrape.NavDeadline)
	v.SetDefault("scrape.rung_poll", cfg.Scrape.RungPoll)
	v.SetDefault("scrape.poll_interval", cfg.Scrape.PollInterval)
	v.SetDefault("scrape.settle_delay", cfg.Scrape.SettleDelay)

	v.SetDefault("harvest.target_comments", cfg.Harvest.TargetComments)
	v.SetDefault("harvest.hard_timeout", cfg.Harvest.HardTimeout)
	v.SetDefault("harvest.settle_interval", cfg.Harvest.SettleInterval)
	v.SetDefault("harvest.stagnation_escape", cfg.Harvest.StagnationEscape)

	v.SetDefault("captcha.wait_timeout", cfg.Captcha.WaitTimeout)

	v.SetDefault("resolver.endpoint", cfg.Resolver.Endpoint)
	v.SetDefault("resolver.timeout", cfg.Resolver.Timeout)

	v.SetDefault("cache.ttl", cfg.Cache.TTL)
	v.SetDefault("cache.max_entries", cfg.Cache.MaxEntries)

	v.SetDefault("storage.enabled", cfg.Storage.Enabled)
	v.SetDefault("storage.uri", cfg.Storage.URI)
	v.SetDefault("storage.database", cfg.Storage.Database)
	v.SetDefault("storage.collection", cfg.Storage.Collection)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
}
