package config

import (
	"fmt"
	"net/url"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", cfg.Server.Port)
	}

	base, err := url.Parse(cfg.Scrape.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return fmt.Errorf("scrape.base_url %q is not an absolute URL", cfg.Scrape.BaseURL)
	}
	if cfg.Scrape.MaxVideos < 1 {
		return fmt.Errorf("scrape.max_videos must be >= 1, got %d", cfg.Scrape.MaxVideos)
	}
	if cfg.Scrape.NavDeadline <= 0 {
		return fmt.Errorf("scrape.nav_deadline must be > 0")
	}
	if cfg.Scrape.RungPoll <= 0 || cfg.Scrape.RungPoll > cfg.Scrape.NavDeadline {
		return fmt.Errorf("scrape.rung_poll must be > 0 and <= nav_deadline")
	}
	if cfg.Scrape.PollInterval <= 0 {
		return fmt.Errorf("scrape.poll_interval must be > 0")
	}

	if cfg.Harvest.TargetComments < 0 {
		return fmt.Errorf("harvest.target_comments must be >= 0, got %d", cfg.Harvest.TargetComments)
	}
	if cfg.Harvest.HardTimeout <= 0 {
		return fmt.Errorf("harvest.hard_timeout must be > 0")
	}
	if cfg.Harvest.SettleInterval <= 0 {
		return fmt.Errorf("harvest.settle_interval must be > 0")
	}

	if cfg.Captcha.WaitTimeout < 0 {
		return fmt.Errorf("captcha.wait_timeout must be >= 0")
	}

	if cfg.Resolver.Endpoint != "" {
		if _, err := url.Parse(cfg.Resolver.Endpoint); err != nil {
			return fmt.Errorf("invalid resolver.endpoint %q: %w", cfg.Resolver.Endpoint, err)
		}
	}

	if cfg.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must be >= 0")
	}
	if cfg.Cache.MaxEntries < 1 {
		return fmt.Errorf("cache.max_entries must be >= 1, got %d", cfg.Cache.MaxEntries)
	}

	if len(cfg.Selectors.CommentNodes) == 0 {
		return fmt.Errorf("selectors.comment_nodes must not be empty")
	}
	if len(cfg.Selectors.Caption) == 0 {
		return fmt.Errorf("selectors.caption must not be empty")
	}

	if cfg.Storage.Enabled {
		if cfg.Storage.URI == "" || cfg.Storage.Database == "" || cfg.Storage.Collection == "" {
			return fmt.Errorf("storage.uri, storage.database and storage.collection are required when storage is enabled")
		}
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	return nil
}
