package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for cliphawk.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"    yaml:"server"`
	Browser   BrowserConfig   `mapstructure:"browser"   yaml:"browser"`
	Scrape    ScrapeConfig    `mapstructure:"scrape"    yaml:"scrape"`
	Harvest   HarvestConfig   `mapstructure:"harvest"   yaml:"harvest"`
	Captcha   CaptchaConfig   `mapstructure:"captcha"   yaml:"captcha"`
	Resolver  ResolverConfig  `mapstructure:"resolver"  yaml:"resolver"`
	Cache     CacheConfig     `mapstructure:"cache"     yaml:"cache"`
	Selectors SelectorConfig  `mapstructure:"selectors" yaml:"selectors"`
	Storage   StorageConfig   `mapstructure:"storage"   yaml:"storage"`
	Logging   LoggingConfig   `mapstructure:"logging"   yaml:"logging"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Port int `mapstructure:"port" yaml:"port"`
}

// BrowserConfig controls the shared browser process. Headless and the
// stealth posture are fixed for the process lifetime.
type BrowserConfig struct {
	Headless    bool   `mapstructure:"headless"      yaml:"headless"`
	KeepOpen    bool   `mapstructure:"keep_open"     yaml:"keep_open"`
	UserDataDir string `mapstructure:"user_data_dir" yaml:"user_data_dir"`
	WindowSize  string `mapstructure:"window_size"   yaml:"window_size"`
}

// ScrapeConfig controls the traversal state machine.
type ScrapeConfig struct {
	BaseURL        string        `mapstructure:"base_url"          yaml:"base_url"`
	MaxVideos      int           `mapstructure:"max_videos"        yaml:"max_videos"`
	SearchLoadWait time.Duration `mapstructure:"search_load_wait"  yaml:"search_load_wait"`
	ArrivalWait    time.Duration `mapstructure:"arrival_wait"      yaml:"arrival_wait"`
	NavDeadline    time.Duration `mapstructure:"nav_deadline"      yaml:"nav_deadline"`
	RungPoll       time.Duration `mapstructure:"rung_poll"         yaml:"rung_poll"`
	PollInterval   time.Duration `mapstructure:"poll_interval"     yaml:"poll_interval"`
	SettleDelay    time.Duration `mapstructure:"settle_delay"      yaml:"settle_delay"`
}

// HarvestConfig controls the comment harvester.
type HarvestConfig struct {
	TargetComments int           `mapstructure:"target_comments"   yaml:"target_comments"`
	HardTimeout    time.Duration `mapstructure:"hard_timeout"      yaml:"hard_timeout"`
	SettleInterval time.Duration `mapstructure:"settle_interval"   yaml:"settle_interval"`
	// StagnationEscape force-scrolls the comment container to its end
	// when the rendered count stalls. Can truncate on panes with lazy
	// triggers further down; disable per site when that bites.
	StagnationEscape bool `mapstructure:"stagnation_escape" yaml:"stagnation_escape"`
}

// CaptchaConfig controls the challenge checkpoint.
type CaptchaConfig struct {
	// WaitTimeout bounds the operator wait. 0 blocks until resumed,
	// which assumes an operator is present; unattended deployments set
	// a timeout and handle the retryable failure.
	WaitTimeout time.Duration `mapstructure:"wait_timeout" yaml:"wait_timeout"`
}

// ResolverConfig controls the external oEmbed metadata resolver.
type ResolverConfig struct {
	Endpoint string        `mapstructure:"endpoint" yaml:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"  yaml:"timeout"`
}

// CacheConfig controls the result cache. TTL 0 disables expiry.
type CacheConfig struct {
	TTL        time.Duration `mapstructure:"ttl"         yaml:"ttl"`
	MaxEntries int           `mapstructure:"max_entries" yaml:"max_entries"`
}

// SelectorConfig holds the ordered DOM probe chains. Site-layout drift is
// a config change, not a code change.
type SelectorConfig struct {
	ResultLinks    []string `mapstructure:"result_links"    yaml:"result_links"`
	Caption        []string `mapstructure:"caption"         yaml:"caption"`
	AuthorLink     []string `mapstructure:"author_link"     yaml:"author_link"`
	Video          string   `mapstructure:"video"           yaml:"video"`
	CommentNodes   []string `mapstructure:"comment_nodes"   yaml:"comment_nodes"`
	CommentOpeners []string `mapstructure:"comment_openers" yaml:"comment_openers"`
	NextButton     []string `mapstructure:"next_button"     yaml:"next_button"`
	Challenge      []string `mapstructure:"challenge"       yaml:"challenge"`
}

// StorageConfig controls the optional MongoDB run archive.
type StorageConfig struct {
	Enabled    bool   `mapstructure:"enabled"    yaml:"enabled"`
	URI        string `mapstructure:"uri"        yaml:"uri"`
	Database   string `mapstructure:"database"   yaml:"database"`
	Collection string `mapstructure:"collection" yaml:"collection"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8080,
		},
		Browser: BrowserConfig{
			Headless:   false,
			KeepOpen:   false,
			WindowSize: "1280,900",
		},
		Scrape: ScrapeConfig{
			BaseURL:        "https://www.tiktok.com",
			MaxVideos:      10,
			SearchLoadWait: 4 * time.Second,
			ArrivalWait:    8 * time.Second,
			NavDeadline:    25 * time.Second,
			RungPoll:       4 * time.Second,
			PollInterval:   250 * time.Millisecond,
			SettleDelay:    1200 * time.Millisecond,
		},
		Harvest: HarvestConfig{
			TargetComments:   20,
			HardTimeout:      20 * time.Second,
			SettleInterval:   700 * time.Millisecond,
			StagnationEscape: true,
		},
		Captcha: CaptchaConfig{
			WaitTimeout: 0,
		},
		Resolver: ResolverConfig{
			Endpoint: "https://www.tiktok.com/oembed",
			Timeout:  8 * time.Second,
		},
		Cache: CacheConfig{
			TTL:        10 * time.Minute,
			MaxEntries: 50,
		},
		Selectors: SelectorConfig{
			ResultLinks: []string{
				`a[data-e2e="search_top-item"]`,
				`div[data-e2e="search_video-item"] a`,
				`div[data-e2e="search-card-desc"] a`,
			},
			Caption: []string{
				`[data-e2e="browse-video-desc"]`,
				`[data-e2e="video-desc"]`,
				`h1[data-e2e="video-desc"]`,
			},
			AuthorLink: []string{
				`a[data-e2e="browse-user-avatar"]`,
				`[data-e2e="browse-username"]`,
				`a[data-e2e="video-author-avatar"]`,
			},
			Video: "video",
			CommentNodes: []string{
				`[data-e2e="comment-level-1"]`,
				`span[data-e2e^="comment-level"]`,
			},
			CommentOpeners: []string{
				`[data-e2e="comment-icon"]`,
				`button[aria-label*="omment"]`,
				`[data-e2e="browse-comment-icon"]`,
			},
			NextButton: []string{
				`button[data-e2e="arrow-down"]`,
				`[data-e2e="feed-video-next"]`,
			},
			Challenge: []string{
				`#captcha-verify-container`,
				`iframe[src*="captcha"]`,
				`div[class*="captcha_verify"]`,
				`#verify-bar-close`,
			},
		},
		Storage: StorageConfig{
			Enabled:    false,
			URI:        "mongodb://localhost:27017",
			Database:   "cliphawk",
			Collection: "runs",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
