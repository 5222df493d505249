package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" validate:"required" default:"development"`
	Log         struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"json"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Server struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Provider struct {
		APIKey         string        `yaml:"api_key" validate:"required"`
		WebSocketURL   string        `yaml:"websocket_url" validate:"required,url"`
		RESTBaseURL    string        `yaml:"rest_base_url" validate:"required,url"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay" default:"5s"`
		PingInterval   time.Duration `yaml:"ping_interval" default:"30s"`
		RateLimit      float64       `yaml:"rate_limit" default:"5"`
		RateBurst      int           `yaml:"rate_burst" default:"10"`
	} `yaml:"provider"`
	Tier1 struct {
		LookbackDays int     `yaml:"lookback_days" default:"30"`
		MinAvgVolume int64   `yaml:"min_avg_volume" default:"3000000"`
		MinPrice     float64 `yaml:"min_price" default:"0.50"`
		MaxPrice     float64 `yaml:"max_price" default:"10"`
		BatchSize    int     `yaml:"batch_size" default:"60"`
		ScanTimes    []string `yaml:"scan_times" default:"[\"06:30\",\"09:30\",\"13:30\"]"`
	} `yaml:"tier1"`
	Tier2 struct {
		SubscribeBatch  int           `yaml:"subscribe_batch" default:"50"`
		PersistInterval time.Duration `yaml:"persist_interval" default:"10s"`
		PrevCloseTTL    time.Duration `yaml:"prev_close_ttl" default:"1h"`
	} `yaml:"tier2"`
	Halts struct {
		RSSFeedURL   string        `yaml:"rss_feed_url" validate:"required,url"`
		TableURL     string        `yaml:"table_url" validate:"required,url"`
		PollInterval time.Duration `yaml:"poll_interval" default:"60s"`
	} `yaml:"halts"`
	News struct {
		StreamURL       string        `yaml:"stream_url"`
		PollInterval    time.Duration `yaml:"poll_interval" default:"3m"`
		CleanupInterval time.Duration `yaml:"cleanup_interval" default:"30m"`
		BreakingMaxAge  time.Duration `yaml:"breaking_max_age" default:"2h"`
		GeneralMaxAge   time.Duration `yaml:"general_max_age" default:"72h"`
		Providers       []struct {
			Name    string        `yaml:"name"`
			Type    string        `yaml:"type"` // rest or rss
			URL     string        `yaml:"url"`
			APIKey  string        `yaml:"api_key"`
			Timeout time.Duration `yaml:"timeout" default:"10s"`
		} `yaml:"providers"`
	} `yaml:"news"`
	Dispatch struct {
		BufferSize int `yaml:"buffer_size" default:"1024"`
	} `yaml:"dispatch"`
	Redis struct {
		Enabled  bool   `yaml:"enabled" default:"false"`
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db" default:"0"`
	} `yaml:"redis"`
}

var validate = validator.New()

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Override with environment variables
	if v := os.Getenv("PROVIDER_API_KEY"); v != "" {
		c.Provider.APIKey = v
	}
	if v := os.Getenv("PROVIDER_WS_URL"); v != "" {
		c.Provider.WebSocketURL = v
	}
	if v := os.Getenv("PROVIDER_REST_URL"); v != "" {
		c.Provider.RESTBaseURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v := os.Getenv("SCAN_TIMES"); v != "" {
		c.Tier1.ScanTimes = strings.Split(v, ",")
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("NEWS_API_KEY"); v != "" {
		for i := range c.News.Providers {
			if c.News.Providers[i].Type == "rest" && c.News.Providers[i].APIKey == "" {
				c.News.Providers[i].APIKey = v
			}
		}
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Tier1.MinPrice >= c.Tier1.MaxPrice {
		return fmt.Errorf("tier1.min_price must be below tier1.max_price")
	}
	if c.Tier2.SubscribeBatch <= 0 || c.Tier2.SubscribeBatch > 50 {
		return fmt.Errorf("tier2.subscribe_batch must be between 1 and 50, got %d", c.Tier2.SubscribeBatch)
	}
	for _, t := range c.Tier1.ScanTimes {
		if _, err := time.Parse("15:04", t); err != nil {
			return fmt.Errorf("tier1.scan_times: invalid time %q", t)
		}
	}
	for i, p := range c.News.Providers {
		if p.Name == "" {
			return fmt.Errorf("news.providers[%d]: name is required", i)
		}
		if p.Type != "rest" && p.Type != "rss" {
			return fmt.Errorf("news.providers[%d]: type must be 'rest' or 'rss', got '%s'", i, p.Type)
		}
	}
	return nil
}
