package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Monitor   MonitorConfig   `mapstructure:"monitor"`
	Browser   BrowserConfig   `mapstructure:"browser"`
	Reference ReferenceConfig `mapstructure:"reference"`
	Render    RenderConfig    `mapstructure:"render"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	AWS       AWSConfig       `mapstructure:"aws"`
	Log       LogConfig       `mapstructure:"log"`
}

// MonitorConfig drives discovery and price polling of the listing page.
type MonitorConfig struct {
	ListingURL        string        `mapstructure:"listing_url"`
	Columns           int           `mapstructure:"columns"`
	DiscoveryInterval time.Duration `mapstructure:"discovery_interval"`
	PollInterval      time.Duration `mapstructure:"poll_interval"`
	DecayWindow       time.Duration `mapstructure:"decay_window"`
	PageTimeout       time.Duration `mapstructure:"page_timeout"`
	MaxMarkets        int           `mapstructure:"max_markets"` // 0 = unlimited
	ContainerSelector string        `mapstructure:"container_selector"`
	LinkSelector      string        `mapstructure:"link_selector"`
	PriceSelector     string        `mapstructure:"price_selector"`
	CommentMarker     string        `mapstructure:"comment_marker"`
	IDPrefixes        []string      `mapstructure:"id_prefixes"`
	Heartbeat         string        `mapstructure:"heartbeat"` // cron spec, e.g. "@every 1m"
	Autostart         bool          `mapstructure:"autostart"`
}

type BrowserConfig struct {
	Headless  bool   `mapstructure:"headless"`
	ExecPath  string `mapstructure:"exec_path"`
	UserAgent string `mapstructure:"user_agent"`
}

type ReferenceConfig struct {
	URL      string         `mapstructure:"url"`
	Interval time.Duration  `mapstructure:"interval"`
	Timeout  time.Duration  `mapstructure:"timeout"`
	Symbols  []SymbolConfig `mapstructure:"symbols"`
}

// SymbolConfig maps a feed symbol (e.g. "BTCUSDT") to the label shown on screen (e.g. "BTC").
type SymbolConfig struct {
	Symbol string `mapstructure:"symbol"`
	Label  string `mapstructure:"label"`
}

type RenderConfig struct {
	Mode       string `mapstructure:"mode"` // "ws" or "log"
	ListenAddr string `mapstructure:"listen_addr"`
	QueueSize  int    `mapstructure:"queue_size"`
}

type TelegramConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	BotToken          string `mapstructure:"bot_token"`
	BotTokenParameter string `mapstructure:"bot_token_parameter"` // SSM parameter name (optional)
	ChatID            string `mapstructure:"chat_id"`
}

type AWSConfig struct {
	Region string `mapstructure:"region"`
}

// LogConfig defines the logger configuration options.
type LogConfig struct {
	Level       string `mapstructure:"level"`       // log level: "debug", "info", "warn", "error"
	Format      string `mapstructure:"format"`      // log format: "json" or "console"
	OutputFile  string `mapstructure:"output_file"` // file path to store logs (optional)
	Environment string `mapstructure:"environment"` // environment: "dev" or "prod"
}

// Load loads application configuration using Viper.
// Defaults are applied first, then the optional YAML file at path, then
// environment variables (MARKETWATCH_MONITOR_POLL_INTERVAL etc.). A .env
// file in the working directory is loaded into the environment if present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("MARKETWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("monitor.listing_url", "https://polymarket.com/markets/crypto/bitcoin")
	v.SetDefault("monitor.columns", 4)
	v.SetDefault("monitor.discovery_interval", "10m")
	v.SetDefault("monitor.poll_interval", "5s")
	v.SetDefault("monitor.decay_window", "12s")
	v.SetDefault("monitor.page_timeout", "10s")
	v.SetDefault("monitor.max_markets", 40)
	v.SetDefault("monitor.container_selector", "#markets-grid-container")
	v.SetDefault("monitor.link_selector", "a")
	v.SetDefault("monitor.price_selector", ".c-bjtUDd-ijxkYfH-css")
	v.SetDefault("monitor.comment_marker", "#comment")
	v.SetDefault("monitor.id_prefixes", []string{"what-price-will-", "will-"})
	v.SetDefault("monitor.heartbeat", "@every 1m")
	v.SetDefault("monitor.autostart", false)

	v.SetDefault("browser.headless", true)

	v.SetDefault("reference.url", "https://api.binance.com/api/v3/ticker/price")
	v.SetDefault("reference.interval", "1s")
	v.SetDefault("reference.timeout", "5s")
	v.SetDefault("reference.symbols", []map[string]string{
		{"symbol": "BTCUSDT", "label": "BTC"},
		{"symbol": "ETHUSDT", "label": "ETH"},
		{"symbol": "SOLUSDT", "label": "SOL"},
	})

	v.SetDefault("render.mode", "ws")
	v.SetDefault("render.listen_addr", ":8080")
	v.SetDefault("render.queue_size", 256)

	v.SetDefault("telegram.enabled", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.environment", "dev")
}

// Validate checks that all configuration values are usable.
func (c *Config) Validate() error {
	m := c.Monitor
	if m.ListingURL == "" {
		return fmt.Errorf("monitor.listing_url is required")
	}
	if m.Columns < 1 {
		return fmt.Errorf("monitor.columns must be at least 1")
	}
	if m.PollInterval <= 0 {
		return fmt.Errorf("monitor.poll_interval must be positive")
	}
	if m.DiscoveryInterval < m.PollInterval {
		return fmt.Errorf("monitor.discovery_interval must not be shorter than monitor.poll_interval")
	}
	if m.DecayWindow <= 0 {
		return fmt.Errorf("monitor.decay_window must be positive")
	}
	if m.PageTimeout <= 0 {
		return fmt.Errorf("monitor.page_timeout must be positive")
	}
	if m.MaxMarkets < 0 {
		return fmt.Errorf("monitor.max_markets must not be negative")
	}
	if m.ContainerSelector == "" || m.LinkSelector == "" || m.PriceSelector == "" {
		return fmt.Errorf("monitor selectors must not be empty")
	}

	if c.Reference.URL == "" {
		return fmt.Errorf("reference.url is required")
	}
	if c.Reference.Interval <= 0 {
		return fmt.Errorf("reference.interval must be positive")
	}
	for _, s := range c.Reference.Symbols {
		if s.Symbol == "" || s.Label == "" {
			return fmt.Errorf("reference.symbols entries need both symbol and label")
		}
	}

	switch c.Render.Mode {
	case "ws", "log":
	default:
		return fmt.Errorf("render.mode must be one of: ws, log")
	}
	if c.Render.QueueSize < 1 {
		return fmt.Errorf("render.queue_size must be at least 1")
	}

	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" && c.Telegram.BotTokenParameter == "" {
			return fmt.Errorf("telegram.bot_token or telegram.bot_token_parameter is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	return nil
}
