package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

// go test -v --run TestLoadDefaults
func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}

	if cfg.Monitor.Columns != 4 {
		t.Errorf("Columns = %d, want 4", cfg.Monitor.Columns)
	}
	if cfg.Monitor.DiscoveryInterval != 10*time.Minute {
		t.Errorf("DiscoveryInterval = %v, want 10m", cfg.Monitor.DiscoveryInterval)
	}
	if cfg.Monitor.PollInterval != 5*time.Second {
		t.Errorf("PollInterval = %v, want 5s", cfg.Monitor.PollInterval)
	}
	if cfg.Reference.Interval != time.Second {
		t.Errorf("Reference.Interval = %v, want 1s", cfg.Reference.Interval)
	}
	if len(cfg.Reference.Symbols) != 3 || cfg.Reference.Symbols[0].Symbol != "BTCUSDT" || cfg.Reference.Symbols[0].Label != "BTC" {
		t.Errorf("Reference.Symbols = %+v", cfg.Reference.Symbols)
	}
}

// go test -v --run TestLoadFileAndEnv
func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
monitor:
  listing_url: https://example.com/markets/crypto/eth
  poll_interval: 2s
  decay_window: 15s
reference:
  symbols:
    - symbol: ETHUSDT
      label: ETH
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MARKETWATCH_MONITOR_COLUMNS", "3")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Monitor.ListingURL != "https://example.com/markets/crypto/eth" {
		t.Errorf("ListingURL = %q", cfg.Monitor.ListingURL)
	}
	if cfg.Monitor.PollInterval != 2*time.Second {
		t.Errorf("PollInterval = %v, want 2s", cfg.Monitor.PollInterval)
	}
	if cfg.Monitor.DecayWindow != 15*time.Second {
		t.Errorf("DecayWindow = %v, want 15s", cfg.Monitor.DecayWindow)
	}
	if cfg.Monitor.Columns != 3 {
		t.Errorf("Columns = %d, want 3 from env", cfg.Monitor.Columns)
	}
	if len(cfg.Reference.Symbols) != 1 || cfg.Reference.Symbols[0].Label != "ETH" {
		t.Errorf("Reference.Symbols = %+v", cfg.Reference.Symbols)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"empty listing url", func(c *Config) { c.Monitor.ListingURL = "" }, true},
		{"zero columns", func(c *Config) { c.Monitor.Columns = 0 }, true},
		{"discovery faster than poll", func(c *Config) { c.Monitor.DiscoveryInterval = time.Second }, true},
		{"zero decay", func(c *Config) { c.Monitor.DecayWindow = 0 }, true},
		{"negative max markets", func(c *Config) { c.Monitor.MaxMarkets = -1 }, true},
		{"bad render mode", func(c *Config) { c.Render.Mode = "tk" }, true},
		{"symbol without label", func(c *Config) {
			c.Reference.Symbols = []SymbolConfig{{Symbol: "BTCUSDT"}}
		}, true},
		{"telegram without token", func(c *Config) {
			c.Telegram.Enabled = true
			c.Telegram.ChatID = "1"
		}, true},
		{"telegram token from ssm", func(c *Config) {
			c.Telegram.Enabled = true
			c.Telegram.ChatID = "1"
			c.Telegram.BotTokenParameter = "/marketwatch/telegram"
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

type fakeParameterStore struct {
	values map[string]string
}

func (f *fakeParameterStore) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	v, ok := f.values[*in.Name]
	if !ok {
		return nil, errors.New("ParameterNotFound")
	}
	return &ssm.GetParameterOutput{Parameter: &types.Parameter{Name: in.Name, Value: &v}}, nil
}

func TestResolveSecrets(t *testing.T) {
	store := &fakeParameterStore{values: map[string]string{"/marketwatch/telegram": "secret-token"}}

	cfg := validConfig(t)
	cfg.Telegram.BotTokenParameter = "/marketwatch/telegram"
	if err := resolveSecrets(context.Background(), store, cfg); err != nil {
		t.Fatalf("resolveSecrets: %v", err)
	}
	if cfg.Telegram.BotToken != "secret-token" {
		t.Errorf("BotToken = %q, want secret-token", cfg.Telegram.BotToken)
	}

	cfg.Telegram.BotTokenParameter = "/missing"
	if err := resolveSecrets(context.Background(), store, cfg); err == nil {
		t.Error("expected error for missing parameter")
	}
}

func TestResolveSecretsNoop(t *testing.T) {
	cfg := validConfig(t)
	cfg.Telegram.BotToken = "inline"
	if err := ResolveSecrets(context.Background(), cfg); err != nil {
		t.Fatalf("ResolveSecrets: %v", err)
	}
	if cfg.Telegram.BotToken != "inline" {
		t.Errorf("BotToken changed to %q", cfg.Telegram.BotToken)
	}
}
