package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalYAML = `
scan:
  exchanges: [binance, bybit]
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Environment != "production" {
		t.Fatalf("environment = %q", cfg.Environment)
	}
	if cfg.Scan.Interval != 60*time.Second {
		t.Fatalf("interval = %v", cfg.Scan.Interval)
	}
	if cfg.Scan.OIConcurrency != 5 || cfg.Scan.FundingFallback != 100 {
		t.Fatalf("scan limits = %d/%d", cfg.Scan.OIConcurrency, cfg.Scan.FundingFallback)
	}
	if cfg.Strategy.OIMCapRatio != 25.0 || cfg.Strategy.MaxFundingRate != -0.01 {
		t.Fatalf("strategy = %+v", cfg.Strategy)
	}
	if cfg.Strategy.MinMarketCap != 100000 || cfg.Strategy.MaxMarketCap != 5000000 {
		t.Fatalf("cap bounds = %v/%v", cfg.Strategy.MinMarketCap, cfg.Strategy.MaxMarketCap)
	}
	if cfg.MarketCap.CacheTTL != 5*time.Minute || cfg.MarketCap.PageSize != 250 {
		t.Fatalf("marketcap = %+v", cfg.MarketCap)
	}
	if cfg.Kafka.Topic != "oi-signals" {
		t.Fatalf("kafka topic = %q", cfg.Kafka.Topic)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
scan:
  exchanges: [okx]
  interval: 2m
strategy:
  oi_mcap_ratio: 40.0
  max_funding_rate: -0.05
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Scan.Interval != 2*time.Minute {
		t.Fatalf("interval = %v", cfg.Scan.Interval)
	}
	if cfg.Strategy.OIMCapRatio != 40.0 || cfg.Strategy.MaxFundingRate != -0.05 {
		t.Fatalf("strategy = %+v", cfg.Strategy)
	}
}

func TestLoadAllowsDisabledUpperCapBound(t *testing.T) {
	// A negative max disables the ceiling, so a min above the default max
	// must still validate.
	cfg, err := Load(writeConfig(t, `
scan:
  exchanges: [binance]
strategy:
  min_market_cap: 9000000
  max_market_cap: -1
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Strategy.MaxMarketCap >= 0 {
		t.Fatalf("max cap = %v, want negative (disabled)", cfg.Strategy.MaxMarketCap)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"no exchanges", `
scan:
  exchanges: []
`},
		{"positive funding bound", `
scan:
  exchanges: [binance]
strategy:
  max_funding_rate: 0.01
`},
		{"min cap above max cap", `
scan:
  exchanges: [binance]
strategy:
  min_market_cap: 9000000
`},
		{"kafka enabled without brokers", `
scan:
  exchanges: [binance]
kafka:
  enabled: true
`},
		{"telegram enabled without token", `
scan:
  exchanges: [binance]
telegram:
  enabled: true
`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.yaml)); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "tok")
	t.Setenv("TELEGRAM_CHAT_ID", "-100777")
	t.Setenv("TELEGRAM_TOPIC_ID", "42")
	t.Setenv("COINGECKO_API_KEY", "cg-key")
	t.Setenv("EXCHANGES", "okx,gateio")

	cfg, err := LoadWithEnv(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.Telegram.Enabled || cfg.Telegram.BotToken != "tok" || cfg.Telegram.ChatID != "-100777" {
		t.Fatalf("telegram = %+v", cfg.Telegram)
	}
	if cfg.Telegram.TopicID != 42 {
		t.Fatalf("topic id = %d", cfg.Telegram.TopicID)
	}
	if cfg.MarketCap.APIKey != "cg-key" {
		t.Fatalf("marketcap key = %q", cfg.MarketCap.APIKey)
	}
	if len(cfg.Scan.Exchanges) != 2 || cfg.Scan.Exchanges[0] != "okx" {
		t.Fatalf("exchanges = %v", cfg.Scan.Exchanges)
	}
}
