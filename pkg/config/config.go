package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"OIScanner/pkg/util"
)

type Config struct {
	Environment string `yaml:"environment" default:"production" validate:"required"`
	Log         struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"console" validate:"oneof=console json"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Server struct {
		Port            int           `yaml:"port" default:"8080" validate:"gt=0,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`
	Scan struct {
		Exchanges       []string      `yaml:"exchanges" validate:"min=1"`
		Interval        time.Duration `yaml:"interval" default:"60s" validate:"gte=1s"`
		RequestTimeout  time.Duration `yaml:"request_timeout" default:"15s"`
		OIConcurrency   int           `yaml:"oi_concurrency" default:"5" validate:"gt=0"`
		FundingFallback int           `yaml:"funding_fallback_limit" default:"100" validate:"gt=0"`
		SignalCooldown  time.Duration `yaml:"signal_cooldown" default:"30m"`
		PruneEvery      int           `yaml:"prune_every" default:"10" validate:"gt=0"`
	} `yaml:"scan"`
	Strategy struct {
		OIMCapRatio    float64 `yaml:"oi_mcap_ratio" default:"25.0" validate:"gt=0"`
		MaxFundingRate float64 `yaml:"max_funding_rate" default:"-0.01" validate:"lt=0"`
		MaxPriceSpread float64 `yaml:"max_price_spread" default:"2.0" validate:"gt=0"`
		MinMarketCap   float64 `yaml:"min_market_cap" default:"100000"`
		// Negative disables the upper cap bound. Zero falls back to the
		// default, so -1 is the way to scan without a ceiling.
		MaxMarketCap float64 `yaml:"max_market_cap" default:"5000000"`
	} `yaml:"strategy"`
	MarketCap struct {
		APIKey   string        `yaml:"api_key"`
		BaseURL  string        `yaml:"base_url"` // empty = public CoinGecko endpoint
		CacheTTL time.Duration `yaml:"cache_ttl" default:"5m"`
		MaxPages int           `yaml:"max_pages" default:"10" validate:"gt=0,lte=40"`
		PageSize int           `yaml:"page_size" default:"250" validate:"gt=0,lte=250"`
	} `yaml:"marketcap"`
	Telegram struct {
		Enabled  bool   `yaml:"enabled"`
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
		TopicID  int    `yaml:"topic_id"`
	} `yaml:"telegram"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic" default:"oi-signals"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"gzip"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"1s"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async" default:"true"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
}

var validate = validator.New()

// Load reads and parses a YAML configuration file, applying defaults and
// validating the result.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML (plus an optional .env file) and
// overrides secrets and operational knobs with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	_ = godotenv.Load() // .env is optional

	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
		c.Telegram.Enabled = true
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("TELEGRAM_TOPIC_ID"); v != "" {
		c.Telegram.TopicID = util.ParseIntDefault(v, c.Telegram.TopicID)
	}
	if v := os.Getenv("COINGECKO_API_KEY"); v != "" {
		c.MarketCap.APIKey = v
	}
	if v := os.Getenv("EXCHANGES"); v != "" {
		c.Scan.Exchanges = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}

	return c, c.Validate()
}

// Validate checks cross-field constraints the tag rules cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Strategy.MinMarketCap < 0 {
		return fmt.Errorf("strategy.min_market_cap must not be negative")
	}
	if c.Strategy.MaxMarketCap > 0 && c.Strategy.MinMarketCap >= c.Strategy.MaxMarketCap {
		return fmt.Errorf("strategy.min_market_cap must be below max_market_cap")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers required when kafka is enabled")
	}
	if c.Telegram.Enabled && (c.Telegram.BotToken == "" || c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id required when telegram is enabled")
	}
	return nil
}
