package di

import (
	"fmt"

	"OIScanner/internal/domain/repository"
	"OIScanner/internal/exchange"
	"OIScanner/internal/handler/api"
	"OIScanner/internal/handler/ws"
	"OIScanner/internal/marketcap"
	"OIScanner/internal/notify"
	"OIScanner/internal/scanner"
	"OIScanner/internal/usecase"
	"OIScanner/pkg/config"
	xhttp "OIScanner/pkg/http"
	pkgkafka "OIScanner/pkg/kafka"
	applogger "OIScanner/pkg/logger"
	"OIScanner/pkg/metrics"
	"OIScanner/pkg/server"
)

// ProvideLogger creates the root application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideExchangeManager creates the per-exchange gateway manager.
func ProvideExchangeManager(cfg *config.Config, logger *applogger.Logger, m repository.Metrics) *exchange.Manager {
	return exchange.NewManager(
		cfg.Scan.Exchanges,
		exchange.GatewayConfig{
			OIConcurrency:        cfg.Scan.OIConcurrency,
			FundingFallbackLimit: cfg.Scan.FundingFallback,
		},
		cfg.Scan.RequestTimeout,
		logger,
		m,
	)
}

// ProvideMarketCapProvider creates the capitalization cache.
func ProvideMarketCapProvider(cfg *config.Config, logger *applogger.Logger, m repository.Metrics) *marketcap.Provider {
	return marketcap.New(marketcap.Config{
		APIKey:   cfg.MarketCap.APIKey,
		BaseURL:  cfg.MarketCap.BaseURL,
		CacheTTL: cfg.MarketCap.CacheTTL,
		MaxPages: cfg.MarketCap.MaxPages,
		PageSize: cfg.MarketCap.PageSize,
	}, logger, m)
}

// ProvideEngine creates the scoring engine from strategy thresholds.
func ProvideEngine(cfg *config.Config, m repository.Metrics) *scanner.Engine {
	return scanner.New(scanner.Config{
		OIMCapRatio:    cfg.Strategy.OIMCapRatio,
		MaxFundingRate: cfg.Strategy.MaxFundingRate,
		MaxPriceSpread: cfg.Strategy.MaxPriceSpread,
		MinMarketCap:   cfg.Strategy.MinMarketCap,
		MaxMarketCap:   cfg.Strategy.MaxMarketCap,
		Cooldown:       cfg.Scan.SignalCooldown,
	}, m)
}

// ProvideHistory creates the recent-signal ring buffer.
func ProvideHistory() *notify.History {
	return notify.NewHistory(100)
}

// ProvideHub creates the websocket broadcast hub.
func ProvideHub(logger *applogger.Logger) *ws.Hub {
	return ws.NewHub(logger)
}

// ProvideTelegram creates the Telegram notifier, nil when disabled.
func ProvideTelegram(cfg *config.Config, logger *applogger.Logger) *notify.Telegram {
	if !cfg.Telegram.Enabled {
		return nil
	}
	return notify.NewTelegram(notify.TelegramConfig{
		BotToken: cfg.Telegram.BotToken,
		ChatID:   cfg.Telegram.ChatID,
		TopicID:  cfg.Telegram.TopicID,
	}, logger)
}

// ProvideKafkaNotifier creates the Kafka signal publisher, nil when disabled.
func ProvideKafkaNotifier(cfg *config.Config, logger *applogger.Logger) (*notify.Kafka, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return notify.NewKafka(producer, cfg.Kafka.Topic, logger), nil
}

// ProvideFanout assembles the enabled delivery sinks. History and the
// websocket hub are always on; Telegram and Kafka join when configured.
func ProvideFanout(
	logger *applogger.Logger,
	m repository.Metrics,
	history *notify.History,
	hub *ws.Hub,
	telegram *notify.Telegram,
	kafka *notify.Kafka,
) *notify.Fanout {
	sinks := []notify.Named{history, hub}
	if telegram != nil {
		sinks = append(sinks, telegram)
	}
	if kafka != nil {
		sinks = append(sinks, kafka)
	}
	return notify.NewFanout(logger, m, sinks...)
}

// ProvideOrchestrator creates the scan loop.
func ProvideOrchestrator(
	cfg *config.Config,
	manager *exchange.Manager,
	caps *marketcap.Provider,
	engine *scanner.Engine,
	fanout *notify.Fanout,
	logger *applogger.Logger,
	m repository.Metrics,
) *usecase.Orchestrator {
	return usecase.NewOrchestrator(usecase.OrchestratorConfig{
		Interval:     cfg.Scan.Interval,
		PruneEvery:   cfg.Scan.PruneEvery,
		MinMarketCap: cfg.Strategy.MinMarketCap,
		MaxMarketCap: cfg.Strategy.MaxMarketCap,
	}, manager, caps, engine, fanout, logger, m)
}

// ProvideStatusHandler creates the HTTP read side.
func ProvideStatusHandler(
	logger *applogger.Logger,
	manager *exchange.Manager,
	caps *marketcap.Provider,
	engine *scanner.Engine,
	orch *usecase.Orchestrator,
	history *notify.History,
	hub *ws.Hub,
) xhttp.Handler {
	return api.NewStatusHandler(logger, manager, caps, engine, orch, history, hub)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	logger *applogger.Logger,
	manager *exchange.Manager,
	orch *usecase.Orchestrator,
	hub *ws.Hub,
	handler xhttp.Handler,
	telegram *notify.Telegram,
	kafka *notify.Kafka,
) *server.App {
	return server.New(cfg, logger, manager, orch, hub, handler, telegram, kafka)
}
