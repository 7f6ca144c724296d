package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"OIScanner/internal/exchange"
	"OIScanner/internal/handler/ws"
	"OIScanner/internal/notify"
	"OIScanner/internal/usecase"
	"OIScanner/pkg/config"
	xhttp "OIScanner/pkg/http"
	applogger "OIScanner/pkg/logger"
)

// App owns the process lifecycle: exchange connections, the scan loop, the
// websocket hub and the HTTP server, started together and stopped together.
type App struct {
	cfg      *config.Config
	logger   *applogger.Logger
	manager  *exchange.Manager
	orch     *usecase.Orchestrator
	hub      *ws.Hub
	handler  xhttp.Handler
	telegram *notify.Telegram
	kafka    *notify.Kafka

	httpServer *xhttp.Server
}

func New(
	cfg *config.Config,
	logger *applogger.Logger,
	manager *exchange.Manager,
	orch *usecase.Orchestrator,
	hub *ws.Hub,
	handler xhttp.Handler,
	telegram *notify.Telegram,
	kafka *notify.Kafka,
) *App {
	return &App{
		cfg:      cfg,
		logger:   logger,
		manager:  manager,
		orch:     orch,
		hub:      hub,
		handler:  handler,
		telegram: telegram,
		kafka:    kafka,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.logger.Info("connecting exchanges",
		applogger.Strings("exchanges", a.cfg.Scan.Exchanges))
	a.manager.Init(ctx)

	connected := a.manager.Connected()
	if len(connected) == 0 {
		return fmt.Errorf("no exchange connected, nothing to scan")
	}
	a.logger.Info("exchanges ready",
		applogger.Strings("connected", connected),
		applogger.Int("pairs", a.manager.TotalPairs()))

	go a.hub.Run(ctx)
	go a.orch.Run(ctx)

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)
	if err := a.httpServer.Start(); err != nil {
		return fmt.Errorf("http server start: %w", err)
	}

	if a.telegram != nil {
		a.telegram.Announce(ctx, fmt.Sprintf(
			"Scanner started: %s, %d pairs",
			strings.Join(connected, ", "), a.manager.TotalPairs()))
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	a.logger.Info("shutdown signal received")

	cancel()
	return a.shutdown()
}

func (a *App) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}

	if a.kafka != nil {
		if err := a.kafka.Close(); err != nil {
			a.logger.Warn("kafka producer close error", applogger.Error(err))
		}
	}

	a.logger.Info("shutdown complete")
	return nil
}
