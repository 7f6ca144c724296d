package api

import (
	"time"

	"github.com/labstack/echo/v4"

	"OIScanner/internal/domain/models"
	"OIScanner/internal/exchange"
	"OIScanner/internal/handler/ws"
	"OIScanner/internal/marketcap"
	"OIScanner/internal/notify"
	"OIScanner/internal/scanner"
	"OIScanner/internal/usecase"
	xhttp "OIScanner/pkg/http"
	xlogger "OIScanner/pkg/logger"
)

// StatusHandler exposes the operational read side: scanner health,
// per-exchange connection state and the recent signal history.
type StatusHandler struct {
	logger  *xlogger.Logger
	manager *exchange.Manager
	caps    *marketcap.Provider
	engine  *scanner.Engine
	orch    *usecase.Orchestrator
	history *notify.History
	hub     *ws.Hub
	started time.Time
}

func NewStatusHandler(
	logger *xlogger.Logger,
	manager *exchange.Manager,
	caps *marketcap.Provider,
	engine *scanner.Engine,
	orch *usecase.Orchestrator,
	history *notify.History,
	hub *ws.Hub,
) *StatusHandler {
	return &StatusHandler{
		logger:  logger,
		manager: manager,
		caps:    caps,
		engine:  engine,
		orch:    orch,
		history: history,
		hub:     hub,
		started: time.Now(),
	}
}

func (h *StatusHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)

	g := e.Group("/api/v1")
	g.GET("/status", h.Status)
	g.GET("/signals/recent", h.RecentSignals)

	if h.hub != nil {
		e.GET("/ws/signals", h.hub.Handle)
	}
}

type healthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

func (h *StatusHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, &healthResponse{
		Status: "ok",
		Uptime: time.Since(h.started).Round(time.Second).String(),
	})
}

type statusResponse struct {
	Uptime    string                  `json:"uptime"`
	Exchanges []models.ExchangeStatus `json:"exchanges"`
	MarketCap marketcap.Stats         `json:"marketcap"`
	Scanner   scanner.Stats           `json:"scanner"`
	Cycle     usecase.CycleStatus     `json:"cycle"`
	WSClients int                     `json:"ws_clients"`
}

func (h *StatusHandler) Status(c echo.Context) error {
	resp := &statusResponse{
		Uptime:    time.Since(h.started).Round(time.Second).String(),
		Exchanges: h.manager.Statuses(),
		MarketCap: h.caps.Stats(),
		Scanner:   h.engine.Stats(),
		Cycle:     h.orch.Status(),
	}
	if h.hub != nil {
		resp.WSClients = h.hub.ClientCount()
	}
	return xhttp.SuccessResponse(c, resp)
}

func (h *StatusHandler) RecentSignals(c echo.Context) error {
	req := &models.RecentSignalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	recent := h.history.Recent(req.Limit)
	if since, ok := xhttp.ParseTime(req.Since); ok {
		filtered := recent[:0]
		for _, s := range recent {
			if s.Timestamp.After(since) {
				filtered = append(filtered, s)
			}
		}
		recent = filtered
	}
	return xhttp.ListResponse(c, recent, int64(len(recent)))
}
