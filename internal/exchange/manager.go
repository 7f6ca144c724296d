package exchange

import (
	"context"
	"sync"
	"time"

	"OIScanner/internal/domain/models"
	"OIScanner/internal/domain/repository"
	applogger "OIScanner/pkg/logger"
)

// Manager initializes and holds one Gateway per configured exchange.
// Initialization failures are recorded per exchange and never abort the
// others; a failed exchange stays out of scanning for the process lifetime.
type Manager struct {
	ids            []string
	cfg            GatewayConfig
	requestTimeout time.Duration
	logger         *applogger.Logger
	metrics        repository.Metrics

	mu       sync.Mutex
	gateways map[string]*Gateway
	failures map[string]string
}

func NewManager(ids []string, cfg GatewayConfig, requestTimeout time.Duration, logger *applogger.Logger, metrics repository.Metrics) *Manager {
	return &Manager{
		ids:            normalizeIDs(ids),
		cfg:            cfg,
		requestTimeout: requestTimeout,
		logger:         logger.With("exchange-manager"),
		metrics:        metrics,
		gateways:       make(map[string]*Gateway),
		failures:       make(map[string]string),
	}
}

// Init connects all configured exchanges concurrently.
func (m *Manager) Init(ctx context.Context) {
	var wg sync.WaitGroup
	for _, id := range m.ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			m.initOne(ctx, id)
		}(id)
	}
	wg.Wait()
	m.metrics.SetConnectedExchanges(len(m.gateways))
}

func (m *Manager) initOne(ctx context.Context, id string) {
	client, err := NewClient(id, m.requestTimeout)
	if err != nil {
		m.recordFailure(id, err)
		return
	}

	gw := NewGateway(client, m.cfg, m.logger, m.metrics)
	if err := gw.Init(ctx); err != nil {
		m.recordFailure(id, err)
		return
	}

	m.mu.Lock()
	m.gateways[id] = gw
	m.mu.Unlock()
}

func (m *Manager) recordFailure(id string, err error) {
	m.mu.Lock()
	m.failures[id] = err.Error()
	m.mu.Unlock()
	m.metrics.RecordError("exchange_init")
	m.logger.Error("exchange connection failed",
		applogger.String("exchange", id), applogger.Error(err))
}

// Connected returns the ids of successfully initialized exchanges, in
// configuration order.
func (m *Manager) Connected() []string {
	out := make([]string, 0, len(m.ids))
	for _, id := range m.ids {
		if _, ok := m.gateways[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// Gateway returns the gateway for a connected exchange, or nil.
func (m *Manager) Gateway(id string) *Gateway { return m.gateways[id] }

// TotalPairs counts tradable pairs across connected exchanges.
func (m *Manager) TotalPairs() int {
	n := 0
	for _, gw := range m.gateways {
		n += len(gw.Pairs())
	}
	return n
}

// Statuses reports per-exchange connection outcomes in configuration order.
func (m *Manager) Statuses() []models.ExchangeStatus {
	out := make([]models.ExchangeStatus, 0, len(m.ids))
	for _, id := range m.ids {
		st := models.ExchangeStatus{ID: id, Name: DisplayName(id)}
		if gw, ok := m.gateways[id]; ok {
			st.Connected = true
			st.Pairs = len(gw.Pairs())
		} else {
			st.Error = m.failures[id]
		}
		out = append(out, st)
	}
	return out
}

// normalizeIDs maps config aliases onto client ids.
func normalizeIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "gate" {
			id = "gateio"
		}
		out = append(out, id)
	}
	return out
}
