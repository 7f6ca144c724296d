package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"OIScanner/internal/domain/models"
	"OIScanner/internal/domain/repository"
	"OIScanner/internal/exchange"
	"OIScanner/internal/marketcap"
	"OIScanner/internal/notify"
	"OIScanner/internal/scanner"
	applogger "OIScanner/pkg/logger"
)

// OrchestratorConfig bounds the scan loop.
type OrchestratorConfig struct {
	Interval     time.Duration
	PruneEvery   int // cycles between cooldown prunes
	MinMarketCap float64
	MaxMarketCap float64
}

// Orchestrator drives the periodic scan: refresh capitalizations, fetch
// every connected exchange in parallel, evaluate, and fan the accepted
// signals out to the notifiers.
type Orchestrator struct {
	cfg     OrchestratorConfig
	manager *exchange.Manager
	caps    *marketcap.Provider
	engine  *scanner.Engine
	fanout  *notify.Fanout
	logger  *applogger.Logger
	metrics repository.Metrics

	mu           sync.Mutex
	cycles       int
	lastStarted  time.Time
	lastDuration time.Duration
	lastRecords  int
	lastSignals  int
}

func NewOrchestrator(
	cfg OrchestratorConfig,
	manager *exchange.Manager,
	caps *marketcap.Provider,
	engine *scanner.Engine,
	fanout *notify.Fanout,
	logger *applogger.Logger,
	metrics repository.Metrics,
) *Orchestrator {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.PruneEvery <= 0 {
		cfg.PruneEvery = 10
	}
	return &Orchestrator{
		cfg:     cfg,
		manager: manager,
		caps:    caps,
		engine:  engine,
		fanout:  fanout,
		logger:  logger.With("orchestrator"),
		metrics: metrics,
	}
}

// Run executes one cycle immediately, then ticks until ctx is canceled. A
// cycle that overruns the interval delays the next tick rather than
// overlapping it.
func (o *Orchestrator) Run(ctx context.Context) {
	o.Cycle(ctx)

	ticker := time.NewTicker(o.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			o.logger.Info("scan loop stopped")
			return
		case <-ticker.C:
			o.Cycle(ctx)
		}
	}
}

// Cycle runs one full scan pass across all connected exchanges.
func (o *Orchestrator) Cycle(ctx context.Context) {
	start := time.Now()
	o.engine.ResetCounters()

	if o.caps.IsStale() {
		o.caps.Refresh(ctx)
	}
	eligible := o.caps.EligibleBases(o.cfg.MinMarketCap, o.cfg.MaxMarketCap)
	o.metrics.SetEligibleBases(len(eligible))
	caps := o.caps.Snapshot()

	connected := o.manager.Connected()
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		signals []*models.Signal
		records int
	)
	for _, id := range connected {
		gw := o.manager.Gateway(id)
		if gw == nil {
			continue
		}
		wg.Add(1)
		go func(gw *exchange.Gateway) {
			defer wg.Done()
			recs := gw.FetchAll(ctx, eligible)
			batch := o.engine.EvaluateBatch(recs, caps)
			mu.Lock()
			records += len(recs)
			signals = append(signals, batch...)
			mu.Unlock()
		}(gw)
	}
	wg.Wait()

	// per-exchange batches are already ordered; restore the global order
	sort.SliceStable(signals, func(i, j int) bool {
		return signals[i].Score > signals[j].Score
	})

	if len(signals) > 0 {
		o.fanout.Dispatch(ctx, signals)
	}

	o.mu.Lock()
	o.cycles++
	cycles := o.cycles
	o.lastStarted = start
	o.lastDuration = time.Since(start)
	o.lastRecords = records
	o.lastSignals = len(signals)
	o.mu.Unlock()

	if cycles%o.cfg.PruneEvery == 0 {
		o.engine.PruneCooldowns()
	}

	c := o.engine.Counters()
	o.logger.Info("scan cycle complete",
		applogger.Int("cycle", cycles),
		applogger.Int("exchanges", len(connected)),
		applogger.Int("records", records),
		applogger.Int("scanned", c.Scanned),
		applogger.Int("signals", len(signals)),
		applogger.Duration("elapsed", time.Since(start)))
}

// CycleStatus summarizes the most recent cycle for the status API.
type CycleStatus struct {
	Cycles       int              `json:"cycles"`
	LastStarted  time.Time        `json:"last_started"`
	LastDuration time.Duration    `json:"last_duration"`
	LastRecords  int              `json:"last_records"`
	LastSignals  int              `json:"last_signals"`
	Counters     scanner.Counters `json:"counters"`
}

func (o *Orchestrator) Status() CycleStatus {
	o.mu.Lock()
	defer o.mu.Unlock()
	return CycleStatus{
		Cycles:       o.cycles,
		LastStarted:  o.lastStarted,
		LastDuration: o.lastDuration,
		LastRecords:  o.lastRecords,
		LastSignals:  o.lastSignals,
		Counters:     o.engine.Counters(),
	}
}
