package scanner

import (
	"sort"
	"sync"
	"time"

	"OIScanner/internal/domain/models"
	"OIScanner/internal/domain/repository"
)

// Rejection stage labels, used for both the cycle counters and the
// Prometheus rejection counter.
const (
	StageMCap     = "mcap_bounds"
	StageOI       = "oi_ratio"
	StageFunding  = "funding"
	StageSpread   = "spread"
	StageCooldown = "cooldown"
)

// Config holds the strategy thresholds. All values are read-only for the
// engine's lifetime.
type Config struct {
	OIMCapRatio    float64 // minimum OI/MCap, percent
	MaxFundingRate float64 // negative; funding must be at or below this
	MaxPriceSpread float64 // percent, absolute bound
	MinMarketCap   float64
	MaxMarketCap   float64 // <= 0 disables the upper bound
	Cooldown       time.Duration
}

// Counters are the per-cycle diagnostics: how many records entered the
// pipeline and where the candidate pool was thinned.
type Counters struct {
	Scanned          int `json:"scanned"`
	RejectedMCap     int `json:"rejected_mcap"`
	RejectedOI       int `json:"rejected_oi"`
	RejectedFunding  int `json:"rejected_funding"`
	RejectedSpread   int `json:"rejected_spread"`
	RejectedCooldown int `json:"rejected_cooldown"`
	Accepted         int `json:"accepted"`
}

// Engine is the stateful filter pipeline and scorer. EvaluateBatch is pure
// with respect to its inputs except for two documented side effects: it
// stamps cooldown entries for accepted signals and it increments the
// diagnostic counters. A mutex serializes those mutations so concurrent
// evaluation passes stay safe.
type Engine struct {
	cfg     Config
	metrics repository.Metrics
	now     func() time.Time

	mu        sync.Mutex
	cooldowns map[string]time.Time
	counters  Counters

	// lifetime totals for the status API
	totalScanned int
	totalSignals int
}

func New(cfg Config, metrics repository.Metrics) *Engine {
	return &Engine{
		cfg:       cfg,
		metrics:   metrics,
		now:       time.Now,
		cooldowns: make(map[string]time.Time),
	}
}

// EvaluateBatch runs every record through the filter pipeline and returns
// the accepted signals ordered by score descending. Ties keep discovery
// order.
func (e *Engine) EvaluateBatch(records map[string]models.Record, caps map[string]float64) []*models.Signal {
	e.mu.Lock()
	defer e.mu.Unlock()

	signals := make([]*models.Signal, 0)
	for _, rec := range records {
		mcap, ok := lookupCap(caps, rec.Base)
		if s := e.evaluateOne(rec, mcap, ok); s != nil {
			signals = append(signals, s)
		}
	}

	sort.SliceStable(signals, func(i, j int) bool {
		return signals[i].Score > signals[j].Score
	})
	return signals
}

// evaluateOne applies the five stages in fixed order, short-circuiting on
// the first rejection. Caller holds e.mu.
func (e *Engine) evaluateOne(rec models.Record, mcap float64, capKnown bool) *models.Signal {
	e.counters.Scanned++
	e.totalScanned++

	// stage 1: capitalization bounds
	if !capKnown || mcap <= 0 || mcap < e.cfg.MinMarketCap ||
		(e.cfg.MaxMarketCap > 0 && mcap > e.cfg.MaxMarketCap) {
		e.reject(StageMCap)
		return nil
	}

	// stage 2: open-interest intensity
	ratio := rec.OIUSD / mcap * 100
	if ratio < e.cfg.OIMCapRatio {
		e.reject(StageOI)
		return nil
	}

	// stage 3: funding direction
	if rec.FundingRate > e.cfg.MaxFundingRate {
		e.reject(StageFunding)
		return nil
	}

	// stage 4: price fairness; skipped entirely when no spot price is known
	var (
		spread      float64
		spreadKnown bool
	)
	if rec.HasSpot() {
		spread = (rec.FuturesPrice - rec.SpotPrice) / rec.SpotPrice * 100
		spreadKnown = true
		// Inclusive bound, compared in float64. Decimal prices that only
		// approximate the bound (1.02/1.00 against 2.0) land a hair above
		// it and reject.
		if abs(spread) > e.cfg.MaxPriceSpread {
			e.reject(StageSpread)
			return nil
		}
	}

	// stage 5: cooldown
	now := e.now()
	key := rec.Base + "_" + rec.Exchange
	if last, ok := e.cooldowns[key]; ok && now.Sub(last) < e.cfg.Cooldown {
		e.reject(StageCooldown)
		return nil
	}

	score, factors := e.score(ratio, rec.FundingRate, spread, spreadKnown, mcap)

	e.cooldowns[key] = now
	e.counters.Accepted++
	e.totalSignals++
	e.metrics.RecordSignal(rec.Exchange)

	return &models.Signal{
		Exchange:     rec.Exchange,
		ExchangeName: rec.ExchangeName,
		Symbol:       rec.Symbol,
		Base:         rec.Base,
		FuturesPrice: rec.FuturesPrice,
		SpotPrice:    rec.SpotPrice,
		OIUSD:        rec.OIUSD,
		MCap:         mcap,
		OIMCapRatio:  ratio,
		FundingRate:  rec.FundingRate,
		Spread:       spread,
		SpreadKnown:  spreadKnown,
		Score:        score,
		FactorScores: factors,
		Timestamp:    now,
	}
}

func (e *Engine) reject(stage string) {
	switch stage {
	case StageMCap:
		e.counters.RejectedMCap++
	case StageOI:
		e.counters.RejectedOI++
	case StageFunding:
		e.counters.RejectedFunding++
	case StageSpread:
		e.counters.RejectedSpread++
	case StageCooldown:
		e.counters.RejectedCooldown++
	}
	e.metrics.RecordRejection(stage)
}

// ResetCounters clears the per-cycle diagnostics. Called at the start of
// every scan cycle.
func (e *Engine) ResetCounters() {
	e.mu.Lock()
	e.counters = Counters{}
	e.mu.Unlock()
}

// Counters returns a snapshot of the current cycle's diagnostics.
func (e *Engine) Counters() Counters {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.counters
}

// PruneCooldowns drops entries older than twice the cooldown window.
// Intended to run every few cycles, not every cycle.
func (e *Engine) PruneCooldowns() {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := e.now().Add(-2 * e.cfg.Cooldown)
	for k, t := range e.cooldowns {
		if t.Before(cutoff) {
			delete(e.cooldowns, k)
		}
	}
}

// Stats are lifetime totals for the status API.
type Stats struct {
	TotalScanned    int `json:"total_scanned"`
	TotalSignals    int `json:"total_signals"`
	ActiveCooldowns int `json:"active_cooldowns"`
}

func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Stats{
		TotalScanned:    e.totalScanned,
		TotalSignals:    e.totalSignals,
		ActiveCooldowns: len(e.cooldowns),
	}
}

func lookupCap(caps map[string]float64, base string) (float64, bool) {
	if caps == nil {
		return 0, false
	}
	v, ok := caps[upper(base)]
	return v, ok
}
