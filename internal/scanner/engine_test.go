package scanner

import (
	"math"
	"testing"
	"time"

	"OIScanner/internal/domain/models"
)

type nopMetrics struct{}

func (nopMetrics) RecordRejection(string)                     {}
func (nopMetrics) RecordSignal(string)                        {}
func (nopMetrics) RecordFetchLatency(string, string, float64) {}
func (nopMetrics) RecordError(string)                         {}
func (nopMetrics) SetConnectedExchanges(int)                  {}
func (nopMetrics) SetEligibleBases(int)                       {}
func (nopMetrics) SetSnapshotSize(int)                        {}

func testConfig() Config {
	return Config{
		OIMCapRatio:    25.0,
		MaxFundingRate: -0.01,
		MaxPriceSpread: 2.0,
		MinMarketCap:   100_000,
		MaxMarketCap:   5_000_000,
		Cooldown:       30 * time.Minute,
	}
}

func record(base string, oiUSD, funding, futPrice, spotPrice float64) models.Record {
	return models.Record{
		Exchange:     "binance",
		ExchangeName: "Binance",
		Symbol:       base + "/USDT:USDT",
		Base:         base,
		OIUSD:        oiUSD,
		FundingRate:  funding,
		FuturesPrice: futPrice,
		SpotPrice:    spotPrice,
	}
}

func TestEvaluateBatchAcceptsQualifyingRecord(t *testing.T) {
	e := New(testConfig(), nopMetrics{})

	// OI/MCap = 50%, funding deeply negative, spread zero
	records := map[string]models.Record{
		"PEPE/USDT:USDT": record("PEPE", 500_000, -0.15, 1.0, 1.0),
	}
	caps := map[string]float64{"PEPE": 1_000_000}

	signals := e.EvaluateBatch(records, caps)
	if len(signals) != 1 {
		t.Fatalf("expected 1 signal, got %d", len(signals))
	}
	s := signals[0]
	if s.Base != "PEPE" || s.Exchange != "binance" {
		t.Fatalf("unexpected signal identity: %+v", s)
	}
	if math.Abs(s.OIMCapRatio-50) > 1e-9 {
		t.Fatalf("ratio = %v, want 50", s.OIMCapRatio)
	}
	if !s.SpreadKnown || s.Spread != 0 {
		t.Fatalf("spread = %v known=%v, want 0/true", s.Spread, s.SpreadKnown)
	}
	if s.FactorScores.Spread != 25 {
		t.Fatalf("spread sub-score = %v, want 25 at zero spread", s.FactorScores.Spread)
	}
	if s.Score <= 0 || s.Score > 100 {
		t.Fatalf("score %d out of range", s.Score)
	}
	c := e.Counters()
	if c.Scanned != 1 || c.Accepted != 1 {
		t.Fatalf("counters = %+v", c)
	}
}

func TestEvaluateBatchStageRejections(t *testing.T) {
	cases := []struct {
		name  string
		rec   models.Record
		mcap  float64
		check func(Counters) int
	}{
		{
			name:  "unknown cap",
			rec:   record("AAA", 500_000, -0.1, 1, 1),
			mcap:  0,
			check: func(c Counters) int { return c.RejectedMCap },
		},
		{
			name:  "below min cap",
			rec:   record("BBB", 50_000, -0.1, 1, 1),
			mcap:  50_000,
			check: func(c Counters) int { return c.RejectedMCap },
		},
		{
			name:  "above max cap",
			rec:   record("CCC", 10_000_000, -0.1, 1, 1),
			mcap:  10_000_000,
			check: func(c Counters) int { return c.RejectedMCap },
		},
		{
			name:  "ratio below threshold",
			rec:   record("DDD", 100_000, -0.1, 1, 1),
			mcap:  1_000_000, // 10% < 25%
			check: func(c Counters) int { return c.RejectedOI },
		},
		{
			name:  "funding not negative enough",
			rec:   record("EEE", 500_000, -0.005, 1, 1),
			mcap:  1_000_000,
			check: func(c Counters) int { return c.RejectedFunding },
		},
		{
			name:  "positive funding",
			rec:   record("FFF", 500_000, 0.05, 1, 1),
			mcap:  1_000_000,
			check: func(c Counters) int { return c.RejectedFunding },
		},
		{
			name:  "spread too wide",
			rec:   record("GGG", 500_000, -0.1, 1.05, 1.0), // 5% > 2%
			mcap:  1_000_000,
			check: func(c Counters) int { return c.RejectedSpread },
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := New(testConfig(), nopMetrics{})
			signals := e.EvaluateBatch(
				map[string]models.Record{tc.rec.Symbol: tc.rec},
				map[string]float64{tc.rec.Base: tc.mcap},
			)
			if len(signals) != 0 {
				t.Fatalf("expected rejection, got %d signals", len(signals))
			}
			if got := tc.check(e.Counters()); got != 1 {
				t.Fatalf("stage counter = %d, want 1 (counters %+v)", got, e.Counters())
			}
		})
	}
}

func TestSpreadStageSkippedWithoutSpot(t *testing.T) {
	e := New(testConfig(), nopMetrics{})

	// Futures price far from anything, but no spot market exists so the
	// spread stage must not reject.
	records := map[string]models.Record{
		"HHH/USDT:USDT": record("HHH", 500_000, -0.1, 123.0, 0),
	}
	signals := e.EvaluateBatch(records, map[string]float64{"HHH": 1_000_000})
	if len(signals) != 1 {
		t.Fatalf("expected 1 signal, got %d", len(signals))
	}
	s := signals[0]
	if s.SpreadKnown {
		t.Fatal("spread should be unknown without a spot price")
	}
	if s.FactorScores.Spread != 10 {
		t.Fatalf("unknown spread sub-score = %v, want 10", s.FactorScores.Spread)
	}
}

func TestSpreadBoundIsInclusive(t *testing.T) {
	cfg := testConfig()
	cfg.MaxPriceSpread = 50
	e := New(cfg, nopMetrics{})

	// 1.5 vs 1.0 is exactly +50% in float64, right on the bound.
	records := map[string]models.Record{
		"III/USDT:USDT": record("III", 500_000, -0.1, 1.5, 1.0),
	}
	signals := e.EvaluateBatch(records, map[string]float64{"III": 1_000_000})
	if len(signals) != 1 {
		t.Fatalf("boundary spread rejected: %d signals", len(signals))
	}
	if s := signals[0].FactorScores.Spread; s != 0 {
		t.Fatalf("spread sub-score = %v at the bound, want 0", s)
	}
}

func TestCooldownSuppressesRepeatSignals(t *testing.T) {
	e := New(testConfig(), nopMetrics{})
	now := time.Now()
	e.now = func() time.Time { return now }

	records := map[string]models.Record{
		"PEPE/USDT:USDT": record("PEPE", 500_000, -0.1, 1, 1),
	}
	caps := map[string]float64{"PEPE": 1_000_000}

	if got := len(e.EvaluateBatch(records, caps)); got != 1 {
		t.Fatalf("first pass: %d signals, want 1", got)
	}
	before := e.Counters()

	// Same base+exchange inside the window: cooldown is the only stage that
	// may fire.
	now = now.Add(10 * time.Minute)
	if got := len(e.EvaluateBatch(records, caps)); got != 0 {
		t.Fatalf("second pass inside window: %d signals, want 0", got)
	}
	after := e.Counters()
	if after.RejectedCooldown != before.RejectedCooldown+1 {
		t.Fatalf("cooldown counter = %d, want %d", after.RejectedCooldown, before.RejectedCooldown+1)
	}
	if after.RejectedMCap != before.RejectedMCap || after.RejectedOI != before.RejectedOI ||
		after.RejectedFunding != before.RejectedFunding || after.RejectedSpread != before.RejectedSpread {
		t.Fatalf("unrelated counters moved: before %+v after %+v", before, after)
	}

	// Past the window the signal fires again.
	now = now.Add(25 * time.Minute)
	if got := len(e.EvaluateBatch(records, caps)); got != 1 {
		t.Fatalf("pass after window: %d signals, want 1", got)
	}
}

func TestCooldownIsPerExchange(t *testing.T) {
	e := New(testConfig(), nopMetrics{})

	recA := record("PEPE", 500_000, -0.1, 1, 1)
	recB := recA
	recB.Exchange = "bybit"
	recB.ExchangeName = "Bybit"

	if got := len(e.EvaluateBatch(map[string]models.Record{recA.Symbol: recA}, map[string]float64{"PEPE": 1_000_000})); got != 1 {
		t.Fatalf("first exchange: %d signals, want 1", got)
	}
	if got := len(e.EvaluateBatch(map[string]models.Record{recB.Symbol: recB}, map[string]float64{"PEPE": 1_000_000})); got != 1 {
		t.Fatalf("second exchange: %d signals, want 1", got)
	}
}

func TestEvaluateBatchEmptyInput(t *testing.T) {
	e := New(testConfig(), nopMetrics{})
	e.ResetCounters()

	signals := e.EvaluateBatch(map[string]models.Record{}, map[string]float64{"PEPE": 1_000_000})
	if len(signals) != 0 {
		t.Fatalf("empty batch produced %d signals", len(signals))
	}
	if c := e.Counters(); c != (Counters{}) {
		t.Fatalf("counters moved on empty batch: %+v", c)
	}
}

func TestEvaluateBatchSortsByScoreDescending(t *testing.T) {
	e := New(testConfig(), nopMetrics{})

	// weak: barely over threshold, mild funding; strong: extreme everything
	weak := record("WEAK", 260_000, -0.02, 1, 1)
	strong := record("STRG", 2_000_000, -0.6, 1, 1)
	records := map[string]models.Record{weak.Symbol: weak, strong.Symbol: strong}
	caps := map[string]float64{"WEAK": 1_000_000, "STRG": 1_000_000}

	signals := e.EvaluateBatch(records, caps)
	if len(signals) != 2 {
		t.Fatalf("expected 2 signals, got %d", len(signals))
	}
	if signals[0].Base != "STRG" {
		t.Fatalf("order = [%s, %s], want STRG first", signals[0].Base, signals[1].Base)
	}
	if signals[0].Score < signals[1].Score {
		t.Fatalf("scores not descending: %d < %d", signals[0].Score, signals[1].Score)
	}
}

func TestPruneCooldowns(t *testing.T) {
	e := New(testConfig(), nopMetrics{})
	now := time.Now()
	e.now = func() time.Time { return now }

	records := map[string]models.Record{
		"PEPE/USDT:USDT": record("PEPE", 500_000, -0.1, 1, 1),
	}
	e.EvaluateBatch(records, map[string]float64{"PEPE": 1_000_000})
	if e.Stats().ActiveCooldowns != 1 {
		t.Fatalf("cooldowns = %d, want 1", e.Stats().ActiveCooldowns)
	}

	// inside 2x window: kept
	now = now.Add(45 * time.Minute)
	e.PruneCooldowns()
	if e.Stats().ActiveCooldowns != 1 {
		t.Fatal("entry pruned before twice the window elapsed")
	}

	// past 2x window: dropped
	now = now.Add(30 * time.Minute)
	e.PruneCooldowns()
	if e.Stats().ActiveCooldowns != 0 {
		t.Fatalf("cooldowns = %d after prune, want 0", e.Stats().ActiveCooldowns)
	}
}

func TestCapLookupIsCaseInsensitive(t *testing.T) {
	e := New(testConfig(), nopMetrics{})

	rec := record("pepe", 500_000, -0.1, 1, 1)
	signals := e.EvaluateBatch(
		map[string]models.Record{rec.Symbol: rec},
		map[string]float64{"PEPE": 1_000_000},
	)
	if len(signals) != 1 {
		t.Fatalf("lower-cased base missed the cap lookup: %d signals", len(signals))
	}
}
