package exchange

import (
	"context"
	"sync"
	"testing"
	"time"

	"OIScanner/internal/domain/models"
	applogger "OIScanner/pkg/logger"
)

type nopMetrics struct{}

func (nopMetrics) RecordRejection(string)                     {}
func (nopMetrics) RecordSignal(string)                        {}
func (nopMetrics) RecordFetchLatency(string, string, float64) {}
func (nopMetrics) RecordError(string)                         {}
func (nopMetrics) SetConnectedExchanges(int)                  {}
func (nopMetrics) SetEligibleBases(int)                       {}
func (nopMetrics) SetSnapshotSize(int)                        {}

// stubClient drives the gateway without a network.
type stubClient struct {
	markets     []Market
	tickers     map[string]float64
	funding     map[string]float64
	oi          map[string]models.OpenInterest
	oiErr       map[string]error
	spot        map[string]float64
	bulkFunding bool

	mu           sync.Mutex
	perSymbolHit []string
}

func (s *stubClient) ID() string            { return "stub" }
func (s *stubClient) Name() string          { return "Stub" }
func (s *stubClient) BulkFunding() bool     { return s.bulkFunding }
func (s *stubClient) HasOpenInterest() bool { return true }

func (s *stubClient) LoadMarkets(context.Context) ([]Market, error) { return s.markets, nil }

func (s *stubClient) FetchTickers(context.Context) (map[string]float64, error) {
	return s.tickers, nil
}

func (s *stubClient) FetchFundingRates(context.Context) (map[string]float64, error) {
	if !s.bulkFunding {
		return nil, ErrNotSupported
	}
	return s.funding, nil
}

func (s *stubClient) FetchFundingRate(_ context.Context, symbol string) (float64, error) {
	s.mu.Lock()
	s.perSymbolHit = append(s.perSymbolHit, symbol)
	s.mu.Unlock()
	rate, ok := s.funding[symbol]
	if !ok {
		return 0, ErrNotSupported
	}
	return rate, nil
}

func (s *stubClient) FetchOpenInterest(_ context.Context, symbol string) (models.OpenInterest, error) {
	if err, ok := s.oiErr[symbol]; ok {
		return models.OpenInterest{}, err
	}
	oi, ok := s.oi[symbol]
	if !ok {
		return models.OpenInterest{}, ErrNotSupported
	}
	return oi, nil
}

func (s *stubClient) FetchSpotTickers(context.Context) (map[string]float64, error) {
	return s.spot, nil
}

func testLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "console", Output: "stdout"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func perp(base string) Market {
	return Market{
		Symbol: unifySymbol(base, "USDT"),
		Base:   base,
		Quote:  "USDT",
		Settle: "USDT",
		Swap:   true,
		Linear: true,
		Active: true,
	}
}

func TestGatewayInitFiltersCatalog(t *testing.T) {
	delivery := perp("DEL")
	delivery.Swap = false
	delisted := perp("OLD")
	delisted.Active = false
	btcQuoted := perp("INV")
	btcQuoted.Quote = "BTC"

	client := &stubClient{markets: []Market{perp("PEPE"), delivery, delisted, btcQuoted}}
	gw := NewGateway(client, GatewayConfig{}, testLogger(t), nopMetrics{})
	if err := gw.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}

	pairs := gw.Pairs()
	if len(pairs) != 1 || pairs[0].Base != "PEPE" {
		t.Fatalf("pairs = %+v, want only PEPE", pairs)
	}
}

func TestFetchAllJoinsAllThreeLegs(t *testing.T) {
	full := unifySymbol("FULL", "USDT")
	noOI := unifySymbol("NOOI", "USDT")
	noFunding := unifySymbol("NOFR", "USDT")

	client := &stubClient{
		bulkFunding: true,
		markets:     []Market{perp("FULL"), perp("NOOI"), perp("NOFR")},
		tickers:     map[string]float64{full: 2.0, noOI: 1.0, noFunding: 1.0},
		funding:     map[string]float64{full: -0.05, noOI: -0.05},
		oi: map[string]models.OpenInterest{
			full:      {ValueUSD: 1_000_000},
			noFunding: {ValueUSD: 500},
		},
		spot: map[string]float64{"FULL/USDT": 1.9},
	}
	gw := NewGateway(client, GatewayConfig{}, testLogger(t), nopMetrics{})
	if err := gw.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}

	records := gw.FetchAll(context.Background(), nil)
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1 (only the symbol with all legs)", len(records))
	}
	rec, ok := records[full]
	if !ok {
		t.Fatalf("FULL missing from %v", records)
	}
	if rec.OIUSD != 1_000_000 || rec.FundingRate != -0.05 || rec.FuturesPrice != 2.0 {
		t.Fatalf("record = %+v", rec)
	}
	if rec.SpotPrice != 1.9 || !rec.HasSpot() {
		t.Fatalf("spot price not joined: %+v", rec)
	}
}

func TestFetchAllConvertsContractAmountToUSD(t *testing.T) {
	sym := unifySymbol("AMT", "USDT")
	client := &stubClient{
		bulkFunding: true,
		markets:     []Market{perp("AMT")},
		tickers:     map[string]float64{sym: 4.0},
		funding:     map[string]float64{sym: -0.02},
		oi:          map[string]models.OpenInterest{sym: {Amount: 250_000}},
	}
	gw := NewGateway(client, GatewayConfig{}, testLogger(t), nopMetrics{})
	if err := gw.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}

	records := gw.FetchAll(context.Background(), nil)
	rec, ok := records[sym]
	if !ok {
		t.Fatalf("AMT missing from %v", records)
	}
	if rec.OIUSD != 1_000_000 {
		t.Fatalf("OIUSD = %v, want amount*price = 1000000", rec.OIUSD)
	}
}

func TestFundingFallbackIsCapped(t *testing.T) {
	var markets []Market
	funding := make(map[string]float64)
	tickers := make(map[string]float64)
	oi := make(map[string]models.OpenInterest)
	bases := []string{"AA", "BB", "CC", "DD", "EE"}
	for _, b := range bases {
		m := perp(b)
		markets = append(markets, m)
		funding[m.Symbol] = -0.03
		tickers[m.Symbol] = 1.0
		oi[m.Symbol] = models.OpenInterest{ValueUSD: 1000}
	}

	client := &stubClient{bulkFunding: false, markets: markets, tickers: tickers, funding: funding, oi: oi}
	gw := NewGateway(client, GatewayConfig{FundingFallbackLimit: 3}, testLogger(t), nopMetrics{})
	if err := gw.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}

	records := gw.FetchAll(context.Background(), nil)
	if len(client.perSymbolHit) != 3 {
		t.Fatalf("per-symbol funding calls = %d, want capped at 3", len(client.perSymbolHit))
	}
	if len(records) != 3 {
		t.Fatalf("records = %d, want 3 (no funding leg for the rest)", len(records))
	}
}

func TestRateLimitedSymbolIsAbandoned(t *testing.T) {
	okSym := unifySymbol("OK", "USDT")
	limited := unifySymbol("HOT", "USDT")

	client := &stubClient{
		bulkFunding: true,
		markets:     []Market{perp("OK"), perp("HOT")},
		tickers:     map[string]float64{okSym: 1.0, limited: 1.0},
		funding:     map[string]float64{okSym: -0.02, limited: -0.02},
		oi:          map[string]models.OpenInterest{okSym: {ValueUSD: 5000}},
		oiErr:       map[string]error{limited: ErrRateLimited},
	}
	gw := NewGateway(client, GatewayConfig{RateLimitBackoff: time.Millisecond}, testLogger(t), nopMetrics{})
	if err := gw.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}

	records := gw.FetchAll(context.Background(), nil)
	if _, ok := records[limited]; ok {
		t.Fatal("rate limited symbol must be dropped for the cycle")
	}
	if _, ok := records[okSym]; !ok {
		t.Fatal("unaffected symbol must survive a sibling's rate limit")
	}
}

func TestFetchAllHonorsTargetBases(t *testing.T) {
	in := unifySymbol("IN", "USDT")
	out := unifySymbol("OUT", "USDT")

	client := &stubClient{
		bulkFunding: true,
		markets:     []Market{perp("IN"), perp("OUT")},
		tickers:     map[string]float64{in: 1.0, out: 1.0},
		funding:     map[string]float64{in: -0.02, out: -0.02},
		oi: map[string]models.OpenInterest{
			in:  {ValueUSD: 5000},
			out: {ValueUSD: 5000},
		},
	}
	gw := NewGateway(client, GatewayConfig{}, testLogger(t), nopMetrics{})
	if err := gw.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}

	records := gw.FetchAll(context.Background(), map[string]struct{}{"IN": {}})
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	if _, ok := records[in]; !ok {
		t.Fatalf("IN missing from %v", records)
	}
}
