package exchange

import (
	"context"
	"errors"
	"sync"
	"time"

	"OIScanner/internal/domain/models"
	"OIScanner/internal/domain/repository"
	applogger "OIScanner/pkg/logger"
)

// GatewayConfig bounds one exchange's fetch behavior per cycle.
type GatewayConfig struct {
	// OIConcurrency caps concurrent per-symbol requests in flight.
	OIConcurrency int
	// FundingFallbackLimit caps symbols attempted when funding has to be
	// fetched one call at a time.
	FundingFallbackLimit int
	// RateLimitBackoff is the pause after a 429 before the symbol is
	// abandoned for the cycle.
	RateLimitBackoff time.Duration
}

func (c *GatewayConfig) withDefaults() GatewayConfig {
	out := *c
	if out.OIConcurrency <= 0 {
		out.OIConcurrency = 5
	}
	if out.FundingFallbackLimit <= 0 {
		out.FundingFallbackLimit = 100
	}
	if out.RateLimitBackoff <= 0 {
		out.RateLimitBackoff = 2 * time.Second
	}
	return out
}

// Gateway owns one exchange's connection state: the cached tradable-pair
// set, the per-exchange concurrency semaphore and the batch fetch sequence.
// No method ever returns an error to the caller; total failure yields an
// empty result and a log line.
type Gateway struct {
	client  Client
	cfg     GatewayConfig
	logger  *applogger.Logger
	metrics repository.Metrics

	pairs []models.TradablePair
	sem   chan struct{}
}

// NewGateway wires a gateway around a connected exchange client.
func NewGateway(client Client, cfg GatewayConfig, logger *applogger.Logger, metrics repository.Metrics) *Gateway {
	c := cfg.withDefaults()
	return &Gateway{
		client:  client,
		cfg:     c,
		logger:  logger.With(client.ID()),
		metrics: metrics,
		sem:     make(chan struct{}, c.OIConcurrency),
	}
}

// Init loads the market catalog and caches the active USDT linear
// perpetuals. Called once at startup; the pair set is immutable afterwards.
func (g *Gateway) Init(ctx context.Context) error {
	markets, err := g.client.LoadMarkets(ctx)
	if err != nil {
		return err
	}

	pairs := make([]models.TradablePair, 0, len(markets))
	for _, m := range markets {
		usable := m.Swap && m.Active && (m.Linear || m.Quote == "USDT")
		if !usable || m.Quote != "USDT" {
			continue
		}
		pairs = append(pairs, models.TradablePair{
			Symbol:   m.Symbol,
			Base:     m.Base,
			Exchange: g.client.ID(),
		})
	}
	g.pairs = pairs

	g.logger.Info("exchange connected",
		applogger.String("name", g.client.Name()),
		applogger.Int("usdt_perpetuals", len(pairs)))
	return nil
}

// Pairs returns the cached tradable pairs.
func (g *Gateway) Pairs() []models.TradablePair { return g.pairs }

// FetchAll runs one cycle's batch sequence and assembles normalized
// records. targetBases, when non-nil, restricts which symbols pay for the
// per-symbol open-interest and spot sub-fetches. A symbol is present in the
// output only if price, funding rate and open interest all resolved.
func (g *Gateway) FetchAll(ctx context.Context, targetBases map[string]struct{}) map[string]models.Record {
	start := time.Now()

	// Funding and spot share nothing with the ticker call; run them while
	// tickers load. Open interest needs ticker prices for the
	// amount-times-price fallback, so it starts after.
	fundingCh := make(chan map[string]float64, 1)
	spotCh := make(chan map[string]float64, 1)
	go func() { fundingCh <- g.fetchFundingRates(ctx) }()
	go func() { spotCh <- g.fetchSpotPrices(ctx, targetBases) }()

	tickers := g.fetchTickers(ctx)

	targetPairs := g.pairs
	if targetBases != nil {
		targetPairs = make([]models.TradablePair, 0, len(g.pairs))
		for _, p := range g.pairs {
			if _, ok := targetBases[p.Base]; ok {
				targetPairs = append(targetPairs, p)
			}
		}
	}

	oi := g.fetchOpenInterest(ctx, targetPairs, tickers)
	funding := <-fundingCh
	spot := <-spotCh

	out := make(map[string]models.Record, len(targetPairs))
	for _, p := range targetPairs {
		price, okPrice := tickers[p.Symbol]
		rate, okRate := funding[p.Symbol]
		oiUSD, okOI := oi[p.Symbol]
		if !okPrice || !okRate || !okOI {
			continue
		}
		if price <= 0 || oiUSD <= 0 {
			continue
		}
		out[p.Symbol] = models.Record{
			Exchange:     g.client.ID(),
			ExchangeName: g.client.Name(),
			Symbol:       p.Symbol,
			Base:         p.Base,
			OIUSD:        oiUSD,
			FundingRate:  rate,
			FuturesPrice: price,
			SpotPrice:    spot[p.Base],
		}
	}

	g.metrics.RecordFetchLatency(g.client.ID(), "cycle", time.Since(start).Seconds())
	g.logger.Info("cycle data collected",
		applogger.Int("records", len(out)),
		applogger.Duration("elapsed", time.Since(start)))
	return out
}

func (g *Gateway) fetchTickers(ctx context.Context) map[string]float64 {
	start := time.Now()
	tickers, err := g.client.FetchTickers(ctx)
	g.metrics.RecordFetchLatency(g.client.ID(), "tickers", time.Since(start).Seconds())
	if err != nil {
		g.metrics.RecordError("tickers")
		g.logger.Warn("ticker fetch failed", applogger.Error(err))
		return map[string]float64{}
	}
	return tickers
}

func (g *Gateway) fetchFundingRates(ctx context.Context) map[string]float64 {
	start := time.Now()
	defer func() {
		g.metrics.RecordFetchLatency(g.client.ID(), "funding", time.Since(start).Seconds())
	}()

	if g.client.BulkFunding() {
		rates, err := g.client.FetchFundingRates(ctx)
		if err == nil {
			return rates
		}
		if !errors.Is(err, ErrNotSupported) {
			g.metrics.RecordError("funding")
			g.logger.Warn("bulk funding fetch failed, falling back", applogger.Error(err))
		}
	}
	return g.fetchFundingRatesIndividually(ctx)
}

// fetchFundingRatesIndividually fetches funding one symbol at a time behind
// the semaphore, capped to bound worst-case cycle latency.
func (g *Gateway) fetchFundingRatesIndividually(ctx context.Context) map[string]float64 {
	pairs := g.pairs
	if len(pairs) > g.cfg.FundingFallbackLimit {
		pairs = pairs[:g.cfg.FundingFallbackLimit]
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		out = make(map[string]float64, len(pairs))
	)
	for _, p := range pairs {
		wg.Add(1)
		go func(p models.TradablePair) {
			defer wg.Done()
			g.sem <- struct{}{}
			defer func() { <-g.sem }()

			rate, err := g.client.FetchFundingRate(ctx, p.Symbol)
			if err != nil {
				return
			}
			mu.Lock()
			out[p.Symbol] = rate
			mu.Unlock()
		}(p)
	}
	wg.Wait()
	return out
}

// fetchOpenInterest issues per-symbol open-interest calls behind the
// semaphore and converts to USD. A direct USD value wins; otherwise the
// contract amount is multiplied by the symbol's last price.
func (g *Gateway) fetchOpenInterest(ctx context.Context, pairs []models.TradablePair, tickers map[string]float64) map[string]float64 {
	start := time.Now()
	defer func() {
		g.metrics.RecordFetchLatency(g.client.ID(), "open_interest", time.Since(start).Seconds())
	}()

	if !g.client.HasOpenInterest() {
		return map[string]float64{}
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		out = make(map[string]float64, len(pairs))
	)
	for _, p := range pairs {
		wg.Add(1)
		go func(p models.TradablePair) {
			defer wg.Done()
			g.sem <- struct{}{}
			defer func() { <-g.sem }()

			oi, err := g.client.FetchOpenInterest(ctx, p.Symbol)
			switch {
			case errors.Is(err, ErrNotSupported):
				return
			case errors.Is(err, ErrRateLimited):
				// brief pause so the next holder of the semaphore slot
				// does not hit the same limit; the symbol is abandoned
				// for this cycle
				select {
				case <-time.After(g.cfg.RateLimitBackoff):
				case <-ctx.Done():
				}
				return
			case err != nil:
				return
			}

			usd := oi.ValueUSD
			if usd <= 0 && oi.Amount > 0 {
				if price := tickers[p.Symbol]; price > 0 {
					usd = oi.Amount * price
				}
			}
			if usd <= 0 {
				return
			}
			mu.Lock()
			out[p.Symbol] = usd
			mu.Unlock()
		}(p)
	}
	wg.Wait()
	return out
}

// fetchSpotPrices collects spot last prices for the target bases.
// Best-effort: any failure yields an empty map.
func (g *Gateway) fetchSpotPrices(ctx context.Context, targetBases map[string]struct{}) map[string]float64 {
	if targetBases != nil && len(targetBases) == 0 {
		return map[string]float64{}
	}

	start := time.Now()
	tickers, err := g.client.FetchSpotTickers(ctx)
	g.metrics.RecordFetchLatency(g.client.ID(), "spot", time.Since(start).Seconds())
	if err != nil {
		g.logger.Debug("spot fetch failed", applogger.Error(err))
		return map[string]float64{}
	}

	out := make(map[string]float64)
	for sym, price := range tickers {
		base, ok := spotBaseFromPair(sym, "/")
		if !ok || price <= 0 {
			continue
		}
		if targetBases != nil {
			if _, want := targetBases[base]; !want {
				continue
			}
		}
		out[base] = price
	}
	return out
}
