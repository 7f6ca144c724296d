package exchange

import (
	"context"
	"fmt"
	"strconv"

	"OIScanner/internal/domain/models"
	xhttp "OIScanner/pkg/http"
)

const gateioBaseURL = "https://api.gateio.ws"

// gateio talks to the Gate.io v4 REST API. Futures tickers carry both the
// funding rate and the open position size, so funding is bulk and the
// per-symbol open-interest call is a filtered ticker request converted via
// the contract multiplier cached at LoadMarkets.
type gateio struct {
	httpc *xhttp.Client
	raw   map[string]string  // unified symbol -> contract name ("PEPE_USDT")
	mult  map[string]float64 // contract name -> quanto multiplier
}

func newGateio(httpc *xhttp.Client) *gateio {
	return &gateio{
		httpc: httpc,
		raw:   make(map[string]string),
		mult:  make(map[string]float64),
	}
}

func (g *gateio) ID() string   { return "gateio" }
func (g *gateio) Name() string { return "Gate.io" }

func (g *gateio) BulkFunding() bool     { return true }
func (g *gateio) HasOpenInterest() bool { return true }

type gateioContract struct {
	Name             string `json:"name"`
	Type             string `json:"type"`
	QuantoMultiplier string `json:"quanto_multiplier"`
	InDelisting      bool   `json:"in_delisting"`
}

func (g *gateio) LoadMarkets(ctx context.Context) ([]Market, error) {
	var raw []gateioContract
	if err := g.get(ctx, "/api/v4/futures/usdt/contracts", nil, &raw); err != nil {
		return nil, fmt.Errorf("gateio contracts: %w", err)
	}

	markets := make([]Market, 0, len(raw))
	for _, c := range raw {
		base, ok := spotBaseFromPair(c.Name, "_")
		if !ok {
			continue
		}
		m := Market{
			Symbol: unifySymbol(base, "USDT"),
			Base:   base,
			Quote:  "USDT",
			Settle: "USDT",
			Swap:   c.Type != "delivery",
			Linear: true,
			Active: !c.InDelisting,
		}
		g.raw[m.Symbol] = c.Name
		if v, err := strconv.ParseFloat(c.QuantoMultiplier, 64); err == nil && v > 0 {
			g.mult[c.Name] = v
		}
		markets = append(markets, m)
	}
	return markets, nil
}

type gateioTicker struct {
	Contract    string `json:"contract"`
	Last        string `json:"last"`
	FundingRate string `json:"funding_rate"`
	TotalSize   string `json:"total_size"` // open position size in contracts
}

func (g *gateio) FetchTickers(ctx context.Context) (map[string]float64, error) {
	list, err := g.futuresTickers(ctx, "")
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(list))
	for _, t := range list {
		if sym, ok := g.unified(t.Contract); ok {
			if p, err := strconv.ParseFloat(t.Last, 64); err == nil && p > 0 {
				out[sym] = p
			}
		}
	}
	return out, nil
}

func (g *gateio) FetchFundingRates(ctx context.Context) (map[string]float64, error) {
	list, err := g.futuresTickers(ctx, "")
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(list))
	for _, t := range list {
		if sym, ok := g.unified(t.Contract); ok {
			if v, err := strconv.ParseFloat(t.FundingRate, 64); err == nil {
				out[sym] = v * 100
			}
		}
	}
	return out, nil
}

func (g *gateio) FetchFundingRate(ctx context.Context, symbol string) (float64, error) {
	contract, ok := g.raw[symbol]
	if !ok {
		return 0, fmt.Errorf("gateio: unknown symbol %s", symbol)
	}
	list, err := g.futuresTickers(ctx, contract)
	if err != nil {
		return 0, err
	}
	if len(list) == 0 {
		return 0, fmt.Errorf("gateio: no ticker for %s", symbol)
	}
	v, err := strconv.ParseFloat(list[0].FundingRate, 64)
	if err != nil {
		return 0, fmt.Errorf("gateio funding parse %s: %w", symbol, err)
	}
	return v * 100, nil
}

func (g *gateio) FetchOpenInterest(ctx context.Context, symbol string) (models.OpenInterest, error) {
	contract, ok := g.raw[symbol]
	if !ok {
		return models.OpenInterest{}, fmt.Errorf("gateio: unknown symbol %s", symbol)
	}
	list, err := g.futuresTickers(ctx, contract)
	if err != nil {
		return models.OpenInterest{}, err
	}
	if len(list) == 0 {
		return models.OpenInterest{}, fmt.Errorf("gateio: no ticker for %s", symbol)
	}
	size, err := strconv.ParseFloat(list[0].TotalSize, 64)
	if err != nil {
		return models.OpenInterest{}, fmt.Errorf("gateio oi parse %s: %w", symbol, err)
	}
	mult := g.mult[contract]
	if mult <= 0 {
		mult = 1
	}
	// contracts -> base units; the gateway converts to USD via last price
	return models.OpenInterest{Amount: size * mult}, nil
}

type gateioSpotTicker struct {
	CurrencyPair string `json:"currency_pair"`
	Last         string `json:"last"`
}

func (g *gateio) FetchSpotTickers(ctx context.Context) (map[string]float64, error) {
	var raw []gateioSpotTicker
	if err := g.get(ctx, "/api/v4/spot/tickers", nil, &raw); err != nil {
		return nil, classify(fmt.Errorf("gateio spot tickers: %w", err))
	}
	out := make(map[string]float64, len(raw))
	for _, t := range raw {
		base, ok := spotBaseFromPair(t.CurrencyPair, "_")
		if !ok {
			continue
		}
		if p, err := strconv.ParseFloat(t.Last, 64); err == nil && p > 0 {
			out[base+"/USDT"] = p
		}
	}
	return out, nil
}

func (g *gateio) futuresTickers(ctx context.Context, contract string) ([]gateioTicker, error) {
	var query map[string][]string
	if contract != "" {
		query = map[string][]string{"contract": {contract}}
	}
	var raw []gateioTicker
	if err := g.get(ctx, "/api/v4/futures/usdt/tickers", query, &raw); err != nil {
		return nil, classify(fmt.Errorf("gateio futures tickers: %w", err))
	}
	return raw, nil
}

func (g *gateio) unified(contract string) (string, bool) {
	base, ok := spotBaseFromPair(contract, "_")
	if !ok {
		return "", false
	}
	sym := unifySymbol(base, "USDT")
	if _, known := g.raw[sym]; !known {
		return "", false
	}
	return sym, true
}

func (g *gateio) get(ctx context.Context, path string, query map[string][]string, dest interface{}) error {
	return g.httpc.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         gateioBaseURL + path,
		QueryParams: query,
	}, dest)
}
