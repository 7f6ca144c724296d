package exchange

import (
	"context"
	"fmt"
	"strconv"

	"OIScanner/internal/domain/models"
	xhttp "OIScanner/pkg/http"
)

const bybitBaseURL = "https://api.bybit.com"

// bybit talks to the Bybit v5 unified REST API. The linear ticker snapshot
// already carries funding and a USD open-interest value, so the per-symbol
// open-interest call reuses the same endpoint filtered by symbol.
type bybit struct {
	httpc *xhttp.Client
	raw   map[string]string // unified symbol -> raw ("PEPEUSDT")
}

func newBybit(httpc *xhttp.Client) *bybit {
	return &bybit{httpc: httpc, raw: make(map[string]string)}
}

func (b *bybit) ID() string   { return "bybit" }
func (b *bybit) Name() string { return "Bybit" }

func (b *bybit) BulkFunding() bool     { return true }
func (b *bybit) HasOpenInterest() bool { return true }

type bybitInstrument struct {
	Symbol       string `json:"symbol"`
	BaseCoin     string `json:"baseCoin"`
	QuoteCoin    string `json:"quoteCoin"`
	SettleCoin   string `json:"settleCoin"`
	ContractType string `json:"contractType"`
	Status       string `json:"status"`
}

type bybitResponse[T any] struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		List []T `json:"list"`
	} `json:"result"`
}

func (b *bybit) LoadMarkets(ctx context.Context) ([]Market, error) {
	var resp bybitResponse[bybitInstrument]
	err := b.get(ctx, "/v5/market/instruments-info",
		map[string][]string{"category": {"linear"}, "limit": {"1000"}}, &resp)
	if err != nil {
		return nil, fmt.Errorf("bybit instruments: %w", err)
	}
	if resp.RetCode != 0 {
		return nil, fmt.Errorf("bybit instruments: retCode %d %s", resp.RetCode, resp.RetMsg)
	}

	markets := make([]Market, 0, len(resp.Result.List))
	for _, ins := range resp.Result.List {
		m := Market{
			Symbol: unifySymbol(ins.BaseCoin, ins.QuoteCoin),
			Base:   ins.BaseCoin,
			Quote:  ins.QuoteCoin,
			Settle: ins.SettleCoin,
			Swap:   ins.ContractType == "LinearPerpetual",
			Linear: ins.SettleCoin == "USDT",
			Active: ins.Status == "Trading",
		}
		b.raw[m.Symbol] = ins.Symbol
		markets = append(markets, m)
	}
	return markets, nil
}

type bybitTicker struct {
	Symbol            string `json:"symbol"`
	LastPrice         string `json:"lastPrice"`
	FundingRate       string `json:"fundingRate"`
	OpenInterestValue string `json:"openInterestValue"`
}

func (b *bybit) FetchTickers(ctx context.Context) (map[string]float64, error) {
	list, err := b.tickers(ctx, "linear", "")
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(list))
	for _, t := range list {
		if sym, ok := b.unified(t.Symbol); ok {
			if p, err := strconv.ParseFloat(t.LastPrice, 64); err == nil && p > 0 {
				out[sym] = p
			}
		}
	}
	return out, nil
}

func (b *bybit) FetchFundingRates(ctx context.Context) (map[string]float64, error) {
	list, err := b.tickers(ctx, "linear", "")
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(list))
	for _, t := range list {
		if sym, ok := b.unified(t.Symbol); ok {
			if v, err := strconv.ParseFloat(t.FundingRate, 64); err == nil {
				out[sym] = v * 100
			}
		}
	}
	return out, nil
}

func (b *bybit) FetchFundingRate(ctx context.Context, symbol string) (float64, error) {
	rawSym, ok := b.raw[symbol]
	if !ok {
		return 0, fmt.Errorf("bybit: unknown symbol %s", symbol)
	}
	list, err := b.tickers(ctx, "linear", rawSym)
	if err != nil {
		return 0, err
	}
	if len(list) == 0 {
		return 0, fmt.Errorf("bybit: no ticker for %s", symbol)
	}
	v, err := strconv.ParseFloat(list[0].FundingRate, 64)
	if err != nil {
		return 0, fmt.Errorf("bybit funding parse %s: %w", symbol, err)
	}
	return v * 100, nil
}

func (b *bybit) FetchOpenInterest(ctx context.Context, symbol string) (models.OpenInterest, error) {
	rawSym, ok := b.raw[symbol]
	if !ok {
		return models.OpenInterest{}, fmt.Errorf("bybit: unknown symbol %s", symbol)
	}
	list, err := b.tickers(ctx, "linear", rawSym)
	if err != nil {
		return models.OpenInterest{}, err
	}
	if len(list) == 0 {
		return models.OpenInterest{}, fmt.Errorf("bybit: no ticker for %s", symbol)
	}
	v, err := strconv.ParseFloat(list[0].OpenInterestValue, 64)
	if err != nil {
		return models.OpenInterest{}, fmt.Errorf("bybit oi parse %s: %w", symbol, err)
	}
	return models.OpenInterest{ValueUSD: v}, nil
}

func (b *bybit) FetchSpotTickers(ctx context.Context) (map[string]float64, error) {
	list, err := b.tickers(ctx, "spot", "")
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(list))
	for _, t := range list {
		base, ok := spotBaseFromRaw(t.Symbol)
		if !ok {
			continue
		}
		if p, err := strconv.ParseFloat(t.LastPrice, 64); err == nil && p > 0 {
			out[base+"/USDT"] = p
		}
	}
	return out, nil
}

func (b *bybit) tickers(ctx context.Context, category, rawSym string) ([]bybitTicker, error) {
	query := map[string][]string{"category": {category}}
	if rawSym != "" {
		query["symbol"] = []string{rawSym}
	}
	var resp bybitResponse[bybitTicker]
	if err := b.get(ctx, "/v5/market/tickers", query, &resp); err != nil {
		return nil, classify(fmt.Errorf("bybit tickers %s: %w", category, err))
	}
	if resp.RetCode != 0 {
		return nil, fmt.Errorf("bybit tickers %s: retCode %d %s", category, resp.RetCode, resp.RetMsg)
	}
	return resp.Result.List, nil
}

func (b *bybit) unified(rawSym string) (string, bool) {
	base, ok := spotBaseFromRaw(rawSym)
	if !ok {
		return "", false
	}
	sym := unifySymbol(base, "USDT")
	if _, known := b.raw[sym]; !known {
		return "", false
	}
	return sym, true
}

func (b *bybit) get(ctx context.Context, path string, query map[string][]string, dest interface{}) error {
	return b.httpc.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         bybitBaseURL + path,
		QueryParams: query,
	}, dest)
}
