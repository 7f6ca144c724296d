package exchange

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"OIScanner/internal/domain/models"
	xhttp "OIScanner/pkg/http"
)

const (
	binanceFuturesURL = "https://fapi.binance.com"
	binanceSpotURL    = "https://api.binance.com"
)

// binance talks to the Binance USDT-M futures REST API. Open interest is
// reported in contract units only, so the gateway converts via last price.
type binance struct {
	httpc *xhttp.Client
	// raw exchange symbol ("PEPEUSDT") per unified symbol, filled by LoadMarkets.
	raw map[string]string
}

func newBinance(httpc *xhttp.Client) *binance {
	return &binance{httpc: httpc, raw: make(map[string]string)}
}

func (b *binance) ID() string   { return "binance" }
func (b *binance) Name() string { return "Binance" }

func (b *binance) BulkFunding() bool     { return true }
func (b *binance) HasOpenInterest() bool { return true }

type binanceSymbol struct {
	Symbol       string `json:"symbol"`
	BaseAsset    string `json:"baseAsset"`
	QuoteAsset   string `json:"quoteAsset"`
	MarginAsset  string `json:"marginAsset"`
	ContractType string `json:"contractType"`
	Status       string `json:"status"`
}

type binanceExchangeInfo struct {
	Symbols []binanceSymbol `json:"symbols"`
}

func (b *binance) LoadMarkets(ctx context.Context) ([]Market, error) {
	var info binanceExchangeInfo
	if err := b.get(ctx, binanceFuturesURL+"/fapi/v1/exchangeInfo", nil, &info); err != nil {
		return nil, fmt.Errorf("binance exchangeInfo: %w", err)
	}

	markets := make([]Market, 0, len(info.Symbols))
	for _, s := range info.Symbols {
		m := Market{
			Symbol: unifySymbol(s.BaseAsset, s.QuoteAsset),
			Base:   s.BaseAsset,
			Quote:  s.QuoteAsset,
			Settle: s.MarginAsset,
			Swap:   s.ContractType == "PERPETUAL",
			Linear: s.MarginAsset == "USDT",
			Active: s.Status == "TRADING",
		}
		b.raw[m.Symbol] = s.Symbol
		markets = append(markets, m)
	}
	return markets, nil
}

type binancePrice struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

func (b *binance) FetchTickers(ctx context.Context) (map[string]float64, error) {
	var raw []binancePrice
	if err := b.get(ctx, binanceFuturesURL+"/fapi/v1/ticker/price", nil, &raw); err != nil {
		return nil, fmt.Errorf("binance tickers: %w", err)
	}
	out := make(map[string]float64, len(raw))
	for _, t := range raw {
		if sym, ok := b.unified(t.Symbol); ok {
			if p, err := strconv.ParseFloat(t.Price, 64); err == nil && p > 0 {
				out[sym] = p
			}
		}
	}
	return out, nil
}

type binancePremium struct {
	Symbol          string `json:"symbol"`
	LastFundingRate string `json:"lastFundingRate"`
}

func (b *binance) FetchFundingRates(ctx context.Context) (map[string]float64, error) {
	var raw []binancePremium
	if err := b.get(ctx, binanceFuturesURL+"/fapi/v1/premiumIndex", nil, &raw); err != nil {
		return nil, fmt.Errorf("binance premiumIndex: %w", err)
	}
	out := make(map[string]float64, len(raw))
	for _, r := range raw {
		if sym, ok := b.unified(r.Symbol); ok {
			if v, err := strconv.ParseFloat(r.LastFundingRate, 64); err == nil {
				out[sym] = v * 100
			}
		}
	}
	return out, nil
}

func (b *binance) FetchFundingRate(ctx context.Context, symbol string) (float64, error) {
	rawSym, ok := b.raw[symbol]
	if !ok {
		return 0, fmt.Errorf("binance: unknown symbol %s", symbol)
	}
	var r binancePremium
	err := b.get(ctx, binanceFuturesURL+"/fapi/v1/premiumIndex",
		map[string][]string{"symbol": {rawSym}}, &r)
	if err != nil {
		return 0, classify(fmt.Errorf("binance premiumIndex %s: %w", symbol, err))
	}
	v, err := strconv.ParseFloat(r.LastFundingRate, 64)
	if err != nil {
		return 0, fmt.Errorf("binance funding parse %s: %w", symbol, err)
	}
	return v * 100, nil
}

type binanceOpenInterest struct {
	Symbol       string `json:"symbol"`
	OpenInterest string `json:"openInterest"`
}

func (b *binance) FetchOpenInterest(ctx context.Context, symbol string) (models.OpenInterest, error) {
	rawSym, ok := b.raw[symbol]
	if !ok {
		return models.OpenInterest{}, fmt.Errorf("binance: unknown symbol %s", symbol)
	}
	var r binanceOpenInterest
	err := b.get(ctx, binanceFuturesURL+"/fapi/v1/openInterest",
		map[string][]string{"symbol": {rawSym}}, &r)
	if err != nil {
		return models.OpenInterest{}, classify(fmt.Errorf("binance openInterest %s: %w", symbol, err))
	}
	amount, err := strconv.ParseFloat(r.OpenInterest, 64)
	if err != nil {
		return models.OpenInterest{}, fmt.Errorf("binance oi parse %s: %w", symbol, err)
	}
	return models.OpenInterest{Amount: amount}, nil
}

func (b *binance) FetchSpotTickers(ctx context.Context) (map[string]float64, error) {
	var raw []binancePrice
	if err := b.get(ctx, binanceSpotURL+"/api/v3/ticker/price", nil, &raw); err != nil {
		return nil, fmt.Errorf("binance spot tickers: %w", err)
	}
	out := make(map[string]float64, len(raw))
	for _, t := range raw {
		base, ok := spotBaseFromRaw(t.Symbol)
		if !ok {
			continue
		}
		if p, err := strconv.ParseFloat(t.Price, 64); err == nil && p > 0 {
			out[base+"/USDT"] = p
		}
	}
	return out, nil
}

func (b *binance) unified(rawSym string) (string, bool) {
	if !strings.HasSuffix(rawSym, "USDT") {
		return "", false
	}
	sym := unifySymbol(strings.TrimSuffix(rawSym, "USDT"), "USDT")
	if _, known := b.raw[sym]; !known {
		return "", false
	}
	return sym, true
}

func (b *binance) get(ctx context.Context, url string, query map[string][]string, dest interface{}) error {
	return b.httpc.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         url,
		QueryParams: query,
	}, dest)
}
