package exchange

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"OIScanner/internal/domain/models"
	xhttp "OIScanner/pkg/http"
)

const okxBaseURL = "https://www.okx.com"

// okx talks to the OKX v5 public REST API. OKX has no bulk funding-rate
// endpoint, so the gateway uses the per-symbol fallback for it.
type okx struct {
	httpc *xhttp.Client
	raw   map[string]string // unified symbol -> instId ("PEPE-USDT-SWAP")
}

func newOKX(httpc *xhttp.Client) *okx {
	return &okx{httpc: httpc, raw: make(map[string]string)}
}

func (o *okx) ID() string   { return "okx" }
func (o *okx) Name() string { return "OKX" }

func (o *okx) BulkFunding() bool     { return false }
func (o *okx) HasOpenInterest() bool { return true }

type okxEnvelope[T any] struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data []T    `json:"data"`
}

type okxInstrument struct {
	InstID     string `json:"instId"`
	CtType     string `json:"ctType"` // "linear" | "inverse"
	SettleCcy  string `json:"settleCcy"`
	State      string `json:"state"`
	InstFamily string `json:"instFamily"`
}

func (o *okx) LoadMarkets(ctx context.Context) ([]Market, error) {
	var resp okxEnvelope[okxInstrument]
	err := o.get(ctx, "/api/v5/public/instruments",
		map[string][]string{"instType": {"SWAP"}}, &resp)
	if err != nil {
		return nil, fmt.Errorf("okx instruments: %w", err)
	}
	if resp.Code != "0" {
		return nil, fmt.Errorf("okx instruments: code %s %s", resp.Code, resp.Msg)
	}

	markets := make([]Market, 0, len(resp.Data))
	for _, ins := range resp.Data {
		// instId is BASE-QUOTE-SWAP
		parts := strings.Split(ins.InstID, "-")
		if len(parts) != 3 {
			continue
		}
		m := Market{
			Symbol: unifySymbol(parts[0], parts[1]),
			Base:   parts[0],
			Quote:  parts[1],
			Settle: ins.SettleCcy,
			Swap:   true,
			Linear: ins.CtType == "linear",
			Active: ins.State == "live",
		}
		o.raw[m.Symbol] = ins.InstID
		markets = append(markets, m)
	}
	return markets, nil
}

type okxTicker struct {
	InstID string `json:"instId"`
	Last   string `json:"last"`
}

func (o *okx) FetchTickers(ctx context.Context) (map[string]float64, error) {
	var resp okxEnvelope[okxTicker]
	err := o.get(ctx, "/api/v5/market/tickers",
		map[string][]string{"instType": {"SWAP"}}, &resp)
	if err != nil {
		return nil, classify(fmt.Errorf("okx tickers: %w", err))
	}
	out := make(map[string]float64, len(resp.Data))
	for _, t := range resp.Data {
		if sym, ok := o.unifiedSwap(t.InstID); ok {
			if p, err := strconv.ParseFloat(t.Last, 64); err == nil && p > 0 {
				out[sym] = p
			}
		}
	}
	return out, nil
}

func (o *okx) FetchFundingRates(ctx context.Context) (map[string]float64, error) {
	return nil, ErrNotSupported
}

type okxFundingRate struct {
	InstID      string `json:"instId"`
	FundingRate string `json:"fundingRate"`
}

func (o *okx) FetchFundingRate(ctx context.Context, symbol string) (float64, error) {
	instID, ok := o.raw[symbol]
	if !ok {
		return 0, fmt.Errorf("okx: unknown symbol %s", symbol)
	}
	var resp okxEnvelope[okxFundingRate]
	err := o.get(ctx, "/api/v5/public/funding-rate",
		map[string][]string{"instId": {instID}}, &resp)
	if err != nil {
		return 0, classify(fmt.Errorf("okx funding-rate %s: %w", symbol, err))
	}
	if len(resp.Data) == 0 {
		return 0, fmt.Errorf("okx: no funding rate for %s", symbol)
	}
	v, err := strconv.ParseFloat(resp.Data[0].FundingRate, 64)
	if err != nil {
		return 0, fmt.Errorf("okx funding parse %s: %w", symbol, err)
	}
	return v * 100, nil
}

type okxOpenInterest struct {
	InstID string `json:"instId"`
	OI     string `json:"oi"`    // contracts
	OICcy  string `json:"oiCcy"` // base currency units
	OIUSD  string `json:"oiUsd"`
}

func (o *okx) FetchOpenInterest(ctx context.Context, symbol string) (models.OpenInterest, error) {
	instID, ok := o.raw[symbol]
	if !ok {
		return models.OpenInterest{}, fmt.Errorf("okx: unknown symbol %s", symbol)
	}
	var resp okxEnvelope[okxOpenInterest]
	err := o.get(ctx, "/api/v5/public/open-interest",
		map[string][]string{"instType": {"SWAP"}, "instId": {instID}}, &resp)
	if err != nil {
		return models.OpenInterest{}, classify(fmt.Errorf("okx open-interest %s: %w", symbol, err))
	}
	if len(resp.Data) == 0 {
		return models.OpenInterest{}, fmt.Errorf("okx: no open interest for %s", symbol)
	}
	var oi models.OpenInterest
	if v, err := strconv.ParseFloat(resp.Data[0].OIUSD, 64); err == nil {
		oi.ValueUSD = v
	}
	if v, err := strconv.ParseFloat(resp.Data[0].OICcy, 64); err == nil {
		oi.Amount = v
	}
	return oi, nil
}

func (o *okx) FetchSpotTickers(ctx context.Context) (map[string]float64, error) {
	var resp okxEnvelope[okxTicker]
	err := o.get(ctx, "/api/v5/market/tickers",
		map[string][]string{"instType": {"SPOT"}}, &resp)
	if err != nil {
		return nil, classify(fmt.Errorf("okx spot tickers: %w", err))
	}
	out := make(map[string]float64, len(resp.Data))
	for _, t := range resp.Data {
		base, ok := spotBaseFromPair(t.InstID, "-")
		if !ok {
			continue
		}
		if p, err := strconv.ParseFloat(t.Last, 64); err == nil && p > 0 {
			out[base+"/USDT"] = p
		}
	}
	return out, nil
}

func (o *okx) unifiedSwap(instID string) (string, bool) {
	parts := strings.Split(instID, "-")
	if len(parts) != 3 {
		return "", false
	}
	sym := unifySymbol(parts[0], parts[1])
	if _, known := o.raw[sym]; !known {
		return "", false
	}
	return sym, true
}

func (o *okx) get(ctx context.Context, path string, query map[string][]string, dest interface{}) error {
	return o.httpc.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         okxBaseURL + path,
		QueryParams: query,
	}, dest)
}
