package exchange

import (
	"context"
	"errors"
	"fmt"
	"time"

	"OIScanner/internal/domain/models"
	xhttp "OIScanner/pkg/http"
)

var (
	// ErrNotSupported marks an endpoint the exchange does not offer.
	// Callers treat it as an empty successful result.
	ErrNotSupported = errors.New("operation not supported")

	// ErrRateLimited marks an HTTP 429 or an exchange-specific throttle
	// response on a single call.
	ErrRateLimited = errors.New("rate limited")

	// ErrUnknownExchange is returned for an exchange id with no client.
	ErrUnknownExchange = errors.New("unknown exchange id")
)

// Market is one entry of an exchange's futures catalog before filtering.
type Market struct {
	Symbol string // unified, e.g. "PEPE/USDT:USDT"
	Base   string
	Quote  string
	Settle string
	Swap   bool
	Linear bool
	Active bool
}

// Client is one exchange's REST API reduced to the five read operations the
// scanner needs. Capability flags are fixed per exchange and resolved at
// construction, not probed at runtime.
type Client interface {
	ID() string
	Name() string

	// BulkFunding reports whether FetchFundingRates covers all symbols in
	// one call. When false the gateway falls back to per-symbol calls.
	BulkFunding() bool
	// HasOpenInterest reports whether the exchange exposes open interest.
	HasOpenInterest() bool

	LoadMarkets(ctx context.Context) ([]Market, error)
	// FetchTickers returns last trade price per futures symbol.
	FetchTickers(ctx context.Context) (map[string]float64, error)
	// FetchFundingRates returns the current funding rate in percent per
	// symbol. Returns ErrNotSupported when the exchange has no bulk call.
	FetchFundingRates(ctx context.Context) (map[string]float64, error)
	// FetchFundingRate returns one symbol's funding rate in percent.
	FetchFundingRate(ctx context.Context, symbol string) (float64, error)
	// FetchOpenInterest returns one symbol's open interest.
	FetchOpenInterest(ctx context.Context, symbol string) (models.OpenInterest, error)
	// FetchSpotTickers returns last price per spot symbol ("BASE/USDT").
	FetchSpotTickers(ctx context.Context) (map[string]float64, error)
}

// displayNames maps exchange ids to human-readable names used in signals.
var displayNames = map[string]string{
	"binance": "Binance",
	"bybit":   "Bybit",
	"okx":     "OKX",
	"gateio":  "Gate.io",
}

// DisplayName returns the human-readable exchange name, falling back to the id.
func DisplayName(id string) string {
	if n, ok := displayNames[id]; ok {
		return n
	}
	return id
}

// NewClient builds the REST client for a supported exchange id.
func NewClient(id string, timeout time.Duration) (Client, error) {
	httpc := xhttp.NewClient(xhttp.WithTimeout(timeout))
	switch id {
	case "binance":
		return newBinance(httpc), nil
	case "bybit":
		return newBybit(httpc), nil
	case "okx":
		return newOKX(httpc), nil
	case "gate", "gateio":
		return newGateio(httpc), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownExchange, id)
	}
}
