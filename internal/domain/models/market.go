package models

// TradablePair identifies a USDT-margined perpetual future on one exchange.
// The set of pairs is derived once from the exchange market catalog during
// connection setup and refreshed only on reconnect.
type TradablePair struct {
	Symbol   string // unified symbol, e.g. "PEPE/USDT:USDT"
	Base     string // base asset, e.g. "PEPE"
	Exchange string // exchange id, e.g. "binance"
}

// Record is one symbol's normalized market snapshot for a single scan cycle.
// A Record is only constructed when futures price, funding rate and open
// interest all resolved successfully; partial data is dropped at
// normalization, never defaulted.
type Record struct {
	Exchange     string
	ExchangeName string
	Symbol       string
	Base         string

	OIUSD        float64 // open interest in USD
	FundingRate  float64 // percent per funding interval; negative = shorts pay longs
	FuturesPrice float64
	SpotPrice    float64 // 0 when no spot market price is known
}

// HasSpot reports whether a spot price was resolved for this record.
func (r *Record) HasSpot() bool { return r.SpotPrice > 0 }

// OpenInterest is the raw per-symbol open interest as reported by an
// exchange. ValueUSD is preferred; Amount is contract units and needs a
// price to convert.
type OpenInterest struct {
	ValueUSD float64
	Amount   float64
}

// ExchangeStatus describes one exchange's connection outcome. Failed
// exchanges are excluded from scanning for the process lifetime.
type ExchangeStatus struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Connected bool   `json:"connected"`
	Pairs     int    `json:"pairs"`
	Error     string `json:"error,omitempty"`
}
