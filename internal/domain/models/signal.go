package models

import (
	"fmt"
	"time"
)

// FactorScores holds the four sub-scores, each in [0, 25].
type FactorScores struct {
	OI      float64 `json:"oi"`
	Funding float64 `json:"funding"`
	Spread  float64 `json:"spread"`
	MCap    float64 `json:"mcap"`
}

// Signal is emitted when all four strategy factors align for a symbol:
// overheated open interest, negative funding, fair price and low cap.
// Immutable once created; ownership transfers to the notifiers.
type Signal struct {
	Exchange     string  `json:"exchange"`
	ExchangeName string  `json:"exchange_name"`
	Symbol       string  `json:"symbol"`
	Base         string  `json:"base"`
	FuturesPrice float64 `json:"futures_price"`
	SpotPrice    float64 `json:"spot_price,omitempty"` // 0 = unknown

	OIUSD       float64 `json:"oi_usd"`
	MCap        float64 `json:"mcap_usd"`
	OIMCapRatio float64 `json:"oi_mcap_ratio_pct"`
	FundingRate float64 `json:"funding_rate_pct"`
	Spread      float64 `json:"price_spread_pct"`
	SpreadKnown bool    `json:"spread_known"`

	Score        int          `json:"score"` // 0-100
	FactorScores FactorScores `json:"factor_scores"`
	Timestamp    time.Time    `json:"timestamp"`
}

// CooldownKey identifies the dedup bucket for this signal.
func (s *Signal) CooldownKey() string { return s.Base + "_" + s.Exchange }

func (s *Signal) OIMCapString() string { return fmt.Sprintf("%.1f%%", s.OIMCapRatio) }

func (s *Signal) FundingString() string { return fmt.Sprintf("%.4f%%", s.FundingRate) }

func (s *Signal) SpreadString() string {
	if !s.SpreadKnown {
		return "N/A"
	}
	return fmt.Sprintf("%+.2f%%", s.Spread)
}

func (s *Signal) MCapString() string { return FormatUSD(s.MCap) }

// PriceString formats the futures price compactly for notifications.
func (s *Signal) PriceString() string {
	if s.FuturesPrice >= 1 {
		return fmt.Sprintf("$%.4f", s.FuturesPrice)
	}
	return fmt.Sprintf("$%.6g", s.FuturesPrice)
}

// FormatUSD renders a dollar amount with a B/M/K suffix.
func FormatUSD(v float64) string {
	switch {
	case v >= 1e9:
		return fmt.Sprintf("$%.1fB", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("$%.2fM", v/1e6)
	case v >= 1e3:
		return fmt.Sprintf("$%.0fK", v/1e3)
	default:
		return fmt.Sprintf("$%.0f", v)
	}
}
