package scanner

import (
	"math"
	"strings"

	"OIScanner/internal/domain/models"
)

// Each factor contributes up to 25 points; the composite is the clamped
// integer sum. The curves reward how far past the entry thresholds a
// candidate sits, not just that it passed them.

// score computes the composite and the per-factor breakdown. Inputs have
// already passed the filter pipeline.
func (e *Engine) score(ratio, funding, spread float64, spreadKnown bool, mcap float64) (int, models.FactorScores) {
	oi := oiScore(ratio, e.cfg.OIMCapRatio)
	fu := fundingScore(funding)
	sp := spreadScore(spread, spreadKnown, e.cfg.MaxPriceSpread)
	mc := e.mcapScore(mcap)

	total := int(clamp(oi+fu+sp+mc, 0, 100))
	factors := models.FactorScores{
		OI:      round1(oi),
		Funding: round1(fu),
		Spread:  round1(sp),
		MCap:    round1(mc),
	}
	return total, factors
}

// oiScore grows logarithmically in the ratio-to-threshold multiple: exactly
// 12 at the threshold, 24 at four times it, capped at 25.
func oiScore(ratio, threshold float64) float64 {
	if threshold <= 0 || ratio <= 0 {
		return 0
	}
	return math.Min(25, 12*math.Log2(1+ratio/threshold))
}

// fundingScore is piecewise in the funding magnitude, in percent. The bands
// compress quickly: most of the range 0..25 is spent below half a percent.
func fundingScore(rate float64) float64 {
	a := abs(rate)
	switch {
	case a >= 0.5:
		return 25
	case a >= 0.1:
		return 22 + (a-0.1)/0.4*3
	case a >= 0.05:
		return 18 + (a-0.05)/0.05*4
	case a >= 0.01:
		return 10 + (a-0.01)/0.04*8
	default:
		return a / 0.01 * 10
	}
}

// spreadScore is 25 at zero spread and decays sublinearly toward the bound.
// An unknown spread scores a flat 10: no spot market is weaker evidence than
// a measured tight spread but better than a wide one.
func spreadScore(spread float64, known bool, maxSpread float64) float64 {
	if !known {
		return 10
	}
	if maxSpread <= 0 {
		return 0
	}
	return math.Max(0, 25*(1-math.Pow(abs(spread)/maxSpread, 0.7)))
}

// mcapScore favors small capitalizations: 25 at or below the minimum bound,
// decaying logarithmically across the configured band. With the upper bound
// disabled the curve decays one decade above the minimum instead.
func (e *Engine) mcapScore(mcap float64) float64 {
	minCap := e.cfg.MinMarketCap
	if minCap <= 0 || mcap <= minCap {
		return 25
	}
	if maxCap := e.cfg.MaxMarketCap; maxCap > minCap {
		return clamp(25*(1-math.Log10(1+9*(mcap-minCap)/(maxCap-minCap))), 0, 25)
	}
	return clamp(25*(1-math.Log10(mcap/minCap)), 0, 25)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

func abs(v float64) float64 { return math.Abs(v) }

func upper(s string) string { return strings.ToUpper(s) }
