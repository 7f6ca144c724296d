package marketcap

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"OIScanner/internal/domain/repository"
	xhttp "OIScanner/pkg/http"
	applogger "OIScanner/pkg/logger"
)

const (
	publicBaseURL = "https://api.coingecko.com/api/v3"
	proBaseURL    = "https://pro-api.coingecko.com/api/v3"

	// inter-page delay throttles the paged fetch; the pro tier allows a
	// shorter one
	publicPageDelay = 1200 * time.Millisecond
	proPageDelay    = 300 * time.Millisecond
)

// Config tunes the capitalization provider.
type Config struct {
	APIKey   string
	BaseURL  string // override for tests; empty selects the CoinGecko endpoint
	CacheTTL time.Duration
	MaxPages int
	PageSize int
}

// Provider maintains a best-effort complete snapshot of market
// capitalization per base asset, refreshed on a TTL. Readers always see a
// complete snapshot: refresh builds a new map and swaps it wholesale.
type Provider struct {
	cfg     Config
	httpc   *xhttp.Client
	logger  *applogger.Logger
	metrics repository.Metrics

	// refreshMu serializes refreshes (single-flight); snapMu guards the
	// snapshot pointer only and is never held across network calls.
	refreshMu sync.Mutex
	snapMu    sync.RWMutex
	caps      map[string]float64 // upper-cased base asset -> cap USD
	refreshed time.Time
}

func New(cfg Config, logger *applogger.Logger, metrics repository.Metrics) *Provider {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 10
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 250
	}
	return &Provider{
		cfg:     cfg,
		httpc:   xhttp.NewClient(xhttp.WithTimeout(30 * time.Second)),
		logger:  logger.With("marketcap"),
		metrics: metrics,
	}
}

// IsStale reports whether the snapshot was never populated or has aged past
// the TTL.
func (p *Provider) IsStale() bool {
	p.snapMu.RLock()
	defer p.snapMu.RUnlock()
	return p.caps == nil || time.Since(p.refreshed) >= p.cfg.CacheTTL
}

// Refresh reloads the snapshot from the data source. Safe to call from
// concurrent cycles: late callers block on the in-flight refresh and return
// once it completes instead of issuing a duplicate one.
func (p *Provider) Refresh(ctx context.Context) {
	p.refreshMu.Lock()
	defer p.refreshMu.Unlock()

	if !p.IsStale() {
		return // another caller refreshed while we waited on the lock
	}

	start := time.Now()
	fresh := make(map[string]float64)

	for page := 1; page <= p.cfg.MaxPages; page++ {
		entries, err := p.fetchPage(ctx, page)
		if err != nil {
			if xhttp.IsStatus(err, http.StatusTooManyRequests) {
				p.logger.Warn("marketcap source rate limited, stopping early",
					applogger.Int("page", page))
			} else {
				p.metrics.RecordError("marketcap")
				p.logger.Warn("marketcap page fetch failed",
					applogger.Int("page", page), applogger.Error(err))
			}
			break
		}
		if len(entries) == 0 {
			break
		}

		for _, e := range entries {
			sym := strings.ToUpper(e.Symbol)
			if sym == "" || e.MarketCap <= 0 {
				continue
			}
			// same ticker listed more than once: the larger cap is the
			// canonical listing
			if e.MarketCap > fresh[sym] {
				fresh[sym] = e.MarketCap
			}
		}

		if page < p.cfg.MaxPages {
			select {
			case <-time.After(p.pageDelay()):
			case <-ctx.Done():
				page = p.cfg.MaxPages // commit what we have
			}
		}
	}

	// a wholly empty result keeps the previous snapshot; scanning with
	// stale caps beats scanning with none
	if len(fresh) == 0 {
		p.logger.Warn("marketcap refresh returned nothing, keeping previous snapshot")
		return
	}

	p.snapMu.Lock()
	p.caps = fresh
	p.refreshed = time.Now()
	p.snapMu.Unlock()

	p.metrics.SetSnapshotSize(len(fresh))
	p.metrics.RecordFetchLatency("coingecko", "refresh", time.Since(start).Seconds())
	p.logger.Info("marketcap snapshot refreshed",
		applogger.Int("assets", len(fresh)),
		applogger.Duration("elapsed", time.Since(start)))
}

type capEntry struct {
	Symbol    string  `json:"symbol"`
	MarketCap float64 `json:"market_cap"`
}

func (p *Provider) fetchPage(ctx context.Context, page int) ([]capEntry, error) {
	headers := map[string]string{"Accept": "application/json"}
	if p.cfg.APIKey != "" {
		headers["x-cg-pro-api-key"] = p.cfg.APIKey
	}

	var entries []capEntry
	err := p.httpc.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodGet,
		URL:     p.baseURL() + "/coins/markets",
		Headers: headers,
		QueryParams: map[string][]string{
			"vs_currency": {"usd"},
			"order":       {"market_cap_desc"},
			"per_page":    {strconv.Itoa(p.cfg.PageSize)},
			"page":        {strconv.Itoa(page)},
			"sparkline":   {"false"},
		},
	}, &entries)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Get returns the cached capitalization for a base asset,
// case-insensitively.
func (p *Provider) Get(base string) (float64, bool) {
	p.snapMu.RLock()
	defer p.snapMu.RUnlock()
	mcap, ok := p.caps[strings.ToUpper(base)]
	return mcap, ok
}

// Snapshot returns the current symbol->cap map. The map is never mutated
// after publication, so callers may read it without copying.
func (p *Provider) Snapshot() map[string]float64 {
	p.snapMu.RLock()
	defer p.snapMu.RUnlock()
	return p.caps
}

// EligibleBases returns the base assets whose cached capitalization falls
// inside [minCap, maxCap]. maxCap <= 0 disables the upper bound.
func (p *Provider) EligibleBases(minCap, maxCap float64) map[string]struct{} {
	p.snapMu.RLock()
	defer p.snapMu.RUnlock()

	out := make(map[string]struct{})
	for sym, mcap := range p.caps {
		if mcap < minCap {
			continue
		}
		if maxCap > 0 && mcap > maxCap {
			continue
		}
		out[sym] = struct{}{}
	}
	return out
}

// Stats describes the snapshot for the status API.
type Stats struct {
	Assets      int           `json:"assets"`
	Age         time.Duration `json:"age"`
	TTL         time.Duration `json:"ttl"`
	LastRefresh time.Time     `json:"last_refresh"`
}

func (p *Provider) Stats() Stats {
	p.snapMu.RLock()
	defer p.snapMu.RUnlock()
	s := Stats{Assets: len(p.caps), TTL: p.cfg.CacheTTL, LastRefresh: p.refreshed}
	if !p.refreshed.IsZero() {
		s.Age = time.Since(p.refreshed)
	}
	return s
}

func (p *Provider) baseURL() string {
	if p.cfg.BaseURL != "" {
		return p.cfg.BaseURL
	}
	if p.cfg.APIKey != "" {
		return proBaseURL
	}
	return publicBaseURL
}

func (p *Provider) pageDelay() time.Duration {
	if p.cfg.APIKey != "" {
		return proPageDelay
	}
	return publicPageDelay
}
