package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"OIScanner/internal/domain/models"
	"OIScanner/internal/service/ratelimit"
	xhttp "OIScanner/pkg/http"
	applogger "OIScanner/pkg/logger"
)

const (
	telegramAPIBase = "https://api.telegram.org"

	// Telegram allows roughly 20 messages per minute to the same group.
	telegramBurst     = 20.0
	telegramRefillSec = 20.0 / 60.0

	telegramMaxAttempts = 3
)

// TelegramConfig carries the bot credentials and destination.
type TelegramConfig struct {
	BotToken string
	ChatID   string
	TopicID  int    // forum topic, 0 for plain chats
	BaseURL  string // override for tests
}

// Telegram delivers signals as Markdown messages through the Bot API.
// Sends are paced by a token bucket and retried on transient failures,
// honoring the retry_after hint on 429.
type Telegram struct {
	cfg     TelegramConfig
	httpc   *xhttp.Client
	limiter *ratelimit.Limiter
	logger  *applogger.Logger
	sleep   func(time.Duration)
}

func NewTelegram(cfg TelegramConfig, logger *applogger.Logger) *Telegram {
	return &Telegram{
		cfg:     cfg,
		httpc:   xhttp.NewClient(xhttp.WithTimeout(15 * time.Second)),
		limiter: ratelimit.New(),
		logger:  logger.With("telegram"),
		sleep:   time.Sleep,
	}
}

func (t *Telegram) Name() string { return "telegram" }

// Deliver formats and sends one signal. Returns false when the message
// could not be delivered after all retries.
func (t *Telegram) Deliver(ctx context.Context, s *models.Signal) bool {
	return t.send(ctx, formatSignal(s))
}

// Announce sends a plain status line, used at startup.
func (t *Telegram) Announce(ctx context.Context, text string) bool {
	return t.send(ctx, text)
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
	Parameters  struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

func (t *Telegram) send(ctx context.Context, text string) bool {
	// pace before the first attempt so retries do not double-dip
	for !t.limiter.Allow("chat:"+t.cfg.ChatID, telegramBurst, telegramRefillSec) {
		select {
		case <-ctx.Done():
			return false
		default:
			t.sleep(time.Second)
		}
	}

	payload := map[string]interface{}{
		"chat_id":                  t.cfg.ChatID,
		"text":                     text,
		"parse_mode":               "Markdown",
		"disable_web_page_preview": true,
	}
	if t.cfg.TopicID != 0 {
		payload["message_thread_id"] = t.cfg.TopicID
	}

	backoff := time.Second
	for attempt := 1; attempt <= telegramMaxAttempts; attempt++ {
		var resp telegramResponse
		err := t.httpc.SendAndParse(ctx, &xhttp.RequestOptions{
			Method: xhttp.MethodPost,
			URL:    t.baseURL() + "/bot" + t.cfg.BotToken + "/sendMessage",
			Body:   payload,
		}, &resp)
		if err == nil && resp.OK {
			return true
		}

		wait := backoff
		if xhttp.IsStatus(err, http.StatusTooManyRequests) {
			if after := retryAfter(err); after > 0 {
				wait = after
			}
			t.logger.Warn("telegram rate limited",
				applogger.Int("attempt", attempt), applogger.Duration("wait", wait))
		} else if err != nil {
			t.logger.Warn("telegram send failed",
				applogger.Int("attempt", attempt), applogger.Error(err))
		} else {
			// non-retryable API error (bad chat id, malformed markdown)
			t.logger.Error("telegram rejected message",
				applogger.Int("code", resp.ErrorCode),
				applogger.String("description", resp.Description))
			return false
		}

		if attempt == telegramMaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return false
		default:
			t.sleep(wait)
		}
		backoff *= 2
	}
	return false
}

// retryAfter extracts the retry hint from a 429 response body.
func retryAfter(err error) time.Duration {
	var se *xhttp.StatusError
	if !errors.As(err, &se) {
		return 0
	}
	var resp telegramResponse
	if json.Unmarshal([]byte(se.Body), &resp) != nil {
		return 0
	}
	return time.Duration(resp.Parameters.RetryAfter) * time.Second
}

func (t *Telegram) baseURL() string {
	if t.cfg.BaseURL != "" {
		return t.cfg.BaseURL
	}
	return telegramAPIBase
}

// formatSignal renders the alert message. Header urgency follows the score
// tier, then the metric block, the factor breakdown and a trade deep link.
func formatSignal(s *models.Signal) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s *%s* on %s\n\n", scoreHeader(s.Score), s.Base, s.ExchangeName)
	fmt.Fprintf(&b, "Score: *%d/100*\n", s.Score)
	fmt.Fprintf(&b, "Price: %s\n", s.PriceString())
	fmt.Fprintf(&b, "OI: %s (%s of mcap)\n", models.FormatUSD(s.OIUSD), s.OIMCapString())
	fmt.Fprintf(&b, "MCap: %s\n", s.MCapString())
	fmt.Fprintf(&b, "Funding: %s\n", s.FundingString())
	fmt.Fprintf(&b, "Spread: %s\n\n", s.SpreadString())

	fmt.Fprintf(&b, "`OI   %s`\n", factorBar(s.FactorScores.OI))
	fmt.Fprintf(&b, "`Fund %s`\n", factorBar(s.FactorScores.Funding))
	fmt.Fprintf(&b, "`Sprd %s`\n", factorBar(s.FactorScores.Spread))
	fmt.Fprintf(&b, "`Cap  %s`\n", factorBar(s.FactorScores.MCap))

	if link := tradeLink(s.Exchange, s.Base); link != "" {
		fmt.Fprintf(&b, "\n[Open %s](%s)", s.Symbol, link)
	}
	return b.String()
}

func scoreHeader(score int) string {
	switch {
	case score >= 85:
		return "🔥 STRONG SQUEEZE SETUP"
	case score >= 70:
		return "⚡ SQUEEZE SETUP"
	case score >= 50:
		return "📊 Squeeze candidate"
	default:
		return "👀 Weak candidate"
	}
}

// factorBar renders a ten-slot gauge for a sub-score in [0, 25].
func factorBar(score float64) string {
	filled := int(score / 25 * 10)
	if filled > 10 {
		filled = 10
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", 10-filled) +
		fmt.Sprintf(" %4.1f", score)
}

func tradeLink(exchange, base string) string {
	switch exchange {
	case "binance":
		return "https://www.binance.com/en/futures/" + base + "USDT"
	case "bybit":
		return "https://www.bybit.com/trade/usdt/" + base + "USDT"
	case "okx":
		return "https://www.okx.com/trade-swap/" + strings.ToLower(base) + "-usdt-swap"
	case "gateio":
		return "https://www.gate.io/futures_trade/USDT/" + base + "_USDT"
	default:
		return ""
	}
}
