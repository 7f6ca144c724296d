package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"OIScanner/internal/domain/models"
	"OIScanner/internal/notify"
)

var historyBase = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func seededHistory(n int) *notify.History {
	h := notify.NewHistory(100)
	for i := 0; i < n; i++ {
		h.Deliver(context.Background(), &models.Signal{
			Exchange:  "binance",
			Base:      fmt.Sprintf("SYM%d", i),
			Score:     50,
			Timestamp: historyBase.Add(time.Duration(i) * time.Minute),
		})
	}
	return h
}

func recentRequest(h *StatusHandler, query string) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/signals/recent"+query, nil)
	rec := httptest.NewRecorder()
	if err := h.RecentSignals(e.NewContext(req, rec)); err != nil {
		panic(err)
	}
	return rec
}

func decodeRecent(t *testing.T, rec *httptest.ResponseRecorder) []*models.Signal {
	t.Helper()
	var resp struct {
		Status int `json:"status"`
		Data   struct {
			Rows  []*models.Signal `json:"rows"`
			Total int64            `json:"total"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.Status, rec.Body.String())
	}
	return resp.Data.Rows
}

func TestRecentSignalsDefaultLimit(t *testing.T) {
	h := NewStatusHandler(nil, nil, nil, nil, nil, seededHistory(30), nil)

	rows := decodeRecent(t, recentRequest(h, ""))
	if len(rows) != 20 {
		t.Fatalf("rows = %d, want default limit 20", len(rows))
	}
	if rows[0].Base != "SYM29" {
		t.Fatalf("first row = %s, want newest", rows[0].Base)
	}
}

func TestRecentSignalsExplicitLimit(t *testing.T) {
	h := NewStatusHandler(nil, nil, nil, nil, nil, seededHistory(30), nil)

	rows := decodeRecent(t, recentRequest(h, "?limit=5"))
	if len(rows) != 5 {
		t.Fatalf("rows = %d, want 5", len(rows))
	}
}

func TestRecentSignalsRejectsOutOfRangeLimit(t *testing.T) {
	h := NewStatusHandler(nil, nil, nil, nil, nil, seededHistory(3), nil)

	cases := []struct {
		query string
		code  string
	}{
		{"?limit=200", "ERR_LTE"},
		{"?limit=-1", "ERR_GTE"},
	}
	for _, tc := range cases {
		rec := recentRequest(h, tc.query)
		body := rec.Body.String()
		if !strings.Contains(body, `"status":400`) || !strings.Contains(body, tc.code) {
			t.Fatalf("%s: expected %s validation error, got %s", tc.query, tc.code, body)
		}
	}
}

func TestRecentSignalsSinceFilter(t *testing.T) {
	h := NewStatusHandler(nil, nil, nil, nil, nil, seededHistory(30), nil)

	since := historyBase.Add(25 * time.Minute).Format(time.RFC3339)
	rows := decodeRecent(t, recentRequest(h, "?since="+since))
	if len(rows) != 4 {
		t.Fatalf("rows = %d, want the 4 signals after %s", len(rows), since)
	}
	for _, s := range rows {
		if !s.Timestamp.After(historyBase.Add(25 * time.Minute)) {
			t.Fatalf("signal %s at %v not after the cutoff", s.Base, s.Timestamp)
		}
	}
}
