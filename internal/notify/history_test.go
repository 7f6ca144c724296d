package notify

import (
	"context"
	"strconv"
	"testing"

	"OIScanner/internal/domain/models"
)

func TestHistoryNewestFirst(t *testing.T) {
	h := NewHistory(5)
	for i := 1; i <= 3; i++ {
		h.Deliver(context.Background(), &models.Signal{Base: "B" + strconv.Itoa(i)})
	}

	recent := h.Recent(0)
	if len(recent) != 3 {
		t.Fatalf("len = %d, want 3", len(recent))
	}
	if recent[0].Base != "B3" || recent[2].Base != "B1" {
		t.Fatalf("order = [%s %s %s], want newest first", recent[0].Base, recent[1].Base, recent[2].Base)
	}
}

func TestHistoryRingWrap(t *testing.T) {
	h := NewHistory(3)
	for i := 1; i <= 5; i++ {
		h.Deliver(context.Background(), &models.Signal{Base: "B" + strconv.Itoa(i)})
	}

	recent := h.Recent(10)
	if len(recent) != 3 {
		t.Fatalf("len = %d, want ring size 3", len(recent))
	}
	if recent[0].Base != "B5" || recent[1].Base != "B4" || recent[2].Base != "B3" {
		t.Fatalf("order = [%s %s %s]", recent[0].Base, recent[1].Base, recent[2].Base)
	}
}

func TestHistoryLimit(t *testing.T) {
	h := NewHistory(10)
	for i := 1; i <= 6; i++ {
		h.Deliver(context.Background(), &models.Signal{Base: "B" + strconv.Itoa(i)})
	}
	if got := len(h.Recent(2)); got != 2 {
		t.Fatalf("limited len = %d, want 2", got)
	}
	if got := len(h.Recent(100)); got != 6 {
		t.Fatalf("over-limit len = %d, want 6", got)
	}
}
