package notify

import (
	"context"
	"sync"

	"OIScanner/internal/domain/models"
)

// History keeps the most recent signals in a fixed-size ring for the
// status API. Delivery never fails.
type History struct {
	mu   sync.RWMutex
	ring []*models.Signal
	next int
	full bool
}

func NewHistory(size int) *History {
	if size <= 0 {
		size = 100
	}
	return &History{ring: make([]*models.Signal, size)}
}

func (h *History) Name() string { return "history" }

func (h *History) Deliver(_ context.Context, s *models.Signal) bool {
	h.mu.Lock()
	h.ring[h.next] = s
	h.next = (h.next + 1) % len(h.ring)
	if h.next == 0 {
		h.full = true
	}
	h.mu.Unlock()
	return true
}

// Recent returns up to limit signals, newest first.
func (h *History) Recent(limit int) []*models.Signal {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := h.next
	if h.full {
		n = len(h.ring)
	}
	if limit <= 0 || limit > n {
		limit = n
	}

	out := make([]*models.Signal, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (h.next - i + len(h.ring)) % len(h.ring)
		if h.ring[idx] == nil {
			break
		}
		out = append(out, h.ring[idx])
	}
	return out
}
