package repository

import (
	"context"

	"OIScanner/internal/domain/models"
)

// Notifier delivers an accepted signal to one outbound channel.
// Fire-and-forget: a false return means the channel dropped the signal;
// delivery must never block the next scan cycle indefinitely.
type Notifier interface {
	Deliver(ctx context.Context, s *models.Signal) bool
}

// Metrics abstracts the Prometheus recorder so use cases stay testable.
type Metrics interface {
	RecordRejection(stage string)
	RecordSignal(exchange string)
	RecordFetchLatency(exchange, op string, seconds float64)
	RecordError(kind string)
	SetConnectedExchanges(n int)
	SetEligibleBases(n int)
	SetSnapshotSize(n int)
}
