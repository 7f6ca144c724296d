package notify

import (
	"context"

	"OIScanner/internal/domain/models"
	"OIScanner/internal/domain/repository"
	applogger "OIScanner/pkg/logger"
)

// Named pairs a notifier with a stable name for logging.
type Named interface {
	repository.Notifier
	Name() string
}

// Fanout delivers each signal to every registered sink. One sink failing
// never blocks the others; failures are logged and counted, not retried
// here (sinks own their retry policy).
type Fanout struct {
	sinks   []Named
	logger  *applogger.Logger
	metrics repository.Metrics
}

func NewFanout(logger *applogger.Logger, metrics repository.Metrics, sinks ...Named) *Fanout {
	return &Fanout{
		sinks:   sinks,
		logger:  logger.With("notify"),
		metrics: metrics,
	}
}

// Dispatch pushes the batch to all sinks in order. Signals within one batch
// keep their score ordering at every sink.
func (f *Fanout) Dispatch(ctx context.Context, signals []*models.Signal) {
	for _, s := range signals {
		for _, sink := range f.sinks {
			if !sink.Deliver(ctx, s) {
				f.metrics.RecordError("notify_" + sink.Name())
				f.logger.Warn("signal delivery failed",
					applogger.String("sink", sink.Name()),
					applogger.String("base", s.Base),
					applogger.String("exchange", s.Exchange))
			}
		}
	}
}

// Sinks returns the registered sink names for the status API.
func (f *Fanout) Sinks() []string {
	out := make([]string, 0, len(f.sinks))
	for _, s := range f.sinks {
		out = append(out, s.Name())
	}
	return out
}
