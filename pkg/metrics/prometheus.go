package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	rejections         *prometheus.CounterVec
	signalsEmitted     *prometheus.CounterVec
	errorsTotal        *prometheus.CounterVec
	fetchLatency       *prometheus.HistogramVec
	connectedExchanges prometheus.Gauge
	eligibleBases      prometheus.Gauge
	snapshotSize       prometheus.Gauge
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		rejections: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oiscan_rejections_total",
				Help: "Records rejected by the filter pipeline, per stage",
			},
			[]string{"stage"},
		),
		signalsEmitted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oiscan_signals_total",
				Help: "Signals emitted, per exchange",
			},
			[]string{"exchange"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oiscan_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		fetchLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "oiscan_fetch_duration_seconds",
				Help:    "Duration of exchange and marketcap fetches in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"exchange", "op"},
		),
		connectedExchanges: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "oiscan_connected_exchanges",
			Help: "Number of exchanges currently connected",
		}),
		eligibleBases: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "oiscan_eligible_bases",
			Help: "Base assets inside the configured capitalization bounds",
		}),
		snapshotSize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "oiscan_marketcap_snapshot_size",
			Help: "Entries in the current capitalization snapshot",
		}),
	}
}

// RecordRejection records a filter-stage rejection.
func (r *Recorder) RecordRejection(stage string) {
	r.rejections.WithLabelValues(stage).Inc()
}

// RecordSignal records an emitted signal.
func (r *Recorder) RecordSignal(exchange string) {
	r.signalsEmitted.WithLabelValues(exchange).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordFetchLatency records fetch latency in seconds.
func (r *Recorder) RecordFetchLatency(exchange, op string, seconds float64) {
	r.fetchLatency.WithLabelValues(exchange, op).Observe(seconds)
}

func (r *Recorder) SetConnectedExchanges(n int) { r.connectedExchanges.Set(float64(n)) }

func (r *Recorder) SetEligibleBases(n int) { r.eligibleBases.Set(float64(n)) }

func (r *Recorder) SetSnapshotSize(n int) { r.snapshotSize.Set(float64(n)) }
