package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	tradesProcessed *prometheus.CounterVec
	tradesSkipped   *prometheus.CounterVec
	signalsTotal    *prometheus.CounterVec
	sweepsTotal     *prometheus.CounterVec
	whalesTotal     *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	bufferSize      prometheus.Gauge
	latency         *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		tradesProcessed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flowtrack_trades_processed_total",
				Help: "Total number of option trades run through detection",
			},
			[]string{"symbol"},
		),
		tradesSkipped: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flowtrack_trades_skipped_total",
				Help: "Total number of trades skipped before detection",
			},
			[]string{"reason"},
		),
		signalsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flowtrack_signals_total",
				Help: "Total number of flow signals emitted",
			},
			[]string{"type"},
		),
		sweepsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flowtrack_sweeps_total",
				Help: "Total number of sweeps detected",
			},
			[]string{"symbol"},
		),
		whalesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flowtrack_whales_total",
				Help: "Total number of whale-sized trades detected",
			},
			[]string{"symbol"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flowtrack_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		bufferSize: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "flowtrack_trade_buffer_size",
				Help: "Current number of trades held in the ingestion buffer",
			},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "flowtrack_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordTradeProcessed records a trade run through detection.
func (r *Recorder) RecordTradeProcessed(symbol string) {
	r.tradesProcessed.WithLabelValues(symbol).Inc()
}

// RecordTradeSkipped records a trade dropped before detection.
func (r *Recorder) RecordTradeSkipped(reason string) {
	r.tradesSkipped.WithLabelValues(reason).Inc()
}

// RecordSignal records an emitted flow signal.
func (r *Recorder) RecordSignal(signalType string) {
	r.signalsTotal.WithLabelValues(signalType).Inc()
}

// RecordSweep records a detected sweep.
func (r *Recorder) RecordSweep(symbol string) {
	r.sweepsTotal.WithLabelValues(symbol).Inc()
}

// RecordWhale records a whale-sized trade.
func (r *Recorder) RecordWhale(symbol string) {
	r.whalesTotal.WithLabelValues(symbol).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordBufferSize records the ingestion buffer depth.
func (r *Recorder) RecordBufferSize(n int) {
	r.bufferSize.Set(float64(n))
}
