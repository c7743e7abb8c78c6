package observability

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace"
)

var (
	analysisRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analysis_runs_total",
			Help: "Total number of daily analysis runs",
		},
		[]string{"status"},
	)

	offendersAttributedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "offenders_attributed_total",
			Help: "Total number of offenders folded into the ledger",
		},
	)

	lockContentionTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lock_contention_total",
			Help: "Analysis runs denied by a live per-chat lock",
		},
	)

	adjudicatorDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "adjudicator_request_duration_seconds",
			Help:    "Time spent waiting for the adjudicator",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	gamblePlaysTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamble_plays_total",
			Help: "Casino plays by outcome",
		},
		[]string{"outcome"},
	)
)

// Init registers metrics, sets up a tracer provider and starts the
// metrics endpoint.
func Init(ctx context.Context, addr string) error {
	prometheus.MustRegister(
		analysisRunsTotal,
		offendersAttributedTotal,
		lockContentionTotal,
		adjudicatorDuration,
		gamblePlaysTotal,
	)

	tp := trace.NewTracerProvider()
	otel.SetTracerProvider(tp)

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.WithError(err).Error("metrics server failed")
		}
	}()

	return nil
}

func RecordAnalysisRun(status string) {
	analysisRunsTotal.WithLabelValues(status).Inc()
}

func RecordOffenders(n int) {
	offendersAttributedTotal.Add(float64(n))
}

func RecordLockContention() {
	lockContentionTotal.Inc()
}

func ObserveAdjudicator(outcome string, elapsed time.Duration) {
	adjudicatorDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

func RecordGamble(outcome string) {
	gamblePlaysTotal.WithLabelValues(outcome).Inc()
}
