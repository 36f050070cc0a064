package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics counts consumer outcomes. This worker has no user-visible surface;
// every result of the pipeline shows up here and in logs only.
type Metrics struct {
	Processed           prometheus.Counter
	BannedSkips         prometheus.Counter
	Conflicts           prometheus.Counter
	MissingParticipants prometheus.Counter
	MalformedMessages   prometheus.Counter
}

// New registers the worker metrics on the default registerer.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers on a caller-supplied registerer, so tests can use a
// fresh registry per case.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Processed: factory.NewCounter(prometheus.CounterOpts{
			Name: "codemash_consumer_processed_total",
			Help: "Submissions whose rating update was applied, or replayed as an idempotent no-op",
		}),
		BannedSkips: factory.NewCounter(prometheus.CounterOpts{
			Name: "codemash_consumer_banned_skips_total",
			Help: "Submissions dropped because the source IP was banned",
		}),
		Conflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "codemash_consumer_conflicts_total",
			Help: "Resubmissions that disagreed with the stored outcome",
		}),
		MissingParticipants: factory.NewCounter(prometheus.CounterOpts{
			Name: "codemash_consumer_missing_participants_total",
			Help: "Submissions dropped because a referenced participant vanished from the catalog",
		}),
		MalformedMessages: factory.NewCounter(prometheus.CounterOpts{
			Name: "codemash_consumer_malformed_messages_total",
			Help: "Queue messages dropped because the envelope or scores failed validation",
		}),
	}
}

// Serve exposes /metrics and /health on addr. Blocking.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}
