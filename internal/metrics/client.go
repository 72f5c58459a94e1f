// Package metrics exposes prometheus instrumentation for the client:
// session counts, frame traffic by type, and publish outcomes.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ActiveSessions tracks currently connected relays.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "norc_active_relay_sessions",
		Help: "Number of currently connected relay sessions",
	})

	// ActiveSubscriptions tracks outstanding subscriptions.
	ActiveSubscriptions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "norc_active_subscriptions",
		Help: "Number of outstanding subscriptions",
	})

	// FramesReceived counts inbound relay frames by envelope label.
	FramesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "norc_frames_received_total",
		Help: "Inbound relay frames by type (EVENT, EOSE, OK, NOTICE, other)",
	}, []string{"type"})

	// EventsPublished counts events accepted for fan-out.
	EventsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "norc_events_published_total",
		Help: "Events handed to publish fan-out",
	})

	// PublishFailures counts per-relay publish failures.
	PublishFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "norc_publish_failures_total",
		Help: "Per-relay publish send failures",
	}, []string{"relay"})

	// MiningDuration observes proof-of-work mining wall time.
	MiningDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "norc_mining_duration_seconds",
		Help:    "Wall time spent mining one event",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
	})
)

// Serve runs a /metrics endpoint until ctx is cancelled.
func Serve(ctx context.Context, port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
