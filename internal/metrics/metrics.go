// Package metrics counts device traffic with Prometheus collectors on a
// private registry and optionally serves them over HTTP.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "belfry"

// Recorder implements device.AttemptObserver and cache.MutationObserver and
// also records poll outcomes.
type Recorder struct {
	registry     *prometheus.Registry
	attempts     *prometheus.CounterVec
	mutations    *prometheus.CounterVec
	polls        *prometheus.CounterVec
	pollDuration *prometheus.HistogramVec
}

// New registers the belfry collectors on a fresh registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "device_attempts_total",
			Help:      "Transport attempts against the controller by command, request form and result.",
		}, []string{"command", "form", "ok"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_total",
			Help:      "Confirmed-mutation calls by command and result.",
		}, []string{"command", "ok"}),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polls_total",
			Help:      "Poll ticks by cadence and outcome.",
		}, []string{"cadence", "outcome"}),
		pollDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "poll_duration_seconds",
			Help:      "Wall time of a poll tick.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"cadence"}),
	}
	r.registry.MustRegister(r.attempts, r.mutations, r.polls, r.pollDuration)
	return r
}

// ObserveAttempt counts one transport attempt.
func (r *Recorder) ObserveAttempt(command, form string, ok bool) {
	r.attempts.WithLabelValues(command, form, strconv.FormatBool(ok)).Inc()
}

// ObserveMutation counts one confirmed mutation.
func (r *Recorder) ObserveMutation(command string, ok bool) {
	r.mutations.WithLabelValues(command, strconv.FormatBool(ok)).Inc()
}

// ObservePoll counts one poll tick and its duration.
func (r *Recorder) ObservePoll(cadence, outcome string, elapsed time.Duration) {
	r.polls.WithLabelValues(cadence, outcome).Inc()
	r.pollDuration.WithLabelValues(cadence).Observe(elapsed.Seconds())
}

// Gatherer exposes the private registry.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Serve listens on addr and serves /metrics until ctx is cancelled.
func (r *Recorder) Serve(ctx context.Context, addr string, logger *log.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return r.serve(ctx, ln, logger)
}

func (r *Recorder) serve(ctx context.Context, ln net.Listener, logger *log.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	logger.Info("metrics listening", "addr", ln.Addr().String())

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown metrics server: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
