// Package observability exports diagnostic exchange metrics to Prometheus.
package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/seagrayinc/linuds/pkg/isotp"
	"github.com/seagrayinc/linuds/pkg/uds"
)

// Outcome labels.
const (
	OutcomeOK         = "ok"
	OutcomeNegative   = "negative"
	OutcomeUnexpected = "unexpected"
	OutcomeFraming    = "framing"
	OutcomeTimeout    = "timeout"
	OutcomeTransport  = "transport"
)

// Metrics implements uds.Observer.
type Metrics struct {
	registry  *prometheus.Registry
	exchanges *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	negatives *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		exchanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "linuds",
				Subsystem: "uds",
				Name:      "exchanges_total",
				Help:      "Diagnostic exchanges by service and outcome.",
			},
			[]string{"service", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "linuds",
				Subsystem: "uds",
				Name:      "exchange_duration_seconds",
				Help:      "Diagnostic exchange duration in seconds, delay included.",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"service"},
		),
		negatives: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "linuds",
				Subsystem: "uds",
				Name:      "negative_responses_total",
				Help:      "Negative responses by service and response code.",
			},
			[]string{"service", "nrc"},
		),
	}

	m.registry.MustRegister(m.exchanges, m.duration, m.negatives)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveExchange(service byte, elapsed time.Duration, err error) {
	name := uds.ServiceName(service)
	outcome := Outcome(err)

	m.exchanges.WithLabelValues(name, outcome).Inc()
	m.duration.WithLabelValues(name).Observe(elapsed.Seconds())

	var ure *uds.UnexpectedResponseError
	if errors.As(err, &ure) && ure.Negative() {
		m.negatives.WithLabelValues(name, uds.NRCName(ure.NRC)).Inc()
	}
}

// Outcome classifies an exchange error into a metric label.
func Outcome(err error) string {
	var ure *uds.UnexpectedResponseError
	switch {
	case err == nil:
		return OutcomeOK
	case errors.As(err, &ure) && ure.Negative():
		return OutcomeNegative
	case errors.Is(err, uds.ErrUnexpectedResponse):
		return OutcomeUnexpected
	case errors.Is(err, isotp.ErrFraming), errors.Is(err, isotp.ErrSequence):
		return OutcomeFraming
	case errors.Is(err, context.DeadlineExceeded):
		return OutcomeTimeout
	default:
		return OutcomeTransport
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	slog.Info("serving metrics", slog.String("addr", addr))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("metrics server: %w", err)
	}
}
