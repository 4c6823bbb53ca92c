// Package metrics exports dispatcher activity as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mklimuk/lightsensor/bh1750"
)

const namespace = "lightsensor"

const (
	resultOK    = "ok"
	resultError = "error"
)

var _ bh1750.Observer = &Collector{}

// Collector implements bh1750.Observer. Each collector owns its registry so
// several can live in one process.
type Collector struct {
	registry *prometheus.Registry

	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	warnings   *prometheus.CounterVec
	lastRaw    prometheus.Gauge
	lastLux    prometheus.Gauge
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Dispatched sensor requests by tag and result.",
		}, []string{"tag", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Time spent executing sensor requests.",
			Buckets:   []float64{.001, .01, .05, .1, .2, .3, .5, 1, 2},
		}, []string{"tag"}),
		warnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "warnings_total",
			Help:      "Non-fatal failures, such as a missed power down after a one-shot read.",
		}, []string{"op"}),
		lastRaw: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_reading_raw",
			Help:      "Raw value of the last successful measurement.",
		}),
		lastLux: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_reading_lux",
			Help:      "Illuminance of the last successful measurement.",
		}),
	}
	c.registry.MustRegister(c.operations, c.duration, c.warnings, c.lastRaw, c.lastLux)
	return c
}

func (c *Collector) ObserveOperation(tag string, d time.Duration, err error) {
	result := resultOK
	if err != nil {
		result = resultError
	}
	c.operations.WithLabelValues(tag, result).Inc()
	c.duration.WithLabelValues(tag).Observe(d.Seconds())
}

func (c *Collector) ObserveWarning(op string, err error) {
	c.warnings.WithLabelValues(op).Inc()
}

// ObserveReading records the last measured value.
func (c *Collector) ObserveReading(raw uint16, lux float64) {
	c.lastRaw.Set(float64(raw))
	c.lastLux.Set(lux)
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics and /health on addr until ctx is done.
func (c *Collector) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	slog.Info("metrics server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
