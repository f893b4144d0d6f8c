// Package metrics exposes acquisition counters over a Prometheus
// registry. The node is often left running unattended on edge hardware;
// frame/timeout/decode-failure rates are how a deployment notices a
// flaky trigger line or a misconfigured format.
package metrics

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Acquisition bundles the per-camera acquisition metrics.
type Acquisition struct {
	registry *prometheus.Registry

	FramesCaptured *prometheus.CounterVec
	FrameTimeouts  *prometheus.CounterVec
	DecodeFailures *prometheus.CounterVec
	FetchSeconds   *prometheus.HistogramVec
	PayloadBytes   *prometheus.GaugeVec
}

// NewAcquisition creates and registers the acquisition metric set on a
// fresh registry.
func NewAcquisition() *Acquisition {
	registry := prometheus.NewRegistry()

	m := &Acquisition{
		registry: registry,
		FramesCaptured: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "camgrab",
			Name:      "frames_captured_total",
			Help:      "Frames fetched, decoded and delivered.",
		}, []string{"serial"}),
		FrameTimeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "camgrab",
			Name:      "frame_timeouts_total",
			Help:      "Frame waits that elapsed without data.",
		}, []string{"serial"}),
		DecodeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "camgrab",
			Name:      "decode_failures_total",
			Help:      "Frames skipped because their pixel format could not be decoded.",
		}, []string{"serial"}),
		FetchSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "camgrab",
			Name:      "frame_fetch_seconds",
			Help:      "Blocking frame fetch latency.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}, []string{"serial"}),
		PayloadBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "camgrab",
			Name:      "payload_bytes",
			Help:      "Raw transfer size of one frame at the current ROI and pixel format.",
		}, []string{"serial"}),
	}

	registry.MustRegister(m.FramesCaptured, m.FrameTimeouts, m.DecodeFailures, m.FetchSeconds, m.PayloadBytes)
	return m
}

// Handler returns the scrape endpoint for this metric set.
func (m *Acquisition) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Server serves /metrics on addr until the context is cancelled.
type Server struct {
	srv    *http.Server
	logger *slog.Logger
}

// NewServer builds the metrics listener. addr is the usual ":9090" form.
func NewServer(addr string, m *Acquisition, logger *slog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return &Server{
		srv:    &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		logger: logger,
	}
}

// Start begins serving in the background. Listen failures are logged, not
// fatal; acquisition continues without metrics.
func (s *Server) Start() {
	go func() {
		s.logger.Info("Metrics listener started", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Warn("Metrics listener stopped", "error", err)
		}
	}()
}

// Stop shuts the listener down gracefully.
func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		s.logger.Warn("Metrics listener shutdown failed", "error", err)
	}
}
