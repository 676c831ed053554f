package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-go/vai-talk/pkg/core"
	"github.com/vango-go/vai-talk/pkg/core/types"
)

// Metrics contains all Prometheus metrics for the talk service
type Metrics struct {
	registry *prometheus.Registry

	// Pipeline metrics
	StageDuration *prometheus.HistogramVec
	StageFailures *prometheus.CounterVec
	Turns         *prometheus.CounterVec
	Artifacts     prometheus.Counter

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates the metrics on a private registry, so several servers can
// coexist in one process.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vai_talk_stage_duration_seconds",
			Help:    "Duration of each pipeline stage",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
		}, []string{"stage"}),
		StageFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vai_talk_stage_failures_total",
			Help: "Total number of failed pipeline stages",
		}, []string{"stage", "kind"}),
		Turns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vai_talk_turns_total",
			Help: "Total number of turns appended to conversation history",
		}, []string{"role"}),
		Artifacts: f.NewCounter(prometheus.CounterOpts{
			Name: "vai_talk_audio_artifacts_total",
			Help: "Total number of audio artifacts published",
		}),

		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vai_talk_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status_code"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vai_talk_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// ObserveStage records one stage outcome.
func (m *Metrics) ObserveStage(stage core.Stage, elapsed time.Duration, err error) {
	m.StageDuration.WithLabelValues(string(stage)).Observe(elapsed.Seconds())
	if err != nil {
		kind := "unknown"
		if se, ok := core.StageFailure(err); ok {
			kind = string(se.Kind)
		}
		m.StageFailures.WithLabelValues(string(stage), kind).Inc()
		return
	}
	if stage == core.StageTTS {
		m.Artifacts.Inc()
	}
}

// ObserveTurn counts a turn appended to history.
func (m *Metrics) ObserveTurn(role types.Role) {
	m.Turns.WithLabelValues(string(role)).Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, route string, status int, elapsed time.Duration) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
