package metrics

import (
	"net/http"
	"strconv"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promcollect "github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storefront"

type PrometheusRecorder struct {
	registry          *prom.Registry
	requestDuration   *prom.HistogramVec
	requests          *prom.CounterVec
	presetActivations *prom.CounterVec
	rollbacks         *prom.CounterVec
	homeSeeds         *prom.CounterVec
	landingDuration   *prom.HistogramVec
	contentWarnings   *prom.CounterVec
}

// NewPrometheusRecorder registers every collector on reg, or on a fresh
// registry when reg is nil.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		registry: reg,
		requestDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prom.DefBuckets,
		}, []string{"method", "route"}),
		requests: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
		presetActivations: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "preset_activations_total",
			Help:      "Preset activations by preset and result",
		}, []string{"preset", "result"}),
		rollbacks: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "site_rollbacks_total",
			Help:      "Site settings rollbacks by result",
		}, []string{"result"}),
		homeSeeds: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "home_seeds_total",
			Help:      "Home page seeding attempts by seed mode and result",
		}, []string{"mode", "result"}),
		landingDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "landing_assembly_duration_seconds",
			Help:      "Landing page assembly latency by template",
			Buckets:   prom.DefBuckets,
		}, []string{"template"}),
		contentWarnings: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "content_warnings_total",
			Help:      "Non-fatal content warnings by code",
		}, []string{"code"}),
	}
	reg.MustRegister(
		pr.requestDuration, pr.requests, pr.presetActivations, pr.rollbacks,
		pr.homeSeeds, pr.landingDuration, pr.contentWarnings,
		promcollect.NewGoCollector(),
		promcollect.NewProcessCollector(promcollect.ProcessCollectorOpts{}),
	)
	return pr
}

// Handler serves the registry in the Prometheus exposition format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func (p *PrometheusRecorder) ObserveRequest(method, route string, status int, d time.Duration) {
	if p == nil {
		return
	}
	p.requestDuration.WithLabelValues(method, route).Observe(d.Seconds())
	p.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

func (p *PrometheusRecorder) IncPresetActivation(presetID string, result Result) {
	if p == nil {
		return
	}
	p.presetActivations.WithLabelValues(presetID, string(result)).Inc()
}

func (p *PrometheusRecorder) IncRollback(result Result) {
	if p == nil {
		return
	}
	p.rollbacks.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) IncHomeSeed(mode string, result Result) {
	if p == nil {
		return
	}
	p.homeSeeds.WithLabelValues(mode, string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveLandingAssembly(templateID string, d time.Duration) {
	if p == nil {
		return
	}
	p.landingDuration.WithLabelValues(templateID).Observe(d.Seconds())
}

func (p *PrometheusRecorder) AddContentWarnings(code string, n int) {
	if p == nil || n <= 0 {
		return
	}
	p.contentWarnings.WithLabelValues(code).Add(float64(n))
}
