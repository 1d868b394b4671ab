package metrics

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cvmapper"

var (
	registry = prometheus.NewRegistry()

	conversionsStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "conversion",
		Name:      "started_total",
		Help:      "Total conversions started.",
	})
	conversionsFinished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "conversion",
		Name:      "finished_total",
		Help:      "Total conversions finished, by outcome.",
	}, []string{"outcome"})
	conversionDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "conversion",
		Name:      "duration_seconds",
		Help:      "Conversion duration in seconds, upstream call included.",
		Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60, 120},
	}, []string{"outcome"})
	experiencesRendered = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "conversion",
		Name:      "experiences",
		Help:      "Experience blocks rendered per document.",
		Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
	})
	unresolvedTokens = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "conversion",
		Name:      "unresolved_tokens_total",
		Help:      "Placeholders left in rendered documents.",
	})
	upstreamRetries = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "upstream",
		Name:      "retries_total",
		Help:      "Retries of the reformulation call.",
	})
	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed.",
	}, []string{"method", "path", "status"})
)

func init() {
	registry.MustRegister(
		conversionsStarted,
		conversionsFinished,
		conversionDuration,
		experiencesRendered,
		unresolvedTokens,
		upstreamRetries,
		httpRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// IncConversionStarted increments the started counter.
func IncConversionStarted() {
	conversionsStarted.Inc()
}

// ObserveConversion records a finished conversion. outcome is "success" or
// the failure kind.
func ObserveConversion(outcome string, seconds float64, experiences int) {
	if seconds < 0 {
		seconds = 0
	}
	conversionsFinished.WithLabelValues(outcome).Inc()
	conversionDuration.WithLabelValues(outcome).Observe(seconds)
	if outcome == "success" {
		experiencesRendered.Observe(float64(experiences))
	}
}

// AddUnresolvedTokens counts placeholders left in a rendered document.
func AddUnresolvedTokens(n int) {
	if n > 0 {
		unresolvedTokens.Add(float64(n))
	}
}

// IncUpstreamRetry counts one retry of the reformulation call.
func IncUpstreamRetry() {
	upstreamRetries.Inc()
}

// ObserveHTTPRequest counts a served request. path is the route template.
func ObserveHTTPRequest(method, path string, status int) {
	if path == "" {
		path = "unmatched"
	}
	httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return gin.WrapH(h)
}

// Registry returns the registry backing Handler.
func Registry() *prometheus.Registry {
	return registry
}
