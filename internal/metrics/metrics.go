package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	providerReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lessonplanner",
			Name:      "provider_requests_total",
			Help:      "Completion requests by provider, model and result",
		},
		[]string{"provider", "model", "result"},
	)

	providerLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lessonplanner",
			Name:      "provider_request_duration_seconds",
			Help:      "Duration of completion requests by provider and model",
			Buckets:   []float64{1, 2.5, 5, 10, 20, 30, 45, 60, 90},
		},
		[]string{"provider", "model"},
	)

	extractions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lessonplanner",
			Name:      "extractions_total",
			Help:      "PDF extractions by result (ok, short, rejected, failed)",
		},
		[]string{"backend", "result"},
	)

	pagesExtracted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lessonplanner",
			Name:      "pages_extracted_total",
			Help:      "Total PDF pages whose text was extracted",
		},
	)

	plans = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lessonplanner",
			Name:      "plans_total",
			Help:      "Plan generation outcomes (success, failed, config_error, demo)",
		},
		[]string{"outcome"},
	)

	once sync.Once
)

// Init registers collectors. Safe to call more than once.
func Init() {
	once.Do(func() {
		prometheus.MustRegister(providerReqs, providerLatency, extractions, pagesExtracted, plans)
	})
}

// Handler returns the http.Handler for /metrics
func Handler() http.Handler { return promhttp.Handler() }

func ObserveProvider(provider, model, result string, dur time.Duration) {
	providerReqs.WithLabelValues(provider, model, result).Inc()
	providerLatency.WithLabelValues(provider, model).Observe(dur.Seconds())
}

func IncExtraction(backend, result string) { extractions.WithLabelValues(backend, result).Inc() }
func AddPages(n int)                       { pagesExtracted.Add(float64(n)) }
func IncPlan(outcome string)               { plans.WithLabelValues(outcome).Inc() }
