package middle

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yumyai/bgcselect/pkg/model"
)

const namespace = "bgcselect"

// Metrics holds the collectors of one process on a private registry.
type Metrics struct {
	registry     *prometheus.Registry
	records      *prometheus.CounterVec
	analysis     prometheus.Histogram
	httpRequests *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Analyzed record files by verdict.",
		}, []string{"verdict"}),
		analysis: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_seconds",
			Help:      "Time to read and assess one record file.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "status"}),
	}

	m.registry.MustRegister(
		m.records,
		m.analysis,
		m.httpRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveRecord counts one analyzed file. Skipped files use the "skipped" label.
func (m *Metrics) ObserveRecord(v model.Verdict, elapsed time.Duration) {
	label := string(v)
	if label == "" {
		label = "skipped"
	}
	m.records.WithLabelValues(label).Inc()
	m.analysis.Observe(elapsed.Seconds())
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// CountRequests counts every request by method and final status code.
func (m *Metrics) CountRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wrapped := wrapResponseWriter(w)
		defer func() {
			m.httpRequests.WithLabelValues(r.Method, strconv.Itoa(wrapped.Status())).Inc()
		}()
		next.ServeHTTP(wrapped, r)
	})
}
