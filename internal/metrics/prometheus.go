package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"docqa/internal/port"
)

// PrometheusObserver records pipeline events into its own registry.
type PrometheusObserver struct {
	registry        *prometheus.Registry
	ingests         *prometheus.CounterVec
	queries         *prometheus.CounterVec
	providerLatency *prometheus.HistogramVec
	fragments       prometheus.Histogram
	documents       prometheus.Gauge
}

func NewPrometheusObserver() *PrometheusObserver {
	o := &PrometheusObserver{
		registry: prometheus.NewRegistry(),
		ingests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docqa_ingest_total",
			Help: "Documents ingested, by outcome",
		}, []string{"status"}),
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docqa_query_total",
			Help: "Questions answered, by outcome",
		}, []string{"status"}),
		providerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "docqa_provider_latency_seconds",
			Help:    "Latency of embedding and generation provider calls",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider", "op"}),
		fragments: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "docqa_fragments_per_document",
			Help:    "Fragments produced per ingested document",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
		documents: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "docqa_documents",
			Help: "Documents resident in memory",
		}),
	}

	o.registry.MustRegister(
		o.ingests,
		o.queries,
		o.providerLatency,
		o.fragments,
		o.documents,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return o
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (o *PrometheusObserver) OnIngest(d time.Duration, fragments int, err error) {
	o.ingests.WithLabelValues(status(err)).Inc()
	if err == nil {
		o.fragments.Observe(float64(fragments))
	}
}

func (o *PrometheusObserver) OnQuery(d time.Duration, err error) {
	o.queries.WithLabelValues(status(err)).Inc()
}

func (o *PrometheusObserver) OnProviderCall(provider, op string, d time.Duration, err error) {
	o.providerLatency.WithLabelValues(provider, op).Observe(d.Seconds())
}

func (o *PrometheusObserver) OnDocuments(count int) {
	o.documents.Set(float64(count))
}

// CacheStats is what the query embedding cache reports.
type CacheStats interface {
	Stats() (hits, misses int64)
	Size() int
}

// WatchQueryCache exports the cache's counters, read at scrape time.
func (o *PrometheusObserver) WatchQueryCache(c CacheStats) {
	o.registry.MustRegister(
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "docqa_query_cache_hits_total",
			Help: "Question embeddings served from the cache",
		}, func() float64 {
			hits, _ := c.Stats()
			return float64(hits)
		}),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "docqa_query_cache_misses_total",
			Help: "Question embeddings computed by the provider",
		}, func() float64 {
			_, misses := c.Stats()
			return float64(misses)
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "docqa_query_cache_entries",
			Help: "Question embeddings currently cached",
		}, func() float64 {
			return float64(c.Size())
		}),
	)
}

func (o *PrometheusObserver) Registry() *prometheus.Registry {
	return o.registry
}

// Handler serves the registry in the Prometheus text format.
func (o *PrometheusObserver) Handler() http.Handler {
	return promhttp.HandlerFor(o.registry, promhttp.HandlerOpts{})
}

var _ port.MetricsObserver = (*PrometheusObserver)(nil)
