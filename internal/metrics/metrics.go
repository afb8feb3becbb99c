// Package metrics exposes Prometheus counters for scraping, Gemini calls and
// agent fallbacks. Metrics are registered once on the default registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "phone_advisor"

var (
	// ScrapeRuns counts scrape invocations by outcome (ok, error, cached).
	ScrapeRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scrape_runs_total",
		Help:      "Total scrape runs by status",
	}, []string{"status"})

	PhonesScraped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "phones_scraped_total",
		Help:      "Total phones structured from product pages",
	})

	ProductsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "products_skipped_total",
		Help:      "Product pages dropped while scraping",
	}, []string{"reason"})

	// GeminiRequests counts calls to the Gemini API by operation and status.
	GeminiRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "gemini_requests_total",
		Help:      "Total Gemini API calls",
	}, []string{"operation", "status"})

	GeminiDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "gemini_request_duration_seconds",
		Help:      "Gemini API call latency including retries",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"operation"})

	// Fallbacks counts rule-based answers served instead of Gemini output.
	Fallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "agent_fallbacks_total",
		Help:      "Rule-based answers served when Gemini was unavailable",
	}, []string{"agent"})

	SemanticSearches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "semantic_searches_total",
		Help:      "Semantic searches by query vector source (cache, api)",
	}, []string{"source"})
)

// Handler returns the Prometheus HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Status maps an error to a metric label.
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
