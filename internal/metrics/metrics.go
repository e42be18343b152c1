// Package metrics holds the Prometheus collectors of a scraping process.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the scraper collectors on a dedicated registry. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	Registry           *prometheus.Registry
	PagesVisited       *prometheus.CounterVec
	NavigationDuration prometheus.Histogram
	ItemsExtracted     *prometheus.CounterVec
	ErrorsTotal        *prometheus.CounterVec
	FieldMisses        *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	pages := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_pages_visited_total",
			Help: "Pages navigated to, by kind (grid or detail).",
		},
		[]string{"kind"},
	)
	navigation := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "storefront_navigation_duration_seconds",
			Help:    "Time spent loading a page.",
			Buckets: prometheus.DefBuckets,
		},
	)
	items := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_items_extracted_total",
			Help: "Records extracted, by kind (summary or detail).",
		},
		[]string{"kind"},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_errors_total",
			Help: "Scraping errors by class.",
		},
		[]string{"class"},
	)
	misses := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_field_misses_total",
			Help: "Best-effort fields that were absent on the page.",
		},
		[]string{"field"},
	)

	registry.MustRegister(pages, navigation, items, errorsTotal, misses)

	return &Metrics{
		Registry:           registry,
		PagesVisited:       pages,
		NavigationDuration: navigation,
		ItemsExtracted:     items,
		ErrorsTotal:        errorsTotal,
		FieldMisses:        misses,
	}
}

func (m *Metrics) IncPage(kind string) {
	if m == nil {
		return
	}
	m.PagesVisited.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveNavigation(d time.Duration) {
	if m == nil {
		return
	}
	m.NavigationDuration.Observe(d.Seconds())
}

func (m *Metrics) AddItems(kind string, n int) {
	if m == nil {
		return
	}
	m.ItemsExtracted.WithLabelValues(kind).Add(float64(n))
}

// IncError counts an error under its class name, e.g. "TimeoutError".
func (m *Metrics) IncError(class string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(class).Inc()
}

func (m *Metrics) IncFieldMiss(field string) {
	if m == nil {
		return
	}
	m.FieldMisses.WithLabelValues(field).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
