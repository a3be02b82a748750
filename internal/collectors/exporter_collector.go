package collectors

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ExporterCollector exposes metrics about the exporter itself
type ExporterCollector struct {
	// Prometheus metrics
	// scrapesTotal: scrapes served, by result (success, failure)
	// scrapeDuration: wall time of the last scrape
	// categoryFailures: categories that contributed no lines, by reason
	// categoryLines: lines each category contributed to the last scrape
	// uapiCalls: uapi invocations, by module, function and outcome
	// uapiCallDuration: uapi invocation latency
	scrapesTotal     *prometheus.CounterVec
	scrapeDuration   prometheus.Gauge
	categoryFailures *prometheus.CounterVec
	categoryLines    *prometheus.GaugeVec
	uapiCalls        *prometheus.CounterVec
	uapiCallDuration *prometheus.HistogramVec
}

// NewExporterCollector creates a new ExporterCollector
// Returns:
// - *ExporterCollector: new ExporterCollector instance
func NewExporterCollector() *ExporterCollector {
	return &ExporterCollector{
		scrapesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cpanel_exporter_scrapes_total",
				Help: "Total number of scrapes served by the exporter",
			},
			[]string{"result"}, // success, failure
		),
		scrapeDuration: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "cpanel_exporter_last_scrape_duration_seconds",
				Help: "Duration of the last scrape in seconds",
			},
		),
		categoryFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cpanel_exporter_category_failures_total",
				Help: "Number of times a category contributed no lines because of a failure",
			},
			[]string{"category", "reason"},
		),
		categoryLines: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cpanel_exporter_category_lines",
				Help: "Number of lines each category contributed to the last scrape",
			},
			[]string{"category"},
		),
		uapiCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cpanel_exporter_uapi_calls_total",
				Help: "Number of uapi invocations by outcome",
			},
			[]string{"module", "function", "outcome"},
		),
		uapiCallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cpanel_exporter_uapi_call_duration_seconds",
				Help:    "Duration of uapi invocations in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"module", "function"},
		),
	}
}

func (c *ExporterCollector) Name() string {
	return "exporter"
}

// Describe implements the prometheus.Collector interface
func (c *ExporterCollector) Describe(ch chan<- *prometheus.Desc) {
	c.scrapesTotal.Describe(ch)
	c.scrapeDuration.Describe(ch)
	c.categoryFailures.Describe(ch)
	c.categoryLines.Describe(ch)
	c.uapiCalls.Describe(ch)
	c.uapiCallDuration.Describe(ch)
}

// Collect implements the prometheus.Collector interface
func (c *ExporterCollector) Collect(ch chan<- prometheus.Metric) {
	c.scrapesTotal.Collect(ch)
	c.scrapeDuration.Collect(ch)
	c.categoryFailures.Collect(ch)
	c.categoryLines.Collect(ch)
	c.uapiCalls.Collect(ch)
	c.uapiCallDuration.Collect(ch)
}

// ObserveScrape records the result and duration of a finished scrape
func (c *ExporterCollector) ObserveScrape(success bool, duration time.Duration) {
	result := "success"
	if !success {
		result = "failure"
	}
	c.scrapesTotal.WithLabelValues(result).Inc()
	c.scrapeDuration.Set(duration.Seconds())
}

// ObserveCategory records how many lines a category produced and, when it
// degraded, why
func (c *ExporterCollector) ObserveCategory(category string, lines int, reason string) {
	c.categoryLines.WithLabelValues(category).Set(float64(lines))
	if reason != "" {
		c.categoryFailures.WithLabelValues(category, reason).Inc()
	}
}

// ObserveCall implements uapi.Observer
func (c *ExporterCollector) ObserveCall(module, function, outcome string, duration time.Duration) {
	c.uapiCalls.WithLabelValues(module, function, outcome).Inc()
	c.uapiCallDuration.WithLabelValues(module, function).Observe(duration.Seconds())
}
