package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BotMetrics groups the Prometheus instruments for the search and viral flows.
// A nil receiver is a no-op so tests can run without touching the default
// registry.
type BotMetrics struct {
	SearchesTotal       *prometheus.CounterVec
	LinksGeneratedTotal *prometheus.CounterVec
	ViralCallbacksTotal *prometheus.CounterVec
	SearchDuration      prometheus.Histogram
	WebhookErrorsTotal  prometheus.Counter
}

func NewBotMetrics() *BotMetrics {
	return &BotMetrics{
		SearchesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shopbot_searches_total",
				Help: "Inline and message searches handled, by result kind",
			},
			[]string{"result"},
		),

		LinksGeneratedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shopbot_links_generated_total",
				Help: "Affiliate links synthesized and returned, by merchant",
			},
			[]string{"merchant"},
		),

		ViralCallbacksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shopbot_viral_callbacks_total",
				Help: "Viral callback transitions, by terminal state",
			},
			[]string{"outcome"},
		),

		SearchDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "shopbot_search_duration_seconds",
				Help:    "End-to-end search handling time",
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
			},
		),

		WebhookErrorsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "shopbot_webhook_errors_total",
				Help: "Inbound updates that failed handling",
			},
		),
	}
}

// RecordSearch counts one handled search with its result kind
// (matched, popular, no_match).
func (m *BotMetrics) RecordSearch(result string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.SearchesTotal.WithLabelValues(result).Inc()
	m.SearchDuration.Observe(durationSeconds)
}

func (m *BotMetrics) RecordLinkGenerated(merchantSlug string) {
	if m == nil {
		return
	}
	m.LinksGeneratedTotal.WithLabelValues(merchantSlug).Inc()
}

// RecordViralCallback counts one callback transition by terminal state
// (completed, rejected, merchant_missing).
func (m *BotMetrics) RecordViralCallback(outcome string) {
	if m == nil {
		return
	}
	m.ViralCallbacksTotal.WithLabelValues(outcome).Inc()
}

func (m *BotMetrics) RecordWebhookError() {
	if m == nil {
		return
	}
	m.WebhookErrorsTotal.Inc()
}
