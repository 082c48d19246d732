package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	linesIngestedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "logwarden_lines_ingested_total",
		Help: "Log lines accepted by the ingestion gateway, by result (new, duplicate)",
	}, []string{"result"})
	analysesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "logwarden_analyses_total",
		Help: "Completed analyses, by outcome (provider, fallback)",
	}, []string{"outcome"})
	providerRetriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "logwarden_provider_retries_total",
		Help: "Rate-limited provider calls that were retried",
	}, []string{"provider"})
	providerLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "logwarden_provider_request_seconds",
		Help:    "Provider call latency including retries",
		Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
	}, []string{"provider"})
	alertsCreatedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "logwarden_alerts_created_total",
		Help: "Alerts created, by severity",
	}, []string{"severity"})
	notificationFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "logwarden_notification_failures_total",
		Help: "Alert notifications that could not be delivered",
	})
	queueDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "logwarden_analysis_queue_dropped_total",
		Help: "Records not enqueued for analysis because the queue was full",
	})
	watchedDirectories = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "logwarden_watched_directories",
		Help: "Directories with a running watch loop",
	})
)

// Register registers Prometheus collectors. Call once at startup.
func Register(registry *prometheus.Registry) {
	registry.MustRegister(
		linesIngestedTotal,
		analysesTotal,
		providerRetriesTotal,
		providerLatency,
		alertsCreatedTotal,
		notificationFailuresTotal,
		queueDroppedTotal,
		watchedDirectories,
	)
}

// IncLineIngested counts a line handed to the gateway.
func IncLineIngested(duplicate bool) {
	if duplicate {
		linesIngestedTotal.WithLabelValues("duplicate").Inc()
		return
	}
	linesIngestedTotal.WithLabelValues("new").Inc()
}

// IncAnalysis counts a completed analysis. outcome is "provider" or "fallback".
func IncAnalysis(outcome string) { analysesTotal.WithLabelValues(outcome).Inc() }

func IncProviderRetry(provider string) { providerRetriesTotal.WithLabelValues(provider).Inc() }

func ObserveProviderLatency(provider string, d time.Duration) {
	providerLatency.WithLabelValues(provider).Observe(d.Seconds())
}

func IncAlertCreated(severity string) { alertsCreatedTotal.WithLabelValues(severity).Inc() }

func IncNotificationFailure() { notificationFailuresTotal.Inc() }

func IncQueueDropped() { queueDroppedTotal.Inc() }

func IncWatchedDirectories() { watchedDirectories.Inc() }

func DecWatchedDirectories() { watchedDirectories.Dec() }
