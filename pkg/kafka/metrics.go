package kafka

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var publishLabels = []string{"topic", "event_type"}

var (
	eventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: "events",
		Name:      "published_total",
		Help:      "Domain events accepted by the brokers.",
	}, publishLabels)

	eventPublishFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: "events",
		Name:      "publish_failures_total",
		Help:      "Domain events the brokers did not accept.",
	}, publishLabels)

	eventPublishSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "storefront",
		Subsystem: "events",
		Name:      "publish_duration_seconds",
		Help:      "Time spent writing one event, acks included.",
		Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
	}, publishLabels)
)

func observePublish(topic, eventType string, started time.Time, err error) {
	eventPublishSeconds.WithLabelValues(topic, eventType).Observe(time.Since(started).Seconds())
	if err != nil {
		eventPublishFailures.WithLabelValues(topic, eventType).Inc()
		return
	}
	eventsPublished.WithLabelValues(topic, eventType).Inc()
}
