package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	WebhookOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_outcomes_total",
			Help: "Outcomes of payment webhooks",
		},
		[]string{"outcome"},
	)

	WebhookProcessingSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "webhook_processing_seconds",
			Help:    "Time spent handling a payment webhook",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	PaymentStatusTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_payment_status_total",
			Help: "Resolved payment statuses of processed webhooks",
		},
		[]string{"status"},
	)

	FanOutJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fanout_jobs_total",
			Help: "Background fan-out jobs by type and result",
		},
		[]string{"type", "result"},
	)
)

func init() {
	prometheus.MustRegister(
		WebhookOutcomesTotal,
		WebhookProcessingSeconds,
		PaymentStatusTotal,
		FanOutJobsTotal,
	)
}

// ObserveWebhook records the outcome and latency of one delivery.
func ObserveWebhook(outcome string, startedAt time.Time) {
	WebhookOutcomesTotal.WithLabelValues(outcome).Inc()
	WebhookProcessingSeconds.WithLabelValues(outcome).Observe(time.Since(startedAt).Seconds())
}

// ObservePaymentStatus counts a resolved payment status.
func ObservePaymentStatus(status string) {
	PaymentStatusTotal.WithLabelValues(status).Inc()
}

// ObserveFanOut counts a finished background job.
func ObserveFanOut(jobType, result string) {
	FanOutJobsTotal.WithLabelValues(jobType, result).Inc()
}
