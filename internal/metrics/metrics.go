package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	EmailsSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "emails_sent_total",
			Help: "Total recipients accepted by the mail service",
		},
	)

	EmailFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "email_failures_total",
			Help: "Total recipients not delivered, by outcome kind",
		},
		[]string{"kind"},
	)

	Campaigns = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "campaigns_total",
			Help: "Total campaign runs started",
		},
	)

	DispatchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "campaign_dispatch_seconds",
			Help:    "Duration of one per-recipient send call",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func Init() {
	prometheus.MustRegister(EmailsSent)
	prometheus.MustRegister(EmailFailures)
	prometheus.MustRegister(Campaigns)
	prometheus.MustRegister(DispatchDuration)
}
