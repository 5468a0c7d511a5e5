package scan

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the scan collectors.
type Metrics struct {
	MembersScanned     prometheus.Counter
	MatchesFound       *prometheus.CounterVec
	MediumResults      prometheus.Counter
	CommunityFailures  prometheus.Counter
	NotifyFailures     prometheus.Counter
	EnrichmentFailures prometheus.Counter
	DedupFailures      prometheus.Counter
	Scanning           prometheus.Gauge
	ScanDuration       prometheus.Histogram
}

// NewMetrics creates the scan collectors and registers them when reg is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		MembersScanned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tagscout",
			Subsystem: "scan",
			Name:      "members_scanned_total",
			Help:      "Non-bot members visited by the scan loop.",
		}),
		MatchesFound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tagscout",
			Subsystem: "scan",
			Name:      "matches_found_total",
			Help:      "Confirmed HIGH confidence matches by detection type.",
		}, []string{"type"}),
		MediumResults: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tagscout",
			Subsystem: "scan",
			Name:      "medium_results_total",
			Help:      "MEDIUM confidence results recorded without notification.",
		}),
		CommunityFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tagscout",
			Subsystem: "scan",
			Name:      "community_failures_total",
			Help:      "Communities whose scan failed.",
		}),
		NotifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tagscout",
			Subsystem: "scan",
			Name:      "notify_failures_total",
			Help:      "Match notifications that could not be delivered.",
		}),
		EnrichmentFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tagscout",
			Subsystem: "scan",
			Name:      "enrichment_failures_total",
			Help:      "Extended profile fetches that failed.",
		}),
		DedupFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tagscout",
			Subsystem: "scan",
			Name:      "dedup_failures_total",
			Help:      "Matches the dedup cache failed to store.",
		}),
		Scanning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tagscout",
			Subsystem: "scan",
			Name:      "in_progress",
			Help:      "1 while a scan is running.",
		}),
		ScanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tagscout",
			Subsystem: "scan",
			Name:      "duration_seconds",
			Help:      "Wall time of completed scans.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.MembersScanned,
			m.MatchesFound,
			m.MediumResults,
			m.CommunityFailures,
			m.NotifyFailures,
			m.EnrichmentFailures,
			m.DedupFailures,
			m.Scanning,
			m.ScanDuration,
		)
	}

	return m
}
