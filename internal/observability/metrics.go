package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	activityPersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "activities_service",
		Subsystem: "persistence",
		Name:      "last_activity_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent activity batch committed to Postgres.",
	})
	ingestAcceptedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "activities_service",
		Subsystem: "ingest",
		Name:      "activities_accepted_total",
		Help:      "Number of activities persisted by ingest requests.",
	})
	ingestRejectedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "activities_service",
		Subsystem: "ingest",
		Name:      "activities_rejected_total",
		Help:      "Number of candidate activities dropped during ingest, labeled by reason.",
	}, []string{"reason"})
	aggregateDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "activities_service",
		Subsystem: "aggregate",
		Name:      "duration_seconds",
		Help:      "Time spent loading and folding a track history.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
	})
)

func init() {
	prometheus.MustRegister(activityPersistGauge, ingestAcceptedCounter, ingestRejectedCounter, aggregateDuration)
}

// RecordActivityPersisted updates the persistence watermark gauge.
func RecordActivityPersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	activityPersistGauge.Set(float64(ts.Unix()))
}

// RecordIngestAccepted counts activities written by an ingest request.
func RecordIngestAccepted(n int) {
	if n <= 0 {
		return
	}
	ingestAcceptedCounter.Add(float64(n))
}

// RecordIngestRejected counts a dropped candidate.
func RecordIngestRejected(reason string) {
	ingestRejectedCounter.WithLabelValues(reason).Inc()
}

// IngestRejected exposes the rejection counter for a reason, mainly for tests.
func IngestRejected(reason string) prometheus.Counter {
	return ingestRejectedCounter.WithLabelValues(reason)
}

// ObserveAggregate records the time elapsed since start.
func ObserveAggregate(start time.Time) {
	aggregateDuration.Observe(time.Since(start).Seconds())
}
