package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome is the result of one throttle call.
type Outcome string

const (
	// Admitted means the caller was let through.
	Admitted Outcome = "admitted"
	// Rejected means every slot was in use.
	Rejected Outcome = "rejected"
	// Cancelled means the caller's context ended before admission.
	Cancelled Outcome = "cancelled"
)

// Registry holds the metric instances for one rate limit service.
//
// All methods are safe on a nil *Registry, which records nothing.
type Registry struct {
	Requests       *prometheus.CounterVec
	Outcomes       *prometheus.CounterVec
	BucketsCreated *prometheus.CounterVec
	BucketsEvicted *prometheus.CounterVec
	LiveBuckets    *prometheus.GaugeVec
}

// NewRegistry creates and registers the metrics described by config.
// It panics if a metric with the same name is already registered, as
// promauto does.
func NewRegistry(config Config) *Registry {
	reg := config.Registry
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	namespace := config.Namespace
	if namespace == "" {
		namespace = DefaultNamespace
	}
	factory := promauto.With(reg)

	return &Registry{
		Requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Subsystem:   "zone",
				Name:        "requests_total",
				Help:        "Total number of throttle calls",
				ConstLabels: config.Labels,
			},
			[]string{"zone"},
		),

		Outcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Subsystem:   "zone",
				Name:        "outcomes_total",
				Help:        "Throttle calls by outcome",
				ConstLabels: config.Labels,
			},
			[]string{"zone", "outcome"},
		),

		BucketsCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Subsystem:   "bucket",
				Name:        "created_total",
				Help:        "Total number of buckets created",
				ConstLabels: config.Labels,
			},
			[]string{"zone"},
		),

		BucketsEvicted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Subsystem:   "bucket",
				Name:        "evicted_total",
				Help:        "Total number of idle buckets removed",
				ConstLabels: config.Labels,
			},
			[]string{"zone"},
		),

		LiveBuckets: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   namespace,
				Subsystem:   "bucket",
				Name:        "live",
				Help:        "Number of live buckets",
				ConstLabels: config.Labels,
			},
			[]string{"zone"},
		),
	}
}

// ObserveThrottle records one throttle call and its outcome.
func (r *Registry) ObserveThrottle(zone string, outcome Outcome) {
	if r == nil {
		return
	}
	r.Requests.WithLabelValues(zone).Inc()
	r.Outcomes.WithLabelValues(zone, string(outcome)).Inc()
}

// BucketCreated records a new bucket for zone.
func (r *Registry) BucketCreated(zone string) {
	if r == nil {
		return
	}
	r.BucketsCreated.WithLabelValues(zone).Inc()
	r.LiveBuckets.WithLabelValues(zone).Inc()
}

// BucketRemoved records that a bucket for zone left the service. evicted is
// false when the bucket was closed by a shutdown rather than by idling.
func (r *Registry) BucketRemoved(zone string, evicted bool) {
	if r == nil {
		return
	}
	r.LiveBuckets.WithLabelValues(zone).Dec()
	if evicted {
		r.BucketsEvicted.WithLabelValues(zone).Inc()
	}
}
