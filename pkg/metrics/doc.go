// Package metrics provides Prometheus instrumentation for the rate limit
// service.
//
// # Quick Start
//
// Metrics are opt-in through the service configuration:
//
//	svc, err := service.NewWithConfig(service.Config{
//		Metrics: metrics.Config{
//			Enabled:  true,
//			Registry: prometheus.NewRegistry(),
//		},
//	})
//
// Then expose them via HTTP:
//
//	http.Handle("/metrics", promhttp.Handler())
//
// # Available Metrics
//
//   - ratezone_zone_requests_total{zone}: throttle calls
//   - ratezone_zone_outcomes_total{zone,outcome}: calls by outcome (admitted, rejected, cancelled)
//   - ratezone_bucket_created_total{zone}: buckets created
//   - ratezone_bucket_evicted_total{zone}: idle buckets removed
//   - ratezone_bucket_live{zone}: live buckets
//
// Calls against an unknown zone are not counted, so label cardinality is
// bounded by the registered zones.
//
// # Configuration
//
//	config := metrics.Config{
//		Enabled:   true,
//		Registry:  prometheus.DefaultRegisterer,
//		Namespace: "myapp",                             // Override default "ratezone"
//		Labels:    prometheus.Labels{"instance": "a"}, // Constant labels
//	}
//
// A disabled Config builds a nil *Registry; every recording method is a
// no-op on nil.
package metrics
