/*
Package service provides the rate limit service: a registry of zones and the
per-(zone, scope) leaky buckets created from them.

Basic usage:

	svc, err := service.NewWithConfig(service.Config{
		Zones: []string{
			"zone=api rate=10r/s burst=20",
			"zone=login rate=5r/m nodelay",
		},
		Logger: slog.Default(),
	})
	if err != nil {
		log.Fatal(err) // malformed directive
	}
	defer svc.Close()

	admitted, err := svc.Throttle(ctx, "api", clientIP)
	switch {
	case err != nil:
		// unknown zone, closed service or cancelled caller
	case !admitted:
		// respond with 429
	}

Scopes:

The scope is any comparable value. nil selects one bucket shared by every
caller of the zone; a client address or API key gives each its own bucket.
Scopes are compared and hashed but never interpreted.

Bucket Lifecycle:

Buckets are created on the first Throttle for a key and each runs its own
pacing goroutine. Every admitted request holds a reference on its bucket
until its slot is released. When the last reference is dropped the bucket
gets a grace period of one pacing interval; if no request arrives in that
time the bucket is closed and removed, otherwise it is reused. The number of
live buckets therefore tracks active keys rather than every key ever seen.

The handle table is sharded by an xxhash of the key so unrelated keys do not
share a lock, and creating or joining a bucket is atomic per key.

Policies:

SetZone and SetZoneDirective replace a zone's policy for buckets created
afterwards. Existing buckets keep their policy until they are evicted.

Errors:

  - malformed directives fail SetZoneDirective and NewWithConfig with an
    *errors.ValidationError
  - Throttle on an unregistered zone fails with an *errors.OperationError
    wrapping errors.ErrZoneNotFound, which is a configuration bug rather
    than a transient condition
  - a rejection is (false, nil), never an error

Observability:

Stats returns per-zone counters. StartReporter logs them on a cron schedule
through the configured slog.Logger, and Config.Metrics exports them to
Prometheus.
*/
package service
