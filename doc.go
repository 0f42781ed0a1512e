/*
Package ratezone provides in-process admission control built on named rate
limit zones and per-scope leaky buckets.

Rate Limiting (pkg/ratelimit):
  - zone: Zone policies and their "zone=... rate=..." directive syntax
  - leakybucket: Bounded FIFO bucket that admits one request per interval
  - service: Zone registry with on-demand buckets per (zone, scope)
  - httplimit: net/http middleware with per-client scopes

Support (pkg):
  - delay: Cancellable time source used for pacing
  - metrics: Prometheus instrumentation
  - common/errors: Validation and operation errors

Example usage:

	import "github.com/vnykmshr/ratezone/pkg/ratelimit/service"

	svc, err := service.NewWithConfig(service.Config{
		Zones: []string{"zone=api rate=10r/s burst=20"},
	})
	if err != nil {
		return err
	}
	defer svc.Close()

	if ok, _ := svc.Throttle(ctx, "api", clientIP); ok {
		handle(req)
	}
*/
package ratezone
