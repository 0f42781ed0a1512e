/*
Package httplimit adapts a rate limit service to net/http.

Middleware throttles each request through one zone. A ScopeFunc picks the
bucket inside the zone: GlobalScope shares one bucket, RemoteAddressScope
keys by client address, and HeaderScope, QueryScope and PathValueScope key
by a request value.

	svc, _ := service.NewWithConfig(service.Config{
		Zones: []string{"zone=api rate=10r/s burst=20"},
	})
	mux := http.NewServeMux()
	mux.Handle("/api/", httplimit.Middleware(svc, "api", httplimit.RemoteAddressScope)(apiHandler))

Rejected requests receive 429 Too Many Requests with a Retry-After header
of the zone's time per request, rounded up to whole seconds.
*/
package httplimit
