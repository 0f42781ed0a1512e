package httplimit

import (
	"net"
	"net/http"
	"strings"
)

// ScopeFunc derives the bucket scope for a request. Requests with equal
// scopes share a bucket within the zone.
type ScopeFunc func(r *http.Request) any

// GlobalScope puts every request in the zone into one bucket.
func GlobalScope(*http.Request) any {
	return nil
}

// RemoteAddressScope keys requests by client address. The host part of
// RemoteAddr is used unless the request carries X-Forwarded-For, whose
// first entry wins, or X-Real-IP, which wins over both.
//
// Forwarding headers are trusted as sent; put the middleware behind a
// proxy that overwrites them.
func RemoteAddressScope(r *http.Request) any {
	addr := r.RemoteAddr
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			addr = first
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		addr = ip
	}
	return addr
}

// HeaderScope keys requests by the value of the named header.
// Requests without the header share one bucket.
func HeaderScope(name string) ScopeFunc {
	return func(r *http.Request) any {
		return r.Header.Get(name)
	}
}

// QueryScope keys requests by the first value of a query parameter.
func QueryScope(key string) ScopeFunc {
	return func(r *http.Request) any {
		return r.URL.Query().Get(key)
	}
}

// PathValueScope keys requests by a wildcard of the matched
// http.ServeMux pattern, such as "id" in "GET /users/{id}".
func PathValueScope(key string) ScopeFunc {
	return func(r *http.Request) any {
		return r.PathValue(key)
	}
}
