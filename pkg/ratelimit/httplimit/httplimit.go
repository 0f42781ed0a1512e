package httplimit

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	rzerrors "github.com/vnykmshr/ratezone/pkg/common/errors"
	"github.com/vnykmshr/ratezone/pkg/ratelimit/zone"
)

// Throttler is the part of *service.Service the middleware needs.
type Throttler interface {
	Throttle(ctx context.Context, zoneName string, scope any) (bool, error)
	Zone(name string) (*zone.LimitRequestZone, bool)
}

// Middleware returns middleware that admits requests through the buckets
// of zoneName, one bucket per value returned by scope.
//
// Admitted requests reach next, possibly after queueing. Rejected requests
// get 429 Too Many Requests with a Retry-After header. A request cancelled
// while queued gets no response at all; one whose deadline passes gets 503.
// An unregistered zone is a configuration error: it is logged and answered
// with 500.
func Middleware(throttler Throttler, zoneName string, scope ScopeFunc, opts ...Option) func(http.Handler) http.Handler {
	if throttler == nil {
		panic("httplimit: throttler cannot be nil")
	}
	if scope == nil {
		scope = GlobalScope
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.logger.With("component", "httplimit", "zone", zoneName)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			admitted, err := throttler.Throttle(r.Context(), zoneName, scope(r))
			switch {
			case err == nil && admitted:
				next.ServeHTTP(w, r)

			case err == nil:
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter(throttler, zoneName)))
				if cfg.rejectHandler != nil {
					cfg.rejectHandler.ServeHTTP(w, r)
					return
				}
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)

			case errors.Is(err, context.Canceled):
				logger.Debug("request abandoned while queued", "error", err)

			case errors.Is(err, context.DeadlineExceeded):
				logger.Warn("request deadline exceeded while queued", "path", r.URL.Path)
				http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)

			case errors.Is(err, rzerrors.ErrClosed):
				logger.Warn("rate limit service closed", "path", r.URL.Path)
				http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)

			default:
				logger.Error("rate limit misconfigured", "error", err, "path", r.URL.Path)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		})
	}
}

// retryAfter returns the zone's time per request in whole seconds,
// rounded up and at least 1.
func retryAfter(throttler Throttler, zoneName string) int {
	z, ok := throttler.Zone(zoneName)
	if !ok {
		return 1
	}
	secs := int(math.Ceil(z.TimePerRequest().Seconds()))
	return max(secs, 1)
}

// discardHandler drops every record.
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (h discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h discardHandler) WithGroup(string) slog.Handler           { return h }
