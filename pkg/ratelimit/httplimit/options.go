package httplimit

import (
	"log/slog"
	"net/http"
)

// Option configures the middleware.
type Option func(*config)

type config struct {
	logger        *slog.Logger
	rejectHandler http.Handler
}

func defaultConfig() config {
	return config{
		logger: slog.New(discardHandler{}),
	}
}

// WithLogger sets the logger used for configuration errors.
// The default logger discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithRejectHandler replaces the default 429 response. The Retry-After
// header is already set when handler runs.
//
// Example:
//
//	httplimit.Middleware(svc, "api", httplimit.RemoteAddressScope,
//	    httplimit.WithRejectHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
//	        w.WriteHeader(http.StatusServiceUnavailable)
//	    })),
//	)
func WithRejectHandler(handler http.Handler) Option {
	return func(cfg *config) {
		cfg.rejectHandler = handler
	}
}
