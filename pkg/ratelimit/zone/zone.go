package zone

import (
	"strconv"
	"strings"
	"time"

	"github.com/vnykmshr/ratezone/pkg/common/validation"
)

const module = "zone"

// nameSeparators may not appear in a zone name: whitespace separates directive
// tokens and ':' is reserved.
const nameSeparators = ": \t\r\n"

// LimitRequestZone is a named throttling policy: a request rate, an optional
// burst capacity and the no-delay flag. The semantics follow nginx's
// limit_req_zone / limit_req directives.
//
// A LimitRequestZone is immutable once constructed and safe to share.
type LimitRequestZone struct {
	name    string
	rate    RequestRate
	burst   int
	noDelay bool
}

// Option configures optional zone fields.
type Option func(*options)

type options struct {
	burst    int
	hasBurst bool
	noDelay  bool
}

// WithBurst sets the burst capacity. Without it the zone has a single slot
// and never queues.
func WithBurst(burst int) Option {
	return func(o *options) {
		o.burst = burst
		o.hasBurst = true
	}
}

// WithNoDelay admits queued requests immediately and paces only the release
// of their slots.
func WithNoDelay() Option {
	return func(o *options) {
		o.noDelay = true
	}
}

// New creates a zone. The name is trimmed and lower-cased; zone names are
// case-insensitive.
func New(name string, rate RequestRate, opts ...Option) (*LimitRequestZone, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	name = NormalizeName(name)
	if err := validation.ValidateNotEmpty(module, "zone", name); err != nil {
		return nil, err
	}
	if err := validation.ValidateExcludes(module, "zone", name, nameSeparators); err != nil {
		return nil, err
	}
	if err := validation.ValidatePositive(module, "count", rate.count); err != nil {
		return nil, err
	}
	if o.hasBurst {
		if err := validation.ValidatePositive(module, "burst", o.burst); err != nil {
			return nil, err
		}
	}

	return &LimitRequestZone{
		name:    name,
		rate:    rate,
		burst:   o.burst,
		noDelay: o.noDelay,
	}, nil
}

// MustNew is like New but panics on invalid input.
func MustNew(name string, rate RequestRate, opts ...Option) *LimitRequestZone {
	z, err := New(name, rate, opts...)
	if err != nil {
		panic(err)
	}
	return z
}

// NormalizeName returns the canonical form of a zone name used for lookups.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Name returns the normalized zone name.
func (z *LimitRequestZone) Name() string { return z.name }

// Rate returns the zone's request rate.
func (z *LimitRequestZone) Rate() RequestRate { return z.rate }

// Burst returns the configured burst and whether one was set.
func (z *LimitRequestZone) Burst() (int, bool) { return z.burst, z.burst > 0 }

// NoDelay reports whether queued requests are admitted without waiting.
func (z *LimitRequestZone) NoDelay() bool { return z.noDelay }

// Slots is the effective bucket capacity: the burst, or 1 when unset.
func (z *LimitRequestZone) Slots() int {
	if z.burst > 0 {
		return z.burst
	}
	return 1
}

// TimePerRequest is shorthand for z.Rate().TimePerRequest().
func (z *LimitRequestZone) TimePerRequest() time.Duration {
	return z.rate.TimePerRequest()
}

// String returns the canonical directive:
//
//	zone=<name> rate=<count>r/<unit>[ burst=<n>][ nodelay]
func (z *LimitRequestZone) String() string {
	var b strings.Builder
	b.WriteString("zone=")
	b.WriteString(z.name)
	b.WriteString(" rate=")
	b.WriteString(z.rate.String())
	if burst, ok := z.Burst(); ok {
		b.WriteString(" burst=")
		b.WriteString(strconv.Itoa(burst))
	}
	if z.noDelay {
		b.WriteString(" nodelay")
	}
	return b.String()
}

// MarshalText implements encoding.TextMarshaler using the canonical directive.
func (z *LimitRequestZone) MarshalText() ([]byte, error) {
	return []byte(z.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler so zones can be decoded
// straight from configuration files.
func (z *LimitRequestZone) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*z = *parsed
	return nil
}
