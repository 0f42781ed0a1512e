package zone

import (
	"strconv"
	"strings"
	"time"

	rzerrors "github.com/vnykmshr/ratezone/pkg/common/errors"
	"github.com/vnykmshr/ratezone/pkg/common/validation"
)

// Period is the time unit a RequestRate is expressed in.
type Period int

const (
	// Second is a one second period.
	Second Period = iota
	// Minute is a one minute period.
	Minute
	// Hour is a one hour period.
	Hour
	// Day is a 24 hour period.
	Day
)

// Duration returns the fixed length of the period.
func (p Period) Duration() time.Duration {
	switch p {
	case Second:
		return time.Second
	case Minute:
		return time.Minute
	case Hour:
		return time.Hour
	case Day:
		return 24 * time.Hour
	}
	panic("zone: unknown period " + strconv.Itoa(int(p)))
}

// String returns the canonical unit used in directives: s, m, h or d.
func (p Period) String() string {
	switch p {
	case Second:
		return "s"
	case Minute:
		return "m"
	case Hour:
		return "h"
	case Day:
		return "d"
	}
	return "Period(" + strconv.Itoa(int(p)) + ")"
}

func (p Period) valid() bool {
	return p >= Second && p <= Day
}

// ParsePeriod parses a unit name. Accepted spellings, case-insensitive:
// s, sec, second, m, min, minute, h, hour, d, day.
func ParsePeriod(unit string) (Period, error) {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "s", "sec", "second":
		return Second, nil
	case "m", "min", "minute":
		return Minute, nil
	case "h", "hour":
		return Hour, nil
	case "d", "day":
		return Day, nil
	}
	return 0, rzerrors.NewValidationError(module, "unit", unit, "unknown unit").
		WithHint("use s, m, h or d")
}

// RequestRate is "Count requests per Period". The zero value is not valid.
type RequestRate struct {
	count  int
	period Period
}

// NewRequestRate creates a RequestRate. count must be positive.
func NewRequestRate(count int, period Period) (RequestRate, error) {
	if err := validation.ValidatePositive(module, "count", count); err != nil {
		return RequestRate{}, err
	}
	if !period.valid() {
		return RequestRate{}, rzerrors.NewValidationError(module, "period", int(period), "unknown period")
	}
	return RequestRate{count: count, period: period}, nil
}

// MustRequestRate is like NewRequestRate but panics on invalid input.
func MustRequestRate(count int, period Period) RequestRate {
	r, err := NewRequestRate(count, period)
	if err != nil {
		panic(err)
	}
	return r
}

// Count returns the number of requests allowed per period.
func (r RequestRate) Count() int { return r.count }

// Period returns the period the count applies to.
func (r RequestRate) Period() Period { return r.period }

// IsZero reports whether r is the zero (invalid) rate.
func (r RequestRate) IsZero() bool { return r.count == 0 }

// TimePerRequest is the minimum spacing between two admissions.
//
// It is computed as Period().Duration() / Count() with time.Duration integer
// division: nanosecond precision, truncated toward zero. 3r/s is therefore
// 333.333333ms, and rates above one request per nanosecond yield zero.
func (r RequestRate) TimePerRequest() time.Duration {
	if r.count <= 0 {
		return 0
	}
	return r.period.Duration() / time.Duration(r.count)
}

// String formats the rate as "<count>r/<unit>".
func (r RequestRate) String() string {
	return strconv.Itoa(r.count) + "r/" + r.period.String()
}

// ParseRequestRate parses "<count>r/<unit>", for example "10r/s" or "5r/minute".
func ParseRequestRate(s string) (RequestRate, error) {
	countPart, unitPart, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "r/")
	if !ok || strings.TrimSpace(countPart) == "" || strings.TrimSpace(unitPart) == "" {
		return RequestRate{}, rzerrors.NewValidationError(module, "rate", s, "malformed rate").
			WithHint("expected <count>r/<unit>, e.g. 10r/s")
	}

	count, err := strconv.Atoi(strings.TrimSpace(countPart))
	if err != nil {
		return RequestRate{}, rzerrors.NewValidationError(module, "rate", s, "count is not a number")
	}

	period, err := ParsePeriod(unitPart)
	if err != nil {
		return RequestRate{}, err
	}

	return NewRequestRate(count, period)
}
