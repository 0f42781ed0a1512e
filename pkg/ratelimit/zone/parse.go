package zone

import (
	"strconv"
	"strings"

	rzerrors "github.com/vnykmshr/ratezone/pkg/common/errors"
)

// Parse parses a zone directive:
//
//	zone=<name> rate=<count>r/<unit> [burst=<count>] [nodelay]
//
// Tokens are separated by whitespace, may appear in any order and are
// case-insensitive; each may appear at most once. Every failure is a
// *errors.ValidationError naming the offending token.
func Parse(directive string) (*LimitRequestZone, error) {
	var (
		name                          string
		rate                          RequestRate
		opts                          []Option
		seenZone, seenRate, seenBurst bool
		seenNoDelay                   bool
	)

	for _, token := range strings.Fields(directive) {
		lower := strings.ToLower(token)

		switch {
		case strings.HasPrefix(lower, "zone="):
			if seenZone {
				return nil, duplicate("zone", token)
			}
			seenZone = true
			name = strings.TrimPrefix(lower, "zone=")

		case strings.HasPrefix(lower, "rate="):
			if seenRate {
				return nil, duplicate("rate", token)
			}
			seenRate = true
			r, err := ParseRequestRate(strings.TrimPrefix(lower, "rate="))
			if err != nil {
				return nil, err
			}
			rate = r

		case strings.HasPrefix(lower, "burst="):
			if seenBurst {
				return nil, duplicate("burst", token)
			}
			seenBurst = true
			raw := strings.TrimPrefix(lower, "burst=")
			burst, err := strconv.Atoi(raw)
			if err != nil {
				return nil, rzerrors.NewValidationError(module, "burst", raw, "not a number")
			}
			opts = append(opts, WithBurst(burst))

		case lower == "nodelay":
			if seenNoDelay {
				return nil, duplicate("nodelay", token)
			}
			seenNoDelay = true
			opts = append(opts, WithNoDelay())

		default:
			return nil, rzerrors.NewValidationError(module, "directive", token, "unknown token").
				WithHint("expected zone=, rate=, burst= or nodelay")
		}
	}

	if !seenZone {
		return nil, missing("zone", "zone=<name>")
	}
	if !seenRate {
		return nil, missing("rate", "rate=<count>r/<unit>")
	}

	return New(name, rate, opts...)
}

// MustParse is like Parse but panics if the directive is invalid.
func MustParse(directive string) *LimitRequestZone {
	z, err := Parse(directive)
	if err != nil {
		panic(err)
	}
	return z
}

func duplicate(field, token string) error {
	return rzerrors.NewValidationError(module, field, token, "specified more than once")
}

func missing(field, form string) error {
	return rzerrors.NewValidationError(module, field, "", "is required").
		WithHint("add " + form)
}
