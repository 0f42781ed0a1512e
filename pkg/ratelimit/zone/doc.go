/*
Package zone defines rate-limit zones: named policies made of a request rate,
an optional burst capacity and an optional no-delay mode.

Zones are usually written as directives, using the same vocabulary as nginx's
limit_req:

	z, err := zone.Parse("zone=api rate=10r/s burst=20 nodelay")
	if err != nil {
		// err is an *errors.ValidationError
	}
	fmt.Println(z.Rate().TimePerRequest()) // 100ms

Directive grammar:

	zone=<name> rate=<count>r/<unit> [burst=<count>] [nodelay]

Units are s|sec|second, m|min|minute, h|hour and d|day. Tokens are
case-insensitive and may appear in any order, but at most once each.
String returns the canonical form (zone, rate, burst, nodelay; units
abbreviated; lower case), so parsing a canonical directive and formatting it
again yields the same text.

Zones can also be built directly:

	rate := zone.MustRequestRate(5, zone.Minute)
	z, err := zone.New("login", rate, zone.WithBurst(3))

A zone is immutable. Buckets take a snapshot of the zone they were created
with; registering a new policy under the same name affects new buckets only.
*/
package zone
