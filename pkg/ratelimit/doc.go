/*
Package ratelimit groups the admission control packages.

A zone (package zone) is a named policy: a request rate, an optional burst
and a nodelay flag, written as a directive:

	zone=api rate=10r/s burst=20 nodelay

A leaky bucket (package leakybucket) enforces one zone for one scope. It
holds Slots reservations; a request that finds no free slot is rejected at
once, the rest wait in FIFO order and are admitted one time-per-request
apart. With nodelay they are admitted immediately and only the release of
their slots is paced.

The service (package service) owns the zones and creates a bucket for each
(zone, scope) pair on first use, evicting it after it stays idle for one
time-per-request:

	ok, err := svc.Throttle(ctx, "api", clientIP)

Package httplimit applies a zone to HTTP handlers.

All types are safe for concurrent use and honour context cancellation.
*/
package ratelimit
