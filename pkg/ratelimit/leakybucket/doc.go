/*
Package leakybucket provides the queueing leaky bucket that paces admissions
for one (zone, scope) pair.

A bucket has a fixed number of slots, the zone's burst or 1 when no burst is
configured. Throttle reserves a slot with a compare-and-swap and queues the
caller; when no slot is free it returns false at once. A single pacing loop
drains the queue in FIFO order:

	b := leakybucket.New(zone.MustParse("zone=api rate=10r/s burst=20"), delay.Default)

	go func() {
		for b.DrainNext(ctx) {
		}
		b.Flush()
	}()

	admitted, err := b.Throttle(ctx)

Pacing Modes:

In delay mode each DrainNext admits one caller and then waits TimePerRequest
before giving the slot back, so admissions are spaced by at least one
interval.

With nodelay, DrainNext admits queued callers immediately and the slot
release happens in the background. Releases are chained: each one waits for
the previous release and then TimePerRequest, so up to burst callers are
admitted at once while capacity still comes back at the zone's rate.

Lifecycle:

	Open -> Closing -> Closed

Close moves an open bucket to Closing. Callers already queued are still
drained; a reservation that races the close is admitted immediately rather
than stranded. The bucket is Closed once the queue is empty, after which
DrainNext returns false.

Cancellation:

If the context passed to Throttle is done before the caller is admitted,
Throttle returns the context error. The reservation is not rolled back; it
stays in the queue and its slot is given back on the normal schedule.

Time:

All waits go through a delay.Delay, so tests drive buckets with a virtual
clock.

Thread Safety:

Throttle, Close and the accessors are safe for concurrent use. DrainNext and
Flush belong to the single goroutine that owns the pacing loop.
*/
package leakybucket
