package leakybucket

import (
	"context"

	"github.com/vnykmshr/ratezone/pkg/ratelimit/zone"
)

// Throttle reserves a slot and waits until the pacing loop admits the
// caller. It returns (false, nil) without side effects when every slot is in
// use.
//
// If ctx is done before admission, Throttle returns (false, ctx.Err()). The
// reservation stays queued and its slot is given back on the normal pacing
// schedule, so the accounting never depends on whether the caller is still
// listening. A non-nil error therefore always means a slot was reserved and
// OnRelease will fire for it; callers that must not reserve on a done
// context check ctx before calling.
//
// If the bucket is closing, a successful reservation is admitted at once and
// its slot released immediately.
func (b *LeakyBucket) Throttle(ctx context.Context) (bool, error) {
	if !b.reserve() {
		return false, nil
	}

	w := &waiter{ready: make(chan struct{})}
	if !b.enqueue(w) {
		b.releaseSlot()
		return true, nil
	}

	select {
	case <-w.ready:
		return true, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// DrainNext runs one step of the pacing loop. It waits for the oldest queued
// caller, admits it, then paces the release of its slot:
//
//   - delay mode waits TimePerRequest and then releases the slot, so the next
//     caller is not admitted before that
//   - no-delay mode releases the slot in the background, TimePerRequest after
//     the previous release completed
//
// DrainNext returns false once the bucket is Closed or ctx is done. It must
// be called from a single goroutine.
func (b *LeakyBucket) DrainNext(ctx context.Context) bool {
	var w *waiter
	select {
	case <-ctx.Done():
		return false
	case next, ok := <-b.queue:
		if !ok {
			return false
		}
		w = next
	}

	close(w.ready)

	if b.noDelay {
		b.scheduleRelease(ctx)
	} else {
		err := b.delay.Wait(ctx, b.pace)
		b.releaseSlot()
		if err != nil {
			return false
		}
	}

	return !b.IsClosed()
}

// Close stops the bucket from queueing new callers. Callers already queued
// are still drained. Close is idempotent.
func (b *LeakyBucket) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closing.Load() {
		return
	}
	b.closing.Store(true)
	close(b.queue)
}

// Flush admits every caller still queued, giving their slots back at once,
// then waits for background releases to finish. The owner of the pacing
// loop calls it after the loop has stopped so no reservation is stranded.
// It returns the number of callers admitted.
func (b *LeakyBucket) Flush() int {
	n := 0
	for {
		select {
		case w, ok := <-b.queue:
			if !ok {
				b.releases.Wait()
				return n
			}
			close(w.ready)
			b.releaseSlot()
			n++
		default:
			b.releases.Wait()
			return n
		}
	}
}

// State returns the current lifecycle stage.
func (b *LeakyBucket) State() State {
	if !b.closing.Load() {
		return Open
	}
	if len(b.queue) > 0 {
		return Closing
	}
	return Closed
}

// IsClosed reports whether the bucket is closing with an empty queue.
func (b *LeakyBucket) IsClosed() bool {
	return b.State() == Closed
}

// UsedSlots returns the number of reserved slots.
func (b *LeakyBucket) UsedSlots() int {
	return int(b.used.Load())
}

// RemainingSlots returns Slots() - UsedSlots().
func (b *LeakyBucket) RemainingSlots() int {
	return int(b.slots - b.used.Load())
}

// Slots returns the bucket capacity: the zone's burst, or 1.
func (b *LeakyBucket) Slots() int {
	return int(b.slots)
}

// Queued returns the number of callers waiting for admission.
func (b *LeakyBucket) Queued() int {
	return len(b.queue)
}

// Zone returns the policy snapshot the bucket was created with.
func (b *LeakyBucket) Zone() *zone.LimitRequestZone {
	return b.zone
}

func (b *LeakyBucket) reserve() bool {
	for {
		used := b.used.Load()
		if used >= b.slots {
			return false
		}
		if b.used.CompareAndSwap(used, used+1) {
			return true
		}
	}
}

func (b *LeakyBucket) releaseSlot() {
	if b.used.Add(-1) < 0 {
		panic("leakybucket: slot released more often than reserved in zone " + b.zone.Name())
	}
	if b.onRelease != nil {
		b.onRelease()
	}
}

// enqueue reports false when the bucket is closing. A full queue on an open
// bucket means the slot count and the queue disagree, which is a bug.
func (b *LeakyBucket) enqueue(w *waiter) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closing.Load() {
		return false
	}
	select {
	case b.queue <- w:
		return true
	default:
		panic("leakybucket: queue full with a reserved slot in zone " + b.zone.Name())
	}
}

// scheduleRelease chains a slot release behind the previous one. The swap
// makes each release observe exactly one predecessor, so releases neither
// overlap nor get skipped.
func (b *LeakyBucket) scheduleRelease(ctx context.Context) {
	r := &release{done: make(chan struct{})}
	prev := b.pending.Swap(r)

	b.releases.Add(1)
	go func() {
		defer b.releases.Done()
		defer close(r.done)

		if prev != nil {
			select {
			case <-prev.done:
			case <-ctx.Done():
			}
		}
		_ = b.delay.Wait(ctx, b.pace)
		b.releaseSlot()
	}()
}
