package leakybucket

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vnykmshr/ratezone/internal/testutil"
	rzerrors "github.com/vnykmshr/ratezone/pkg/common/errors"
	"github.com/vnykmshr/ratezone/pkg/ratelimit/zone"
)

type result struct {
	admitted bool
	err      error
}

func throttleAsync(ctx context.Context, b *LeakyBucket) <-chan result {
	ch := make(chan result, 1)
	go func() {
		admitted, err := b.Throttle(ctx)
		ch <- result{admitted, err}
	}()
	return ch
}

// runDrain runs the pacing loop until the test ends.
func runDrain(t *testing.T, b *LeakyBucket) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		for b.DrainNext(ctx) {
		}
		b.Flush()
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func expectResult(t *testing.T, ch <-chan result, want bool) {
	t.Helper()
	select {
	case r := <-ch:
		testutil.AssertNoError(t, r.err)
		testutil.AssertEqual(t, r.admitted, want)
	case <-time.After(testutil.TestTimeout):
		t.Fatal("Throttle did not return")
	}
}

func expectBlocked(t *testing.T, ch <-chan result) {
	t.Helper()
	select {
	case r := <-ch:
		t.Fatalf("Throttle returned early: %+v", r)
	case <-time.After(20 * time.Millisecond):
	}
}

func newBucket(t *testing.T, directive string) (*LeakyBucket, *testutil.MockDelay) {
	t.Helper()
	d := testutil.NewMockDelay(time.Time{})
	return New(zone.MustParse(directive), d), d
}

func TestNew(t *testing.T) {
	tests := []struct {
		directive string
		slots     int
	}{
		{"zone=a rate=1r/s", 1},
		{"zone=a rate=10r/s burst=20", 20},
		{"zone=a rate=5r/m burst=3 nodelay", 3},
	}

	for _, tt := range tests {
		t.Run(tt.directive, func(t *testing.T) {
			b, _ := newBucket(t, tt.directive)
			testutil.AssertEqual(t, b.Slots(), tt.slots)
			testutil.AssertEqual(t, b.RemainingSlots(), tt.slots)
			testutil.AssertEqual(t, b.UsedSlots(), 0)
			testutil.AssertEqual(t, b.State(), Open)
			testutil.AssertEqual(t, b.Zone().String(), tt.directive)
		})
	}
}

func TestNewNilZone(t *testing.T) {
	_, err := NewWithConfigSafe(Config{})
	if !rzerrors.IsValidationError(err) {
		t.Fatalf("NewWithConfigSafe() error = %v, want ValidationError", err)
	}

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic")
		}
	}()
	NewWithConfig(Config{})
}

func TestRejectsUntilPaced(t *testing.T) {
	b, d := newBucket(t, "zone=a rate=1r/s")
	ctx := context.Background()

	first := throttleAsync(ctx, b)
	testutil.AssertEventually(t, func() bool { return b.Queued() == 1 })

	admitted, err := b.Throttle(ctx)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, admitted, false)

	runDrain(t, b)
	expectResult(t, first, true)

	// The slot stays reserved for the whole pacing interval.
	d.AwaitPending(t, 1)
	testutil.AssertEqual(t, b.UsedSlots(), 1)
	admitted, _ = b.Throttle(ctx)
	testutil.AssertEqual(t, admitted, false)

	d.Advance(999 * time.Millisecond)
	testutil.AssertEqual(t, b.UsedSlots(), 1)

	d.Advance(time.Millisecond)
	testutil.AssertEventually(t, func() bool { return b.UsedSlots() == 0 })

	expectResult(t, throttleAsync(ctx, b), true)
}

func TestBurstCapacity(t *testing.T) {
	b, d := newBucket(t, "zone=a rate=10r/s burst=3")
	ctx := context.Background()

	var pending []<-chan result
	for i := 0; i < 3; i++ {
		pending = append(pending, throttleAsync(ctx, b))
	}
	testutil.AssertEventually(t, func() bool { return b.Queued() == 3 })
	testutil.AssertEqual(t, b.RemainingSlots(), 0)

	admitted, err := b.Throttle(ctx)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, admitted, false)

	runDrain(t, b)

	// Exactly one caller is admitted per interval, and exactly one slot
	// comes back.
	for step := 1; step <= 3; step++ {
		d.AwaitPending(t, 1)
		testutil.AssertEqual(t, b.Queued(), 3-step)
		testutil.AssertEqual(t, b.UsedSlots(), 3-step+1)

		d.Advance(100 * time.Millisecond)
		want := 3 - step
		testutil.AssertEventually(t, func() bool { return b.UsedSlots() == want })
	}

	for _, ch := range pending {
		expectResult(t, ch, true)
	}
}

func TestFIFOOrder(t *testing.T) {
	b, d := newBucket(t, "zone=a rate=1r/s burst=4")
	ctx := context.Background()

	var pending []<-chan result
	for i := 0; i < 4; i++ {
		pending = append(pending, throttleAsync(ctx, b))
		want := i + 1
		testutil.AssertEventually(t, func() bool { return b.Queued() == want })
	}

	runDrain(t, b)

	for i := range pending {
		expectResult(t, pending[i], true)
		for _, later := range pending[i+1:] {
			expectBlocked(t, later)
		}
		d.AwaitPending(t, 1)
		d.Advance(time.Second)
	}
}

func TestNoDelayAdmitsImmediately(t *testing.T) {
	b, d := newBucket(t, "zone=a rate=10r/s burst=3 nodelay")
	ctx := context.Background()
	runDrain(t, b)

	for i := 0; i < 3; i++ {
		expectResult(t, throttleAsync(ctx, b), true)
	}
	testutil.AssertEqual(t, b.UsedSlots(), 3)

	admitted, _ := b.Throttle(ctx)
	testutil.AssertEqual(t, admitted, false)

	// Only the head of the release chain waits on the clock.
	d.AwaitPending(t, 1)

	d.Advance(100 * time.Millisecond)
	testutil.AssertEventually(t, func() bool { return b.UsedSlots() == 2 })

	// The next release is measured from the previous one.
	d.AwaitPending(t, 1)
	d.Advance(50 * time.Millisecond)
	testutil.AssertEqual(t, b.UsedSlots(), 2)
	d.Advance(50 * time.Millisecond)
	testutil.AssertEventually(t, func() bool { return b.UsedSlots() == 1 })

	d.AwaitPending(t, 1)
	d.Advance(100 * time.Millisecond)
	testutil.AssertEventually(t, func() bool { return b.UsedSlots() == 0 })
}

func TestNoDelayReleasesNeverOverlap(t *testing.T) {
	const (
		slots   = 50
		callers = 200
		pace    = time.Second
	)

	d := testutil.NewMockDelay(time.Time{})
	start := d.Now()

	var (
		mu       sync.Mutex
		releases []time.Time
	)
	b := NewWithConfig(Config{
		Zone:  zone.MustParse("zone=a rate=1r/s burst=50 nodelay"),
		Delay: d,
		OnRelease: func() {
			mu.Lock()
			releases = append(releases, d.Now())
			mu.Unlock()
		},
	})
	runDrain(t, b)

	var (
		wg       sync.WaitGroup
		admitted int
		admitMu  sync.Mutex
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := b.Throttle(context.Background())
			if err != nil {
				t.Errorf("Throttle() error = %v", err)
			}
			if ok {
				admitMu.Lock()
				admitted++
				admitMu.Unlock()
			}
		}()
	}
	wg.Wait()
	testutil.AssertEqual(t, admitted, slots)

	for i := 1; i <= slots; i++ {
		d.AwaitPending(t, 1)
		d.Advance(pace)
		want := slots - i
		testutil.AssertEventually(t, func() bool { return b.UsedSlots() == want })
	}

	testutil.AssertEventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(releases) == slots
	})

	mu.Lock()
	defer mu.Unlock()
	for i, at := range releases {
		testutil.AssertEqual(t, at, start.Add(time.Duration(i+1)*pace))
	}
}

func TestCancelledCallerKeepsSchedule(t *testing.T) {
	tracker := testutil.NewCallbackTracker()
	d := testutil.NewMockDelay(time.Time{})
	b := NewWithConfig(Config{
		Zone:      zone.MustParse("zone=a rate=1r/s burst=2"),
		Delay:     d,
		OnRelease: func() { tracker.Mark() },
	})

	first := throttleAsync(context.Background(), b)
	testutil.AssertEventually(t, func() bool { return b.Queued() == 1 })

	ctx, cancel := context.WithCancel(context.Background())
	second := throttleAsync(ctx, b)
	testutil.AssertEventually(t, func() bool { return b.Queued() == 2 })

	cancel()
	r := <-second
	testutil.AssertEqual(t, r.admitted, false)
	if !errors.Is(r.err, context.Canceled) {
		t.Fatalf("Throttle() error = %v, want context.Canceled", r.err)
	}

	// The abandoned reservation still holds its slot.
	testutil.AssertEqual(t, b.UsedSlots(), 2)

	runDrain(t, b)
	expectResult(t, first, true)

	d.AwaitPending(t, 1)
	d.Advance(time.Second)
	d.AwaitPending(t, 1)
	testutil.AssertEqual(t, b.UsedSlots(), 1)
	d.Advance(time.Second)

	testutil.AssertEventually(t, func() bool { return tracker.CallCount() == 2 })
	testutil.AssertEqual(t, b.UsedSlots(), 0)
}

func TestThrottleWithDoneContext(t *testing.T) {
	tracker := testutil.NewCallbackTracker()
	d := testutil.NewMockDelay(time.Time{})
	b := NewWithConfig(Config{
		Zone:      zone.MustParse("zone=a rate=1r/s"),
		Delay:     d,
		OnRelease: func() { tracker.Mark() },
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	admitted, err := b.Throttle(ctx)
	testutil.AssertEqual(t, admitted, false)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Throttle() error = %v, want context.Canceled", err)
	}

	// An error always leaves a reservation that is released on schedule.
	testutil.AssertEqual(t, b.UsedSlots(), 1)
	testutil.AssertEqual(t, b.Queued(), 1)

	runDrain(t, b)
	d.AwaitPending(t, 1)
	d.Advance(time.Second)
	testutil.AssertEventually(t, func() bool { return tracker.CallCount() == 1 })
	testutil.AssertEqual(t, b.UsedSlots(), 0)
}

func TestCloseDrainsQueue(t *testing.T) {
	b, d := newBucket(t, "zone=a rate=1r/s burst=2")
	ctx := context.Background()

	first := throttleAsync(ctx, b)
	second := throttleAsync(ctx, b)
	testutil.AssertEventually(t, func() bool { return b.Queued() == 2 })

	b.Close()
	b.Close()
	testutil.AssertEqual(t, b.State(), Closing)

	drainCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	steps := make(chan bool, 1)
	go func() { steps <- b.DrainNext(drainCtx) }()
	expectResult(t, first, true)
	d.AwaitPending(t, 1)
	d.Advance(time.Second)
	testutil.AssertEqual(t, <-steps, true)

	go func() { steps <- b.DrainNext(drainCtx) }()
	expectResult(t, second, true)
	d.AwaitPending(t, 1)
	d.Advance(time.Second)
	testutil.AssertEqual(t, <-steps, false)

	testutil.AssertEqual(t, b.State(), Closed)
	testutil.AssertEqual(t, b.IsClosed(), true)
	testutil.AssertEqual(t, b.DrainNext(drainCtx), false)
	testutil.AssertEqual(t, b.UsedSlots(), 0)
}

func TestReservationAfterCloseIsAdmitted(t *testing.T) {
	tracker := testutil.NewCallbackTracker()
	b := NewWithConfig(Config{
		Zone:      zone.MustParse("zone=a rate=1r/s"),
		Delay:     testutil.NewMockDelay(time.Time{}),
		OnRelease: func() { tracker.Mark() },
	})
	b.Close()

	admitted, err := b.Throttle(context.Background())
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, admitted, true)
	testutil.AssertEqual(t, b.UsedSlots(), 0)
	tracker.AssertCallCount(t, 1)
}

func TestFlush(t *testing.T) {
	b, _ := newBucket(t, "zone=a rate=1r/s burst=2")
	ctx := context.Background()

	first := throttleAsync(ctx, b)
	second := throttleAsync(ctx, b)
	testutil.AssertEventually(t, func() bool { return b.Queued() == 2 })

	b.Close()
	testutil.AssertEqual(t, b.Flush(), 2)

	expectResult(t, first, true)
	expectResult(t, second, true)
	testutil.AssertEqual(t, b.UsedSlots(), 0)
	testutil.AssertEqual(t, b.State(), Closed)
}

func TestDrainNextStopsOnContext(t *testing.T) {
	b, _ := newBucket(t, "zone=a rate=1r/s")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	testutil.AssertEqual(t, b.DrainNext(ctx), false)
}

func TestStateString(t *testing.T) {
	testutil.AssertEqual(t, Open.String(), "open")
	testutil.AssertEqual(t, Closing.String(), "closing")
	testutil.AssertEqual(t, Closed.String(), "closed")
	testutil.AssertEqual(t, State(9).String(), "State(9)")
}
