package testutil

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fatalRecorder stands in for a test so helper failures can be observed.
// Fatal ends the calling goroutine like the real one does.
type fatalRecorder struct {
	testing.TB
	msg string
}

func (r *fatalRecorder) Helper() {}

func (r *fatalRecorder) Fatal(args ...any) {
	r.msg = fmt.Sprint(args...)
	runtime.Goexit()
}

func (r *fatalRecorder) Fatalf(format string, args ...any) {
	r.msg = fmt.Sprintf(format, args...)
	runtime.Goexit()
}

// failure runs fn against a recorder and returns the fatal message, or ""
// if fn passed.
func failure(fn func(t testing.TB)) string {
	r := &fatalRecorder{}
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn(r)
	}()
	<-done
	return r.msg
}

func TestAssertions(t *testing.T) {
	tests := []struct {
		name string
		fn   func(t testing.TB)
		want string
	}{
		{"no error passes", func(t testing.TB) { AssertNoError(t, nil) }, ""},
		{"no error fails", func(t testing.TB) { AssertNoError(t, errors.New("boom")) }, "unexpected error: boom"},
		{"error passes", func(t testing.TB) { AssertError(t, errors.New("boom")) }, ""},
		{"error fails", func(t testing.TB) { AssertError(t, nil) }, "expected error"},
		{"equal passes", func(t testing.TB) { AssertEqual(t, "api", "api") }, ""},
		{"equal fails", func(t testing.TB) { AssertEqual(t, 3, 4) }, "got 3, want 4"},
		{"not equal passes", func(t testing.TB) { AssertNotEqual(t, int64(1), 2) }, ""},
		{"not equal fails", func(t testing.TB) { AssertNotEqual(t, "x", "x") }, "want anything else"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := failure(tt.fn)
			if tt.want == "" {
				AssertEqual(t, got, "")
				return
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("failure = %q, want it to contain %q", got, tt.want)
			}
		})
	}
}

func TestEventually(t *testing.T) {
	var ready atomic.Bool
	time.AfterFunc(5*time.Millisecond, func() { ready.Store(true) })

	AssertEqual(t, failure(func(t testing.TB) {
		Eventually(t, ready.Load, time.Second, time.Millisecond)
	}), "")

	msg := failure(func(t testing.TB) {
		Eventually(t, func() bool { return false }, 5*time.Millisecond, time.Millisecond)
	})
	if !strings.Contains(msg, "not met within 5ms") {
		t.Errorf("failure = %q, want a timeout message", msg)
	}

	calls := 0
	AssertEventually(t, func() bool {
		calls++
		return calls == 3
	})
	AssertEqual(t, calls, 3)
}

func TestCallbackTracker(t *testing.T) {
	tracker := NewCallbackTracker()
	tracker.AssertCallCount(t, 0)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.Mark()
		}()
	}
	wg.Wait()

	AssertEqual(t, tracker.CallCount(), 50)
	tracker.AssertCallCount(t, 50)

	msg := failure(func(t testing.TB) { tracker.AssertCallCount(t, 49) })
	AssertEqual(t, msg, "call count = 50, want 49")
}
