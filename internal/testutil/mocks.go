package testutil

import (
	"container/heap"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/vnykmshr/ratezone/pkg/delay"
)

var _ delay.Delay = (*MockDelay)(nil)

// MockDelay implements delay.Delay on a virtual clock. Waits block until
// Advance moves the clock past their deadline, so rate limiter tests run
// without real sleeps.
type MockDelay struct {
	mu    sync.Mutex
	now   time.Time
	seq   uint64
	waits waitHeap
}

type pendingWait struct {
	deadline time.Time
	seq      uint64
	done     chan struct{}
	index    int
}

// NewMockDelay creates a MockDelay whose clock starts at start.
// If zero time is provided, uses current time.
func NewMockDelay(start time.Time) *MockDelay {
	if start.IsZero() {
		start = time.Now()
	}
	return &MockDelay{now: start}
}

// Now returns the current virtual time.
func (m *MockDelay) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Wait registers a wait with deadline Now()+d and blocks until Advance
// reaches it or ctx is done. A cancelled wait is unregistered.
func (m *MockDelay) Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	m.mu.Lock()
	m.seq++
	w := &pendingWait{
		deadline: m.now.Add(d),
		seq:      m.seq,
		done:     make(chan struct{}),
	}
	heap.Push(&m.waits, w)
	m.mu.Unlock()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		m.mu.Lock()
		if w.index >= 0 {
			heap.Remove(&m.waits, w.index)
		}
		m.mu.Unlock()
		return ctx.Err()
	}
}

// Advance moves the clock forward by d and resolves every wait whose deadline
// has been reached, in deadline order (ties in registration order). Waits
// registered by woken goroutines are measured from the final time.
func (m *MockDelay) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	target := m.now.Add(d)
	for len(m.waits) > 0 && !m.waits[0].deadline.After(target) {
		w := heap.Pop(&m.waits).(*pendingWait)
		m.now = w.deadline
		close(w.done)
	}
	m.now = target
}

// Pending returns the number of registered, unresolved waits.
func (m *MockDelay) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.waits)
}

// NextDeadline returns the earliest pending deadline.
func (m *MockDelay) NextDeadline() (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.waits) == 0 {
		return time.Time{}, false
	}
	return m.waits[0].deadline, true
}

// AwaitPending blocks until exactly n waits are registered, failing the test
// after TestTimeout. Background goroutines register their waits
// asynchronously, so tests call this before advancing the clock.
func (m *MockDelay) AwaitPending(t testing.TB, n int) {
	t.Helper()
	deadline := time.Now().Add(TestTimeout)
	for {
		got := m.Pending()
		if got == n {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("pending waits = %d, want %d", got, n)
		}
		time.Sleep(time.Millisecond)
	}
}

// waitHeap orders waits by deadline, then by registration sequence.
type waitHeap []*pendingWait

func (h waitHeap) Len() int { return len(h) }

func (h waitHeap) Less(i, j int) bool {
	if h[i].deadline.Equal(h[j].deadline) {
		return h[i].seq < h[j].seq
	}
	return h[i].deadline.Before(h[j].deadline)
}

func (h waitHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *waitHeap) Push(x any) {
	w := x.(*pendingWait)
	w.index = len(*h)
	*h = append(*h, w)
}

func (h *waitHeap) Pop() any {
	old := *h
	n := len(old)
	w := old[n-1]
	old[n-1] = nil
	w.index = -1
	*h = old[:n-1]
	return w
}
