package service

import (
	"sync/atomic"

	"github.com/vnykmshr/ratezone/pkg/ratelimit/leakybucket"
)

// A handle's reference word packs a generation counter in the high bits and
// the live reference count in the low 32 bits. The generation is bumped on
// every transition to zero, so a grace wait can only evict the idle period
// it was started for.
const (
	countBits  = 32
	countMask  = 1<<countBits - 1
	genMask    = 1<<(63-countBits) - 1
	terminated = -1
)

// handle owns one bucket in the table. refs is never negative except for the
// one-way transition to terminated.
type handle struct {
	key    key
	bucket *leakybucket.LeakyBucket
	stats  *zoneStats

	refs    atomic.Int64
	evicted atomic.Bool
}

// acquire takes a reference unless the handle is terminated.
func (h *handle) acquire() bool {
	for {
		v := h.refs.Load()
		if v == terminated {
			return false
		}
		if v&countMask == countMask {
			panic("service: reference count overflow")
		}
		if h.refs.CompareAndSwap(v, v+1) {
			return true
		}
	}
}

// release drops a reference. It returns the idle word and true when the
// count reached zero; the caller then owns starting the grace wait for that
// word.
func (h *handle) release() (int64, bool) {
	for {
		v := h.refs.Load()
		if v == terminated {
			return 0, false
		}
		count := v & countMask
		if count == 0 {
			panic("service: handle released more often than acquired")
		}

		next := v - 1
		if count == 1 {
			gen := (v>>countBits + 1) & genMask
			next = gen << countBits
		}
		if h.refs.CompareAndSwap(v, next) {
			return next, count == 1
		}
	}
}

// terminate moves an idle handle to the terminal state. It fails if any
// reference was taken, or another idle period started, since idle was
// observed.
func (h *handle) terminate(idle int64) bool {
	return h.refs.CompareAndSwap(idle, terminated)
}

// liveRefs returns the current reference count, or -1 once terminated.
func (h *handle) liveRefs() int64 {
	v := h.refs.Load()
	if v == terminated {
		return terminated
	}
	return v & countMask
}
