package leakybucket

import (
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vnykmshr/ratezone/pkg/common/errors"
	"github.com/vnykmshr/ratezone/pkg/delay"
	"github.com/vnykmshr/ratezone/pkg/ratelimit/zone"
)

// State is the lifecycle stage of a LeakyBucket.
type State int32

const (
	// Open buckets accept reservations and drain their queue.
	Open State = iota
	// Closing buckets accept no new queue entries but still drain the ones
	// they hold.
	Closing
	// Closed buckets are closing and have an empty queue.
	Closed
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case Closing:
		return "closing"
	case Closed:
		return "closed"
	}
	return "State(" + strconv.Itoa(int(s)) + ")"
}

// Config holds configuration options for creating a new LeakyBucket.
type Config struct {
	// Zone is the policy the bucket is bound to for its whole lifetime.
	Zone *zone.LimitRequestZone

	// Delay is the time source used for pacing. If nil, delay.Default is used.
	Delay delay.Delay

	// OnRelease, if set, is called once for every successful reservation
	// when its slot is given back.
	OnRelease func()
}

// waiter is one queued admission. ready is closed when the pacing step
// admits it.
type waiter struct {
	ready chan struct{}
}

// release is one paced slot release in no-delay mode. done is closed after
// the slot has been given back.
type release struct {
	done chan struct{}
}

// LeakyBucket is the admission engine for one (zone, scope) pair.
//
// It holds Slots() slots. Throttle reserves a slot and queues the caller;
// a single pacing loop calling DrainNext admits queued callers in FIFO
// order and gives slots back at the zone's rate.
type LeakyBucket struct {
	zone      *zone.LimitRequestZone
	delay     delay.Delay
	onRelease func()

	slots   int64
	pace    time.Duration
	noDelay bool

	used  atomic.Int64
	queue chan *waiter

	// mu orders queue sends (read lock) against close (write lock).
	mu      sync.RWMutex
	closing atomic.Bool

	pending  atomic.Pointer[release]
	releases sync.WaitGroup
}

// New creates a bucket for z using the given time source.
func New(z *zone.LimitRequestZone, d delay.Delay) *LeakyBucket {
	return NewWithConfig(Config{Zone: z, Delay: d})
}

// NewWithConfig creates a bucket from config. It panics if config.Zone is nil.
func NewWithConfig(config Config) *LeakyBucket {
	b, err := NewWithConfigSafe(config)
	if err != nil {
		panic(err)
	}
	return b
}

// NewWithConfigSafe creates a bucket with validation that returns an error
// instead of panicking.
func NewWithConfigSafe(config Config) (*LeakyBucket, error) {
	if config.Zone == nil {
		return nil, errors.NewValidationError("leakybucket", "zone", nil, "cannot be nil").
			WithHint("a bucket must be bound to a zone")
	}
	if config.Delay == nil {
		config.Delay = delay.Default
	}

	slots := config.Zone.Slots()
	return &LeakyBucket{
		zone:      config.Zone,
		delay:     config.Delay,
		onRelease: config.OnRelease,
		slots:     int64(slots),
		pace:      config.Zone.TimePerRequest(),
		noDelay:   config.Zone.NoDelay(),
		queue:     make(chan *waiter, slots),
	}, nil
}
