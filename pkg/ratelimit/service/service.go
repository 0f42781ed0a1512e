package service

import (
	"context"
	"log/slog"
	"reflect"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/robfig/cron/v3"

	"github.com/vnykmshr/ratezone/pkg/common/errors"
	"github.com/vnykmshr/ratezone/pkg/delay"
	"github.com/vnykmshr/ratezone/pkg/metrics"
	"github.com/vnykmshr/ratezone/pkg/ratelimit/leakybucket"
	"github.com/vnykmshr/ratezone/pkg/ratelimit/zone"
)

const module = "service"

// Config holds configuration options for creating a new Service.
type Config struct {
	// Delay is the time source for pacing and eviction. If nil, delay.Default is used.
	Delay delay.Delay

	// Logger receives bucket lifecycle and reporter output. If nil, logging is discarded.
	Logger *slog.Logger

	// Metrics enables Prometheus instrumentation.
	Metrics metrics.Config

	// Shards is the number of handle table shards, rounded up to a power
	// of two. If zero, DefaultShards is used.
	Shards int

	// Zones are zone directives registered at construction.
	Zones []string

	// Reporter is an optional cron schedule for StartReporter.
	Reporter string
}

// Service maps zone names to policies and (zone, scope) keys to buckets.
// Buckets are created on first use and evicted once idle for one pacing
// interval.
type Service struct {
	delay   delay.Delay
	logger  *slog.Logger
	metrics *metrics.Registry

	zonesMu sync.RWMutex
	zones   map[string]*zone.LimitRequestZone
	stats   map[string]*zoneStats

	table *table

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed atomic.Bool

	reporterMu sync.Mutex
	reporter   *cron.Cron
}

// New creates a Service with default configuration and no zones.
func New() *Service {
	s, err := NewWithConfig(Config{})
	if err != nil {
		panic(err)
	}
	return s
}

// NewWithConfig creates a Service. It fails if a directive in config.Zones
// is malformed.
func NewWithConfig(config Config) (*Service, error) {
	if config.Delay == nil {
		config.Delay = delay.Default
	}
	if config.Logger == nil {
		config.Logger = slog.New(discardHandler{})
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		delay:   config.Delay,
		logger:  config.Logger.With("component", "ratelimit"),
		metrics: config.Metrics.Build(),
		zones:   make(map[string]*zone.LimitRequestZone),
		stats:   make(map[string]*zoneStats),
		table:   newTable(config.Shards),
		ctx:     ctx,
		cancel:  cancel,
	}

	for _, directive := range config.Zones {
		if err := s.SetZoneDirective(directive); err != nil {
			cancel()
			return nil, err
		}
	}
	if config.Reporter != "" {
		if err := s.StartReporter(config.Reporter); err != nil {
			cancel()
			return nil, err
		}
	}
	return s, nil
}

// SetZone registers z under its name, replacing any previous policy. Buckets
// that already exist keep the policy they were created with.
func (s *Service) SetZone(z *zone.LimitRequestZone) error {
	if z == nil {
		return errors.NewValidationError(module, "zone", nil, "cannot be nil")
	}

	s.zonesMu.Lock()
	defer s.zonesMu.Unlock()

	s.zones[z.Name()] = z
	if _, ok := s.stats[z.Name()]; !ok {
		s.stats[z.Name()] = &zoneStats{}
	}
	return nil
}

// SetZoneDirective parses directive and registers the resulting zone.
func (s *Service) SetZoneDirective(directive string) error {
	z, err := zone.Parse(directive)
	if err != nil {
		return err
	}
	return s.SetZone(z)
}

// Zone returns the policy registered under name.
func (s *Service) Zone(name string) (*zone.LimitRequestZone, bool) {
	s.zonesMu.RLock()
	defer s.zonesMu.RUnlock()
	z, ok := s.zones[zone.NormalizeName(name)]
	return z, ok
}

// Zones returns every registered policy, sorted by name.
func (s *Service) Zones() []*zone.LimitRequestZone {
	s.zonesMu.RLock()
	out := make([]*zone.LimitRequestZone, 0, len(s.zones))
	for _, z := range s.zones {
		out = append(out, z)
	}
	s.zonesMu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Throttle asks the bucket for (zoneName, scope) to admit one request,
// creating the bucket on first use. scope is any comparable value; nil
// means global scope.
//
// A rejection is (false, nil). If ctx ends while the request is queued,
// Throttle returns (false, ctx.Err()) and the reservation is still released
// on schedule. An unregistered zone is an *errors.OperationError wrapping
// errors.ErrZoneNotFound; a closed service returns errors.ErrClosed.
func (s *Service) Throttle(ctx context.Context, zoneName string, scope any) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if scope != nil && !reflect.TypeOf(scope).Comparable() {
		return false, errors.NewValidationError(module, "scope", scope, "must be comparable").
			WithHint("use a string, number or struct of comparable fields")
	}

	name := zone.NormalizeName(zoneName)
	h, err := s.acquire(key{zone: name, scope: scope})
	if err != nil {
		return false, err
	}

	admitted, err := h.bucket.Throttle(ctx)
	switch {
	case err != nil:
		h.stats.cancelled.Add(1)
		s.metrics.ObserveThrottle(name, metrics.Cancelled)
		return false, err
	case !admitted:
		s.release(h)
		h.stats.rejected.Add(1)
		s.metrics.ObserveThrottle(name, metrics.Rejected)
		return false, nil
	}

	h.stats.admitted.Add(1)
	s.metrics.ObserveThrottle(name, metrics.Admitted)
	return true, nil
}

// BucketsCount returns the number of buckets in the table.
func (s *Service) BucketsCount() int {
	return s.table.len()
}

// Close stops the reporter, closes every bucket and waits for the pacing
// loops to exit. Queued callers are admitted. Close is idempotent.
func (s *Service) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.StopReporter()

	// Taking each shard lock after setting closed orders every later
	// acquire or grace start behind this pass.
	for _, h := range s.table.snapshot() {
		h.bucket.Close()
	}
	s.cancel()
	s.wg.Wait()
	return nil
}

// acquire returns a referenced handle for k, creating it if no live handle
// exists. The shard lock makes create-or-join atomic per key.
func (s *Service) acquire(k key) (*handle, error) {
	sh := s.table.shardFor(k)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if s.closed.Load() {
		return nil, errors.ErrClosed
	}
	if h, ok := sh.handles[k]; ok && h.acquire() {
		return h, nil
	}

	s.zonesMu.RLock()
	z, ok := s.zones[k.zone]
	st := s.stats[k.zone]
	s.zonesMu.RUnlock()
	if !ok {
		return nil, errors.NewOperationError(module, "Throttle", errors.ErrZoneNotFound).
			WithContext("zone " + strconv.Quote(k.zone))
	}

	h := &handle{key: k, stats: st}
	h.refs.Store(1)
	h.bucket = leakybucket.NewWithConfig(leakybucket.Config{
		Zone:      z,
		Delay:     s.delay,
		OnRelease: func() { s.release(h) },
	})
	s.table.put(sh, h)

	st.live.Add(1)
	st.created.Add(1)
	s.metrics.BucketCreated(k.zone)
	s.logger.Debug("bucket created", "zone", k.zone, "scope", k.scope, "slots", h.bucket.Slots())

	s.wg.Add(1)
	go s.pace(h)
	return h, nil
}

// release drops one reference and starts the grace wait when the handle
// goes idle.
func (s *Service) release(h *handle) {
	idle, ok := h.release()
	if !ok {
		return
	}

	sh := s.table.shardFor(h.key)
	sh.mu.Lock()
	if s.closed.Load() {
		sh.mu.Unlock()
		return
	}
	s.wg.Add(1)
	sh.mu.Unlock()

	go s.evictAfterGrace(h, idle)
}

// evictAfterGrace closes the bucket if the handle is still idle, in the
// same idle period, one pacing interval later.
func (s *Service) evictAfterGrace(h *handle, idle int64) {
	defer s.wg.Done()

	if err := s.delay.Wait(s.ctx, h.bucket.Zone().TimePerRequest()); err != nil {
		return
	}
	if h.terminate(idle) {
		h.evicted.Store(true)
		h.bucket.Close()
	}
}

// pace runs the bucket's pacing loop and unregisters the handle when the
// bucket closes.
func (s *Service) pace(h *handle) {
	defer s.wg.Done()

	for h.bucket.DrainNext(s.ctx) {
	}
	h.bucket.Close()
	flushed := h.bucket.Flush()

	s.table.remove(h)
	evicted := h.evicted.Load()
	h.stats.live.Add(-1)
	if evicted {
		h.stats.evicted.Add(1)
	}
	s.metrics.BucketRemoved(h.key.zone, evicted)
	s.logger.Debug("bucket removed",
		"zone", h.key.zone,
		"scope", h.key.scope,
		"evicted", evicted,
		"flushed", flushed,
	)
}

// discardHandler drops every record.
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (h discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h discardHandler) WithGroup(string) slog.Handler           { return h }
