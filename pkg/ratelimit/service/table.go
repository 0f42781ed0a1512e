package service

import (
	"encoding/binary"
	"math/bits"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// DefaultShards is the number of handle table shards when Config.Shards is
// not set.
const DefaultShards = 32

// key identifies one bucket. scope is opaque: it is only compared and
// hashed, never interpreted.
type key struct {
	zone  string
	scope any
}

// table maps keys to handles. Each shard has its own lock so unrelated keys
// rarely contend, and create-or-join on one key is linearized by its
// shard's lock.
type table struct {
	shards []shard
	mask   uint64
	count  atomic.Int64
}

type shard struct {
	mu      sync.Mutex
	handles map[key]*handle
}

func newTable(n int) *table {
	if n <= 0 {
		n = DefaultShards
	}
	// Round up to a power of two so the shard index is a mask.
	n = 1 << bits.Len(uint(n-1))

	t := &table{
		shards: make([]shard, n),
		mask:   uint64(n - 1),
	}
	for i := range t.shards {
		t.shards[i].handles = make(map[key]*handle)
	}
	return t
}

func (t *table) shardFor(k key) *shard {
	d := xxhash.New()
	_, _ = d.WriteString(k.zone)
	_, _ = d.Write([]byte{0})
	writeScope(d, k.scope)
	return &t.shards[d.Sum64()&t.mask]
}

// put stores h under its key, replacing a terminated handle if one is still
// registered. Callers hold the shard lock.
func (t *table) put(s *shard, h *handle) {
	if _, replaced := s.handles[h.key]; !replaced {
		t.count.Add(1)
	}
	s.handles[h.key] = h
}

// remove deletes h if its key still maps to it.
func (t *table) remove(h *handle) bool {
	s := t.shardFor(h.key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handles[h.key] != h {
		return false
	}
	delete(s.handles, h.key)
	t.count.Add(-1)
	return true
}

// snapshot returns every registered handle.
func (t *table) snapshot() []*handle {
	var out []*handle
	for i := range t.shards {
		s := &t.shards[i]
		s.mu.Lock()
		for _, h := range s.handles {
			out = append(out, h)
		}
		s.mu.Unlock()
	}
	return out
}

func (t *table) len() int {
	return int(t.count.Load())
}

// writeScope hashes what map equality compares for scope and nothing
// else: the value of strings, integers and booleans, the address of
// pointers and channels. Other kinds add nothing, so those keys shard on
// the zone name alone.
func writeScope(d *xxhash.Digest, scope any) {
	if scope == nil {
		return
	}
	var buf [8]byte
	rv := reflect.ValueOf(scope)
	switch rv.Kind() {
	case reflect.String:
		_, _ = d.WriteString(rv.String())
		return
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		binary.LittleEndian.PutUint64(buf[:], uint64(rv.Int()))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		binary.LittleEndian.PutUint64(buf[:], rv.Uint())
	case reflect.Bool:
		if rv.Bool() {
			buf[0] = 1
		}
	case reflect.Pointer, reflect.UnsafePointer, reflect.Chan:
		binary.LittleEndian.PutUint64(buf[:], uint64(rv.Pointer()))
	default:
		return
	}
	_, _ = d.Write(buf[:])
}
