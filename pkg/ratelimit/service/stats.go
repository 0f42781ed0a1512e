package service

import (
	"sort"
	"sync/atomic"
)

// zoneStats accumulates counters for one zone name. It outlives policy
// replacement, so counts keep adding up across SetZone calls.
type zoneStats struct {
	live      atomic.Int64
	created   atomic.Int64
	evicted   atomic.Int64
	admitted  atomic.Int64
	rejected  atomic.Int64
	cancelled atomic.Int64
}

// ZoneStats is a point-in-time snapshot of one zone's counters.
type ZoneStats struct {
	Zone        string `json:"zone"`
	Directive   string `json:"directive"`
	LiveBuckets int64  `json:"live_buckets"`
	Created     int64  `json:"created"`
	Evicted     int64  `json:"evicted"`
	Admitted    int64  `json:"admitted"`
	Rejected    int64  `json:"rejected"`
	Cancelled   int64  `json:"cancelled"`
}

// Stats returns a snapshot of every registered zone, sorted by name.
func (s *Service) Stats() []ZoneStats {
	s.zonesMu.RLock()
	defer s.zonesMu.RUnlock()

	out := make([]ZoneStats, 0, len(s.zones))
	for name, z := range s.zones {
		st := s.stats[name]
		out = append(out, ZoneStats{
			Zone:        name,
			Directive:   z.String(),
			LiveBuckets: st.live.Load(),
			Created:     st.created.Load(),
			Evicted:     st.evicted.Load(),
			Admitted:    st.admitted.Load(),
			Rejected:    st.rejected.Load(),
			Cancelled:   st.cancelled.Load(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Zone < out[j].Zone })
	return out
}
