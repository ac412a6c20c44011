package kv

import "github.com/pegasus-sim/pegasus-sim/sim"

// Stats extends the kernel's latency histogram with the KV-specific
// counters the reference implementation's KVStats._dump reports: cache
// hit/miss totals and a per-operation-type completion count.
type Stats struct {
	*sim.Stats

	Hits   int64
	Misses int64
	ByType map[OpType]int64
}

// NewStats wraps a kernel Stats accumulator with KV counters. epochLen of
// 0 disables epoch rollover.
func NewStats(epochLen int64) *Stats {
	return &Stats{
		Stats:  sim.NewStats(epochLen),
		ByType: make(map[OpType]int64),
	}
}

// Complete records a finished client request: its latency, its operation
// type, and — for GET — whether it was a cache hit.
func (s *Stats) Complete(op Operation, latencyUs int64, hit bool) {
	s.ReportLatency(latencyUs)
	s.ByType[op.Type]++
	if op.Type == GET {
		if hit {
			s.Hits++
		} else {
			s.Misses++
		}
	}
}

// HitRate returns Hits/(Hits+Misses), or 0 if no GET has completed.
func (s *Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}
