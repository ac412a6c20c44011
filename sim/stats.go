package sim

import (
	"math"
	"sort"
)

// EpochSnapshot is a rolled-over window of latency samples, captured by
// Stats.Run when the epoch boundary is crossed.
type EpochSnapshot struct {
	EndTime   int64
	Ops       int64
	Histogram map[int64]int64
}

// Report summarizes a histogram: throughput and the usual latency
// percentiles, matching the Pegasus reference stats module's dump output.
type Report struct {
	TotalOps            int64
	EndTime             int64
	ThroughputOpsPerSec float64
	AverageLatencyUs    float64
	MedianLatencyUs     float64
	P90LatencyUs        float64
	P99LatencyUs        float64
}

// Stats accumulates a latency histogram (bucketed by integer microsecond)
// across a run, plus an optional per-epoch rollup when epochLen > 0.
type Stats struct {
	Histogram map[int64]int64
	TotalOps  int64
	EndTime   int64

	Epochs []EpochSnapshot

	epochLen       int64
	lastEpoch      int64
	epochHistogram map[int64]int64
	epochOps       int64
}

// NewStats creates a Stats accumulator. epochLen of 0 disables epoch
// rollover entirely.
func NewStats(epochLen int64) *Stats {
	return &Stats{
		Histogram:      make(map[int64]int64),
		epochLen:       epochLen,
		epochHistogram: make(map[int64]int64),
	}
}

// ReportLatency records one completed operation's latency in microseconds.
func (s *Stats) ReportLatency(latencyUs int64) {
	s.Histogram[latencyUs]++
	s.TotalOps++
	if s.epochLen > 0 {
		s.epochHistogram[latencyUs]++
		s.epochOps++
	}
}

// Run advances the stats clock to now and, if an epoch boundary has been
// crossed, snapshots and resets the current epoch window. Called once per
// simulator tick.
func (s *Stats) Run(now int64) {
	s.EndTime = now
	if s.epochLen <= 0 {
		return
	}
	if now-s.lastEpoch >= s.epochLen {
		s.Epochs = append(s.Epochs, EpochSnapshot{
			EndTime:   now,
			Ops:       s.epochOps,
			Histogram: s.epochHistogram,
		})
		s.epochHistogram = make(map[int64]int64)
		s.epochOps = 0
		s.lastEpoch = now
	}
}

// Dump summarizes the full-run histogram into a Report.
func (s *Stats) Dump() Report {
	return reportFromHistogram(s.Histogram, s.TotalOps, s.EndTime)
}

// EpochReports summarizes every rolled-over epoch snapshot into a Report,
// in chronological order.
func (s *Stats) EpochReports() []Report {
	reports := make([]Report, 0, len(s.Epochs))
	for _, e := range s.Epochs {
		reports = append(reports, reportFromHistogram(e.Histogram, e.Ops, e.EndTime))
	}
	return reports
}

// CDFPoint is one row of a cumulative distribution function: the latency
// bucket and the fraction of samples at or below it.
type CDFPoint struct {
	LatencyUs          int64
	CumulativeFraction float64
}

// CDF returns the full-run latency histogram as a cumulative distribution,
// sorted ascending by latency bucket.
func (s *Stats) CDF() []CDFPoint {
	if s.TotalOps == 0 {
		return nil
	}
	keys := sortedKeys(s.Histogram)
	points := make([]CDFPoint, 0, len(keys))
	var cum int64
	for _, k := range keys {
		cum += s.Histogram[k]
		points = append(points, CDFPoint{LatencyUs: k, CumulativeFraction: float64(cum) / float64(s.TotalOps)})
	}
	return points
}

func reportFromHistogram(histogram map[int64]int64, totalOps, endTime int64) Report {
	r := Report{TotalOps: totalOps, EndTime: endTime}
	if endTime > 0 {
		r.ThroughputOpsPerSec = float64(totalOps) / float64(endTime) * 1e6
	}
	if totalOps == 0 {
		return r
	}
	var sum int64
	for k, c := range histogram {
		sum += k * c
	}
	r.AverageLatencyUs = float64(sum) / float64(totalOps)
	r.MedianLatencyUs = Percentile(histogram, 50)
	r.P90LatencyUs = Percentile(histogram, 90)
	r.P99LatencyUs = Percentile(histogram, 99)
	return r
}

func sortedKeys(histogram map[int64]int64) []int64 {
	keys := make([]int64, 0, len(histogram))
	for k := range histogram {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Percentile computes the p-th percentile (0-100) over a latency
// histogram via linear interpolation between adjacent ranks, the same
// interpolation rule the teacher's CalculatePercentile uses over a flat
// sample slice, adapted here to walk cumulative bucket counts instead of
// expanding the histogram into individual samples.
func Percentile(histogram map[int64]int64, p float64) float64 {
	keys := sortedKeys(histogram)
	if len(keys) == 0 {
		return 0
	}
	var total int64
	for _, k := range keys {
		total += histogram[k]
	}
	if total == 0 {
		return 0
	}
	if total == 1 {
		return float64(keys[0])
	}

	rank := p / 100 * float64(total-1)
	lowerRank := int64(math.Floor(rank))
	upperRank := int64(math.Ceil(rank))

	var cum int64
	var lowerVal, upperVal float64
	haveLower, haveUpper := false, false
	for _, k := range keys {
		cum += histogram[k]
		if !haveLower && cum-1 >= lowerRank {
			lowerVal = float64(k)
			haveLower = true
		}
		if !haveUpper && cum-1 >= upperRank {
			upperVal = float64(k)
			haveUpper = true
		}
		if haveLower && haveUpper {
			break
		}
	}
	frac := rank - float64(lowerRank)
	return lowerVal + frac*(upperVal-lowerVal)
}
