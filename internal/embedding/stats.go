package embedding

import (
	"slices"
	"sync"
	"time"
)

// call is one recorded embedding request.
type call struct {
	at      time.Time
	latency time.Duration
	texts   int
	failed  bool
}

// StatsSnapshot summarises the calls inside the window. Latencies are in
// milliseconds.
type StatsSnapshot struct {
	WindowSeconds int     `json:"window_seconds"`
	Requests      int     `json:"requests"`
	Failures      int     `json:"failures"`
	Texts         int     `json:"texts"`
	MinMs         float64 `json:"min_ms"`
	MaxMs         float64 `json:"max_ms"`
	AvgMs         float64 `json:"avg_ms"`
	P50Ms         float64 `json:"p50_ms"`
	P95Ms         float64 `json:"p95_ms"`
	P99Ms         float64 `json:"p99_ms"`
}

// LatencyStats keeps embedding calls from a rolling time window.
type LatencyStats struct {
	mu     sync.Mutex
	calls  []call
	window time.Duration
	now    func() time.Time
}

func NewLatencyStats(window time.Duration) *LatencyStats {
	if window <= 0 {
		window = time.Hour
	}
	return &LatencyStats{window: window, now: time.Now}
}

// Record adds one call. Negative latencies count as zero.
func (s *LatencyStats) Record(latency time.Duration, texts int, failed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.expire(now)
	s.calls = append(s.calls, call{at: now, latency: max(latency, 0), texts: texts, failed: failed})
}

func (s *LatencyStats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expire(s.now())

	snap := StatsSnapshot{WindowSeconds: int(s.window / time.Second), Requests: len(s.calls)}
	if len(s.calls) == 0 {
		return snap
	}
	ms := make([]float64, len(s.calls))
	var total float64
	for i, c := range s.calls {
		ms[i] = float64(c.latency) / float64(time.Millisecond)
		total += ms[i]
		snap.Texts += c.texts
		if c.failed {
			snap.Failures++
		}
	}
	slices.Sort(ms)
	snap.MinMs = ms[0]
	snap.MaxMs = ms[len(ms)-1]
	snap.AvgMs = total / float64(len(ms))
	snap.P50Ms = percentile(ms, 50)
	snap.P95Ms = percentile(ms, 95)
	snap.P99Ms = percentile(ms, 99)
	return snap
}

// expire drops calls older than the window. Calls are appended in time
// order, so the expired ones form a prefix.
func (s *LatencyStats) expire(now time.Time) {
	cutoff := now.Add(-s.window)
	i := 0
	for i < len(s.calls) && s.calls[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		s.calls = slices.Delete(s.calls, 0, i)
	}
}

// percentile interpolates linearly between closest ranks of sorted.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := float64(len(sorted)-1) * p / 100
	lo := int(rank)
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	return sorted[lo] + (sorted[lo+1]-sorted[lo])*(rank-float64(lo))
}
