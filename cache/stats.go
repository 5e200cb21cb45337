package cache

import "time"

// Stats holds the counters of a single target.
// Calls always equals Hits + Misses.
type Stats struct {
	Calls     int64         `json:"calls"`
	Hits      int64         `json:"hits"`
	Misses    int64         `json:"misses"`
	TotalTime time.Duration `json:"total_time"`
}

// HitRatio returns hits/calls, or 0 when nothing was called.
func (s Stats) HitRatio() float64 {
	if s.Calls == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Calls)
}

// TimeSaved estimates the time hits avoided. It assumes hits are free and
// every call costs the same, so it is a heuristic and not a measurement.
func (s Stats) TimeSaved() time.Duration {
	calls := s.Calls
	if calls < 1 {
		calls = 1
	}
	return s.TotalTime - time.Duration(float64(s.TotalTime)*float64(s.Hits)/float64(calls))
}
