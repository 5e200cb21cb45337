package report

import (
	"time"

	"github.com/goliatone/go-callcache/cache"
)

// Benefit is the expected gain of caching a target.
type Benefit string

const (
	BenefitHigh   Benefit = "High"
	BenefitMedium Benefit = "Medium"
	BenefitLow    Benefit = "Low"
)

// Classification thresholds on the hit ratio. Both bounds are exclusive.
const (
	HighThreshold   = 0.75
	MediumThreshold = 0.25
)

// Row summarizes one target.
type Row struct {
	Target         string        `json:"target"`
	Calls          int64         `json:"calls"`
	Hits           int64         `json:"hits"`
	Misses         int64         `json:"misses"`
	HitRatio       float64       `json:"hit_ratio"`
	TotalTime      time.Duration `json:"total_time_ns"`
	TimeSaved      time.Duration `json:"time_saved_ns"`
	Benefit        Benefit       `json:"benefit"`
	Recommendation string        `json:"recommendation"`
}

// Report is the summary of every target of a scope or decorator.
type Report struct {
	Rows []Row `json:"rows"`
}

// Build derives a report from stats. Rows follow the order of targets;
// targets missing from snapshot are reported with zero counters.
// Snapshot is only read.
func Build(targets []string, snapshot map[string]cache.Stats) Report {
	rows := make([]Row, 0, len(targets))
	for _, name := range targets {
		stats := snapshot[name]
		ratio := stats.HitRatio()
		benefit, recommendation := Classify(ratio)
		rows = append(rows, Row{
			Target:         name,
			Calls:          stats.Calls,
			Hits:           stats.Hits,
			Misses:         stats.Misses,
			HitRatio:       ratio,
			TotalTime:      stats.TotalTime,
			TimeSaved:      stats.TimeSaved(),
			Benefit:        benefit,
			Recommendation: recommendation,
		})
	}
	return Report{Rows: rows}
}

// Classify maps a hit ratio to a benefit level and its recommendation.
func Classify(hitRatio float64) (Benefit, string) {
	switch {
	case hitRatio > HighThreshold:
		return BenefitHigh, "Could benefit from caching"
	case hitRatio > MediumThreshold:
		return BenefitMedium, "May benefit from selective caching"
	default:
		return BenefitLow, "Unlikely to benefit significantly from caching"
	}
}
