// Package benchstats turns repeated benchmark run records into stability
// metrics: mean, sample standard deviation, coefficient of variation and a
// 95% confidence interval per (stage, input, threads) configuration.
package benchstats

import (
	"encoding/json"
	"math"
	"sort"

	"github.com/samber/lo"
)

// StatusSuccess marks records that participate in statistics.
const StatusSuccess = "SUCCESS"

// Record is the minimal view of one run needed for aggregation.
type Record struct {
	Stage           string
	InputID         string
	Threads         int
	Status          string
	DurationSeconds float64
}

// StabilityStat aggregates all successful runs of one configuration.
// Derived fields are NaN when no successful run exists; with exactly one
// run Stdev and CVPercent are zero.
type StabilityStat struct {
	Stage   string `json:"stage"`
	InputID string `json:"input_file"`
	Threads int    `json:"threads"`

	Count  int `json:"count"`
	Failed int `json:"failed"`

	Mean      float64 `json:"mean"`
	Stdev     float64 `json:"stdev"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	Median    float64 `json:"median"`
	CVPercent float64 `json:"cv_percent"`
	CI95Lower float64 `json:"ci_95_lower"`
	CI95Upper float64 `json:"ci_95_upper"`
	Range     float64 `json:"range_sec"`
}

// MarshalJSON encodes NaN metric fields as null so that reports with
// non-computable groups stay valid JSON.
func (s StabilityStat) MarshalJSON() ([]byte, error) {
	type alias struct {
		Stage   string `json:"stage"`
		InputID string `json:"input_file"`
		Threads int    `json:"threads"`

		Count  int `json:"count"`
		Failed int `json:"failed"`

		Mean      *float64 `json:"mean"`
		Stdev     *float64 `json:"stdev"`
		Min       *float64 `json:"min"`
		Max       *float64 `json:"max"`
		Median    *float64 `json:"median"`
		CVPercent *float64 `json:"cv_percent"`
		CI95Lower *float64 `json:"ci_95_lower"`
		CI95Upper *float64 `json:"ci_95_upper"`
		Range     *float64 `json:"range_sec"`
	}
	opt := func(v float64) *float64 {
		if math.IsNaN(v) {
			return nil
		}
		return &v
	}
	return json.Marshal(alias{
		Stage:   s.Stage,
		InputID: s.InputID,
		Threads: s.Threads,
		Count:   s.Count,
		Failed:  s.Failed,

		Mean:      opt(s.Mean),
		Stdev:     opt(s.Stdev),
		Min:       opt(s.Min),
		Max:       opt(s.Max),
		Median:    opt(s.Median),
		CVPercent: opt(s.CVPercent),
		CI95Lower: opt(s.CI95Lower),
		CI95Upper: opt(s.CI95Upper),
		Range:     opt(s.Range),
	})
}

type groupKey struct {
	stage   string
	inputID string
	threads int
}

// Aggregate groups records by (stage, input, threads) in order of first
// appearance and computes a StabilityStat per group. Only SUCCESS records
// contribute to the statistics, but every group reports how many of its
// runs failed. Aggregation is pure: the same record set always yields the
// same stats.
func Aggregate(records []Record) []StabilityStat {
	groups := make(map[groupKey][]Record)
	var order []groupKey
	for _, rec := range records {
		key := groupKey{stage: rec.Stage, inputID: rec.InputID, threads: rec.Threads}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], rec)
	}

	stats := make([]StabilityStat, 0, len(order))
	for _, key := range order {
		stats = append(stats, compute(key, groups[key]))
	}
	return stats
}

func compute(key groupKey, recs []Record) StabilityStat {
	succeeded := lo.Filter(recs, func(r Record, _ int) bool { return r.Status == StatusSuccess })
	durations := lo.Map(succeeded, func(r Record, _ int) float64 { return r.DurationSeconds })

	stat := StabilityStat{
		Stage:   key.stage,
		InputID: key.inputID,
		Threads: key.threads,
		Count:   len(durations),
		Failed:  len(recs) - len(succeeded),
	}

	if stat.Count == 0 {
		nan := math.NaN()
		stat.Mean, stat.Stdev, stat.Min, stat.Max, stat.Median = nan, nan, nan, nan, nan
		stat.CVPercent, stat.CI95Lower, stat.CI95Upper, stat.Range = nan, nan, nan, nan
		return stat
	}

	n := float64(stat.Count)
	stat.Mean = lo.Sum(durations) / n
	stat.Min = lo.Min(durations)
	stat.Max = lo.Max(durations)
	stat.Range = stat.Max - stat.Min
	stat.Median = median(durations)
	stat.Stdev = sampleStdev(durations, stat.Mean)

	switch {
	case stat.Count == 1:
		stat.CVPercent = 0
	case stat.Mean == 0:
		stat.CVPercent = math.NaN()
	default:
		stat.CVPercent = stat.Stdev / stat.Mean * 100
	}

	halfWidth := 1.96 * stat.Stdev / math.Sqrt(n)
	stat.CI95Lower = stat.Mean - halfWidth
	stat.CI95Upper = stat.Mean + halfWidth
	return stat
}

// sampleStdev uses the count-1 divisor; a single sample has zero deviation.
func sampleStdev(values []float64, mean float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var squares float64
	for _, v := range values {
		d := v - mean
		squares += d * d
	}
	return math.Sqrt(squares / float64(len(values)-1))
}

func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
