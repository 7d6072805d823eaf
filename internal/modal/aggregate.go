package modal

import (
	"time"

	"gonum.org/v1/gonum/stat"
)

// DefaultMinCoverage is the fraction of the expected bucket population a
// resampled bucket must reach to be kept. Buckets below it span data gaps
// and averaging over them would be misleading.
const DefaultMinCoverage = 0.9

// Aggregate resamples every column of the table to the given period,
// averaging the samples in each bucket. The expected bucket population is
// the largest observed bucket; buckets covering less than minCoverage of it
// are dropped. Bucket boundaries are aligned to the period in UTC.
func Aggregate(t *Table, period time.Duration, minCoverage float64) (*Table, error) {
	if t.Len() == 0 {
		return nil, inputErrorf("cannot aggregate an empty table")
	}
	if period <= 0 {
		return nil, configErrorf("aggregation period must be positive, got %s", period)
	}
	if minCoverage <= 0 {
		minCoverage = DefaultMinCoverage
	}

	type bucket struct {
		start time.Time
		rows  []int
	}
	var buckets []bucket
	byStart := make(map[time.Time]int)
	for i, ts := range t.Timestamps() {
		start := ts.UTC().Truncate(period)
		idx, ok := byStart[start]
		if !ok {
			idx = len(buckets)
			byStart[start] = idx
			buckets = append(buckets, bucket{start: start})
		}
		buckets[idx].rows = append(buckets[idx].rows, i)
	}

	fullLength := 0
	for _, b := range buckets {
		if len(b.rows) > fullLength {
			fullLength = len(b.rows)
		}
	}

	var keptTimes []time.Time
	var keptRows [][]int
	for _, b := range buckets {
		if float64(len(b.rows)) >= minCoverage*float64(fullLength) {
			keptTimes = append(keptTimes, b.start)
			keptRows = append(keptRows, b.rows)
		}
	}

	out := NewTable(keptTimes)
	scratch := make([]float64, 0, fullLength)
	for _, name := range t.Columns() {
		vals, _ := t.Column(name)
		means := make([]float64, len(keptRows))
		for j, rows := range keptRows {
			scratch = scratch[:0]
			for _, r := range rows {
				scratch = append(scratch, vals[r])
			}
			means[j] = stat.Mean(scratch, nil)
		}
		if err := out.SetColumn(name, means); err != nil {
			return nil, err
		}
	}
	return out, nil
}
