package modal

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// ClusterSummary holds per-label statistics of a labeled mode table.
type ClusterSummary struct {
	Label int
	Count int

	FrequencyMean float64
	FrequencyStd  float64
	DampingMean   float64
	DampingStd    float64
	SizeMean      float64
	SizeStd       float64
}

// SummarizeClusters computes per-label mean and standard deviation of
// frequency, damping and size. Noise rows (label -1) are summarized under
// their own entry. Damping and size statistics are zero when the column is
// absent. Summaries are ordered by label.
func SummarizeClusters(labeled *Table, roles Roles) ([]ClusterSummary, error) {
	labels, ok := labeled.Column(LabelsColumn)
	if !ok {
		return nil, inputErrorf("no %q column in table", LabelsColumn)
	}
	freqCol, err := labeled.FrequencyColumn(roles)
	if err != nil {
		return nil, err
	}
	freq, _ := labeled.Column(freqCol)

	var damping, size []float64
	if dampCol, err := labeled.DampingColumn(roles); err == nil {
		damping, _ = labeled.Column(dampCol)
	}
	if labeled.HasColumn(roles.Size) {
		size, _ = labeled.Column(roles.Size)
	}

	byLabel := make(map[int][]int)
	for i := range labels {
		id := int(labels[i])
		byLabel[id] = append(byLabel[id], i)
	}

	ids := make([]int, 0, len(byLabel))
	for id := range byLabel {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	gather := func(vals []float64, rows []int) []float64 {
		if vals == nil {
			return nil
		}
		out := make([]float64, len(rows))
		for i, r := range rows {
			out[i] = vals[r]
		}
		return out
	}
	meanStd := func(vals []float64) (float64, float64) {
		if len(vals) == 0 {
			return 0, 0
		}
		mean := stat.Mean(vals, nil)
		if len(vals) < 2 {
			return mean, 0
		}
		return mean, stat.StdDev(vals, nil)
	}

	summaries := make([]ClusterSummary, 0, len(ids))
	for _, id := range ids {
		rows := byLabel[id]
		s := ClusterSummary{Label: id, Count: len(rows)}
		s.FrequencyMean, s.FrequencyStd = meanStd(gather(freq, rows))
		s.DampingMean, s.DampingStd = meanStd(gather(damping, rows))
		s.SizeMean, s.SizeStd = meanStd(gather(size, rows))
		summaries = append(summaries, s)
	}
	return summaries, nil
}
