package modal

import (
	"math"
	"strconv"

	"gonum.org/v1/gonum/stat"
)

// Mode tracking classifies freshly observed modes against mode families
// established by a previous clustering run, without re-clustering the full
// history. It is a 1-D nearest-neighbour classifier on frequency with a
// per-family acceptance radius.

// LabelUndefined is assigned to observations that fall outside every
// reference cluster's acceptance radius.
const LabelUndefined = "undefined"

// ReferenceCluster summarises one established mode family. Built once per
// clustering run and consumed read-only by classification.
type ReferenceCluster struct {
	Label string
	// Frequency is the representative (mean) frequency of the family in Hz.
	Frequency float64
	// MaxDistance is the admission radius: the largest allowed
	// |observed - Frequency| for an observation to join this family.
	MaxDistance float64

	// Summary statistics carried for reporting.
	MeanDamping float64
	MeanSize    float64
	Count       int
}

// BuildReferenceClusters summarises a labeled table (output of Predict) into
// one reference per cluster, ordered by label. The admission radius is the
// largest in-cluster deviation from the mean frequency.
func BuildReferenceClusters(labeled *Table, roles Roles) ([]ReferenceCluster, error) {
	labels, ok := labeled.Column(LabelsColumn)
	if !ok {
		return nil, inputErrorf("no %q column in table; run clustering first", LabelsColumn)
	}
	freqCol, err := labeled.FrequencyColumn(roles)
	if err != nil {
		return nil, err
	}
	freq, _ := labeled.Column(freqCol)

	dampCol, dampErr := labeled.DampingColumn(roles)
	var damping, size []float64
	if dampErr == nil {
		damping, _ = labeled.Column(dampCol)
	}
	if labeled.HasColumn(roles.Size) {
		size, _ = labeled.Column(roles.Size)
	}

	byLabel := make(map[int][]int)
	maxLabel := -1
	for i, l := range labels {
		id := int(l)
		if id < 0 {
			continue
		}
		byLabel[id] = append(byLabel[id], i)
		if id > maxLabel {
			maxLabel = id
		}
	}

	refs := make([]ReferenceCluster, 0, len(byLabel))
	for id := 0; id <= maxLabel; id++ {
		rows := byLabel[id]
		if len(rows) == 0 {
			continue
		}
		freqs := make([]float64, len(rows))
		for j, r := range rows {
			freqs[j] = freq[r]
		}
		mean := stat.Mean(freqs, nil)
		maxDist := 0.0
		for _, f := range freqs {
			if d := math.Abs(f - mean); d > maxDist {
				maxDist = d
			}
		}
		ref := ReferenceCluster{
			Label:       strconv.Itoa(id),
			Frequency:   mean,
			MaxDistance: maxDist,
			Count:       len(rows),
		}
		if damping != nil {
			vals := make([]float64, len(rows))
			for j, r := range rows {
				vals[j] = damping[r]
			}
			ref.MeanDamping = stat.Mean(vals, nil)
		}
		if size != nil {
			vals := make([]float64, len(rows))
			for j, r := range rows {
				vals[j] = size[r]
			}
			ref.MeanSize = stat.Mean(vals, nil)
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// ClassifyModes assigns each observed frequency the label of the nearest
// reference cluster whose admission radius contains it, or LabelUndefined
// when none qualifies. Assignment is a pure function of one observation and
// the reference set; no state is carried across observations.
//
// When two references are equidistant and both within radius, the one
// earlier in the reference slice wins. The reference order is the cluster
// label order produced by BuildReferenceClusters, so the tie-break is
// deterministic: lowest label wins.
func ClassifyModes(refs []ReferenceCluster, frequencies []float64) []string {
	labels := make([]string, len(frequencies))
	for i, f := range frequencies {
		labels[i] = classifyOne(refs, f)
	}
	return labels
}

// ClassifyTable labels every row of an observation table by its frequency
// column.
func ClassifyTable(refs []ReferenceCluster, observations *Table, roles Roles) ([]string, error) {
	freq, err := observations.FrequencySeries(roles)
	if err != nil {
		return nil, err
	}
	return ClassifyModes(refs, freq.Values), nil
}

func classifyOne(refs []ReferenceCluster, frequency float64) string {
	best := -1
	bestDist := math.Inf(1)
	for i, ref := range refs {
		d := math.Abs(frequency - ref.Frequency)
		if d > ref.MaxDistance {
			continue
		}
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	if best < 0 {
		return LabelUndefined
	}
	return refs[best].Label
}
