package modal

// ModeClusterer groups raw modal estimates into mode families. Physically
// real modes form dense regions in (frequency, damping, size, time) space
// while spurious estimates are sparse, so a density-based algorithm separates
// them without a pre-specified cluster count.

// ClusterAlgorithm selects the density clustering engine.
type ClusterAlgorithm string

const (
	// AlgorithmDBSCAN uses a fixed neighbourhood radius; sensitive to a
	// single global density scale.
	AlgorithmDBSCAN ClusterAlgorithm = "dbscan"
	// AlgorithmHDBSCAN adapts to varying density via a cluster hierarchy.
	AlgorithmHDBSCAN ClusterAlgorithm = "hdbscan"
)

// ModeClusterer configures a clustering run. The zero value is not usable;
// construct with NewModeClusterer and adjust fields before calling Fit.
type ModeClusterer struct {
	Algorithm ClusterAlgorithm
	DBSCAN    DBSCANParams
	HDBSCAN   HDBSCANParams
	Features  FeatureConfig
	Roles     Roles

	// Candidate selection bounds; rows outside them are non-physical.
	MinModalSize    float64
	MaxModalDamping float64

	// FrequencyRange, when non-nil, restricts clustering to the band
	// [FrequencyRange[0], FrequencyRange[1]).
	FrequencyRange *[2]float64
}

// NewModeClusterer returns a DBSCAN clusterer with production defaults.
func NewModeClusterer() *ModeClusterer {
	return &ModeClusterer{
		Algorithm:       AlgorithmDBSCAN,
		DBSCAN:          DefaultDBSCANParams(),
		HDBSCAN:         DefaultHDBSCANParams(),
		Features:        DefaultFeatureConfig(),
		Roles:           DefaultRoles(),
		MinModalSize:    5,
		MaxModalDamping: 5,
	}
}

// FittedModes is the result of one clustering run: the candidate rows on
// their original scale with an attached labels column. It is owned by the
// caller; independent fits never share state.
type FittedModes struct {
	table  *Table
	labels []int
}

// Table returns the labeled candidate table, including the labels column
// (-1 is noise).
func (f *FittedModes) Table() *Table { return f.table }

// Labels returns raw engine labels aligned with Table rows.
func (f *FittedModes) Labels() []int { return f.labels }

// Fit selects candidate rows, builds weighted features and runs the
// configured density clustering engine. The returned model carries the
// selected rows on their original scale; only the labels column is added.
func (mc *ModeClusterer) Fit(modalData *Table) (*FittedModes, error) {
	data := modalData
	if mc.FrequencyRange != nil {
		freq, err := data.FrequencySeries(mc.Roles)
		if err != nil {
			return nil, err
		}
		lo, hi := mc.FrequencyRange[0], mc.FrequencyRange[1]
		data = data.Filter(func(i int) bool {
			return freq.Values[i] >= lo && freq.Values[i] < hi
		})
	}

	candidates, err := SelectCandidates(data, mc.Roles, mc.MinModalSize, mc.MaxModalDamping)
	if err != nil {
		return nil, err
	}
	if candidates.Len() == 0 {
		return nil, inputErrorf("no candidate rows remain after frequency and quality filtering")
	}

	features, err := mc.Features.BuildFeatures(candidates)
	if err != nil {
		return nil, err
	}

	var labels []int
	switch mc.Algorithm {
	case AlgorithmHDBSCAN:
		labels = HDBSCAN(features, mc.HDBSCAN)
	case AlgorithmDBSCAN, "":
		labels = DBSCAN(features, mc.DBSCAN)
	default:
		return nil, configErrorf("unknown clustering algorithm %q", mc.Algorithm)
	}

	labelVals := make([]float64, len(labels))
	for i, l := range labels {
		labelVals[i] = float64(l)
	}
	if err := candidates.SetColumn(LabelsColumn, labelVals); err != nil {
		return nil, err
	}
	return &FittedModes{table: candidates, labels: labels}, nil
}

// Predict drops noise and every cluster whose population is at or below
// minClusterSize, then renumbers the survivors to a dense 0-based sequence
// in order of first appearance.
func (f *FittedModes) Predict(minClusterSize int) *Table {
	counts := labelCounts(f.labels)
	kept := make([]int, 0, len(f.labels))
	keptLabels := make([]int, 0, len(f.labels))
	for i, l := range f.labels {
		if l >= 0 && counts[l] > minClusterSize {
			kept = append(kept, i)
			keptLabels = append(keptLabels, l)
		}
	}
	out := f.table.selectRows(kept)
	dense := factorize(keptLabels)
	labelVals := make([]float64, len(dense))
	for i, l := range dense {
		labelVals[i] = float64(l)
	}
	_ = out.SetColumn(LabelsColumn, labelVals)
	return out
}

// PredictWithNoise keeps every fitted row: undersized clusters and noise are
// relabeled to -1, surviving clusters are renumbered densely.
func (f *FittedModes) PredictWithNoise(minClusterSize int) *Table {
	counts := labelCounts(f.labels)
	relabeled := make([]int, len(f.labels))
	for i, l := range f.labels {
		if l >= 0 && counts[l] > minClusterSize {
			relabeled[i] = l
		} else {
			relabeled[i] = -1
		}
	}
	dense := factorizeKeepingNoise(relabeled)

	idx := make([]int, f.table.Len())
	for i := range idx {
		idx[i] = i
	}
	out := f.table.selectRows(idx)
	labelVals := make([]float64, len(dense))
	for i, l := range dense {
		labelVals[i] = float64(l)
	}
	_ = out.SetColumn(LabelsColumn, labelVals)
	return out
}

func labelCounts(labels []int) map[int]int {
	counts := make(map[int]int)
	for _, l := range labels {
		counts[l]++
	}
	return counts
}

// factorize renumbers labels to 0..K-1 in order of first appearance (stable
// factorization).
func factorize(labels []int) []int {
	out := make([]int, len(labels))
	seen := make(map[int]int)
	next := 0
	for i, l := range labels {
		id, ok := seen[l]
		if !ok {
			id = next
			seen[l] = id
			next++
		}
		out[i] = id
	}
	return out
}

// factorizeKeepingNoise is factorize over the non-negative labels, with -1
// passed through.
func factorizeKeepingNoise(labels []int) []int {
	out := make([]int, len(labels))
	seen := make(map[int]int)
	next := 0
	for i, l := range labels {
		if l < 0 {
			out[i] = -1
			continue
		}
		id, ok := seen[l]
		if !ok {
			id = next
			seen[l] = id
			next++
		}
		out[i] = id
	}
	return out
}
