package modal

import "strings"

// Feature engineering for mode clustering. Frequency (Hz), damping (percent)
// and size span very different physical scales, so each configured column is
// scaled by a multiplier before clustering; otherwise one feature would
// dominate the distance metric. Damping columns are shifted by +1 before
// multiplying to keep them positive and commensurate with the other features.

// FeatureConfig selects and weights the columns used for clustering.
type FeatureConfig struct {
	// Columns lists the feature columns in order.
	Columns []string
	// Multipliers maps each configured column to its weight. A key that is
	// not in Columns is a configuration error.
	Multipliers map[string]float64
	// TimeDivider, when positive, appends a synthetic time_diff feature:
	// (row position - first row position) / TimeDivider. It gives the
	// clustering a temporal-continuity dimension so two physically identical
	// but temporally distant clusters are not merged.
	TimeDivider float64
}

// DefaultFeatureConfig mirrors the production weighting for wind turbine
// modal estimates.
func DefaultFeatureConfig() FeatureConfig {
	return FeatureConfig{
		Columns: []string{"frequency", "size", "damping"},
		Multipliers: map[string]float64{
			"frequency": 40,
			"damping":   1,
			"size":      0.5,
		},
		TimeDivider: 20000,
	}
}

func (fc FeatureConfig) validate(t *Table) error {
	for col := range fc.Multipliers {
		found := false
		for _, c := range fc.Columns {
			if c == col {
				found = true
				break
			}
		}
		if !found {
			return configErrorf("multiplier configured for column %q which is not a feature column", col)
		}
	}
	if !CheckColumns(fc.Columns, t) {
		return inputErrorf("the modal data does not contain all the required columns %v", fc.Columns)
	}
	return nil
}

// multiplier returns the configured weight for a column, defaulting to 1.
func (fc FeatureConfig) multiplier(col string) float64 {
	if m, ok := fc.Multipliers[col]; ok {
		return m
	}
	return 1
}

// featureDim returns the dimensionality of the built feature vectors.
func (fc FeatureConfig) featureDim() int {
	d := len(fc.Columns)
	if fc.TimeDivider > 0 {
		d++
	}
	return d
}

// BuildFeatures constructs one weighted feature vector per row of the table.
// The table itself is left on its original scale.
func (fc FeatureConfig) BuildFeatures(t *Table) ([][]float64, error) {
	if err := fc.validate(t); err != nil {
		return nil, err
	}
	dim := fc.featureDim()
	features := make([][]float64, t.Len())
	for i := range features {
		features[i] = make([]float64, 0, dim)
	}
	for _, col := range fc.Columns {
		vals, _ := t.Column(col)
		mult := fc.multiplier(col)
		shift := 0.0
		if strings.Contains(col, "damping") {
			shift = 1.0
		}
		for i, v := range vals {
			features[i] = append(features[i], (v+shift)*mult)
		}
	}
	if fc.TimeDivider > 0 {
		for i := range features {
			features[i] = append(features[i], float64(i)/fc.TimeDivider)
		}
	}
	return features, nil
}

// SelectCandidates keeps only rows that can correspond to physical modes:
// size strictly above minSize and damping strictly below maxDamping. Rows
// failing either bound are non-physical and are excluded before clustering.
func SelectCandidates(t *Table, roles Roles, minSize, maxDamping float64) (*Table, error) {
	if !t.HasColumn(roles.Size) {
		return nil, inputErrorf("no size data found in table (column %q)", roles.Size)
	}
	dampCol, err := t.DampingColumn(roles)
	if err != nil {
		return nil, err
	}
	size, _ := t.Column(roles.Size)
	damping, _ := t.Column(dampCol)
	return t.Filter(func(i int) bool {
		return size[i] > minSize && damping[i] < maxDamping
	}), nil
}
