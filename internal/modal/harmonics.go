package modal

import (
	"fmt"
	"math"
)

// Rotor harmonics appear at (p/60)*rpm Hz for integer order p. The relation
// is exactly linear in rpm, so contamination is detected by absolute distance
// between a measured modal frequency and each theoretical harmonic, gated by
// a minimum rpm below which harmonics are degenerate.

// HarmonicColumn returns the derived column name for order p, e.g.
// "harmonic_3p".
func HarmonicColumn(p int) string { return fmt.Sprintf("harmonic_%dp", p) }

// DistanceColumn returns the derived column name for order p, e.g.
// "distance_3p".
func DistanceColumn(p int) string { return fmt.Sprintf("distance_%dp", p) }

func checkSeries(s Series, what string) error {
	if len(s.Values) == 0 {
		return inputErrorf("no %s data found", what)
	}
	if len(s.Timestamps) != len(s.Values) {
		return inputErrorf("%s data has no usable time index: %d timestamps for %d values",
			what, len(s.Timestamps), len(s.Values))
	}
	return nil
}

// TheoreticalHarmonics computes the theoretical harmonic frequency series
// implied by the rpm series for each order: harmonic_{p}p[t] = (p/60)*rpm[t].
func TheoreticalHarmonics(rpm Series, orders []int) (*Table, error) {
	if err := checkSeries(rpm, "rpm"); err != nil {
		return nil, err
	}
	out := NewTable(rpm.Timestamps)
	for _, p := range orders {
		vals := make([]float64, len(rpm.Values))
		for i, r := range rpm.Values {
			vals[i] = float64(p) / 60 * r
		}
		if err := out.SetColumn(HarmonicColumn(p), vals); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// DistanceToHarmonic computes the pointwise absolute distance between the
// measured frequency and the order-p theoretical harmonic. Both series must
// be indexed by the same timestamps.
func DistanceToHarmonic(freq, rpm Series, p int) (Series, error) {
	if err := checkSeries(freq, "frequency"); err != nil {
		return Series{}, err
	}
	if err := checkSeries(rpm, "rpm"); err != nil {
		return Series{}, err
	}
	if err := checkAligned(freq.Timestamps, rpm.Timestamps); err != nil {
		return Series{}, err
	}
	vals := make([]float64, len(freq.Values))
	for i := range vals {
		vals[i] = math.Abs(float64(p)/60*rpm.Values[i] - freq.Values[i])
	}
	return Series{Name: DistanceColumn(p), Timestamps: freq.Timestamps, Values: vals}, nil
}

// DistancesTable computes one distance_{p}p column per order. Each column is
// computed independently.
func DistancesTable(freq, rpm Series, orders []int) (*Table, error) {
	if err := checkSeries(freq, "frequency"); err != nil {
		return nil, err
	}
	out := NewTable(freq.Timestamps)
	for _, p := range orders {
		d, err := DistanceToHarmonic(freq, rpm, p)
		if err != nil {
			return nil, err
		}
		if err := out.SetColumn(d.Name, d.Values); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// HarmonicFilter removes rotor-harmonic contamination from a modal table.
type HarmonicFilter struct {
	Orders      []int
	MinRPM      float64 // rows at or below this rpm are never removed
	MaxDistance float64 // Hz; distance below this to any order marks a row as harmonic
	Roles       Roles
}

// NewHarmonicFilter returns a filter with production-default thresholds.
func NewHarmonicFilter(orders []int) *HarmonicFilter {
	return &HarmonicFilter{
		Orders:      orders,
		MinRPM:      6.0,
		MaxDistance: 0.1,
		Roles:       DefaultRoles(),
	}
}

// PlotDistanceData joins the modal table with its per-order distance columns
// and the rpm column, for the presentation layer. maxFrequency and maxDamping
// cap the rows included; either may be 0 to disable the cap.
func (hf *HarmonicFilter) PlotDistanceData(modal, scada *Table, maxFrequency, maxDamping float64) (*Table, error) {
	freq, err := modal.FrequencySeries(hf.Roles)
	if err != nil {
		return nil, err
	}
	rpm, err := scada.RPMSeries(hf.Roles)
	if err != nil {
		return nil, err
	}
	distances, err := DistancesTable(freq, rpm, hf.Orders)
	if err != nil {
		return nil, err
	}
	joined, err := modal.Join(distances)
	if err != nil {
		return nil, err
	}
	rpmTable := NewTable(scada.Timestamps())
	if err := rpmTable.SetColumn(rpm.Name, rpm.Values); err != nil {
		return nil, err
	}
	joined, err = joined.Join(rpmTable)
	if err != nil {
		return nil, err
	}
	if maxFrequency <= 0 && maxDamping <= 0 {
		return joined, nil
	}
	dampCol, err := joined.DampingColumn(hf.Roles)
	if err != nil {
		return nil, err
	}
	damping, _ := joined.Column(dampCol)
	return joined.Filter(func(i int) bool {
		if maxFrequency > 0 && freq.Values[i] >= maxFrequency {
			return false
		}
		if maxDamping > 0 && damping[i] >= maxDamping {
			return false
		}
		return true
	}), nil
}

// RemoveHarmonics drops every modal row whose rpm exceeds MinRPM and whose
// minimum distance over the configured orders is below MaxDistance. A row
// close to any single order is removed; rows at or below MinRPM are always
// kept. Only rows are removed, values are never modified.
func (hf *HarmonicFilter) RemoveHarmonics(modal, scada *Table) (*Table, error) {
	freq, err := modal.FrequencySeries(hf.Roles)
	if err != nil {
		return nil, err
	}
	rpm, err := scada.RPMSeries(hf.Roles)
	if err != nil {
		return nil, err
	}
	distances, err := DistancesTable(freq, rpm, hf.Orders)
	if err != nil {
		return nil, err
	}
	return modal.Filter(func(i int) bool {
		if rpm.Values[i] <= hf.MinRPM {
			return true
		}
		minDist := math.Inf(1)
		for _, p := range hf.Orders {
			d, _ := distances.Column(DistanceColumn(p))
			if d[i] < minDist {
				minDist = d[i]
			}
		}
		return minDist >= hf.MaxDistance
	}), nil
}
