// Package modal implements the analysis core for operational modal analysis
// of rotating structures: harmonic detection and removal, density-based mode
// clustering, and classification of new mode observations against previously
// established clusters.
package modal

import (
	"sort"
	"time"
)

// Column naming for derived data. Harmonic and distance columns embed the
// harmonic order, e.g. "harmonic_3p" and "distance_3p".
const (
	LabelsColumn   = "labels"
	TimeDiffColumn = "time_diff"
)

// Roles maps column roles to exact column names in a Table. Lookups for
// frequency and damping fall back to the "mean_" variants produced by
// upstream aggregation.
type Roles struct {
	RPM       string
	Frequency string
	Damping   string
	Size      string
}

// DefaultRoles returns the conventional column names.
func DefaultRoles() Roles {
	return Roles{
		RPM:       "rpm",
		Frequency: "frequency",
		Damping:   "damping",
		Size:      "size",
	}
}

// Table is an ordered, time-indexed numeric table. Timestamps are unique and
// ascending. Columns hold one float64 per row. Filtering operations return
// new Tables; values are never edited in place.
type Table struct {
	timestamps []time.Time
	order      []string
	columns    map[string][]float64
}

// NewTable creates a table over the given time index.
func NewTable(timestamps []time.Time) *Table {
	ts := make([]time.Time, len(timestamps))
	copy(ts, timestamps)
	return &Table{
		timestamps: ts,
		columns:    make(map[string][]float64),
	}
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.timestamps) }

// Timestamps returns the time index. Callers must not modify the result.
func (t *Table) Timestamps() []time.Time { return t.timestamps }

// Columns returns column names in insertion order.
func (t *Table) Columns() []string { return t.order }

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.columns[name]
	return ok
}

// Column returns the values of the named column. Callers must not modify the
// result.
func (t *Table) Column(name string) ([]float64, bool) {
	vals, ok := t.columns[name]
	return vals, ok
}

// SetColumn adds or replaces a column. The value count must match the row
// count.
func (t *Table) SetColumn(name string, values []float64) error {
	if len(values) != len(t.timestamps) {
		return inputErrorf("column %q has %d values for %d rows", name, len(values), len(t.timestamps))
	}
	if _, exists := t.columns[name]; !exists {
		t.order = append(t.order, name)
	}
	vals := make([]float64, len(values))
	copy(vals, values)
	t.columns[name] = vals
	return nil
}

// Series is a single named column with its time index.
type Series struct {
	Name       string
	Timestamps []time.Time
	Values     []float64
}

// Len returns the number of samples.
func (s Series) Len() int { return len(s.Values) }

// Series extracts the named column as a Series.
func (t *Table) Series(name string) (Series, error) {
	vals, ok := t.columns[name]
	if !ok {
		return Series{}, inputErrorf("no %q column in table", name)
	}
	return Series{Name: name, Timestamps: t.timestamps, Values: vals}, nil
}

// FrequencySeries resolves the frequency column through the roles, falling
// back to "mean_frequency".
func (t *Table) FrequencySeries(roles Roles) (Series, error) {
	name, err := t.FrequencyColumn(roles)
	if err != nil {
		return Series{}, err
	}
	return t.Series(name)
}

// FrequencyColumn resolves the frequency column name.
func (t *Table) FrequencyColumn(roles Roles) (string, error) {
	if t.HasColumn(roles.Frequency) {
		return roles.Frequency, nil
	}
	if t.HasColumn("mean_" + roles.Frequency) {
		return "mean_" + roles.Frequency, nil
	}
	return "", inputErrorf("no frequency data found in table (tried %q, %q)", roles.Frequency, "mean_"+roles.Frequency)
}

// DampingColumn resolves the damping column name, falling back to
// "mean_damping". First match wins.
func (t *Table) DampingColumn(roles Roles) (string, error) {
	if t.HasColumn(roles.Damping) {
		return roles.Damping, nil
	}
	if t.HasColumn("mean_" + roles.Damping) {
		return "mean_" + roles.Damping, nil
	}
	return "", inputErrorf("no damping data found in table (tried %q, %q)", roles.Damping, "mean_"+roles.Damping)
}

// RPMSeries resolves the rpm column through the roles.
func (t *Table) RPMSeries(roles Roles) (Series, error) {
	if !t.HasColumn(roles.RPM) {
		return Series{}, inputErrorf("no rpm data found in table (column %q)", roles.RPM)
	}
	return t.Series(roles.RPM)
}

// Filter returns a new table containing only the rows for which keep reports
// true. Column order is preserved.
func (t *Table) Filter(keep func(row int) bool) *Table {
	idx := make([]int, 0, len(t.timestamps))
	for i := range t.timestamps {
		if keep(i) {
			idx = append(idx, i)
		}
	}
	return t.selectRows(idx)
}

func (t *Table) selectRows(idx []int) *Table {
	out := &Table{
		timestamps: make([]time.Time, len(idx)),
		order:      append([]string(nil), t.order...),
		columns:    make(map[string][]float64, len(t.columns)),
	}
	for j, i := range idx {
		out.timestamps[j] = t.timestamps[i]
	}
	for name, vals := range t.columns {
		sel := make([]float64, len(idx))
		for j, i := range idx {
			sel[j] = vals[i]
		}
		out.columns[name] = sel
	}
	return out
}

// Join returns a new table with the columns of both tables. The tables must
// share an identical time index; outer-join semantics are not supported.
func (t *Table) Join(other *Table) (*Table, error) {
	if err := checkAligned(t.timestamps, other.timestamps); err != nil {
		return nil, err
	}
	out := NewTable(t.timestamps)
	for _, name := range t.order {
		if err := out.SetColumn(name, t.columns[name]); err != nil {
			return nil, err
		}
	}
	for _, name := range other.order {
		if err := out.SetColumn(name, other.columns[name]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// SortedByTime reports whether the time index is strictly ascending.
func (t *Table) SortedByTime() bool {
	return sort.SliceIsSorted(t.timestamps, func(i, j int) bool {
		return t.timestamps[i].Before(t.timestamps[j])
	})
}

// checkAligned verifies two time indices are identical.
func checkAligned(a, b []time.Time) error {
	if len(a) != len(b) {
		return inputErrorf("time indices differ in length: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return inputErrorf("time indices diverge at row %d: %s vs %s", i, a[i], b[i])
		}
	}
	return nil
}

// CheckColumns reports whether every listed column exists in the table.
func CheckColumns(cols []string, t *Table) bool {
	for _, c := range cols {
		if !t.HasColumn(c) {
			return false
		}
	}
	return true
}
