package modal

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestTable_SetColumnLengthMismatch(t *testing.T) {
	tbl := NewTable(testTimestamps(3))
	if err := tbl.SetColumn("frequency", []float64{1, 2}); err == nil {
		t.Fatal("expected error for mismatched column length")
	}
}

func TestTable_FilterKeepsColumnOrder(t *testing.T) {
	tbl := NewTable(testTimestamps(3))
	for _, name := range []string{"frequency", "size", "damping"} {
		if err := tbl.SetColumn(name, []float64{1, 2, 3}); err != nil {
			t.Fatal(err)
		}
	}
	got := tbl.Filter(func(i int) bool { return i != 1 })
	if got.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", got.Len())
	}
	if diff := cmp.Diff(tbl.Columns(), got.Columns()); diff != "" {
		t.Errorf("column order changed by filter (-want +got):\n%s", diff)
	}
}

func TestTable_JoinMismatchedIndex(t *testing.T) {
	a := NewTable(testTimestamps(3))
	b := NewTable(testTimestamps(4))
	if _, err := a.Join(b); err == nil {
		t.Fatal("expected error joining tables with different indices")
	}

	shifted := testTimestamps(3)
	shifted[2] = shifted[2].Add(time.Second)
	c := NewTable(shifted)
	if _, err := a.Join(c); err == nil {
		t.Fatal("expected error joining tables with diverging timestamps")
	}
}

func TestTable_FrequencyFallback(t *testing.T) {
	tbl := NewTable(testTimestamps(2))
	if err := tbl.SetColumn("mean_frequency", []float64{1, 2}); err != nil {
		t.Fatal(err)
	}
	s, err := tbl.FrequencySeries(DefaultRoles())
	if err != nil {
		t.Fatalf("mean_frequency fallback failed: %v", err)
	}
	if s.Name != "mean_frequency" {
		t.Errorf("resolved %q, want mean_frequency", s.Name)
	}
}

func TestCheckColumns(t *testing.T) {
	tbl := NewTable(testTimestamps(1))
	if err := tbl.SetColumn("frequency", []float64{1}); err != nil {
		t.Fatal(err)
	}
	if !CheckColumns([]string{"frequency"}, tbl) {
		t.Error("expected frequency to be present")
	}
	if CheckColumns([]string{"frequency", "size"}, tbl) {
		t.Error("expected size to be missing")
	}
}
