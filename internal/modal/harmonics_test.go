package modal

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func testTimestamps(n int) []time.Time {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	ts := make([]time.Time, n)
	for i := range ts {
		ts[i] = base.Add(time.Duration(i) * 10 * time.Minute)
	}
	return ts
}

func TestTheoreticalHarmonics_Exact(t *testing.T) {
	rpmValues := []float64{0, 6, 12, 12.5, 60}
	rpm := Series{Name: "rpm", Timestamps: testTimestamps(5), Values: rpmValues}
	orders := []int{1, 3, 6}

	got, err := TheoreticalHarmonics(rpm, orders)
	if err != nil {
		t.Fatalf("TheoreticalHarmonics: %v", err)
	}
	if len(got.Columns()) != len(orders) {
		t.Fatalf("expected %d columns, got %d", len(orders), len(got.Columns()))
	}
	for _, p := range orders {
		col, ok := got.Column(HarmonicColumn(p))
		if !ok {
			t.Fatalf("missing column %s", HarmonicColumn(p))
		}
		for i, r := range rpmValues {
			want := float64(p) / 60 * r
			if col[i] != want {
				t.Errorf("harmonic_%dp[%d] = %v, want exactly %v", p, i, col[i], want)
			}
		}
	}
}

func TestTheoreticalHarmonics_NoRPM(t *testing.T) {
	_, err := TheoreticalHarmonics(Series{Name: "rpm"}, []int{1})
	var inputErr *InputError
	if !errors.As(err, &inputErr) {
		t.Fatalf("expected InputError for empty rpm series, got %v", err)
	}
}

func TestDistanceToHarmonic_IndexMismatch(t *testing.T) {
	freq := Series{Name: "frequency", Timestamps: testTimestamps(3), Values: []float64{0.2, 0.3, 0.4}}
	shifted := testTimestamps(3)
	shifted[1] = shifted[1].Add(time.Minute)
	rpm := Series{Name: "rpm", Timestamps: shifted, Values: []float64{10, 11, 12}}

	_, err := DistanceToHarmonic(freq, rpm, 3)
	var inputErr *InputError
	if !errors.As(err, &inputErr) {
		t.Fatalf("expected InputError for mismatched indices, got %v", err)
	}
}

func TestDistancesTable_Idempotent(t *testing.T) {
	ts := testTimestamps(4)
	freq := Series{Name: "frequency", Timestamps: ts, Values: []float64{0.2, 0.35, 0.6, 1.2}}
	rpm := Series{Name: "rpm", Timestamps: ts, Values: []float64{8, 12, 12, 14}}
	orders := []int{1, 3}

	first, err := DistancesTable(freq, rpm, orders)
	if err != nil {
		t.Fatalf("DistancesTable: %v", err)
	}
	second, err := DistancesTable(freq, rpm, orders)
	if err != nil {
		t.Fatalf("DistancesTable: %v", err)
	}
	for _, p := range orders {
		a, _ := first.Column(DistanceColumn(p))
		b, _ := second.Column(DistanceColumn(p))
		if diff := cmp.Diff(a, b); diff != "" {
			t.Errorf("distance_%dp differs between identical calls (-first +second):\n%s", p, diff)
		}
	}
}

func TestRemoveHarmonics(t *testing.T) {
	ts := testTimestamps(6)
	modal := NewTable(ts)
	// Rows 1 and 3 sit exactly on the 3p harmonic of their rpm.
	if err := modal.SetColumn("frequency", []float64{0.30, 0.60, 0.90, 0.65, 0.31, 0.60}); err != nil {
		t.Fatal(err)
	}
	if err := modal.SetColumn("damping", []float64{1, 1, 1, 1, 1, 1}); err != nil {
		t.Fatal(err)
	}
	scada := NewTable(ts)
	if err := scada.SetColumn("rpm", []float64{12, 12, 12, 13, 5, 20}); err != nil {
		t.Fatal(err)
	}

	hf := NewHarmonicFilter([]int{3})
	hf.MinRPM = 6
	hf.MaxDistance = 0.05

	got, err := hf.RemoveHarmonics(modal, scada)
	if err != nil {
		t.Fatalf("RemoveHarmonics: %v", err)
	}

	if got.Len() > modal.Len() {
		t.Fatalf("removal grew the table: %d > %d", got.Len(), modal.Len())
	}
	// Row 1 (freq 0.60, 3p of 12rpm = 0.60) and row 3 (0.65 vs 3p of 13rpm =
	// 0.65) must be removed. Row 4 matches its harmonic but rpm 5 <= MinRPM,
	// so a parked turbine keeps all its modes.
	wantLen := 4
	if got.Len() != wantLen {
		t.Fatalf("expected %d retained rows, got %d", wantLen, got.Len())
	}
	freq, _ := got.Column("frequency")
	kept := map[float64]bool{}
	for _, f := range freq {
		kept[f] = true
	}
	if !kept[0.31] {
		t.Error("low-rpm row was removed; rows at or below MinRPM must always survive")
	}
	if kept[0.65] {
		t.Error("harmonic row above MinRPM was not removed")
	}
}

func TestRemoveHarmonics_RetainedRowsProperty(t *testing.T) {
	ts := testTimestamps(50)
	modal := NewTable(ts)
	scada := NewTable(ts)
	freqs := make([]float64, 50)
	rpms := make([]float64, 50)
	for i := range freqs {
		freqs[i] = 0.1 + float64(i)*0.017
		rpms[i] = float64(i % 16)
	}
	if err := modal.SetColumn("frequency", freqs); err != nil {
		t.Fatal(err)
	}
	if err := scada.SetColumn("rpm", rpms); err != nil {
		t.Fatal(err)
	}

	hf := NewHarmonicFilter([]int{1, 3, 6})
	got, err := hf.RemoveHarmonics(modal, scada)
	if err != nil {
		t.Fatalf("RemoveHarmonics: %v", err)
	}

	// Every retained row either idles below MinRPM or clears MaxDistance on
	// all orders.
	gotFreq, _ := got.Column("frequency")
	rpmByTime := map[time.Time]float64{}
	for i, tt := range ts {
		rpmByTime[tt] = rpms[i]
	}
	for i, tt := range got.Timestamps() {
		rpm := rpmByTime[tt]
		if rpm <= hf.MinRPM {
			continue
		}
		for _, p := range hf.Orders {
			dist := float64(p)/60*rpm - gotFreq[i]
			if dist < 0 {
				dist = -dist
			}
			if dist < hf.MaxDistance {
				t.Fatalf("retained row %d (rpm %.1f) is within %.3f of order %dp", i, rpm, dist, p)
			}
		}
	}
}

func TestPlotDistanceData(t *testing.T) {
	ts := testTimestamps(3)
	modal := NewTable(ts)
	if err := modal.SetColumn("frequency", []float64{0.3, 1.5, 2.5}); err != nil {
		t.Fatal(err)
	}
	if err := modal.SetColumn("damping", []float64{1, 12, 1}); err != nil {
		t.Fatal(err)
	}
	scada := NewTable(ts)
	if err := scada.SetColumn("rpm", []float64{10, 11, 12}); err != nil {
		t.Fatal(err)
	}

	hf := NewHarmonicFilter([]int{1, 3})
	got, err := hf.PlotDistanceData(modal, scada, 2.0, 10.0)
	if err != nil {
		t.Fatalf("PlotDistanceData: %v", err)
	}
	// Row 1 exceeds max damping, row 2 exceeds max frequency.
	if got.Len() != 1 {
		t.Fatalf("expected 1 row after caps, got %d", got.Len())
	}
	for _, want := range []string{"frequency", "damping", "rpm", DistanceColumn(1), DistanceColumn(3)} {
		if !got.HasColumn(want) {
			t.Errorf("plot data missing column %q", want)
		}
	}
}
