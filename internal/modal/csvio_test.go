package modal

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func writeTestCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "table.csv")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write csv: %v", err)
	}
	return path
}

func TestLoadCSVRoundTrip(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	tbl := NewTable([]time.Time{base, base.Add(time.Minute), base.Add(2 * time.Minute)})
	if err := tbl.SetColumn("frequency", []float64{1.1, 2.2, 3.3}); err != nil {
		t.Fatalf("SetColumn: %v", err)
	}
	if err := tbl.SetColumn("size", []float64{40, 50, 60}); err != nil {
		t.Fatalf("SetColumn: %v", err)
	}

	path := filepath.Join(t.TempDir(), "roundtrip.csv")
	if err := WriteCSV(tbl, path); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}
	loaded, err := LoadCSV(path)
	if err != nil {
		t.Fatalf("LoadCSV failed: %v", err)
	}

	if diff := cmp.Diff(tbl.Timestamps(), loaded.Timestamps()); diff != "" {
		t.Errorf("timestamps mismatch (-want +got):\n%s", diff)
	}
	for _, col := range tbl.Columns() {
		want, _ := tbl.Column(col)
		got, ok := loaded.Column(col)
		if !ok {
			t.Fatalf("loaded table missing column %q", col)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("column %q mismatch (-want +got):\n%s", col, diff)
		}
	}
}

func TestLoadCSVRejectsUnsortedTimestamps(t *testing.T) {
	path := writeTestCSV(t, "timestamp,frequency\n"+
		"2026-03-01T00:02:00Z,1.1\n"+
		"2026-03-01T00:01:00Z,2.2\n")

	_, err := LoadCSV(path)
	var inputErr *InputError
	if !errors.As(err, &inputErr) {
		t.Fatalf("expected InputError for unsorted timestamps, got %v", err)
	}
}

func TestLoadCSVRejectsBadHeader(t *testing.T) {
	path := writeTestCSV(t, "time,frequency\n2026-03-01T00:00:00Z,1.1\n")

	_, err := LoadCSV(path)
	var inputErr *InputError
	if !errors.As(err, &inputErr) {
		t.Fatalf("expected InputError for missing timestamp header, got %v", err)
	}
}

func TestLoadCSVRejectsRaggedRow(t *testing.T) {
	path := writeTestCSV(t, "timestamp,frequency,size\n"+
		"2026-03-01T00:00:00Z,1.1\n")

	if _, err := LoadCSV(path); err == nil {
		t.Fatal("expected error for row with missing fields")
	}
}
