package modal

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"
)

// CSV layout: a header row, a "timestamp" first column in RFC3339 and one
// float64 column per remaining header.

// LoadCSV reads a time-indexed table from a CSV file.
func LoadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(records) < 1 {
		return nil, inputErrorf("%s: empty csv file", path)
	}
	header := records[0]
	if len(header) < 2 || header[0] != "timestamp" {
		return nil, inputErrorf("%s: first column must be \"timestamp\"", path)
	}

	rows := records[1:]
	timestamps := make([]time.Time, len(rows))
	cols := make([][]float64, len(header)-1)
	for j := range cols {
		cols[j] = make([]float64, len(rows))
	}
	for i, rec := range rows {
		if len(rec) != len(header) {
			return nil, inputErrorf("%s: row %d has %d fields, want %d", path, i+2, len(rec), len(header))
		}
		ts, err := time.Parse(time.RFC3339, rec[0])
		if err != nil {
			return nil, fmt.Errorf("%s: row %d: %w", path, i+2, err)
		}
		timestamps[i] = ts
		for j := 1; j < len(rec); j++ {
			v, err := strconv.ParseFloat(rec[j], 64)
			if err != nil {
				return nil, fmt.Errorf("%s: row %d column %q: %w", path, i+2, header[j], err)
			}
			cols[j-1][i] = v
		}
	}

	tbl := NewTable(timestamps)
	if !tbl.SortedByTime() {
		return nil, inputErrorf("%s: timestamps are not in ascending order", path)
	}
	for j, name := range header[1:] {
		if err := tbl.SetColumn(name, cols[j]); err != nil {
			return nil, err
		}
	}
	return tbl, nil
}

// WriteCSV writes the table in the same layout LoadCSV reads.
func WriteCSV(t *Table, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := append([]string{"timestamp"}, t.Columns()...)
	if err := w.Write(header); err != nil {
		return err
	}
	row := make([]string, len(header))
	for i, ts := range t.Timestamps() {
		row[0] = ts.UTC().Format(time.RFC3339)
		for j, name := range t.Columns() {
			vals, _ := t.Column(name)
			row[j+1] = strconv.FormatFloat(vals[i], 'g', -1, 64)
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
