package modal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregate(t *testing.T) {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	var ts []time.Time
	var vals []float64
	// Two full hours of 10-minute samples, then a gappy hour with only two.
	for h := 0; h < 2; h++ {
		for i := 0; i < 6; i++ {
			ts = append(ts, base.Add(time.Duration(h)*time.Hour+time.Duration(i)*10*time.Minute))
			vals = append(vals, float64(h*6+i))
		}
	}
	ts = append(ts, base.Add(2*time.Hour), base.Add(2*time.Hour+10*time.Minute))
	vals = append(vals, 100, 200)

	tbl := NewTable(ts)
	require.NoError(t, tbl.SetColumn("frequency", vals))

	got, err := Aggregate(tbl, time.Hour, 0.9)
	require.NoError(t, err)

	require.Equal(t, 2, got.Len(), "the bucket covering only 2/6 samples must be dropped")
	freq, _ := got.Column("frequency")
	assert.InDelta(t, 2.5, freq[0], 1e-12)  // mean of 0..5
	assert.InDelta(t, 8.5, freq[1], 1e-12)  // mean of 6..11
	assert.Equal(t, base, got.Timestamps()[0])
	assert.Equal(t, base.Add(time.Hour), got.Timestamps()[1])
}

func TestAggregate_BoundaryCoverage(t *testing.T) {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	var ts []time.Time
	for i := 0; i < 6; i++ {
		ts = append(ts, base.Add(time.Duration(i)*10*time.Minute))
	}
	// A second bucket at 5/6 of the full population clears a 0.8 floor.
	for i := 0; i < 5; i++ {
		ts = append(ts, base.Add(time.Hour+time.Duration(i)*10*time.Minute))
	}
	tbl := NewTable(ts)
	require.NoError(t, tbl.SetColumn("size", make([]float64, len(ts))))

	got, err := Aggregate(tbl, time.Hour, 0.8)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Len())
}

func TestAggregate_Empty(t *testing.T) {
	_, err := Aggregate(NewTable(nil), time.Hour, 0.9)
	var inputErr *InputError
	require.ErrorAs(t, err, &inputErr)
}

func TestAggregate_BadPeriod(t *testing.T) {
	tbl := NewTable(testTimestamps(2))
	require.NoError(t, tbl.SetColumn("size", []float64{1, 2}))

	_, err := Aggregate(tbl, 0, 0.9)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
}
