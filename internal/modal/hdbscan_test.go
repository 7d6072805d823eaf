package modal

import (
	"math/rand"
	"testing"
)

func blobPoints(centres [][]float64, perBlob int, spread float64, seed int64) [][]float64 {
	rng := rand.New(rand.NewSource(seed))
	var points [][]float64
	for _, c := range centres {
		for i := 0; i < perBlob; i++ {
			p := make([]float64, len(c))
			for d := range c {
				p[d] = c[d] + (rng.Float64()*2-1)*spread
			}
			points = append(points, p)
		}
	}
	return points
}

func TestHDBSCAN_SeparatesBlobs(t *testing.T) {
	centres := [][]float64{{0, 0}, {10, 0}, {0, 10}}
	points := blobPoints(centres, 30, 0.5, 3)

	labels := HDBSCAN(points, HDBSCANParams{MinClusterSize: 10})
	if len(labels) != len(points) {
		t.Fatalf("expected %d labels, got %d", len(points), len(labels))
	}

	// Every blob should map onto exactly one label, and the three labels
	// should be distinct.
	blobLabel := make(map[int]int)
	for b := 0; b < len(centres); b++ {
		counts := map[int]int{}
		for i := b * 30; i < (b+1)*30; i++ {
			counts[labels[i]]++
		}
		majority, best := -1, 0
		for l, c := range counts {
			if c > best {
				majority, best = l, c
			}
		}
		if majority < 0 {
			t.Fatalf("blob %d entirely labeled noise", b)
		}
		if best < 25 {
			t.Errorf("blob %d fragmented: majority label covers only %d/30 points", b, best)
		}
		blobLabel[majority]++
	}
	if len(blobLabel) != 3 {
		t.Errorf("expected 3 distinct cluster labels, got %d", len(blobLabel))
	}
}

func TestHDBSCAN_NoiseForOutliers(t *testing.T) {
	points := blobPoints([][]float64{{0, 0}}, 40, 0.5, 5)
	points = append(points, []float64{100, 100}, []float64{-80, 40})

	labels := HDBSCAN(points, HDBSCANParams{MinClusterSize: 10})
	if labels[40] != -1 || labels[41] != -1 {
		t.Errorf("distant outliers should be noise, got labels %d, %d", labels[40], labels[41])
	}
}

func TestHDBSCAN_TooFewPoints(t *testing.T) {
	points := [][]float64{{0, 0}, {1, 1}}
	labels := HDBSCAN(points, HDBSCANParams{MinClusterSize: 10})
	for i, l := range labels {
		if l != -1 {
			t.Errorf("point %d labeled %d; fewer points than MinClusterSize must all be noise", i, l)
		}
	}
}

func TestHDBSCAN_Empty(t *testing.T) {
	if labels := HDBSCAN(nil, DefaultHDBSCANParams()); labels != nil {
		t.Errorf("expected nil labels for empty input, got %v", labels)
	}
}

func TestDBSCAN_Deterministic(t *testing.T) {
	points := blobPoints([][]float64{{0, 0}, {5, 5}}, 20, 0.3, 9)
	params := DBSCANParams{Eps: 1.0, MinSamples: 5}

	first := DBSCAN(points, params)
	second := DBSCAN(points, params)
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("label %d differs between identical runs: %d vs %d", i, first[i], second[i])
		}
	}
}

func TestDBSCAN_LabelsStartAtZero(t *testing.T) {
	points := blobPoints([][]float64{{0, 0}, {5, 5}}, 20, 0.3, 11)
	labels := DBSCAN(points, DBSCANParams{Eps: 1.0, MinSamples: 5})

	seen := map[int]bool{}
	for _, l := range labels {
		seen[l] = true
	}
	if !seen[0] || !seen[1] {
		t.Errorf("expected cluster ids 0 and 1, got %v", seen)
	}
	for l := range seen {
		if l < -1 || l > 1 {
			t.Errorf("unexpected label %d", l)
		}
	}
}
