package modal

import "math"

// DBSCAN over weighted modal feature vectors. Neighbourhoods use Euclidean
// distance across all feature dimensions; the index grids only the first two
// dimensions (frequency and size after weighting), which is sufficient
// because a point within eps overall is within eps on every axis.

// DBSCANParams configures the fixed-radius clustering engine.
type DBSCANParams struct {
	Eps        float64 // neighbourhood radius in weighted feature units
	MinSamples int     // minimum neighbourhood population for a core point
}

// DefaultDBSCANParams returns parameters tuned for ten-minute modal
// estimates with the default feature weighting.
func DefaultDBSCANParams() DBSCANParams {
	return DBSCANParams{Eps: 5, MinSamples: 100}
}

// featureIndex accelerates neighbourhood queries with a regular grid over
// the first two feature dimensions. Cell size matches eps.
type featureIndex struct {
	cellSize float64
	grid     map[int64][]int
}

func newFeatureIndex(cellSize float64) *featureIndex {
	return &featureIndex{cellSize: cellSize, grid: make(map[int64][]int)}
}

func (fi *featureIndex) build(points [][]float64) {
	fi.grid = make(map[int64][]int, len(points)/4+1)
	for i, p := range points {
		id := fi.cellID(coord(p, 0), coord(p, 1))
		fi.grid[id] = append(fi.grid[id], i)
	}
}

func coord(p []float64, dim int) float64 {
	if dim < len(p) {
		return p[dim]
	}
	return 0
}

// cellID maps a 2D cell to a unique id using zigzag encoding and Szudzik's
// pairing function, which handles negative coordinates.
func (fi *featureIndex) cellID(x, y float64) int64 {
	cellX := int64(math.Floor(x / fi.cellSize))
	cellY := int64(math.Floor(y / fi.cellSize))

	var a, b int64
	if cellX >= 0 {
		a = 2 * cellX
	} else {
		a = -2*cellX - 1
	}
	if cellY >= 0 {
		b = 2 * cellY
	} else {
		b = -2*cellY - 1
	}

	if a >= b {
		return a*a + a + b
	}
	return a + b*b
}

// regionQuery returns the indices of all points within eps of points[idx],
// measured over the full feature dimensionality.
func (fi *featureIndex) regionQuery(points [][]float64, idx int, eps float64) []int {
	p := points[idx]
	eps2 := eps * eps
	neighbors := []int{}

	baseX := int64(math.Floor(coord(p, 0) / fi.cellSize))
	baseY := int64(math.Floor(coord(p, 1) / fi.cellSize))

	for dx := int64(-1); dx <= 1; dx++ {
		for dy := int64(-1); dy <= 1; dy++ {
			cx := float64(baseX+dx) * fi.cellSize
			cy := float64(baseY+dy) * fi.cellSize
			for _, candidate := range fi.grid[fi.cellID(cx, cy)] {
				if squaredDistance(p, points[candidate]) <= eps2 {
					neighbors = append(neighbors, candidate)
				}
			}
		}
	}
	return neighbors
}

func squaredDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// DBSCAN labels every feature vector with a cluster id starting at 0, or -1
// for noise. Labelling is deterministic in row order: cluster ids are
// assigned in order of first core-point discovery.
func DBSCAN(points [][]float64, params DBSCANParams) []int {
	n := len(points)
	if n == 0 {
		return nil
	}

	labels := make([]int, n) // 0=unvisited, -1=noise, >0=clusterID
	clusterID := 0

	index := newFeatureIndex(params.Eps)
	index.build(points)

	for i := 0; i < n; i++ {
		if labels[i] != 0 {
			continue
		}

		neighbors := index.regionQuery(points, i, params.Eps)
		if len(neighbors) < params.MinSamples {
			labels[i] = -1
			continue
		}

		clusterID++
		expandCluster(points, index, labels, i, neighbors, clusterID, params.Eps, params.MinSamples)
	}

	// Shift provisional ids down so clusters are 0-based and noise stays -1.
	for i, l := range labels {
		if l > 0 {
			labels[i] = l - 1
		}
	}
	return labels
}

// expandCluster grows a cluster from a core point using a queue of
// neighbours. Noise points reachable from a core point become border points.
func expandCluster(points [][]float64, fi *featureIndex, labels []int,
	seedIdx int, neighbors []int, clusterID int, eps float64, minSamples int) {

	labels[seedIdx] = clusterID

	for j := 0; j < len(neighbors); j++ {
		idx := neighbors[j]

		if labels[idx] == -1 {
			labels[idx] = clusterID
		}
		if labels[idx] != 0 {
			continue
		}

		labels[idx] = clusterID
		newNeighbors := fi.regionQuery(points, idx, eps)
		if len(newNeighbors) >= minSamples {
			neighbors = append(neighbors, newNeighbors...)
		}
	}
}
