package modal

import (
	"math"
	"sort"
)

// HDBSCAN generalises DBSCAN to varying density: instead of a single global
// eps it builds the mutual-reachability minimum spanning tree, condenses the
// resulting cluster hierarchy at a minimum cluster size, and extracts the
// most stable clusters. Preferred over DBSCAN when cluster density varies
// across frequency bands.

// HDBSCANParams configures the hierarchical clustering engine.
type HDBSCANParams struct {
	MinClusterSize int
	// MinSamples controls the core-distance neighbourhood. When 0 it adapts
	// to MinClusterSize.
	MinSamples int
}

// DefaultHDBSCANParams returns parameters tuned for ten-minute modal
// estimates.
func DefaultHDBSCANParams() HDBSCANParams {
	return HDBSCANParams{MinClusterSize: 50}
}

// HDBSCAN labels every feature vector with a cluster id starting at 0, or -1
// for noise.
func HDBSCAN(points [][]float64, params HDBSCANParams) []int {
	n := len(points)
	if n == 0 {
		return nil
	}
	mcs := params.MinClusterSize
	if mcs < 2 {
		mcs = 2
	}
	minSamples := params.MinSamples
	if minSamples <= 0 {
		minSamples = mcs
	}
	if minSamples > n {
		minSamples = n
	}
	labels := make([]int, n)
	if n < mcs {
		for i := range labels {
			labels[i] = -1
		}
		return labels
	}

	core := coreDistances(points, minSamples)
	edges := mutualReachabilityMST(points, core)
	tree := buildLinkageTree(edges, n)
	condensed := condenseTree(tree, n, mcs)
	selected := extractStableClusters(condensed)
	return condensed.labelPoints(n, selected)
}

// coreDistances returns for each point the distance to its k-th nearest
// neighbour, counting the point itself.
func coreDistances(points [][]float64, k int) []float64 {
	n := len(points)
	core := make([]float64, n)
	dists := make([]float64, n)
	for i := range points {
		for j := range points {
			dists[j] = math.Sqrt(squaredDistance(points[i], points[j]))
		}
		sort.Float64s(dists)
		core[i] = dists[k-1]
	}
	return core
}

type mstEdge struct {
	u, v   int
	weight float64
}

// mutualReachabilityMST builds the minimum spanning tree of the complete
// mutual-reachability graph using Prim's algorithm.
func mutualReachabilityMST(points [][]float64, core []float64) []mstEdge {
	n := len(points)
	inTree := make([]bool, n)
	bestDist := make([]float64, n)
	bestFrom := make([]int, n)
	for i := range bestDist {
		bestDist[i] = math.Inf(1)
		bestFrom[i] = -1
	}

	edges := make([]mstEdge, 0, n-1)
	current := 0
	inTree[0] = true
	for len(edges) < n-1 {
		next := -1
		nextDist := math.Inf(1)
		for j := 0; j < n; j++ {
			if inTree[j] {
				continue
			}
			d := math.Sqrt(squaredDistance(points[current], points[j]))
			mreach := math.Max(d, math.Max(core[current], core[j]))
			if mreach < bestDist[j] {
				bestDist[j] = mreach
				bestFrom[j] = current
			}
			if bestDist[j] < nextDist {
				nextDist = bestDist[j]
				next = j
			}
		}
		edges = append(edges, mstEdge{u: bestFrom[next], v: next, weight: bestDist[next]})
		inTree[next] = true
		current = next
	}

	sort.Slice(edges, func(i, j int) bool { return edges[i].weight < edges[j].weight })
	return edges
}

// linkageTree is the single-linkage dendrogram over the MST. Leaves are
// nodes 0..n-1; internal node n+t records the t-th merge.
type linkageTree struct {
	n        int
	children [][2]int  // indexed by node id - n
	weight   []float64 // merge distance, same indexing
	size     []int     // subtree leaf count, same indexing
}

func buildLinkageTree(edges []mstEdge, n int) *linkageTree {
	tree := &linkageTree{
		n:        n,
		children: make([][2]int, 0, n-1),
		weight:   make([]float64, 0, n-1),
		size:     make([]int, 0, n-1),
	}
	parent := make([]int, 2*n-1)
	for i := range parent {
		parent[i] = -1
	}
	find := func(x int) int {
		root := x
		for parent[root] != -1 {
			root = parent[root]
		}
		for parent[x] != -1 {
			parent[x], x = root, parent[x]
		}
		return root
	}
	nodeSize := func(id int) int {
		if id < n {
			return 1
		}
		return tree.size[id-n]
	}

	next := n
	for _, e := range edges {
		a, b := find(e.u), find(e.v)
		tree.children = append(tree.children, [2]int{a, b})
		tree.weight = append(tree.weight, e.weight)
		tree.size = append(tree.size, nodeSize(a)+nodeSize(b))
		parent[a] = next
		parent[b] = next
		next++
	}
	return tree
}

// leavesUnder collects the leaf point indices below a dendrogram node.
func (t *linkageTree) leavesUnder(node int) []int {
	var leaves []int
	stack := []int{node}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur < t.n {
			leaves = append(leaves, cur)
			continue
		}
		c := t.children[cur-t.n]
		stack = append(stack, c[0], c[1])
	}
	return leaves
}

// condensedTree records, for each condensed cluster, its parent, the lambda
// at which it was born, its child clusters, and the points that fall out of
// it together with their fall-out lambda.
type condensedTree struct {
	parent      []int
	birthLambda []float64
	childOf     [][]int // child condensed cluster ids
	pointsOf    [][]condensedPoint
	sizes       []int
}

type condensedPoint struct {
	point  int
	lambda float64
}

func lambdaOf(weight float64) float64 {
	if weight <= 0 {
		return math.MaxFloat64
	}
	return 1 / weight
}

// condenseTree walks the dendrogram from the root down, discarding splits
// that shave off fewer than minClusterSize points: such points simply fall
// out of the surviving cluster at the split lambda. Splits into two viable
// subtrees create two new condensed clusters.
func condenseTree(t *linkageTree, n, minClusterSize int) *condensedTree {
	ct := &condensedTree{
		parent:      []int{-1},
		birthLambda: []float64{0},
		childOf:     [][]int{nil},
		pointsOf:    [][]condensedPoint{nil},
		sizes:       []int{n},
	}
	root := 2*n - 2

	type walkItem struct {
		node    int // dendrogram node
		cluster int // condensed cluster it belongs to
	}
	stack := []walkItem{{node: root, cluster: 0}}
	for len(stack) > 0 {
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if item.node < n {
			continue
		}
		idx := item.node - n
		lambda := lambdaOf(t.weight[idx])
		left, right := t.children[idx][0], t.children[idx][1]
		leftSize, rightSize := nodeLeafCount(t, left), nodeLeafCount(t, right)

		switch {
		case leftSize >= minClusterSize && rightSize >= minClusterSize:
			// True split: both sides continue as new condensed clusters.
			for _, child := range []int{left, right} {
				id := len(ct.parent)
				ct.parent = append(ct.parent, item.cluster)
				ct.birthLambda = append(ct.birthLambda, lambda)
				ct.childOf = append(ct.childOf, nil)
				ct.pointsOf = append(ct.pointsOf, nil)
				ct.sizes = append(ct.sizes, nodeLeafCount(t, child))
				ct.childOf[item.cluster] = append(ct.childOf[item.cluster], id)
				stack = append(stack, walkItem{node: child, cluster: id})
			}
		case leftSize < minClusterSize && rightSize < minClusterSize:
			ct.dropPoints(t, left, item.cluster, lambda)
			ct.dropPoints(t, right, item.cluster, lambda)
		case leftSize < minClusterSize:
			ct.dropPoints(t, left, item.cluster, lambda)
			stack = append(stack, walkItem{node: right, cluster: item.cluster})
		default:
			ct.dropPoints(t, right, item.cluster, lambda)
			stack = append(stack, walkItem{node: left, cluster: item.cluster})
		}
	}
	return ct
}

func nodeLeafCount(t *linkageTree, node int) int {
	if node < t.n {
		return 1
	}
	return t.size[node-t.n]
}

// dropPoints records every leaf under node as falling out of cluster at
// lambda.
func (ct *condensedTree) dropPoints(t *linkageTree, node, cluster int, lambda float64) {
	for _, leaf := range t.leavesUnder(node) {
		ct.pointsOf[cluster] = append(ct.pointsOf[cluster], condensedPoint{point: leaf, lambda: lambda})
	}
}

// stability of a condensed cluster: total persistence of its members beyond
// the cluster's birth.
func (ct *condensedTree) stability(cluster int) float64 {
	birth := ct.birthLambda[cluster]
	var s float64
	for _, cp := range ct.pointsOf[cluster] {
		s += cp.lambda - birth
	}
	for _, child := range ct.childOf[cluster] {
		s += (ct.birthLambda[child] - birth) * float64(ct.sizes[child])
	}
	return s
}

// extractStableClusters performs excess-of-mass cluster selection: a cluster
// is kept when it is more stable than the sum of its descendants. The root
// is never selected.
func extractStableClusters(ct *condensedTree) map[int]bool {
	k := len(ct.parent)
	selected := make(map[int]bool, k)
	subtree := make([]float64, k)

	// Children always carry higher ids than their parent, so a reverse pass
	// is a bottom-up traversal.
	for c := k - 1; c >= 1; c-- {
		own := ct.stability(c)
		if len(ct.childOf[c]) == 0 {
			selected[c] = true
			subtree[c] = own
			continue
		}
		var childSum float64
		for _, child := range ct.childOf[c] {
			childSum += subtree[child]
		}
		if own >= childSum {
			selected[c] = true
			subtree[c] = own
			deselectDescendants(ct, c, selected)
		} else {
			subtree[c] = childSum
		}
	}
	return selected
}

func deselectDescendants(ct *condensedTree, cluster int, selected map[int]bool) {
	for _, child := range ct.childOf[cluster] {
		delete(selected, child)
		deselectDescendants(ct, child, selected)
	}
}

// labelPoints assigns each point the lowest selected ancestor of its
// fall-out cluster, or -1 when none of its ancestors was selected. Final ids
// are dense and ordered by first appearance in row order.
func (ct *condensedTree) labelPoints(n int, selected map[int]bool) []int {
	owner := make([]int, n)
	for i := range owner {
		owner[i] = -1
	}
	for cluster := range ct.pointsOf {
		for _, cp := range ct.pointsOf[cluster] {
			c := cluster
			for c != -1 && !selected[c] {
				c = ct.parent[c]
			}
			owner[cp.point] = c
		}
	}

	labels := make([]int, n)
	assigned := make(map[int]int)
	next := 0
	for i, c := range owner {
		if c == -1 {
			labels[i] = -1
			continue
		}
		id, ok := assigned[c]
		if !ok {
			id = next
			assigned[c] = id
			next++
		}
		labels[i] = id
	}
	return labels
}
