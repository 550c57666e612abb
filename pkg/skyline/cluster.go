package skyline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/matzehuels/skylayer/pkg/geom"
)

// Shape is a loose primitive awaiting clustering. Box is in root
// coordinates.
type Shape struct {
	Member
	Box geom.BBox
}

// Clusterer groups loose shapes into buildings. Implementations return
// clusters ordered left to right; every input shape appears in exactly one
// cluster.
type Clusterer interface {
	Name() string
	Cluster(shapes []Shape, threshold float64) [][]Shape
}

// Greedy sorts shapes by center x and starts a new cluster whenever the gap
// between consecutive centers exceeds the threshold. Shapes with equal
// centers keep document order.
type Greedy struct{}

func (Greedy) Name() string { return "greedy" }

func (Greedy) Cluster(shapes []Shape, threshold float64) [][]Shape {
	if len(shapes) == 0 {
		return nil
	}
	sorted := make([]Shape, len(shapes))
	copy(sorted, shapes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Box.CenterX() < sorted[j].Box.CenterX()
	})

	var out [][]Shape
	current := []Shape{sorted[0]}
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Box.CenterX()-sorted[i-1].Box.CenterX() <= threshold {
			current = append(current, sorted[i])
			continue
		}
		out = append(out, current)
		current = []Shape{sorted[i]}
	}
	return append(out, current)
}

// Components links two shapes when the horizontal gap between their boxes is
// at most the threshold, and returns the connected components. Overlapping
// boxes have a gap of zero. The result does not depend on input order.
type Components struct{}

func (Components) Name() string { return "components" }

func (Components) Cluster(shapes []Shape, threshold float64) [][]Shape {
	n := len(shapes)
	if n == 0 {
		return nil
	}
	uf := newUnionFind(n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if horizontalGap(shapes[i].Box, shapes[j].Box) <= threshold {
				uf.union(i, j)
			}
		}
	}

	groups := make(map[int][]Shape)
	var roots []int
	for i, s := range shapes {
		r := uf.find(i)
		if _, ok := groups[r]; !ok {
			roots = append(roots, r)
		}
		groups[r] = append(groups[r], s)
	}

	out := make([][]Shape, 0, len(roots))
	for _, r := range roots {
		g := groups[r]
		sort.SliceStable(g, func(i, j int) bool { return g[i].Box.CenterX() < g[j].Box.CenterX() })
		out = append(out, g)
	}
	sort.SliceStable(out, func(i, j int) bool { return minX(out[i]) < minX(out[j]) })
	return out
}

// ParseClusterer returns the clusterer registered under name.
func ParseClusterer(name string) (Clusterer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "greedy":
		return Greedy{}, nil
	case "components":
		return Components{}, nil
	}
	return nil, fmt.Errorf("unknown clustering %q (want greedy or components)", name)
}

func horizontalGap(a, b geom.BBox) float64 {
	switch {
	case a.MaxX < b.MinX:
		return b.MinX - a.MaxX
	case b.MaxX < a.MinX:
		return a.MinX - b.MaxX
	}
	return 0
}

func minX(shapes []Shape) float64 {
	m := shapes[0].Box.MinX
	for _, s := range shapes[1:] {
		if s.Box.MinX < m {
			m = s.Box.MinX
		}
	}
	return m
}

type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), rank: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	switch {
	case u.rank[ra] < u.rank[rb]:
		u.parent[ra] = rb
	case u.rank[ra] > u.rank[rb]:
		u.parent[rb] = ra
	default:
		u.parent[rb] = ra
		u.rank[ra]++
	}
}
