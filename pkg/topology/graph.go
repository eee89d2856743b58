// Package topology condenses a skeletonized stroke mask into a graph of
// junctions and endpoints and derives connectivity metrics from it. Kolam
// line work is traditionally drawn in unbroken loops, so Eulerian
// feasibility and cycle structure are meaningful quality signals.
package topology

import (
	"github.com/kolamlabs/kolamscan/pkg/geometry"
	"github.com/kolamlabs/kolamscan/pkg/imaging"
)

// Node is a distinguished skeleton pixel: a junction (3 or more
// neighbors) or an endpoint (exactly one neighbor).
type Node struct {
	Pos    geometry.Pixel
	Degree int
}

// Edge is a traced skeleton segment between two nodes. Length is the
// pixel count along the path including both ends.
type Edge struct {
	A, B   int
	Length int
}

// Graph is the condensed skeleton graph plus pixel-level connectivity
// counts used for cycle analysis.
type Graph struct {
	Nodes []Node
	Edges []Edge

	// Pixel-level counts over the full skeleton.
	PixelCount int
	Components int
	CycleRank  int
	Junctions  int
	Endpoints  int
	OddDegree  int
}

// linkedNeighbors returns a pixel's skeleton neighbors under reduced
// adjacency: a diagonal link is dropped when an orthogonal neighbor
// already bridges the two pixels. This keeps thin-line degrees honest
// around corners.
func linkedNeighbors(sk *imaging.Mask, x, y int) []geometry.Pixel {
	at := func(px, py int) bool {
		return px >= 0 && py >= 0 && px < sk.W && py < sk.H && sk.At(px, py)
	}
	var out []geometry.Pixel
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			if !at(x+dx, y+dy) {
				continue
			}
			if dx != 0 && dy != 0 {
				if at(x+dx, y) || at(x, y+dy) {
					continue
				}
			}
			out = append(out, geometry.Pixel{X: x + dx, Y: y + dy})
		}
	}
	return out
}

// Build analyzes a skeleton mask. Isolated single pixels are ignored.
func Build(sk *imaging.Mask) *Graph {
	g := &Graph{}
	w, h := sk.W, sk.H

	degree := make(map[geometry.Pixel]int)
	edgesPix := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !sk.At(x, y) {
				continue
			}
			d := len(linkedNeighbors(sk, x, y))
			if d == 0 {
				continue
			}
			degree[geometry.Pixel{X: x, Y: y}] = d
			edgesPix += d
		}
	}
	edgesPix /= 2

	g.PixelCount = len(degree)
	g.Components = countComponents(sk, degree)
	// Cycle rank of the pixel graph: E - V + C.
	g.CycleRank = edgesPix - g.PixelCount + g.Components
	if g.CycleRank < 0 {
		g.CycleRank = 0
	}

	for p, d := range degree {
		switch {
		case d == 1:
			g.Endpoints++
			g.Nodes = append(g.Nodes, Node{Pos: p, Degree: d})
		case d >= 3:
			g.Junctions++
			g.Nodes = append(g.Nodes, Node{Pos: p, Degree: d})
		}
		if d%2 == 1 {
			g.OddDegree++
		}
	}

	g.traceEdges(sk, degree)
	return g
}

// Eulerian reports whether the skeleton admits a single unbroken stroke:
// every pixel reachable in one pass. Requires one component and zero or
// two odd-degree pixels.
func (g *Graph) Eulerian() bool {
	if g.PixelCount == 0 || g.Components != 1 {
		return false
	}
	return g.OddDegree == 0 || g.OddDegree == 2
}

// Closed reports a fully closed line drawing: Eulerian with no endpoints,
// i.e. the stroke returns to its origin.
func (g *Graph) Closed() bool {
	return g.Eulerian() && g.OddDegree == 0
}

func countComponents(sk *imaging.Mask, degree map[geometry.Pixel]int) int {
	seen := make(map[geometry.Pixel]bool, len(degree))
	comps := 0
	for start := range degree {
		if seen[start] {
			continue
		}
		comps++
		stack := []geometry.Pixel{start}
		seen[start] = true
		for len(stack) > 0 {
			p := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, q := range linkedNeighbors(sk, p.X, p.Y) {
				if _, ok := degree[q]; ok && !seen[q] {
					seen[q] = true
					stack = append(stack, q)
				}
			}
		}
	}
	return comps
}

// traceEdges walks segments between nodes to populate the condensed edge
// list. Pure cycles without junctions produce no condensed edges; the
// pixel-level CycleRank still accounts for them.
func (g *Graph) traceEdges(sk *imaging.Mask, degree map[geometry.Pixel]int) {
	nodeIdx := make(map[geometry.Pixel]int, len(g.Nodes))
	for i, n := range g.Nodes {
		nodeIdx[n.Pos] = i
	}

	visited := make(map[[2]geometry.Pixel]bool)

	for i, n := range g.Nodes {
		for _, next := range linkedNeighbors(sk, n.Pos.X, n.Pos.Y) {
			if visited[[2]geometry.Pixel{n.Pos, next}] {
				continue
			}
			from, at := n.Pos, next
			length := 2
			for {
				visited[[2]geometry.Pixel{from, at}] = true
				visited[[2]geometry.Pixel{at, from}] = true
				if j, ok := nodeIdx[at]; ok {
					g.Edges = append(g.Edges, Edge{A: i, B: j, Length: length})
					break
				}
				// Degree-2 corridor pixel: continue past the pixel we
				// came from.
				var nxt geometry.Pixel
				found := false
				for _, q := range linkedNeighbors(sk, at.X, at.Y) {
					if q != from {
						nxt = q
						found = true
						break
					}
				}
				if !found {
					break
				}
				from, at = at, nxt
				length++
			}
		}
	}
}
