// Package bvh builds an immutable bounding-volume hierarchy over a scene's
// primitives and answers closest-ray queries against it. The hierarchy is
// built once before solving and never mutated afterward.
package bvh

import (
	"math"
	"sort"

	"github.com/jeongseonghan/rfsim/internal/geom"
)

// Leaf is one scene primitive paired with its bounding box and an opaque
// index the caller can map back to material/receiver metadata.
type Leaf struct {
	Index     int
	Primitive geom.Primitive
	Box       geom.AABB
}

type node struct {
	box         geom.AABB
	left, right *node // nil for leaves
	leaf        *Leaf
}

// Tree is a built, immutable BVH.
type Tree struct {
	root   *node
	leaves []Leaf
}

// Build constructs a balanced BVH from the given leaves via recursive
// median-split on the longest axis of the centroid bounds, ties broken by
// input (build) order so traversal order is deterministic.
func Build(leaves []Leaf) *Tree {
	if len(leaves) == 0 {
		return &Tree{}
	}
	idx := make([]int, len(leaves))
	for i := range idx {
		idx[i] = i
	}
	root := buildRange(leaves, idx)
	return &Tree{root: root, leaves: leaves}
}

func buildRange(leaves []Leaf, idx []int) *node {
	if len(idx) == 1 {
		l := leaves[idx[0]]
		return &node{box: l.Box, leaf: &l}
	}

	box := leaves[idx[0]].Box
	for _, i := range idx[1:] {
		box = box.Union(leaves[i].Box)
	}

	axis := longestAxis(box)
	sort.SliceStable(idx, func(a, b int) bool {
		return centroidComponent(leaves[idx[a]].Box, axis) < centroidComponent(leaves[idx[b]].Box, axis)
	})

	mid := len(idx) / 2
	left := buildRange(leaves, idx[:mid])
	right := buildRange(leaves, idx[mid:])
	return &node{box: left.box.Union(right.box), left: left, right: right}
}

func longestAxis(b geom.AABB) int {
	dx, dy, dz := b.Max.X-b.Min.X, b.Max.Y-b.Min.Y, b.Max.Z-b.Min.Z
	if dx >= dy && dx >= dz {
		return 0
	}
	if dy >= dz {
		return 1
	}
	return 2
}

func centroidComponent(b geom.AABB, axis int) float64 {
	c := b.Centroid()
	switch axis {
	case 0:
		return c.X
	case 1:
		return c.Y
	default:
		return c.Z
	}
}

// HitResult is a resolved closest-hit: the leaf index hit and the geometric
// intersection (time-of-impact and outward normal).
type HitResult struct {
	Index  int
	Hit    geom.Hit
	Object geom.Primitive
}

// ClosestHit performs best-first traversal of the tree keyed on the
// conservative AABB lower bound: children are descended in increasing
// lower-bound order, and a subtree is pruned as soon as its lower bound is
// not better than the best true hit found so far.
func (t *Tree) ClosestHit(r geom.Ray) (HitResult, bool) {
	if t.root == nil {
		return HitResult{}, false
	}

	best := HitResult{}
	found := false
	bestT := math.Inf(1)

	var visit func(n *node)
	visit = func(n *node) {
		if n == nil {
			return
		}
		lb, ok := geom.IntersectAABB(r, n.box)
		if !ok || lb >= bestT {
			return
		}

		if n.leaf != nil {
			hit, ok := n.leaf.Primitive.Intersect(r)
			if ok && hit.T < bestT {
				bestT = hit.T
				best = HitResult{Index: n.leaf.Index, Hit: hit, Object: n.leaf.Primitive}
				found = true
			}
			return
		}

		lLB, lOK := boxLowerBound(r, n.left)
		rLB, rOK := boxLowerBound(r, n.right)

		switch {
		case lOK && rOK:
			if lLB <= rLB {
				visit(n.left)
				visit(n.right)
			} else {
				visit(n.right)
				visit(n.left)
			}
		case lOK:
			visit(n.left)
		case rOK:
			visit(n.right)
		}
	}

	visit(t.root)
	return best, found
}

func boxLowerBound(r geom.Ray, n *node) (float64, bool) {
	if n == nil {
		return 0, false
	}
	return geom.IntersectAABB(r, n.box)
}
