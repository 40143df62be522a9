// Package geom provides the rigid-geometry primitives, rays and axis-aligned
// bounding boxes used by the ray tracer and its BVH. Vector arithmetic is
// built on r3.Vector rather than a hand-rolled type.
package geom

import (
	"math"

	"github.com/golang/geo/r3"
)

// Vec3 is a point or direction in 3-space.
type Vec3 = r3.Vector

// NewVec3 builds a vector from components.
func NewVec3(x, y, z float64) Vec3 {
	return Vec3{X: x, Y: y, Z: z}
}

// Ray is a half-line with an origin and a (not necessarily unit) direction.
type Ray struct {
	Origin Vec3
	Dir    Vec3
}

// At returns the point reached after travelling parameter t along the ray.
func (r Ray) At(t float64) Vec3 {
	return r.Origin.Add(r.Dir.Mul(t))
}

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min, Max Vec3
}

// Union returns the smallest AABB containing both boxes.
func (b AABB) Union(o AABB) AABB {
	return AABB{
		Min: NewVec3(math.Min(b.Min.X, o.Min.X), math.Min(b.Min.Y, o.Min.Y), math.Min(b.Min.Z, o.Min.Z)),
		Max: NewVec3(math.Max(b.Max.X, o.Max.X), math.Max(b.Max.Y, o.Max.Y), math.Max(b.Max.Z, o.Max.Z)),
	}
}

// Centroid returns the box's geometric center.
func (b AABB) Centroid() Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Hit is the result of a successful ray/AABB lower-bound test or a fully
// resolved ray/primitive intersection.
type Hit struct {
	T      float64
	Normal Vec3
}

// IntersectAABB returns the smallest non-negative t at which the ray enters
// the box (the standard slab method), or ok=false if it misses entirely.
// This is the conservative lower bound the BVH's best-first traversal is
// keyed on; it never overestimates the true hit distance of anything
// contained in the box.
func IntersectAABB(r Ray, b AABB) (t float64, ok bool) {
	tmin, tmax := math.Inf(-1), math.Inf(1)

	for axis := 0; axis < 3; axis++ {
		o, d, lo, hi := component(r.Origin, axis), component(r.Dir, axis), component(b.Min, axis), component(b.Max, axis)
		if d == 0 {
			if o < lo || o > hi {
				return 0, false
			}
			continue
		}
		inv := 1.0 / d
		t1, t2 := (lo-o)*inv, (hi-o)*inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)
		if tmin > tmax {
			return 0, false
		}
	}

	if tmax < 0 {
		return 0, false
	}
	if tmin < 0 {
		return 0, true
	}
	return tmin, true
}

func component(v Vec3, axis int) float64 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

// Primitive is a ray-castable piece of rigid geometry.
type Primitive interface {
	// Intersect returns the closest positive t at which r hits the
	// primitive's surface along with the outward surface normal there.
	Intersect(r Ray) (hit Hit, ok bool)
	// Bound returns the primitive's axis-aligned bounding box.
	Bound() AABB
}
