package geom

import "math"

// planeHalfExtent bounds an (infinite) plane's AABB so box arithmetic stays
// finite; it is large enough that no realistic scene approaches it.
const planeHalfExtent = 1e6

// Plane is an infinite oriented plane through Point with unit Normal.
type Plane struct {
	Point  Vec3
	Normal Vec3 // must be unit length
}

// NewPlane builds a plane through point with the given (not necessarily
// normalized) normal.
func NewPlane(point, normal Vec3) Plane {
	return Plane{Point: point, Normal: normal.Normalize()}
}

func (p Plane) Intersect(r Ray) (Hit, bool) {
	denom := p.Normal.Dot(r.Dir)
	if math.Abs(denom) < 1e-12 {
		return Hit{}, false
	}
	t := p.Point.Sub(r.Origin).Dot(p.Normal) / denom
	if t < 0 {
		return Hit{}, false
	}
	return Hit{T: t, Normal: p.Normal}, true
}

func (p Plane) Bound() AABB {
	e := NewVec3(planeHalfExtent, planeHalfExtent, planeHalfExtent)
	return AABB{Min: p.Point.Sub(e), Max: p.Point.Add(e)}
}

// Cuboid is an axis-aligned box centered at Center with half-extents
// HalfDiag on each axis (the scene's rigid transform is applied upstream by
// placing Center and, for rotated boxes, pre-rotating ray queries; this
// simulator only ever places axis-aligned cuboids, matching every scene
// constructed by the reference builder).
type Cuboid struct {
	Center   Vec3
	HalfDiag Vec3
}

func NewCuboid(center, halfDiag Vec3) Cuboid {
	return Cuboid{Center: center, HalfDiag: halfDiag}
}

func (c Cuboid) Bound() AABB {
	return AABB{Min: c.Center.Sub(c.HalfDiag), Max: c.Center.Add(c.HalfDiag)}
}

func (c Cuboid) Intersect(r Ray) (Hit, bool) {
	b := c.Bound()
	tmin, tmax := math.Inf(-1), math.Inf(1)
	var hitAxis, exitAxis int
	var hitSign, exitSign float64

	for axis := 0; axis < 3; axis++ {
		o, d := component(r.Origin, axis), component(r.Dir, axis)
		lo, hi := component(b.Min, axis), component(b.Max, axis)
		if d == 0 {
			if o < lo || o > hi {
				return Hit{}, false
			}
			continue
		}
		inv := 1.0 / d
		t1, t2 := (lo-o)*inv, (hi-o)*inv
		sign := -1.0
		if t1 > t2 {
			t1, t2 = t2, t1
			sign = 1.0
		}
		if t1 > tmin {
			tmin = t1
			hitAxis = axis
			hitSign = sign
		}
		if t2 < tmax {
			tmax = t2
			exitAxis = axis
			exitSign = -sign
		}
		if tmin > tmax {
			return Hit{}, false
		}
	}

	t := tmin
	normal := axisNormal(hitAxis, hitSign)
	if t < 0 {
		// The origin is inside the box: the hit is on the exit face.
		t = tmax
		if t < 0 {
			return Hit{}, false
		}
		normal = axisNormal(exitAxis, exitSign)
	}

	return Hit{T: t, Normal: normal}, true
}

func axisNormal(axis int, sign float64) Vec3 {
	switch axis {
	case 0:
		return NewVec3(sign, 0, 0)
	case 1:
		return NewVec3(0, sign, 0)
	default:
		return NewVec3(0, 0, sign)
	}
}

// Sphere is a ball of the given Radius centered at Center. Used both as a
// dielectric obstacle and, at radius ~0.5, as a receiver sensor surface.
type Sphere struct {
	Center Vec3
	Radius float64
}

func NewSphere(center Vec3, radius float64) Sphere {
	return Sphere{Center: center, Radius: radius}
}

func (s Sphere) Bound() AABB {
	e := NewVec3(s.Radius, s.Radius, s.Radius)
	return AABB{Min: s.Center.Sub(e), Max: s.Center.Add(e)}
}

func (s Sphere) Intersect(r Ray) (Hit, bool) {
	oc := r.Origin.Sub(s.Center)
	a := r.Dir.Dot(r.Dir)
	b := 2 * oc.Dot(r.Dir)
	c := oc.Dot(oc) - s.Radius*s.Radius
	disc := b*b - 4*a*c
	if disc < 0 {
		return Hit{}, false
	}
	sq := math.Sqrt(disc)
	t := (-b - sq) / (2 * a)
	if t < 0 {
		t = (-b + sq) / (2 * a)
		if t < 0 {
			return Hit{}, false
		}
	}
	normal := r.At(t).Sub(s.Center).Normalize()
	return Hit{T: t, Normal: normal}, true
}
