package raytrace

import "math"

// parallelEpsilon is the |n·d| threshold below which a ray is treated as
// parallel to a plane.
const parallelEpsilon = 1e-8

// Ray is a half-line starting at Origin in direction Dir.
type Ray struct {
	Origin Vec3
	Dir    Vec3
}

// At returns the point at parameter t along the ray.
func (r Ray) At(t float64) Vec3 {
	return r.Origin.Add(r.Dir.Mul(t))
}

// Hit describes the closest intersection found along a ray.
type Hit struct {
	T        float64
	Point    Vec3
	Normal   Vec3
	Material Material
}

// HitSphere intersects a ray with a sphere and returns the nearest t in
// [tMin, tMax]. The smaller root is preferred; if it is out of range the
// larger root is tried.
func HitSphere(r Ray, s Sphere, tMin, tMax float64) (float64, bool) {
	oc := r.Origin.Sub(s.Center)
	a := r.Dir.Dot(r.Dir)
	if a == 0 {
		return 0, false
	}
	halfB := oc.Dot(r.Dir)
	c := oc.Dot(oc) - s.Radius*s.Radius
	disc := halfB*halfB - a*c
	if disc < 0 {
		return 0, false
	}

	sqrtD := math.Sqrt(disc)
	root := (-halfB - sqrtD) / a
	if root < tMin || root > tMax {
		root = (-halfB + sqrtD) / a
		if root < tMin || root > tMax {
			return 0, false
		}
	}
	return root, true
}

// SphereNormal returns the outward unit normal at a point on the sphere.
func SphereNormal(s Sphere, p Vec3) Vec3 {
	return p.Sub(s.Center).Mul(1 / s.Radius)
}

// HitPlane intersects a ray with a plane. Rays parallel to the plane never hit.
func HitPlane(r Ray, p Plane, tMin, tMax float64) (float64, bool) {
	denom := p.Normal.Dot(r.Dir)
	if math.Abs(denom) < parallelEpsilon {
		return 0, false
	}
	t := p.Point.Sub(r.Origin).Dot(p.Normal) / denom
	if t < tMin || t > tMax {
		return 0, false
	}
	return t, true
}

// ClosestHit returns the nearest intersection in [tMin, tMax].
// Spheres are tested before planes; on equal t the first one wins.
func (s *Scene) ClosestHit(r Ray, tMin, tMax float64) (Hit, bool) {
	closest := tMax
	sphere, plane := -1, -1

	for i := range s.Spheres {
		if t, ok := HitSphere(r, s.Spheres[i], tMin, closest); ok && (sphere < 0 || t < closest) {
			closest = t
			sphere = i
		}
	}
	for i := range s.Planes {
		if t, ok := HitPlane(r, s.Planes[i], tMin, closest); ok && ((sphere < 0 && plane < 0) || t < closest) {
			closest = t
			plane = i
		}
	}

	switch {
	case plane >= 0:
		pl := &s.Planes[plane]
		return Hit{T: closest, Point: r.At(closest), Normal: pl.Normal, Material: pl.Material}, true
	case sphere >= 0:
		sp := &s.Spheres[sphere]
		p := r.At(closest)
		return Hit{T: closest, Point: p, Normal: SphereNormal(*sp, p), Material: sp.Material}, true
	}
	return Hit{}, false
}

// occluded reports whether any primitive intersects r within (tMin, tMax).
func (s *Scene) occluded(r Ray, tMin, tMax float64) bool {
	for i := range s.Spheres {
		if _, ok := HitSphere(r, s.Spheres[i], tMin, tMax); ok {
			return true
		}
	}
	for i := range s.Planes {
		if _, ok := HitPlane(r, s.Planes[i], tMin, tMax); ok {
			return true
		}
	}
	return false
}
