// Package picking provides ray casting against tile meshes.
package picking

import (
	gomath "math"

	"github.com/nosadnile/bluemap-go/pkg/math"
)

// Ray represents a ray in 3D space with origin and direction.
type Ray struct {
	Origin    math.Vec3
	Direction math.Vec3 // Normalized direction
}

// AABB represents an axis-aligned bounding box.
type AABB struct {
	Min math.Vec3
	Max math.Vec3
}

// Hit is a ray intersection.
type Hit struct {
	Distance float64
	Point    math.Vec3
}

// ScreenToRay converts screen coordinates to a world-space ray.
// screenX, screenY are pixel coordinates, viewportW/H are viewport dimensions.
// invViewProj is the inverse of the view-projection matrix.
func ScreenToRay(screenX, screenY, viewportW, viewportH float64, invViewProj math.Mat4) Ray {
	ndcX := 2.0*screenX/viewportW - 1.0
	ndcY := 1.0 - 2.0*screenY/viewportH // Flip Y

	nearWorld := invViewProj.TransformPoint(math.Vec3{X: ndcX, Y: ndcY, Z: -1})
	farWorld := invViewProj.TransformPoint(math.Vec3{X: ndcX, Y: ndcY, Z: 1})

	return Ray{Origin: nearWorld, Direction: farWorld.Sub(nearWorld).Normalize()}
}

// At returns the point at distance t along the ray.
func (r Ray) At(t float64) math.Vec3 {
	return r.Origin.Add(r.Direction.Scale(t))
}

// IntersectPlaneY intersects a ray with a horizontal plane at the given Y level.
func (r Ray) IntersectPlaneY(planeY float64) (x, z float64, ok bool) {
	if gomath.Abs(r.Direction.Y) < 0.001 {
		return 0, 0, false // Ray parallel to plane
	}

	t := (planeY - r.Origin.Y) / r.Direction.Y
	if t < 0 {
		return 0, 0, false // Intersection behind ray origin
	}

	p := r.At(t)
	return p.X, p.Z, true
}

// IntersectAABB tests ray intersection with an axis-aligned bounding box.
// If the ray starts inside the box, returns the exit distance.
func (r Ray) IntersectAABB(box AABB) (t float64, hit bool) {
	tmin := gomath.Inf(-1)
	tmax := gomath.Inf(1)

	origin := [3]float64{r.Origin.X, r.Origin.Y, r.Origin.Z}
	dir := [3]float64{r.Direction.X, r.Direction.Y, r.Direction.Z}
	lo := [3]float64{box.Min.X, box.Min.Y, box.Min.Z}
	hi := [3]float64{box.Max.X, box.Max.Y, box.Max.Z}

	for i := 0; i < 3; i++ {
		if dir[i] == 0 {
			if origin[i] < lo[i] || origin[i] > hi[i] {
				return 0, false
			}
			continue
		}
		t1 := (lo[i] - origin[i]) / dir[i]
		t2 := (hi[i] - origin[i]) / dir[i]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = gomath.Max(tmin, t1)
		tmax = gomath.Min(tmax, t2)
	}

	if tmax < tmin || tmax < 0 {
		return 0, false
	}
	if tmin < 0 {
		return tmax, true
	}
	return tmin, true
}

// NewAABB creates an AABB from two corners in any order.
func NewAABB(a, b math.Vec3) AABB {
	return AABB{
		Min: math.Vec3{X: gomath.Min(a.X, b.X), Y: gomath.Min(a.Y, b.Y), Z: gomath.Min(a.Z, b.Z)},
		Max: math.Vec3{X: gomath.Max(a.X, b.X), Y: gomath.Max(a.Y, b.Y), Z: gomath.Max(a.Z, b.Z)},
	}
}

// IntersectTriangle runs Moller-Trumbore against triangle abc.
// With cullBack set, triangles facing away from the ray are ignored
// (counter-clockwise winding is front facing).
func (r Ray) IntersectTriangle(a, b, c math.Vec3, cullBack bool) (t float64, hit bool) {
	const eps = 1e-12

	e1 := b.Sub(a)
	e2 := c.Sub(a)
	p := r.Direction.Cross(e2)
	det := e1.Dot(p)

	if cullBack {
		if det < eps {
			return 0, false
		}
	} else if gomath.Abs(det) < eps {
		return 0, false
	}

	inv := 1 / det
	s := r.Origin.Sub(a)
	u := s.Dot(p) * inv
	if u < 0 || u > 1 {
		return 0, false
	}
	q := s.Cross(e1)
	v := r.Direction.Dot(q) * inv
	if v < 0 || u+v > 1 {
		return 0, false
	}

	t = e2.Dot(q) * inv
	return t, t >= 0
}

// IntersectMesh casts the ray against an indexed triangle mesh given in
// local space and placed in the world by position and a per-axis scale.
// Only hits with distance in [near, far] count; the closest is returned.
// A nil index slice means the positions are an unindexed triangle list.
func (r Ray) IntersectMesh(positions []float32, indices []uint32, position, scale math.Vec3, near, far float64) (Hit, bool) {
	if scale.X == 0 || scale.Y == 0 || scale.Z == 0 {
		return Hit{}, false
	}

	// Work in local space. The direction is not renormalized, so t stays a
	// world-space distance.
	local := Ray{
		Origin: math.Vec3{
			X: (r.Origin.X - position.X) / scale.X,
			Y: (r.Origin.Y - position.Y) / scale.Y,
			Z: (r.Origin.Z - position.Z) / scale.Z,
		},
		Direction: math.Vec3{
			X: r.Direction.X / scale.X,
			Y: r.Direction.Y / scale.Y,
			Z: r.Direction.Z / scale.Z,
		},
	}

	vertex := func(i uint32) math.Vec3 {
		return math.Vec3{
			X: float64(positions[i*3]),
			Y: float64(positions[i*3+1]),
			Z: float64(positions[i*3+2]),
		}
	}

	count := uint32(len(positions) / 3)
	if indices == nil {
		count -= count % 3
	} else {
		count = uint32(len(indices)) - uint32(len(indices))%3
	}

	best := gomath.Inf(1)
	for i := uint32(0); i < count; i += 3 {
		ia, ib, ic := i, i+1, i+2
		if indices != nil {
			ia, ib, ic = indices[i], indices[i+1], indices[i+2]
		}
		if int(max(ia, ib, ic))*3+2 >= len(positions) {
			continue
		}
		t, ok := local.IntersectTriangle(vertex(ia), vertex(ib), vertex(ic), false)
		if ok && t >= near && t <= far && t < best {
			best = t
		}
	}

	if gomath.IsInf(best, 1) {
		return Hit{}, false
	}
	return Hit{Distance: best, Point: r.At(best)}, true
}
