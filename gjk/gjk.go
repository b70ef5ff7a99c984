// Package gjk implements the Gilbert-Johnson-Keerthi boolean intersection test
// between two convex sets.
//
// The sets only need a support mapping: GJK walks a simplex through their
// Minkowski difference A - B until it encloses the origin (overlap) or a support
// point proves a separating direction.
//
// References:
//   - Gilbert, Johnson, Keerthi: "A Fast Procedure for Computing the Distance Between
//     Complex Objects in Three-Dimensional Space" (1988)
//   - Van den Bergen: "Collision Detection in Interactive 3D Environments" (2003)
package gjk

import (
	"sync"

	"github.com/go-gl/mathgl/mgl64"
)

// MaxIterations bounds the simplex refinement loop
const MaxIterations = 32

// Convex is a convex set placed in world space
type Convex interface {
	// SupportWorld returns the furthest point of the set along direction
	SupportWorld(direction mgl64.Vec3) mgl64.Vec3
	// Center returns any point inside the set
	Center() mgl64.Vec3
}

// Simplex holds 1 to 4 points of the Minkowski difference, most recent last.
type Simplex struct {
	Points [4]mgl64.Vec3
	Count  int
}

func (s *Simplex) Reset() {
	s.Count = 0
}

func (s *Simplex) set(points ...mgl64.Vec3) {
	s.Count = copy(s.Points[:], points)
}

var SimplexPool = sync.Pool{
	New: func() interface{} {
		return &Simplex{}
	},
}

// MinkowskiSupport returns support(A, d) - support(B, -d)
func MinkowskiSupport(a, b Convex, direction mgl64.Vec3) mgl64.Vec3 {
	return a.SupportWorld(direction).Sub(b.SupportWorld(direction.Mul(-1)))
}

// Intersect reports whether a and b overlap, using a pooled simplex
func Intersect(a, b Convex) bool {
	simplex := SimplexPool.Get().(*Simplex)
	defer SimplexPool.Put(simplex)
	simplex.Reset()

	return GJK(a, b, simplex)
}

// GJK reports whether a and b overlap. Touching sets count as overlapping.
// On overlap the simplex is usually a tetrahedron enclosing the origin, ready
// to seed EPA; degenerate contacts may leave fewer points.
func GJK(a, b Convex, simplex *Simplex) bool {
	direction := b.Center().Sub(a.Center())
	if direction.LenSqr() < 1e-8 {
		direction = mgl64.Vec3{1, 0, 0}
	}

	simplex.set(MinkowskiSupport(a, b, direction))
	direction = simplex.Points[0].Mul(-1)
	if direction.LenSqr() < 1e-16 {
		return true
	}

	for i := 0; i < MaxIterations; i++ {
		point := MinkowskiSupport(a, b, direction)

		// the origin lies beyond the furthest point along direction
		if point.Dot(direction) <= 0 {
			return false
		}

		simplex.Points[simplex.Count] = point
		simplex.Count++

		if evolve(simplex, &direction) {
			return true
		}
	}

	return false
}

// evolve reduces the simplex to the feature closest to the origin and sets the
// next search direction. It returns true once the origin is enclosed.
func evolve(simplex *Simplex, direction *mgl64.Vec3) bool {
	switch simplex.Count {
	case 2:
		return line(simplex, direction)
	case 3:
		return triangle(simplex, direction)
	case 4:
		return tetrahedron(simplex, direction)
	}
	return false
}

// line handles the segment [B, A], A being the newest point
func line(simplex *Simplex, direction *mgl64.Vec3) bool {
	a := simplex.Points[1]
	b := simplex.Points[0]
	ab := b.Sub(a)
	ao := a.Mul(-1)

	if ab.LenSqr() < 1e-8 {
		if ao.LenSqr() < 1e-8 {
			return true
		}
		simplex.set(a)
		*direction = ao
		return false
	}

	if ab.Dot(ao) <= 0 {
		simplex.set(a)
		*direction = ao
		return false
	}

	perpendicular := ab.Cross(ao).Cross(ab)
	if perpendicular.LenSqr() < 1e-8 {
		if ab.Dot(ao) <= ab.LenSqr() {
			// origin on the segment
			return true
		}
		simplex.set(b)
		*direction = b.Mul(-1)
		return false
	}

	*direction = perpendicular
	return false
}

// triangle handles [C, B, A], A being the newest point
func triangle(simplex *Simplex, direction *mgl64.Vec3) bool {
	a := simplex.Points[2]
	b := simplex.Points[1]
	c := simplex.Points[0]

	ab := b.Sub(a)
	ac := c.Sub(a)
	ao := a.Mul(-1)
	normal := ab.Cross(ac)

	if normal.LenSqr() < 1e-10 {
		simplex.set(b, a)
		return line(simplex, direction)
	}

	if ab.Cross(normal).Dot(ao) > 0 {
		simplex.set(b, a)
		*direction = ab.Cross(ao).Cross(ab)
		return false
	}

	if normal.Cross(ac).Dot(ao) > 0 {
		simplex.set(c, a)
		*direction = ac.Cross(ao).Cross(ac)
		return false
	}

	if normal.Dot(ao) > 0 {
		*direction = normal
	} else {
		// keep the winding facing the origin
		simplex.set(b, c, a)
		*direction = normal.Mul(-1)
	}

	return false
}

// tetrahedron handles [D, C, B, A], A being the newest point. Each face normal
// is oriented away from the opposite vertex before the origin is tested.
func tetrahedron(simplex *Simplex, direction *mgl64.Vec3) bool {
	a := simplex.Points[3]
	b := simplex.Points[2]
	c := simplex.Points[1]
	d := simplex.Points[0]

	ab := b.Sub(a)
	ac := c.Sub(a)
	ad := d.Sub(a)
	ao := a.Mul(-1)

	outward := func(n, toOpposite mgl64.Vec3) mgl64.Vec3 {
		if n.Dot(toOpposite) > 0 {
			return n.Mul(-1)
		}
		return n
	}
	abc := outward(ab.Cross(ac), ad)
	acd := outward(ac.Cross(ad), ab)
	adb := outward(ad.Cross(ab), ac)

	if abc.LenSqr() < 1e-10 || acd.LenSqr() < 1e-10 || adb.LenSqr() < 1e-10 {
		simplex.set(c, b, a)
		return triangle(simplex, direction)
	}

	switch {
	case abc.Dot(ao) > 0:
		simplex.set(c, b, a)
	case acd.Dot(ao) > 0:
		simplex.set(d, c, a)
	case adb.Dot(ao) > 0:
		simplex.set(b, d, a)
	default:
		return true
	}

	return triangle(simplex, direction)
}
