package epa

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Face is a triangle of the polytope, wound counter-clockwise seen from outside
type Face struct {
	Points   [3]mgl64.Vec3
	Normal   mgl64.Vec3
	Distance float64 // signed distance from the origin to the face plane
}

// newFace builds the face a, b, c with its normal pointing away from interior.
// The winding is swapped when needed so it always matches the normal.
func newFace(a, b, c, interior mgl64.Vec3) Face {
	normal := b.Sub(a).Cross(c.Sub(a))
	length := normal.Len()
	if length < 1e-12 {
		// sliver: fall back on the direction from the interior
		normal = a.Add(b).Add(c).Mul(1.0 / 3.0).Sub(interior)
		if normal.LenSqr() < 1e-24 {
			normal = mgl64.Vec3{0, 1, 0}
		}
		normal = normal.Normalize()
		return Face{Points: [3]mgl64.Vec3{a, b, c}, Normal: normal, Distance: a.Dot(normal)}
	}
	normal = normal.Mul(1 / length)

	if normal.Dot(a.Sub(interior)) < 0 {
		normal = normal.Mul(-1)
		b, c = c, b
	}

	return Face{
		Points:   [3]mgl64.Vec3{a, b, c},
		Normal:   normal,
		Distance: a.Dot(normal),
	}
}

// snapNormalToAxis zeroes components below NormalSnapThreshold and renormalizes,
// so axis-aligned contacts do not pick up tangential noise.
func snapNormalToAxis(normal mgl64.Vec3) mgl64.Vec3 {
	for i := 0; i < 3; i++ {
		if math.Abs(normal[i]) < NormalSnapThreshold {
			normal[i] = 0
		}
	}

	length := normal.Len()
	if length < 1e-8 {
		return mgl64.Vec3{0, 1, 0}
	}
	return normal.Mul(1 / length)
}
