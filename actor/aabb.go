package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	// maxCoordinate bounds what is considered a finite coordinate.
	maxCoordinate = 1e18

	// unboundedExtent is used for the in-plane extent of infinite geometry.
	unboundedExtent = 1e10
)

// AABB represents an axis-aligned bounding box
type AABB struct {
	Min mgl64.Vec3
	Max mgl64.Vec3
}

// EmptyAABB returns an inverted box that any Union will overwrite
func EmptyAABB() AABB {
	inf := math.Inf(1)
	return AABB{
		Min: mgl64.Vec3{inf, inf, inf},
		Max: mgl64.Vec3{-inf, -inf, -inf},
	}
}

// ContainsPoint checks if a point is inside the AABB
func (a AABB) ContainsPoint(point mgl64.Vec3) bool {
	return point.X() >= a.Min.X() && point.X() <= a.Max.X() &&
		point.Y() >= a.Min.Y() && point.Y() <= a.Max.Y() &&
		point.Z() >= a.Min.Z() && point.Z() <= a.Max.Z()
}

// Overlaps checks if two AABBs overlap; touching boxes overlap.
func (a AABB) Overlaps(other AABB) bool {
	return a.Max.X() >= other.Min.X() && a.Min.X() <= other.Max.X() &&
		a.Max.Y() >= other.Min.Y() && a.Min.Y() <= other.Max.Y() &&
		a.Max.Z() >= other.Min.Z() && a.Min.Z() <= other.Max.Z()
}

// Union returns the smallest box containing both a and other
func (a AABB) Union(other AABB) AABB {
	return AABB{
		Min: mgl64.Vec3{math.Min(a.Min[0], other.Min[0]), math.Min(a.Min[1], other.Min[1]), math.Min(a.Min[2], other.Min[2])},
		Max: mgl64.Vec3{math.Max(a.Max[0], other.Max[0]), math.Max(a.Max[1], other.Max[1]), math.Max(a.Max[2], other.Max[2])},
	}
}

// Expand grows the box by margin on every side
func (a AABB) Expand(margin float64) AABB {
	m := mgl64.Vec3{margin, margin, margin}
	return AABB{Min: a.Min.Sub(m), Max: a.Max.Add(m)}
}

// Center of the box
func (a AABB) Center() mgl64.Vec3 {
	return a.Min.Add(a.Max).Mul(0.5)
}

// Extent returns the full size along each axis
func (a AABB) Extent() mgl64.Vec3 {
	return a.Max.Sub(a.Min)
}

// IsUnbounded reports whether the box spans the unbounded extent on any axis,
// as planes do.
func (a AABB) IsUnbounded() bool {
	e := a.Extent()
	return e[0] >= unboundedExtent || e[1] >= unboundedExtent || e[2] >= unboundedExtent
}

// aabbFromPoints builds the bounds of points transformed by t
func aabbFromPoints(points []mgl64.Vec3, t Transform) AABB {
	box := EmptyAABB()
	for _, p := range points {
		w := t.Apply(p)
		box.Min = mgl64.Vec3{math.Min(box.Min[0], w[0]), math.Min(box.Min[1], w[1]), math.Min(box.Min[2], w[2])}
		box.Max = mgl64.Vec3{math.Max(box.Max[0], w[0]), math.Max(box.Max[1], w[1]), math.Max(box.Max[2], w[2])}
	}
	return box
}
