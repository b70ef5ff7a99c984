package actor

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// GeometryType tags the closed set of collision geometries.
// The narrow phase dispatches on pairs of these values.
type GeometryType int

const (
	GeometrySphere GeometryType = iota
	GeometryCapsule
	GeometryBox
	GeometryConvexMesh
	GeometryPlane

	// GeometryCount is the number of geometry variants
	GeometryCount
)

func (t GeometryType) String() string {
	switch t {
	case GeometrySphere:
		return "sphere"
	case GeometryCapsule:
		return "capsule"
	case GeometryBox:
		return "box"
	case GeometryConvexMesh:
		return "convex mesh"
	case GeometryPlane:
		return "plane"
	}
	return fmt.Sprintf("GeometryType(%d)", int(t))
}

// Geometry is the interface that all collision geometries implement.
// Geometries are immutable once attached to a shape; every query is expressed
// in the geometry's local frame unless stated otherwise.
type Geometry interface {
	Type() GeometryType
	// Validate rejects degenerate parameters
	Validate() error
	// ComputeAABB returns the world bounds of the geometry placed at transform
	ComputeAABB(transform Transform) AABB
	// Volume, Centroid and UnitInertia describe mass distribution at density 1 and mass 1
	Volume() float64
	Centroid() mgl64.Vec3
	// UnitInertia is the inertia tensor of a unit mass about the centroid
	UnitInertia() mgl64.Mat3
	// Support returns the furthest local point along direction
	Support(direction mgl64.Vec3) mgl64.Vec3
	// ContactFeature returns the local vertex, edge or face most aligned with direction
	ContactFeature(direction mgl64.Vec3) []mgl64.Vec3
}

func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Sphere represents a spherical collision geometry centered on its origin
type Sphere struct {
	Radius float64
}

func (s *Sphere) Type() GeometryType { return GeometrySphere }

func (s *Sphere) Validate() error {
	if !finite(s.Radius) || s.Radius <= 0 {
		return fmt.Errorf("%w: sphere radius %v", ErrInvalidGeometry, s.Radius)
	}
	return nil
}

// ComputeAABB is not affected by rotation, only by position
func (s *Sphere) ComputeAABB(transform Transform) AABB {
	radiusVec := mgl64.Vec3{s.Radius, s.Radius, s.Radius}
	return AABB{
		Min: transform.Position.Sub(radiusVec),
		Max: transform.Position.Add(radiusVec),
	}
}

// Volume of sphere = (4/3) * π * r³
func (s *Sphere) Volume() float64 {
	return (4.0 / 3.0) * math.Pi * s.Radius * s.Radius * s.Radius
}

func (s *Sphere) Centroid() mgl64.Vec3 { return mgl64.Vec3{} }

// UnitInertia for a sphere: I = (2/5) * r²
func (s *Sphere) UnitInertia() mgl64.Mat3 {
	i := (2.0 / 5.0) * s.Radius * s.Radius
	return mgl64.Diag3(mgl64.Vec3{i, i, i})
}

func (s *Sphere) Support(direction mgl64.Vec3) mgl64.Vec3 {
	if direction.LenSqr() < 1e-24 {
		return mgl64.Vec3{s.Radius, 0, 0}
	}
	return direction.Normalize().Mul(s.Radius)
}

func (s *Sphere) ContactFeature(direction mgl64.Vec3) []mgl64.Vec3 {
	return []mgl64.Vec3{s.Support(direction)}
}

// Capsule is a segment swept by a sphere. The segment lies on the local X axis,
// from -HalfHeight to +HalfHeight.
type Capsule struct {
	Radius     float64
	HalfHeight float64
}

func (c *Capsule) Type() GeometryType { return GeometryCapsule }

func (c *Capsule) Validate() error {
	if !finite(c.Radius, c.HalfHeight) || c.Radius <= 0 || c.HalfHeight < 0 {
		return fmt.Errorf("%w: capsule radius %v half height %v", ErrInvalidGeometry, c.Radius, c.HalfHeight)
	}
	return nil
}

// Segment returns the local end points of the core segment
func (c *Capsule) Segment() (mgl64.Vec3, mgl64.Vec3) {
	return mgl64.Vec3{-c.HalfHeight, 0, 0}, mgl64.Vec3{c.HalfHeight, 0, 0}
}

func (c *Capsule) ComputeAABB(transform Transform) AABB {
	p0, p1 := c.Segment()
	return aabbFromPoints([]mgl64.Vec3{p0, p1}, transform).Expand(c.Radius)
}

func (c *Capsule) Volume() float64 {
	r := c.Radius
	return math.Pi*r*r*2*c.HalfHeight + (4.0/3.0)*math.Pi*r*r*r
}

func (c *Capsule) Centroid() mgl64.Vec3 { return mgl64.Vec3{} }

// UnitInertia splits the mass between the cylinder and the two hemispherical caps.
func (c *Capsule) UnitInertia() mgl64.Mat3 {
	r := c.Radius
	length := 2 * c.HalfHeight
	cylinder := math.Pi * r * r * length
	caps := (4.0 / 3.0) * math.Pi * r * r * r
	total := cylinder + caps
	mc := cylinder / total
	ms := caps / total

	axial := mc*r*r/2 + ms*2*r*r/5
	transverse := mc*(length*length/12+r*r/4) + ms*(2*r*r/5+length*length/4+3*length*r/8)

	return mgl64.Diag3(mgl64.Vec3{axial, transverse, transverse})
}

func (c *Capsule) Support(direction mgl64.Vec3) mgl64.Vec3 {
	x := c.HalfHeight
	if direction.X() < 0 {
		x = -x
	}
	if direction.LenSqr() < 1e-24 {
		return mgl64.Vec3{x + c.Radius, 0, 0}
	}
	return mgl64.Vec3{x, 0, 0}.Add(direction.Normalize().Mul(c.Radius))
}

// ContactFeature returns the side segment when direction is nearly
// perpendicular to the axis, otherwise the support point.
func (c *Capsule) ContactFeature(direction mgl64.Vec3) []mgl64.Vec3 {
	if direction.LenSqr() < 1e-24 {
		return []mgl64.Vec3{c.Support(direction)}
	}
	dir := direction.Normalize()
	if math.Abs(dir.X()) > 0.2 || c.HalfHeight == 0 {
		return []mgl64.Vec3{c.Support(dir)}
	}

	side := mgl64.Vec3{0, dir.Y(), dir.Z()}.Normalize().Mul(c.Radius)
	p0, p1 := c.Segment()
	return []mgl64.Vec3{p0.Add(side), p1.Add(side)}
}

// Box represents an oriented box geometry defined by its half-extents
type Box struct {
	HalfExtents mgl64.Vec3
}

func (b *Box) Type() GeometryType { return GeometryBox }

func (b *Box) Validate() error {
	h := b.HalfExtents
	if !finite(h[0], h[1], h[2]) || h[0] <= 0 || h[1] <= 0 || h[2] <= 0 {
		return fmt.Errorf("%w: box half extents %v", ErrInvalidGeometry, h)
	}
	return nil
}

// Corners returns the 8 local corners of the box
func (b *Box) Corners() [8]mgl64.Vec3 {
	hx, hy, hz := b.HalfExtents.X(), b.HalfExtents.Y(), b.HalfExtents.Z()
	return [8]mgl64.Vec3{
		{-hx, -hy, -hz},
		{+hx, -hy, -hz},
		{-hx, +hy, -hz},
		{+hx, +hy, -hz},
		{-hx, -hy, +hz},
		{+hx, -hy, +hz},
		{-hx, +hy, +hz},
		{+hx, +hy, +hz},
	}
}

func (b *Box) ComputeAABB(transform Transform) AABB {
	corners := b.Corners()
	return aabbFromPoints(corners[:], transform)
}

// Volume = 8 * hx * hy * hz (full dimensions are 2*halfExtents)
func (b *Box) Volume() float64 {
	return 8.0 * b.HalfExtents.X() * b.HalfExtents.Y() * b.HalfExtents.Z()
}

func (b *Box) Centroid() mgl64.Vec3 { return mgl64.Vec3{} }

// UnitInertia for a box: I = (1/12) * (dimension1² + dimension2²)
func (b *Box) UnitInertia() mgl64.Mat3 {
	x := b.HalfExtents.X() * 2
	y := b.HalfExtents.Y() * 2
	z := b.HalfExtents.Z() * 2

	return mgl64.Diag3(mgl64.Vec3{
		(y*y + z*z) / 12.0,
		(x*x + z*z) / 12.0,
		(x*x + y*y) / 12.0,
	})
}

func (b *Box) Support(direction mgl64.Vec3) mgl64.Vec3 {
	hx, hy, hz := b.HalfExtents.X(), b.HalfExtents.Y(), b.HalfExtents.Z()

	if direction.X() < 0 {
		hx = -hx
	}
	if direction.Y() < 0 {
		hy = -hy
	}
	if direction.Z() < 0 {
		hz = -hz
	}

	return mgl64.Vec3{hx, hy, hz}
}

// ContactFeature returns the face whose outward normal is most aligned with
// direction, as 4 vertices wound counter-clockwise seen from outside.
func (b *Box) ContactFeature(direction mgl64.Vec3) []mgl64.Vec3 {
	axis := 0
	for i := 1; i < 3; i++ {
		if math.Abs(direction[i]/b.HalfExtents[i]) > math.Abs(direction[axis]/b.HalfExtents[axis]) {
			axis = i
		}
	}
	return b.Face(axis, direction[axis] >= 0)
}

// Face returns the 4 vertices of the face orthogonal to axis, on the positive
// or negative side, wound counter-clockwise seen from outside.
func (b *Box) Face(axis int, positive bool) []mgl64.Vec3 {
	u := (axis + 1) % 3
	v := (axis + 2) % 3
	h := b.HalfExtents

	sign := 1.0
	if !positive {
		sign = -1.0
	}

	corner := func(su, sv float64) mgl64.Vec3 {
		var p mgl64.Vec3
		p[axis] = sign * h[axis]
		p[u] = su * h[u]
		p[v] = sv * h[v]
		return p
	}

	if positive {
		return []mgl64.Vec3{corner(-1, -1), corner(1, -1), corner(1, 1), corner(-1, 1)}
	}
	return []mgl64.Vec3{corner(-1, -1), corner(-1, 1), corner(1, 1), corner(1, -1)}
}

// Plane geometry is the half-space n·p + d <= 0; the normal points out of the solid.
// Planes can only be attached to static actors.
func (p *Plane) Type() GeometryType { return GeometryPlane }

func (p *Plane) Validate() error {
	n := p.Normal
	if !finite(n[0], n[1], n[2], p.Distance) || n.LenSqr() < 1e-12 {
		return fmt.Errorf("%w: plane normal %v", ErrInvalidGeometry, n)
	}
	return nil
}

// ComputeAABB covers the whole half-space: unbounded in the tangent directions
// and on the solid side of the surface. Non axis-aligned planes get unbounded
// extents on every axis.
func (p *Plane) ComputeAABB(transform Transform) AABB {
	world := p.Normalize().Transform(transform)
	planePoint := world.Normal.Mul(-world.Distance)

	min, max := planePoint, planePoint
	for i := 0; i < 3; i++ {
		switch {
		case math.Abs(world.Normal[i]) < 1-1e-9:
			min[i] = -unboundedExtent
			max[i] = unboundedExtent
		case world.Normal[i] > 0:
			min[i] = -unboundedExtent
		default:
			max[i] = unboundedExtent
		}
	}

	return AABB{Min: min, Max: max}
}

// Volume of a plane is unbounded; it never contributes mass.
func (p *Plane) Volume() float64 { return math.Inf(1) }

func (p *Plane) Centroid() mgl64.Vec3 { return p.Normalize().Normal.Mul(-p.Distance) }

func (p *Plane) UnitInertia() mgl64.Mat3 { return mgl64.Mat3{} }

// Support approximates the half-space with a large slab.
// Can obviously break for contacts further than planeFeatureSize from the origin.
func (p *Plane) Support(direction mgl64.Vec3) mgl64.Vec3 {
	const depth = 0.5

	n := p.Normalize()
	t1, t2 := TangentBasis(n.Normal)
	point := n.Normal.Mul(-n.Distance)

	if direction.Dot(t1) < 0 {
		point = point.Sub(t1.Mul(planeFeatureSize))
	} else {
		point = point.Add(t1.Mul(planeFeatureSize))
	}
	if direction.Dot(t2) < 0 {
		point = point.Sub(t2.Mul(planeFeatureSize))
	} else {
		point = point.Add(t2.Mul(planeFeatureSize))
	}
	if direction.Dot(n.Normal) < 0 {
		point = point.Sub(n.Normal.Mul(depth))
	}
	return point
}

// ContactFeature returns 4 points forming a large square on the plane
func (p *Plane) ContactFeature(direction mgl64.Vec3) []mgl64.Vec3 {
	n := p.Normalize()
	t1, t2 := TangentBasis(n.Normal)
	center := n.Normal.Mul(-n.Distance)

	return []mgl64.Vec3{
		center.Add(t1.Mul(-planeFeatureSize)).Add(t2.Mul(-planeFeatureSize)),
		center.Add(t1.Mul(planeFeatureSize)).Add(t2.Mul(-planeFeatureSize)),
		center.Add(t1.Mul(planeFeatureSize)).Add(t2.Mul(planeFeatureSize)),
		center.Add(t1.Mul(-planeFeatureSize)).Add(t2.Mul(planeFeatureSize)),
	}
}

const planeFeatureSize = 1000.0

// TangentBasis returns two unit vectors orthogonal to normal and to each other,
// with t1 × t2 = normal.
func TangentBasis(normal mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3) {
	var tangent1 mgl64.Vec3
	if math.Abs(normal.X()) > 0.9 {
		tangent1 = mgl64.Vec3{0, 1, 0}
	} else {
		tangent1 = mgl64.Vec3{1, 0, 0}
	}

	tangent1 = tangent1.Sub(normal.Mul(tangent1.Dot(normal))).Normalize()
	tangent2 := normal.Cross(tangent1).Normalize()

	return tangent1, tangent2
}
