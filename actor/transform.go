package actor

import "github.com/go-gl/mathgl/mgl64"

// Transform represents a rigid pose (rotation then translation) in 3D space
type Transform struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
}

// NewTransform creates an identity transform
func NewTransform() Transform {
	return Transform{
		Position: mgl64.Vec3{0, 0, 0},
		Rotation: mgl64.QuatIdent(),
	}
}

// NewTransformAt creates a transform with the given position and no rotation
func NewTransformAt(position mgl64.Vec3) Transform {
	return Transform{Position: position, Rotation: mgl64.QuatIdent()}
}

// Compose returns t∘other: other is expressed in t's frame.
func (t Transform) Compose(other Transform) Transform {
	return Transform{
		Position: t.Position.Add(t.Rotation.Rotate(other.Position)),
		Rotation: t.Rotation.Mul(other.Rotation).Normalize(),
	}
}

// Inverse returns the transform mapping world points back into t's frame
func (t Transform) Inverse() Transform {
	inv := t.Rotation.Conjugate()
	return Transform{
		Position: inv.Rotate(t.Position.Mul(-1)),
		Rotation: inv,
	}
}

// Apply maps a local point to world space
func (t Transform) Apply(point mgl64.Vec3) mgl64.Vec3 {
	return t.Position.Add(t.Rotation.Rotate(point))
}

// ApplyInverse maps a world point to local space
func (t Transform) ApplyInverse(point mgl64.Vec3) mgl64.Vec3 {
	return t.Rotation.Conjugate().Rotate(point.Sub(t.Position))
}

// Rotate rotates a local direction into world space
func (t Transform) Rotate(direction mgl64.Vec3) mgl64.Vec3 {
	return t.Rotation.Rotate(direction)
}

// RotateInverse rotates a world direction into local space
func (t Transform) RotateInverse(direction mgl64.Vec3) mgl64.Vec3 {
	return t.Rotation.Conjugate().Rotate(direction)
}

// Normalized returns the transform with a unit rotation; a zero quaternion becomes identity.
func (t Transform) Normalized() Transform {
	if t.Rotation.Len() == 0 {
		t.Rotation = mgl64.QuatIdent()
	}
	t.Rotation = t.Rotation.Normalize()
	return t
}

// IsValid reports whether every component is finite
func (t Transform) IsValid() bool {
	for _, v := range []float64{t.Position[0], t.Position[1], t.Position[2], t.Rotation.W, t.Rotation.V[0], t.Rotation.V[1], t.Rotation.V[2]} {
		if v != v || v > maxCoordinate || v < -maxCoordinate {
			return false
		}
	}
	return true
}

// RotationMatrix returns the 3x3 rotation matrix of t
func (t Transform) RotationMatrix() mgl64.Mat3 {
	return t.Rotation.Mat4().Mat3()
}

// Plane is an oriented plane n·p + d = 0 with unit normal n.
type Plane struct {
	Normal   mgl64.Vec3
	Distance float64
}

// NewPlane builds a plane from the equation coefficients a·x + b·y + c·z + d = 0
func NewPlane(a, b, c, d float64) Plane {
	return Plane{Normal: mgl64.Vec3{a, b, c}, Distance: d}.Normalize()
}

// Normalize rescales the equation so the normal has unit length
func (p Plane) Normalize() Plane {
	l := p.Normal.Len()
	if l == 0 {
		return p
	}
	return Plane{Normal: p.Normal.Mul(1 / l), Distance: p.Distance / l}
}

// SignedDistance is positive on the side the normal points to
func (p Plane) SignedDistance(point mgl64.Vec3) float64 {
	return p.Normal.Dot(point) + p.Distance
}

// Project returns the closest point on the plane
func (p Plane) Project(point mgl64.Vec3) mgl64.Vec3 {
	return point.Sub(p.Normal.Mul(p.SignedDistance(point)))
}

// Transform moves the plane by t
func (p Plane) Transform(t Transform) Plane {
	n := t.Rotate(p.Normal)
	point := t.Apply(p.Normal.Mul(-p.Distance))
	return Plane{Normal: n, Distance: -n.Dot(point)}
}
