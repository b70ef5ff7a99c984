package actor

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

// =============================================================================
// AABB Tests
// =============================================================================

func TestAABBOverlaps(t *testing.T) {
	unit := AABB{Min: mgl64.Vec3{0, 0, 0}, Max: mgl64.Vec3{1, 1, 1}}

	tests := []struct {
		name  string
		other AABB
		want  bool
	}{
		{"separated on X", AABB{Min: mgl64.Vec3{2, 0, 0}, Max: mgl64.Vec3{3, 1, 1}}, false},
		{"separated on Y", AABB{Min: mgl64.Vec3{0, -3, 0}, Max: mgl64.Vec3{1, -2, 1}}, false},
		{"separated on Z", AABB{Min: mgl64.Vec3{0, 0, 1.5}, Max: mgl64.Vec3{1, 1, 2}}, false},
		{"overlapping", AABB{Min: mgl64.Vec3{0.5, 0.5, 0.5}, Max: mgl64.Vec3{2, 2, 2}}, true},
		{"contained", AABB{Min: mgl64.Vec3{0.2, 0.2, 0.2}, Max: mgl64.Vec3{0.8, 0.8, 0.8}}, true},
		{"face touching", AABB{Min: mgl64.Vec3{1, 0, 0}, Max: mgl64.Vec3{2, 1, 1}}, true},
		{"corner touching", AABB{Min: mgl64.Vec3{1, 1, 1}, Max: mgl64.Vec3{2, 2, 2}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := unit.Overlaps(tt.other); got != tt.want {
				t.Errorf("Overlaps() = %v, want %v", got, tt.want)
			}
			if got := tt.other.Overlaps(unit); got != tt.want {
				t.Errorf("Overlaps() symmetry = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAABBContainsPoint(t *testing.T) {
	box := AABB{Min: mgl64.Vec3{-1, -1, -1}, Max: mgl64.Vec3{1, 1, 1}}

	tests := []struct {
		name  string
		point mgl64.Vec3
		want  bool
	}{
		{"center", mgl64.Vec3{0, 0, 0}, true},
		{"corner", mgl64.Vec3{1, 1, 1}, true},
		{"face", mgl64.Vec3{0, -1, 0}, true},
		{"outside", mgl64.Vec3{0, 1.01, 0}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := box.ContainsPoint(tt.point); got != tt.want {
				t.Errorf("ContainsPoint(%v) = %v, want %v", tt.point, got, tt.want)
			}
		})
	}
}

func TestAABBUnionAndExpand(t *testing.T) {
	a := AABB{Min: mgl64.Vec3{0, 0, 0}, Max: mgl64.Vec3{1, 1, 1}}
	b := AABB{Min: mgl64.Vec3{-2, 0.5, 0}, Max: mgl64.Vec3{0, 3, 0.5}}

	u := a.Union(b)
	if u.Min != (mgl64.Vec3{-2, 0, 0}) || u.Max != (mgl64.Vec3{1, 3, 1}) {
		t.Errorf("Union() = %v, want min {-2 0 0} max {1 3 1}", u)
	}

	if got := EmptyAABB().Union(a); got != a {
		t.Errorf("EmptyAABB().Union(a) = %v, want %v", got, a)
	}

	e := a.Expand(0.5)
	if e.Min != (mgl64.Vec3{-0.5, -0.5, -0.5}) || e.Max != (mgl64.Vec3{1.5, 1.5, 1.5}) {
		t.Errorf("Expand() = %v", e)
	}

	if c := a.Center(); c != (mgl64.Vec3{0.5, 0.5, 0.5}) {
		t.Errorf("Center() = %v", c)
	}
}

func TestAABBIsUnbounded(t *testing.T) {
	plane := &Plane{Normal: mgl64.Vec3{0, 1, 0}}
	if !plane.ComputeAABB(NewTransform()).IsUnbounded() {
		t.Error("plane bounds should be unbounded")
	}

	sphere := &Sphere{Radius: 100}
	if sphere.ComputeAABB(NewTransform()).IsUnbounded() {
		t.Error("sphere bounds should be bounded")
	}
}

// =============================================================================
// Transform Tests
// =============================================================================

func TestTransformComposeInverse(t *testing.T) {
	a := Transform{
		Position: mgl64.Vec3{1, 2, 3},
		Rotation: mgl64.QuatRotate(math.Pi/3, mgl64.Vec3{0, 1, 0}),
	}
	b := Transform{
		Position: mgl64.Vec3{-1, 0.5, 2},
		Rotation: mgl64.QuatRotate(math.Pi/5, mgl64.Vec3{1, 0, 0}),
	}
	point := mgl64.Vec3{0.3, -0.7, 1.1}

	composed := a.Compose(b)
	if !vec3Equal(composed.Apply(point), a.Apply(b.Apply(point)), 1e-9) {
		t.Errorf("Compose().Apply() = %v, want %v", composed.Apply(point), a.Apply(b.Apply(point)))
	}

	identity := a.Compose(a.Inverse())
	if !vec3Equal(identity.Position, mgl64.Vec3{}, 1e-9) {
		t.Errorf("a∘a⁻¹ position = %v, want origin", identity.Position)
	}
	if !identity.Rotation.OrientationEqualThreshold(mgl64.QuatIdent(), 1e-9) {
		t.Errorf("a∘a⁻¹ rotation = %v, want identity", identity.Rotation)
	}

	if !vec3Equal(a.ApplyInverse(a.Apply(point)), point, 1e-9) {
		t.Errorf("ApplyInverse(Apply(p)) = %v, want %v", a.ApplyInverse(a.Apply(point)), point)
	}
}

func TestTransformNormalized(t *testing.T) {
	tr := Transform{Rotation: mgl64.Quat{}}
	if got := tr.Normalized().Rotation; got != mgl64.QuatIdent() {
		t.Errorf("Normalized() of zero quaternion = %v, want identity", got)
	}

	tr = Transform{Rotation: mgl64.Quat{W: 2}}
	if got := tr.Normalized().Rotation.Len(); !floatEqual(got, 1, 1e-12) {
		t.Errorf("Normalized() length = %v, want 1", got)
	}
}

func TestPlaneSignedDistance(t *testing.T) {
	plane := NewPlane(0, 2, 0, 0)

	if !floatEqual(plane.SignedDistance(mgl64.Vec3{5, 3, -1}), 3, 1e-12) {
		t.Errorf("SignedDistance() = %v, want 3", plane.SignedDistance(mgl64.Vec3{5, 3, -1}))
	}
	if !vec3Equal(plane.Project(mgl64.Vec3{5, 3, -1}), mgl64.Vec3{5, 0, -1}, 1e-12) {
		t.Errorf("Project() = %v", plane.Project(mgl64.Vec3{5, 3, -1}))
	}

	moved := plane.Transform(NewTransformAt(mgl64.Vec3{0, 2, 0}))
	if !floatEqual(moved.SignedDistance(mgl64.Vec3{0, 2, 0}), 0, 1e-12) {
		t.Errorf("moved plane should pass through {0 2 0}, distance %v", moved.SignedDistance(mgl64.Vec3{0, 2, 0}))
	}
}
