package epa

import (
	"testing"

	"github.com/akmonengine/anvil/actor"
	"github.com/akmonengine/anvil/constraint"
	"github.com/go-gl/mathgl/mgl64"
)

func TestGenerateManifold(t *testing.T) {
	up := mgl64.Vec3{0, 1, 0}

	tests := []struct {
		name      string
		a, b      *actor.Collider
		depth     float64
		wantCount int
		wantY     float64
	}{
		{
			name:      "box resting on box",
			a:         createBox(mgl64.Vec3{}, mgl64.Vec3{1, 1, 1}),
			b:         createBox(mgl64.Vec3{0, 1.9, 0}, mgl64.Vec3{1, 1, 1}),
			depth:     0.1,
			wantCount: 4,
			wantY:     0.9,
		},
		{
			name:      "small box overhanging",
			a:         createBox(mgl64.Vec3{}, mgl64.Vec3{1, 1, 1}),
			b:         createBox(mgl64.Vec3{0.8, 1.4, 0}, mgl64.Vec3{0.5, 0.5, 0.5}),
			depth:     0.1,
			wantCount: 4,
			wantY:     0.9,
		},
		{
			name:      "large box under small box",
			a:         createBox(mgl64.Vec3{0, -1.4, 0}, mgl64.Vec3{0.5, 0.5, 0.5}),
			b:         createBox(mgl64.Vec3{}, mgl64.Vec3{1, 1, 1}),
			depth:     0.1,
			wantCount: 4,
			wantY:     -1,
		},
		{
			name:      "sphere on box",
			a:         createBox(mgl64.Vec3{}, mgl64.Vec3{1, 1, 1}),
			b:         createSphere(mgl64.Vec3{0, 1.4, 0}, 0.5),
			depth:     0.1,
			wantCount: 1,
			wantY:     0.9,
		},
		{
			name:      "box on sphere",
			a:         createSphere(mgl64.Vec3{0, -1.4, 0}, 0.5),
			b:         createBox(mgl64.Vec3{}, mgl64.Vec3{1, 1, 1}),
			depth:     0.1,
			wantCount: 1,
			wantY:     -1,
		},
		{
			name:      "capsule lying on box",
			a:         createBox(mgl64.Vec3{}, mgl64.Vec3{1, 1, 1}),
			b:         createCollider(&actor.Capsule{Radius: 0.5, HalfHeight: 1}, mgl64.Vec3{0, 1.4, 0}),
			depth:     0.1,
			wantCount: 2,
			wantY:     0.9,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			points := GenerateManifold(tt.a, tt.b, up, tt.depth, 0)

			if len(points) != tt.wantCount {
				t.Fatalf("got %d points, want %d: %v", len(points), tt.wantCount, points)
			}
			for _, p := range points {
				if !almostEqual(p.Penetration, tt.depth, 1e-9) {
					t.Errorf("Penetration = %v, want %v", p.Penetration, tt.depth)
				}
				if !almostEqual(p.Position.Y(), tt.wantY, 1e-9) {
					t.Errorf("Position %v is not on the second shape's surface (y = %v)", p.Position, tt.wantY)
				}
			}
		})
	}
}

func TestGenerateManifold_ClipsToReferenceFace(t *testing.T) {
	a := createBox(mgl64.Vec3{}, mgl64.Vec3{1, 1, 1})
	b := createBox(mgl64.Vec3{0.8, 1.4, 0}, mgl64.Vec3{0.5, 0.5, 0.5})

	for _, p := range GenerateManifold(a, b, mgl64.Vec3{0, 1, 0}, 0.1, 0) {
		if p.Position.X() > 1+1e-6 || p.Position.X() < 0.3-1e-6 {
			t.Errorf("point %v escapes the overlap region", p.Position)
		}
	}
}

func TestGenerateManifold_TiltedBoxPerPointDepth(t *testing.T) {
	a := createBox(mgl64.Vec3{}, mgl64.Vec3{2, 1, 2})
	b := &actor.Collider{
		Shape: actor.NewShape(2, &actor.Box{HalfExtents: mgl64.Vec3{0.5, 0.5, 0.5}}, actor.DefaultMaterial(), true),
		Transform: actor.Transform{
			Position: mgl64.Vec3{0, 1.45, 0},
			Rotation: mgl64.QuatRotate(0.05, mgl64.Vec3{0, 0, 1}),
		},
	}

	points := GenerateManifold(a, b, mgl64.Vec3{0, 1, 0}, 0.1, 0)
	if len(points) < 2 {
		t.Fatalf("got %d points, want the tilted face corners", len(points))
	}

	deepest, shallowest := points[0].Penetration, points[0].Penetration
	for _, p := range points {
		if p.Penetration < 0 {
			t.Errorf("negative penetration %v", p.Penetration)
		}
		if !almostEqual(p.Penetration, 1-p.Position.Y(), 1e-9) {
			t.Errorf("point %v has depth %v, want its distance below y = 1", p.Position, p.Penetration)
		}
		deepest = max(deepest, p.Penetration)
		shallowest = min(shallowest, p.Penetration)
	}
	if deepest-shallowest < 1e-3 {
		t.Errorf("tilted contact should have varying depths, got %v..%v", shallowest, deepest)
	}
}

func TestGenerateManifold_SeparatedWithinMargin(t *testing.T) {
	a := createBox(mgl64.Vec3{}, mgl64.Vec3{1, 1, 1})
	b := createBox(mgl64.Vec3{0, 2.01, 0}, mgl64.Vec3{1, 1, 1})
	up := mgl64.Vec3{0, 1, 0}

	points := GenerateManifold(a, b, up, -0.01, 0.02)
	if len(points) != 4 {
		t.Fatalf("got %d points, want 4", len(points))
	}
	for _, p := range points {
		if !almostEqual(p.Penetration, -0.01, 1e-9) {
			t.Errorf("Penetration = %v, want -0.01", p.Penetration)
		}
		if !almostEqual(p.Position.Y(), 1.01, 1e-9) {
			t.Errorf("Position %v is not on the second shape's surface", p.Position)
		}
	}
}

func TestClipPolygonAgainstPlane_Segment(t *testing.T) {
	plane, normal := mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 0, 0}

	tests := []struct {
		name    string
		segment []mgl64.Vec3
		want    []mgl64.Vec3
	}{
		{"inside", []mgl64.Vec3{{1, 0, 0}, {2, 0, 0}}, []mgl64.Vec3{{1, 0, 0}, {2, 0, 0}}},
		{"leaving", []mgl64.Vec3{{1, 0, 0}, {-1, 0, 0}}, []mgl64.Vec3{{1, 0, 0}, {0, 0, 0}}},
		{"entering", []mgl64.Vec3{{-1, 0, 0}, {1, 0, 0}}, []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}}},
		{"outside", []mgl64.Vec3{{-1, 0, 0}, {-2, 0, 0}}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := clipPolygonAgainstPlane(tt.segment, plane, normal)
			if len(got) != len(tt.want) {
				t.Fatalf("clipPolygonAgainstPlane() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if !vec3AlmostEqual(got[i], tt.want[i], 1e-12) {
					t.Errorf("point %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestClosestPointsSegments(t *testing.T) {
	tests := []struct {
		name           string
		p1, q1, p2, q2 mgl64.Vec3
		wantA, wantB   mgl64.Vec3
	}{
		{"crossing", mgl64.Vec3{-1, 0, 0}, mgl64.Vec3{1, 0, 0}, mgl64.Vec3{0, 1, -1}, mgl64.Vec3{0, 1, 1}, mgl64.Vec3{0, 0, 0}, mgl64.Vec3{0, 1, 0}},
		{"end to end", mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 0, 0}, mgl64.Vec3{2, 0, 0}, mgl64.Vec3{3, 0, 0}, mgl64.Vec3{1, 0, 0}, mgl64.Vec3{2, 0, 0}},
		{"point and segment", mgl64.Vec3{0, 2, 0}, mgl64.Vec3{0, 2, 0}, mgl64.Vec3{-1, 0, 0}, mgl64.Vec3{1, 0, 0}, mgl64.Vec3{0, 2, 0}, mgl64.Vec3{0, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := ClosestPointsSegments(tt.p1, tt.q1, tt.p2, tt.q2)
			if !vec3AlmostEqual(a, tt.wantA, 1e-12) || !vec3AlmostEqual(b, tt.wantB, 1e-12) {
				t.Errorf("ClosestPointsSegments() = %v, %v, want %v, %v", a, b, tt.wantA, tt.wantB)
			}
		})
	}
}

func TestReduceTo4Points(t *testing.T) {
	points := []constraint.ContactPoint{
		{Position: mgl64.Vec3{0, 0, 0}, Penetration: 0.1},
		{Position: mgl64.Vec3{1, 0, 0}, Penetration: 0.1},
		{Position: mgl64.Vec3{2, 0, 0}, Penetration: 0.3},
		{Position: mgl64.Vec3{2, 0, 2}, Penetration: 0.1},
		{Position: mgl64.Vec3{1, 0, 2}, Penetration: 0.1},
		{Position: mgl64.Vec3{0, 0, 2}, Penetration: 0.1},
	}

	first := reduceTo4Points(points, mgl64.Vec3{0, 1, 0})
	if len(first) != 4 {
		t.Fatalf("got %d points, want 4", len(first))
	}

	foundDeepest := false
	for _, p := range first {
		if p.Penetration == 0.3 {
			foundDeepest = true
		}
	}
	if !foundDeepest {
		t.Error("the deepest point must be kept")
	}

	second := reduceTo4Points(points, mgl64.Vec3{0, 1, 0})
	for i := range first {
		if first[i].Position != second[i].Position {
			t.Fatalf("reduction is not reproducible: %v vs %v", first, second)
		}
	}
}
