// Package epa implements the Expanding Polytope Algorithm and contact manifold
// generation for overlapping convex shapes.
//
// EPA starts from the tetrahedron left by GJK and grows it towards the boundary
// of the Minkowski difference. The face closest to the origin gives the contact
// normal and the penetration depth; GenerateManifold then clips the touching
// features of both shapes into up to four contact points.
//
// References:
//   - Van den Bergen: "Proximity Queries and Penetration Depth Computation on 3D Game Objects" (2001)
package epa

import (
	"github.com/akmonengine/anvil/actor"
	"github.com/akmonengine/anvil/constraint"
	"github.com/akmonengine/anvil/gjk"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	// EPAMaxIterations limits polytope expansion
	EPAMaxIterations = 32

	// EPAConvergenceTolerance stops the expansion once a new support point
	// improves the distance by less than this
	EPAConvergenceTolerance = 0.001

	// NormalSnapThreshold zeroes near-zero normal components
	NormalSnapThreshold = 1e-8

	// DegeneratePenetrationEstimate is the depth reported when no polytope can be built
	DegeneratePenetrationEstimate = 0.01

	polytopeInitialCapacity = 4
)

// Penetration is the minimum translation separating two shapes: moving B by
// Normal*Depth resolves the overlap.
type Penetration struct {
	Normal mgl64.Vec3
	Depth  float64
	// Converged is false when the result is an estimate
	Converged bool
}

// Contact is a full narrow-phase result for two overlapping convex shapes
type Contact struct {
	Normal    mgl64.Vec3
	Points    []constraint.ContactPoint
	Converged bool
}

// Collide runs GJK on the two colliders and, when they overlap, EPA and
// manifold generation.
func Collide(a, b *actor.Collider) (Contact, bool) {
	simplex := gjk.SimplexPool.Get().(*gjk.Simplex)
	defer gjk.SimplexPool.Put(simplex)
	simplex.Reset()

	if !gjk.GJK(a, b, simplex) {
		return Contact{}, false
	}

	penetration := EPA(a, b, simplex)
	return Contact{
		Normal:    penetration.Normal,
		Points:    GenerateManifold(a, b, penetration.Normal, penetration.Depth, 0),
		Converged: penetration.Converged,
	}, true
}

// EPA computes the penetration of two overlapping shapes from the final GJK
// simplex. It never fails: when the polytope cannot be expanded to convergence
// the best estimate is returned with Converged unset.
func EPA(a, b gjk.Convex, simplex *gjk.Simplex) Penetration {
	if simplex.Count < 4 && !completeSimplex(a, b, simplex) {
		return estimatePenetration(a, b, simplex)
	}

	builder := polytopeBuilderPool.Get().(*PolytopeBuilder)
	defer polytopeBuilderPool.Put(builder)
	builder.Reset()

	if err := builder.BuildInitialFaces(simplex); err != nil {
		return estimatePenetration(a, b, simplex)
	}

	var closest Face
	for i := 0; i < EPAMaxIterations; i++ {
		index := builder.FindClosestFaceIndex()
		if index < 0 {
			break
		}
		closest = builder.faces[index]

		support := gjk.MinkowskiSupport(a, b, closest.Normal)
		if support.Dot(closest.Normal)-closest.Distance < EPAConvergenceTolerance {
			return result(closest, true)
		}

		builder.AddPointAndRebuildFaces(support, index)
	}

	if index := builder.FindClosestFaceIndex(); index >= 0 {
		closest = builder.faces[index]
	}
	return result(closest, false)
}

func result(face Face, converged bool) Penetration {
	depth := face.Distance
	if depth < 0 {
		depth = 0
	}
	return Penetration{
		Normal:    snapNormalToAxis(face.Normal),
		Depth:     depth,
		Converged: converged,
	}
}

var blowUpDirections = [6]mgl64.Vec3{
	{1, 0, 0}, {-1, 0, 0},
	{0, 1, 0}, {0, -1, 0},
	{0, 0, 1}, {0, 0, -1},
}

// completeSimplex grows a touching-contact simplex into a tetrahedron with
// support points along the principal axes.
func completeSimplex(a, b gjk.Convex, simplex *gjk.Simplex) bool {
	for _, direction := range blowUpDirections {
		if simplex.Count == 4 {
			break
		}
		point := gjk.MinkowskiSupport(a, b, direction)
		if independent(simplex, point) {
			simplex.Points[simplex.Count] = point
			simplex.Count++
		}
	}
	return simplex.Count == 4
}

// independent reports whether point spans a new dimension of the simplex
func independent(simplex *gjk.Simplex, point mgl64.Vec3) bool {
	const epsilon = 1e-10

	p := simplex.Points
	switch simplex.Count {
	case 0:
		return true
	case 1:
		return point.Sub(p[0]).LenSqr() > epsilon
	case 2:
		return p[1].Sub(p[0]).Cross(point.Sub(p[0])).LenSqr() > epsilon
	case 3:
		normal := p[1].Sub(p[0]).Cross(p[2].Sub(p[0]))
		d := normal.Dot(point.Sub(p[0]))
		return d*d > epsilon*normal.LenSqr()
	}
	return false
}

// estimatePenetration handles flat contacts where no tetrahedron exists.
// The normal comes from the simplex point nearest to the origin, or from the
// shape centers when the simplex is a single point.
func estimatePenetration(a, b gjk.Convex, simplex *gjk.Simplex) Penetration {
	if simplex.Count >= 2 {
		nearest := simplex.Points[0]
		for i := 1; i < simplex.Count; i++ {
			if simplex.Points[i].LenSqr() < nearest.LenSqr() {
				nearest = simplex.Points[i]
			}
		}
		if nearest.LenSqr() > 1e-16 {
			return Penetration{Normal: snapNormalToAxis(nearest.Normalize()), Depth: nearest.Len()}
		}
	}

	normal := b.Center().Sub(a.Center())
	if normal.LenSqr() < NormalSnapThreshold*NormalSnapThreshold {
		normal = mgl64.Vec3{0, 1, 0}
	}

	return Penetration{Normal: normal.Normalize(), Depth: DegeneratePenetrationEstimate}
}
