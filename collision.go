package anvil

import (
	"cmp"
	"math"
	"slices"

	"github.com/akmonengine/anvil/actor"
	"github.com/akmonengine/anvil/constraint"
	"github.com/akmonengine/anvil/epa"
	"github.com/akmonengine/anvil/gjk"
	"github.com/go-gl/mathgl/mgl64"
)

// manifold is the narrow phase result for two shapes. The normal points from
// the first shape to the second; points lie on the second shape's surface.
type manifold struct {
	normal mgl64.Vec3
	points []constraint.ContactPoint
	// estimated is set when the depth comes from an unconverged EPA
	estimated bool
}

// collideFunc returns the contacts of a and b. Points separated by less than
// margin are kept with a negative penetration.
type collideFunc func(a, b *actor.Collider, margin float64) (manifold, bool)

// collisionTable dispatches on the geometry pair. Entries below the diagonal
// reuse the routine of the mirrored pair.
var collisionTable = [actor.GeometryCount][actor.GeometryCount]collideFunc{
	actor.GeometrySphere: {
		actor.GeometrySphere:     collideSpheres,
		actor.GeometryCapsule:    collideSphereCapsule,
		actor.GeometryBox:        collideSphereBox,
		actor.GeometryConvexMesh: collideConvex,
		actor.GeometryPlane:      collideSpherePlane,
	},
	actor.GeometryCapsule: {
		actor.GeometrySphere:     swapped(collideSphereCapsule),
		actor.GeometryCapsule:    collideCapsules,
		actor.GeometryBox:        collideConvex,
		actor.GeometryConvexMesh: collideConvex,
		actor.GeometryPlane:      collideCapsulePlane,
	},
	actor.GeometryBox: {
		actor.GeometrySphere:     swapped(collideSphereBox),
		actor.GeometryCapsule:    collideConvex,
		actor.GeometryBox:        collideBoxes,
		actor.GeometryConvexMesh: collideConvex,
		actor.GeometryPlane:      collideBoxPlane,
	},
	actor.GeometryConvexMesh: {
		actor.GeometrySphere:     collideConvex,
		actor.GeometryCapsule:    collideConvex,
		actor.GeometryBox:        collideConvex,
		actor.GeometryConvexMesh: collideConvex,
		actor.GeometryPlane:      collideConvexPlane,
	},
	actor.GeometryPlane: {
		actor.GeometrySphere:     swapped(collideSpherePlane),
		actor.GeometryCapsule:    swapped(collideCapsulePlane),
		actor.GeometryBox:        swapped(collideBoxPlane),
		actor.GeometryConvexMesh: swapped(collideConvexPlane),
		actor.GeometryPlane:      nil,
	},
}

func collide(a, b *actor.Collider, margin float64) (manifold, bool) {
	fn := collisionTable[a.Type()][b.Type()]
	if fn == nil {
		return manifold{}, false
	}
	return fn(a, b, margin)
}

// swapped runs fn with the shapes exchanged, then flips the normal and moves
// the points from the first shape's surface onto the second's.
func swapped(fn collideFunc) collideFunc {
	return func(a, b *actor.Collider, margin float64) (manifold, bool) {
		m, ok := fn(b, a, margin)
		if !ok {
			return m, false
		}
		for i := range m.points {
			m.points[i].Position = m.points[i].Position.Add(m.normal.Mul(m.points[i].Penetration))
		}
		m.normal = m.normal.Mul(-1)
		return m, true
	}
}

// overlaps is the boolean test used for triggers and scene queries
func overlaps(a, b *actor.Collider) bool {
	if a.Type() == actor.GeometryPlane || b.Type() == actor.GeometryPlane {
		_, ok := collide(a, b, 0)
		return ok
	}
	return gjk.Intersect(a, b)
}

func sphereContact(centerA mgl64.Vec3, radiusA float64, centerB mgl64.Vec3, radiusB float64, margin float64) (manifold, bool) {
	d := centerB.Sub(centerA)
	distance := d.Len()
	penetration := radiusA + radiusB - distance
	if penetration < -margin {
		return manifold{}, false
	}

	normal := mgl64.Vec3{0, 1, 0}
	if distance > 1e-9 {
		normal = d.Mul(1 / distance)
	}
	return manifold{
		normal: normal,
		points: []constraint.ContactPoint{{Position: centerB.Sub(normal.Mul(radiusB)), Penetration: penetration}},
	}, true
}

func collideSpheres(a, b *actor.Collider, margin float64) (manifold, bool) {
	sa := a.Shape.Geometry.(*actor.Sphere)
	sb := b.Shape.Geometry.(*actor.Sphere)
	return sphereContact(a.Transform.Position, sa.Radius, b.Transform.Position, sb.Radius, margin)
}

func capsuleSegment(c *actor.Collider) (mgl64.Vec3, mgl64.Vec3) {
	p0, p1 := c.Shape.Geometry.(*actor.Capsule).Segment()
	return c.Transform.Apply(p0), c.Transform.Apply(p1)
}

func collideSphereCapsule(a, b *actor.Collider, margin float64) (manifold, bool) {
	sphere := a.Shape.Geometry.(*actor.Sphere)
	capsule := b.Shape.Geometry.(*actor.Capsule)

	center := a.Transform.Position
	p0, p1 := capsuleSegment(b)
	_, closest := epa.ClosestPointsSegments(center, center, p0, p1)
	return sphereContact(center, sphere.Radius, closest, capsule.Radius, margin)
}

func collideCapsules(a, b *actor.Collider, margin float64) (manifold, bool) {
	ca := a.Shape.Geometry.(*actor.Capsule)
	cb := b.Shape.Geometry.(*actor.Capsule)

	a0, a1 := capsuleSegment(a)
	b0, b1 := capsuleSegment(b)
	pa, pb := epa.ClosestPointsSegments(a0, a1, b0, b1)
	return sphereContact(pa, ca.Radius, pb, cb.Radius, margin)
}

func collideSphereBox(a, b *actor.Collider, margin float64) (manifold, bool) {
	sphere := a.Shape.Geometry.(*actor.Sphere)
	h := b.Shape.Geometry.(*actor.Box).HalfExtents

	center := a.Transform.Position
	local := b.Transform.ApplyInverse(center)
	clamped := mgl64.Vec3{
		math.Max(-h[0], math.Min(h[0], local[0])),
		math.Max(-h[1], math.Min(h[1], local[1])),
		math.Max(-h[2], math.Min(h[2], local[2])),
	}

	if clamped != local {
		closest := b.Transform.Apply(clamped)
		d := closest.Sub(center)
		distance := d.Len()
		penetration := sphere.Radius - distance
		if penetration < -margin || distance < 1e-12 {
			return manifold{}, false
		}
		return manifold{
			normal: d.Mul(1 / distance),
			points: []constraint.ContactPoint{{Position: closest, Penetration: penetration}},
		}, true
	}

	// center inside the box: leave through the nearest face
	axis, depth := 0, math.Inf(1)
	for i := 0; i < 3; i++ {
		if d := h[i] - math.Abs(local[i]); d < depth {
			axis, depth = i, d
		}
	}
	sign := 1.0
	if local[axis] < 0 {
		sign = -1
	}

	var face mgl64.Vec3
	face[axis] = sign
	surface := local
	surface[axis] = sign * h[axis]

	return manifold{
		normal: b.Transform.Rotate(face).Mul(-1),
		points: []constraint.ContactPoint{{Position: b.Transform.Apply(surface), Penetration: sphere.Radius + depth}},
	}, true
}

// worldPlane returns the plane of a plane collider in world space
func worldPlane(c *actor.Collider) actor.Plane {
	return c.Shape.Geometry.(*actor.Plane).Normalize().Transform(c.Transform)
}

// planeContacts builds the contacts of points of a rounded shape of the given
// radius against a plane. The plane is the second shape.
func planeContacts(points []mgl64.Vec3, radius float64, plane actor.Plane, margin float64) (manifold, bool) {
	m := manifold{normal: plane.Normal.Mul(-1)}
	for _, p := range points {
		distance := plane.SignedDistance(p)
		if penetration := radius - distance; penetration >= -margin {
			m.points = append(m.points, constraint.ContactPoint{Position: p.Sub(plane.Normal.Mul(distance)), Penetration: penetration})
		}
	}
	if len(m.points) == 0 {
		return manifold{}, false
	}
	m.points = deepestPoints(m.points, epa.MaxManifoldPoints)
	return m, true
}

// deepestPoints keeps the n deepest points, in their original order on ties
func deepestPoints(points []constraint.ContactPoint, n int) []constraint.ContactPoint {
	if len(points) <= n {
		return points
	}
	slices.SortStableFunc(points, func(p, q constraint.ContactPoint) int {
		return cmp.Compare(q.Penetration, p.Penetration)
	})
	return points[:n]
}

func collideSpherePlane(a, b *actor.Collider, margin float64) (manifold, bool) {
	sphere := a.Shape.Geometry.(*actor.Sphere)
	return planeContacts([]mgl64.Vec3{a.Transform.Position}, sphere.Radius, worldPlane(b), margin)
}

// collideCapsulePlane tests both segment ends, so a capsule lying on the
// plane gets two contacts
func collideCapsulePlane(a, b *actor.Collider, margin float64) (manifold, bool) {
	capsule := a.Shape.Geometry.(*actor.Capsule)
	p0, p1 := capsuleSegment(a)
	return planeContacts([]mgl64.Vec3{p0, p1}, capsule.Radius, worldPlane(b), margin)
}

func collideBoxPlane(a, b *actor.Collider, margin float64) (manifold, bool) {
	corners := a.Shape.Geometry.(*actor.Box).Corners()
	world := make([]mgl64.Vec3, len(corners))
	for i, c := range corners {
		world[i] = a.Transform.Apply(c)
	}
	return planeContacts(world, 0, worldPlane(b), margin)
}

// collideConvexPlane uses the face of the mesh turned towards the plane,
// plus its deepest vertex for tilted meshes.
func collideConvexPlane(a, b *actor.Collider, margin float64) (manifold, bool) {
	plane := worldPlane(b)
	down := plane.Normal.Mul(-1)

	points := a.ContactFeatureWorld(down)
	deepest := a.SupportWorld(down)
	if !slices.Contains(points, deepest) {
		points = append(points, deepest)
	}
	return planeContacts(points, 0, plane, margin)
}

func collideBoxes(a, b *actor.Collider, margin float64) (manifold, bool) {
	boxA := a.Shape.Geometry.(*actor.Box)
	boxB := b.Shape.Geometry.(*actor.Box)

	axis, ok := boxBoxSAT(a, b, boxA, boxB, margin)
	if !ok {
		return manifold{}, false
	}

	if axis.edgeA >= 0 {
		a0, a1 := supportEdge(a.Transform, boxAxes(a.Transform), boxA.HalfExtents, axis.edgeA, axis.normal)
		b0, b1 := supportEdge(b.Transform, boxAxes(b.Transform), boxB.HalfExtents, axis.edgeB, axis.normal.Mul(-1))
		_, onB := epa.ClosestPointsSegments(a0, a1, b0, b1)
		return manifold{
			normal: axis.normal,
			points: []constraint.ContactPoint{{Position: onB, Penetration: axis.depth}},
		}, true
	}

	return manifold{
		normal: axis.normal,
		points: epa.GenerateManifold(a, b, axis.normal, axis.depth, margin),
	}, true
}

// collideConvex is the generic path: GJK, then EPA and feature clipping.
// It only reports overlapping shapes; margin is unused.
func collideConvex(a, b *actor.Collider, _ float64) (manifold, bool) {
	contact, ok := epa.Collide(a, b)
	if !ok || len(contact.Points) == 0 {
		return manifold{}, false
	}
	return manifold{normal: contact.Normal, points: contact.Points, estimated: !contact.Converged}, true
}

// bodyPair is a broad phase pair that survived filtering. margin is the
// separation under which speculative contacts are generated.
type bodyPair struct {
	a, b   *actor.RigidBody
	margin float64
}

// sweepDistance bounds how far a point of rb can travel during h
func sweepDistance(rb *actor.RigidBody, h float64) float64 {
	if rb.IsStatic() || rb.IsSleeping {
		return 0
	}
	radius := rb.Bounds().Extent().Len() / 2
	return (rb.Velocity.Len() + rb.AngularVelocity.Len()*radius) * h
}

type narrowResult struct {
	contacts []*constraint.ContactConstraint
	// touching is unset when every contact point is still speculative
	touching bool
	// trigger is set when a trigger shape of one body overlaps a shape of the other
	trigger   bool
	estimated int
}

// narrowPhase runs every pair on the dispatcher. Results keep the pair order.
func narrowPhase(d *Dispatcher, pairs []bodyPair, cache *constraint.ContactCache, settings constraint.Settings) []narrowResult {
	results := make([]narrowResult, len(pairs))
	task(d, pairs, func(i int, pair bodyPair) {
		results[i] = collideBodies(pair.a, pair.b, pair.margin, cache, settings)
	})
	return results
}

func collideBodies(a, b *actor.RigidBody, margin float64, cache *constraint.ContactCache, settings constraint.Settings) narrowResult {
	var result narrowResult

	for _, ca := range a.Colliders {
		if !ca.Shape.Flags.Collides() {
			continue
		}
		for _, cb := range b.Colliders {
			if !cb.Shape.Flags.Collides() || !ca.AABB.Expand(margin).Overlaps(cb.AABB) {
				continue
			}

			triggerA := ca.Shape.Flags.Has(actor.ShapeFlagTrigger)
			triggerB := cb.Shape.Flags.Has(actor.ShapeFlagTrigger)
			if triggerA && triggerB {
				continue
			}
			if triggerA || triggerB {
				if !result.trigger {
					result.trigger = overlaps(ca, cb)
				}
				continue
			}
			if !ca.Shape.Flags.Has(actor.ShapeFlagSimulate) || !cb.Shape.Flags.Has(actor.ShapeFlagSimulate) {
				continue
			}

			m, ok := collide(ca, cb, margin)
			if !ok {
				continue
			}
			if !result.touching {
				result.touching = slices.ContainsFunc(m.points, func(p constraint.ContactPoint) bool {
					return p.Penetration >= -settings.LinearSlop
				})
			}
			if m.estimated {
				result.estimated++
			}

			c := &constraint.ContactConstraint{
				BodyA:  a,
				BodyB:  b,
				ShapeA: ca.Shape,
				ShapeB: cb.Shape,
				Normal: m.normal,
				Points: m.points,
			}
			if settings.WarmStarting {
				cache.Restore(c, settings.WarmStartDistance)
			}
			result.contacts = append(result.contacts, c)
		}
	}

	return result
}
