package epa

import (
	"math"

	"github.com/akmonengine/anvil/actor"
	"github.com/akmonengine/anvil/constraint"
	"github.com/go-gl/mathgl/mgl64"
)

// MaxManifoldPoints caps the contact points kept per shape pair
const MaxManifoldPoints = 4

// GenerateManifold builds up to four contact points for shapes a and b
// overlapping along normal (pointing from a towards b) by depth.
//
// The features of both shapes facing each other are fetched; the one with more
// vertices becomes the reference and the other, the incident feature, is
// clipped against its side planes (Sutherland-Hodgman). Each surviving point
// gets its own depth against the reference plane. Positions are reported on
// b's surface. Points up to margin apart are kept with a negative depth.
func GenerateManifold(a, b *actor.Collider, normal mgl64.Vec3, depth, margin float64) []constraint.ContactPoint {
	featureA := a.ContactFeatureWorld(normal)
	featureB := b.ContactFeatureWorld(normal.Mul(-1))

	var points []constraint.ContactPoint
	switch {
	case len(featureB) == 1:
		points = []constraint.ContactPoint{{Position: featureB[0], Penetration: depth}}
	case len(featureA) == 1:
		points = []constraint.ContactPoint{{Position: featureA[0].Sub(normal.Mul(depth)), Penetration: depth}}
	case len(featureA) == 2 && len(featureB) == 2:
		points = segmentContact(featureA, featureB, normal, depth)
	case len(featureB) > len(featureA):
		points = clipAgainstReference(featureA, featureB, normal, false, margin)
	default:
		points = clipAgainstReference(featureB, featureA, normal, true, margin)
	}

	if len(points) == 0 {
		points = []constraint.ContactPoint{{Position: b.SupportWorld(normal.Mul(-1)), Penetration: depth}}
	}
	if len(points) > MaxManifoldPoints {
		points = reduceTo4Points(points, normal)
	}

	return points
}

// segmentContact pairs the closest points of two edges
func segmentContact(edgeA, edgeB []mgl64.Vec3, normal mgl64.Vec3, depth float64) []constraint.ContactPoint {
	_, onB := ClosestPointsSegments(edgeA[0], edgeA[1], edgeB[0], edgeB[1])
	return []constraint.ContactPoint{{Position: onB, Penetration: depth}}
}

// clipAgainstReference clips incident against the side planes of reference.
// referenceOnA tells which shape owns the reference face; incident points are
// then already on b's surface, otherwise they are pushed back onto it.
func clipAgainstReference(incident, reference []mgl64.Vec3, normal mgl64.Vec3, referenceOnA bool, margin float64) []constraint.ContactPoint {
	refNormal := polygonNormal(reference)
	if refNormal.Dot(normal) < 0 {
		refNormal = refNormal.Mul(-1)
	}
	if refNormal.Dot(normal) < 0.5 {
		refNormal = normal
	}
	offset := reference[0].Dot(refNormal)

	clipped := clipPolygon(incident, reference, refNormal)

	points := make([]constraint.ContactPoint, 0, len(clipped))
	for _, p := range clipped {
		distance := p.Dot(refNormal) - offset
		if referenceOnA {
			// b's vertices below a's face
			if distance <= margin {
				points = append(points, constraint.ContactPoint{Position: p, Penetration: -distance})
			}
		} else if distance >= -margin {
			// a's vertices past b's face
			points = append(points, constraint.ContactPoint{Position: p.Sub(refNormal.Mul(distance)), Penetration: distance})
		}
	}
	return points
}

// clipPolygon clips polygon against the planes through each reference edge,
// parallel to normal.
func clipPolygon(polygon, reference []mgl64.Vec3, normal mgl64.Vec3) []mgl64.Vec3 {
	if len(reference) < 3 {
		return polygon
	}

	center := computeCenter(reference)
	output := polygon
	for i := 0; i < len(reference) && len(output) > 0; i++ {
		v1 := reference[i]
		v2 := reference[(i+1)%len(reference)]

		inward := v2.Sub(v1).Cross(normal)
		if inward.LenSqr() < 1e-24 {
			continue
		}
		inward = inward.Normalize()
		if center.Sub(v1).Dot(inward) < 0 {
			inward = inward.Mul(-1)
		}

		output = clipPolygonAgainstPlane(output, v1, inward)
	}

	return output
}

// clipPolygonAgainstPlane keeps the part of polygon on the positive side of the plane
func clipPolygonAgainstPlane(polygon []mgl64.Vec3, planePoint, planeNormal mgl64.Vec3) []mgl64.Vec3 {
	const tolerance = 1e-6

	if len(polygon) < 2 {
		if len(polygon) == 1 && polygon[0].Sub(planePoint).Dot(planeNormal) < -tolerance {
			return nil
		}
		return polygon
	}

	// a segment is clipped once, not as a closed loop
	edges := len(polygon)
	if edges == 2 {
		edges = 1
	}

	output := make([]mgl64.Vec3, 0, len(polygon)+1)
	for i := 0; i < edges; i++ {
		current := polygon[i]
		next := polygon[(i+1)%len(polygon)]

		currentDist := current.Sub(planePoint).Dot(planeNormal)
		nextDist := next.Sub(planePoint).Dot(planeNormal)

		if currentDist >= -tolerance {
			output = append(output, current)
			if nextDist < -tolerance {
				output = append(output, lineIntersectPlane(current, next, planePoint, planeNormal))
			}
		} else if nextDist >= -tolerance {
			output = append(output, lineIntersectPlane(current, next, planePoint, planeNormal))
		}

		if edges == 1 && nextDist >= -tolerance {
			output = append(output, next)
		}
	}

	return output
}

// lineIntersectPlane returns where segment p1p2 crosses the plane
func lineIntersectPlane(p1, p2, planePoint, planeNormal mgl64.Vec3) mgl64.Vec3 {
	dir := p2.Sub(p1)
	denom := dir.Dot(planeNormal)
	if math.Abs(denom) < 1e-10 {
		return p1
	}

	t := -p1.Sub(planePoint).Dot(planeNormal) / denom
	t = math.Max(0, math.Min(1, t))
	return p1.Add(dir.Mul(t))
}

func computeCenter(points []mgl64.Vec3) mgl64.Vec3 {
	if len(points) == 0 {
		return mgl64.Vec3{}
	}

	var sum mgl64.Vec3
	for _, p := range points {
		sum = sum.Add(p)
	}
	return sum.Mul(1.0 / float64(len(points)))
}

// polygonNormal computes a unit normal with Newell's method
func polygonNormal(polygon []mgl64.Vec3) mgl64.Vec3 {
	var n mgl64.Vec3
	for i := range polygon {
		c := polygon[i]
		d := polygon[(i+1)%len(polygon)]
		n[0] += (c.Y() - d.Y()) * (c.Z() + d.Z())
		n[1] += (c.Z() - d.Z()) * (c.X() + d.X())
		n[2] += (c.X() - d.X()) * (c.Y() + d.Y())
	}
	if n.LenSqr() < 1e-24 {
		return mgl64.Vec3{}
	}
	return n.Normalize()
}

// ClosestPointsSegments returns the closest points between segments p1q1 and p2q2
// (Ericson, Real-Time Collision Detection 5.1.9).
func ClosestPointsSegments(p1, q1, p2, q2 mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3) {
	const epsilon = 1e-12

	d1 := q1.Sub(p1)
	d2 := q2.Sub(p2)
	r := p1.Sub(p2)
	a := d1.Dot(d1)
	e := d2.Dot(d2)
	f := d2.Dot(r)

	var s, t float64
	switch {
	case a <= epsilon && e <= epsilon:
		return p1, p2
	case a <= epsilon:
		t = clamp01(f / e)
	default:
		c := d1.Dot(r)
		if e <= epsilon {
			s = clamp01(-c / a)
		} else {
			b := d1.Dot(d2)
			denom := a*e - b*b
			if denom > epsilon {
				s = clamp01((b*f - c*e) / denom)
			}
			t = (b*s + f) / e
			if t < 0 {
				t = 0
				s = clamp01(-c / a)
			} else if t > 1 {
				t = 1
				s = clamp01((b - c) / a)
			}
		}
	}

	return p1.Add(d1.Mul(s)), p2.Add(d2.Mul(t))
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// reduceTo4Points keeps the deepest point, the point furthest from it, and the
// two points spanning the largest area on each side of their diagonal.
// Selection only depends on point order, so results are reproducible.
func reduceTo4Points(points []constraint.ContactPoint, normal mgl64.Vec3) []constraint.ContactPoint {
	first := 0
	for i, p := range points {
		if p.Penetration > points[first].Penetration {
			first = i
		}
	}

	second := first
	best := -1.0
	for i, p := range points {
		if d := p.Position.Sub(points[first].Position).LenSqr(); d > best {
			best, second = d, i
		}
	}

	diagonal := points[second].Position.Sub(points[first].Position)
	third, fourth := -1, -1
	maxArea, minArea := 0.0, 0.0
	for i, p := range points {
		if i == first || i == second {
			continue
		}
		area := diagonal.Cross(p.Position.Sub(points[first].Position)).Dot(normal)
		if area > maxArea {
			maxArea, third = area, i
		}
		if area < minArea {
			minArea, fourth = area, i
		}
	}

	selected := []int{first, second, third, fourth}
	result := make([]constraint.ContactPoint, 0, MaxManifoldPoints)
	for i := range points {
		for _, s := range selected {
			if s == i {
				result = append(result, points[i])
				break
			}
		}
	}
	return result
}
