package anvil

import (
	"math"

	"github.com/akmonengine/anvil/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// satAxis is the axis of least overlap found by the separating axis test.
// For an edge-edge axis, edgeA and edgeB are the box axes whose cross product
// gave it; both are -1 for face axes.
type satAxis struct {
	normal mgl64.Vec3
	depth  float64
	edgeA  int
	edgeB  int
}

const (
	// edge axes must beat the best face axis by this much, which keeps
	// resting boxes on stable face contacts
	satEdgeRelativeTolerance = 0.95
	satEdgeAbsoluteTolerance = 0.01
	satParallelEpsilon       = 1e-6
)

func boxAxes(t actor.Transform) [3]mgl64.Vec3 {
	return [3]mgl64.Vec3{
		t.Rotate(mgl64.Vec3{1, 0, 0}),
		t.Rotate(mgl64.Vec3{0, 1, 0}),
		t.Rotate(mgl64.Vec3{0, 0, 1}),
	}
}

func projectBox(axes [3]mgl64.Vec3, half mgl64.Vec3, axis mgl64.Vec3) float64 {
	return half[0]*math.Abs(axes[0].Dot(axis)) +
		half[1]*math.Abs(axes[1].Dot(axis)) +
		half[2]*math.Abs(axes[2].Dot(axis))
}

// boxBoxSAT tests the 15 axes of two oriented boxes (3 faces of each, 9 edge
// pairs). It reports false on the first axis separating them by more than
// margin; otherwise the normal of the least overlap points from a to b. The
// depth is negative when the boxes are apart by less than margin.
func boxBoxSAT(a, b *actor.Collider, boxA, boxB *actor.Box, margin float64) (satAxis, bool) {
	axesA := boxAxes(a.Transform)
	axesB := boxAxes(b.Transform)
	d := b.Transform.Position.Sub(a.Transform.Position)

	best := satAxis{depth: math.Inf(1), edgeA: -1, edgeB: -1}
	test := func(axis mgl64.Vec3, edgeA, edgeB int) bool {
		length := axis.Len()
		if length < satParallelEpsilon {
			return true
		}
		axis = axis.Mul(1 / length)

		distance := d.Dot(axis)
		overlap := projectBox(axesA, boxA.HalfExtents, axis) + projectBox(axesB, boxB.HalfExtents, axis) - math.Abs(distance)
		if overlap < -margin {
			return false
		}

		better := overlap < best.depth
		if edgeA >= 0 {
			better = overlap < satEdgeRelativeTolerance*best.depth-satEdgeAbsoluteTolerance
		}
		if better {
			if distance < 0 {
				axis = axis.Mul(-1)
			}
			best = satAxis{normal: axis, depth: overlap, edgeA: edgeA, edgeB: edgeB}
		}
		return true
	}

	for i := 0; i < 3; i++ {
		if !test(axesA[i], -1, -1) || !test(axesB[i], -1, -1) {
			return satAxis{}, false
		}
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if !test(axesA[i].Cross(axesB[j]), i, j) {
				return satAxis{}, false
			}
		}
	}

	return best, !math.IsInf(best.depth, 1)
}

// supportEdge returns the edge of the box parallel to its axis `edge` that is
// furthest along direction.
func supportEdge(t actor.Transform, axes [3]mgl64.Vec3, half mgl64.Vec3, edge int, direction mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3) {
	center := t.Position
	for i := 0; i < 3; i++ {
		if i == edge {
			continue
		}
		if axes[i].Dot(direction) < 0 {
			center = center.Sub(axes[i].Mul(half[i]))
		} else {
			center = center.Add(axes[i].Mul(half[i]))
		}
	}
	offset := axes[edge].Mul(half[edge])
	return center.Sub(offset), center.Add(offset)
}
