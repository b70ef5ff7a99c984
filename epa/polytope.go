package epa

import (
	"fmt"
	"sync"

	"github.com/akmonengine/anvil/gjk"
	"github.com/go-gl/mathgl/mgl64"
)

// PolytopeBuilder holds the expanding polytope. Buffers are reused across
// queries through polytopeBuilderPool.
type PolytopeBuilder struct {
	faces   []Face
	edges   []edge
	visible []bool

	// interior stays inside the polytope as it grows; it orients new faces
	interior mgl64.Vec3
}

// edge is a directed edge of a visible face
type edge struct {
	from, to mgl64.Vec3
}

var polytopeBuilderPool = sync.Pool{
	New: func() interface{} {
		return &PolytopeBuilder{
			faces:   make([]Face, 0, polytopeInitialCapacity),
			edges:   make([]edge, 0, polytopeInitialCapacity),
			visible: make([]bool, 0, polytopeInitialCapacity),
		}
	},
}

func (b *PolytopeBuilder) Reset() {
	b.faces = b.faces[:0]
	b.edges = b.edges[:0]
	b.visible = b.visible[:0]
	b.interior = mgl64.Vec3{}
}

// BuildInitialFaces creates the 4 faces of a tetrahedron simplex
func (b *PolytopeBuilder) BuildInitialFaces(simplex *gjk.Simplex) error {
	if simplex.Count != 4 {
		return fmt.Errorf("invalid simplex count: %d (expected 4)", simplex.Count)
	}

	p := simplex.Points
	b.interior = p[0].Add(p[1]).Add(p[2]).Add(p[3]).Mul(0.25)
	b.faces = append(b.faces,
		newFace(p[0], p[1], p[2], b.interior),
		newFace(p[0], p[2], p[3], b.interior),
		newFace(p[0], p[3], p[1], b.interior),
		newFace(p[1], p[3], p[2], b.interior),
	)

	return nil
}

// FindClosestFaceIndex returns the face nearest to the origin, -1 when empty.
// Ties keep the lowest index.
func (b *PolytopeBuilder) FindClosestFaceIndex() int {
	if len(b.faces) == 0 {
		return -1
	}

	closest := 0
	for i := 1; i < len(b.faces); i++ {
		if b.faces[i].Distance < b.faces[closest].Distance {
			closest = i
		}
	}
	return closest
}

// AddPointAndRebuildFaces adds support to the polytope: faces that see the
// point are removed and the hole is closed with a fan of faces around it.
func (b *PolytopeBuilder) AddPointAndRebuildFaces(support mgl64.Vec3, closestIndex int) {
	b.visible = b.visible[:0]
	count := 0
	for i := range b.faces {
		seen := b.faces[i].Normal.Dot(support.Sub(b.faces[i].Points[0])) > 1e-10
		b.visible = append(b.visible, seen)
		if seen {
			count++
		}
	}

	// the support point was found along the closest face normal, so that
	// face always sees it
	if count == 0 || count == len(b.faces) {
		for i := range b.visible {
			b.visible[i] = i == closestIndex
		}
	}

	b.collectHorizon()

	kept := b.faces[:0]
	for i, face := range b.faces {
		if !b.visible[i] {
			kept = append(kept, face)
		}
	}
	b.faces = kept

	for _, e := range b.edges {
		b.faces = append(b.faces, newFace(e.from, e.to, support, b.interior))
	}
}

// collectHorizon keeps the edges of visible faces whose twin belongs to a
// hidden face. Winding is consistent, so twins run in opposite directions.
func (b *PolytopeBuilder) collectHorizon() {
	b.edges = b.edges[:0]
	for i, face := range b.faces {
		if !b.visible[i] {
			continue
		}
		for j := 0; j < 3; j++ {
			e := edge{from: face.Points[j], to: face.Points[(j+1)%3]}
			if !b.sharedWithVisible(e, i) {
				b.edges = append(b.edges, e)
			}
		}
	}
}

func (b *PolytopeBuilder) sharedWithVisible(e edge, owner int) bool {
	for i, face := range b.faces {
		if i == owner || !b.visible[i] {
			continue
		}
		for j := 0; j < 3; j++ {
			if face.Points[j] == e.to && face.Points[(j+1)%3] == e.from {
				return true
			}
		}
	}
	return false
}
