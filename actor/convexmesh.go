package actor

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ConvexMesh is a convex polyhedron given by its vertices and polygonal faces.
// Each face lists vertex indices counter-clockwise seen from outside.
type ConvexMesh struct {
	Vertices []mgl64.Vec3
	Faces    [][]int

	normals     []mgl64.Vec3
	volume      float64
	centroid    mgl64.Vec3
	unitInertia mgl64.Mat3
}

// NewConvexMesh validates the polyhedron and precomputes its mass distribution
func NewConvexMesh(vertices []mgl64.Vec3, faces [][]int) (*ConvexMesh, error) {
	m := &ConvexMesh{Vertices: vertices, Faces: faces}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// NewBoxMesh builds the convex mesh of a box, mostly useful for tests and tools
func NewBoxMesh(halfExtents mgl64.Vec3) (*ConvexMesh, error) {
	box := Box{HalfExtents: halfExtents}
	corners := box.Corners()

	faces := [][]int{
		{1, 3, 7, 5}, // +X
		{0, 4, 6, 2}, // -X
		{2, 6, 7, 3}, // +Y
		{0, 1, 5, 4}, // -Y
		{4, 5, 7, 6}, // +Z
		{0, 2, 3, 1}, // -Z
	}
	return NewConvexMesh(corners[:], faces)
}

func (m *ConvexMesh) Type() GeometryType { return GeometryConvexMesh }

// Validate checks the topology, computes face normals and mass properties,
// and rejects non-convex or zero-volume hulls.
func (m *ConvexMesh) Validate() error {
	if len(m.Vertices) < 4 || len(m.Faces) < 4 {
		return fmt.Errorf("%w: convex mesh needs at least 4 vertices and 4 faces, got %d and %d",
			ErrInvalidGeometry, len(m.Vertices), len(m.Faces))
	}
	for _, v := range m.Vertices {
		if !finite(v[0], v[1], v[2]) {
			return fmt.Errorf("%w: convex mesh vertex %v", ErrInvalidGeometry, v)
		}
	}

	normals := make([]mgl64.Vec3, len(m.Faces))
	for i, face := range m.Faces {
		if len(face) < 3 {
			return fmt.Errorf("%w: convex mesh face %d has %d vertices", ErrInvalidGeometry, i, len(face))
		}
		for _, idx := range face {
			if idx < 0 || idx >= len(m.Vertices) {
				return fmt.Errorf("%w: convex mesh face %d index %d out of range", ErrInvalidGeometry, i, idx)
			}
		}

		// Newell's method tolerates slightly non-planar polygons
		var n mgl64.Vec3
		for j := range face {
			cur := m.Vertices[face[j]]
			next := m.Vertices[face[(j+1)%len(face)]]
			n[0] += (cur[1] - next[1]) * (cur[2] + next[2])
			n[1] += (cur[2] - next[2]) * (cur[0] + next[0])
			n[2] += (cur[0] - next[0]) * (cur[1] + next[1])
		}
		if n.LenSqr() < 1e-24 {
			return fmt.Errorf("%w: convex mesh face %d is degenerate", ErrInvalidGeometry, i)
		}
		normals[i] = n.Normalize()
	}

	const convexityTolerance = 1e-6
	scale := 0.0
	for _, v := range m.Vertices {
		scale = math.Max(scale, v.Len())
	}
	for i, face := range m.Faces {
		offset := normals[i].Dot(m.Vertices[face[0]])
		for _, v := range m.Vertices {
			if normals[i].Dot(v)-offset > convexityTolerance*(1+scale) {
				return fmt.Errorf("%w: convex mesh is not convex at face %d", ErrInvalidGeometry, i)
			}
		}
	}

	m.normals = normals
	m.computeMassDistribution()
	if !(m.volume > 0) {
		return fmt.Errorf("%w: convex mesh has no volume", ErrInvalidGeometry)
	}
	return nil
}

// computeMassDistribution decomposes the hull into tetrahedra fanned from the
// vertex mean and accumulates volume, centroid and covariance.
func (m *ConvexMesh) computeMassDistribution() {
	var ref mgl64.Vec3
	for _, v := range m.Vertices {
		ref = ref.Add(v)
	}
	ref = ref.Mul(1 / float64(len(m.Vertices)))

	// covariance of the canonical tetrahedron (0, e1, e2, e3) at density 1, times 1/det
	canonical := mgl64.Mat3{
		2, 1, 1,
		1, 2, 1,
		1, 1, 2,
	}.Mul(1.0 / 120.0)

	var volume float64
	var weighted mgl64.Vec3
	var covariance mgl64.Mat3

	for _, face := range m.Faces {
		a := m.Vertices[face[0]].Sub(ref)
		for j := 1; j+1 < len(face); j++ {
			b := m.Vertices[face[j]].Sub(ref)
			c := m.Vertices[face[j+1]].Sub(ref)

			det := a.Dot(b.Cross(c))
			tetVolume := det / 6
			volume += tetVolume
			weighted = weighted.Add(a.Add(b).Add(c).Mul(tetVolume / 4))

			basis := mgl64.Mat3FromCols(a, b, c)
			covariance = covariance.Add(basis.Mul3(canonical).Mul3(basis.Transpose()).Mul(det))
		}
	}

	m.volume = volume
	if volume <= 0 {
		return
	}

	offset := weighted.Mul(1 / volume)
	m.centroid = ref.Add(offset)

	// move the covariance to the centroid, then I = tr(C)·E - C
	covariance = covariance.Sub(offset.OuterProd3(offset).Mul(volume))
	inertia := mgl64.Ident3().Mul(covariance.Trace()).Sub(covariance)
	m.unitInertia = inertia.Mul(1 / volume)
}

func (m *ConvexMesh) ComputeAABB(transform Transform) AABB {
	return aabbFromPoints(m.Vertices, transform)
}

func (m *ConvexMesh) Volume() float64 { return m.volume }

func (m *ConvexMesh) Centroid() mgl64.Vec3 { return m.centroid }

func (m *ConvexMesh) UnitInertia() mgl64.Mat3 { return m.unitInertia }

func (m *ConvexMesh) Support(direction mgl64.Vec3) mgl64.Vec3 {
	best := 0
	bestDot := math.Inf(-1)
	for i, v := range m.Vertices {
		if d := v.Dot(direction); d > bestDot {
			bestDot = d
			best = i
		}
	}
	return m.Vertices[best]
}

// ContactFeature returns the face whose normal is most aligned with direction
func (m *ConvexMesh) ContactFeature(direction mgl64.Vec3) []mgl64.Vec3 {
	if len(m.normals) != len(m.Faces) {
		return []mgl64.Vec3{m.Support(direction)}
	}

	best := 0
	bestDot := math.Inf(-1)
	for i, n := range m.normals {
		if d := n.Dot(direction); d > bestDot {
			bestDot = d
			best = i
		}
	}

	face := m.Faces[best]
	points := make([]mgl64.Vec3, len(face))
	for i, idx := range face {
		points[i] = m.Vertices[idx]
	}
	return points
}
