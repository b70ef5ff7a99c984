package actor

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// MassProperties of a body in its actor frame. Inertia is taken about the
// center of mass, with axes aligned to the actor frame.
type MassProperties struct {
	Mass         float64
	CenterOfMass mgl64.Vec3
	Inertia      mgl64.Mat3
}

// ComputeMassProperties sums the simulation shapes at the given density.
// Each shape's inertia is rotated into the actor frame and moved to the common
// center of mass with the parallel-axis theorem.
func ComputeMassProperties(shapes []*Shape, density float64) (MassProperties, error) {
	if !finite(density) || density <= 0 {
		return MassProperties{}, fmt.Errorf("%w: density %v", ErrInvalidMass, density)
	}

	type part struct {
		mass     float64
		center   mgl64.Vec3
		rotation mgl64.Mat3
		unit     mgl64.Mat3
	}
	parts := make([]part, 0, len(shapes))

	var total float64
	var weighted mgl64.Vec3
	for _, s := range shapes {
		if !s.Flags.Has(ShapeFlagSimulate) {
			continue
		}
		if s.Geometry.Type() == GeometryPlane {
			return MassProperties{}, fmt.Errorf("%w: plane on a dynamic body", ErrUnsupportedShape)
		}

		m := density * s.Geometry.Volume()
		center := s.LocalPose.Apply(s.Geometry.Centroid())
		parts = append(parts, part{
			mass:     m,
			center:   center,
			rotation: s.LocalPose.RotationMatrix(),
			unit:     s.Geometry.UnitInertia(),
		})
		total += m
		weighted = weighted.Add(center.Mul(m))
	}

	if !finite(total) || total <= 0 {
		return MassProperties{}, fmt.Errorf("%w: total mass %v", ErrInvalidMass, total)
	}

	com := weighted.Mul(1 / total)
	var inertia mgl64.Mat3
	for _, p := range parts {
		local := p.rotation.Mul3(p.unit.Mul(p.mass)).Mul3(p.rotation.Transpose())
		d := p.center.Sub(com)
		shift := mgl64.Ident3().Mul(d.Dot(d)).Sub(d.OuterProd3(d)).Mul(p.mass)
		inertia = inertia.Add(local).Add(shift)
	}

	return MassProperties{Mass: total, CenterOfMass: com, Inertia: inertia}, nil
}
