package actor

import "fmt"

// Material holds the surface response coefficients. Materials are shared by
// reference between shapes, so changes apply to every shape using them.
type Material struct {
	StaticFriction  float64
	DynamicFriction float64
	Restitution     float64 // 0= no rebound, 1= perfect restitution
}

// DefaultMaterial is the material given to shapes created without one
func DefaultMaterial() *Material {
	return &Material{StaticFriction: 0.5, DynamicFriction: 0.5, Restitution: 0.6}
}

func (m *Material) Validate() error {
	if !finite(m.StaticFriction, m.DynamicFriction, m.Restitution) {
		return fmt.Errorf("%w: non finite coefficient", ErrInvalidMaterial)
	}
	if m.StaticFriction < 0 || m.DynamicFriction < 0 {
		return fmt.Errorf("%w: negative friction (%v, %v)", ErrInvalidMaterial, m.StaticFriction, m.DynamicFriction)
	}
	if m.Restitution < 0 || m.Restitution > 1 {
		return fmt.Errorf("%w: restitution %v outside [0,1]", ErrInvalidMaterial, m.Restitution)
	}
	return nil
}
