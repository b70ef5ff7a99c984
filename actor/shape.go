package actor

import "github.com/go-gl/mathgl/mgl64"

// ShapeFlags selects which pipelines consider a shape
type ShapeFlags uint8

const (
	// ShapeFlagSimulate makes the shape generate contacts
	ShapeFlagSimulate ShapeFlags = 1 << iota
	// ShapeFlagQuery makes the shape visible to scene queries
	ShapeFlagQuery
	// ShapeFlagTrigger turns the shape into a trigger volume: overlaps are reported, never resolved
	ShapeFlagTrigger
	// ShapeFlagVisualize is informational only
	ShapeFlagVisualize

	DefaultShapeFlags = ShapeFlagSimulate | ShapeFlagQuery | ShapeFlagVisualize
)

func (f ShapeFlags) Has(flag ShapeFlags) bool {
	return f&flag == flag
}

// Collides reports whether the shape takes part in the contact pipeline
func (f ShapeFlags) Collides() bool {
	return f&(ShapeFlagSimulate|ShapeFlagTrigger) != 0
}

// Shape binds a geometry to a material, a pose relative to its actor, and flags.
type Shape struct {
	ID        uint64
	Geometry  Geometry
	Material  *Material
	LocalPose Transform
	Flags     ShapeFlags
	Exclusive bool

	// attachments counts the actors currently holding this shape
	attachments int
}

func NewShape(id uint64, geometry Geometry, material *Material, exclusive bool) *Shape {
	return &Shape{
		ID:        id,
		Geometry:  geometry,
		Material:  material,
		LocalPose: NewTransform(),
		Flags:     DefaultShapeFlags,
		Exclusive: exclusive,
	}
}

func (s *Shape) IsAttached() bool {
	return s.attachments > 0
}

// CanAttach reports whether another actor may take the shape
func (s *Shape) CanAttach() bool {
	return !s.Exclusive || s.attachments == 0
}

func (s *Shape) attach() { s.attachments++ }

func (s *Shape) detach() {
	if s.attachments > 0 {
		s.attachments--
	}
}

// Collider is a shape instance on a body. It caches the world pose and bounds
// of the shape for the current body pose.
type Collider struct {
	Body      *RigidBody
	Shape     *Shape
	Transform Transform
	AABB      AABB
}

// Update recomputes the world pose and bounds from the body pose
func (c *Collider) Update() {
	c.Transform = c.Body.Transform.Compose(c.Shape.LocalPose)
	c.AABB = c.Shape.Geometry.ComputeAABB(c.Transform)
}

// Less orders colliders by body id then shape id
func (c *Collider) Less(other *Collider) bool {
	if c.Body.ID != other.Body.ID {
		return c.Body.ID < other.Body.ID
	}
	return c.Shape.ID < other.Shape.ID
}

// SupportWorld returns the world-space support point of the shape along direction
func (c *Collider) SupportWorld(direction mgl64.Vec3) mgl64.Vec3 {
	local := c.Transform.RotateInverse(direction)
	return c.Transform.Apply(c.Shape.Geometry.Support(local))
}

// ContactFeatureWorld returns the world-space feature most aligned with direction
func (c *Collider) ContactFeatureWorld(direction mgl64.Vec3) []mgl64.Vec3 {
	feature := c.Shape.Geometry.ContactFeature(c.Transform.RotateInverse(direction))
	world := make([]mgl64.Vec3, len(feature))
	for i, p := range feature {
		world[i] = c.Transform.Apply(p)
	}
	return world
}

// Center returns a point inside the shape, used to seed GJK
func (c *Collider) Center() mgl64.Vec3 {
	return c.Transform.Apply(c.Shape.Geometry.Centroid())
}

func (c *Collider) Type() GeometryType {
	return c.Shape.Geometry.Type()
}
