package actor

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// BodyType represents the type of rigid body
type BodyType int

const (
	// BodyTypeDynamic bodies are affected by forces, gravity, and collisions
	// They have finite mass and can move freely
	BodyTypeDynamic BodyType = iota

	// BodyTypeStatic bodies are immovable and have infinite mass
	// They are not affected by forces or gravity (e.g., ground, walls)
	BodyTypeStatic
)

func (t BodyType) String() string {
	if t == BodyTypeStatic {
		return "static"
	}
	return "dynamic"
}

// RigidBody represents a rigid body in the physics simulation.
// Transform is the pose of the actor frame; the body rotates about its center
// of mass, CenterOfMass, expressed in that frame.
type RigidBody struct {
	ID       uint64
	BodyType BodyType

	Transform    Transform
	CenterOfMass mgl64.Vec3

	// Velocity is the linear velocity of the center of mass (m/s)
	Velocity mgl64.Vec3
	// AngularVelocity in world space (rad/s)
	AngularVelocity mgl64.Vec3

	// Inertia about the center of mass, in the actor frame
	InertiaLocal        mgl64.Mat3
	InverseInertiaLocal mgl64.Mat3
	mass                float64
	inverseMass         float64

	LinearDamping  float64
	AngularDamping float64

	accumulatedForce  mgl64.Vec3
	accumulatedTorque mgl64.Vec3

	IsSleeping bool
	SleepTimer float64

	Colliders []*Collider
}

// NewStaticBody creates an immovable body holding the given shapes
func NewStaticBody(id uint64, transform Transform, shapes []*Shape) *RigidBody {
	rb := &RigidBody{
		ID:        id,
		BodyType:  BodyTypeStatic,
		Transform: transform.Normalized(),
		mass:      math.Inf(1),
	}
	rb.attach(shapes)
	return rb
}

// NewDynamicBody creates a body whose mass properties are derived from the
// simulation shapes at the given density.
func NewDynamicBody(id uint64, transform Transform, shapes []*Shape, density float64) (*RigidBody, error) {
	for _, s := range shapes {
		if s.Geometry.Type() == GeometryPlane {
			return nil, fmt.Errorf("%w: plane shape %d on a dynamic body", ErrUnsupportedShape, s.ID)
		}
	}

	props, err := ComputeMassProperties(shapes, density)
	if err != nil {
		return nil, err
	}

	rb := &RigidBody{
		ID:           id,
		BodyType:     BodyTypeDynamic,
		Transform:    transform.Normalized(),
		CenterOfMass: props.CenterOfMass,
	}
	rb.SetMassProperties(props)
	rb.attach(shapes)

	return rb, nil
}

func (rb *RigidBody) attach(shapes []*Shape) {
	rb.Colliders = make([]*Collider, 0, len(shapes))
	for _, s := range shapes {
		s.attach()
		rb.Colliders = append(rb.Colliders, &Collider{Body: rb, Shape: s})
	}
	rb.UpdateColliders()
}

// Detach releases the shapes so exclusive ones may be attached elsewhere
func (rb *RigidBody) Detach() {
	for _, c := range rb.Colliders {
		c.Shape.detach()
	}
	rb.Colliders = nil
}

// SetMassProperties overrides mass, center of mass and inertia
func (rb *RigidBody) SetMassProperties(props MassProperties) {
	rb.mass = props.Mass
	rb.inverseMass = 1 / props.Mass
	rb.CenterOfMass = props.CenterOfMass
	rb.InertiaLocal = props.Inertia
	if props.Inertia.Det() > 1e-18 {
		rb.InverseInertiaLocal = props.Inertia.Inv()
	} else {
		rb.InverseInertiaLocal = mgl64.Mat3{}
	}
}

func (rb *RigidBody) IsStatic() bool {
	return rb.BodyType == BodyTypeStatic
}

func (rb *RigidBody) Mass() float64 {
	return rb.mass
}

// InverseMass is zero for static bodies
func (rb *RigidBody) InverseMass() float64 {
	if rb.BodyType == BodyTypeStatic {
		return 0
	}
	return rb.inverseMass
}

// WorldCenterOfMass returns the center of mass in world space
func (rb *RigidBody) WorldCenterOfMass() mgl64.Vec3 {
	return rb.Transform.Apply(rb.CenterOfMass)
}

// GetInertiaWorld returns I_world = R * I_local * R^T
func (rb *RigidBody) GetInertiaWorld() mgl64.Mat3 {
	R := rb.Transform.RotationMatrix()
	return R.Mul3(rb.InertiaLocal).Mul3(R.Transpose())
}

// GetInverseInertiaWorld returns R * I_local^(-1) * R^T, zero for static bodies
func (rb *RigidBody) GetInverseInertiaWorld() mgl64.Mat3 {
	if rb.BodyType == BodyTypeStatic {
		return mgl64.Mat3{}
	}
	R := rb.Transform.RotationMatrix()
	return R.Mul3(rb.InverseInertiaLocal).Mul3(R.Transpose())
}

// VelocityAt returns the velocity of the material point at offset r from the center of mass
func (rb *RigidBody) VelocityAt(r mgl64.Vec3) mgl64.Vec3 {
	return rb.Velocity.Add(rb.AngularVelocity.Cross(r))
}

// ApplyImpulse applies a linear impulse at offset r from the center of mass.
// invInertia is the world inverse inertia, cached by the caller for the step.
func (rb *RigidBody) ApplyImpulse(impulse, r mgl64.Vec3, invInertia mgl64.Mat3) {
	if rb.BodyType == BodyTypeStatic {
		return
	}
	rb.Velocity = rb.Velocity.Add(impulse.Mul(rb.inverseMass))
	rb.AngularVelocity = rb.AngularVelocity.Add(invInertia.Mul3x1(r.Cross(impulse)))
}

// ApplyAngularImpulse applies a pure angular impulse
func (rb *RigidBody) ApplyAngularImpulse(impulse mgl64.Vec3, invInertia mgl64.Mat3) {
	if rb.BodyType == BodyTypeStatic {
		return
	}
	rb.AngularVelocity = rb.AngularVelocity.Add(invInertia.Mul3x1(impulse))
}

// ApplyPositionImpulse moves the body as if a pseudo impulse had acted for unit time.
// It is used by the position solver and leaves velocities untouched.
func (rb *RigidBody) ApplyPositionImpulse(impulse, r mgl64.Vec3, invInertia mgl64.Mat3) {
	if rb.BodyType == BodyTypeStatic {
		return
	}
	com := rb.WorldCenterOfMass().Add(impulse.Mul(rb.inverseMass))
	rotation := rotateBy(rb.Transform.Rotation, invInertia.Mul3x1(r.Cross(impulse)))
	rb.setPoseFromCenterOfMass(com, rotation)
}

// IntegrateVelocity applies gravity, accumulated forces and damping over dt.
// Forces stay accumulated for every substep until ClearForces.
func (rb *RigidBody) IntegrateVelocity(dt float64, gravity mgl64.Vec3) {
	if rb.BodyType == BodyTypeStatic || rb.IsSleeping {
		return
	}

	acceleration := gravity.Add(rb.accumulatedForce.Mul(rb.inverseMass))
	rb.Velocity = rb.Velocity.Add(acceleration.Mul(dt))

	angularAcceleration := rb.GetInverseInertiaWorld().Mul3x1(rb.accumulatedTorque)
	rb.AngularVelocity = rb.AngularVelocity.Add(angularAcceleration.Mul(dt))

	rb.Velocity = rb.Velocity.Mul(math.Exp(-rb.LinearDamping * dt))
	rb.AngularVelocity = rb.AngularVelocity.Mul(math.Exp(-rb.AngularDamping * dt))
}

// IntegratePosition advances the pose by the current velocities
func (rb *RigidBody) IntegratePosition(dt float64) {
	if rb.BodyType == BodyTypeStatic || rb.IsSleeping {
		return
	}

	com := rb.WorldCenterOfMass().Add(rb.Velocity.Mul(dt))
	rotation := rotateBy(rb.Transform.Rotation, rb.AngularVelocity.Mul(dt))
	rb.setPoseFromCenterOfMass(com, rotation)
}

func (rb *RigidBody) setPoseFromCenterOfMass(com mgl64.Vec3, rotation mgl64.Quat) {
	rb.Transform.Rotation = rotation
	rb.Transform.Position = com.Sub(rotation.Rotate(rb.CenterOfMass))
}

// rotateBy integrates a small rotation vector: q += 0.5 * (θ, 0) * q
func rotateBy(q mgl64.Quat, theta mgl64.Vec3) mgl64.Quat {
	if theta.LenSqr() == 0 {
		return q
	}
	omega := mgl64.Quat{V: theta, W: 0}
	return q.Add(omega.Mul(q).Scale(0.5)).Normalize()
}

// UpdateSleepTimer accumulates the time the body spent below the thresholds
// and returns it. Any motion above them resets the timer.
func (rb *RigidBody) UpdateSleepTimer(dt, linearThreshold, angularThreshold float64) float64 {
	if rb.BodyType == BodyTypeStatic {
		return math.Inf(1)
	}
	if rb.Velocity.Len() < linearThreshold && rb.AngularVelocity.Len() < angularThreshold {
		rb.SleepTimer += dt
	} else {
		rb.SleepTimer = 0
	}
	return rb.SleepTimer
}

func (rb *RigidBody) Sleep() {
	rb.IsSleeping = true
	rb.SleepTimer = 0.0

	rb.ClearForces()
	rb.Velocity = mgl64.Vec3{}
	rb.AngularVelocity = mgl64.Vec3{}
}

func (rb *RigidBody) Awake() {
	rb.IsSleeping = false
	rb.SleepTimer = 0.0
}

// AddForce accumulates a force (N) applied at the center of mass for the next step
func (rb *RigidBody) AddForce(force mgl64.Vec3) {
	if rb.BodyType != BodyTypeStatic {
		rb.Awake()
		rb.accumulatedForce = rb.accumulatedForce.Add(force)
	}
}

// AddTorque accumulates a torque (N⋅m) for the next step
func (rb *RigidBody) AddTorque(torque mgl64.Vec3) {
	if rb.BodyType != BodyTypeStatic {
		rb.Awake()
		rb.accumulatedTorque = rb.accumulatedTorque.Add(torque)
	}
}

func (rb *RigidBody) ClearForces() {
	rb.accumulatedForce = mgl64.Vec3{0, 0, 0}
	rb.accumulatedTorque = mgl64.Vec3{0, 0, 0}
}

// UpdateColliders refreshes the world pose and bounds of every collider
func (rb *RigidBody) UpdateColliders() {
	for _, c := range rb.Colliders {
		c.Update()
	}
}

// SupportWorld returns the furthest point of the body along direction over all its colliders
func (rb *RigidBody) SupportWorld(direction mgl64.Vec3) mgl64.Vec3 {
	best := rb.Transform.Position
	bestDot := math.Inf(-1)
	for _, c := range rb.Colliders {
		p := c.SupportWorld(direction)
		if d := p.Dot(direction); d > bestDot {
			bestDot = d
			best = p
		}
	}
	return best
}

// Bounds returns the union of the collider bounds
func (rb *RigidBody) Bounds() AABB {
	box := EmptyAABB()
	for _, c := range rb.Colliders {
		box = box.Union(c.AABB)
	}
	return box
}
