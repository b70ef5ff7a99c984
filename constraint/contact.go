package constraint

import (
	"math"

	"github.com/akmonengine/anvil/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// ContactPoint is one point of a contact manifold. Position lies on the
// surface of the second shape; Penetration is positive when overlapping and
// negative for speculative points that are still apart.
type ContactPoint struct {
	Position    mgl64.Vec3
	Penetration float64

	// accumulated impulses, carried between steps for warm starting
	NormalImpulse  float64
	TangentImpulse [2]float64

	// anchors in each actor frame, used by the position solve
	localA, localB mgl64.Vec3

	rA, rB       mgl64.Vec3
	normalMass   float64
	tangentMass  [2]float64
	velocityBias float64
	friction     float64
}

// ContactConstraint resolves the manifold between two shapes. Normal points
// from ShapeA towards ShapeB.
type ContactConstraint struct {
	BodyA  *actor.RigidBody
	BodyB  *actor.RigidBody
	ShapeA *actor.Shape
	ShapeB *actor.Shape
	Points []ContactPoint
	Normal mgl64.Vec3

	tangents    [2]mgl64.Vec3
	invMassA    float64
	invMassB    float64
	invInertiaA mgl64.Mat3
	invInertiaB mgl64.Mat3
}

// Prepare caches the effective masses and the velocity bias of every point.
// A speculative point lets the bodies close the gap within dt, and bounces
// only once the approach would reach the surface during the step.
func (c *ContactConstraint) Prepare(dt float64, settings Settings) {
	bodyA, bodyB := c.BodyA, c.BodyB

	c.invMassA = bodyA.InverseMass()
	c.invMassB = bodyB.InverseMass()
	c.invInertiaA = bodyA.GetInverseInertiaWorld()
	c.invInertiaB = bodyB.GetInverseInertiaWorld()
	c.tangents[0], c.tangents[1] = actor.TangentBasis(c.Normal)

	restitution := ComputeRestitution(c.ShapeA.Material, c.ShapeB.Material)
	staticFriction := ComputeStaticFriction(c.ShapeA.Material, c.ShapeB.Material)
	dynamicFriction := ComputeDynamicFriction(c.ShapeA.Material, c.ShapeB.Material)

	comA := bodyA.WorldCenterOfMass()
	comB := bodyB.WorldCenterOfMass()

	for i := range c.Points {
		p := &c.Points[i]

		p.localB = bodyB.Transform.ApplyInverse(p.Position)
		p.localA = bodyA.Transform.ApplyInverse(p.Position.Add(c.Normal.Mul(p.Penetration)))

		p.rA = p.Position.Sub(comA)
		p.rB = p.Position.Sub(comB)

		p.normalMass = effectiveMass(c.Normal, p.rA, p.rB, c.invMassA, c.invMassB, c.invInertiaA, c.invInertiaB)
		for j := 0; j < 2; j++ {
			p.tangentMass[j] = effectiveMass(c.tangents[j], p.rA, p.rB, c.invMassA, c.invMassB, c.invInertiaA, c.invInertiaB)
		}

		relative := c.relativeVelocity(p)
		normalSpeed := relative.Dot(c.Normal)

		p.velocityBias = 0
		if p.Penetration < 0 {
			p.velocityBias = p.Penetration / dt
		}
		if restitution > 0 && normalSpeed < -settings.RestitutionThreshold && normalSpeed*dt <= p.Penetration {
			p.velocityBias = math.Max(p.velocityBias, -restitution*normalSpeed)
		}

		p.friction = dynamicFriction
		if relative.Sub(c.Normal.Mul(normalSpeed)).Len() < settings.FrictionSlipThreshold {
			p.friction = staticFriction
		}
	}
}

// relativeVelocity is the velocity of B relative to A at the contact point
func (c *ContactConstraint) relativeVelocity(p *ContactPoint) mgl64.Vec3 {
	return c.BodyB.VelocityAt(p.rB).Sub(c.BodyA.VelocityAt(p.rA))
}

func (c *ContactConstraint) applyImpulse(p *ContactPoint, impulse mgl64.Vec3) {
	c.BodyA.ApplyImpulse(impulse.Mul(-1), p.rA, c.invInertiaA)
	c.BodyB.ApplyImpulse(impulse, p.rB, c.invInertiaB)
}

// WarmStart applies the impulses accumulated during the previous step
func (c *ContactConstraint) WarmStart() {
	for i := range c.Points {
		p := &c.Points[i]
		impulse := c.Normal.Mul(p.NormalImpulse).
			Add(c.tangents[0].Mul(p.TangentImpulse[0])).
			Add(c.tangents[1].Mul(p.TangentImpulse[1]))
		c.applyImpulse(p, impulse)
	}
}

// SolveVelocity runs one Gauss-Seidel pass: friction first, bounded by the
// current normal impulse, then the non-penetration row.
func (c *ContactConstraint) SolveVelocity(dt float64) {
	for i := range c.Points {
		p := &c.Points[i]

		maxFriction := p.friction * p.NormalImpulse
		for j := 0; j < 2; j++ {
			speed := c.relativeVelocity(p).Dot(c.tangents[j])
			lambda := -speed * p.tangentMass[j]

			previous := p.TangentImpulse[j]
			p.TangentImpulse[j] = math.Max(-maxFriction, math.Min(previous+lambda, maxFriction))
			c.applyImpulse(p, c.tangents[j].Mul(p.TangentImpulse[j]-previous))
		}
	}

	for i := range c.Points {
		p := &c.Points[i]

		speed := c.relativeVelocity(p).Dot(c.Normal)
		lambda := -p.normalMass * (speed - p.velocityBias)

		previous := p.NormalImpulse
		p.NormalImpulse = math.Max(previous+lambda, 0)
		c.applyImpulse(p, c.Normal.Mul(p.NormalImpulse-previous))
	}
}

// SolvePosition pushes the bodies apart along the normal and returns the
// smallest separation found before correction.
func (c *ContactConstraint) SolvePosition(settings Settings) float64 {
	bodyA, bodyB := c.BodyA, c.BodyB
	minSeparation := 0.0

	for i := range c.Points {
		p := &c.Points[i]

		pointA := bodyA.Transform.Apply(p.localA)
		pointB := bodyB.Transform.Apply(p.localB)
		separation := pointB.Sub(pointA).Dot(c.Normal)
		minSeparation = math.Min(minSeparation, separation)

		correction := settings.Baumgarte * (separation + settings.LinearSlop)
		correction = math.Max(-settings.MaxCorrection, math.Min(correction, 0))
		if correction >= 0 {
			continue
		}

		invInertiaA := bodyA.GetInverseInertiaWorld()
		invInertiaB := bodyB.GetInverseInertiaWorld()
		rA := pointB.Sub(bodyA.WorldCenterOfMass())
		rB := pointB.Sub(bodyB.WorldCenterOfMass())

		mass := effectiveMass(c.Normal, rA, rB, c.invMassA, c.invMassB, invInertiaA, invInertiaB)
		impulse := c.Normal.Mul(-correction * mass)

		bodyA.ApplyPositionImpulse(impulse.Mul(-1), rA, invInertiaA)
		bodyB.ApplyPositionImpulse(impulse, rB, invInertiaB)
	}

	return minSeparation
}

// TotalNormalImpulse sums the normal impulses of all points
func (c *ContactConstraint) TotalNormalImpulse() float64 {
	var total float64
	for _, p := range c.Points {
		total += p.NormalImpulse
	}
	return total
}
