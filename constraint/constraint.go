// Package constraint implements the velocity-level constraint solver: contact
// constraints with friction and restitution, joints with limits and drives,
// and the per-island sequential impulse loop.
package constraint

import (
	"math"

	"github.com/akmonengine/anvil/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// Constraint is one solver row set between two bodies
type Constraint interface {
	Prepare(dt float64, settings Settings)
	WarmStart()
	SolveVelocity(dt float64)
}

// Settings tune the solver. All lengths are in meters.
type Settings struct {
	VelocityIterations int
	PositionIterations int

	// Baumgarte is the fraction of contact penetration removed per position iteration
	Baumgarte float64
	// JointBaumgarte feeds joint drift back into the velocity solve
	JointBaumgarte float64
	// LinearSlop is the penetration left alone to keep contacts persistent
	LinearSlop float64
	// MaxCorrection caps a single position correction
	MaxCorrection float64
	// SpeculativeDistance is the separation under which contact points are
	// generated before the shapes touch
	SpeculativeDistance float64

	// RestitutionThreshold is the approach speed below which contacts do not bounce
	RestitutionThreshold float64
	// FrictionSlipThreshold is the tangential speed above which dynamic friction applies
	FrictionSlipThreshold float64

	WarmStarting bool
	// WarmStartDistance matches cached contact points to new ones
	WarmStartDistance float64
}

// DefaultSettings returns the tuning used by the world defaults
func DefaultSettings() Settings {
	return Settings{
		VelocityIterations:    10,
		PositionIterations:    4,
		Baumgarte:             0.2,
		JointBaumgarte:        0.2,
		LinearSlop:            0.005,
		MaxCorrection:         0.2,
		SpeculativeDistance:   0.02,
		RestitutionThreshold:  1.0,
		FrictionSlipThreshold: 0.05,
		WarmStarting:          true,
		WarmStartDistance:     0.05,
	}
}

// ComputeRestitution averages both restitutions
func ComputeRestitution(matA, matB *actor.Material) float64 {
	return (matA.Restitution + matB.Restitution) / 2.0
}

// ComputeStaticFriction is the geometric mean of both coefficients
func ComputeStaticFriction(matA, matB *actor.Material) float64 {
	return math.Sqrt(matA.StaticFriction * matB.StaticFriction)
}

// ComputeDynamicFriction is the geometric mean of both coefficients
func ComputeDynamicFriction(matA, matB *actor.Material) float64 {
	return math.Sqrt(matA.DynamicFriction * matB.DynamicFriction)
}

func clampSmallVelocities(rb *actor.RigidBody) {
	const velocityThreshold = 1e-5

	if rb.Velocity.Len() < velocityThreshold {
		rb.Velocity = mgl64.Vec3{0, 0, 0}
	}
	if rb.AngularVelocity.Len() < velocityThreshold {
		rb.AngularVelocity = mgl64.Vec3{0, 0, 0}
	}
}

// effectiveMass returns 1/K for an impulse direction at offsets rA, rB
func effectiveMass(direction, rA, rB mgl64.Vec3, invMassA, invMassB float64, invInertiaA, invInertiaB mgl64.Mat3) float64 {
	rnA := rA.Cross(direction)
	rnB := rB.Cross(direction)
	k := invMassA + invMassB + invInertiaA.Mul3x1(rnA).Dot(rnA) + invInertiaB.Mul3x1(rnB).Dot(rnB)
	if k < 1e-12 {
		return 0
	}
	return 1 / k
}
