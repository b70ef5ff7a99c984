package constraint

import (
	"math"

	"github.com/akmonengine/anvil/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// Island groups dynamic bodies connected by contacts or joints. Islands share
// no dynamic body, so they can be solved concurrently.
type Island struct {
	Bodies   []*actor.RigidBody
	Contacts []*ContactConstraint
	Joints   []*Joint
}

// MinBodyID returns the smallest dynamic body id, used to order islands
func (island *Island) MinBodyID() uint64 {
	id := uint64(math.MaxUint64)
	for _, rb := range island.Bodies {
		id = min(id, rb.ID)
	}
	return id
}

// Solve advances the island by dt with sequential impulses and returns the
// joints that broke during the velocity solve.
func (island *Island) Solve(dt float64, gravity mgl64.Vec3, settings Settings) []*Joint {
	for _, rb := range island.Bodies {
		rb.IntegrateVelocity(dt, gravity)
	}

	constraints := make([]Constraint, 0, len(island.Joints)+len(island.Contacts))
	for _, j := range island.Joints {
		constraints = append(constraints, j)
	}
	for _, c := range island.Contacts {
		if !settings.WarmStarting {
			for i := range c.Points {
				c.Points[i].NormalImpulse = 0
				c.Points[i].TangentImpulse = [2]float64{}
			}
		}
		constraints = append(constraints, c)
	}

	for _, c := range constraints {
		c.Prepare(dt, settings)
	}
	if settings.WarmStarting {
		for _, c := range constraints {
			c.WarmStart()
		}
	}

	for iteration := 0; iteration < settings.VelocityIterations; iteration++ {
		for _, c := range constraints {
			c.SolveVelocity(dt)
		}
	}

	var broken []*Joint
	for _, j := range island.Joints {
		if j.CheckBreak(dt) {
			broken = append(broken, j)
		}
	}

	for _, rb := range island.Bodies {
		clampSmallVelocities(rb)
		rb.IntegratePosition(dt)
	}

	for iteration := 0; iteration < settings.PositionIterations; iteration++ {
		minSeparation := 0.0
		for _, c := range island.Contacts {
			minSeparation = math.Min(minSeparation, c.SolvePosition(settings))
		}
		if minSeparation >= -3*settings.LinearSlop {
			break
		}
	}

	return broken
}
