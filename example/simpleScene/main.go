package main

import (
	"fmt"
	"log"

	"github.com/akmonengine/anvil"
	"github.com/akmonengine/anvil/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// SetupScene drops a tilted bouncy cube above a ground plane
func SetupScene() (*anvil.World, anvil.ActorID) {
	cfg := anvil.DefaultConfig()
	cfg.Substeps = 2

	world, err := anvil.NewWorld(cfg)
	if err != nil {
		log.Fatal(err)
	}

	if _, err := world.CreatePlaneActor(actor.NewPlane(0, 1, 0, 0)); err != nil {
		log.Fatal(err)
	}

	bouncy, err := world.CreateMaterial(0.5, 0.4, 0.8)
	if err != nil {
		log.Fatal(err)
	}
	box, err := world.CreateShape(&actor.Box{HalfExtents: mgl64.Vec3{1.5, 1.5, 1.5}}, bouncy, true)
	if err != nil {
		log.Fatal(err)
	}

	cubeTransform := actor.Transform{
		Position: mgl64.Vec3{-5.0, 5.0, -5.0},
		Rotation: mgl64.QuatRotate(mgl64.DegToRad(70), mgl64.Vec3{0, 0, 1}),
	}
	cube, err := world.CreateDynamicActor(cubeTransform, []anvil.ShapeID{box}, 1.0)
	if err != nil {
		log.Fatal(err)
	}

	return world, cube
}

func main() {
	world, cube := SetupScene()
	defer world.Shutdown()

	world.Subscribe(anvil.COLLISION_ENTER, func(e anvil.Event) {
		fmt.Printf("  contact begins: %+v\n", e)
	})
	world.Subscribe(anvil.COLLISION_EXIT, func(e anvil.Event) {
		fmt.Printf("  contact ends: %+v\n", e)
	})
	world.Subscribe(anvil.ON_SLEEP, func(e anvil.Event) {
		fmt.Printf("  asleep: %+v\n", e)
	})

	const dt float64 = 1.0 / 60.0
	const maxSteps int = 300

	for step := 0; step < maxSteps; step++ {
		if err := world.Step(dt); err != nil {
			log.Fatal(err)
		}
		if step%20 != 0 {
			continue
		}

		pose, err := world.Pose(cube)
		if err != nil {
			log.Fatal(err)
		}
		velocity, angular, err := world.Velocity(cube)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("step %3d  position %v  velocity %v  angular %.3f\n",
			step+1, pose.Position, velocity, angular.Len())
	}
}
