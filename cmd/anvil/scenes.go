package main

import (
	"fmt"
	"math"

	"github.com/akmonengine/anvil"
	"github.com/akmonengine/anvil/actor"
	"github.com/akmonengine/anvil/constraint"
	"github.com/go-gl/mathgl/mgl64"
)

type scene struct {
	name   string
	actors []anvil.ActorID
	// tracked is the actor whose height gets plotted
	tracked anvil.ActorID
	// trace prints the tracked pose after every step
	trace bool
}

type sceneBuilder func(w *anvil.World) (scene, error)

const (
	bodyDensity    = 10
	angularDamping = 0.5
)

// createDynamic creates a single shape actor with the scene defaults
func createDynamic(w *anvil.World, pose actor.Transform, shape anvil.ShapeID, velocity mgl64.Vec3) (anvil.ActorID, error) {
	id, err := w.CreateDynamicActor(pose, []anvil.ShapeID{shape}, bodyDensity)
	if err != nil {
		return 0, err
	}
	if err := w.SetDamping(id, 0, angularDamping); err != nil {
		return 0, err
	}
	if velocity != (mgl64.Vec3{}) {
		if err := w.SetVelocity(id, velocity, mgl64.Vec3{}); err != nil {
			return 0, err
		}
	}
	return id, nil
}

// stackScene is a pyramid of boxes with a large capsule thrown at it. The top
// box is tracked.
func stackScene(size int) sceneBuilder {
	return func(w *anvil.World) (scene, error) {
		if size <= 0 {
			return scene{}, fmt.Errorf("stack size must be positive, got %d", size)
		}
		if _, err := w.CreatePlaneActor(actor.NewPlane(0, 1, 0, 0)); err != nil {
			return scene{}, err
		}
		ids, err := w.CreateStack(actor.NewTransformAt(mgl64.Vec3{0, 0, -30}), size, 2, bodyDensity)
		if err != nil {
			return scene{}, err
		}

		capsule, err := w.CreateShape(&actor.Capsule{Radius: 5, HalfHeight: 5}, nil, true)
		if err != nil {
			return scene{}, err
		}
		thrown, err := createDynamic(w, actor.NewTransformAt(mgl64.Vec3{0, 50, 100}), capsule, mgl64.Vec3{0, -50, -100})
		if err != nil {
			return scene{}, err
		}

		return scene{
			name:    fmt.Sprintf("stack of %d", len(ids)),
			actors:  append(ids, thrown),
			tracked: ids[len(ids)-1],
		}, nil
	}
}

type jointFunc func(w *anvil.World, parent anvil.ActorID, parentFrame actor.Transform, child anvil.ActorID, childFrame actor.Transform) error

func limitedSpherical(w *anvil.World, parent anvil.ActorID, parentFrame actor.Transform, child anvil.ActorID, childFrame actor.Transform) error {
	j, err := w.CreateSphericalJoint(parent, parentFrame, child, childFrame)
	if err != nil {
		return err
	}
	return w.SetJointLimit(j, constraint.ConeLimit{YAngle: math.Pi / 4, ZAngle: math.Pi / 8})
}

func breakableFixed(w *anvil.World, parent anvil.ActorID, parentFrame actor.Transform, child anvil.ActorID, childFrame actor.Transform) error {
	j, err := w.CreateFixedJoint(parent, parentFrame, child, childFrame)
	if err != nil {
		return err
	}
	return w.SetJointBreakForce(j, 1000, 100000)
}

func dampedD6(w *anvil.World, parent anvil.ActorID, parentFrame actor.Transform, child anvil.ActorID, childFrame actor.Transform) error {
	j, err := w.CreateD6Joint(parent, parentFrame, child, childFrame)
	if err != nil {
		return err
	}
	for _, axis := range []constraint.Axis{constraint.AxisTwist, constraint.AxisSwing1, constraint.AxisSwing2} {
		if err := w.SetJointMotion(j, axis, constraint.MotionFree); err != nil {
			return err
		}
	}
	return w.SetJointDrive(j, constraint.DriveSlerp, constraint.Drive{
		Damping:        1000,
		ForceLimit:     math.Inf(1),
		IsAcceleration: true,
	})
}

// createChain links length boxes end to end along X from t, the first one
// hanging from the world.
func createChain(w *anvil.World, t actor.Transform, length int, shape anvil.ShapeID, separation float64, link jointFunc) ([]anvil.ActorID, error) {
	offset := mgl64.Vec3{separation / 2, 0, 0}
	local := offset

	ids := make([]anvil.ActorID, 0, length)
	parent, parentFrame := anvil.WorldActor, t
	for range length {
		current, err := createDynamic(w, t.Compose(actor.NewTransformAt(local)), shape, mgl64.Vec3{})
		if err != nil {
			return ids, err
		}
		if err := link(w, parent, parentFrame, current, actor.NewTransformAt(offset.Mul(-1))); err != nil {
			return ids, err
		}

		ids = append(ids, current)
		parent, parentFrame = current, actor.NewTransformAt(offset)
		local = local.Add(mgl64.Vec3{separation, 0, 0})
	}
	return ids, nil
}

// chainScene builds three chains: limited spherical, breakable fixed and
// damped D6 joints. The end of the spherical chain is tracked.
func chainScene(length int) sceneBuilder {
	return func(w *anvil.World) (scene, error) {
		if length <= 0 {
			return scene{}, fmt.Errorf("chain length must be positive, got %d", length)
		}
		if _, err := w.CreatePlaneActor(actor.NewPlane(0, 1, 0, 0)); err != nil {
			return scene{}, err
		}
		box, err := w.CreateShape(&actor.Box{HalfExtents: mgl64.Vec3{2, 0.5, 0.5}}, nil, false)
		if err != nil {
			return scene{}, err
		}

		var all []anvil.ActorID
		var tracked anvil.ActorID
		for i, link := range []jointFunc{limitedSpherical, breakableFixed, dampedD6} {
			start := actor.NewTransformAt(mgl64.Vec3{0, 20, -10 * float64(i)})
			ids, err := createChain(w, start, length, box, 4, link)
			if err != nil {
				return scene{}, err
			}
			if i == 0 {
				tracked = ids[len(ids)-1]
			}
			all = append(all, ids...)
		}
		return scene{name: fmt.Sprintf("3 chains of %d", length), actors: all, tracked: tracked}, nil
	}
}

// capsuleScene throws a single spinning capsule on a high friction ground and
// traces its pose.
func capsuleScene() sceneBuilder {
	return func(w *anvil.World) (scene, error) {
		material, err := w.CreateMaterial(1, 1, 0)
		if err != nil {
			return scene{}, err
		}

		// the plane faces +X in its frame, turned a quarter around Z it faces up
		ground, err := w.CreateShape(&actor.Plane{Normal: mgl64.Vec3{1, 0, 0}}, material, true)
		if err != nil {
			return scene{}, err
		}
		groundPose := actor.Transform{Rotation: mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 0, 1})}
		if _, err := w.CreateStaticActor(groundPose, []anvil.ShapeID{ground}); err != nil {
			return scene{}, err
		}

		capsule, err := w.CreateShape(&actor.Capsule{Radius: 0.5, HalfHeight: 0.5}, material, true)
		if err != nil {
			return scene{}, err
		}
		pose := actor.Transform{
			Position: mgl64.Vec3{0, 5, 0},
			Rotation: mgl64.QuatRotate(mgl64.DegToRad(30), mgl64.Vec3{0, 0, 1}),
		}
		ball, err := createDynamic(w, pose, capsule, mgl64.Vec3{})
		if err != nil {
			return scene{}, err
		}
		if err := w.SetVelocity(ball, mgl64.Vec3{0, 5, 1}, mgl64.Vec3{0, 0, mgl64.DegToRad(200)}); err != nil {
			return scene{}, err
		}

		return scene{name: "solo capsule", actors: []anvil.ActorID{ball}, tracked: ball, trace: true}, nil
	}
}

// pileScene drops a size×size×size grid of mixed shapes, tracking the last one
func pileScene(size int) sceneBuilder {
	return func(w *anvil.World) (scene, error) {
		if size <= 0 {
			return scene{}, fmt.Errorf("pile size must be positive, got %d", size)
		}
		if _, err := w.CreatePlaneActor(actor.NewPlane(0, 1, 0, 0)); err != nil {
			return scene{}, err
		}

		geometries := []actor.Geometry{
			&actor.Capsule{Radius: 0.25, HalfHeight: 0.3},
			&actor.Sphere{Radius: 0.35},
			&actor.Box{HalfExtents: mgl64.Vec3{0.3, 0.3, 0.3}},
		}
		shapes := make([]anvil.ShapeID, len(geometries))
		for i, g := range geometries {
			id, err := w.CreateShape(g, nil, false)
			if err != nil {
				return scene{}, err
			}
			shapes[i] = id
		}

		tilt := mgl64.QuatRotate(0.3, mgl64.Vec3{1, 0, 1}.Normalize())
		ids := make([]anvil.ActorID, 0, size*size*size)
		for y := range size {
			for x := range size {
				for z := range size {
					pose := actor.Transform{
						Position: mgl64.Vec3{float64(x) - float64(size)/2, 1 + float64(y)*1.2, float64(z) - float64(size)/2},
						Rotation: tilt,
					}
					id, err := createDynamic(w, pose, shapes[(x+y+z)%len(shapes)], mgl64.Vec3{})
					if err != nil {
						return scene{}, err
					}
					ids = append(ids, id)
				}
			}
		}
		return scene{name: fmt.Sprintf("pile of %d", len(ids)), actors: ids, tracked: ids[len(ids)-1]}, nil
	}
}
