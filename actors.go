package anvil

import (
	"fmt"
	"math"

	"github.com/akmonengine/anvil/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// CreateMaterial returns a material that may be shared by any number of shapes
func (w *World) CreateMaterial(staticFriction, dynamicFriction, restitution float64) (*actor.Material, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if err := w.readable(false); err != nil {
		return nil, opError("create material", 0, err)
	}
	m := &actor.Material{
		StaticFriction:  staticFriction,
		DynamicFriction: dynamicFriction,
		Restitution:     restitution,
	}
	if err := m.Validate(); err != nil {
		return nil, opError("create material", 0, err)
	}
	return m, nil
}

// CreateShape validates geom and binds it to a material, the configured
// default material when mat is nil. An exclusive shape may only be attached
// to one actor.
func (w *World) CreateShape(geom actor.Geometry, mat *actor.Material, exclusive bool) (ShapeID, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.mutable(false); err != nil {
		return 0, opError("create shape", 0, err)
	}
	if geom == nil {
		return 0, opError("create shape", 0, violation("nil geometry"))
	}
	if err := geom.Validate(); err != nil {
		return 0, opError("create shape", 0, err)
	}
	if mat == nil {
		mat = w.cfg.material()
	} else if err := mat.Validate(); err != nil {
		return 0, opError("create shape", 0, err)
	}

	id := w.reg.nextID()
	w.reg.shapes[ShapeID(id)] = actor.NewShape(id, geom, mat, exclusive)
	return ShapeID(id), nil
}

func (w *World) SetShapeFlags(id ShapeID, flags actor.ShapeFlags) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.mutable(true); err != nil {
		return opError("set shape flags", uint64(id), err)
	}
	s, err := w.reg.shape(id)
	if err != nil {
		return opError("set shape flags", uint64(id), err)
	}
	if flags.Has(actor.ShapeFlagSimulate) && flags.Has(actor.ShapeFlagTrigger) {
		return opError("set shape flags", uint64(id), violation("a trigger shape cannot simulate"))
	}
	s.Flags = flags
	return nil
}

// SetShapeLocalPose sets the pose of the shape in its actor frame. Attached
// shapes are frozen since the mass properties were derived from them.
func (w *World) SetShapeLocalPose(id ShapeID, pose actor.Transform) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.mutable(true); err != nil {
		return opError("set shape pose", uint64(id), err)
	}
	s, err := w.reg.shape(id)
	if err != nil {
		return opError("set shape pose", uint64(id), err)
	}
	if s.IsAttached() {
		return opError("set shape pose", uint64(id), fmt.Errorf("%w: shape attached", ErrInvalidState))
	}
	if !pose.IsValid() {
		return opError("set shape pose", uint64(id), violation("pose %v", pose))
	}
	s.LocalPose = pose.Normalized()
	return nil
}

// ReleaseShape forgets the id; actors holding the shape keep it.
func (w *World) ReleaseShape(id ShapeID) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.mutable(true); err != nil {
		return opError("release shape", uint64(id), err)
	}
	if _, err := w.reg.shape(id); err != nil {
		return opError("release shape", uint64(id), err)
	}
	delete(w.reg.shapes, id)
	return nil
}

// attachable resolves the shapes of a new actor
func (w *World) attachable(ids []ShapeID) ([]*actor.Shape, error) {
	shapes := make([]*actor.Shape, 0, len(ids))
	seen := make(map[ShapeID]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return nil, violation("shape %d listed twice", id)
		}
		seen[id] = true

		s, err := w.reg.shape(id)
		if err != nil {
			return nil, err
		}
		if !s.CanAttach() {
			return nil, fmt.Errorf("%w: exclusive shape %d already attached", ErrInvalidState, id)
		}
		shapes = append(shapes, s)
	}
	return shapes, nil
}

// CreateDynamicActor creates a movable actor. Its mass, center of mass and
// inertia are derived from the simulation shapes at the given density.
func (w *World) CreateDynamicActor(pose actor.Transform, shapes []ShapeID, density float64) (ActorID, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.mutable(false); err != nil {
		return 0, opError("create dynamic actor", 0, err)
	}
	if !pose.IsValid() {
		return 0, opError("create dynamic actor", 0, violation("pose %v", pose))
	}
	if len(shapes) == 0 {
		return 0, opError("create dynamic actor", 0, violation("no shape"))
	}
	attached, err := w.attachable(shapes)
	if err != nil {
		return 0, opError("create dynamic actor", 0, err)
	}

	id := w.reg.nextID()
	rb, err := actor.NewDynamicBody(id, pose, attached, density)
	if err != nil {
		return 0, opError("create dynamic actor", 0, err)
	}
	rb.LinearDamping = w.cfg.Damping.Linear
	rb.AngularDamping = w.cfg.Damping.Angular

	w.addBody(rb)
	return ActorID(id), nil
}

// CreateStaticActor creates an immovable actor
func (w *World) CreateStaticActor(pose actor.Transform, shapes []ShapeID) (ActorID, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.mutable(false); err != nil {
		return 0, opError("create static actor", 0, err)
	}
	if !pose.IsValid() {
		return 0, opError("create static actor", 0, violation("pose %v", pose))
	}
	attached, err := w.attachable(shapes)
	if err != nil {
		return 0, opError("create static actor", 0, err)
	}

	id := w.reg.nextID()
	w.addBody(actor.NewStaticBody(id, pose, attached))
	return ActorID(id), nil
}

// CreatePlaneActor creates a static actor holding an infinite plane with the
// default material. The plane is n·p + d = 0 in world space.
func (w *World) CreatePlaneActor(plane actor.Plane) (ActorID, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.mutable(false); err != nil {
		return 0, opError("create plane actor", 0, err)
	}
	geom := &actor.Plane{Normal: plane.Normal, Distance: plane.Distance}
	if err := geom.Validate(); err != nil {
		return 0, opError("create plane actor", 0, err)
	}

	s := actor.NewShape(w.reg.nextID(), geom, w.cfg.material(), true)
	w.reg.shapes[ShapeID(s.ID)] = s

	id := w.reg.nextID()
	w.addBody(actor.NewStaticBody(id, actor.NewTransform(), []*actor.Shape{s}))
	return ActorID(id), nil
}

// addBody registers rb, publishes its state and indexes its bounds. Called with mu held.
func (w *World) addBody(rb *actor.RigidBody) {
	w.reg.addBody(rb)
	w.committed[ActorID(rb.ID)] = snapshotOf(rb)
	if len(rb.Colliders) > 0 {
		w.broadPhase.Insert(ActorID(rb.ID), rb.Bounds().Expand(w.cfg.ContactOffset))
	}
}

// Release removes an actor and the joints attached to it. Its shapes are
// detached and may be attached to another actor.
func (w *World) Release(id ActorID) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.mutable(true); err != nil {
		return opError("release", uint64(id), err)
	}
	if id == WorldActor {
		return opError("release", uint64(id), violation("the world actor cannot be released"))
	}
	rb, err := w.reg.body(id)
	if err != nil {
		return opError("release", uint64(id), err)
	}

	for _, j := range w.reg.jointsOf(rb) {
		w.releaseJoint(j)
	}
	for _, other := range w.reg.bodies {
		if other != rb && !other.IsStatic() && other.IsSleeping {
			// contacts with rb are gone
			for _, c := range rb.Colliders {
				if c.AABB.Expand(w.cfg.ContactOffset).Overlaps(other.Bounds()) {
					other.Awake()
					break
				}
			}
		}
	}

	rb.Detach()
	w.reg.removeBody(rb)
	w.broadPhase.Remove(id)
	w.events.forget(id)
	delete(w.committed, id)
	return nil
}

// body resolves id for a query or a mutation. Called with mu held.
func (w *World) body(op string, id ActorID, mutation bool) (*actor.RigidBody, error) {
	check := w.readable
	if mutation {
		check = w.mutable
	}
	if err := check(true); err != nil {
		return nil, opError(op, uint64(id), err)
	}
	rb, err := w.reg.body(id)
	if err != nil {
		return nil, opError(op, uint64(id), err)
	}
	return rb, nil
}

// dynamicBody is body restricted to dynamic actors
func (w *World) dynamicBody(op string, id ActorID) (*actor.RigidBody, error) {
	rb, err := w.body(op, id, true)
	if err != nil {
		return nil, err
	}
	if rb.IsStatic() {
		return nil, opError(op, uint64(id), mismatch("actor is static"))
	}
	return rb, nil
}

// Pose returns the pose of the actor frame committed by the last step
func (w *World) Pose(id ActorID) (actor.Transform, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if _, err := w.body("pose", id, false); err != nil {
		return actor.Transform{}, err
	}
	if id == WorldActor {
		return actor.NewTransform(), nil
	}
	return w.committed[id].pose, nil
}

// Velocity returns the linear velocity of the center of mass and the angular velocity
func (w *World) Velocity(id ActorID) (mgl64.Vec3, mgl64.Vec3, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if _, err := w.body("velocity", id, false); err != nil {
		return mgl64.Vec3{}, mgl64.Vec3{}, err
	}
	state := w.committed[id]
	return state.velocity, state.angularVelocity, nil
}

// Mass returns the mass in kg, +Inf for static actors
func (w *World) Mass(id ActorID) (float64, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	rb, err := w.body("mass", id, false)
	if err != nil {
		return 0, err
	}
	return rb.Mass(), nil
}

func (w *World) IsSleeping(id ActorID) (bool, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if _, err := w.body("is sleeping", id, false); err != nil {
		return false, err
	}
	return w.committed[id].sleeping, nil
}

// SetVelocity sets the linear velocity of the center of mass and the angular
// velocity, and wakes the actor.
func (w *World) SetVelocity(id ActorID, linear, angular mgl64.Vec3) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	rb, err := w.dynamicBody("set velocity", id)
	if err != nil {
		return err
	}
	if !finiteVec(linear) || !finiteVec(angular) {
		return opError("set velocity", uint64(id), violation("velocity %v %v", linear, angular))
	}

	rb.Velocity = linear
	rb.AngularVelocity = angular
	rb.Awake()
	w.committed[id] = snapshotOf(rb)
	return nil
}

func (w *World) SetDamping(id ActorID, linear, angular float64) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	rb, err := w.dynamicBody("set damping", id)
	if err != nil {
		return err
	}
	if !finiteVec(mgl64.Vec3{linear, angular}) || linear < 0 || angular < 0 {
		return opError("set damping", uint64(id), violation("damping %v %v", linear, angular))
	}

	rb.LinearDamping = linear
	rb.AngularDamping = angular
	return nil
}

// AddForce applies force (N) at the center of mass during the next step
func (w *World) AddForce(id ActorID, force mgl64.Vec3) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	rb, err := w.dynamicBody("add force", id)
	if err != nil {
		return err
	}
	if !finiteVec(force) {
		return opError("add force", uint64(id), violation("force %v", force))
	}
	rb.AddForce(force)
	w.committed[id] = snapshotOf(rb)
	return nil
}

// AddTorque applies torque (N⋅m) during the next step
func (w *World) AddTorque(id ActorID, torque mgl64.Vec3) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	rb, err := w.dynamicBody("add torque", id)
	if err != nil {
		return err
	}
	if !finiteVec(torque) {
		return opError("add torque", uint64(id), violation("torque %v", torque))
	}
	rb.AddTorque(torque)
	w.committed[id] = snapshotOf(rb)
	return nil
}

func (w *World) WakeUp(id ActorID) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	rb, err := w.dynamicBody("wake up", id)
	if err != nil {
		return err
	}
	rb.Awake()
	w.committed[id] = snapshotOf(rb)
	return nil
}

// ActorCount returns the number of live actors, WorldActor excluded
func (w *World) ActorCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.reg == nil {
		return 0
	}
	return len(w.reg.actors)
}

func (w *World) JointCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.reg == nil {
		return 0
	}
	return len(w.reg.joints)
}

// CreateStack builds a pyramid of size rows of boxes in the XY plane of pose,
// all sharing one box shape. It returns the actors from the bottom row up.
func (w *World) CreateStack(pose actor.Transform, size int, halfExtent, density float64) ([]ActorID, error) {
	if size <= 0 {
		return nil, opError("create stack", 0, violation("stack size %d", size))
	}
	shape, err := w.CreateShape(&actor.Box{HalfExtents: mgl64.Vec3{halfExtent, halfExtent, halfExtent}}, nil, false)
	if err != nil {
		return nil, err
	}

	ids := make([]ActorID, 0, size*(size+1)/2)
	for i := 0; i < size; i++ {
		for j := 0; j < size-i; j++ {
			local := actor.NewTransformAt(mgl64.Vec3{
				float64(j*2) - float64(size-i),
				float64(i*2 + 1),
				0,
			}.Mul(halfExtent))

			id, err := w.CreateDynamicActor(pose.Compose(local), []ShapeID{shape}, density)
			if err != nil {
				return ids, err
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func finiteVec(v mgl64.Vec3) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
