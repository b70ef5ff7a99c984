package anvil

import (
	"slices"

	"github.com/akmonengine/anvil/actor"
	"github.com/akmonengine/anvil/constraint"
)

// Identifiers handed out by a world. Actors, shapes and joints share one
// counter, so an id names exactly one object and is never reused.
type (
	ActorID uint64
	ShapeID uint64
	JointID uint64
)

// WorldActor is the static frame of the world, usable as a joint parent
const WorldActor ActorID = 0

type registry struct {
	lastID uint64

	shapes map[ShapeID]*actor.Shape
	actors map[ActorID]*actor.RigidBody
	joints map[JointID]*constraint.Joint

	// bodies and jointList are sorted by id, WorldActor excluded
	bodies    []*actor.RigidBody
	jointList []*constraint.Joint

	world *actor.RigidBody
}

func newRegistry() *registry {
	return &registry{
		shapes: make(map[ShapeID]*actor.Shape),
		actors: make(map[ActorID]*actor.RigidBody),
		joints: make(map[JointID]*constraint.Joint),
		world:  actor.NewStaticBody(uint64(WorldActor), actor.NewTransform(), nil),
	}
}

func (r *registry) nextID() uint64 {
	r.lastID++
	return r.lastID
}

func (r *registry) shape(id ShapeID) (*actor.Shape, error) {
	s, ok := r.shapes[id]
	if !ok {
		return nil, notFound("shape", uint64(id))
	}
	return s, nil
}

// body resolves an actor id, WorldActor included
func (r *registry) body(id ActorID) (*actor.RigidBody, error) {
	if id == WorldActor {
		return r.world, nil
	}
	rb, ok := r.actors[id]
	if !ok {
		return nil, notFound("actor", uint64(id))
	}
	return rb, nil
}

func (r *registry) joint(id JointID) (*constraint.Joint, error) {
	j, ok := r.joints[id]
	if !ok {
		return nil, notFound("joint", uint64(id))
	}
	return j, nil
}

// ids grow monotonically, so appending keeps the slices sorted
func (r *registry) addBody(rb *actor.RigidBody) {
	r.actors[ActorID(rb.ID)] = rb
	r.bodies = append(r.bodies, rb)
}

func (r *registry) removeBody(rb *actor.RigidBody) {
	delete(r.actors, ActorID(rb.ID))
	r.bodies = slices.DeleteFunc(r.bodies, func(other *actor.RigidBody) bool {
		return other == rb
	})
}

func (r *registry) addJoint(j *constraint.Joint) {
	r.joints[JointID(j.ID)] = j
	r.jointList = append(r.jointList, j)
}

func (r *registry) removeJoint(j *constraint.Joint) {
	delete(r.joints, JointID(j.ID))
	r.jointList = slices.DeleteFunc(r.jointList, func(other *constraint.Joint) bool {
		return other == j
	})
}

// jointsOf returns the joints attached to rb, sorted by id
func (r *registry) jointsOf(rb *actor.RigidBody) []*constraint.Joint {
	var joints []*constraint.Joint
	for _, j := range r.jointList {
		if j.BodyA == rb || j.BodyB == rb {
			joints = append(joints, j)
		}
	}
	return joints
}

// jointedPairs returns the actor pairs held by an unbroken joint
func (r *registry) jointedPairs() map[Pair]bool {
	pairs := make(map[Pair]bool, len(r.jointList))
	for _, j := range r.jointList {
		if !j.IsBroken() {
			pairs[makePair(ActorID(j.BodyA.ID), ActorID(j.BodyB.ID))] = true
		}
	}
	return pairs
}

// clear releases every object, detaching the shapes from their actors
func (r *registry) clear() {
	for _, rb := range r.bodies {
		rb.Detach()
	}
	clear(r.shapes)
	clear(r.actors)
	clear(r.joints)
	r.bodies = nil
	r.jointList = nil
}
