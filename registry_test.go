package anvil

import (
	"errors"
	"testing"

	"github.com/akmonengine/anvil/actor"
	"github.com/akmonengine/anvil/constraint"
	"github.com/google/go-cmp/cmp"
)

func registerBody(r *registry) *actor.RigidBody {
	rb := actor.NewStaticBody(r.nextID(), actor.NewTransform(), nil)
	r.addBody(rb)
	return rb
}

func bodyIDs(bodies []*actor.RigidBody) []uint64 {
	ids := make([]uint64, len(bodies))
	for i, rb := range bodies {
		ids[i] = rb.ID
	}
	return ids
}

func TestRegistry_Bodies(t *testing.T) {
	r := newRegistry()
	a, b, c := registerBody(r), registerBody(r), registerBody(r)

	r.removeBody(b)
	d := registerBody(r)

	if diff := cmp.Diff([]uint64{a.ID, c.ID, d.ID}, bodyIDs(r.bodies)); diff != "" {
		t.Errorf("bodies mismatch (-want +got):\n%s", diff)
	}
	if d.ID != 4 {
		t.Errorf("new id = %d, ids must not be reused", d.ID)
	}
	if _, err := r.body(ActorID(b.ID)); !errors.Is(err, ErrNotFound) {
		t.Errorf("body(%d) = %v, want ErrNotFound", b.ID, err)
	}
	if world, err := r.body(WorldActor); err != nil || !world.IsStatic() {
		t.Errorf("body(WorldActor) = %v, %v, want the static world", world, err)
	}
}

func TestRegistry_Joints(t *testing.T) {
	r := newRegistry()
	a, b, c := registerBody(r), registerBody(r), registerBody(r)
	identity := actor.NewTransform()

	ab := constraint.NewFixedJoint(r.nextID(), a, identity, b, identity)
	bc := constraint.NewSphericalJoint(r.nextID(), b, identity, c, identity)
	worldA := constraint.NewFixedJoint(r.nextID(), r.world, identity, a, identity)
	for _, j := range []*constraint.Joint{ab, bc, worldA} {
		r.addJoint(j)
	}

	gotJoints := func(rb *actor.RigidBody) []uint64 {
		var ids []uint64
		for _, j := range r.jointsOf(rb) {
			ids = append(ids, j.ID)
		}
		return ids
	}
	if diff := cmp.Diff([]uint64{ab.ID, worldA.ID}, gotJoints(a)); diff != "" {
		t.Errorf("jointsOf(a) mismatch (-want +got):\n%s", diff)
	}

	want := map[Pair]bool{
		makePair(ActorID(a.ID), ActorID(b.ID)): true,
		makePair(ActorID(b.ID), ActorID(c.ID)): true,
		makePair(WorldActor, ActorID(a.ID)):    true,
	}
	if diff := cmp.Diff(want, r.jointedPairs()); diff != "" {
		t.Errorf("jointedPairs mismatch (-want +got):\n%s", diff)
	}

	r.removeJoint(ab)
	if _, err := r.joint(JointID(ab.ID)); !errors.Is(err, ErrNotFound) {
		t.Errorf("joint(%d) = %v, want ErrNotFound", ab.ID, err)
	}
	if diff := cmp.Diff([]uint64{bc.ID}, gotJoints(c)); diff != "" {
		t.Errorf("jointsOf(c) mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistry_ClearDetachesShapes(t *testing.T) {
	r := newRegistry()
	s := actor.NewShape(r.nextID(), &actor.Sphere{Radius: 1}, actor.DefaultMaterial(), true)
	r.shapes[ShapeID(s.ID)] = s
	r.addBody(actor.NewStaticBody(r.nextID(), actor.NewTransform(), []*actor.Shape{s}))

	if s.CanAttach() {
		t.Fatal("an attached exclusive shape must not be attachable")
	}
	r.clear()

	if !s.CanAttach() {
		t.Error("clear() should detach the shapes")
	}
	if len(r.actors) != 0 || len(r.shapes) != 0 || len(r.bodies) != 0 {
		t.Errorf("registry not empty after clear: %d actors, %d shapes", len(r.actors), len(r.shapes))
	}
}
