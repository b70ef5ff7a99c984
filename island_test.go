package anvil

import (
	"testing"

	"github.com/akmonengine/anvil/actor"
	"github.com/akmonengine/anvil/constraint"
	"github.com/google/go-cmp/cmp"
)

func islandIDs(islands []*constraint.Island) [][]uint64 {
	var ids [][]uint64
	for _, island := range islands {
		var bodies []uint64
		for _, rb := range island.Bodies {
			bodies = append(bodies, rb.ID)
		}
		ids = append(ids, bodies)
	}
	return ids
}

func TestUnionFind_SmallestRoot(t *testing.T) {
	uf := newUnionFind(5)
	uf.union(4, 3)
	uf.union(3, 1)
	uf.union(2, 0)

	tests := []struct{ i, root int }{{0, 0}, {1, 1}, {2, 0}, {3, 1}, {4, 1}}
	for _, tt := range tests {
		if got := uf.find(tt.i); got != tt.root {
			t.Errorf("find(%d) = %d, want %d", tt.i, got, tt.root)
		}
	}
}

func TestBuildIslands(t *testing.T) {
	ground := actor.NewStaticBody(100, actor.NewTransform(), nil)
	var bodies []*actor.RigidBody
	for id := uint64(1); id <= 5; id++ {
		bodies = append(bodies, createTestBody(t, id, false))
	}
	contact := func(a, b *actor.RigidBody) *constraint.ContactConstraint {
		return &constraint.ContactConstraint{BodyA: a, BodyB: b}
	}

	contacts := []*constraint.ContactConstraint{
		contact(bodies[4], bodies[2]),
		contact(ground, bodies[0]),
		contact(ground, bodies[3]),
	}
	joints := []*constraint.Joint{
		constraint.NewSphericalJoint(10, bodies[1], actor.NewTransform(), bodies[3], actor.NewTransform()),
	}

	islands := buildIslands(bodies, contacts, joints)

	// the ground does not merge 1 and 4
	want := [][]uint64{{1}, {2, 4}, {3, 5}}
	if diff := cmp.Diff(want, islandIDs(islands)); diff != "" {
		t.Fatalf("islands mismatch (-want +got):\n%s", diff)
	}
	if len(islands[0].Contacts) != 1 || len(islands[1].Contacts) != 1 || len(islands[2].Contacts) != 1 {
		t.Errorf("contacts not assigned to their island")
	}
	if len(islands[1].Joints) != 1 {
		t.Errorf("joint not assigned to its island")
	}
	for i, island := range islands {
		if got := island.MinBodyID(); got != want[i][0] {
			t.Errorf("island %d MinBodyID() = %d, want %d", i, got, want[i][0])
		}
	}
}

func TestBuildIslands_IgnoresSleepingBodies(t *testing.T) {
	awake := createTestBody(t, 1, false)
	sleeping := createTestBody(t, 2, true)

	islands := buildIslands([]*actor.RigidBody{awake}, []*constraint.ContactConstraint{
		{BodyA: awake, BodyB: sleeping},
	}, nil)

	if diff := cmp.Diff([][]uint64{{1}}, islandIDs(islands)); diff != "" {
		t.Errorf("islands mismatch (-want +got):\n%s", diff)
	}
}
