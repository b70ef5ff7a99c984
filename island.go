package anvil

import (
	"cmp"
	"slices"

	"github.com/akmonengine/anvil/actor"
	"github.com/akmonengine/anvil/constraint"
)

// unionFind keeps the smallest index as the root of every set
type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (uf *unionFind) find(i int) int {
	for uf.parent[i] != i {
		uf.parent[i] = uf.parent[uf.parent[i]]
		i = uf.parent[i]
	}
	return i
}

func (uf *unionFind) union(i, j int) {
	ri, rj := uf.find(i), uf.find(j)
	if ri == rj {
		return
	}
	if rj < ri {
		ri, rj = rj, ri
	}
	uf.parent[rj] = ri
}

// buildIslands groups the awake dynamic bodies connected through contacts or
// joints. Static bodies never join two islands. bodies must be sorted by id;
// islands come out ordered by their smallest body id, and keep the relative
// order of bodies, contacts and joints.
func buildIslands(bodies []*actor.RigidBody, contacts []*constraint.ContactConstraint, joints []*constraint.Joint) []*constraint.Island {
	index := make(map[*actor.RigidBody]int, len(bodies))
	for i, rb := range bodies {
		index[rb] = i
	}
	uf := newUnionFind(len(bodies))

	link := func(a, b *actor.RigidBody) {
		ia, okA := index[a]
		ib, okB := index[b]
		if okA && okB {
			uf.union(ia, ib)
		}
	}
	for _, c := range contacts {
		link(c.BodyA, c.BodyB)
	}
	for _, j := range joints {
		link(j.BodyA, j.BodyB)
	}

	islands := make(map[int]*constraint.Island)
	roots := make([]int, 0)
	islandOf := func(root int) *constraint.Island {
		island, ok := islands[root]
		if !ok {
			island = &constraint.Island{}
			islands[root] = island
			roots = append(roots, root)
		}
		return island
	}

	for i, rb := range bodies {
		island := islandOf(uf.find(i))
		island.Bodies = append(island.Bodies, rb)
	}

	// a constraint belongs to the island of its dynamic body
	rootOf := func(a, b *actor.RigidBody) (int, bool) {
		if i, ok := index[a]; ok {
			return uf.find(i), true
		}
		if i, ok := index[b]; ok {
			return uf.find(i), true
		}
		return 0, false
	}
	for _, c := range contacts {
		if root, ok := rootOf(c.BodyA, c.BodyB); ok {
			islands[root].Contacts = append(islands[root].Contacts, c)
		}
	}
	for _, j := range joints {
		if root, ok := rootOf(j.BodyA, j.BodyB); ok {
			islands[root].Joints = append(islands[root].Joints, j)
		}
	}

	slices.SortFunc(roots, cmp.Compare[int])
	result := make([]*constraint.Island, len(roots))
	for i, root := range roots {
		result[i] = islands[root]
	}
	return result
}
