package anvil

import (
	"cmp"
	"slices"

	"github.com/akmonengine/anvil/actor"
)

// Pair is a candidate pair of actors with overlapping bounds, A < B
type Pair struct {
	A, B ActorID
}

func makePair(a, b ActorID) Pair {
	if b < a {
		a, b = b, a
	}
	return Pair{A: a, B: b}
}

func comparePairs(p, q Pair) int {
	if c := cmp.Compare(p.A, q.A); c != 0 {
		return c
	}
	return cmp.Compare(p.B, q.B)
}

// BroadPhase indexes one bounding box per actor. Pairs must report every pair
// of overlapping boxes, touching included; extra pairs are filtered later.
type BroadPhase interface {
	Insert(id ActorID, bounds actor.AABB)
	Update(id ActorID, bounds actor.AABB)
	Remove(id ActorID)
	// Pairs returns the overlapping pairs sorted by (A, B)
	Pairs() []Pair
	// Query returns the sorted ids whose box overlaps bounds
	Query(bounds actor.AABB) []ActorID
	Len() int
}

func newBroadPhase(cfg Config) BroadPhase {
	if cfg.BroadPhase == BroadPhaseGrid {
		return NewSpatialGrid(cfg.GridCellSize, cfg.GridCells)
	}
	return NewSweepAndPrune()
}

// queryBounds scans every box; used by both broad phases for scene queries
func queryBounds(boxes map[ActorID]actor.AABB, bounds actor.AABB) []ActorID {
	var ids []ActorID
	for id, box := range boxes {
		if box.Overlaps(bounds) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}
