package anvil

import (
	"slices"

	"github.com/akmonengine/anvil/actor"
)

// SweepAndPrune keeps the box endpoints of every actor sorted on the three
// axes. Bodies move little between steps, so the insertion sort that
// refreshes the lists runs close to O(n). Pairs sweeps the axis where the box
// centers are the most spread out.
type SweepAndPrune struct {
	boxes map[ActorID]actor.AABB
	axes  [3][]sapEndpoint

	active []ActorID
	pairs  []Pair
}

type sapEndpoint struct {
	value float64
	id    ActorID
	isMin bool
}

// before orders endpoints by value, then min before max so touching boxes
// overlap, then actor id so equal inputs always sweep the same way.
func (e sapEndpoint) before(other sapEndpoint) bool {
	if e.value != other.value {
		return e.value < other.value
	}
	if e.isMin != other.isMin {
		return e.isMin
	}
	return e.id < other.id
}

func NewSweepAndPrune() *SweepAndPrune {
	return &SweepAndPrune{boxes: make(map[ActorID]actor.AABB)}
}

func (s *SweepAndPrune) Len() int {
	return len(s.boxes)
}

func (s *SweepAndPrune) Insert(id ActorID, bounds actor.AABB) {
	if _, ok := s.boxes[id]; ok {
		s.Update(id, bounds)
		return
	}

	s.boxes[id] = bounds
	for axis := range s.axes {
		s.axes[axis] = append(s.axes[axis],
			sapEndpoint{value: bounds.Min[axis], id: id, isMin: true},
			sapEndpoint{value: bounds.Max[axis], id: id, isMin: false},
		)
	}
}

// Update only stores the box; endpoints are refreshed lazily by Pairs
func (s *SweepAndPrune) Update(id ActorID, bounds actor.AABB) {
	if _, ok := s.boxes[id]; ok {
		s.boxes[id] = bounds
	}
}

func (s *SweepAndPrune) Remove(id ActorID) {
	if _, ok := s.boxes[id]; !ok {
		return
	}

	delete(s.boxes, id)
	for axis := range s.axes {
		s.axes[axis] = slices.DeleteFunc(s.axes[axis], func(e sapEndpoint) bool {
			return e.id == id
		})
	}
}

func (s *SweepAndPrune) Pairs() []Pair {
	for axis := range s.axes {
		s.refresh(axis)
		insertionSortEndpoints(s.axes[axis])
	}

	axis := s.sweepAxis()
	s.pairs = s.pairs[:0]
	s.active = s.active[:0]

	for _, ep := range s.axes[axis] {
		if !ep.isMin {
			if i := slices.Index(s.active, ep.id); i >= 0 {
				s.active = slices.Delete(s.active, i, i+1)
			}
			continue
		}

		box := s.boxes[ep.id]
		for _, other := range s.active {
			if box.Overlaps(s.boxes[other]) {
				s.pairs = append(s.pairs, makePair(ep.id, other))
			}
		}
		s.active = append(s.active, ep.id)
	}

	if len(s.pairs) == 0 {
		return nil
	}
	slices.SortFunc(s.pairs, comparePairs)
	return slices.Clone(s.pairs)
}

func (s *SweepAndPrune) Query(bounds actor.AABB) []ActorID {
	return queryBounds(s.boxes, bounds)
}

// refresh copies the current box values into the endpoints of an axis
func (s *SweepAndPrune) refresh(axis int) {
	endpoints := s.axes[axis]
	for i := range endpoints {
		box := s.boxes[endpoints[i].id]
		if endpoints[i].isMin {
			endpoints[i].value = box.Min[axis]
		} else {
			endpoints[i].value = box.Max[axis]
		}
	}
}

// sweepAxis picks the axis with the largest variance of the box centers.
// Unbounded boxes (planes) are left out, they would dominate every axis.
func (s *SweepAndPrune) sweepAxis() int {
	var sum, sumSqr [3]float64
	var n float64

	for _, box := range s.boxes {
		if box.IsUnbounded() {
			continue
		}
		c := box.Center()
		for axis := range 3 {
			sum[axis] += c[axis]
			sumSqr[axis] += c[axis] * c[axis]
		}
		n++
	}
	if n == 0 {
		return 0
	}

	best, bestVariance := 0, -1.0
	for axis := range 3 {
		mean := sum[axis] / n
		variance := sumSqr[axis]/n - mean*mean
		if variance > bestVariance {
			best, bestVariance = axis, variance
		}
	}
	return best
}

// insertionSortEndpoints is O(n) for nearly sorted lists
func insertionSortEndpoints(endpoints []sapEndpoint) {
	for i := 1; i < len(endpoints); i++ {
		key := endpoints[i]
		j := i - 1
		for j >= 0 && key.before(endpoints[j]) {
			endpoints[j+1] = endpoints[j]
			j--
		}
		endpoints[j+1] = key
	}
}
