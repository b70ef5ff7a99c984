package anvil

import (
	"math"
	"slices"

	"github.com/akmonengine/anvil/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// maxCellSpan is the number of cells per axis above which a box is kept out
// of the grid and tested against every other box.
const maxCellSpan = 16

// CellKey is the integer coordinate of a grid cell
type CellKey struct {
	X, Y, Z int
}

// Cell holds the actors overlapping one hashed cell
type Cell struct {
	ids []ActorID
}

// SpatialGrid is a uniform grid hashed into a fixed number of cells.
// Distinct cells may share a slot; the final box test removes those pairs.
type SpatialGrid struct {
	cellSize float64
	cells    []Cell
	cellMask int

	boxes     map[ActorID]actor.AABB
	oversized []ActorID
}

func NewSpatialGrid(cellSize float64, numCells int) *SpatialGrid {
	numCells = nextPowerOfTwo(numCells)

	cells := make([]Cell, numCells)
	for i := range cells {
		cells[i].ids = make([]ActorID, 0, 8)
	}

	return &SpatialGrid{
		cellSize: cellSize,
		cells:    cells,
		cellMask: numCells - 1,
		boxes:    make(map[ActorID]actor.AABB),
	}
}

func nextPowerOfTwo(n int) int {
	if n <= 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n++
	return n
}

func (sg *SpatialGrid) Len() int {
	return len(sg.boxes)
}

func (sg *SpatialGrid) Insert(id ActorID, bounds actor.AABB) {
	sg.boxes[id] = bounds
}

func (sg *SpatialGrid) Update(id ActorID, bounds actor.AABB) {
	if _, ok := sg.boxes[id]; ok {
		sg.boxes[id] = bounds
	}
}

func (sg *SpatialGrid) Remove(id ActorID) {
	delete(sg.boxes, id)
}

// Pairs rebuilds the cells from the stored boxes, then tests each actor
// against the actors sharing its cells.
func (sg *SpatialGrid) Pairs() []Pair {
	ids := sg.sortedIDs()
	sg.clear()
	for _, id := range ids {
		sg.insert(id)
	}

	seen := make(map[Pair]struct{})
	var pairs []Pair
	add := func(a, b ActorID) {
		pair := makePair(a, b)
		if _, ok := seen[pair]; ok {
			return
		}
		seen[pair] = struct{}{}
		if sg.boxes[a].Overlaps(sg.boxes[b]) {
			pairs = append(pairs, pair)
		}
	}

	for _, id := range ids {
		box := sg.boxes[id]
		if sg.isOversized(box) {
			continue
		}

		minCell := sg.worldToCell(box.Min)
		maxCell := sg.worldToCell(box.Max)
		for x := minCell.X; x <= maxCell.X; x++ {
			for y := minCell.Y; y <= maxCell.Y; y++ {
				for z := minCell.Z; z <= maxCell.Z; z++ {
					for _, other := range sg.cells[sg.hashCell(CellKey{x, y, z})].ids {
						if other > id {
							add(id, other)
						}
					}
				}
			}
		}
	}

	for _, big := range sg.oversized {
		for _, id := range ids {
			if id != big {
				add(big, id)
			}
		}
	}

	slices.SortFunc(pairs, comparePairs)
	return pairs
}

func (sg *SpatialGrid) Query(bounds actor.AABB) []ActorID {
	return queryBounds(sg.boxes, bounds)
}

func (sg *SpatialGrid) sortedIDs() []ActorID {
	ids := make([]ActorID, 0, len(sg.boxes))
	for id := range sg.boxes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (sg *SpatialGrid) clear() {
	for i := range sg.cells {
		sg.cells[i].ids = sg.cells[i].ids[:0]
	}
	sg.oversized = sg.oversized[:0]
}

// insert adds id to every cell its box touches. Ids are inserted in
// increasing order, so every cell stays sorted.
func (sg *SpatialGrid) insert(id ActorID) {
	box := sg.boxes[id]
	if sg.isOversized(box) {
		sg.oversized = append(sg.oversized, id)
		return
	}

	minCell := sg.worldToCell(box.Min)
	maxCell := sg.worldToCell(box.Max)
	for x := minCell.X; x <= maxCell.X; x++ {
		for y := minCell.Y; y <= maxCell.Y; y++ {
			for z := minCell.Z; z <= maxCell.Z; z++ {
				cell := &sg.cells[sg.hashCell(CellKey{x, y, z})]
				if n := len(cell.ids); n == 0 || cell.ids[n-1] != id {
					cell.ids = append(cell.ids, id)
				}
			}
		}
	}
}

func (sg *SpatialGrid) isOversized(box actor.AABB) bool {
	if box.IsUnbounded() {
		return true
	}
	e := box.Extent()
	limit := sg.cellSize * maxCellSpan
	return e[0] > limit || e[1] > limit || e[2] > limit
}

func (sg *SpatialGrid) worldToCell(pos mgl64.Vec3) CellKey {
	return CellKey{
		X: int(math.Floor(pos.X() / sg.cellSize)),
		Y: int(math.Floor(pos.Y() / sg.cellSize)),
		Z: int(math.Floor(pos.Z() / sg.cellSize)),
	}
}

func (sg *SpatialGrid) hashCell(key CellKey) int {
	h := (key.X * 73856093) ^ (key.Y * 19349663) ^ (key.Z * 83492791)
	return h & sg.cellMask
}
