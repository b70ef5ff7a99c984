package constraint

// PairKey identifies a contact manifold across steps by its two shape ids and
// the ids of the bodies holding them (shared shapes may sit on several bodies).
type PairKey struct {
	BodyA, ShapeA uint64
	BodyB, ShapeB uint64
}

// KeyOf returns the cache key of a contact constraint
func KeyOf(c *ContactConstraint) PairKey {
	return PairKey{BodyA: c.BodyA.ID, ShapeA: c.ShapeA.ID, BodyB: c.BodyB.ID, ShapeB: c.ShapeB.ID}
}

type cachedPoint struct {
	localB         [3]float64
	normalImpulse  float64
	tangentImpulse [2]float64
}

// ContactCache keeps the impulses of the previous step for warm starting.
// Restore is read-only and may run from several goroutines; Rebuild must not
// run concurrently with it.
type ContactCache struct {
	entries map[PairKey][]cachedPoint
}

func NewContactCache() *ContactCache {
	return &ContactCache{entries: make(map[PairKey][]cachedPoint)}
}

// Len returns the number of cached manifolds
func (cache *ContactCache) Len() int {
	return len(cache.entries)
}

// Restore copies the cached impulses onto the points of c lying within
// distance of a cached point, in the second body's frame.
func (cache *ContactCache) Restore(c *ContactConstraint, distance float64) {
	cached, ok := cache.entries[KeyOf(c)]
	if !ok {
		return
	}

	maxDistSqr := distance * distance
	for i := range c.Points {
		p := &c.Points[i]
		local := c.BodyB.Transform.ApplyInverse(p.Position)

		best := -1
		bestDistSqr := maxDistSqr
		for j, cp := range cached {
			dx := local[0] - cp.localB[0]
			dy := local[1] - cp.localB[1]
			dz := local[2] - cp.localB[2]
			if d := dx*dx + dy*dy + dz*dz; d <= bestDistSqr {
				best, bestDistSqr = j, d
			}
		}
		if best >= 0 {
			p.NormalImpulse = cached[best].normalImpulse
			p.TangentImpulse = cached[best].tangentImpulse
		}
	}
}

// Rebuild replaces the cache content with the impulses of contacts
func (cache *ContactCache) Rebuild(contacts []*ContactConstraint) {
	clear(cache.entries)

	for _, c := range contacts {
		points := make([]cachedPoint, len(c.Points))
		for i, p := range c.Points {
			points[i] = cachedPoint{
				localB:         p.localB,
				normalImpulse:  p.NormalImpulse,
				tangentImpulse: p.TangentImpulse,
			}
		}
		cache.entries[KeyOf(c)] = points
	}
}

// Clear drops every cached manifold
func (cache *ContactCache) Clear() {
	clear(cache.entries)
}
