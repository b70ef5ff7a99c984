package anvil

import (
	"github.com/akmonengine/anvil/actor"
)

// Overlap returns the sorted ids of the actors holding a query shape that
// overlaps geom placed at pose. It reads the poses of the last committed
// step, so it is only available while the world is idle.
func (w *World) Overlap(geom actor.Geometry, pose actor.Transform) ([]ActorID, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if err := w.mutable(false); err != nil {
		return nil, opError("overlap", 0, err)
	}
	if geom == nil {
		return nil, opError("overlap", 0, violation("nil geometry"))
	}
	if err := geom.Validate(); err != nil {
		return nil, opError("overlap", 0, err)
	}
	if !pose.IsValid() {
		return nil, opError("overlap", 0, violation("pose %v", pose))
	}

	probe := &actor.Collider{Shape: actor.NewShape(0, geom, w.cfg.material(), false)}
	probe.Transform = pose.Normalized()
	probe.AABB = geom.ComputeAABB(probe.Transform)

	var hits []ActorID
	for _, id := range w.broadPhase.Query(probe.AABB) {
		rb := w.reg.actors[id]
		for _, c := range rb.Colliders {
			if c.Shape.Flags.Has(actor.ShapeFlagQuery) && c.AABB.Overlaps(probe.AABB) && overlaps(probe, c) {
				hits = append(hits, id)
				break
			}
		}
	}
	return hits, nil
}
