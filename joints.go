package anvil

import (
	"github.com/akmonengine/anvil/actor"
	"github.com/akmonengine/anvil/constraint"
	"github.com/go-gl/mathgl/mgl64"
)

type jointConstructor func(id uint64, a *actor.RigidBody, frameA actor.Transform, b *actor.RigidBody, frameB actor.Transform) *constraint.Joint

// CreateFixedJoint locks the relative pose of two actors. parent may be WorldActor.
func (w *World) CreateFixedJoint(parent ActorID, parentFrame actor.Transform, child ActorID, childFrame actor.Transform) (JointID, error) {
	return w.createJoint("create fixed joint", constraint.NewFixedJoint, parent, parentFrame, child, childFrame)
}

// CreateSphericalJoint keeps the frame origins together, rotation free
// until a cone limit is set.
func (w *World) CreateSphericalJoint(parent ActorID, parentFrame actor.Transform, child ActorID, childFrame actor.Transform) (JointID, error) {
	return w.createJoint("create spherical joint", constraint.NewSphericalJoint, parent, parentFrame, child, childFrame)
}

// CreateD6Joint creates a configurable joint with all six axes locked
func (w *World) CreateD6Joint(parent ActorID, parentFrame actor.Transform, child ActorID, childFrame actor.Transform) (JointID, error) {
	return w.createJoint("create d6 joint", constraint.NewD6Joint, parent, parentFrame, child, childFrame)
}

func (w *World) createJoint(op string, newJoint jointConstructor, parent ActorID, parentFrame actor.Transform, child ActorID, childFrame actor.Transform) (JointID, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.mutable(true); err != nil {
		return 0, opError(op, 0, err)
	}
	if parent == child {
		return 0, opError(op, uint64(child), violation("joint between an actor and itself"))
	}
	if !parentFrame.IsValid() || !childFrame.IsValid() {
		return 0, opError(op, 0, violation("joint frames %v %v", parentFrame, childFrame))
	}

	a, err := w.reg.body(parent)
	if err != nil {
		return 0, opError(op, uint64(parent), err)
	}
	b, err := w.reg.body(child)
	if err != nil {
		return 0, opError(op, uint64(child), err)
	}
	if a.IsStatic() && b.IsStatic() {
		return 0, opError(op, 0, violation("joint between two static actors"))
	}

	j := newJoint(w.reg.nextID(), a, parentFrame, b, childFrame)
	w.reg.addJoint(j)
	w.brokenJoint[JointID(j.ID)] = false

	// a sleeping actor must feel its new joint
	for _, rb := range []*actor.RigidBody{a, b} {
		if !rb.IsStatic() && rb.IsSleeping {
			rb.Awake()
			w.committed[ActorID(rb.ID)] = snapshotOf(rb)
		}
	}
	return JointID(j.ID), nil
}

// joint resolves a joint for a mutation. Called with mu held.
func (w *World) joint(op string, id JointID) (*constraint.Joint, error) {
	if err := w.mutable(true); err != nil {
		return nil, opError(op, uint64(id), err)
	}
	j, err := w.reg.joint(id)
	if err != nil {
		return nil, opError(op, uint64(id), err)
	}
	return j, nil
}

// updateJoint applies set to a joint and wakes the actors it holds
func (w *World) updateJoint(op string, id JointID, set func(j *constraint.Joint) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	j, err := w.joint(op, id)
	if err != nil {
		return err
	}
	if err := set(j); err != nil {
		return opError(op, uint64(id), err)
	}
	for _, rb := range []*actor.RigidBody{j.BodyA, j.BodyB} {
		if !rb.IsStatic() && rb.IsSleeping {
			rb.Awake()
			w.committed[ActorID(rb.ID)] = snapshotOf(rb)
		}
	}
	return nil
}

// SetJointMotion sets how a D6 axis may move
func (w *World) SetJointMotion(id JointID, axis constraint.Axis, motion constraint.Motion) error {
	return w.updateJoint("set joint motion", id, func(j *constraint.Joint) error {
		return j.SetMotion(axis, motion)
	})
}

func (w *World) SetJointDrive(id JointID, axis constraint.DriveAxis, drive constraint.Drive) error {
	return w.updateJoint("set joint drive", id, func(j *constraint.Joint) error {
		return j.SetDrive(axis, drive)
	})
}

// SetJointDriveTarget sets the pose of the child frame relative to the
// parent frame that the drives pull towards.
func (w *World) SetJointDriveTarget(id JointID, target actor.Transform) error {
	return w.updateJoint("set joint drive target", id, func(j *constraint.Joint) error {
		return j.SetDriveTarget(target)
	})
}

func (w *World) SetJointDriveVelocity(id JointID, linear, angular mgl64.Vec3) error {
	return w.updateJoint("set joint drive velocity", id, func(j *constraint.Joint) error {
		return j.SetDriveVelocity(linear, angular)
	})
}

// SetJointLimit accepts a constraint.ConeLimit on spherical and D6 joints,
// and a TwistLimit or LinearLimit on D6 joints.
func (w *World) SetJointLimit(id JointID, limit constraint.Limit) error {
	return w.updateJoint("set joint limit", id, func(j *constraint.Joint) error {
		return j.SetLimit(limit)
	})
}

// SetJointBreakForce sets the force (N) and torque (N⋅m) above which a fixed
// joint breaks. Breaking cannot be undone.
func (w *World) SetJointBreakForce(id JointID, force, torque float64) error {
	return w.updateJoint("set joint break force", id, func(j *constraint.Joint) error {
		return j.SetBreakForce(force, torque)
	})
}

// IsJointBroken reads the state committed by the last step
func (w *World) IsJointBroken(id JointID) (bool, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if err := w.readable(true); err != nil {
		return false, opError("is joint broken", uint64(id), err)
	}
	if _, err := w.reg.joint(id); err != nil {
		return false, opError("is joint broken", uint64(id), err)
	}
	return w.brokenJoint[id], nil
}

func (w *World) ReleaseJoint(id JointID) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	j, err := w.joint("release joint", id)
	if err != nil {
		return err
	}
	w.releaseJoint(j)
	return nil
}

// releaseJoint wakes the actors the joint held. Called with mu held.
func (w *World) releaseJoint(j *constraint.Joint) {
	for _, rb := range []*actor.RigidBody{j.BodyA, j.BodyB} {
		if !rb.IsStatic() && rb.IsSleeping {
			rb.Awake()
			w.committed[ActorID(rb.ID)] = snapshotOf(rb)
		}
	}
	w.reg.removeJoint(j)
	delete(w.brokenJoint, JointID(j.ID))
}
